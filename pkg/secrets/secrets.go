// Copyright 2025 The Authors (see AUTHORS file)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package secrets resolves webhook signing secret references. Secret values
// must never be logged and must never appear in returned errors.
package secrets

import (
	"context"
	"fmt"
	"hash/crc32"
	"os"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

// Supported secret reference schemes.
const (
	envScheme  = "env:"
	fileScheme = "file:"
	gsmScheme  = "gsm:"
)

// Resolve resolves a secret reference to its value. Supported reference
// formats are:
//
//	env:NAME                               environment variable
//	file:/path/to/secret                   file contents, trailing newline trimmed
//	gsm:projects/*/secrets/*/versions/*    Google Secret Manager version
//
// Any other format is rejected.
func Resolve(ctx context.Context, ref string) (string, error) {
	switch {
	case strings.HasPrefix(ref, envScheme):
		name := strings.TrimPrefix(ref, envScheme)
		v, ok := os.LookupEnv(name)
		if !ok {
			return "", fmt.Errorf("secret not found: %q", ref)
		}
		return v, nil
	case strings.HasPrefix(ref, fileScheme):
		path := strings.TrimPrefix(ref, fileScheme)
		b, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read secret %q: %w", ref, err)
		}
		return strings.TrimRight(string(b), "\r\n"), nil
	case strings.HasPrefix(ref, gsmScheme):
		return getSecretManagerSecret(ctx, strings.TrimPrefix(ref, gsmScheme))
	default:
		return "", fmt.Errorf("invalid secret reference %q: expected env:, file: or gsm: scheme", ref)
	}
}

// getSecretManagerSecret reads a secret from Secret Manager. The resource
// name should be in the format: 'projects/*/secrets/*/versions/*'.
func getSecretManagerSecret(ctx context.Context, secretResourceName string) (string, error) {
	sm, err := secretmanager.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create secret manager client: %w", err)
	}
	secret, err := AccessSecret(ctx, sm, secretResourceName)
	if err != nil {
		return "", fmt.Errorf("failed to retrieve secret: %w", err)
	}
	if err := sm.Close(); err != nil {
		return "", fmt.Errorf("failed to close secret manager client: %w", err)
	}
	return secret, nil
}

// AccessSecret reads a secret from Secret Manager using the given client and
// validates that it was not corrupted during retrieval. The
// secretResourceName should be in the format:
// 'projects/*/secrets/*/versions/*'.
func AccessSecret(ctx context.Context, client *secretmanager.Client, secretResourceName string) (string, error) {
	req := secretmanagerpb.AccessSecretVersionRequest{
		Name: secretResourceName,
	}
	result, err := client.AccessSecretVersion(ctx, &req)
	if err != nil {
		return "", fmt.Errorf("failed to access secret version for %q - %w", secretResourceName, err)
	}
	crc32c := crc32.MakeTable(crc32.Castagnoli)
	checksum := int64(crc32.Checksum(result.Payload.Data, crc32c))
	if checksum != *result.Payload.DataCrc32C {
		return "", fmt.Errorf("failed to access secret version for %q - data corrupted", secretResourceName)
	}
	return string(result.Payload.Data), nil
}

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

package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/repo-roller/notifier/pkg/events"
)

// VerifySignature reports whether header is a valid signature of payload
// under secret. The header must be of the literal form
// "sha256=<hex-hmac-sha256>"; a missing header, a different algorithm tag or
// a wrong digest all fail identically.
//
// The comparison is constant time with respect to the expected digest, so an
// attacker cannot recover a valid signature byte by byte from response
// timing. A short-circuiting comparison must never be used here.
func VerifySignature(secret, payload []byte, header string) bool {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	want := events.SignaturePrefix + hex.EncodeToString(mac.Sum(nil))
	return subtle.ConstantTimeCompare([]byte(header), []byte(want)) == 1
}

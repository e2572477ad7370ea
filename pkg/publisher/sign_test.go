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

package publisher

import (
	"net/http"
	"strings"
	"testing"

	"github.com/repo-roller/notifier/pkg/events"
	"github.com/repo-roller/notifier/pkg/webhook"
)

func TestComputeSignature(t *testing.T) {
	t.Parallel()

	secret := []byte("test-webhook-secret")
	payload := []byte(`{"event_type":"repository.created"}`)

	got := ComputeSignature(secret, payload)
	if !strings.HasPrefix(got, events.SignaturePrefix) {
		t.Errorf("expected signature %q to start with %q", got, events.SignaturePrefix)
	}
	if want := len(events.SignaturePrefix) + 64; len(got) != want {
		t.Errorf("expected signature length %d to be %d", len(got), want)
	}

	// The signature must verify with the receiver-side check.
	if !webhook.VerifySignature(secret, payload, got) {
		t.Errorf("signature %q did not verify against its own payload", got)
	}
	if webhook.VerifySignature([]byte("other-secret"), payload, got) {
		t.Error("signature verified under the wrong secret")
	}
	if webhook.VerifySignature(secret, []byte(`{"tampered":true}`), got) {
		t.Error("signature verified against tampered payload")
	}
}

func TestSignRequest(t *testing.T) {
	t.Parallel()

	secret := []byte("test-webhook-secret")
	payload := []byte(`{"event_type":"repository.created"}`)

	req, err := http.NewRequest(http.MethodPost, "https://example.com/hooks", nil)
	if err != nil {
		t.Fatal(err)
	}
	SignRequest(req, secret, payload)

	if got, want := req.Header.Get(events.SignatureHeader), ComputeSignature(secret, payload); got != want {
		t.Errorf("expected header %q to be %q", got, want)
	}
}

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
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"

	"github.com/repo-roller/notifier/pkg/events"
)

// ComputeSignature returns the signature header value for payload under
// secret, in the form "sha256=<hex-hmac-sha256>". It is the exact dual of
// the receiver-side verification.
func ComputeSignature(secret, payload []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return events.SignaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// SignRequest adds the signature header for payload to an outbound request.
// The payload must be the exact bytes sent as the request body.
func SignRequest(req *http.Request, secret, payload []byte) {
	req.Header.Set(events.SignatureHeader, ComputeSignature(secret, payload))
}

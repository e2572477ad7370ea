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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/abcxyz/pkg/logging"

	"github.com/repo-roller/notifier/pkg/events"
	"github.com/repo-roller/notifier/pkg/metrics"
)

var (
	errReadingPayload   = fmt.Errorf("failed to read webhook payload")
	errInvalidSignature = fmt.Errorf("failed to validate webhook signature")
	errMalformedPayload = fmt.Errorf("malformed webhook payload")
)

// ForwardedEvent is the message schema for events forwarded to the events
// topic. Payload carries the exact bytes that were signature-verified.
type ForwardedEvent struct {
	Received  string `json:"received"`
	EventType string `json:"event_type"`
	Signature string `json:"signature"`
	Payload   string `json:"payload"`
}

// handleWebhook handles the logic for receiving notification webhooks,
// dispatching them to handlers and optionally forwarding them to pubsub.
func (s *Server) handleWebhook() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().UTC()
		ctx := r.Context()
		logger := logging.FromContext(ctx)

		signature := r.Header.Get(events.SignatureHeader)

		// The signature covers the exact bytes on the wire, so the body must
		// be captured before any parsing.
		payload, err := io.ReadAll(io.LimitReader(r.Body, s.maxBodyBytes))
		if err != nil {
			logger.ErrorContext(ctx, "failed to read webhook request body",
				"code", http.StatusInternalServerError,
				"body", errReadingPayload,
				"error", err)
			metrics.RecordWebhookRequest(http.StatusInternalServerError)
			s.h.RenderJSON(w, http.StatusInternalServerError, errReadingPayload)
			return
		}

		// A missing header and a wrong digest fail identically so callers
		// cannot probe which check rejected them. Nothing from the payload is
		// parsed or logged until verification succeeds.
		if !VerifySignature(s.webhookSecret, payload, signature) {
			logger.WarnContext(ctx, "rejected webhook with invalid signature",
				"code", http.StatusUnauthorized,
				"remote_addr", r.RemoteAddr)
			metrics.RecordWebhookRequest(http.StatusUnauthorized)
			s.h.RenderJSON(w, http.StatusUnauthorized, errInvalidSignature)
			return
		}

		if err := s.dispatcher.Dispatch(ctx, payload); err != nil {
			logger.ErrorContext(ctx, "failed to dispatch webhook event",
				"code", http.StatusBadRequest,
				"body", errMalformedPayload,
				"error", err)
			metrics.RecordWebhookRequest(http.StatusBadRequest)
			s.h.RenderJSON(w, http.StatusBadRequest, errMalformedPayload)
			return
		}

		// Forwarding is best effort: the event was accepted above, and the
		// sender redelivers on its own schedule, so a backend failure must
		// not change the response.
		if s.messenger != nil {
			s.forward(ctx, now, signature, payload)
		}

		metrics.RecordWebhookRequest(http.StatusNoContent)
		w.WriteHeader(http.StatusNoContent)
	})
}

// forward wraps a verified payload in a [ForwardedEvent] and publishes it to
// the configured events topic.
func (s *Server) forward(ctx context.Context, received time.Time, signature string, payload []byte) {
	logger := logging.FromContext(ctx)

	// Dispatch already validated the envelope.
	var env events.Envelope
	_ = json.Unmarshal(payload, &env)

	event := &ForwardedEvent{
		Received:  received.Format(time.RFC3339Nano),
		EventType: env.EventType,
		Signature: signature,
		Payload:   string(payload),
	}

	eventBytes, err := json.Marshal(event)
	if err != nil {
		logger.ErrorContext(ctx, "failed to marshal forwarded event", "error", err)
		return
	}

	if err := s.messenger.Send(context.WithoutCancel(ctx), eventBytes, map[string]string{
		"event_type": env.EventType,
	}); err != nil {
		logger.ErrorContext(ctx, "failed to forward event to backend",
			"event_type", env.EventType,
			"error", err)
	}
}

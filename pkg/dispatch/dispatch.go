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

// Package dispatch routes verified webhook payloads to handlers registered by
// event type. Callers must verify the payload signature before dispatching;
// nothing in this package establishes trust.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/abcxyz/pkg/logging"

	"github.com/repo-roller/notifier/pkg/events"
)

// ErrMalformedEvent marks payloads that passed signature verification but
// are not valid JSON. The webhook server maps it to a client error.
var ErrMalformedEvent = errors.New("malformed event payload")

// Handler processes a single verified event payload.
type Handler interface {
	Handle(ctx context.Context, payload json.RawMessage) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, payload json.RawMessage) error

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, payload json.RawMessage) error {
	return f(ctx, payload)
}

// Dispatcher routes events to handlers by their event type.
type Dispatcher struct {
	handlers map[string]Handler
}

// New creates an empty dispatcher.
func New() *Dispatcher {
	return &Dispatcher{handlers: map[string]Handler{}}
}

// Register binds a handler to an event type, replacing any previous handler
// for that type.
func (d *Dispatcher) Register(eventType string, h Handler) {
	d.handlers[eventType] = h
}

// Dispatch decodes the payload envelope and routes the payload to the handler
// registered for its event type.
//
// Only payloads that are not valid JSON are rejected, with ErrMalformedEvent.
// Everything else is acknowledged: unknown event types and envelopes whose
// discriminator cannot be read are logged and ignored so new event shapes
// never fail a sender's delivery, and handler failures are logged but do not
// surface.
func (d *Dispatcher) Dispatch(ctx context.Context, payload []byte) error {
	logger := logging.FromContext(ctx)

	var env events.Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		if !json.Valid(payload) {
			return fmt.Errorf("%w: %s", ErrMalformedEvent, err)
		}
		logger.InfoContext(ctx, "ignoring event with unreadable envelope",
			"error", err)
		return nil
	}

	h, ok := d.handlers[env.EventType]
	if !ok {
		logger.InfoContext(ctx, "ignoring unknown event type",
			"event_type", env.EventType)
		return nil
	}

	if err := h.Handle(ctx, payload); err != nil {
		logger.ErrorContext(ctx, "event handler failed",
			"event_type", env.EventType,
			"error", err)
	}
	return nil
}

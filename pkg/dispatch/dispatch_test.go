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

package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/repo-roller/notifier/pkg/events"
)

func TestDispatcher_Dispatch(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		payload    string
		handlerErr error
		wantErr    error
		expHandled bool
	}{
		{
			name:       "routes_registered_type",
			payload:    `{"event_type":"repository.created"}`,
			expHandled: true,
		},
		{
			name:    "unknown_type_ignored",
			payload: `{"event_type":"repository.archived"}`,
		},
		{
			name:    "missing_event_type_ignored",
			payload: `{"other":"field"}`,
		},
		{
			name:    "non_string_event_type_ignored",
			payload: `{"event_type":123}`,
		},
		{
			name:    "json_array_ignored",
			payload: `[1,2,3]`,
		},
		{
			name:    "invalid_json",
			payload: `not-json`,
			wantErr: ErrMalformedEvent,
		},
		{
			name:    "empty_payload",
			payload: ``,
			wantErr: ErrMalformedEvent,
		},
		{
			name:       "handler_error_swallowed",
			payload:    `{"event_type":"repository.created"}`,
			handlerErr: errors.New("integration exploded"),
			expHandled: true,
		},
		{
			name:       "handler_decode_error_swallowed",
			payload:    `{"event_type":"repository.created"}`,
			handlerErr: fmt.Errorf("failed to decode repository.created event: bad field"),
			expHandled: true,
		},
	}

	for _, tc := range cases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()

			var handled bool
			d := New()
			d.Register(events.TypeRepositoryCreated, HandlerFunc(func(ctx context.Context, payload json.RawMessage) error {
				handled = true
				if got, want := string(payload), tc.payload; got != want {
					t.Errorf("expected handler payload %q to be %q", got, want)
				}
				return tc.handlerErr
			}))

			err := d.Dispatch(ctx, []byte(tc.payload))
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("expected error %v to be %v", err, tc.wantErr)
			}

			if got, want := handled, tc.expHandled; got != want {
				t.Errorf("expected handled %t to be %t", got, want)
			}
		})
	}
}

func TestDispatcher_RegisterReplaces(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	var first, second bool
	d := New()
	d.Register(events.TypeRepositoryCreated, HandlerFunc(func(context.Context, json.RawMessage) error {
		first = true
		return nil
	}))
	d.Register(events.TypeRepositoryCreated, HandlerFunc(func(context.Context, json.RawMessage) error {
		second = true
		return nil
	}))

	if err := d.Dispatch(ctx, []byte(`{"event_type":"repository.created"}`)); err != nil {
		t.Fatalf("Dispatch returned unexpected error: %v", err)
	}
	if first {
		t.Error("expected replaced handler not to run")
	}
	if !second {
		t.Error("expected replacement handler to run")
	}
}

func TestLogRepositoryCreated(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{
			name: "full_event",
			payload: `{
				"event_type": "repository.created",
				"event_id": "8c0422f1-3b89-4a0e-a146-ab8f0b0b7b3b",
				"organization": "my-org",
				"repository_name": "service-a",
				"repository_url": "https://github.com/my-org/service-a",
				"created_by": "octocat",
				"template_name": "go-service",
				"team": "platform",
				"visibility": "private",
				"content_strategy": "template",
				"timestamp": "2025-06-01T12:00:00Z"
			}`,
		},
		{
			name:    "minimal_event",
			payload: `{"event_type":"repository.created"}`,
		},
		{
			name:    "wrong_field_type",
			payload: `{"event_type":"repository.created","timestamp":12345}`,
			wantErr: true,
		},
	}

	for _, tc := range cases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := LogRepositoryCreated().Handle(context.Background(), []byte(tc.payload))
			if got, want := err != nil, tc.wantErr; got != want {
				t.Errorf("expected error presence %t to be %t (err: %v)", got, want, err)
			}
		})
	}
}

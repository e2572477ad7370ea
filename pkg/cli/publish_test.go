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

package cli

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/abcxyz/pkg/cli"
	"github.com/abcxyz/pkg/logging"
	"github.com/abcxyz/pkg/testutil"
	"github.com/sethvargo/go-envconfig"

	"github.com/repo-roller/notifier/pkg/events"
	"github.com/repo-roller/notifier/pkg/publisher"
)

func writeTempFile(tb testing.TB, name, contents string) string {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		tb.Fatal(err)
	}
	return path
}

func TestEventPublishCommand_Validation(t *testing.T) {
	t.Parallel()

	ctx := logging.WithLogger(context.Background(), logging.TestLogger(t))

	validConfig := `
endpoints:
  - url: https://example.com/hooks
    secret: env:HOOK_SECRET
    events: ["*"]
`

	cases := []struct {
		name   string
		args   []string
		env    func(tb testing.TB) map[string]string
		expErr string
	}{
		{
			name:   "too_many_args",
			args:   []string{"foo"},
			env:    func(testing.TB) map[string]string { return nil },
			expErr: `unexpected arguments: ["foo"]`,
		},
		{
			name:   "missing_config",
			env:    func(testing.TB) map[string]string { return nil },
			expErr: `NOTIFICATIONS_CONFIG is required`,
		},
		{
			name: "missing_event_file",
			env: func(tb testing.TB) map[string]string {
				return map[string]string{
					"NOTIFICATIONS_CONFIG": writeTempFile(tb, "notifications.yaml", validConfig),
				}
			},
			expErr: `EVENT_FILE is required`,
		},
		{
			name: "invalid_config",
			env: func(tb testing.TB) map[string]string {
				return map[string]string{
					"NOTIFICATIONS_CONFIG": writeTempFile(tb, "notifications.yaml", "endpoints:\n  - url: http://bad.example.com\n"),
					"EVENT_FILE":           writeTempFile(tb, "event.json", `{"event_type":"repository.created"}`),
				}
			},
			expErr: `failed to load notifications config`,
		},
		{
			name: "event_file_not_json",
			env: func(tb testing.TB) map[string]string {
				return map[string]string{
					"NOTIFICATIONS_CONFIG": writeTempFile(tb, "notifications.yaml", validConfig),
					"EVENT_FILE":           writeTempFile(tb, "event.json", "not-json"),
				}
			},
			expErr: `failed to parse event file`,
		},
		{
			name: "event_file_missing_type",
			env: func(tb testing.TB) map[string]string {
				return map[string]string{
					"NOTIFICATIONS_CONFIG": writeTempFile(tb, "notifications.yaml", validConfig),
					"EVENT_FILE":           writeTempFile(tb, "event.json", `{"other":"field"}`),
				}
			},
			expErr: `event file is missing the event_type field`,
		},
	}

	for _, tc := range cases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var cmd EventPublishCommand
			cmd.testFlagSetOpts = []cli.Option{cli.WithLookupEnv(envconfig.MapLookuper(tc.env(t)).Lookup)}

			_, _, _ = cmd.Pipe()

			err := cmd.Run(ctx, tc.args)
			if diff := testutil.DiffErrString(err, tc.expErr); diff != "" {
				t.Fatal(diff)
			}
		})
	}
}

func TestEventPublishCommand_Delivers(t *testing.T) {
	// Not parallel: t.Setenv below.
	ctx := logging.WithLogger(context.Background(), logging.TestLogger(t))

	var gotBody []byte
	var gotSignature string
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("failed to read request body: %v", err)
		}
		gotBody = b
		gotSignature = r.Header.Get(events.SignatureHeader)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	config := `
endpoints:
  - url: ` + srv.URL + `/
    secret: env:TEST_PUBLISH_HOOK_SECRET
    events: ["repository.created"]
`
	event := `{"event_type":"repository.created","event_id":"e1"}`

	t.Setenv("TEST_PUBLISH_HOOK_SECRET", "endpoint-secret")

	var cmd EventPublishCommand
	cmd.testFlagSetOpts = []cli.Option{cli.WithLookupEnv(envconfig.MapLookuper(map[string]string{
		"NOTIFICATIONS_CONFIG": writeTempFile(t, "notifications.yaml", config),
		"EVENT_FILE":           writeTempFile(t, "event.json", event),
	}).Lookup)}
	cmd.testPublisherOpts = []publisher.Option{publisher.WithHTTPClient(srv.Client())}

	_, _, _ = cmd.Pipe()

	if err := cmd.Run(ctx, nil); err != nil {
		t.Fatalf("Run returned unexpected error: %v", err)
	}

	if got, want := string(gotBody), event; got != want {
		t.Errorf("expected delivered body %q to be %q", got, want)
	}
	if got, want := gotSignature, publisher.ComputeSignature([]byte("endpoint-secret"), []byte(event)); got != want {
		t.Errorf("expected signature %q to be %q", got, want)
	}
}

func TestEventPublishCommand_ReportsFailures(t *testing.T) {
	// Not parallel: t.Setenv below.
	ctx := logging.WithLogger(context.Background(), logging.TestLogger(t))

	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	config := `
endpoints:
  - url: ` + srv.URL + `/
    secret: env:TEST_PUBLISH_FAIL_SECRET
    events: ["*"]
`
	t.Setenv("TEST_PUBLISH_FAIL_SECRET", "endpoint-secret")

	var cmd EventPublishCommand
	cmd.testFlagSetOpts = []cli.Option{cli.WithLookupEnv(envconfig.MapLookuper(map[string]string{
		"NOTIFICATIONS_CONFIG": writeTempFile(t, "notifications.yaml", config),
		"EVENT_FILE":           writeTempFile(t, "event.json", `{"event_type":"repository.created"}`),
	}).Lookup)}
	cmd.testPublisherOpts = []publisher.Option{publisher.WithHTTPClient(srv.Client())}

	_, _, _ = cmd.Pipe()

	err := cmd.Run(ctx, nil)
	if diff := testutil.DiffErrString(err, "1 of 1 deliveries failed"); diff != "" {
		t.Fatal(diff)
	}
}

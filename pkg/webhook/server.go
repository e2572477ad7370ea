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

// Package webhook is the inbound webhook receiver for RepoRoller
// notification events.
package webhook

import (
	"context"
	"fmt"
	"net/http"

	"github.com/abcxyz/pkg/healthcheck"
	"github.com/abcxyz/pkg/logging"
	"github.com/abcxyz/pkg/renderer"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/api/option"

	"github.com/repo-roller/notifier/pkg/client"
	"github.com/repo-roller/notifier/pkg/dispatch"
	"github.com/repo-roller/notifier/pkg/events"
	"github.com/repo-roller/notifier/pkg/secrets"
	"github.com/repo-roller/notifier/pkg/version"
)

// Server provides the webhook receiver implementation.
type Server struct {
	h             *renderer.Renderer
	webhookSecret []byte
	maxBodyBytes  int64
	dispatcher    *dispatch.Dispatcher
	messenger     client.Messenger
	projectID     string
}

// Options are the dependency overrides for constructing a Server. All fields
// are optional.
type Options struct {
	// PubSubClientOpts are passed to the pubsub client when event forwarding
	// is enabled.
	PubSubClientOpts []option.ClientOption

	// MessengerOverride replaces the pubsub messenger, used for testing.
	MessengerOverride client.Messenger

	// Dispatcher replaces the default dispatcher. The default registers a
	// logging handler for repository.created events.
	Dispatcher *dispatch.Dispatcher
}

// NewServer creates a new HTTP server implementation that will handle
// receiving webhook payloads. The webhook secret is resolved here, before
// the server can accept any traffic; a missing or unresolvable secret is
// fatal.
func NewServer(ctx context.Context, h *renderer.Renderer, cfg *Config, opts *Options) (*Server, error) {
	if opts == nil {
		opts = &Options{}
	}

	secret := cfg.WebhookSecret
	if secret == "" {
		resolved, err := secrets.Resolve(ctx, cfg.WebhookSecretRef)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve webhook secret: %w", err)
		}
		secret = resolved
	}
	if secret == "" {
		return nil, fmt.Errorf("webhook secret resolved to an empty value")
	}

	dispatcher := opts.Dispatcher
	if dispatcher == nil {
		dispatcher = dispatch.New()
		dispatcher.Register(events.TypeRepositoryCreated, dispatch.LogRepositoryCreated())
	}

	messenger := opts.MessengerOverride
	if messenger == nil && cfg.EventsTopicID != "" {
		m, err := client.NewPubSubMessenger(ctx, cfg.ProjectID, cfg.EventsTopicID, cfg.PubSubTimeout, opts.PubSubClientOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create pubsub messenger: %w", err)
		}
		messenger = m
	}

	return &Server{
		h:             h,
		webhookSecret: []byte(secret),
		maxBodyBytes:  int64(cfg.MaxBodyBytes),
		dispatcher:    dispatcher,
		messenger:     messenger,
		projectID:     cfg.ProjectID,
	}, nil
}

// Routes creates a ServeMux of all of the routes that this Router supports.
func (s *Server) Routes(ctx context.Context) http.Handler {
	logger := logging.FromContext(ctx)
	mux := http.NewServeMux()
	mux.Handle("/healthz", healthcheck.HandleHTTPHealthCheck())
	mux.Handle("/webhook", s.handleWebhook())
	mux.Handle("/version", s.handleVersion())
	mux.Handle("/metrics", promhttp.Handler())

	// Middleware
	root := logging.HTTPInterceptor(logger, s.projectID)(mux)

	return root
}

// handleVersion is a simple http.HandlerFunc that responds with version
// information for the server.
func (s *Server) handleVersion() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"version":%q}`+"\n", version.HumanVersion)
	})
}

// Shutdown handles the graceful shutdown of the webhook server.
func (s *Server) Shutdown() error {
	if s.messenger != nil {
		if err := s.messenger.Shutdown(); err != nil {
			return fmt.Errorf("failed to shutdown messenger: %w", err)
		}
	}
	return nil
}

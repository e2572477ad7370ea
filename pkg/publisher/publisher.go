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

// Package publisher delivers signed notification events to configured
// webhook endpoints.
package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/abcxyz/pkg/logging"
	"github.com/sethvargo/go-retry"

	"github.com/repo-roller/notifier/pkg/events"
	"github.com/repo-roller/notifier/pkg/metrics"
	"github.com/repo-roller/notifier/pkg/secrets"
	"github.com/repo-roller/notifier/pkg/version"
)

var (
	// can be overridden for testing
	retryMinWaitDuration        = 500 * time.Millisecond
	retryMaxAttempts     uint64 = 2
	retryFunc                   = retry.NewFibonacci
)

// SecretResolver resolves an endpoint secret reference to its value.
type SecretResolver func(ctx context.Context, ref string) (string, error)

// DeliveryResult records the outcome of delivering one event to one
// endpoint.
type DeliveryResult struct {
	EndpointURL  string
	Success      bool
	StatusCode   int // zero when no response was received
	Duration     time.Duration
	ErrorMessage string
}

// Publisher delivers events to the endpoints of a notification config.
type Publisher struct {
	cfg      *Config
	client   *http.Client
	resolver SecretResolver
	metrics  metrics.EventMetrics
}

// Option customizes a Publisher.
type Option func(p *Publisher)

// WithHTTPClient overrides the HTTP client used for deliveries.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Publisher) {
		p.client = c
	}
}

// WithSecretResolver overrides the secret resolver, used for testing.
func WithSecretResolver(r SecretResolver) Option {
	return func(p *Publisher) {
		p.resolver = r
	}
}

// New creates a Publisher for the given notification config.
func New(cfg *Config, m metrics.EventMetrics, opts ...Option) *Publisher {
	p := &Publisher{
		cfg:      cfg,
		client:   &http.Client{},
		resolver: secrets.Resolve,
		metrics:  m,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish serializes the event once and delivers the resulting bytes to
// every endpoint that accepts its type.
func (p *Publisher) Publish(ctx context.Context, event *events.RepositoryCreated) ([]*DeliveryResult, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return p.PublishRaw(ctx, event.EventType, payload), nil
}

// PublishRaw delivers a pre-serialized payload to every active endpoint that
// accepts eventType. The same bytes are signed and sent to each endpoint;
// the payload must never be re-serialized between signing and sending.
//
// Delivery is sequential and one endpoint's failure never blocks the rest.
// Endpoints whose secret cannot be resolved are skipped and produce no
// result, matching the delivery log semantics of the config: a result exists
// only for endpoints a request was attempted against.
func (p *Publisher) PublishRaw(ctx context.Context, eventType string, payload []byte) []*DeliveryResult {
	logger := logging.FromContext(ctx)

	var results []*DeliveryResult
	for _, ep := range p.cfg.Endpoints {
		if !ep.AcceptsEvent(eventType) {
			continue
		}
		if res := p.deliver(ctx, ep, payload); res != nil {
			results = append(results, res)
		}
	}

	succeeded := 0
	for _, res := range results {
		if res.Success {
			succeeded++
		}
	}
	logger.InfoContext(ctx, "event delivery complete",
		"event_type", eventType,
		"success_count", succeeded,
		"failure_count", len(results)-succeeded)

	return results
}

// deliver sends payload to a single endpoint, retrying transient failures
// with a fibonacci backoff. It returns nil when the endpoint was skipped.
func (p *Publisher) deliver(ctx context.Context, ep *Endpoint, payload []byte) *DeliveryResult {
	logger := logging.FromContext(ctx)

	secret, err := p.resolver(ctx, ep.Secret)
	if err != nil {
		logger.WarnContext(ctx, "failed to resolve endpoint secret, skipping endpoint",
			"endpoint", ep.URL,
			"error", err)
		p.metrics.RecordDeliveryError(ep.URL)
		return nil
	}

	start := time.Now()
	var lastStatus int

	backoff := retryFunc(retryMinWaitDuration)
	backoff = retry.WithMaxRetries(retryMaxAttempts, backoff)
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		reqCtx, cancel := context.WithTimeout(ctx, ep.Timeout())
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, ep.URL, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", fmt.Sprintf("repo-roller:notifier/%s", version.Version))
		SignRequest(req, []byte(secret), payload)

		resp, err := p.client.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("request failed: %w", err))
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

		lastStatus = resp.StatusCode
		return convertRetryable(resp.StatusCode)
	})
	duration := time.Since(start)

	if err == nil {
		logger.InfoContext(ctx, "event delivery successful",
			"endpoint", ep.URL,
			"status_code", lastStatus,
			"duration", duration)
		p.metrics.RecordDeliverySuccess(ep.URL, duration)
		return &DeliveryResult{
			EndpointURL: ep.URL,
			Success:     true,
			StatusCode:  lastStatus,
			Duration:    duration,
		}
	}

	res := &DeliveryResult{
		EndpointURL: ep.URL,
		Duration:    duration,
	}
	switch {
	case lastStatus != 0:
		res.StatusCode = lastStatus
		res.ErrorMessage = fmt.Sprintf("HTTP %d", lastStatus)
		p.metrics.RecordDeliveryFailure(ep.URL, lastStatus)
	case errors.Is(err, context.DeadlineExceeded):
		res.ErrorMessage = "request timeout"
		p.metrics.RecordDeliveryError(ep.URL)
	default:
		res.ErrorMessage = fmt.Sprintf("network error: %v", err)
		p.metrics.RecordDeliveryError(ep.URL)
	}

	logger.WarnContext(ctx, "event delivery failed",
		"endpoint", ep.URL,
		"status_code", res.StatusCode,
		"duration", duration,
		"error", res.ErrorMessage)
	return res
}

// convertRetryable classifies a delivery response status: nil for success,
// retryable for statuses the endpoint may recover from, terminal otherwise.
func convertRetryable(statusCode int) error {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return nil
	case statusCode == http.StatusTooManyRequests, statusCode >= 500:
		return retry.RetryableError(fmt.Errorf("status code %v is marked as retryable", statusCode))
	}
	return fmt.Errorf("response has non-retryable error with status %v", statusCode)
}

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

// Package metrics records notification delivery and webhook receiver metrics
// in Prometheus format.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	deliveryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_delivery_attempts_total",
			Help: "Total number of notification delivery attempts",
		},
		[]string{"endpoint"},
	)

	deliverySuccesses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_delivery_successes_total",
			Help: "Total number of successful notification deliveries",
		},
		[]string{"endpoint"},
	)

	deliveryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_delivery_failures_total",
			Help: "Total number of failed notification deliveries",
		},
		[]string{"endpoint", "status"},
	)

	deliveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notification_delivery_duration_seconds",
			Help:    "Notification delivery latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	webhookRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_requests_total",
			Help: "Total number of inbound webhook requests by response status",
		},
		[]string{"status"},
	)
)

// EventMetrics records the outcome of notification deliveries.
type EventMetrics interface {
	// RecordDeliverySuccess records a successful delivery and its latency.
	RecordDeliverySuccess(endpointURL string, d time.Duration)

	// RecordDeliveryFailure records a delivery rejected with an HTTP status.
	RecordDeliveryFailure(endpointURL string, statusCode int)

	// RecordDeliveryError records a delivery that produced no HTTP response,
	// such as a network error, timeout or secret resolution failure.
	RecordDeliveryError(endpointURL string)
}

// Prometheus records delivery metrics to the default Prometheus registry.
type Prometheus struct{}

func (Prometheus) RecordDeliverySuccess(endpointURL string, d time.Duration) {
	deliveryAttempts.WithLabelValues(endpointURL).Inc()
	deliverySuccesses.WithLabelValues(endpointURL).Inc()
	deliveryDuration.WithLabelValues(endpointURL).Observe(d.Seconds())
}

func (Prometheus) RecordDeliveryFailure(endpointURL string, statusCode int) {
	deliveryAttempts.WithLabelValues(endpointURL).Inc()
	deliveryFailures.WithLabelValues(endpointURL, strconv.Itoa(statusCode)).Inc()
}

func (Prometheus) RecordDeliveryError(endpointURL string) {
	deliveryAttempts.WithLabelValues(endpointURL).Inc()
	deliveryFailures.WithLabelValues(endpointURL, "error").Inc()
}

// NoOp discards all delivery metrics.
type NoOp struct{}

func (NoOp) RecordDeliverySuccess(string, time.Duration) {}
func (NoOp) RecordDeliveryFailure(string, int)           {}
func (NoOp) RecordDeliveryError(string)                  {}

// RecordWebhookRequest counts an inbound webhook request by its response
// status code.
func RecordWebhookRequest(statusCode int) {
	webhookRequests.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

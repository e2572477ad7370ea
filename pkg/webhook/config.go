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
	"errors"
	"fmt"
	"time"

	"github.com/abcxyz/pkg/cli"
)

// Config defines the set of environment variables required for running the
// webhook receiver.
type Config struct {
	Port             string
	WebhookSecret    string
	WebhookSecretRef string
	ProjectID        string
	EventsTopicID    string
	MaxBodyBytes     int
	PubSubTimeout    time.Duration
}

// Validate validates the service config after load. The webhook secret is
// required at startup: the receiver must never accept traffic without one.
func (cfg *Config) Validate() error {
	var merr error

	if cfg.WebhookSecret == "" && cfg.WebhookSecretRef == "" {
		merr = errors.Join(merr, fmt.Errorf("WEBHOOK_SECRET or WEBHOOK_SECRET_REF is required"))
	}

	if cfg.WebhookSecret != "" && cfg.WebhookSecretRef != "" {
		merr = errors.Join(merr, fmt.Errorf("WEBHOOK_SECRET and WEBHOOK_SECRET_REF are mutually exclusive"))
	}

	if cfg.EventsTopicID != "" && cfg.ProjectID == "" {
		merr = errors.Join(merr, fmt.Errorf("PROJECT_ID is required when EVENTS_TOPIC_ID is set"))
	}

	if cfg.MaxBodyBytes <= 0 {
		merr = errors.Join(merr, fmt.Errorf("MAX_BODY_BYTES must be positive"))
	}

	if cfg.PubSubTimeout <= 0 {
		merr = errors.Join(merr, fmt.Errorf("PUBSUB_TIMEOUT must be positive"))
	}

	return merr
}

// ToFlags binds the config to the give [cli.FlagSet] and returns it.
func (cfg *Config) ToFlags(set *cli.FlagSet) *cli.FlagSet {
	f := set.NewSection("COMMON OPTIONS")

	f.StringVar(&cli.StringVar{
		Name:    "port",
		Target:  &cfg.Port,
		EnvVar:  "PORT",
		Default: "8080",
		Usage:   `The port the webhook receiver listens to.`,
	})

	f.StringVar(&cli.StringVar{
		Name:   "webhook-secret",
		Target: &cfg.WebhookSecret,
		EnvVar: "WEBHOOK_SECRET",
		Usage:  `The shared webhook signing secret. Mutually exclusive with webhook-secret-ref.`,
	})

	f.StringVar(&cli.StringVar{
		Name:   "webhook-secret-ref",
		Target: &cfg.WebhookSecretRef,
		EnvVar: "WEBHOOK_SECRET_REF",
		Usage:  `A secret reference resolved at startup, e.g. "env:NAME", "file:/path" or "gsm:projects/p/secrets/s/versions/1".`,
	})

	f.StringVar(&cli.StringVar{
		Name:   "project-id",
		Target: &cfg.ProjectID,
		EnvVar: "PROJECT_ID",
		Usage:  `Google Cloud project ID, required when event forwarding is enabled.`,
	})

	f.StringVar(&cli.StringVar{
		Name:   "events-topic-id",
		Target: &cfg.EventsTopicID,
		EnvVar: "EVENTS_TOPIC_ID",
		Usage:  `Google PubSub topic ID to forward accepted events to. Forwarding is disabled when empty.`,
	})

	f.IntVar(&cli.IntVar{
		Name:    "max-body-bytes",
		Target:  &cfg.MaxBodyBytes,
		EnvVar:  "MAX_BODY_BYTES",
		Default: 1 << 20,
		Usage:   `The maximum accepted webhook request body size in bytes.`,
	})

	f.DurationVar(&cli.DurationVar{
		Name:    "pubsub-timeout",
		Target:  &cfg.PubSubTimeout,
		EnvVar:  "PUBSUB_TIMEOUT",
		Default: 10 * time.Second,
		Usage:   `The timeout for PubSub requests.`,
	})

	return set
}

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
	"encoding/json"
	"fmt"
	"os"

	"github.com/abcxyz/pkg/cli"
	"github.com/abcxyz/pkg/logging"

	"github.com/repo-roller/notifier/pkg/events"
	"github.com/repo-roller/notifier/pkg/metrics"
	"github.com/repo-roller/notifier/pkg/publisher"
)

var _ cli.Command = (*EventPublishCommand)(nil)

// EventPublishCommand delivers a serialized event to every configured
// endpoint that accepts its type.
type EventPublishCommand struct {
	cli.BaseCommand

	configPath string
	eventFile  string

	// testFlagSetOpts is only used for testing.
	testFlagSetOpts []cli.Option

	// testPublisherOpts is only used for testing.
	testPublisherOpts []publisher.Option
}

func (c *EventPublishCommand) Desc() string {
	return `Publish a notification event to the configured endpoints`
}

func (c *EventPublishCommand) Help() string {
	return `
Usage: {{ COMMAND }} [options]
  Read a serialized notification event and deliver it, signed, to every
  configured endpoint that accepts its event type.
`
}

func (c *EventPublishCommand) Flags() *cli.FlagSet {
	set := cli.NewFlagSet(c.testFlagSetOpts...)
	f := set.NewSection("COMMAND OPTIONS")

	f.StringVar(&cli.StringVar{
		Name:   "notifications-config",
		Target: &c.configPath,
		EnvVar: "NOTIFICATIONS_CONFIG",
		Usage:  `Path to the notification endpoints YAML file.`,
	})

	f.StringVar(&cli.StringVar{
		Name:   "event-file",
		Target: &c.eventFile,
		EnvVar: "EVENT_FILE",
		Usage:  `Path to the serialized event JSON to deliver.`,
	})

	return set
}

func (c *EventPublishCommand) Run(ctx context.Context, args []string) error {
	f := c.Flags()
	if err := f.Parse(args); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}
	args = f.Args()
	if len(args) > 0 {
		return fmt.Errorf("unexpected arguments: %q", args)
	}

	if c.configPath == "" {
		return fmt.Errorf("NOTIFICATIONS_CONFIG is required")
	}
	if c.eventFile == "" {
		return fmt.Errorf("EVENT_FILE is required")
	}

	cfg, err := publisher.LoadConfig(c.configPath)
	if err != nil {
		return fmt.Errorf("failed to load notifications config: %w", err)
	}

	payload, err := os.ReadFile(c.eventFile)
	if err != nil {
		return fmt.Errorf("failed to read event file: %w", err)
	}

	// The payload is delivered byte for byte, so only the envelope is
	// decoded here.
	var env events.Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return fmt.Errorf("failed to parse event file: %w", err)
	}
	if env.EventType == "" {
		return fmt.Errorf("event file is missing the event_type field")
	}

	logger := logging.FromContext(ctx)

	p := publisher.New(cfg, metrics.NoOp{}, c.testPublisherOpts...)
	results := p.PublishRaw(ctx, env.EventType, payload)

	failed := 0
	for _, res := range results {
		if !res.Success {
			failed++
		}
		logger.InfoContext(ctx, "delivery result",
			"endpoint", res.EndpointURL,
			"success", res.Success,
			"status_code", res.StatusCode,
			"duration", res.Duration,
			"error", res.ErrorMessage)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d deliveries failed", failed, len(results))
	}
	return nil
}

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
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultTimeoutSeconds is the per-endpoint request timeout applied when
	// the config omits one.
	DefaultTimeoutSeconds = 5

	// MaxTimeoutSeconds caps the per-endpoint request timeout.
	MaxTimeoutSeconds = 30
)

// Endpoint is a single outbound webhook destination.
type Endpoint struct {
	// URL is the destination, which must use HTTPS.
	URL string `yaml:"url"`

	// Secret is a secret reference (e.g. "env:NAME"), never a literal value.
	Secret string `yaml:"secret"`

	// Events lists the event types this endpoint receives. "*" matches all
	// types. Matching is case-sensitive.
	Events []string `yaml:"events"`

	// Active endpoints receive deliveries; inactive ones are skipped.
	Active bool `yaml:"active"`

	// TimeoutSeconds bounds each delivery request.
	TimeoutSeconds int `yaml:"timeout_seconds"`

	// Description is optional, for operators.
	Description string `yaml:"description"`
}

// UnmarshalYAML decodes an endpoint, applying defaults for omitted fields.
func (e *Endpoint) UnmarshalYAML(value *yaml.Node) error {
	type rawEndpoint Endpoint
	raw := rawEndpoint{
		Active:         true,
		TimeoutSeconds: DefaultTimeoutSeconds,
	}
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("failed to decode endpoint: %w", err)
	}
	*e = Endpoint(raw)
	return nil
}

// Validate validates a single endpoint configuration.
func (e *Endpoint) Validate() error {
	var merr error

	u, err := url.Parse(e.URL)
	if err != nil {
		merr = errors.Join(merr, fmt.Errorf("malformed url %q: %w", e.URL, err))
	} else if u.Scheme != "https" || u.Host == "" {
		merr = errors.Join(merr, fmt.Errorf("url %q must use the https scheme", e.URL))
	}

	if e.Secret == "" {
		merr = errors.Join(merr, fmt.Errorf("secret is required"))
	}

	if len(e.Events) == 0 {
		merr = errors.Join(merr, fmt.Errorf("at least one event type is required"))
	}

	if e.TimeoutSeconds <= 0 || e.TimeoutSeconds > MaxTimeoutSeconds {
		merr = errors.Join(merr, fmt.Errorf("timeout_seconds must be between 1 and %d", MaxTimeoutSeconds))
	}

	return merr
}

// AcceptsEvent reports whether this endpoint should receive events of the
// given type. Inactive endpoints accept nothing.
func (e *Endpoint) AcceptsEvent(eventType string) bool {
	if !e.Active {
		return false
	}
	for _, t := range e.Events {
		if t == "*" || t == eventType {
			return true
		}
	}
	return false
}

// Timeout returns the per-request timeout as a duration.
func (e *Endpoint) Timeout() time.Duration {
	return time.Duration(e.TimeoutSeconds) * time.Second
}

// Config is the outbound notification configuration.
type Config struct {
	Endpoints []*Endpoint `yaml:"endpoints"`
}

// Validate validates every configured endpoint.
func (c *Config) Validate() error {
	var merr error
	for i, ep := range c.Endpoints {
		if err := ep.Validate(); err != nil {
			merr = errors.Join(merr, fmt.Errorf("endpoint %d: %w", i, err))
		}
	}
	return merr
}

// LoadConfig reads and validates a notification config file.
func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read notifications config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse notifications config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid notifications config: %w", err)
	}
	return &cfg, nil
}

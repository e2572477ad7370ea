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

// Package events defines the notification event types exchanged between
// RepoRoller and its integrations, and the wire constants shared by the
// outbound publisher and the inbound receiver.
package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SignatureHeader is the header key used to pass the HMAC-SHA256
	// hexdigest of the request body.
	SignatureHeader = "X-RepoRoller-Signature-256"

	// SignaturePrefix is the required prefix of the signature header value.
	SignaturePrefix = "sha256="

	// TypeRepositoryCreated is the event type emitted after a repository is
	// successfully created.
	TypeRepositoryCreated = "repository.created"
)

// Envelope reads only the discriminator field of a payload so the event type
// can be inspected before full deserialization.
type Envelope struct {
	EventType string `json:"event_type"`
}

// AppliedSettings records the repository settings applied during creation.
type AppliedSettings struct {
	HasIssues      *bool `json:"has_issues,omitempty"`
	HasWiki        *bool `json:"has_wiki,omitempty"`
	HasProjects    *bool `json:"has_projects,omitempty"`
	HasDiscussions *bool `json:"has_discussions,omitempty"`
}

// RepositoryCreated is the payload of a repository.created event. Optional
// fields are pointers so absent fields decode as nil, and unknown fields are
// ignored on decode.
type RepositoryCreated struct {
	EventType        string            `json:"event_type"`
	EventID          string            `json:"event_id"`
	Timestamp        time.Time         `json:"timestamp"`
	Organization     string            `json:"organization"`
	RepositoryName   string            `json:"repository_name"`
	RepositoryURL    string            `json:"repository_url"`
	RepositoryID     string            `json:"repository_id"`
	CreatedBy        string            `json:"created_by"`
	RepositoryType   *string           `json:"repository_type,omitempty"`
	TemplateName     *string           `json:"template_name,omitempty"`
	ContentStrategy  string            `json:"content_strategy"`
	Visibility       string            `json:"visibility"`
	Team             *string           `json:"team,omitempty"`
	Description      *string           `json:"description,omitempty"`
	CustomProperties map[string]string `json:"custom_properties,omitempty"`
	AppliedSettings  *AppliedSettings  `json:"applied_settings,omitempty"`
}

// NewRepositoryCreated stamps the given event with its type, a unique event
// id and the current UTC timestamp. The remaining fields are taken from base
// as-is.
func NewRepositoryCreated(base RepositoryCreated) *RepositoryCreated {
	base.EventType = TypeRepositoryCreated
	base.EventID = uuid.New().String()
	base.Timestamp = time.Now().UTC()
	return &base
}

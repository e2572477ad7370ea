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
	"fmt"

	"github.com/abcxyz/pkg/logging"

	"github.com/repo-roller/notifier/pkg/events"
)

// LogRepositoryCreated returns a handler that decodes repository.created
// events and logs their fields. It is the default handler; deployments with
// real integration logic register their own.
func LogRepositoryCreated() Handler {
	return HandlerFunc(func(ctx context.Context, payload json.RawMessage) error {
		var event events.RepositoryCreated
		if err := json.Unmarshal(payload, &event); err != nil {
			return fmt.Errorf("failed to decode repository.created event: %w", err)
		}

		logger := logging.FromContext(ctx)
		logger.InfoContext(ctx, "repository created",
			"event_id", event.EventID,
			"organization", event.Organization,
			"repository", event.RepositoryName,
			"url", event.RepositoryURL,
			"created_by", event.CreatedBy,
			"visibility", event.Visibility,
			"content_strategy", event.ContentStrategy,
			"template", orNone(event.TemplateName),
			"team", orNone(event.Team))
		return nil
	})
}

func orNone(s *string) string {
	if s == nil {
		return "(none)"
	}
	return *s
}

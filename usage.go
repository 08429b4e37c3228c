// SPDX-FileCopyrightText: 2025 Mads R. Havmand <mads@v42.dk>
//
// SPDX-License-Identifier: AGPL-3.0-only

package braingw

import (
	"context"
	"fmt"
	"regexp"
	"time"
)

// UsageEvent is one immutable record of a billable generation. Events are
// append-only: the gateway never updates or deletes them.
type UsageEvent struct {
	ID           string            `json:"id"`
	Action       string            `json:"action"`
	TenantID     *string           `json:"tenantId,omitempty"`
	UserID       *string           `json:"userId,omitempty"`
	ModuleID     *string           `json:"moduleId,omitempty"`
	TokensInput  int               `json:"tokensInput"`
	TokensOutput int               `json:"tokensOutput"`
	TokensTotal  int               `json:"tokensTotal"`
	Units        int               `json:"units"`
	DurationMs   *int              `json:"durationMs,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
}

// actionPattern is the module:domain:verb grammar every action must match
var actionPattern = regexp.MustCompile(`^[a-z0-9_-]+:[a-z0-9_-]+:[a-z0-9_-]+$`)

// ValidateAction checks an action string against the module:domain:verb grammar
func ValidateAction(action string) error {
	if !actionPattern.MatchString(action) {
		return fmt.Errorf("%w: %q does not match module:domain:verb", ErrInvalidAction, action)
	}
	return nil
}

// UsageEventFilter selects usage events for history queries. TenantID is a
// required dimension; nil selects events recorded for non-tenant actors.
type UsageEventFilter struct {
	TenantID *string
	UserID   *string
	Action   *string
	ModuleID *string
	Start    *time.Time
	End      *time.Time
	Limit    int
	Offset   int
}

// ActionUsage is the per-action slice of a usage summary
type ActionUsage struct {
	Action      string `json:"action"`
	EventCount  int    `json:"eventCount"`
	TokensTotal int64  `json:"tokensTotal"`
	Units       int64  `json:"units"`
}

// UsageSummary is a pre-aggregated view of a tenant's usage for a period.
// ByAction is sorted by descending TokensTotal.
type UsageSummary struct {
	TotalTokens int64         `json:"totalTokens"`
	TotalUnits  int64         `json:"totalUnits"`
	EventCount  int           `json:"eventCount"`
	ByAction    []ActionUsage `json:"byAction"`
}

// UsageRepository defines persistence operations for usage events
type UsageRepository interface {
	// CreateUsageEvent stores a new usage event
	CreateUsageEvent(ctx context.Context, event *UsageEvent) error

	// ListUsageEvents retrieves usage events matching the filter, newest first,
	// plus the total number of matching events for pagination
	ListUsageEvents(ctx context.Context, filter UsageEventFilter) ([]*UsageEvent, int, error)

	// SummarizeUsage aggregates a tenant's usage from the given start time
	// through now. Aggregation happens in the store, not in process.
	SummarizeUsage(ctx context.Context, tenantID *string, since time.Time) (*UsageSummary, error)
}

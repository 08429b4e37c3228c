// SPDX-FileCopyrightText: 2025 Mads R. Havmand <mads@v42.dk>
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package ledger is the write and read side of the append-only usage ledger:
// event validation and recording, history queries and period summaries.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AppDist/braingw"
	"github.com/google/uuid"
)

const (
	// MaxHistoryLimit caps the page size of history queries
	MaxHistoryLimit = 1000

	// DefaultHistoryLimit applies when the filter leaves Limit unset
	DefaultHistoryLimit = 100
)

// Ledger validates and persists usage events and serves their read side
type Ledger struct {
	repo   braingw.UsageRepository
	logger *slog.Logger
	now    func() time.Time
}

// Option configures Ledger behavior
type Option func(*Ledger)

// WithLogger sets the logger for the ledger
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

// WithClock replaces the time source, used by tests
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// New creates a Ledger on top of a usage repository
func New(repo braingw.UsageRepository, options ...Option) *Ledger {
	l := &Ledger{
		repo:   repo,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

// Record validates the event shape, assigns identity and timestamp, derives
// the token total when absent, and appends the event to the store. The
// returned event is the persisted copy; the input is not mutated.
func (l *Ledger) Record(ctx context.Context, event *braingw.UsageEvent) (*braingw.UsageEvent, error) {
	if err := validateEvent(event); err != nil {
		return nil, err
	}

	persisted := *event
	persisted.ID = uuid.New().String()
	persisted.CreatedAt = l.now()
	if persisted.TokensTotal == 0 {
		persisted.TokensTotal = persisted.TokensInput + persisted.TokensOutput
	}
	if persisted.Metadata == nil {
		persisted.Metadata = map[string]string{}
	}

	if err := l.repo.CreateUsageEvent(ctx, &persisted); err != nil {
		return nil, fmt.Errorf("failed to record usage event: %w", err)
	}

	l.logger.Debug("Recorded usage event",
		"id", persisted.ID,
		"action", persisted.Action,
		"tokensTotal", persisted.TokensTotal,
		"units", persisted.Units)
	return &persisted, nil
}

// HistoryPage is one page of a tenant's usage history
type HistoryPage struct {
	Events     []*braingw.UsageEvent `json:"events"`
	TotalCount int                   `json:"totalCount"`
}

// History returns usage events matching the filter, newest first, with the
// total matching count for pagination. Limit is clamped to [1, MaxHistoryLimit]
// (defaulting to DefaultHistoryLimit) and a negative offset to zero.
func (l *Ledger) History(ctx context.Context, filter braingw.UsageEventFilter) (*HistoryPage, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultHistoryLimit
	}
	if filter.Limit > MaxHistoryLimit {
		filter.Limit = MaxHistoryLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	events, total, err := l.repo.ListUsageEvents(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage history: %w", err)
	}
	return &HistoryPage{Events: events, TotalCount: total}, nil
}

// Summary aggregates a tenant's usage for the current period through now
func (l *Ledger) Summary(ctx context.Context, tenantID *string, period Period) (*braingw.UsageSummary, error) {
	start, err := period.Start(l.now())
	if err != nil {
		return nil, err
	}

	summary, err := l.repo.SummarizeUsage(ctx, tenantID, start)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize usage: %w", err)
	}
	return summary, nil
}

func validateEvent(event *braingw.UsageEvent) error {
	if err := braingw.ValidateAction(event.Action); err != nil {
		return err
	}
	if event.TokensInput < 0 || event.TokensOutput < 0 || event.TokensTotal < 0 {
		return fmt.Errorf("%w: token counts must be non-negative", braingw.ErrInvalidEvent)
	}
	if event.Units < 0 {
		return fmt.Errorf("%w: units must be non-negative", braingw.ErrInvalidEvent)
	}
	if event.DurationMs != nil && *event.DurationMs < 0 {
		return fmt.Errorf("%w: duration must be non-negative", braingw.ErrInvalidEvent)
	}
	return nil
}

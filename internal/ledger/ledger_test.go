// SPDX-FileCopyrightText: 2025 Mads R. Havmand <mads@v42.dk>
//
// SPDX-License-Identifier: AGPL-3.0-only

package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AppDist/braingw"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUsageRepository records calls in memory
type fakeUsageRepository struct {
	events    []*braingw.UsageEvent
	createErr error
	summary   *braingw.UsageSummary
	lastSince time.Time
	lastList  braingw.UsageEventFilter
}

func (f *fakeUsageRepository) CreateUsageEvent(_ context.Context, event *braingw.UsageEvent) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeUsageRepository) ListUsageEvents(_ context.Context, filter braingw.UsageEventFilter) ([]*braingw.UsageEvent, int, error) {
	f.lastList = filter
	return f.events, len(f.events), nil
}

func (f *fakeUsageRepository) SummarizeUsage(_ context.Context, _ *string, since time.Time) (*braingw.UsageSummary, error) {
	f.lastSince = since
	if f.summary == nil {
		return &braingw.UsageSummary{}, nil
	}
	return f.summary, nil
}

func TestLedger_Record(t *testing.T) {
	t.Run("assigns identity and derives total", func(t *testing.T) {
		repo := &fakeUsageRepository{}
		now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
		l := New(repo, WithClock(func() time.Time { return now }))

		tenant := "tenant-1"
		persisted, err := l.Record(context.Background(), &braingw.UsageEvent{
			Action:       "agency:scope:generate",
			TenantID:     &tenant,
			TokensInput:  100,
			TokensOutput: 50,
			Units:        3,
		})
		require.NoError(t, err)
		assert.NotEmpty(t, persisted.ID)
		assert.Equal(t, now, persisted.CreatedAt)
		assert.Equal(t, 150, persisted.TokensTotal)
		require.Len(t, repo.events, 1)
	})

	t.Run("keeps independently supplied total", func(t *testing.T) {
		repo := &fakeUsageRepository{}
		l := New(repo)

		persisted, err := l.Record(context.Background(), &braingw.UsageEvent{
			Action:      "agency:scope:generate",
			TokensInput: 100, TokensOutput: 50, TokensTotal: 160,
		})
		require.NoError(t, err)
		assert.Equal(t, 160, persisted.TokensTotal)
	})

	t.Run("rejects malformed action before persistence", func(t *testing.T) {
		repo := &fakeUsageRepository{}
		l := New(repo)

		_, err := l.Record(context.Background(), &braingw.UsageEvent{Action: "invalidformat"})
		assert.ErrorIs(t, err, braingw.ErrInvalidAction)
		assert.Empty(t, repo.events, "nothing must reach the store")
	})

	t.Run("rejects negative numerics", func(t *testing.T) {
		repo := &fakeUsageRepository{}
		l := New(repo)

		_, err := l.Record(context.Background(), &braingw.UsageEvent{
			Action:      "agency:scope:generate",
			TokensInput: -1,
		})
		assert.ErrorIs(t, err, braingw.ErrInvalidEvent)

		_, err = l.Record(context.Background(), &braingw.UsageEvent{
			Action: "agency:scope:generate",
			Units:  -5,
		})
		assert.ErrorIs(t, err, braingw.ErrInvalidEvent)
		assert.Empty(t, repo.events)
	})

	t.Run("does not mutate the caller's event", func(t *testing.T) {
		repo := &fakeUsageRepository{}
		l := New(repo)

		input := &braingw.UsageEvent{Action: "agency:scope:generate", TokensInput: 1, TokensOutput: 2}
		_, err := l.Record(context.Background(), input)
		require.NoError(t, err)
		assert.Empty(t, input.ID)
		assert.Zero(t, input.TokensTotal)
	})

	t.Run("store failure surfaces", func(t *testing.T) {
		repo := &fakeUsageRepository{createErr: errors.New("database connection failed")}
		l := New(repo)

		_, err := l.Record(context.Background(), &braingw.UsageEvent{Action: "agency:scope:generate"})
		assert.ErrorContains(t, err, "database connection failed")
	})
}

func TestLedger_History(t *testing.T) {
	t.Run("defaults and clamps pagination", func(t *testing.T) {
		repo := &fakeUsageRepository{}
		l := New(repo)

		_, err := l.History(context.Background(), braingw.UsageEventFilter{})
		require.NoError(t, err)
		assert.Equal(t, DefaultHistoryLimit, repo.lastList.Limit)
		assert.Equal(t, 0, repo.lastList.Offset)

		_, err = l.History(context.Background(), braingw.UsageEventFilter{Limit: 5000, Offset: -3})
		require.NoError(t, err)
		assert.Equal(t, MaxHistoryLimit, repo.lastList.Limit)
		assert.Equal(t, 0, repo.lastList.Offset)
	})

	t.Run("returns events and total", func(t *testing.T) {
		repo := &fakeUsageRepository{events: []*braingw.UsageEvent{
			{ID: "a"}, {ID: "b"},
		}}
		l := New(repo)

		page, err := l.History(context.Background(), braingw.UsageEventFilter{Limit: 10})
		require.NoError(t, err)
		assert.Len(t, page.Events, 2)
		assert.Equal(t, 2, page.TotalCount)
	})
}

func TestLedger_Summary(t *testing.T) {
	repo := &fakeUsageRepository{summary: &braingw.UsageSummary{
		TotalTokens: 150,
		TotalUnits:  3,
		EventCount:  1,
	}}
	// Wednesday mid-month, local semantics
	now := time.Date(2025, 6, 18, 15, 30, 0, 0, time.Local)
	l := New(repo, WithClock(func() time.Time { return now }))

	tenant := "tenant-1"

	t.Run("day", func(t *testing.T) {
		summary, err := l.Summary(context.Background(), &tenant, PeriodDay)
		require.NoError(t, err)
		assert.Equal(t, int64(150), summary.TotalTokens)
		assert.Equal(t, time.Date(2025, 6, 18, 0, 0, 0, 0, time.Local), repo.lastSince)
	})

	t.Run("week starts monday", func(t *testing.T) {
		_, err := l.Summary(context.Background(), &tenant, PeriodWeek)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 6, 16, 0, 0, 0, 0, time.Local), repo.lastSince)
	})

	t.Run("month", func(t *testing.T) {
		_, err := l.Summary(context.Background(), &tenant, PeriodMonth)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.Local), repo.lastSince)
	})

	t.Run("unknown period", func(t *testing.T) {
		_, err := l.Summary(context.Background(), &tenant, Period("fortnight"))
		assert.Error(t, err)
	})
}

func TestParsePeriod(t *testing.T) {
	for _, valid := range []string{"day", "week", "month"} {
		period, err := ParsePeriod(valid)
		require.NoError(t, err)
		assert.Equal(t, Period(valid), period)
	}

	_, err := ParsePeriod("year")
	assert.Error(t, err)
}

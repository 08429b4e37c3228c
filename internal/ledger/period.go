// SPDX-FileCopyrightText: 2025 Mads R. Havmand <mads@v42.dk>
//
// SPDX-License-Identifier: AGPL-3.0-only

package ledger

import (
	"fmt"
	"time"

	"github.com/AppDist/braingw"
)

// Period names a summary window anchored at the start of the current day,
// week (Monday) or month in local time, with no end bound.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// ParsePeriod validates a period name
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case PeriodDay, PeriodWeek, PeriodMonth:
		return Period(s), nil
	}
	return "", fmt.Errorf("%w: unknown period %q, want day, week or month", braingw.ErrInvalidEvent, s)
}

// Start maps the period to its concrete start timestamp relative to now
func (p Period) Start(now time.Time) (time.Time, error) {
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch p {
	case PeriodDay:
		return startOfDay, nil
	case PeriodWeek:
		// weeks start on Monday
		offset := (int(now.Weekday()) + 6) % 7
		return startOfDay.AddDate(0, 0, -offset), nil
	case PeriodMonth:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), nil
	}
	return time.Time{}, fmt.Errorf("%w: unknown period %q, want day, week or month", braingw.ErrInvalidEvent, string(p))
}

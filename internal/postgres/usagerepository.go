// SPDX-FileCopyrightText: 2025 Mads R. Havmand <mads@v42.dk>
//
// SPDX-License-Identifier: AGPL-3.0-only

package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AppDist/braingw"
	"github.com/jackc/pgx/v5/pgconn"
)

// CreateUsageEvent stores a new usage event
func (r *UsageRepository) CreateUsageEvent(ctx context.Context, event *braingw.UsageEvent) error {
	query := `
		INSERT INTO usage_events (
			id, action, tenant_id, user_id, module_id,
			tokens_input, tokens_output, tokens_total,
			units, duration_ms, metadata, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.options.Db.Exec(ctx, query,
		event.ID,
		event.Action,
		event.TenantID,
		event.UserID,
		event.ModuleID,
		event.TokensInput,
		event.TokensOutput,
		event.TokensTotal,
		event.Units,
		event.DurationMs,
		event.Metadata,
		event.CreatedAt,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return braingw.ErrDuplicateEntry
		}
		r.options.Logger.Error("Failed to create usage event", "error", err)
		return err
	}
	return nil
}

// ListUsageEvents retrieves usage events matching the filter, newest first,
// plus the total number of matching events
func (r *UsageRepository) ListUsageEvents(ctx context.Context, filter braingw.UsageEventFilter) ([]*braingw.UsageEvent, int, error) {
	where, args := buildUsageEventFilter(filter)

	countQuery := "SELECT COUNT(*) FROM usage_events " + where
	var total int
	if err := r.options.Db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		r.options.Logger.Error("Failed to count usage events", "error", err)
		return nil, 0, err
	}

	listQuery := fmt.Sprintf(`
		SELECT id, action, tenant_id, user_id, module_id,
			tokens_input, tokens_output, tokens_total,
			units, duration_ms, metadata, created_at
		FROM usage_events
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.options.Db.Query(ctx, listQuery, args...)
	if err != nil {
		r.options.Logger.Error("Failed to list usage events", "error", err)
		return nil, 0, err
	}
	defer rows.Close()

	var events []*braingw.UsageEvent
	for rows.Next() {
		var event braingw.UsageEvent
		err := rows.Scan(
			&event.ID,
			&event.Action,
			&event.TenantID,
			&event.UserID,
			&event.ModuleID,
			&event.TokensInput,
			&event.TokensOutput,
			&event.TokensTotal,
			&event.Units,
			&event.DurationMs,
			&event.Metadata,
			&event.CreatedAt,
		)
		if err != nil {
			r.options.Logger.Error("Failed to scan usage event row", "error", err)
			return nil, 0, err
		}
		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		r.options.Logger.Error("Error iterating usage event rows", "error", err)
		return nil, 0, err
	}

	return events, total, nil
}

// SummarizeUsage aggregates a tenant's usage from the given start time
// through now. The aggregation runs in SQL so the round-trip count stays
// constant regardless of event volume.
func (r *UsageRepository) SummarizeUsage(ctx context.Context, tenantID *string, since time.Time) (*braingw.UsageSummary, error) {
	where, args := buildUsageEventFilter(braingw.UsageEventFilter{TenantID: tenantID, Start: &since})

	totalsQuery := `
		SELECT COALESCE(SUM(tokens_total), 0), COALESCE(SUM(units), 0), COUNT(*)
		FROM usage_events ` + where

	var summary braingw.UsageSummary
	if err := r.options.Db.QueryRow(ctx, totalsQuery, args...).Scan(
		&summary.TotalTokens,
		&summary.TotalUnits,
		&summary.EventCount,
	); err != nil {
		r.options.Logger.Error("Failed to summarize usage", "error", err)
		return nil, err
	}

	byActionQuery := `
		SELECT action, COUNT(*), COALESCE(SUM(tokens_total), 0), COALESCE(SUM(units), 0)
		FROM usage_events ` + where + `
		GROUP BY action
		ORDER BY SUM(tokens_total) DESC`

	rows, err := r.options.Db.Query(ctx, byActionQuery, args...)
	if err != nil {
		r.options.Logger.Error("Failed to summarize usage by action", "error", err)
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var action braingw.ActionUsage
		if err := rows.Scan(&action.Action, &action.EventCount, &action.TokensTotal, &action.Units); err != nil {
			r.options.Logger.Error("Failed to scan action summary row", "error", err)
			return nil, err
		}
		summary.ByAction = append(summary.ByAction, action)
	}

	if err := rows.Err(); err != nil {
		r.options.Logger.Error("Error iterating action summary rows", "error", err)
		return nil, err
	}

	return &summary, nil
}

// buildUsageEventFilter renders the WHERE clause and args for a filter.
// TenantID is always constrained: nil matches only non-tenant events.
func buildUsageEventFilter(filter braingw.UsageEventFilter) (string, []any) {
	var conds []string
	var args []any

	if filter.TenantID == nil {
		conds = append(conds, "tenant_id IS NULL")
	} else {
		args = append(args, *filter.TenantID)
		conds = append(conds, fmt.Sprintf("tenant_id = $%d", len(args)))
	}
	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.Action != nil {
		args = append(args, *filter.Action)
		conds = append(conds, fmt.Sprintf("action = $%d", len(args)))
	}
	if filter.ModuleID != nil {
		args = append(args, *filter.ModuleID)
		conds = append(conds, fmt.Sprintf("module_id = $%d", len(args)))
	}
	if filter.Start != nil {
		args = append(args, *filter.Start)
		conds = append(conds, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.End != nil {
		args = append(args, *filter.End)
		conds = append(conds, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	return "WHERE " + strings.Join(conds, " AND "), args
}

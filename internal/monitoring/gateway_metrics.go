// SPDX-FileCopyrightText: 2025 Mads R. Havmand <mads@v42.dk>
//
// SPDX-License-Identifier: AGPL-3.0-only

package monitoring

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type GatewayMetrics struct {
	generationsTotal       metric.Int64Counter
	cacheHitsTotal         metric.Int64Counter
	cacheMissesTotal       metric.Int64Counter
	tokensConsumedTotal    metric.Int64Counter
	generationDuration     metric.Float64Histogram
	retriesTotal           metric.Int64Counter
	ledgerWriteErrorsTotal metric.Int64Counter
}

func NewGatewayMetrics(meter metric.Meter) (*GatewayMetrics, error) {
	generationsTotal, err := meter.Int64Counter(
		"generations_total",
		metric.WithDescription("Total structured-generation requests by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create generations_total counter: %w", err)
	}

	cacheHitsTotal, err := meter.Int64Counter(
		"generation_cache_hits_total",
		metric.WithDescription("Generations served from the response cache"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create generation_cache_hits_total counter: %w", err)
	}

	cacheMissesTotal, err := meter.Int64Counter(
		"generation_cache_misses_total",
		metric.WithDescription("Generations that had to call a provider"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create generation_cache_misses_total counter: %w", err)
	}

	tokensConsumedTotal, err := meter.Int64Counter(
		"generation_tokens_total",
		metric.WithDescription("Token consumption by provider and token type"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create generation_tokens_total counter: %w", err)
	}

	generationDuration, err := meter.Float64Histogram(
		"generation_duration_seconds",
		metric.WithDescription("Wall-clock time of provider generations including retries"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create generation_duration histogram: %w", err)
	}

	retriesTotal, err := meter.Int64Counter(
		"generation_retries_total",
		metric.WithDescription("Provider attempts beyond the first"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create generation_retries_total counter: %w", err)
	}

	ledgerWriteErrorsTotal, err := meter.Int64Counter(
		"ledger_write_errors_total",
		metric.WithDescription("Usage events that failed to persist"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ledger_write_errors_total counter: %w", err)
	}

	return &GatewayMetrics{
		generationsTotal:       generationsTotal,
		cacheHitsTotal:         cacheHitsTotal,
		cacheMissesTotal:       cacheMissesTotal,
		tokensConsumedTotal:    tokensConsumedTotal,
		generationDuration:     generationDuration,
		retriesTotal:           retriesTotal,
		ledgerWriteErrorsTotal: ledgerWriteErrorsTotal,
	}, nil
}

func (gm *GatewayMetrics) RecordGeneration(ctx context.Context, provider, taskType, outcome string) {
	gm.generationsTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("task_type", taskType),
			attribute.String("outcome", outcome),
		),
	)
}

func (gm *GatewayMetrics) RecordCacheHit(ctx context.Context, taskType string) {
	gm.cacheHitsTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("task_type", taskType)),
	)
}

func (gm *GatewayMetrics) RecordCacheMiss(ctx context.Context, taskType string) {
	gm.cacheMissesTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("task_type", taskType)),
	)
}

func (gm *GatewayMetrics) RecordTokens(ctx context.Context, provider string, tokenType string, tokens int64) {
	gm.tokensConsumedTotal.Add(ctx, tokens,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("token_type", tokenType),
		),
	)
}

func (gm *GatewayMetrics) RecordGenerationDuration(ctx context.Context, provider string, duration time.Duration) {
	gm.generationDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(attribute.String("provider", provider)),
	)
}

func (gm *GatewayMetrics) RecordRetry(ctx context.Context, provider string) {
	gm.retriesTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("provider", provider)),
	)
}

func (gm *GatewayMetrics) RecordLedgerWriteError(ctx context.Context) {
	gm.ledgerWriteErrorsTotal.Add(ctx, 1)
}

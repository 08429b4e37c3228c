// SPDX-FileCopyrightText: 2025 Mads R. Havmand <mads@v42.dk>
//
// SPDX-License-Identifier: AGPL-3.0-only

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/AppDist/braingw"
	"github.com/AppDist/braingw/internal/executor"
	"github.com/AppDist/braingw/internal/ledger"
	"github.com/AppDist/braingw/internal/monitoring"
	"github.com/AppDist/braingw/internal/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func counterSum(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestGateway_Metrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	meterProvider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = meterProvider.Shutdown(context.Background()) })

	metrics, err := monitoring.NewGatewayMetrics(meterProvider.Meter("test"))
	require.NoError(t, err)

	repo := &fakeUsageRepository{}
	mock := providers.NewMockProvider(
		json.RawMessage(`{"summary":"ok"}`),
		braingw.TokenUsage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150},
	)
	// one retryable failure before the success, so a retry is observed
	mock.Errs = []error{&providers.ProviderError{Provider: "mock", Status: 503, Err: errors.New("upstream overloaded")}}

	exec := noSleepExecutor(executor.WithRetryObserver(func(provider string) {
		metrics.RecordRetry(context.Background(), provider)
	}))
	gw := New([]providers.Provider{mock}, ledger.New(repo), WithMetrics(metrics), WithExecutor(exec))
	defer gw.Close()

	params := testParams()

	result := gw.Generate(context.Background(), params)
	require.True(t, result.Success, result.Message)

	// miss, one retry, one successful generation, token counters
	assert.Equal(t, int64(1), counterSum(t, reader, "generation_cache_misses_total"))
	assert.Equal(t, int64(0), counterSum(t, reader, "generation_cache_hits_total"))
	assert.Equal(t, int64(1), counterSum(t, reader, "generation_retries_total"))
	assert.Equal(t, int64(1), counterSum(t, reader, "generations_total"))
	assert.Equal(t, int64(150), counterSum(t, reader, "generation_tokens_total"))

	// cached repeat counts a hit and nothing else
	result = gw.Generate(context.Background(), params)
	require.True(t, result.Success)
	assert.Equal(t, int64(1), counterSum(t, reader, "generation_cache_hits_total"))
	assert.Equal(t, int64(1), counterSum(t, reader, "generation_cache_misses_total"))
	assert.Equal(t, int64(1), counterSum(t, reader, "generations_total"))
}

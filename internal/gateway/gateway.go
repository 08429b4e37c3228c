// SPDX-FileCopyrightText: 2025 Mads R. Havmand <mads@v42.dk>
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package gateway composes the response cache, retry executor, provider
// adapters and usage ledger into the single generate pipeline.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/AppDist/braingw"
	"github.com/AppDist/braingw/internal/cache"
	"github.com/AppDist/braingw/internal/executor"
	"github.com/AppDist/braingw/internal/ledger"
	"github.com/AppDist/braingw/internal/monitoring"
	"github.com/AppDist/braingw/internal/providers"
)

// DefaultCacheTTL bounds the lifetime of cached generation results
const DefaultCacheTTL = time.Hour

// cachedResult is what the response cache holds for one generation
type cachedResult struct {
	Object json.RawMessage
	Usage  braingw.TokenUsage
}

// GenerateParams carries one generation request plus its billing attribution
type GenerateParams struct {
	Request braingw.GenerationRequest

	// Provider selects the adapter; empty means the gateway default
	Provider string

	// Attribution for the usage ledger. Nil TenantID means a non-tenant actor.
	TenantID *string
	UserID   *string
	ModuleID *string

	// Action must match the module:domain:verb grammar
	Action string

	// Units is the normalized billing cost of this generation
	Units int

	// TTL overrides the gateway's default cache TTL when positive
	TTL time.Duration

	Metadata map[string]string
}

// Gateway turns a structured-generation request into a validated, billed and
// cached result
type Gateway struct {
	providers       map[string]providers.Provider
	defaultProvider string
	cache           *cache.Cache[cache.Key, cachedResult]
	exec            *executor.Executor
	ledger          *ledger.Ledger
	metrics         *monitoring.GatewayMetrics
	logger          *slog.Logger
	defaultTTL      time.Duration
}

// Option configures Gateway behavior
type Option func(*Gateway)

// WithLogger sets the logger for the gateway
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithExecutor replaces the default retry executor
func WithExecutor(exec *executor.Executor) Option {
	return func(g *Gateway) {
		g.exec = exec
	}
}

// WithMetrics wires gateway metrics
func WithMetrics(metrics *monitoring.GatewayMetrics) Option {
	return func(g *Gateway) {
		g.metrics = metrics
	}
}

// WithDefaultCacheTTL sets the TTL applied when a call supplies none
func WithDefaultCacheTTL(ttl time.Duration) Option {
	return func(g *Gateway) {
		g.defaultTTL = ttl
	}
}

// WithDefaultProvider sets the adapter used when a call names none
func WithDefaultProvider(name string) Option {
	return func(g *Gateway) {
		g.defaultProvider = name
	}
}

// New creates a Gateway over the given adapters and ledger. The first
// registered provider becomes the default unless WithDefaultProvider is used.
func New(provs []providers.Provider, usageLedger *ledger.Ledger, options ...Option) *Gateway {
	g := &Gateway{
		providers:  make(map[string]providers.Provider, len(provs)),
		ledger:     usageLedger,
		logger:     slog.Default(),
		defaultTTL: DefaultCacheTTL,
	}
	for _, p := range provs {
		if g.defaultProvider == "" {
			g.defaultProvider = p.Name()
		}
		g.providers[p.Name()] = p
	}
	for _, opt := range options {
		opt(g)
	}
	if g.exec == nil {
		execOptions := []executor.Option{executor.WithLogger(g.logger)}
		if g.metrics != nil {
			metrics := g.metrics
			execOptions = append(execOptions, executor.WithRetryObserver(func(provider string) {
				metrics.RecordRetry(context.Background(), provider)
			}))
		}
		g.exec = executor.New(execOptions...)
	}
	g.cache = cache.New[cache.Key, cachedResult](g.defaultTTL)
	return g
}

// Close releases the gateway's background resources
func (g *Gateway) Close() {
	g.cache.Close()
}

// SweepCache evicts expired cache entries and returns how many were removed
func (g *Gateway) SweepCache() int {
	return g.cache.SweepExpired()
}

// Generate runs one structured generation: cache lookup, then on miss a
// provider call under the retry policy, then cache store and ledger record.
// Cache hits are not re-billed. Every failure returns the same shape with an
// error kind and an already-safe message.
func (g *Gateway) Generate(ctx context.Context, params GenerateParams) braingw.GenerationResult {
	if err := braingw.ValidateAction(params.Action); err != nil {
		return braingw.FailureResult(braingw.ErrorKindValidation, err.Error())
	}

	providerName := params.Provider
	if providerName == "" {
		providerName = g.defaultProvider
	}
	provider, ok := g.providers[providerName]
	if !ok {
		return braingw.FailureResult(braingw.ErrorKindValidation,
			fmt.Sprintf("unknown provider %q", providerName))
	}

	key := cache.NewKey(params.TenantID, &params.Request)
	if cached, hit := g.cache.Lookup(key); hit {
		g.logger.Debug("Cache hit", "taskType", params.Request.TaskType, "provider", providerName)
		if g.metrics != nil {
			g.metrics.RecordCacheHit(ctx, params.Request.TaskType)
		}
		return braingw.SuccessResult(cached.Object, cached.Usage)
	}
	if g.metrics != nil {
		g.metrics.RecordCacheMiss(ctx, params.Request.TaskType)
	}

	start := time.Now()
	resp, err := g.exec.Do(ctx, provider, &params.Request)
	duration := time.Since(start)
	if g.metrics != nil {
		g.metrics.RecordGenerationDuration(ctx, providerName, duration)
	}

	if err != nil {
		class := executor.Classify(err)
		message := executor.Sanitize(g.logger, class.Kind, err)
		if g.metrics != nil {
			g.metrics.RecordGeneration(ctx, providerName, params.Request.TaskType, "failure")
		}
		return braingw.FailureResult(class.Kind, message)
	}

	g.cache.Store(key, cachedResult{Object: resp.Object, Usage: resp.Usage}, params.TTL)

	g.recordUsage(ctx, params, providerName, resp.Usage, duration)

	if g.metrics != nil {
		g.metrics.RecordGeneration(ctx, providerName, params.Request.TaskType, "success")
		g.metrics.RecordTokens(ctx, providerName, "input", int64(resp.Usage.PromptTokens))
		g.metrics.RecordTokens(ctx, providerName, "output", int64(resp.Usage.CompletionTokens))
	}

	return braingw.SuccessResult(resp.Object, resp.Usage)
}

// recordUsage appends the billing event. Persistence failures are logged and
// swallowed: losing a billing record is preferable to losing the result.
func (g *Gateway) recordUsage(ctx context.Context, params GenerateParams, providerName string, usage braingw.TokenUsage, duration time.Duration) {
	durationMs := int(duration.Milliseconds())
	metadata := make(map[string]string, len(params.Metadata)+2)
	for k, v := range params.Metadata {
		metadata[k] = v
	}
	metadata["provider"] = providerName
	metadata["taskType"] = params.Request.TaskType

	event := &braingw.UsageEvent{
		Action:       params.Action,
		TenantID:     params.TenantID,
		UserID:       params.UserID,
		ModuleID:     params.ModuleID,
		TokensInput:  usage.PromptTokens,
		TokensOutput: usage.CompletionTokens,
		TokensTotal:  usage.TotalTokens,
		Units:        params.Units,
		DurationMs:   &durationMs,
		Metadata:     metadata,
	}
	if _, err := g.ledger.Record(ctx, event); err != nil {
		g.logger.Error("Failed to record usage event, continuing",
			"action", params.Action,
			"provider", providerName,
			"error", err)
		if g.metrics != nil {
			g.metrics.RecordLedgerWriteError(ctx)
		}
	}
}

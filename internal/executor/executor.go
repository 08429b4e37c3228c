// SPDX-FileCopyrightText: 2025 Mads R. Havmand <mads@v42.dk>
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package executor wraps a single provider call with bounded retries,
// exponential backoff and a per-attempt wall-clock timeout.
package executor

import (
	"context"
	"log/slog"
	"time"

	"github.com/AppDist/braingw"
	"github.com/AppDist/braingw/internal/providers"
)

const (
	defaultMaxAttempts    = 3
	defaultInitialDelay   = time.Second
	defaultDelayCeiling   = 10 * time.Second
	defaultAttemptTimeout = 60 * time.Second
)

// Executor drives attempts against a provider until terminal success or
// failure. Retryable failures back off with min(initial*2^attempt, ceiling);
// non-retryable failures surface immediately.
type Executor struct {
	logger         *slog.Logger
	maxAttempts    int
	initialDelay   time.Duration
	delayCeiling   time.Duration
	attemptTimeout time.Duration
	jitter         func(time.Duration) time.Duration
	sleep          func(context.Context, time.Duration) error
	onRetry        func(provider string)
}

// Option configures Executor behavior
type Option func(*Executor)

// WithLogger sets the logger for the executor
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// WithMaxAttempts sets the total number of attempts before terminal failure
func WithMaxAttempts(n int) Option {
	return func(e *Executor) {
		e.maxAttempts = n
	}
}

// WithInitialDelay sets the backoff delay before the second attempt
func WithInitialDelay(d time.Duration) Option {
	return func(e *Executor) {
		e.initialDelay = d
	}
}

// WithDelayCeiling caps the exponential backoff delay
func WithDelayCeiling(d time.Duration) Option {
	return func(e *Executor) {
		e.delayCeiling = d
	}
}

// WithAttemptTimeout sets the wall-clock bound on each individual attempt
func WithAttemptTimeout(d time.Duration) Option {
	return func(e *Executor) {
		e.attemptTimeout = d
	}
}

// WithJitter sets a function applied to each computed backoff delay
func WithJitter(f func(time.Duration) time.Duration) Option {
	return func(e *Executor) {
		e.jitter = f
	}
}

// WithSleep replaces the backoff wait, used by tests for determinism
func WithSleep(f func(context.Context, time.Duration) error) Option {
	return func(e *Executor) {
		e.sleep = f
	}
}

// WithRetryObserver sets a callback invoked each time an attempt is retried
func WithRetryObserver(f func(provider string)) Option {
	return func(e *Executor) {
		e.onRetry = f
	}
}

// New creates an Executor with the default retry policy
func New(options ...Option) *Executor {
	e := &Executor{
		logger:         slog.Default(),
		maxAttempts:    defaultMaxAttempts,
		initialDelay:   defaultInitialDelay,
		delayCeiling:   defaultDelayCeiling,
		attemptTimeout: defaultAttemptTimeout,
		sleep:          sleepWithContext,
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

// Do runs the request against the provider under the retry policy. The
// request's own Timeout, when set, overrides the executor's per-attempt
// timeout. The returned error is the raw error of the last attempt; callers
// classify and sanitize it before it crosses the component boundary.
func (e *Executor) Do(ctx context.Context, provider providers.Provider, req *braingw.GenerationRequest) (*providers.Response, error) {
	timeout := e.attemptTimeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}

	var lastErr error
	for attempt := 0; attempt < e.maxAttempts; attempt++ {
		resp, err := e.attempt(ctx, provider, req, timeout)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		class := Classify(err)
		if !class.Retryable || attempt == e.maxAttempts-1 {
			e.logger.Warn("Generation attempt failed terminally",
				"provider", provider.Name(),
				"attempt", attempt+1,
				"kind", class.Kind,
				"retryable", class.Retryable)
			return nil, err
		}

		if e.onRetry != nil {
			e.onRetry(provider.Name())
		}
		delay := e.backoffDelay(attempt)
		e.logger.Debug("Generation attempt failed, backing off",
			"provider", provider.Name(),
			"attempt", attempt+1,
			"kind", class.Kind,
			"delay", delay)
		if err := e.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func (e *Executor) attempt(ctx context.Context, provider providers.Provider, req *braingw.GenerationRequest, timeout time.Duration) (*providers.Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	resp, err := provider.Generate(attemptCtx, req)
	if err != nil && attemptCtx.Err() == context.DeadlineExceeded {
		// surface cancelled attempts as timeouts, not whatever the SDK
		// wrapped the context error into
		return nil, context.DeadlineExceeded
	}
	return resp, err
}

func (e *Executor) backoffDelay(attempt int) time.Duration {
	delay := e.initialDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= e.delayCeiling {
			delay = e.delayCeiling
			break
		}
	}
	if delay > e.delayCeiling {
		delay = e.delayCeiling
	}
	if e.jitter != nil {
		delay = e.jitter(delay)
	}
	return delay
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

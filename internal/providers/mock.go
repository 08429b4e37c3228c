// SPDX-FileCopyrightText: 2025 Mads R. Havmand <mads@v42.dk>
//
// SPDX-License-Identifier: AGPL-3.0-only

package providers

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/AppDist/braingw"
)

// MockProvider returns canned responses or errors for tests. A non-empty
// Errs queue is consumed first; once drained, Object/Usage are returned.
type MockProvider struct {
	mu     sync.Mutex
	Object json.RawMessage
	Usage  braingw.TokenUsage
	Errs   []error
	calls  int
}

// NewMockProvider creates a mock provider returning the given object
func NewMockProvider(object json.RawMessage, usage braingw.TokenUsage) *MockProvider {
	return &MockProvider{Object: object, Usage: usage}
}

// Name returns the adapter identifier
func (p *MockProvider) Name() string {
	return "mock"
}

// Calls reports how many times Generate has been invoked
func (p *MockProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// Generate returns the next queued error, or the canned response
func (p *MockProvider) Generate(_ context.Context, _ *braingw.GenerationRequest) (*Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if len(p.Errs) > 0 {
		err := p.Errs[0]
		p.Errs = p.Errs[1:]
		return nil, err
	}
	return &Response{Object: p.Object, Usage: p.Usage}, nil
}

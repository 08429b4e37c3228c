// SPDX-FileCopyrightText: 2025 Mads R. Havmand <mads@v42.dk>
//
// SPDX-License-Identifier: AGPL-3.0-only

package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/AppDist/braingw"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	anthropicEnvKey       = "ANTHROPIC_API_KEY"
	anthropicDefaultModel = "claude-sonnet-4-20250514"
)

// AnthropicProvider implements the Provider interface for Claude models
type AnthropicProvider struct {
	logger *slog.Logger
	model  string
	client func() (anthropic.Client, error)
}

// AnthropicOption configures an AnthropicProvider
type AnthropicOption func(*AnthropicProvider)

// WithAnthropicLogger sets the logger for the provider
func WithAnthropicLogger(logger *slog.Logger) AnthropicOption {
	return func(p *AnthropicProvider) {
		p.logger = logger
	}
}

// WithAnthropicModel sets the default model for the provider
func WithAnthropicModel(model string) AnthropicOption {
	return func(p *AnthropicProvider) {
		p.model = model
	}
}

// NewAnthropicProvider creates an Anthropic adapter. The network client is
// constructed lazily on first use from ANTHROPIC_API_KEY.
func NewAnthropicProvider(options ...AnthropicOption) *AnthropicProvider {
	p := &AnthropicProvider{
		logger: slog.Default(),
		model:  anthropicDefaultModel,
	}
	for _, opt := range options {
		opt(p)
	}
	p.client = sync.OnceValues(func() (anthropic.Client, error) {
		key := os.Getenv(anthropicEnvKey)
		if key == "" {
			return anthropic.Client{}, fmt.Errorf("%w: %s is not set", braingw.ErrMissingCredential, anthropicEnvKey)
		}
		return anthropic.NewClient(option.WithAPIKey(key)), nil
	})
	return p
}

// Name returns the adapter identifier
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// Generate performs one structured-generation call against Claude
func (p *AnthropicProvider) Generate(ctx context.Context, req *braingw.GenerationRequest) (*Response, error) {
	client, err := p.client()
	if err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = p.model
	}
	maxTokens := req.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	system := req.SystemPrompt + "\n\n" + schemaInstruction(req.Schema)
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.UserPrompt)),
		},
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}

	p.logger.Debug("Calling Anthropic", "model", model, "taskType", req.TaskType)
	resp, err := client.Messages.New(ctx, params)
	if err != nil {
		return nil, p.wrapError(err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return nil, &ProviderError{Provider: p.Name(), Err: errors.New("response contained no text content")}
	}

	object, err := parseObject(p.Name(), text)
	if err != nil {
		return nil, err
	}
	if err := validateObject(p.Name(), req.Schema, object); err != nil {
		return nil, err
	}

	return &Response{
		Object: object,
		Usage: ExtractUsage(RawUsage{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
		}),
	}, nil
}

func (p *AnthropicProvider) wrapError(err error) error {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		return &ProviderError{Provider: p.Name(), Status: apierr.StatusCode, Err: err}
	}
	return &ProviderError{Provider: p.Name(), Err: err}
}

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
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	openaiEnvKey       = "OPENAI_API_KEY"
	openaiDefaultModel = "gpt-4o-mini"
)

// OpenAIProvider implements the Provider interface for OpenAI models
type OpenAIProvider struct {
	logger *slog.Logger
	model  string
	client func() (openai.Client, error)
}

// OpenAIOption configures an OpenAIProvider
type OpenAIOption func(*OpenAIProvider)

// WithOpenAILogger sets the logger for the provider
func WithOpenAILogger(logger *slog.Logger) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.logger = logger
	}
}

// WithOpenAIModel sets the default model for the provider
func WithOpenAIModel(model string) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.model = model
	}
}

// NewOpenAIProvider creates an OpenAI adapter. The network client is
// constructed lazily on first use from OPENAI_API_KEY.
func NewOpenAIProvider(options ...OpenAIOption) *OpenAIProvider {
	p := &OpenAIProvider{
		logger: slog.Default(),
		model:  openaiDefaultModel,
	}
	for _, opt := range options {
		opt(p)
	}
	p.client = sync.OnceValues(func() (openai.Client, error) {
		key := os.Getenv(openaiEnvKey)
		if key == "" {
			return openai.Client{}, fmt.Errorf("%w: %s is not set", braingw.ErrMissingCredential, openaiEnvKey)
		}
		return openai.NewClient(option.WithAPIKey(key)), nil
	})
	return p
}

// Name returns the adapter identifier
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Generate performs one structured-generation call against OpenAI
func (p *OpenAIProvider) Generate(ctx context.Context, req *braingw.GenerationRequest) (*Response, error) {
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
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(req.UserPrompt),
		},
		MaxCompletionTokens: openai.Int(maxTokens),
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	p.logger.Debug("Calling OpenAI", "model", model, "taskType", req.TaskType)
	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, p.wrapError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &ProviderError{Provider: p.Name(), Err: errors.New("response contained no choices")}
	}

	object, err := parseObject(p.Name(), resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	if err := validateObject(p.Name(), req.Schema, object); err != nil {
		return nil, err
	}

	return &Response{
		Object: object,
		Usage: ExtractUsage(RawUsage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		}),
	}, nil
}

func (p *OpenAIProvider) wrapError(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		return &ProviderError{Provider: p.Name(), Status: apierr.StatusCode, Err: err}
	}
	return &ProviderError{Provider: p.Name(), Err: err}
}

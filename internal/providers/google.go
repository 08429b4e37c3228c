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
	"google.golang.org/genai"
)

const (
	googleEnvKey       = "GEMINI_API_KEY"
	googleDefaultModel = "gemini-2.5-flash"
)

// GoogleProvider implements the Provider interface for Gemini models
type GoogleProvider struct {
	logger *slog.Logger
	model  string
	client func() (*genai.Client, error)
}

// GoogleOption configures a GoogleProvider
type GoogleOption func(*GoogleProvider)

// WithGoogleLogger sets the logger for the provider
func WithGoogleLogger(logger *slog.Logger) GoogleOption {
	return func(p *GoogleProvider) {
		p.logger = logger
	}
}

// WithGoogleModel sets the default model for the provider
func WithGoogleModel(model string) GoogleOption {
	return func(p *GoogleProvider) {
		p.model = model
	}
}

// NewGoogleProvider creates a Gemini adapter. The network client is
// constructed lazily on first use from GEMINI_API_KEY.
func NewGoogleProvider(options ...GoogleOption) *GoogleProvider {
	p := &GoogleProvider{
		logger: slog.Default(),
		model:  googleDefaultModel,
	}
	for _, opt := range options {
		opt(p)
	}
	p.client = sync.OnceValues(func() (*genai.Client, error) {
		key := os.Getenv(googleEnvKey)
		if key == "" {
			return nil, fmt.Errorf("%w: %s is not set", braingw.ErrMissingCredential, googleEnvKey)
		}
		client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
			APIKey:  key,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create google client: %w", err)
		}
		return client, nil
	})
	return p
}

// Name returns the adapter identifier
func (p *GoogleProvider) Name() string {
	return "google"
}

// Generate performs one structured-generation call against Gemini
func (p *GoogleProvider) Generate(ctx context.Context, req *braingw.GenerationRequest) (*Response, error) {
	client, err := p.client()
	if err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = p.model
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{
				{Text: req.SystemPrompt + "\n\n" + schemaInstruction(req.Schema)},
			},
		},
	}
	if req.MaxOutputTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxOutputTokens)
	}
	if req.Temperature > 0 {
		config.Temperature = genai.Ptr(float32(req.Temperature))
	}

	p.logger.Debug("Calling Gemini", "model", model, "taskType", req.TaskType)
	resp, err := client.Models.GenerateContent(ctx, model, genai.Text(req.UserPrompt), config)
	if err != nil {
		return nil, p.wrapError(err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, &ProviderError{Provider: p.Name(), Err: errors.New("response contained no candidates")}
	}

	var text string
	if resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			text += part.Text
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

	response := &Response{Object: object}
	if resp.UsageMetadata != nil {
		response.Usage = ExtractUsage(RawUsage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:  int(resp.UsageMetadata.TotalTokenCount),
		})
	}
	return response, nil
}

func (p *GoogleProvider) wrapError(err error) error {
	var apierr genai.APIError
	if errors.As(err, &apierr) {
		return &ProviderError{Provider: p.Name(), Status: apierr.Code, Err: err}
	}
	return &ProviderError{Provider: p.Name(), Err: err}
}

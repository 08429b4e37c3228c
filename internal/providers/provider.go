// SPDX-FileCopyrightText: 2025 Mads R. Havmand <mads@v42.dk>
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package providers implements the uniform structured-generation contract
// over the individual vendor SDKs. Adapters are single-shot: retries and
// timeouts are applied one level up by the executor.
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/AppDist/braingw"
)

// Response is a raw provider result: the generated object plus token usage
type Response struct {
	Object json.RawMessage
	Usage  braingw.TokenUsage
}

// Provider is the capability every adapter implements: accept a prompt plus
// schema description and return either a structurally-valid object with token
// counts, or a raw error.
type Provider interface {
	// Name returns the adapter's identifier
	Name() string

	// Generate performs exactly one generation call against the provider
	Generate(ctx context.Context, req *braingw.GenerationRequest) (*Response, error)
}

// ProviderError wraps provider errors with HTTP status metadata so the
// classifier can decide retryability without knowing the vendor SDK.
type ProviderError struct {
	Provider string
	Status   int
	Err      error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider error"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s: provider error (status=%d)", e.Provider, e.Status)
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// RawUsage holds token counts as reported by a vendor SDK. The two naming
// generations (inputTokens/outputTokens vs promptTokens/completionTokens)
// are both accepted; the former wins when both are present.
type RawUsage struct {
	InputTokens      int
	OutputTokens     int
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// ExtractUsage normalizes raw SDK token counts into a TokenUsage, deriving
// the total when the provider did not supply one.
func ExtractUsage(raw RawUsage) braingw.TokenUsage {
	usage := braingw.TokenUsage{
		PromptTokens:     raw.InputTokens,
		CompletionTokens: raw.OutputTokens,
		TotalTokens:      raw.TotalTokens,
	}
	if usage.PromptTokens == 0 {
		usage.PromptTokens = raw.PromptTokens
	}
	if usage.CompletionTokens == 0 {
		usage.CompletionTokens = raw.CompletionTokens
	}
	if usage.TotalTokens == 0 {
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}
	return usage
}

// schemaInstruction renders the schema guidance appended to the system prompt
func schemaInstruction(schema braingw.Schema) string {
	var b strings.Builder
	b.WriteString("Respond with a single JSON object and nothing else.")
	if schema.Name != "" {
		fmt.Fprintf(&b, " The object is a %q.", schema.Name)
	}
	if len(schema.Definition) > 0 {
		fmt.Fprintf(&b, " It must conform to this JSON Schema:\n%s", schema.Definition)
	}
	return b.String()
}

// parseObject extracts the JSON object from a provider's text response,
// tolerating markdown code fences around the payload.
func parseObject(provider, text string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
		trimmed = strings.TrimSpace(trimmed)
	}
	var object map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &object); err != nil {
		return nil, &ProviderError{
			Provider: provider,
			Err:      fmt.Errorf("response is not a JSON object: %w", err),
		}
	}
	return json.RawMessage(trimmed), nil
}

// validateObject checks the generated object against the schema's top-level
// required properties. Full JSON Schema validation is the provider's job; this
// guards against responses that ignore the guidance entirely.
func validateObject(provider string, schema braingw.Schema, object json.RawMessage) error {
	if len(schema.Definition) == 0 {
		return nil
	}
	var def struct {
		Required []string `json:"required"`
	}
	if err := json.Unmarshal(schema.Definition, &def); err != nil || len(def.Required) == 0 {
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(object, &fields); err != nil {
		return &ProviderError{Provider: provider, Err: fmt.Errorf("response is not a JSON object: %w", err)}
	}
	for _, name := range def.Required {
		if _, ok := fields[name]; !ok {
			return &ProviderError{
				Provider: provider,
				Err:      fmt.Errorf("response is missing required property %q", name),
			}
		}
	}
	return nil
}

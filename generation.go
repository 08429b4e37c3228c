// SPDX-FileCopyrightText: 2025 Mads R. Havmand <mads@v42.dk>
//
// SPDX-License-Identifier: AGPL-3.0-only

package braingw

import (
	"encoding/json"
	"fmt"
	"time"
)

// ErrorKind classifies a generation failure into the user-facing taxonomy
type ErrorKind string

const (
	ErrorKindConfiguration ErrorKind = "configuration"
	ErrorKindRateLimited   ErrorKind = "rate_limited"
	ErrorKindTimeout       ErrorKind = "timeout"
	ErrorKindUnavailable   ErrorKind = "unavailable"
	ErrorKindNetwork       ErrorKind = "network"
	ErrorKindContentPolicy ErrorKind = "content_policy"
	ErrorKindValidation    ErrorKind = "validation"
	ErrorKindUnknown       ErrorKind = "unknown"
)

// TokenUsage carries token counts reported by a provider for one generation
type TokenUsage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// Schema describes the structure the generated object must conform to.
// Definition holds a JSON Schema document that is forwarded to the provider
// as guidance and used to validate the returned object.
type Schema struct {
	Name       string          `json:"name"`
	Definition json.RawMessage `json:"definition"`
}

// GenerationRequest is an immutable description of one structured-generation call
type GenerationRequest struct {
	TaskType        string        `json:"taskType"`
	SystemPrompt    string        `json:"systemPrompt"`
	UserPrompt      string        `json:"userPrompt"`
	Schema          Schema        `json:"schema"`
	Model           string        `json:"model,omitempty"`
	MaxOutputTokens int64         `json:"maxOutputTokens,omitempty"`
	Temperature     float64       `json:"temperature,omitempty"`
	Timeout         time.Duration `json:"timeout,omitempty"`
}

// GenerationResult is the outcome of one generation. Success carries the
// generated object plus token usage; failure carries only the error kind and
// an already-sanitized message. Never both.
type GenerationResult struct {
	Success   bool            `json:"success"`
	Object    json.RawMessage `json:"object,omitempty"`
	Usage     TokenUsage      `json:"usage,omitempty"`
	ErrorKind ErrorKind       `json:"errorKind,omitempty"`
	Message   string          `json:"message,omitempty"`
}

// SuccessResult builds a successful GenerationResult
func SuccessResult(object json.RawMessage, usage TokenUsage) GenerationResult {
	return GenerationResult{Success: true, Object: object, Usage: usage}
}

// FailureResult builds a failed GenerationResult
func FailureResult(kind ErrorKind, message string) GenerationResult {
	return GenerationResult{Success: false, ErrorKind: kind, Message: message}
}

// DecodeObject unmarshals a successful result's object into T
func DecodeObject[T any](result GenerationResult) (T, error) {
	var out T
	if !result.Success {
		return out, fmt.Errorf("cannot decode object of failed generation (%s)", result.ErrorKind)
	}
	if err := json.Unmarshal(result.Object, &out); err != nil {
		return out, fmt.Errorf("failed to decode generated object: %w", err)
	}
	return out, nil
}

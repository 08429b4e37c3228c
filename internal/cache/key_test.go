// SPDX-FileCopyrightText: 2025 Mads R. Havmand <mads@v42.dk>
//
// SPDX-License-Identifier: AGPL-3.0-only

//go:build !integration && !acceptance

package cache

import (
	"encoding/json"
	"testing"

	"github.com/AppDist/braingw"
	"github.com/stretchr/testify/assert"
)

func baseRequest() braingw.GenerationRequest {
	return braingw.GenerationRequest{
		TaskType:     "agency.scope",
		SystemPrompt: "You are a scoping assistant.",
		UserPrompt:   "Summarize project 42.",
		Schema: braingw.Schema{
			Name:       "scope",
			Definition: json.RawMessage(`{"type":"object","required":["summary"]}`),
		},
	}
}

func TestNewKey_Deterministic(t *testing.T) {
	tenant := "tenant-1"
	req1 := baseRequest()
	req2 := baseRequest()

	assert.Equal(t, NewKey(&tenant, &req1), NewKey(&tenant, &req2))
}

func TestNewKey_Dimensions(t *testing.T) {
	tenant := "tenant-1"
	base := baseRequest()
	baseKey := NewKey(&tenant, &base)

	t.Run("tenant is an explicit dimension", func(t *testing.T) {
		other := "tenant-2"
		req := baseRequest()
		assert.NotEqual(t, baseKey, NewKey(&other, &req))

		req2 := baseRequest()
		assert.NotEqual(t, baseKey, NewKey(nil, &req2))
	})

	t.Run("prompt changes the key", func(t *testing.T) {
		req := baseRequest()
		req.UserPrompt = "Summarize project 43."
		assert.NotEqual(t, baseKey, NewKey(&tenant, &req))
	})

	t.Run("schema changes the key", func(t *testing.T) {
		req := baseRequest()
		req.Schema.Definition = json.RawMessage(`{"type":"object","required":["summary","tasks"]}`)
		assert.NotEqual(t, baseKey, NewKey(&tenant, &req))
	})

	t.Run("task type changes the key", func(t *testing.T) {
		req := baseRequest()
		req.TaskType = "agency.estimate"
		assert.NotEqual(t, baseKey, NewKey(&tenant, &req))
	})

	t.Run("task type boundary cannot be shifted into the tenant", func(t *testing.T) {
		req := baseRequest()
		req.TaskType = "a"
		colonTenant := "b:c"

		shifted := baseRequest()
		shifted.TaskType = "a:b"
		otherTenant := "c"
		assert.NotEqual(t, NewKey(&colonTenant, &req), NewKey(&otherTenant, &shifted))
	})

	t.Run("prompt boundary cannot be shifted", func(t *testing.T) {
		req := baseRequest()
		req.SystemPrompt = base.SystemPrompt + "X"
		req.UserPrompt = base.UserPrompt

		shifted := baseRequest()
		shifted.UserPrompt = "X" + base.UserPrompt
		assert.NotEqual(t, NewKey(&tenant, &req), NewKey(&tenant, &shifted))
	})
}

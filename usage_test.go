// SPDX-FileCopyrightText: 2025 Mads R. Havmand <mads@v42.dk>
//
// SPDX-License-Identifier: AGPL-3.0-only

package braingw

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAction(t *testing.T) {
	t.Run("valid actions", func(t *testing.T) {
		for _, action := range []string{
			"agency:scope:generate",
			"billing:invoice:draft",
			"crm:lead_notes:summarize",
			"web:page-copy:rewrite",
		} {
			assert.NoError(t, ValidateAction(action), action)
		}
	})

	t.Run("invalid actions", func(t *testing.T) {
		for _, action := range []string{
			"",
			"invalidformat",
			"two:segments",
			"four:seg:men:ts",
			"agency::generate",
			"Agency:Scope:Generate",
			"agency:scope:generate ",
		} {
			err := ValidateAction(action)
			assert.ErrorIs(t, err, ErrInvalidAction, action)
		}
	})
}

func TestDecodeObject(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		result := SuccessResult(json.RawMessage(`{"summary":"x"}`), TokenUsage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150})

		type scope struct {
			Summary string `json:"summary"`
		}
		decoded, err := DecodeObject[scope](result)
		require.NoError(t, err)
		assert.Equal(t, "x", decoded.Summary)
	})

	t.Run("failed result", func(t *testing.T) {
		result := FailureResult(ErrorKindTimeout, "The request took too long, please try again")
		_, err := DecodeObject[map[string]string](result)
		assert.Error(t, err)
	})
}

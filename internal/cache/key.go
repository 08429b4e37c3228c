// SPDX-FileCopyrightText: 2025 Mads R. Havmand <mads@v42.dk>
//
// SPDX-License-Identifier: AGPL-3.0-only

package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/AppDist/braingw"
)

// Key is a deterministic, content-addressed identifier for a generation:
// task:tenant:<prompt hash>:<schema hash>. Two requests with identical task,
// tenant, prompts and schema produce the same key regardless of process
// instance. Tenant scope is an explicit dimension so cached results can never
// cross tenant boundaries, and credentials are never part of the key.
type Key string

// NewKey derives the cache key for a request on behalf of a tenant. A nil
// tenantID means a non-tenant (personal) actor. The task type is
// length-prefixed so a ":" inside either plain segment cannot shift the
// boundary between them.
func NewKey(tenantID *string, req *braingw.GenerationRequest) Key {
	tenant := "personal"
	if tenantID != nil {
		tenant = *tenantID
	}
	promptHash := hashParts(req.SystemPrompt, req.UserPrompt)
	schemaHash := hashParts(req.Schema.Name, string(req.Schema.Definition))
	return Key(fmt.Sprintf("%d:%s:%s:%s:%s", len(req.TaskType), req.TaskType, tenant, promptHash, schemaHash))
}

// hashParts hashes the parts with a separator so ("ab","c") and ("a","bc")
// cannot collide.
func hashParts(parts ...string) string {
	h := sha256.New()
	for _, part := range parts {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

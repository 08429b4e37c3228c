// SPDX-FileCopyrightText: 2025 Mads R. Havmand <mads@v42.dk>
//
// SPDX-License-Identifier: AGPL-3.0-only

package braingw

import "errors"

var (
	// ErrNotFound should be returned when a requested resource cannot be found
	ErrNotFound = errors.New("not found")

	// ErrDuplicateEntry should be returned when a resource would violate unique constraints
	ErrDuplicateEntry = errors.New("duplicate entry")

	// ErrMissingCredential should be returned when a provider credential is absent from the environment
	ErrMissingCredential = errors.New("missing provider credential")

	// ErrInvalidAction should be returned when an action string does not match the module:domain:verb grammar
	ErrInvalidAction = errors.New("invalid action")

	// ErrInvalidEvent should be returned when a usage event fails shape validation
	ErrInvalidEvent = errors.New("invalid usage event")
)

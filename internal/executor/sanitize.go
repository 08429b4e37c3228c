// SPDX-FileCopyrightText: 2025 Mads R. Havmand <mads@v42.dk>
//
// SPDX-License-Identifier: AGPL-3.0-only

package executor

import (
	"log/slog"

	"github.com/AppDist/braingw"
)

// sanitizedMessages are the only strings that cross the component boundary
// for provider-originated failures. The raw message stays in the server log.
var sanitizedMessages = map[braingw.ErrorKind]string{
	braingw.ErrorKindConfiguration: "AI service temporarily unavailable",
	braingw.ErrorKindRateLimited:   "You've reached the usage limit, please wait and try again",
	braingw.ErrorKindTimeout:       "The request took too long, please try again",
	braingw.ErrorKindUnavailable:   "AI service temporarily unavailable, please try again",
	braingw.ErrorKindNetwork:       "Could not reach the AI service, please try again",
	braingw.ErrorKindContentPolicy: "The request was declined by the provider's content filter",
	braingw.ErrorKindUnknown:       "Something went wrong, please try again",
}

// Sanitize logs the raw error in full and returns the generic user-facing
// message for the kind. Validation errors describe the caller's own request
// shape and pass through verbatim.
func Sanitize(logger *slog.Logger, kind braingw.ErrorKind, err error) string {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Error("Generation failed", "kind", kind, "error", err)

	if kind == braingw.ErrorKindValidation {
		return err.Error()
	}
	if msg, ok := sanitizedMessages[kind]; ok {
		return msg
	}
	return sanitizedMessages[braingw.ErrorKindUnknown]
}

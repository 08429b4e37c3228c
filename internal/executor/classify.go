// SPDX-FileCopyrightText: 2025 Mads R. Havmand <mads@v42.dk>
//
// SPDX-License-Identifier: AGPL-3.0-only

package executor

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/AppDist/braingw"
	"github.com/AppDist/braingw/internal/providers"
)

// ErrorClass is the classifier's verdict on a raw provider error
type ErrorClass struct {
	Retryable bool
	Kind      braingw.ErrorKind
}

// retryableStatuses are provider HTTP statuses retried regardless of message
var retryableStatuses = map[int]braingw.ErrorKind{
	429: braingw.ErrorKindRateLimited,
	502: braingw.ErrorKindUnavailable,
	503: braingw.ErrorKindUnavailable,
	504: braingw.ErrorKindTimeout,
}

// Classify maps a raw provider error to retryability and an error kind.
// Precedence: HTTP status, then cancellation, then message substrings, then
// message heuristics for the non-retryable kinds.
func Classify(err error) ErrorClass {
	if err == nil {
		return ErrorClass{Retryable: false, Kind: braingw.ErrorKindUnknown}
	}

	var perr *providers.ProviderError
	if errors.As(err, &perr) {
		if kind, ok := retryableStatuses[perr.Status]; ok {
			return ErrorClass{Retryable: true, Kind: kind}
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorClass{Retryable: true, Kind: braingw.ErrorKindTimeout}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit"):
		return ErrorClass{Retryable: true, Kind: braingw.ErrorKindRateLimited}
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"), strings.Contains(msg, "aborted"):
		return ErrorClass{Retryable: true, Kind: braingw.ErrorKindTimeout}
	case strings.Contains(msg, "temporarily unavailable"):
		return ErrorClass{Retryable: true, Kind: braingw.ErrorKindUnavailable}
	}

	return ErrorClass{Retryable: false, Kind: nonRetryableKind(err, msg)}
}

func nonRetryableKind(err error, msg string) braingw.ErrorKind {
	if errors.Is(err, braingw.ErrMissingCredential) {
		return braingw.ErrorKindConfiguration
	}
	switch {
	case strings.Contains(msg, "api key"),
		strings.Contains(msg, "credential"),
		strings.Contains(msg, "unauthorized"),
		strings.Contains(msg, "authentication"):
		return braingw.ErrorKindConfiguration
	case strings.Contains(msg, "content policy"),
		strings.Contains(msg, "content filter"),
		strings.Contains(msg, "safety"),
		strings.Contains(msg, "blocked"):
		return braingw.ErrorKindContentPolicy
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return braingw.ErrorKindNetwork
	}
	switch {
	case strings.Contains(msg, "connection"),
		strings.Contains(msg, "network"),
		strings.Contains(msg, "no such host"):
		return braingw.ErrorKindNetwork
	}
	return braingw.ErrorKindUnknown
}

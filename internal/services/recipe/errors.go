package recipe

import (
	stderrors "errors"
	"strings"

	"github.com/socialchef/recipebox/internal/errors"
)

// Error classifications reported in logs and the fallback metric.
const (
	ErrorRateLimit       = "rate_limit"
	ErrorCreditExhausted = "credit_exhausted"
	ErrorServer          = "server_error"
	ErrorClient          = "client_error"
	ErrorAuth            = "auth"
	ErrorEmptyResponse   = "empty_response"
	ErrorDisabled        = "disabled"
	ErrorUnknown         = "unknown"
)

// ProviderError represents a classified error from an AI provider
type ProviderError struct {
	Type     string
	Message  string
	Provider string
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	return e.Message
}

// ClassifyError analyzes an error and returns a ProviderError with classification
func ClassifyError(err error, provider string) *ProviderError {
	if err == nil {
		return nil
	}

	msg := err.Error()
	classified := func(kind string) *ProviderError {
		return &ProviderError{Type: kind, Message: msg, Provider: provider}
	}

	switch {
	case stderrors.Is(err, ErrDisabled):
		return classified(ErrorDisabled)
	case stderrors.Is(err, ErrMissingCredential):
		return classified(ErrorAuth)
	case stderrors.Is(err, ErrEmptyResponse):
		return classified(ErrorEmptyResponse)
	}

	if containsAny(msg, "status 429", "HTTP 429", "rate limit", "too many requests") {
		return classified(ErrorRateLimit)
	}

	if containsAny(msg, "status 402", "HTTP 402", "insufficient credit", "credit exhausted", "billing") {
		return classified(ErrorCreditExhausted)
	}

	if containsAny(msg, "status 401", "HTTP 401", "status 403", "HTTP 403", "invalid api key", "unauthorized", "forbidden") {
		return classified(ErrorAuth)
	}

	// Check for AppError with status code
	if appErr, ok := errors.As(err); ok {
		if appErr.StatusCode >= 500 {
			return classified(ErrorServer)
		}
		if appErr.StatusCode >= 400 {
			return classified(ErrorClient)
		}
	}

	if containsAny(msg, "status 5", "HTTP 5", "server error", "internal error") {
		return classified(ErrorServer)
	}

	if containsAny(msg, "status 4", "HTTP 4", "bad request") {
		return classified(ErrorClient)
	}

	return classified(ErrorUnknown)
}

// containsAny checks case-insensitively whether s contains any of subs.
func containsAny(s string, subs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range subs {
		if strings.Contains(lower, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}

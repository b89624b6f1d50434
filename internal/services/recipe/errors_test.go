package recipe

import (
	"errors"
	"fmt"
	"testing"

	apperrors "github.com/socialchef/recipebox/internal/errors"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"disabled", ErrDisabled, ErrorDisabled},
		{"missing key", fmt.Errorf("groq: %w", ErrMissingCredential), ErrorAuth},
		{"empty reply", fmt.Errorf("openai: %w", ErrEmptyResponse), ErrorEmptyResponse},
		{"429", errors.New("groq API error (status 429): Rate limit reached for model"), ErrorRateLimit},
		{"too many requests", errors.New("Too Many Requests"), ErrorRateLimit},
		{"402", errors.New("cerebras API error (status 402): payment required"), ErrorCreditExhausted},
		{"quota wording", errors.New("insufficient credit on account"), ErrorCreditExhausted},
		{"401", errors.New("openai API error (status 401): Incorrect API key provided"), ErrorAuth},
		{"403", errors.New("groq API error (status 403): forbidden"), ErrorAuth},
		{"503", errors.New("groq API error (status 503): upstream overloaded"), ErrorServer},
		{"400", errors.New("openai API error (status 400): max_tokens too large"), ErrorClient},
		{"app error 5xx", apperrors.NewStorageError("write failed", "STORAGE_WRITE", nil), ErrorServer},
		{"app error 4xx", apperrors.NewValidationError("bad prompt", "BAD_PROMPT", ""), ErrorClient},
		{"decode failure", errors.New("groq: decode response: unexpected EOF"), ErrorUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyError(tt.err, "groq")
			if got.Type != tt.want {
				t.Errorf("ClassifyError(%q).Type = %s; want %s", tt.err, got.Type, tt.want)
			}
			if got.Provider != "groq" || got.Message != tt.err.Error() {
				t.Errorf("ClassifyError(%q) = %+v; provider and message not carried", tt.err, got)
			}
		})
	}
}

func TestClassifyError_Nil(t *testing.T) {
	if got := ClassifyError(nil, "groq"); got != nil {
		t.Errorf("ClassifyError(nil) = %+v; want nil", got)
	}
}

func TestProviderError_Error(t *testing.T) {
	err := &ProviderError{Type: ErrorServer, Message: "status 500", Provider: "cerebras"}
	if err.Error() != "status 500" {
		t.Errorf("Error() = %q", err.Error())
	}
}

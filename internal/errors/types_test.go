package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	err := &AppError{
		Message: "something went wrong",
	}
	if err.Error() != "something went wrong" {
		t.Errorf("expected 'something went wrong', got %v", err.Error())
	}

	wrappedErr := errors.New("dial tcp: timeout")
	errWithWrap := NewSourceUnreachableError("failed to scrape URL", "FETCH_FAILED", wrappedErr)
	expected := "failed to scrape URL: dial tcp: timeout"
	if errWithWrap.Error() != expected {
		t.Errorf("expected %q, got %q", expected, errWithWrap.Error())
	}
	if !errors.Is(errWithWrap, wrappedErr) {
		t.Errorf("expected Unwrap to expose the cause")
	}
}

func TestAppError_IsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want bool
	}{
		{
			name: "rate limit is retryable",
			err:  NewRateLimitError("slow down", "RATE", ""),
			want: true,
		},
		{
			name: "validation error is not retryable",
			err:  NewValidationError("bad url", "BAD_URL", ""),
			want: false,
		},
		{
			name: "unreachable source is not retryable",
			err:  NewSourceUnreachableError("gone", "FETCH_FAILED", nil),
			want: false,
		},
		{
			name: "no recipe is not retryable",
			err:  NewNoRecipeError("nothing here", "NO_RECIPE"),
			want: false,
		},
		{
			name: "storage 500 is retryable",
			err:  NewStorageError("put failed", "STORE_PUT", nil),
			want: true,
		},
		{
			name: "ai backend 502 is retryable",
			err:  NewAIBackendError("upstream", "AI_FAILED", nil),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.IsRetryable(); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConstructors_StatusCodes(t *testing.T) {
	tests := []struct {
		err        *AppError
		wantType   ErrorType
		wantStatus int
	}{
		{NewSourceUnreachableError("x", "C", nil), ErrorTypeSourceUnreachable, http.StatusBadGateway},
		{NewNoContentError("x", "C"), ErrorTypeNoContent, http.StatusUnprocessableEntity},
		{NewNoRecipeError("x", "C"), ErrorTypeNoRecipe, http.StatusUnprocessableEntity},
		{NewNotFoundError("x", "C", ""), ErrorTypeNotFound, http.StatusNotFound},
		{NewInternalError("x", nil), ErrorTypeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if tt.err.Type != tt.wantType {
			t.Errorf("type = %s, want %s", tt.err.Type, tt.wantType)
		}
		if tt.err.StatusCode != tt.wantStatus {
			t.Errorf("%s: status = %d, want %d", tt.wantType, tt.err.StatusCode, tt.wantStatus)
		}
	}
}

func TestAsAndIsType(t *testing.T) {
	wrapped := fmt.Errorf("pipeline: %w", NewNoRecipeError("none", "NO_RECIPE"))

	appErr, ok := As(wrapped)
	if !ok {
		t.Fatalf("As() did not find AppError in chain")
	}
	if appErr.Code() != "NO_RECIPE" {
		t.Errorf("Code() = %q, want NO_RECIPE", appErr.Code())
	}
	if !IsType(wrapped, ErrorTypeNoRecipe) {
		t.Errorf("IsType() = false, want true")
	}
	if IsType(errors.New("plain"), ErrorTypeNoRecipe) {
		t.Errorf("IsType() on plain error = true, want false")
	}
}

package recipe

import (
	"context"
	"errors"
)

// ProviderType represents the type of AI provider
type ProviderType string

const (
	ProviderGroq     ProviderType = "groq"
	ProviderCerebras ProviderType = "cerebras"
	ProviderOpenAI   ProviderType = "openai"
	// ProviderNone disables AI extraction so every run takes the fallback path.
	ProviderNone ProviderType = "none"
)

var (
	ErrMissingCredential = errors.New("missing API credential")
	ErrEmptyResponse     = errors.New("empty response from provider")
	ErrDisabled          = errors.New("AI extraction disabled")
)

// RecipeProvider turns an extraction prompt into the model's raw text reply.
// Implementations make a single attempt; callers fall back on any error.
type RecipeProvider interface {
	ExtractRecipe(ctx context.Context, prompt, systemPrompt string) (string, error)
	Name() string
}

// NoopProvider always fails with ErrDisabled.
type NoopProvider struct{}

func (NoopProvider) ExtractRecipe(ctx context.Context, prompt, systemPrompt string) (string, error) {
	return "", ErrDisabled
}

func (NoopProvider) Name() string { return string(ProviderNone) }

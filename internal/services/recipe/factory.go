package recipe

import (
	"github.com/socialchef/recipebox/internal/config"
)

// NewProvider creates the configured recipe provider. Provider "none"
// disables AI extraction entirely.
func NewProvider(cfg config.AIConfig) RecipeProvider {
	if ProviderType(cfg.Provider) == ProviderNone {
		return NoopProvider{}
	}

	return NewChatProvider(ChatOptions{
		Provider:          ProviderType(cfg.Provider),
		APIKey:            cfg.APIKey(),
		BaseURL:           cfg.BaseURL,
		Model:             cfg.Model,
		MaxTokens:         cfg.MaxTokens,
		Timeout:           cfg.Timeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
	})
}

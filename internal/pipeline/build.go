package pipeline

import (
	"github.com/socialchef/recipebox/internal/cache"
	"github.com/socialchef/recipebox/internal/config"
	"github.com/socialchef/recipebox/internal/services/recipe"
	"github.com/socialchef/recipebox/internal/services/scraper"
	"github.com/socialchef/recipebox/internal/services/segmenter"
)

// LexiconFromConfig extends the built-in lexicon with the configured words.
func LexiconFromConfig(cfg config.LexiconConfig) segmenter.Lexicon {
	return segmenter.DefaultLexicon().Merge(segmenter.Lexicon{
		Bullets:         cfg.Bullets,
		IngredientCues:  cfg.IngredientCues,
		CookingVerbs:    cfg.CookingVerbs,
		FallbackUnits:   cfg.Units,
		TitleSeparators: cfg.TitleSeparators,
	})
}

// FromConfig wires extractors, the AI provider and the optional document
// cache from service configuration.
func FromConfig(cfg *config.Config, docs cache.DocumentCache) *Pipeline {
	return FromConfigWithProvider(cfg, docs, recipe.NewProvider(cfg.AI))
}

func FromConfigWithProvider(cfg *config.Config, docs cache.DocumentCache, provider recipe.RecipeProvider) *Pipeline {
	lex := LexiconFromConfig(cfg.Lexicon)

	return New(Options{
		Web: scraper.NewWebExtractor(scraper.WebOptions{
			Timeout:         cfg.Fetch.Timeout,
			UserAgent:       cfg.Fetch.UserAgent,
			MaxContentChars: cfg.Fetch.MaxContentChars,
			Lexicon:         lex,
		}),
		Transcript: scraper.NewTranscriptExtractor(scraper.TranscriptOptions{
			Resolver:       scraper.NewYtDlpResolver(cfg.Transcript.YtDlpPath, cfg.Fetch.ResolverTimeout),
			CaptionTimeout: cfg.Fetch.CaptionTimeout,
			Languages:      cfg.Transcript.Languages,
			Lexicon:        lex,
		}),
		Provider: provider,
		Lexicon:  lex,
		Cache:    docs,
		CacheTTL: cfg.CacheTTL,
	})
}

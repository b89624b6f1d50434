// Package pipeline runs the scrape-and-normalize flow: classify the input,
// extract a ScrapedDocument, ask the AI backend for a normalized recipe and
// fall back to the deterministic formatter when that fails.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/socialchef/recipebox/internal/cache"
	apperrors "github.com/socialchef/recipebox/internal/errors"
	"github.com/socialchef/recipebox/internal/metrics"
	"github.com/socialchef/recipebox/internal/services/ai"
	"github.com/socialchef/recipebox/internal/services/formatter"
	"github.com/socialchef/recipebox/internal/services/recipe"
	"github.com/socialchef/recipebox/internal/services/scraper"
	"github.com/socialchef/recipebox/internal/services/segmenter"
	"github.com/socialchef/recipebox/internal/validation"
)

// Kind says how to read the pipeline input.
type Kind string

const (
	KindURL   Kind = "url"
	KindPhoto Kind = "photo"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Result is the outcome of one run. Failed results carry ErrorType and
// ErrorMessage; successful ones carry the document and its derived names.
type Result struct {
	Status       Status              `json:"status"`
	Title        string              `json:"title,omitempty"`
	Markdown     string              `json:"markdown,omitempty"`
	Filename     string              `json:"filename,omitempty"`
	SourceURL    string              `json:"source_url,omitempty"`
	SourceType   scraper.SourceType  `json:"source_type,omitempty"`
	UsedFallback bool                `json:"used_fallback,omitempty"`
	ErrorType    apperrors.ErrorType `json:"error_type,omitempty"`
	ErrorMessage string              `json:"error_message,omitempty"`
}

// Err converts a failed result into an AppError. It returns nil on success.
func (r Result) Err() *apperrors.AppError {
	if r.Status != StatusFailed {
		return nil
	}
	switch r.ErrorType {
	case apperrors.ErrorTypeSourceUnreachable:
		return apperrors.NewSourceUnreachableError(r.ErrorMessage, "SOURCE_001", nil)
	case apperrors.ErrorTypeNoContent:
		return apperrors.NewNoContentError(r.ErrorMessage, "CONTENT_001")
	case apperrors.ErrorTypeNoRecipe:
		return apperrors.NewNoRecipeError(r.ErrorMessage, "RECIPE_001")
	case apperrors.ErrorTypeValidation:
		return apperrors.NewValidationError(r.ErrorMessage, "VAL_001", "Check the URL and try again.")
	default:
		return apperrors.NewInternalError(r.ErrorMessage, nil)
	}
}

// Extractor builds a ScrapedDocument from a source URL.
type Extractor interface {
	Extract(ctx context.Context, url string) (*scraper.ScrapedDocument, error)
}

type Options struct {
	Web        Extractor
	Transcript Extractor
	Provider   recipe.RecipeProvider
	Lexicon    segmenter.Lexicon
	// Cache is consulted before network extraction when set.
	Cache    cache.DocumentCache
	CacheTTL time.Duration
	Now      func() time.Time
}

type Pipeline struct {
	web        Extractor
	transcript Extractor
	provider   recipe.RecipeProvider
	formatter  *formatter.Formatter
	lexicon    segmenter.Lexicon
	cache      cache.DocumentCache
	cacheTTL   time.Duration
	now        func() time.Time
}

func New(opts Options) *Pipeline {
	if opts.Lexicon.Bullets == nil {
		opts.Lexicon = segmenter.DefaultLexicon()
	}
	if opts.Web == nil {
		opts.Web = scraper.NewWebExtractor(scraper.WebOptions{Lexicon: opts.Lexicon})
	}
	if opts.Transcript == nil {
		opts.Transcript = scraper.NewTranscriptExtractor(scraper.TranscriptOptions{
			Resolver: scraper.NewYtDlpResolver("", 0),
			Lexicon:  opts.Lexicon,
		})
	}
	if opts.Provider == nil {
		opts.Provider = recipe.NoopProvider{}
	}
	if opts.CacheTTL == 0 {
		opts.CacheTTL = 6 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{
		web:        opts.Web,
		transcript: opts.Transcript,
		provider:   opts.Provider,
		formatter:  formatter.New(opts.Lexicon),
		lexicon:    opts.Lexicon,
		cache:      opts.Cache,
		cacheTTL:   opts.CacheTTL,
		now:        opts.Now,
	}
}

// ScrapeAndNormalize turns a URL (KindURL) or OCR text (KindPhoto) into a
// recipe document. Expected failures come back as a failed Result; the
// error is reserved for an unknown kind or a cancelled context.
func (p *Pipeline) ScrapeAndNormalize(ctx context.Context, input string, kind Kind) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	started := time.Now()

	var doc *scraper.ScrapedDocument
	switch kind {
	case KindURL:
		pageURL, err := scraper.NormalizeURL(input)
		if err != nil {
			return p.fail(ctx, started, "", apperrors.ErrorTypeValidation, err.Error()), nil
		}
		doc, err = p.extract(ctx, pageURL)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Result{}, ctxErr
			}
			slog.WarnContext(ctx, "Extraction failed", "url", pageURL, "error", err)
			return p.fail(ctx, started, scraper.Classify(pageURL), apperrors.ErrorTypeSourceUnreachable,
				"Failed to scrape URL: "+err.Error()), nil
		}
	case KindPhoto:
		doc = scraper.NewPhotoDocument(input)
	default:
		return Result{}, fmt.Errorf("unknown source kind %q", kind)
	}

	check := validation.CheckContent(doc.RawText, p.lexicon)
	if check.Empty() && doc.Structured == nil {
		return p.fail(ctx, started, doc.SourceType, apperrors.ErrorTypeNoContent, "No content extracted from source"), nil
	}
	if !check.LooksLikeRecipe() && doc.Structured == nil {
		slog.DebugContext(ctx, "Source text has few recipe cues", "source_type", doc.SourceType, "chars", check.Chars, "cue_lines", check.CueLines)
	}

	text, usedFallback := p.normalize(ctx, doc)
	if formatter.IsNoRecipe(text) {
		return p.fail(ctx, started, doc.SourceType, apperrors.ErrorTypeNoRecipe,
			"Could not extract a recipe from this source"), nil
	}

	markdown := formatter.Assemble(text, doc)
	if doc.Structured != nil {
		if warning := validation.CheckCompleteness(len(doc.Structured.Instructions()), markdown); warning != "" {
			slog.WarnContext(ctx, "Extracted recipe may be incomplete", "url", doc.SourceURL, "warning", warning)
		}
	}

	result := Result{
		Status:       StatusSuccess,
		Title:        formatter.DeriveTitle(markdown, formatter.DefaultTitleFor(doc.SourceType)),
		Markdown:     markdown,
		Filename:     formatter.Filename(doc, p.now()),
		SourceURL:    doc.SourceURL,
		SourceType:   doc.SourceType,
		UsedFallback: usedFallback,
	}
	metrics.RecordScrape(ctx, string(doc.SourceType), string(StatusSuccess), started)
	slog.InfoContext(ctx, "Recipe normalized",
		"source_type", doc.SourceType,
		"title", result.Title,
		"fallback", usedFallback,
		"duration", time.Since(started),
	)
	return result, nil
}

func (p *Pipeline) extract(ctx context.Context, pageURL string) (*scraper.ScrapedDocument, error) {
	if p.cache != nil {
		if doc, _ := p.cache.Get(ctx, pageURL); doc != nil {
			slog.DebugContext(ctx, "Document cache hit", "url", pageURL)
			return doc, nil
		}
	}

	extractor := p.web
	if scraper.Classify(pageURL) == scraper.SourceYouTube {
		extractor = p.transcript
	}

	doc, err := extractor.Extract(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	if p.cache != nil {
		_ = p.cache.Set(ctx, pageURL, doc, p.cacheTTL)
	}
	return doc, nil
}

// normalize returns the recipe text for doc and whether the deterministic
// formatter produced it.
func (p *Pipeline) normalize(ctx context.Context, doc *scraper.ScrapedDocument) (string, bool) {
	reply, err := p.provider.ExtractRecipe(ctx, ai.BuildExtractionPrompt(doc), ai.SystemPrompt)
	if err != nil {
		perr := recipe.ClassifyError(err, p.provider.Name())
		if errors.Is(err, recipe.ErrDisabled) {
			slog.DebugContext(ctx, "AI extraction disabled, using fallback formatter")
		} else {
			slog.WarnContext(ctx, "AI extraction failed, using fallback formatter",
				"provider", p.provider.Name(),
				"error_type", perr.Type,
				"error", err,
			)
		}
		metrics.RecordFallback(ctx, perr.Type)
		return p.formatter.Format(doc), true
	}

	text := formatter.NormalizeAIResponse(reply)
	if strings.TrimSpace(text) == "" {
		slog.WarnContext(ctx, "AI returned no usable text, using fallback formatter", "provider", p.provider.Name())
		metrics.RecordFallback(ctx, recipe.ErrorEmptyResponse)
		return p.formatter.Format(doc), true
	}

	// OCR text is noisy enough that the model sometimes gives up on a real recipe.
	if formatter.IsNoRecipe(text) && doc.SourceType == scraper.SourcePhotoOCR && validation.HasRecipeSignals(doc.RawText) {
		slog.InfoContext(ctx, "AI found no recipe in photo text with recipe signals, using fallback formatter")
		metrics.RecordFallback(ctx, "ocr_no_recipe")
		return p.formatter.Format(doc), true
	}

	if !formatter.IsNoRecipe(text) {
		if v := validation.ValidateMarkdown(text); !v.HasTitle || (v.IngredientCount == 0 && v.StepCount == 0) {
			slog.WarnContext(ctx, "AI reply is not a recipe document, using fallback formatter",
				"provider", p.provider.Name(),
				"has_title", v.HasTitle,
			)
			metrics.RecordFallback(ctx, "malformed_response")
			return p.formatter.Format(doc), true
		}
	}
	return text, false
}

func (p *Pipeline) fail(ctx context.Context, started time.Time, sourceType scraper.SourceType, errType apperrors.ErrorType, msg string) Result {
	metrics.RecordScrape(ctx, string(sourceType), string(StatusFailed), started)
	return Result{
		Status:       StatusFailed,
		SourceType:   sourceType,
		ErrorType:    errType,
		ErrorMessage: msg,
	}
}

package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	meter = otel.Meter("recipebox/pipeline")

	// Pipeline metrics
	RecipeScrapesTotal   metric.Int64Counter
	RecipeScrapeDuration metric.Float64Histogram

	// External API metrics
	ExternalAPICallsTotal metric.Int64Counter
	ExternalAPIDuration   metric.Float64Histogram

	// AI metrics
	AIExtractionDuration metric.Float64Histogram

	// Fallback formatter metrics
	FallbackTotal metric.Int64Counter
)

// Instruments are created against the global meter, which delegates to
// whatever provider is installed later, so they are usable before Init runs.
func init() {
	_ = Init()
}

// Init (re)creates the instruments.
func Init() error {
	var err error

	RecipeScrapesTotal, err = meter.Int64Counter(
		"recipe.scrapes.total",
		metric.WithDescription("Total number of scrape-and-normalize runs"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	RecipeScrapeDuration, err = meter.Float64Histogram(
		"recipe.scrape.duration",
		metric.WithDescription("Duration of a scrape-and-normalize run"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2, 5, 10, 30, 60),
	)
	if err != nil {
		return err
	}

	ExternalAPICallsTotal, err = meter.Int64Counter(
		"external.api.calls.total",
		metric.WithDescription("Total number of external API calls"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	ExternalAPIDuration, err = meter.Float64Histogram(
		"external.api.duration",
		metric.WithDescription("Duration of external API calls"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2, 5, 10, 30),
	)
	if err != nil {
		return err
	}

	AIExtractionDuration, err = meter.Float64Histogram(
		"ai.extraction.duration",
		metric.WithDescription("Duration of AI recipe extraction"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2, 5, 10, 30, 60),
	)
	if err != nil {
		return err
	}

	FallbackTotal, err = meter.Int64Counter(
		"recipe.fallback.total",
		metric.WithDescription("Total number of runs formatted without AI output"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	return nil
}

// RecordScrape counts a finished run and its duration.
func RecordScrape(ctx context.Context, sourceType, status string, started time.Time) {
	attrs := metric.WithAttributes(
		attribute.String("source_type", sourceType),
		attribute.String("status", status),
	)
	RecipeScrapesTotal.Add(ctx, 1, attrs)
	RecipeScrapeDuration.Record(ctx, time.Since(started).Seconds(), attrs)
}

// RecordExternalCall counts an outbound call to provider ("web", "captions", "groq", ...).
func RecordExternalCall(ctx context.Context, provider string, started time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("status", status),
	)
	ExternalAPICallsTotal.Add(ctx, 1, attrs)
	ExternalAPIDuration.Record(ctx, time.Since(started).Seconds(), attrs)
}

// RecordFallback counts a run that used the deterministic formatter.
func RecordFallback(ctx context.Context, reason string) {
	FallbackTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

package worker

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"
)

// NewServer creates a new Asynq server for processing tasks
func NewServer(redisURL string, concurrency int) (*asynq.Server, error) {
	opt, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	if concurrency <= 0 {
		concurrency = 10
	}

	return asynq.NewServer(
		opt,
		asynq.Config{
			Concurrency: concurrency,
			Queues:      map[string]int{"default": 1},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, t *asynq.Task, err error) {
				if errors.Is(err, asynq.SkipRetry) {
					return
				}
				retried, _ := asynq.GetRetryCount(ctx)
				slog.ErrorContext(ctx, "Task failed", "type", t.Type(), "retry", retried, "error", err)
			}),
		},
	), nil
}

// NewServeMux registers the recipe handlers behind the tracing and Sentry middleware.
func NewServeMux(processor *RecipeProcessor) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Use(SentryMiddleware)
	mux.Use(OTelMiddleware)
	mux.HandleFunc(TypeScrapeRecipe, processor.HandleScrapeRecipe)
	mux.HandleFunc(TypeOCRRecipe, processor.HandleOCRRecipe)
	return mux
}

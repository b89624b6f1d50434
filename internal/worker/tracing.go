package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/socialchef/recipebox/internal/pipeline"
	"github.com/socialchef/recipebox/internal/telemetry"
)

// jobEnvelope holds the fields every recipe payload shares.
type jobEnvelope struct {
	JobID string `json:"job_id"`
	Owner string `json:"owner"`
}

func decodeEnvelope(t *asynq.Task) jobEnvelope {
	var env jobEnvelope
	_ = json.Unmarshal(t.Payload(), &env)
	return env
}

// sourceKind names the pipeline input a task type carries.
func sourceKind(taskType string) pipeline.Kind {
	if taskType == TypeOCRRecipe {
		return pipeline.KindPhoto
	}
	return pipeline.KindURL
}

// OTelMiddleware opens a consumer span per recipe job. The span outcome
// distinguishes expected pipeline failures from faults worth retrying.
func OTelMiddleware(h asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		env := decodeEnvelope(t)
		retryCount, _ := asynq.GetRetryCount(ctx)

		ctx, span := telemetry.Tracer("worker").Start(ctx, "recipe.job "+t.Type(),
			trace.WithSpanKind(trace.SpanKindConsumer),
			trace.WithAttributes(
				attribute.String("recipe.job_id", env.JobID),
				attribute.String("recipe.owner", env.Owner),
				attribute.String("recipe.source_kind", string(sourceKind(t.Type()))),
				attribute.Int("job.retry_count", retryCount),
			),
		)
		defer span.End()

		err := h.ProcessTask(ctx, t)
		switch {
		case err == nil:
			span.SetAttributes(attribute.String("job.outcome", outcomeCompleted))
		case errors.Is(err, asynq.SkipRetry):
			span.SetAttributes(attribute.String("job.outcome", outcomeFailed))
		default:
			span.SetAttributes(attribute.String("job.outcome", outcomeError))
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return err
	})
}

// annotateSpan copies the pipeline result onto the job span.
func annotateSpan(ctx context.Context, result pipeline.Result) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("recipe.status", string(result.Status)),
		attribute.String("recipe.source_type", string(result.SourceType)),
		attribute.Bool("recipe.used_fallback", result.UsedFallback),
	)
	if result.Status == pipeline.StatusFailed {
		span.SetAttributes(attribute.String("recipe.error_type", string(result.ErrorType)))
		return
	}
	span.SetAttributes(attribute.String("recipe.filename", result.Filename))
}

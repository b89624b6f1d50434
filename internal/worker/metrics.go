package worker

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("recipebox/worker")

// Job outcomes as reported in metrics, spans and the job status endpoint.
const (
	outcomeCompleted = "completed"
	outcomeFailed    = "failed"
	outcomeError     = "error"
)

// WorkerMetrics counts recipe jobs by task type and outcome.
type WorkerMetrics struct {
	jobs     metric.Int64Counter
	saved    metric.Int64Counter
	duration metric.Float64Histogram
}

func NewWorkerMetrics() (*WorkerMetrics, error) {
	jobs, err := meter.Int64Counter(
		"recipe.jobs.total",
		metric.WithDescription("Recipe jobs processed, by task type, outcome and pipeline error type"),
		metric.WithUnit("{job}"),
	)
	if err != nil {
		return nil, err
	}

	saved, err := meter.Int64Counter(
		"recipe.jobs.saved",
		metric.WithDescription("Recipes written to the store by worker jobs"),
		metric.WithUnit("{recipe}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"recipe.job.duration",
		metric.WithDescription("Time from job start to result, including the AI call and store write"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.5, 1, 2.5, 5, 10, 30, 60, 120),
	)
	if err != nil {
		return nil, err
	}

	return &WorkerMetrics{jobs: jobs, saved: saved, duration: duration}, nil
}

// jobReport is what one finished job contributes to the metrics.
type jobReport struct {
	taskType  string
	outcome   string
	errorType string
	saved     bool
	started   time.Time
}

// RecordJob is a no-op on a nil receiver.
func (m *WorkerMetrics) RecordJob(ctx context.Context, r jobReport) {
	if m == nil {
		return
	}

	taskAttr := attribute.String("task_type", r.taskType)
	m.jobs.Add(ctx, 1, metric.WithAttributes(
		taskAttr,
		attribute.String("outcome", r.outcome),
		attribute.String("error_type", r.errorType),
	))
	m.duration.Record(ctx, time.Since(r.started).Seconds(), metric.WithAttributes(taskAttr))
	if r.saved {
		m.saved.Add(ctx, 1, metric.WithAttributes(taskAttr))
	}
}

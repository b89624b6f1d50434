package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/socialchef/recipebox/internal/pipeline"
	"github.com/socialchef/recipebox/internal/services/storage"
	"github.com/socialchef/recipebox/internal/utils"
)

// Pipeline is the part of *pipeline.Pipeline the worker needs.
type Pipeline interface {
	ScrapeAndNormalize(ctx context.Context, input string, kind pipeline.Kind) (pipeline.Result, error)
}

type RecipeProcessor struct {
	pipeline    Pipeline
	store       storage.Store
	metrics     *WorkerMetrics
	retry       utils.RetryPolicy
	writeResult func(t *asynq.Task, data []byte) error
}

func NewRecipeProcessor(p Pipeline, store storage.Store, m *WorkerMetrics) *RecipeProcessor {
	return &RecipeProcessor{
		pipeline:    p,
		store:       store,
		metrics:     m,
		retry:       utils.StoreRetryPolicy(),
		writeResult: writeTaskResult,
	}
}

func writeTaskResult(t *asynq.Task, data []byte) error {
	rw := t.ResultWriter()
	if rw == nil {
		return nil
	}
	_, err := rw.Write(data)
	return err
}

func (p *RecipeProcessor) HandleScrapeRecipe(ctx context.Context, t *asynq.Task) error {
	var payload ScrapePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	slog.InfoContext(ctx, "Processing recipe URL", "job_id", payload.JobID, "url", payload.URL)
	return p.process(ctx, t, payload.JobID, payload.Owner, payload.URL, pipeline.KindURL, payload.Save)
}

func (p *RecipeProcessor) HandleOCRRecipe(ctx context.Context, t *asynq.Task) error {
	var payload OCRPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	slog.InfoContext(ctx, "Processing photo text", "job_id", payload.JobID, "chars", len(payload.Text))
	return p.process(ctx, t, payload.JobID, payload.Owner, payload.Text, pipeline.KindPhoto, payload.Save)
}

func (p *RecipeProcessor) process(ctx context.Context, t *asynq.Task, jobID, owner, input string, kind pipeline.Kind, save bool) error {
	report := jobReport{taskType: t.Type(), outcome: outcomeError, started: time.Now()}
	defer func() { p.metrics.RecordJob(ctx, report) }()

	result, err := p.pipeline.ScrapeAndNormalize(ctx, input, kind)
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	annotateSpan(ctx, result)

	job := JobResult{JobID: jobID, Result: result}

	if result.Status == pipeline.StatusFailed {
		report.outcome = outcomeFailed
		report.errorType = string(result.ErrorType)
		p.record(ctx, t, job)
		slog.WarnContext(ctx, "Job failed", "job_id", jobID, "error_type", result.ErrorType, "error", result.ErrorMessage)
		// Unreachable sources and missing recipes come back the same on retry.
		return fmt.Errorf("%s: %w", result.ErrorMessage, asynq.SkipRetry)
	}

	if save && p.store != nil {
		if err := p.save(ctx, owner, result); err != nil {
			report.errorType = "storage"
			slog.ErrorContext(ctx, "Failed to save recipe", "job_id", jobID, "name", result.Filename, "error", err)
			if errors.Is(err, storage.ErrInvalidName) {
				return fmt.Errorf("save recipe: %v: %w", err, asynq.SkipRetry)
			}
			return fmt.Errorf("save recipe: %w", err)
		}
		job.Saved = true
	}

	report.outcome = outcomeCompleted
	report.saved = job.Saved
	p.record(ctx, t, job)
	slog.InfoContext(ctx, "Job completed", "job_id", jobID, "title", result.Title, "saved", job.Saved)
	return nil
}

func (p *RecipeProcessor) save(ctx context.Context, owner string, result pipeline.Result) error {
	rec := storage.Recipe{
		RecipeMeta: storage.RecipeMeta{
			Name:      result.Filename,
			Owner:     owner,
			Title:     result.Title,
			SourceURL: result.SourceURL,
		},
		Content: result.Markdown,
	}

	policy := p.retry
	policy.OnRetry = func(attempt int, err error, wait time.Duration) {
		slog.WarnContext(ctx, "Retrying recipe save", "name", rec.Name, "attempt", attempt, "wait", wait, "error", err)
	}
	_, err := utils.WithRetry(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, p.store.Save(ctx, rec)
	}, policy)
	return err
}

func (p *RecipeProcessor) record(ctx context.Context, t *asynq.Task, job JobResult) {
	data, err := json.Marshal(job)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to marshal job result", "job_id", job.JobID, "error", err)
		return
	}
	if err := p.writeResult(t, data); err != nil {
		slog.ErrorContext(ctx, "Failed to write job result", "job_id", job.JobID, "error", err)
	}
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/socialchef/recipebox/internal/config"
	apperrors "github.com/socialchef/recipebox/internal/errors"
	"github.com/socialchef/recipebox/internal/middleware"
	"github.com/socialchef/recipebox/internal/pipeline"
	"github.com/socialchef/recipebox/internal/sentry"
	"github.com/socialchef/recipebox/internal/services/storage"
	"github.com/socialchef/recipebox/internal/worker"
)

const queueName = "default"

// Pipeline runs one extraction. *pipeline.Pipeline satisfies it.
type Pipeline interface {
	ScrapeAndNormalize(ctx context.Context, input string, kind pipeline.Kind) (pipeline.Result, error)
}

type Server struct {
	cfg       *config.Config
	pipeline  Pipeline
	store     storage.Store
	queue     worker.Enqueuer
	inspector worker.TaskInspector
}

// NewServer wires the handlers. queue and inspector may be nil when no Redis
// is configured; async requests are then rejected.
func NewServer(cfg *config.Config, p Pipeline, store storage.Store, queue worker.Enqueuer, inspector worker.TaskInspector) *Server {
	return &Server{
		cfg:       cfg,
		pipeline:  p,
		store:     store,
		queue:     queue,
		inspector: inspector,
	}
}

type ScrapeRequest struct {
	URL   string `json:"url"`
	Async bool   `json:"async"`
	Save  bool   `json:"save"`
}

type OCRRequest struct {
	Text  string `json:"text"`
	Async bool   `json:"async"`
	Save  bool   `json:"save"`
}

type ScrapeResponse struct {
	pipeline.Result
	Saved bool `json:"saved"`
}

type EnqueueResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

type JobStatusResponse struct {
	JobID  string            `json:"job_id"`
	Status string            `json:"status"`
	Result *worker.JobResult `json:"result,omitempty"`
	Error  string            `json:"error,omitempty"`
}

func (s *Server) HandleScrape(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		writeError(w, r, apperrors.NewValidationError("URL is required", "URL_REQUIRED", "Provide a recipe page or video URL."))
		return
	}

	if req.Async {
		jobID := uuid.New().String()
		task, err := worker.NewScrapeTask(worker.ScrapePayload{JobID: jobID, URL: req.URL, Owner: userID, Save: req.Save})
		if err != nil {
			writeError(w, r, apperrors.NewInternalError("Failed to create task", err))
			return
		}
		s.enqueue(w, r, jobID, task)
		return
	}

	s.runSync(w, r, userID, req.URL, pipeline.KindURL, req.Save)
}

func (s *Server) HandleOCR(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req OCRRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.Text) == "" {
		writeError(w, r, apperrors.NewValidationError("Text is required", "TEXT_REQUIRED", "Send the OCR output of the recipe photo."))
		return
	}

	if req.Async {
		jobID := uuid.New().String()
		task, err := worker.NewOCRTask(worker.OCRPayload{JobID: jobID, Text: req.Text, Owner: userID, Save: req.Save})
		if err != nil {
			writeError(w, r, apperrors.NewInternalError("Failed to create task", err))
			return
		}
		s.enqueue(w, r, jobID, task)
		return
	}

	s.runSync(w, r, userID, req.Text, pipeline.KindPhoto, req.Save)
}

func (s *Server) runSync(w http.ResponseWriter, r *http.Request, owner, input string, kind pipeline.Kind, save bool) {
	result, err := s.pipeline.ScrapeAndNormalize(r.Context(), input, kind)
	if err != nil {
		writeError(w, r, apperrors.NewInternalError("Extraction failed", err))
		return
	}

	if result.Status == pipeline.StatusFailed {
		writeJSON(w, result.Err().StatusCode, ScrapeResponse{Result: result})
		return
	}

	resp := ScrapeResponse{Result: result}
	if save {
		err := s.store.Save(r.Context(), storage.Recipe{
			RecipeMeta: storage.RecipeMeta{
				Name:      result.Filename,
				Owner:     owner,
				Title:     result.Title,
				SourceURL: result.SourceURL,
			},
			Content: result.Markdown,
		})
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		resp.Saved = true
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) enqueue(w http.ResponseWriter, r *http.Request, jobID string, task *asynq.Task) {
	if s.queue == nil {
		http.Error(w, "Async jobs are not enabled", http.StatusServiceUnavailable)
		return
	}

	if _, err := s.queue.EnqueueContext(r.Context(), task); err != nil {
		slog.Error("Failed to enqueue task", "job_id", jobID, "type", task.Type(), "error", err)
		writeError(w, r, apperrors.NewInternalError("Failed to enqueue job", err))
		return
	}

	writeJSON(w, http.StatusAccepted, EnqueueResponse{JobID: jobID, Status: "queued"})
}

// jobPayload reads the fields shared by both task payloads.
type jobPayload struct {
	Owner string `json:"owner"`
}

func (s *Server) HandleJobStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if s.inspector == nil {
		http.Error(w, "Async jobs are not enabled", http.StatusServiceUnavailable)
		return
	}

	jobID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(jobID); err != nil {
		writeError(w, r, apperrors.NewValidationError("Invalid job ID", "INVALID_JOB_ID", "Use the job_id returned when the job was created."))
		return
	}

	info, err := s.inspector.GetTaskInfo(queueName, jobID)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
			writeError(w, r, jobNotFound())
			return
		}
		writeError(w, r, apperrors.NewInternalError("Failed to fetch job", err))
		return
	}

	var payload jobPayload
	if err := json.Unmarshal(info.Payload, &payload); err != nil || payload.Owner != userID {
		// Other users' jobs look the same as missing ones.
		writeError(w, r, jobNotFound())
		return
	}

	resp := JobStatusResponse{JobID: jobID, Status: jobStatus(info.State)}
	if len(info.Result) > 0 {
		var result worker.JobResult
		if err := json.Unmarshal(info.Result, &result); err == nil {
			resp.Result = &result
		}
	}
	if info.State == asynq.TaskStateArchived {
		resp.Error = info.LastErr
	}

	writeJSON(w, http.StatusOK, resp)
}

func jobNotFound() *apperrors.AppError {
	return apperrors.NewNotFoundError("Job not found", "JOB_NOT_FOUND", "Jobs are kept for 24 hours after they finish.")
}

func jobStatus(state asynq.TaskState) string {
	switch state {
	case asynq.TaskStatePending, asynq.TaskStateScheduled, asynq.TaskStateAggregating:
		return "queued"
	case asynq.TaskStateActive, asynq.TaskStateRetry:
		return "running"
	case asynq.TaskStateCompleted:
		return "completed"
	case asynq.TaskStateArchived:
		return "failed"
	default:
		return "unknown"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

type errorResponse struct {
	Error *apperrors.AppError `json:"error"`
}

func writeError(w http.ResponseWriter, r *http.Request, appErr *apperrors.AppError) {
	if appErr.StatusCode >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "type", appErr.Type, "error", appErr)
		sentry.CaptureError(r.Context(), appErr)
	}
	writeJSON(w, appErr.StatusCode, errorResponse{Error: appErr})
}

func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, r, apperrors.NewNotFoundError("Recipe not found", "RECIPE_NOT_FOUND", "List your recipes to see the available names."))
	case errors.Is(err, storage.ErrInvalidName):
		writeError(w, r, apperrors.NewValidationError("Invalid recipe name", "INVALID_RECIPE_NAME", "Recipe names look like recipe_<source>_<timestamp>.md."))
	default:
		writeError(w, r, apperrors.NewStorageError("Recipe store failed", "STORE_FAILED", err))
	}
}

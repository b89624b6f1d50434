package worker

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/socialchef/recipebox/internal/pipeline"
)

// Task type constants
const (
	TypeScrapeRecipe = "recipe:scrape"
	TypeOCRRecipe    = "recipe:ocr"
)

const (
	// ResultRetention is how long finished jobs and their results stay queryable.
	ResultRetention = 24 * time.Hour
	taskTimeout     = 5 * time.Minute
	taskMaxRetry    = 3
)

// ScrapePayload is the payload for URL recipe tasks
type ScrapePayload struct {
	JobID string `json:"job_id"`
	URL   string `json:"url"`
	Owner string `json:"owner"`
	Save  bool   `json:"save"`
}

// OCRPayload is the payload for photo-text recipe tasks
type OCRPayload struct {
	JobID string `json:"job_id"`
	Text  string `json:"text"`
	Owner string `json:"owner"`
	Save  bool   `json:"save"`
}

// JobResult is what a finished task writes to its asynq result.
type JobResult struct {
	JobID string `json:"job_id"`
	pipeline.Result
	Saved bool `json:"saved"`
}

// NewScrapeTask creates a URL recipe task. The job ID doubles as the asynq task ID.
func NewScrapeTask(payload ScrapePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeScrapeRecipe, data, taskOptions(payload.JobID)...), nil
}

// NewOCRTask creates a photo-text recipe task
func NewOCRTask(payload OCRPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeOCRRecipe, data, taskOptions(payload.JobID)...), nil
}

func taskOptions(jobID string) []asynq.Option {
	return []asynq.Option{
		asynq.TaskID(jobID),
		asynq.MaxRetry(taskMaxRetry),
		asynq.Timeout(taskTimeout),
		asynq.Retention(ResultRetention),
	}
}

package worker

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/socialchef/recipebox/internal/errors"
	"github.com/socialchef/recipebox/internal/pipeline"
	"github.com/socialchef/recipebox/internal/services/storage"
	"github.com/socialchef/recipebox/internal/utils"
)

// Mocks

type MockPipeline struct {
	mock.Mock
}

func (m *MockPipeline) ScrapeAndNormalize(ctx context.Context, input string, kind pipeline.Kind) (pipeline.Result, error) {
	args := m.Called(ctx, input, kind)
	return args.Get(0).(pipeline.Result), args.Error(1)
}

type MockStore struct {
	mock.Mock
	storage.Store
}

func (m *MockStore) Save(ctx context.Context, recipe storage.Recipe) error {
	args := m.Called(ctx, recipe)
	return args.Error(0)
}

type capturedResults struct {
	data [][]byte
}

func (c *capturedResults) write(t *asynq.Task, data []byte) error {
	c.data = append(c.data, data)
	return nil
}

func (c *capturedResults) last(t *testing.T) JobResult {
	t.Helper()
	require.NotEmpty(t, c.data)
	var job JobResult
	require.NoError(t, json.Unmarshal(c.data[len(c.data)-1], &job))
	return job
}

func newTestProcessor(p Pipeline, store storage.Store) (*RecipeProcessor, *capturedResults) {
	results := &capturedResults{}
	processor := NewRecipeProcessor(p, store, nil)
	processor.writeResult = results.write
	processor.retry = utils.RetryPolicy{
		MaxAttempts:    3,
		InitialDelay:   time.Millisecond,
		MaxDelay:       time.Millisecond,
		AttemptTimeout: time.Second,
		Retryable:      utils.TransientStoreError,
	}
	return processor, results
}

var soupResult = pipeline.Result{
	Status:     pipeline.StatusSuccess,
	Title:      "Tomato Soup",
	Markdown:   "# Tomato Soup\n\n**URL:** https://example.com/soup\n\n**Ingredients:**\n• 1 onion\n\n**Method:**\n1. Cook",
	Filename:   "recipe_example.com_20240302_100405.md",
	SourceURL:  "https://example.com/soup",
	SourceType: "web",
}

func scrapeTask(t *testing.T, payload ScrapePayload) *asynq.Task {
	t.Helper()
	task, err := NewScrapeTask(payload)
	require.NoError(t, err)
	return task
}

func TestHandleScrapeRecipe_SavesRecipe(t *testing.T) {
	ctx := context.Background()
	jobID := uuid.New().String()
	url := "https://example.com/soup"

	mockPipeline := new(MockPipeline)
	mockStore := new(MockStore)
	processor, results := newTestProcessor(mockPipeline, mockStore)

	mockPipeline.On("ScrapeAndNormalize", ctx, url, pipeline.KindURL).Return(soupResult, nil)
	mockStore.On("Save", mock.Anything, mock.MatchedBy(func(r storage.Recipe) bool {
		return r.Owner == "user-1" && r.Name == soupResult.Filename && r.Title == "Tomato Soup" && r.Content == soupResult.Markdown
	})).Return(nil)

	err := processor.HandleScrapeRecipe(ctx, scrapeTask(t, ScrapePayload{JobID: jobID, URL: url, Owner: "user-1", Save: true}))
	require.NoError(t, err)

	job := results.last(t)
	assert.Equal(t, jobID, job.JobID)
	assert.Equal(t, pipeline.StatusSuccess, job.Status)
	assert.Equal(t, "Tomato Soup", job.Title)
	assert.True(t, job.Saved)
	mockPipeline.AssertExpectations(t)
	mockStore.AssertExpectations(t)
}

func TestHandleScrapeRecipe_NoSaveRequested(t *testing.T) {
	ctx := context.Background()

	mockPipeline := new(MockPipeline)
	mockStore := new(MockStore)
	processor, results := newTestProcessor(mockPipeline, mockStore)

	mockPipeline.On("ScrapeAndNormalize", ctx, "https://example.com/soup", pipeline.KindURL).Return(soupResult, nil)

	err := processor.HandleScrapeRecipe(ctx, scrapeTask(t, ScrapePayload{JobID: "j1", URL: "https://example.com/soup", Owner: "user-1"}))
	require.NoError(t, err)

	assert.False(t, results.last(t).Saved)
	mockStore.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestHandleScrapeRecipe_ExpectedFailureSkipsRetry(t *testing.T) {
	ctx := context.Background()

	mockPipeline := new(MockPipeline)
	mockStore := new(MockStore)
	processor, results := newTestProcessor(mockPipeline, mockStore)

	mockPipeline.On("ScrapeAndNormalize", ctx, "https://example.com/blog", pipeline.KindURL).Return(pipeline.Result{
		Status:       pipeline.StatusFailed,
		ErrorType:    apperrors.ErrorTypeNoRecipe,
		ErrorMessage: "Could not extract a recipe from this source",
	}, nil)

	err := processor.HandleScrapeRecipe(ctx, scrapeTask(t, ScrapePayload{JobID: "j2", URL: "https://example.com/blog", Owner: "u", Save: true}))

	assert.ErrorIs(t, err, asynq.SkipRetry)
	job := results.last(t)
	assert.Equal(t, pipeline.StatusFailed, job.Status)
	assert.Equal(t, apperrors.ErrorTypeNoRecipe, job.ErrorType)
	mockStore.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestHandleScrapeRecipe_UnexpectedErrorRetries(t *testing.T) {
	ctx := context.Background()

	mockPipeline := new(MockPipeline)
	processor, results := newTestProcessor(mockPipeline, nil)

	mockPipeline.On("ScrapeAndNormalize", ctx, "https://example.com/soup", pipeline.KindURL).
		Return(pipeline.Result{}, context.DeadlineExceeded)

	err := processor.HandleScrapeRecipe(ctx, scrapeTask(t, ScrapePayload{JobID: "j3", URL: "https://example.com/soup"}))

	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
	assert.Empty(t, results.data)
}

func TestHandleScrapeRecipe_StoreRetry(t *testing.T) {
	ctx := context.Background()

	mockPipeline := new(MockPipeline)
	mockStore := new(MockStore)
	processor, _ := newTestProcessor(mockPipeline, mockStore)

	mockPipeline.On("ScrapeAndNormalize", ctx, "https://example.com/soup", pipeline.KindURL).Return(soupResult, nil)
	mockStore.On("Save", mock.Anything, mock.Anything).Return(errors.New("database is locked")).Twice()
	mockStore.On("Save", mock.Anything, mock.Anything).Return(nil).Once()

	err := processor.HandleScrapeRecipe(ctx, scrapeTask(t, ScrapePayload{JobID: "j4", URL: "https://example.com/soup", Owner: "u", Save: true}))
	require.NoError(t, err)
	mockStore.AssertNumberOfCalls(t, "Save", 3)
}

func TestHandleScrapeRecipe_StoreFailureReturnsError(t *testing.T) {
	ctx := context.Background()

	mockPipeline := new(MockPipeline)
	mockStore := new(MockStore)
	processor, results := newTestProcessor(mockPipeline, mockStore)

	mockPipeline.On("ScrapeAndNormalize", ctx, "https://example.com/soup", pipeline.KindURL).Return(soupResult, nil)
	mockStore.On("Save", mock.Anything, mock.Anything).Return(errors.New("access denied"))

	err := processor.HandleScrapeRecipe(ctx, scrapeTask(t, ScrapePayload{JobID: "j5", URL: "https://example.com/soup", Owner: "u", Save: true}))

	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
	assert.Empty(t, results.data)
	mockStore.AssertNumberOfCalls(t, "Save", 1)
}

func TestHandleOCRRecipe_WithSQLiteStore(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "recipes.db"))
	require.NoError(t, err)
	defer store.Close()

	photo := pipeline.Result{
		Status:     pipeline.StatusSuccess,
		Title:      "Recipe from Photo",
		Markdown:   "# Recipe from Photo\n\n**Ingredients:**\n• 2 eggs\n\n**Method:**\n1. Beat eggs",
		Filename:   "recipe_photo_20240302_100405.md",
		SourceURL:  "Photo Upload",
		SourceType: "photo_ocr",
	}
	mockPipeline := new(MockPipeline)
	mockPipeline.On("ScrapeAndNormalize", ctx, "Ingredients: 2 eggs", pipeline.KindPhoto).Return(photo, nil)
	processor, results := newTestProcessor(mockPipeline, store)

	task, err := NewOCRTask(OCRPayload{JobID: "j6", Text: "Ingredients: 2 eggs", Owner: "user-9", Save: true})
	require.NoError(t, err)
	require.NoError(t, processor.HandleOCRRecipe(ctx, task))

	assert.True(t, results.last(t).Saved)
	saved, err := store.Get(ctx, "user-9", photo.Filename)
	require.NoError(t, err)
	assert.Equal(t, photo.Markdown, saved.Content)
}

func TestHandleScrapeRecipe_BadPayload(t *testing.T) {
	processor, _ := newTestProcessor(new(MockPipeline), nil)

	err := processor.HandleScrapeRecipe(context.Background(), asynq.NewTask(TypeScrapeRecipe, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestNewScrapeTask(t *testing.T) {
	task, err := NewScrapeTask(ScrapePayload{JobID: "job-1", URL: "https://example.com", Owner: "u"})
	require.NoError(t, err)
	assert.Equal(t, TypeScrapeRecipe, task.Type())

	var payload ScrapePayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "job-1", payload.JobID)
}

func TestParseRedisURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		addr    string
		pass    string
		db      int
		tls     bool
		wantErr bool
	}{
		{name: "host port", url: "localhost:6379", addr: "localhost:6379"},
		{name: "redis url", url: "redis://:secret@cache:6380/2", addr: "cache:6380", pass: "secret", db: 2},
		{name: "tls", url: "rediss://user:pw@cache.example.com:6379", addr: "cache.example.com:6379", pass: "pw", tls: true},
		{name: "bad db", url: "redis://cache:6379/x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opt, err := ParseRedisURL(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseRedisURL(%q) expected error", tt.url)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.addr, opt.Addr)
			assert.Equal(t, tt.pass, opt.Password)
			assert.Equal(t, tt.db, opt.DB)
			assert.Equal(t, tt.tls, opt.TLSConfig != nil)
		})
	}
}

func TestDecodeEnvelope(t *testing.T) {
	scrape, err := NewScrapeTask(ScrapePayload{JobID: "job-1", URL: "https://example.com", Owner: "alice"})
	require.NoError(t, err)
	ocr, err := NewOCRTask(OCRPayload{JobID: "job-2", Text: "2 eggs", Owner: "bob"})
	require.NoError(t, err)

	assert.Equal(t, jobEnvelope{JobID: "job-1", Owner: "alice"}, decodeEnvelope(scrape))
	assert.Equal(t, jobEnvelope{JobID: "job-2", Owner: "bob"}, decodeEnvelope(ocr))
	assert.Equal(t, jobEnvelope{}, decodeEnvelope(asynq.NewTask(TypeScrapeRecipe, []byte("{"))))

	assert.Equal(t, pipeline.KindURL, sourceKind(scrape.Type()))
	assert.Equal(t, pipeline.KindPhoto, sourceKind(ocr.Type()))
}

func TestRecordJob_NilMetrics(t *testing.T) {
	var m *WorkerMetrics
	m.RecordJob(context.Background(), jobReport{taskType: TypeScrapeRecipe, outcome: outcomeCompleted, started: time.Now()})
}

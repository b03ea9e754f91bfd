package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/reelcraft/api/internal/job"
	"github.com/reelcraft/api/internal/model"
	"github.com/reelcraft/api/internal/service"
	"github.com/reelcraft/api/internal/store"
	"github.com/reelcraft/api/pkg/logger"
	"github.com/reelcraft/api/pkg/response"
)

type fakeGenerator struct {
	jobID  string
	reused bool
	err    error
}

func (f *fakeGenerator) Start(ctx context.Context, url string) (string, bool, error) {
	return f.jobID, f.reused, f.err
}

func testApp(t *testing.T, gen Generator) (*fiber.App, *store.JobStore, *store.VideoStore) {
	t.Helper()

	db, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	jobs := store.NewJobStore(db)
	videos := store.NewVideoStore(db)

	log := logger.NewNop()
	manager := job.NewManager(jobs, log)
	videoService := service.NewVideoService(videos, nil, log)

	generateHandler := NewGenerateHandler(gen, validator.New())
	jobHandler := NewJobHandler(manager)
	videoHandler := NewVideoHandler(videoService)

	app := fiber.New()
	app.Post("/api/generate-video", generateHandler.Generate)
	app.Get("/api/jobs", jobHandler.List)
	app.Get("/api/jobs/:jobId", jobHandler.Status)
	app.Post("/api/jobs/:jobId/cancel", jobHandler.Cancel)
	app.Get("/api/videos", videoHandler.List)
	app.Delete("/api/videos/:id", videoHandler.Delete)

	return app, jobs, videos
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, 5000)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	resp.Body.Close()
	return resp, raw
}

func TestGenerate_InvalidBody(t *testing.T) {
	app, _, _ := testApp(t, &fakeGenerator{})

	resp, raw := doJSON(t, app, "POST", "/api/generate-video", `{"url": "not a url"}`)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	var body response.ErrorResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	if body.Error.Code != response.CodeValidationError {
		t.Errorf("expected VALIDATION_ERROR, got %q", body.Error.Code)
	}
}

func TestGenerate_MissingURL(t *testing.T) {
	app, _, _ := testApp(t, &fakeGenerator{})

	resp, _ := doJSON(t, app, "POST", "/api/generate-video", `{}`)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestGenerate_StartsJob(t *testing.T) {
	app, _, _ := testApp(t, &fakeGenerator{jobID: "job-123"})

	resp, raw := doJSON(t, app, "POST", "/api/generate-video", `{"url": "https://example.test/article"}`)
	if resp.StatusCode != fiber.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}

	var body model.GenerateResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.JobID != "job-123" {
		t.Errorf("expected job-123, got %q", body.JobID)
	}
	if body.Status != model.JobStatusPending {
		t.Errorf("expected pending, got %s", body.Status)
	}
	if body.Reused {
		t.Error("a fresh job must not be marked reused")
	}
}

func TestGenerate_ReusedVideo(t *testing.T) {
	app, _, _ := testApp(t, &fakeGenerator{jobID: "job-456", reused: true})

	resp, raw := doJSON(t, app, "POST", "/api/generate-video", `{"url": "https://example.test/article"}`)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 for a reused video, got %d", resp.StatusCode)
	}

	var body model.GenerateResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if !body.Reused {
		t.Error("expected reused flag")
	}
	if body.Status != model.JobStatusCompleted {
		t.Errorf("expected completed, got %s", body.Status)
	}
}

func TestGenerate_PipelineError(t *testing.T) {
	app, _, _ := testApp(t, &fakeGenerator{err: errors.New("fetch service down")})

	resp, _ := doJSON(t, app, "POST", "/api/generate-video", `{"url": "https://example.test/article"}`)
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
}

func TestJobStatus_NotFound(t *testing.T) {
	app, _, _ := testApp(t, &fakeGenerator{})

	resp, raw := doJSON(t, app, "GET", "/api/jobs/missing", "")
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	var body response.ErrorResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	if body.Error.Code != response.CodeNotFound {
		t.Errorf("expected NOT_FOUND, got %q", body.Error.Code)
	}
}

func TestJobStatus_ReturnsJob(t *testing.T) {
	app, jobs, _ := testApp(t, &fakeGenerator{})

	seed := &model.Job{
		ID:              "job-1",
		Status:          model.JobStatusCompleted,
		Progress:        100,
		ProgressMessage: "Video created successfully",
		CreatedAt:       time.Now().UTC(),
	}
	if err := jobs.Create(context.Background(), seed); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	resp, raw := doJSON(t, app, "GET", "/api/jobs/job-1", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body model.Job
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Status != model.JobStatusCompleted || body.Progress != 100 {
		t.Errorf("unexpected job %s/%d", body.Status, body.Progress)
	}
}

func TestJobCancel_UnknownJob(t *testing.T) {
	app, _, _ := testApp(t, &fakeGenerator{})

	resp, _ := doJSON(t, app, "POST", "/api/jobs/missing/cancel", "")
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestJobCancel_FinishedJob(t *testing.T) {
	app, jobs, _ := testApp(t, &fakeGenerator{})

	seed := &model.Job{ID: "job-1", Status: model.JobStatusCompleted, CreatedAt: time.Now().UTC()}
	if err := jobs.Create(context.Background(), seed); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	resp, raw := doJSON(t, app, "POST", "/api/jobs/job-1/cancel", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body model.CancelResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Status != "not_running" {
		t.Errorf("expected not_running, got %q", body.Status)
	}
}

func TestJobList_InvalidStatusFilter(t *testing.T) {
	app, _, _ := testApp(t, &fakeGenerator{})

	resp, _ := doJSON(t, app, "GET", "/api/jobs?status=bogus", "")
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestJobList_FiltersByStatus(t *testing.T) {
	app, jobs, _ := testApp(t, &fakeGenerator{})

	ctx := context.Background()
	for i, status := range []model.JobStatus{model.JobStatusCompleted, model.JobStatusFailed} {
		seed := &model.Job{
			ID:        string(rune('a' + i)),
			Status:    status,
			CreatedAt: time.Now().UTC(),
		}
		if err := jobs.Create(ctx, seed); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}

	resp, raw := doJSON(t, app, "GET", "/api/jobs?status=completed", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body model.JobListResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Count != 1 {
		t.Errorf("expected 1 completed job, got %d", body.Count)
	}
}

func TestVideoList(t *testing.T) {
	app, _, videos := testApp(t, &fakeGenerator{})

	seed := &model.Video{
		Title:           "t",
		SourceURL:       "https://example.test/a",
		FilePath:        "out/t.mp4",
		StorageLocation: model.StorageLocal,
		CreatedAt:       time.Now().UTC(),
	}
	if err := videos.Create(context.Background(), seed); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	resp, raw := doJSON(t, app, "GET", "/api/videos", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body model.VideoListResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Count != 1 {
		t.Errorf("expected 1 video, got %d", body.Count)
	}
}

func TestVideoDelete(t *testing.T) {
	app, _, videos := testApp(t, &fakeGenerator{})

	seed := &model.Video{Title: "t", SourceURL: "u", FilePath: "p", CreatedAt: time.Now().UTC()}
	if err := videos.Create(context.Background(), seed); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	resp, _ := doJSON(t, app, "DELETE", "/api/videos/1", "")
	if resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, app, "DELETE", "/api/videos/1", "")
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("double delete expected 404, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, app, "DELETE", "/api/videos/abc", "")
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("bad id expected 400, got %d", resp.StatusCode)
	}
}

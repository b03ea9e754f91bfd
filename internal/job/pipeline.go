package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/reelcraft/api/internal/cleanup"
	"github.com/reelcraft/api/internal/client"
	"github.com/reelcraft/api/internal/media"
	"github.com/reelcraft/api/internal/model"
	"github.com/reelcraft/api/internal/service"
	"github.com/reelcraft/api/internal/store"
	"github.com/reelcraft/api/pkg/logger"
)

// Pipeline runs the full article-to-video generation as one cancellable task
// and owns the per-URL reuse policy.
type Pipeline struct {
	manager    *Manager
	scripts    *service.ScriptService
	voice      *service.VoiceService
	assets     *service.AssetService
	assembler  *service.Assembler
	compositor *media.Compositor
	jobs       *store.JobStore
	videos     *store.VideoStore
	storage    client.StorageClient // nil when cloud storage is disabled
	cleaner    *cleanup.Cleaner
	log        *logger.Logger

	// group serializes the lookup-then-create for one URL; inflight keeps the
	// running generation visible for its whole lifetime, since the Video row
	// that the lookup checks for only appears at completion.
	group    singleflight.Group
	mu       sync.Mutex
	inflight map[string]string // url -> running job id
}

func NewPipeline(
	manager *Manager,
	scripts *service.ScriptService,
	voice *service.VoiceService,
	assets *service.AssetService,
	assembler *service.Assembler,
	compositor *media.Compositor,
	jobs *store.JobStore,
	videos *store.VideoStore,
	storage client.StorageClient,
	cleaner *cleanup.Cleaner,
	log *logger.Logger,
) *Pipeline {
	return &Pipeline{
		manager:    manager,
		scripts:    scripts,
		voice:      voice,
		assets:     assets,
		assembler:  assembler,
		compositor: compositor,
		jobs:       jobs,
		videos:     videos,
		storage:    storage,
		cleaner:    cleaner,
		log:        log,
		inflight:   make(map[string]string),
	}
}

type startResult struct {
	jobID  string
	reused bool
}

// Start begins a generation for the URL, or reuses the existing video if one
// was already generated for it. Reuse synthesizes an already-Completed job
// pointing at the existing video, so callers poll the same way either way.
// While a generation for the URL is still running, repeat requests attach to
// it and receive the running job's id instead of starting a second one.
func (p *Pipeline) Start(ctx context.Context, url string) (jobID string, reused bool, err error) {
	v, err, _ := p.group.Do(url, func() (interface{}, error) {
		p.mu.Lock()
		id, running := p.inflight[url]
		p.mu.Unlock()
		if running {
			return startResult{jobID: id}, nil
		}

		// The flight's outcome is shared by every waiter, so it must not
		// inherit any single caller's cancellation.
		flightCtx := context.Background()

		existing, err := p.videos.FindBySourceURL(flightCtx, url)
		switch {
		case err == nil:
			id, err := p.createReusedJob(flightCtx, existing)
			if err != nil {
				return nil, err
			}
			return startResult{jobID: id, reused: true}, nil
		case errors.Is(err, store.ErrNotFound):
			// The lock spans Create so the task's deferred release cannot
			// clear the inflight entry before it lands.
			p.mu.Lock()
			id, err := p.manager.Create(flightCtx, func(taskCtx context.Context, taskJobID string, report Reporter) error {
				defer p.release(url)
				return p.run(taskCtx, taskJobID, url, report)
			})
			if err != nil {
				p.mu.Unlock()
				return nil, err
			}
			p.inflight[url] = id
			p.mu.Unlock()
			return startResult{jobID: id}, nil
		default:
			return nil, err
		}
	})
	if err != nil {
		return "", false, err
	}
	res := v.(startResult)
	return res.jobID, res.reused, nil
}

// release drops the in-flight marker for a URL once its generation task has
// finished. By then the Video row exists for the lookup to find, or the
// generation failed and the URL may be retried.
func (p *Pipeline) release(url string) {
	p.mu.Lock()
	delete(p.inflight, url)
	p.mu.Unlock()
}

func (p *Pipeline) createReusedJob(ctx context.Context, video *model.Video) (string, error) {
	now := time.Now().UTC()
	j := &model.Job{
		ID:              uuid.New().String(),
		Status:          model.JobStatusCompleted,
		Progress:        100,
		ProgressMessage: "Video already generated for this URL",
		VideoID:         &video.ID,
		CreatedAt:       now,
		CompletedAt:     &now,
	}
	if err := p.jobs.Create(ctx, j); err != nil {
		return "", err
	}
	p.log.Info("reusing existing video", "video_id", video.ID, "job_id", j.ID)
	return j.ID, nil
}

// run is the generation task. Stages execute in strict sequence; the per-scene
// fan-outs live inside the voice and asset services.
func (p *Pipeline) run(ctx context.Context, jobID, url string, report Reporter) (err error) {
	var title string
	defer func() {
		if err != nil && title != "" {
			p.cleaner.SweepFailed(title)
		}
	}()

	report(5, "Extracting article content...")
	markdown, err := p.scripts.FetchContent(ctx, url)
	if err != nil {
		return err
	}
	report(10, "Article content extracted")

	report(15, "Generating video script...")
	script, err := p.scripts.GenerateScript(ctx, markdown)
	if err != nil {
		return err
	}
	title = script.Title
	report(25, fmt.Sprintf("Script generated with %d scenes", len(script.Scenes)))

	report(30, "Generating voice-over audio...")
	scenes, err := p.voice.Synthesize(ctx, script.Title, script.Scenes)
	if err != nil {
		return err
	}
	report(50, "Audio generation completed")

	report(55, "Downloading visual assets...")
	scenes, err = p.assets.Resolve(ctx, script.Title, scenes)
	if err != nil {
		return err
	}
	report(75, "Assets downloaded successfully")

	report(80, "Composing video...")
	plan, err := p.assembler.BuildPlan(ctx, script, scenes)
	if err != nil {
		return err
	}

	report(85, "Editing video with FFmpeg...")
	outputPath, err := p.compositor.Render(ctx, plan)
	if err != nil {
		return err
	}
	report(90, "Video editing completed")

	video, err := p.persistVideo(ctx, url, script, plan, outputPath)
	if err != nil {
		return err
	}
	if err := p.jobs.Update(ctx, jobID, map[string]interface{}{"video_id": video.ID}); err != nil {
		p.log.Error("failed to link video to job", "job_id", jobID, "video_id", video.ID, "error", err)
	}

	if p.storage != nil {
		report(92, "Uploading video to cloud storage...")
		p.uploadVideo(ctx, video, outputPath, report)
	} else {
		report(97, "Video saved locally")
	}

	p.cleaner.SweepGeneration(script.Title)
	report(100, "Video created successfully")
	return nil
}

func (p *Pipeline) persistVideo(ctx context.Context, url string, script *model.Script, plan *model.RenderPlan, outputPath string) (*model.Video, error) {
	duration := plan.TotalDuration()

	var sizeMB *float64
	if info, err := os.Stat(outputPath); err == nil {
		mb := float64(info.Size()) / (1024 * 1024)
		sizeMB = &mb
	}

	var scriptJSON *string
	if raw, err := json.Marshal(script); err == nil {
		s := string(raw)
		scriptJSON = &s
	}

	video := &model.Video{
		Title:           script.Title,
		SourceURL:       url,
		FilePath:        outputPath,
		StorageLocation: model.StorageLocal,
		Duration:        &duration,
		SizeMB:          sizeMB,
		ScriptJSON:      scriptJSON,
		CreatedAt:       time.Now().UTC(),
	}
	if err := p.videos.Create(ctx, video); err != nil {
		return nil, err
	}

	return video, nil
}

// uploadVideo is best-effort: a failed upload leaves the video on local
// storage and never fails the job.
func (p *Pipeline) uploadVideo(ctx context.Context, video *model.Video, outputPath string, report Reporter) {
	cloudURL, err := p.storage.UploadVideo(ctx, outputPath, video.ID)
	if err != nil {
		p.log.Warn("cloud upload failed, keeping local file", "video_id", video.ID, "error", err)
		report(97, "Using local video storage")
		return
	}

	err = p.videos.Update(ctx, video.ID, map[string]interface{}{
		"file_path":        cloudURL,
		"storage_location": model.StorageCloud,
	})
	if err != nil {
		p.log.Error("failed to record cloud location", "video_id", video.ID, "error", err)
		report(97, "Using local video storage")
		return
	}

	video.FilePath = cloudURL
	video.StorageLocation = model.StorageCloud
	report(97, "Video uploaded to cloud storage")
}

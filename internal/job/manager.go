package job

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/reelcraft/api/internal/model"
	"github.com/reelcraft/api/internal/store"
	"github.com/reelcraft/api/pkg/logger"
)

// Task is one job's unit of work. It reports progress through the callback
// and observes cancellation through the context.
type Task func(ctx context.Context, jobID string, report Reporter) error

// Reporter publishes a progress percentage and message for the running job.
type Reporter func(progress int, message string)

// Subscriber receives progress events for one job. Delivery is synchronous,
// best-effort and at-most-once per event; a panicking subscriber is isolated.
type Subscriber func(event model.ProgressEvent)

type subscription struct {
	id int
	fn Subscriber
}

// Manager runs each job as one goroutine, persists its lifecycle to the job
// store, and fans progress out to subscribers. The mutex guards only the
// structural maps and is never held across I/O.
type Manager struct {
	jobs *store.JobStore
	log  *logger.Logger

	mu           sync.Mutex
	cancels      map[string]context.CancelFunc
	subscribers  map[string][]subscription
	lastProgress map[string]int
	nextSubID    int
}

func NewManager(jobs *store.JobStore, log *logger.Logger) *Manager {
	return &Manager{
		jobs:         jobs,
		log:          log,
		cancels:      make(map[string]context.CancelFunc),
		subscribers:  make(map[string][]subscription),
		lastProgress: make(map[string]int),
	}
}

// Create persists a Pending job row and starts the task in its own goroutine.
// The task's context is detached from the caller's: an HTTP request ending
// must not cancel the generation it started.
func (m *Manager) Create(ctx context.Context, task Task) (string, error) {
	jobID := uuid.New().String()

	j := &model.Job{
		ID:              jobID,
		Status:          model.JobStatusPending,
		Progress:        0,
		ProgressMessage: "Job created",
		CreatedAt:       time.Now().UTC(),
	}
	if err := m.jobs.Create(ctx, j); err != nil {
		return "", err
	}

	runCtx, cancel := context.WithCancel(context.Background())

	m.mu.Lock()
	m.cancels[jobID] = cancel
	m.lastProgress[jobID] = 0
	m.mu.Unlock()

	go m.run(runCtx, jobID, task)

	m.log.Info("created job", "job_id", jobID)
	return jobID, nil
}

func (m *Manager) run(ctx context.Context, jobID string, task Task) {
	defer m.remove(jobID)

	now := time.Now().UTC()
	if err := m.jobs.Update(context.Background(), jobID, map[string]interface{}{
		"status":     model.JobStatusProcessing,
		"started_at": &now,
	}); err != nil {
		m.log.Error("failed to mark job processing", "job_id", jobID, "error", err)
	}

	report := func(progress int, message string) {
		m.reportProgress(jobID, progress, message)
	}

	err := task(ctx, jobID, report)

	done := time.Now().UTC()
	switch {
	case err == nil:
		// A nil return means the work fully finished, even if a cancel
		// landed in the window after it. Progress is forced to 100
		// regardless of the last reported value.
		m.finalize(jobID, map[string]interface{}{
			"status":           model.JobStatusCompleted,
			"progress":         100,
			"progress_message": "Job completed successfully",
			"completed_at":     &done,
		})
		m.log.Info("job completed", "job_id", jobID)

	case ctx.Err() != nil || errors.Is(err, context.Canceled):
		m.finalize(jobID, map[string]interface{}{
			"status":           model.JobStatusCancelled,
			"progress_message": "Job cancelled by user",
			"completed_at":     &done,
		})
		m.log.Info("job cancelled", "job_id", jobID)

	default:
		m.finalize(jobID, map[string]interface{}{
			"status":           model.JobStatusFailed,
			"error_message":    err.Error(),
			"progress_message": "Job failed: " + err.Error(),
			"completed_at":     &done,
		})
		m.log.Error("job failed", "job_id", jobID, "error", err)
	}
}

func (m *Manager) finalize(jobID string, columns map[string]interface{}) {
	if err := m.jobs.Update(context.Background(), jobID, columns); err != nil {
		m.log.Error("failed to finalize job", "job_id", jobID, "error", err)
	}
}

// remove drops the job's execution entry and subscriber list. Progress calls
// arriving after this point no-op.
func (m *Manager) remove(jobID string) {
	m.mu.Lock()
	if cancel, ok := m.cancels[jobID]; ok {
		cancel()
	}
	delete(m.cancels, jobID)
	delete(m.subscribers, jobID)
	delete(m.lastProgress, jobID)
	m.mu.Unlock()
}

// reportProgress persists a progress update and then notifies subscribers in
// registration order. Regressing progress values are dropped so observed
// progress is monotonic. Updates for unknown (already finished) jobs no-op.
func (m *Manager) reportProgress(jobID string, progress int, message string) {
	m.mu.Lock()
	last, active := m.lastProgress[jobID]
	if !active || progress < last {
		m.mu.Unlock()
		return
	}
	m.lastProgress[jobID] = progress
	subs := make([]subscription, len(m.subscribers[jobID]))
	copy(subs, m.subscribers[jobID])
	m.mu.Unlock()

	if err := m.jobs.Update(context.Background(), jobID, map[string]interface{}{
		"progress":         progress,
		"progress_message": message,
	}); err != nil {
		m.log.Error("failed to persist progress", "job_id", jobID, "error", err)
	}

	event := model.ProgressEvent{Progress: progress, Message: message}
	for _, sub := range subs {
		m.deliver(jobID, sub, event)
	}
}

// deliver isolates one subscriber: a panic is logged, not propagated, so a
// broken subscriber cannot break the job or its peers.
func (m *Manager) deliver(jobID string, sub subscription, event model.ProgressEvent) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("subscriber panicked", "job_id", jobID, "panic", r)
		}
	}()
	sub.fn(event)
}

// Cancel requests cooperative cancellation of a running job. It returns true
// if a running job was signalled; false if the job exists but already
// finished. Unknown job ids return store.ErrNotFound.
func (m *Manager) Cancel(ctx context.Context, jobID string) (bool, error) {
	m.mu.Lock()
	cancel, running := m.cancels[jobID]
	m.mu.Unlock()

	if running {
		cancel()
		m.log.Info("cancellation requested", "job_id", jobID)
		return true, nil
	}

	if _, err := m.jobs.Get(ctx, jobID); err != nil {
		return false, err
	}
	return false, nil
}

// GetStatus returns the persisted job row.
func (m *Manager) GetStatus(ctx context.Context, jobID string) (*model.Job, error) {
	return m.jobs.Get(ctx, jobID)
}

// List returns jobs newest-first, optionally filtered by status.
func (m *Manager) List(ctx context.Context, status *model.JobStatus, limit, offset int) ([]model.Job, error) {
	return m.jobs.List(ctx, status, limit, offset)
}

// Subscribe registers a progress callback for a job and returns a token for
// Unsubscribe. Subscribing to a finished job is accepted but never delivers;
// callers fetch current status separately to avoid missing history.
func (m *Manager) Subscribe(jobID string, fn Subscriber) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextSubID++
	id := m.nextSubID
	if _, running := m.cancels[jobID]; !running {
		// nothing will ever deliver; don't leak an entry for a finished job
		return id
	}
	m.subscribers[jobID] = append(m.subscribers[jobID], subscription{id: id, fn: fn})
	return id
}

// Unsubscribe removes one subscriber; others for the same job are unaffected.
func (m *Manager) Unsubscribe(jobID string, token int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	subs := m.subscribers[jobID]
	for i, sub := range subs {
		if sub.id == token {
			m.subscribers[jobID] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

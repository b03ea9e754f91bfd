package job

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/reelcraft/api/internal/model"
	"github.com/reelcraft/api/internal/store"
	"github.com/reelcraft/api/pkg/logger"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	db, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	return NewManager(store.NewJobStore(db), logger.NewNop())
}

func waitForTerminal(t *testing.T, m *Manager, jobID string) *model.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		j, err := m.GetStatus(context.Background(), jobID)
		if err != nil {
			t.Fatalf("get status failed: %v", err)
		}
		if j.Status.IsTerminal() {
			return j
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("job never reached a terminal state")
	return nil
}

func TestManager_SuccessfulJobForcesProgress100(t *testing.T) {
	m := testManager(t)

	jobID, err := m.Create(context.Background(), func(ctx context.Context, id string, report Reporter) error {
		report(40, "halfway-ish")
		return nil
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	j := waitForTerminal(t, m, jobID)
	if j.Status != model.JobStatusCompleted {
		t.Errorf("expected completed, got %s", j.Status)
	}
	if j.Progress != 100 {
		t.Errorf("completed job must have progress 100, got %d", j.Progress)
	}
	if j.CompletedAt == nil {
		t.Error("completed job must have completed_at set")
	}
	if j.StartedAt == nil {
		t.Error("processed job must have started_at set")
	}
}

func TestManager_FailedJobRecordsError(t *testing.T) {
	m := testManager(t)

	jobID, err := m.Create(context.Background(), func(ctx context.Context, id string, report Reporter) error {
		return fmt.Errorf("insufficient content: got 50 characters")
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	j := waitForTerminal(t, m, jobID)
	if j.Status != model.JobStatusFailed {
		t.Errorf("expected failed, got %s", j.Status)
	}
	if j.ErrorMessage == nil || *j.ErrorMessage == "" {
		t.Error("failed job must carry an error message")
	}
}

func TestManager_CancelRunningJob(t *testing.T) {
	m := testManager(t)

	started := make(chan struct{})
	jobID, err := m.Create(context.Background(), func(ctx context.Context, id string, report Reporter) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	<-started

	ok, err := m.Cancel(context.Background(), jobID)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if !ok {
		t.Error("cancel of a running job must return true")
	}

	j := waitForTerminal(t, m, jobID)
	if j.Status != model.JobStatusCancelled {
		t.Errorf("expected cancelled, got %s", j.Status)
	}
}

func TestManager_CancelAfterTaskSucceededStillCompletes(t *testing.T) {
	m := testManager(t)

	started := make(chan struct{})
	finish := make(chan struct{})
	jobID, err := m.Create(context.Background(), func(ctx context.Context, id string, report Reporter) error {
		close(started)
		<-finish
		return nil
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	<-started

	// Cancel lands while the task is still running, but the task finishes
	// its work and returns nil. The finished work wins.
	ok, err := m.Cancel(context.Background(), jobID)
	if err != nil || !ok {
		t.Fatalf("cancel failed: ok=%v err=%v", ok, err)
	}
	close(finish)

	j := waitForTerminal(t, m, jobID)
	if j.Status != model.JobStatusCompleted {
		t.Errorf("a task returning nil must finalize completed, got %s", j.Status)
	}
	if j.Progress != 100 {
		t.Errorf("completed job must have progress 100, got %d", j.Progress)
	}
}

func TestManager_CancelFinishedJobReturnsFalse(t *testing.T) {
	m := testManager(t)

	jobID, err := m.Create(context.Background(), func(ctx context.Context, id string, report Reporter) error {
		return nil
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	waitForTerminal(t, m, jobID)

	ok, err := m.Cancel(context.Background(), jobID)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if ok {
		t.Error("cancel of a finished job must return false")
	}
}

func TestManager_CancelUnknownJobReturnsNotFound(t *testing.T) {
	m := testManager(t)

	_, err := m.Cancel(context.Background(), "no-such-job")
	if err != store.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestManager_ProgressIsMonotonic(t *testing.T) {
	m := testManager(t)

	var mu sync.Mutex
	var events []int

	release := make(chan struct{})
	jobID, err := m.Create(context.Background(), func(ctx context.Context, id string, report Reporter) error {
		<-release
		report(50, "fifty")
		report(20, "regression, must be dropped")
		report(80, "eighty")
		return nil
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	m.Subscribe(jobID, func(e model.ProgressEvent) {
		mu.Lock()
		events = append(events, e.Progress)
		mu.Unlock()
	})
	close(release)

	waitForTerminal(t, m, jobID)

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(events); i++ {
		if events[i] < events[i-1] {
			t.Errorf("progress regressed: %v", events)
		}
	}
	for _, p := range events {
		if p == 20 {
			t.Errorf("regressing update was delivered: %v", events)
		}
	}
}

func TestManager_PanickingSubscriberDoesNotBreakPeers(t *testing.T) {
	m := testManager(t)

	var mu sync.Mutex
	var delivered []int

	release := make(chan struct{})
	jobID, err := m.Create(context.Background(), func(ctx context.Context, id string, report Reporter) error {
		<-release
		report(30, "thirty")
		return nil
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	m.Subscribe(jobID, func(e model.ProgressEvent) {
		panic("broken subscriber")
	})
	m.Subscribe(jobID, func(e model.ProgressEvent) {
		mu.Lock()
		delivered = append(delivered, e.Progress)
		mu.Unlock()
	})
	close(release)

	j := waitForTerminal(t, m, jobID)
	if j.Status != model.JobStatusCompleted {
		t.Errorf("job must survive a panicking subscriber, got %s", j.Status)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(delivered) == 0 {
		t.Error("second subscriber must still receive events")
	}
}

func TestManager_UnsubscribeLeavesOthersIntact(t *testing.T) {
	m := testManager(t)

	var mu sync.Mutex
	gotFirst := false
	gotSecond := false

	release := make(chan struct{})
	jobID, err := m.Create(context.Background(), func(ctx context.Context, id string, report Reporter) error {
		<-release
		report(10, "ten")
		return nil
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	first := m.Subscribe(jobID, func(e model.ProgressEvent) {
		mu.Lock()
		gotFirst = true
		mu.Unlock()
	})
	m.Subscribe(jobID, func(e model.ProgressEvent) {
		mu.Lock()
		gotSecond = true
		mu.Unlock()
	})
	m.Unsubscribe(jobID, first)
	close(release)

	waitForTerminal(t, m, jobID)

	mu.Lock()
	defer mu.Unlock()
	if gotFirst {
		t.Error("unsubscribed callback must not receive events")
	}
	if !gotSecond {
		t.Error("remaining subscriber must receive events")
	}
}

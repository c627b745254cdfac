package jobs

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/ternarybob/merx/internal/common"
	"github.com/ternarybob/merx/internal/models"
)

// memJobStorage is an in-memory JobStorage with the same claim semantics
// as the badger implementation
type memJobStorage struct {
	mu   sync.Mutex
	jobs map[string]*models.Job
}

func newMemJobStorage() *memJobStorage {
	return &memJobStorage{jobs: make(map[string]*models.Job)}
}

func (s *memJobStorage) CreateJob(ctx context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *job
	s.jobs[job.ID] = &copied
	return nil
}

func (s *memJobStorage) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, errors.New("job not found")
	}
	copied := *job
	return &copied, nil
}

func (s *memJobStorage) SaveJob(ctx context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *job
	if existing, ok := s.jobs[job.ID]; ok && existing.CancelRequested {
		copied.CancelRequested = true
	}
	s.jobs[job.ID] = &copied
	return nil
}

func (s *memJobStorage) ClaimNextPending(ctx context.Context) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var oldest *models.Job
	for _, job := range s.jobs {
		if job.Status != models.JobStatusPending {
			continue
		}
		if oldest == nil || job.CreatedAt.Before(oldest.CreatedAt) {
			oldest = job
		}
	}
	if oldest == nil {
		return nil, nil
	}
	if err := oldest.MarkProcessing(); err != nil {
		return nil, err
	}
	copied := *oldest
	return &copied, nil
}

func (s *memJobStorage) RequestCancel(ctx context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return errors.New("job not found")
	}
	if job.IsTerminal() {
		return nil
	}
	job.CancelRequested = true
	if job.Status == models.JobStatusPending {
		return job.MarkCancelled(nil)
	}
	return nil
}

func (s *memJobStorage) IsCancelRequested(ctx context.Context, jobID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return false, errors.New("job not found")
	}
	return job.CancelRequested, nil
}

func (s *memJobStorage) ListActiveJobs(ctx context.Context, userID string) ([]*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Job
	for _, job := range s.jobs {
		if job.UserID == userID && !job.IsTerminal() {
			copied := *job
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *memJobStorage) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, job := range s.jobs {
		if job.IsTerminal() && job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed, nil
}

// stubHandler executes a test-provided function for test_connection jobs
type stubHandler struct {
	jobType models.JobType
	execute func(ctx context.Context, jc *JobContext) (interface{}, error)
}

func (h *stubHandler) Type() models.JobType { return h.jobType }

func (h *stubHandler) Execute(ctx context.Context, jc *JobContext) (interface{}, error) {
	return h.execute(ctx, jc)
}

func testWorkersConfig() *common.WorkersConfig {
	return &common.WorkersConfig{
		Concurrency:  2,
		PollInterval: "10ms",
		JobTimeout:   "2s",
		RetentionAge: "1h",
	}
}

func waitForTerminal(t *testing.T, storage *memJobStorage, jobID string) *models.Job {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatalf("Job %s never reached a terminal state", jobID)
		case <-time.After(10 * time.Millisecond):
		}
		job, err := storage.GetJob(context.Background(), jobID)
		if err != nil {
			t.Fatalf("GetJob failed: %v", err)
		}
		if job.IsTerminal() {
			return job
		}
	}
}

func enqueue(t *testing.T, storage *memJobStorage, jobType models.JobType) *models.Job {
	t.Helper()
	job, err := models.NewJob("user-1", jobType, models.TestConnectionInput{Target: "all"})
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}
	if err := storage.CreateJob(context.Background(), job); err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}
	return job
}

func TestOrchestrator_CompletesJob(t *testing.T) {
	storage := newMemJobStorage()
	registry := NewHandlerRegistry(&stubHandler{
		jobType: models.JobTypeTestConnection,
		execute: func(ctx context.Context, jc *JobContext) (interface{}, error) {
			jc.ReportProgress(ctx, 50, "halfway")
			return models.TestConnectionOutput{Results: map[string]bool{"claude": true}}, nil
		},
	})
	orchestrator := NewOrchestrator(storage, registry, testWorkersConfig(), common.GetLogger())

	job := enqueue(t, storage, models.JobTypeTestConnection)
	orchestrator.Start(context.Background())
	defer orchestrator.Stop()

	final := waitForTerminal(t, storage, job.ID)
	if final.Status != models.JobStatusCompleted {
		t.Errorf("Expected completed, got %s (%s)", final.Status, final.Error)
	}
	if final.Progress != 100 {
		t.Errorf("Expected progress 100, got %d", final.Progress)
	}
	if len(final.Output) == 0 {
		t.Error("Expected output payload")
	}
}

func TestOrchestrator_CancellationAtCheckpoint(t *testing.T) {
	storage := newMemJobStorage()
	started := make(chan string, 1)
	release := make(chan struct{})

	registry := NewHandlerRegistry(&stubHandler{
		jobType: models.JobTypeTestConnection,
		execute: func(ctx context.Context, jc *JobContext) (interface{}, error) {
			started <- jc.Job().ID
			<-release
			if err := jc.Checkpoint(ctx); err != nil {
				return nil, err
			}
			return models.TestConnectionOutput{}, nil
		},
	})
	orchestrator := NewOrchestrator(storage, registry, testWorkersConfig(), common.GetLogger())

	job := enqueue(t, storage, models.JobTypeTestConnection)
	orchestrator.Start(context.Background())
	defer orchestrator.Stop()

	jobID := <-started
	if err := storage.RequestCancel(context.Background(), jobID); err != nil {
		t.Fatalf("RequestCancel failed: %v", err)
	}
	close(release)

	final := waitForTerminal(t, storage, job.ID)
	if final.Status != models.JobStatusCancelled {
		t.Errorf("Expected cancelled, got %s", final.Status)
	}
}

func TestOrchestrator_PanicFailsJobNotWorker(t *testing.T) {
	storage := newMemJobStorage()
	calls := 0
	var mu sync.Mutex

	registry := NewHandlerRegistry(&stubHandler{
		jobType: models.JobTypeTestConnection,
		execute: func(ctx context.Context, jc *JobContext) (interface{}, error) {
			mu.Lock()
			calls++
			first := calls == 1
			mu.Unlock()
			if first {
				panic("boom")
			}
			return models.TestConnectionOutput{}, nil
		},
	})
	orchestrator := NewOrchestrator(storage, registry, testWorkersConfig(), common.GetLogger())

	first := enqueue(t, storage, models.JobTypeTestConnection)
	orchestrator.Start(context.Background())
	defer orchestrator.Stop()

	failed := waitForTerminal(t, storage, first.ID)
	if failed.Status != models.JobStatusFailed {
		t.Errorf("Expected failed after panic, got %s", failed.Status)
	}

	// The pool must survive and execute the next job
	second := enqueue(t, storage, models.JobTypeTestConnection)
	completed := waitForTerminal(t, storage, second.ID)
	if completed.Status != models.JobStatusCompleted {
		t.Errorf("Expected the pool to keep working after a panic, got %s", completed.Status)
	}
}

func TestOrchestrator_JobTimeout(t *testing.T) {
	storage := newMemJobStorage()
	config := testWorkersConfig()
	config.JobTimeout = "50ms"

	registry := NewHandlerRegistry(&stubHandler{
		jobType: models.JobTypeTestConnection,
		execute: func(ctx context.Context, jc *JobContext) (interface{}, error) {
			select {
			case <-time.After(2 * time.Second):
			case <-ctx.Done():
			}
			return nil, jc.Checkpoint(ctx)
		},
	})
	orchestrator := NewOrchestrator(storage, registry, config, common.GetLogger())

	job := enqueue(t, storage, models.JobTypeTestConnection)
	orchestrator.Start(context.Background())
	defer orchestrator.Stop()

	final := waitForTerminal(t, storage, job.ID)
	if final.Status != models.JobStatusFailed {
		t.Errorf("Expected failed on timeout, got %s", final.Status)
	}
}

func TestOrchestrator_EachJobClaimedOnce(t *testing.T) {
	storage := newMemJobStorage()
	var mu sync.Mutex
	executed := make(map[string]int)

	registry := NewHandlerRegistry(&stubHandler{
		jobType: models.JobTypeTestConnection,
		execute: func(ctx context.Context, jc *JobContext) (interface{}, error) {
			mu.Lock()
			executed[jc.Job().ID]++
			mu.Unlock()
			return models.TestConnectionOutput{}, nil
		},
	})
	config := testWorkersConfig()
	config.Concurrency = 4
	orchestrator := NewOrchestrator(storage, registry, config, common.GetLogger())

	var ids []string
	for i := 0; i < 20; i++ {
		job := enqueue(t, storage, models.JobTypeTestConnection)
		ids = append(ids, job.ID)
	}

	orchestrator.Start(context.Background())
	defer orchestrator.Stop()

	for _, id := range ids {
		waitForTerminal(t, storage, id)
	}

	mu.Lock()
	defer mu.Unlock()
	sort.Strings(ids)
	for _, id := range ids {
		if executed[id] != 1 {
			t.Errorf("Job %s executed %d times", id, executed[id])
		}
	}
}

func TestHandlerRegistry_UnknownType(t *testing.T) {
	registry := NewHandlerRegistry()
	if _, err := registry.Resolve(models.JobTypeDiscoverPrices); !errors.Is(err, common.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

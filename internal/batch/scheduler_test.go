package batch

import (
	"context"
	"sync"
	"testing"

	"github.com/valpere/qualitran/internal"
	"github.com/valpere/qualitran/internal/quality"
)

type fakeEvaluator struct {
	mu     sync.Mutex
	cached map[string]bool
	ran    [][]string
}

func (f *fakeEvaluator) CachedScore(_ context.Context, id string) (*internal.QualityScore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cached[id] {
		return &internal.QualityScore{TranslationID: id, Cached: true}, nil
	}
	return nil, nil
}

func (f *fakeEvaluator) EvaluateBatch(_ context.Context, ids []string, _ quality.Options) *quality.BatchResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ran = append(f.ran, ids)
	result := &quality.BatchResult{Results: make(map[string]*internal.QualityScore, len(ids))}
	for _, id := range ids {
		result.Results[id] = &internal.QualityScore{TranslationID: id}
	}
	return result
}

type fakeJobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{jobs: make(map[string]*Job)}
}

func (f *fakeJobStore) CreateJob(_ context.Context, job *Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *job
	f.jobs[job.ID] = &copied
	return nil
}

func (f *fakeJobStore) UpdateJob(_ context.Context, job *Job) error {
	return f.CreateJob(context.Background(), job)
}

func (f *fakeJobStore) Job(_ context.Context, jobID string) (*Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if job, ok := f.jobs[jobID]; ok {
		copied := *job
		return &copied, nil
	}
	return nil, &internal.NotFoundError{Kind: "evaluation job", ID: jobID}
}

func TestSchedulePrefiltersCacheHits(t *testing.T) {
	evaluator := &fakeEvaluator{cached: map[string]bool{"t1": true, "t3": true}}
	store := newFakeJobStore()
	s := NewScheduler(evaluator, store, nil)

	receipt, err := s.Schedule(context.Background(), []string{"t1", "t2", "t3", "t4"}, quality.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if receipt.Total != 4 || receipt.Cached != 2 || receipt.Queued != 2 {
		t.Errorf("unexpected receipt: %+v", receipt)
	}
	if receipt.JobID == "" {
		t.Error("expected a job id")
	}

	job, err := store.Job(context.Background(), receipt.JobID)
	if err != nil {
		t.Fatalf("job not persisted: %v", err)
	}
	if len(job.Queued) != 2 || job.Queued[0] != "t2" || job.Queued[1] != "t4" {
		t.Errorf("queue must keep caller order of uncached pairs, got %v", job.Queued)
	}
	if job.Status != StatusPending {
		t.Errorf("expected pending status, got %s", job.Status)
	}
}

func TestScheduleForceAIQueuesEverything(t *testing.T) {
	evaluator := &fakeEvaluator{cached: map[string]bool{"t1": true, "t2": true}}
	s := NewScheduler(evaluator, newFakeJobStore(), nil)

	receipt, err := s.Schedule(context.Background(), []string{"t1", "t2"}, quality.Options{ForceAI: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if receipt.Queued != 2 || receipt.Cached != 0 {
		t.Errorf("force-AI must queue every pair, got %+v", receipt)
	}
}

func TestScheduleAllCached(t *testing.T) {
	evaluator := &fakeEvaluator{cached: map[string]bool{"t1": true, "t2": true}}
	s := NewScheduler(evaluator, newFakeJobStore(), nil)

	receipt, err := s.Schedule(context.Background(), []string{"t1", "t2"}, quality.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if receipt.Queued != 0 || receipt.Cached != 2 {
		t.Errorf("expected an empty queue, got %+v", receipt)
	}
}

func TestRunExecutesQueuedPairs(t *testing.T) {
	evaluator := &fakeEvaluator{cached: map[string]bool{"t1": true}}
	store := newFakeJobStore()
	s := NewScheduler(evaluator, store, nil)

	receipt, err := s.Schedule(context.Background(), []string{"t1", "t2", "t3"}, quality.Options{})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}

	result, err := s.Run(context.Background(), receipt.JobID, quality.Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result.Results) != 2 {
		t.Errorf("expected 2 scores, got %d", len(result.Results))
	}
	if len(evaluator.ran) != 1 || len(evaluator.ran[0]) != 2 {
		t.Errorf("expected one batch of the 2 queued pairs, got %v", evaluator.ran)
	}

	job, err := store.Job(context.Background(), receipt.JobID)
	if err != nil {
		t.Fatalf("job lookup: %v", err)
	}
	if job.Status != StatusCompleted {
		t.Errorf("expected completed status, got %s", job.Status)
	}
}

func TestRunUnknownJob(t *testing.T) {
	s := NewScheduler(&fakeEvaluator{}, newFakeJobStore(), nil)
	if _, err := s.Run(context.Background(), "nope", quality.Options{}); err == nil {
		t.Error("expected error for unknown job")
	}
}

// Package batch schedules quality evaluation over whole translation sets.
// A read-only pre-filter first splits the set into cache hits and pairs that
// need work, so a job's receipt tells the caller up front how much of the
// batch is already paid for.
package batch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/valpere/qualitran/internal"
	"github.com/valpere/qualitran/internal/quality"
)

// Status is the lifecycle state of an evaluation job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Job is one scheduled evaluation batch.
type Job struct {
	ID        string    `json:"id"`
	Status    Status    `json:"status"`
	Queued    []string  `json:"queued"`
	Total     int       `json:"total"`
	Cached    int       `json:"cached"`
	Failed    int       `json:"failed"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Receipt summarizes what scheduling decided before any evaluation ran.
type Receipt struct {
	JobID  string `json:"job_id"`
	Total  int    `json:"total"`
	Cached int    `json:"cached"`
	Queued int    `json:"queued"`
}

// Evaluator is the slice of the orchestrator the scheduler needs.
type Evaluator interface {
	CachedScore(ctx context.Context, translationID string) (*internal.QualityScore, error)
	EvaluateBatch(ctx context.Context, translationIDs []string, opts quality.Options) *quality.BatchResult
}

// JobStore persists job records across the schedule/run boundary.
type JobStore interface {
	CreateJob(ctx context.Context, job *Job) error
	UpdateJob(ctx context.Context, job *Job) error
	Job(ctx context.Context, jobID string) (*Job, error)
}

// Scheduler turns translation sets into evaluation jobs.
type Scheduler struct {
	evaluator Evaluator
	jobs      JobStore
	logger    *slog.Logger
}

func NewScheduler(evaluator Evaluator, jobs JobStore, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{evaluator: evaluator, jobs: jobs, logger: logger}
}

// Schedule pre-filters the set and records a job holding only the pairs that
// actually need evaluation. The pre-filter performs reads only, so every
// lookup runs in parallel. Under force-AI the cache split is skipped: a valid
// cache entry still wins inside evaluation, but the caller asked for every
// pair to be attempted.
func (s *Scheduler) Schedule(ctx context.Context, translationIDs []string, opts quality.Options) (*Receipt, error) {
	queued := translationIDs
	cached := 0

	if !opts.ForceAI {
		var err error
		queued, cached, err = s.prefilter(ctx, translationIDs)
		if err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	job := &Job{
		ID:        uuid.NewString(),
		Status:    StatusPending,
		Queued:    queued,
		Total:     len(translationIDs),
		Cached:    cached,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.jobs.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	s.logger.Info("evaluation job scheduled",
		"job", job.ID, "total", job.Total, "cached", job.Cached, "queued", len(queued))

	return &Receipt{
		JobID:  job.ID,
		Total:  job.Total,
		Cached: job.Cached,
		Queued: len(queued),
	}, nil
}

func (s *Scheduler) prefilter(ctx context.Context, translationIDs []string) (queued []string, cached int, err error) {
	var mu sync.Mutex
	needed := make(map[string]bool, len(translationIDs))

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range translationIDs {
		id := id
		g.Go(func() error {
			score, err := s.evaluator.CachedScore(gctx, id)
			if err != nil {
				return err
			}
			mu.Lock()
			needed[id] = score == nil
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	// Preserve the caller's ordering in the queue.
	for _, id := range translationIDs {
		if needed[id] {
			queued = append(queued, id)
		} else {
			cached++
		}
	}
	return queued, cached, nil
}

// Run executes a scheduled job through the orchestrator's bounded window and
// records the outcome on the job record.
func (s *Scheduler) Run(ctx context.Context, jobID string, opts quality.Options) (*quality.BatchResult, error) {
	job, err := s.jobs.Job(ctx, jobID)
	if err != nil {
		return nil, err
	}

	job.Status = StatusRunning
	job.UpdatedAt = time.Now().UTC()
	if err := s.jobs.UpdateJob(ctx, job); err != nil {
		return nil, err
	}

	result := s.evaluator.EvaluateBatch(ctx, job.Queued, opts)

	job.Status = StatusCompleted
	job.Failed = len(result.Failures)
	if len(result.Results) == 0 && len(result.Failures) > 0 {
		job.Status = StatusFailed
	}
	job.UpdatedAt = time.Now().UTC()
	if err := s.jobs.UpdateJob(ctx, job); err != nil {
		return nil, err
	}

	s.logger.Info("evaluation job finished",
		"job", job.ID, "status", job.Status, "scored", len(result.Results), "failed", job.Failed)
	return result, nil
}

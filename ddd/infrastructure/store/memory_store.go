package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"transcode-jobs/ddd/domain/entity"
	"transcode-jobs/ddd/domain/repo"
	"transcode-jobs/ddd/domain/vo"
)

// TransitionHook observes committed mutations. Hooks receive a snapshot and
// run outside the store lock, after the commit; per-job ordering follows the
// state machine because only one writer wins each transition.
type TransitionHook func(job *entity.Job)

// MemoryJobStore is the authoritative in-process job store. Every mutation
// funnels through CompareAndTransition under one mutex, which is what makes
// completion-vs-timeout-vs-cancellation races single-winner.
type MemoryJobStore struct {
	mu    sync.RWMutex
	jobs  map[string]*entity.Job
	hooks []TransitionHook
}

// NewMemoryJobStore creates an empty store with optional transition hooks.
func NewMemoryJobStore(hooks ...TransitionHook) *MemoryJobStore {
	return &MemoryJobStore{
		jobs:  make(map[string]*entity.Job),
		hooks: hooks,
	}
}

// Create inserts a new job record.
func (s *MemoryJobStore) Create(ctx context.Context, job *entity.Job) error {
	s.mu.Lock()
	if _, ok := s.jobs[job.ID]; ok {
		s.mu.Unlock()
		return repo.ErrDuplicateID
	}
	s.jobs[job.ID] = job.Clone()
	snapshot := job.Clone()
	s.mu.Unlock()

	s.notify(snapshot)
	return nil
}

// Get returns a snapshot of the job.
func (s *MemoryJobStore) Get(ctx context.Context, id string) (*entity.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, repo.ErrJobNotFound
	}
	return job.Clone(), nil
}

// CompareAndTransition atomically applies the state change iff the current
// state equals expected.
func (s *MemoryJobStore) CompareAndTransition(ctx context.Context, id string, expected, next vo.JobState, fields repo.TransitionFields) (bool, error) {
	s.mu.Lock()
	job, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return false, repo.ErrJobNotFound
	}
	if job.State != expected {
		s.mu.Unlock()
		return false, nil
	}

	job.State = next
	if fields.StartedAt != nil {
		t := *fields.StartedAt
		job.StartedAt = &t
	}
	if fields.EndedAt != nil {
		t := *fields.EndedAt
		job.EndedAt = &t
	}
	if fields.Artifact != nil {
		a := *fields.Artifact
		job.Artifact = &a
	}
	if fields.ErrorDetail != "" {
		job.ErrorDetail = fields.ErrorDetail
	}
	snapshot := job.Clone()
	s.mu.Unlock()

	s.notify(snapshot)
	return true, nil
}

// List returns snapshots filtered by state, oldest first.
func (s *MemoryJobStore) List(ctx context.Context, state vo.JobState, limit int) ([]*entity.Job, error) {
	s.mu.RLock()
	out := make([]*entity.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		if state != "" && job.State != state {
			continue
		}
		out = append(out, job.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// EvictTerminalBefore removes terminal jobs that ended before the cutoff.
func (s *MemoryJobStore) EvictTerminalBefore(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for id, job := range s.jobs {
		if !job.IsTerminal() {
			continue
		}
		if job.EndedAt != nil && job.EndedAt.Before(cutoff) {
			delete(s.jobs, id)
			evicted++
		}
	}
	return evicted, nil
}

func (s *MemoryJobStore) notify(snapshot *entity.Job) {
	for _, h := range s.hooks {
		h(snapshot)
	}
}

var _ repo.JobStore = (*MemoryJobStore)(nil)

package repo

import (
	"context"
	"errors"
	"time"

	"transcode-jobs/ddd/domain/entity"
	"transcode-jobs/ddd/domain/vo"
)

// ErrDuplicateID is returned when a job id is created twice.
var ErrDuplicateID = errors.New("job id already exists")

// ErrJobNotFound is returned when no job record exists for an id.
var ErrJobNotFound = errors.New("job not found")

// TransitionFields carries the fields written together with a state change.
// Nil fields are left untouched.
type TransitionFields struct {
	StartedAt   *time.Time
	EndedAt     *time.Time
	Artifact    *vo.ArtifactRef
	ErrorDetail string
}

// JobStore is the single source of truth for job records. All mutation after
// creation funnels through CompareAndTransition, which is atomic with
// respect to every other caller: concurrent terminal writers cannot both
// win.
type JobStore interface {
	// Create inserts a new job record; fails with ErrDuplicateID when the
	// id is already present.
	Create(ctx context.Context, job *entity.Job) error

	// Get returns a snapshot of the job, or ErrJobNotFound.
	Get(ctx context.Context, id string) (*entity.Job, error)

	// CompareAndTransition atomically moves the job from expected to next
	// and applies fields. It returns false without touching the record when
	// the current state differs from expected.
	CompareAndTransition(ctx context.Context, id string, expected, next vo.JobState, fields TransitionFields) (bool, error)

	// List returns snapshots filtered by state; the zero state matches all.
	// Results are ordered by creation time, oldest first.
	List(ctx context.Context, state vo.JobState, limit int) ([]*entity.Job, error)

	// EvictTerminalBefore removes terminal jobs that ended before the
	// cutoff, returning how many were evicted.
	EvictTerminalBefore(ctx context.Context, cutoff time.Time) (int, error)
}

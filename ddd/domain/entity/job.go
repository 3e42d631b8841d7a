package entity

import (
	"time"

	"github.com/google/uuid"

	"transcode-jobs/ddd/domain/vo"
)

// Job is one transcode request and its tracked lifecycle. The job store is
// the only writer after creation; everything it hands out is a snapshot.
type Job struct {
	ID          string             `json:"id"`
	Input       vo.InputSource     `json:"input"`
	Params      vo.TranscodeParams `json:"params"`
	Deadline    time.Duration      `json:"deadline"`
	State       vo.JobState        `json:"state"`
	CreatedAt   time.Time          `json:"created_at"`
	StartedAt   *time.Time         `json:"started_at,omitempty"`
	EndedAt     *time.Time         `json:"ended_at,omitempty"`
	Artifact    *vo.ArtifactRef    `json:"artifact,omitempty"`
	ErrorDetail string             `json:"error_detail,omitempty"`
}

// NewJob creates a queued job with a fresh id. The deadline is the per-job
// runtime ceiling already clamped by the caller.
func NewJob(input vo.InputSource, params vo.TranscodeParams, deadline time.Duration) *Job {
	return &Job{
		ID:        uuid.New().String(),
		Input:     input,
		Params:    params,
		Deadline:  deadline,
		State:     vo.JobStateQueued,
		CreatedAt: time.Now(),
	}
}

// IsTerminal reports whether the job reached a final state.
func (j *Job) IsTerminal() bool {
	return j.State.IsTerminal()
}

// Clone returns an independent snapshot of the job.
func (j *Job) Clone() *Job {
	c := *j
	if j.StartedAt != nil {
		t := *j.StartedAt
		c.StartedAt = &t
	}
	if j.EndedAt != nil {
		t := *j.EndedAt
		c.EndedAt = &t
	}
	if j.Artifact != nil {
		a := *j.Artifact
		c.Artifact = &a
	}
	return &c
}

package vo

// JobState is the lifecycle state of a transcode job.
type JobState string

const (
	// JobStateQueued means the job is admitted and waiting for a worker slot.
	JobStateQueued JobState = "queued"
	// JobStateRunning means a worker slot owns the job and drives ffmpeg.
	JobStateRunning JobState = "running"
	// JobStateSucceeded means the external tool exited 0 and the artifact is stored.
	JobStateSucceeded JobState = "succeeded"
	// JobStateFailed means the external tool failed or the job was never admitted.
	JobStateFailed JobState = "failed"
	// JobStateTimedOut means the per-job deadline expired and the process was terminated.
	JobStateTimedOut JobState = "timed_out"
	// JobStateCancelled means the caller cancelled the job.
	JobStateCancelled JobState = "cancelled"
)

// IsValid checks whether the state is a known value.
func (s JobState) IsValid() bool {
	switch s {
	case JobStateQueued, JobStateRunning, JobStateSucceeded,
		JobStateFailed, JobStateTimedOut, JobStateCancelled:
		return true
	default:
		return false
	}
}

// String returns the state string.
func (s JobState) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition may occur.
func (s JobState) IsTerminal() bool {
	switch s {
	case JobStateSucceeded, JobStateFailed, JobStateTimedOut, JobStateCancelled:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks whether the target state is reachable in one step.
// Queued jobs may be cancelled before ever running, or failed when admission
// is refused; running jobs may reach any terminal state. Terminal states have
// no outgoing edges.
func (s JobState) CanTransitionTo(target JobState) bool {
	switch s {
	case JobStateQueued:
		return target == JobStateRunning || target == JobStateCancelled || target == JobStateFailed
	case JobStateRunning:
		return target.IsTerminal()
	default:
		return false
	}
}

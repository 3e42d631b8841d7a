package vo

import "testing"

// TestJobStateTransitions exercises the full transition matrix.
func TestJobStateTransitions(t *testing.T) {
	terminal := []JobState{JobStateSucceeded, JobStateFailed, JobStateTimedOut, JobStateCancelled}

	for _, target := range terminal {
		if !JobStateRunning.CanTransitionTo(target) {
			t.Errorf("running -> %s should be allowed", target)
		}
	}

	if !JobStateQueued.CanTransitionTo(JobStateRunning) {
		t.Error("queued -> running should be allowed")
	}
	if !JobStateQueued.CanTransitionTo(JobStateCancelled) {
		t.Error("queued -> cancelled should be allowed")
	}
	if !JobStateQueued.CanTransitionTo(JobStateFailed) {
		t.Error("queued -> failed should be allowed")
	}
	if JobStateQueued.CanTransitionTo(JobStateSucceeded) {
		t.Error("queued -> succeeded must not be allowed")
	}

	// terminal states have no outgoing edges
	for _, from := range terminal {
		for _, to := range []JobState{JobStateQueued, JobStateRunning, JobStateSucceeded, JobStateFailed, JobStateTimedOut, JobStateCancelled} {
			if from.CanTransitionTo(to) {
				t.Errorf("%s -> %s must not be allowed", from, to)
			}
		}
	}
}

// TestJobStateClassification verifies IsTerminal and IsValid.
func TestJobStateClassification(t *testing.T) {
	if JobStateQueued.IsTerminal() || JobStateRunning.IsTerminal() {
		t.Error("queued/running must not be terminal")
	}
	for _, s := range []JobState{JobStateSucceeded, JobStateFailed, JobStateTimedOut, JobStateCancelled} {
		if !s.IsTerminal() {
			t.Errorf("%s must be terminal", s)
		}
	}
	if JobState("exploded").IsValid() {
		t.Error("unknown state must be invalid")
	}
	if !JobStateTimedOut.IsValid() {
		t.Error("timed_out must be valid")
	}
}

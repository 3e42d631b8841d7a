package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"transcode-jobs/ddd/domain/entity"
	"transcode-jobs/ddd/domain/repo"
	"transcode-jobs/ddd/domain/vo"
)

func newTestJob() *entity.Job {
	params, _ := vo.NewTranscodeParams("h264", "mp4", "", "1000k", "")
	return entity.NewJob(vo.InputSource{LocalPath: "/tmp/in.mp4"}, *params, time.Minute)
}

// TestCreateAndGet verifies round-trip and snapshot isolation.
func TestCreateAndGet(t *testing.T) {
	s := NewMemoryJobStore()
	job := newTestJob()

	if err := s.Create(context.Background(), job); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.Get(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.State != vo.JobStateQueued {
		t.Fatalf("state = %s, want queued", got.State)
	}

	// mutating the snapshot must not leak into the store
	got.State = vo.JobStateRunning
	again, _ := s.Get(context.Background(), job.ID)
	if again.State != vo.JobStateQueued {
		t.Fatal("snapshot mutation leaked into store")
	}
}

// TestCreateDuplicate verifies the duplicate-id error.
func TestCreateDuplicate(t *testing.T) {
	s := NewMemoryJobStore()
	job := newTestJob()

	if err := s.Create(context.Background(), job); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Create(context.Background(), job); err != repo.ErrDuplicateID {
		t.Fatalf("second create error = %v, want ErrDuplicateID", err)
	}
}

// TestGetUnknown verifies the not-found error.
func TestGetUnknown(t *testing.T) {
	s := NewMemoryJobStore()
	if _, err := s.Get(context.Background(), "nope"); err != repo.ErrJobNotFound {
		t.Fatalf("error = %v, want ErrJobNotFound", err)
	}
}

// TestCompareAndTransition verifies the guarded state change.
func TestCompareAndTransition(t *testing.T) {
	s := NewMemoryJobStore()
	job := newTestJob()
	if err := s.Create(context.Background(), job); err != nil {
		t.Fatalf("create: %v", err)
	}

	now := time.Now()
	ok, err := s.CompareAndTransition(context.Background(), job.ID, vo.JobStateQueued, vo.JobStateRunning, repo.TransitionFields{StartedAt: &now})
	if err != nil || !ok {
		t.Fatalf("transition = (%v, %v), want success", ok, err)
	}

	// wrong expected state must be a no-op
	ok, err = s.CompareAndTransition(context.Background(), job.ID, vo.JobStateQueued, vo.JobStateCancelled, repo.TransitionFields{})
	if err != nil {
		t.Fatalf("transition err: %v", err)
	}
	if ok {
		t.Fatal("transition with stale expected state should fail")
	}

	got, _ := s.Get(context.Background(), job.ID)
	if got.State != vo.JobStateRunning {
		t.Fatalf("state = %s, want running", got.State)
	}
	if got.StartedAt == nil {
		t.Fatal("startedAt not applied")
	}
}

// TestConcurrentTerminalWriters verifies that exactly one racer wins the
// terminal transition.
func TestConcurrentTerminalWriters(t *testing.T) {
	s := NewMemoryJobStore()
	job := newTestJob()
	if err := s.Create(context.Background(), job); err != nil {
		t.Fatalf("create: %v", err)
	}
	now := time.Now()
	if ok, _ := s.CompareAndTransition(context.Background(), job.ID, vo.JobStateQueued, vo.JobStateRunning, repo.TransitionFields{StartedAt: &now}); !ok {
		t.Fatal("setup transition failed")
	}

	terminals := []vo.JobState{vo.JobStateSucceeded, vo.JobStateTimedOut, vo.JobStateCancelled, vo.JobStateFailed}
	var wg sync.WaitGroup
	wins := make(chan vo.JobState, len(terminals))
	for _, target := range terminals {
		wg.Add(1)
		go func(target vo.JobState) {
			defer wg.Done()
			end := time.Now()
			ok, err := s.CompareAndTransition(context.Background(), job.ID, vo.JobStateRunning, target, repo.TransitionFields{EndedAt: &end})
			if err != nil {
				t.Errorf("transition err: %v", err)
				return
			}
			if ok {
				wins <- target
			}
		}(target)
	}
	wg.Wait()
	close(wins)

	var winners []vo.JobState
	for w := range wins {
		winners = append(winners, w)
	}
	if len(winners) != 1 {
		t.Fatalf("winners = %v, want exactly one", winners)
	}
	got, _ := s.Get(context.Background(), job.ID)
	if got.State != winners[0] {
		t.Fatalf("state = %s, want %s", got.State, winners[0])
	}
}

// TestTransitionHooks verifies hooks observe committed snapshots.
func TestTransitionHooks(t *testing.T) {
	var mu sync.Mutex
	var seen []vo.JobState
	s := NewMemoryJobStore(func(j *entity.Job) {
		mu.Lock()
		seen = append(seen, j.State)
		mu.Unlock()
	})

	job := newTestJob()
	if err := s.Create(context.Background(), job); err != nil {
		t.Fatalf("create: %v", err)
	}
	end := time.Now()
	if ok, _ := s.CompareAndTransition(context.Background(), job.ID, vo.JobStateQueued, vo.JobStateCancelled, repo.TransitionFields{EndedAt: &end}); !ok {
		t.Fatal("transition failed")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[0] != vo.JobStateQueued || seen[1] != vo.JobStateCancelled {
		t.Fatalf("hook sequence = %v", seen)
	}
}

// TestEvictTerminalBefore verifies retention eviction only touches old
// terminal jobs.
func TestEvictTerminalBefore(t *testing.T) {
	s := NewMemoryJobStore()
	old := newTestJob()
	if err := s.Create(context.Background(), old); err != nil {
		t.Fatalf("create: %v", err)
	}
	past := time.Now().Add(-2 * time.Hour)
	if ok, _ := s.CompareAndTransition(context.Background(), old.ID, vo.JobStateQueued, vo.JobStateCancelled, repo.TransitionFields{EndedAt: &past}); !ok {
		t.Fatal("transition failed")
	}

	active := newTestJob()
	if err := s.Create(context.Background(), active); err != nil {
		t.Fatalf("create: %v", err)
	}

	n, err := s.EvictTerminalBefore(context.Background(), time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("evict: %v", err)
	}
	if n != 1 {
		t.Fatalf("evicted = %d, want 1", n)
	}
	if _, err := s.Get(context.Background(), old.ID); err != repo.ErrJobNotFound {
		t.Fatal("old terminal job should be gone")
	}
	if _, err := s.Get(context.Background(), active.ID); err != nil {
		t.Fatal("active job should remain")
	}
}

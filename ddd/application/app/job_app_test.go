package app

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"transcode-jobs/ddd/application/cqe"
	"transcode-jobs/ddd/domain/entity"
	"transcode-jobs/ddd/domain/port"
	"transcode-jobs/ddd/domain/repo"
	"transcode-jobs/ddd/domain/vo"
	"transcode-jobs/ddd/infrastructure/queue"
	"transcode-jobs/ddd/infrastructure/store"
	"transcode-jobs/ddd/infrastructure/worker"
	"transcode-jobs/pkg/config"
	"transcode-jobs/pkg/errno"
)

type stubExecutor struct {
	fn func(ctx context.Context, job *entity.Job, cancel <-chan struct{}) port.Outcome
}

func (s *stubExecutor) Execute(ctx context.Context, job *entity.Job, cancel <-chan struct{}) port.Outcome {
	return s.fn(ctx, job, cancel)
}

type fixture struct {
	app   JobApp
	store *store.MemoryJobStore
	queue *queue.MemoryAdmissionQueue
	pool  *worker.Pool
}

func newFixture(t *testing.T, queueCap int, exec port.TranscodeExecutor) *fixture {
	t.Helper()
	cfg := &config.Config{
		Transcode: config.TranscodeConfig{
			FFmpeg: config.FFmpegConfig{Timeout: 100 * time.Second, GracePeriod: time.Second},
		},
		Worker: config.WorkerConfig{
			PoolSize:            1,
			QueueCapacity:       queueCap,
			ShutdownGracePeriod: 2 * time.Second,
		},
	}
	s := store.NewMemoryJobStore()
	q := queue.NewMemoryAdmissionQueue(queueCap)
	p := worker.NewPool(cfg, s, q, exec)
	return &fixture{
		app:   NewJobAppWith(cfg, s, q, p, nil, nil),
		store: s,
		queue: q,
		pool:  p,
	}
}

func submitReq() *cqe.SubmitJobCqe {
	return &cqe.SubmitJobCqe{
		LocalPath: "/tmp/in.mp4",
		Codec:     "h264",
		Container: "mp4",
	}
}

func waitState(t *testing.T, f *fixture, id string, want vo.JobState) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		job, err := f.store.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if job.State == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	job, _ := f.store.Get(context.Background(), id)
	t.Fatalf("state = %s, want %s", job.State, want)
}

// TestSubmitJob verifies the happy path and deadline clamping.
func TestSubmitJob(t *testing.T) {
	f := newFixture(t, 10, nil)

	d, err := f.app.SubmitJob(context.Background(), submitReq())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if d.State != "queued" {
		t.Fatalf("state = %s, want queued", d.State)
	}
	// unset deadline falls back to the ceiling
	if d.DeadlineSeconds != 100 {
		t.Fatalf("deadline = %d, want 100", d.DeadlineSeconds)
	}
	if f.queue.Size() != 1 {
		t.Fatalf("queue size = %d, want 1", f.queue.Size())
	}

	got, err := f.app.GetJob(context.Background(), d.JobID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.JobID != d.JobID {
		t.Fatalf("id mismatch: %s vs %s", got.JobID, d.JobID)
	}
}

// TestSubmitJobValidation covers the rejection paths.
func TestSubmitJobValidation(t *testing.T) {
	f := newFixture(t, 10, nil)

	cases := []struct {
		name string
		req  *cqe.SubmitJobCqe
		want *errno.Errno
	}{
		{"no input", &cqe.SubmitJobCqe{Codec: "h264"}, errno.ErrInputRequired},
		{"two inputs", &cqe.SubmitJobCqe{LocalPath: "/a", SourceURL: "http://x/y", Codec: "h264"}, errno.ErrInputRequired},
		{"unknown codec", &cqe.SubmitJobCqe{LocalPath: "/a", Codec: "not-a-real-codec"}, errno.ErrInvalidParam},
		{"bad container", &cqe.SubmitJobCqe{LocalPath: "/a", Codec: "h264", Container: "avi"}, errno.ErrInvalidParam},
		{"negative deadline", &cqe.SubmitJobCqe{LocalPath: "/a", Codec: "h264", DeadlineSeconds: -1}, errno.ErrInvalidParam},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.app.SubmitJob(context.Background(), tc.req)
			if errno.CodeOf(err) != tc.want {
				t.Fatalf("code = %v, want %v", errno.CodeOf(err), tc.want)
			}
		})
	}

	// nothing admitted
	if f.queue.Size() != 0 {
		t.Fatalf("queue size = %d after rejected submits", f.queue.Size())
	}
}

// TestSubmitJobQueueFull verifies overload rejection keeps a queryable
// failed record.
func TestSubmitJobQueueFull(t *testing.T) {
	f := newFixture(t, 1, nil)

	if _, err := f.app.SubmitJob(context.Background(), submitReq()); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	_, err := f.app.SubmitJob(context.Background(), submitReq())
	if errno.CodeOf(err) != errno.ErrQueueFull {
		t.Fatalf("code = %v, want ErrQueueFull", errno.CodeOf(err))
	}

	failed, err := f.app.ListJobs(context.Background(), &cqe.ListJobsCqe{State: "failed"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if failed.Total != 1 {
		t.Fatalf("failed records = %d, want 1", failed.Total)
	}
	if failed.Jobs[0].ErrorDetail != "admission queue full" {
		t.Fatalf("error detail = %q", failed.Jobs[0].ErrorDetail)
	}
}

// TestGetJobNotFound verifies the lookup error.
func TestGetJobNotFound(t *testing.T) {
	f := newFixture(t, 10, nil)
	_, err := f.app.GetJob(context.Background(), "missing")
	if errno.CodeOf(err) != errno.ErrJobNotFound {
		t.Fatalf("code = %v", errno.CodeOf(err))
	}
}

type stubArchive struct {
	job *entity.Job
	err error
}

func (s *stubArchive) FindJob(ctx context.Context, jobID string) (*entity.Job, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.job == nil || s.job.ID != jobID {
		return nil, repo.ErrJobNotFound
	}
	return s.job, nil
}

// TestGetJobArchiveFallback verifies lookups for records evicted from memory
// fall through to the archive.
func TestGetJobArchiveFallback(t *testing.T) {
	f := newFixture(t, 10, nil)
	end := time.Now()
	archived := &entity.Job{
		ID:        "evicted-job",
		State:     vo.JobStateSucceeded,
		CreatedAt: end.Add(-time.Hour),
		EndedAt:   &end,
	}

	cfg := &config.Config{}
	withArchive := NewJobAppWith(cfg, f.store, f.queue, f.pool, nil, &stubArchive{job: archived})

	got, err := withArchive.GetJob(context.Background(), "evicted-job")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.State != "succeeded" {
		t.Fatalf("state = %s, want succeeded", got.State)
	}

	if _, err := withArchive.GetJob(context.Background(), "never-existed"); errno.CodeOf(err) != errno.ErrJobNotFound {
		t.Fatalf("code = %v, want ErrJobNotFound", errno.CodeOf(err))
	}

	broken := NewJobAppWith(cfg, f.store, f.queue, f.pool, nil, &stubArchive{err: errors.New("connection refused")})
	if _, err := broken.GetJob(context.Background(), "evicted-job"); errno.CodeOf(err) != errno.ErrDatabase {
		t.Fatalf("code = %v, want ErrDatabase", errno.CodeOf(err))
	}
}

// TestCancelQueuedJob verifies cancellation before any slot claims the job.
func TestCancelQueuedJob(t *testing.T) {
	f := newFixture(t, 10, nil)

	d, err := f.app.SubmitJob(context.Background(), submitReq())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	got, err := f.app.CancelJob(context.Background(), d.JobID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got.State != "cancelled" {
		t.Fatalf("state = %s, want cancelled", got.State)
	}
	// the state carries the meaning; detail stays empty on cancellation
	if got.ErrorDetail != "" {
		t.Fatalf("error detail = %q, want empty", got.ErrorDetail)
	}

	// terminal states reject further cancellation
	_, err = f.app.CancelJob(context.Background(), d.JobID)
	if errno.CodeOf(err) != errno.ErrAlreadyTerminal {
		t.Fatalf("code = %v, want ErrAlreadyTerminal", errno.CodeOf(err))
	}
}

// TestCancelRunningJob verifies the signal reaches the executing slot.
func TestCancelRunningJob(t *testing.T) {
	exec := &stubExecutor{fn: func(ctx context.Context, job *entity.Job, cancel <-chan struct{}) port.Outcome {
		select {
		case <-cancel:
			return port.Outcome{State: vo.JobStateCancelled}
		case <-time.After(5 * time.Second):
			return port.Outcome{State: vo.JobStateSucceeded}
		}
	}}
	f := newFixture(t, 10, exec)
	if err := f.pool.Start(context.Background()); err != nil {
		t.Fatalf("pool start: %v", err)
	}
	defer f.pool.Stop()

	d, err := f.app.SubmitJob(context.Background(), submitReq())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	waitState(t, f, d.JobID, vo.JobStateRunning)

	if _, err := f.app.CancelJob(context.Background(), d.JobID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	waitState(t, f, d.JobID, vo.JobStateCancelled)
}

// TestGetResultLifecycle walks the result endpoint through not-ready,
// failure and success.
func TestGetResultLifecycle(t *testing.T) {
	f := newFixture(t, 10, nil)

	d, err := f.app.SubmitJob(context.Background(), submitReq())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	_, err = f.app.GetResult(context.Background(), d.JobID)
	if errno.CodeOf(err) != errno.ErrResultNotReady {
		t.Fatalf("queued result code = %v, want ErrResultNotReady", errno.CodeOf(err))
	}

	// drive to succeeded with a local artifact
	artifactPath := filepath.Join(t.TempDir(), "out.mp4")
	if err := os.WriteFile(artifactPath, []byte("result-bytes"), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	now := time.Now()
	if ok, _ := f.store.CompareAndTransition(context.Background(), d.JobID, vo.JobStateQueued, vo.JobStateRunning, repo.TransitionFields{StartedAt: &now}); !ok {
		t.Fatal("claim failed")
	}
	end := time.Now()
	if ok, _ := f.store.CompareAndTransition(context.Background(), d.JobID, vo.JobStateRunning, vo.JobStateSucceeded, repo.TransitionFields{
		EndedAt:  &end,
		Artifact: &vo.ArtifactRef{LocalPath: artifactPath, ContentType: "video/mp4", Size: 12},
	}); !ok {
		t.Fatal("commit failed")
	}

	stream, err := f.app.GetResult(context.Background(), d.JobID)
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	defer stream.Body.Close()
	body, err := io.ReadAll(stream.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(body) != "result-bytes" {
		t.Fatalf("body = %q", body)
	}
	if stream.ContentType != "video/mp4" || stream.Size != 12 {
		t.Fatalf("stream meta = %+v", stream)
	}
}

// TestGetResultTerminalFailures maps each failed terminal state onto its
// error code.
func TestGetResultTerminalFailures(t *testing.T) {
	cases := []struct {
		state vo.JobState
		want  *errno.Errno
	}{
		{vo.JobStateFailed, errno.ErrJobFailed},
		{vo.JobStateTimedOut, errno.ErrJobTimedOut},
		{vo.JobStateCancelled, errno.ErrJobCancelled},
	}
	for _, tc := range cases {
		t.Run(tc.state.String(), func(t *testing.T) {
			f := newFixture(t, 10, nil)
			d, err := f.app.SubmitJob(context.Background(), submitReq())
			if err != nil {
				t.Fatalf("submit: %v", err)
			}
			now := time.Now()
			if ok, _ := f.store.CompareAndTransition(context.Background(), d.JobID, vo.JobStateQueued, vo.JobStateRunning, repo.TransitionFields{StartedAt: &now}); !ok {
				t.Fatal("claim failed")
			}
			end := time.Now()
			if ok, _ := f.store.CompareAndTransition(context.Background(), d.JobID, vo.JobStateRunning, tc.state, repo.TransitionFields{EndedAt: &end, ErrorDetail: "boom"}); !ok {
				t.Fatal("commit failed")
			}

			_, err = f.app.GetResult(context.Background(), d.JobID)
			if errno.CodeOf(err) != tc.want {
				t.Fatalf("code = %v, want %v", errno.CodeOf(err), tc.want)
			}
		})
	}
}

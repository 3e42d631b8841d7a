package persistence

import (
	"testing"
	"time"

	"transcode-jobs/ddd/domain/entity"
	"transcode-jobs/ddd/domain/vo"
)

// TestJobRowConversion verifies a job survives the trip through the archive
// row format, so lookups after eviction return a faithful snapshot.
func TestJobRowConversion(t *testing.T) {
	started := time.Now().Add(-time.Minute)
	ended := time.Now()
	params, err := vo.NewTranscodeParams("h264", "mp4", "720p", "2000k", "128k")
	if err != nil {
		t.Fatalf("params: %v", err)
	}
	job := &entity.Job{
		ID:        "job-1",
		Input:     vo.InputSource{SourceURL: "https://example.com/in.mp4"},
		Params:    *params,
		Deadline:  90 * time.Second,
		State:     vo.JobStateSucceeded,
		CreatedAt: started.Add(-time.Second),
		StartedAt: &started,
		EndedAt:   &ended,
		Artifact:  &vo.ArtifactRef{ObjectKey: "artifacts/job-1.mp4", ContentType: "video/mp4", Size: 42},
	}

	got := fromPO(toPO(job))

	if got.ID != job.ID || got.State != job.State {
		t.Fatalf("identity = %s/%s, want %s/%s", got.ID, got.State, job.ID, job.State)
	}
	if got.Input != job.Input {
		t.Fatalf("input = %+v, want %+v", got.Input, job.Input)
	}
	if got.Params != job.Params {
		t.Fatalf("params = %+v, want %+v", got.Params, job.Params)
	}
	if got.Deadline != job.Deadline {
		t.Fatalf("deadline = %s, want %s", got.Deadline, job.Deadline)
	}
	if got.StartedAt == nil || got.EndedAt == nil {
		t.Fatal("timestamps lost in conversion")
	}
	if got.Artifact == nil || *got.Artifact != *job.Artifact {
		t.Fatalf("artifact = %+v, want %+v", got.Artifact, job.Artifact)
	}
}

// TestJobRowConversionFailed verifies the error detail and absent artifact
// round-trip for a failed job.
func TestJobRowConversionFailed(t *testing.T) {
	params, err := vo.NewTranscodeParams("copy", "mkv", "", "", "")
	if err != nil {
		t.Fatalf("params: %v", err)
	}
	ended := time.Now()
	job := &entity.Job{
		ID:          "job-2",
		Input:       vo.InputSource{LocalPath: "/data/in.mkv"},
		Params:      *params,
		Deadline:    time.Minute,
		State:       vo.JobStateFailed,
		CreatedAt:   ended.Add(-time.Minute),
		EndedAt:     &ended,
		ErrorDetail: "ffmpeg exited with code 1: Invalid data found",
	}

	got := fromPO(toPO(job))

	if got.State != vo.JobStateFailed {
		t.Fatalf("state = %s, want failed", got.State)
	}
	if got.ErrorDetail != job.ErrorDetail {
		t.Fatalf("error detail = %q, want %q", got.ErrorDetail, job.ErrorDetail)
	}
	if got.Artifact != nil {
		t.Fatalf("artifact = %+v, want nil", got.Artifact)
	}
}

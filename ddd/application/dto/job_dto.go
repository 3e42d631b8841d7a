package dto

import (
	"io"
	"time"

	"transcode-jobs/ddd/domain/entity"
)

// JobDto is the external view of a job.
type JobDto struct {
	JobID           string       `json:"job_id"`
	State           string       `json:"state"`
	Input           string       `json:"input"`
	Params          JobParamsDto `json:"params"`
	DeadlineSeconds int          `json:"deadline_seconds"`
	ErrorDetail     string       `json:"error_detail,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	StartedAt       *time.Time   `json:"started_at,omitempty"`
	EndedAt         *time.Time   `json:"ended_at,omitempty"`
	Artifact        *ArtifactDto `json:"artifact,omitempty"`
}

// JobParamsDto mirrors the validated transcode options.
type JobParamsDto struct {
	Codec        string `json:"codec"`
	Container    string `json:"container"`
	Resolution   string `json:"resolution,omitempty"`
	Bitrate      string `json:"bitrate,omitempty"`
	AudioBitrate string `json:"audio_bitrate,omitempty"`
}

// ArtifactDto describes the produced output.
type ArtifactDto struct {
	ObjectKey   string `json:"object_key,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size"`
}

// JobListDto wraps a listing.
type JobListDto struct {
	Jobs  []JobDto `json:"jobs"`
	Total int      `json:"total"`
}

// ArtifactStream carries a result body back to the transport layer. The
// caller owns Body and must close it.
type ArtifactStream struct {
	Body        io.ReadCloser
	Size        int64
	ContentType string
	Filename    string
}

// NewJobDto converts a job snapshot.
func NewJobDto(job *entity.Job) *JobDto {
	if job == nil {
		return nil
	}
	d := &JobDto{
		JobID: job.ID,
		State: job.State.String(),
		Input: job.Input.String(),
		Params: JobParamsDto{
			Codec:        job.Params.Codec,
			Container:    job.Params.Container,
			Resolution:   job.Params.Resolution,
			Bitrate:      job.Params.Bitrate,
			AudioBitrate: job.Params.AudioBitrate,
		},
		DeadlineSeconds: int(job.Deadline.Seconds()),
		ErrorDetail:     job.ErrorDetail,
		CreatedAt:       job.CreatedAt,
		StartedAt:       job.StartedAt,
		EndedAt:         job.EndedAt,
	}
	if job.Artifact != nil {
		d.Artifact = &ArtifactDto{
			ObjectKey:   job.Artifact.ObjectKey,
			ContentType: job.Artifact.ContentType,
			Size:        job.Artifact.Size,
		}
	}
	return d
}

// NewJobListDto converts a listing of snapshots.
func NewJobListDto(jobs []*entity.Job) *JobListDto {
	out := make([]JobDto, 0, len(jobs))
	for _, job := range jobs {
		if d := NewJobDto(job); d != nil {
			out = append(out, *d)
		}
	}
	return &JobListDto{Jobs: out, Total: len(out)}
}

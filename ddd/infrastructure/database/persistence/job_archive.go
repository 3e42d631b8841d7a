package persistence

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"transcode-jobs/ddd/domain/entity"
	"transcode-jobs/ddd/domain/repo"
	"transcode-jobs/ddd/domain/vo"
	"transcode-jobs/ddd/infrastructure/database/dao"
	"transcode-jobs/ddd/infrastructure/database/po"
	"transcode-jobs/pkg/logger"
)

const archiveWriteTimeout = 5 * time.Second

// JobArchive mirrors job lifecycle transitions into MySQL so a restart can
// tell which jobs were lost. It is fed by a store transition hook; archive
// failures are logged, never propagated into the transition path.
type JobArchive struct {
	jobDAO *dao.JobDAO
}

// NewJobArchive creates the archive over the main database.
func NewJobArchive() *JobArchive {
	return &JobArchive{jobDAO: dao.NewJobDAO()}
}

// RecordTransition upserts the job's current row. Safe to install directly
// as a store hook.
func (a *JobArchive) RecordTransition(job *entity.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), archiveWriteTimeout)
	defer cancel()

	if err := a.jobDAO.Upsert(ctx, toPO(job)); err != nil {
		logger.Errorf("archive transition job_id=%s state=%s: %v", job.ID, job.State, err)
	}
}

// FindJob returns the archived snapshot of a job, typically after its
// in-memory record was evicted by retention.
func (a *JobArchive) FindJob(ctx context.Context, jobID string) (*entity.Job, error) {
	row, err := a.jobDAO.FindByJobID(ctx, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repo.ErrJobNotFound
		}
		return nil, err
	}
	return fromPO(row), nil
}

// ReconcileOrphans fails archive rows left non-terminal by a previous
// process. Returns how many rows were repaired.
func (a *JobArchive) ReconcileOrphans(ctx context.Context) (int64, error) {
	for _, state := range []string{"queued", "running"} {
		rows, err := a.jobDAO.QueryByState(ctx, state, 0)
		if err != nil {
			return 0, err
		}
		for _, row := range rows {
			logger.Warnf("orphaned %s job in archive job_id=%s", state, row.JobID)
		}
	}

	n, err := a.jobDAO.MarkInterrupted(ctx, "interrupted by service restart")
	if err != nil {
		return 0, err
	}
	if n > 0 {
		logger.Warnf("reconciled %d jobs interrupted by restart", n)
	}
	return n, nil
}

// PurgeBefore removes terminal rows older than the cutoff.
func (a *JobArchive) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return a.jobDAO.PurgeTerminalBefore(ctx, cutoff)
}

func toPO(job *entity.Job) *po.TranscodeJobPO {
	row := &po.TranscodeJobPO{
		JobID:           job.ID,
		State:           job.State.String(),
		SourceURL:       job.Input.SourceURL,
		SourceObjectKey: job.Input.ObjectKey,
		SourceLocalPath: job.Input.LocalPath,
		Params: po.JSONMap{
			"codec":         job.Params.Codec,
			"container":     job.Params.Container,
			"resolution":    job.Params.Resolution,
			"bitrate":       job.Params.Bitrate,
			"audio_bitrate": job.Params.AudioBitrate,
		},
		DeadlineMs:  job.Deadline.Milliseconds(),
		ErrorDetail: job.ErrorDetail,
		CreatedAt:   job.CreatedAt,
		StartedAt:   job.StartedAt,
		EndedAt:     job.EndedAt,
		UpdatedAt:   time.Now(),
	}
	if job.Artifact != nil {
		row.ArtifactKey = job.Artifact.ObjectKey
		row.ArtifactPath = job.Artifact.LocalPath
		row.ContentType = job.Artifact.ContentType
		row.ArtifactSize = job.Artifact.Size
	}
	return row
}

func fromPO(row *po.TranscodeJobPO) *entity.Job {
	job := &entity.Job{
		ID: row.JobID,
		Input: vo.InputSource{
			SourceURL: row.SourceURL,
			ObjectKey: row.SourceObjectKey,
			LocalPath: row.SourceLocalPath,
		},
		Params: vo.TranscodeParams{
			Codec:        paramString(row.Params, "codec"),
			Container:    paramString(row.Params, "container"),
			Resolution:   paramString(row.Params, "resolution"),
			Bitrate:      paramString(row.Params, "bitrate"),
			AudioBitrate: paramString(row.Params, "audio_bitrate"),
		},
		Deadline:    time.Duration(row.DeadlineMs) * time.Millisecond,
		State:       vo.JobState(row.State),
		CreatedAt:   row.CreatedAt,
		StartedAt:   row.StartedAt,
		EndedAt:     row.EndedAt,
		ErrorDetail: row.ErrorDetail,
	}
	if row.ArtifactKey != "" || row.ArtifactPath != "" {
		job.Artifact = &vo.ArtifactRef{
			ObjectKey:   row.ArtifactKey,
			LocalPath:   row.ArtifactPath,
			ContentType: row.ContentType,
			Size:        row.ArtifactSize,
		}
	}
	return job
}

// paramString tolerates the interface{} values JSON columns scan into.
func paramString(m po.JSONMap, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

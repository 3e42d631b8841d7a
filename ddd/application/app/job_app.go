package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"transcode-jobs/ddd/application/cqe"
	"transcode-jobs/ddd/application/dto"
	"transcode-jobs/ddd/domain/entity"
	"transcode-jobs/ddd/domain/gateway"
	"transcode-jobs/ddd/domain/repo"
	"transcode-jobs/ddd/domain/vo"
	"transcode-jobs/ddd/infrastructure/queue"
	"transcode-jobs/ddd/infrastructure/worker"
	"transcode-jobs/pkg/config"
	"transcode-jobs/pkg/errno"
	"transcode-jobs/pkg/logger"
)

// cancel retries absorb the race between a queued-to-running claim and the
// caller's cancellation.
const cancelAttempts = 3

// JobApp is the job service facade used by every transport.
type JobApp interface {
	// SubmitJob validates, records and enqueues a new job.
	SubmitJob(ctx context.Context, req *cqe.SubmitJobCqe) (*dto.JobDto, error)
	// GetJob returns the current snapshot of a job.
	GetJob(ctx context.Context, jobID string) (*dto.JobDto, error)
	// ListJobs returns snapshots, optionally filtered by state.
	ListJobs(ctx context.Context, req *cqe.ListJobsCqe) (*dto.JobListDto, error)
	// GetResult streams the artifact of a succeeded job.
	GetResult(ctx context.Context, jobID string) (*dto.ArtifactStream, error)
	// CancelJob cancels a queued or running job.
	CancelJob(ctx context.Context, jobID string) (*dto.JobDto, error)
	// WorkerStats reports pool and queue activity.
	WorkerStats() worker.Stats
}

// ArchiveReader serves job snapshots that already left the in-memory store,
// typically after retention eviction. Reports repo.ErrJobNotFound for
// unknown ids.
type ArchiveReader interface {
	FindJob(ctx context.Context, jobID string) (*entity.Job, error)
}

type jobAppImpl struct {
	cfg     *config.Config
	store   repo.JobStore
	queue   queue.AdmissionQueue
	pool    *worker.Pool
	storage gateway.StorageGateway
	archive ArchiveReader
}

// NewJobAppWith assembles the facade. storage may be nil when artifacts stay
// on local disk; archive may be nil when no database is configured.
func NewJobAppWith(cfg *config.Config, store repo.JobStore, q queue.AdmissionQueue, pool *worker.Pool, storage gateway.StorageGateway, archive ArchiveReader) JobApp {
	if cfg == nil {
		cfg = config.GetGlobalConfig()
	}
	return &jobAppImpl{
		cfg:     cfg,
		store:   store,
		queue:   q,
		pool:    pool,
		storage: storage,
		archive: archive,
	}
}

func (a *jobAppImpl) SubmitJob(ctx context.Context, req *cqe.SubmitJobCqe) (*dto.JobDto, error) {
	input, params, deadline, err := req.Validate()
	if err != nil {
		return nil, err
	}

	ceiling := a.cfg.Transcode.FFmpeg.Timeout
	if deadline <= 0 || deadline > ceiling {
		deadline = ceiling
	}

	job := entity.NewJob(input, *params, deadline)
	if err := a.store.Create(ctx, job); err != nil {
		return nil, errno.NewBizError(errno.ErrStoreUnavailable, err)
	}

	if err := a.queue.Enqueue(ctx, job); err != nil {
		// the record stays queryable: admission rejection is a terminal
		// failure of this job, not a silent drop
		now := time.Now()
		_, _ = a.store.CompareAndTransition(ctx, job.ID, vo.JobStateQueued, vo.JobStateFailed, repo.TransitionFields{
			EndedAt:     &now,
			ErrorDetail: "admission queue full",
		})
		logger.Warnf("job rejected job_id=%s queue_depth=%d: %v", job.ID, a.queue.Size(), err)
		return nil, errno.NewBizError(errno.ErrQueueFull, err)
	}

	logger.Infof("job submitted job_id=%s input=%s codec=%s deadline=%s", job.ID, input.String(), params.Codec, deadline)
	return dto.NewJobDto(job), nil
}

func (a *jobAppImpl) GetJob(ctx context.Context, jobID string) (*dto.JobDto, error) {
	if jobID == "" {
		return nil, errno.ErrInvalidParam
	}
	job, err := a.store.Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, repo.ErrJobNotFound) {
			return a.getArchivedJob(ctx, jobID)
		}
		return nil, errno.NewBizError(errno.ErrStoreUnavailable, err)
	}
	return dto.NewJobDto(job), nil
}

// getArchivedJob falls through to the archive for records evicted by the
// retention sweep.
func (a *jobAppImpl) getArchivedJob(ctx context.Context, jobID string) (*dto.JobDto, error) {
	if a.archive == nil {
		return nil, errno.ErrJobNotFound
	}
	job, err := a.archive.FindJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, repo.ErrJobNotFound) {
			return nil, errno.ErrJobNotFound
		}
		return nil, errno.NewBizError(errno.ErrDatabase, err)
	}
	return dto.NewJobDto(job), nil
}

func (a *jobAppImpl) ListJobs(ctx context.Context, req *cqe.ListJobsCqe) (*dto.JobListDto, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	jobs, err := a.store.List(ctx, vo.JobState(req.State), req.Limit)
	if err != nil {
		return nil, errno.NewBizError(errno.ErrStoreUnavailable, err)
	}
	return dto.NewJobListDto(jobs), nil
}

func (a *jobAppImpl) GetResult(ctx context.Context, jobID string) (*dto.ArtifactStream, error) {
	job, err := a.store.Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, repo.ErrJobNotFound) {
			return nil, errno.ErrJobNotFound
		}
		return nil, errno.NewBizError(errno.ErrStoreUnavailable, err)
	}

	switch job.State {
	case vo.JobStateQueued, vo.JobStateRunning:
		return nil, errno.ErrResultNotReady
	case vo.JobStateFailed:
		return nil, errno.NewBizError(errno.ErrJobFailed, errors.New(job.ErrorDetail))
	case vo.JobStateTimedOut:
		return nil, errno.NewBizError(errno.ErrJobTimedOut, errors.New(job.ErrorDetail))
	case vo.JobStateCancelled:
		return nil, errno.ErrJobCancelled
	}

	if job.Artifact == nil {
		return nil, errno.ErrArtifactMissing
	}
	filename := job.ID + job.Params.OutputExt()

	if job.Artifact.ObjectKey != "" && a.storage != nil {
		rc, size, err := a.storage.OpenArtifact(ctx, job.Artifact.ObjectKey)
		if err != nil {
			return nil, errno.NewBizError(errno.ErrArtifactMissing, err)
		}
		return &dto.ArtifactStream{
			Body:        rc,
			Size:        size,
			ContentType: job.Artifact.ContentType,
			Filename:    filename,
		}, nil
	}

	if job.Artifact.LocalPath != "" {
		f, err := os.Open(job.Artifact.LocalPath)
		if err != nil {
			return nil, errno.NewBizError(errno.ErrArtifactMissing, err)
		}
		info, err := f.Stat()
		if err != nil {
			_ = f.Close()
			return nil, errno.NewBizError(errno.ErrArtifactMissing, err)
		}
		return &dto.ArtifactStream{
			Body:        f,
			Size:        info.Size(),
			ContentType: job.Artifact.ContentType,
			Filename:    filepath.Base(filename),
		}, nil
	}

	return nil, errno.ErrArtifactMissing
}

func (a *jobAppImpl) CancelJob(ctx context.Context, jobID string) (*dto.JobDto, error) {
	if jobID == "" {
		return nil, errno.ErrInvalidParam
	}

	for attempt := 0; attempt < cancelAttempts; attempt++ {
		job, err := a.store.Get(ctx, jobID)
		if err != nil {
			if errors.Is(err, repo.ErrJobNotFound) {
				return nil, errno.ErrJobNotFound
			}
			return nil, errno.NewBizError(errno.ErrStoreUnavailable, err)
		}

		switch job.State {
		case vo.JobStateQueued:
			now := time.Now()
			ok, err := a.store.CompareAndTransition(ctx, jobID, vo.JobStateQueued, vo.JobStateCancelled, repo.TransitionFields{
				EndedAt: &now,
			})
			if err != nil {
				return nil, errno.NewBizError(errno.ErrStoreUnavailable, err)
			}
			if ok {
				logger.Infof("job cancelled while queued job_id=%s", jobID)
				return a.GetJob(ctx, jobID)
			}
			// a worker claimed it in the meantime, retry as running

		case vo.JobStateRunning:
			if a.pool.Cancel(jobID) {
				logger.Infof("cancel signalled to running job job_id=%s", jobID)
				return a.GetJob(ctx, jobID)
			}
			// the slot finished before the signal landed, re-read

		default:
			return nil, errno.NewBizError(errno.ErrAlreadyTerminal,
				fmt.Errorf("job is %s", job.State))
		}
	}

	return nil, errno.ErrAlreadyTerminal
}

func (a *jobAppImpl) WorkerStats() worker.Stats {
	return a.pool.Stats()
}

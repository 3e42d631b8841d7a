package dao

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"transcode-jobs/ddd/infrastructure/database/po"
	"transcode-jobs/internal/resource"
	"transcode-jobs/pkg/logger"
)

var terminalStates = []string{"succeeded", "failed", "timed_out", "cancelled"}

// JobDAO is the data access object for the job archive table.
type JobDAO struct {
	db *gorm.DB
}

// NewJobDAO binds the DAO to the main database.
func NewJobDAO() *JobDAO {
	return &JobDAO{
		db: resource.DefaultMySQLResource().MainDB(),
	}
}

// Upsert writes the current job row, inserting or replacing by job id.
func (d *JobDAO) Upsert(ctx context.Context, jobPo *po.TranscodeJobPO) error {
	err := d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "job_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"state", "artifact_key", "artifact_path", "content_type",
			"artifact_size", "error_detail", "started_at", "ended_at", "updated_at",
		}),
	}).Create(jobPo).Error
	if err != nil {
		logger.Errorf("upsert job archive row job_id=%s: %v", jobPo.JobID, err)
		return err
	}
	return nil
}

// FindByJobID returns the archived row for a job.
func (d *JobDAO) FindByJobID(ctx context.Context, jobID string) (*po.TranscodeJobPO, error) {
	var row po.TranscodeJobPO
	if err := d.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		First(&row).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Errorf("query job archive row by id %v", err)
		}
		return nil, err
	}
	return &row, nil
}

// QueryByState returns archived rows in a state, oldest update first.
func (d *JobDAO) QueryByState(ctx context.Context, state string, limit int) ([]*po.TranscodeJobPO, error) {
	var rows []*po.TranscodeJobPO
	query := d.db.WithContext(ctx).Where("state = ?", state).Order("updated_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		logger.Errorf("query job archive rows by state %v", err)
		return nil, err
	}
	return rows, nil
}

// MarkInterrupted fails every non-terminal row. Called once at startup; any
// job still queued or running in the archive was lost with the previous
// process.
func (d *JobDAO) MarkInterrupted(ctx context.Context, detail string) (int64, error) {
	now := time.Now()
	result := d.db.WithContext(ctx).
		Model(&po.TranscodeJobPO{}).
		Where("state NOT IN ?", terminalStates).
		Updates(map[string]interface{}{
			"state":        "failed",
			"error_detail": detail,
			"ended_at":     now,
			"updated_at":   now,
		})
	if result.Error != nil {
		logger.Errorf("mark interrupted jobs %v", result.Error)
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// PurgeTerminalBefore deletes terminal rows that ended before the cutoff.
func (d *JobDAO) PurgeTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := d.db.WithContext(ctx).
		Where("state IN ? AND ended_at < ?", terminalStates, cutoff).
		Delete(&po.TranscodeJobPO{})
	if result.Error != nil {
		logger.Errorf("purge terminal job rows %v", result.Error)
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

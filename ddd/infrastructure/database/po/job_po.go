package po

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// TranscodeJobPO is the archive row for a job. The in-memory store stays
// authoritative while the process lives; rows here survive restarts.
type TranscodeJobPO struct {
	ID              uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	JobID           string     `gorm:"uniqueIndex;size:36;not null" json:"job_id"`
	State           string     `gorm:"index;size:20;not null" json:"state"`
	SourceURL       string     `gorm:"size:500" json:"source_url"`
	SourceObjectKey string     `gorm:"size:500" json:"source_object_key"`
	SourceLocalPath string     `gorm:"size:500" json:"source_local_path"`
	Params          JSONMap    `gorm:"type:json" json:"params"`
	DeadlineMs      int64      `json:"deadline_ms"`
	ArtifactKey     string     `gorm:"size:500" json:"artifact_key"`
	ArtifactPath    string     `gorm:"size:500" json:"artifact_path"`
	ContentType     string     `gorm:"size:100" json:"content_type"`
	ArtifactSize    int64      `json:"artifact_size"`
	ErrorDetail     string     `gorm:"type:text" json:"error_detail"`
	CreatedAt       time.Time  `gorm:"index" json:"created_at"`
	StartedAt       *time.Time `json:"started_at"`
	EndedAt         *time.Time `gorm:"index" json:"ended_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// TableName pins the archive table.
func (TranscodeJobPO) TableName() string {
	return "transcode_jobs"
}

// JSONMap stores a JSON object column.
type JSONMap map[string]interface{}

// Value implements driver.Valuer.
func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner.
func (j *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*j = make(JSONMap)
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		return fmt.Errorf("cannot scan %T into JSONMap", value)
	}
}

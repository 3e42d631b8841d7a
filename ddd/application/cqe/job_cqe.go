package cqe

import (
	"time"

	"transcode-jobs/ddd/domain/vo"
	"transcode-jobs/pkg/errno"
)

// SubmitJobCqe is the job submission request.
type SubmitJobCqe struct {
	SourceURL string `json:"source_url"`
	ObjectKey string `json:"object_key"`
	LocalPath string `json:"local_path"`

	Codec        string `json:"codec" binding:"required"`
	Container    string `json:"container"`
	Resolution   string `json:"resolution"`
	Bitrate      string `json:"bitrate"`
	AudioBitrate string `json:"audio_bitrate"`

	// DeadlineSeconds caps job runtime; zero means the service ceiling.
	DeadlineSeconds int `json:"deadline_seconds"`
}

// Validate builds the validated value objects from the raw request.
func (req *SubmitJobCqe) Validate() (vo.InputSource, *vo.TranscodeParams, time.Duration, error) {
	input := vo.InputSource{
		SourceURL: req.SourceURL,
		ObjectKey: req.ObjectKey,
		LocalPath: req.LocalPath,
	}
	if err := input.Validate(); err != nil {
		return vo.InputSource{}, nil, 0, errno.NewBizError(errno.ErrInputRequired, err)
	}

	if req.Codec == "" {
		return vo.InputSource{}, nil, 0, errno.ErrCodecNotAllowed
	}
	params, err := vo.NewTranscodeParams(req.Codec, req.Container, req.Resolution, req.Bitrate, req.AudioBitrate)
	if err != nil {
		return vo.InputSource{}, nil, 0, errno.NewBizError(errno.ErrInvalidParam, err)
	}

	if req.DeadlineSeconds < 0 {
		return vo.InputSource{}, nil, 0, errno.ErrInvalidParam
	}
	deadline := time.Duration(req.DeadlineSeconds) * time.Second

	return input, params, deadline, nil
}

// QueryJobCqe identifies one job.
type QueryJobCqe struct {
	JobID string `uri:"job_id" binding:"required"`
}

func (req *QueryJobCqe) Validate() error {
	if req.JobID == "" {
		return errno.ErrInvalidParam
	}
	return nil
}

// ListJobsCqe filters the job listing.
type ListJobsCqe struct {
	State string `form:"state"`
	Limit int    `form:"limit"`
}

func (req *ListJobsCqe) Validate() error {
	if req.State != "" && !vo.JobState(req.State).IsValid() {
		return errno.ErrInvalidParam
	}
	if req.Limit < 0 {
		return errno.ErrInvalidParam
	}
	if req.Limit == 0 || req.Limit > 500 {
		req.Limit = 100
	}
	return nil
}

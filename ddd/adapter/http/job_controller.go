package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"transcode-jobs/ddd/application/app"
	"transcode-jobs/ddd/application/cqe"
	"transcode-jobs/pkg/errno"
	"transcode-jobs/pkg/restapi"
)

// JobController exposes the job lifecycle over HTTP.
type JobController struct {
	jobApp app.JobApp
}

// NewJobController creates the controller.
func NewJobController(jobApp app.JobApp) *JobController {
	return &JobController{jobApp: jobApp}
}

// SubmitJob accepts a new transcode request.
func (c *JobController) SubmitJob(ctx *gin.Context) {
	var req cqe.SubmitJobCqe
	if err := ctx.ShouldBindJSON(&req); err != nil {
		restapi.Failed(ctx, errno.NewBizError(errno.ErrInvalidParam, err))
		return
	}

	resp, err := c.jobApp.SubmitJob(ctx.Request.Context(), &req)
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}

	restapi.Accepted(ctx, resp)
}

// GetJob returns the current job snapshot.
func (c *JobController) GetJob(ctx *gin.Context) {
	var req cqe.QueryJobCqe
	if err := ctx.ShouldBindUri(&req); err != nil {
		restapi.Failed(ctx, errno.NewBizError(errno.ErrInvalidParam, err))
		return
	}

	resp, err := c.jobApp.GetJob(ctx.Request.Context(), req.JobID)
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, resp)
}

// ListJobs returns jobs, optionally filtered by state.
func (c *JobController) ListJobs(ctx *gin.Context) {
	var req cqe.ListJobsCqe
	if err := ctx.ShouldBindQuery(&req); err != nil {
		restapi.Failed(ctx, errno.NewBizError(errno.ErrInvalidParam, err))
		return
	}

	resp, err := c.jobApp.ListJobs(ctx.Request.Context(), &req)
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, resp)
}

// GetResult streams the artifact of a succeeded job.
func (c *JobController) GetResult(ctx *gin.Context) {
	var req cqe.QueryJobCqe
	if err := ctx.ShouldBindUri(&req); err != nil {
		restapi.Failed(ctx, errno.NewBizError(errno.ErrInvalidParam, err))
		return
	}

	stream, err := c.jobApp.GetResult(ctx.Request.Context(), req.JobID)
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	defer stream.Body.Close()

	contentType := stream.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	extraHeaders := map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename=%q`, stream.Filename),
	}
	ctx.DataFromReader(http.StatusOK, stream.Size, contentType, stream.Body, extraHeaders)
}

// CancelJob cancels a queued or running job.
func (c *JobController) CancelJob(ctx *gin.Context) {
	var req cqe.QueryJobCqe
	if err := ctx.ShouldBindUri(&req); err != nil {
		restapi.Failed(ctx, errno.NewBizError(errno.ErrInvalidParam, err))
		return
	}

	resp, err := c.jobApp.CancelJob(ctx.Request.Context(), req.JobID)
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, resp)
}

// WorkerStats reports pool and queue activity.
func (c *JobController) WorkerStats(ctx *gin.Context) {
	restapi.Success(ctx, c.jobApp.WorkerStats())
}

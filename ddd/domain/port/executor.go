package port

import (
	"context"

	"transcode-jobs/ddd/domain/entity"
	"transcode-jobs/ddd/domain/vo"
)

// Outcome is the terminal result of one external-tool invocation. State is
// always one of the four terminal job states.
type Outcome struct {
	State       vo.JobState
	Artifact    *vo.ArtifactRef
	ErrorDetail string
}

// TranscodeExecutor runs one transcode to completion or controlled
// termination. Implementations own the subprocess and every temp resource
// they allocate; both are reclaimed on every exit path before Execute
// returns. Cancelling cancel switches the termination reason to cancelled
// rather than timed out.
type TranscodeExecutor interface {
	Execute(ctx context.Context, job *entity.Job, cancel <-chan struct{}) Outcome
}

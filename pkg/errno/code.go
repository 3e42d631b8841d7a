package errno

// code=0   success
// code=4xx client errors
// code=5xx server errors
// code=2xxxx business errors

type Errno struct {
	Code    int
	Message string
}

// Error implements the error interface.
func (e *Errno) Error() string {
	return e.Message
}

var (
	OK = &Errno{Code: 200, Message: "Success"}

	ErrInvalidParam = &Errno{Code: 400, Message: "Invalid parameter"}
	ErrNotFound     = &Errno{Code: 404, Message: "Not found"}

	ErrInternalServer = &Errno{Code: 500, Message: "Internal server error"}
	ErrDatabase       = &Errno{Code: 501, Message: "Database error"}

	// job service errors
	ErrJobNotFound      = &Errno{Code: 20001, Message: "Job not found"}
	ErrQueueFull        = &Errno{Code: 20002, Message: "Admission queue is full"}
	ErrResultNotReady   = &Errno{Code: 20003, Message: "Job result is not ready"}
	ErrJobFailed        = &Errno{Code: 20004, Message: "Job failed"}
	ErrJobTimedOut      = &Errno{Code: 20005, Message: "Job deadline exceeded"}
	ErrAlreadyTerminal  = &Errno{Code: 20006, Message: "Job already in a terminal state"}
	ErrJobCancelled     = &Errno{Code: 20007, Message: "Job was cancelled"}
	ErrInputRequired    = &Errno{Code: 20008, Message: "Job input is required"}
	ErrCodecNotAllowed  = &Errno{Code: 20009, Message: "Codec is not allowed"}
	ErrArtifactMissing  = &Errno{Code: 20010, Message: "Job artifact is missing"}
	ErrStoreUnavailable = &Errno{Code: 20011, Message: "Job store unavailable"}
)

package restapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"transcode-jobs/pkg/errno"
)

// Response is the uniform JSON envelope.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success writes a 200 envelope.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    errno.OK.Code,
		Message: errno.OK.Message,
		Data:    data,
	})
}

// Accepted writes a 202 envelope for asynchronously handled requests.
func Accepted(c *gin.Context, data interface{}) {
	c.JSON(http.StatusAccepted, Response{
		Code:    errno.OK.Code,
		Message: "Accepted",
		Data:    data,
	})
}

// Failed maps a service error onto its HTTP status and writes the envelope.
func Failed(c *gin.Context, err error) {
	en := errno.CodeOf(err)
	c.JSON(HTTPStatus(en), Response{
		Code:    en.Code,
		Message: err.Error(),
	})
}

// HTTPStatus maps business error codes to HTTP statuses.
func HTTPStatus(en *errno.Errno) int {
	switch en {
	case errno.OK:
		return http.StatusOK
	case errno.ErrJobNotFound, errno.ErrNotFound:
		return http.StatusNotFound
	case errno.ErrQueueFull:
		return http.StatusTooManyRequests
	case errno.ErrResultNotReady:
		return http.StatusTooEarly
	case errno.ErrJobTimedOut:
		return http.StatusGatewayTimeout
	case errno.ErrAlreadyTerminal, errno.ErrJobCancelled:
		return http.StatusConflict
	case errno.ErrInvalidParam, errno.ErrInputRequired, errno.ErrCodecNotAllowed:
		return http.StatusBadRequest
	case errno.ErrDatabase, errno.ErrStoreUnavailable:
		return http.StatusInternalServerError
	}
	if en.Code >= 400 && en.Code < 600 {
		return en.Code
	}
	return http.StatusInternalServerError
}

package errno

import (
	"errors"
	"fmt"
)

// BizError pairs a stable error code with the underlying cause.
type BizError struct {
	Errno *Errno
	Cause error
}

// NewBizError wraps a cause under a known error code.
func NewBizError(e *Errno, cause error) *BizError {
	return &BizError{Errno: e, Cause: cause}
}

// Error implements the error interface.
func (b *BizError) Error() string {
	if b.Cause == nil {
		return b.Errno.Message
	}
	return fmt.Sprintf("%s: %v", b.Errno.Message, b.Cause)
}

// Unwrap exposes the cause for errors.Is/As.
func (b *BizError) Unwrap() error {
	return b.Cause
}

// Is treats two BizErrors with the same code as equal, and matches the bare
// Errno as well.
func (b *BizError) Is(target error) bool {
	if be, ok := target.(*BizError); ok {
		return be.Errno == b.Errno
	}
	if en, ok := target.(*Errno); ok {
		return en == b.Errno
	}
	return false
}

// CodeOf extracts the Errno from any error, defaulting to ErrInternalServer.
func CodeOf(err error) *Errno {
	if err == nil {
		return OK
	}
	var be *BizError
	if errors.As(err, &be) {
		return be.Errno
	}
	var en *Errno
	if errors.As(err, &en) {
		return en
	}
	return ErrInternalServer
}

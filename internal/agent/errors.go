package agent

import (
	"errors"
	"fmt"
)

// Rejected before any state change
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrInvalidSignature = errors.New("invalid report signature")
)

// RequestError is a business-rule violation the caller must correct and
// resubmit; handlers map it to a 400 response.
type RequestError struct {
	msg string
}

func (e *RequestError) Error() string {
	return e.msg
}

func badRequest(format string, args ...interface{}) *RequestError {
	return &RequestError{msg: fmt.Sprintf(format, args...)}
}

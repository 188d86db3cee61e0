package grbl

import (
	"errors"
	"strings"
)

var (
	// ErrClosed is returned by Session methods after the transport closed.
	ErrClosed = errors.New("grbl: session closed")

	// ErrDeviceReset resolves commands that were in flight when the
	// controller restarted.
	ErrDeviceReset = errors.New("grbl: controller reset")

	// ErrCommandTooLong is returned for a command that can never fit in
	// the controller's receive buffer.
	ErrCommandTooLong = errors.New("grbl: command exceeds receive buffer size")
)

// ResponseError is an `error:` response to a command.
type ResponseError struct {
	// Code is the text after `error:`, usually a number.
	Code string
}

func (e *ResponseError) Error() string { return "grbl: error:" + e.Code }

// IsResponseError reports whether err is a ResponseError with the given code.
func IsResponseError(err error, code string) bool {
	var re *ResponseError
	return errors.As(err, &re) && strings.TrimSpace(re.Code) == code
}

package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/idelchi/diskscope/internal/diskusage"
)

// Code classifies a command failure for the caller.
type Code string

// Failure codes.
const (
	CodeNotFound        Code = "not_found"
	CodeIOError         Code = "io_error"
	CodeInvalidArgument Code = "invalid_argument"
	CodeUnknownCommand  Code = "unknown_command"
	CodeCanceled        Code = "canceled"
)

// Error is a failed command invocation.
type Error struct {
	Command string
	Code    Code
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Command, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// errInvalidArgument marks argument decoding and validation failures.
var errInvalidArgument = errors.New("invalid argument")

// classify maps an error onto a Code.
func classify(err error) Code {
	var cmdErr *Error

	switch {
	case errors.As(err, &cmdErr):
		return cmdErr.Code
	case errors.Is(err, diskusage.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, errInvalidArgument):
		return CodeInvalidArgument
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CodeCanceled
	default:
		return CodeIOError
	}
}

// CodeOf returns the Code carried by err, or CodeIOError for foreign errors.
func CodeOf(err error) Code {
	return classify(err)
}

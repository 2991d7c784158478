// Package apperr carries the closed error taxonomy used at every layer
// boundary. Expected business failures travel as coded errors; anything
// uncoded is classified as Unprocessable at the outermost handler.
package apperr

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeNotFound         Code = "NOT_FOUND"
	CodeConflict         Code = "CONFLICT"
	CodeInvalidArgument  Code = "INVALID_ARGUMENT"
	CodeInvalidOperation Code = "INVALID_OPERATION"
	CodeUnprocessable    Code = "UNPROCESSABLE"
)

type Error struct {
	code Code
	msg  string
	err  error
}

func New(code Code, msg string) *Error {
	return &Error{code: code, msg: msg}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{code: code, msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code to an underlying error while keeping it reachable
// through errors.Is/As chains.
func Wrap(code Code, err error, msg string) *Error {
	return &Error{code: code, msg: msg, err: err}
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *Error) Code() Code { return e.code }

func (e *Error) Unwrap() error { return e.err }

// CodeOf classifies any error. Errors outside the taxonomy come back as
// CodeUnprocessable so the boundary contract stays closed.
func CodeOf(err error) Code {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.code
	}
	return CodeUnprocessable
}

func IsNotFound(err error) bool         { return CodeOf(err) == CodeNotFound }
func IsConflict(err error) bool         { return CodeOf(err) == CodeConflict }
func IsInvalidArgument(err error) bool  { return CodeOf(err) == CodeInvalidArgument }
func IsInvalidOperation(err error) bool { return CodeOf(err) == CodeInvalidOperation }

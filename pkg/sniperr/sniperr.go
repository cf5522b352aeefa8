// Package sniperr defines the errors returned by the dispatcher and the
// backends.
//
// Every failure surfaced to the editor is an *Error with a Kind. ReRunRanges
// also implements error, but it is a control-flow directive consumed by the
// event loop and is never shown to the user.
package sniperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an *Error.
type Kind int

// Possible values of Kind.
const (
	// A guarded invariant was broken.
	Unknown Kind = iota
	// The dispatcher or the store failed, not a backend.
	Internal
	// The buffer text could not be read.
	FetchCode
	// The backend cannot express what was asked.
	InterpreterLimitation
	// The backend could not tell whether the user code or itself was at
	// fault.
	Interpreter
	// The requested operation exceeds the backend's support level.
	UnsufficientSupportLevel
	// The build stage rejected the user code.
	Compilation
	// The execute stage failed.
	Runtime
	// Free-form error for unusual backends.
	Custom
)

var kindNames = [...]string{
	Unknown:                  "UnknownError",
	Internal:                 "InternalError",
	FetchCode:                "FetchCodeError",
	InterpreterLimitation:    "InterpreterLimitationError",
	Interpreter:              "InterpreterError",
	UnsufficientSupportLevel: "UnsufficientSupportLevel",
	Compilation:              "CompilationError",
	Runtime:                  "RuntimeError",
	Custom:                   "CustomError",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Error is an error returned by a pipeline stage or the dispatcher.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	switch e.Kind {
	case FetchCode:
		return "Failed to fetch code"
	case Interpreter:
		if e.Msg == "" {
			return "Error from interpreter"
		}
	case UnsufficientSupportLevel:
		return "Interpreter does not support the requested level"
	}
	if e.Msg == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Msg
}

// Is reports whether target is an *Error with the same Kind. It allows
// errors.Is(err, &Error{Kind: Runtime}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && (t.Msg == "" || t.Msg == e.Msg)
}

// New returns an *Error with the given kind and message.
func New(k Kind, msg string) *Error { return &Error{k, msg} }

// Newf returns an *Error with the given kind and a formatted message.
func Newf(k Kind, format string, args ...any) *Error {
	return &Error{k, fmt.Sprintf(format, args...)}
}

// Shorthands for constructing errors of each kind.

func UnknownError(msg string) *Error               { return New(Unknown, msg) }
func InternalError(msg string) *Error              { return New(Internal, msg) }
func FetchCodeError() *Error                       { return New(FetchCode, "") }
func InterpreterLimitationError(msg string) *Error { return New(InterpreterLimitation, msg) }
func InterpreterError(msg string) *Error           { return New(Interpreter, msg) }
func UnsufficientSupportLevelError() *Error        { return New(UnsufficientSupportLevel, "") }
func CompilationError(msg string) *Error           { return New(Compilation, msg) }
func RuntimeError(msg string) *Error               { return New(Runtime, msg) }
func CustomError(msg string) *Error                { return New(Custom, msg) }

// Range is an inclusive 1-based line span.
type Range struct {
	Start, End int
}

func (r Range) String() string { return fmt.Sprintf("%d-%d", r.Start, r.End) }

// ReRunRanges asks the event loop to dispatch again, once for each range, in
// order.
type ReRunRanges []Range

func (r ReRunRanges) Error() string {
	parts := make([]string, len(r))
	for i, rg := range r {
		parts[i] = rg.String()
	}
	return "rerun ranges [" + strings.Join(parts, ", ") + "]"
}

// AsReRun returns the ranges carried by err if it is (or wraps) a ReRunRanges.
func AsReRun(err error) (ReRunRanges, bool) {
	var r ReRunRanges
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}

// KindOf returns the Kind of err. Errors that are not *Error are reported as
// Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Wrap converts err to an *Error, keeping it unchanged if it already is one
// (or is a ReRunRanges). Other errors become InternalError.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if r, ok := AsReRun(err); ok {
		return r
	}
	return InternalError(err.Error())
}

// KeepsPreviousOutput reports whether a display should keep previously shown
// successful results when err is presented.
func KeepsPreviousOutput(err error) bool {
	return KindOf(err) == InterpreterLimitation
}

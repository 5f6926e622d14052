package model

import "fmt"

// ErrorKind classifies tool invocation failures with a stable identifier so
// callers can branch on the kind without matching message text.
type ErrorKind string

const (
	ErrorKindExecution       ErrorKind = "execution"
	ErrorKindInvalidArgument ErrorKind = "invalid_argument"
	ErrorKindTimeout         ErrorKind = "timeout"
	ErrorKindNotFound        ErrorKind = "not_found"
)

// ErrorDetail describes a failed tool invocation.
type ErrorDetail struct {
	Kind    ErrorKind
	Message string
}

// Result is the outcome of a single tool invocation. It is transient: only a
// summary (the tool name and rendered text) survives in the Turn.
type Result struct {
	Tool    string
	Payload string
	Err     *ErrorDetail

	// SideEffects reports whether the tool mutated external state (filesystem,
	// process table, clipboard, network). Tools must set this only when the
	// mutation was fully attempted.
	SideEffects bool
}

// NewResult returns a successful invocation result.
func NewResult(tool, payload string) *Result {
	return &Result{Tool: tool, Payload: payload}
}

// NewErrorResult returns a failed invocation result with the given kind.
func NewErrorResult(tool string, kind ErrorKind, err error) *Result {
	return &Result{
		Tool: tool,
		Err:  &ErrorDetail{Kind: kind, Message: err.Error()},
	}
}

// OK reports whether the invocation succeeded.
func (x *Result) OK() bool {
	return x.Err == nil
}

// Render returns the user-visible text for this result. Errors are always
// rendered as a message, never dropped.
func (x *Result) Render() string {
	if x.Err != nil {
		return fmt.Sprintf("Tool %s failed (%s): %s", x.Tool, x.Err.Kind, x.Err.Message)
	}
	return x.Payload
}

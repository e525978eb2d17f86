package llm

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// Reason identifies why a classification request failed.
type Reason string

const (
	ReasonTransport    Reason = "transport"
	ReasonNoChoices    Reason = "no_choices"
	ReasonEmptyContent Reason = "empty_content"
	ReasonTruncated    Reason = "truncated"
	ReasonMalformed    Reason = "malformed_reply"
)

// Error is returned for every failed classification request.
type Error struct {
	Reason Reason
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := "llm " + string(e.Reason)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error with the same Reason, so callers can write
// errors.Is(err, &llm.Error{Reason: llm.ReasonTruncated}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Reason == e.Reason
}

// ReasonOf returns the Reason carried by err, or "" when err is not an *Error.
func ReasonOf(err error) Reason {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}

func newError(reason Reason, err error, format string, args ...any) *Error {
	return &Error{Reason: reason, Detail: fmt.Sprintf(format, args...), Err: err}
}

func excerpt(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + fmt.Sprintf("... [truncated, total_length=%d]", len(s))
}

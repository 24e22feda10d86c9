package lsx

import (
	"strconv"
)

// MalformedTextError indicates markup that does not conform to the format:
// a syntax error, an unclosed element, a missing or invalid attribute, an
// unexpected element, or a wrong number of child elements.
type MalformedTextError struct {
	// Line is the line on which the problem was detected.
	Line int
	Msg  string
	// Cause is an optional underlying error, such as a failure to parse a
	// number.
	Cause error
}

func (err MalformedTextError) Error() string {
	s := "malformed text on line " + strconv.Itoa(err.Line) + ": " + err.Msg
	if err.Cause != nil {
		s += ": " + err.Cause.Error()
	}
	return s
}

func (err MalformedTextError) Unwrap() error {
	return err.Cause
}

// LineError wraps an error that is not a syntax error, such as an unknown
// record type or a bad reference, with the line on which it occurred.
type LineError struct {
	Line  int
	Cause error
}

func (err LineError) Error() string {
	return "line " + strconv.Itoa(err.Line) + ": " + err.Cause.Error()
}

func (err LineError) Unwrap() error {
	return err.Cause
}

// ErrUnrecognizedVersion indicates a version attribute on the root element
// that is not recognized by the codec.
type ErrUnrecognizedVersion string

func (err ErrUnrecognizedVersion) Error() string {
	return "unrecognized version " + strconv.Quote(string(err))
}

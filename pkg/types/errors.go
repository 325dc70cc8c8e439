package types

import (
	"errors"
	"fmt"
)

// Feed and derivation errors. Typed errors below wrap one of these so callers
// can classify a failure with errors.Is.
var (
	ErrParse  = errors.New("parse error")
	ErrFormat = errors.New("format error")
	ErrJoin   = errors.New("join error")
)

// Sink errors.
var (
	ErrSinkClosed       = errors.New("sink is closed")
	ErrInvalidTableName = errors.New("invalid table name")
	ErrRowWidth         = errors.New("row width does not match columns")
)

// ParseError reports a feed file that cannot be read or lacks a required column.
type ParseError struct {
	File   string // Path of the offending file.
	Line   int    // 1-based line, 0 when not tied to a line.
	Column string // Missing column, if any.
	Err    error
}

func (e *ParseError) Error() string {
	switch {
	case e.Column != "":
		return fmt.Sprintf("parse %s: missing required column %q", e.File, e.Column)
	case e.Line > 0:
		return fmt.Sprintf("parse %s:%d: %v", e.File, e.Line, e.Err)
	default:
		return fmt.Sprintf("parse %s: %v", e.File, e.Err)
	}
}

// Unwrap lets errors.Is match both ErrParse and the underlying cause.
func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrParse}
	}
	return []error{ErrParse, e.Err}
}

// FormatError reports a field whose value cannot be coerced to its declared type.
type FormatError struct {
	File   string
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("format %s:%d: column %q value %q: %v", e.File, e.Line, e.Column, e.Value, e.Err)
}

func (e *FormatError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrFormat}
	}
	return []error{ErrFormat, e.Err}
}

// JoinError reports structurally invalid input to the derivation engine.
type JoinError struct {
	Step   string // Join step that failed, e.g. "trips-routes".
	Reason string
}

func (e *JoinError) Error() string {
	return fmt.Sprintf("join %s: %s", e.Step, e.Reason)
}

func (e *JoinError) Unwrap() error { return ErrJoin }

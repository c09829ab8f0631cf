package sighting

import (
	"errors"
	"fmt"
)

// Kind classifies a parse failure.
type Kind int

// Parse failure kinds.
const (
	MissingField Kind = iota + 1
	BadTimestamp
	BadSkyLocation
	BadDuration
	BadElevation
	BadFeed
)

func (k Kind) String() string {
	switch k {
	case MissingField:
		return "missing field"
	case BadTimestamp:
		return "bad timestamp"
	case BadSkyLocation:
		return "bad sky location"
	case BadDuration:
		return "bad duration"
	case BadElevation:
		return "bad elevation"
	case BadFeed:
		return "bad feed"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is matching against a *ParseError.
var (
	ErrMissingField   = errors.New("missing field")
	ErrBadTimestamp   = errors.New("bad timestamp")
	ErrBadSkyLocation = errors.New("bad sky location")
	ErrBadDuration    = errors.New("bad duration")
	ErrBadElevation   = errors.New("bad elevation")
	ErrBadFeed        = errors.New("bad feed")
)

// ParseError describes why a feed entry could not be turned into a Sighting.
type ParseError struct {
	Kind  Kind
	Field string
	Value string
	Cause error
}

func (e *ParseError) Error() string {
	msg := e.Kind.String()
	if e.Field != "" {
		msg = fmt.Sprintf("%s %q", msg, e.Field)
	}
	if e.Value != "" {
		msg = fmt.Sprintf("%s: %q", msg, e.Value)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel for the error's kind.
func (e *ParseError) Is(target error) bool {
	switch e.Kind {
	case MissingField:
		return target == ErrMissingField
	case BadTimestamp:
		return target == ErrBadTimestamp
	case BadSkyLocation:
		return target == ErrBadSkyLocation
	case BadDuration:
		return target == ErrBadDuration
	case BadElevation:
		return target == ErrBadElevation
	case BadFeed:
		return target == ErrBadFeed
	}
	return false
}

func newParseError(kind Kind, field, value string, cause error) *ParseError {
	return &ParseError{
		Kind:  kind,
		Field: field,
		Value: value,
		Cause: cause,
	}
}

package model

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel kinds shared across the domain. Callers match with errors.Is.
var (
	ErrNoActivePeriod      = errors.New("no active gameweek")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrInvalidPosition     = errors.New("invalid position")
	ErrInvalidRequest      = errors.New("invalid request")
)

// UpstreamError marks a failure of an external collaborator (schedule feed,
// projection store, cache backend). It matches ErrUpstreamUnavailable and
// unwraps to the underlying cause.
type UpstreamError struct {
	Source string
	Op     string
	Err    error
}

// NewUpstreamError wraps err as an UpstreamError. A nil err yields nil and
// caller cancellation is returned unchanged.
func NewUpstreamError(source, op string, err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return err
	}
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return err
	}
	return &UpstreamError{Source: source, Op: op, Err: err}
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Source, e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() []error {
	return []error{ErrUpstreamUnavailable, e.Err}
}

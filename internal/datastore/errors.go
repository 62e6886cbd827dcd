// internal/datastore/errors.go
package datastore

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrInvalidRange    = errors.New("datastore: invalid datapoint range")
	ErrNotInitialized  = errors.New("datastore: not initialized")
	ErrFull            = errors.New("datastore: capacity full")
	ErrNotFound        = errors.New("datastore: subscription not found")
	ErrInvalidArgument = errors.New("datastore: invalid argument")
	ErrTimeout         = errors.New("datastore: timeout")
	ErrCallbackFailure = errors.New("datastore: subscription callback failed")
	ErrStopped         = errors.New("datastore: stopped")
	ErrAlreadyRunning  = errors.New("datastore: already running")
	ErrAllocation      = errors.New("datastore: allocation failure")

	// Pool errors. ErrExhausted is a Full condition; ErrCapacityExceeded is a
	// caller error (double release or foreign buffer).
	ErrExhausted        = fmt.Errorf("%w: buffer pool exhausted", ErrFull)
	ErrCapacityExceeded = fmt.Errorf("%w: buffer pool capacity exceeded", ErrInvalidArgument)
)

// CallbackError reports a subscriber that returned an error during
// notification. The write that triggered it has already been committed.
type CallbackError struct {
	Type   Type
	Handle Handle
	Err    error
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("datastore: %s subscription %d callback failed: %v", e.Type, e.Handle, e.Err)
}

func (e *CallbackError) Unwrap() error { return e.Err }

func (e *CallbackError) Is(target error) bool { return target == ErrCallbackFailure }

func rangeErrf(t Type, first uint32, count int, limit int) error {
	return fmt.Errorf("%w: %s [%d,+%d) exceeds %d datapoints", ErrInvalidRange, t, first, count, limit)
}

// Status is the abstract result code of a datastore operation, for
// collaborators (shell, field bus status registers) that need a number.
type Status uint16

const (
	StatusOK Status = iota
	StatusInvalidRange
	StatusNotInitialized
	StatusFull
	StatusNotFound
	StatusInvalidArgument
	StatusTimeout
	StatusCallbackFailure
	StatusStopped
	StatusInternal
)

var statusNames = [...]string{
	StatusOK:              "ok",
	StatusInvalidRange:    "invalid range",
	StatusNotInitialized:  "not initialized",
	StatusFull:            "full",
	StatusNotFound:        "not found",
	StatusInvalidArgument: "invalid argument",
	StatusTimeout:         "timeout",
	StatusCallbackFailure: "callback failure",
	StatusStopped:         "stopped",
	StatusInternal:        "internal",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("status(%d)", uint16(s))
}

// Code exposes the status as a register-sized error code.
func (s Status) Code() uint16 { return uint16(s) }

// StatusOf classifies err. The order matters: a callback failure may wrap
// any other error returned by the subscriber.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrCallbackFailure):
		return StatusCallbackFailure
	case errors.Is(err, ErrInvalidRange):
		return StatusInvalidRange
	case errors.Is(err, ErrNotInitialized):
		return StatusNotInitialized
	case errors.Is(err, ErrFull):
		return StatusFull
	case errors.Is(err, ErrNotFound):
		return StatusNotFound
	case errors.Is(err, ErrInvalidArgument):
		return StatusInvalidArgument
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return StatusTimeout
	case errors.Is(err, ErrStopped), errors.Is(err, context.Canceled):
		return StatusStopped
	default:
		return StatusInternal
	}
}

// internal/datastore/errors_test.go
package datastore

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusOf(t *testing.T) {
	for _, tc := range []struct {
		err  error
		want Status
	}{
		{nil, StatusOK},
		{rangeErrf(Float, 3, 2, 4), StatusInvalidRange},
		{ErrNotInitialized, StatusNotInitialized},
		{ErrExhausted, StatusFull},
		{fmt.Errorf("subscribe: %w", ErrFull), StatusFull},
		{ErrNotFound, StatusNotFound},
		{ErrCapacityExceeded, StatusInvalidArgument},
		{ErrTimeout, StatusTimeout},
		{context.DeadlineExceeded, StatusTimeout},
		{context.Canceled, StatusStopped},
		{ErrStopped, StatusStopped},
		{&CallbackError{Type: Float, Handle: 1, Err: ErrInvalidRange}, StatusCallbackFailure},
		{errors.New("disk on fire"), StatusInternal},
	} {
		assert.Equal(t, tc.want, StatusOf(tc.err), "%v", tc.err)
	}
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "callback failure", StatusCallbackFailure.String())
	assert.Equal(t, "status(99)", Status(99).String())
	assert.Equal(t, uint16(6), StatusTimeout.Code())
}

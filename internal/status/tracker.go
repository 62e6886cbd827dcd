// internal/status/tracker.go
package status

import (
	"errors"
	"time"

	"github.com/goburrow/modbus"

	"github.com/tamzrod/datastore/internal/datastore"
)

// Tracker owns the device-level truth of one unit. It is driven by poll
// results and a 1 Hz tick and is not safe for concurrent use.
type Tracker struct {
	snap       Snapshot
	staleAfter time.Duration
	lastOK     time.Time
}

// NewTracker starts in HealthUnknown. staleAfter=0 disables stale detection.
func NewTracker(staleAfter time.Duration) *Tracker {
	return &Tracker{
		snap:       Snapshot{Health: HealthUnknown},
		staleAfter: staleAfter,
	}
}

func (t *Tracker) Snapshot() Snapshot { return t.snap }

// Observe folds one poll outcome into the snapshot and reports whether it changed.
func (t *Tracker) Observe(err error, at time.Time) bool {
	prev := t.snap

	if err == nil {
		// Recovery / OK
		t.lastOK = at
		t.snap.Health = HealthOK
		t.snap.LastErrorCode = 0
		t.snap.SecondsInError = 0
	} else {
		t.snap.Health = HealthError
		t.snap.LastErrorCode = ErrorCode(err)
		// seconds_in_error increments on Tick only.
	}

	return t.snap != prev
}

// Tick advances the 1 Hz clock. In Error or Stale the seconds counter
// grows, saturating at MaxSecondsInError. A healthy device without a
// successful poll for staleAfter turns stale.
func (t *Tracker) Tick(at time.Time) bool {
	switch t.snap.Health {
	case HealthOK:
		if t.staleAfter <= 0 || at.Sub(t.lastOK) <= t.staleAfter {
			return false
		}
		t.snap.Health = HealthStale
		return true
	case HealthError, HealthStale:
	default:
		// still booting, or disabled
		return false
	}

	if t.snap.SecondsInError >= MaxSecondsInError {
		return false
	}
	t.snap.SecondsInError++
	return true
}

// ErrorCode extracts a best-effort uint16 code from an error without assuming concrete types.
// Modbus exceptions report their exception code, datastore failures their
// status code above ErrorDatastoreBase. Anything else returns ErrorGeneric.
func ErrorCode(err error) uint16 {
	if err == nil {
		return 0
	}

	var mbErr *modbus.ModbusError
	if errors.As(err, &mbErr) {
		return uint16(mbErr.ExceptionCode)
	}

	type coderA interface{ Code() uint16 }
	type coderB interface{ ErrorCode() uint16 }

	var a coderA
	if errors.As(err, &a) {
		return a.Code()
	}
	var b coderB
	if errors.As(err, &b) {
		return b.ErrorCode()
	}

	if st := datastore.StatusOf(err); st != datastore.StatusInternal {
		return ErrorDatastoreBase + st.Code()
	}

	return ErrorGeneric
}

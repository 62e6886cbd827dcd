// internal/status/tracker_test.go
package status

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/goburrow/modbus"

	"github.com/tamzrod/datastore/internal/datastore"
)

var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestTracker_ErrorThenRecovery(t *testing.T) {
	tr := NewTracker(0)
	if tr.Snapshot().Health != HealthUnknown {
		t.Fatalf("initial health = %d", tr.Snapshot().Health)
	}

	if !tr.Observe(errors.New("dial tcp: refused"), t0) {
		t.Fatalf("first error must change the snapshot")
	}
	if tr.Observe(errors.New("dial tcp: refused"), t0) {
		t.Fatalf("repeated identical error must not change the snapshot")
	}

	for i := 0; i < 3; i++ {
		if !tr.Tick(t0.Add(time.Duration(i+1) * time.Second)) {
			t.Fatalf("tick %d in error must change the snapshot", i)
		}
	}

	snap := tr.Snapshot()
	if snap.Health != HealthError || snap.LastErrorCode != ErrorGeneric || snap.SecondsInError != 3 {
		t.Fatalf("snapshot in error = %+v", snap)
	}

	if !tr.Observe(nil, t0.Add(4*time.Second)) {
		t.Fatalf("recovery must change the snapshot")
	}
	if got := tr.Snapshot(); got != (Snapshot{Health: HealthOK}) {
		t.Fatalf("snapshot after recovery = %+v", got)
	}
	if tr.Tick(t0.Add(5 * time.Second)) {
		t.Fatalf("tick while healthy must not change the snapshot")
	}
}

func TestTracker_SecondsSaturate(t *testing.T) {
	tr := NewTracker(0)
	tr.Observe(errors.New("x"), t0)
	tr.snap.SecondsInError = MaxSecondsInError - 1

	if !tr.Tick(t0) {
		t.Fatalf("expected last increment")
	}
	if tr.Tick(t0) {
		t.Fatalf("seconds_in_error must not wrap")
	}
	if tr.Snapshot().SecondsInError != MaxSecondsInError {
		t.Fatalf("seconds = %d", tr.Snapshot().SecondsInError)
	}
}

func TestTracker_Stale(t *testing.T) {
	tr := NewTracker(3 * time.Second)
	tr.Observe(nil, t0)

	if tr.Tick(t0.Add(3 * time.Second)) {
		t.Fatalf("not stale yet")
	}
	if !tr.Tick(t0.Add(4 * time.Second)) {
		t.Fatalf("expected stale")
	}
	if tr.Snapshot().Health != HealthStale {
		t.Fatalf("health = %d", tr.Snapshot().Health)
	}
	if !tr.Tick(t0.Add(5*time.Second)) || tr.Snapshot().SecondsInError != 1 {
		t.Fatalf("stale devices count seconds: %+v", tr.Snapshot())
	}
	if !tr.Observe(nil, t0.Add(6*time.Second)) || !tr.Snapshot().Healthy() {
		t.Fatalf("fresh poll must recover: %+v", tr.Snapshot())
	}
}

func TestTracker_UnknownDoesNotCountSeconds(t *testing.T) {
	tr := NewTracker(3 * time.Second)

	for i := 0; i < 5; i++ {
		if tr.Tick(t0.Add(time.Duration(i+1) * time.Second)) {
			t.Fatalf("tick %d before the first poll must not change the snapshot", i)
		}
	}
	if got := tr.Snapshot(); got != (Snapshot{Health: HealthUnknown}) {
		t.Fatalf("snapshot before the first poll = %+v", got)
	}

	tr.Observe(errors.New("timeout"), t0.Add(6*time.Second))
	if !tr.Tick(t0.Add(7*time.Second)) || tr.Snapshot().SecondsInError != 1 {
		t.Fatalf("seconds start with the first error: %+v", tr.Snapshot())
	}
}

type codedErr uint16

func (e codedErr) Error() string { return fmt.Sprintf("coded %d", uint16(e)) }
func (e codedErr) Code() uint16  { return uint16(e) }

func TestErrorCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want uint16
	}{
		{"nil", nil, 0},
		{"modbus exception", fmt.Errorf("read: %w", &modbus.ModbusError{FunctionCode: 3, ExceptionCode: 2}), 2},
		{"coder", fmt.Errorf("wrapped: %w", codedErr(77)), 77},
		{"datastore range", datastore.ErrInvalidRange, ErrorDatastoreBase + datastore.StatusInvalidRange.Code()},
		{"datastore timeout", fmt.Errorf("write: %w", datastore.ErrTimeout), ErrorDatastoreBase + datastore.StatusTimeout.Code()},
		{"plain", errors.New("boom"), ErrorGeneric},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ErrorCode(tc.err); got != tc.want {
				t.Fatalf("ErrorCode = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestEncode(t *testing.T) {
	got := Encode(Snapshot{Health: HealthError, LastErrorCode: 4, SecondsInError: 9})
	want := []uint32{uint32(HealthError), 4, 9}
	if len(got) != SlotsPerDevice {
		t.Fatalf("len = %d", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("slot %d = %d, want %d", i, got[i], want[i])
		}
	}
	if HealthName(HealthStale) != "stale" || HealthName(99) != "invalid" {
		t.Fatalf("health names")
	}
}

// internal/datastore/notify.go
package datastore

import (
	"errors"
	"fmt"
)

// state is everything the actor owns: tables, registries and the pool.
type state struct {
	tables [TypeCount]table
	subs   [TypeCount]registry
	pool   *Pool
}

// notify delivers the post-write values to every unpaused subscription of
// type t whose span intersects [first, first+count). It stops at the first
// failure.
func (st *state) notify(t Type, first uint32, count int) (delivered int, err error) {
	reg := &st.subs[t]
	for i := range reg.entries {
		sub := &reg.entries[i]
		if sub.paused || !sub.overlaps(first, count) {
			continue
		}
		if err := st.deliver(t, sub); err != nil {
			return delivered, err
		}
		delivered++
	}
	return delivered, nil
}

// notifyAll gives every unpaused subscription a snapshot, regardless of a
// preceding write. Each type stops at its first failure; failed counts the
// types that stopped and their errors are joined.
func (st *state) notifyAll() (delivered, failed int, err error) {
	var errs []error
	for t := Type(0); t < TypeCount; t++ {
		reg := &st.subs[t]
		for i := range reg.entries {
			sub := &reg.entries[i]
			if sub.paused {
				continue
			}
			if err := st.deliver(t, sub); err != nil {
				errs = append(errs, err)
				break
			}
			delivered++
		}
	}
	return delivered, len(errs), errors.Join(errs...)
}

// deliver stages the subscription's whole span into a pool buffer, invokes
// the callback and releases the buffer.
func (st *state) deliver(t Type, sub *subscription) error {
	buf, err := st.pool.Acquire()
	if err != nil {
		return fmt.Errorf("%s subscription %d: %w", t, sub.handle, err)
	}

	view := buf[:sub.count]
	if err := st.tables[t].read(sub.first, view); err != nil {
		_ = st.pool.Release(buf)
		return err
	}

	cbErr := invoke(sub.cb, view)

	if err := st.pool.Release(buf); err != nil {
		return fmt.Errorf("%s subscription %d: %w", t, sub.handle, err)
	}
	if cbErr != nil {
		return &CallbackError{Type: t, Handle: sub.handle, Err: cbErr}
	}
	return nil
}

// invoke converts a subscriber panic into an error so the actor survives.
func invoke(cb Callback, values []Value) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return cb(values)
}

// internal/datastore/registry.go
package datastore

import "fmt"

// Handle identifies one subscription. Handles are assigned at subscribe
// time and never reused; the zero Handle is never valid.
type Handle uint32

// Callback receives the subscription's whole declared span.
// The slice is a pool buffer owned by the store: it is valid only until the
// callback returns. Callbacks run on the actor goroutine and must not call
// back into the store synchronously.
type Callback func(values []Value) error

// subscription is a registered interest in [first, first+count).
type subscription struct {
	handle Handle
	first  uint32
	count  int
	paused bool
	cb     Callback
}

// overlaps reports whether [first, first+count) intersects the span.
// A single changed index i hits the subscription iff overlaps(i, 1).
func (s *subscription) overlaps(first uint32, count int) bool {
	if count <= 0 {
		return false
	}
	end := uint64(first) + uint64(count)
	subEnd := uint64(s.first) + uint64(s.count)
	return uint64(s.first) < end && uint64(first) < subEnd
}

// registry is the fixed-capacity subscription table of one type.
// Insertion order is notification order.
type registry struct {
	typ       Type
	entries   []subscription
	maxCount  int
	allocated bool
}

// allocate reserves capacity once, before any add.
func (r *registry) allocate(t Type, maxCount int) error {
	if r.allocated {
		return fmt.Errorf("%w: %s subscriptions already allocated", ErrInvalidArgument, t)
	}
	if maxCount < 0 || maxCount > maxPoolValues {
		return fmt.Errorf("%w: %d %s subscriptions", ErrAllocation, maxCount, t)
	}
	r.typ = t
	r.entries = make([]subscription, 0, maxCount)
	r.maxCount = maxCount
	r.allocated = true
	return nil
}

func (r *registry) add(sub subscription) error {
	if !r.allocated {
		return fmt.Errorf("%w: %s subscription records", ErrNotInitialized, r.typ)
	}
	if sub.cb == nil || sub.handle == 0 {
		return fmt.Errorf("%w: %s subscription callback", ErrInvalidArgument, r.typ)
	}
	if len(r.entries) >= r.maxCount {
		return fmt.Errorf("%w: no free %s subscription record (max %d)", ErrFull, r.typ, r.maxCount)
	}
	r.entries = append(r.entries, sub)
	return nil
}

// setPaused flags the first entry matching h.
func (r *registry) setPaused(h Handle, paused bool) error {
	if h == 0 {
		return fmt.Errorf("%w: %s subscription handle", ErrInvalidArgument, r.typ)
	}
	for i := range r.entries {
		if r.entries[i].handle == h {
			r.entries[i].paused = paused
			return nil
		}
	}
	return fmt.Errorf("%w: %s subscription %d", ErrNotFound, r.typ, h)
}

func (r *registry) active() int { return len(r.entries) }

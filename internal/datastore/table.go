// internal/datastore/table.go
package datastore

// table is the contiguous storage of one datapoint type.
// No locking: only the actor goroutine touches it once the store runs.
type table struct {
	typ    Type
	points []Datapoint
}

func newTable(t Type, entries []Entry) table {
	points := make([]Datapoint, len(entries))
	for i, e := range entries {
		points[i] = Datapoint{Value: e.Default, Flags: e.Flags}
	}
	return table{typ: t, points: points}
}

func (t *table) len() int { return len(t.points) }

// checkRange enforces first+count <= N_type without overflowing.
func (t *table) checkRange(first uint32, count int) error {
	if count <= 0 {
		return ErrInvalidArgument
	}
	if uint64(first)+uint64(count) > uint64(len(t.points)) {
		return rangeErrf(t.typ, first, count, len(t.points))
	}
	return nil
}

// read copies len(dst) values starting at first into dst.
func (t *table) read(first uint32, dst []Value) error {
	if err := t.checkRange(first, len(dst)); err != nil {
		return err
	}
	for i := range dst {
		dst[i] = t.points[int(first)+i].Value
	}
	return nil
}

// write stores src starting at first. The whole request is rejected when
// any index is out of range. changed is true when at least one value differs.
func (t *table) write(first uint32, src []Value) (changed bool, err error) {
	if err := t.checkRange(first, len(src)); err != nil {
		return false, err
	}
	for i, v := range src {
		p := &t.points[int(first)+i]
		if p.Value != v {
			p.Value = v
			changed = true
		}
	}
	return changed, nil
}

// persistRuns calls fn for every maximal run of FlagPersist datapoints.
func (t *table) persistRuns(fn func(first uint32, count int)) {
	start := -1
	for i, p := range t.points {
		switch {
		case p.Flags.Persist() && start < 0:
			start = i
		case !p.Flags.Persist() && start >= 0:
			fn(uint32(start), i-start)
			start = -1
		}
	}
	if start >= 0 {
		fn(uint32(start), len(t.points)-start)
	}
}

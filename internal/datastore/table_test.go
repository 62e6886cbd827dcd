// internal/datastore/table_test.go
package datastore

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uintEntries(vals ...uint32) []Entry {
	out := make([]Entry, len(vals))
	for i, v := range vals {
		out[i] = Entry{Name: "U" + string(rune('A'+i)), Default: UintValue(v)}
	}
	return out
}

func TestTable_RangeSafety(t *testing.T) {
	tbl := newTable(UnsignedInt, uintEntries(10, 11, 12, 13))

	for first := uint32(0); first <= 5; first++ {
		for count := 1; count <= 5; count++ {
			dst := make([]Value, count)
			err := tbl.read(first, dst)
			_, werr := tbl.write(first, dst)

			if int(first)+count <= 4 {
				assert.NoError(t, err, "read first=%d count=%d", first, count)
				assert.NoError(t, werr, "write first=%d count=%d", first, count)
			} else {
				assert.ErrorIs(t, err, ErrInvalidRange, "read first=%d count=%d", first, count)
				assert.ErrorIs(t, werr, ErrInvalidRange, "write first=%d count=%d", first, count)
			}
		}
	}
}

func TestTable_RangeCheckDoesNotOverflow(t *testing.T) {
	tbl := newTable(UnsignedInt, uintEntries(1, 2))
	err := tbl.checkRange(math.MaxUint32, 2)
	require.ErrorIs(t, err, ErrInvalidRange)
}

func TestTable_WriteReportsChange(t *testing.T) {
	tbl := newTable(UnsignedInt, uintEntries(1, 2, 3))

	changed, err := tbl.write(0, []Value{1, 2})
	require.NoError(t, err)
	assert.False(t, changed, "identical values are not a change")

	changed, err = tbl.write(1, []Value{2, 30})
	require.NoError(t, err)
	assert.True(t, changed)

	got := make([]Value, 3)
	require.NoError(t, tbl.read(0, got))
	assert.Equal(t, []Value{1, 2, 30}, got)
}

func TestTable_RejectsWholePartialWrite(t *testing.T) {
	tbl := newTable(UnsignedInt, uintEntries(1, 2, 3))

	_, err := tbl.write(2, []Value{7, 8})
	require.ErrorIs(t, err, ErrInvalidRange)

	got := make([]Value, 3)
	require.NoError(t, tbl.read(0, got))
	assert.Equal(t, []Value{1, 2, 3}, got, "no element of a rejected write is stored")
}

func TestTable_PersistRuns(t *testing.T) {
	entries := uintEntries(0, 0, 0, 0, 0, 0)
	entries[0].Flags = FlagPersist
	entries[1].Flags = FlagPersist
	entries[3].Flags = FlagPersist
	entries[4].Flags = FlagPersist
	entries[5].Flags = FlagPersist
	tbl := newTable(UnsignedInt, entries)

	type run struct {
		first uint32
		count int
	}
	var got []run
	tbl.persistRuns(func(first uint32, count int) { got = append(got, run{first, count}) })

	assert.Equal(t, []run{{0, 2}, {3, 3}}, got)
}

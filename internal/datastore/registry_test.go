// internal/datastore/registry_test.go
package datastore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nopCallback([]Value) error { return nil }

func TestSubscription_HalfOpenRange(t *testing.T) {
	sub := subscription{first: 2, count: 3} // [2,5)

	for i, want := range map[uint32]bool{0: false, 1: false, 2: true, 3: true, 4: true, 5: false, 6: false} {
		assert.Equal(t, want, sub.overlaps(i, 1), "index %d", i)
	}

	assert.True(t, sub.overlaps(0, 3), "[0,3) touches 2")
	assert.False(t, sub.overlaps(0, 2), "[0,2) ends before 2")
	assert.True(t, sub.overlaps(4, 10))
	assert.False(t, sub.overlaps(5, 10))
	assert.False(t, sub.overlaps(3, 0))
}

func TestRegistry_AddBounds(t *testing.T) {
	var r registry
	err := r.add(subscription{handle: 1, count: 1, cb: nopCallback})
	require.ErrorIs(t, err, ErrNotInitialized)

	require.NoError(t, r.allocate(Float, 2))
	require.Error(t, r.allocate(Float, 2), "allocation happens once")

	err = r.add(subscription{handle: 1, count: 1})
	require.ErrorIs(t, err, ErrInvalidArgument)

	require.NoError(t, r.add(subscription{handle: 1, count: 1, cb: nopCallback}))
	require.NoError(t, r.add(subscription{handle: 2, count: 1, cb: nopCallback}))

	err = r.add(subscription{handle: 3, count: 1, cb: nopCallback})
	require.ErrorIs(t, err, ErrFull)
	assert.Equal(t, 2, r.active())
}

func TestRegistry_ZeroCapacity(t *testing.T) {
	var r registry
	require.NoError(t, r.allocate(Button, 0))
	err := r.add(subscription{handle: 1, count: 1, cb: nopCallback})
	require.ErrorIs(t, err, ErrFull)
}

func TestRegistry_SetPaused(t *testing.T) {
	var r registry
	require.NoError(t, r.allocate(SignedInt, 3))
	require.NoError(t, r.add(subscription{handle: 5, count: 1, cb: nopCallback}))
	require.NoError(t, r.add(subscription{handle: 6, count: 1, cb: nopCallback}))

	require.NoError(t, r.setPaused(6, true))
	assert.False(t, r.entries[0].paused)
	assert.True(t, r.entries[1].paused)

	require.NoError(t, r.setPaused(6, false))
	assert.False(t, r.entries[1].paused)

	require.ErrorIs(t, r.setPaused(0, true), ErrInvalidArgument)
	require.ErrorIs(t, r.setPaused(42, true), ErrNotFound)
}

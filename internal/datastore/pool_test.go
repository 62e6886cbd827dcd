// internal/datastore/pool_test.go
package datastore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPool_RejectsBadSizes(t *testing.T) {
	for _, tc := range []struct {
		name             string
		bufSize, poolLen int
	}{
		{"zero buffer", 0, 4},
		{"zero pool", 4, 0},
		{"negative", -1, 4},
		{"too large", maxPoolValues, 2},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p, err := NewPool(tc.bufSize, tc.poolLen)
			require.ErrorIs(t, err, ErrAllocation)
			assert.Nil(t, p)
		})
	}
}

func TestPool_Conservation(t *testing.T) {
	p, err := NewPool(8, 3)
	require.NoError(t, err)
	require.Equal(t, 3, p.Available())

	var held [][]Value
	for i := 0; i < 3; i++ {
		buf, err := p.Acquire()
		require.NoError(t, err)
		require.Len(t, buf, 8)
		held = append(held, buf)
	}
	assert.Equal(t, 0, p.Available())

	_, err = p.Acquire()
	require.ErrorIs(t, err, ErrExhausted)
	require.ErrorIs(t, err, ErrFull)

	for _, buf := range held {
		require.NoError(t, p.Release(buf))
	}
	assert.Equal(t, 3, p.Available())

	// One more release than outstanding buffers.
	err = p.Release(held[0])
	require.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, 3, p.Available())
}

func TestPool_StackDiscipline(t *testing.T) {
	p, err := NewPool(4, 2)
	require.NoError(t, err)

	a, err := p.Acquire()
	require.NoError(t, err)
	require.NoError(t, p.Release(a))

	b, err := p.Acquire()
	require.NoError(t, err)
	assert.Same(t, &a[0], &b[0], "most recently freed buffer is handed out first")
}

func TestPool_ReleaseRestoresFullLength(t *testing.T) {
	p, err := NewPool(6, 1)
	require.NoError(t, err)

	buf, err := p.Acquire()
	require.NoError(t, err)
	require.NoError(t, p.Release(buf[:2]))

	buf, err = p.Acquire()
	require.NoError(t, err)
	assert.Len(t, buf, 6)
}

func TestPool_RejectsForeignBuffer(t *testing.T) {
	p, err := NewPool(4, 2)
	require.NoError(t, err)

	_, err = p.Acquire()
	require.NoError(t, err)

	err = p.Release(make([]Value, 10))
	require.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, 1, p.Available())
}

func TestPool_BuffersDoNotAlias(t *testing.T) {
	p, err := NewPool(2, 2)
	require.NoError(t, err)

	a, _ := p.Acquire()
	b, _ := p.Acquire()
	a = append(a, 99) // capacity is exact: append must reallocate
	a[0] = 1
	assert.Equal(t, Value(0), b[0])
	assert.Equal(t, Value(0), b[1])
}

func TestPool_DoubleReleaseWhileOthersOutstanding(t *testing.T) {
	p, err := NewPool(4, 3)
	require.NoError(t, err)

	a, err := p.Acquire()
	require.NoError(t, err)
	_, err = p.Acquire()
	require.NoError(t, err)

	require.NoError(t, p.Release(a))
	require.ErrorIs(t, p.Release(a), ErrCapacityExceeded)
	assert.Equal(t, 2, p.Available())

	x, err := p.Acquire()
	require.NoError(t, err)
	y, err := p.Acquire()
	require.NoError(t, err)
	assert.NotSame(t, &x[0], &y[0], "no buffer is handed out twice")
}

func TestPool_RejectsBufferOfSameSizeFromElsewhere(t *testing.T) {
	p, err := NewPool(4, 1)
	require.NoError(t, err)
	_, err = p.Acquire()
	require.NoError(t, err)

	require.ErrorIs(t, p.Release(make([]Value, 4)), ErrCapacityExceeded)
	assert.Equal(t, 0, p.Available())
}

func TestPool_LentShareLeavesReserve(t *testing.T) {
	p, err := NewPool(2, 3)
	require.NoError(t, err)
	require.NoError(t, p.LendCallers(2))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	a, err := p.AcquireWait(ctx)
	require.NoError(t, err)
	_, err = p.AcquireWait(ctx)
	require.NoError(t, err)

	// Callers are at their share: the next one waits and gives up with ctx.
	_, err = p.AcquireWait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// The reserve is still there, once.
	r, err := p.Acquire()
	require.NoError(t, err)
	_, err = p.Acquire()
	require.ErrorIs(t, err, ErrExhausted)
	require.NoError(t, p.Release(r))

	require.NoError(t, p.Release(a))
	_, err = p.AcquireWait(context.Background())
	require.NoError(t, err)
}

func TestPool_AcquireWaitWakesOnRelease(t *testing.T) {
	p, err := NewPool(2, 2)
	require.NoError(t, err)
	require.NoError(t, p.LendCallers(1))

	held, err := p.AcquireWait(context.Background())
	require.NoError(t, err)

	got := make(chan error, 1)
	go func() {
		_, err := p.AcquireWait(context.Background())
		got <- err
	}()

	select {
	case <-got:
		t.Fatal("second caller did not wait")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, p.Release(held))
	select {
	case err := <-got:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("waiting caller was not woken")
	}
}

func TestPool_LendCallersBounds(t *testing.T) {
	p, err := NewPool(2, 2)
	require.NoError(t, err)
	require.ErrorIs(t, p.LendCallers(2), ErrAllocation, "the reserve keeps at least one buffer")
	require.ErrorIs(t, p.LendCallers(-1), ErrAllocation)

	_, err = p.Acquire()
	require.NoError(t, err)
	require.ErrorIs(t, p.LendCallers(1), ErrInvalidArgument)
}

// internal/datastore/pool.go
package datastore

import (
	"context"
	"fmt"
	"sync"
)

// maxPoolValues bounds the single backing allocation of a pool.
const maxPoolValues = 1 << 24

// Pool is a fixed set of fixed-size scratch buffers allocated once.
// Buffers are interchangeable; the free list is a stack.
//
// A pool may lend part of its buffers to callers (AcquireWait). The rest is
// a reserve only Acquire can take, so callers queueing for buffers never
// starve the owner.
type Pool struct {
	mu         sync.Mutex
	bufferSize int
	size       int
	free       [][]Value

	// outstanding buffers by base element; true when lent to a caller
	out map[*Value]bool

	// one token per lent buffer; nil when nothing is lent
	lend     chan struct{}
	reserve  int
	reserved int
}

// NewPool allocates poolSize buffers of bufferSize values each.
// Either the whole pool is allocated or nothing is.
func NewPool(bufferSize, poolSize int) (*Pool, error) {
	if bufferSize <= 0 || poolSize <= 0 {
		return nil, fmt.Errorf("%w: pool %dx%d", ErrAllocation, poolSize, bufferSize)
	}
	if bufferSize > maxPoolValues/poolSize {
		return nil, fmt.Errorf("%w: pool %dx%d exceeds %d values", ErrAllocation, poolSize, bufferSize, maxPoolValues)
	}

	backing := make([]Value, bufferSize*poolSize)
	free := make([][]Value, poolSize)
	for i := range free {
		lo, hi := i*bufferSize, (i+1)*bufferSize
		free[i] = backing[lo:hi:hi]
	}

	return &Pool{
		bufferSize: bufferSize,
		size:       poolSize,
		free:       free,
		out:        make(map[*Value]bool, poolSize),
		reserve:    poolSize,
	}, nil
}

// LendCallers sets how many buffers AcquireWait may hand out at once. The
// remaining size-n buffers are reserved for Acquire. It must be called
// before the pool is used.
func (p *Pool) LendCallers(n int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n < 0 || n >= p.size {
		return fmt.Errorf("%w: lend %d of %d buffers", ErrAllocation, n, p.size)
	}
	if len(p.out) != 0 {
		return fmt.Errorf("%w: pool already in use", ErrInvalidArgument)
	}
	p.reserve = p.size - n
	p.lend = nil
	if n > 0 {
		p.lend = make(chan struct{}, n)
	}
	return nil
}

// Acquire pops the most recently released buffer from the reserve. It
// never blocks.
func (p *Pool) Acquire() ([]Value, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.reserved >= p.reserve {
		return nil, ErrExhausted
	}
	buf, err := p.pop(false)
	if err != nil {
		return nil, err
	}
	p.reserved++
	return buf, nil
}

// AcquireWait takes a lent buffer, waiting for one to be released until
// ctx is done. Without a lent share it behaves like Acquire.
func (p *Pool) AcquireWait(ctx context.Context) ([]Value, error) {
	if p.lend == nil {
		return p.Acquire()
	}

	select {
	case p.lend <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	buf, err := p.pop(true)
	if err != nil {
		<-p.lend
		return nil, err
	}
	return buf, nil
}

func (p *Pool) pop(lent bool) ([]Value, error) {
	n := len(p.free)
	if n == 0 {
		return nil, ErrExhausted
	}
	buf := p.free[n-1]
	p.free[n-1] = nil
	p.free = p.free[:n-1]
	p.out[&buf[0]] = lent
	return buf, nil
}

// Release returns buf to the pool. A buffer the pool did not hand out, or
// one already released, is rejected.
func (p *Pool) Release(buf []Value) error {
	if cap(buf) != p.bufferSize {
		return fmt.Errorf("%w: foreign buffer (cap %d, want %d)", ErrCapacityExceeded, cap(buf), p.bufferSize)
	}
	buf = buf[:p.bufferSize]

	p.mu.Lock()
	defer p.mu.Unlock()

	lent, ok := p.out[&buf[0]]
	if !ok {
		return fmt.Errorf("%w: buffer not outstanding", ErrCapacityExceeded)
	}
	delete(p.out, &buf[0])
	p.free = append(p.free, buf)

	if lent {
		<-p.lend
	} else {
		p.reserved--
	}
	return nil
}

// Available returns the number of buffers currently in the pool.
func (p *Pool) Available() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}

// Size returns the pool capacity in buffers.
func (p *Pool) Size() int { return p.size }

// BufferSize returns the number of values per buffer.
func (p *Pool) BufferSize() int { return p.bufferSize }

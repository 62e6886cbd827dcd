// internal/datastore/points.go
package datastore

import (
	"context"
	"fmt"
	"unsafe"
)

// Scalar is a Go type that shares the 32-bit layout of Value.
type Scalar interface {
	float32 | uint32 | int32
}

// Points is the typed view of one datapoint table. It is a thin adapter:
// values are reinterpreted in place, never converted.
type Points[T Scalar] struct {
	s   *Store
	typ Type
}

func Floats(s *Store) Points[float32]     { return Points[float32]{s: s, typ: Float} }
func Uints(s *Store) Points[uint32]       { return Points[uint32]{s: s, typ: UnsignedInt} }
func Ints(s *Store) Points[int32]         { return Points[int32]{s: s, typ: SignedInt} }
func MultiStates(s *Store) Points[uint32] { return Points[uint32]{s: s, typ: MultiState} }
func Buttons(s *Store) Points[uint32]     { return Points[uint32]{s: s, typ: Button} }

// PointsOf returns the typed view of t, failing when T does not match the
// representation of t.
func PointsOf[T Scalar](s *Store, t Type) (Points[T], error) {
	if !t.Valid() {
		return Points[T]{}, fmt.Errorf("%w: type %d", ErrInvalidArgument, t)
	}
	if reprOf[T]() != t.Repr() {
		var zero T
		return Points[T]{}, fmt.Errorf("%w: %T cannot hold %s datapoints", ErrInvalidArgument, zero, t)
	}
	return Points[T]{s: s, typ: t}, nil
}

func (p Points[T]) Type() Type { return p.typ }

// Count returns the number of datapoints in the table.
func (p Points[T]) Count() int { return p.s.Count(p.typ) }

// Read fills out with the values starting at first.
func (p Points[T]) Read(ctx context.Context, first uint32, out []T) error {
	return p.s.Read(ctx, p.typ, first, asValues(out))
}

// Get reads a single datapoint.
func (p Points[T]) Get(ctx context.Context, id uint32) (T, error) {
	var v [1]T
	err := p.Read(ctx, id, v[:])
	return v[0], err
}

// Write stores values and waits for the status.
func (p Points[T]) Write(ctx context.Context, first uint32, values ...T) error {
	return p.s.Write(ctx, p.typ, first, asValues(values), true)
}

// WriteAsync stores values without waiting for the actor.
func (p Points[T]) WriteAsync(ctx context.Context, first uint32, values ...T) error {
	return p.s.Write(ctx, p.typ, first, asValues(values), false)
}

// Subscribe registers fn for [first, first+count). The slice passed to fn is
// only valid during the call.
func (p Points[T]) Subscribe(ctx context.Context, first uint32, count int, fn func(values []T) error) (Handle, error) {
	if fn == nil {
		return 0, fmt.Errorf("%w: nil %s subscription callback", ErrInvalidArgument, p.typ)
	}
	return p.s.Subscribe(ctx, p.typ, first, count, func(values []Value) error {
		return fn(fromValues[T](values))
	})
}

func (p Points[T]) Pause(ctx context.Context, h Handle) error   { return p.s.Pause(ctx, p.typ, h) }
func (p Points[T]) Unpause(ctx context.Context, h Handle) error { return p.s.Unpause(ctx, p.typ, h) }

func reprOf[T Scalar]() Repr {
	var zero T
	switch any(zero).(type) {
	case float32:
		return ReprFloat
	case int32:
		return ReprInt
	default:
		return ReprUint
	}
}

// asValues and fromValues reinterpret slices between T and Value. Both
// are 4 bytes wide; the bit patterns are exactly the union members.
func asValues[T Scalar](s []T) []Value {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*Value)(unsafe.Pointer(unsafe.SliceData(s))), len(s))
}

func fromValues[T Scalar](s []Value) []T {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(s))), len(s))
}

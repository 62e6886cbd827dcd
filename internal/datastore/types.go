// internal/datastore/types.go
package datastore

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Type selects the datapoint table a value lives in.
type Type uint8

const (
	Float Type = iota
	UnsignedInt
	SignedInt
	MultiState
	Button

	// TypeCount is the number of datapoint types. Not a valid Type.
	TypeCount
)

var typeNames = [TypeCount]string{"float", "uint", "int", "multi-state", "button"}

func (t Type) String() string {
	if t >= TypeCount {
		return fmt.Sprintf("type(%d)", uint8(t))
	}
	return typeNames[t]
}

// Valid reports whether t names one of the datapoint tables.
func (t Type) Valid() bool { return t < TypeCount }

// Repr returns the storage representation used by the type.
// MultiState and Button share the unsigned representation.
func (t Type) Repr() Repr {
	switch t {
	case Float:
		return ReprFloat
	case SignedInt:
		return ReprInt
	default:
		return ReprUint
	}
}

// ParseType resolves a type name as printed by Type.String.
func ParseType(s string) (Type, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range typeNames {
		if name == s {
			return Type(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown datapoint type %q", ErrInvalidArgument, s)
}

// Types returns all datapoint types in table order.
func Types() []Type {
	out := make([]Type, TypeCount)
	for i := range out {
		out[i] = Type(i)
	}
	return out
}

// Repr is the in-memory representation of a Value.
type Repr uint8

const (
	ReprFloat Repr = iota
	ReprUint
	ReprInt
)

// Value is the 32-bit datapoint union. The table type decides how the
// bits are interpreted; the value itself carries no tag.
type Value uint32

func FloatValue(f float32) Value { return Value(math.Float32bits(f)) }
func UintValue(u uint32) Value   { return Value(u) }
func IntValue(i int32) Value     { return Value(uint32(i)) }

func (v Value) Float() float32 { return math.Float32frombits(uint32(v)) }
func (v Value) Uint() uint32   { return uint32(v) }
func (v Value) Int() int32     { return int32(uint32(v)) }

// Format renders v according to the representation of t.
func (v Value) Format(t Type) string {
	switch t.Repr() {
	case ReprFloat:
		return fmt.Sprintf("%g", v.Float())
	case ReprInt:
		return fmt.Sprintf("%d", v.Int())
	default:
		return fmt.Sprintf("%d", v.Uint())
	}
}

// ParseValue parses s in the representation of t.
func ParseValue(t Type, s string) (Value, error) {
	s = strings.TrimSpace(s)
	switch t.Repr() {
	case ReprFloat:
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return 0, fmt.Errorf("%w: %s value %q", ErrInvalidArgument, t, s)
		}
		return FloatValue(float32(f)), nil
	case ReprInt:
		i, err := strconv.ParseInt(s, 0, 32)
		if err != nil {
			return 0, fmt.Errorf("%w: %s value %q", ErrInvalidArgument, t, s)
		}
		return IntValue(int32(i)), nil
	default:
		u, err := strconv.ParseUint(s, 0, 32)
		if err != nil {
			return 0, fmt.Errorf("%w: %s value %q", ErrInvalidArgument, t, s)
		}
		return UintValue(uint32(u)), nil
	}
}

// Flags are per-datapoint option bits.
type Flags uint32

const (
	FlagNone Flags = 0

	// FlagPersist marks a datapoint restored from and saved to NVM.
	FlagPersist Flags = 1 << 0
)

func (f Flags) Persist() bool { return f&FlagPersist != 0 }

// Datapoint is one slot of a table.
type Datapoint struct {
	Value Value
	Flags Flags
}

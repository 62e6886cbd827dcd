// internal/writer/types.go
package writer

import "github.com/tamzrod/datastore/internal/datastore"

// Area is the destination Modbus table.
type Area byte

const (
	AreaCoils            Area = 1
	AreaHoldingRegisters Area = 3
)

// Plan is the fully-built write plan for one mirror.
type Plan struct {
	MirrorID string
	Endpoint string
	UnitID   uint8

	// Source datapoint range.
	Type  datastore.Type
	First uint32
	Count int

	// Destination.
	Area    Area
	Address uint16
}

// Stats counts what happened to delivered snapshots.
type Stats struct {
	Written uint64
	Dropped uint64 // hand-off slot was busy
	Failed  uint64
}

// internal/poller/types.go
package poller

import (
	"time"

	"github.com/tamzrod/datastore/internal/datastore"
)

// ReadBlock describes one Modbus read geometry and the datapoint range it fills.
type ReadBlock struct {
	FC       uint8
	Address  uint16
	Quantity uint16

	Type  datastore.Type
	First uint32
}

// BlockResult is the raw result of a single read.
type BlockResult struct {
	ReadBlock

	// Exactly one of these is used depending on FC.
	Bits      []bool   // FC 1,2
	Registers []uint16 // FC 3,4
}

// PollResult is a snapshot produced by one poll cycle.
type PollResult struct {
	UnitID string
	At     time.Time

	Blocks []BlockResult
	Err    error // non-nil means the poll cycle failed
}

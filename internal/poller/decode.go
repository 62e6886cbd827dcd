// internal/poller/decode.go
package poller

import (
	"fmt"

	"github.com/tamzrod/datastore/internal/datastore"
)

// Values converts the raw block into datapoint values of b.Type.
//
//	bits       -> 0 / 1
//	registers  -> one value per register, int sign-extended from int16
//	float      -> one value per two registers, big-endian IEEE-754
func (b BlockResult) Values() ([]datastore.Value, error) {
	switch b.FC {
	case 1, 2:
		out := make([]datastore.Value, len(b.Bits))
		for i, bit := range b.Bits {
			if bit {
				out[i] = 1
			}
		}
		return out, nil

	case 3, 4:
		return decodeRegisters(b.Type, b.Registers)

	default:
		return nil, fmt.Errorf("poller: unsupported function code %d", b.FC)
	}
}

func decodeRegisters(t datastore.Type, regs []uint16) ([]datastore.Value, error) {
	switch t.Repr() {
	case datastore.ReprFloat:
		if len(regs)%2 != 0 {
			return nil, fmt.Errorf("poller: %d registers do not hold whole floats", len(regs))
		}
		out := make([]datastore.Value, len(regs)/2)
		for i := range out {
			out[i] = datastore.Value(uint32(regs[2*i])<<16 | uint32(regs[2*i+1]))
		}
		return out, nil

	case datastore.ReprInt:
		out := make([]datastore.Value, len(regs))
		for i, r := range regs {
			out[i] = datastore.IntValue(int32(int16(r)))
		}
		return out, nil

	default:
		out := make([]datastore.Value, len(regs))
		for i, r := range regs {
			out[i] = datastore.UintValue(uint32(r))
		}
		return out, nil
	}
}

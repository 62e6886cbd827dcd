// internal/writer/encode.go
package writer

import "github.com/tamzrod/datastore/internal/datastore"

// encodeRegisters is the inverse of the poller's register decoding:
// a float takes two big-endian registers, everything else one register
// truncated to 16 bits.
func encodeRegisters(t datastore.Type, values []datastore.Value) []uint16 {
	if t.Repr() == datastore.ReprFloat {
		out := make([]uint16, 0, 2*len(values))
		for _, v := range values {
			out = append(out, uint16(v>>16), uint16(v))
		}
		return out
	}

	out := make([]uint16, len(values))
	for i, v := range values {
		out[i] = uint16(v)
	}
	return out
}

func encodeBits(values []datastore.Value) []bool {
	out := make([]bool, len(values))
	for i, v := range values {
		out[i] = v != 0
	}
	return out
}

// internal/status/encode.go
package status

// Encode converts a Snapshot into the status datapoint values, in slot order.
// No IO. No side effects.
func Encode(s Snapshot) []uint32 {
	vals := make([]uint32, SlotsPerDevice)

	vals[SlotHealthCode] = uint32(s.Health)
	vals[SlotLastErrorCode] = uint32(s.LastErrorCode)
	vals[SlotSecondsInError] = uint32(s.SecondsInError)

	return vals
}

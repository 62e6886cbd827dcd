// internal/status/constants.go
package status

// Device status datapoint layout.
// A unit that opts in owns SlotsPerDevice consecutive uint datapoints.

// ---- SLOT INDICES ----

// SlotsPerDevice is the fixed number of status datapoints per device.
const SlotsPerDevice = 3

// SlotHealthCode holds the device health state.
const SlotHealthCode = 0

// SlotLastErrorCode holds the last error code.
const SlotLastErrorCode = 1

// SlotSecondsInError holds the duration (in seconds) the device has been in error.
const SlotSecondsInError = 2

// ---- LIMITS ----

// MaxSecondsInError is where the seconds counter saturates. It must not wrap.
const MaxSecondsInError = 65535

// ---- HEALTH CODES ----

// HealthUnknown represents an unknown or boot state.
const HealthUnknown uint16 = 0

// HealthOK represents a healthy device.
const HealthOK uint16 = 1

// HealthError represents a device error state.
const HealthError uint16 = 2

// HealthStale represents a stale data state.
const HealthStale uint16 = 3

// HealthDisabled represents a disabled device state.
const HealthDisabled uint16 = 4

// ---- ERROR CODES ----

// ErrorGeneric is reported for errors that carry no code of their own.
const ErrorGeneric uint16 = 1

// ErrorDatastoreBase offsets datastore status codes so they never collide
// with Modbus exception codes (1..11).
const ErrorDatastoreBase uint16 = 0x100

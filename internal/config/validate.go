// internal/config/validate.go
package config

import (
	"fmt"
	"strings"

	"github.com/tamzrod/datastore/internal/datastore"
)

// Modbus PDU limits for one read.
const (
	maxReadBits      = 2000
	maxReadRegisters = 125
)

// StatusPoints is the number of consecutive uint datapoints a unit's
// status_point occupies.
const StatusPoints = 3

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if err := validateDatastore(cfg.Datastore); err != nil {
		return err
	}

	cat, err := BuildCatalog(cfg)
	if err != nil {
		return err
	}

	if err := validateUnits(cfg.Units, cat); err != nil {
		return err
	}

	return validateMirrors(cfg.Mirrors, cat)
}

func validateDatastore(d DatastoreConfig) error {
	if d.QueueDepth < 0 {
		return fmt.Errorf("datastore: queue_depth must be >= 0")
	}
	if d.ResponseTimeoutMs < 0 {
		return fmt.Errorf("datastore: response_timeout_ms must be >= 0")
	}
	for name, n := range d.MaxSubscriptions {
		if _, err := datastore.ParseType(name); err != nil {
			return fmt.Errorf("datastore: max_subscriptions: %w", err)
		}
		if n < 0 {
			return fmt.Errorf("datastore: max_subscriptions[%s] must be >= 0", name)
		}
	}
	switch strings.ToLower(d.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("datastore: unknown log_level %q", d.LogLevel)
	}
	return nil
}

// PointSpan returns how many datapoints of type t one read of qty
// bits or registers fills. A float takes two registers.
func PointSpan(t datastore.Type, qty uint16) int {
	if t == datastore.Float {
		return int(qty) / 2
	}
	return int(qty)
}

// RegisterSpan returns how many registers count datapoints of type t need.
func RegisterSpan(t datastore.Type, count int) int {
	if t == datastore.Float {
		return count * 2
	}
	return count
}

// bitCompatible reports whether t can be carried by a single bit.
func bitCompatible(t datastore.Type) bool {
	switch t {
	case datastore.Button, datastore.MultiState, datastore.UnsignedInt:
		return true
	}
	return false
}

// resolve checks a datapoint range [first, first+count) against the catalog.
func resolve(cat *datastore.Catalog, typeName, first string, count int) (datastore.Type, uint32, error) {
	t, err := datastore.ParseType(typeName)
	if err != nil {
		return 0, 0, err
	}
	idx, ok := cat.Lookup(t, first)
	if !ok {
		return 0, 0, fmt.Errorf("unknown %s datapoint %q", t, first)
	}
	if count <= 0 || int(idx)+count > cat.Count(t) {
		return 0, 0, fmt.Errorf("%s range %s+%d exceeds %d datapoints", t, first, count, cat.Count(t))
	}
	return t, idx, nil
}

type span struct {
	start int
	end   int // inclusive
	owner string
}

func (s span) overlaps(o span) bool {
	return !(s.end < o.start || s.start > o.end)
}

func validateUnits(units []UnitConfig, cat *datastore.Catalog) error {
	ids := make(map[string]bool)

	// ------------------------------------------------------------
	// DATAPOINT OWNERSHIP (one writer per datapoint)
	// ------------------------------------------------------------

	// key = datapoint type
	owned := make(map[datastore.Type][]span)

	claim := func(t datastore.Type, first uint32, count int, owner string) error {
		s := span{start: int(first), end: int(first) + count - 1, owner: owner}
		for _, o := range owned[t] {
			if s.overlaps(o) {
				return fmt.Errorf(
					"datapoint overlap: type=%s range=%d-%d of %s overlaps with %s range=%d-%d",
					t, s.start, s.end, owner, o.owner, o.start, o.end,
				)
			}
		}
		owned[t] = append(owned[t], s)
		return nil
	}

	for _, u := range units {
		if u.ID == "" {
			return fmt.Errorf("unit: id required")
		}
		if ids[u.ID] {
			return fmt.Errorf("unit %q: duplicate id", u.ID)
		}
		ids[u.ID] = true

		if u.Source.Endpoint == "" {
			return fmt.Errorf("unit %q: source.endpoint required", u.ID)
		}
		if u.Source.TimeoutMs < 0 || u.Poll.IntervalMs < 0 || u.Poll.StaleMs < 0 {
			return fmt.Errorf("unit %q: timeouts and intervals must be >= 0", u.ID)
		}
		if len(u.Reads) == 0 {
			return fmt.Errorf("unit %q: at least one read required", u.ID)
		}

		for i, r := range u.Reads {
			if r.Quantity == 0 {
				return fmt.Errorf("unit %q read %d: quantity must be > 0", u.ID, i)
			}

			t, err := datastore.ParseType(r.Type)
			if err != nil {
				return fmt.Errorf("unit %q read %d: %w", u.ID, i, err)
			}

			switch r.FC {
			case 1, 2:
				if !bitCompatible(t) {
					return fmt.Errorf("unit %q read %d: fc=%d cannot carry %s datapoints", u.ID, i, r.FC, t)
				}
				if r.Quantity > maxReadBits {
					return fmt.Errorf("unit %q read %d: quantity %d exceeds %d bits", u.ID, i, r.Quantity, maxReadBits)
				}
			case 3, 4:
				if t == datastore.Float && r.Quantity%2 != 0 {
					return fmt.Errorf("unit %q read %d: float reads need an even register quantity", u.ID, i)
				}
				if r.Quantity > maxReadRegisters {
					return fmt.Errorf("unit %q read %d: quantity %d exceeds %d registers", u.ID, i, r.Quantity, maxReadRegisters)
				}
			default:
				return fmt.Errorf("unit %q read %d: unsupported fc %d", u.ID, i, r.FC)
			}

			n := PointSpan(t, r.Quantity)
			_, first, err := resolve(cat, r.Type, r.First, n)
			if err != nil {
				return fmt.Errorf("unit %q read %d: %w", u.ID, i, err)
			}
			if err := claim(t, first, n, fmt.Sprintf("unit %q", u.ID)); err != nil {
				return err
			}
		}

		// status is opt-in
		if u.Source.StatusPoint == "" {
			continue
		}
		_, first, err := resolve(cat, datastore.UnsignedInt.String(), u.Source.StatusPoint, StatusPoints)
		if err != nil {
			return fmt.Errorf("unit %q: status_point: %w", u.ID, err)
		}
		if err := claim(datastore.UnsignedInt, first, StatusPoints, fmt.Sprintf("unit %q status", u.ID)); err != nil {
			return err
		}
	}

	return nil
}

// MirrorFC returns the function code a mirror writes with.
func MirrorFC(m MirrorConfig, t datastore.Type) uint8 {
	if m.FC != 0 {
		return m.FC
	}
	if t == datastore.Button {
		return 1
	}
	return 3
}

// MirrorCount returns the number of datapoints a mirror forwards.
func MirrorCount(m MirrorConfig) int {
	if m.Count == 0 {
		return 1
	}
	return m.Count
}

func validateMirrors(mirrors []MirrorConfig, cat *datastore.Catalog) error {
	ids := make(map[string]bool)

	// ------------------------------------------------------------
	// DESTINATION GEOMETRY VALIDATION
	// ------------------------------------------------------------

	// key = endpoint | unit_id | fc
	spans := make(map[string][]span)

	for _, m := range mirrors {
		if m.ID == "" {
			return fmt.Errorf("mirror: id required")
		}
		if ids[m.ID] {
			return fmt.Errorf("mirror %q: duplicate id", m.ID)
		}
		ids[m.ID] = true

		if m.Endpoint == "" {
			return fmt.Errorf("mirror %q: endpoint required", m.ID)
		}
		if m.Count < 0 || m.TimeoutMs < 0 {
			return fmt.Errorf("mirror %q: count and timeout_ms must be >= 0", m.ID)
		}

		count := MirrorCount(m)
		t, _, err := resolve(cat, m.Type, m.First, count)
		if err != nil {
			return fmt.Errorf("mirror %q: %w", m.ID, err)
		}

		fc := MirrorFC(m, t)
		var width int
		switch fc {
		case 1:
			if !bitCompatible(t) {
				return fmt.Errorf("mirror %q: coils cannot carry %s datapoints", m.ID, t)
			}
			width = count
		case 3:
			width = RegisterSpan(t, count)
		default:
			return fmt.Errorf("mirror %q: unsupported fc %d", m.ID, fc)
		}

		start := int(m.Address)
		end := start + width - 1
		if end > 0xFFFF {
			return fmt.Errorf("mirror %q: address range %d-%d exceeds the modbus address space", m.ID, start, end)
		}

		key := fmt.Sprintf("%s|%d|%d", m.Endpoint, m.UnitID, fc)
		s := span{start: start, end: end, owner: m.ID}

		for _, o := range spans[key] {
			// overlap check (inclusive)
			if s.overlaps(o) {
				return fmt.Errorf(
					"mirror overlap: endpoint=%s unit_id=%d fc=%d range=%d-%d overlaps with mirror=%s range=%d-%d",
					m.Endpoint, m.UnitID, fc, start, end, o.owner, o.start, o.end,
				)
			}
		}
		spans[key] = append(spans[key], s)
	}

	return nil
}

// internal/poller/builder.go
package poller

import (
	"fmt"
	"log/slog"
	"time"

	cfg "github.com/tamzrod/datastore/internal/config"
	"github.com/tamzrod/datastore/internal/datastore"
	"github.com/tamzrod/datastore/internal/fieldbus"
)

// Build constructs a Poller and wires Modbus client lifecycle.
// The first connection is made on the first tick, so an unreachable
// device reports through its status instead of failing startup.
// On transport death, Poller discards the client and uses factory on a future tick.
func Build(u cfg.UnitConfig, cat *datastore.Catalog) (*Poller, error) {
	// client factory: ONE attempt per call
	factory := func() (Client, error) {
		return fieldbus.Dial(fieldbus.Config{
			Endpoint: u.Source.Endpoint,
			UnitID:   u.Source.UnitID,
			Timeout:  time.Duration(u.Source.TimeoutMs) * time.Millisecond,
		})
	}

	reads := make([]ReadBlock, 0, len(u.Reads))
	for i, r := range u.Reads {
		t, err := datastore.ParseType(r.Type)
		if err != nil {
			return nil, fmt.Errorf("unit %q read %d: %w", u.ID, i, err)
		}
		first, ok := cat.Lookup(t, r.First)
		if !ok {
			return nil, fmt.Errorf("unit %q read %d: unknown %s datapoint %q", u.ID, i, t, r.First)
		}
		reads = append(reads, ReadBlock{
			FC:       r.FC,
			Address:  r.Address,
			Quantity: r.Quantity,
			Type:     t,
			First:    first,
		})
	}

	return New(
		Config{
			UnitID:   u.ID,
			Interval: time.Duration(u.Poll.IntervalMs) * time.Millisecond,
			Reads:    reads,
		},
		nil,
		factory,
	)
}

// BuildSink resolves the unit's status datapoints.
func BuildSink(store *datastore.Store, u cfg.UnitConfig, logger *slog.Logger) (*Sink, error) {
	sc := SinkConfig{
		UnitID:     u.ID,
		StaleAfter: time.Duration(u.Poll.StaleMs) * time.Millisecond,
		Logger:     logger,
	}

	if u.Source.StatusPoint != "" {
		first, ok := store.Catalog().Lookup(datastore.UnsignedInt, u.Source.StatusPoint)
		if !ok {
			return nil, fmt.Errorf("unit %q: unknown status_point %q", u.ID, u.Source.StatusPoint)
		}
		sc.StatusPoint = &first
	}

	return NewSink(store, sc), nil
}

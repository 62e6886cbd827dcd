// internal/writer/writer.go
package writer

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"

	"github.com/tamzrod/datastore/internal/datastore"
)

// endpointClient is the exact contract the writer uses.
type endpointClient interface {
	WriteCoils(unitID uint8, addr uint16, bits []bool) error
	WriteRegisters(unitID uint8, addr uint16, regs []uint16) error
}

// Mirror forwards one datapoint range to a Modbus target whenever the
// datastore notifies a change. The subscription callback runs on the
// datastore actor and only hands a copy over; the field bus write happens
// on the mirror's own goroutine.
type Mirror struct {
	plan Plan
	cli  endpointClient
	log  *slog.Logger

	// Single-slot hand-off. When busy, the newest snapshot is dropped.
	slot chan []datastore.Value

	written atomic.Uint64
	dropped atomic.Uint64
	failed  atomic.Uint64
}

func New(plan Plan, cli endpointClient, logger *slog.Logger) *Mirror {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mirror{
		plan: plan,
		cli:  cli,
		log:  logger.With("component", "mirror", "mirror", plan.MirrorID),
		slot: make(chan []datastore.Value, 1),
	}
}

// Attach subscribes the mirror's range. Before the store runs, the first
// snapshot arrives with the initial notifications.
func (m *Mirror) Attach(ctx context.Context, s *datastore.Store) (datastore.Handle, error) {
	return s.Subscribe(ctx, m.plan.Type, m.plan.First, m.plan.Count, m.offer)
}

// offer is the subscription callback. It never blocks.
func (m *Mirror) offer(values []datastore.Value) error {
	select {
	case m.slot <- slices.Clone(values):
	default:
		m.dropped.Add(1)
	}
	return nil
}

// Run drains the hand-off slot until ctx is done.
func (m *Mirror) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case values := <-m.slot:
			if err := m.Write(values); err != nil {
				m.log.Warn("mirror write failed", "endpoint", m.plan.Endpoint, "err", err)
			}
		}
	}
}

// Write delivers one snapshot of the mirrored range.
func (m *Mirror) Write(values []datastore.Value) error {
	if m.cli == nil {
		m.failed.Add(1)
		return fmt.Errorf("writer: missing client for endpoint %s", m.plan.Endpoint)
	}

	var err error
	switch m.plan.Area {
	case AreaCoils:
		err = m.cli.WriteCoils(m.plan.UnitID, m.plan.Address, encodeBits(values))
	case AreaHoldingRegisters:
		err = m.cli.WriteRegisters(m.plan.UnitID, m.plan.Address, encodeRegisters(m.plan.Type, values))
	default:
		err = fmt.Errorf("unsupported area %d", m.plan.Area)
	}

	if err != nil {
		m.failed.Add(1)
		return fmt.Errorf(
			"writer: ep=%s unit=%d area=%d addr=%d err=%w",
			m.plan.Endpoint, m.plan.UnitID, m.plan.Area, m.plan.Address, err,
		)
	}
	m.written.Add(1)
	return nil
}

func (m *Mirror) Plan() Plan { return m.plan }

func (m *Mirror) Stats() Stats {
	return Stats{
		Written: m.written.Load(),
		Dropped: m.dropped.Load(),
		Failed:  m.failed.Load(),
	}
}

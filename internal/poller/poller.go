// internal/poller/poller.go
package poller

import (
	"errors"
	"fmt"
	"io"
	"time"
)

// Client abstracts Modbus operations needed by the poller.
// The poller depends on geometry only.
type Client interface {
	ReadCoils(addr, qty uint16) ([]bool, error)              // FC 1
	ReadDiscreteInputs(addr, qty uint16) ([]bool, error)     // FC 2
	ReadHoldingRegisters(addr, qty uint16) ([]uint16, error) // FC 3
	ReadInputRegisters(addr, qty uint16) ([]uint16, error)   // FC 4
}

// Factory makes one connection attempt.
type Factory func() (Client, error)

// Config is the minimal runtime config the poller needs.
type Config struct {
	UnitID   string
	Interval time.Duration
	Reads    []ReadBlock
}

// Poller is a dumb, clock-driven reader.
type Poller struct {
	cfg     Config
	client  Client
	factory Factory
}

// New creates a poller with immutable config.
// client may be nil when factory is set; the first cycle then connects.
func New(cfg Config, client Client, factory Factory) (*Poller, error) {
	if cfg.UnitID == "" {
		return nil, errors.New("poller: unit id required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("poller: interval must be > 0")
	}
	if len(cfg.Reads) == 0 {
		return nil, errors.New("poller: at least one read block required")
	}
	if client == nil && factory == nil {
		return nil, errors.New("poller: client or factory required")
	}
	return &Poller{cfg: cfg, client: client, factory: factory}, nil
}

func (p *Poller) UnitID() string { return p.cfg.UnitID }

// Close releases the current connection, if any. A poller with a factory
// reconnects on the next cycle.
func (p *Poller) Close() error {
	c := p.client
	p.client = nil
	if cl, ok := c.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}

// PollOnce performs exactly one poll cycle.
// All-or-nothing: any failure aborts the cycle.
// On failure the client is discarded when a factory can replace it.
func (p *Poller) PollOnce() PollResult {
	res := PollResult{
		UnitID: p.cfg.UnitID,
		At:     time.Now(),
	}

	if p.client == nil {
		if p.factory == nil {
			res.Err = errors.New("poller: closed")
			return res
		}
		c, err := p.factory()
		if err != nil {
			res.Err = err
			return res
		}
		p.client = c
	}

	blocks, err := p.readAll()
	if err != nil {
		res.Err = err
		if p.factory != nil {
			_ = p.Close()
		}
		return res
	}

	// Commit only if all reads succeeded
	res.Blocks = blocks
	return res
}

func (p *Poller) readAll() ([]BlockResult, error) {
	blocks := make([]BlockResult, 0, len(p.cfg.Reads))

	for _, rb := range p.cfg.Reads {
		br := BlockResult{ReadBlock: rb}
		var err error

		switch rb.FC {
		case 1:
			br.Bits, err = p.client.ReadCoils(rb.Address, rb.Quantity)
		case 2:
			br.Bits, err = p.client.ReadDiscreteInputs(rb.Address, rb.Quantity)
		case 3:
			br.Registers, err = p.client.ReadHoldingRegisters(rb.Address, rb.Quantity)
		case 4:
			br.Registers, err = p.client.ReadInputRegisters(rb.Address, rb.Quantity)
		default:
			err = fmt.Errorf("poller: unsupported function code %d", rb.FC)
		}
		if err != nil {
			return nil, fmt.Errorf("fc=%d addr=%d qty=%d: %w", rb.FC, rb.Address, rb.Quantity, err)
		}

		blocks = append(blocks, br)
	}

	return blocks, nil
}

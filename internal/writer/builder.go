// internal/writer/builder.go
package writer

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	cfg "github.com/tamzrod/datastore/internal/config"
	"github.com/tamzrod/datastore/internal/datastore"
	"github.com/tamzrod/datastore/internal/fieldbus"
)

// BuildPlan converts one mirror config into a Plan.
// Assumes config has already passed validation and normalization.
func BuildPlan(m cfg.MirrorConfig, cat *datastore.Catalog) (Plan, error) {
	if m.ID == "" {
		return Plan{}, errors.New("writer: mirror.id required")
	}

	t, err := datastore.ParseType(m.Type)
	if err != nil {
		return Plan{}, fmt.Errorf("writer: mirror %q: %w", m.ID, err)
	}
	first, ok := cat.Lookup(t, m.First)
	if !ok {
		return Plan{}, fmt.Errorf("writer: mirror %q: unknown %s datapoint %q", m.ID, t, m.First)
	}

	return Plan{
		MirrorID: m.ID,
		Endpoint: m.Endpoint,
		UnitID:   m.UnitID,
		Type:     t,
		First:    first,
		Count:    cfg.MirrorCount(m),
		Area:     Area(cfg.MirrorFC(m, t)),
		Address:  m.Address,
	}, nil
}

// BuildEndpointClients creates one TCP client per unique endpoint.
// The first mirror naming an endpoint decides its timeout.
func BuildEndpointClients(mirrors []cfg.MirrorConfig) (map[string]*fieldbus.Client, func() error, error) {
	clients := make(map[string]*fieldbus.Client)
	var closers []func() error

	closeAll := func() error {
		var last error
		for _, fn := range closers {
			if err := fn(); err != nil {
				last = err
			}
		}
		return last
	}

	for _, m := range mirrors {
		if _, ok := clients[m.Endpoint]; ok {
			continue
		}
		c, err := fieldbus.Dial(fieldbus.Config{
			Endpoint: m.Endpoint,
			Timeout:  time.Duration(m.TimeoutMs) * time.Millisecond,
		})
		if err != nil {
			_ = closeAll()
			return nil, nil, err
		}
		clients[m.Endpoint] = c
		closers = append(closers, c.Close)
	}

	return clients, closeAll, nil
}

// Build wires every mirror to its endpoint client.
func Build(mirrors []cfg.MirrorConfig, cat *datastore.Catalog, clients map[string]*fieldbus.Client, logger *slog.Logger) ([]*Mirror, error) {
	out := make([]*Mirror, 0, len(mirrors))
	for _, m := range mirrors {
		plan, err := BuildPlan(m, cat)
		if err != nil {
			return nil, err
		}
		var cli endpointClient
		if c, ok := clients[plan.Endpoint]; ok {
			cli = c
		}
		out = append(out, New(plan, cli, logger))
	}
	return out, nil
}

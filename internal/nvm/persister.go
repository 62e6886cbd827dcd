// internal/nvm/persister.go
package nvm

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/tamzrod/datastore/internal/datastore"
)

// Run is a contiguous range of NVM-backed datapoints.
type Run struct {
	Type  datastore.Type
	First uint32
	Count int
}

// Runs lists the FlagPersist ranges of the catalog, per type in table order.
func Runs(cat *datastore.Catalog) []Run {
	var out []Run
	for _, t := range datastore.Types() {
		entries := cat.Entries(t)
		for i := 0; i < len(entries); {
			if !entries[i].Flags.Persist() {
				i++
				continue
			}
			j := i
			for j < len(entries) && entries[j].Flags.Persist() {
				j++
			}
			out = append(out, Run{Type: t, First: uint32(i), Count: j - i})
			i = j
		}
	}
	return out
}

// Subscriptions counts the subscriptions Attach needs per type.
func Subscriptions(cat *datastore.Catalog) [datastore.TypeCount]int {
	var out [datastore.TypeCount]int
	for _, r := range Runs(cat) {
		out[r.Type]++
	}
	return out
}

// Persister writes NVM-backed datapoints through to the NVM store on change.
type Persister struct {
	nvm *Store
	log *slog.Logger

	saves    atomic.Uint64
	failures atomic.Uint64
}

// Attach subscribes every persisted run of the store's catalog. Callbacks
// run on the datastore actor, so a failed save reaches the writer as a
// callback failure.
func Attach(ctx context.Context, ds *datastore.Store, nvm *Store, logger *slog.Logger) (*Persister, error) {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Persister{nvm: nvm, log: logger.With("component", "nvm")}

	for _, r := range Runs(ds.Catalog()) {
		r := r
		if _, err := ds.Subscribe(ctx, r.Type, r.First, r.Count, func(values []datastore.Value) error {
			return p.save(r, values)
		}); err != nil {
			return nil, fmt.Errorf("nvm: subscribe %s[%d]+%d: %w", r.Type, r.First, r.Count, err)
		}
	}
	return p, nil
}

func (p *Persister) save(r Run, values []datastore.Value) error {
	if err := p.nvm.Save(r.Type, r.First, values); err != nil {
		p.failures.Add(1)
		p.log.Error("save failed", "type", r.Type.String(), "first", r.First, "count", r.Count, "err", err)
		return err
	}
	p.saves.Add(1)
	return nil
}

// Saves returns the number of successful and failed saves.
func (p *Persister) Saves() (ok, failed uint64) {
	return p.saves.Load(), p.failures.Load()
}

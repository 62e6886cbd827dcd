// internal/poller/sink.go
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tamzrod/datastore/internal/datastore"
	"github.com/tamzrod/datastore/internal/status"
)

// SinkConfig wires one unit's results into the datastore.
type SinkConfig struct {
	UnitID     string
	StaleAfter time.Duration

	// StatusPoint is the first of status.SlotsPerDevice uint datapoints.
	// nil disables status delivery.
	StatusPoint *uint32

	Logger *slog.Logger
}

// Sink is the consumer side of one unit. It owns the unit's status
// tracker and is the only writer of the unit's datapoints.
type Sink struct {
	store   *datastore.Store
	cfg     SinkConfig
	log     *slog.Logger
	tracker *status.Tracker
}

func NewSink(store *datastore.Store, cfg SinkConfig) *Sink {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{
		store:   store,
		cfg:     cfg,
		log:     logger.With("component", "poller", "unit", cfg.UnitID),
		tracker: status.NewTracker(cfg.StaleAfter),
	}
}

func (s *Sink) Snapshot() status.Snapshot { return s.tracker.Snapshot() }

// Run consumes poll results until ctx is done. The 1 Hz ticker drives
// seconds_in_error and stale detection.
func (s *Sink) Run(ctx context.Context, in <-chan PollResult) {
	secTicker := time.NewTicker(time.Second)
	defer secTicker.Stop()

	// Full status write on start (identity re-assert).
	s.writeStatus(ctx)

	for {
		select {
		case <-ctx.Done():
			return

		case res := <-in:
			_ = s.Deliver(ctx, res)

		case now := <-secTicker.C:
			if s.tracker.Tick(now) {
				s.writeStatus(ctx)
			}
		}
	}
}

// Deliver commits one poll result. A failed cycle leaves every datapoint
// of the unit untouched and only moves the status.
func (s *Sink) Deliver(ctx context.Context, res PollResult) error {
	var errs []error

	if res.Err == nil {
		for _, b := range res.Blocks {
			vals, err := b.Values()
			if err == nil {
				err = s.store.Write(ctx, b.Type, b.First, vals, true)
			}
			if err != nil {
				errs = append(errs, fmt.Errorf("%s[%d]+%d: %w", b.Type, b.First, len(vals), err))
			}
		}
	} else {
		s.log.Warn("poll failed", "err", res.Err)
	}

	if s.tracker.Observe(res.Err, res.At) {
		s.writeStatus(ctx)
	}

	err := errors.Join(errs...)
	if err != nil {
		s.log.Error("datastore write failed", "err", err)
	}
	return err
}

func (s *Sink) writeStatus(ctx context.Context) {
	if s.cfg.StatusPoint == nil {
		return
	}
	snap := s.tracker.Snapshot()
	if err := datastore.Uints(s.store).Write(ctx, *s.cfg.StatusPoint, status.Encode(snap)...); err != nil {
		s.log.Warn("status write failed",
			"health", status.HealthName(snap.Health),
			"err", err,
		)
	}
}

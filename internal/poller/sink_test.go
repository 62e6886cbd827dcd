// internal/poller/sink_test.go
package poller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/datastore/internal/datastore"
	"github.com/tamzrod/datastore/internal/status"
)

func startStore(t *testing.T) *datastore.Store {
	t.Helper()

	cat := datastore.NewCatalog()
	cat.MustAdd(datastore.UnsignedInt, "FLOW", 0, datastore.FlagNone)
	cat.MustAdd(datastore.UnsignedInt, "LEVEL", 0, datastore.FlagNone)
	cat.MustAdd(datastore.UnsignedInt, "PUMP_HEALTH", 0, datastore.FlagNone)
	cat.MustAdd(datastore.UnsignedInt, "PUMP_LAST_ERROR", 0, datastore.FlagNone)
	cat.MustAdd(datastore.UnsignedInt, "PUMP_SECONDS_IN_ERROR", 0, datastore.FlagNone)
	cat.MustAdd(datastore.Float, "PRESSURE", datastore.FloatValue(1), datastore.FlagNone)

	s, err := datastore.New(datastore.Config{
		Catalog: cat,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = s.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-s.Done()
	})
	<-s.Ready()
	return s
}

func TestSink_DeliversBlocksAndStatus(t *testing.T) {
	ctx := context.Background()
	store := startStore(t)

	statusAt := uint32(2)
	sink := NewSink(store, SinkConfig{
		UnitID:      "pump",
		StatusPoint: &statusAt,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	res := PollResult{
		UnitID: "pump",
		At:     time.Now(),
		Blocks: []BlockResult{
			{ReadBlock: ReadBlock{FC: 3, Quantity: 2, Type: datastore.UnsignedInt, First: 0}, Registers: []uint16{12, 34}},
			{ReadBlock: ReadBlock{FC: 4, Quantity: 2, Type: datastore.Float, First: 0}, Registers: []uint16{0x4118, 0x0000}},
		},
	}
	require.NoError(t, sink.Deliver(ctx, res))

	got := make([]uint32, 5)
	require.NoError(t, datastore.Uints(store).Read(ctx, 0, got))
	assert.Equal(t, []uint32{12, 34, uint32(status.HealthOK), 0, 0}, got)

	p, err := datastore.Floats(store).Get(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, float32(9.5), p)
}

func TestSink_FailedCycleOnlyMovesStatus(t *testing.T) {
	ctx := context.Background()
	store := startStore(t)

	statusAt := uint32(2)
	sink := NewSink(store, SinkConfig{UnitID: "pump", StatusPoint: &statusAt})

	require.NoError(t, datastore.Uints(store).Write(ctx, 0, 7, 8))
	require.NoError(t, sink.Deliver(ctx, PollResult{UnitID: "pump", At: time.Now(), Err: errors.New("i/o timeout")}))

	got := make([]uint32, 5)
	require.NoError(t, datastore.Uints(store).Read(ctx, 0, got))
	assert.Equal(t, []uint32{7, 8, uint32(status.HealthError), uint32(status.ErrorGeneric), 0}, got)
	assert.Equal(t, status.HealthError, sink.Snapshot().Health)
}

func TestSink_WithoutStatusPoint(t *testing.T) {
	ctx := context.Background()
	store := startStore(t)

	sink := NewSink(store, SinkConfig{UnitID: "pump"})
	require.NoError(t, sink.Deliver(ctx, PollResult{At: time.Now(), Err: errors.New("down")}))

	h, err := datastore.Uints(store).Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), h, "status datapoints are untouched")
}

func TestSink_ReportsStoreErrors(t *testing.T) {
	ctx := context.Background()
	store := startStore(t)

	sink := NewSink(store, SinkConfig{UnitID: "pump"})
	err := sink.Deliver(ctx, PollResult{
		At: time.Now(),
		Blocks: []BlockResult{
			{ReadBlock: ReadBlock{FC: 3, Quantity: 3, Type: datastore.Float, First: 0}, Registers: []uint16{1, 2, 3}},
			{ReadBlock: ReadBlock{FC: 3, Quantity: 1, Type: datastore.UnsignedInt, First: 9}, Registers: []uint16{1}},
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, datastore.ErrInvalidRange)
}

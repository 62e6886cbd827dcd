// cmd/datastored/main.go
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tamzrod/datastore/internal/config"
	"github.com/tamzrod/datastore/internal/datastore"
	"github.com/tamzrod/datastore/internal/nvm"
	"github.com/tamzrod/datastore/internal/poller"
	"github.com/tamzrod/datastore/internal/shell"
	"github.com/tamzrod/datastore/internal/writer"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: datastored <config.yaml>")
	}

	cfgPath := os.Args[1]

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config validation failed: %v", err)
	}
	config.Normalize(cfg)

	logger := newLogger(cfg.Datastore.LogLevel)

	cat, err := config.BuildCatalog(cfg)
	if err != nil {
		log.Fatalf("catalog build failed: %v", err)
	}

	// --------------------
	// Init phase: NVM, store, in-process subscribers
	// --------------------

	extra := config.MirrorSubscriptions(cfg)

	var nvmStore *nvm.Store
	if cfg.Datastore.NVMPath != "" {
		nvmStore, err = nvm.Open(cfg.Datastore.NVMPath, nvm.Options{})
		if err != nil {
			log.Fatalf("nvm open failed: %v", err)
		}
		defer nvmStore.Close()

		for t, n := range nvm.Subscriptions(cat) {
			extra[t] += n
		}
	}

	storeCfg, err := config.StoreConfig(cfg, cat, extra)
	if err != nil {
		log.Fatalf("datastore config failed: %v", err)
	}
	storeCfg.Logger = logger
	if nvmStore != nil {
		storeCfg.Loader = nvmStore
	}

	store, err := datastore.New(storeCfg)
	if err != nil {
		log.Fatalf("datastore init failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if nvmStore != nil {
		if _, err := nvm.Attach(ctx, store, nvmStore, logger); err != nil {
			log.Fatalf("nvm attach failed: %v", err)
		}
	}

	// ---- mirrors (subscribe before Run: first snapshot is the initial notification) ----

	clients, closeClients, err := writer.BuildEndpointClients(cfg.Mirrors)
	if err != nil {
		log.Fatalf("mirror clients failed: %v", err)
	}
	defer closeClients()

	mirrors, err := writer.Build(cfg.Mirrors, cat, clients, logger)
	if err != nil {
		log.Fatalf("mirror build failed: %v", err)
	}
	for _, m := range mirrors {
		if _, err := m.Attach(ctx, store); err != nil {
			log.Fatalf("mirror attach failed (mirror=%s): %v", m.Plan().MirrorID, err)
		}
		go m.Run(ctx)
	}

	// --------------------
	// Run phase
	// --------------------

	runErr := make(chan error, 1)
	go func() { runErr <- store.Run(ctx) }()

	select {
	case <-store.Ready():
	case err := <-runErr:
		log.Fatalf("datastore stopped during init: %v", err)
	}

	// ---- per-unit pipelines ----

	for _, unit := range cfg.Units {
		p, err := poller.Build(unit, cat)
		if err != nil {
			log.Fatalf("poller build failed (unit=%s): %v", unit.ID, err)
		}

		sink, err := poller.BuildSink(store, unit, logger)
		if err != nil {
			log.Fatalf("poller sink failed (unit=%s): %v", unit.ID, err)
		}

		// channel between poller and sink
		out := make(chan poller.PollResult)

		go sink.Run(ctx, out)
		go p.Run(ctx, out)
	}

	if cfg.Shell.Enabled {
		sh := shell.New(store, cfg.Shell.Prompt)
		go func() {
			if err := sh.Run(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("shell stopped", "err", err)
			}
		}()
	}

	logger.Info("datastored running",
		"units", len(cfg.Units),
		"mirrors", len(mirrors),
		"nvm", cfg.Datastore.NVMPath != "",
	)

	// --------------------
	// Block until signalled
	// --------------------

	<-ctx.Done()
	if err := <-runErr; err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("datastore stopped", "err", err)
	}

	st := store.Stats()
	logger.Info("datastored stopped",
		"reads", st.Reads,
		"writes", st.Writes,
		"notifications", st.Notifications,
		"notify_failures", st.NotifyFailures,
	)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

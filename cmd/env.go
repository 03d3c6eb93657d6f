package main

import (
	"context"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/atelier-ops/orderdesk/internal/config"
	"github.com/atelier-ops/orderdesk/internal/engine"
	"github.com/atelier-ops/orderdesk/internal/fetcher"
	"github.com/atelier-ops/orderdesk/internal/store"
)

// appEnv bundles the wired stores and engine for a command run.
type appEnv struct {
	Engine  *engine.Engine
	Archive store.EventArchive
}

func (e *appEnv) Close() {
	if err := e.Archive.Close(); err != nil {
		zap.L().Warn("archive close failed", zap.Error(err))
	}
}

// initEngine loads every persisted store, opens the optional archive
// and wires the engine. The completion log is reconciled against the
// loaded orders so a crash between two saves heals on startup.
func initEngine(ctx context.Context, cfg *config.Config) (*appEnv, error) {
	dataDir := cfg.Store.DataDir

	cache := store.NewCache(filepath.Join(dataDir, cfg.Store.CacheFile))
	manual := store.NewManual(filepath.Join(dataDir, cfg.Store.ManualFile))
	log := store.NewCompletionLog(filepath.Join(dataDir, cfg.Store.CompletionFile))
	sequence := store.NewSequence(filepath.Join(dataDir, cfg.Store.SequenceFile))

	for _, load := range []func() error{cache.Load, manual.Load, log.Load, sequence.Load} {
		if err := load(); err != nil {
			return nil, err
		}
	}

	archive, err := store.OpenArchive(ctx, cfg.Archive.Driver, cfg.Archive.DSN)
	if err != nil {
		return nil, err
	}
	if err := archive.Migrate(ctx); err != nil {
		archive.Close()
		return nil, err
	}

	sheet := fetcher.NewSheetClient(fetcher.SheetOptions{
		URL:    cfg.Sheet.URL,
		Format: cfg.Sheet.Format,
		HTTP: fetcher.HTTPOptions{
			UserAgent:  cfg.Sheet.UserAgent,
			Timeout:    time.Duration(cfg.Sheet.TimeoutSecs) * time.Second,
			MaxRetries: cfg.Sheet.MaxRetries,
		},
	})

	eng := engine.New(engine.Options{
		Cache:      cache,
		Manual:     manual,
		Log:        log,
		Sequence:   sequence,
		Fetcher:    sheet,
		Archive:    archive,
		MaxRows:    cfg.Sync.MaxRows,
		QuickCount: cfg.Sync.QuickCount,
	})

	if corrected := eng.Reconcile(ctx); corrected > 0 {
		zap.L().Info("startup reconciliation corrected entries", zap.Int("corrected", corrected))
	}

	return &appEnv{Engine: eng, Archive: archive}, nil
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/raphaelgruber/sidekick/internal/config"
	"github.com/raphaelgruber/sidekick/internal/db"
	"github.com/raphaelgruber/sidekick/internal/metrics"
	"github.com/raphaelgruber/sidekick/internal/store"
	"github.com/spf13/cobra"
)

// env is what every command runs against: config, logger, metrics and
// an open store.
type env struct {
	cfg       config.Config
	logger    *slog.Logger
	collector *metrics.Collector
	store     store.Store

	closers []func() error
}

// access says whether a command writes to the store.
type access int

const (
	readWrite access = iota
	readOnly
)

// openEnv loads configuration and opens the configured store. The caller
// must Close the env. Dry runs only ever read the backing store.
func openEnv(cmd *cobra.Command, mode access) (*env, error) {
	ctx := cmd.Context()

	cfg, err := config.Load(configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return nil, err
	}

	logger, closeLog := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	e := &env{
		cfg:       cfg,
		logger:    logger,
		collector: metrics.NewCollector(),
		closers:   []func() error{closeLog},
	}

	if dryRun {
		mode = readOnly
	}
	backing, closeStore, err := openStore(ctx, cfg, logger, mode)
	if err != nil {
		_ = e.Close()
		return nil, err
	}
	e.closers = append(e.closers, closeStore)

	if dryRun {
		mem := store.NewMemoryStore()
		if err := store.Copy(ctx, mem, backing); err != nil {
			_ = e.Close()
			return nil, fmt.Errorf("copy records for dry run: %w", err)
		}
		logger.Info("dry run, changes will not be saved")
		backing = mem
	}

	e.store = store.WithMetrics(backing, e.collector)
	return e, nil
}

// openStore opens the backend named in cfg and returns its close function.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger, mode access) (store.Store, func() error, error) {
	switch cfg.StoreBackend {
	case config.BackendFile:
		if mode == readOnly {
			fs, err := store.OpenFileStoreReadOnly(cfg.DataDir, logger)
			if err != nil {
				return nil, nil, err
			}
			return fs, fs.Close, nil
		}
		fs, err := store.OpenFileStore(cfg.DataDir, logger)
		if err != nil {
			if errors.Is(err, store.ErrLocked) {
				return nil, nil, fmt.Errorf("%s is in use by another sidekick process", cfg.DataDir)
			}
			return nil, nil, err
		}
		return fs, fs.Close, nil

	case config.BackendSurrealDB:
		client, err := db.NewClient(ctx, db.ConfigFrom(cfg), logger)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := client.InitSchema(ctx); err != nil {
			_ = client.Close(context.Background())
			return nil, nil, fmt.Errorf("initialize schema: %w", err)
		}
		closeFn := func() error { return client.Close(context.Background()) }
		return db.NewCollectionStore(client, logger), closeFn, nil

	default:
		return nil, nil, fmt.Errorf("unsupported store backend: %s", cfg.StoreBackend)
	}
}

// Close releases resources in reverse order of acquisition.
func (e *env) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

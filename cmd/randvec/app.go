package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/viant/randvec/config"
	"github.com/viant/randvec/engine"
	"github.com/viant/randvec/logger"
	"github.com/viant/randvec/metrics"
	"github.com/viant/randvec/runner"
	"github.com/viant/randvec/service"
	"github.com/viant/randvec/vecadmin"
	"github.com/viant/randvec/vector"
	"go.uber.org/zap"
)

// app holds the process-wide handles shared by subcommands.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	store    *vector.SQLStore
	observer metrics.Observer
	prom     *metrics.Prometheus
}

func newApp(ctx context.Context, cmd *cobra.Command, configFile string) (*app, error) {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, fmt.Errorf("set up logger: %w", err)
	}
	a := &app{cfg: cfg, log: log, observer: metrics.Noop{}}
	if cfg.MetricsFile != "" {
		a.prom = metrics.NewPrometheus()
		a.observer = a.prom
	}

	var inits []engine.InitFunc
	if cfg.DBDriver == engine.DriverSQLite {
		if dir := filepath.Dir(cfg.DBDSN); cfg.DBDSN != ":memory:" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				log.Close()
				return nil, fmt.Errorf("create data dir: %w", err)
			}
		}
		inits = append(inits, vecadmin.Register)
	}
	db, err := engine.Connect(ctx, cfg.DBDriver, cfg.DBDSN, inits...)
	if err != nil {
		log.Close()
		return nil, err
	}
	store, err := vector.NewSQLStore(ctx, db, vector.Dialect(cfg.DBDriver), log.Logger)
	if err != nil {
		_ = db.Close()
		log.Close()
		return nil, err
	}
	a.store = store
	log.Logger.Debug("store opened", zap.String("driver", cfg.DBDriver), zap.String("dsn", cfg.DBDSN))
	return a, nil
}

func (a *app) orchestrator() *runner.Orchestrator {
	return runner.New(a.store,
		runner.WithLogger(a.log.Logger),
		runner.WithObserver(a.observer))
}

func (a *app) service() (*service.Service, error) {
	mode, err := service.ParseSortMode(a.cfg.SortMode)
	if err != nil {
		return nil, err
	}
	return service.New(a.store,
		service.WithSortMode(mode),
		service.WithLogger(a.log.Logger),
		service.WithObserver(a.observer)), nil
}

func (a *app) params() runner.Params {
	return runner.Params{
		Runs:         a.cfg.Runs,
		Length:       a.cfg.VectorLength,
		UpperBound:   a.cfg.UpperBound,
		Reproducible: a.cfg.Reproducible,
	}
}

// Close writes the metrics textfile, if configured, and releases the store
// and the logger.
func (a *app) Close() {
	if a.prom != nil {
		if err := a.prom.WriteTextfile(a.cfg.MetricsFile); err != nil {
			a.log.Logger.Error("write metrics", zap.Error(err))
		}
	}
	if err := a.store.Close(); err != nil {
		a.log.Logger.Error("close store", zap.Error(err))
	}
	a.log.Close()
}

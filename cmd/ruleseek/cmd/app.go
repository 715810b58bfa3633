package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Aman-CERP/ruleseek/configs"
	"github.com/Aman-CERP/ruleseek/internal/config"
	"github.com/Aman-CERP/ruleseek/internal/logging"
	"github.com/Aman-CERP/ruleseek/internal/notify"
	"github.com/Aman-CERP/ruleseek/internal/rules"
	"github.com/Aman-CERP/ruleseek/internal/search"
	"github.com/Aman-CERP/ruleseek/internal/store"
	"github.com/Aman-CERP/ruleseek/internal/telemetry"
)

// loadConfig loads the configuration for the working directory and
// applies the global flags.
func loadConfig() (*config.Config, error) {
	dir := workDir
	if dir == "" {
		dir, _ = os.Getwd()
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	if debugMode {
		cfg.Server.LogLevel = "debug"
	}
	// Relative rule paths are resolved against the working directory so
	// the watcher and the loader agree on them.
	cfg.Rules.Path = resolve(dir, cfg.Rules.Path)
	cfg.Rules.DemoPath = resolve(dir, cfg.Rules.DemoPath)
	if cfg.Server.StaticDir != "" {
		cfg.Server.StaticDir = resolve(dir, cfg.Server.StaticDir)
	}
	return cfg, nil
}

func resolve(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// setupLogging writes to the rotating log file, and to stderr when
// toStderr is set. CLI commands keep stderr clean.
func setupLogging(cfg *config.Config, toStderr bool) (*slog.Logger, func(), error) {
	logCfg := logging.DefaultConfig(cfg.LogDir())
	logCfg.Level = cfg.Server.LogLevel
	logCfg.WriteToStderr = toStderr
	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to setup logging: %w", err)
	}
	return logger, cleanup, nil
}

func newLoader(cfg *config.Config, logger *slog.Logger) *rules.Loader {
	return rules.NewLoader(cfg.Rules.Path,
		rules.WithDemoPath(cfg.Rules.DemoPath),
		rules.WithEmbeddedDemo(configs.DemoRules),
		rules.WithCategory(cfg.Rules.DefaultCategory),
		rules.WithPersist(cfg.Rules.Persist),
		rules.WithLogger(logger))
}

// loadRules loads the corpus into a new store.
func loadRules(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*rules.Loader, *rules.Store, error) {
	loader := newLoader(cfg, logger)
	list, source, err := loader.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load rules: %w", err)
	}
	return loader, rules.NewStore(list, source), nil
}

// service is the search engine and everything that listens to it.
type service struct {
	cfg      *config.Config
	logger   *slog.Logger
	loader   *rules.Loader
	rules    *rules.Store
	engine   *search.Engine
	metrics  *telemetry.QueryMetrics
	db       *store.DB
	history  *store.History
	notifier *notify.Notifier
}

// newService loads the rules and builds the engine. With persist set the
// history database is opened and questions are recorded and forwarded to
// the webhook. A database that cannot be opened only disables history.
func newService(ctx context.Context, cfg *config.Config, logger *slog.Logger, persist bool) (*service, error) {
	loader, rs, err := loadRules(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	svc := &service{cfg: cfg, logger: logger, loader: loader, rules: rs}

	var listeners []search.AnswerListener
	var metricsStore telemetry.MetricsStore
	if persist && cfg.History.Enabled {
		if err := svc.openHistory(); err != nil {
			logger.Warn("history disabled", slog.String("path", cfg.HistoryPath()), slog.String("error", err.Error()))
		} else {
			listeners = append(listeners, svc.history)
			ms, err := telemetry.NewSQLiteMetricsStore(svc.db.SQL())
			if err == nil {
				metricsStore = ms
			}
		}
	}
	if persist && cfg.NotifyEnabled() {
		ncfg := notify.DefaultConfig(cfg.Notify.DiscordWebhookURL)
		ncfg.Timeout = config.Duration(cfg.Notify.Timeout, notify.DefaultTimeout)
		ncfg.QueueSize = cfg.Notify.QueueSize
		ncfg.Retry.MaxRetries = cfg.Notify.MaxRetries
		svc.notifier = notify.New(ncfg, notify.WithLogger(logger))
		listeners = append(listeners, svc.notifier)
	}

	svc.metrics = telemetry.NewQueryMetrics(metricsStore)
	svc.engine, err = search.NewEngine(rs,
		search.WithMetrics(svc.metrics),
		search.WithCacheSize(cfg.Search.CacheSize),
		search.WithMaxQueryLength(cfg.Search.MaxQueryLength),
		search.WithListeners(listeners...),
		search.WithLogger(logger))
	if err != nil {
		_ = svc.Close(ctx)
		return nil, err
	}
	return svc, nil
}

func (s *service) openHistory() error {
	db, err := store.Open(s.cfg.HistoryPath())
	if err != nil {
		return err
	}
	h, err := store.NewHistory(db.SQL(), store.WithLogger(s.logger))
	if err != nil {
		_ = db.Close()
		return err
	}
	s.db, s.history = db, h
	return nil
}

// Close drains the listeners and closes the database. Pending webhook
// deliveries get until ctx ends.
func (s *service) Close(ctx context.Context) error {
	var errs []error
	if s.notifier != nil {
		if err := s.notifier.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("notifier: %w", err))
		}
	}
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			errs = append(errs, fmt.Errorf("history: %w", err))
		}
	}
	if s.metrics != nil {
		if err := s.metrics.Close(); err != nil {
			errs = append(errs, fmt.Errorf("metrics: %w", err))
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database: %w", err))
		}
	}
	return errors.Join(errs...)
}

// shutdownContext bounds cleanup after the main context is done.
func shutdownContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

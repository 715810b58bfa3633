package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/ruleseek/internal/config"
	mcpserver "github.com/Aman-CERP/ruleseek/internal/mcp"
	"github.com/Aman-CERP/ruleseek/internal/scheduler"
	"github.com/Aman-CERP/ruleseek/internal/server"
	"github.com/Aman-CERP/ruleseek/internal/session"
	"github.com/Aman-CERP/ruleseek/internal/watcher"
)

// historyTrimSchedule is how often old history rows are deleted.
const historyTrimSchedule = "@hourly"

type serveOptions struct {
	addr  string
	noMCP bool
	// listener replaces addr, for tests.
	listener net.Listener
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the HTTP API, the web page and the MCP endpoint.

The server reloads the rules when rules.json or the demo file changes,
keeps the visitor registry in users.json and records answered questions
in the history database.`,
		Example: `  ruleseek serve
  ruleseek serve --addr :8080
  RULESEEK_PORT=8080 ruleseek serve`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "Listen address (overrides server.addr)")
	cmd.Flags().BoolVar(&opts.noMCP, "no-mcp", false, "Do not mount the MCP endpoint")

	return cmd
}

func runServe(ctx context.Context, opts serveOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if opts.addr != "" {
		cfg.Server.Addr = opts.addr
	}

	logger, cleanup, err := setupLogging(cfg, true)
	if err != nil {
		return err
	}
	defer cleanup()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := newService(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := shutdownContext()
		defer cancel()
		if err := svc.Close(sctx); err != nil {
			logger.Warn("shutdown incomplete", slog.String("error", err.Error()))
		}
	}()

	tracker := session.NewTracker(
		session.WithActiveWindow(config.Duration(cfg.Sessions.ActiveWindow, session.DefaultActiveWindow)),
		session.WithMaxUsers(cfg.Sessions.MaxUsers),
		session.WithStorage(session.NewStorage(cfg.SessionsPath())),
		session.WithLogger(logger))
	if err := tracker.Load(); err != nil {
		logger.Warn("visitor registry not loaded",
			slog.String("path", cfg.SessionsPath()),
			slog.String("error", err.Error()))
	}

	srvOpts := []server.Option{server.WithTracker(tracker), server.WithLogger(logger)}
	if cfg.MCP.Enabled && !opts.noMCP {
		m, err := mcpserver.NewServer(svc.engine, mcpserver.WithMetrics(svc.metrics), mcpserver.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("failed to create MCP server: %w", err)
		}
		srvOpts = append(srvOpts, server.WithMCP(cfg.MCP.Path, m.HTTPHandler()))
	}

	srv, err := server.New(server.Config{
		Addr:         cfg.Server.Addr,
		StaticDir:    cfg.Server.StaticDir,
		CORSOrigin:   cfg.Server.CORSOrigin,
		ReadTimeout:  config.Duration(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout: config.Duration(cfg.Server.WriteTimeout, 30*time.Second),
	}, svc.engine, srvOpts...)
	if err != nil {
		return err
	}

	sched, err := newServeScheduler(cfg, svc, tracker, logger)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if opts.listener != nil {
			return srv.Serve(gctx, opts.listener)
		}
		return srv.Run(gctx)
	})
	if cfg.Rules.Watch {
		w, err := watcher.New(svc.loader.Paths(), func(ctx context.Context, events []watcher.FileEvent) {
			logger.Info("rule files changed", slog.Int("events", len(events)))
			if _, err := svc.loader.Reload(ctx, svc.rules); err != nil {
				logger.Warn("rules reload failed", slog.String("error", err.Error()))
			}
		}, watcher.Options{
			DebounceWindow: config.Duration(cfg.Rules.WatchDebounce, 500*time.Millisecond),
			Logger:         logger,
		})
		if err != nil {
			logger.Warn("rule file watching disabled", slog.String("error", err.Error()))
		} else {
			g.Go(func() error { return w.Run(gctx) })
		}
	}
	sched.Start()

	err = g.Wait()

	sctx, cancel := shutdownContext()
	defer cancel()
	if stopErr := sched.Stop(sctx); stopErr != nil {
		logger.Warn("scheduler did not stop in time", slog.String("error", stopErr.Error()))
	}
	if saveErr := tracker.Save(); saveErr != nil {
		logger.Warn("failed to save visitor registry", slog.String("error", saveErr.Error()))
	}
	logger.Info("server stopped")
	return err
}

// newServeScheduler registers the periodic jobs: pruning and saving the
// visitor registry, flushing telemetry, and trimming history.
func newServeScheduler(cfg *config.Config, svc *service, tracker *session.Tracker, logger *slog.Logger) (*scheduler.Scheduler, error) {
	sched := scheduler.New(scheduler.WithLogger(logger))
	maxIdle := config.Duration(cfg.Sessions.MaxIdle, 24*time.Hour)

	if err := sched.Add("sessions", cfg.Sessions.PruneSchedule, func(context.Context) error {
		if n := tracker.Prune(maxIdle); n > 0 {
			logger.Debug("idle sessions pruned", slog.Int("count", n))
		}
		return tracker.Save()
	}); err != nil {
		return nil, err
	}

	if svc.history == nil {
		return sched, nil
	}
	if err := sched.Add("metrics", cfg.History.FlushSchedule, func(context.Context) error {
		return svc.metrics.Flush()
	}); err != nil {
		return nil, err
	}
	if cfg.History.Retention > 0 {
		if err := sched.Add("history", historyTrimSchedule, func(ctx context.Context) error {
			n, err := svc.history.Trim(ctx, cfg.History.Retention)
			if n > 0 {
				logger.Debug("history trimmed", slog.Int64("rows", n))
			}
			return err
		}); err != nil {
			return nil, err
		}
	}
	return sched, nil
}

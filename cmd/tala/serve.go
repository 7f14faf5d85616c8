package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/lborres/tala"
	fiberadapter "github.com/lborres/tala/adapters/fiber"
	"github.com/lborres/tala/core"
	"github.com/lborres/tala/internal/config"
	"github.com/lborres/tala/pkg/cache"
	"github.com/lborres/tala/pkg/crypto"
	"github.com/lborres/tala/pkg/errutil"
	"github.com/lborres/tala/services"
)

const metricsPath = "/metrics"

// newServeCmd creates the serve subcommand.
func newServeCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the HTTP server. SIGINT or SIGTERM stops accepting requests and
waits for in-flight ones up to server.shutdown_timeout.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, log, deps.withDefaults())
		},
	}
}

// server is a configured but not yet listening tala instance
type server struct {
	app    *fiber.App
	tala   *tala.Tala
	pruner *cron.Cron
}

func buildServer(cfg *config.Config, backend *Backend, log *slog.Logger) (*server, error) {
	app := fiberadapter.NewApp(fiberadapter.AppConfig{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		AccessLog:    cfg.Log.Level == "debug",
		Logger:       log,
	})

	adapterOpts := []fiberadapter.Option{fiberadapter.WithLogger(log)}
	var registerer prometheus.Registerer
	var path string
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector())
		reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		registerer = reg
		path = metricsPath
		adapterOpts = append(adapterOpts, fiberadapter.WithMetrics(reg))
	}

	var sessionCache core.Cache
	if cfg.Cache.Enabled {
		sessionCache = cache.NewInMemoryCache(core.CacheConfig{
			TTL:     cfg.Cache.TTL,
			MaxSize: cfg.Cache.MaxSize,
		})
	}

	argon := crypto.NewArgon2()
	argon.Memory = cfg.Password.Memory
	argon.Iterations = cfg.Password.Iterations
	argon.Parallelism = cfg.Password.Parallelism

	t, err := tala.New(tala.Config{
		Storage:        backend.Storage,
		Sessions:       backend.Sessions,
		HTTP:           fiberadapter.New(app, adapterOpts...),
		Cache:          sessionCache,
		SessionConfig:  &core.SessionConfig{MaxAge: cfg.Session.MaxAge},
		PasswordHasher: crypto.NewMulti(argon, crypto.NewBcrypt(0)),
		Cookie: core.CookieConfig{
			Name:   cfg.Session.CookieName,
			Secure: cfg.Session.CookieSecure,
		},
		MetricsPath: path,
		Registerer:  registerer,
		Logger:      log,
	})
	if err != nil {
		return nil, oops.Code("SERVER_INIT_FAILED").Wrap(err)
	}

	pruner, err := newPruner(cfg.Session.PruneSchedule, t.Sessions, t.Metrics, log)
	if err != nil {
		return nil, err
	}

	return &server{app: app, tala: t, pruner: pruner}, nil
}

// newPruner schedules expired session cleanup. It returns nil when schedule is empty.
func newPruner(schedule string, sessions *services.SessionManager, metrics *services.Metrics, log *slog.Logger) (*cron.Cron, error) {
	if schedule == "" {
		return nil, nil
	}

	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		pruneOnce(ctx, sessions, metrics, log)
	})
	if err != nil {
		return nil, oops.Code("PRUNE_SCHEDULE_INVALID").With("schedule", schedule).Wrap(err)
	}
	return c, nil
}

func pruneOnce(ctx context.Context, sessions *services.SessionManager, metrics *services.Metrics, log *slog.Logger) (int, error) {
	count, err := sessions.Prune(ctx)
	if err != nil {
		errutil.LogError(log, "session prune failed", err)
		return 0, err
	}
	metrics.ObservePrune(count)
	log.Info("pruned expired sessions", "count", count)
	return count, nil
}

func runServe(ctx context.Context, cfg *config.Config, log *slog.Logger, deps *Deps) error {
	backend, err := deps.OpenBackend(ctx, cfg, log)
	if err != nil {
		return oops.Code("BACKEND_OPEN_FAILED").Wrap(err)
	}
	defer backend.Close()

	srv, err := buildServer(cfg, backend, log)
	if err != nil {
		return err
	}

	if srv.pruner != nil {
		srv.pruner.Start()
		defer func() { <-srv.pruner.Stop().Done() }()
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.Server.Addr, "session_store", cfg.Session.Store)
		errCh <- srv.app.Listen(cfg.Server.Addr, fiber.ListenConfig{DisableStartupMessage: true})
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return oops.Code("SERVER_LISTEN_FAILED").With("addr", cfg.Server.Addr).Wrap(err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)
	if err := srv.app.ShutdownWithTimeout(cfg.Server.ShutdownTimeout); err != nil {
		return oops.Code("SERVER_SHUTDOWN_FAILED").Wrap(err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		errutil.LogError(log, "listener stopped with error", err)
	}
	return nil
}

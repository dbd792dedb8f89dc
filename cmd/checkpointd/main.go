package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/kshms10904/platform-system-vold/internal/core/domain"
	"github.com/kshms10904/platform-system-vold/internal/core/service"
	"github.com/kshms10904/platform-system-vold/internal/infra/buildinfo"
	"github.com/kshms10904/platform-system-vold/internal/infra/confloader"
	"github.com/kshms10904/platform-system-vold/internal/infra/shutdown"
	"github.com/kshms10904/platform-system-vold/internal/server/bootstrap"
	"github.com/kshms10904/platform-system-vold/internal/server/config"
	"github.com/kshms10904/platform-system-vold/internal/server/httpserver"
	"github.com/kshms10904/platform-system-vold/internal/server/httpserver/handler"
	"github.com/kshms10904/platform-system-vold/internal/server/localserver"
	"github.com/kshms10904/platform-system-vold/internal/storage/history"
	"github.com/kshms10904/platform-system-vold/internal/telemetry/logger"
	"github.com/kshms10904/platform-system-vold/internal/telemetry/metric"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", os.Getenv("CHECKPOINTD_CONFIG"), "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("checkpointd %s\n", buildinfo.String())
		return nil
	}

	cfg, loader, err := bootstrap.LoadConfig(*configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	info := buildinfo.Get()
	log.Info("starting checkpointd",
		"version", info.Version,
		"commit", info.Commit,
		"config", *configFile)

	shutdownHandler := shutdown.NewHandler(cfg.Server.ShutdownTimeout, log)
	registry := metric.NewRegistry()

	journal, err := initHistory(cfg, registry, log)
	if err != nil {
		return fmt.Errorf("init history: %w", err)
	}
	if journal != nil {
		shutdownHandler.OnShutdown("history", func(context.Context) error {
			return journal.Close()
		})
	}

	svc, err := bootstrap.NewService(cfg, bootstrap.Options{
		Logger:  log,
		History: journal,
		Metrics: registry,
	})
	if err != nil {
		return fmt.Errorf("init service: %w", err)
	}
	registry.Registerer().MustRegister(metric.NewCollector(func() (domain.Status, error) {
		return svc.Status(context.Background())
	}))

	primeCheckpointing(svc, log)

	router := httpserver.NewRouter(&httpserver.RouterConfig{
		Service:        svc,
		History:        historyLister(journal),
		MetricsHandler: registry.Handler(),
		Requests:       registry,
		Logger:         log,
		RateLimit:      cfg.Server.RateLimit,
		EnableAudit:    true,
	})

	local := localserver.New(cfg.Server.Local.Path, router, log)
	ln, err := local.Listen()
	if err != nil {
		return fmt.Errorf("listen on %s: %w", local.Path(), err)
	}
	shutdownHandler.OnShutdown("local socket", local.Shutdown)
	go func() {
		if err := local.Serve(ln); err != nil {
			log.Error("management socket error", "error", err)
		}
	}()

	if addr := cfg.Server.Metrics.Addr; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", registry.Handler())
		metricsServer := httpserver.New(addr, mux)
		shutdownHandler.OnShutdown("metrics listener", metricsServer.Shutdown)
		go func() {
			log.Info("metrics listening", "addr", addr)
			if err := metricsServer.ListenAndServe(); err != nil {
				log.Error("metrics listener error", "error", err)
			}
		}()
	}

	if path := loader.FilePath(); path != "" {
		stop, err := watchConfig(path, loader, log)
		if err != nil {
			log.Warn("config watch disabled", "error", err)
		} else {
			shutdownHandler.OnShutdown("config watcher", func(context.Context) error { return stop() })
		}
	}

	log.Info("checkpointd started")
	if err := shutdownHandler.Wait(context.Background()); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("checkpointd stopped")
	return nil
}

// initLogger creates the process logger and installs it as the default.
func initLogger(cfg *config.DaemonConfig) (*slog.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
	if err != nil {
		return nil, err
	}
	logger.SetDefault(log)
	return log.Slog(), nil
}

// initHistory opens the event journal and registers its gauges.
func initHistory(cfg *config.DaemonConfig, registry *metric.Registry, log *slog.Logger) (*history.Journal, error) {
	journal, err := bootstrap.OpenHistory(cfg.Storage, log)
	if err != nil || journal == nil {
		return nil, err
	}
	journal.RegisterMetrics(registry.Registerer())
	return journal, nil
}

// historyLister avoids handing a typed nil to the router.
func historyLister(j *history.Journal) handler.HistoryLister {
	if j == nil {
		return nil
	}
	return j
}

// primeCheckpointing evaluates whether this boot runs under a checkpoint so
// that prepare and commit requests act on the right state.
func primeCheckpointing(svc *service.CheckpointService, log *slog.Logger) {
	needed, err := svc.NeedsCheckpoint(context.Background())
	if err != nil {
		log.Warn("initial checkpoint query failed", "error", err)
		return
	}
	log.Info("checkpoint state", "checkpointing", needed)
}

// watchConfig reloads the configuration file on change and applies the log
// level. Other settings need a restart.
func watchConfig(path string, loader *confloader.Loader, log *slog.Logger) (func() error, error) {
	watcher, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	if err := watcher.Watch(path); err != nil {
		return nil, errors.Join(err, watcher.Stop())
	}

	watcher.OnChange(func(string) {
		next := config.Default()
		if err := loader.Reload(next); err != nil {
			log.Error("config reload failed", "error", err)
			return
		}
		if err := config.Verify(next); err != nil {
			log.Error("reloaded config rejected", "error", err)
			return
		}
		before := logger.GetLevel()
		logger.SetLevel(next.Log.Level)
		if after := logger.GetLevel(); after != before {
			log.Info("log level changed", "from", before, "to", after)
		}
	})
	watcher.StartAsync()
	return watcher.Stop, nil
}

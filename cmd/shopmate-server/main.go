package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/yndnr/shopmate-go/internal/infra/buildinfo"
	"github.com/yndnr/shopmate-go/internal/infra/confloader"
	"github.com/yndnr/shopmate-go/internal/infra/shutdown"
	"github.com/yndnr/shopmate-go/internal/infra/tlsroots"
	"github.com/yndnr/shopmate-go/internal/integrations/paramstore"
	"github.com/yndnr/shopmate-go/internal/server/config"
	"github.com/yndnr/shopmate-go/internal/server/httpserver"
	"github.com/yndnr/shopmate-go/internal/telemetry/logger"
	"github.com/yndnr/shopmate-go/internal/telemetry/metric"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		envFile     = flag.String("env-file", ".env", "Path to a .env file (ignored when missing)")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("shopmate-server %s\n", buildinfo.String())
		return nil
	}

	ctx := context.Background()

	loader := confloader.NewLoader(
		confloader.WithConfigFile(*configFile),
		confloader.WithDotEnv(*envFile),
	)
	cfg, err := loadConfig(ctx, loader)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  os.Stdout,
		Service: "shopmate-server",
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)

	info := buildinfo.Get()
	log.Info("starting shopmate-server",
		"version", info.Version,
		"commit", info.Commit,
		"config", *configFile,
		"effective", config.ToMap(config.Sanitize(cfg)))

	metrics := metric.Global()
	metrics.SetBuild(info.Version, info.Commit, info.GoVersion)

	stopper := shutdown.NewHandler(cfg.Server.HTTP.ShutdownTimeout, shutdown.WithLogger(log.Slog()))

	app, err := build(ctx, cfg, log.Slog(), metrics, stopper)
	if err != nil {
		// Release whatever was opened before the failure.
		_ = stopper.Shutdown()
		return err
	}

	srvOpts := []httpserver.Option{httpserver.WithLogger(log.Slog())}
	if h := cfg.Server.HTTP; h.TLSCertFile != "" {
		reloader, err := tlsroots.NewCertReloader(h.TLSCertFile, h.TLSKeyFile, tlsroots.WithLogger(log.Slog()))
		if err != nil {
			_ = stopper.Shutdown()
			return fmt.Errorf("load tls key pair: %w", err)
		}
		if err := reloader.Start(); err != nil {
			log.Warn("tls key pair will not be reloaded", "error", err)
		}
		stopper.OnShutdown("tls-reloader", func(context.Context) error { return reloader.Stop() })
		srvOpts = append(srvOpts, httpserver.WithTLS(reloader.ServerConfig()))
	}

	httpSrv := httpserver.New(cfg.Server.HTTP.Addr, httpserver.NewRouter(&httpserver.RouterConfig{
		Deps:    app.deps,
		Metrics: metrics,
		Logger:  log.Slog(),
	}), srvOpts...)
	stopper.OnShutdown("http", httpSrv.Shutdown)

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil {
			log.Error("http server failed", "error", err)
			stopper.Trigger("http server failed")
		}
	}()

	if *configFile != "" {
		if w, err := watchConfig(*configFile, loader, log); err != nil {
			log.Warn("config watch disabled", "error", err)
		} else {
			stopper.OnShutdown("config-watcher", func(context.Context) error { return w.Stop() })
		}
	}

	log.Info("server started")
	if err := stopper.Wait(ctx); err != nil {
		log.Error("shutdown finished with errors", "error", err)
		return err
	}
	log.Info("server stopped gracefully")
	return nil
}

// loadConfig merges defaults, file and environment, resolves parameter
// store references and verifies the result.
func loadConfig(ctx context.Context, loader *confloader.Loader) (*config.ServerConfig, error) {
	cfg := config.Default()
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}

	if config.HasSecretRefs(cfg) {
		store, err := paramstore.NewFromEnv(ctx, "")
		if err != nil {
			return nil, fmt.Errorf("init parameter store: %w", err)
		}
		if err := config.ResolveSecrets(ctx, cfg, store); err != nil {
			return nil, err
		}
	}

	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// watchConfig reloads the file on change. Only the log level is applied
// live; everything else needs a restart.
func watchConfig(path string, loader *confloader.Loader, log logger.Logger) (*confloader.Watcher, error) {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log.Slog()))
	if err != nil {
		return nil, err
	}
	if err := w.Watch(path); err != nil {
		_ = w.Stop()
		return nil, err
	}

	w.OnChange(func(string) {
		next := config.Default()
		if err := loader.Reload(next); err != nil {
			log.Warn("config reload failed", "error", err)
			return
		}
		if err := config.Verify(next); err != nil {
			log.Warn("reloaded config is invalid, keeping current settings", "error", err)
			return
		}

		before := logger.GetLevel()
		logger.SetLevel(next.Log.Level)
		if after := logger.GetLevel(); after != before {
			log.Info("log level changed", "from", before, "to", after)
		}
		log.Info("config reloaded; settings other than log.level apply on restart")
	})
	w.StartAsync()
	return w, nil
}

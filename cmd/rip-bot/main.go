package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/ytget/rip-bot/internal/bot"
	"github.com/ytget/rip-bot/internal/catalog"
	"github.com/ytget/rip-bot/internal/config"
	"github.com/ytget/rip-bot/internal/download"
	"github.com/ytget/rip-bot/internal/logging"
	"github.com/ytget/rip-bot/internal/metrics"
	"github.com/ytget/rip-bot/internal/platform"
	"github.com/ytget/rip-bot/internal/preference"
	"github.com/ytget/rip-bot/internal/telegram"
)

// Version is set during build via -ldflags "-X main.version=X.Y.Z"
var version = "dev"

// Scratch directories older than this at startup belong to a dead process
const staleScratchAge = time.Hour

func main() {
	configPath := pflag.String("config", "", "Path to a YAML config file")
	logLevel := pflag.String("log-level", "", "Log level: debug, info, warn, error")
	metricsAddr := pflag.String("metrics-addr", "", "Address to serve /metrics on, empty disables")
	showVersion := pflag.Bool("version", false, "Print version and exit")
	pflag.Parse()

	if *showVersion {
		fmt.Printf("rip-bot %s\n", version)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}

	if err := logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync()

	logging.Info("rip-bot starting",
		logging.String("version", version),
		logging.String("rip", cfg.RipPath),
		logging.String("scratch_root", cfg.ScratchRoot),
		logging.Int("max_concurrent_jobs", cfg.MaxConcurrentJobs),
		logging.Duration("job_timeout", cfg.JobTimeout))

	if n, err := platform.SweepScratchDirs(cfg.ScratchRoot, staleScratchAge, time.Now()); err != nil {
		logging.Warn("scratch sweep failed", logging.Err(err))
	} else if n > 0 {
		logging.Info("removed stale scratch directories", logging.Int("count", n))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start metrics server
	if cfg.MetricsAddr != "" {
		metricsServer := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           metrics.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logging.Info("metrics server listening", logging.String("addr", cfg.MetricsAddr))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("metrics server error", logging.Err(err))
			}
		}()
		defer metricsServer.Close()
	}

	client := telegram.NewClient(cfg.Token, cfg.TelegramAPIURL, cfg.HTTPTimeout, cfg.TelegramRate)
	me, err := client.GetMe(ctx)
	if err != nil {
		logging.Fatal("telegram token rejected", logging.Err(err))
	}

	downloadSvc := download.NewService(download.ExecRunner{}, download.Options{
		RipPath:           cfg.RipPath,
		ScratchRoot:       cfg.ScratchRoot,
		MaxFileBytes:      cfg.MaxFileBytes,
		MaxConcurrentJobs: cfg.MaxConcurrentJobs,
		JobTimeout:        cfg.JobTimeout,
	})
	b := bot.New(client, catalog.NewClient(cfg.DeezerAPIURL, cfg.HTTPTimeout), preference.NewStore(), downloadSvc)

	logging.Info("bot started, waiting for updates", logging.String("username", me.Username))
	if err := telegram.NewPoller(client).Run(ctx, b.HandleUpdate); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error("poller stopped", logging.Err(err))
	}
	logging.Info("shutting down")
}

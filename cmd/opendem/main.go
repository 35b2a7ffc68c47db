package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/opendem/opendem/internal/config"
	"github.com/opendem/opendem/internal/engine/gdalengine"
	"github.com/opendem/opendem/internal/logging"
	"github.com/opendem/opendem/internal/metrics"
	"github.com/opendem/opendem/internal/pipeline"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: opendem <config.yml>")
		os.Exit(1)
	}
	configPath := os.Args[1]

	if _, err := os.Stat(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: config file not found at %s\n", configPath)
		os.Exit(1)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Log)
	slog.Info("opendem", "version", pipeline.Version, "git_sha", pipeline.GitSHA, "config", configPath)

	if cfg.Metrics.Enabled {
		metrics.Init("opendem")
		go func() {
			if err := metrics.StartServer(cfg.Metrics.Address); err != nil {
				slog.Warn("metrics server stopped", "error", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Abort handler: cancel promptly, never resume. Partial cache
	// artifacts are left in place.
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		sig := <-ch
		slog.Info("received signal, aborting", "signal", sig.String())
		cancel()
	}()

	eng, err := gdalengine.New()
	if err != nil {
		slog.Error("failed to initialize raster engine", "error", err)
		os.Exit(1)
	}

	p := pipeline.New(*cfg, eng)
	if err := p.Run(ctx); err != nil {
		if ctx.Err() != nil {
			slog.Info("run aborted")
		} else {
			slog.Error("run failed", "error", err)
		}
		os.Exit(1)
	}
}

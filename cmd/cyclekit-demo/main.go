// Package main implements the CycleKit demo host: a counter component
// mounted on the HTTP driver, with Prometheus metrics, optional NATS
// diagnostics, and msgpack state snapshots across restarts.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/nats-io/nats.go"
	"golang.org/x/sync/errgroup"

	"github.com/c360/cyclekit/component"
	"github.com/c360/cyclekit/config"
	"github.com/c360/cyclekit/driver/httpdriver"
	"github.com/c360/cyclekit/driver/natsdriver"
	"github.com/c360/cyclekit/metric"
	"github.com/c360/cyclekit/stream"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "cyclekit-demo"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()

	if cliCfg.ShowVersion {
		fmt.Printf("%s %s (build %s)\n", appName, Version, BuildTime)
		return nil
	}
	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil
	}

	cfg, err := config.Load(cliCfg.ConfigPath)
	if err != nil {
		return err
	}
	if cliCfg.LogLevel != "" {
		cfg.LogLevel = cliCfg.LogLevel
	}
	if cliCfg.LogFormat != "" {
		cfg.LogFormat = cliCfg.LogFormat
	}
	if cliCfg.Debug {
		cfg.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if cliCfg.Validate {
		slog.Info("Configuration is valid")
		return nil
	}

	logger := setupLogger(*cfg)
	slog.SetDefault(logger)

	metrics := metric.NewRegistry()
	loop := stream.NewLoop()

	httpd := httpdriver.New(loop, cfg.HTTP, logger, metrics)

	var natsd *natsdriver.Driver
	if cfg.NATS.URL != "" {
		natsd, err = natsdriver.Connect(loop, cfg.NATS, logger)
		if err != nil {
			return err
		}
		defer natsd.Close()
		logger.Info("nats connected", "url", cfg.NATS.URL)
	}

	registry := component.NewRegistry()
	reg := counterRegistration(counterOptions{
		Logger:         logger,
		Metrics:        metrics.Runtime,
		Diagnostics:    diagnosticsConn(natsd),
		Verbose:        cfg.Debug,
		DispatchTurns:  cfg.DispatchTurns,
		BootstrapTurns: cfg.BootstrapTurns,
	})
	if err := registry.Register(reg); err != nil {
		return err
	}

	counter, err := registry.Mount("counter-main", "counter",
		component.Sources{component.DefaultRequestSource: httpd}, loop)
	if err != nil {
		return err
	}
	defer registry.CloseAll()

	if cliCfg.SnapshotPath != "" {
		if err := httpd.LoadSnapshot(cliCfg.SnapshotPath); err != nil {
			logger.Warn("snapshot load failed", "path", cliCfg.SnapshotPath, "error", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting", "http_addr", cfg.HTTP.Addr)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		loop.Run(ctx)
		return nil
	})
	g.Go(func() error {
		return httpd.Start(ctx)
	})

	err = g.Wait()

	if cliCfg.SnapshotPath != "" {
		if saveErr := httpd.SaveSnapshot(cliCfg.SnapshotPath, counter.CurrentState()); saveErr != nil {
			logger.Warn("snapshot save failed", "path", cliCfg.SnapshotPath, "error", saveErr)
		} else {
			logger.Info("snapshot saved", "path", cliCfg.SnapshotPath)
		}
	}

	logger.Info("shutdown complete")
	return err
}

func diagnosticsConn(d *natsdriver.Driver) *nats.Conn {
	if d == nil {
		return nil
	}
	return d.Conn()
}

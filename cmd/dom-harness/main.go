package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/urfave/cli/v2"

	harness "github.com/hostedenv/dom-harness"
	"github.com/hostedenv/dom-harness/exitcodes"
	"github.com/hostedenv/dom-harness/flags"
	"github.com/hostedenv/dom-harness/service"
)

var (
	Version   = "v0.1.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "dom-harness"
	app.Usage = "Hosted Document Environment Test Harness"
	app.Description = "dom-harness supervises hosted document environments and extracts their test results"
	app.Flags = flags.Flags
	app.Action = run
	app.ExitErrHandler = func(c *cli.Context, err error) {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			cli.HandleExitCoder(exitErr)
		} else if err != nil {
			// Check for typed runtime errors
			if harness.IsRuntimeError(err) {
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.RuntimeErr))
			} else if harness.IsTestFailureError(err) {
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.TestFailure))
			} else {
				// For other unspecified errors, default to exit code 1
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.TestFailure))
			}
		}
	}

	// Start telemetry
	shutdown, err := otelconfig.ConfigureOpenTelemetry(
		otelconfig.WithServiceName(app.Name),
		otelconfig.WithServiceVersion(app.Version),
	)
	if err != nil {
		log.Crit("Failed to setup open telemetry", "message", err)
	}
	defer shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Crit("Application failed", "message", err)
	}
}

func run(ctx *cli.Context) error {
	logger, err := setupLogging(ctx)
	if err != nil {
		return harness.NewRuntimeError(err)
	}

	cfg, err := harness.NewConfig(ctx, logger, ctx.String(flags.Manifest.Name))
	if err != nil {
		// Wrap in RuntimeError to signal this should exit with code 2
		return harness.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}

	cfg.Log.Debug("Config", "config", cfg)

	// Start the healthz/metrics/docs servers
	svc := service.New()
	if cfg.DocsDir != "" {
		svc.WithDocs(cfg.DocsDir, cfg.DocsAddr)
	}
	svc.Start(ctx.Context)
	defer svc.Shutdown()

	appCtx, cancel := context.WithCancelCause(ctx.Context)
	defer cancel(nil)

	h, err := harness.New(appCtx, cfg, Version, cancel)
	if err != nil {
		return harness.NewRuntimeError(fmt.Errorf("failed to create harness: %w", err))
	}

	if err := h.Start(appCtx); err != nil {
		return err
	}
	if cfg.RunOnce {
		return nil
	}

	// Continuous mode: block until a signal or the harness requests shutdown
	<-appCtx.Done()
	if err := h.Stop(context.Background()); err != nil {
		logger.Error("Error stopping harness", "error", err)
	}
	return h.WaitForShutdown(context.Background())
}

func setupLogging(ctx *cli.Context) (log.Logger, error) {
	lvl, err := log.LvlFromString(ctx.String(flags.LogLevel.Name))
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	handler := log.NewTerminalHandlerWithLevel(os.Stderr, lvl, true)
	logger := log.NewLogger(handler)
	log.SetDefault(logger)
	return logger, nil
}

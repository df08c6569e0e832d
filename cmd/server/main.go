package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/TylerGelinas/socure/internal/platform/config"
	"github.com/TylerGelinas/socure/internal/platform/logger"
)

// main loads configuration, wires dependencies and runs the HTTP server until
// SIGINT or SIGTERM. Business logic lives in the internal service packages.
func main() {
	configPath := flag.String("config", os.Getenv("SOCURE_CONFIG"), "path to a YAML config file (optional)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "socure-gateway:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.Server.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           app.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      writeTimeout(cfg.Verification),
		IdleTimeout:       60 * time.Second,
	}

	log.Info("starting socure gateway",
		"addr", cfg.Server.Addr,
		"environment", cfg.Server.Environment,
		"modules", app.service.Selection().String(),
		"inconclusive_policy", app.service.Policy(),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	for _, runner := range app.runners {
		g.Go(func() error {
			runner(gctx)
			return nil
		})
	}

	err = g.Wait()

	closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if cerr := app.close(closeCtx); cerr != nil {
		log.Error("failed to release resources", "error", cerr)
	}

	if err != nil {
		log.Error("server stopped with error", "error", err)
		return err
	}
	log.Info("server stopped")
	return nil
}

// writeTimeout leaves room for every verification attempt plus the delays
// between them.
func writeTimeout(v config.Verification) time.Duration {
	attempts := time.Duration(max(v.RetryAttempts, 1))
	return attempts*v.Timeout + (attempts-1)*v.RetryDelay + 5*time.Second
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jusunglee/departures-go/api/handlers"
	"github.com/jusunglee/departures-go/internal/logging"
	"github.com/jusunglee/departures-go/internal/telemetry"
	"github.com/jusunglee/departures-go/pkg/departures"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := loadConfig(args, os.LookupEnv, os.Stderr)
	if err != nil {
		return err
	}

	level, _ := logging.ParseLevel(cfg.LogLevel)
	logger := logging.NewStructuredLogger(os.Stdout, level)
	slog.SetDefault(logger)

	var metrics *telemetry.Metrics
	options := []departures.Option{departures.WithLogger(logger)}
	if cfg.MetricsEnabled {
		metrics = telemetry.NewMetrics()
		options = append(options, departures.WithMetrics(metrics))
	}

	client, err := departures.NewRemote(cfg, options...)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      handlers.NewRouter(handlers.NewHandler(client), metrics, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.FetchTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logging.LogOperation(logger, "/departures API endpoint listening",
			slog.Int("port", cfg.Port),
			slog.String("source_url", cfg.SourceURL),
			slog.String("time_zone", cfg.TimeZone))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logging.LogError(logger, "server stopped with error", err)
		return err
	}

	logger.Info("server stopped")
	return nil
}

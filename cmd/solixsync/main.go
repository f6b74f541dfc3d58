package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/solixsync/solixsync/pkg/client"
	"github.com/solixsync/solixsync/pkg/log"
	"github.com/solixsync/solixsync/pkg/metrics"

	"github.com/levenlabs/go-lflag"
	"github.com/levenlabs/go-llog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

func main() {
	// init packages
	c := client.Configured()

	listenAddr := lflag.String("http-listen", ":9173", "Metrics server listen address")
	statusInterval := lflag.Duration("status-interval", time.Minute, "Interval between status poll cycles")
	detailInterval := lflag.Duration("detail-interval", 10*time.Minute, "Interval between detail poll cycles")
	energyInterval := lflag.Duration("energy-interval", 5*time.Minute, "Interval between energy poll cycles")

	// parse flags
	lflag.Configure()

	var level slog.Level
	// lflag automatically sets llog's level, but we need to set the slog level
	switch llog.GetLevel() {
	case llog.DebugLevel:
		level = slog.LevelDebug
	case llog.InfoLevel:
		level = slog.LevelInfo
	case llog.WarnLevel:
		level = slog.LevelWarn
	case llog.ErrorLevel:
		level = slog.LevelError
	default:
		panic(fmt.Errorf("unknown log level: %s", llog.GetLevel().String()))
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	log.SetDefaultLogLevel(level)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if _, err := c.Authenticate(ctx, false); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "initial login failed", "error", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(metrics.NewCollector(c.Cache()))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: *listenAddr, Handler: mux}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		log.Ctx(ctx).InfoContext(ctx, "metrics server listening", slog.String("addr", *listenAddr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return runCycle(ctx, *statusInterval, "status", func(ctx context.Context) error {
			return c.UpdateSites(ctx, "", false)
		})
	})
	g.Go(func() error {
		return runCycle(ctx, *detailInterval, "details", func(ctx context.Context) error {
			return c.UpdateDeviceDetails(ctx, false)
		})
	})
	g.Go(func() error {
		return runCycle(ctx, *energyInterval, "energy", func(ctx context.Context) error {
			return c.UpdateDeviceEnergy(ctx, false)
		})
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Ctx(ctx).ErrorContext(ctx, "sync loop failed", "error", err)
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "exited cleanly")
}

// runCycle runs fn immediately and then on every tick until the context
// ends. Cycle errors are logged, not fatal; transient cloud failures should
// not take the process down.
func runCycle(ctx context.Context, interval time.Duration, name string, fn func(context.Context) error) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := fn(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Ctx(ctx).WarnContext(ctx, "poll cycle failed",
				slog.String("cycle", name), "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

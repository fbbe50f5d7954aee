// Command occurd consolidates ICS calendar feeds into a single ordered
// event list and serves it over HTTP.
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
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/calyptra/liboccur/config"
	"github.com/calyptra/liboccur/consolidate"
	"github.com/calyptra/liboccur/event"
	"github.com/calyptra/liboccur/ics"
	"github.com/calyptra/liboccur/internal/web"
	"github.com/calyptra/liboccur/render"
	"github.com/calyptra/liboccur/timezone"
	"github.com/calyptra/liboccur/xcal"
)

const version = "0.1.0-dev"

// schedContextRefresh names the concurrency domain of the periodic
// refresh. On-demand expansion work would use its own key.
const schedContextRefresh = "daemon-refresh"

type flagConfig struct {
	configPath string
	listen     string
	once       bool
	dumpXCal   bool
	verbose    bool
}

func parseFlags() flagConfig {
	var f flagConfig

	flag.StringVar(&f.configPath, "config", "occurd.yaml", "Path to config file")
	flag.StringVar(&f.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&f.once, "once", false, "Run one fetch+consolidate cycle, print the agenda and exit")
	flag.BoolVar(&f.dumpXCal, "dump-xcal", false, "With -once, print the xCal document instead of the agenda")
	flag.BoolVar(&f.verbose, "v", false, "Enable debug logging")

	flag.Parse()

	return f
}

func main() {
	f := parseFlags()

	level := slog.LevelInfo
	if f.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	logger.Info("occurd starting", "version", version)

	if err := run(f, logger); err != nil {
		logger.Error("occurd failed", "err", err)
		os.Exit(1)
	}
}

func run(f flagConfig, logger *slog.Logger) error {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return fmt.Errorf("loading config %s: %w", f.configPath, err)
	}
	if f.listen != "" {
		cfg.Listen = f.listen
	}

	resolver, err := timezone.New(cfg.DefaultTimezone, logger)
	if err != nil {
		return fmt.Errorf("resolving default timezone: %w", err)
	}

	fetcher := ics.NewFetcher(cfg.FetcherOptions(), logger)
	defer fetcher.Close()

	cons := consolidate.New(cfg.ConsolidateConfig(), resolver, logger)
	defer cons.Shutdown()

	store := web.NewStore()

	refresh := func(ctx context.Context) (web.Snapshot, error) {
		windowStart := time.Now().UTC()
		windowEnd := windowStart.AddDate(0, 0, cfg.HorizonDays)

		results, errs := fetcher.FetchAll(ctx, cfg.Sources())
		for _, ferr := range errs {
			logger.Warn("feed skipped this refresh", "err", ferr)
		}

		var sources []event.CalendarEvent
		for _, res := range results {
			events, perr := ics.Parse(res.Source, res.Body, resolver, logger)
			if perr != nil {
				logger.Warn("feed unparseable, skipping", "feed", res.Source.ID, "err", perr)
				continue
			}
			sources = append(sources, events...)
		}

		out := cons.Consolidate(ctx, schedContextRefresh, sources, windowStart, windowEnd)
		if out.Failed {
			return web.Snapshot{}, fmt.Errorf("consolidation stage %s: %w", out.FailedStage, out.Err)
		}

		snap := web.Snapshot{
			Events:      out.Events,
			Status:      out.Reports.StatusStrings(),
			WindowStart: windowStart,
			WindowEnd:   windowEnd,
			RefreshedAt: time.Now().UTC(),
		}
		store.Set(snap)
		logger.Info("refresh complete",
			"feeds", len(results),
			"sources", len(sources),
			"events", len(out.Events))
		return snap, nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if f.once {
		return runOnce(ctx, f, resolver, refresh)
	}

	if _, err := refresh(ctx); err != nil {
		// Keep serving the empty snapshot; the next tick retries.
		logger.Error("initial refresh failed", "err", err)
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.RefreshCron, func() {
		if _, err := refresh(ctx); err != nil {
			logger.Error("scheduled refresh failed", "err", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", cfg.RefreshCron, err)
	}
	c.Start()

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           web.NewServer(store, logger).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", "addr", cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", "err", err)
		}
		// Wait for a mid-flight scheduled refresh to finish.
		<-c.Stop().Done()
		return nil
	})

	return g.Wait()
}

// runOnce performs a single refresh and prints the result to stdout,
// as an agenda or as an xCal document.
func runOnce(ctx context.Context, f flagConfig, resolver *timezone.Resolver, refresh func(context.Context) (web.Snapshot, error)) error {
	snap, err := refresh(ctx)
	if err != nil {
		return err
	}

	if f.dumpXCal {
		out, err := xcal.Marshal(snap.Events)
		if err != nil {
			return fmt.Errorf("marshaling xcal: %w", err)
		}
		_, err = os.Stdout.Write(out)
		return err
	}
	return render.Console(os.Stdout, snap.Events, resolver.DefaultLocation(), render.DefaultConsoleOptions)
}

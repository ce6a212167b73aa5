package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-office2pdf"
	"github.com/alnah/go-office2pdf/internal/cache"
	"github.com/alnah/go-office2pdf/internal/config"
	"github.com/alnah/go-office2pdf/internal/hints"
	"github.com/alnah/go-office2pdf/internal/metrics"
	"github.com/alnah/go-office2pdf/internal/server"
)

// Server lifecycle settings.
const (
	shutdownGrace     = 30 * time.Second
	readHeaderTimeout = 10 * time.Second
	sweepInterval     = 10 * time.Minute
)

// runServe runs the HTTP service until ctx is canceled.
func runServe(ctx context.Context, args []string, env *Environment) error {
	flags, positional, err := parseServeFlags(args)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}
	if len(positional) > 0 {
		return fmt.Errorf("%w: serve takes no arguments, got %v", ErrUsage, positional)
	}

	cfg, err := loadSettings(flags.common.config, env, func(c *config.Config) { mergeServeFlags(flags, c) })
	if err != nil {
		return err
	}

	logger, err := newLogger(env.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	reg := metrics.NewRegistry()
	opts := converterOptions(cfg, logger)
	opts = append(opts, office2pdf.WithHooks(metrics.New(reg)))

	if cfg.Cache.RedisURL != "" {
		rc, err := cache.NewRedis(ctx, cfg.Cache.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to result cache: %w", err)
		}
		opts = append(opts, office2pdf.WithCache(rc, cfg.CacheTTL()))
		logger.Info("result cache enabled", "ttl", cfg.CacheTTL())
	}

	conv, err := env.NewConverter(opts...)
	if err != nil {
		return fmt.Errorf("%w%s", err, hints.ForScratchRoot(cfg.ScratchRoot))
	}
	defer func() {
		if err := conv.Close(); err != nil {
			logger.Warn("closing converter", "err", err)
		}
	}()

	sweep(conv, logger)

	metrics.RegisterLoad(reg, func() metrics.Snapshot {
		s := conv.Stats()
		return metrics.Snapshot{
			Capacity:       s.Capacity,
			InFlight:       s.InFlight,
			Waiting:        s.Waiting,
			Rejected:       s.Rejected,
			LiveWorkspaces: s.LiveWorkspaces,
		}
	})

	srvCfg := server.Config{
		MaxUploadBytes:    cfg.Server.MaxUploadBytes,
		RequestTimeout:    cfg.RequestTimeout(),
		RetryAfter:        min(cfg.QueueTimeout(), server.DefaultRetryAfter),
		RequestsPerSecond: cfg.Server.RequestsPerSecond,
		Burst:             cfg.Server.Burst,
		Logger:            logger,
	}
	if !flags.noMetrics {
		srvCfg.Metrics = metrics.Handler(reg)
	}

	httpSrv := &http.Server{
		Handler:           server.New(conv, srvCfg).Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	ln, err := env.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.Server.Addr, err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening",
			"addr", ln.Addr().String(),
			"engines", conv.MaxEngines(),
			"engine_timeout", cfg.EngineTimeout(),
			"queue_timeout", cfg.QueueTimeout(),
		)
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				sweep(conv, logger)
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down", "grace", shutdownGrace)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down http: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// sweep removes orphaned workspaces and logs failures.
func sweep(conv Converter, logger *log.Logger) {
	if _, err := conv.SweepOrphans(); err != nil {
		logger.Warn("sweeping orphaned workspaces", "err", err)
	}
}

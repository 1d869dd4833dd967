package main

import (
	"context"
	"errors"
	"expvar"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"smarthika/internal/adapters/archive"
	"smarthika/internal/adapters/httpapi"
	"smarthika/internal/blob"
	"smarthika/internal/config"
	"smarthika/internal/core"
	"smarthika/internal/geo"
	"smarthika/internal/location"
	"smarthika/internal/metrics"
	"smarthika/internal/submission"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			return serve(cmd.Context(), cfg, logger)
		},
	}
}

func locationCache(cfg config.Config) (location.Cache, func() error) {
	if cfg.LocationCache == config.CacheRedis {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return location.NewRedisCache(client, "smarthika:locations:", cfg.LocationCacheTTL), client.Close
	}
	return location.NewLRUCache(64, cfg.LocationCacheTTL), func() error { return nil }
}

func serve(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	store, err := core.OpenStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	blobs, err := blob.Open(ctx, cfg.Blob)
	if err != nil {
		return err
	}
	engine, err := rulesEngine(cfg)
	if err != nil {
		return err
	}

	cache, closeCache := locationCache(cfg)
	defer func() { _ = closeCache() }()

	serviceOpts := []core.ServiceOption{core.WithLogger(logger.Named("service"))}
	transportOpts := []submission.Option{
		submission.WithTimeout(cfg.SubmitTimeout),
		submission.WithLogger(logger.Named("submission")),
	}
	locationOpts := []location.Option{
		location.WithCache(cache),
		location.WithTimeout(cfg.LocationTimeout),
		location.WithLogger(logger.Named("location")),
	}
	var serverOpts []httpapi.Option
	root := http.NewServeMux()

	switch cfg.Metrics {
	case config.MetricsPrometheus:
		m := metrics.New(true)
		serviceOpts = append(serviceOpts, core.WithMetrics(m))
		transportOpts = append(transportOpts, submission.WithObserver(m.ObserveSubmission))
		locationOpts = append(locationOpts, location.WithObserver(m.ObserveLocation))
		serverOpts = append(serverOpts, httpapi.WithMetrics(m))
	case config.MetricsExpvar:
		serviceOpts = append(serviceOpts, core.WithMetrics(core.NewExpvarMetricsRecorder("smarthika_service")))
		root.Handle("/debug/vars", expvar.Handler())
	}

	transport := submission.New(cfg.SheetsWebhookURL, transportOpts...)
	if !transport.Configured() {
		logger.Warn("spreadsheet web-hook not configured; submissions will fail until SMARTHIKA_SHEETS_WEBHOOK_URL is set")
	}
	worker := archive.NewWorker(blobs, archive.WithQueueSize(cfg.ArchiveQueue), archive.WithLogger(logger.Named("archive")))
	worker.Start()

	svc := core.NewService(store, engine, append(serviceOpts, core.WithSubmitter(transport), core.WithArchiver(worker))...)
	atlas := geo.NewAtlas(blobs, geo.WithLoadTimeout(cfg.MapLoadTimeout), geo.WithAtlasLogger(logger.Named("geo")))
	serverOpts = append(serverOpts,
		httpapi.WithLocations(location.NewService(cfg.LocationSourceURL, locationOpts...)),
		httpapi.WithAtlas(atlas),
		httpapi.WithArchives(worker),
		httpapi.WithSubmitLimiter(httpapi.NewRateLimiter(cfg.SubmitPerMinute, cfg.SubmitBurst)),
		httpapi.WithLogger(logger.Named("http")),
	)
	root.Handle("/", httpapi.NewServer(svc, serverOpts...).Router())

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           root,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.HTTPAddr),
			zap.String("storage", cfg.Storage.Driver), zap.String("blob", string(blobs.Driver())))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		err := srv.Shutdown(shutdownCtx)
		return errors.Join(err, worker.Stop(shutdownCtx))
	})
	return g.Wait()
}

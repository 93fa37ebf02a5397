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

	"github.com/prometheus/client_golang/prometheus"
	temporalclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/interceptor"
	"go.temporal.io/sdk/worker"
	"golang.org/x/sync/errgroup"

	"github.com/edvin/sendline/internal/activity"
	"github.com/edvin/sendline/internal/config"
	"github.com/edvin/sendline/internal/db"
	"github.com/edvin/sendline/internal/ledger"
	"github.com/edvin/sendline/internal/logging"
	"github.com/edvin/sendline/internal/metrics"
	"github.com/edvin/sendline/internal/notify"
	"github.com/edvin/sendline/internal/pipeline"
	"github.com/edvin/sendline/internal/provider"
	"github.com/edvin/sendline/internal/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("worker"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	corePool, err := db.NewCorePool(ctx, cfg.CoreDatabaseURL, cfg.DatabaseMaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to core database")
	}
	defer corePool.Close()
	metrics.RegisterPoolMetrics(prometheus.DefaultRegisterer, "core", corePool)

	dialOpts, err := cfg.TemporalClientOptions()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure temporal client")
	}
	tc, err := temporalclient.Dial(dialOpts)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to temporal")
	}
	defer tc.Close()

	deliveryMetrics := metrics.NewDelivery(prometheus.DefaultRegisterer)
	store := ledger.NewStore(corePool)
	notifier := notify.NewNotifier(store, logger,
		notify.WithAttemptTimeout(cfg.WebhookTimeout),
		notify.WithMetrics(deliveryMetrics),
	)
	p := pipeline.New(store,
		provider.NewResendClient(cfg.ProviderBaseURL, cfg.ProviderAPIKey, cfg.ProviderTimeout),
		notifier,
		logger,
		pipeline.WithMaxAttempts(cfg.DeliveryMaxAttempts),
		pipeline.WithSendTimeout(cfg.ProviderTimeout),
		pipeline.WithMetrics(deliveryMetrics),
	)

	w := worker.New(tc, cfg.TemporalTaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize: cfg.WorkerConcurrency,
		Interceptors: []interceptor.WorkerInterceptor{
			workflow.NewErrorTypingInterceptor(logger),
		},
	})
	w.RegisterActivity(activity.NewDelivery(p))
	w.RegisterWorkflow(workflow.DeliverEmailWorkflow)

	g, gctx := errgroup.WithContext(ctx)

	if cfg.MetricsAddr != "" {
		metricsSrv := metrics.NewServer(cfg.MetricsAddr, corePool.Ping)
		g.Go(func() error {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("starting metrics server")
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return metricsSrv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		logger.Info().
			Str("taskQueue", cfg.TemporalTaskQueue).
			Int("concurrency", cfg.WorkerConcurrency).
			Int("maxAttempts", cfg.DeliveryMaxAttempts).
			Msg("starting temporal worker")
		interrupt := make(chan any)
		go func() {
			<-gctx.Done()
			close(interrupt)
		}()
		if err := w.Run(interrupt); err != nil {
			return fmt.Errorf("temporal worker: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("worker stopped with error")
		os.Exit(1)
	}
	logger.Info().Msg("worker stopped")
}

package main

import (
	"TrancheAllocator/internal/ingestion"
	"TrancheAllocator/internal/observability"
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func newWorkerCmd(root *rootOptions) *cobra.Command {
	var natsURL, metricsAddr string

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Serve allocation requests from NATS JetStream",
		Long: `Consumes JSON allocation requests from the request stream, runs each one
and publishes the report to <result_prefix>.<run_id>. Requests that cannot
run are answered on <result_prefix>.errors. Metrics and health probes are
served on the metrics address.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if natsURL != "" {
				cfg.NATS.URL = natsURL
			}
			if metricsAddr != "" {
				cfg.Worker.MetricsAddr = metricsAddr
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := newLogger(cfg, "worker")
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			metrics := observability.NewMetrics(nil)
			health := observability.NewHealthChecker()

			// --- NATS ---
			nc, js, err := ingestion.ConnectNATS(cfg.NATS.URL, logger)
			if err != nil {
				return err
			}
			defer nc.Close()
			logger.Info().Str("url", cfg.NATS.URL).Msg("NATS connected")

			health.AddCheck("nats", func() error {
				if !nc.IsConnected() {
					return errors.New("not connected")
				}
				return nil
			})

			layout := cfg.Layout()
			if err := ingestion.EnsureStreams(ctx, js, layout, logger); err != nil {
				return err
			}

			requests := make(chan ingestion.RawRequest, cfg.Worker.ChanSize)
			subscriber := ingestion.NewRequestSubscriber(js, requests, logger)
			if err := subscriber.Subscribe(ctx, layout.Requests()); err != nil {
				return err
			}
			defer subscriber.Stop()

			worker := ingestion.NewWorker(
				ingestion.NewJetStreamPublisher(js),
				cfg.Defaults(),
				layout.ResultPrefix,
				cfg.Worker.ReportCacheSize,
				logger,
				metrics,
			)

			// --- Metrics and health server ---
			server := &http.Server{
				Addr:              cfg.Worker.MetricsAddr,
				Handler:           health.Mux(promhttp.Handler()),
				ReadHeaderTimeout: 5 * time.Second,
			}
			errChan := make(chan error, 2)
			go func() {
				logger.Info().Str("addr", server.Addr).Msg("metrics server listening")
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errChan <- err
				}
			}()
			go func() {
				errChan <- worker.Run(ctx, requests)
			}()

			health.SetReady(true)
			logger.Info().Str("subject", layout.RequestSubject).Msg("worker started")

			var runErr error
			select {
			case <-ctx.Done():
				logger.Info().Msg("shutdown signal received")
			case runErr = <-errChan:
				logger.Error().Err(runErr).Msg("worker stopped")
			}

			health.SetReady(false)
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Warn().Err(err).Msg("metrics server shutdown")
			}

			if errors.Is(runErr, context.Canceled) {
				return nil
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&natsURL, "nats-url", "", "NATS server URL")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "metrics and health listen address")
	return cmd
}

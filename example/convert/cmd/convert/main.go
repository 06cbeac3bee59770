package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/kroma-labs/docmosis-go/docmosis"
	"github.com/kroma-labs/docmosis-go/example/convert/internal/config"
	"github.com/kroma-labs/docmosis-go/example/convert/internal/telemetry"
	"github.com/kroma-labs/docmosis-go/httpclient"

	"go.opentelemetry.io/otel"
)

func main() {
	ctx := context.Background()
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: convert FILE...")
		os.Exit(2)
	}

	// 1. Setup OpenTelemetry (Tracing + Metrics)
	shutdownTracing, shutdownMetrics, err := telemetry.Setup(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to setup OTel")
	}
	defer func() {
		shutdownTracing(ctx)
		shutdownMetrics(ctx)
	}()

	// 2. Start Prometheus Metrics Server
	metricsServer := &http.Server{Addr: config.MetricsPort}
	go func() {
		logger.Info().Str("addr", config.MetricsPort).Msg("starting Prometheus metrics server")
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("metrics server failed")
		}
	}()

	// 3. Build the Docmosis client
	region := os.Getenv(config.RegionEnv)
	if region == "" {
		region = config.DefaultRegion
	}

	env := docmosis.CloudEnvironment(
		docmosis.Region(region),
		os.Getenv(config.AccessKeyEnv),
		docmosis.WithMaxTries(config.MaxTries),
		docmosis.WithRetryDelay(config.RetryDelay),
		docmosis.WithReadTimeout(config.ReadTimeout),
	)

	client, err := docmosis.New(env,
		httpclient.WithServiceName(config.ServiceName),
		httpclient.WithLogger(logger),
		httpclient.WithPrometheusRegisterer(prometheus.DefaultRegisterer),
		httpclient.WithBreakerConfig(httpclient.DefaultBreakerConfig()),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid Docmosis environment")
	}

	// 4. Convert every file given on the command line
	tracer := otel.Tracer("docmosis-convert-example")
	for _, path := range os.Args[1:] {
		ctx, span := tracer.Start(ctx, "convert-file")
		if err := convert(ctx, client, path); err != nil {
			logger.Error().Err(err).Str("file", path).Msg("conversion failed")
		}
		span.End()
	}

	// 5. Keep pinging so the dashboards have something to show
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(time.Duration(config.PingInterval) * time.Second)
	defer ticker.Stop()

	fmt.Println("✅ Conversions done, pinging Docmosis")
	fmt.Println("📊 Prometheus metrics: http://localhost:2112/metrics")
	fmt.Println("Press Ctrl+C to stop...")

	for {
		select {
		case <-ticker.C:
			resp, err := client.Ping(ctx)
			switch {
			case err != nil:
				logger.Error().Err(err).Msg("ping failed")
			case !resp.Succeeded():
				logger.Warn().Stringer("response", &resp.Envelope).Msg("ping rejected")
			default:
				logger.Info().Int("tries", resp.Tries).Str("server", resp.ServerID).Msg("ping ok")
			}

		case <-sigChan:
			fmt.Println("\n🛑 Shutting down gracefully...")
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(ctx); err != nil {
				logger.Error().Err(err).Msg("metrics server shutdown error")
			}
			return
		}
	}
}

// convert converts path and writes the result next to it.
func convert(ctx context.Context, client *docmosis.Client, path string) error {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	outputName := base + "." + config.OutputFormat

	resp, err := client.Convert(ctx, docmosis.ConvertRequest{
		File:       httpclient.File{Path: path},
		OutputName: outputName,
	})
	if err != nil {
		return err
	}
	if !resp.Succeeded() {
		return fmt.Errorf("%s: %s (tries=%d, previous=%s)", resp.ShortMsg, resp.LongMsg, resp.Tries, resp.PreviousFailure)
	}

	out := filepath.Join(filepath.Dir(path), outputName)
	if err := resp.SaveTo(out); err != nil {
		return err
	}
	fmt.Printf("✓ %s -> %s (tries=%d)\n", path, out, resp.Tries)
	return nil
}

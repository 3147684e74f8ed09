// Command loadtest drives an endpoint through the full client pipeline at
// a target rate and reports the aggregate results.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/kroma-labs/courier-go/apiclient"
)

func main() {
	var (
		baseURL  = flag.String("base-url", "http://localhost:8080", "base URL of the target service")
		endpoint = flag.String("endpoint", "/healthz", "endpoint path to hit")
		rps      = flag.Int("rps", 10, "target requests per second")
		duration = flag.Duration("duration", 10*time.Second, "test duration")
		metrics  = flag.String("metrics-addr", "", "optional address to serve /metrics on during the run")
	)
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger()

	registry := prometheus.NewRegistry()
	if *metrics != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(*metrics, mux); err != nil {
				logger.Error().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	client := apiclient.New(
		apiclient.WithBaseURL(*baseURL),
		apiclient.WithTimeout(10*time.Second),
		apiclient.WithRateLimiter(apiclient.NewTokenBucket(*rps)),
		apiclient.WithCache(apiclient.NewMemoryCache(time.Minute)),
		apiclient.WithLogger(logger.Level(zerolog.WarnLevel)),
		apiclient.WithPrometheusRegisterer(registry),
	)
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, err := client.LoadTest(ctx, *endpoint, http.MethodGet, *rps, *duration)
	if err != nil {
		logger.Warn().Err(err).Msg("load test interrupted")
	}

	result.LogSummary(logger)
	client.Metrics().LogSummary(logger)
}

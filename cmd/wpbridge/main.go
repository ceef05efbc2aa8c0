package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/wpbridge/internal/pipeline"
	"github.com/ajitpratap0/wpbridge/pkg/assets"
	"github.com/ajitpratap0/wpbridge/pkg/config"
	"github.com/ajitpratap0/wpbridge/pkg/graph"
	"github.com/ajitpratap0/wpbridge/pkg/logger"
	"github.com/ajitpratap0/wpbridge/pkg/observability"
	"github.com/ajitpratap0/wpbridge/pkg/wp"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "wpbridge",
		Short: "wpbridge - WordPress to content-graph source connector",
		Long: `wpbridge pulls content from a WordPress REST API, normalizes it into a
canonical node/field model with typed cross-entity references, optionally
localizes referenced images, and hands the result to a content-graph sink.`,
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("wpbridge v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	var configFile, baseURL, outputDir, metricsAddr string

	ingestCmd := &cobra.Command{
		Use:   "ingest",
		Short: "Run one ingestion against a WordPress site",
		Long: `Run one full ingestion: discover content types, ingest users,
taxonomies and posts, and write normalized nodes as NDJSON files.

Example:
  wpbridge ingest --config wpbridge.yaml --output ./out`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(configFile, baseURL, outputDir, metricsAddr)
		},
	}

	ingestCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to YAML configuration file")
	ingestCmd.Flags().StringVar(&baseURL, "base-url", "", "WordPress site base URL (overrides config)")
	ingestCmd.Flags().StringVarP(&outputDir, "output", "o", "out", "Directory for NDJSON node output")
	ingestCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Expose Prometheus metrics on this address (e.g. :9090)")

	root.AddCommand(ingestCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig builds the effective configuration from the file, WPBRIDGE_*
// environment variables and command-line overrides, in that order.
func loadConfig(configFile, baseURL string) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if configFile != "" {
		cfg, err = config.Load(configFile)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.Default()
	}

	v := viper.New()
	v.SetEnvPrefix("WPBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if env := v.GetString("base_url"); env != "" {
		cfg.WordPress.BaseURL = env
	}
	if env := v.GetString("api_prefix"); env != "" {
		cfg.WordPress.APIPrefix = env
	}
	if env := v.GetString("log_level"); env != "" {
		cfg.Observability.LogLevel = env
	}
	if baseURL != "" {
		cfg.WordPress.BaseURL = baseURL
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runIngest(configFile, baseURL, outputDir, metricsAddr string) error {
	cfg, err := loadConfig(configFile, baseURL)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:    cfg.Observability.LogLevel,
		Encoding: "json",
	}); err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	log := logger.Get()

	if cfg.Observability.EnableTracing {
		if err := observability.InitTracing(observability.TracingConfig{
			ServiceName:    "wpbridge",
			ServiceVersion: version,
			SamplingRate:   1.0,
		}); err != nil {
			return err
		}
	}

	if cfg.Observability.EnableMetrics && metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				log.Warn("metrics server stopped", zap.Error(err))
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runID := strconv.FormatInt(time.Now().UnixNano(), 36)
	ctx = context.WithValue(ctx, logger.RunIDKey, runID)
	log = logger.WithContext(ctx)

	client := wp.NewClient(cfg, log)
	fetcher := wp.NewFetcher(client, cfg, log)

	var scheduler *assets.Scheduler
	if cfg.Assets.DownloadsEnabled() {
		downloader, err := assets.NewDownloader(cfg, log)
		if err != nil {
			return err
		}
		scheduler = assets.NewScheduler(downloader, log)
	}

	sink, err := graph.NewJSONSink(outputDir)
	if err != nil {
		return err
	}

	orchestrator := pipeline.New(cfg, client, fetcher, sink, scheduler, log)

	log.Info("starting ingestion",
		zap.String("base_url", cfg.WordPress.BaseURL),
		zap.String("output", outputDir))

	runErr := orchestrator.Run(ctx)

	if err := sink.Close(); err != nil {
		log.Error("failed to close sink", zap.Error(err))
		if runErr == nil {
			runErr = err
		}
	}
	if err := observability.Shutdown(context.Background()); err != nil {
		log.Warn("failed to shut down tracing", zap.Error(err))
	}

	if runErr != nil {
		log.Error("ingestion failed", zap.Error(runErr))
		return runErr
	}

	log.Info("ingestion complete")
	return nil
}

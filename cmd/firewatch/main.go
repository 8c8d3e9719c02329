package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	httpadapter "github.com/couchcryptid/fire-watch-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/fire-watch-service/internal/adapter/kafka"
	"github.com/couchcryptid/fire-watch-service/internal/config"
	"github.com/couchcryptid/fire-watch-service/internal/notify"
	"github.com/couchcryptid/fire-watch-service/internal/observability"
	"github.com/couchcryptid/fire-watch-service/internal/pipeline"
	"github.com/couchcryptid/fire-watch-service/internal/store"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "firewatch",
		Short: "Track Greek fire incidents and 112 warnings",
		Long: `firewatch polls the fire service incident listing and the 112 warning
feed, geocodes what it finds, and serves the current picture over HTTP
along with a live stream of new and changed records.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the poll loops and the HTTP server (default)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	})
	addFetchCmds(rootCmd)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return err
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	src, err := newSources(cfg, logger, metrics)
	if err != nil {
		logger.Error("failed to build sources", "error", err)
		return err
	}

	st := store.New()
	dispatcher := notify.NewDispatcher(notify.Options{
		MinInterval:   cfg.NotifyMinInterval,
		QueueSize:     cfg.NotifyQueueSize,
		SessionBuffer: cfg.SessionBuffer,
	}, logger, metrics)

	notifiers := []pipeline.Notifier{dispatcher}
	var publisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled() {
		publisher = kafkaadapter.NewPublisher(cfg, logger, metrics)
		notifiers = append(notifiers, publisher)
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	p := pipeline.New(src.incidents, src.warnings, st, notifiers, pipeline.Options{
		IncidentsInterval: cfg.IncidentsInterval,
		WarningsInterval:  cfg.WarningsInterval,
		PollTimeout:       cfg.PollTimeout,
	}, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, st, dispatcher, p, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return dispatcher.Run(gctx) })
	g.Go(func() error { return p.Run(gctx) })

	logger.Info("fire watch started", "addr", cfg.HTTPAddr)
	<-ctx.Done()
	logger.Info("shutting down")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	dispatcher.Close()
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete", "geocode_cache_entries", src.resolver.CacheSize())
	return nil
}

// addFetchCmds registers one-shot commands that run a single scrape and print
// the result as JSON, without touching the store or notifying anyone.
func addFetchCmds(rootCmd *cobra.Command) {
	var pretty bool

	incidentsCmd := &cobra.Command{
		Use:   "incidents",
		Short: "Scrape the incident listing once and print it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			src, err := oneShotSources(cmd)
			if err != nil {
				return err
			}
			incidents, err := src.incidents.FetchIncidents(cmd.Context())
			if err != nil {
				return fmt.Errorf("fetch incidents: %w", err)
			}
			return printJSON(cmd, incidents, pretty)
		},
	}

	warningsCmd := &cobra.Command{
		Use:   "warnings",
		Short: "Scrape the 112 warning feed once and print it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			src, err := oneShotSources(cmd)
			if err != nil {
				return err
			}
			warnings, err := src.warnings.FetchWarnings(cmd.Context())
			if err != nil {
				return fmt.Errorf("fetch warnings: %w", err)
			}
			return printJSON(cmd, warnings, pretty)
		},
	}

	for _, c := range []*cobra.Command{incidentsCmd, warningsCmd} {
		c.Flags().BoolVarP(&pretty, "pretty", "p", false, "Indent the JSON output")
		rootCmd.AddCommand(c)
	}
}

// oneShotSources logs to stderr so stdout carries only the JSON result.
func oneShotSources(cmd *cobra.Command) (*sources, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: observability.ParseLevel(cfg.LogLevel),
	}))
	return newSources(cfg, logger, observability.NewMetrics())
}

func printJSON(cmd *cobra.Command, v any, pretty bool) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/transparencia-pba/boletin-crawler/internal/artifact"
	"github.com/transparencia-pba/boletin-crawler/internal/clock/system"
	"github.com/transparencia-pba/boletin-crawler/internal/config"
	"github.com/transparencia-pba/boletin-crawler/internal/fetcher"
	"github.com/transparencia-pba/boletin-crawler/internal/logging"
	"github.com/transparencia-pba/boletin-crawler/internal/metrics"
	"github.com/transparencia-pba/boletin-crawler/internal/parser"
	"github.com/transparencia-pba/boletin-crawler/internal/pipeline"
	"github.com/transparencia-pba/boletin-crawler/internal/summarizer"
)

// newScrapeCmd creates the 'scrape' subcommand, which executes one
// full pipeline run.
func newScrapeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scrape",
		Short: "Runs one fetch-parse-summarize-write pass",
		Long: `Fetches the current bulletin's listings, parses the published norms,
deduplicates them against the persisted dataset, summarizes the new
ones, and rewrites the artifact. Intended to be invoked once per day by
an external scheduler.`,
		RunE: runScrapeCommand,
	}
}

func runScrapeCommand(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	runID := uuid.NewString()
	logger, err := logging.New(cfg.Logging.Development, runID)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, registry, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}

	counters, runErr := p.Run(ctx)

	if cfg.Metrics.TextfilePath != "" {
		if err := metrics.WriteTextfile(registry, cfg.Metrics.TextfilePath); err != nil {
			logger.Warn("metrics textfile write failed", zap.Error(err))
		}
	}

	if runErr != nil {
		logger.Error("scrape run failed", zap.Error(runErr))
		return runErr
	}
	logger.Info("scrape run succeeded",
		zap.Int("new_notices", counters.NoticesNew),
		zap.Int("summaries_written", counters.SummariesWritten),
	)
	return nil
}

func buildPipeline(cfg config.Config, logger *zap.Logger) (*pipeline.Pipeline, *prometheus.Registry, error) {
	fetchClient, err := fetcher.New(fetcher.Config{
		UserAgent:      cfg.Gazette.UserAgent,
		Timeout:        cfg.HTTP.Timeout(),
		MaxRetries:     cfg.HTTP.MaxRetries,
		BackoffInitial: cfg.HTTP.BackoffInitial(),
		BackoffMax:     cfg.HTTP.BackoffMax(),
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("init fetcher: %w", err)
	}

	pars, err := parser.New(cfg.Gazette.NormasURL, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("init parser: %w", err)
	}

	summ, err := summarizer.New(summarizer.Config{
		Endpoint:      cfg.Summarizer.Endpoint,
		APIKey:        cfg.Summarizer.APIKey,
		Model:         cfg.Summarizer.Model,
		Timeout:       cfg.Summarizer.Timeout(),
		CallDelay:     cfg.Summarizer.CallDelay(),
		MaxInputChars: cfg.Summarizer.MaxInputChars,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("init summarizer: %w", err)
	}

	store, err := artifact.NewStore(cfg.Artifact.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init artifact store: %w", err)
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	p := pipeline.New(
		pipeline.Config{
			HomeURL:    cfg.Gazette.HomeURL,
			MaxNotices: cfg.Gazette.MaxNotices,
		},
		fetchClient,
		pars,
		summ,
		store,
		system.New(),
		m,
		logger,
	)
	return p, registry, nil
}

// Package cli exposes the scraping workflows as cobra subcommands.
package cli

import (
	"caselaw/packages/config"
	"caselaw/packages/crawler"
	"caselaw/packages/fetcher"
	"caselaw/packages/logging"
	"caselaw/packages/metrics"
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type globalFlags struct {
	origin      string
	searchURL   string
	maxAttempts int
	baseDelay   time.Duration
	timeout     time.Duration
	workers     int
	backend     string
	logLevel    string
	logFile     string
	metricsAddr string
}

type app struct {
	flags globalFlags
	cfg   config.Config
}

func NewRootCommand() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:           "caselaw",
		Short:         "caselaw scrapes judgment records from the National Archives case law site.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	policy := fetcher.DefaultRetryPolicy()
	f := rootCmd.PersistentFlags()
	f.StringVar(&a.flags.origin, "origin", config.DefaultOrigin, "Site origin prefixed to relative judgment links.")
	f.StringVar(&a.flags.searchURL, "search-url", config.DefaultSearchURL, "Search results URL that listing pages are read from.")
	f.IntVar(&a.flags.maxAttempts, "max-attempts", policy.MaxAttempts, "Attempts per URL before it is skipped.")
	f.DurationVar(&a.flags.baseDelay, "base-delay", policy.BaseDelay, "Backoff before the second attempt, doubling afterwards.")
	f.DurationVar(&a.flags.timeout, "timeout", config.DefaultFetchTimeout, "Timeout of a single request.")
	f.IntVar(&a.flags.workers, "workers", 1, "Concurrent fetches. 1 fetches strictly in sequence.")
	f.StringVar(&a.flags.backend, "backend", "json", "Record sink: json, redis or postgres.")
	f.StringVar(&a.flags.logLevel, "log-level", "info", "Log level: debug, info, warn or error.")
	f.StringVar(&a.flags.logFile, "log-file", "", "Also write logs to this rotating file.")
	f.StringVar(&a.flags.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running.")

	rootCmd.AddCommand(
		newHarvestCommand(a),
		newLinksCommand(a),
		newHeadersCommand(a),
		newListingCommand(a),
		newAugmentCommand(a),
	)
	return rootCmd
}

// init loads the environment configuration and lets explicitly set flags
// override it.
func (a *app) init(cmd *cobra.Command) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Info("Could not load .env file", "error", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("origin") {
		cfg.Origin = a.flags.origin
	}
	if flags.Changed("search-url") {
		cfg.SearchURL = a.flags.searchURL
	}
	if flags.Changed("max-attempts") {
		cfg.MaxAttempts = a.flags.maxAttempts
	}
	if flags.Changed("base-delay") {
		cfg.BaseDelay = a.flags.baseDelay
	}
	if flags.Changed("timeout") {
		cfg.FetchTimeout = a.flags.timeout
	}
	if flags.Changed("workers") {
		cfg.MaxWorkers = a.flags.workers
	}
	if flags.Changed("backend") {
		cfg.StoreBackend = a.flags.backend
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.flags.logLevel
	}
	if flags.Changed("log-file") {
		cfg.LogFile = a.flags.logFile
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = a.flags.metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	logging.Setup(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile, Service: "caselaw"})
	if cfg.MetricsAddr != "" {
		go metrics.ExposeMetrics(cfg.MetricsAddr)
	}
	return nil
}

func (a *app) crawler() *crawler.Crawler {
	f := fetcher.New(fetcher.Options{
		Policy:    fetcher.RetryPolicy{MaxAttempts: a.cfg.MaxAttempts, BaseDelay: a.cfg.BaseDelay},
		Timeout:   a.cfg.FetchTimeout,
		UserAgent: a.cfg.UserAgent,
	})
	return crawler.New(f, crawler.Options{Origin: a.cfg.Origin, Workers: a.cfg.MaxWorkers})
}

func ExecuteContext(ctx context.Context) {
	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

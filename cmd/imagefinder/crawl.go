package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Kelony11/image-finder/internal/config"
	"github.com/Kelony11/image-finder/internal/crawler"
	"github.com/Kelony11/image-finder/internal/database"
	ilog "github.com/Kelony11/image-finder/internal/log"
	"github.com/Kelony11/image-finder/internal/metrics"
	"github.com/Kelony11/image-finder/internal/pipeline"
	"github.com/Kelony11/image-finder/internal/report"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [seed-url...]",
		Short: "Harvest image URLs from one or more websites",
		Long: `Crawl visits a website breadth-first, starting at the seed URL, and
collects every image it references.

Only pages on the seed's host are followed. The crawl stops at the depth
ceiling or when the page budget is spent, whichever comes first. Pages that
fail are recorded and skipped; they never stop the crawl.

Examples:
  # Harvest images from a single site
  imagefinder crawl https://example.com/

  # Crawl three levels deep with at most 500 pages
  imagefinder crawl -d 3 -p 500 https://example.com/

  # Crawl several sites, two at a time
  imagefinder crawl -b 2 https://example.com/ https://example.org/

  # Write a Markdown report to a file
  imagefinder crawl -m -o report.md https://example.com/

  # Route requests through a SOCKS5 proxy
  imagefinder crawl --proxy 127.0.0.1:9050 https://example.com/

Configuration file (.imagefinder) example:
  defaults:
    delay: 250ms
  sites:
    example.com:
      depth: 3
      skipPatterns:
        - "/archive/*"`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// Crawl behavior flags
	cmd.Flags().IntP(config.SettingDepth, "d", config.DefaultMaxDepth,
		"Maximum number of link hops from the seed (0 fetches only the seed)")
	cmd.Flags().IntP(config.SettingMaxPages, "p", config.DefaultMaxPages,
		"Maximum number of pages to visit per seed")
	cmd.Flags().IntP(config.SettingWorkers, "w", config.DefaultWorkers,
		"Number of pages fetched concurrently per seed")
	cmd.Flags().Duration(config.SettingDelay, config.DefaultCrawlDelay,
		"Politeness delay before every request")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each page fetch")
	cmd.Flags().String(config.SettingUserAgent, config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum number of bytes read from a page")
	cmd.Flags().StringSlice(config.SettingSkip, crawler.DefaultSkipPatterns,
		"URL path patterns never followed (glob syntax, repeatable)")
	cmd.Flags().StringSlice(config.SettingFollow, nil,
		"Only follow URL paths matching these patterns (glob syntax, repeatable)")
	cmd.Flags().Duration("shutdown-grace", config.DefaultShutdownGrace,
		"How long in-flight requests may finish after an interrupt")

	// Network flags
	cmd.Flags().String("proxy", "",
		"Route requests through a SOCKS5 proxy (e.g., 127.0.0.1:9050)")

	// Batch crawling flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of seeds crawled concurrently")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .imagefinder in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	// Storage and metrics flags
	cmd.Flags().Bool("no-db", false,
		"Do not store harvests in the local database")
	cmd.Flags().String("metrics-file", "",
		"Write crawl metrics to this file in the Prometheus text format")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := ilog.NewRedactingLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// The first signal cancels the crawl; the spiders then give in-flight
	// requests the shutdown grace period before returning partial harvests.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCrawl(ctx, cfg, cmd.OutOrStdout(), cmd.ErrOrStderr(), logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags and the
// configuration file. Flags given explicitly win over file defaults.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.MaxDepth, err = flags.GetInt(config.SettingDepth); err != nil {
		return nil, err
	}
	if cfg.MaxPages, err = flags.GetInt(config.SettingMaxPages); err != nil {
		return nil, err
	}
	if cfg.Workers, err = flags.GetInt(config.SettingWorkers); err != nil {
		return nil, err
	}
	if cfg.CrawlDelay, err = flags.GetDuration(config.SettingDelay); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString(config.SettingUserAgent); err != nil {
		return nil, err
	}
	if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
		return nil, err
	}
	if cfg.SkipPatterns, err = flags.GetStringSlice(config.SettingSkip); err != nil {
		return nil, err
	}
	if cfg.FollowPatterns, err = flags.GetStringSlice(config.SettingFollow); err != nil {
		return nil, err
	}
	if cfg.ShutdownGrace, err = flags.GetDuration("shutdown-grace"); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.MetricsFile, err = flags.GetString("metrics-file"); err != nil {
		return nil, err
	}
	noDB, err := flags.GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB
	cfg.DBDir = config.XDGDataDir()
	cfg.Verbose = getVerboseFlag(cmd)

	// If the user explicitly named a config file, it must exist.
	// Otherwise a missing file simply means no file settings.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.SiteConfigs.ApplyDefaults(cfg, flags.Changed)
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.SiteConfigs = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}

	cfg.Targets = args

	return cfg, nil
}

// runCrawl harvests every target of cfg. Reports go to out, progress
// messages to status.
func runCrawl(ctx context.Context, cfg *config.Config, out, status io.Writer, logger *slog.Logger) error {
	for _, target := range cfg.Targets {
		if err := validateSeed(target); err != nil {
			return err
		}
	}

	logger.Info("starting crawl",
		"targets", cfg.Targets,
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	var db *database.HarvestDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "path", db.Path())
	}

	client, err := crawler.NewHTTPClient(crawler.ClientConfig{
		Timeout:      cfg.Timeout,
		ProxyAddress: cfg.ProxyAddress,
	})
	if err != nil {
		return fmt.Errorf("failed to create HTTP client: %w", err)
	}

	writer, closeReport, err := openReportWriter(cfg, out)
	if err != nil {
		return err
	}
	defer closeReport()

	recorder := metrics.NewRecorder()
	reportStep := pipeline.NewReportStep(writer)

	factory := func(seed string) *pipeline.Pipeline {
		p := pipeline.New(pipeline.WithLogger(logger))
		p.AddStep(pipeline.NewCrawlStep(client, spiderOptions(cfg, seed, recorder, logger)...))
		if db != nil {
			p.AddFinalStep(pipeline.NewPersistStep(db, logger))
		}
		p.AddFinalStep(reportStep)
		return p
	}

	harvester := pipeline.NewBatchHarvester(factory,
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	fmt.Fprintf(status, "Crawling %d seed(s) (concurrency: %d)...\n", len(cfg.Targets), cfg.BatchSize)
	startTime := time.Now()

	runs, batchErr := harvester.HarvestAll(ctx, cfg.Targets)

	failed := 0
	for _, run := range runs {
		if run.Harvest != nil {
			recorder.ObserveHarvest(run.Harvest)
		}
		if run.Err != nil && !errors.Is(run.Err, context.Canceled) {
			failed++
			fmt.Fprintf(status, "Crawl error for %s: %v\n", run.Seed, run.Err)
		}
	}

	fmt.Fprintf(status, "Crawl finished in %s\n", time.Since(startTime).Round(time.Millisecond))

	if cfg.MetricsFile != "" {
		if err := writeMetrics(recorder, cfg.MetricsFile); err != nil {
			logger.Error("failed to write metrics", "path", cfg.MetricsFile, "error", err)
		}
	}

	if batchErr != nil {
		return fmt.Errorf("crawl interrupted: %w", batchErr)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d seed(s) failed", failed, len(runs))
	}
	return nil
}

// validateSeed rejects seeds that cannot start a crawl, so that a typo is
// reported before any site is contacted.
func validateSeed(seed string) error {
	n, err := crawler.Normalize(seed)
	if err != nil {
		return fmt.Errorf("invalid seed URL %q: %w", seed, err)
	}
	if s := n.Scheme(); s != "http" && s != "https" {
		return fmt.Errorf("invalid seed URL %q: scheme must be http or https", seed)
	}
	if n.Host() == "" {
		return fmt.Errorf("invalid seed URL %q: missing host", seed)
	}
	return nil
}

// spiderOptions returns the crawl options for seed, using the site entry of
// the configuration file that matches the seed's host.
func spiderOptions(cfg *config.Config, seed string, recorder *metrics.Recorder, logger *slog.Logger) []crawler.SpiderOption {
	var host string
	if n, err := crawler.Normalize(seed); err == nil {
		host = n.Host()
	}
	settings := cfg.SettingsFor(host)

	return []crawler.SpiderOption{
		crawler.WithMaxDepth(settings.MaxDepth),
		crawler.WithMaxPages(settings.MaxPages),
		crawler.WithWorkers(settings.Workers),
		crawler.WithDelay(settings.Delay),
		crawler.WithTimeout(cfg.Timeout),
		crawler.WithSpiderUserAgent(settings.UserAgent),
		crawler.WithSpiderMaxBodySize(cfg.MaxBodySize),
		crawler.WithSkipPatterns(settings.SkipPatterns),
		crawler.WithFollowPatterns(settings.FollowPatterns),
		crawler.WithShutdownGrace(cfg.ShutdownGrace),
		crawler.WithLogger(logger),
		crawler.WithObserver(recorder),
	}
}

// openReportWriter returns the report writer selected by cfg and a function
// that releases its output. Without cfg.ReportFile the report goes to out.
func openReportWriter(cfg *config.Config, out io.Writer) (report.Writer, func(), error) {
	closeFn := func() {}

	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Reports list every page URL of a site; keep them owner-readable only.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create output file: %w", err)
		}
		out = f
		closeFn = func() { _ = f.Close() } //nolint:errcheck // write errors surface from Write
	}

	switch {
	case cfg.JSONReport:
		return report.NewFullJSONWriter(out, getVersion(), report.WithPrettyPrint()), closeFn, nil
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(out), closeFn, nil
	default:
		return report.NewSimpleWriter(out, report.WithVerbose(cfg.Verbose)), closeFn, nil
	}
}

// writeMetrics writes the recorder's metrics to path, creating the parent
// directory if needed.
func writeMetrics(recorder *metrics.Recorder, path string) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create metrics directory: %w", err)
		}
	}
	return recorder.WriteTextfile(path)
}

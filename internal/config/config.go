package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/Kelony11/image-finder/internal/crawler"
)

// Default configuration values.
// Crawl limits mirror the crawler package defaults so that the CLI and the
// library behave the same when nothing is configured.
const (
	// DefaultTimeout bounds each page fetch.
	DefaultTimeout = crawler.DefaultTimeout

	// DefaultMaxDepth is the number of link hops followed from the seed.
	DefaultMaxDepth = crawler.DefaultMaxDepth

	// DefaultMaxPages is the maximum number of distinct URLs enqueued per seed.
	DefaultMaxPages = crawler.DefaultMaxPages

	// DefaultWorkers is the number of concurrent fetches per crawl.
	DefaultWorkers = crawler.DefaultWorkers

	// DefaultCrawlDelay is the politeness pause before every fetch.
	DefaultCrawlDelay = crawler.DefaultDelay

	// DefaultBatchSize is the number of seeds crawled at the same time.
	// Each crawl runs its own worker pool, so the total number of in-flight
	// requests is BatchSize * Workers.
	DefaultBatchSize = 2

	// DefaultShutdownGrace is how long in-flight fetches may finish after an
	// interrupt before they are cancelled.
	DefaultShutdownGrace = crawler.DefaultShutdownGrace

	// AppName is the application name used for XDG directory paths.
	AppName = "imagefinder"

	// DefaultUserAgent identifies imagefinder in HTTP requests.
	DefaultUserAgent = crawler.DefaultUserAgent

	// DefaultMaxBodySize limits the maximum response body size to read.
	DefaultMaxBodySize = crawler.DefaultMaxBodySize
)

// Config holds all configuration options for imagefinder.
// This struct is designed to be populated from CLI flags and passed through
// the application via dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., CrawlConfig, ReportConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant benefit.
type Config struct {
	// ProxyAddress is an optional SOCKS5 proxy in "host:port" format.
	// Empty means direct connections.
	ProxyAddress string

	// Timeout is the timeout for each page fetch, redirects included.
	Timeout time.Duration

	// MaxDepth is the maximum number of link hops from the seed.
	// Depth 0 means only fetch the seed page.
	MaxDepth int

	// MaxPages is the maximum number of distinct URLs a crawl may enqueue.
	MaxPages int

	// Workers is the number of pages fetched concurrently within one crawl.
	Workers int

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// BatchSize is the number of seeds crawled concurrently.
	BatchSize int

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .imagefinder in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds site-specific configurations loaded from the config file.
	// This is populated by LoadConfigFile and used when building each crawl.
	SiteConfigs *File

	// JSONReport enables JSON report output instead of human-readable format.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output instead of human-readable format.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	// Directories are created automatically if they don't exist.
	ReportFile string

	// Targets is the list of seed URLs to crawl.
	Targets []string

	// DBDir is the directory path for storing the SQLite database.
	// Defaults to XDG data directory (~/.local/share/imagefinder on Linux).
	DBDir string

	// SaveToDB indicates whether to save harvests to the database.
	SaveToDB bool

	// CrawlDelay is the politeness delay before every HTTP request.
	CrawlDelay time.Duration

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	// Responses larger than this are truncated to prevent memory exhaustion.
	MaxBodySize int64

	// SkipPatterns are glob patterns for link paths that are never followed.
	SkipPatterns []string

	// FollowPatterns, if set, restrict followed links to matching paths.
	FollowPatterns []string

	// ShutdownGrace is how long in-flight fetches may run after an interrupt.
	ShutdownGrace time.Duration

	// MetricsFile, if set, receives crawl metrics in the Prometheus text format.
	MetricsFile string
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use cases.
// Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., timeout, workers).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		Timeout:       DefaultTimeout,
		MaxDepth:      DefaultMaxDepth,
		MaxPages:      DefaultMaxPages,
		Workers:       DefaultWorkers,
		BatchSize:     DefaultBatchSize,
		CrawlDelay:    DefaultCrawlDelay,
		UserAgent:     DefaultUserAgent,
		MaxBodySize:   DefaultMaxBodySize,
		SkipPatterns:  append([]string(nil), crawler.DefaultSkipPatterns...),
		ShutdownGrace: DefaultShutdownGrace,
		SaveToDB:      true,
	}
}

// XDGDataDir returns the XDG data directory for imagefinder.
// On Linux: ~/.local/share/imagefinder
// On macOS: ~/Library/Application Support/imagefinder
// On Windows: %LOCALAPPDATA%\imagefinder
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for imagefinder.
// On Linux: ~/.config/imagefinder
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for imagefinder.
// On Linux: ~/.cache/imagefinder
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any crawling begins.
//
// We chose to return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}

	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}

	if c.MaxDepth < 0 {
		return ErrInvalidMaxDepth
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}

	if c.MaxBodySize <= 0 {
		return ErrInvalidMaxBodySize
	}

	return nil
}

// CrawlSettings are the effective crawl parameters for one site.
type CrawlSettings struct {
	MaxDepth       int
	MaxPages       int
	Workers        int
	Delay          time.Duration
	UserAgent      string
	SkipPatterns   []string
	FollowPatterns []string
}

// SettingsFor returns the crawl parameters for host: the Config values,
// overridden by the matching site entry of the configuration file if any.
func (c *Config) SettingsFor(host string) CrawlSettings {
	s := CrawlSettings{
		MaxDepth:       c.MaxDepth,
		MaxPages:       c.MaxPages,
		Workers:        c.Workers,
		Delay:          c.CrawlDelay,
		UserAgent:      c.UserAgent,
		SkipPatterns:   c.SkipPatterns,
		FollowPatterns: c.FollowPatterns,
	}
	if c.SiteConfigs == nil {
		return s
	}

	site, ok := c.SiteConfigs.Sites[normalizeHost(host)]
	if !ok {
		return s
	}
	site.applyTo(&s)
	return s
}

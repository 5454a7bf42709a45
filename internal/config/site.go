package config

import (
	"fmt"
	"strings"
	"time"
)

// Setting names shared by the configuration file and the CLI flags.
// ApplyDefaults uses them to ask whether a flag was set explicitly.
const (
	SettingDepth     = "depth"
	SettingMaxPages  = "max-pages"
	SettingWorkers   = "workers"
	SettingDelay     = "delay"
	SettingUserAgent = "user-agent"
	SettingSkip      = "skip"
	SettingFollow    = "follow"
)

// SiteConfig holds crawl overrides for a single host.
//
// Design decision: Numeric fields are pointers because zero is meaningful
// (depth 0 crawls only the seed, delay 0 disables the politeness pause) and
// must be distinguishable from "not set".
type SiteConfig struct {
	// Depth overrides the crawl depth for this site.
	Depth *int `yaml:"depth,omitempty"`

	// MaxPages overrides the page budget for this site.
	MaxPages *int `yaml:"maxPages,omitempty"`

	// Workers overrides the number of concurrent fetches for this site.
	Workers *int `yaml:"workers,omitempty"`

	// Delay overrides the politeness delay, e.g. "250ms" or "1s".
	Delay *time.Duration `yaml:"delay,omitempty"`

	// UserAgent overrides the User-Agent header for this site.
	UserAgent string `yaml:"userAgent,omitempty"`

	// SkipPatterns are URL path patterns never followed on this site.
	// Patterns are matched against the URL path using glob syntax.
	SkipPatterns []string `yaml:"skipPatterns,omitempty"`

	// FollowPatterns are URL path patterns to follow on this site.
	// If specified, only links matching these patterns are followed.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`
}

// File represents the structure of the .imagefinder configuration file.
type File struct {
	// Sites maps hosts to their site-specific configurations.
	// Keys are host names without scheme or port (e.g., "example.com") and are
	// matched case-insensitively.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults apply to every crawl unless a CLI flag or a site entry
	// overrides them.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// Validate checks the defaults and every site entry for impossible values.
func (f *File) Validate() error {
	if err := f.Defaults.validate(); err != nil {
		return fmt.Errorf("defaults: %w", err)
	}
	for host, site := range f.Sites {
		if err := site.validate(); err != nil {
			return fmt.Errorf("site %q: %w", host, err)
		}
	}
	return nil
}

func (s SiteConfig) validate() error {
	if s.Depth != nil && *s.Depth < 0 {
		return ErrInvalidMaxDepth
	}
	if s.MaxPages != nil && *s.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}
	if s.Workers != nil && *s.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if s.Delay != nil && *s.Delay < 0 {
		return ErrInvalidCrawlDelay
	}
	return nil
}

// GetSiteConfig returns the configuration for a specific host.
// It merges the site-specific configuration with defaults.
func (f *File) GetSiteConfig(host string) SiteConfig {
	result := f.Defaults
	if site, ok := f.Sites[normalizeHost(host)]; ok {
		result = result.merge(site)
	}
	return result
}

// ApplyDefaults copies the file defaults into c for every setting that was
// not set explicitly. explicit reports whether the setting with the given
// name (one of the Setting constants) came from the command line.
func (f *File) ApplyDefaults(c *Config, explicit func(setting string) bool) {
	d := f.Defaults
	if d.Depth != nil && !explicit(SettingDepth) {
		c.MaxDepth = *d.Depth
	}
	if d.MaxPages != nil && !explicit(SettingMaxPages) {
		c.MaxPages = *d.MaxPages
	}
	if d.Workers != nil && !explicit(SettingWorkers) {
		c.Workers = *d.Workers
	}
	if d.Delay != nil && !explicit(SettingDelay) {
		c.CrawlDelay = *d.Delay
	}
	if d.UserAgent != "" && !explicit(SettingUserAgent) {
		c.UserAgent = d.UserAgent
	}
	if len(d.SkipPatterns) > 0 && !explicit(SettingSkip) {
		c.SkipPatterns = d.SkipPatterns
	}
	if len(d.FollowPatterns) > 0 && !explicit(SettingFollow) {
		c.FollowPatterns = d.FollowPatterns
	}
}

// merge returns s overridden by every field set in other.
func (s SiteConfig) merge(other SiteConfig) SiteConfig {
	if other.Depth != nil {
		s.Depth = other.Depth
	}
	if other.MaxPages != nil {
		s.MaxPages = other.MaxPages
	}
	if other.Workers != nil {
		s.Workers = other.Workers
	}
	if other.Delay != nil {
		s.Delay = other.Delay
	}
	if other.UserAgent != "" {
		s.UserAgent = other.UserAgent
	}
	if len(other.SkipPatterns) > 0 {
		s.SkipPatterns = other.SkipPatterns
	}
	if len(other.FollowPatterns) > 0 {
		s.FollowPatterns = other.FollowPatterns
	}
	return s
}

// applyTo overrides the crawl settings with every field set in s.
func (s SiteConfig) applyTo(cs *CrawlSettings) {
	if s.Depth != nil {
		cs.MaxDepth = *s.Depth
	}
	if s.MaxPages != nil {
		cs.MaxPages = *s.MaxPages
	}
	if s.Workers != nil {
		cs.Workers = *s.Workers
	}
	if s.Delay != nil {
		cs.Delay = *s.Delay
	}
	if s.UserAgent != "" {
		cs.UserAgent = s.UserAgent
	}
	if len(s.SkipPatterns) > 0 {
		cs.SkipPatterns = s.SkipPatterns
	}
	if len(s.FollowPatterns) > 0 {
		cs.FollowPatterns = s.FollowPatterns
	}
}

func normalizeHost(host string) string {
	return strings.ToLower(strings.TrimSpace(host))
}

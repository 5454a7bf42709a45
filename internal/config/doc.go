// Package config provides configuration structures and utilities for imagefinder.
// It defines the crawl limits, output preferences and the optional YAML file
// with per-site overrides.
package config

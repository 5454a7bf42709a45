// Package main provides the entry point for the imagefinder CLI.
//
// imagefinder crawls a website breadth-first from a seed URL, stays on the
// seed's host, and collects the URL of every image it finds.
//
// Usage:
//
//	imagefinder crawl <seed-url>
//	imagefinder compare <seed-url>
//
// See --help for all available options.
package main

// main is the entry point for imagefinder.
func main() {
	Execute()
}

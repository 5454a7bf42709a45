package crawler

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Kelony11/image-finder/internal/model"
)

// DefaultDelay is the politeness pause before every fetch.
const DefaultDelay = 150 * time.Millisecond

// PageResult is the outcome of processing one page.
//
// Failed and skipped results always carry empty Images and Links, so a
// failing page contributes nothing to the harvest or the frontier.
type PageResult struct {
	// URL is the normalized URL that was dispatched.
	URL string

	// Depth is the BFS layer the page belongs to (seed = 0).
	Depth int

	Status model.PageStatus

	// Title is the page title, if any.
	Title string

	// Images are absolute http(s) image URLs found on the page.
	Images *model.URLSet

	// Links are same-host, non-skipped, normalized links in document order,
	// without duplicates.
	Links []NormalizedURL

	// Err explains a failed or skipped page.
	Err error

	// Elapsed covers the politeness delay, fetch and parse.
	Elapsed time.Duration
}

// Record converts the result into its persisted form.
func (r PageResult) Record() model.PageRecord {
	rec := model.PageRecord{
		URL:     r.URL,
		Depth:   r.Depth,
		Status:  r.Status,
		Title:   r.Title,
		Images:  r.Images.Len(),
		Links:   len(r.Links),
		Elapsed: r.Elapsed,
	}
	if r.Err != nil {
		rec.Error = r.Err.Error()
	}
	return rec
}

func failedResult(pageURL string, err error) PageResult {
	return PageResult{
		URL:    pageURL,
		Status: model.PageFailed,
		Images: model.NewURLSet(),
		Err:    err,
	}
}

func skippedResult(pageURL string, err error) PageResult {
	return PageResult{
		URL:    pageURL,
		Status: model.PageSkipped,
		Images: model.NewURLSet(),
		Err:    err,
	}
}

// Worker fetches one page and extracts its images and crawlable links.
// A Worker holds no per-page state and is safe for concurrent use.
type Worker struct {
	fetcher Fetcher
	delay   time.Duration
	filter  linkFilter
	logger  *slog.Logger
}

// NewWorker creates a worker. skipPatterns and followPatterns are glob
// patterns applied to link paths (see matchPattern).
func NewWorker(fetcher Fetcher, delay time.Duration, skipPatterns, followPatterns []string, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Worker{
		fetcher: fetcher,
		delay:   delay,
		filter:  newLinkFilter(skipPatterns, followPatterns),
		logger:  logger,
	}
}

// Fetch processes target. It never returns an error: every failure becomes
// a PageFailed result.
//
// Steps:
//  1. wait the politeness delay (aborted by ctx)
//  2. fetch the page
//  3. collect <img src> and icon <link href> URLs with an http(s) scheme
//  4. collect <a href> links that are http(s), normalize, share rootHost
//     (case-insensitive) and pass the path patterns
func (w *Worker) Fetch(ctx context.Context, target NormalizedURL, rootHost string) PageResult {
	start := time.Now()
	res := w.fetch(ctx, target, rootHost)
	res.Elapsed = time.Since(start)

	w.logger.Debug("page processed",
		"url", res.URL,
		"status", res.Status.String(),
		"images", res.Images.Len(),
		"links", len(res.Links),
		"elapsed", res.Elapsed,
	)
	return res
}

func (w *Worker) fetch(ctx context.Context, target NormalizedURL, rootHost string) PageResult {
	pageURL := target.String()

	if w.delay > 0 {
		timer := time.NewTimer(w.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return failedResult(pageURL, fmt.Errorf("%w: %w", ErrFetch, ctx.Err()))
		case <-timer.C:
		}
	}

	doc, err := w.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return failedResult(pageURL, err)
	}

	base := doc.URL
	if base == "" {
		base = pageURL
	}
	parser, err := NewParser(base)
	if err != nil {
		return failedResult(pageURL, fmt.Errorf("%w: bad document URL: %w", ErrFetch, err))
	}
	parsed, err := parser.Parse(bytes.NewReader(doc.Body))
	if err != nil {
		return failedResult(pageURL, fmt.Errorf("%w: parsing: %w", ErrFetch, err))
	}

	images := model.NewURLSet()
	for _, src := range parsed.Images {
		if isHTTP(src) {
			images.Add(src)
		}
	}
	for _, href := range parsed.Icons {
		if isHTTP(href) {
			images.Add(href)
		}
	}

	links := make([]NormalizedURL, 0, len(parsed.Links))
	seen := make(map[string]struct{}, len(parsed.Links))
	for _, href := range parsed.Links {
		if !isHTTP(href) {
			continue
		}
		link, err := Normalize(href)
		if err != nil {
			continue
		}
		if !w.filter.accept(link, rootHost) {
			continue
		}
		if _, dup := seen[link.String()]; dup {
			continue
		}
		seen[link.String()] = struct{}{}
		links = append(links, link)
	}

	return PageResult{
		URL:    pageURL,
		Status: model.PageOK,
		Title:  parsed.Title,
		Images: images,
		Links:  links,
	}
}

package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Kelony11/image-finder/internal/model"
)

// Crawl defaults.
const (
	DefaultMaxDepth      = 2
	DefaultMaxPages      = 120
	DefaultWorkers       = 8
	DefaultShutdownGrace = 3 * time.Second
)

// Observer is notified as a crawl progresses. Calls come from the goroutine
// running Crawl, one at a time, so implementations need no locking of their
// own for crawl-local state.
type Observer interface {
	// PageDone is called once for every dispatched or skipped page.
	PageDone(result PageResult)

	// LayerDone is called after all results of a BFS layer were collected.
	LayerDone(depth, size int)
}

// Spider crawls a single site breadth-first and harvests image URLs.
//
// Design decision: We call it "Spider" rather than "Crawler" because:
//  1. "Spider" is the traditional term for web crawlers
//  2. Distinguishes the component from the package name
//  3. Clearer in code: crawler.NewSpider() vs crawler.NewCrawler()
//
// A Spider holds configuration only. All crawl state lives inside Crawl, so
// one Spider may run several crawls concurrently.
type Spider struct {
	// client performs HTTP requests when no custom fetcher is set.
	client *http.Client

	// fetcher overrides the HTTP fetcher built from client.
	fetcher Fetcher

	// maxDepth limits how deep to crawl from the seed.
	// 0 means only the seed, 1 means one level of links, etc.
	maxDepth int

	// maxPages limits the number of distinct URLs the crawl will ever enqueue.
	maxPages int

	// workers bounds the number of pages fetched at the same time.
	workers int

	// delay is the politeness pause each worker takes before a fetch.
	delay time.Duration

	// timeout bounds each individual fetch.
	timeout time.Duration

	userAgent   string
	maxBodySize int64

	// skipPatterns are URL path patterns never followed.
	// Patterns use glob syntax (e.g., "/admin/*", "*.pdf").
	skipPatterns []string

	// followPatterns, if set, restrict followed links to matching paths.
	followPatterns []string

	// shutdownGrace is how long in-flight fetches may run after the caller
	// cancels before they are cancelled too.
	shutdownGrace time.Duration

	logger   *slog.Logger
	observer Observer
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxDepth sets the maximum crawl depth.
// 0 = only the seed page, 1 = seed page plus linked pages, etc.
func WithMaxDepth(depth int) SpiderOption {
	return func(s *Spider) {
		s.maxDepth = depth
	}
}

// WithMaxPages sets the maximum number of distinct URLs to visit.
func WithMaxPages(maxPages int) SpiderOption {
	return func(s *Spider) {
		s.maxPages = maxPages
	}
}

// WithWorkers sets the number of concurrent fetches.
func WithWorkers(n int) SpiderOption {
	return func(s *Spider) {
		s.workers = n
	}
}

// WithDelay sets the delay each worker waits before a request.
func WithDelay(d time.Duration) SpiderOption {
	return func(s *Spider) {
		s.delay = d
	}
}

// WithTimeout sets the per-fetch timeout.
func WithTimeout(d time.Duration) SpiderOption {
	return func(s *Spider) {
		s.timeout = d
	}
}

// WithSpiderUserAgent sets a custom User-Agent header.
func WithSpiderUserAgent(ua string) SpiderOption {
	return func(s *Spider) {
		s.userAgent = ua
	}
}

// WithSpiderMaxBodySize sets the maximum response body size.
func WithSpiderMaxBodySize(size int64) SpiderOption {
	return func(s *Spider) {
		s.maxBodySize = size
	}
}

// WithSkipPatterns sets URL path patterns to skip during crawling.
// Patterns use glob syntax (e.g., "/admin/*", "*.pdf", "/logout*") and are
// matched case-insensitively. They replace DefaultSkipPatterns.
func WithSkipPatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.skipPatterns = patterns
	}
}

// WithFollowPatterns sets URL path patterns to follow during crawling.
// If set, only links matching at least one pattern are followed.
// The seed is always fetched.
func WithFollowPatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.followPatterns = patterns
	}
}

// WithFetcher replaces the HTTP fetcher. Useful in tests.
func WithFetcher(f Fetcher) SpiderOption {
	return func(s *Spider) {
		s.fetcher = f
	}
}

// WithLogger sets the logger for crawl progress.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		s.logger = logger
	}
}

// WithShutdownGrace sets how long in-flight fetches may continue after
// cancellation.
func WithShutdownGrace(d time.Duration) SpiderOption {
	return func(s *Spider) {
		s.shutdownGrace = d
	}
}

// WithObserver registers an observer for crawl progress.
func WithObserver(o Observer) SpiderOption {
	return func(s *Spider) {
		s.observer = o
	}
}

// NewSpider creates a new Spider with the given HTTP client.
// A nil client gets a default one from NewHTTPClient.
//
// Design decision: We accept an external client because:
//  1. Proxy, cookie jar and redirect policy are handled by NewHTTPClient
//  2. httptest servers hand out their own clients
//  3. Allows for different configurations in tests
func NewSpider(client *http.Client, opts ...SpiderOption) *Spider {
	s := &Spider{
		client:        client,
		maxDepth:      DefaultMaxDepth,
		maxPages:      DefaultMaxPages,
		workers:       DefaultWorkers,
		delay:         DefaultDelay,
		timeout:       DefaultTimeout,
		userAgent:     DefaultUserAgent,
		maxBodySize:   DefaultMaxBodySize,
		skipPatterns:  DefaultSkipPatterns,
		shutdownGrace: DefaultShutdownGrace,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.workers < 1 {
		s.workers = 1
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if s.fetcher == nil {
		s.fetcher = NewHTTPFetcher(s.client,
			WithUserAgent(s.userAgent),
			WithFetchTimeout(s.timeout),
			WithMaxBodySize(s.maxBodySize),
		)
	}

	return s
}

// Crawl harvests image URLs from seed and same-host pages reachable from it
// within the depth and page limits.
//
// Crawl never fails. An unusable seed yields an empty harvest with Aborted
// set; pages that fail are recorded and contribute nothing. When ctx is
// cancelled no further pages are dispatched, in-flight pages get the
// shutdown grace period, and the partial harvest is returned with Cancelled
// set. Crawl returns only after every fetch it started has finished.
//
// The crawl proceeds in BFS layers. All pages of layer N are collected
// before any page of layer N+1 is dispatched; within a layer, results are
// merged in completion order. A URL is enqueued at most once.
func (s *Spider) Crawl(ctx context.Context, seed string) *model.Harvest {
	harvest := model.NewHarvest(uuid.NewString(), seed)
	harvest.MaxDepth = s.maxDepth
	harvest.MaxPages = s.maxPages
	logger := s.logger.With("run", harvest.RunID)

	defer func() {
		harvest.FinishedAt = time.Now()
	}()

	start, err := Normalize(seed)
	if err != nil {
		harvest.Aborted = err.Error()
		logger.Warn("crawl aborted", "seed", seed, "error", err)
		return harvest
	}
	rootHost := start.Host()
	if rootHost == "" {
		err := fmt.Errorf("%w: %s", ErrNoHost, start)
		harvest.Aborted = err.Error()
		logger.Warn("crawl aborted", "seed", seed, "error", err)
		return harvest
	}
	harvest.NormalizedSeed = start.String()
	harvest.RootHost = rootHost

	logger.Info("crawl started",
		"seed", harvest.NormalizedSeed,
		"max_depth", s.maxDepth,
		"max_pages", s.maxPages,
		"workers", s.workers,
	)

	// Seed pages ignore follow patterns; only discovered links are filtered.
	worker := NewWorker(s.fetcher, s.delay, s.skipPatterns, s.followPatterns, logger)

	visited := map[string]struct{}{start.String(): {}}
	frontier := []NormalizedURL{start}

	for depth := 0; depth <= s.maxDepth; depth++ {
		if len(frontier) == 0 || len(visited) >= s.maxPages {
			break
		}
		if ctx.Err() != nil {
			break
		}

		harvest.DepthReached = depth
		results := s.runLayer(ctx, worker, rootHost, depth, frontier)

		next := make([]NormalizedURL, 0)
		for res := range results {
			harvest.Pages = append(harvest.Pages, res.Record())
			harvest.Images.Merge(res.Images)
			for _, link := range res.Links {
				if len(visited) >= s.maxPages {
					break
				}
				if _, seen := visited[link.String()]; seen {
					continue
				}
				visited[link.String()] = struct{}{}
				next = append(next, link)
			}
			if s.observer != nil {
				s.observer.PageDone(res)
			}
		}

		logger.Info("layer done",
			"depth", depth,
			"pages", len(frontier),
			"discovered", len(next),
			"images", harvest.Images.Len(),
		)
		if s.observer != nil {
			s.observer.LayerDone(depth, len(frontier))
		}
		frontier = next
	}

	harvest.Visited = len(visited)
	harvest.Cancelled = ctx.Err() != nil

	logger.Info("crawl finished",
		"visited", harvest.Visited,
		"failed", harvest.CountPages(model.PageFailed),
		"images", harvest.Images.Len(),
		"cancelled", harvest.Cancelled,
	)
	return harvest
}

// runLayer dispatches every URL of one layer to a bounded pool and returns a
// channel yielding their results in completion order. The channel is closed
// once every task goroutine has exited.
//
// Tasks run on a context detached from ctx: cancelling ctx stops dispatch
// and marks not-yet-started tasks as skipped, but running fetches are only
// cancelled after the shutdown grace period.
func (s *Spider) runLayer(ctx context.Context, worker *Worker, rootHost string, depth int, layer []NormalizedURL) <-chan PageResult {
	results := make(chan PageResult, len(layer))
	taskCtx, forceCancel := context.WithCancel(context.WithoutCancel(ctx))

	g := new(errgroup.Group)
	g.SetLimit(s.workers)

	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)
		for _, target := range layer {
			if ctx.Err() != nil {
				results <- skipTask(ctx, target, depth)
				continue
			}
			g.Go(func() error {
				if ctx.Err() != nil {
					results <- skipTask(ctx, target, depth)
					return nil
				}
				results <- s.runTask(taskCtx, worker, target, rootHost, depth)
				return nil
			})
		}
	}()

	out := make(chan PageResult)
	go func() {
		defer close(out)
		defer forceCancel()

		finished := make(chan struct{})
		go func() {
			<-dispatched
			_ = g.Wait() //nolint:errcheck // tasks never return errors
			close(finished)
		}()

		cancelled := ctx.Done()
		var grace <-chan time.Time
		var graceTimer *time.Timer
		defer func() {
			if graceTimer != nil {
				graceTimer.Stop()
			}
		}()

		for {
			select {
			case res := <-results:
				out <- res
			case <-finished:
				// Drain what is left; every task has sent by now.
				for {
					select {
					case res := <-results:
						out <- res
					default:
						return
					}
				}
			case <-cancelled:
				cancelled = nil
				graceTimer = time.NewTimer(s.shutdownGrace)
				grace = graceTimer.C
			case <-grace:
				grace = nil
				forceCancel()
			}
		}
	}()

	return out
}

// runTask runs the worker and turns a panic into a failed result.
func (s *Spider) runTask(ctx context.Context, worker *Worker, target NormalizedURL, rootHost string, depth int) (res PageResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("page task panicked", "url", target.String(), "panic", fmt.Sprint(r))
			res = failedResult(target.String(), fmt.Errorf("%w: panic: %v", ErrScheduling, r))
		}
		res.Depth = depth
	}()
	return worker.Fetch(ctx, target, rootHost)
}

func skipTask(ctx context.Context, target NormalizedURL, depth int) PageResult {
	res := skippedResult(target.String(), fmt.Errorf("%w: %w", ErrCancelled, context.Cause(ctx)))
	res.Depth = depth
	return res
}

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/Kelony11/image-finder/internal/crawler"
	"github.com/Kelony11/image-finder/internal/model"
	"github.com/Kelony11/image-finder/internal/report"
)

// CrawlStep harvests images from the run's seed.
//
// Design decision: The step builds a fresh Spider for every run rather than
// sharing one because:
// 1. Each seed may carry its own site settings (depth, budget, delay)
// 2. Spider options stay immutable for the lifetime of a crawl
// 3. A Spider is cheap; the HTTP client with its connection pool is shared
type CrawlStep struct {
	// client is shared by every spider built by this step.
	client *http.Client

	// opts configure each spider.
	opts []crawler.SpiderOption
}

// NewCrawlStep creates a crawl step. A nil client makes each spider build
// its own default client.
func NewCrawlStep(client *http.Client, opts ...crawler.SpiderOption) *CrawlStep {
	return &CrawlStep{
		client: client,
		opts:   opts,
	}
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do crawls run.Seed and stores the harvest in the run. A crawl that could
// not start returns ErrCrawlAborted; a cancelled crawl is not an error here
// because its partial harvest is still useful.
func (s *CrawlStep) Do(ctx context.Context, run *Run) error {
	spider := crawler.NewSpider(s.client, s.opts...)
	run.Harvest = spider.Crawl(ctx, run.Seed)

	if run.Harvest.Aborted != "" {
		return fmt.Errorf("%w: %s", ErrCrawlAborted, run.Harvest.Aborted)
	}
	return nil
}

// HarvestStore persists harvests. *database.HarvestDB satisfies it.
type HarvestStore interface {
	SaveHarvest(ctx context.Context, h *model.Harvest) (int64, error)
}

// PersistStep saves the run's harvest to a HarvestStore.
type PersistStep struct {
	store  HarvestStore
	logger *slog.Logger
}

// NewPersistStep creates a persist step. A nil logger means slog.Default().
func NewPersistStep(store HarvestStore, logger *slog.Logger) *PersistStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &PersistStep{store: store, logger: logger}
}

// Name returns the step name.
func (s *PersistStep) Name() string {
	return "persist"
}

// Do saves the harvest. Runs without a harvest, or whose crawl aborted, are
// not stored.
func (s *PersistStep) Do(ctx context.Context, run *Run) error {
	if run.Harvest == nil || run.Harvest.Aborted != "" {
		s.logger.Debug("nothing to persist", "seed", run.Seed)
		return nil
	}

	id, err := s.store.SaveHarvest(ctx, run.Harvest)
	if err != nil {
		return fmt.Errorf("failed to save harvest: %w", err)
	}
	run.HarvestID = id

	s.logger.Debug("harvest saved",
		"seed", run.Seed,
		"id", id,
		"images", run.Harvest.ImageCount(),
	)
	return nil
}

// ReportStep writes the run's harvest with a report.Writer.
//
// One ReportStep is meant to be shared by every pipeline of a batch. Writes
// are serialized so that concurrent runs never interleave their output.
type ReportStep struct {
	writer report.Writer
	mu     sync.Mutex
}

// NewReportStep creates a report step.
func NewReportStep(w report.Writer) *ReportStep {
	return &ReportStep{writer: w}
}

// Name returns the step name.
func (s *ReportStep) Name() string {
	return "report"
}

// Do writes the harvest. Runs without a harvest are skipped.
func (s *ReportStep) Do(_ context.Context, run *Run) error {
	if run.Harvest == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.writer.Write(run.Harvest); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

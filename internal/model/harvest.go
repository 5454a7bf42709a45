package model

import (
	"encoding/hex"
	"net/url"
	"path"
	"strings"
	"time"

	"golang.org/x/crypto/sha3"
)

// PageStatus describes how a single page fetch ended.
type PageStatus string

const (
	// PageOK means the page was fetched and parsed.
	PageOK PageStatus = "ok"

	// PageFailed means the fetch or parse failed. The page contributed nothing.
	PageFailed PageStatus = "failed"

	// PageSkipped means the page was dispatched but never fetched because
	// the crawl was cancelled before its task started.
	PageSkipped PageStatus = "skipped"
)

// String returns the status as a string.
func (s PageStatus) String() string {
	return string(s)
}

// PageRecord is what the crawl remembers about one dispatched page.
type PageRecord struct {
	// URL is the normalized page URL.
	URL string `json:"url"`

	// Depth is the BFS layer the page belonged to. The seed is depth 0.
	Depth int `json:"depth"`

	// Status tells whether the page contributed to the harvest.
	Status PageStatus `json:"status"`

	// Title is the page <title>, if any.
	Title string `json:"title,omitempty"`

	// Images is the number of image URLs found on the page.
	Images int `json:"images"`

	// Links is the number of same-domain candidate links found on the page.
	Links int `json:"links"`

	// Error is the failure reason for failed or skipped pages.
	Error string `json:"error,omitempty"`

	// Elapsed is the time spent on the page, politeness delay included.
	Elapsed time.Duration `json:"elapsed"`
}

// Harvest is the result of crawling one seed URL.
//
// Design decision: The crawl contract is "seed in, image set out", but we
// return a richer struct because:
//  1. Callers cannot otherwise tell a clean crawl of zero images from a total failure
//  2. The database and report packages need per-page records
//  3. Images remains a plain set, so callers that only want the set can ignore the rest
type Harvest struct {
	// RunID uniquely identifies this crawl run.
	RunID string `json:"run_id"`

	// Seed is the seed URL as given by the caller.
	Seed string `json:"seed"`

	// NormalizedSeed is the seed after normalization. Empty if normalization failed.
	NormalizedSeed string `json:"normalized_seed,omitempty"`

	// RootHost is the host every followed link must match (case-insensitively).
	RootHost string `json:"root_host,omitempty"`

	// StartedAt is when the crawl began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the crawl returned.
	FinishedAt time.Time `json:"finished_at"`

	// MaxDepth is the depth ceiling the crawl ran with.
	MaxDepth int `json:"max_depth"`

	// MaxPages is the page budget the crawl ran with.
	MaxPages int `json:"max_pages"`

	// DepthReached is the deepest layer that was dispatched.
	DepthReached int `json:"depth_reached"`

	// Visited is the number of distinct URLs that were enqueued.
	Visited int `json:"visited"`

	// Pages records every dispatched page, in completion order.
	Pages []PageRecord `json:"pages"`

	// Images is the set of discovered image URLs.
	Images *URLSet `json:"images"`

	// Aborted is set when the crawl short-circuited before fetching anything
	// (for example, an unparsable seed).
	Aborted string `json:"aborted,omitempty"`

	// Cancelled is true when the caller's context ended the crawl early.
	Cancelled bool `json:"cancelled,omitempty"`
}

// NewHarvest creates an empty Harvest for the given seed.
func NewHarvest(runID, seed string) *Harvest {
	return &Harvest{
		RunID:     runID,
		Seed:      seed,
		StartedAt: time.Now(),
		Pages:     make([]PageRecord, 0),
		Images:    NewURLSet(),
	}
}

// Duration returns how long the crawl took.
func (h *Harvest) Duration() time.Duration {
	if h.FinishedAt.IsZero() {
		return 0
	}
	return h.FinishedAt.Sub(h.StartedAt)
}

// CountPages returns the number of page records with the given status.
func (h *Harvest) CountPages(status PageStatus) int {
	n := 0
	for _, p := range h.Pages {
		if p.Status == status {
			n++
		}
	}
	return n
}

// ImageCount returns the number of discovered images.
func (h *Harvest) ImageCount() int {
	return h.Images.Len()
}

// Fingerprint returns a SHA3-256 digest of the sorted image set.
// Two harvests with the same images have the same fingerprint regardless of
// the order in which pages completed.
func (h *Harvest) Fingerprint() string {
	hash := sha3.New256()
	for _, img := range h.Images.Sorted() {
		_, _ = hash.Write([]byte(img)) //nolint:errcheck // hash writes never fail
		_, _ = hash.Write([]byte{'\n'}) //nolint:errcheck // hash writes never fail
	}
	return hex.EncodeToString(hash.Sum(nil))
}

// Image kind labels used by ImageKinds.
const (
	ImageKindPNG   = "png"
	ImageKindJPEG  = "jpeg"
	ImageKindGIF   = "gif"
	ImageKindSVG   = "svg"
	ImageKindWebP  = "webp"
	ImageKindICO   = "ico"
	ImageKindOther = "other"
)

// ImageKinds counts images by file extension.
// URLs without a recognizable extension are counted as ImageKindOther.
func (h *Harvest) ImageKinds() map[string]int {
	kinds := make(map[string]int)
	for _, img := range h.Images.Slice() {
		kinds[ImageKind(img)]++
	}
	return kinds
}

// ImageKind classifies an image URL by its path extension.
func ImageKind(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".png", ".apng":
		return ImageKindPNG
	case ".jpg", ".jpeg", ".jpe", ".jfif":
		return ImageKindJPEG
	case ".gif":
		return ImageKindGIF
	case ".svg", ".svgz":
		return ImageKindSVG
	case ".webp":
		return ImageKindWebP
	case ".ico":
		return ImageKindICO
	default:
		return ImageKindOther
	}
}

// HarvestSummary is a light view of a stored harvest.
// It is used to list history without loading every image URL.
type HarvestSummary struct {
	// ID is the database identifier of the harvest.
	ID int64 `json:"id"`

	// RunID identifies the crawl run.
	RunID string `json:"run_id"`

	// Seed is the seed URL.
	Seed string `json:"seed"`

	// StartedAt is when the crawl began.
	StartedAt time.Time `json:"started_at"`

	// PagesVisited is the number of distinct URLs that were enqueued.
	PagesVisited int `json:"pages_visited"`

	// PagesFailed is the number of pages that contributed nothing.
	PagesFailed int `json:"pages_failed"`

	// ImageCount is the number of discovered images.
	ImageCount int `json:"image_count"`

	// Fingerprint is the image set digest.
	Fingerprint string `json:"fingerprint"`
}

// Summary returns the HarvestSummary view of h. ID is left zero; it is only
// known once the harvest has been stored.
func (h *Harvest) Summary() HarvestSummary {
	return HarvestSummary{
		RunID:        h.RunID,
		Seed:         h.Seed,
		StartedAt:    h.StartedAt,
		PagesVisited: h.Visited,
		PagesFailed:  h.CountPages(PageFailed),
		ImageCount:   h.ImageCount(),
		Fingerprint:  h.Fingerprint(),
	}
}

package crawler

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/Kelony11/image-finder/internal/model"
)

// fakeSite serves canned HTML pages keyed by normalized URL.
// Unknown URLs answer 404.
type fakeSite struct {
	mu    sync.Mutex
	pages map[string]string
	calls map[string]int
	order []string
}

func newFakeSite(pages map[string]string) *fakeSite {
	return &fakeSite{
		pages: pages,
		calls: make(map[string]int),
	}
}

func (f *fakeSite) Fetch(_ context.Context, pageURL string) (*Document, error) {
	f.mu.Lock()
	f.calls[pageURL]++
	f.order = append(f.order, pageURL)
	body, ok := f.pages[pageURL]
	f.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%w: 404 Not Found", ErrHTTPStatus)
	}
	return &Document{URL: pageURL, StatusCode: 200, ContentType: "text/html", Body: []byte(body)}, nil
}

func (f *fakeSite) Calls(pageURL string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[pageURL]
}

func (f *fakeSite) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.order)
}

// fetcherFunc adapts a function to the Fetcher interface.
type fetcherFunc func(ctx context.Context, pageURL string) (*Document, error)

func (fn fetcherFunc) Fetch(ctx context.Context, pageURL string) (*Document, error) {
	return fn(ctx, pageURL)
}

func mustNormalize(t *testing.T, raw string) NormalizedURL {
	t.Helper()

	n, err := Normalize(raw)
	if err != nil {
		t.Fatalf("failed to normalize %q: %v", raw, err)
	}
	return n
}

func linkStrings(links []NormalizedURL) []string {
	out := make([]string, 0, len(links))
	for _, l := range links {
		out = append(out, l.String())
	}
	return out
}

func TestWorkerFetch(t *testing.T) {
	t.Parallel()

	const root = "http://example.com/"

	tests := []struct {
		name       string
		html       string
		wantImages []string
		wantLinks  []string
	}{
		{
			name:       "single image no links",
			html:       `<html><body><img src="/a.png"></body></html>`,
			wantImages: []string{"http://example.com/a.png"},
			wantLinks:  []string{},
		},
		{
			name:       "off-domain link dropped",
			html:       `<html><body><a href="http://other.com/x">x</a></body></html>`,
			wantImages: []string{},
			wantLinks:  []string{},
		},
		{
			name:       "pdf and zip links dropped",
			html:       `<html><body><a href="/doc.pdf">pdf</a><a href="/a.ZIP">zip</a><a href="/about">about</a></body></html>`,
			wantImages: []string{},
			wantLinks:  []string{"http://example.com/about"},
		},
		{
			name:       "icon collected as image",
			html:       `<html><head><link rel="shortcut icon" href="/favicon.ico"></head><body></body></html>`,
			wantImages: []string{"http://example.com/favicon.ico"},
			wantLinks:  []string{},
		},
		{
			name:       "non-http images dropped",
			html:       `<html><body><img src="data:image/png;base64,AAAA"><img src="ftp://example.com/x.png"><img src="https://cdn.example.net/y.png"></body></html>`,
			wantImages: []string{"https://cdn.example.net/y.png"},
			wantLinks:  []string{},
		},
		{
			name:       "non-http links dropped",
			html:       `<html><body><a href="mailto:a@example.com">m</a><a href="javascript:void(0)">j</a><a href="ftp://example.com/f">f</a></body></html>`,
			wantImages: []string{},
			wantLinks:  []string{},
		},
		{
			name:       "links normalized and deduplicated",
			html:       `<html><body><a href="/about#team">a</a><a href="/about#jobs">b</a><a href="/x/../about">c</a><a href="/contact">d</a></body></html>`,
			wantImages: []string{},
			wantLinks:  []string{"http://example.com/about", "http://example.com/contact"},
		},
		{
			name:       "host match ignores case",
			html:       `<html><body><a href="http://EXAMPLE.com/upper">u</a></body></html>`,
			wantImages: []string{},
			wantLinks:  []string{"http://EXAMPLE.com/upper"},
		},
		{
			name:       "duplicate images coalesce",
			html:       `<html><body><img src="/a.png"><img src="a.png"><link rel="icon" href="/a.png"></body></html>`,
			wantImages: []string{"http://example.com/a.png"},
			wantLinks:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			site := newFakeSite(map[string]string{root: tt.html})
			worker := NewWorker(site, 0, DefaultSkipPatterns, nil, nil)

			res := worker.Fetch(context.Background(), mustNormalize(t, root), "example.com")
			if res.Status != model.PageOK {
				t.Fatalf("expected PageOK, got %s (%v)", res.Status, res.Err)
			}
			if got := res.Images.Slice(); !slices.Equal(got, tt.wantImages) {
				t.Errorf("expected images %v, got %v", tt.wantImages, got)
			}
			if got := linkStrings(res.Links); !slices.Equal(got, tt.wantLinks) {
				t.Errorf("expected links %v, got %v", tt.wantLinks, got)
			}
		})
	}
}

func TestWorkerFetchFailures(t *testing.T) {
	t.Parallel()

	t.Run("fetch error yields failed result", func(t *testing.T) {
		t.Parallel()

		worker := NewWorker(newFakeSite(nil), 0, nil, nil, nil)
		res := worker.Fetch(context.Background(), mustNormalize(t, "http://example.com/missing"), "example.com")

		if res.Status != model.PageFailed {
			t.Errorf("expected PageFailed, got %s", res.Status)
		}
		if !errors.Is(res.Err, ErrHTTPStatus) {
			t.Errorf("expected ErrHTTPStatus, got %v", res.Err)
		}
		if res.Images.Len() != 0 || len(res.Links) != 0 {
			t.Errorf("failed result must be empty, got %d images %d links", res.Images.Len(), len(res.Links))
		}
		if res.URL != "http://example.com/missing" {
			t.Errorf("expected URL to be recorded, got %q", res.URL)
		}
	})

	t.Run("cancelled during delay", func(t *testing.T) {
		t.Parallel()

		site := newFakeSite(map[string]string{"http://example.com/": "<html></html>"})
		worker := NewWorker(site, time.Hour, nil, nil, nil)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		res := worker.Fetch(ctx, mustNormalize(t, "http://example.com/"), "example.com")
		if res.Status != model.PageFailed {
			t.Errorf("expected PageFailed, got %s", res.Status)
		}
		if !errors.Is(res.Err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", res.Err)
		}
		if site.TotalCalls() != 0 {
			t.Errorf("expected no fetch after cancellation, got %d", site.TotalCalls())
		}
	})

	t.Run("politeness delay precedes fetch", func(t *testing.T) {
		t.Parallel()

		site := newFakeSite(map[string]string{"http://example.com/": "<html></html>"})
		worker := NewWorker(site, 30*time.Millisecond, nil, nil, nil)

		res := worker.Fetch(context.Background(), mustNormalize(t, "http://example.com/"), "example.com")
		if res.Status != model.PageOK {
			t.Fatalf("expected PageOK, got %s", res.Status)
		}
		if res.Elapsed < 30*time.Millisecond {
			t.Errorf("expected elapsed to include delay, got %v", res.Elapsed)
		}
	})
}

func TestWorkerResolvesAgainstFinalURL(t *testing.T) {
	t.Parallel()

	fetcher := fetcherFunc(func(_ context.Context, _ string) (*Document, error) {
		return &Document{
			URL:  "http://example.com/moved/",
			Body: []byte(`<html><body><img src="pic.png"><a href="next">n</a></body></html>`),
		}, nil
	})
	worker := NewWorker(fetcher, 0, nil, nil, nil)

	res := worker.Fetch(context.Background(), mustNormalize(t, "http://example.com/old"), "example.com")
	if !res.Images.Has("http://example.com/moved/pic.png") {
		t.Errorf("expected image resolved against final URL, got %v", res.Images.Slice())
	}
	if got := linkStrings(res.Links); !slices.Equal(got, []string{"http://example.com/moved/next"}) {
		t.Errorf("expected link resolved against final URL, got %v", got)
	}
	if res.URL != "http://example.com/old" {
		t.Errorf("expected dispatched URL to be kept, got %q", res.URL)
	}
}

func TestPageResultRecord(t *testing.T) {
	t.Parallel()

	res := PageResult{
		URL:    "http://example.com/",
		Depth:  1,
		Status: model.PageOK,
		Title:  "Home",
		Images: model.NewURLSet("http://example.com/a.png", "http://example.com/b.png"),
		Links:  []NormalizedURL{mustNormalize(t, "http://example.com/x")},
	}

	rec := res.Record()
	if rec.Images != 2 || rec.Links != 1 || rec.Depth != 1 || rec.Title != "Home" {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.Error != "" {
		t.Errorf("expected no error text, got %q", rec.Error)
	}

	failed := failedResult("http://example.com/x", ErrFetch).Record()
	if failed.Status != model.PageFailed || failed.Error == "" {
		t.Errorf("expected failed record with error, got %+v", failed)
	}
}

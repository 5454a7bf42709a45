package crawler

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const (
	// DefaultUserAgent identifies the crawler to the sites it visits.
	DefaultUserAgent = "Mozilla/5.0 (compatible; ImageFinder/1.0)"

	// DefaultTimeout bounds a single page fetch.
	DefaultTimeout = 8 * time.Second

	// DefaultMaxBodySize is the largest page body read; longer bodies are truncated.
	DefaultMaxBodySize int64 = 5 * 1024 * 1024

	acceptHeader = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
)

// Document is a fetched page.
type Document struct {
	// URL is the final URL after redirects. Relative references in the body
	// resolve against it.
	URL string

	// StatusCode is the HTTP status of the final response.
	StatusCode int

	// ContentType is the raw Content-Type header.
	ContentType string

	// Body is the response body, truncated to the fetcher's size limit.
	Body []byte
}

// Fetcher retrieves a page for parsing.
// Implementations must be safe for concurrent use.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (*Document, error)
}

// HTTPFetcher fetches pages over HTTP(S), following redirects.
type HTTPFetcher struct {
	client      *http.Client
	userAgent   string
	timeout     time.Duration
	maxBodySize int64
}

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *HTTPFetcher) {
		f.userAgent = ua
	}
}

// WithFetchTimeout sets the per-fetch timeout. It applies in addition to
// any timeout configured on the HTTP client.
func WithFetchTimeout(d time.Duration) FetcherOption {
	return func(f *HTTPFetcher) {
		f.timeout = d
	}
}

// WithMaxBodySize sets the maximum number of body bytes read per page.
func WithMaxBodySize(n int64) FetcherOption {
	return func(f *HTTPFetcher) {
		f.maxBodySize = n
	}
}

// NewHTTPFetcher creates a fetcher using client. A nil client gets a default
// one from NewHTTPClient.
func NewHTTPFetcher(client *http.Client, opts ...FetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		client:      client,
		userAgent:   DefaultUserAgent,
		timeout:     DefaultTimeout,
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		// Only proxy validation can fail, and no proxy is configured here.
		f.client, _ = NewHTTPClient(ClientConfig{Timeout: f.timeout}) //nolint:errcheck // see above
	}
	return f
}

// Fetch retrieves pageURL.
// It fails with ErrHTTPStatus on a non-2xx final status and with
// ErrUnsupportedContent when the response is not HTML or XML. Every other
// failure (DNS, connect, TLS, timeout, redirect loop) is wrapped in ErrFetch.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (*Document, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", acceptHeader)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: %d %s", ErrHTTPStatus, resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	contentType := resp.Header.Get("Content-Type")
	if !isParsableContentType(contentType) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedContent, contentType)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %w", ErrFetch, err)
	}

	return &Document{
		URL:         resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Body:        body,
	}, nil
}

// xmlMediaType matches application/xml, text/xml and the +xml family such as
// application/xhtml+xml.
var xmlMediaType = regexp.MustCompile(`^(application|text)/([\w.-]+\+)?xml$`)

// isParsableContentType reports whether a Content-Type can be treated as a
// markup document. A missing header is accepted.
func isParsableContentType(contentType string) bool {
	if strings.TrimSpace(contentType) == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || xmlMediaType.MatchString(mediaType)
}

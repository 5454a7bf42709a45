package crawler

import "errors"

// Crawl errors.
// None of these ever escape Spider.Crawl; they are recorded on page results
// and in the harvest so that callers and logs can tell failures apart.
//
// Design decision: We use sentinel errors wrapped with fmt.Errorf rather than
// custom error types because callers only need to classify failures with
// errors.Is, never to extract structured data from them.
var (
	// ErrInvalidURL is returned when a URL string cannot be parsed or normalized.
	// For the seed it aborts the whole crawl; for a discovered link it drops the link.
	ErrInvalidURL = errors.New("invalid URL")

	// ErrNoHost is recorded when the seed URL normalizes but has no host to
	// restrict the crawl to.
	ErrNoHost = errors.New("URL has no host")

	// ErrFetch is the umbrella for network, timeout and protocol failures while
	// retrieving a page. A page that fails with ErrFetch contributes nothing.
	ErrFetch = errors.New("fetch failed")

	// ErrHTTPStatus is returned when the server answers with a non-2xx status.
	ErrHTTPStatus = errors.New("unexpected HTTP status")

	// ErrUnsupportedContent is returned when the response is not an HTML or XML document.
	ErrUnsupportedContent = errors.New("unsupported content type")

	// ErrScheduling is recorded when a dispatched task fails before producing
	// a result (for example, a panic inside the worker).
	ErrScheduling = errors.New("task failed")

	// ErrCancelled is recorded for tasks that never started because the crawl
	// was cancelled.
	ErrCancelled = errors.New("crawl cancelled")
)

// ErrInvalidProxyAddress is returned when a SOCKS5 proxy address is not in
// "host:port" format.
var ErrInvalidProxyAddress = errors.New("invalid proxy address: must be host:port")

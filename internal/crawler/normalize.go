package crawler

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"
)

// NormalizedURL is a URL stripped of its fragment with dot-segments resolved.
// Two URLs are the same crawl target iff their String forms are equal.
//
// The zero value is not a valid URL; use Normalize to create one.
type NormalizedURL struct {
	u *url.URL
	s string
}

// Normalize canonicalizes raw into a comparable, fragment-free form.
//
// It trims surrounding whitespace, parses the URL, drops the fragment and
// resolves "." and ".." path segments. Scheme, user-info, host, port, path and
// query are kept as written (the host is not lower-cased; host comparison is
// done case-insensitively by the crawler instead).
//
// Normalize is pure and idempotent: normalizing an already normalized URL
// yields an identical result. It returns an error wrapping ErrInvalidURL when
// raw cannot be parsed, has no scheme, or is an opaque URI such as
// "mailto:someone@example.com".
func Normalize(raw string) (NormalizedURL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return NormalizedURL{}, fmt.Errorf("%w: empty string", ErrInvalidURL)
	}
	// url.Parse tolerates spaces in paths, URI syntax does not.
	if strings.IndexFunc(trimmed, unicode.IsSpace) >= 0 {
		return NormalizedURL{}, fmt.Errorf("%w: %q contains whitespace", ErrInvalidURL, trimmed)
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return NormalizedURL{}, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}

	if u.Scheme == "" {
		return NormalizedURL{}, fmt.Errorf("%w: %q has no scheme", ErrInvalidURL, trimmed)
	}
	if u.Opaque != "" {
		return NormalizedURL{}, fmt.Errorf("%w: %q is not hierarchical", ErrInvalidURL, trimmed)
	}

	u.Fragment = ""
	u.RawFragment = ""

	// ResolveReference against itself removes dot-segments while keeping
	// escaping, query and trailing slashes intact.
	u = u.ResolveReference(u)

	return NormalizedURL{u: u, s: u.String()}, nil
}

// String returns the normalized URL.
func (n NormalizedURL) String() string {
	return n.s
}

// IsZero reports whether n was not produced by Normalize.
func (n NormalizedURL) IsZero() bool {
	return n.u == nil
}

// Scheme returns the lower-case URL scheme.
func (n NormalizedURL) Scheme() string {
	if n.u == nil {
		return ""
	}
	return n.u.Scheme
}

// Host returns the host without port. It is empty for URLs without an authority.
func (n NormalizedURL) Host() string {
	if n.u == nil {
		return ""
	}
	return n.u.Hostname()
}

// Path returns the decoded URL path.
func (n NormalizedURL) Path() string {
	if n.u == nil {
		return ""
	}
	return n.u.Path
}

// URL returns a copy of the underlying URL.
func (n NormalizedURL) URL() *url.URL {
	if n.u == nil {
		return nil
	}
	c := *n.u
	return &c
}

// isHTTP reports whether s is an absolute http or https URL string.
func isHTTP(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// isSameHost checks if host matches the crawl's root host.
//
// Design decision: The match is exact and case-insensitive. We do not accept
// subdomains or compare registrable domains because that would silently widen
// the crawl scope; scheme and port are ignored.
func isSameHost(host, rootHost string) bool {
	return host != "" && strings.EqualFold(host, rootHost)
}

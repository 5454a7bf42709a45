package crawler

import (
	"path"
	"strings"
)

// DefaultSkipPatterns are the link path patterns never followed by default.
var DefaultSkipPatterns = []string{"*.pdf", "*.zip"}

// linkFilter decides which discovered links may join the frontier.
// Paths and patterns are compared lower-cased, so "*.pdf" also skips
// "/REPORT.PDF".
type linkFilter struct {
	// skipPatterns are path patterns to skip. Patterns use glob syntax
	// (e.g., "/admin/*", "*.pdf", "/logout*").
	skipPatterns []string

	// followPatterns, if set, restrict links to paths matching at least one.
	followPatterns []string
}

func newLinkFilter(skip, follow []string) linkFilter {
	return linkFilter{
		skipPatterns:   lowerAll(skip),
		followPatterns: lowerAll(follow),
	}
}

// accept applies the same-host rule and the path patterns to a normalized link.
func (f linkFilter) accept(link NormalizedURL, rootHost string) bool {
	if !isSameHost(link.Host(), rootHost) {
		return false
	}

	p := strings.ToLower(link.Path())
	if p == "" {
		p = "/"
	}

	// Check skip patterns first - if matched, skip
	for _, pattern := range f.skipPatterns {
		if matchPattern(pattern, p) {
			return false
		}
	}

	if len(f.followPatterns) == 0 {
		return true
	}
	for _, pattern := range f.followPatterns {
		if matchPattern(pattern, p) {
			return true
		}
	}
	return false
}

func lowerAll(patterns []string) []string {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, strings.ToLower(p))
		}
	}
	return out
}

// matchPattern checks if a URL path matches a glob pattern.
// Patterns can use:
//   - * to match any sequence of non-separator characters
//   - ? to match any single character
//
// Examples:
//   - "/admin/*" matches "/admin", "/admin/dashboard" and "/admin/users/1"
//   - "*.pdf" matches "/docs/file.pdf"
//   - "/api/v?" matches "/api/v1", "/api/v2"
func matchPattern(pattern, urlPath string) bool {
	// "/admin/*" covers the whole subtree, not one segment.
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if strings.HasPrefix(urlPath, prefix+"/") || urlPath == prefix {
			return true
		}
	}

	// Extension patterns match at any depth.
	if strings.HasPrefix(pattern, "*.") && !strings.ContainsAny(pattern[1:], "*?[") {
		if strings.HasSuffix(urlPath, pattern[1:]) {
			return true
		}
	}

	matched, err := path.Match(pattern, urlPath)
	if err != nil {
		return false
	}
	if matched {
		return true
	}

	// Patterns without a slash also match against the last segment.
	if !strings.Contains(pattern, "/") {
		matched, err := path.Match(pattern, path.Base(urlPath))
		if err == nil && matched {
			return true
		}
	}

	return false
}

package crawler

import (
	"errors"
	"testing"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"drops fragment", "http://example.com/page#section", "http://example.com/page"},
		{"resolves dot segments", "http://example.com/a/./b/../c", "http://example.com/a/c"},
		{"dot segments above root", "http://example.com/a/../../b", "http://example.com/b"},
		{"keeps trailing slash", "http://example.com/a/b/", "http://example.com/a/b/"},
		{"keeps empty path", "http://example.com", "http://example.com"},
		{"keeps root path", "http://example.com/", "http://example.com/"},
		{"keeps query", "http://example.com/p?q=1&r=2#x", "http://example.com/p?q=1&r=2"},
		{"keeps port", "http://example.com:8080/a/", "http://example.com:8080/a/"},
		{"keeps user info", "http://user:pw@example.com/x", "http://user:pw@example.com/x"},
		{"trims whitespace", "  https://example.com/x\n", "https://example.com/x"},
		{"lower-cases scheme only", "HTTP://Example.COM/Path", "http://Example.COM/Path"},
		{"keeps escaping", "http://example.com/a%20b", "http://example.com/a%20b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Normalize(tt.raw)
			if err != nil {
				t.Fatalf("Normalize(%q) returned error: %v", tt.raw, err)
			}
			if got.String() != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.raw, got.String(), tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"http://example.com/a/./b/../c#frag",
		"http://example.com",
		"https://example.com/x/y/?z=1",
		"http://Example.com:81/a/../",
		"http://example.com/a%2Fb/../c",
	}

	for _, raw := range inputs {
		t.Run(raw, func(t *testing.T) {
			t.Parallel()

			once, err := Normalize(raw)
			if err != nil {
				t.Fatalf("first Normalize failed: %v", err)
			}
			twice, err := Normalize(once.String())
			if err != nil {
				t.Fatalf("second Normalize failed: %v", err)
			}
			if once.String() != twice.String() {
				t.Errorf("not idempotent: %q then %q", once.String(), twice.String())
			}
		})
	}
}

func TestNormalizeErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"blank", "   "},
		{"plain words", "not a url"},
		{"space in host", "http://exa mple.com/"},
		{"missing scheme", "://example.com"},
		{"relative path", "/relative/path"},
		{"opaque", "mailto:someone@example.com"},
		{"control character", "http://example.com/\x7f"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Normalize(tt.raw)
			if err == nil {
				t.Fatalf("expected error for %q, got %q", tt.raw, got.String())
			}
			if !errors.Is(err, ErrInvalidURL) {
				t.Errorf("expected ErrInvalidURL, got %v", err)
			}
			if !got.IsZero() {
				t.Errorf("expected zero NormalizedURL on error")
			}
		})
	}
}

func TestNormalizedURLAccessors(t *testing.T) {
	t.Parallel()

	n, err := Normalize("https://Example.com:8443/Some/Path?x=1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if n.Scheme() != "https" {
		t.Errorf("expected scheme https, got %q", n.Scheme())
	}
	if n.Host() != "Example.com" {
		t.Errorf("expected host without port, got %q", n.Host())
	}
	if n.Path() != "/Some/Path" {
		t.Errorf("expected path /Some/Path, got %q", n.Path())
	}
	if u := n.URL(); u == nil || u.RawQuery != "x=1" {
		t.Errorf("expected URL copy with query, got %v", u)
	}

	var zero NormalizedURL
	if zero.Host() != "" || zero.Path() != "" || zero.Scheme() != "" || zero.URL() != nil {
		t.Error("zero value accessors should return empty values")
	}

	noHost, err := Normalize("file:///etc/hosts")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if noHost.Host() != "" {
		t.Errorf("expected empty host, got %q", noHost.Host())
	}
}

func TestIsSameHost(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		host     string
		rootHost string
		want     bool
	}{
		{"same host", "example.com", "example.com", true},
		{"case insensitive", "EXAMPLE.com", "example.COM", true},
		{"subdomain rejected", "www.example.com", "example.com", false},
		{"different host", "other.com", "example.com", false},
		{"empty host", "", "example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := isSameHost(tt.host, tt.rootHost); got != tt.want {
				t.Errorf("isSameHost(%q, %q) = %v, want %v", tt.host, tt.rootHost, got, tt.want)
			}
		})
	}
}

package model

import (
	"testing"
	"time"
)

// TestHarvestFingerprint tests that the fingerprint only depends on the image set.
func TestHarvestFingerprint(t *testing.T) {
	t.Parallel()

	t.Run("order does not matter", func(t *testing.T) {
		t.Parallel()

		a := NewHarvest("run-a", "https://site.com")
		a.Images.Add("https://site.com/a.png")
		a.Images.Add("https://site.com/b.png")

		b := NewHarvest("run-b", "https://site.com")
		b.Images.Add("https://site.com/b.png")
		b.Images.Add("https://site.com/a.png")

		if a.Fingerprint() != b.Fingerprint() {
			t.Error("expected equal fingerprints for equal image sets")
		}
	})

	t.Run("different sets differ", func(t *testing.T) {
		t.Parallel()

		a := NewHarvest("run-a", "https://site.com")
		a.Images.Add("https://site.com/a.png")

		b := NewHarvest("run-b", "https://site.com")
		b.Images.Add("https://site.com/c.png")

		if a.Fingerprint() == b.Fingerprint() {
			t.Error("expected different fingerprints for different image sets")
		}
	})

	t.Run("fingerprint is 64 hex characters", func(t *testing.T) {
		t.Parallel()

		h := NewHarvest("run", "https://site.com")
		if len(h.Fingerprint()) != 64 {
			t.Errorf("expected 64 characters, got %d", len(h.Fingerprint()))
		}
	})
}

// TestImageKind tests image classification by extension.
func TestImageKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		url  string
		want string
	}{
		{"png", "https://site.com/a.png", ImageKindPNG},
		{"upper case jpg", "https://site.com/A.JPG", ImageKindJPEG},
		{"jpeg with query", "https://site.com/a.jpeg?w=100", ImageKindJPEG},
		{"gif", "https://site.com/a.gif", ImageKindGIF},
		{"svg", "https://site.com/logo.svg", ImageKindSVG},
		{"webp", "https://site.com/a.webp", ImageKindWebP},
		{"favicon", "https://site.com/favicon.ico", ImageKindICO},
		{"no extension", "https://site.com/image", ImageKindOther},
		{"query only extension", "https://site.com/img?f=a.png", ImageKindOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := ImageKind(tt.url); got != tt.want {
				t.Errorf("ImageKind(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

// TestHarvestCounts tests the counting helpers.
func TestHarvestCounts(t *testing.T) {
	t.Parallel()

	h := NewHarvest("run", "https://site.com")
	h.Pages = append(h.Pages,
		PageRecord{URL: "https://site.com/", Status: PageOK},
		PageRecord{URL: "https://site.com/a", Status: PageFailed},
		PageRecord{URL: "https://site.com/b", Status: PageOK},
		PageRecord{URL: "https://site.com/c", Status: PageSkipped},
	)
	h.Images.Add("https://site.com/a.png")
	h.Images.Add("https://site.com/favicon.ico")

	if got := h.CountPages(PageOK); got != 2 {
		t.Errorf("expected 2 ok pages, got %d", got)
	}
	if got := h.CountPages(PageFailed); got != 1 {
		t.Errorf("expected 1 failed page, got %d", got)
	}
	if got := h.ImageCount(); got != 2 {
		t.Errorf("expected 2 images, got %d", got)
	}

	kinds := h.ImageKinds()
	if kinds[ImageKindPNG] != 1 || kinds[ImageKindICO] != 1 {
		t.Errorf("unexpected kinds: %v", kinds)
	}

	if h.Duration() != 0 {
		t.Errorf("expected zero duration before finish, got %v", h.Duration())
	}
	h.FinishedAt = h.StartedAt.Add(2 * time.Second)
	if h.Duration() != 2*time.Second {
		t.Errorf("expected 2s duration, got %v", h.Duration())
	}
}

// TestHarvestSummary tests that the summary mirrors the harvest counters.
func TestHarvestSummary(t *testing.T) {
	t.Parallel()

	h := NewHarvest("run-s", "https://site.com")
	h.Visited = 3
	h.Images.Add("https://site.com/a.png")
	h.Pages = append(h.Pages,
		PageRecord{URL: "https://site.com", Status: PageOK},
		PageRecord{URL: "https://site.com/x", Status: PageFailed},
	)

	s := h.Summary()
	if s.ID != 0 {
		t.Errorf("ID = %d, want 0", s.ID)
	}
	if s.RunID != "run-s" || s.Seed != "https://site.com" {
		t.Errorf("unexpected identity: %+v", s)
	}
	if s.PagesVisited != 3 || s.PagesFailed != 1 || s.ImageCount != 1 {
		t.Errorf("unexpected counters: %+v", s)
	}
	if s.Fingerprint != h.Fingerprint() {
		t.Error("fingerprint mismatch")
	}
}

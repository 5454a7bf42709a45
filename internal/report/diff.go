package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/Kelony11/image-finder/internal/model"
	"github.com/nao1215/markdown"
)

// Trend values describe how the image set moved between two harvests.
const (
	TrendGrew      = "grew"
	TrendShrank    = "shrank"
	TrendChanged   = "changed"
	TrendUnchanged = "unchanged"
)

// Diff is the comparison of two harvests of the same seed.
type Diff struct {
	// Seed is the seed of the current harvest.
	Seed string `json:"seed"`

	// Previous summarizes the older harvest.
	Previous model.HarvestSummary `json:"previous"`

	// Current summarizes the newer harvest.
	Current model.HarvestSummary `json:"current"`

	// Added lists images found now but not before, sorted.
	Added []string `json:"added"`

	// Removed lists images found before but not now, sorted.
	Removed []string `json:"removed"`

	// UnchangedCount is the number of images present in both harvests.
	UnchangedCount int `json:"unchanged_count"`

	// FingerprintChanged reports whether the image sets differ.
	FingerprintChanged bool `json:"fingerprint_changed"`

	// Trend is one of TrendGrew, TrendShrank, TrendChanged or TrendUnchanged.
	Trend string `json:"trend"`
}

// NewDiff compares previous and current. The summaries carry no database
// ID; callers that know the IDs may set them on the result.
func NewDiff(previous, current *model.Harvest) *Diff {
	d := &Diff{
		Seed:     current.Seed,
		Previous: previous.Summary(),
		Current:  current.Summary(),
		Added:    make([]string, 0),
		Removed:  make([]string, 0),
	}

	for _, img := range current.Images.Slice() {
		if previous.Images.Has(img) {
			d.UnchangedCount++
		} else {
			d.Added = append(d.Added, img)
		}
	}
	for _, img := range previous.Images.Slice() {
		if !current.Images.Has(img) {
			d.Removed = append(d.Removed, img)
		}
	}
	sort.Strings(d.Added)
	sort.Strings(d.Removed)

	d.FingerprintChanged = d.Previous.Fingerprint != d.Current.Fingerprint

	switch {
	case d.Current.ImageCount > d.Previous.ImageCount:
		d.Trend = TrendGrew
	case d.Current.ImageCount < d.Previous.ImageCount:
		d.Trend = TrendShrank
	case d.FingerprintChanged:
		d.Trend = TrendChanged
	default:
		d.Trend = TrendUnchanged
	}

	return d
}

// HasChanges reports whether any image was added or removed.
func (d *Diff) HasChanges() bool {
	return len(d.Added) > 0 || len(d.Removed) > 0
}

// WriteDiffJSON writes d as indented JSON.
func WriteDiffJSON(w io.Writer, d *Diff) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(d)
}

// WriteDiffText writes d in human-readable text format.
func WriteDiffText(w io.Writer, d *Diff) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Harvest Comparison: %s\n", d.Seed)
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "\nTrend: %s\n", formatTrend(d.Trend))
	fmt.Fprintf(&sb, "\nPrevious crawl: %s (%s)\n", d.Previous.StartedAt.Format(dateLayout), d.Previous.RunID)
	fmt.Fprintf(&sb, "Current crawl:  %s (%s)\n", d.Current.StartedAt.Format(dateLayout), d.Current.RunID)

	sb.WriteString("\nSummary:\n")
	fmt.Fprintf(&sb, "  %-14s  %-10s  %-10s  %-10s\n", "Metric", "Previous", "Current", "Change")
	sb.WriteString("  " + strings.Repeat("-", 50) + "\n")
	for _, row := range diffRows(d) {
		fmt.Fprintf(&sb, "  %-14s  %-10d  %-10d  %-10s\n", row.label, row.previous, row.current, formatDelta(row.current-row.previous))
	}

	if len(d.Added) > 0 {
		fmt.Fprintf(&sb, "\nAdded Images (%d):\n", len(d.Added))
		for _, img := range d.Added {
			fmt.Fprintf(&sb, "  [+] %s\n", img)
		}
	}
	if len(d.Removed) > 0 {
		fmt.Fprintf(&sb, "\nRemoved Images (%d):\n", len(d.Removed))
		for _, img := range d.Removed {
			fmt.Fprintf(&sb, "  [-] %s\n", img)
		}
	}
	if d.UnchangedCount > 0 {
		fmt.Fprintf(&sb, "\nUnchanged: %d images\n", d.UnchangedCount)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// WriteDiffMarkdown writes d in Markdown format.
func WriteDiffMarkdown(w io.Writer, d *Diff) error {
	md := markdown.NewMarkdown(w)

	md.H1("Harvest Comparison: " + d.Seed)
	md.PlainText("")
	md.H2("Summary")
	md.PlainText("")
	md.PlainTextf("**Trend:** %s", formatTrend(d.Trend))
	md.PlainText("")

	rows := [][]string{
		{"Date", d.Previous.StartedAt.Format(dateLayout), d.Current.StartedAt.Format(dateLayout), "-"},
	}
	for _, row := range diffRows(d) {
		rows = append(rows, []string{
			row.label,
			strconv.Itoa(row.previous),
			strconv.Itoa(row.current),
			formatDelta(row.current - row.previous),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current", "Change"},
		Rows:   rows,
	})
	md.PlainText("")

	if len(d.Added) > 0 {
		md.H2(fmt.Sprintf("Added Images (%d)", len(d.Added)))
		md.PlainText("")
		md.BulletList(d.Added...)
		md.PlainText("")
	}
	if len(d.Removed) > 0 {
		md.H2(fmt.Sprintf("Removed Images (%d)", len(d.Removed)))
		md.PlainText("")
		removed := make([]string, len(d.Removed))
		for i, img := range d.Removed {
			removed[i] = "~~" + img + "~~"
		}
		md.BulletList(removed...)
		md.PlainText("")
	}
	if d.UnchangedCount > 0 {
		md.HorizontalRule()
		md.PlainText("")
		md.PlainTextf("*%d images unchanged*", d.UnchangedCount)
	}

	return md.Build()
}

type diffRow struct {
	label             string
	previous, current int
}

func diffRows(d *Diff) []diffRow {
	return []diffRow{
		{"Pages visited", d.Previous.PagesVisited, d.Current.PagesVisited},
		{"Pages failed", d.Previous.PagesFailed, d.Current.PagesFailed},
		{"Images", d.Previous.ImageCount, d.Current.ImageCount},
	}
}

// formatTrend formats the trend for display.
func formatTrend(trend string) string {
	switch trend {
	case TrendGrew:
		return "GREW (more images)"
	case TrendShrank:
		return "SHRANK (fewer images)"
	case TrendChanged:
		return "CHANGED (same count, different images)"
	default:
		return "UNCHANGED"
	}
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}

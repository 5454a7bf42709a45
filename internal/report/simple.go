package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/Kelony11/image-finder/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section
// formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. The image list is meant to be copied, and escape codes get in the way
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no entries are shown.
	showEmpty bool

	// verbose adds the per-page table to the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with one line per crawled page.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the harvest in human-readable format.
func (w *SimpleWriter) Write(harvest *model.Harvest) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, harvest)
	w.writeSummary(&sb, harvest)
	w.writeImages(&sb, harvest)
	w.writeFailures(&sb, harvest)
	if w.verbose {
		w.writePages(&sb, harvest)
	}
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

// writeSection writes a section title framed by rules.
func writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

// writeHeader writes the report header with crawl information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, h *model.Harvest) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                        IMAGEFINDER REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Seed:           %s\n", h.Seed)
	fmt.Fprintf(sb, "Run ID:         %s\n", h.RunID)
	fmt.Fprintf(sb, "Started:        %s\n", h.StartedAt.Format(dateLayout))
	fmt.Fprintf(sb, "Duration:       %s\n", formatDuration(h.Duration()))

	switch stateOf(h) {
	case stateAborted:
		fmt.Fprintf(sb, "Status:         ABORTED - %s\n", h.Aborted)
	case stateCancelled:
		sb.WriteString("Status:         CANCELLED (partial results)\n")
	default:
		sb.WriteString("Status:         Complete\n")
	}

	sb.WriteString("\n")
}

// writeSummary writes the crawl counters.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, h *model.Harvest) {
	writeSection(sb, "SUMMARY")

	fmt.Fprintf(sb, "  Depth:        %d of %d\n", h.DepthReached, h.MaxDepth)
	fmt.Fprintf(sb, "  Visited:      %d (budget %d)\n", h.Visited, h.MaxPages)
	fmt.Fprintf(sb, "  OK:           %d\n", h.CountPages(model.PageOK))
	fmt.Fprintf(sb, "  Failed:       %d\n", h.CountPages(model.PageFailed))
	fmt.Fprintf(sb, "  Skipped:      %d\n", h.CountPages(model.PageSkipped))
	fmt.Fprintf(sb, "  Images:       %d\n", h.ImageCount())
	fmt.Fprintf(sb, "  Fingerprint:  %s\n", h.Fingerprint())
	sb.WriteString("\n")
}

// writeImages writes the sorted image list.
func (w *SimpleWriter) writeImages(sb *strings.Builder, h *model.Harvest) {
	if h.ImageCount() == 0 && !w.showEmpty {
		return
	}

	writeSection(sb, "IMAGES")

	if h.ImageCount() == 0 {
		sb.WriteString("  No images found\n\n")
		return
	}
	for _, img := range h.Images.Sorted() {
		fmt.Fprintf(sb, "  %s\n", img)
	}
	sb.WriteString("\n")
}

// writeFailures writes the pages that contributed nothing.
func (w *SimpleWriter) writeFailures(sb *strings.Builder, h *model.Harvest) {
	failed := h.CountPages(model.PageFailed)
	if failed == 0 && !w.showEmpty {
		return
	}

	writeSection(sb, "FAILED PAGES")

	if failed == 0 {
		sb.WriteString("  No failed pages\n\n")
		return
	}
	for _, p := range h.Pages {
		if p.Status != model.PageFailed {
			continue
		}
		fmt.Fprintf(sb, "  [!] %s\n", p.URL)
		if p.Error != "" {
			fmt.Fprintf(sb, "      %s\n", p.Error)
		}
	}
	sb.WriteString("\n")
}

// writePages writes one line per dispatched page.
func (w *SimpleWriter) writePages(sb *strings.Builder, h *model.Harvest) {
	if len(h.Pages) == 0 && !w.showEmpty {
		return
	}

	writeSection(sb, "PAGES")

	fmt.Fprintf(sb, "  %-5s  %-8s  %-6s  %-10s  %s\n", "Depth", "Status", "Images", "Elapsed", "URL")
	for _, p := range h.Pages {
		fmt.Fprintf(sb, "  %-5d  %-8s  %-6d  %-10s  %s\n",
			p.Depth, statusLabel(p.Status), p.Images, formatDuration(p.Elapsed), p.URL)
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by imagefinder\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

package report

import (
	"io"
	"strconv"

	"github.com/Kelony11/image-finder/internal/model"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter outputs harvests in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the harvest in Markdown format.
func (w *MarkdownWriter) Write(harvest *model.Harvest) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, harvest)
	w.writeSummary(md, harvest)
	w.writeImages(md, harvest)
	w.writePages(md, harvest)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with crawl information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, h *model.Harvest) {
	md.H1("Image Harvest Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Seed", "`" + h.Seed + "`"},
			{"Run ID", "`" + h.RunID + "`"},
			{"Started", h.StartedAt.Format(dateLayout)},
			{"Duration", formatDuration(h.Duration())},
			{"Status", w.getStatusText(h)},
		},
	})
	md.PlainText("")
}

// getStatusText returns the status text based on harvest state.
func (w *MarkdownWriter) getStatusText(h *model.Harvest) string {
	switch stateOf(h) {
	case stateAborted:
		return "❌ Aborted - " + h.Aborted
	case stateCancelled:
		return "⚠️ Cancelled (partial results)"
	default:
		return "✅ Complete"
	}
}

// writeSummary writes the counters table, the image-kind chart and an alert.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, h *model.Harvest) {
	md.H2("Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Depth reached", strconv.Itoa(h.DepthReached) + " / " + strconv.Itoa(h.MaxDepth)},
			{"Pages visited", strconv.Itoa(h.Visited) + " / " + strconv.Itoa(h.MaxPages)},
			{statusLabel(model.PageOK), strconv.Itoa(h.CountPages(model.PageOK))},
			{statusLabel(model.PageFailed), strconv.Itoa(h.CountPages(model.PageFailed))},
			{statusLabel(model.PageSkipped), strconv.Itoa(h.CountPages(model.PageSkipped))},
			{"**Images**", "**" + strconv.Itoa(h.ImageCount()) + "**"},
			{"Fingerprint", "`" + h.Fingerprint() + "`"},
		},
	})
	md.PlainText("")

	if h.ImageCount() > 0 {
		w.writePieChart(md, h)
	}

	w.writeAlert(md, h)
}

// writePieChart writes a mermaid pie chart of image kinds.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, h *model.Harvest) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Image Kinds"),
		piechart.WithShowData(true),
	)

	kinds := h.ImageKinds()
	for _, kind := range imageKindOrder {
		if n := kinds[kind]; n > 0 {
			chart.LabelAndIntValue(kindLabel(kind), uint64(n))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert describing how the crawl ended.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, h *model.Harvest) {
	failed := h.CountPages(model.PageFailed)

	switch {
	case stateOf(h) == stateAborted:
		md.Cautionf("The crawl was aborted before fetching anything: %s", h.Aborted)
	case stateOf(h) == stateCancelled:
		md.Warningf("The crawl was cancelled. %d page(s) were skipped and the image set is partial.",
			h.CountPages(model.PageSkipped))
	case failed > 0:
		md.Importantf("%d page(s) failed and contributed no images.", failed)
	case h.ImageCount() == 0:
		md.Note("The crawl completed but found no images.")
	default:
		md.Tip("The crawl completed without page failures.")
	}
	md.PlainText("")
}

// writeImages writes the sorted image list.
func (w *MarkdownWriter) writeImages(md *markdown.Markdown, h *model.Harvest) {
	md.H2("Images")
	md.PlainText("")

	if h.ImageCount() == 0 {
		md.PlainText("No images found.")
		md.PlainText("")
		return
	}

	md.BulletList(h.Images.Sorted()...)
	md.PlainText("")
}

// writePages writes the per-page table.
func (w *MarkdownWriter) writePages(md *markdown.Markdown, h *model.Harvest) {
	md.H2("Pages")
	md.PlainText("")

	if len(h.Pages) == 0 {
		md.PlainText("No pages were crawled.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(h.Pages))
	for i, p := range h.Pages {
		errText := p.Error
		if errText == "" {
			errText = "-"
		}
		rows[i] = []string{
			strconv.Itoa(p.Depth),
			statusLabel(p.Status),
			truncateString(p.URL, 60),
			strconv.Itoa(p.Images),
			strconv.Itoa(p.Links),
			truncateString(errText, 50),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Depth", "Status", "URL", "Images", "Links", "Error"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Report generated by imagefinder*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

package report

import (
	"io"
	"time"

	"github.com/Kelony11/image-finder/internal/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Writer defines the interface for harvest output.
// Implementations write crawl results in various formats.
//
// Design decision: We use an interface to allow different output formats
// and destinations. This enables writing to files, stdout, or network
// connections with the same API.
type Writer interface {
	// Write outputs the harvest to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(harvest *model.Harvest) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
//
// Design decision: We implement this as a separate type rather than
// using io.MultiWriter because our Writer interface is different
// from io.Writer - we write harvests, not raw bytes.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the harvest to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(harvest *model.Harvest) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(harvest)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// dateLayout is used for every timestamp shown to humans.
const dateLayout = "2006-01-02 15:04:05 MST"

var (
	titleCaser = cases.Title(language.English)
	upperCaser = cases.Upper(language.English)
)

// statusLabel renders a page status for humans, e.g. "Failed".
func statusLabel(s model.PageStatus) string {
	return titleCaser.String(s.String())
}

// kindLabel renders an image kind for humans, e.g. "PNG".
func kindLabel(kind string) string {
	if kind == model.ImageKindOther {
		return titleCaser.String(kind)
	}
	return upperCaser.String(kind)
}

// imageKindOrder is the fixed order in which image kinds are listed.
var imageKindOrder = []string{
	model.ImageKindPNG,
	model.ImageKindJPEG,
	model.ImageKindGIF,
	model.ImageKindSVG,
	model.ImageKindWebP,
	model.ImageKindICO,
	model.ImageKindOther,
}

// harvestState classifies how a crawl ended.
type harvestState int

const (
	stateComplete harvestState = iota
	stateCancelled
	stateAborted
)

func stateOf(h *model.Harvest) harvestState {
	switch {
	case h.Aborted != "":
		return stateAborted
	case h.Cancelled:
		return stateCancelled
	default:
		return stateComplete
	}
}

// formatDuration rounds d for display.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(10 * time.Millisecond).String()
}

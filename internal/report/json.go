package report

import (
	"encoding/json"
	"io"

	"github.com/Kelony11/image-finder/internal/model"
)

// JSONWriter outputs harvests in JSON format.
// This format is designed for tool integration and programmatic processing.
//
// Design decision: We use standard encoding/json rather than a third-party
// JSON library because:
// 1. It's part of the standard library (no extra dependencies)
// 2. It's sufficient for our needs
// 3. URLSet already implements json.Marshaler with a stable sorted order
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
// This is a convenience wrapper for WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the harvest in JSON format.
func (w *JSONWriter) Write(harvest *model.Harvest) (int, error) {
	return w.writeJSON(harvest)
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}

// JSONReport wraps a harvest with additional metadata.
//
// Design decision: We wrap the harvest rather than modifying model.Harvest
// because this allows us to add output-specific fields without polluting
// the core data structure.
type JSONReport struct {
	// Version is the imagefinder version that generated this report.
	Version string `json:"version"`

	// Summary holds the harvest counters for quick access.
	Summary model.HarvestSummary `json:"summary"`

	// ImageKinds counts images by file type.
	ImageKinds map[string]int `json:"image_kinds"`

	// Harvest is the full crawl result.
	Harvest *model.Harvest `json:"harvest"`
}

// NewJSONReport creates a JSONReport wrapper with version information.
func NewJSONReport(harvest *model.Harvest, version string) *JSONReport {
	return &JSONReport{
		Version:    version,
		Summary:    harvest.Summary(),
		ImageKinds: harvest.ImageKinds(),
		Harvest:    harvest,
	}
}

// FullJSONWriter outputs complete harvests with a metadata wrapper.
type FullJSONWriter struct {
	*JSONWriter

	// version is the imagefinder version string.
	version string
}

// NewFullJSONWriter creates a writer for complete harvests with metadata.
func NewFullJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *FullJSONWriter {
	return &FullJSONWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
	}
}

// Write outputs the harvest wrapped with metadata.
func (w *FullJSONWriter) Write(harvest *model.Harvest) (int, error) {
	return w.writeJSON(NewJSONReport(harvest, w.version))
}

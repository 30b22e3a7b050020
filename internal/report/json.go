package report

import (
	"bytes"
	"encoding/json"
	"io"
)

// JSONWriter outputs reports in JSON format for tool integration.
//
// Probe fields are written as {"state": ..., "value": ...} objects, so an
// empty answer and an unknown one stay distinguishable. HTML characters are
// not escaped: issuer organisations such as "AT&T" are written as is.
type JSONWriter struct {
	baseWriter

	// indent is the per-level indentation; empty means compact output.
	indent string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent indents every nesting level with indent.
func WithIndent(indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = indent
	}
}

// WithPrettyPrint indents with two spaces.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("  ")
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

// Write encodes report as one JSON document followed by a newline.
// Nothing is written when encoding fails.
func (w *JSONWriter) Write(report *RunReport) (int, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if w.indent != "" {
		enc.SetIndent("", w.indent)
	}
	if err := enc.Encode(report); err != nil {
		return 0, err
	}

	return w.output.Write(buf.Bytes())
}

package report

import (
	"errors"
	"io"
)

// Writer renders a RunReport.
type Writer interface {
	// Write renders report and returns the number of bytes written.
	Write(report *RunReport) (int, error)
}

// MultiWriter renders the same report with several Writers, for example a
// Markdown file and a text summary on the terminal.
//
// Unlike io.MultiWriter, a failing writer does not stop the others: every
// writer receives the report and the errors are joined.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that renders with every given Writer, in order.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write renders report with every writer and returns the total byte count.
func (m *MultiWriter) Write(report *RunReport) (int, error) {
	var (
		total int
		errs  []error
	)
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			errs = append(errs, err)
		}
	}
	return total, errors.Join(errs...)
}

// baseWriter holds the destination shared by every format.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter returns a baseWriter for output; nil discards the report.
func newBaseWriter(output io.Writer) baseWriter {
	if output == nil {
		output = io.Discard
	}
	return baseWriter{output: output}
}

package export

import (
	"bufio"
	"database/sql"
	"io"
	"strings"
)

// Format constants.
const (
	// NullToken is written for SQL NULL.
	NullToken = "NULL"

	// Escape is the escape character.
	Escape = '\\'

	lineEnd = "\r\n"
)

// Writer writes quote-all comma-separated records.
//
// Each field is wrapped in double quotes. Embedded double quotes are
// doubled and the escape character is escaped with itself. Records end
// with CRLF.
type Writer struct {
	w *bufio.Writer
}

// NewWriter returns a Writer writing to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// WriteHeader writes the column names.
func (cw *Writer) WriteHeader(columns []string) error {
	for i, c := range columns {
		if err := cw.field(i, c); err != nil {
			return err
		}
	}
	_, err := cw.w.WriteString(lineEnd)
	return err
}

// WriteRow writes one record, rendering invalid values as NullToken.
func (cw *Writer) WriteRow(values []sql.NullString) error {
	for i, v := range values {
		s := NullToken
		if v.Valid {
			s = v.String
		}
		if err := cw.field(i, s); err != nil {
			return err
		}
	}
	_, err := cw.w.WriteString(lineEnd)
	return err
}

// Flush writes buffered data to the underlying writer.
func (cw *Writer) Flush() error {
	return cw.w.Flush()
}

func (cw *Writer) field(i int, s string) error {
	if i > 0 {
		if err := cw.w.WriteByte(','); err != nil {
			return err
		}
	}
	if err := cw.w.WriteByte('"'); err != nil {
		return err
	}
	if _, err := cw.w.WriteString(quote(s)); err != nil {
		return err
	}
	return cw.w.WriteByte('"')
}

var replacer = strings.NewReplacer(`"`, `""`, string(Escape), string([]rune{Escape, Escape}))

func quote(s string) string {
	if !strings.ContainsAny(s, `"`+string(Escape)) {
		return s
	}
	return replacer.Replace(s)
}

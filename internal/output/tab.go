// Package output provides call output formatters.
package output

import (
	"bufio"
	"io"
	"strings"

	"github.com/genome-surveillance/grc-plasmepsin/internal/caller"
)

// IDColumn is the name of the sample ID column.
const IDColumn = "ID"

// TabWriter writes sample calls as two tab-delimited columns.
type TabWriter struct {
	w       *bufio.Writer
	columns []string
}

// NewTabWriter creates a tab-delimited writer whose call column is named
// column.
func NewTabWriter(w io.Writer, column string) *TabWriter {
	return &TabWriter{
		w:       bufio.NewWriter(w),
		columns: []string{IDColumn, column},
	}
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	_, err := tw.w.WriteString(strings.Join(tw.columns, "\t") + "\n")
	return err
}

// Write writes a single sample call.
func (tw *TabWriter) Write(r caller.SampleResult) error {
	_, err := tw.w.WriteString(r.SampleID + "\t" + r.Variant + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}

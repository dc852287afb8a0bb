// Package manifest validates amplicon sequencing manifests (sample sheets)
// before they are handed to the genotyping pipeline.
package manifest

import (
	"encoding/csv"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
)

// Manifest column names. Header names are compared lower-cased.
const (
	ColSampleID        = "sample_id"
	ColPrimerPanel     = "primer_panel"
	ColBarcodeNumber   = "barcode_number"
	ColBarcodeSequence = "barcode_sequence"
	ColIndex           = "index"
)

// RequiredColumns must be present in every manifest and must not hold empty
// or NA values.
var RequiredColumns = []string{ColSampleID, ColPrimerPanel, ColBarcodeNumber, ColBarcodeSequence}

// Row is one manifest line.
type Row struct {
	SampleID        string `csv:"sample_id"`
	PrimerPanel     string `csv:"primer_panel"`
	BarcodeNumber   string `csv:"barcode_number"`
	BarcodeSequence string `csv:"barcode_sequence"`
	Index           string `csv:"index"`
}

func (r *Row) required() []struct{ column, value string } {
	return []struct{ column, value string }{
		{ColSampleID, r.SampleID},
		{ColPrimerPanel, r.PrimerPanel},
		{ColBarcodeNumber, r.BarcodeNumber},
		{ColBarcodeSequence, r.BarcodeSequence},
	}
}

func (r *Row) trim() {
	r.SampleID = strings.TrimSpace(r.SampleID)
	r.PrimerPanel = strings.TrimSpace(r.PrimerPanel)
	r.BarcodeNumber = strings.TrimSpace(r.BarcodeNumber)
	r.BarcodeSequence = strings.TrimSpace(r.BarcodeSequence)
	r.Index = strings.TrimSpace(r.Index)
}

// Validator checks a manifest against the primer panels expected in the run.
type Validator struct {
	panels map[string]struct{}
}

// NewValidator creates a validator expecting exactly the given panel names.
func NewValidator(panels []string) *Validator {
	set := make(map[string]struct{}, len(panels))
	for _, p := range panels {
		set[p] = struct{}{}
	}
	return &Validator{panels: set}
}

// ValidateFile validates the manifest at path.
func (v *Validator) ValidateFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	return v.Validate(filepath.Base(path), f)
}

// Validate validates a tab-separated manifest read from r. The name is used
// in error messages.
func (v *Validator) Validate(name string, r io.Reader) error {
	if len(v.panels) == 0 {
		return &ValueError{Manifest: name, Message: "no primer panel names given"}
	}

	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return &ColumnsError{Manifest: name, Missing: RequiredColumns}
	}
	if err != nil {
		return fmt.Errorf("read %s header: %w", name, err)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}

	var missing []string
	for _, col := range RequiredColumns {
		if !slices.Contains(header, col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return &ColumnsError{Manifest: name, Missing: missing, Got: header}
	}
	hasIndex := slices.Contains(header, ColIndex)

	var rows []*Row
	if err := gocsv.UnmarshalCSV(&headerReader{header: header, r: cr}, &rows); err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}

	seen := make(map[string]struct{})
	for i, row := range rows {
		row.trim()
		if err := v.validateRow(name, i+1, row, hasIndex); err != nil {
			return err
		}
		seen[row.PrimerPanel] = struct{}{}
	}

	if !maps.Equal(seen, v.panels) {
		return &ValueError{
			Manifest: name,
			Message: fmt.Sprintf("%s column does not contain all panel names: %s",
				ColPrimerPanel, strings.Join(slices.Sorted(maps.Keys(v.panels)), ", ")),
		}
	}

	return nil
}

func (v *Validator) validateRow(name string, n int, row *Row, hasIndex bool) error {
	for _, f := range row.required() {
		if f.value == "" {
			return &EmptyValueError{Manifest: name, Row: n, Column: f.column}
		}
		if strings.EqualFold(f.value, "NA") {
			return &ValueError{Manifest: name, Row: n, Message: fmt.Sprintf("NA value in %s", f.column)}
		}
	}

	if _, ok := v.panels[row.PrimerPanel]; !ok {
		return &ValueError{
			Manifest: name,
			Row:      n,
			Message: fmt.Sprintf("invalid value in %s column: expected one of %s, got %q",
				ColPrimerPanel, strings.Join(slices.Sorted(maps.Keys(v.panels)), ", "), row.PrimerPanel),
		}
	}

	if hasIndex {
		if _, err := strconv.Atoi(row.Index); err != nil {
			return &ValueError{
				Manifest: name,
				Row:      n,
				Message:  fmt.Sprintf("invalid value in %s column: expected integer, got %q", ColIndex, row.Index),
			}
		}
	}

	if msg := checkBarcode(row.BarcodeSequence); msg != "" {
		return &ValueError{
			Manifest: name,
			Row:      n,
			Message:  fmt.Sprintf("invalid value in %s column: %s: %q", ColBarcodeSequence, msg, row.BarcodeSequence),
		}
	}

	return nil
}

// checkBarcode returns a description of what is wrong with a barcode, or ""
// when it is two nucleotide sequences joined by a hyphen.
func checkBarcode(barcode string) string {
	parts := strings.Split(barcode, "-")
	if len(parts) == 1 {
		return "missing separator"
	}
	if len(parts) != 2 {
		return "expected two sequences"
	}
	for _, seq := range parts {
		if seq == "" {
			return "empty sequence"
		}
		if strings.Trim(seq, "ACGT") != "" {
			return "non-nucleotide character"
		}
	}
	return ""
}

// headerReader replays an already-read, normalised header before the rest of
// the records.
type headerReader struct {
	header []string
	sent   bool
	r      *csv.Reader
}

func (h *headerReader) Read() ([]string, error) {
	if !h.sent {
		h.sent = true
		return h.header, nil
	}
	return h.r.Read()
}

func (h *headerReader) ReadAll() ([][]string, error) {
	var records [][]string
	for {
		rec, err := h.Read()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
}

// ColumnsError reports required columns missing from the manifest header.
type ColumnsError struct {
	Manifest string
	Missing  []string
	Got      []string
}

func (e *ColumnsError) Error() string {
	return fmt.Sprintf("%s: missing expected columns %s (got %s)",
		e.Manifest, strings.Join(e.Missing, ", "), strings.Join(e.Got, ", "))
}

// EmptyValueError reports an empty value in a required column.
type EmptyValueError struct {
	Manifest string
	Row      int
	Column   string
}

func (e *EmptyValueError) Error() string {
	return fmt.Sprintf("%s row %d: empty value in %s", e.Manifest, e.Row, e.Column)
}

// ValueError reports an invalid value in the manifest.
type ValueError struct {
	Manifest string
	Row      int
	Message  string
}

func (e *ValueError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("%s row %d: %s", e.Manifest, e.Row, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Manifest, e.Message)
}

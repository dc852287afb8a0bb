// Package genotype reads per-sample genotype tables and indexes the calls
// made at diagnostic positions.
package genotype

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Genotype table column names.
const (
	ColID   = "ID"
	ColChr  = "Chr"
	ColLoc  = "Loc"
	ColCall = "Gen"
)

// MissingCall is the genotype call written when no genotype could be determined.
const MissingCall = "-"

// Observation is a single genotype call read from one row of a genotype table.
type Observation struct {
	SampleID string
	Position string // chromosome:coordinate
	Call     string
}

// Reader is the interface for sources of genotype observations.
type Reader interface {
	// Next reads the next observation.
	// Returns nil, nil when there are no more observations.
	Next() (*Observation, error)

	// Close closes the reader and releases resources.
	Close() error

	// LineNumber returns the current line number being processed.
	LineNumber() int
}

// ColumnIndices holds the indices of the genotype table columns.
type ColumnIndices struct {
	ID   int
	Chr  int
	Loc  int
	Call int
}

// Parser reads observations from a tab-separated genotype table.
type Parser struct {
	name       string
	reader     *bufio.Reader
	file       *os.File
	gzipReader *gzip.Reader
	lineNumber int
	columns    ColumnIndices
	minFields  int
}

// NewParser creates a parser for the genotype table at path.
// Gzipped tables are detected by their magic bytes.
func NewParser(path string) (*Parser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open genotype file: %w", err)
	}

	p := &Parser{name: path, file: file}

	br := bufio.NewReader(file)
	magic, err := br.Peek(2)
	if err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		p.gzipReader, err = gzip.NewReader(br)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("create gzip reader for %s: %w", path, err)
		}
		p.reader = bufio.NewReader(p.gzipReader)
	} else {
		p.reader = br
	}

	if err := p.parseHeader(); err != nil {
		p.Close()
		return nil, err
	}

	return p, nil
}

// NewParserFromReader creates a parser from an io.Reader. The name is used in
// error messages.
func NewParserFromReader(name string, r io.Reader) (*Parser, error) {
	p := &Parser{
		name:   name,
		reader: bufio.NewReader(r),
	}

	if err := p.parseHeader(); err != nil {
		return nil, err
	}

	return p, nil
}

// parseHeader reads the first non-empty line and resolves the column indices.
func (p *Parser) parseHeader() error {
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			if err == io.EOF {
				return p.errorf("no header line found")
			}
			return fmt.Errorf("read header of %s: %w", p.name, err)
		}
		p.lineNumber++

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}

		return p.parseColumnIndices(line)
	}
}

func (p *Parser) parseColumnIndices(headerLine string) error {
	p.columns = ColumnIndices{ID: -1, Chr: -1, Loc: -1, Call: -1}

	for i, col := range strings.Split(headerLine, "\t") {
		switch col {
		case ColID:
			p.columns.ID = i
		case ColChr:
			p.columns.Chr = i
		case ColLoc:
			p.columns.Loc = i
		case ColCall:
			p.columns.Call = i
		}
	}

	required := []struct {
		name  string
		index int
	}{
		{ColID, p.columns.ID},
		{ColChr, p.columns.Chr},
		{ColLoc, p.columns.Loc},
		{ColCall, p.columns.Call},
	}
	for _, r := range required {
		if r.index == -1 {
			return p.errorf("required column '%s' not found in header", r.name)
		}
		if r.index+1 > p.minFields {
			p.minFields = r.index + 1
		}
	}

	return nil
}

// Next reads the next observation from the table.
// Returns nil, nil when there are no more rows.
func (p *Parser) Next() (*Observation, error) {
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			if err == io.EOF {
				return nil, nil
			}
			return nil, fmt.Errorf("read %s: %w", p.name, err)
		}
		p.lineNumber++

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}

		return p.parseLine(line)
	}
}

func (p *Parser) parseLine(line string) (*Observation, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < p.minFields {
		return nil, p.errorf("expected at least %d columns, found %d", p.minFields, len(fields))
	}

	return &Observation{
		SampleID: fields[p.columns.ID],
		Position: fields[p.columns.Chr] + ":" + fields[p.columns.Loc],
		Call:     fields[p.columns.Call],
	}, nil
}

// Columns returns the parsed column indices.
func (p *Parser) Columns() ColumnIndices {
	return p.columns
}

// LineNumber returns the current line number being processed.
func (p *Parser) LineNumber() int {
	return p.lineNumber
}

// Close closes the parser and underlying file.
func (p *Parser) Close() error {
	if p.gzipReader != nil {
		p.gzipReader.Close()
	}
	if p.file != nil {
		return p.file.Close()
	}
	return nil
}

func (p *Parser) errorf(format string, args ...any) error {
	return &ParseError{
		File:    p.name,
		Line:    p.lineNumber,
		Message: fmt.Sprintf(format, args...),
	}
}

// ParseError represents an error in a genotype table with line context.
type ParseError struct {
	File    string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("genotype parse error in %s at line %d: %s", e.File, e.Line, e.Message)
}

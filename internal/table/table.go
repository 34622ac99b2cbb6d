// Package table reads and writes the delimited tables exchanged between
// pipeline stages (parsed GFF segments, count matrices, mapped coordinates).
package table

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// ErrMalformedInput marks input that breaks the upstream contract
// (missing required columns or unparsable required fields).
var ErrMalformedInput = errors.New("malformed input")

// ColumnError reports a required column missing from a table header.
type ColumnError struct {
	Source string
	Column string
}

func (e *ColumnError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("required column %q not found in header", e.Column)
	}
	return fmt.Sprintf("%s: required column %q not found in header", e.Source, e.Column)
}

func (e *ColumnError) Unwrap() error { return ErrMalformedInput }

// ParseError reports a row that could not be parsed.
type ParseError struct {
	Source  string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("parse error at line %d: %s", e.Line, e.Message)
	}
	return fmt.Sprintf("%s: parse error at line %d: %s", e.Source, e.Line, e.Message)
}

func (e *ParseError) Unwrap() error { return ErrMalformedInput }

// Table is an in-memory delimited table with a header row.
// Empty cells represent missing values.
type Table struct {
	Header []string
	Rows   [][]string
}

// New creates an empty table with the given header.
func New(header ...string) *Table {
	return &Table{Header: append([]string(nil), header...)}
}

// Index returns the position of a column in the header, or -1.
func (t *Table) Index(col string) int {
	for i, h := range t.Header {
		if h == col {
			return i
		}
	}
	return -1
}

// Require returns the positions of the given columns, failing with a
// *ColumnError for the first one that is missing.
func (t *Table) Require(cols ...string) ([]int, error) {
	idx := make([]int, len(cols))
	for i, c := range cols {
		idx[i] = t.Index(c)
		if idx[i] == -1 {
			return nil, &ColumnError{Column: c}
		}
	}
	return idx, nil
}

// Rename renames header columns using old -> new pairs.
// Columns not present in the mapping are left unchanged.
func (t *Table) Rename(names map[string]string) {
	for i, h := range t.Header {
		if n, ok := names[h]; ok {
			t.Header[i] = n
		}
	}
}

// AppendColumn adds a column. values must have one entry per row.
func (t *Table) AppendColumn(name string, values []string) error {
	if len(values) != len(t.Rows) {
		return fmt.Errorf("append column %q: got %d values for %d rows", name, len(values), len(t.Rows))
	}
	t.Header = append(t.Header, name)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], values[i])
	}
	return nil
}

// Read parses a delimited table whose first non-comment line is the header.
// Lines starting with '#' are skipped. Rows with a different number of
// fields than the header are rejected. A leading UTF-8 byte order mark,
// as written by spreadsheet exports, is dropped from the first header.
func Read(r io.Reader, delim rune) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.Comment = '#'
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &ParseError{Line: 1, Message: "no header line found"}
	}
	if err != nil {
		return nil, wrapCSVError(err)
	}
	header[0] = strings.TrimPrefix(header[0], utf8BOM)

	t := &Table{Header: header}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, wrapCSVError(err)
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

const utf8BOM = "\ufeff"

func wrapCSVError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &ParseError{Line: pe.StartLine, Message: pe.Err.Error()}
	}
	return fmt.Errorf("read table: %w", err)
}

// Delimiter returns the field delimiter implied by a file name:
// ',' for .csv, tab otherwise. A trailing .gz is ignored.
func Delimiter(path string) rune {
	lower := strings.TrimSuffix(strings.ToLower(path), ".gz")
	if strings.HasSuffix(lower, ".csv") {
		return ','
	}
	return '\t'
}

// ReadFile reads a table from disk. Gzipped files (.gz) are decompressed.
// Errors carry the file path as their source.
func ReadFile(path string) (*Table, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	t, err := Read(rc, Delimiter(path))
	if err != nil {
		return nil, WithSource(err, path)
	}
	return t, nil
}

// WithSource attaches a source name to a *ColumnError or *ParseError
// that does not carry one yet. Other errors are returned unchanged.
func WithSource(err error, source string) error {
	var pe *ParseError
	if errors.As(err, &pe) && pe.Source == "" {
		pe.Source = source
		return pe
	}
	var ce *ColumnError
	if errors.As(err, &ce) && ce.Source == "" {
		ce.Source = source
		return ce
	}
	return err
}

// Open opens a file for reading, transparently decompressing .gz files.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open gzip reader: %w", err)
	}
	return &gzipFile{Reader: gz, f: f}, nil
}

type gzipFile struct {
	*gzip.Reader
	f *os.File
}

func (g *gzipFile) Close() error {
	gerr := g.Reader.Close()
	if err := g.f.Close(); err != nil {
		return err
	}
	return gerr
}

// Write writes the table tab-separated with a header line.
func Write(w io.Writer, t *Table) error {
	bw := bufio.NewWriter(w)
	cw := csv.NewWriter(bw)
	cw.Comma = '\t'

	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return bw.Flush()
}

// WriteFile writes the table to path, tab-separated.
func WriteFile(path string, t *Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := Write(f, t); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

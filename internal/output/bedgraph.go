package output

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/inodb/vibe-domains/internal/table"
)

// BedGraphRecord is one per-sample count over a domain interval.
type BedGraphRecord struct {
	Chrom string
	Start int64
	End   int64
	Value string // numeric, as written in the count table
}

// SampleColumns returns the sample count columns of a mapped table: the
// header columns from offset onwards, excluding the mapping columns.
func SampleColumns(header []string, offset int) []string {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(header) {
		return nil
	}
	var cols []string
	for _, h := range header[offset:] {
		if isMappingColumn(h) {
			continue
		}
		cols = append(cols, h)
	}
	return cols
}

func isMappingColumn(name string) bool {
	for _, c := range MappingColumns {
		if c == name {
			return true
		}
	}
	return false
}

// BedGraphRecords extracts the intervals of one sample column from a mapped
// table, sorted by position. Unmapped rows and rows with an empty count are
// omitted and counted in skipped. Non-numeric counts are malformed input.
func BedGraphRecords(t *table.Table, sample string) (records []BedGraphRecord, skipped int, err error) {
	idx, err := t.Require(ColChrom, ColGenomicStart, ColGenomicEnd, sample)
	if err != nil {
		return nil, 0, err
	}
	iChrom, iStart, iEnd, iValue := idx[0], idx[1], idx[2], idx[3]

	for i, row := range t.Rows {
		chrom, start, end, ok, err := rowInterval(row, iChrom, iStart, iEnd)
		if err != nil {
			return nil, 0, &table.ParseError{Line: i + 2, Message: err.Error()}
		}
		value := strings.TrimSpace(row[iValue])
		if !ok || value == "" {
			skipped++
			continue
		}
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return nil, 0, &table.ParseError{Line: i + 2, Message: fmt.Sprintf("sample %s: non-numeric count %q", sample, value)}
		}
		records = append(records, BedGraphRecord{Chrom: chrom, Start: start, End: end, Value: value})
	}

	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Chrom != b.Chrom {
			return a.Chrom < b.Chrom
		}
		return a.Start < b.Start
	})
	return records, skipped, nil
}

// BedGraphWriter writes headerless tab-separated bedGraph lines.
type BedGraphWriter struct {
	w *bufio.Writer
}

// NewBedGraphWriter creates a new bedGraph writer.
func NewBedGraphWriter(w io.Writer) *BedGraphWriter {
	return &BedGraphWriter{w: bufio.NewWriter(w)}
}

// Write writes a single record.
func (gw *BedGraphWriter) Write(r BedGraphRecord) error {
	values := []string{
		r.Chrom,
		strconv.FormatInt(r.Start, 10),
		strconv.FormatInt(r.End, 10),
		r.Value,
	}
	_, err := gw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (gw *BedGraphWriter) Flush() error {
	return gw.w.Flush()
}

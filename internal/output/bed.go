package output

import (
	"bufio"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/inodb/vibe-domains/internal/table"
)

// BEDRecord is one domain interval of a BED track.
type BEDRecord struct {
	Chrom string
	Start int64
	End   int64
	Name  string
}

// BEDRecords extracts chr, genomic_start, genomic_end and domain from a
// mapped table. Rows without a mapping are omitted and counted in skipped.
func BEDRecords(t *table.Table) (records []BEDRecord, skipped int, err error) {
	idx, err := t.Require(ColChrom, ColGenomicStart, ColGenomicEnd, table.ColDomain)
	if err != nil {
		return nil, 0, err
	}
	iChrom, iStart, iEnd, iName := idx[0], idx[1], idx[2], idx[3]

	for i, row := range t.Rows {
		chrom, start, end, ok, err := rowInterval(row, iChrom, iStart, iEnd)
		if err != nil {
			return nil, 0, &table.ParseError{Line: i + 2, Message: err.Error()}
		}
		if !ok {
			skipped++
			continue
		}
		records = append(records, BEDRecord{Chrom: chrom, Start: start, End: end, Name: row[iName]})
	}
	return records, skipped, nil
}

// rowInterval reads the genomic interval of a mapped row.
// ok is false when any part of the interval is missing.
func rowInterval(row []string, iChrom, iStart, iEnd int) (chrom string, start, end int64, ok bool, err error) {
	chrom = row[iChrom]
	start, okStart, err := parseCoord(row[iStart])
	if err != nil {
		return "", 0, 0, false, err
	}
	end, okEnd, err := parseCoord(row[iEnd])
	if err != nil {
		return "", 0, 0, false, err
	}
	return chrom, start, end, chrom != "" && okStart && okEnd, nil
}

// SortBED sorts records by chromosome then start then end, the order
// required by bedToBigBed.
func SortBED(records []BEDRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Chrom != b.Chrom {
			return a.Chrom < b.Chrom
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.End < b.End
	})
}

// BEDWriter writes records as headerless tab-separated BED lines.
type BEDWriter struct {
	w *bufio.Writer
}

// NewBEDWriter creates a new BED writer.
func NewBEDWriter(w io.Writer) *BEDWriter {
	return &BEDWriter{w: bufio.NewWriter(w)}
}

// Write writes a single record.
func (bw *BEDWriter) Write(r BEDRecord) error {
	values := []string{
		r.Chrom,
		strconv.FormatInt(r.Start, 10),
		strconv.FormatInt(r.End, 10),
		r.Name,
	}
	_, err := bw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (bw *BEDWriter) Flush() error {
	return bw.w.Flush()
}

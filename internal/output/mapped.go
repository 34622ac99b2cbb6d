// Package output provides the mapped-table, BED and bedGraph formatters.
package output

import (
	"fmt"
	"math"
	"strconv"

	"github.com/inodb/vibe-domains/internal/mapping"
	"github.com/inodb/vibe-domains/internal/table"
)

// Columns added to a count table by coordinate mapping.
const (
	ColTranscriptID = "transcript_id"
	ColGenomicStart = "genomic_start"
	ColGenomicEnd   = "genomic_end"
	ColChrom        = "chr"
)

// MappingColumns lists every column AppendMappings may add.
var MappingColumns = []string{ColTranscriptID, ColGenomicStart, ColGenomicEnd, ColChrom}

// AppendMappings adds transcript_id, genomic_start and genomic_end to the
// table, one mapping per row; nil mappings leave the cells empty. A chr
// column filled from the mapped transcript is added when the table has
// none. Existing mapping columns are overwritten.
func AppendMappings(t *table.Table, mappings []*mapping.Mapping) error {
	if len(mappings) != len(t.Rows) {
		return fmt.Errorf("append mappings: got %d mappings for %d rows", len(mappings), len(t.Rows))
	}

	n := len(mappings)
	transcripts := make([]string, n)
	starts := make([]string, n)
	ends := make([]string, n)
	chroms := make([]string, n)
	for i, m := range mappings {
		if m == nil {
			continue
		}
		transcripts[i] = m.TranscriptID
		starts[i] = strconv.FormatInt(m.GenomicStart, 10)
		ends[i] = strconv.FormatInt(m.GenomicEnd, 10)
		chroms[i] = m.Chrom
	}

	for _, c := range []struct {
		name   string
		values []string
	}{
		{ColTranscriptID, transcripts},
		{ColGenomicStart, starts},
		{ColGenomicEnd, ends},
	} {
		if err := setColumn(t, c.name, c.values); err != nil {
			return err
		}
	}

	if t.Index(ColChrom) == -1 {
		return t.AppendColumn(ColChrom, chroms)
	}
	return nil
}

func setColumn(t *table.Table, name string, values []string) error {
	i := t.Index(name)
	if i == -1 {
		return t.AppendColumn(name, values)
	}
	for r := range t.Rows {
		t.Rows[r][i] = values[r]
	}
	return nil
}

// parseCoord parses a coordinate cell. Integral floats ("112.0") are
// accepted since dataframe tools write integer columns with gaps as floats.
// ok is false for empty cells.
func parseCoord(s string) (v int64, ok bool, err error) {
	if s == "" {
		return 0, false, nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, true, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse coordinate %q", s)
	}
	if math.IsNaN(f) {
		return 0, false, nil
	}
	if f != math.Trunc(f) {
		return 0, false, fmt.Errorf("parse coordinate %q: not an integer", s)
	}
	return int64(f), true, nil
}

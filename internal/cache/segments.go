package cache

import (
	"fmt"
	"io"
	"strconv"

	"github.com/inodb/vibe-domains/internal/table"
)

// Columns of the parsed segment table.
const (
	ColChrom        = "chr"
	ColStart        = "start"
	ColEnd          = "end"
	ColStrand       = "strand"
	ColProteinID    = "protein_id"
	ColTranscriptID = "transcript_id"
)

// SegmentColumns is the header of the parsed segment table.
var SegmentColumns = []string{ColChrom, ColStart, ColEnd, ColStrand, ColProteinID, ColTranscriptID}

// SegmentTable converts segments to a table. Absent IDs become empty cells.
func SegmentTable(segments []CDSSegment) *table.Table {
	t := table.New(SegmentColumns...)
	t.Rows = make([][]string, 0, len(segments))
	for _, s := range segments {
		t.Rows = append(t.Rows, []string{
			s.Chrom,
			strconv.FormatInt(s.Start, 10),
			strconv.FormatInt(s.End, 10),
			FormatStrand(s.Strand),
			s.ProteinID,
			s.TranscriptID,
		})
	}
	return t
}

// WriteSegments writes segments as a tab-separated table with a header.
func WriteSegments(w io.Writer, segments []CDSSegment) error {
	return table.Write(w, SegmentTable(segments))
}

// SegmentsFromTable converts a parsed segment table back into segments.
// Missing columns and unparsable coordinates are malformed input.
func SegmentsFromTable(t *table.Table) ([]CDSSegment, error) {
	idx, err := t.Require(SegmentColumns...)
	if err != nil {
		return nil, err
	}
	iChrom, iStart, iEnd, iStrand, iProtein, iTranscript := idx[0], idx[1], idx[2], idx[3], idx[4], idx[5]

	segments := make([]CDSSegment, 0, len(t.Rows))
	for i, row := range t.Rows {
		// Header is line 1
		line := i + 2
		start, err := strconv.ParseInt(row[iStart], 10, 64)
		if err != nil {
			return nil, &table.ParseError{Line: line, Message: fmt.Sprintf("parse start %q", row[iStart])}
		}
		end, err := strconv.ParseInt(row[iEnd], 10, 64)
		if err != nil {
			return nil, &table.ParseError{Line: line, Message: fmt.Sprintf("parse end %q", row[iEnd])}
		}
		segments = append(segments, CDSSegment{
			Chrom:        row[iChrom],
			Start:        start,
			End:          end,
			Strand:       ParseStrand(row[iStrand]),
			ProteinID:    row[iProtein],
			TranscriptID: row[iTranscript],
		})
	}
	return segments, nil
}

// ReadSegmentsFile reads a parsed segment table from disk.
func ReadSegmentsFile(path string) ([]CDSSegment, error) {
	t, err := table.ReadFile(path)
	if err != nil {
		return nil, err
	}
	segs, err := SegmentsFromTable(t)
	if err != nil {
		return nil, table.WithSource(err, path)
	}
	return segs, nil
}

package cache

import (
	"sort"
)

// Index groups CDS segments into transcripts keyed by protein ID.
// It is built once and read-only afterwards, so concurrent lookups are safe.
type Index struct {
	// proteins stores transcripts per protein, sorted by transcript ID
	proteins    map[string][]*Transcript
	transcripts map[transcriptKey]*Transcript
	skipped     int
}

// transcriptKey scopes a transcript ID to its protein.
type transcriptKey struct {
	proteinID, transcriptID string
}

// BuildIndex groups segments by protein ID then transcript ID.
// Segments within a transcript are sorted by ascending start, ties kept in
// input order. Segments missing a protein or transcript ID are skipped.
func BuildIndex(segments []CDSSegment) *Index {
	ix := &Index{
		proteins:    make(map[string][]*Transcript),
		transcripts: make(map[transcriptKey]*Transcript),
	}

	for _, s := range segments {
		if s.ProteinID == "" || s.TranscriptID == "" {
			ix.skipped++
			continue
		}
		k := transcriptKey{s.ProteinID, s.TranscriptID}
		t, ok := ix.transcripts[k]
		if !ok {
			t = &Transcript{
				ID:        s.TranscriptID,
				ProteinID: s.ProteinID,
				Chrom:     s.Chrom,
				Strand:    s.Strand,
			}
			ix.transcripts[k] = t
			ix.proteins[s.ProteinID] = append(ix.proteins[s.ProteinID], t)
		}
		t.Segments = append(t.Segments, s)
	}

	for _, t := range ix.transcripts {
		sort.SliceStable(t.Segments, func(i, j int) bool {
			return t.Segments[i].Start < t.Segments[j].Start
		})
	}
	for _, ts := range ix.proteins {
		sort.Slice(ts, func(i, j int) bool {
			return ts[i].ID < ts[j].ID
		})
	}

	return ix
}

// Transcripts returns the transcripts of a protein in ascending
// transcript ID order, or nil if the protein is not indexed.
func (ix *Index) Transcripts(proteinID string) []*Transcript {
	return ix.proteins[proteinID]
}

// ProteinCount returns the number of indexed proteins.
func (ix *Index) ProteinCount() int {
	return len(ix.proteins)
}

// TranscriptCount returns the number of indexed transcripts.
func (ix *Index) TranscriptCount() int {
	return len(ix.transcripts)
}

// Skipped returns the number of segments excluded for lacking an ID.
func (ix *Index) Skipped() int {
	return ix.skipped
}

// Package cache provides the CDS segment model and the per-protein
// transcript index used for coordinate mapping.
package cache

// CDSSegment is one coding-sequence record from an annotation file.
type CDSSegment struct {
	Chrom        string // Chromosome
	Start        int64  // Genomic start (1-based)
	End          int64  // Genomic end (1-based, inclusive)
	Strand       int8   // +1, -1, or 0 if unknown
	ProteinID    string // Protein ID, empty if absent
	TranscriptID string // Parent transcript ID, empty if absent
}

// Length returns the nucleotide length of the segment.
func (s CDSSegment) Length() int64 {
	return s.End - s.Start + 1
}

// Transcript is the ordered set of CDS segments of one protein isoform.
type Transcript struct {
	ID        string       // Transcript ID
	ProteinID string       // Protein ID
	Chrom     string       // Chromosome of the first segment
	Strand    int8         // Strand of the first segment
	Segments  []CDSSegment // Sorted ascending by Start
}

// IsReverseStrand returns true if the transcript is on the reverse strand.
func (t *Transcript) IsReverseStrand() bool {
	return t.Strand == -1
}

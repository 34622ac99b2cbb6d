// Package mapping maps protein amino-acid intervals to genomic intervals
// by walking the CDS segments of a protein's transcripts.
package mapping

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/vibe-domains/internal/cache"
)

// TranscriptLookup defines the interface for finding a protein's transcripts.
// Implementations must return transcripts in a deterministic order.
type TranscriptLookup interface {
	Transcripts(proteinID string) []*cache.Transcript
}

// Order selects how a transcript's segments are walked.
type Order int

const (
	// OrderGenomic walks segments by ascending genomic start on both strands.
	OrderGenomic Order = iota
	// OrderStrandAware walks minus-strand segments by descending start and
	// measures codon offsets from each segment's end.
	OrderStrandAware
)

func (o Order) String() string {
	switch o {
	case OrderStrandAware:
		return "strand"
	default:
		return "genomic"
	}
}

// ParseOrder parses "genomic" or "strand" (case-insensitive).
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(s) {
	case "", "genomic":
		return OrderGenomic, nil
	case "strand", "strand-aware":
		return OrderStrandAware, nil
	}
	return OrderGenomic, fmt.Errorf("unknown segment order %q (want genomic or strand)", s)
}

// Mapping is the genomic interval an amino-acid interval maps to.
type Mapping struct {
	TranscriptID string // Transcript the mapping was computed against
	Chrom        string // Chromosome of that transcript
	GenomicStart int64
	GenomicEnd   int64
}

// Mapper maps amino-acid intervals to genomic coordinates.
// It holds no mutable state, so a single Mapper may serve many goroutines.
type Mapper struct {
	index  TranscriptLookup
	order  Order
	logger *zap.Logger
}

// NewMapper creates a mapper over the given transcript index.
func NewMapper(ix TranscriptLookup) *Mapper {
	return &Mapper{
		index:  ix,
		logger: zap.NewNop(),
	}
}

// SetOrder configures how segments are walked.
func (m *Mapper) SetOrder(o Order) {
	m.order = o
}

// SetLogger sets the logger for debug messages about unmapped queries.
func (m *Mapper) SetLogger(l *zap.Logger) {
	m.logger = l
}

// Map maps the interval string aaCoords on a protein.
// It returns nil if the string does not parse, the protein has no
// transcripts, or no transcript covers both ends of the interval.
func (m *Mapper) Map(proteinID, aaCoords string) *Mapping {
	iv, err := ParseInterval(aaCoords)
	if err != nil {
		m.logger.Debug("unparsable interval",
			zap.String("protein_id", proteinID),
			zap.String("aa_coords", aaCoords))
		return nil
	}
	return m.MapInterval(proteinID, iv)
}

// MapInterval maps a parsed interval on a protein. Transcripts are tried in
// index order and the first one covering both endpoints wins.
func (m *Mapper) MapInterval(proteinID string, iv Interval) *Mapping {
	transcripts := m.index.Transcripts(proteinID)
	if len(transcripts) == 0 {
		m.logger.Debug("protein not in index", zap.String("protein_id", proteinID))
		return nil
	}

	for _, t := range transcripts {
		if res := m.mapTranscript(t, iv); res != nil {
			return res
		}
	}

	m.logger.Debug("no transcript covers interval",
		zap.String("protein_id", proteinID),
		zap.Stringer("interval", iv),
		zap.Int("transcripts", len(transcripts)))
	return nil
}

// mapTranscript maps an interval on a single transcript, or returns nil if
// its segments do not reach both endpoints.
func (m *Mapper) mapTranscript(t *cache.Transcript, iv Interval) *Mapping {
	reverse := m.order == OrderStrandAware && t.IsReverseStrand()

	var (
		genomicStart, genomicEnd int64
		startFound, endFound     bool
	)

	aaPos := int64(1)
	n := len(t.Segments)
	for i := range n {
		s := t.Segments[i]
		if reverse {
			s = t.Segments[n-1-i]
		}
		aaLen := AminoAcidLength(s)

		if iv.Start >= aaPos && iv.Start < aaPos+aaLen {
			genomicStart = codonPosition(s, iv.Start-aaPos, reverse)
			startFound = true
		}
		if iv.End >= aaPos && iv.End < aaPos+aaLen {
			genomicEnd = codonPosition(s, iv.End-aaPos, reverse)
			endFound = true
			break
		}

		aaPos += aaLen
	}

	if !startFound || !endFound {
		return nil
	}
	if genomicStart > genomicEnd {
		genomicStart, genomicEnd = genomicEnd, genomicStart
	}
	return &Mapping{
		TranscriptID: t.ID,
		Chrom:        t.Chrom,
		GenomicStart: genomicStart,
		GenomicEnd:   genomicEnd,
	}
}

// codonPosition returns the genomic position of the first base of the codon
// at the given amino-acid offset within a segment.
func codonPosition(s cache.CDSSegment, offset int64, reverse bool) int64 {
	if reverse {
		return s.End - offset*3
	}
	return s.Start + offset*3
}

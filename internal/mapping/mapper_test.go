package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-domains/internal/cache"
)

func cds(start, end int64, protein, transcript string) cache.CDSSegment {
	return cache.CDSSegment{Chrom: "chr1", Start: start, End: end, Strand: 1, ProteinID: protein, TranscriptID: transcript}
}

func reverseCDS(start, end int64, protein, transcript string) cache.CDSSegment {
	s := cds(start, end, protein, transcript)
	s.Strand = -1
	return s
}

func newMapper(segs ...cache.CDSSegment) *Mapper {
	return NewMapper(cache.BuildIndex(segs))
}

func TestMap_SingleSegmentScenario(t *testing.T) {
	m := newMapper(cds(100, 109, "P", "T1"))

	got := m.Map("P", "1-3")
	require.NotNil(t, got)
	assert.Equal(t, &Mapping{TranscriptID: "T1", Chrom: "chr1", GenomicStart: 100, GenomicEnd: 106}, got)
}

func TestMap_SingleExonIdentity(t *testing.T) {
	tests := []struct {
		start, end int64
	}{
		{100, 399},
		{1000, 1001 + 3*57},
		{7, 7 + 3*5 + 1},
	}

	for _, tt := range tests {
		s := cds(tt.start, tt.end, "P", "T1")
		l := AminoAcidLength(s)
		m := newMapper(s)

		got := m.MapInterval("P", Interval{Start: 1, End: l})
		require.NotNil(t, got, "segment [%d,%d]", tt.start, tt.end)
		assert.Equal(t, tt.start, got.GenomicStart)
		assert.Equal(t, tt.start+(l-1)*3, got.GenomicEnd)
	}
}

func TestMap_MultiExonContinuity(t *testing.T) {
	// L1 = 10, L2 = 10
	m := newMapper(
		cds(200, 229, "P", "T1"),
		cds(100, 129, "P", "T1"),
	)

	tests := []struct {
		name      string
		coords    string
		wantStart int64
		wantEnd   int64
	}{
		{"spans both segments", "5-15", 112, 212},
		{"ends at first aa of segment 2", "10-11", 127, 200},
		{"entirely in segment 2", "11-20", 200, 227},
		{"entirely in segment 1", "1-10", 100, 127},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Map("P", tt.coords)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantStart, got.GenomicStart)
			assert.Equal(t, tt.wantEnd, got.GenomicEnd)
		})
	}
}

func TestMap_PartialCodonTruncation(t *testing.T) {
	// 11 nt -> 3 aa; the trailing 2 nt do not count toward aa positions.
	m := newMapper(
		cds(100, 110, "P", "T1"),
		cds(200, 208, "P", "T1"),
	)

	got := m.Map("P", "4-4")
	require.NotNil(t, got)
	assert.Equal(t, int64(200), got.GenomicStart)
	assert.Equal(t, int64(200), got.GenomicEnd)

	assert.Nil(t, m.Map("P", "4-7"), "only 6 whole codons are available")
}

func TestMap_BoundaryZero(t *testing.T) {
	m := newMapper(cds(0, 29, "P", "T1"))

	got := m.Map("P", "1-2")
	require.NotNil(t, got, "coordinate 0 is a found value")
	assert.Equal(t, int64(0), got.GenomicStart)
	assert.Equal(t, int64(3), got.GenomicEnd)
}

func TestMap_Absent(t *testing.T) {
	m := newMapper(cds(100, 129, "P", "T1"))

	tests := []struct {
		name      string
		proteinID string
		coords    string
	}{
		{"unknown protein", "Q", "1-2"},
		{"non-numeric", "P", "abc"},
		{"empty", "P", ""},
		{"trailing text", "P", "1-3x"},
		{"leading space", "P", " 1-3"},
		{"zero start", "P", "0-3"},
		{"start after end", "P", "5-3"},
		{"beyond coding sequence", "P", "5-11"},
		{"overflow", "P", "1-99999999999999999999"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, m.Map(tt.proteinID, tt.coords))
		})
	}
}

func TestMap_FirstCoveringTranscriptWins(t *testing.T) {
	m := newMapper(
		// T2 inserted first but sorts after T1
		cds(1000, 1089, "P", "T2"),
		cds(100, 108, "P", "T1"),
		cds(5000, 5089, "P", "T3"),
	)

	// T1 has 3 aa and cannot cover 1-10; T2 is the first that does.
	got := m.Map("P", "1-10")
	require.NotNil(t, got)
	assert.Equal(t, "T2", got.TranscriptID)
	assert.Equal(t, int64(1000), got.GenomicStart)

	// Both T1 and T2 cover 1-2; T1 sorts first.
	got = m.Map("P", "2-3")
	require.NotNil(t, got)
	assert.Equal(t, "T1", got.TranscriptID)
	assert.Equal(t, int64(103), got.GenomicStart)
	assert.Equal(t, int64(106), got.GenomicEnd)
}

func TestMap_StopsAtEndSegment(t *testing.T) {
	// The end position is taken from the first segment that contains it.
	m := newMapper(
		cds(100, 129, "P", "T1"),
		cds(200, 229, "P", "T1"),
	)
	got := m.Map("P", "3-3")
	require.NotNil(t, got)
	assert.Equal(t, int64(106), got.GenomicStart)
	assert.Equal(t, int64(106), got.GenomicEnd)
}

func TestMap_Determinism(t *testing.T) {
	segs := []cache.CDSSegment{
		cds(100, 129, "P", "T2"),
		cds(200, 229, "P", "T2"),
		cds(300, 359, "P", "T1"),
	}
	reversed := []cache.CDSSegment{segs[2], segs[1], segs[0]}

	a := newMapper(segs...)
	b := newMapper(reversed...)

	for _, coords := range []string{"1-5", "5-15", "1-20", "15-19"} {
		first := a.Map("P", coords)
		assert.Equal(t, first, a.Map("P", coords), "repeat %s", coords)
		assert.Equal(t, first, b.Map("P", coords), "input order %s", coords)
	}
}

func TestMap_StrandOrder(t *testing.T) {
	segs := []cache.CDSSegment{
		reverseCDS(100, 129, "P", "T1"),
		reverseCDS(200, 229, "P", "T1"),
	}

	genomic := newMapper(segs...)
	got := genomic.Map("P", "1-12")
	require.NotNil(t, got)
	assert.Equal(t, int64(100), got.GenomicStart)
	assert.Equal(t, int64(203), got.GenomicEnd)

	stranded := newMapper(segs...)
	stranded.SetOrder(OrderStrandAware)
	got = stranded.Map("P", "1-12")
	require.NotNil(t, got)
	assert.Equal(t, int64(126), got.GenomicStart, "aa 12 is the second codon of the lower segment")
	assert.Equal(t, int64(229), got.GenomicEnd, "aa 1 starts at the end of the upper segment")

	// Plus-strand transcripts are unaffected by the order setting.
	plus := newMapper(cds(100, 129, "Q", "T1"), cds(200, 229, "Q", "T1"))
	plus.SetOrder(OrderStrandAware)
	got = plus.Map("Q", "1-12")
	require.NotNil(t, got)
	assert.Equal(t, int64(100), got.GenomicStart)
	assert.Equal(t, int64(203), got.GenomicEnd)
}

func TestParseOrder(t *testing.T) {
	o, err := ParseOrder("")
	require.NoError(t, err)
	assert.Equal(t, OrderGenomic, o)

	o, err = ParseOrder("Strand")
	require.NoError(t, err)
	assert.Equal(t, OrderStrandAware, o)
	assert.Equal(t, "strand", o.String())

	_, err = ParseOrder("reverse")
	assert.Error(t, err)
}

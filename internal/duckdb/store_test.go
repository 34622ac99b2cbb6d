package duckdb

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-domains/internal/mapping"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleResults() []DomainResult {
	return []DomainResult{
		{
			Row: 0, ProteinID: "NP_009225.1", Domain: "RING", AACoords: "24-64",
			Mapping: &mapping.Mapping{TranscriptID: "rna-NM_007294.4", Chrom: "chr17", GenomicStart: 43124017, GenomicEnd: 43124096},
		},
		{Row: 1, ProteinID: "NP_009225.1", Domain: "BRCT", AACoords: "abc"},
		{
			Row: 2, ProteinID: "NP_000537.3", Domain: "DBD", AACoords: "1-2",
			Mapping: &mapping.Mapping{TranscriptID: "rna-NM_000546.6", Chrom: "chr17", GenomicStart: 0, GenomicEnd: 3},
		},
	}
}

func TestOpenClose(t *testing.T) {
	s := openInMemory(t)
	runs, err := s.Runs()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestOpen_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "domains.duckdb")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestWriteAndLookupDomains(t *testing.T) {
	s := openInMemory(t)

	require.NoError(t, s.WriteDomainResults("BRCA1", sampleResults()))

	got, err := s.LookupDataset("BRCA1")
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "BRCA1", got[0].Dataset)
	assert.Equal(t, "RING", got[0].Domain)
	require.NotNil(t, got[0].Mapping)
	assert.Equal(t, int64(43124017), got[0].Mapping.GenomicStart)

	assert.Nil(t, got[1].Mapping, "unmapped rows stored with NULL coordinates")
	assert.Equal(t, "abc", got[1].AACoords)

	require.NotNil(t, got[2].Mapping, "zero coordinate is not NULL")
	assert.Equal(t, int64(0), got[2].Mapping.GenomicStart)

	byProtein, err := s.LookupProtein("NP_009225.1")
	require.NoError(t, err)
	require.Len(t, byProtein, 2)
	assert.Equal(t, 0, byProtein[0].Row)
	assert.Equal(t, 1, byProtein[1].Row)

	none, err := s.LookupProtein("NP_UNKNOWN")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestWriteDomainResults_ReplacesDataset(t *testing.T) {
	s := openInMemory(t)

	require.NoError(t, s.WriteDomainResults("BRCA1", sampleResults()))
	require.NoError(t, s.WriteDomainResults("TP53", sampleResults()[2:]))
	require.NoError(t, s.WriteDomainResults("BRCA1", sampleResults()[:1]))

	got, err := s.LookupDataset("BRCA1")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	other, err := s.LookupDataset("TP53")
	require.NoError(t, err)
	assert.Len(t, other, 1, "other datasets untouched")

	require.NoError(t, s.WriteDomainResults("BRCA1", nil))
	got, err = s.LookupDataset("BRCA1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWriteDomainResults_FailureKeepsPreviousRows(t *testing.T) {
	s := openInMemory(t)
	require.NoError(t, s.WriteDomainResults("BRCA1", sampleResults()))

	// Duplicate row index violates the primary key
	dup := sampleResults()
	dup[1].Row = dup[0].Row
	require.Error(t, s.WriteDomainResults("BRCA1", dup))

	got, err := s.LookupDataset("BRCA1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "RING", got[0].Domain)

	// The connection is usable after the rollback
	require.NoError(t, s.WriteDomainResults("BRCA1", sampleResults()[:1]))
	got, err = s.LookupDataset("BRCA1")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestRunRecords(t *testing.T) {
	s := openInMemory(t)

	in := RunInputs{
		GFF:    FileFingerprint{Path: "a.gff", Size: 100, ModTime: time.Date(2025, 2, 16, 10, 0, 0, 0, time.UTC)},
		Counts: FileFingerprint{Path: "a.tsv", Size: 50, ModTime: time.Date(2025, 2, 16, 11, 0, 0, 0, time.UTC)},
		Order:  "genomic",
	}

	ok, err := s.UpToDate("BRCA1", in)
	require.NoError(t, err)
	assert.False(t, ok, "no record yet")

	require.NoError(t, s.RecordRun("BRCA1", in, 3, 2))

	ok, err = s.UpToDate("BRCA1", in)
	require.NoError(t, err)
	assert.True(t, ok)

	changed := in
	changed.Counts.Size = 51
	ok, err = s.UpToDate("BRCA1", changed)
	require.NoError(t, err)
	assert.False(t, ok)

	strand := in
	strand.Order = "strand"
	ok, err = s.UpToDate("BRCA1", strand)
	require.NoError(t, err)
	assert.False(t, ok, "segment order is part of the inputs")

	// Re-recording replaces the previous record
	require.NoError(t, s.RecordRun("BRCA1", strand, 4, 4))
	runs, err := s.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "strand", runs[0].Order)
	assert.Equal(t, 4, runs[0].TotalRows)
	assert.Equal(t, 4, runs[0].MappedRows)

	require.NoError(t, s.ClearDataset("BRCA1"))
	runs, err = s.Runs()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestStatFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.tsv")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0644))

	fp, err := StatFile(path)
	require.NoError(t, err)
	assert.Equal(t, int64(3), fp.Size)
	assert.Equal(t, path, fp.Path)

	_, err = StatFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

// Package pipeline runs the protein-domain track stages over directories:
// GFF parsing, count processing, coordinate mapping, BED/bedGraph
// generation and bigBed/bigWig conversion.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/vibe-domains/internal/cache"
	"github.com/inodb/vibe-domains/internal/duckdb"
	"github.com/inodb/vibe-domains/internal/mapping"
	"github.com/inodb/vibe-domains/internal/output"
	"github.com/inodb/vibe-domains/internal/table"
	"github.com/inodb/vibe-domains/internal/track"
)

// File name suffixes of the intermediate and final artifacts.
const (
	parsedGFFSuffix     = "_parsed_gff.tsv"
	countsSuffix        = "_processed_counts.tsv"
	mappedSuffix        = "_mapped_coordinates.tsv"
	domainsBEDSuffix    = "_domains.bed"
	domainsBigBedSuffix = "_domains.bb"
)

// DefaultSampleOffset is the column index at which sample counts start.
const DefaultSampleOffset = 5

// Layout names the input and output directories of a run.
type Layout struct {
	GFFDir      string // GFF annotation files
	MatricesDir string // raw count matrices (CSV)
	OutputDir   string // root of all outputs
}

// DefaultLayout returns the layout relative to the working directory.
func DefaultLayout() Layout {
	return Layout{
		GFFDir:      filepath.Join("data", "protein_domain_coordinates"),
		MatricesDir: filepath.Join("data", "protein_matrices"),
		OutputDir:   "output",
	}
}

// ParsedGFFDir holds <name>_parsed_gff.tsv files.
func (l Layout) ParsedGFFDir() string { return filepath.Join(l.OutputDir, "parsed_gff") }

// ProcessedCountsDir holds <protein>_processed_counts.tsv files.
func (l Layout) ProcessedCountsDir() string { return filepath.Join(l.OutputDir, "processed_counts") }

// MappedDir holds <name>_mapped_coordinates.tsv files.
func (l Layout) MappedDir() string { return filepath.Join(l.OutputDir, "mapped_coordinates") }

// Options tune the mapping and track stages.
type Options struct {
	Workers      int           // mapping and conversion workers, 0 = NumCPU
	Order        mapping.Order // segment walk order
	SampleOffset int           // first sample column in mapped tables
	Force        bool          // re-map datasets even if the store says they are current
}

// Pipeline runs the stages for one layout.
type Pipeline struct {
	layout    Layout
	opts      Options
	converter *track.Converter
	store     *duckdb.Store
	logger    *zap.Logger
}

// New creates a pipeline. Tracks are converted with the default converter
// until SetConverter is called.
func New(layout Layout, opts Options) *Pipeline {
	return &Pipeline{
		layout:    layout,
		opts:      opts,
		converter: track.NewConverter(""),
		logger:    zap.NewNop(),
	}
}

// SetConverter sets the converter used for bigBed and bigWig output.
func (p *Pipeline) SetConverter(c *track.Converter) {
	p.converter = c
}

// SetStore enables recording mapped rows in DuckDB.
func (p *Pipeline) SetStore(s *duckdb.Store) {
	p.store = s
}

// SetLogger sets the logger for progress and warning messages.
func (p *Pipeline) SetLogger(l *zap.Logger) {
	p.logger = l
}

// Run executes every stage in order.
func (p *Pipeline) Run(ctx context.Context) error {
	if _, err := p.ParseGFF(); err != nil {
		return fmt.Errorf("parse GFF: %w", err)
	}
	if _, err := p.ProcessCounts(); err != nil {
		return fmt.Errorf("process counts: %w", err)
	}
	if _, err := p.MapCoordinates(); err != nil {
		return fmt.Errorf("map coordinates: %w", err)
	}
	if _, err := p.GenerateBED(); err != nil {
		return fmt.Errorf("generate BED: %w", err)
	}
	if _, err := p.ConvertBigBed(ctx); err != nil {
		return fmt.Errorf("convert bigBed: %w", err)
	}
	if _, err := p.GenerateBigWig(ctx); err != nil {
		return fmt.Errorf("generate bigWig: %w", err)
	}
	return nil
}

// ParseGFF writes the CDS segments of every GFF file as a parsed segment
// table and returns the written paths.
func (p *Pipeline) ParseGFF() ([]string, error) {
	files, err := globAll(p.layout.GFFDir, "*.gff", "*.gff3", "*.gff.gz", "*.gff3.gz")
	if err != nil {
		return nil, err
	}
	outDir := p.layout.ParsedGFFDir()
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	var written []string
	for _, f := range files {
		segs, err := cache.NewGFFLoader(f).Load()
		if err != nil {
			return written, err
		}
		out := filepath.Join(outDir, gffName(f)+parsedGFFSuffix)
		var buf bytes.Buffer
		if err := cache.WriteSegments(&buf, segs); err != nil {
			return written, err
		}
		changed, err := writeIfChanged(out, buf.Bytes())
		if err != nil {
			return written, err
		}
		p.logger.Info("parsed GFF",
			zap.String("input", f),
			zap.String("output", out),
			zap.Int("cds_segments", len(segs)),
			zap.Bool("changed", changed))
		written = append(written, out)
	}
	return written, nil
}

// ProcessCounts renames the standard columns of every count matrix and
// writes it tab-separated. Returns the written paths.
func (p *Pipeline) ProcessCounts() ([]string, error) {
	files, err := globAll(p.layout.MatricesDir, "*.csv", "*.csv.gz")
	if err != nil {
		return nil, err
	}
	outDir := p.layout.ProcessedCountsDir()
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	var written []string
	for _, f := range files {
		t, err := table.ReadFile(f)
		if err != nil {
			return written, err
		}
		if err := table.ProcessCounts(t); err != nil {
			return written, table.WithSource(err, f)
		}
		out := filepath.Join(outDir, table.ProteinName(f)+countsSuffix)
		var buf bytes.Buffer
		if err := table.Write(&buf, t); err != nil {
			return written, err
		}
		changed, err := writeIfChanged(out, buf.Bytes())
		if err != nil {
			return written, err
		}
		p.logger.Info("processed counts",
			zap.String("input", f),
			zap.String("output", out),
			zap.Int("rows", len(t.Rows)),
			zap.Bool("changed", changed))
		written = append(written, out)
	}
	return written, nil
}

// MapStats summarizes the mapping of one dataset.
type MapStats struct {
	Dataset string
	Rows    int
	Mapped  int
	Skipped bool // inputs unchanged since the last recorded run
}

// MapCoordinates maps every dataset that has both a parsed GFF table and a
// processed count table. Datasets without a count table are skipped.
func (p *Pipeline) MapCoordinates() ([]MapStats, error) {
	files, err := globAll(p.layout.ParsedGFFDir(), "*"+parsedGFFSuffix)
	if err != nil {
		return nil, err
	}
	outDir := p.layout.MappedDir()
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	var stats []MapStats
	for _, f := range files {
		name := strings.TrimSuffix(filepath.Base(f), parsedGFFSuffix)
		counts := filepath.Join(p.layout.ProcessedCountsDir(), name+countsSuffix)
		if _, err := os.Stat(counts); err != nil {
			p.logger.Warn("skipping dataset: no matching counts file",
				zap.String("dataset", name),
				zap.String("counts", counts))
			continue
		}
		out := filepath.Join(outDir, name+mappedSuffix)
		st, err := p.MapDataset(name, f, counts, out)
		if err != nil {
			return stats, err
		}
		stats = append(stats, st)
	}
	return stats, nil
}

// MapDataset maps one count table against one parsed segment table and
// writes the mapped table to outPath. With a store, a dataset whose inputs
// and segment order match the last recorded run is skipped unless forced.
func (p *Pipeline) MapDataset(name, segmentsPath, countsPath, outPath string) (MapStats, error) {
	st := MapStats{Dataset: name}

	in := duckdb.RunInputs{Order: p.opts.Order.String()}
	if p.store != nil {
		var err error
		if in.GFF, err = duckdb.StatFile(segmentsPath); err != nil {
			return st, err
		}
		if in.Counts, err = duckdb.StatFile(countsPath); err != nil {
			return st, err
		}
		if p.opts.Force {
			if err := p.store.ClearDataset(name); err != nil {
				return st, err
			}
		} else {
			current, err := p.store.UpToDate(name, in)
			if err != nil {
				return st, err
			}
			if _, statErr := os.Stat(outPath); current && statErr == nil {
				p.logger.Info("dataset up to date", zap.String("dataset", name))
				st.Skipped = true
				return st, nil
			}
		}
	}

	segs, err := cache.ReadSegmentsFile(segmentsPath)
	if err != nil {
		return st, err
	}
	ix := cache.BuildIndex(segs)
	if ix.Skipped() > 0 {
		p.logger.Debug("segments without protein or transcript ID",
			zap.String("dataset", name),
			zap.Int("skipped", ix.Skipped()))
	}

	t, err := table.ReadFile(countsPath)
	if err != nil {
		return st, err
	}
	idx, err := t.Require(table.ColProteinID, table.ColAACoords)
	if err != nil {
		return st, table.WithSource(err, countsPath)
	}
	iProtein, iCoords := idx[0], idx[1]

	queries := make([]mapping.Query, len(t.Rows))
	for i, row := range t.Rows {
		queries[i] = mapping.Query{ProteinID: row[iProtein], AACoords: row[iCoords]}
	}

	m := mapping.NewMapper(ix)
	m.SetOrder(p.opts.Order)
	m.SetLogger(p.logger.With(zap.String("dataset", name)))
	mappings := m.MapAll(queries, p.opts.Workers)

	st.Rows = len(mappings)
	for _, mp := range mappings {
		if mp != nil {
			st.Mapped++
		}
	}

	if p.store != nil {
		if err := p.storeResults(name, t, mappings); err != nil {
			return st, err
		}
		if err := p.store.RecordRun(name, in, st.Rows, st.Mapped); err != nil {
			return st, err
		}
	}

	if err := output.AppendMappings(t, mappings); err != nil {
		return st, err
	}
	if err := table.WriteFile(outPath, t); err != nil {
		return st, err
	}

	p.logger.Info("mapped coordinates",
		zap.String("dataset", name),
		zap.String("output", outPath),
		zap.Int("rows", st.Rows),
		zap.Int("mapped", st.Mapped),
		zap.Int("proteins", ix.ProteinCount()),
		zap.Int("transcripts", ix.TranscriptCount()),
		zap.Stringer("order", p.opts.Order))
	return st, nil
}

func (p *Pipeline) storeResults(name string, t *table.Table, mappings []*mapping.Mapping) error {
	iProtein, iDomain, iCoords := t.Index(table.ColProteinID), t.Index(table.ColDomain), t.Index(table.ColAACoords)
	cell := func(row []string, i int) string {
		if i < 0 {
			return ""
		}
		return row[i]
	}

	results := make([]duckdb.DomainResult, len(t.Rows))
	for i, row := range t.Rows {
		results[i] = duckdb.DomainResult{
			Dataset:   name,
			Row:       i,
			ProteinID: cell(row, iProtein),
			Domain:    cell(row, iDomain),
			AACoords:  cell(row, iCoords),
			Mapping:   mappings[i],
		}
	}
	return p.store.WriteDomainResults(name, results)
}

// mappedTables returns the dataset names and paths of the mapped tables,
// sorted by path.
func (p *Pipeline) mappedTables() ([]string, []string, error) {
	files, err := globAll(p.layout.MappedDir(), "*"+mappedSuffix)
	if err != nil {
		return nil, nil, err
	}
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = strings.TrimSuffix(filepath.Base(f), mappedSuffix)
	}
	return names, files, nil
}

// writeIfChanged writes data to path unless the file already holds exactly
// that content, so unchanged intermediates keep their modification time.
func writeIfChanged(path string, data []byte) (bool, error) {
	if old, err := os.ReadFile(path); err == nil && bytes.Equal(old, data) {
		return false, nil
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}

// globAll returns the sorted, de-duplicated matches of several patterns in dir.
// A missing directory yields no matches.
func globAll(dir string, patterns ...string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, pat := range patterns {
		matches, err := filepath.Glob(filepath.Join(dir, pat))
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", pat, err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// gffName strips the directory and the .gff/.gff3(.gz) extension.
func gffName(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), ".gz")
	for _, ext := range []string{".gff3", ".gff"} {
		if strings.HasSuffix(base, ext) {
			return strings.TrimSuffix(base, ext)
		}
	}
	return base
}

package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/inodb/vibe-domains/internal/output"
	"github.com/inodb/vibe-domains/internal/table"
)

// GenerateBED writes one sorted BED file of domain intervals per mapped
// table and returns the written paths.
func (p *Pipeline) GenerateBED() ([]string, error) {
	names, files, err := p.mappedTables()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(p.layout.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	var written []string
	for i, f := range files {
		out := filepath.Join(p.layout.OutputDir, names[i]+domainsBEDSuffix)
		n, err := WriteBEDFile(f, out)
		if err != nil {
			return written, err
		}
		p.logger.Info("wrote BED", zap.String("output", out), zap.Int("records", n))
		written = append(written, out)
	}
	return written, nil
}

// WriteBEDFile converts a mapped table into a sorted BED file and returns
// the number of records written.
func WriteBEDFile(mappedPath, outPath string) (int, error) {
	t, err := table.ReadFile(mappedPath)
	if err != nil {
		return 0, err
	}
	records, _, err := output.BEDRecords(t)
	if err != nil {
		return 0, table.WithSource(err, mappedPath)
	}
	output.SortBED(records)

	f, err := os.Create(outPath)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", outPath, err)
	}
	defer f.Close()

	bw := output.NewBEDWriter(f)
	for _, r := range records {
		if err := bw.Write(r); err != nil {
			return 0, err
		}
	}
	if err := bw.Flush(); err != nil {
		return 0, err
	}
	return len(records), f.Close()
}

// ConvertBigBed converts every <name>_domains.bed in the output directory
// into <name>_domains.bb.
func (p *Pipeline) ConvertBigBed(ctx context.Context) ([]string, error) {
	files, err := globAll(p.layout.OutputDir, "*"+domainsBEDSuffix)
	if err != nil {
		return nil, err
	}

	var written []string
	for _, f := range files {
		out := strings.TrimSuffix(f, domainsBEDSuffix) + domainsBigBedSuffix
		if err := p.converter.BedToBigBed(ctx, f, out); err != nil {
			return written, err
		}
		written = append(written, out)
	}
	return written, nil
}

// GenerateBigWig writes a bedGraph per sample column of every mapped
// table and converts each into a bigWig. Conversions of one dataset run
// concurrently, bounded by the worker count.
func (p *Pipeline) GenerateBigWig(ctx context.Context) ([]string, error) {
	names, files, err := p.mappedTables()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(p.layout.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	offset := p.opts.SampleOffset
	if offset <= 0 {
		offset = DefaultSampleOffset
	}
	workers := p.opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var written []string
	for i, f := range files {
		t, err := table.ReadFile(f)
		if err != nil {
			return written, err
		}
		samples := output.SampleColumns(t.Header, offset)
		if len(samples) == 0 {
			p.logger.Warn("no sample columns", zap.String("dataset", names[i]), zap.Int("offset", offset))
			continue
		}

		bigWigs := make([]string, len(samples))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for j, sample := range samples {
			base := filepath.Join(p.layout.OutputDir, names[i]+"_"+sampleFileName(sample))
			bedGraph, bigWig := base+".bedGraph", base+".bw"
			if err := writeBedGraph(t, sample, bedGraph); err != nil {
				g.Wait()
				return written, table.WithSource(err, f)
			}
			g.Go(func() error {
				if err := p.converter.BedGraphToBigWig(gctx, bedGraph, bigWig); err != nil {
					return err
				}
				bigWigs[j] = bigWig
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return written, err
		}
		written = append(written, bigWigs...)
		p.logger.Info("wrote bigWig tracks", zap.String("dataset", names[i]), zap.Int("samples", len(samples)))
	}
	return written, nil
}

func writeBedGraph(t *table.Table, sample, outPath string) error {
	records, _, err := output.BedGraphRecords(t, sample)
	if err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", outPath, err)
	}
	defer f.Close()

	gw := output.NewBedGraphWriter(f)
	for _, r := range records {
		if err := gw.Write(r); err != nil {
			return err
		}
	}
	if err := gw.Flush(); err != nil {
		return err
	}
	return f.Close()
}

// sampleFileName makes a sample column name safe to use in a file name.
func sampleFileName(sample string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ' ', '\t':
			return '_'
		}
		return r
	}, sample)
}

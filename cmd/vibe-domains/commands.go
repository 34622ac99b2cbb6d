package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-domains/internal/duckdb"
	"github.com/inodb/vibe-domains/internal/mapping"
	"github.com/inodb/vibe-domains/internal/pipeline"
	"github.com/inodb/vibe-domains/internal/track"
)

// newPipeline builds a pipeline from the current configuration. The
// returned close function releases the result store, if one is open.
func newPipeline(force bool) (*pipeline.Pipeline, func(), error) {
	order, err := mapping.ParseOrder(viper.GetString("mapping.order"))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errUsage, err)
	}

	p := pipeline.New(pipeline.Layout{
		GFFDir:      viper.GetString("paths.gff_dir"),
		MatricesDir: viper.GetString("paths.matrices_dir"),
		OutputDir:   viper.GetString("paths.output_dir"),
	}, pipeline.Options{
		Workers:      viper.GetInt("mapping.workers"),
		Order:        order,
		SampleOffset: viper.GetInt("samples.column_offset"),
		Force:        force,
	})
	p.SetLogger(logger)

	conv := track.NewConverter(viper.GetString("paths.chrom_sizes"))
	conv.SetBinaries(viper.GetString("tools.bed_to_bigbed"), viper.GetString("tools.bedgraph_to_bigwig"))
	conv.SetLogger(logger)
	p.SetConverter(conv)

	closeFn := func() {}
	if dbPath := viper.GetString("db.path"); dbPath != "" {
		store, err := duckdb.Open(dbPath)
		if err != nil {
			return nil, nil, err
		}
		logger.Debug("recording results", zap.String("db", dbPath))
		p.SetStore(store)
		closeFn = func() { store.Close() }
	}
	return p, closeFn, nil
}

func newParseGFFCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse-gff",
		Short: "Extract CDS segments from GFF files",
		Long:  "Parse every GFF file in the GFF directory and write its CDS segments to <output>/parsed_gff.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, closeFn, err := newPipeline(false)
			if err != nil {
				return err
			}
			defer closeFn()
			_, err = p.ParseGFF()
			return err
		},
	}
}

func newCountsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "counts",
		Short: "Normalize count matrices",
		Long:  "Rename the protein, domain and coordinate columns of every count matrix and write it to <output>/processed_counts.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, closeFn, err := newPipeline(false)
			if err != nil {
				return err
			}
			defer closeFn()
			_, err = p.ProcessCounts()
			return err
		},
	}
}

func newMapCmd() *cobra.Command {
	var (
		force      bool
		segments   string
		counts     string
		outputFile string
	)

	cmd := &cobra.Command{
		Use:   "map",
		Short: "Map domain amino-acid intervals to genomic coordinates",
		Long: `Map every dataset with both a parsed GFF table and a processed count
table, or a single dataset given with --segments and --counts.`,
		Example: `  vibe-domains map
  vibe-domains map --db domains.duckdb --force
  vibe-domains map --segments BRCA1_parsed_gff.tsv --counts BRCA1_processed_counts.tsv -o BRCA1_mapped.tsv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, closeFn, err := newPipeline(force)
			if err != nil {
				return err
			}
			defer closeFn()

			if segments == "" && counts == "" {
				stats, err := p.MapCoordinates()
				if err != nil {
					return err
				}
				printStats(stats)
				return nil
			}
			if segments == "" || counts == "" || outputFile == "" {
				return fmt.Errorf("%w: --segments, --counts and --output must be given together", errUsage)
			}
			name := strings.TrimSuffix(filepath.Base(counts), filepath.Ext(counts))
			st, err := p.MapDataset(name, segments, counts, outputFile)
			if err != nil {
				return err
			}
			printStats([]pipeline.MapStats{st})
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Re-map datasets whose inputs are unchanged")
	cmd.Flags().StringVar(&segments, "segments", "", "Parsed GFF segment table")
	cmd.Flags().StringVar(&counts, "counts", "", "Processed count table")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Mapped table output file")

	return cmd
}

func printStats(stats []pipeline.MapStats) {
	for _, st := range stats {
		if st.Skipped {
			fmt.Fprintf(os.Stderr, "%s: up to date\n", st.Dataset)
			continue
		}
		fmt.Fprintf(os.Stderr, "%s: mapped %d of %d rows\n", st.Dataset, st.Mapped, st.Rows)
	}
}

func newBEDCmd() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "bed [mapped-table]",
		Short: "Write BED domain tracks",
		Long:  "Write a sorted BED file per mapped table, or for a single mapped table.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				if outputFile == "" {
					return fmt.Errorf("%w: --output is required with a mapped table argument", errUsage)
				}
				n, err := pipeline.WriteBEDFile(args[0], outputFile)
				if err != nil {
					return err
				}
				fmt.Fprintf(os.Stderr, "Wrote %d records to %s\n", n, outputFile)
				return nil
			}

			p, closeFn, err := newPipeline(false)
			if err != nil {
				return err
			}
			defer closeFn()
			_, err = p.GenerateBED()
			return err
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "BED output file")
	return cmd
}

func newBigBedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bigbed",
		Short: "Convert BED domain tracks to bigBed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, closeFn, err := newPipeline(false)
			if err != nil {
				return err
			}
			defer closeFn()
			_, err = p.ConvertBigBed(cmd.Context())
			return err
		},
	}
}

func newBigWigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bigwig",
		Short: "Write per-sample bedGraph and bigWig count tracks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, closeFn, err := newPipeline(false)
			if err != nil {
				return err
			}
			defer closeFn()
			_, err = p.GenerateBigWig(cmd.Context())
			return err
		},
	}
}

func newRunCmd() *cobra.Command {
	var (
		force     bool
		skipCheck bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every stage",
		Long: `Parse GFF files, process count matrices, map coordinates, and write
BED, bigBed, bedGraph and bigWig tracks.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !skipCheck {
				conv := track.NewConverter(viper.GetString("paths.chrom_sizes"))
				conv.SetBinaries(viper.GetString("tools.bed_to_bigbed"), viper.GetString("tools.bedgraph_to_bigwig"))
				if err := conv.Check(); err != nil {
					fmt.Fprintf(os.Stderr, "Hint: install the UCSC tools or set tools.bed_to_bigbed and tools.bedgraph_to_bigwig\n")
					return err
				}
			}

			p, closeFn, err := newPipeline(force)
			if err != nil {
				return err
			}
			defer closeFn()
			return p.Run(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Re-map datasets whose inputs are unchanged")
	cmd.Flags().BoolVar(&skipCheck, "skip-check", false, "Do not check for converter binaries before running")
	return cmd
}

func newQueryCmd() *cobra.Command {
	var (
		dataset bool
		runs    bool
	)

	cmd := &cobra.Command{
		Use:   "query [protein-id | dataset]",
		Short: "Query mapped domains stored in DuckDB",
		Example: `  vibe-domains query --db domains.duckdb NP_009225.1
  vibe-domains query --db domains.duckdb --dataset BRCA1
  vibe-domains query --db domains.duckdb --runs`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath := viper.GetString("db.path")
			if dbPath == "" {
				return fmt.Errorf("%w: --db or db.path is required", errUsage)
			}
			if !runs && len(args) != 1 {
				return fmt.Errorf("%w: a protein ID or dataset is required", errUsage)
			}

			store, err := duckdb.Open(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			defer tw.Flush()

			if runs {
				records, err := store.Runs()
				if err != nil {
					return err
				}
				fmt.Fprintln(tw, "dataset\torder\ttotal_rows\tmapped_rows\tcreated_at")
				for _, r := range records {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", r.Dataset, r.Order, r.TotalRows, r.MappedRows, r.CreatedAt.Format("2006-01-02 15:04:05"))
				}
				return nil
			}

			var results []duckdb.DomainResult
			if dataset {
				results, err = store.LookupDataset(args[0])
			} else {
				results, err = store.LookupProtein(args[0])
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(tw, "dataset\tprotein_id\tdomain\taa_coords\ttranscript_id\tchr\tgenomic_start\tgenomic_end")
			for _, r := range results {
				transcript, chrom, start, end := "", "", "", ""
				if m := r.Mapping; m != nil {
					transcript, chrom = m.TranscriptID, m.Chrom
					start, end = fmt.Sprint(m.GenomicStart), fmt.Sprint(m.GenomicEnd)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					r.Dataset, r.ProteinID, r.Domain, r.AACoords, transcript, chrom, start, end)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dataset, "dataset", false, "Treat the argument as a dataset name")
	cmd.Flags().BoolVar(&runs, "runs", false, "List recorded mapping runs")
	return cmd
}

// Package main provides the vibe-domains command-line tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/inodb/vibe-domains/internal/mapping"
	"github.com/inodb/vibe-domains/internal/pipeline"
	"github.com/inodb/vibe-domains/internal/table"
	"github.com/inodb/vibe-domains/internal/track"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const configName = ".vibe-domains"

var (
	cfgFile string
	verbose bool
	logger  = zap.NewNop()
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, table.ErrMalformedInput) {
			fmt.Fprintf(os.Stderr, "Hint: check the column names and field counts of the input file\n")
		}
		if errors.Is(err, errUsage) {
			return ExitUsage
		}
		return ExitError
	}
	return ExitSuccess
}

// errUsage marks command-line usage errors.
var errUsage = errors.New("usage")

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vibe-domains",
		Short: "Protein domain genome tracks",
		Long: `vibe-domains maps protein-domain amino-acid intervals onto genomic
coordinates using CDS annotations, and writes BED/bigBed domain tracks and
per-sample bedGraph/bigWig count tracks.`,
		Example: `  # Run every stage with the default directory layout
  vibe-domains run

  # Map one dataset
  vibe-domains map --segments BRCA1_parsed_gff.tsv --counts BRCA1_processed_counts.tsv -o mapped.tsv

  # Look up stored mappings for a protein
  vibe-domains query NP_009225.1`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(); err != nil {
				return err
			}
			l, err := newLogger(verbose)
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", errUsage, err)
	})

	pf := cmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (default: ~/"+configName+".yaml)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	pf.String("gff-dir", "", "Directory of GFF annotation files")
	pf.String("matrices-dir", "", "Directory of count matrices (CSV)")
	pf.String("output-dir", "", "Output directory")
	pf.String("chrom-sizes", "", "Chromosome sizes file for track conversion")
	pf.String("order", "", "Segment walk order: genomic or strand")
	pf.Int("workers", 0, "Worker count (default: number of CPUs)")
	pf.Int("sample-offset", 0, "Index of the first sample column in mapped tables")
	pf.String("db", "", "DuckDB database recording mapped rows (disabled if empty)")

	for key, flag := range map[string]string{
		"paths.gff_dir":         "gff-dir",
		"paths.matrices_dir":    "matrices-dir",
		"paths.output_dir":      "output-dir",
		"paths.chrom_sizes":     "chrom-sizes",
		"mapping.order":         "order",
		"mapping.workers":       "workers",
		"samples.column_offset": "sample-offset",
		"db.path":               "db",
	} {
		_ = viper.BindPFlag(key, pf.Lookup(flag))
	}

	cmd.AddCommand(newParseGFFCmd())
	cmd.AddCommand(newCountsCmd())
	cmd.AddCommand(newMapCmd())
	cmd.AddCommand(newBEDCmd())
	cmd.AddCommand(newBigBedCmd())
	cmd.AddCommand(newBigWigCmd())
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newQueryCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// initConfig reads the config file and environment.
// A missing default config file is not an error.
func initConfig() error {
	viper.SetEnvPrefix("VIBE_DOMAINS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	layout := pipeline.DefaultLayout()
	viper.SetDefault("paths.gff_dir", layout.GFFDir)
	viper.SetDefault("paths.matrices_dir", layout.MatricesDir)
	viper.SetDefault("paths.output_dir", layout.OutputDir)
	viper.SetDefault("paths.chrom_sizes", track.DefaultChromSizes)
	viper.SetDefault("mapping.order", mapping.OrderGenomic.String())
	viper.SetDefault("samples.column_offset", pipeline.DefaultSampleOffset)
	viper.SetDefault("tools.bed_to_bigbed", track.DefaultBedToBigBed)
	viper.SetDefault("tools.bedgraph_to_bigwig", track.DefaultBedGraphToBigWig)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(configName)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		if cfgFile == "" && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

// newLogger builds a console logger on stderr.
func newLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Encoding = "console"
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	cfg.DisableCaller = !debug
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("vibe-domains version %s (%s) built %s\n", version, commit, date)
		},
	}
}

// defaultConfigPath returns ~/.vibe-domains.yaml.
func defaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, configName+".yaml"), nil
}

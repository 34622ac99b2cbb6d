// Package track runs the UCSC converters that turn BED and bedGraph files
// into bigBed and bigWig browser tracks.
package track

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// Default converter binaries and chromosome sizes file.
const (
	DefaultBedToBigBed      = "bedToBigBed"
	DefaultBedGraphToBigWig = "bedGraphToBigWig"
	DefaultChromSizes       = "data/hg38.chrom.sizes"
)

// Runner runs an external command.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// ExecError reports a failed converter invocation with its output.
type ExecError struct {
	Command string
	Output  string
	Err     error
}

func (e *ExecError) Error() string {
	out := strings.TrimSpace(e.Output)
	if out == "" {
		return fmt.Sprintf("%s: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Command, e.Err, out)
}

func (e *ExecError) Unwrap() error { return e.Err }

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run runs the command and returns an *ExecError carrying its combined
// output if it fails.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return &ExecError{
			Command: strings.Join(append([]string{name}, args...), " "),
			Output:  out.String(),
			Err:     err,
		}
	}
	return nil
}

// Converter converts BED and bedGraph files into bigBed and bigWig tracks.
type Converter struct {
	runner           Runner
	chromSizes       string
	bedToBigBed      string
	bedGraphToBigWig string
	logger           *zap.Logger
}

// NewConverter creates a converter using the given chromosome sizes file
// and the default binaries on PATH.
func NewConverter(chromSizes string) *Converter {
	if chromSizes == "" {
		chromSizes = DefaultChromSizes
	}
	return &Converter{
		runner:           ExecRunner{},
		chromSizes:       chromSizes,
		bedToBigBed:      DefaultBedToBigBed,
		bedGraphToBigWig: DefaultBedGraphToBigWig,
		logger:           zap.NewNop(),
	}
}

// SetRunner replaces the command runner.
func (c *Converter) SetRunner(r Runner) {
	c.runner = r
}

// SetBinaries overrides the converter binary names or paths.
// Empty values keep the current setting.
func (c *Converter) SetBinaries(bedToBigBed, bedGraphToBigWig string) {
	if bedToBigBed != "" {
		c.bedToBigBed = bedToBigBed
	}
	if bedGraphToBigWig != "" {
		c.bedGraphToBigWig = bedGraphToBigWig
	}
}

// SetLogger sets the logger for conversion messages.
func (c *Converter) SetLogger(l *zap.Logger) {
	c.logger = l
}

// Check verifies that the chromosome sizes file exists and that both
// converter binaries can be found.
func (c *Converter) Check() error {
	if _, err := os.Stat(c.chromSizes); err != nil {
		return fmt.Errorf("chromosome sizes file: %w", err)
	}
	for _, bin := range []string{c.bedToBigBed, c.bedGraphToBigWig} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("converter %s: %w", bin, err)
		}
	}
	return nil
}

// BedToBigBed converts a sorted BED file into a bigBed file.
func (c *Converter) BedToBigBed(ctx context.Context, bedPath, outPath string) error {
	if err := c.runner.Run(ctx, c.bedToBigBed, bedPath, c.chromSizes, outPath); err != nil {
		return fmt.Errorf("convert %s to bigBed: %w", bedPath, err)
	}
	c.logger.Info("converted", zap.String("input", bedPath), zap.String("output", outPath))
	return nil
}

// BedGraphToBigWig converts a sorted bedGraph file into a bigWig file.
func (c *Converter) BedGraphToBigWig(ctx context.Context, bedGraphPath, outPath string) error {
	if err := c.runner.Run(ctx, c.bedGraphToBigWig, bedGraphPath, c.chromSizes, outPath); err != nil {
		return fmt.Errorf("convert %s to bigWig: %w", bedGraphPath, err)
	}
	c.logger.Info("converted", zap.String("input", bedGraphPath), zap.String("output", outPath))
	return nil
}

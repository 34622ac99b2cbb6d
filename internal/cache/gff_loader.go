package cache

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/vibe-domains/internal/table"
)

// GFF attribute keys carrying segment identifiers.
const (
	attrProteinID = "protein_id"
	attrParent    = "Parent"
)

// GFFLoader loads CDS segments from GFF3 annotation files.
type GFFLoader struct {
	path string
}

// NewGFFLoader creates a new GFF loader.
func NewGFFLoader(path string) *GFFLoader {
	return &GFFLoader{path: path}
}

// Load reads all CDS segments from the GFF file.
// Gzipped files (.gz) are decompressed transparently.
func (l *GFFLoader) Load() ([]CDSSegment, error) {
	rc, err := table.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open GFF file: %w", err)
	}
	defer rc.Close()

	segs, err := parseGFF(rc)
	if err != nil {
		return nil, table.WithSource(err, l.path)
	}
	return segs, nil
}

// gffFeature represents a parsed GFF line.
type gffFeature struct {
	chrom       string
	featureType string
	start       int64
	end         int64
	strand      string
	attributes  map[string]string
}

// parseGFF parses GFF content and returns CDS segments in file order.
func parseGFF(reader io.Reader) ([]CDSSegment, error) {
	scanner := bufio.NewScanner(reader)
	// Increase buffer size for long attribute columns
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	var segments []CDSSegment

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimRight(scanner.Text(), "\r")

		// Embedded sequences end the feature section
		if strings.HasPrefix(line, "##FASTA") {
			break
		}
		// Skip comments and empty lines
		if strings.HasPrefix(line, "#") || line == "" {
			continue
		}

		feat, err := parseLine(line)
		if err != nil {
			return nil, &table.ParseError{Line: lineNum, Message: err.Error()}
		}

		if feat.featureType != "CDS" {
			continue
		}

		segments = append(segments, CDSSegment{
			Chrom:        feat.chrom,
			Start:        feat.start,
			End:          feat.end,
			Strand:       ParseStrand(feat.strand),
			ProteinID:    feat.attributes[attrProteinID],
			TranscriptID: feat.attributes[attrParent],
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan GFF: %w", err)
	}

	return segments, nil
}

// parseLine parses a single GFF line.
func parseLine(line string) (*gffFeature, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 9 {
		return nil, fmt.Errorf("invalid GFF line: expected 9 fields, got %d", len(fields))
	}

	feat := &gffFeature{
		chrom:       fields[0],
		featureType: fields[2],
		strand:      fields[6],
	}
	// Only CDS rows need coordinates; other feature types are dropped anyway.
	if feat.featureType != "CDS" {
		return feat, nil
	}

	start, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse start: %w", err)
	}
	end, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse end: %w", err)
	}
	if start > end {
		return nil, fmt.Errorf("start %d greater than end %d", start, end)
	}

	feat.start = start
	feat.end = end
	feat.attributes = parseAttributes(fields[8])
	return feat, nil
}

// parseAttributes parses the GFF3 attribute column.
// Format: key=value;key=value;...
// Items without '=' are ignored; the first '=' separates key from value.
func parseAttributes(attrStr string) map[string]string {
	attrs := make(map[string]string)

	for _, part := range strings.Split(attrStr, ";") {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		attrs[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	return attrs
}

// ParseStrand converts a strand column to +1, -1, or 0 if unknown.
func ParseStrand(s string) int8 {
	switch s {
	case "+":
		return 1
	case "-":
		return -1
	}
	return 0
}

// FormatStrand converts a strand value back to its column form.
func FormatStrand(s int8) string {
	switch s {
	case 1:
		return "+"
	case -1:
		return "-"
	}
	return "."
}

package table

import (
	"path/filepath"
	"strings"
)

// Standard column names of the processed protein/domain count table.
const (
	ColProteinID = "protein_id"
	ColDomain    = "domain"
	ColAACoords  = "aa_coords"
)

// countRenames maps raw count-matrix headers to the standard names.
var countRenames = map[string]string{
	"Protein":           ColProteinID,
	"Domain":            ColDomain,
	"Protein_AA_Coords": ColAACoords,
}

// ProcessCounts renames the raw count-matrix columns to the standard
// protein_id/domain/aa_coords names and checks they are all present.
func ProcessCounts(t *Table) error {
	t.Rename(countRenames)
	_, err := t.Require(ColProteinID, ColDomain, ColAACoords)
	return err
}

// ProteinName derives the dataset name from a count-matrix file name:
// the base name up to the first underscore ("BRCA1_counts.csv" -> "BRCA1").
func ProteinName(path string) string {
	base := filepath.Base(path)
	if i := strings.IndexByte(base, '_'); i >= 0 {
		return base[:i]
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

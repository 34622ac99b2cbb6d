package duckdb

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"
)

// FileFingerprint holds stat-based identity for a file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

func (f FileFingerprint) modTime() string {
	return f.ModTime.UTC().Format(time.RFC3339Nano)
}

// RunInputs identifies what a dataset was mapped from: its two input files
// and the segment order used.
type RunInputs struct {
	GFF    FileFingerprint
	Counts FileFingerprint
	Order  string
}

// RunRecord summarizes the last mapping of a dataset.
type RunRecord struct {
	Dataset    string
	Order      string
	TotalRows  int
	MappedRows int
	CreatedAt  time.Time
}

// RecordRun stores the inputs and row counts of a dataset mapping,
// replacing any previous record.
func (s *Store) RecordRun(dataset string, in RunInputs, total, mapped int) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO map_runs
		(dataset, gff_size, gff_modtime, counts_size, counts_modtime, mapping_order, total_rows, mapped_rows, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		dataset, in.GFF.Size, in.GFF.modTime(), in.Counts.Size, in.Counts.modTime(), in.Order,
		int64(total), int64(mapped), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record run %s: %w", dataset, err)
	}
	return nil
}

// UpToDate reports whether the dataset was last mapped from the same input
// fingerprints with the same segment order.
func (s *Store) UpToDate(dataset string, in RunInputs) (bool, error) {
	var (
		gffSize, countsSize       int64
		gffModTime, countsModTime string
		order                     sql.NullString
	)
	err := s.db.QueryRow(`SELECT gff_size, gff_modtime, counts_size, counts_modtime, mapping_order
		FROM map_runs WHERE dataset = ?`, dataset).Scan(&gffSize, &gffModTime, &countsSize, &countsModTime, &order)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query run %s: %w", dataset, err)
	}

	return order.Valid && order.String == in.Order &&
		gffSize == in.GFF.Size && gffModTime == in.GFF.modTime() &&
		countsSize == in.Counts.Size && countsModTime == in.Counts.modTime(), nil
}

// Runs returns the run records of all datasets, ordered by dataset.
func (s *Store) Runs() ([]RunRecord, error) {
	rows, err := s.db.Query(`SELECT dataset, mapping_order, total_rows, mapped_rows, created_at
		FROM map_runs ORDER BY dataset`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var (
			r             RunRecord
			order         sql.NullString
			total, mapped int64
		)
		if err := rows.Scan(&r.Dataset, &order, &total, &mapped, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Order = order.String
		r.TotalRows = int(total)
		r.MappedRows = int(mapped)
		out = append(out, r)
	}
	return out, rows.Err()
}

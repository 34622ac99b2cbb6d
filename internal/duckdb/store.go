// Package duckdb persists mapped domain coordinates in DuckDB.
// Mapped rows are stored per dataset (queryable, replaced on re-map), and
// each dataset records the fingerprints of the inputs it was mapped from.
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection for mapped domain results.
type Store struct {
	db *sql.DB
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS mapped_domains (
		dataset VARCHAR,
		row_index BIGINT,
		protein_id VARCHAR,
		domain VARCHAR,
		aa_coords VARCHAR,
		transcript_id VARCHAR,
		chrom VARCHAR,
		genomic_start BIGINT,
		genomic_end BIGINT,
		PRIMARY KEY (dataset, row_index)
	)`); err != nil {
		return err
	}

	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS map_runs (
		dataset VARCHAR PRIMARY KEY,
		gff_size BIGINT,
		gff_modtime VARCHAR,
		counts_size BIGINT,
		counts_modtime VARCHAR,
		mapping_order VARCHAR,
		total_rows BIGINT,
		mapped_rows BIGINT,
		created_at TIMESTAMP
	)`)
	if err != nil {
		return err
	}

	// Databases created before mapping_order was recorded
	_, err = s.db.Exec(`ALTER TABLE map_runs ADD COLUMN IF NOT EXISTS mapping_order VARCHAR`)
	return err
}

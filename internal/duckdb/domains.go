package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vibe-domains/internal/mapping"
)

// DomainResult is one row of a count table together with its mapping.
// Mapping is nil for rows that could not be mapped.
type DomainResult struct {
	Dataset   string
	Row       int
	ProteinID string
	Domain    string
	AACoords  string
	Mapping   *mapping.Mapping
}

// WriteDomainResults replaces the stored rows of a dataset using the
// Appender API. Unmapped rows are stored with NULL coordinates. The delete
// and the appended rows commit together; on failure the previous rows stay.
func (s *Store) WriteDomainResults(dataset string, results []DomainResult) (err error) {
	ctx := context.Background()
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN TRANSACTION"); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			conn.ExecContext(ctx, "ROLLBACK")
		}
	}()

	if _, err := conn.ExecContext(ctx, "DELETE FROM mapped_domains WHERE dataset = ?", dataset); err != nil {
		return fmt.Errorf("clear dataset %s: %w", dataset, err)
	}
	if len(results) > 0 {
		if err := appendDomainResults(conn, dataset, results); err != nil {
			return err
		}
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("commit dataset %s: %w", dataset, err)
	}
	return nil
}

func appendDomainResults(conn *sql.Conn, dataset string, results []DomainResult) error {
	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "mapped_domains")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}

	for _, r := range results {
		var transcriptID, chrom, start, end driver.Value
		if m := r.Mapping; m != nil {
			transcriptID, chrom, start, end = m.TranscriptID, m.Chrom, m.GenomicStart, m.GenomicEnd
		}
		if err := appender.AppendRow(
			dataset, int64(r.Row), r.ProteinID, r.Domain, r.AACoords,
			transcriptID, chrom, start, end,
		); err != nil {
			appender.Close()
			return fmt.Errorf("append domain result: %w", err)
		}
	}

	// Close flushes the remaining rows.
	if err := appender.Close(); err != nil {
		return fmt.Errorf("flush domain results: %w", err)
	}
	return nil
}

// ClearDataset removes the stored rows and run record of a dataset.
func (s *Store) ClearDataset(dataset string) error {
	if _, err := s.db.Exec("DELETE FROM mapped_domains WHERE dataset = ?", dataset); err != nil {
		return err
	}
	_, err := s.db.Exec("DELETE FROM map_runs WHERE dataset = ?", dataset)
	return err
}

// LookupProtein returns every stored row for a protein across datasets,
// ordered by dataset then row.
func (s *Store) LookupProtein(proteinID string) ([]DomainResult, error) {
	return s.query(`SELECT
		dataset, row_index, protein_id, domain, aa_coords,
		transcript_id, chrom, genomic_start, genomic_end
		FROM mapped_domains
		WHERE protein_id = ?
		ORDER BY dataset, row_index`, proteinID)
}

// LookupDataset returns the stored rows of a dataset in row order.
func (s *Store) LookupDataset(dataset string) ([]DomainResult, error) {
	return s.query(`SELECT
		dataset, row_index, protein_id, domain, aa_coords,
		transcript_id, chrom, genomic_start, genomic_end
		FROM mapped_domains
		WHERE dataset = ?
		ORDER BY row_index`, dataset)
}

func (s *Store) query(q string, args ...any) ([]DomainResult, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query domains: %w", err)
	}
	defer rows.Close()

	var out []DomainResult
	for rows.Next() {
		var (
			r                        DomainResult
			row                      int64
			proteinID, domain        sql.NullString
			aaCoords                 sql.NullString
			transcriptID, chrom      sql.NullString
			genomicStart, genomicEnd sql.NullInt64
		)
		if err := rows.Scan(
			&r.Dataset, &row, &proteinID, &domain, &aaCoords,
			&transcriptID, &chrom, &genomicStart, &genomicEnd,
		); err != nil {
			return nil, fmt.Errorf("scan domain: %w", err)
		}
		r.Row = int(row)
		r.ProteinID = proteinID.String
		r.Domain = domain.String
		r.AACoords = aaCoords.String
		if transcriptID.Valid && genomicStart.Valid && genomicEnd.Valid {
			r.Mapping = &mapping.Mapping{
				TranscriptID: transcriptID.String,
				Chrom:        chrom.String,
				GenomicStart: genomicStart.Int64,
				GenomicEnd:   genomicEnd.Int64,
			}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate domains: %w", err)
	}
	return out, nil
}

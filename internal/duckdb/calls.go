package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"time"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/genome-surveillance/grc-plasmepsin/internal/caller"
)

// FileFingerprint holds stat-based identity for a genotype file.
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

// Source describes a genotype file whose calls are stored.
type Source struct {
	FileFingerprint
	Samples    int64
	RecordedAt time.Time
}

// StoredCall is a call read back from the store.
type StoredCall struct {
	SourceFile string
	SampleID   string
	Variant    string
}

// VariantCount is the number of stored calls with one label.
type VariantCount struct {
	Variant string
	Count   int64
}

// RecordCalls replaces the stored calls of every file in files. All files
// are written in a single transaction, so either every file's calls are
// stored or none are. Rows use the DuckDB Appender API.
func (s *Store) RecordCalls(files []caller.FileCalls) error {
	fps := make([]FileFingerprint, len(files))
	for i, f := range files {
		fp, err := StatFile(f.Path)
		if err != nil {
			return fmt.Errorf("stat source file: %w", err)
		}
		fps[i] = fp
	}

	ctx := context.Background()
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN TRANSACTION"); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	for i, f := range files {
		if err := recordFile(ctx, conn, fps[i], f.Results); err != nil {
			conn.ExecContext(ctx, "ROLLBACK")
			return fmt.Errorf("record %s: %w", f.Path, err)
		}
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		conn.ExecContext(ctx, "ROLLBACK")
		return fmt.Errorf("commit calls: %w", err)
	}
	return nil
}

func recordFile(ctx context.Context, conn *sql.Conn, fp FileFingerprint, results []caller.SampleResult) error {
	if _, err := conn.ExecContext(ctx, "DELETE FROM sample_calls WHERE source_file=?", fp.Path); err != nil {
		return fmt.Errorf("clear previous calls: %w", err)
	}
	if _, err := conn.ExecContext(ctx, "DELETE FROM call_sources WHERE source_file=?", fp.Path); err != nil {
		return fmt.Errorf("clear previous source: %w", err)
	}

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "sample_calls")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}

	for _, r := range results {
		if err := appender.AppendRow(fp.Path, r.SampleID, r.Variant); err != nil {
			appender.Close()
			return fmt.Errorf("append call: %w", err)
		}
	}
	if err := appender.Close(); err != nil {
		return fmt.Errorf("flush calls: %w", err)
	}

	if _, err := conn.ExecContext(ctx,
		"INSERT INTO call_sources VALUES (?, ?, ?, ?, ?)",
		fp.Path, fp.Size, fp.ModTime.UTC(), int64(len(results)), time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("insert source: %w", err)
	}

	return nil
}

// ClearCalls removes all stored calls and sources and returns the number of
// calls removed.
func (s *Store) ClearCalls() (int64, error) {
	res, err := s.db.Exec("DELETE FROM sample_calls")
	if err != nil {
		return 0, fmt.Errorf("clear calls: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear calls: %w", err)
	}
	if _, err := s.db.Exec("DELETE FROM call_sources"); err != nil {
		return 0, fmt.Errorf("clear sources: %w", err)
	}
	return n, nil
}

// VariantCounts returns the number of stored calls per label, most frequent first.
func (s *Store) VariantCounts() ([]VariantCount, error) {
	rows, err := s.db.Query(`SELECT variant, COUNT(*) AS n
		FROM sample_calls
		GROUP BY variant
		ORDER BY n DESC, variant`)
	if err != nil {
		return nil, fmt.Errorf("query variant counts: %w", err)
	}
	defer rows.Close()

	var counts []VariantCount
	for rows.Next() {
		var c VariantCount
		if err := rows.Scan(&c.Variant, &c.Count); err != nil {
			return nil, fmt.Errorf("scan variant count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate variant counts: %w", err)
	}
	return counts, nil
}

// LookupSample returns every stored call for sampleID, ordered by source file.
func (s *Store) LookupSample(sampleID string) ([]StoredCall, error) {
	rows, err := s.db.Query(`SELECT source_file, sample_id, variant
		FROM sample_calls
		WHERE sample_id=?
		ORDER BY source_file`, sampleID)
	if err != nil {
		return nil, fmt.Errorf("query sample: %w", err)
	}
	defer rows.Close()

	var calls []StoredCall
	for rows.Next() {
		var c StoredCall
		if err := rows.Scan(&c.SourceFile, &c.SampleID, &c.Variant); err != nil {
			return nil, fmt.Errorf("scan call: %w", err)
		}
		calls = append(calls, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calls: %w", err)
	}
	return calls, nil
}

// Sources returns the recorded genotype files ordered by path.
func (s *Store) Sources() ([]Source, error) {
	rows, err := s.db.Query(`SELECT source_file, size, mod_time, samples, recorded_at
		FROM call_sources
		ORDER BY source_file`)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var src Source
		if err := rows.Scan(&src.Path, &src.Size, &src.ModTime, &src.Samples, &src.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		sources = append(sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sources: %w", err)
	}
	return sources, nil
}

// Package store handles SQLite persistence of audit summaries.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/paranoid/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for audit history. Passwords and their digests
// are never written.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS audits (
			id INTEGER PRIMARY KEY,
			run_id TEXT NOT NULL UNIQUE,
			created_at TEXT NOT NULL,
			charset_size INTEGER NOT NULL,
			password_length INTEGER NOT NULL,
			batch_size INTEGER NOT NULL,
			chi_squared REAL NOT NULL,
			chi_p_value REAL NOT NULL,
			serial REAL NOT NULL,
			duplicates INTEGER NOT NULL,
			total_entropy REAL NOT NULL,
			pattern_issues INTEGER NOT NULL,
			all_pass INTEGER NOT NULL,
			stage INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_created_at ON audits(created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertAudit stores the summary of a finished audit.
func (s *Store) InsertAudit(ctx context.Context, rec model.AuditRecord) (int64, error) {
	if rec.RunID == "" {
		return 0, fmt.Errorf("audit record has no run id")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO audits (run_id, created_at, charset_size, password_length, batch_size, chi_squared, chi_p_value, serial, duplicates, total_entropy, pattern_issues, all_pass, stage)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		rec.CharsetSize,
		rec.PasswordLength,
		rec.BatchSize,
		rec.ChiSquared,
		rec.ChiPValue,
		rec.Serial,
		rec.Duplicates,
		rec.TotalEntropy,
		rec.PatternIssues,
		rec.AllPass,
		int(rec.Stage),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListAudits returns stored audits oldest first. Last keeps only the most
// recent entries.
func (s *Store) ListAudits(ctx context.Context, filter model.HistoryFilter) ([]model.AuditRecord, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.Since != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, filter.Since.UTC().Format(time.RFC3339Nano))
	}
	limit := -1
	if filter.Last > 0 {
		limit = filter.Last
	}
	args = append(args, limit)
	query := fmt.Sprintf(`SELECT id, run_id, created_at, charset_size, password_length, batch_size, chi_squared, chi_p_value, serial, duplicates, total_entropy, pattern_issues, all_pass, stage
		FROM (
			SELECT * FROM audits
			WHERE %s
			ORDER BY created_at DESC, id DESC
			LIMIT ?
		)
		ORDER BY created_at ASC, id ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.AuditRecord
	for rows.Next() {
		var rec model.AuditRecord
		var createdAt string
		var stage int
		if err := rows.Scan(&rec.ID, &rec.RunID, &createdAt, &rec.CharsetSize, &rec.PasswordLength, &rec.BatchSize,
			&rec.ChiSquared, &rec.ChiPValue, &rec.Serial, &rec.Duplicates, &rec.TotalEntropy, &rec.PatternIssues,
			&rec.AllPass, &stage); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, err
		}
		rec.CreatedAt = parsed
		rec.Stage = model.Stage(stage)
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// RecordFromResult converts an audit result into its stored summary.
func RecordFromResult(res *model.AuditResult, at time.Time) model.AuditRecord {
	return model.AuditRecord{
		RunID:          res.RunID,
		CreatedAt:      at,
		CharsetSize:    res.CharsetSize,
		PasswordLength: res.PasswordLength,
		BatchSize:      res.BatchSize,
		ChiSquared:     res.ChiSquared,
		ChiPValue:      res.ChiPValue,
		Serial:         res.SerialCorrelation,
		Duplicates:     res.Duplicates,
		TotalEntropy:   res.TotalEntropy,
		PatternIssues:  res.PatternIssues,
		AllPass:        res.AllPass,
		Stage:          res.Stage,
	}
}

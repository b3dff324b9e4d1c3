package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tjfontaine/uda/internal/core/domain"
	"github.com/tjfontaine/uda/internal/storage"
)

// Store is a SQLite implementation of the append-only run ledger.
type Store struct {
	db *sql.DB
}

var _ storage.RunStore = (*Store)(nil)

// New creates a new SQLite store
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			query TEXT NOT NULL,
			intent TEXT NOT NULL,
			decision TEXT NOT NULL,
			answer TEXT NOT NULL,
			citations TEXT NOT NULL,
			uncertainty TEXT,
			validation TEXT,
			audit_trail TEXT NOT NULL,
			backend TEXT NOT NULL,
			duration_ns INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_decision ON runs(decision)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute statement: %w", err)
		}
	}

	return nil
}

func (s *Store) SaveRun(ctx context.Context, run *domain.RunRecord) error {
	citations, err := json.Marshal(nonNil(run.Citations))
	if err != nil {
		return fmt.Errorf("failed to marshal citations: %w", err)
	}
	uncertainty, err := marshalOptional(run.Uncertainty)
	if err != nil {
		return fmt.Errorf("failed to marshal uncertainty: %w", err)
	}
	validation, err := marshalOptional(run.Validation)
	if err != nil {
		return fmt.Errorf("failed to marshal validation: %w", err)
	}
	trail := run.AuditTrail
	if trail == nil {
		trail = domain.AuditTrail{}
	}
	audit, err := json.Marshal(trail)
	if err != nil {
		return fmt.Errorf("failed to marshal audit trail: %w", err)
	}

	query := `INSERT INTO runs (id, query, intent, decision, answer, citations, uncertainty,
	          validation, audit_trail, backend, duration_ns, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		run.ID, run.Query, string(run.Intent), string(run.Decision), run.Answer,
		string(citations), uncertainty, validation, string(audit),
		run.Backend, int64(run.Duration), run.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	return nil
}

func (s *Store) GetRun(ctx context.Context, id string) (*domain.RunRecord, error) {
	query := `SELECT id, query, intent, decision, answer, citations, uncertainty, validation,
	          audit_trail, backend, duration_ns, created_at
	          FROM runs WHERE id = ?`

	run, err := scanRun(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, storage.ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return run, nil
}

func (s *Store) ListRuns(ctx context.Context, opts storage.ListOptions) ([]*domain.RunRecord, error) {
	var (
		where []string
		args  []any
	)
	if opts.Decision != "" {
		where = append(where, "decision = ?")
		args = append(args, string(opts.Decision))
	}

	query := `SELECT id, query, intent, decision, answer, citations, uncertainty, validation,
	          audit_trail, backend, duration_ns, created_at FROM runs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY rowid DESC LIMIT ? OFFSET ?"

	limit := opts.Limit
	if limit <= 0 {
		limit = storage.DefaultListLimit
	}
	args = append(args, limit, max(opts.Offset, 0))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*domain.RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*domain.RunRecord, error) {
	var (
		run                     domain.RunRecord
		intent, decision        string
		citations, audit        string
		uncertainty, validation sql.NullString
		durationNS              int64
	)

	err := sc.Scan(&run.ID, &run.Query, &intent, &decision, &run.Answer, &citations,
		&uncertainty, &validation, &audit, &run.Backend, &durationNS, &run.CreatedAt)
	if err != nil {
		return nil, err
	}

	run.Intent = domain.Intent(intent)
	run.Decision = domain.Decision(decision)
	run.Duration = time.Duration(durationNS)

	if err := json.Unmarshal([]byte(citations), &run.Citations); err != nil {
		return nil, fmt.Errorf("failed to unmarshal citations: %w", err)
	}
	if err := json.Unmarshal([]byte(audit), &run.AuditTrail); err != nil {
		return nil, fmt.Errorf("failed to unmarshal audit trail: %w", err)
	}
	if uncertainty.Valid {
		run.Uncertainty = &domain.Uncertainty{}
		if err := json.Unmarshal([]byte(uncertainty.String), run.Uncertainty); err != nil {
			return nil, fmt.Errorf("failed to unmarshal uncertainty: %w", err)
		}
	}
	if validation.Valid {
		run.Validation = &domain.ValidationReport{}
		if err := json.Unmarshal([]byte(validation.String), run.Validation); err != nil {
			return nil, fmt.Errorf("failed to unmarshal validation: %w", err)
		}
	}

	return &run, nil
}

func marshalOptional(v any) (sql.NullString, error) {
	switch p := v.(type) {
	case *domain.Uncertainty:
		if p == nil {
			return sql.NullString{}, nil
		}
	case *domain.ValidationReport:
		if p == nil {
			return sql.NullString{}, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/depdiscover/pkg/compression"
	"github.com/depdiscover/pkg/model"
)

// dialect adapts queries to a database flavor.
type dialect interface {
	// rebind rewrites ? placeholders into the flavor's syntax.
	rebind(query string) string

	// insert executes an INSERT and returns the generated id.
	insert(ctx context.Context, tx *sql.Tx, query string, args ...any) (int64, error)
}

const runColumns = `id, run_uuid, status, classpath, against_classpath, entry_points,
	COALESCE(output_file, ''), COALESCE(output_format, ''), counts, timings,
	create_time, begin_time, end_time`

const insertRunQuery = `
	INSERT INTO discovery_run (run_uuid, status, classpath, against_classpath, entry_points,
		output_file, output_format, counts, timings, report, create_time, begin_time, end_time)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const insertDependencyQuery = `
	INSERT INTO run_dependency (run_id, kind, owner, name, descriptor, printable, state,
		is_native, is_interface, callers, users)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// SQLRunStore implements RunStore with plain database/sql queries against
// the schema created by Migrate.
type SQLRunStore struct {
	db      *sql.DB
	dialect dialect
	codec   *compression.Codec
}

func newSQLRunStore(db *sql.DB, d dialect, codec *compression.Codec) *SQLRunStore {
	return &SQLRunStore{db: db, dialect: d, codec: codec}
}

// NewSQLRunStore creates a store for the given database type.
func NewSQLRunStore(db *sql.DB, dbType string, codec *compression.Codec) (*SQLRunStore, error) {
	switch normalizeDBType(dbType) {
	case DBTypeMySQL, DBTypeSQLite:
		return NewMySQLRunStore(db, codec), nil
	case DBTypePostgres:
		return NewPostgresRunStore(db, codec), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}
}

// SaveRun stores the run and its dependencies in one transaction.
func (s *SQLRunStore) SaveRun(ctx context.Context, report *model.Report) (int64, error) {
	payload, err := encodeReport(s.codec, report)
	if err != nil {
		return 0, err
	}
	row, err := newRunRow(&report.Run, payload)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	id, err := s.dialect.insert(ctx, tx, s.dialect.rebind(insertRunQuery),
		row.RunUUID, row.Status, row.Classpath, row.AgainstClasspath, row.EntryPoints,
		row.OutputFile, row.OutputFormat, row.Counts, row.Timings, row.Report,
		row.CreateTime, row.BeginTime, row.EndTime,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	query := s.dialect.rebind(insertDependencyQuery)
	for _, d := range report.Dependencies {
		dep := newDependencyRow(id, d)
		if _, err := tx.ExecContext(ctx, query,
			dep.RunID, dep.Kind, dep.Owner, dep.Name, dep.Descriptor, dep.Printable, dep.State,
			dep.Native, dep.Interface, dep.Callers, dep.Users,
		); err != nil {
			return 0, fmt.Errorf("failed to insert dependency %s: %w", d.Key(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return id, nil
}

// GetRun retrieves a run by its UUID.
func (s *SQLRunStore) GetRun(ctx context.Context, runUUID string) (*model.Run, error) {
	query := s.dialect.rebind(`SELECT ` + runColumns + ` FROM discovery_run WHERE run_uuid = ?`)

	row, err := scanRun(s.db.QueryRowContext(ctx, query, runUUID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, runNotFound(runUUID)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return row.ToModel()
}

// GetReport retrieves the full report stored with a run.
func (s *SQLRunStore) GetReport(ctx context.Context, runUUID string) (*model.Report, error) {
	run, err := s.GetRun(ctx, runUUID)
	if err != nil {
		return nil, err
	}

	var payload []byte
	query := s.dialect.rebind(`SELECT report FROM discovery_run WHERE id = ?`)
	if err := s.db.QueryRowContext(ctx, query, run.ID).Scan(&payload); err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	report, err := decodeReport(s.codec, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode report of run %s: %w", runUUID, err)
	}
	report.Run = *run
	return report, nil
}

// ListRuns retrieves the most recent runs first.
func (s *SQLRunStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	query := `SELECT ` + runColumns + ` FROM discovery_run ORDER BY id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		row, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run, err := row.ToModel()
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// ListDependencies retrieves a run's dependencies in report order.
func (s *SQLRunStore) ListDependencies(ctx context.Context, runUUID string, filter DependencyFilter) ([]model.Dependency, error) {
	run, err := s.GetRun(ctx, runUUID)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.WriteString(`SELECT kind, owner, COALESCE(name, ''), COALESCE(descriptor, ''), COALESCE(printable, ''),
		state, is_native, is_interface, callers, users
		FROM run_dependency WHERE run_id = ?`)
	args := []any{run.ID}
	if filter.Kind != "" {
		sb.WriteString(` AND kind = ?`)
		args = append(args, string(filter.Kind))
	}
	if filter.MissingOnly {
		sb.WriteString(` AND state = ?`)
		args = append(args, stateNotFound)
	}
	sb.WriteString(` ORDER BY id`)

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(sb.String()), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query dependencies: %w", err)
	}
	defer rows.Close()

	var deps []model.Dependency
	for rows.Next() {
		var d RunDependency
		if err := rows.Scan(&d.Kind, &d.Owner, &d.Name, &d.Descriptor, &d.Printable,
			&d.State, &d.Native, &d.Interface, &d.Callers, &d.Users); err != nil {
			return nil, fmt.Errorf("failed to scan dependency: %w", err)
		}
		deps = append(deps, d.ToModel())
	}
	return deps, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(sc rowScanner) (*DiscoveryRun, error) {
	var row DiscoveryRun
	err := sc.Scan(&row.ID, &row.RunUUID, &row.Status, &row.Classpath, &row.AgainstClasspath,
		&row.EntryPoints, &row.OutputFile, &row.OutputFormat, &row.Counts, &row.Timings,
		&row.CreateTime, &row.BeginTime, &row.EndTime)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Package history stores a record of every orchestrated task in SQLite so
// results can be listed and exported later.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/harrison/xhsassist/internal/models"
)

// ErrNotFound is returned when no record matches an id.
var ErrNotFound = errors.New("history record not found")

// ErrAmbiguousID is returned when an id prefix matches several records.
var ErrAmbiguousID = errors.New("id prefix matches more than one record")

// Entry is one stored task.
type Entry struct {
	ID         string
	Kind       models.TaskKind
	Target     string
	Success    bool
	Category   models.ErrorCategory
	ExitCode   *int
	DurationMs int64
	Strategy   string
	Payload    string // JSON data returned by the helper
	Message    string // user-facing error message
	RawDetail  string
	CreatedAt  time.Time
}

// Duration returns the stored run time.
func (e *Entry) Duration() time.Duration {
	return time.Duration(e.DurationMs) * time.Millisecond
}

// ListOptions filters List.
type ListOptions struct {
	Kind       models.TaskKind // empty = all kinds
	FailedOnly bool
	Limit      int // 0 = DefaultListLimit
}

// DefaultListLimit is used when ListOptions.Limit is 0.
const DefaultListLimit = 20

// Store manages the task history database.
type Store struct {
	db     *sql.DB
	dbPath string
	now    func() time.Time
}

// NewStore opens (and creates if needed) the database at dbPath.
// ":memory:" opens a private in-memory database.
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	for _, pragma := range []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	s := &Store{db: db, dbPath: dbPath, now: time.Now}
	if err := s.applyMigrations(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record inserts e, assigning an id and creation time when unset.
func (s *Store) Record(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	e.CreatedAt = e.CreatedAt.UTC()

	var exitCode sql.NullInt64
	if e.ExitCode != nil {
		exitCode = sql.NullInt64{Int64: int64(*e.ExitCode), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO tasks
		(id, kind, target, success, category, exit_code, duration_ms, strategy, payload, message, raw_detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.Kind), e.Target, e.Success, string(e.Category), exitCode,
		e.DurationMs, e.Strategy, e.Payload, e.Message, e.RawDetail, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert task record: %w", err)
	}
	return nil
}

// RecordReport stores a finished task under its run id.
func (s *Store) RecordReport(ctx context.Context, r models.TaskReport) (*Entry, error) {
	e := &Entry{
		ID:         r.RunID,
		Kind:       r.Kind,
		Target:     r.Target,
		Success:    r.Succeeded(),
		ExitCode:   r.ExitCode,
		DurationMs: r.Duration.Milliseconds(),
		Strategy:   r.Strategy,
		Payload:    string(r.Payload),
		CreatedAt:  r.StartedAt,
	}
	if r.Err != nil {
		e.Category = r.Err.Category
		e.Message = r.Err.Message
		e.RawDetail = r.Err.RawDetail
	}
	if err := s.Record(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

const selectColumns = `SELECT id, kind, target, success, category, exit_code, duration_ms,
	strategy, payload, message, raw_detail, created_at FROM tasks`

// Get returns the record with the given id. A unique prefix of at least
// four characters also matches, so short ids from `history list` work.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNotFound
	}

	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	e, err := scanEntry(row)
	if err == nil {
		return e, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get task record: %w", err)
	}
	if len(id) < 4 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	rows, err := s.db.QueryContext(ctx, selectColumns+` WHERE id LIKE ? ESCAPE '\' LIMIT 2`, escapeLike(id)+"%")
	if err != nil {
		return nil, fmt.Errorf("get task record by prefix: %w", err)
	}
	matches, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousID, id)
	}
}

// List returns records newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]*Entry, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	var where []string
	var args []interface{}
	if opts.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(opts.Kind))
	}
	if opts.FailedOnly {
		where = append(where, "success = 0")
	}

	query := selectColumns
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list task records: %w", err)
	}
	return scanEntries(rows)
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count task records: %w", err)
	}
	return n, nil
}

// Cleanup removes records older than keepDays and returns how many were
// deleted. keepDays <= 0 keeps everything.
func (s *Store) Cleanup(ctx context.Context, keepDays int) (int64, error) {
	if keepDays <= 0 {
		return 0, nil
	}
	cutoff := s.now().AddDate(0, 0, -keepDays).UTC()

	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup old task records: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return deleted, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row scanner) (*Entry, error) {
	var (
		e                                    Entry
		kind                                 string
		category, strategy, payload, message sql.NullString
		rawDetail                            sql.NullString
		exitCode                             sql.NullInt64
	)
	err := row.Scan(&e.ID, &kind, &e.Target, &e.Success, &category, &exitCode, &e.DurationMs,
		&strategy, &payload, &message, &rawDetail, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.Kind = models.TaskKind(kind)
	e.Category = models.ErrorCategory(category.String)
	e.Strategy = strategy.String
	e.Payload = payload.String
	e.Message = message.String
	e.RawDetail = rawDetail.String
	if exitCode.Valid {
		code := int(exitCode.Int64)
		e.ExitCode = &code
	}
	return &e, nil
}

func scanEntries(rows *sql.Rows) ([]*Entry, error) {
	defer rows.Close()
	var out []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task record: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate task records: %w", err)
	}
	return out, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

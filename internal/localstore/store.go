// Package localstore is the device-local record log of the CLI, kept in SQLite. It is never
// synchronised with the API's store.
package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"example.com/intensity/internal/record"
)

// ErrNotFound is returned when a record id does not exist.
var ErrNotFound = errors.New("record not found")

// Store wraps a sql.DB connection to the local SQLite database.
type Store struct {
	conn *sql.DB
}

// Open opens or creates the SQLite database at the given path, creating the parent directory.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return newStore(conn)
}

// OpenInMemory opens a private in-memory database, useful for testing.
func OpenInMemory() (*Store, error) {
	conn, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, err
	}
	// Every pooled connection would otherwise see its own empty database.
	conn.SetMaxOpenConns(1)
	return newStore(conn)
}

func newStore(conn *sql.DB) (*Store, error) {
	s := &Store{conn: conn}
	if err := s.Migrate(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Add stores a validated record.
func (s *Store) Add(ctx context.Context, rec record.Record) error {
	if err := record.Validate(rec); err != nil {
		return err
	}
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO records (id, date, time_of_day, intensity, exercise_type, memo, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Date.String(), string(rec.TimeOfDay), rec.Intensity, rec.ExerciseType, rec.Memo,
		formatTime(rec.CreatedAt), formatTime(rec.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// Get fetches one record by id.
func (s *Store) Get(ctx context.Context, id string) (*record.Record, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT id, date, time_of_day, intensity, exercise_type, memo, created_at, updated_at
		FROM records WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns every record, newest first.
func (s *Store) List(ctx context.Context) ([]record.Record, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, date, time_of_day, intensity, exercise_type, memo, created_at, updated_at
		FROM records ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	out := make([]record.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Delete removes a record by id.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (record.Record, error) {
	var (
		rec                  record.Record
		date, tod            string
		createdAt, updatedAt string
	)
	if err := row.Scan(&rec.ID, &date, &tod, &rec.Intensity, &rec.ExerciseType, &rec.Memo, &createdAt, &updatedAt); err != nil {
		return record.Record{}, err
	}

	var err error
	if rec.Date, err = record.ParseDate(date); err != nil {
		return record.Record{}, fmt.Errorf("record %s: %w", rec.ID, err)
	}
	if rec.TimeOfDay, err = record.ParseTimeOfDay(tod); err != nil {
		return record.Record{}, fmt.Errorf("record %s: %w", rec.ID, err)
	}
	if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return record.Record{}, fmt.Errorf("record %s created_at: %w", rec.ID, err)
	}
	if rec.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return record.Record{}, fmt.Errorf("record %s updated_at: %w", rec.ID, err)
	}
	return rec, nil
}

// formatTime stores UTC with a fixed-width fraction so that text ordering matches time ordering.
func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z07:00")
}

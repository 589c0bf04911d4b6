package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status is the outcome of one conversion.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusReview    Status = "review"
)

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	s := Status(strings.ToLower(strings.TrimSpace(value)))
	switch s {
	case StatusCompleted, StatusFailed, StatusReview:
		return s, true
	default:
		return "", false
	}
}

// ErrNotFound is returned by Get for unknown ids.
var ErrNotFound = errors.New("history record not found")

// Record is one row of conversion history.
type Record struct {
	ID           string
	IllustID     string
	Author       string
	Title        string
	SourcePath   string
	OutputPath   string
	Format       string
	Strategy     string
	Frames       int
	Bytes        int64
	SHA256       string
	Status       Status
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Duration is the wall time the conversion took.
func (r Record) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

const recordColumns = "id, illust_id, author, title, source_path, output_path, format, strategy, frames, bytes, sha256, status, error_message, started_at, finished_at"

// Add inserts rec. ID, Format and Status are required.
func (s *Store) Add(ctx context.Context, rec Record) error {
	if strings.TrimSpace(rec.ID) == "" {
		return errors.New("history record requires an id")
	}
	if strings.TrimSpace(rec.Format) == "" {
		return errors.New("history record requires a format")
	}
	if _, ok := ParseStatus(string(rec.Status)); !ok {
		return fmt.Errorf("history record has unknown status %q", rec.Status)
	}
	finished := rec.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	started := rec.StartedAt
	if started.IsZero() {
		started = finished
	}

	_, err := s.execWithRetry(ctx,
		`INSERT INTO conversions (`+recordColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		nullableString(rec.IllustID),
		nullableString(rec.Author),
		nullableString(rec.Title),
		nullableString(rec.SourcePath),
		nullableString(rec.OutputPath),
		rec.Format,
		nullableString(rec.Strategy),
		rec.Frames,
		rec.Bytes,
		nullableString(rec.SHA256),
		string(rec.Status),
		nullableString(rec.ErrorMessage),
		formatTime(started),
		formatTime(finished),
	)
	if err != nil {
		return fmt.Errorf("insert history record: %w", err)
	}
	return nil
}

// Get returns the record with id.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM conversions WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get history record: %w", err)
	}
	return rec, nil
}

// List returns the newest records first. A non-positive limit returns all.
func (s *Store) List(ctx context.Context, limit int, statuses ...Status) ([]Record, error) {
	query := `SELECT ` + recordColumns + ` FROM conversions`
	args := make([]any, 0, len(statuses)+1)
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, st := range statuses {
			args = append(args, string(st))
		}
	}
	query += ` ORDER BY finished_at DESC, rowid DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan history record: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// Count returns how many conversions completed successfully.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM conversions WHERE status = ?`, string(StatusCompleted),
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("count history: %w", err)
	}
	return n, nil
}

// Stats returns record counts per status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM conversions GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("history stats: %w", err)
	}
	defer rows.Close()
	stats := make(map[Status]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan history stats: %w", err)
		}
		stats[Status(status)] = n
	}
	return stats, rows.Err()
}

// Clear removes every record and returns how many were deleted.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM conversions`)
	if err != nil {
		return 0, fmt.Errorf("clear history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear history: %w", err)
	}
	return n, nil
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	var (
		rec        Record
		illustID   sql.NullString
		author     sql.NullString
		title      sql.NullString
		sourcePath sql.NullString
		outputPath sql.NullString
		strategy   sql.NullString
		sum        sql.NullString
		status     sql.NullString
		errMessage sql.NullString
		startedRaw string
		finRaw     string
	)
	if err := scanner.Scan(
		&rec.ID,
		&illustID,
		&author,
		&title,
		&sourcePath,
		&outputPath,
		&rec.Format,
		&strategy,
		&rec.Frames,
		&rec.Bytes,
		&sum,
		&status,
		&errMessage,
		&startedRaw,
		&finRaw,
	); err != nil {
		return nil, err
	}
	rec.IllustID = illustID.String
	rec.Author = author.String
	rec.Title = title.String
	rec.SourcePath = sourcePath.String
	rec.OutputPath = outputPath.String
	rec.Strategy = strategy.String
	rec.SHA256 = sum.String
	rec.Status = Status(status.String)
	rec.ErrorMessage = errMessage.String
	if t, err := time.Parse(time.RFC3339Nano, startedRaw); err == nil {
		rec.StartedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, finRaw); err == nil {
		rec.FinishedAt = t
	}
	return &rec, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// timeLayout has a fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", count), ", ")
}

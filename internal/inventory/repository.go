package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/camgate/internal/registry"
)

const defaultEnumerationLimit = 50

// Repository defines inventory persistence operations.
type Repository interface {
	Enumerated(ctx context.Context, trigger string, entries []registry.Entry) error
	ListCameras(ctx context.Context) ([]Camera, error)
	GetCamera(ctx context.Context, kind string, index int) (*Camera, error)
	RecentEnumerations(ctx context.Context, limit int) ([]Enumeration, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository creates a repository over a migrated database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

// Enumerated records one registry build in a single transaction.
func (r *SQLiteRepository) Enumerated(ctx context.Context, trigger string, entries []registry.Entry) error {
	now := formatTime(r.now())

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning inventory transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // No-op after commit

	const upsert = `INSERT INTO cameras (kind, device_index, name, max_width, max_height,
		is_color, bit_depth, first_seen, last_seen, times_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT (kind, device_index) DO UPDATE SET
			name = excluded.name,
			max_width = excluded.max_width,
			max_height = excluded.max_height,
			is_color = excluded.is_color,
			bit_depth = excluded.bit_depth,
			last_seen = excluded.last_seen,
			times_seen = cameras.times_seen + 1`

	for _, e := range entries {
		_, err := tx.ExecContext(ctx, upsert,
			e.Kind.String(), e.Index, e.Info.Name, e.Info.MaxWidth, e.Info.MaxHeight,
			boolToInt(e.Info.IsColor), e.Info.BitDepth, now, now)
		if err != nil {
			return fmt.Errorf("upserting camera %s[%d]: %w", e.Kind, e.Index, err)
		}
	}

	const logQuery = `INSERT INTO enumerations (trigger_name, camera_count, created_at) VALUES (?, ?, ?)`
	if _, err := tx.ExecContext(ctx, logQuery, trigger, len(entries), now); err != nil {
		return fmt.Errorf("inserting enumeration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing inventory: %w", err)
	}
	return nil
}

const cameraColumns = `kind, device_index, name, max_width, max_height,
	is_color, bit_depth, first_seen, last_seen, times_seen`

// ListCameras returns every camera ever seen, ordered by kind then index.
func (r *SQLiteRepository) ListCameras(ctx context.Context) ([]Camera, error) {
	query := `SELECT ` + cameraColumns + ` FROM cameras ORDER BY kind, device_index`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying cameras: %w", err)
	}
	defer rows.Close()

	cameras := []Camera{}
	for rows.Next() {
		c, err := scanCamera(rows)
		if err != nil {
			return nil, err
		}
		cameras = append(cameras, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating cameras: %w", err)
	}
	return cameras, nil
}

// GetCamera returns one camera by kind and index.
func (r *SQLiteRepository) GetCamera(ctx context.Context, kind string, index int) (*Camera, error) {
	query := `SELECT ` + cameraColumns + ` FROM cameras WHERE kind = ? AND device_index = ?`
	c, err := scanCamera(r.db.QueryRowContext(ctx, query, kind, index))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCameraNotFound
		}
		return nil, err
	}
	return &c, nil
}

// RecentEnumerations returns the newest enumerations first. A limit of
// zero or less uses the default of 50.
func (r *SQLiteRepository) RecentEnumerations(ctx context.Context, limit int) ([]Enumeration, error) {
	if limit <= 0 {
		limit = defaultEnumerationLimit
	}
	const query = `SELECT id, trigger_name, camera_count, created_at
		FROM enumerations ORDER BY id DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying enumerations: %w", err)
	}
	defer rows.Close()

	out := []Enumeration{}
	for rows.Next() {
		var e Enumeration
		var createdAt string
		if err := rows.Scan(&e.ID, &e.Trigger, &e.CameraCount, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning enumeration row: %w", err)
		}
		e.CreatedAt = parseTime(createdAt)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating enumerations: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCamera(s scanner) (Camera, error) {
	var c Camera
	var isColor int
	var firstSeen, lastSeen string

	err := s.Scan(&c.Kind, &c.Index, &c.Name, &c.MaxWidth, &c.MaxHeight,
		&isColor, &c.BitDepth, &firstSeen, &lastSeen, &c.TimesSeen)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c, err
		}
		return c, fmt.Errorf("scanning camera: %w", err)
	}
	c.IsColor = isColor != 0
	c.FirstSeen = parseTime(firstSeen)
	c.LastSeen = parseTime(lastSeen)
	return c, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime returns the zero time for an unparseable value.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

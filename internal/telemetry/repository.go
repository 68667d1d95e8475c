package telemetry

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"codeberg.org/mutker/perfgov/internal/errors"
	"codeberg.org/mutker/perfgov/internal/quality"

	_ "github.com/mattn/go-sqlite3"
)

type Repository interface {
	Store(ctx context.Context, t *Transition) error
	Recent(ctx context.Context, limit int) ([]Transition, error)
	Close() error
}

type sqliteRepository struct {
	db *sql.DB
	mu sync.Mutex
}

func NewRepository(cfg Config) (Repository, error) {
	errFactory := errors.New()

	if cfg.DBPath == "" {
		return nil, errFactory.New(ErrInvalidDBPath)
	}

	// Ensure the directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	db, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	if err := InitSchema(db); err != nil {
		db.Close()
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	return &sqliteRepository{
		db: db,
	}, nil
}

func (r *sqliteRepository) Store(ctx context.Context, t *Transition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `
        INSERT INTO transitions (timestamp, old_level, new_level, fps_slow, jitter)
        VALUES (?, ?, ?, ?, ?)
    `,
		t.Timestamp.UnixNano(),
		int(t.Old),
		int(t.New),
		t.FPSSlow,
		t.Jitter,
	)
	if err != nil {
		return errors.New().Wrap(ErrStorageAccess, err)
	}

	return nil
}

// Recent returns up to limit transitions, newest first.
func (r *sqliteRepository) Recent(ctx context.Context, limit int) ([]Transition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	errFactory := errors.New()

	rows, err := r.db.QueryContext(ctx, `
        SELECT timestamp, old_level, new_level, fps_slow, jitter
        FROM transitions
        ORDER BY id DESC
        LIMIT ?
    `, limit)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}
	defer rows.Close()

	var out []Transition
	for rows.Next() {
		var (
			ts       int64
			from, to int
			t        Transition
		)
		if err := rows.Scan(&ts, &from, &to, &t.FPSSlow, &t.Jitter); err != nil {
			return nil, errFactory.Wrap(ErrStorageAccess, err)
		}
		t.Timestamp = time.Unix(0, ts)
		t.Old = quality.Level(from)
		t.New = quality.Level(to)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}

	return out, nil
}

func (r *sqliteRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.db.Close(); err != nil {
		return errors.New().Wrap(ErrStorageClose, err)
	}
	return nil
}

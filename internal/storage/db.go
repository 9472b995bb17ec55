// Package storage persists users, templates, decks with their saved cards,
// and uploaded art metadata in SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/youruser/cardsmith/internal/util"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("already exists")
	ErrInUse      = errors.New("still referenced")
	ErrValidation = errors.New("validation error")
)

type Config struct {
	// Path is the SQLite database file.
	Path            string
	MaxOpenConns    int
	BusyTimeout     time.Duration
	ConnMaxLifetime time.Duration
	// AutoMigrate applies pending migrations before the pool is opened.
	AutoMigrate bool
}

func DefaultConfig(path string) Config {
	return Config{
		Path:            path,
		MaxOpenConns:    8,
		BusyTimeout:     5 * time.Second,
		ConnMaxLifetime: 5 * time.Minute,
		AutoMigrate:     true,
	}
}

// Store is the relational persistence layer. Every mutating operation on
// owned rows checks the caller against the owner column.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open migrates (when configured) and opens the database.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("storage: empty database path")
	}
	if err := util.EnsureParentDir(cfg.Path); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	if cfg.AutoMigrate {
		mg, err := NewMigrator(cfg.Path)
		if err != nil {
			return nil, err
		}
		if err := mg.Up(); err != nil {
			_ = mg.Close()
			return nil, err
		}
		if err := mg.Close(); err != nil {
			return nil, err
		}
	}

	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)",
		cfg.Path, cfg.BusyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// withTx runs fn in a transaction, committing on success.
func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("%w (rollback: %v)", err, rbErr)
			}
			return
		}
		if err = tx.Commit(); err != nil {
			err = fmt.Errorf("commit transaction: %w", err)
		}
	}()
	return fn(tx)
}

func (s *Store) stamp() string { return formatTime(s.now()) }

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(v string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

// rowsAffected turns an UPDATE/DELETE that touched nothing into ErrNotFound.
func rowsAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

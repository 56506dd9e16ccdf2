// Package sqlite provides a SQLite-backed Store with atomic batches.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"xdao.co/idreg/storage"
)

const schema = `CREATE TABLE IF NOT EXISTS kv (
	key   BLOB PRIMARY KEY,
	value BLOB NOT NULL
) WITHOUT ROWID`

const upsert = `INSERT INTO kv (key, value) VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value`

// Store persists registry entries in one SQLite table.
type Store struct {
	sqlDB *sql.DB
}

var (
	_ storage.Store   = (*Store)(nil)
	_ storage.Batcher = (*Store)(nil)
	_ storage.Scanner = (*Store)(nil)
)

// Open opens (creating if needed) a SQLite store at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create kv table: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	err := s.sqlDB.Close()
	s.sqlDB = nil
	return err
}

func (s *Store) Has(key []byte) bool {
	if s == nil || s.sqlDB == nil || len(key) == 0 {
		return false
	}
	var one int
	err := s.sqlDB.QueryRow(`SELECT 1 FROM kv WHERE key = ?`, key).Scan(&one)
	return err == nil
}

func (s *Store) Get(key []byte) ([]byte, error) {
	if s == nil || s.sqlDB == nil {
		return nil, storage.ErrClosed
	}
	if err := storage.CheckKey(key); err != nil {
		return nil, err
	}
	var value []byte
	err := s.sqlDB.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get kv: %w", err)
	}
	if value == nil {
		value = []byte{}
	}
	return value, nil
}

func (s *Store) Set(key, value []byte) error {
	return s.SetBatch([]storage.Entry{{Key: key, Value: value}})
}

// SetBatch writes all entries in one SQL transaction.
func (s *Store) SetBatch(entries []storage.Entry) (err error) {
	if s == nil || s.sqlDB == nil {
		return storage.ErrClosed
	}
	for _, e := range entries {
		if err := storage.CheckKey(e.Key); err != nil {
			return err
		}
	}
	tx, err := s.sqlDB.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	stmt, err := tx.Prepare(upsert)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()
	for _, e := range entries {
		value := e.Value
		if value == nil {
			value = []byte{}
		}
		if _, err := stmt.Exec(e.Key, value); err != nil {
			return fmt.Errorf("put kv: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ForEach visits entries in ascending key order (SQLite compares BLOBs bytewise).
func (s *Store) ForEach(fn func(key, value []byte) error) error {
	if s == nil || s.sqlDB == nil {
		return storage.ErrClosed
	}
	rows, err := s.sqlDB.Query(`SELECT key, value FROM kv ORDER BY key`)
	if err != nil {
		return fmt.Errorf("scan kv: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var k, v []byte
		if err := rows.Scan(&k, &v); err != nil {
			return fmt.Errorf("scan kv row: %w", err)
		}
		if err := fn(k, v); err != nil {
			return err
		}
	}
	return rows.Err()
}

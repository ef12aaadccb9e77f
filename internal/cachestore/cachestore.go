// Package cachestore holds the gateway's versioned static-asset cache. Each
// cache generation is its own SQLite file named joyas-static-<version>.db;
// superseded generations are deleted whole at activation, never entry by
// entry.
package cachestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const (
	namePrefix = "joyas-static-"
	nameSuffix = ".db"
)

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	key TEXT PRIMARY KEY,
	status INTEGER NOT NULL,
	header TEXT NOT NULL,
	body BLOB NOT NULL,
	stored_at INTEGER NOT NULL
);
`

// Entry is one cached response: the most recent successful body and headers
// for a GET request.
type Entry struct {
	Key      string
	Status   int
	Header   http.Header
	Body     []byte
	StoredAt int64
}

// Key builds the cache identity for a request: method plus full URL, GET only
// by convention (the gateway never routes other methods here).
func Key(method, url string) string {
	return method + " " + url
}

// StoreName returns the file name for a cache generation.
func StoreName(version string) string {
	return namePrefix + version + nameSuffix
}

// Store is one open cache generation.
type Store struct {
	db      *sql.DB
	version string
}

func Open(dir, version string) (*Store, error) {
	if version == "" {
		return nil, errors.New("cache version is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	db, err := sql.Open("sqlite", filepath.Join(dir, StoreName(version)))
	if err != nil {
		return nil, fmt.Errorf("open cache store: %w", err)
	}
	return &Store{db: db, version: version}, nil
}

func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("enable wal: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init cache schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Version() string {
	return s.version
}

// Match returns the cached entry for key, if any.
func (s *Store) Match(ctx context.Context, key string) (Entry, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT key, status, header, body, stored_at FROM entries WHERE key = ?
	`, key)
	var entry Entry
	var header string
	err := row.Scan(&entry.Key, &entry.Status, &header, &entry.Body, &entry.StoredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("match cache entry: %w", err)
	}
	if err := json.Unmarshal([]byte(header), &entry.Header); err != nil {
		return Entry{}, false, fmt.Errorf("decode cached header: %w", err)
	}
	return entry, true, nil
}

// Put stores an entry, replacing any previous one under the same key
// (last-write-wins on collision).
func (s *Store) Put(ctx context.Context, entry Entry) error {
	header, err := json.Marshal(entry.Header)
	if err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	storedAt := entry.StoredAt
	if storedAt == 0 {
		storedAt = time.Now().UnixMilli()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO entries (key, status, header, body, stored_at)
		VALUES (?, ?, ?, ?, ?)
	`, entry.Key, entry.Status, string(header), entry.Body, storedAt)
	if err != nil {
		return fmt.Errorf("put cache entry: %w", err)
	}
	return nil
}

// Keys lists all cached keys, for inspection.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key FROM entries ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("query cache keys: %w", err)
	}
	defer rows.Close()
	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan cache key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cache keys: %w", err)
	}
	return keys, nil
}

// ListStores returns the cache generation files present in dir, matching the
// naming convention regardless of version.
func ListStores(dir string) ([]string, error) {
	dirEntries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cache dir: %w", err)
	}
	names := make([]string, 0)
	for _, dirEntry := range dirEntries {
		name := dirEntry.Name()
		if !dirEntry.IsDir() && strings.HasPrefix(name, namePrefix) && strings.HasSuffix(name, nameSuffix) {
			names = append(names, name)
		}
	}
	return names, nil
}

// DeleteStore removes a cache generation file. SQLite sidecar files are
// cleaned up best-effort.
func DeleteStore(dir, name string) error {
	if err := os.Remove(filepath.Join(dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete cache store %s: %w", name, err)
	}
	_ = os.Remove(filepath.Join(dir, name+"-wal"))
	_ = os.Remove(filepath.Join(dir, name+"-shm"))
	return nil
}

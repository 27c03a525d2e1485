package storage

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// SQLite is a Store that keeps every object as a row in a single sqlite
// database file. It is convenient when the whole store should travel as one
// artifact, and it needs no server.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (creating if necessary) a database-backed store at path.
// Close releases the database handle.
func NewSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, errors.Errorf("Can't open sqlite store, no path given")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't open sqlite store at %q", path)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS objects(
			key     TEXT PRIMARY KEY,
			data    BLOB NOT NULL,
			created REAL NOT NULL
		)`)
	if err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "Can't initialize sqlite store at %q", path)
	}

	return &SQLite{db: db}, nil
}

// Put stores the contents of r under key, replacing any previous object.
func (s *SQLite) Put(ctx context.Context, key string, r io.Reader) error {
	if err := checkKey(key); err != nil {
		return err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrapf(err, "Can't store object %q, read failed", key)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO objects(key, data, created) VALUES(?,?,?)",
		key, data, float64(time.Now().UnixMilli())/1000.0)
	return errors.Wrapf(err, "Can't store object %q", key)
}

// Get returns a reader over the object under key.
func (s *SQLite) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}

	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM objects WHERE key = ?", key).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(ErrNoSuchKey, "key %q", key)
	} else if err != nil {
		return nil, errors.Wrapf(err, "Can't open object %q", key)
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

// List returns the keys of every stored object whose key begins with prefix,
// sorted. Filtering happens here rather than with LIKE so that '%' and '_' in
// prefixes stay literal.
func (s *SQLite) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key FROM objects ORDER BY key")
	if err != nil {
		return nil, errors.Wrapf(err, "Can't list objects under %q", prefix)
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, errors.Wrapf(err, "Can't list objects under %q", prefix)
		}
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, errors.Wrapf(rows.Err(), "Can't list objects under %q", prefix)
}

// Delete removes the object under key, returning ErrNoSuchKey if it was not
// stored.
func (s *SQLite) Delete(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM objects WHERE key = ?", key)
	if err != nil {
		return errors.Wrapf(err, "Can't delete object %q", key)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.Wrapf(ErrNoSuchKey, "key %q", key)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

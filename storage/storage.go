// Package storage provides the object store that the platform keeps datasets
// and model artifacts in. Objects are opaque blobs addressed by slash-separated
// keys; listing a prefix returns the keys stored under it.
//
// Two backends are provided: Dir keeps objects as plain files under a root
// directory, and SQLite keeps them as rows in a single database file. Both are
// selected by Open, which understands "dir:PATH" and "sqlite:PATH".
package storage

import (
	"context"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Store is the object storage contract the rest of the platform consumes.
// Put replaces any existing object under the same key, matching the usual
// object-store semantics.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, key string) error
}

// Error is a wrapper for storage errors for which there is no additional
// information necessary.
type Error struct{ string }

func (err Error) Error() string {
	return err.string
}

var (
	// ErrNoSuchKey is returned (possibly wrapped) by Get and Delete when no
	// object exists under the requested key. Use errors.Cause to test for it.
	ErrNoSuchKey = Error{"No object stored under key"}

	// ErrBadKey is returned when a key is empty or escapes the store root.
	ErrBadKey = Error{"Key is not a clean, relative slash path"}
)

// checkKey rejects keys that are empty, rooted, or would escape the store
// when mapped onto a filesystem.
func checkKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") {
		return errors.Wrapf(ErrBadKey, "key %q", key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return errors.Wrapf(ErrBadKey, "key %q", key)
		}
	}
	return nil
}

// Open constructs a Store from a URL-style selector: "dir:PATH" for a
// directory-backed store, "sqlite:PATH" for a database-backed one.
func Open(url string) (Store, error) {
	scheme, path, ok := strings.Cut(url, ":")
	if !ok {
		return nil, errors.Errorf("Can't open store, %q has no scheme (want dir:PATH or sqlite:PATH)", url)
	}

	switch scheme {
	case "dir":
		return NewDir(path)
	case "sqlite":
		return NewSQLite(path)
	default:
		return nil, errors.Errorf("Can't open store, unknown scheme %q", scheme)
	}
}

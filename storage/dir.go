package storage

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Dir is a Store backed by a directory tree. Keys map directly onto relative
// file paths beneath the root.
type Dir struct {
	root string
}

// NewDir opens a directory-backed store rooted at root, creating the directory
// if it does not exist yet.
func NewDir(root string) (*Dir, error) {
	if root == "" {
		return nil, errors.Errorf("Can't open directory store, no root given")
	}
	if err := os.MkdirAll(root, 0700); err != nil {
		return nil, errors.Wrapf(err, "Can't open directory store at %q", root)
	}
	return &Dir{root: root}, nil
}

func (d *Dir) path(key string) string {
	return filepath.Join(d.root, filepath.FromSlash(key))
}

// Put stores the contents of r under key, replacing any previous object.
func (d *Dir) Put(ctx context.Context, key string, r io.Reader) error {
	if err := checkKey(key); err != nil {
		return err
	}

	p := d.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0700); err != nil {
		return errors.Wrapf(err, "Can't store object %q", key)
	}

	f, err := os.Create(p)
	if err != nil {
		return errors.Wrapf(err, "Can't store object %q", key)
	}

	if _, err = io.Copy(f, r); err != nil {
		f.Close()
		return errors.Wrapf(err, "Can't store object %q, write failed", key)
	}
	return errors.Wrapf(f.Close(), "Can't store object %q", key)
}

// Get opens the object under key for reading. The caller owns the returned
// ReadCloser.
func (d *Dir) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}

	f, err := os.Open(d.path(key))
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(ErrNoSuchKey, "key %q", key)
	} else if err != nil {
		return nil, errors.Wrapf(err, "Can't open object %q", key)
	}
	return f, nil
}

// List returns the keys of every stored object whose key begins with prefix,
// sorted. An empty prefix lists the whole store.
func (d *Dir) List(ctx context.Context, prefix string) ([]string, error) {
	keys := make([]string, 0)
	err := filepath.WalkDir(d.root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(d.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "Can't list objects under %q", prefix)
	}

	sort.Strings(keys)
	return keys, nil
}

// Delete removes the object under key, returning ErrNoSuchKey if it was not
// stored.
func (d *Dir) Delete(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}

	err := os.Remove(d.path(key))
	if os.IsNotExist(err) {
		return errors.Wrapf(ErrNoSuchKey, "key %q", key)
	}
	return errors.Wrapf(err, "Can't delete object %q", key)
}

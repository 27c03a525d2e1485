package crescent

import (
	"context"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"crescent/storage"
)

// Session binds together the two services a workflow talks to: the object store holding datasets
// and model artifacts, and the platform host serving deployed endpoints.
type Session struct {
	store  storage.Store
	base   string
	client *http.Client
}

// NewSession returns a Session over the given store and the platform host reachable at
// platformURL (e.g. "http://localhost:8080").
func NewSession(store storage.Store, platformURL string) (*Session, error) {
	if store == nil {
		return nil, NilArgError{"store"}
	} else if platformURL == "" {
		return nil, errors.Errorf(`Can't create session, platform URL is ""`)
	}

	return &Session{
		store:  store,
		base:   strings.TrimSuffix(platformURL, "/"),
		client: new(http.Client),
	}, nil
}

// Store returns the session's object store.
func (s *Session) Store() storage.Store {
	return s.store
}

// Upload copies a local file into the object store, keeping its base name under prefix, and
// returns the key it now lives at.
func (s *Session) Upload(ctx context.Context, localPath, prefix string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", errors.Wrapf(err, "Can't upload %q\n", localPath)
	}
	defer f.Close()

	key := filepath.Base(localPath)
	if prefix != "" {
		key = path.Join(prefix, key)
	}

	if err := s.store.Put(ctx, key, f); err != nil {
		return "", errors.Wrapf(err, "Can't upload %q to %q\n", localPath, key)
	}
	return key, nil
}

// ListObjects returns the store's keys under prefix, sorted.
func (s *Session) ListObjects(ctx context.Context, prefix string) ([]string, error) {
	return s.store.List(ctx, prefix)
}

// CleanupEndpoint tears down a deployed endpoint without ever failing: it reports true if this
// call deleted the endpoint, and false if it was already gone or could not be reached. Workflows
// run it on their way out; Predictor.Delete is the strict version.
func (s *Session) CleanupEndpoint(ctx context.Context, name string) bool {
	return s.Predictor(name).Delete(ctx) == nil
}

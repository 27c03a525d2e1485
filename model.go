package crescent

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"

	"crescent/serve"
)

// Model is a handle on training output: the archived network an Estimator wrote to the store.
type Model struct {
	session *Session

	// Algorithm is the name of the Trainer that produced the model.
	Algorithm string

	// Key is where the archive lives in the session's store.
	Key string
}

// Model returns a handle on an already-archived network, for deploying artifacts produced by an
// earlier run.
func (s *Session) Model(key string) *Model {
	return &Model{session: s, Key: key}
}

// Deploy asks the platform host to serve the model's archive as a named endpoint and returns a
// Predictor for it. The name must be unused on the host.
func (m *Model) Deploy(ctx context.Context, name string) (*Predictor, error) {
	if m.session == nil {
		return nil, NilArgError{"Model session"}
	}

	body, err := json.Marshal(serve.CreateRequest{Name: name, Model: m.Key})
	if err != nil {
		return nil, errors.Wrapf(err, "Can't deploy %q\n", name)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		m.session.base+"/endpoints", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrapf(err, "Can't deploy %q\n", name)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.session.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't deploy %q, host is unreachable\n", name)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, errors.Errorf("Can't deploy %q, host returned %s: %s",
			name, resp.Status, responseText(resp))
	}
	return m.session.Predictor(name), nil
}

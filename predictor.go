package crescent

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"crescent/serve"
)

// Predictor is an HTTP client for one deployed endpoint.
type Predictor struct {
	session *Session
	name    string
}

// Predictor returns a client for the named endpoint. The endpoint does not have to exist yet,
// and need not have been deployed by this process.
func (s *Session) Predictor(name string) *Predictor {
	return &Predictor{session: s, name: name}
}

// Name returns the endpoint name the Predictor talks to.
func (p *Predictor) Name() string {
	return p.name
}

// Predict scores a batch of feature vectors on the endpoint, returning one score in [0, 1] per
// instance, in order.
func (p *Predictor) Predict(ctx context.Context, instances [][]float64) ([]float64, error) {
	body, err := json.Marshal(serve.InvokeRequest{Instances: instances})
	if err != nil {
		return nil, errors.Wrapf(err, "Can't predict with %q\n", p.name)
	}

	url := p.session.base + "/endpoints/" + p.name + "/invocations"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrapf(err, "Can't predict with %q\n", p.name)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.session.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't predict with %q, host is unreachable\n", p.name)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("Can't predict with %q, host returned %s: %s",
			p.name, resp.Status, responseText(resp))
	}

	var out serve.InvokeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.Wrapf(err, "Can't predict with %q, bad response\n", p.name)
	}
	if len(out.Predictions) != len(instances) {
		return nil, errors.Errorf("Can't predict with %q, got %d predictions for %d instances",
			p.name, len(out.Predictions), len(instances))
	}
	return out.Predictions, nil
}

// Delete removes the endpoint from the host. Deleting an endpoint that is already gone is an
// error; Session.CleanupEndpoint is the forgiving version.
func (p *Predictor) Delete(ctx context.Context) error {
	url := p.session.base + "/endpoints/" + p.name
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return errors.Wrapf(err, "Can't delete endpoint %q\n", p.name)
	}

	resp, err := p.session.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "Can't delete endpoint %q, host is unreachable\n", p.name)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return errors.Errorf("Can't delete endpoint %q, host returned %s: %s",
			p.name, resp.Status, responseText(resp))
	}
	return nil
}

// responseText drains up to a few hundred bytes of an error response for inclusion in messages.
func responseText(resp *http.Response) string {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return strings.TrimSpace(string(b))
}

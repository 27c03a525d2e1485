package nn

import (
	"archive/tar"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// archiveFormat is bumped whenever the layout of written archives changes
// incompatibly.
const archiveFormat = 1

const manifestName = "manifest.json"

type manifest struct {
	Format   int         `json:"format"`
	InputDim int         `json:"input_dim"`
	Layers   []layerSpec `json:"layers"`
}

type layerSpec struct {
	Type string `json:"type"`
	Out  int    `json:"out,omitempty"`
}

type denseParams struct {
	Weights [][]float64 `json:"weights"`
	Biases  []float64   `json:"biases"`
}

func layerFileName(index int) string {
	return fmt.Sprintf("layer-%d.json", index)
}

// WriteArchive persists the Network to w as a gzipped tar holding a manifest
// and one weights file per dense layer. The result can be restored with
// ReadArchive.
func (net *Network) WriteArchive(w io.Writer) error {
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	m := manifest{Format: archiveFormat, InputDim: net.inDim}
	for _, l := range net.layers {
		spec := layerSpec{Type: l.TypeString()}
		if d, ok := l.(*denseLayer); ok {
			spec.Out = d.out
		}
		m.Layers = append(m.Layers, spec)
	}

	if err := writeEntry(tw, manifestName, m); err != nil {
		return errors.Wrapf(err, "Can't save network, failed to write manifest\n")
	}

	for i, l := range net.layers {
		d, ok := l.(*denseLayer)
		if !ok {
			continue
		}

		var p denseParams
		p.Weights, p.Biases = d.params()
		if err := writeEntry(tw, layerFileName(i), p); err != nil {
			return errors.Wrapf(err, "Can't save network, failed to write layer %d\n", i)
		}
	}

	if err := tw.Close(); err != nil {
		return errors.Wrapf(err, "Can't save network, failed to close archive\n")
	} else if err := gz.Close(); err != nil {
		return errors.Wrapf(err, "Can't save network, failed to close compressor\n")
	}
	return nil
}

func writeEntry(tw *tar.Writer, name string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal %q", name)
	}

	hdr := &tar.Header{Name: name, Mode: 0644, Size: int64(len(b))}
	if err := tw.WriteHeader(hdr); err != nil {
		return errors.Wrapf(err, "failed to write header for %q", name)
	} else if _, err := tw.Write(b); err != nil {
		return errors.Wrapf(err, "failed to write body of %q", name)
	}
	return nil
}

// ReadArchive restores a Network previously written by WriteArchive. The
// returned Network is ready for scoring.
func ReadArchive(r io.Reader) (*Network, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't load network, archive is not gzipped\n")
	}

	files := make(map[string][]byte)
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.Wrapf(err, "Can't load network, failed to read archive\n")
		}

		b, err := io.ReadAll(tr)
		if err != nil {
			return nil, errors.Wrapf(err, "Can't load network, failed to read %q\n", hdr.Name)
		}
		files[hdr.Name] = b
	}
	if err := gz.Close(); err != nil {
		return nil, errors.Wrapf(err, "Can't load network, failed to close decompressor\n")
	}

	mb, ok := files[manifestName]
	if !ok {
		return nil, errors.Errorf("Can't load network, archive has no %q", manifestName)
	}

	var m manifest
	if err := json.Unmarshal(mb, &m); err != nil {
		return nil, errors.Wrapf(err, "Can't load network, bad manifest\n")
	} else if m.Format != archiveFormat {
		return nil, errors.Errorf("Can't load network, unsupported format %d (want %d)", m.Format, archiveFormat)
	}

	layers := make([]Layer, len(m.Layers))
	for i, spec := range m.Layers {
		if layers[i], err = layerFromSpec(spec.Type, spec.Out); err != nil {
			return nil, errors.Wrapf(err, "Can't load network, bad layer %d\n", i)
		}
	}

	net, err := New(m.InputDim, nil, layers...)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't load network, manifest describes no valid network\n")
	}

	for i, l := range net.layers {
		d, ok := l.(*denseLayer)
		if !ok {
			continue
		}

		b, ok := files[layerFileName(i)]
		if !ok {
			return nil, errors.Errorf("Can't load network, archive has no weights for layer %d", i)
		}

		var p denseParams
		if err := json.Unmarshal(b, &p); err != nil {
			return nil, errors.Wrapf(err, "Can't load network, bad weights for layer %d\n", i)
		} else if err := d.setParams(p.Weights, p.Biases); err != nil {
			return nil, errors.Wrapf(err, "Can't load network, weights for layer %d don't fit\n", i)
		}
	}
	return net, nil
}

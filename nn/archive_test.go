package nn

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"math/rand"
	"strings"
	"testing"
)

func TestArchiveRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(20))
	net := testNet(t, rng, Dense(8), ReLU(), Dense(1), Sigmoid())

	err := net.Train(TrainArgs{
		Data:         clusterData(),
		Epochs:       20,
		BatchSize:    4,
		LearningRate: 0.2,
		Rand:         rng,
	})
	if err != nil {
		t.Fatalf("Train: %v", err)
	}

	var buf bytes.Buffer
	if err := net.WriteArchive(&buf); err != nil {
		t.Fatalf("WriteArchive: %v", err)
	}

	loaded, err := ReadArchive(&buf)
	if err != nil {
		t.Fatalf("ReadArchive: %v", err)
	}
	if loaded.InputSize() != net.InputSize() {
		t.Fatalf("loaded InputSize() = %d, want %d", loaded.InputSize(), net.InputSize())
	}

	for i := 0; i < 50; i++ {
		x := []float64{4*rng.Float64() - 2, 4*rng.Float64() - 2}
		want, err := net.Score(x)
		if err != nil {
			t.Fatalf("Score(%v): %v", x, err)
		}
		got, err := loaded.Score(x)
		if err != nil {
			t.Fatalf("loaded Score(%v): %v", x, err)
		}
		if got != want {
			t.Errorf("loaded Score(%v) = %v, want %v", x, got, want)
		}
	}
}

// gzTar builds a gzipped tar from name -> content pairs, in map order.
func gzTar(t *testing.T, entries map[string]string) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, body := range entries {
		hdr := &tar.Header{Name: name, Mode: 0644, Size: int64(len(body))}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("WriteHeader(%q): %v", name, err)
		}
		if _, err := tw.Write([]byte(body)); err != nil {
			t.Fatalf("Write(%q): %v", name, err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("closing tar: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("closing gzip: %v", err)
	}
	return &buf
}

func TestReadArchiveErrors(t *testing.T) {
	cases := []struct {
		name    string
		archive *bytes.Buffer
		errPart string
	}{
		{
			"not gzipped",
			bytes.NewBufferString("definitely not an archive"),
			"not gzipped",
		},
		{
			"no manifest",
			nil, // filled in below
			"no \"manifest.json\"",
		},
		{
			"bad manifest json",
			nil,
			"bad manifest",
		},
		{
			"unsupported format",
			nil,
			"unsupported format",
		},
		{
			"unknown layer type",
			nil,
			"unknown layer type",
		},
		{
			"missing dense weights",
			nil,
			"no weights for layer 0",
		},
	}
	cases[1].archive = gzTar(t, map[string]string{"readme.txt": "hi"})
	cases[2].archive = gzTar(t, map[string]string{"manifest.json": "{"})
	cases[3].archive = gzTar(t, map[string]string{
		"manifest.json": `{"format":99,"input_dim":2,"layers":[{"type":"sigmoid"}]}`,
	})
	cases[4].archive = gzTar(t, map[string]string{
		"manifest.json": `{"format":1,"input_dim":2,"layers":[{"type":"softplus"}]}`,
	})
	cases[5].archive = gzTar(t, map[string]string{
		"manifest.json": `{"format":1,"input_dim":2,"layers":[{"type":"dense","out":3}]}`,
	})

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := ReadArchive(c.archive)
			if err == nil {
				t.Fatalf("ReadArchive did not fail")
			}
			if !strings.Contains(err.Error(), c.errPart) {
				t.Errorf("ReadArchive error = %q, want it to mention %q", err, c.errPart)
			}
		})
	}
}

func TestReadArchiveActivationsOnly(t *testing.T) {
	// A weightless network is odd but legal; it must survive the trip.
	archive := gzTar(t, map[string]string{
		"manifest.json": `{"format":1,"input_dim":3,"layers":[{"type":"tanh"},{"type":"relu"}]}`,
	})

	net, err := ReadArchive(archive)
	if err != nil {
		t.Fatalf("ReadArchive: %v", err)
	}
	if net.InputSize() != 3 || net.OutputSize() != 3 {
		t.Errorf("sizes = %d in, %d out, want 3 and 3", net.InputSize(), net.OutputSize())
	}

	out, err := net.Forward([]float64{-2, 0, 2})
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	// tanh then relu: negatives clip to 0.
	if out[0] != 0 || out[1] != 0 {
		t.Errorf("Forward = %v, want first two values 0", out)
	}
	if out[2] <= 0.9 || out[2] >= 1 {
		t.Errorf("Forward = %v, want last value = tanh(2)", out)
	}
}

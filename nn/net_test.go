package nn

import (
	"math/rand"
	"testing"
)

func testNet(t *testing.T, rng *rand.Rand, layers ...Layer) *Network {
	t.Helper()

	net, err := New(2, rng, layers...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return net
}

func TestNewValidation(t *testing.T) {
	cases := []struct {
		name   string
		inDim  int
		layers []Layer
	}{
		{"zero input dim", 0, []Layer{Dense(1), Sigmoid()}},
		{"no layers", 2, nil},
		{"zero-width dense", 2, []Layer{Dense(0), Sigmoid()}},
		{"nil layer", 2, []Layer{nil}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := New(c.inDim, nil, c.layers...); err == nil {
				t.Fatalf("New(%d, %v) did not fail", c.inDim, c.layers)
			}
		})
	}
}

func TestNetworkSizes(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	net := testNet(t, rng, Dense(20), ReLU(), Dense(1), Sigmoid())

	if net.InputSize() != 2 {
		t.Errorf("InputSize() = %d, want 2", net.InputSize())
	}
	if net.OutputSize() != 1 {
		t.Errorf("OutputSize() = %d, want 1", net.OutputSize())
	}
}

func TestScoreInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	net := testNet(t, rng, Dense(20), ReLU(), Dense(1), Sigmoid())

	for i := 0; i < 200; i++ {
		// Spread inputs far outside the training regime to push the
		// sigmoid toward saturation.
		x := []float64{100 * (2*rng.Float64() - 1), 100 * (2*rng.Float64() - 1)}
		score, err := net.Score(x)
		if err != nil {
			t.Fatalf("Score(%v): %v", x, err)
		}
		if score < 0 || score > 1 {
			t.Fatalf("Score(%v) = %v, outside [0, 1]", x, score)
		}
	}
}

func TestForwardSizeMismatch(t *testing.T) {
	net := testNet(t, rand.New(rand.NewSource(3)), Dense(4), Tanh(), Dense(1), Sigmoid())

	_, err := net.Forward([]float64{1, 2, 3})
	sm, ok := err.(SizeMismatchError)
	if !ok {
		t.Fatalf("Forward with 3 values returned %v, want SizeMismatchError", err)
	}
	if sm.Expected != 2 || sm.Got != 3 {
		t.Errorf("SizeMismatchError = %+v, want Expected=2 Got=3", sm)
	}
}

func TestSameSeedSameScores(t *testing.T) {
	mk := func() *Network {
		return testNet(t, rand.New(rand.NewSource(4)), Dense(10), ReLU(), Dense(1), Sigmoid())
	}
	a, b := mk(), mk()

	for _, x := range [][]float64{{0, 0}, {1, -1}, {0.25, 0.75}, {-3, 2}} {
		sa, err := a.Score(x)
		if err != nil {
			t.Fatalf("Score(%v): %v", x, err)
		}
		sb, err := b.Score(x)
		if err != nil {
			t.Fatalf("Score(%v): %v", x, err)
		}
		if sa != sb {
			t.Errorf("Score(%v) differs between identically seeded networks: %v != %v", x, sa, sb)
		}
	}
}

func TestScoreBatchMatchesScore(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	net := testNet(t, rng, Dense(12), Tanh(), Dense(1), Sigmoid())

	xs := make([][]float64, 100)
	for i := range xs {
		xs[i] = []float64{2*rng.Float64() - 1, 2*rng.Float64() - 1}
	}

	batch, err := net.ScoreBatch(xs)
	if err != nil {
		t.Fatalf("ScoreBatch: %v", err)
	}
	if len(batch) != len(xs) {
		t.Fatalf("ScoreBatch returned %d scores for %d inputs", len(batch), len(xs))
	}

	for i, x := range xs {
		single, err := net.Score(x)
		if err != nil {
			t.Fatalf("Score(%v): %v", x, err)
		}
		if batch[i] != single {
			t.Errorf("score %d: batch %v != single %v", i, batch[i], single)
		}
	}
}

func TestScoreBatchBadRow(t *testing.T) {
	net := testNet(t, rand.New(rand.NewSource(6)), Dense(4), ReLU(), Dense(1), Sigmoid())

	xs := [][]float64{{0, 0}, {1}, {2, 2}}
	if _, err := net.ScoreBatch(xs); err == nil {
		t.Fatalf("ScoreBatch with a short row did not fail")
	}
}

func TestScoreBatchEmpty(t *testing.T) {
	net := testNet(t, rand.New(rand.NewSource(7)), Dense(4), ReLU(), Dense(1), Sigmoid())

	scores, err := net.ScoreBatch(nil)
	if err != nil {
		t.Fatalf("ScoreBatch(nil): %v", err)
	}
	if len(scores) != 0 {
		t.Errorf("ScoreBatch(nil) returned %d scores", len(scores))
	}
}

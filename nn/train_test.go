package nn

import (
	"math/rand"
	"testing"
)

// clusterData is a small linearly separable set: class 0 around (-1, -1) and
// class 1 around (1, 1).
func clusterData() []Datum {
	offsets := []float64{-0.3, -0.1, 0.1, 0.3}

	var data []Datum
	for _, dx := range offsets {
		for _, dy := range offsets {
			data = append(data,
				Datum{X: []float64{-1 + dx, -1 + dy}, Y: 0},
				Datum{X: []float64{1 + dx, 1 + dy}, Y: 1})
		}
	}
	return data
}

func TestTrainValidation(t *testing.T) {
	data := clusterData()
	cases := []struct {
		name string
		args TrainArgs
	}{
		{"no data", TrainArgs{Epochs: 10, LearningRate: 0.1}},
		{"zero epochs", TrainArgs{Data: data, LearningRate: 0.1}},
		{"negative learning rate", TrainArgs{Data: data, Epochs: 10, LearningRate: -1}},
		{"negative batch size", TrainArgs{Data: data, Epochs: 10, LearningRate: 0.1, BatchSize: -2}},
		{"short example", TrainArgs{
			Data:         []Datum{{X: []float64{1}, Y: 0}},
			Epochs:       10,
			LearningRate: 0.1,
		}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			net := testNet(t, rand.New(rand.NewSource(10)), Dense(4), Tanh(), Dense(1), Sigmoid())
			if err := net.Train(c.args); err == nil {
				t.Fatalf("Train(%+v) did not fail", c.args)
			}
		})
	}
}

func TestTrainLearnsClusters(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	net := testNet(t, rng, Dense(8), Tanh(), Dense(1), Sigmoid())
	data := clusterData()

	before, _, err := net.Test(data, nil, nil)
	if err != nil {
		t.Fatalf("Test before training: %v", err)
	}

	err = net.Train(TrainArgs{
		Data:         data,
		Epochs:       300,
		BatchSize:    4,
		LearningRate: 0.5,
		Rand:         rng,
	})
	if err != nil {
		t.Fatalf("Train: %v", err)
	}

	after, correct, err := net.Test(data, nil, nil)
	if err != nil {
		t.Fatalf("Test after training: %v", err)
	}

	if after >= before {
		t.Errorf("training did not reduce cost: %v -> %v", before, after)
	}
	if correct < 0.9 {
		t.Errorf("trained network got %v correct, want >= 0.9", correct)
	}
}

func TestTrainStatusUpdates(t *testing.T) {
	net := testNet(t, rand.New(rand.NewSource(12)), Dense(4), Tanh(), Dense(1), Sigmoid())

	var epochs []int
	err := net.Train(TrainArgs{
		Data:         clusterData(),
		Epochs:       5,
		LearningRate: 0.1,
		SendStatus:   Every(2),
		Update: func(r Result) {
			epochs = append(epochs, r.Epoch)
			if r.Cost < 0 {
				t.Errorf("epoch %d: negative cost %v", r.Epoch, r.Cost)
			}
			if r.Correct < 0 || r.Correct > 1 {
				t.Errorf("epoch %d: Correct = %v, outside [0, 1]", r.Epoch, r.Correct)
			}
		},
	})
	if err != nil {
		t.Fatalf("Train: %v", err)
	}

	want := []int{2, 4}
	if len(epochs) != len(want) {
		t.Fatalf("got updates for epochs %v, want %v", epochs, want)
	}
	for i := range want {
		if epochs[i] != want[i] {
			t.Fatalf("got updates for epochs %v, want %v", epochs, want)
		}
	}
}

func TestTestMatchesSequentialScoring(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	net := testNet(t, rng, Dense(6), ReLU(), Dense(1), Sigmoid())
	data := clusterData()

	var wantCost float64
	var wantRight int
	cf := CrossEntropy()
	for _, d := range data {
		out, err := net.Score(d.X)
		if err != nil {
			t.Fatalf("Score(%v): %v", d.X, err)
		}
		wantCost += cf.Cost(out, d.Y)
		if RoundMatch(out, d.Y) {
			wantRight++
		}
	}
	wantCost /= float64(len(data))
	wantFrac := float64(wantRight) / float64(len(data))

	cost, frac, err := net.Test(data, nil, nil)
	if err != nil {
		t.Fatalf("Test: %v", err)
	}

	// Parallel summation reorders the additions, so allow a little float
	// noise on the cost.
	if diff := cost - wantCost; diff < -1e-9 || diff > 1e-9 {
		t.Errorf("Test cost = %v, sequential cost = %v", cost, wantCost)
	}
	if frac != wantFrac {
		t.Errorf("Test correct fraction = %v, sequential fraction = %v", frac, wantFrac)
	}
}

func TestRoundMatch(t *testing.T) {
	cases := []struct {
		out, target float64
		want        bool
	}{
		{0, 0, true},
		{0.49, 0, true},
		{0.5, 0, false},
		{0.5, 1, true},
		{0.51, 1, true},
		{1, 0, false},
	}

	for _, c := range cases {
		if got := RoundMatch(c.out, c.target); got != c.want {
			t.Errorf("RoundMatch(%v, %v) = %t, want %t", c.out, c.target, got, c.want)
		}
	}
}

func TestCostFunctions(t *testing.T) {
	ce := CrossEntropy()
	if got := ce.Cost(1, 1); got < 0 || got > 1e-9 {
		t.Errorf("CrossEntropy.Cost(1, 1) = %v, want ~0", got)
	}
	if got := ce.Cost(0, 1); got < 20 {
		t.Errorf("CrossEntropy.Cost(0, 1) = %v, want a large finite penalty", got)
	}

	se := SquaredError()
	if got := se.Cost(0.5, 1); got != 0.125 {
		t.Errorf("SquaredError.Cost(0.5, 1) = %v, want 0.125", got)
	}
	if got := se.Deriv(0.5, 1); got != -0.5 {
		t.Errorf("SquaredError.Deriv(0.5, 1) = %v, want -0.5", got)
	}
}

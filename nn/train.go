package nn

import (
	"math/rand"
	"runtime"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

// Datum is a single training or testing example: a feature vector and its
// binary target.
type Datum struct {
	X []float64
	Y float64
}

// Result is a summary of the network's performance over one pass through the
// data.
type Result struct {
	// Epoch is the 1-based epoch the Result describes.
	Epoch int

	// Cost is the average cost per example.
	Cost float64

	// Correct is the fraction of examples judged correct, in [0, 1].
	Correct float64
}

// TrainArgs bundles the arguments to Train. Data, Epochs and LearningRate
// are required; everything else has a usable default.
type TrainArgs struct {
	// Data is the set of examples trained on.
	Data []Datum

	// Epochs is the number of full passes made over Data.
	Epochs int

	// BatchSize is the number of examples whose gradients are accumulated
	// before the weights move. Zero means 1 (plain stochastic descent).
	BatchSize int

	// LearningRate scales each weight update.
	LearningRate float64

	// Rand reshuffles Data before each epoch. If nil, every epoch runs in
	// the order given.
	Rand *rand.Rand

	// CostFunc defaults to CrossEntropy.
	CostFunc CostFunction

	// IsCorrect reports whether an output counts as matching its target,
	// for the Correct fraction in Results. Defaults to RoundMatch.
	IsCorrect func(out, target float64) bool

	// SendStatus reports whether the epoch's Result should be handed to
	// Update. If either is nil, no Results are delivered.
	SendStatus func(epoch int) bool
	Update     func(r Result)
}

// Every returns a function reporting true once every n epochs, for
// TrainArgs.SendStatus.
func Every(n int) func(int) bool {
	return func(epoch int) bool {
		return epoch%n == 0
	}
}

// RoundMatch reports whether out rounds to target, with scores >= 0.5
// rounding up to class 1.
func RoundMatch(out, target float64) bool {
	round := 0.0
	if out >= 0.5 {
		round = 1
	}
	return round == target
}

func (net *Network) checkData(data []Datum) error {
	if len(data) == 0 {
		return errors.Errorf("Can't use empty dataset")
	}
	for i, d := range data {
		if len(d.X) != net.inDim {
			return errors.Wrapf(SizeMismatchError{"input", net.inDim, len(d.X)}, "example %d", i)
		}
	}
	return nil
}

// Train fits the Network to args.Data by minibatch gradient descent. The
// data is validated up front; a returned error means no weights moved.
func (net *Network) Train(args TrainArgs) error {
	if net.outDim != 1 {
		return errors.Errorf("Can't train, network has %d outputs (want 1)", net.outDim)
	} else if err := net.checkData(args.Data); err != nil {
		return errors.Wrapf(err, "Can't train\n")
	} else if args.Epochs < 1 {
		return errors.Errorf("Can't train, Epochs must be >= 1 (%d)", args.Epochs)
	} else if args.LearningRate <= 0 {
		return errors.Errorf("Can't train, LearningRate must be > 0 (%g)", args.LearningRate)
	} else if args.BatchSize < 0 {
		return errors.Errorf("Can't train, BatchSize must be >= 0 (%d)", args.BatchSize)
	}

	batchSize := args.BatchSize
	if batchSize == 0 {
		batchSize = 1
	}
	cf := args.CostFunc
	if cf == nil {
		cf = CrossEntropy()
	}
	isCorrect := args.IsCorrect
	if isCorrect == nil {
		isCorrect = RoundMatch
	}

	order := make([]int, len(args.Data))
	for i := range order {
		order[i] = i
	}

	dOut := make([]float64, 1)
	for epoch := 1; epoch <= args.Epochs; epoch++ {
		if args.Rand != nil {
			args.Rand.Shuffle(len(order), func(i, j int) {
				order[i], order[j] = order[j], order[i]
			})
		}

		var costSum float64
		var correct int
		inBatch := 0
		for _, idx := range order {
			d := args.Data[idx]
			out := net.forward(d.X)[0]

			costSum += cf.Cost(out, d.Y)
			if isCorrect(out, d.Y) {
				correct++
			}

			dOut[0] = cf.Deriv(out, d.Y)
			net.backward(dOut)
			if inBatch++; inBatch == batchSize {
				net.apply(args.LearningRate, inBatch)
				inBatch = 0
			}
		}
		if inBatch > 0 {
			net.apply(args.LearningRate, inBatch)
		}

		if args.SendStatus != nil && args.Update != nil && args.SendStatus(epoch) {
			n := float64(len(args.Data))
			args.Update(Result{
				Epoch:   epoch,
				Cost:    costSum / n,
				Correct: float64(correct) / n,
			})
		}
	}
	return nil
}

// Test scores every example in data without changing any weights, splitting
// the work across CPUs. It returns the average cost per example and the
// fraction judged correct by isCorrect. A nil cf means CrossEntropy and a nil
// isCorrect means RoundMatch.
func (net *Network) Test(data []Datum, cf CostFunction, isCorrect func(out, target float64) bool) (avgCost, fracCorrect float64, err error) {
	if net.outDim != 1 {
		return 0, 0, errors.Errorf("Can't test, network has %d outputs (want 1)", net.outDim)
	} else if err := net.checkData(data); err != nil {
		return 0, 0, errors.Wrapf(err, "Can't test\n")
	}

	if cf == nil {
		cf = CrossEntropy()
	}
	if isCorrect == nil {
		isCorrect = RoundMatch
	}

	costSum := atomic.NewFloat64(0)
	correct := atomic.NewInt64(0)
	runChunked(len(data), runtime.NumCPU(), func(lo, hi int) {
		rep := net.replica()
		var cost float64
		var right int64
		for i := lo; i < hi; i++ {
			out := rep.forward(data[i].X)[0]
			cost += cf.Cost(out, data[i].Y)
			if isCorrect(out, data[i].Y) {
				right++
			}
		}
		costSum.Add(cost)
		correct.Add(right)
	})

	n := float64(len(data))
	return costSum.Load() / n, float64(correct.Load()) / n, nil
}

// Package nn maintains the small feed-forward networks used for binary
// classification: a fixed input dimension, fully-connected layers with
// elementwise activations between them, and a sigmoid on the end squashing the
// output into [0, 1].
//
// Creating Networks
//
// Networks are built front to back from an input dimension and a list of
// Layers:
//
//		net, err := nn.New(2, rng, nn.Dense(20), nn.ReLU(), nn.Dense(1), nn.Sigmoid())
//
// rng seeds the weight initialization; passing nil falls back to the shared
// math/rand source. Layer sizes are resolved while the list is walked, so a
// Dense layer only names its output width.
//
// Training and Testing
//
// Training runs minibatch gradient descent over a slice of Datum, with the
// optional arguments gathered into TrainArgs:
//
//		err := net.Train(nn.TrainArgs{
//			Data:         data,
//			Epochs:       80,
//			BatchSize:    10,
//			LearningRate: 0.05,
//			Rand:         rng,
//		})
//
// Progress can be observed by setting SendStatus and Update; see TrainArgs.
// Test returns the average cost and the fraction of examples judged correct,
// scored across CPUs.
//
// Saving and Loading
//
// A trained Network is persisted as a single opaque archive (a gzipped tar of
// its manifest and per-layer weights) with WriteArchive, and restored with
// ReadArchive. Loaded networks are ready for scoring immediately.
package nn

import (
	"fmt"
	"math/rand"
	"runtime"

	"github.com/pkg/errors"
)

// SizeMismatchError reports a vector whose length does not fit what the
// Network was built for.
type SizeMismatchError struct {
	What          string
	Expected, Got int
}

func (err SizeMismatchError) Error() string {
	return fmt.Sprintf("wrong number of %s values (expected %d, got %d)", err.What, err.Expected, err.Got)
}

// Network is an ordered stack of Layers with a fixed input dimension. The
// zero Network is not usable; construct with New or ReadArchive.
//
// Forward passes cache per-layer values for backpropagation, so a Network is
// not safe for concurrent use. ScoreBatch and Test work on read-only replicas
// internally and may be called on a network that is not being trained.
type Network struct {
	inDim  int
	outDim int
	layers []layer
}

// New builds a Network taking inputDim values, feeding them through the given
// Layers in order. Weighted layers are initialized from rng; a nil rng uses
// the shared math/rand source.
func New(inputDim int, rng *rand.Rand, layers ...Layer) (*Network, error) {
	if inputDim < 1 {
		return nil, errors.Errorf("Can't construct network, input dimension must be >= 1 (%d)", inputDim)
	} else if len(layers) == 0 {
		return nil, errors.Errorf("Can't construct network, no layers given")
	}

	net := &Network{inDim: inputDim}
	dim := inputDim
	for i, l := range layers {
		impl, ok := l.(layer)
		if !ok || impl == nil {
			return nil, errors.Errorf("Can't construct network, layer %d is nil or foreign", i)
		}

		var err error
		if dim, err = impl.init(dim, rng); err != nil {
			return nil, errors.Wrapf(err, "Can't construct network, layer %d (%s) failed to initialize", i, l.TypeString())
		}
		net.layers = append(net.layers, impl)
	}

	net.outDim = dim
	return net, nil
}

// InputSize returns the number of input values the Network expects.
func (net *Network) InputSize() int {
	return net.inDim
}

// OutputSize returns the number of values the Network produces.
func (net *Network) OutputSize() int {
	return net.outDim
}

// forward runs one input through every layer and returns the final layer's
// value buffer. The input length must already be validated.
func (net *Network) forward(x []float64) []float64 {
	vals := x
	for _, l := range net.layers {
		vals = l.forward(vals)
	}
	return vals
}

// backward propagates the cost derivatives of the most recent forward pass,
// accumulating weight gradients in each adjustable layer.
func (net *Network) backward(dOut []float64) {
	deltas := dOut
	for i := len(net.layers) - 1; i >= 0; i-- {
		deltas = net.layers[i].backward(deltas)
	}
}

// apply folds the accumulated gradients of a finished batch into the weights.
func (net *Network) apply(learningRate float64, batch int) {
	step := learningRate / float64(batch)
	for _, l := range net.layers {
		if adj, ok := l.(adjustable); ok {
			adj.apply(step)
		}
	}
}

// replica returns a Network sharing this one's weights but owning its own
// per-layer buffers, so several replicas can score concurrently as long as
// nobody trains the original in the meantime.
func (net *Network) replica() *Network {
	rep := &Network{inDim: net.inDim, outDim: net.outDim}
	rep.layers = make([]layer, len(net.layers))
	for i, l := range net.layers {
		rep.layers[i] = l.clone()
	}
	return rep
}

// Forward runs x through the Network and returns a copy of the output values.
// It returns a SizeMismatchError if x does not have the Network's input
// dimension.
func (net *Network) Forward(x []float64) ([]float64, error) {
	if len(x) != net.inDim {
		return nil, SizeMismatchError{"input", net.inDim, len(x)}
	}

	out := net.forward(x)
	cp := make([]float64, len(out))
	copy(cp, out)
	return cp, nil
}

// Score runs x through the Network and returns its single output value. For
// networks ending in a Sigmoid the score lies in [0, 1]. Score returns an
// error if the Network output is not scalar or x has the wrong dimension.
func (net *Network) Score(x []float64) (float64, error) {
	if net.outDim != 1 {
		return 0, errors.Errorf("Can't score, network has %d outputs (want 1)", net.outDim)
	}

	out, err := net.Forward(x)
	if err != nil {
		return 0, err
	}
	return out[0], nil
}

// ScoreBatch scores every row of xs, splitting the batch across CPUs. The
// returned slice is index-aligned with xs. All rows are validated before any
// work starts, so a dimension error means nothing was scored.
func (net *Network) ScoreBatch(xs [][]float64) ([]float64, error) {
	if net.outDim != 1 {
		return nil, errors.Errorf("Can't score, network has %d outputs (want 1)", net.outDim)
	}
	for i, x := range xs {
		if len(x) != net.inDim {
			return nil, errors.Wrapf(SizeMismatchError{"input", net.inDim, len(x)}, "row %d", i)
		}
	}
	if len(xs) == 0 {
		return []float64{}, nil
	}

	scores := make([]float64, len(xs))
	runChunked(len(xs), runtime.NumCPU(), func(lo, hi int) {
		rep := net.replica()
		for i := lo; i < hi; i++ {
			scores[i] = rep.forward(xs[i])[0]
		}
	})
	return scores, nil
}

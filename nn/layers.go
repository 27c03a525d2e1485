package nn

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Layer is one stage of a Network. Layers are produced by the constructors in
// this package (Dense, ReLU, Tanh, Sigmoid) and hold their own state once the
// Network is built.
type Layer interface {
	// TypeString returns the name the layer is archived under.
	TypeString() string
}

// layer is the working surface of a Layer. Sizes are resolved by init when
// the Network is assembled; forward and backward operate on the buffers
// allocated there.
type layer interface {
	Layer

	// init finishes construction for the given input dimension, returning
	// the layer's output dimension.
	init(inDim int, rng *rand.Rand) (outDim int, err error)

	// forward computes the layer's values for one input, caching whatever
	// backward will need, and returns its internal output buffer.
	forward(in []float64) []float64

	// backward takes the cost derivatives with respect to the layer's
	// outputs and returns those with respect to its inputs, accumulating
	// any weight gradients along the way.
	backward(dOut []float64) []float64

	// clone returns a copy sharing weights with the original but owning
	// fresh value buffers.
	clone() layer
}

// adjustable is implemented by layers with weights to fold in.
type adjustable interface {
	apply(step float64)
}

// Dense returns a fully-connected layer with out output values.
func Dense(out int) Layer {
	return &denseLayer{out: out}
}

// denseLayer computes w·x + b. Gradients accumulate in gw and gb until apply
// folds them into the weights.
type denseLayer struct {
	in, out int

	w *mat.Dense
	b *mat.VecDense

	gw *mat.Dense
	gb *mat.VecDense

	inBuf, outBuf, dInBuf []float64
	inVec, outVec, dInVec *mat.VecDense
}

func (l *denseLayer) TypeString() string {
	return "dense"
}

func (l *denseLayer) init(inDim int, rng *rand.Rand) (int, error) {
	if l.out < 1 {
		return 0, errors.Errorf("output dimension must be >= 1 (%d)", l.out)
	} else if l.w != nil {
		return 0, errors.Errorf("layer is already part of a network")
	}

	uniform := rand.Float64
	if rng != nil {
		uniform = rng.Float64
	}

	l.in = inDim
	l.w = mat.NewDense(l.out, l.in, nil)
	l.b = mat.NewVecDense(l.out, nil)
	for r := 0; r < l.out; r++ {
		for c := 0; c < l.in; c++ {
			l.w.Set(r, c, (2*uniform()-1)/float64(l.in))
		}
		l.b.SetVec(r, (2*uniform()-1)/float64(l.in))
	}

	l.gw = mat.NewDense(l.out, l.in, nil)
	l.gb = mat.NewVecDense(l.out, nil)
	l.allocBuffers()
	return l.out, nil
}

func (l *denseLayer) allocBuffers() {
	l.inBuf = make([]float64, l.in)
	l.outBuf = make([]float64, l.out)
	l.dInBuf = make([]float64, l.in)
	l.inVec = mat.NewVecDense(l.in, l.inBuf)
	l.outVec = mat.NewVecDense(l.out, l.outBuf)
	l.dInVec = mat.NewVecDense(l.in, l.dInBuf)
}

func (l *denseLayer) forward(in []float64) []float64 {
	copy(l.inBuf, in)
	l.outVec.MulVec(l.w, l.inVec)
	l.outVec.AddVec(l.outVec, l.b)
	return l.outBuf
}

func (l *denseLayer) backward(dOut []float64) []float64 {
	g := mat.NewVecDense(l.out, dOut)
	l.gw.RankOne(l.gw, 1, g, l.inVec)
	l.gb.AddVec(l.gb, g)
	l.dInVec.MulVec(l.w.T(), g)
	return l.dInBuf
}

func (l *denseLayer) apply(step float64) {
	l.gw.Scale(step, l.gw)
	l.w.Sub(l.w, l.gw)
	l.gw.Zero()

	l.gb.ScaleVec(step, l.gb)
	l.b.SubVec(l.b, l.gb)
	l.gb.Zero()
}

func (l *denseLayer) clone() layer {
	cp := &denseLayer{in: l.in, out: l.out, w: l.w, b: l.b}
	cp.gw = mat.NewDense(l.out, l.in, nil)
	cp.gb = mat.NewVecDense(l.out, nil)
	cp.allocBuffers()
	return cp
}

// setParams overwrites the layer's weights and biases, used when a Network is
// loaded from an archive. weights is indexed [output][input].
func (l *denseLayer) setParams(weights [][]float64, biases []float64) error {
	if len(weights) != l.out {
		return SizeMismatchError{"weight row", l.out, len(weights)}
	} else if len(biases) != l.out {
		return SizeMismatchError{"bias", l.out, len(biases)}
	}

	for r, row := range weights {
		if len(row) != l.in {
			return errors.Wrapf(SizeMismatchError{"weight", l.in, len(row)}, "row %d", r)
		}
		for c, v := range row {
			l.w.Set(r, c, v)
		}
		l.b.SetVec(r, biases[r])
	}
	return nil
}

// params returns the layer's weights and biases as plain slices for
// archiving.
func (l *denseLayer) params() (weights [][]float64, biases []float64) {
	weights = make([][]float64, l.out)
	biases = make([]float64, l.out)
	for r := 0; r < l.out; r++ {
		weights[r] = make([]float64, l.in)
		for c := 0; c < l.in; c++ {
			weights[r][c] = l.w.At(r, c)
		}
		biases[r] = l.b.AtVec(r)
	}
	return weights, biases
}

// elemLayer is the shared body of the elementwise activations. value holds
// f(x); deriv computes df/dx from the cached input and output.
type elemLayer struct {
	name  string
	value func(x float64) float64
	deriv func(in, out float64) float64

	dim    int
	inBuf  []float64
	outBuf []float64
	dInBuf []float64
}

func (l *elemLayer) TypeString() string {
	return l.name
}

func (l *elemLayer) init(inDim int, rng *rand.Rand) (int, error) {
	if l.inBuf != nil {
		return 0, errors.Errorf("layer is already part of a network")
	}

	l.dim = inDim
	l.inBuf = make([]float64, inDim)
	l.outBuf = make([]float64, inDim)
	l.dInBuf = make([]float64, inDim)
	return inDim, nil
}

func (l *elemLayer) forward(in []float64) []float64 {
	copy(l.inBuf, in)
	for i, x := range l.inBuf {
		l.outBuf[i] = l.value(x)
	}
	return l.outBuf
}

func (l *elemLayer) backward(dOut []float64) []float64 {
	for i := range l.dInBuf {
		l.dInBuf[i] = dOut[i] * l.deriv(l.inBuf[i], l.outBuf[i])
	}
	return l.dInBuf
}

func (l *elemLayer) clone() layer {
	cp := &elemLayer{name: l.name, value: l.value, deriv: l.deriv}
	cp.dim = l.dim
	cp.inBuf = make([]float64, l.dim)
	cp.outBuf = make([]float64, l.dim)
	cp.dInBuf = make([]float64, l.dim)
	return cp
}

// ReLU returns an elementwise max(x, 0) activation layer.
func ReLU() Layer {
	return &elemLayer{
		name: "relu",
		value: func(x float64) float64 {
			return math.Max(x, 0)
		},
		deriv: func(in, out float64) float64 {
			if in > 0 {
				return 1
			}
			return 0
		},
	}
}

// Tanh returns an elementwise hyperbolic tangent activation layer.
func Tanh() Layer {
	return &elemLayer{
		name:  "tanh",
		value: math.Tanh,
		deriv: func(in, out float64) float64 {
			return 1 - out*out
		},
	}
}

// Sigmoid returns an elementwise logistic activation layer, squashing each
// value into (0, 1).
func Sigmoid() Layer {
	return &elemLayer{
		name: "sigmoid",
		value: func(x float64) float64 {
			return 0.5 + 0.5*math.Tanh(0.5*x)
		},
		deriv: func(in, out float64) float64 {
			return out * (1 - out)
		},
	}
}

// layerFromSpec reconstructs an un-initialized Layer from its archived type
// name.
func layerFromSpec(typ string, out int) (Layer, error) {
	switch typ {
	case "dense":
		return Dense(out), nil
	case "relu":
		return ReLU(), nil
	case "tanh":
		return Tanh(), nil
	case "sigmoid":
		return Sigmoid(), nil
	default:
		return nil, errors.Errorf("unknown layer type %q", typ)
	}
}

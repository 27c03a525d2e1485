package nn

import "math"

// CostFunction measures how far a scalar network output is from its target,
// and supplies the derivative backpropagation starts from.
type CostFunction interface {
	TypeString() string

	// Cost returns the penalty for producing out when the target was
	// target. It is always >= 0.
	Cost(out, target float64) float64

	// Deriv returns d(Cost)/d(out).
	Deriv(out, target float64) float64
}

// clampP keeps probabilities away from exactly 0 and 1 so that logarithms and
// their derivatives stay finite.
const clampP = 1e-12

type crossEntropy struct{}

// CrossEntropy returns the binary cross-entropy cost,
// -(t*ln(p) + (1-t)*ln(1-p)), with p clamped away from 0 and 1.
func CrossEntropy() CostFunction {
	return crossEntropy{}
}

func (c crossEntropy) TypeString() string {
	return "cross-entropy"
}

func (c crossEntropy) Cost(out, target float64) float64 {
	p := math.Min(math.Max(out, clampP), 1-clampP)
	return -(target*math.Log(p) + (1-target)*math.Log(1-p))
}

func (c crossEntropy) Deriv(out, target float64) float64 {
	p := math.Min(math.Max(out, clampP), 1-clampP)
	return (p - target) / (p * (1 - p))
}

type squaredError struct{}

// SquaredError returns the cost 0.5*(out-target)², mostly useful for
// regression-flavored experiments.
func SquaredError() CostFunction {
	return squaredError{}
}

func (c squaredError) TypeString() string {
	return "squared-error"
}

func (c squaredError) Cost(out, target float64) float64 {
	d := out - target
	return 0.5 * d * d
}

func (c squaredError) Deriv(out, target float64) float64 {
	return out - target
}

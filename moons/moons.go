// Package moons generates the synthetic "two moons" dataset: two classes of 2-D
// points arranged as interleaved crescents. It follows the same construction as
// scikit-learn's make_moons, which is the usual source of this data: the outer
// crescent is the upper half of the unit circle, the inner crescent is the lower
// half shifted to nest inside it, and gaussian noise is added to both.
//
// The dataset is the input to everything else in this repository; see the
// tabular package for the on-disk format.
package moons

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
)

// Labels for the two crescents. Outer is the upper half-circle, Inner the
// shifted lower half-circle.
const (
	Outer = 0
	Inner = 1
)

// A Sample is one labeled point. Features is 2-dimensional for generated moon
// data, but nothing downstream assumes that; datasets read back from file keep
// whatever width the file had.
type Sample struct {
	Features []float64
	Label    int
}

// A Set is an ordered collection of Samples.
type Set struct {
	Samples []Sample
}

// Generate returns a Set of n points forming two interleaved crescents. The
// first n/2 points lie on the outer crescent (label 0) and the remainder on the
// inner crescent (label 1); Split is the intended way to shuffle them apart.
//
// noise is the standard deviation of gaussian jitter added to both coordinates.
// A noise of 0 places every point exactly on its crescent. rng is the only
// source of randomness, so a fixed seed reproduces the Set exactly.
func Generate(n int, noise float64, rng *rand.Rand) Set {
	nOuter := n / 2
	nInner := n - nOuter

	samples := make([]Sample, 0, n)
	for i := 0; i < nOuter; i++ {
		t := arcStep(i, nOuter)
		samples = append(samples, Sample{
			Features: []float64{math.Cos(t), math.Sin(t)},
			Label:    Outer,
		})
	}
	for i := 0; i < nInner; i++ {
		t := arcStep(i, nInner)
		samples = append(samples, Sample{
			Features: []float64{1 - math.Cos(t), 1 - math.Sin(t) - 0.5},
			Label:    Inner,
		})
	}

	if noise > 0 {
		for i := range samples {
			for j := range samples[i].Features {
				samples[i].Features[j] += rng.NormFloat64() * noise
			}
		}
	}

	return Set{Samples: samples}
}

// arcStep spaces count angles evenly across [0, pi], inclusive of both ends.
func arcStep(i, count int) float64 {
	if count <= 1 {
		return 0
	}
	return math.Pi * float64(i) / float64(count-1)
}

// Len returns the number of samples in the Set.
func (s Set) Len() int {
	return len(s.Samples)
}

// Dim returns the feature width of the Set, or 0 if it is empty. All samples in
// a generated or decoded Set share one width.
func (s Set) Dim() int {
	if len(s.Samples) == 0 {
		return 0
	}
	return len(s.Samples[0].Features)
}

// Features returns the feature rows of the Set as a matrix-shaped slice, in
// sample order. The rows alias the Set's storage.
func (s Set) Features() [][]float64 {
	xs := make([][]float64, len(s.Samples))
	for i, smp := range s.Samples {
		xs[i] = smp.Features
	}
	return xs
}

// Labels returns the labels of the Set in sample order.
func (s Set) Labels() []int {
	ys := make([]int, len(s.Samples))
	for i, smp := range s.Samples {
		ys[i] = smp.Label
	}
	return ys
}

// Split partitions the Set into disjoint train and test subsets by random
// sampling without replacement. testFraction is the share of samples assigned
// to the test subset, rounded to the nearest whole sample; every sample lands
// in exactly one subset. Split returns an error if testFraction is outside
// [0, 1].
//
// The split is a shuffle of the whole Set followed by a cut, so a fixed rng
// reproduces it. The input Set is not modified.
func (s Set) Split(testFraction float64, rng *rand.Rand) (train, test Set, err error) {
	if testFraction < 0 || testFraction > 1 {
		return Set{}, Set{}, errors.Errorf("Can't split dataset, test fraction must be within [0, 1] (%v)", testFraction)
	}

	perm := rng.Perm(len(s.Samples))
	nTest := int(math.Round(testFraction * float64(len(s.Samples))))

	test.Samples = make([]Sample, 0, nTest)
	train.Samples = make([]Sample, 0, len(s.Samples)-nTest)
	for i, p := range perm {
		if i < nTest {
			test.Samples = append(test.Samples, s.Samples[p])
		} else {
			train.Samples = append(train.Samples, s.Samples[p])
		}
	}

	return train, test, nil
}

// Package metrics evaluates binary classifiers from the outside: given the
// scores a model produced and the labels that were actually true, it builds
// the confusion matrix and derives the usual rates from it.
//
// Scores are rounded before counting, with 0.5 and above becoming class 1.
// The derived rates distinguish their zero-denominator cases with sentinel
// errors (ErrNoActualPositives, ErrNoPredictedPositives, ErrNoSamples) so
// that callers can tell "undefined" apart from "zero".
package metrics

import "github.com/pkg/errors"

// Error is a constant error type.
type Error struct {
	s string
}

func (err Error) Error() string {
	return err.s
}

var (
	// ErrNoActualPositives is returned by Recall when no label is 1.
	ErrNoActualPositives = Error{"recall undefined, no actual positives"}

	// ErrNoPredictedPositives is returned by Precision when no score
	// rounds to 1.
	ErrNoPredictedPositives = Error{"precision undefined, no predicted positives"}

	// ErrNoSamples is returned by Accuracy for an empty Counts.
	ErrNoSamples = Error{"accuracy undefined, no samples"}
)

// Counts is a confusion matrix for a binary classifier, with class 1 taken
// as positive.
type Counts struct {
	// TruePos counts examples predicted 1 whose label is 1.
	TruePos int

	// FalsePos counts examples predicted 1 whose label is 0.
	FalsePos int

	// TrueNeg counts examples predicted 0 whose label is 0.
	TrueNeg int

	// FalseNeg counts examples predicted 0 whose label is 1.
	FalseNeg int
}

// Round maps a model score to a predicted class, with scores >= 0.5 becoming
// class 1.
func Round(score float64) int {
	if score >= 0.5 {
		return 1
	}
	return 0
}

// Count builds the confusion matrix for a batch of scores against the labels
// that were actually true. Labels must be 0 or 1, and both slices must have
// the same length.
func Count(scores []float64, labels []int) (Counts, error) {
	if len(scores) != len(labels) {
		return Counts{}, errors.Errorf("Can't count, %d scores for %d labels", len(scores), len(labels))
	}

	var c Counts
	for i, s := range scores {
		switch pred, label := Round(s), labels[i]; {
		case label != 0 && label != 1:
			return Counts{}, errors.Errorf("Can't count, label %d is %d (want 0 or 1)", i, label)
		case pred == 1 && label == 1:
			c.TruePos++
		case pred == 1 && label == 0:
			c.FalsePos++
		case pred == 0 && label == 0:
			c.TrueNeg++
		default:
			c.FalseNeg++
		}
	}
	return c, nil
}

// Total returns the number of examples counted.
func (c Counts) Total() int {
	return c.TruePos + c.FalsePos + c.TrueNeg + c.FalseNeg
}

// Recall returns the fraction of actual positives the classifier found,
// TP / (TP + FN). It returns ErrNoActualPositives if there were none.
func (c Counts) Recall() (float64, error) {
	if c.TruePos+c.FalseNeg == 0 {
		return 0, ErrNoActualPositives
	}
	return float64(c.TruePos) / float64(c.TruePos+c.FalseNeg), nil
}

// Precision returns the fraction of predicted positives that were right,
// TP / (TP + FP). It returns ErrNoPredictedPositives if nothing was
// predicted positive.
func (c Counts) Precision() (float64, error) {
	if c.TruePos+c.FalsePos == 0 {
		return 0, ErrNoPredictedPositives
	}
	return float64(c.TruePos) / float64(c.TruePos+c.FalsePos), nil
}

// Accuracy returns the fraction of all examples classified correctly,
// (TP + TN) / total. It returns ErrNoSamples for an empty Counts.
func (c Counts) Accuracy() (float64, error) {
	if c.Total() == 0 {
		return 0, ErrNoSamples
	}
	return float64(c.TruePos+c.TrueNeg) / float64(c.Total()), nil
}

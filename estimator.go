package crescent

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"crescent/nn"
	"crescent/tabular"
)

// Default hyperparameter values, applied by Fit wherever the corresponding field is zero.
const (
	DefaultHiddenDim    = 20
	DefaultEpochs       = 80
	DefaultLearningRate = 0.1
	DefaultBatchSize    = 10
)

// DefaultOutputPrefix is where Fit archives models when Estimator.OutputPrefix is unset.
const DefaultOutputPrefix = "models"

// Hyperparameters configure a training job. The zero value of every field means "use the
// default"; see the Default* constants.
type Hyperparameters struct {
	// InputDim is the number of features per example. Zero infers it from the training data;
	// anything else must match the data exactly.
	InputDim int

	// HiddenDim is the width of the hidden layer.
	HiddenDim int

	// Epochs is the number of full passes over the training data.
	Epochs int

	// LearningRate scales each gradient descent step.
	LearningRate float64

	// BatchSize is the number of examples per weight update.
	BatchSize int

	// Seed fixes weight initialization and epoch shuffling for reproducible runs. Zero draws
	// a seed from the clock instead.
	Seed int64
}

func (hp Hyperparameters) withDefaults() (Hyperparameters, error) {
	if hp.HiddenDim == 0 {
		hp.HiddenDim = DefaultHiddenDim
	}
	if hp.Epochs == 0 {
		hp.Epochs = DefaultEpochs
	}
	if hp.LearningRate == 0 {
		hp.LearningRate = DefaultLearningRate
	}
	if hp.BatchSize == 0 {
		hp.BatchSize = DefaultBatchSize
	}

	if hp.InputDim < 0 {
		return hp, errors.Errorf("InputDim must be >= 0 (%d)", hp.InputDim)
	} else if hp.HiddenDim < 1 {
		return hp, errors.Errorf("HiddenDim must be >= 1 (%d)", hp.HiddenDim)
	} else if hp.Epochs < 1 {
		return hp, errors.Errorf("Epochs must be >= 1 (%d)", hp.Epochs)
	} else if hp.LearningRate <= 0 {
		return hp, errors.Errorf("LearningRate must be > 0 (%g)", hp.LearningRate)
	} else if hp.BatchSize < 1 {
		return hp, errors.Errorf("BatchSize must be >= 1 (%d)", hp.BatchSize)
	}
	return hp, nil
}

// Estimator is a configured training job that has not run yet. Fill in the fields and call Fit;
// the zero values of everything but Session are usable.
type Estimator struct {
	// Session supplies the store training data is read from and models are archived to.
	Session *Session

	// Algorithm names a registered Trainer. Empty means DefaultAlgorithm.
	Algorithm string

	// Hyperparameters configure the Trainer.
	Hyperparameters Hyperparameters

	// OutputPrefix is the store prefix model archives are written under. Empty means
	// DefaultOutputPrefix.
	OutputPrefix string

	// SendStatus and Update forward training progress, in the same way as nn.TrainArgs. Leave
	// both nil for a quiet fit.
	SendStatus func(epoch int) bool
	Update     func(r nn.Result)
}

// jobSeq distinguishes artifact keys from fits started within the same second.
var jobSeq = atomic.NewInt64(0)

func artifactKey(prefix, algorithm string) string {
	name := fmt.Sprintf("%s-%d-%04d.tar.gz", algorithm, time.Now().Unix(), jobSeq.Inc()%10000)
	return path.Join(prefix, name)
}

// Fit reads the label-first tabular dataset at trainKey from the session's store, trains a fresh
// network on it, archives the result back to the store, and returns a Model pointing at the
// archive.
func (e *Estimator) Fit(ctx context.Context, trainKey string) (*Model, error) {
	if e.Session == nil {
		return nil, NilArgError{"Session"}
	}

	algorithm := e.Algorithm
	if algorithm == "" {
		algorithm = DefaultAlgorithm
	}
	trainer, err := trainerByName(algorithm)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't fit\n")
	}

	hp, err := e.Hyperparameters.withDefaults()
	if err != nil {
		return nil, errors.Wrapf(err, "Can't fit, bad hyperparameters\n")
	}

	rc, err := e.Session.store.Get(ctx, trainKey)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't fit\n")
	}
	set, err := tabular.Decode(rc)
	rc.Close()
	if err != nil {
		return nil, errors.Wrapf(err, "Can't fit, dataset %q is unreadable\n", trainKey)
	}

	if set.Len() == 0 {
		return nil, errors.Errorf("Can't fit, dataset %q is empty", trainKey)
	} else if hp.InputDim != 0 && hp.InputDim != set.Dim() {
		return nil, errors.Errorf("Can't fit, dataset %q has %d features but InputDim is %d",
			trainKey, set.Dim(), hp.InputDim)
	}
	hp.InputDim = set.Dim()

	data := make([]nn.Datum, set.Len())
	for i, smp := range set.Samples {
		data[i] = nn.Datum{X: smp.Features, Y: float64(smp.Label)}
	}

	net, err := trainer.Train(ctx, data, hp, TrainStatus{e.SendStatus, e.Update})
	if err != nil {
		return nil, errors.Wrapf(err, "Can't fit, %q failed\n", algorithm)
	}

	prefix := e.OutputPrefix
	if prefix == "" {
		prefix = DefaultOutputPrefix
	}
	key := artifactKey(prefix, algorithm)

	var buf bytes.Buffer
	if err := net.WriteArchive(&buf); err != nil {
		return nil, errors.Wrapf(err, "Can't fit, archiving the network failed\n")
	}
	if err := e.Session.store.Put(ctx, key, &buf); err != nil {
		return nil, errors.Wrapf(err, "Can't fit, storing the archive at %q failed\n", key)
	}

	return &Model{session: e.Session, Algorithm: algorithm, Key: key}, nil
}

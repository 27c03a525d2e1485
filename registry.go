package crescent

import (
	"context"

	"github.com/pkg/errors"

	"crescent/nn"
)

// Trainer produces a fitted network from a dataset and hyperparameters. Implementations are
// registered with RegisterTrainer and selected through an Estimator's Algorithm field.
type Trainer interface {
	TypeString() string

	// Train fits a fresh network to data under hp, forwarding per-epoch results through
	// status.
	Train(ctx context.Context, data []nn.Datum, hp Hyperparameters, status TrainStatus) (*nn.Network, error)
}

// TrainStatus carries the progress callbacks an Estimator hands to its Trainer. Both fields may
// be nil, in which case no progress is reported.
type TrainStatus struct {
	// SendStatus reports whether the (1-based) epoch's result is wanted.
	SendStatus func(epoch int) bool

	// Update receives the results SendStatus asked for.
	Update func(r nn.Result)
}

var trainers = make(map[string]func() Trainer)

// RegisterTrainer makes a Trainer constructor available to Estimators under the given name,
// typically from an init function. Names must be unique and non-empty.
func RegisterTrainer(name string, f func() Trainer) error {
	if name == "" {
		return errors.Errorf(`Name cannot be ""`)
	} else if f == nil {
		return NilArgError{"Trainer constructor"}
	} else if _, ok := trainers[name]; ok {
		return errors.Errorf("Name %q is already taken", name)
	}

	trainers[name] = f
	return nil
}

func trainerByName(name string) (Trainer, error) {
	f, ok := trainers[name]
	if !ok {
		return nil, errors.Errorf("No trainer with name %q", name)
	}

	t := f()
	if t == nil {
		return nil, ErrRegisterNilReturn
	}
	return t, nil
}

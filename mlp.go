package crescent

import (
	"context"
	"math/rand"
	"time"

	"github.com/pkg/errors"

	"crescent/nn"
)

// DefaultAlgorithm is the trainer Estimators fall back on: a single hidden layer of rectified
// units feeding one sigmoid output, fit by minibatch gradient descent on cross-entropy.
const DefaultAlgorithm = "binary-mlp"

func init() {
	err := RegisterTrainer(DefaultAlgorithm, func() Trainer { return binaryMLP{} })
	if err != nil {
		panic(err)
	}
}

type binaryMLP struct{}

func (binaryMLP) TypeString() string {
	return DefaultAlgorithm
}

func (binaryMLP) Train(ctx context.Context, data []nn.Datum, hp Hyperparameters, status TrainStatus) (*nn.Network, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	} else if len(data) == 0 {
		return nil, errors.Errorf("Can't train, no data given")
	}

	seed := hp.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	inDim := hp.InputDim
	if inDim == 0 {
		inDim = len(data[0].X)
	}

	net, err := nn.New(inDim, rng, nn.Dense(hp.HiddenDim), nn.ReLU(), nn.Dense(1), nn.Sigmoid())
	if err != nil {
		return nil, err
	}

	err = net.Train(nn.TrainArgs{
		Data:         data,
		Epochs:       hp.Epochs,
		BatchSize:    hp.BatchSize,
		LearningRate: hp.LearningRate,
		Rand:         rng,
		SendStatus:   status.SendStatus,
		Update:       status.Update,
	})
	if err != nil {
		return nil, err
	}
	return net, nil
}

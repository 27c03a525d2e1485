// Command moons runs the whole workflow end to end: generate a two-moon
// dataset, upload it, train a classifier, deploy it as an endpoint, evaluate
// the endpoint from the outside, and tear it down again.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"crescent"
	"crescent/metrics"
	"crescent/moons"
	"crescent/nn"
	"crescent/serve"
	"crescent/storage"
	"crescent/tabular"
)

const (
	statusFrequency int = 10

	// main hyperparameters
	hiddenDim    int     = 20
	epochs       int     = 80
	learningRate float64 = 0.1
	batchSize    int     = 10

	// dataset shape
	numSamples   int     = 1000
	noise        float64 = 0.25
	testFraction float64 = 0.25

	dataPrefix  string = "moon-data"
	modelPrefix string = "moon-models"
)

// options holds the flag values. The constants above are their defaults.
type options struct {
	storeURL string
	platform string
	endpoint string
	seed     int64

	samples      int
	noise        float64
	testFraction float64

	hiddenDim int
	epochs    int
	rate      float64
	batchSize int
}

func main() {
	var opts options
	flag.StringVar(&opts.storeURL, "store", "dir:crescent-data", "object store URL (dir:PATH or sqlite:PATH)")
	flag.StringVar(&opts.platform, "platform", "", "endpoint host base URL; empty starts one in-process")
	flag.StringVar(&opts.endpoint, "endpoint", "moons-endpoint", "name to deploy the model under")
	flag.Int64Var(&opts.seed, "seed", 1, "seed for dataset generation and training")
	flag.IntVar(&opts.samples, "samples", numSamples, "number of dataset rows to generate")
	flag.Float64Var(&opts.noise, "noise", noise, "stddev of the gaussian noise on each point")
	flag.Float64Var(&opts.testFraction, "test-fraction", testFraction, "fraction of rows held out for evaluation")
	flag.IntVar(&opts.hiddenDim, "hidden", hiddenDim, "width of the hidden layer")
	flag.IntVar(&opts.epochs, "epochs", epochs, "number of training epochs")
	flag.Float64Var(&opts.rate, "rate", learningRate, "gradient descent learning rate")
	flag.IntVar(&opts.batchSize, "batch", batchSize, "number of examples per weight update")
	flag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	ctx := context.Background()

	store, err := storage.Open(opts.storeURL)
	if err != nil {
		return err
	}
	if closer, ok := store.(io.Closer); ok {
		defer closer.Close()
	}

	platform := opts.platform
	if platform == "" {
		fmt.Println("Starting in-process endpoint host...")
		l, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return errors.Wrapf(err, "Can't start endpoint host\n")
		}

		srv := &http.Server{Handler: serve.NewHost(store).Handler()}
		go srv.Serve(l)
		defer srv.Close()

		platform = "http://" + l.Addr().String()
	}

	sess, err := crescent.NewSession(store, platform)
	if err != nil {
		return err
	}

	fmt.Println("Generating dataset...")
	rng := rand.New(rand.NewSource(opts.seed))
	set := moons.Generate(opts.samples, opts.noise, rng)
	train, test, err := set.Split(opts.testFraction, rng)
	if err != nil {
		return err
	}
	fmt.Printf("Done! %d training rows, %d test rows\n", train.Len(), test.Len())

	dir, err := os.MkdirTemp("", "moon-data-")
	if err != nil {
		return errors.Wrapf(err, "Can't make a scratch directory\n")
	}
	defer os.RemoveAll(dir)

	if err := writeSplit(filepath.Join(dir, "train.csv"), train); err != nil {
		return err
	} else if err := writeSplit(filepath.Join(dir, "test.csv"), test); err != nil {
		return err
	}

	trainKey, err := sess.Upload(ctx, filepath.Join(dir, "train.csv"), dataPrefix)
	if err != nil {
		return err
	}
	testKey, err := sess.Upload(ctx, filepath.Join(dir, "test.csv"), dataPrefix)
	if err != nil {
		return err
	}
	fmt.Printf("Uploaded %q and %q\n", trainKey, testKey)

	fmt.Println("Starting training...")
	fmt.Println("Epoch, Cost, Percent")
	est := crescent.Estimator{
		Session: sess,
		Hyperparameters: crescent.Hyperparameters{
			HiddenDim:    opts.hiddenDim,
			Epochs:       opts.epochs,
			LearningRate: opts.rate,
			BatchSize:    opts.batchSize,
			Seed:         opts.seed,
		},
		OutputPrefix: modelPrefix,
		SendStatus:   nn.Every(statusFrequency),
		Update: func(r nn.Result) {
			fmt.Printf("%d, %.4f, %.1f\n", r.Epoch, r.Cost, 100*r.Correct)
		},
	}

	model, err := est.Fit(ctx, trainKey)
	if err != nil {
		return err
	}
	fmt.Printf("Done training! Model archived at %q\n", model.Key)

	fmt.Printf("Deploying %q...\n", opts.endpoint)
	predictor, err := model.Deploy(ctx, opts.endpoint)
	if err != nil {
		return err
	}
	defer func() {
		if sess.CleanupEndpoint(ctx, opts.endpoint) {
			fmt.Printf("Deleted endpoint %q\n", opts.endpoint)
		} else {
			fmt.Printf("Endpoint %q was already gone\n", opts.endpoint)
		}
	}()
	fmt.Println("Done!")

	fmt.Println("Evaluating...")
	scores, err := predictor.Predict(ctx, test.Features())
	if err != nil {
		return err
	}

	counts, err := metrics.Count(scores, test.Labels())
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("predictions    0.0  1.0")
	fmt.Println("actuals")
	fmt.Printf("0.0           %4d %4d\n", counts.TrueNeg, counts.FalsePos)
	fmt.Printf("1.0           %4d %4d\n", counts.FalseNeg, counts.TruePos)
	fmt.Println()
	printRate("Recall", counts.Recall)
	printRate("Precision", counts.Precision)
	printRate("Accuracy", counts.Accuracy)
	fmt.Println()

	return nil
}

func writeSplit(path string, set moons.Set) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "Can't write dataset to %q\n", path)
	}
	if err := tabular.Encode(f, set); err != nil {
		f.Close()
		return err
	}
	return errors.Wrapf(f.Close(), "Can't close %q\n", path)
}

func printRate(name string, rate func() (float64, error)) {
	v, err := rate()
	if err != nil {
		fmt.Printf("%-10s undefined (%v)\n", name+":", err)
		return
	}
	fmt.Printf("%-10s %.3f\n", name+":", v)
}

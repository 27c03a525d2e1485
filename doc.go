// Package crescent ties a small modeling workflow together: sessions for moving data in and out
// of an object store, estimators for fitting binary classifiers, and predictors for querying them
// once they are deployed behind an endpoint host.
//
// Sessions
//
// Everything starts from a Session, which binds an object store to the base URL of a platform
// host (see the serve package):
//
//		store, err := storage.Open("dir:/tmp/crescent-data")
//		sess, err := crescent.NewSession(store, "http://localhost:8080")
//
// Datasets move into the store with Upload, which keeps the file's base name under a prefix of
// your choosing:
//
//		trainKey, err := sess.Upload(ctx, "data/train.csv", "moon-data")
//
// Training
//
// An Estimator is a training job that has not run yet. Its Algorithm field names a registered
// Trainer; leaving it empty selects the built-in "binary-mlp", a single-hidden-layer network with
// a sigmoid output. Hyperparameters follow the same rule: zero fields mean the defaults.
//
//		est := crescent.Estimator{
//			Session:         sess,
//			Hyperparameters: crescent.Hyperparameters{HiddenDim: 20, Epochs: 80, Seed: 1},
//		}
//		model, err := est.Fit(ctx, trainKey)
//
// Fit reads the dataset from the store, trains, and archives the finished network back to the
// store under OutputPrefix. The returned Model holds the archive's key.
//
// Additional trainers can be added with RegisterTrainer, usually from an init function, and
// selected by name.
//
// Deploying and Predicting
//
// Deploy asks the platform host to serve the archived model as a named endpoint:
//
//		predictor, err := model.Deploy(ctx, "moons-endpoint")
//
// The Predictor is a plain HTTP client for that endpoint. Scores come back one per instance, in
// order, each in [0, 1]:
//
//		scores, err := predictor.Predict(ctx, testFeatures)
//
// Rounding scores against true labels and deriving rates from the confusion matrix is the metrics
// package's job.
//
// Cleanup
//
// Endpoints hold a loaded model for as long as they exist, so workflows delete them on the way
// out. Predictor.Delete reports exactly what happened; Session.CleanupEndpoint is the best-effort
// version that treats "already gone" and "unreachable" as acceptable outcomes:
//
//		if sess.CleanupEndpoint(ctx, "moons-endpoint") {
//			fmt.Println("endpoint deleted")
//		} else {
//			fmt.Println("endpoint was already gone")
//		}
package crescent

// Package campie simulates analog content-addressable memory (CAM) arrays
// executing tree-based models.
//
// Every root-to-leaf path of a decision tree becomes one CAM row: a
// [lower, upper] range per feature, or a wildcard where the path places no
// constraint. A query matches a row when every feature value lies inside the
// row's range (bounds inclusive). Matching rows are resolved into a decision
// by priority (first row wins), by reduction (sum of row values) or, across
// the arrays of an ensemble, by aggregation (majority vote, mean, weighted
// sum).
//
// # Quick Start
//
//	m, _ := tree.Load(f, nil)
//	sim, _ := campie.Build(ctx, m)
//	preds, _ := sim.Predict(ctx, [][]float64{{4}, {7}, {20}})
//
// # Chunking
//
// Batches are processed in chunks of WithChunkSize queries. Chunking never
// changes decisions. With WithMemoryLimit, chunks that do not fit are split
// in half until they do; WithStrictChunking reports a CapacityError instead.
//
// # Noise
//
// WithNoise perturbs queries and/or stored bounds with seeded Gaussian or
// uniform noise and optionally quantizes them to a fixed number of levels.
// The same seed always yields the same decisions.
//
// # Persistence
//
// Built ensembles can be saved to and loaded from any blobstore.Store
// (memory, local filesystem, Amazon S3, MinIO):
//
//	_ = sim.Save(ctx, blobstore.NewLocalStore("./models"), "forest")
//	sim, _ = campie.Load(ctx, store, "forest", nil)
package campie

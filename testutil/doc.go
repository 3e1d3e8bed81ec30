// Package testutil provides testing utilities for campie.
//
// This package is intended for use in tests and benchmarks only.
// It provides a seeded random source, random tree and query generators,
// and naive per-row reference implementations of matching and tree
// evaluation used to check the bulk engines.
//
// # Random Models
//
//	rng := testutil.NewRNG(seed)
//	m := rng.Model(testutil.ModelConfig{Trees: 4, Depth: 5, Features: 8})
//	qs := rng.GridQueries(1000, 8, 0.01) // 1% NaN
//
// # Reference Matching
//
//	rows := testutil.NaiveMatch(array, qs[0])
//	row := testutil.NaivePriority(array, qs[0])
package testutil

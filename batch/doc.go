// Package batch runs query batches through an ensemble in memory-bounded
// chunks.
//
// A Controller splits the batch into contiguous chunks, reserves each
// chunk's working set from a resource controller, then perturbs, matches
// and resolves the chunk and writes its decisions at the chunk offset.
// Chunking never changes any query's result: noise streams and statistics
// are keyed by absolute query index and resolution is per query.
//
// When a chunk's working set exceeds the memory limit the chunk size is
// halved down to 1 (adaptive mode, the default). In strict mode, or when
// even one query does not fit, Run returns a CapacityError. A chunk that
// fits the limit waits while concurrent runs hold the budget.
package batch

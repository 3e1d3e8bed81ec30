// Package resolve turns match masks into per-query decisions.
//
// Three policies exist:
//
//   - Priority: the first matching row wins. Rows are stored in priority
//     order, so this is the lowest set bit of a query's mask. Over an
//     ensemble, arrays are scanned in order as if stacked.
//   - Aggregate: every array is priority resolved and the per-array values
//     are merged by a Combiner (majority vote, mean, weighted sum or
//     weighted vote).
//   - Reduce: the values of all matching rows are summed.
//
// Resolution is a pure function of the masks; it never depends on how the
// masks were computed or on goroutine scheduling.
package resolve

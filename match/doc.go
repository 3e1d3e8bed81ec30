// Package match evaluates query batches against CAM arrays.
//
// For every query q and row r the mask bit is set iff every feature of q
// lies inside row r's inclusive bound for that feature, wildcards always
// passing. Evaluation is column-wise: one kernel call compares a query value
// against a whole bound column and yields packed row bits, which are then
// ANDed across features. Rows never branch individually.
//
//	mask, err := match.Match(ctx, array, queries)
//	row := mask.First(0) // highest-priority matching row of query 0
package match

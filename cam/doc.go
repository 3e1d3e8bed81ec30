// Package cam models analog Content-Addressable Memory arrays built from
// decision trees.
//
// An Array has one row per tree leaf and one inclusive [lower, upper] bound
// pair per feature and row. Rows a leaf never constrains hold a wildcard
// bound, a tagged "don't care" that matches any value, NaN included. An
// explicit (-Inf, +Inf) constraint is not a wildcard: it is an ordinary
// open-ended range.
//
// Bounds are stored column-major: for every feature the lower and upper
// bounds of all rows are contiguous, so one query value is compared against
// a whole column in a single bulk kernel call.
//
// Row order is priority order. Build lays rows out by ascending leaf
// priority (leaf order breaks ties) and records each row's rank and source
// leaf explicitly; Priority and LeafID expose them.
//
// Arrays and Ensembles are immutable once built and safe for concurrent use.
package cam

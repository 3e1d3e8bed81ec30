// Package noise models analog non-idealities of CAM hardware.
//
// A Model adds gaussian or uniform noise to query values, to array bounds,
// or to both, and optionally snaps values to 2^Bits uniform levels. Every
// random stream is derived from the configured seed and a stable index:
// the absolute query index for queries and the array index for bounds.
// Results therefore do not depend on chunking or goroutine order, and no
// global random state is touched.
//
// Noise is disabled by default; the zero Spec (Disabled) leaves all values
// untouched.
package noise

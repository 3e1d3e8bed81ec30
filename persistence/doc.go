// Package persistence stores built CAM ensembles in a blobstore.
//
// An ensemble is saved as one manifest blob plus one binary blob per array:
//
//	<name>/manifest.json
//	<name>/array-00000.cam
//	<name>/array-00001.cam
//	...
//
// Array blobs carry a fixed little-endian header (see format.go) followed by
// the column-major bound data, optionally block compressed with LZ4 or ZSTD.
// The manifest is written last, so a reader never observes a partial save.
package persistence

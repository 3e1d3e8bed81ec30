// Package tree describes trained decision-tree ensembles as campie consumes
// them.
//
// A Tree is given either as split nodes (feature, threshold, children) or as
// explicit leaves, each leaf being the list of range constraints on the path
// from the root. Paths converts split nodes into leaves; the CAM builder only
// ever sees leaves.
//
// Thresholds become closed ranges according to the model's SplitRule:
//
//	SplitLess:      x <  t goes left  -> left [.., prev(t)], right [t, ..]
//	SplitLessEqual: x <= t goes left  -> left [.., t],       right [next(t), ..]
//
// prev and next are computed in the model precision, so a float32 model
// produces float32 neighbours.
package tree

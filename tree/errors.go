package tree

import (
	"errors"
	"fmt"
)

// ErrMalformedTree is the sentinel matched by every MalformedTreeError.
var ErrMalformedTree = errors.New("malformed tree")

// MalformedTreeError reports an invalid tree or leaf constraint.
// It is never repaired silently.
//
// Tree, Leaf and Feature are -1 when not applicable.
type MalformedTreeError struct {
	Tree    int
	Leaf    int
	Feature int
	Reason  string
}

func (e *MalformedTreeError) Error() string {
	msg := "malformed tree"
	if e.Tree >= 0 {
		msg += fmt.Sprintf(" %d", e.Tree)
	}
	if e.Leaf >= 0 {
		msg += fmt.Sprintf(" leaf %d", e.Leaf)
	}
	if e.Feature >= 0 {
		msg += fmt.Sprintf(" feature %d", e.Feature)
	}
	return msg + ": " + e.Reason
}

// Is makes errors.Is(err, ErrMalformedTree) work.
func (e *MalformedTreeError) Is(target error) bool {
	return target == ErrMalformedTree
}

func malformed(tree, leaf, feature int, format string, args ...any) error {
	return &MalformedTreeError{
		Tree:    tree,
		Leaf:    leaf,
		Feature: feature,
		Reason:  fmt.Sprintf(format, args...),
	}
}

package tree

import "math"

// Paths returns the leaves of the tree in depth-first, left-first order.
// A tree given as explicit leaves is returned as a copy.
func (t Tree) Paths(rule SplitRule, p Precision) ([]Leaf, error) {
	if len(t.Leaves) > 0 {
		leaves := make([]Leaf, len(t.Leaves))
		for i, l := range t.Leaves {
			leaves[i] = Leaf{
				Constraints: append([]Constraint(nil), l.Constraints...),
				Value:       l.Value,
				Priority:    l.Priority,
			}
		}
		return leaves, nil
	}
	if len(t.Nodes) == 0 {
		return nil, malformed(-1, -1, -1, "tree has neither nodes nor leaves")
	}

	type frame struct {
		node int
		path []Constraint
	}

	visited := make([]bool, len(t.Nodes))
	stack := []frame{{node: 0}}
	var leaves []Leaf

	for len(stack) > 0 {
		fr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if visited[fr.node] {
			return nil, malformed(-1, -1, -1, "node %d reached twice (cycle or shared child)", fr.node)
		}
		visited[fr.node] = true

		n := t.Nodes[fr.node]
		if n.Leaf {
			leaves = append(leaves, Leaf{Constraints: fr.path, Value: n.Value})
			continue
		}

		for _, child := range []int{n.Left, n.Right} {
			if child <= 0 || child >= len(t.Nodes) {
				return nil, malformed(-1, -1, n.Feature, "node %d has invalid child %d", fr.node, child)
			}
		}

		leftUpper, rightLower := splitBounds(n.Threshold, rule, p)

		// Full slice expressions force a copy on append, so siblings never
		// share a backing array.
		base := fr.path[:len(fr.path):len(fr.path)]
		left := append(base, Constraint{Feature: n.Feature, Lower: math.Inf(-1), Upper: leftUpper})
		right := append(base, Constraint{Feature: n.Feature, Lower: rightLower, Upper: math.Inf(1)})

		// Push right first so the left subtree is emitted first.
		stack = append(stack, frame{node: n.Right, path: right}, frame{node: n.Left, path: left})
	}

	return leaves, nil
}

// Paths returns the leaves of tree i, tagging errors with the tree index.
func (m *Model) Paths(i int) ([]Leaf, error) {
	leaves, err := m.Trees[i].Paths(m.SplitRule, m.Precision)
	if err != nil {
		if mt, ok := err.(*MalformedTreeError); ok {
			mt.Tree = i
		}
		return nil, err
	}
	return leaves, nil
}

// splitBounds returns the closed upper bound of the left branch and the
// closed lower bound of the right branch.
func splitBounds(t float64, rule SplitRule, p Precision) (leftUpper, rightLower float64) {
	if rule == SplitLessEqual {
		return t, next(t, p)
	}
	return prev(t, p), t
}

func prev(t float64, p Precision) float64 {
	if p == Float32 {
		return float64(math.Nextafter32(float32(t), float32(math.Inf(-1))))
	}
	return math.Nextafter(t, math.Inf(-1))
}

func next(t float64, p Precision) float64 {
	if p == Float32 {
		return float64(math.Nextafter32(float32(t), float32(math.Inf(1))))
	}
	return math.Nextafter(t, math.Inf(1))
}

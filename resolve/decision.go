package resolve

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/hupe1980/campie/cam"
	"github.com/hupe1980/campie/tree"
)

// NoMatch marks a missing row, array or class.
const NoMatch = -1

var (
	// ErrUnknownPolicy is returned by ParsePolicy.
	ErrUnknownPolicy = errors.New("unknown resolution policy")

	// ErrUnknownCombiner is returned by ParseCombiner.
	ErrUnknownCombiner = errors.New("unknown combiner")
)

// Decision is the resolved outcome of one query.
type Decision struct {
	// Array and Row locate the resolved row. In aggregate mode they point
	// at the first array that matched. NoMatch when nothing matched.
	Array int
	Row   int
	// Rows holds the resolved row per array in aggregate mode.
	Rows []int
	// Value is the output value. NaN when nothing matched, except for
	// reduce where the empty sum is 0.
	Value float64
	// Class is the predicted class of a classification ensemble, else NoMatch.
	Class int
	// Contributing is the number of arrays with at least one match.
	Contributing int
	// Confidence is the share of contributing arrays (or vote weight)
	// behind the decision, in [0, 1].
	Confidence float64
}

// Matched reports whether any row matched.
func (d Decision) Matched() bool {
	return d.Row != NoMatch
}

func noMatch() Decision {
	return Decision{Array: NoMatch, Row: NoMatch, Value: math.NaN(), Class: NoMatch}
}

// Policy selects how masks become decisions.
type Policy uint8

const (
	// PolicyPriority picks the first matching row.
	PolicyPriority Policy = iota
	// PolicyAggregate combines per-array priority results.
	PolicyAggregate
	// PolicyReduce sums the values of all matching rows.
	PolicyReduce
)

func (p Policy) String() string {
	switch p {
	case PolicyPriority:
		return "priority"
	case PolicyAggregate:
		return "aggregate"
	case PolicyReduce:
		return "reduce"
	default:
		return "unknown"
	}
}

// ParsePolicy parses a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "priority", "first":
		return PolicyPriority, nil
	case "aggregate", "ensemble":
		return PolicyAggregate, nil
	case "reduce", "sum":
		return PolicyReduce, nil
	default:
		return PolicyPriority, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// DefaultPolicy returns aggregate for ensembles of more than one array and
// priority otherwise.
func DefaultPolicy(e *cam.Ensemble) Policy {
	if e.Len() > 1 {
		return PolicyAggregate
	}
	return PolicyPriority
}

// Combiner merges per-array outputs in aggregate mode.
type Combiner uint8

const (
	// MajorityVote picks the class most arrays voted for; ties go to the
	// smallest class label.
	MajorityVote Combiner = iota
	// Mean averages the values of contributing arrays.
	Mean
	// WeightedSum adds the weighted values of contributing arrays to the
	// ensemble base score.
	WeightedSum
	// WeightedVote is MajorityVote with array weights as vote weights.
	WeightedVote
)

func (c Combiner) String() string {
	switch c {
	case MajorityVote:
		return "majority_vote"
	case Mean:
		return "mean"
	case WeightedSum:
		return "weighted_sum"
	case WeightedVote:
		return "weighted_vote"
	default:
		return "unknown"
	}
}

// votes reports whether c selects a class rather than a value.
func (c Combiner) votes() bool {
	return c == MajorityVote || c == WeightedVote
}

// ParseCombiner parses a combiner name.
func ParseCombiner(s string) (Combiner, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "majority_vote", "majority", "vote":
		return MajorityVote, nil
	case "mean", "average":
		return Mean, nil
	case "weighted_sum", "sum":
		return WeightedSum, nil
	case "weighted_vote":
		return WeightedVote, nil
	default:
		return MajorityVote, fmt.Errorf("%w: %q", ErrUnknownCombiner, s)
	}
}

// DefaultCombiner returns majority vote for classification and mean for
// regression.
func DefaultCombiner(t tree.Task) Combiner {
	if t == tree.Classification {
		return MajorityVote
	}
	return Mean
}

// Package interval provides a centered interval tree mapping closed numeric
// ranges to arbitrary payloads. It answers stabbing queries (all intervals
// containing a point) and intersection queries (all intervals overlapping a
// range).
//
// Mutations only append to a pending list. The queryable node structure is
// rebuilt from that list, in full, the next time it is queried. Each node is
// centered on the median of the distinct endpoints it was built from; there
// is no rebalancing, so the shape depends entirely on the endpoint
// distribution of the input.
//
// A Tree is not safe for concurrent use. Queries may rebuild, so callers
// sharing a Tree across goroutines must serialize every call, not just
// the inserts.
package interval

import (
	"errors"
	"fmt"

	"golang.org/x/exp/constraints" //nolint:exptostd // cmp.Ordered would admit strings.
)

// ErrInvalidRange is returned when an interval or query range does not
// satisfy start < end.
var ErrInvalidRange = errors.New("beginning of range must be less than end")

// Endpoint is a numeric type usable as an interval bound.
type Endpoint interface {
	constraints.Integer | constraints.Float
}

// Interval is a closed range [Start, End] with an associated payload.
type Interval[N Endpoint, V any] struct {
	Start N
	End   N
	Data  V
}

// NewInterval returns a new Interval or an error wrapping ErrInvalidRange
// if start is not strictly below end.
func NewInterval[N Endpoint, V any](start, end N, data V) (Interval[N, V], error) {
	err := checkRange(start, end)
	if err != nil {
		return Interval[N, V]{}, err
	}

	return Interval[N, V]{Start: start, End: end, Data: data}, nil
}

// Contains reports whether point lies within the interval, inclusive at
// both ends.
func (iv Interval[N, V]) Contains(point N) bool {
	return iv.Start <= point && point <= iv.End
}

// Intersects reports whether the interval overlaps the closed range
// [start, end].
func (iv Interval[N, V]) Intersects(start, end N) bool {
	return end >= iv.Start && start <= iv.End
}

// IntersectsInterval reports whether two intervals overlap. Payloads are
// ignored.
func (iv Interval[N, V]) IntersectsInterval(other Interval[N, V]) bool {
	return iv.Intersects(other.Start, other.End)
}

// Compare orders intervals by Start, then End. Payloads never break ties,
// so intervals with equal bounds compare as 0.
func (iv Interval[N, V]) Compare(other Interval[N, V]) int {
	switch {
	case iv.Start < other.Start:
		return -1
	case iv.Start > other.Start:
		return 1
	case iv.End < other.End:
		return -1
	case iv.End > other.End:
		return 1
	default:
		return 0
	}
}

func (iv Interval[N, V]) less(other Interval[N, V]) bool {
	return iv.Compare(other) < 0
}

func (iv Interval[N, V]) String() string {
	return fmt.Sprintf("[%v,%v]:%v", iv.Start, iv.End, iv.Data)
}

// checkRange rejects start >= end. Written as !(start < end) so NaN bounds
// are rejected too.
func checkRange[N Endpoint](start, end N) error {
	if !(start < end) {
		return fmt.Errorf("%w: [%v, %v]", ErrInvalidRange, start, end)
	}

	return nil
}

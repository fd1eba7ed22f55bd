package interval

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/tidwall/btree"
)

// node is one level of the centered partition. It holds every interval of
// its input that touches center; intervals entirely below or above center
// are delegated to left and right. A node is never modified after build.
type node[N Endpoint, V any] struct {
	center      N
	overlapping *btree.BTreeG[*bucket[N, V]]
	left, right *node[N, V]
}

// bucket groups the intervals sharing one (Start, End) pair, in input order.
type bucket[N Endpoint, V any] struct {
	key     Interval[N, V]
	members []Interval[N, V]
}

func bucketLess[N Endpoint, V any](a, b *bucket[N, V]) bool {
	return a.key.less(b.key)
}

func newBuckets[N Endpoint, V any]() *btree.BTreeG[*bucket[N, V]] {
	return btree.NewBTreeGOptions(bucketLess[N, V], btree.Options{NoLocks: true})
}

// emptyNode returns a node with no intervals centered on zero.
func emptyNode[N Endpoint, V any](zero N) *node[N, V] {
	return &node[N, V]{center: zero, overlapping: newBuckets[N, V]()}
}

// buildNode partitions intervals around the median of their distinct
// endpoints and recurses into the strictly-left and strictly-right parts.
// The median is the element at index len/2 of the sorted distinct
// endpoints, never interpolated; zero is used when there are none.
func buildNode[N Endpoint, V any](intervals []Interval[N, V], zero N) *node[N, V] {
	n := emptyNode[N, V](zero)
	n.center = median(intervals, zero)

	var left, right []Interval[N, V]

	for _, iv := range intervals {
		switch {
		case iv.End < n.center:
			left = append(left, iv)
		case iv.Start > n.center:
			right = append(right, iv)
		default:
			n.add(iv)
		}
	}

	if len(left) > 0 {
		n.left = buildNode(left, zero)
	}

	if len(right) > 0 {
		n.right = buildNode(right, zero)
	}

	return n
}

// median returns the middle element of the sorted set of distinct endpoints.
func median[N Endpoint, V any](intervals []Interval[N, V], zero N) N {
	if len(intervals) == 0 {
		return zero
	}

	endpoints := make([]N, 0, 2*len(intervals))
	for _, iv := range intervals {
		endpoints = append(endpoints, iv.Start, iv.End)
	}

	slices.Sort(endpoints)
	endpoints = slices.Compact(endpoints)

	return endpoints[len(endpoints)/2]
}

func (n *node[N, V]) add(iv Interval[N, V]) {
	probe := &bucket[N, V]{key: iv}

	if b, ok := n.overlapping.Get(probe); ok {
		b.members = append(b.members, iv)

		return
	}

	probe.members = []Interval[N, V]{iv}
	n.overlapping.Set(probe)
}

// stab collects every interval containing point. Buckets are scanned in
// ascending (Start, End) order and the scan stops at the first bucket
// starting after point. Only the child on point's side of center is
// visited; a point equal to center needs neither, since every interval
// spanning center was kept here.
func (n *node[N, V]) stab(point N, result []Interval[N, V]) []Interval[N, V] {
	n.overlapping.Scan(func(b *bucket[N, V]) bool {
		if b.key.Contains(point) {
			result = append(result, b.members...)

			return true
		}

		return b.key.Start <= point
	})

	switch {
	case point < n.center && n.left != nil:
		result = n.left.stab(point, result)
	case point > n.center && n.right != nil:
		result = n.right.stab(point, result)
	}

	return result
}

// query collects every interval intersecting [start, end]. Unlike stab, a
// range straddling center may need both children.
func (n *node[N, V]) query(start, end N, result []Interval[N, V]) []Interval[N, V] {
	n.overlapping.Scan(func(b *bucket[N, V]) bool {
		if b.key.Intersects(start, end) {
			result = append(result, b.members...)

			return true
		}

		return b.key.Start <= end
	})

	if start < n.center && n.left != nil {
		result = n.left.query(start, end, result)
	}

	if end > n.center && n.right != nil {
		result = n.right.query(start, end, result)
	}

	return result
}

// Stats describes the shape of a built tree.
type Stats struct {
	// Intervals is the number of intervals stored across all nodes.
	Intervals int
	// Nodes is the number of partition nodes, including an empty root.
	Nodes int
	// Depth is the number of nodes on the longest root-to-leaf path.
	Depth int
	// Buckets is the number of distinct (Start, End) pairs.
	Buckets int
	// LargestBucket is the size of the biggest group of intervals
	// sharing identical bounds.
	LargestBucket int
}

func (n *node[N, V]) stats() Stats {
	var st Stats

	n.walk(1, func(cur *node[N, V], depth int) {
		st.Nodes++
		st.Depth = max(st.Depth, depth)
		st.Buckets += cur.overlapping.Len()

		cur.overlapping.Scan(func(b *bucket[N, V]) bool {
			st.Intervals += len(b.members)
			st.LargestBucket = max(st.LargestBucket, len(b.members))

			return true
		})
	})

	return st
}

// walk visits n and its descendants in pre-order, left before right.
func (n *node[N, V]) walk(depth int, visit func(*node[N, V], int)) {
	visit(n, depth)

	if n.left != nil {
		n.left.walk(depth+1, visit)
	}

	if n.right != nil {
		n.right.walk(depth+1, visit)
	}
}

// format writes one line per node, indented by depth with tabs:
//
//	center: [start,end]:{(start,end,data)...} [start,end]:{...}
func (n *node[N, V]) format(w io.Writer) error {
	var err error

	n.walk(0, func(cur *node[N, V], depth int) {
		if err != nil {
			return
		}

		var sb strings.Builder

		sb.WriteString(strings.Repeat("\t", depth))
		fmt.Fprintf(&sb, "%v:", cur.center)

		cur.overlapping.Scan(func(b *bucket[N, V]) bool {
			fmt.Fprintf(&sb, " [%v,%v]:{", b.key.Start, b.key.End)

			for _, iv := range b.members {
				fmt.Fprintf(&sb, "(%v,%v,%v)", iv.Start, iv.End, iv.Data)
			}

			sb.WriteByte('}')

			return true
		})

		sb.WriteByte('\n')

		_, err = io.WriteString(w, sb.String())
	})

	if err != nil {
		return fmt.Errorf("format interval tree: %w", err)
	}

	return nil
}

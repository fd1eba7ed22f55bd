package interval

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"slices"
	"strings"
	"time"
)

// RebuildStats describes one rebuild of the node structure.
type RebuildStats struct {
	Stats

	Duration time.Duration
}

// Tree is a lazily rebuilt centered interval tree.
//
// Insert only appends to the pending list. The node structure queried by
// Stab and Query is rebuilt from the whole pending list on the first query
// after a mutation.
type Tree[N Endpoint, V any] struct {
	pending    []Interval[N, V]
	root       *node[N, V]
	dirty      bool
	cachedSize int

	zero      func() N
	logger    *slog.Logger
	onRebuild func(RebuildStats)
}

// Option configures a Tree.
type Option[N Endpoint, V any] func(*Tree[N, V])

// WithZero sets the constructor for the center of an empty tree. It
// defaults to the zero value of N.
func WithZero[N Endpoint, V any](zero func() N) Option[N, V] {
	return func(t *Tree[N, V]) {
		if zero != nil {
			t.zero = zero
		}
	}
}

// WithLogger sets the logger used to report rebuilds at debug level.
func WithLogger[N Endpoint, V any](logger *slog.Logger) Option[N, V] {
	return func(t *Tree[N, V]) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithRebuildHook registers fn to be called after every rebuild.
func WithRebuildHook[N Endpoint, V any](fn func(RebuildStats)) Option[N, V] {
	return func(t *Tree[N, V]) {
		t.onRebuild = fn
	}
}

// New creates an empty tree.
func New[N Endpoint, V any](opts ...Option[N, V]) *Tree[N, V] {
	t := newTree(opts)
	t.root = emptyNode[N, V](t.zero())

	return t
}

// NewFromIntervals creates a tree holding a copy of intervals and builds
// its node structure immediately. If any interval has Start >= End the
// whole construction fails with ErrInvalidRange.
//
// The returned tree still reports InSync() == false; the first query
// rebuilds from the copied list.
func NewFromIntervals[N Endpoint, V any](intervals []Interval[N, V], opts ...Option[N, V]) (*Tree[N, V], error) {
	for i, iv := range intervals {
		err := checkRange(iv.Start, iv.End)
		if err != nil {
			return nil, fmt.Errorf("interval %d: %w", i, err)
		}
	}

	t := newTree(opts)
	t.pending = slices.Clone(intervals)
	t.root = buildNode(t.pending, t.zero())
	t.cachedSize = len(t.pending)
	t.dirty = true

	return t, nil
}

func newTree[N Endpoint, V any](opts []Option[N, V]) *Tree[N, V] {
	t := &Tree[N, V]{
		zero:   zeroValue[N],
		logger: slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Insert appends the interval [start, end] carrying data. It does not
// rebuild; the next query does.
func (t *Tree[N, V]) Insert(start, end N, data V) error {
	return t.InsertInterval(Interval[N, V]{Start: start, End: end, Data: data})
}

// InsertInterval appends iv. On error the tree is left unchanged.
func (t *Tree[N, V]) InsertInterval(iv Interval[N, V]) error {
	err := checkRange(iv.Start, iv.End)
	if err != nil {
		return err
	}

	t.pending = append(t.pending, iv)
	t.dirty = true

	return nil
}

// Stab returns the payloads of every interval containing point.
func (t *Tree[N, V]) Stab(point N) []V {
	return payloads(t.StabIntervals(point))
}

// StabIntervals returns every interval containing point, rebuilding first
// if the tree is out of sync.
func (t *Tree[N, V]) StabIntervals(point N) []Interval[N, V] {
	t.Rebuild()

	return t.root.stab(point, nil)
}

// Query returns the payloads of every interval intersecting [start, end].
func (t *Tree[N, V]) Query(start, end N) ([]V, error) {
	intervals, err := t.QueryIntervals(start, end)
	if err != nil {
		return nil, err
	}

	return payloads(intervals), nil
}

// QueryIntervals returns every interval intersecting [start, end],
// rebuilding first if the tree is out of sync. It fails with
// ErrInvalidRange unless start < end.
func (t *Tree[N, V]) QueryIntervals(start, end N) ([]Interval[N, V], error) {
	err := checkRange(start, end)
	if err != nil {
		return nil, err
	}

	t.Rebuild()

	return t.root.query(start, end, nil), nil
}

// Rebuild reconstructs the node structure from the pending list. It does
// nothing when the tree is already in sync.
func (t *Tree[N, V]) Rebuild() {
	if !t.dirty {
		return
	}

	began := time.Now()

	t.root = buildNode(t.pending, t.zero())
	t.cachedSize = len(t.pending)
	t.dirty = false

	rs := RebuildStats{Duration: time.Since(began)}

	debug := t.logger.Enabled(context.Background(), slog.LevelDebug)
	if !debug && t.onRebuild == nil {
		return
	}

	rs.Stats = t.root.stats()

	t.logger.Debug("interval tree rebuilt",
		"intervals", rs.Intervals,
		"nodes", rs.Nodes,
		"depth", rs.Depth,
		"duration", rs.Duration,
	)

	if t.onRebuild != nil {
		t.onRebuild(rs)
	}
}

// InSync reports whether the node structure reflects every pending interval.
func (t *Tree[N, V]) InSync() bool {
	return !t.dirty
}

// CachedSize returns the number of intervals in the last built structure.
func (t *Tree[N, V]) CachedSize() int {
	return t.cachedSize
}

// PendingSize returns the number of inserted intervals, built or not.
func (t *Tree[N, V]) PendingSize() int {
	return len(t.pending)
}

// Intervals iterates over the pending list in insertion order.
func (t *Tree[N, V]) Intervals() iter.Seq[Interval[N, V]] {
	return slices.Values(t.pending)
}

// Stats returns the shape of the node structure, rebuilding first if needed.
func (t *Tree[N, V]) Stats() Stats {
	t.Rebuild()

	return t.root.stats()
}

// WriteTo writes a human-readable dump of the node structure to w. The
// format is meant for debugging and may change.
func (t *Tree[N, V]) WriteTo(w io.Writer) (int64, error) {
	t.Rebuild()

	cw := &countingWriter{w: w}
	err := t.root.format(cw)

	return cw.n, err
}

func (t *Tree[N, V]) String() string {
	var sb strings.Builder

	_, _ = t.WriteTo(&sb)

	return sb.String()
}

func zeroValue[N Endpoint]() N {
	var zero N

	return zero
}

func payloads[N Endpoint, V any](intervals []Interval[N, V]) []V {
	if len(intervals) == 0 {
		return nil
	}

	result := make([]V, len(intervals))
	for i, iv := range intervals {
		result[i] = iv.Data
	}

	return result
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)

	return n, err //nolint:wrapcheck // io.Writer passthrough.
}

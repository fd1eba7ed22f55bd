package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Sumatoshi-tech/intervalindex/pkg/alg/interval"
)

const (
	metricRebuildsTotal    = "intervalindex.rebuilds.total"
	metricRebuildDuration  = "intervalindex.rebuild.duration.seconds"
	metricRebuildIntervals = "intervalindex.rebuild.intervals"
	metricQueriesTotal     = "intervalindex.queries.total"
	metricQueryResults     = "intervalindex.query.results"

	// OpStab labels point queries.
	OpStab = "stab"
	// OpRange labels range queries.
	OpRange = "range"
)

// rebuildBucketBoundaries covers sub-millisecond rebuilds of small sets up
// to multi-second rebuilds of a few million intervals.
var rebuildBucketBoundaries = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

// sizeBucketBoundaries buckets interval and result counts by powers of ten.
var sizeBucketBoundaries = []float64{0, 1, 10, 100, 1000, 10000, 100000, 1000000}

// IndexMetrics holds the instruments describing interval tree activity.
type IndexMetrics struct {
	rebuildsTotal    metric.Int64Counter
	rebuildDuration  metric.Float64Histogram
	rebuildIntervals metric.Int64Histogram
	queriesTotal     metric.Int64Counter
	queryResults     metric.Int64Histogram
}

// NewIndexMetrics creates the index instruments from the given meter.
func NewIndexMetrics(mt metric.Meter) (*IndexMetrics, error) {
	b := newMetricBuilder(mt)

	im := &IndexMetrics{
		rebuildsTotal: b.counter(metricRebuildsTotal,
			"Total number of tree rebuilds", "{rebuild}"),
		rebuildDuration: b.histogram(metricRebuildDuration,
			"Tree rebuild duration in seconds", "s", rebuildBucketBoundaries...),
		rebuildIntervals: b.int64Histogram(metricRebuildIntervals,
			"Intervals indexed per rebuild", "{interval}", sizeBucketBoundaries...),
		queriesTotal: b.counter(metricQueriesTotal,
			"Total number of stab and range queries", "{query}"),
		queryResults: b.int64Histogram(metricQueryResults,
			"Payloads returned per query", "{payload}", sizeBucketBoundaries...),
	}

	if b.err != nil {
		return nil, b.err
	}

	return im, nil
}

// RecordRebuild records one completed rebuild.
func (im *IndexMetrics) RecordRebuild(ctx context.Context, intervals, nodes int, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.Int("nodes", nodes))

	im.rebuildsTotal.Add(ctx, 1)
	im.rebuildDuration.Record(ctx, duration.Seconds(), attrs)
	im.rebuildIntervals.Record(ctx, int64(intervals))
}

// RecordQuery records one query of kind op returning results payloads.
func (im *IndexMetrics) RecordQuery(ctx context.Context, op string, results int) {
	attrs := metric.WithAttributes(attribute.String(attrOp, op))

	im.queriesTotal.Add(ctx, 1, attrs)
	im.queryResults.Record(ctx, int64(results), attrs)
}

// RebuildHook adapts RecordRebuild to [interval.WithRebuildHook].
func (im *IndexMetrics) RebuildHook(ctx context.Context) func(interval.RebuildStats) {
	return func(rs interval.RebuildStats) {
		im.RecordRebuild(ctx, rs.Intervals, rs.Nodes, rs.Duration)
	}
}

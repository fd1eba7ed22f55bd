package commands

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/intervalindex/pkg/alg/interval"
	"github.com/Sumatoshi-tech/intervalindex/pkg/alg/lru"
	"github.com/Sumatoshi-tech/intervalindex/pkg/observability"
	"github.com/Sumatoshi-tech/intervalindex/pkg/render"
)

// StabResponse is the body of GET /stab.
type StabResponse struct {
	Results []render.IntervalJSON `json:"results"`
	Point   float64               `json:"point"`
}

// RangeResponse is the body of GET /range.
type RangeResponse struct {
	Results []render.IntervalJSON `json:"results"`
	Start   float64               `json:"start"`
	End     float64               `json:"end"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatsResponse is the body of GET /stats.
type StatsResponse struct {
	Cache *lru.Stats `json:"cache,omitempty"`
	render.StatsJSON
}

// queryKey identifies a cached query result. b is unused for stab queries.
type queryKey struct {
	op   string
	a, b float64
}

type queryResult = []interval.Interval[float64, string]

// QueryServer answers stab and range queries over HTTP. A Tree is not safe
// for concurrent use, so every access goes through mu.
type QueryServer struct {
	mu      sync.Mutex
	tree    *interval.Tree[float64, string]
	cache   *lru.Cache[queryKey, queryResult]
	metrics *observability.IndexMetrics
	logger  *slog.Logger
	built   interval.RebuildStats
}

// NewQueryServer wraps tree. built describes the initial build reported
// by /stats. Up to cacheEntries query results are memoized; 0 disables
// the cache.
func NewQueryServer(
	tree *interval.Tree[float64, string],
	built interval.RebuildStats,
	cacheEntries int,
	metrics *observability.IndexMetrics,
	logger *slog.Logger,
) *QueryServer {
	qs := &QueryServer{tree: tree, built: built, metrics: metrics, logger: logger}

	if cacheEntries > 0 {
		qs.cache = lru.New[queryKey, queryResult](cacheEntries)
	}

	return qs
}

// Handler returns the routed handler wrapped in tracing and RED middleware.
// metricsHandler is mounted at /metrics when non-nil.
func (qs *QueryServer) Handler(tracer trace.Tracer, red *observability.REDMetrics, metricsHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /stab", qs.handleStab)
	mux.HandleFunc("GET /range", qs.handleRange)
	mux.HandleFunc("GET /stats", qs.handleStats)
	mux.HandleFunc("GET /healthz", handleHealth)

	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}

	return observability.HTTPMiddleware(tracer, red, mux)
}

func (qs *QueryServer) handleStab(rw http.ResponseWriter, hr *http.Request) {
	point, ok := qs.floatParam(rw, hr, "point")
	if !ok {
		return
	}

	matches, _ := qs.lookup(queryKey{op: observability.OpStab, a: point}, func() (queryResult, error) {
		return qs.tree.StabIntervals(point), nil
	})

	qs.metrics.RecordQuery(hr.Context(), observability.OpStab, len(matches))

	qs.writeJSON(rw, hr, http.StatusOK, StabResponse{Point: point, Results: render.ToJSON(matches)})
}

func (qs *QueryServer) handleRange(rw http.ResponseWriter, hr *http.Request) {
	start, ok := qs.floatParam(rw, hr, "start")
	if !ok {
		return
	}

	end, ok := qs.floatParam(rw, hr, "end")
	if !ok {
		return
	}

	matches, err := qs.lookup(queryKey{op: observability.OpRange, a: start, b: end}, func() (queryResult, error) {
		return qs.tree.QueryIntervals(start, end)
	})
	if err != nil {
		qs.writeJSON(rw, hr, http.StatusBadRequest, ErrorResponse{Error: err.Error()})

		return
	}

	qs.metrics.RecordQuery(hr.Context(), observability.OpRange, len(matches))

	qs.writeJSON(rw, hr, http.StatusOK, RangeResponse{Start: start, End: end, Results: render.ToJSON(matches)})
}

func (qs *QueryServer) handleStats(rw http.ResponseWriter, hr *http.Request) {
	qs.mu.Lock()
	built := qs.built
	inSync := qs.tree.InSync()
	qs.mu.Unlock()

	resp := StatsResponse{StatsJSON: render.StatsToJSON(built, inSync)}

	if qs.cache != nil {
		cacheStats := qs.cache.Stats()
		resp.Cache = &cacheStats
	}

	qs.writeJSON(rw, hr, http.StatusOK, resp)
}

// lookup serves key from the cache, or runs query under mu and caches a
// successful result.
func (qs *QueryServer) lookup(key queryKey, query func() (queryResult, error)) (queryResult, error) {
	if qs.cache != nil {
		if cached, ok := qs.cache.Get(key); ok {
			return cached, nil
		}
	}

	qs.mu.Lock()
	matches, err := query()
	qs.mu.Unlock()

	if err != nil {
		return nil, err
	}

	if qs.cache != nil {
		qs.cache.Put(key, matches)
	}

	return matches, nil
}

func handleHealth(rw http.ResponseWriter, _ *http.Request) {
	rw.Header().Set("Content-Type", "text/plain; charset=utf-8")
	rw.WriteHeader(http.StatusOK)
	_, _ = rw.Write([]byte("ok\n"))
}

func (qs *QueryServer) floatParam(rw http.ResponseWriter, hr *http.Request, name string) (float64, bool) {
	raw := hr.URL.Query().Get(name)
	if raw == "" {
		qs.writeJSON(rw, hr, http.StatusBadRequest, ErrorResponse{Error: "missing query parameter " + strconv.Quote(name)})

		return 0, false
	}

	value, err := parseEndpoint(name, raw)
	if err != nil {
		qs.writeJSON(rw, hr, http.StatusBadRequest, ErrorResponse{Error: err.Error()})

		return 0, false
	}

	return value, true
}

func (qs *QueryServer) writeJSON(rw http.ResponseWriter, hr *http.Request, status int, value any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)

	encodeErr := json.NewEncoder(rw).Encode(value)
	if encodeErr != nil {
		qs.logger.ErrorContext(hr.Context(), "failed to encode JSON response", "error", encodeErr)
	}
}

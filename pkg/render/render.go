// Package render prints query results, tree statistics and dataset
// validation reports as tables, JSON or plain text.
package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Sumatoshi-tech/intervalindex/pkg/alg/interval"
	"github.com/Sumatoshi-tech/intervalindex/pkg/dataset"
)

// ErrUnknownFormat is returned by ParseFormat for unsupported names.
var ErrUnknownFormat = errors.New("unknown output format")

// Format selects the output encoding.
type Format string

// Supported formats.
const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatPlain Format = "plain"
)

const msgNoIntervals = "No intervals"

// ParseFormat converts a format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(name); f {
	case FormatTable, FormatJSON, FormatPlain:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// Options configures a Renderer.
type Options struct {
	Format Format
	Color  bool
}

// Renderer writes results to an output stream.
type Renderer struct {
	out    io.Writer
	format Format

	ok   *color.Color
	bad  *color.Color
	warn *color.Color
	hint *color.Color
}

// New creates a Renderer writing to out. An empty format means table.
func New(out io.Writer, opts Options) *Renderer {
	if opts.Format == "" {
		opts.Format = FormatTable
	}

	r := &Renderer{
		out:    out,
		format: opts.Format,
		ok:     color.New(color.FgGreen),
		bad:    color.New(color.FgRed),
		warn:   color.New(color.FgYellow),
		hint:   color.New(color.FgCyan),
	}

	for _, c := range []*color.Color{r.ok, r.bad, r.warn, r.hint} {
		if opts.Color {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	return r
}

// IntervalJSON is the JSON shape of one interval.
type IntervalJSON struct {
	Data  string  `json:"data"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// StatsJSON is the JSON shape of tree statistics.
type StatsJSON struct {
	Intervals      int     `json:"intervals"`
	Nodes          int     `json:"nodes"`
	Depth          int     `json:"depth"`
	Buckets        int     `json:"buckets"`
	LargestBucket  int     `json:"largest_bucket"`
	BuildSeconds   float64 `json:"build_seconds"`
	PendingChanges bool    `json:"pending_changes"`
}

// ValidationJSON is the JSON shape of a validation report.
type ValidationJSON struct {
	Source string               `json:"source"`
	Errors []dataset.FieldError `json:"errors"`
	Valid  bool                 `json:"valid"`
}

// ToJSON converts intervals to their JSON shape. The result is never nil.
func ToJSON(ivs []interval.Interval[float64, string]) []IntervalJSON {
	out := make([]IntervalJSON, len(ivs))
	for i, iv := range ivs {
		out[i] = IntervalJSON{Start: iv.Start, End: iv.End, Data: iv.Data}
	}

	return out
}

// StatsToJSON converts rebuild statistics to their JSON shape.
func StatsToJSON(rs interval.RebuildStats, inSync bool) StatsJSON {
	return StatsJSON{
		Intervals:      rs.Intervals,
		Nodes:          rs.Nodes,
		Depth:          rs.Depth,
		Buckets:        rs.Buckets,
		LargestBucket:  rs.LargestBucket,
		BuildSeconds:   rs.Duration.Seconds(),
		PendingChanges: !inSync,
	}
}

// Intervals prints matches under a caption such as "stab 15".
func (r *Renderer) Intervals(caption string, ivs []interval.Interval[float64, string]) error {
	switch r.format {
	case FormatJSON:
		return r.writeJSON(ToJSON(ivs))
	case FormatPlain:
		for _, iv := range ivs {
			_, err := fmt.Fprintln(r.out, iv.Data)
			if err != nil {
				return fmt.Errorf("write result: %w", err)
			}
		}

		return nil
	default:
		return r.intervalTable(caption, ivs)
	}
}

func (r *Renderer) intervalTable(caption string, ivs []interval.Interval[float64, string]) error {
	if len(ivs) == 0 {
		_, err := r.warn.Fprintf(r.out, "%s: %s\n", caption, msgNoIntervals)
		if err != nil {
			return fmt.Errorf("write result: %w", err)
		}

		return nil
	}

	tbl := newTable()
	tbl.SetTitle(caption)
	tbl.AppendHeader(table.Row{"#", "Start", "End", "Data"})

	for i, iv := range ivs {
		tbl.AppendRow(table.Row{i + 1, humanize.Ftoa(iv.Start), humanize.Ftoa(iv.End), iv.Data})
	}

	tbl.AppendFooter(table.Row{"", "", "Total", humanize.Comma(int64(len(ivs)))})

	return r.writeLine(tbl.Render())
}

// Stats prints tree statistics. inSync reports whether inserts are pending.
func (r *Renderer) Stats(rs interval.RebuildStats, inSync bool) error {
	switch r.format {
	case FormatJSON:
		return r.writeJSON(StatsToJSON(rs, inSync))
	case FormatPlain:
		for _, row := range statRows(rs) {
			_, err := fmt.Fprintf(r.out, "%s: %s\n", row[0], row[1])
			if err != nil {
				return fmt.Errorf("write stats: %w", err)
			}
		}

		return nil
	default:
		tbl := newTable()
		tbl.SetTitle("Interval tree")
		tbl.AppendHeader(table.Row{"Metric", "Value"})

		for _, row := range statRows(rs) {
			tbl.AppendRow(table.Row{row[0], row[1]})
		}

		return r.writeLine(tbl.Render())
	}
}

func statRows(rs interval.RebuildStats) [][2]string {
	return [][2]string{
		{"Intervals", humanize.Comma(int64(rs.Intervals))},
		{"Nodes", humanize.Comma(int64(rs.Nodes))},
		{"Depth", humanize.Comma(int64(rs.Depth))},
		{"Buckets", humanize.Comma(int64(rs.Buckets))},
		{"Largest bucket", humanize.Comma(int64(rs.LargestBucket))},
		{"Build time", rs.Duration.Round(time.Microsecond).String()},
	}
}

// Validation prints a dataset validation report for source.
func (r *Renderer) Validation(source string, fieldErrors []dataset.FieldError) error {
	if r.format == FormatJSON {
		errs := fieldErrors
		if errs == nil {
			errs = []dataset.FieldError{}
		}

		return r.writeJSON(ValidationJSON{Source: source, Valid: len(fieldErrors) == 0, Errors: errs})
	}

	if len(fieldErrors) == 0 {
		_, err := r.ok.Fprintf(r.out, "Dataset is valid (%s)\n", source)
		if err != nil {
			return fmt.Errorf("write report: %w", err)
		}

		return nil
	}

	_, err := r.bad.Fprintf(r.out, "Dataset validation failed (%s)\n", source)
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	_, err = r.warn.Fprintf(r.out, "  %s found:\n", english.Plural(len(fieldErrors), "error", "errors"))
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	for _, fe := range fieldErrors {
		_, err = r.bad.Fprintf(r.out, "  - %s\n", fe)
		if err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	_, err = r.hint.Fprintln(r.out, "  Each entry needs numeric start and end and a string data field.")
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	return nil
}

func (r *Renderer) writeJSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")

	err := enc.Encode(v)
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}

	return nil
}

func (r *Renderer) writeLine(s string) error {
	_, err := fmt.Fprintln(r.out, s)
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	return nil
}

func newTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.DrawBorder = false

	return tbl
}

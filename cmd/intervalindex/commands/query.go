package commands

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/intervalindex/pkg/observability"
)

// ErrNotANumber is returned for a NaN query bound.
var ErrNotANumber = errors.New("not a number")

// NewStabCommand creates the stab command.
func NewStabCommand(opts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stab <point>",
		Short: "List intervals containing a point",
		Long: `List every interval whose closed range [start, end] contains the point.

Examples:
  intervalindex stab -f intervals.yaml 15
  intervalindex stab -f intervals.yaml -o json -- -7.5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			point, err := parseEndpoint("point", args[0])
			if err != nil {
				return err
			}

			sess, err := opts.newSession(cmd, observability.ModeCLI)
			if err != nil {
				return err
			}

			return sess.close(runStab(cmd, sess, args[0], point))
		},
	}
}

func runStab(cmd *cobra.Command, sess *session, label string, point float64) error {
	ctx := cmd.Context()

	tree, err := sess.loadTree(ctx, nil)
	if err != nil {
		return err
	}

	matches := tree.StabIntervals(point)
	sess.metrics.RecordQuery(ctx, observability.OpStab, len(matches))

	return sess.renderer.Intervals("stab "+label, matches)
}

// NewRangeCommand creates the range command.
func NewRangeCommand(opts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "range <start> <end>",
		Short: "List intervals intersecting a range",
		Long: `List every interval that shares at least one point with [start, end].
The range must satisfy start < end.

Examples:
  intervalindex range -f intervals.yaml 15 25`,
		Args: cobra.ExactArgs(2), //nolint:mnd // start and end
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := parseEndpoint("start", args[0])
			if err != nil {
				return err
			}

			end, err := parseEndpoint("end", args[1])
			if err != nil {
				return err
			}

			sess, err := opts.newSession(cmd, observability.ModeCLI)
			if err != nil {
				return err
			}

			return sess.close(runRange(cmd, sess, args, start, end))
		},
	}
}

func runRange(cmd *cobra.Command, sess *session, args []string, start, end float64) error {
	ctx := cmd.Context()

	tree, err := sess.loadTree(ctx, nil)
	if err != nil {
		return err
	}

	matches, err := tree.QueryIntervals(start, end)
	if err != nil {
		return err
	}

	sess.metrics.RecordQuery(ctx, observability.OpRange, len(matches))

	return sess.renderer.Intervals(fmt.Sprintf("range %s %s", args[0], args[1]), matches)
}

func parseEndpoint(name, raw string) (float64, error) {
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}

	if math.IsNaN(value) {
		return 0, fmt.Errorf("invalid %s %q: %w", name, raw, ErrNotANumber)
	}

	return value, nil
}

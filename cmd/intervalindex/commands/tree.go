package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/intervalindex/pkg/alg/interval"
	"github.com/Sumatoshi-tech/intervalindex/pkg/observability"
)

// NewDumpCommand creates the dump command.
func NewDumpCommand(opts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Print the tree structure",
		Long: `Print one line per node, indented by depth: the node center followed by
its overlapping intervals grouped by (start, end). Left subtrees print
before right subtrees.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := opts.newSession(cmd, observability.ModeCLI)
			if err != nil {
				return err
			}

			return sess.close(runDump(cmd, sess))
		},
	}
}

func runDump(cmd *cobra.Command, sess *session) error {
	tree, err := sess.loadTree(cmd.Context(), nil)
	if err != nil {
		return err
	}

	_, err = tree.WriteTo(sess.out)
	if err != nil {
		return fmt.Errorf("dump tree: %w", err)
	}

	return nil
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(opts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print tree statistics",
		Long:  `Build the tree and print its node count, depth, bucket figures and build time.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := opts.newSession(cmd, observability.ModeCLI)
			if err != nil {
				return err
			}

			return sess.close(runStats(cmd, sess))
		},
	}
}

func runStats(cmd *cobra.Command, sess *session) error {
	var built interval.RebuildStats

	tree, err := sess.loadTree(cmd.Context(), func(rs interval.RebuildStats) { built = rs })
	if err != nil {
		return err
	}

	tree.Rebuild()

	return sess.renderer.Stats(built, tree.InSync())
}

// Package commands implements CLI command handlers for intervalindex.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/Sumatoshi-tech/intervalindex/pkg/alg/interval"
	"github.com/Sumatoshi-tech/intervalindex/pkg/config"
	"github.com/Sumatoshi-tech/intervalindex/pkg/dataset"
	"github.com/Sumatoshi-tech/intervalindex/pkg/observability"
	"github.com/Sumatoshi-tech/intervalindex/pkg/render"
	"github.com/Sumatoshi-tech/intervalindex/pkg/version"
)

// ErrMissingFile is returned when no dataset file is configured.
var ErrMissingFile = errors.New("no dataset file: pass --file or set index.file")

// GlobalOptions holds the persistent flags shared by every command.
type GlobalOptions struct {
	ConfigPath string
	File       string
	Output     string
	NoColor    bool
	Verbose    bool
	Quiet      bool
}

// NewRootCommand builds the intervalindex command tree.
func NewRootCommand() *cobra.Command {
	opts := &GlobalOptions{}

	rootCmd := &cobra.Command{
		Use:   "intervalindex",
		Short: "Centered interval tree index for stab and range queries",
		Long: `intervalindex loads interval definitions from a YAML dataset into a
centered interval tree and answers point (stab) and range queries.

Commands:
  stab      Intervals containing a point
  range     Intervals intersecting a range
  dump      Print the tree structure
  stats     Print tree statistics
  validate  Check a dataset against the schema
  serve     Serve queries over HTTP`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.ConfigPath, "config", "", "config file (default is ./intervalindex.yaml)")
	flags.StringVarP(&opts.File, "file", "f", "", "dataset file (overrides index.file)")
	flags.StringVarP(&opts.Output, "output", "o", "", "output format: table, json, plain")
	flags.BoolVar(&opts.NoColor, "no-color", false, "disable colored output")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.BoolVarP(&opts.Quiet, "quiet", "q", false, "suppress log output")

	rootCmd.AddCommand(NewStabCommand(opts))
	rootCmd.AddCommand(NewRangeCommand(opts))
	rootCmd.AddCommand(NewDumpCommand(opts))
	rootCmd.AddCommand(NewStatsCommand(opts))
	rootCmd.AddCommand(NewValidateCommand(opts))
	rootCmd.AddCommand(NewServeCommand(opts))
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}

// session is the per-invocation state derived from config and flags.
type session struct {
	cfg       *config.Config
	logger    *slog.Logger
	renderer  *render.Renderer
	out       io.Writer
	providers observability.Providers
	metrics   *observability.IndexMetrics
}

func (g *GlobalOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(g.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	flags := cmd.Flags()

	if flags.Changed("file") {
		cfg.Index.File = g.File
	}

	if flags.Changed("output") {
		cfg.Output.Format = g.Output
	}

	if g.NoColor {
		cfg.Output.Color = false
	}

	switch {
	case g.Quiet:
		cfg.Logging.Level = slog.LevelError.String()
	case g.Verbose:
		cfg.Logging.Level = slog.LevelDebug.String()
	}

	return cfg, nil
}

// newSession loads configuration, applies flag overrides and initializes
// telemetry for the given mode. readers are attached to the meter provider.
func (g *GlobalOptions) newSession(
	cmd *cobra.Command, mode observability.AppMode, readers ...sdkmetric.Reader,
) (*session, error) {
	cfg, err := g.loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	format, err := render.ParseFormat(cfg.Output.Format)
	if err != nil {
		return nil, err
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.LogWriter = cmd.ErrOrStderr()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Mode = mode
	obsCfg.LogLevel = cfg.Logging.SlogLevel()
	obsCfg.LogJSON = cfg.Logging.Format == config.LogFormatJSON
	obsCfg.Environment = cfg.Telemetry.Environment
	obsCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(cfg.Telemetry.OTLPHeaders)
	obsCfg.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	obsCfg.SampleRatio = cfg.Telemetry.SampleRatio

	providers, err := observability.InitWithReaders(obsCfg, readers...)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	metrics, err := observability.NewIndexMetrics(providers.Meter)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("create index metrics: %w", err), providers.Shutdown(context.Background()))
	}

	return &session{
		cfg:       cfg,
		logger:    providers.Logger,
		renderer:  render.New(cmd.OutOrStdout(), render.Options{Format: format, Color: cfg.Output.Color}),
		out:       cmd.OutOrStdout(),
		providers: providers,
		metrics:   metrics,
	}, nil
}

// close flushes telemetry, joining its error with err.
func (s *session) close(err error) error {
	shutdownErr := s.providers.Shutdown(context.Background())
	if shutdownErr != nil {
		shutdownErr = fmt.Errorf("shutdown observability: %w", shutdownErr)
	}

	return errors.Join(err, shutdownErr)
}

// loadTree reads the configured dataset into a tree. The tree is returned
// unbuilt; onRebuild observes the first build.
func (s *session) loadTree(
	ctx context.Context, onRebuild func(interval.RebuildStats),
) (*interval.Tree[float64, string], error) {
	path := s.cfg.Index.File
	if path == "" {
		return nil, ErrMissingFile
	}

	doc, err := dataset.LoadFile(path)
	if err != nil {
		return nil, err
	}

	hook := s.metrics.RebuildHook(ctx)
	if onRebuild != nil {
		hook = func(rs interval.RebuildStats) {
			s.metrics.RecordRebuild(ctx, rs.Intervals, rs.Nodes, rs.Duration)
			onRebuild(rs)
		}
	}

	zero := s.cfg.Index.Zero

	tree, err := doc.Tree(
		interval.WithZero[float64, string](func() float64 { return zero }),
		interval.WithLogger[float64, string](s.logger),
		interval.WithRebuildHook[float64, string](hook),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	s.logger.InfoContext(ctx, "dataset loaded", "file", path, "intervals", tree.CachedSize())

	return tree, nil
}

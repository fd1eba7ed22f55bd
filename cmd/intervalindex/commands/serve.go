package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/intervalindex/pkg/alg/interval"
	"github.com/Sumatoshi-tech/intervalindex/pkg/observability"
)

// NewServeCommand creates the serve command.
func NewServeCommand(opts *GlobalOptions) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stab and range queries over HTTP",
		Long: `Load the dataset, build the tree once and answer queries over HTTP.

Endpoints:
  GET /stab?point=P         intervals containing P
  GET /range?start=S&end=E  intervals intersecting [S, E]
  GET /stats                tree statistics
  GET /healthz              liveness
  GET /metrics              Prometheus metrics

The server stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reader, metricsHandler, err := observability.PrometheusReader()
			if err != nil {
				return err
			}

			sess, err := opts.newSession(cmd, observability.ModeServe, reader)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("host") {
				sess.cfg.Server.Host = host
			}

			if cmd.Flags().Changed("port") {
				sess.cfg.Server.Port = port
			}

			return sess.close(runServe(cmd, sess, metricsHandler))
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "listen host (overrides server.host)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides server.port)")

	return cmd
}

func runServe(cmd *cobra.Command, sess *session, metricsHandler http.Handler) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var built interval.RebuildStats

	tree, err := sess.loadTree(ctx, func(rs interval.RebuildStats) { built = rs })
	if err != nil {
		return err
	}

	tree.Rebuild()

	red, err := observability.NewREDMetrics(sess.providers.Meter)
	if err != nil {
		return err
	}

	qs := NewQueryServer(tree, built, sess.cfg.Server.CacheEntries, sess.metrics, sess.logger)
	srvCfg := sess.cfg.Server

	server := &http.Server{
		Addr:         srvCfg.Addr(),
		Handler:      qs.Handler(sess.providers.Tracer, red, metricsHandler),
		ReadTimeout:  srvCfg.ReadTimeout,
		WriteTimeout: srvCfg.WriteTimeout,
		IdleTimeout:  srvCfg.IdleTimeout,
	}

	var lc net.ListenConfig

	ln, err := lc.Listen(ctx, "tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", server.Addr, err)
	}

	return serve(ctx, server, ln, srvCfg.ShutdownTimeout, sess.logger)
}

// serve runs server on ln until ctx is cancelled, then shuts it down
// within shutdownTimeout.
func serve(
	ctx context.Context, server *http.Server, ln net.Listener, shutdownTimeout time.Duration, logger *slog.Logger,
) error {
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.InfoContext(groupCtx, "query server listening", "addr", ln.Addr().String())

		err := server.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}

		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()

		logger.Info("query server shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(groupCtx), shutdownTimeout)
		defer cancel()

		err := server.Shutdown(shutdownCtx)
		if err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}

		return nil
	})

	return group.Wait()
}

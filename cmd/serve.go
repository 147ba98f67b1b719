package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"rosterflow/internal/bootstrap/logging"
	"rosterflow/internal/errs"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, inbox watcher, worker pool and stuck-job sweep",
	RunE: withApp(func(cmd *cobra.Command, env appEnv) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := env.App.InitSchema(ctx); err != nil {
			return errs.Wrap(err, "initialize schema")
		}

		env.Runner.Start(ctx)

		group, groupCtx := errgroup.WithContext(ctx)
		group.Go(func() error {
			return env.Server.ListenAndServe(groupCtx)
		})
		group.Go(func() error {
			return env.Watcher.Run(groupCtx)
		})
		group.Go(func() error {
			return sweepLoop(groupCtx, env)
		})

		logging.Info(ctx, "rosterflow serving",
			slog.String("addr", env.App.Config.Server.Addr),
			slog.String("inbox", env.App.Config.Ingest.InboxDir),
		)

		err := group.Wait()
		env.Runner.Wait()
		if err != nil && !errors.Is(err, context.Canceled) {
			return errs.Wrap(err, "serve")
		}
		return nil
	}),
}

// sweepLoop periodically fails jobs stuck in processing, so a crashed worker
// never wedges a job forever.
func sweepLoop(ctx context.Context, env appEnv) error {
	interval := env.App.Config.Pipeline.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			result, err := env.Service.SweepStuck(ctx)
			if err != nil {
				logging.Warn(ctx, "stuck sweep failed", slog.Any("err", errs.Loggable(err)))
				continue
			}
			if len(result.Failed) > 0 {
				logging.Info(ctx, "stuck jobs failed by sweep", slog.Int("count", len(result.Failed)))
			}
		}
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

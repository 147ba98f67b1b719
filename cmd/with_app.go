package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"rosterflow/internal/bootstrap"
	"rosterflow/internal/bootstrap/logging"
	"rosterflow/internal/errs"
	"rosterflow/internal/ingest"
	"rosterflow/internal/server"
	"rosterflow/internal/usecase/pipeline"
)

// appEnv collects the wired components a command can reach for.
type appEnv struct {
	fx.In

	App     *bootstrap.App
	Service *pipeline.Service
	Runner  *pipeline.Runner
	Watcher *ingest.Watcher
	Server  *server.Server
}

func withApp(run func(cmd *cobra.Command, env appEnv) error) func(cmd *cobra.Command, args []string) error {
	return withAppArgs(func(cmd *cobra.Command, env appEnv, _ []string) error {
		return run(cmd, env)
	})
}

func withAppArgs(run func(cmd *cobra.Command, env appEnv, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := logging.WithAttrs(
			cmd.Context(),
			slog.String("command", cmd.CommandPath()),
			slog.String("config_file", cfgFile),
		)

		var env appEnv
		fxApp := fx.New(
			bootstrap.Module,
			fx.Provide(func() context.Context { return ctx }),
			fx.Provide(
				fx.Annotate(
					func() string { return cfgFile },
					fx.ResultTags(`name:"configFile"`),
				),
			),
			fx.Populate(&env),
		)

		startCtx, cancelStart := context.WithTimeout(ctx, 10*time.Second)
		defer cancelStart()
		if err := fxApp.Start(startCtx); err != nil {
			logging.Error(ctx, "bootstrap application failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "start fx application")
		}

		defer func() {
			stopCtx, cancelStop := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancelStop()
			if err := fxApp.Stop(stopCtx); err != nil {
				logging.Error(ctx, "fx application stop failed", slog.Any("err", errs.Loggable(err)))
			}
		}()

		if err := run(cmd, env, args); err != nil {
			return errs.Wrap(err, "run command")
		}
		return nil
	}
}

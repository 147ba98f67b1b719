package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"rosterflow/internal/errs"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Fail jobs stuck in processing beyond the stuck window",
	RunE: withApp(func(cmd *cobra.Command, env appEnv) error {
		result, err := env.Service.SweepStuck(cmd.Context())
		if err != nil {
			return errs.Wrap(err, "sweep stuck jobs")
		}
		if len(result.Failed) == 0 {
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "no stuck jobs")
		} else {
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "failed stuck jobs: %v\n", result.Failed)
		}
		if err != nil {
			return errs.Wrap(err, "write sweep output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

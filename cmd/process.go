package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"rosterflow/internal/errs"
	"rosterflow/internal/usecase/pipeline"
)

var processCmd = &cobra.Command{
	Use:   "process JOB_ID...",
	Short: "Run the extraction pipeline for pending jobs",
	Args:  cobra.MinimumNArgs(1),
	RunE: withAppArgs(func(cmd *cobra.Command, env appEnv, args []string) error {
		ctx := cmd.Context()

		for _, arg := range args {
			jobID, err := strconv.ParseUint(arg, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid job id %q", arg)
			}
			result, err := env.Service.Process(ctx, pipeline.ProcessInput{JobID: jobID})
			if err != nil {
				return errs.Wrapf(err, "process job %d", jobID)
			}
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "job %d: %s, %d rows, %d issues, version %d\n",
				result.JobID, result.Status, result.Rows, result.Issues, result.VersionID); err != nil {
				return errs.Wrap(err, "write process output")
			}
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(processCmd)
}

package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"rosterflow/internal/errs"
	"rosterflow/internal/usecase/pipeline"
)

var exportCmd = &cobra.Command{
	Use:   "export JOB_ID",
	Short: "Export a reviewed job as an XLSX workbook",
	Args:  cobra.ExactArgs(1),
	RunE: withAppArgs(func(cmd *cobra.Command, env appEnv, args []string) error {
		jobID, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid job id %q", args[0])
		}

		result, err := env.Service.Export(cmd.Context(), pipeline.ExportInput{JobID: jobID, Actor: "cli"})
		if err != nil {
			return errs.Wrapf(err, "export job %d", jobID)
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "export %d: %s (%d rows, sha256 %s)\n",
			result.ExportID, result.Path, result.RowCount, result.Checksum); err != nil {
			return errs.Wrap(err, "write export output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

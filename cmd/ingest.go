package cmd

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"rosterflow/internal/bootstrap/logging"
	"rosterflow/internal/errs"
	"rosterflow/internal/ingest"
	"rosterflow/internal/usecase/pipeline"
)

var (
	ingestSender  string
	ingestProcess bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest FILE...",
	Short: "Register roster documents as pending jobs",
	Args:  cobra.MinimumNArgs(1),
	RunE: withAppArgs(func(cmd *cobra.Command, env appEnv, args []string) error {
		ctx := cmd.Context()

		for _, path := range args {
			abs, err := filepath.Abs(path)
			if err != nil {
				return errs.Wrapf(err, "resolve %q", path)
			}
			contentType, ok := ingest.ContentTypeForPath(abs)
			if !ok {
				return fmt.Errorf("unsupported document type: %s", path)
			}

			job, err := env.Service.Ingest(ctx, pipeline.IngestInput{
				DocumentRef: abs,
				Sender:      ingestSender,
				ContentType: contentType,
			})
			if err != nil {
				return errs.Wrapf(err, "ingest %q", path)
			}
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "job %d: %s (%s)\n", job.ID, abs, contentType); err != nil {
				return errs.Wrap(err, "write ingest output")
			}

			if !ingestProcess {
				continue
			}
			result, err := env.Service.Process(ctx, pipeline.ProcessInput{JobID: job.ID})
			if err != nil {
				logging.Error(ctx, "process after ingest failed",
					slog.Uint64("job_id", job.ID),
					slog.Any("err", errs.Loggable(err)),
				)
				return errs.Wrapf(err, "process job %d", job.ID)
			}
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "job %d: %s, %d rows, %d issues\n",
				result.JobID, result.Status, result.Rows, result.Issues); err != nil {
				return errs.Wrap(err, "write process output")
			}
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&ingestSender, "sender", "", "Sender the documents came from")
	ingestCmd.Flags().BoolVar(&ingestProcess, "process", false, "Process each job immediately after ingesting")
}

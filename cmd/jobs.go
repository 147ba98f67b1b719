package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"rosterflow/internal/domain/roster"
	"rosterflow/internal/errs"
	"rosterflow/internal/ports"
)

var (
	jobsStatus string
	jobsSender string
	jobsLimit  int
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List jobs",
	RunE: withApp(func(cmd *cobra.Command, env appEnv) error {
		jobs, err := env.Service.ListJobs(cmd.Context(), ports.JobFilter{
			Status: roster.JobStatus(jobsStatus),
			Sender: jobsSender,
			Limit:  jobsLimit,
		})
		if err != nil {
			return errs.Wrap(err, "list jobs")
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSTATUS\tSENDER\tDOCUMENT\tUPDATED")
		for _, job := range jobs {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", job.ID, job.Status, job.Sender, job.DocumentRef, job.UpdatedAt)
		}
		if err := tw.Flush(); err != nil {
			return errs.Wrap(err, "write jobs output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(jobsCmd)

	jobsCmd.Flags().StringVar(&jobsStatus, "status", "", "Filter by status")
	jobsCmd.Flags().StringVar(&jobsSender, "sender", "", "Filter by sender")
	jobsCmd.Flags().IntVar(&jobsLimit, "limit", 50, "Maximum jobs to list")
}

package main

import (
	"github.com/spf13/cobra"

	"github.com/ligustah/grab/internal/dispatcher"
)

// newWorkerCmd serves one task for the processes strategy: a request on
// stdin, a response on stdout.
func newWorkerCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:    "worker",
		Short:  "Run a single download task (used by --strategy processes)",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := dispatcher.ServeWorker(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
				return &exitError{code: ExitGeneralError, err: err}
			}
			return nil
		},
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ligustah/grab/internal/store"
	"github.com/ligustah/grab/pkg/manifest"
)

// newDeleteCmd removes a strategy's files and manifest.
func newDeleteCmd(a *app) *cobra.Command {
	var strategy string

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Remove the files recorded in a batch manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			strategies, err := parseStrategies(strategy)
			if err != nil {
				return &exitError{code: ExitInvalidArgs, err: err}
			}

			st, err := store.Open(ctx, a.cfg.Output)
			if err != nil {
				return &exitError{code: ExitStorageError, err: err}
			}
			defer st.Close()

			for _, s := range strategies {
				if len(strategies) > 1 && !st.Exists(ctx, manifest.Path(s.String())) {
					continue
				}
				if err := manifest.Delete(ctx, st, s.String()); err != nil {
					return &exitError{code: ExitStorageError, err: err}
				}
				a.logger.Info("Deleted", "strategy", s)
				fmt.Fprintf(a.stdout, "Deleted: %s\n", s)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&strategy, "strategy", "s", "", "strategy whose output to remove, or all (required)")
	cmd.MarkFlagRequired("strategy")
	return cmd
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ligustah/grab/internal/dispatcher"
	"github.com/ligustah/grab/internal/store"
	"github.com/ligustah/grab/pkg/manifest"
)

// newValidateCmd checks that every file recorded in a strategy's manifest
// still exists with the recorded size.
func newValidateCmd(a *app) *cobra.Command {
	var (
		strategy  string
		checksums bool
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Verify stored files against the batch manifest",
		Long: `Verify that every successful download recorded in <strategy>/manifest.json
exists with the recorded size. --checksums also re-reads each file and
compares its SHA-256.`,
		Args: cobra.NoArgs,
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

			var opts []manifest.ValidateOption
			if checksums {
				opts = append(opts, manifest.WithChecksums())
			}

			valid, checked := true, 0
			for _, s := range strategies {
				if len(strategies) > 1 && !st.Exists(ctx, manifest.Path(s.String())) {
					continue
				}
				checked++

				result, err := manifest.Validate(ctx, st, s.String(), opts...)
				if err != nil {
					return &exitError{code: ExitStorageError, err: err}
				}
				printValidation(a, s, result)
				valid = valid && result.Valid
			}

			if checked == 0 {
				return exitf(ExitValidationFailed, "no manifest found in %s", st.Location())
			}
			if !valid {
				return &exitError{code: ExitValidationFailed}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&strategy, "strategy", "s", "all", "strategy whose output to check, or all")
	cmd.Flags().BoolVar(&checksums, "checksums", false, "also compare SHA-256 of every file")
	return cmd
}

func printValidation(a *app, s dispatcher.Strategy, result *manifest.ValidationResult) {
	fmt.Fprintf(a.stdout, "Strategy: %s\n", s)
	fmt.Fprintf(a.stdout, "Files: %d (%d bytes)\n", result.FileCount, result.TotalBytes)

	if result.Valid {
		fmt.Fprintln(a.stdout, "Status: VALID")
		return
	}

	fmt.Fprintln(a.stdout, "Status: INVALID")
	if result.MissingFiles > 0 {
		fmt.Fprintf(a.stdout, "Missing files: %d\n", result.MissingFiles)
	}
	if result.SizeMismatches > 0 {
		fmt.Fprintf(a.stdout, "Size mismatches: %d\n", result.SizeMismatches)
	}
	if result.ChecksumMismatches > 0 {
		fmt.Fprintf(a.stdout, "Checksum mismatches: %d\n", result.ChecksumMismatches)
	}
	for _, e := range result.Errors {
		fmt.Fprintf(a.stdout, "  - %s\n", e)
	}
}

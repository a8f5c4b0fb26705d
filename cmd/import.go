package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newImportCmd(envFile *string) *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import popular categories and their products from Open Food Facts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := initDependencies(*envFile)
			if err != nil {
				return err
			}
			defer deps.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			svc := deps.Services.Import
			out := cmd.OutOrStdout()
			svc.SetProgress(out)

			if reset {
				if err := svc.ResetCatalog(ctx); err != nil {
					return err
				}
				fmt.Fprintln(out, "catalog cleared")
			}

			report, err := svc.RunImport(ctx)
			if report != nil {
				fmt.Fprintln(out, report.String())
			}
			if err != nil {
				return fmt.Errorf("import aborted: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "delete every product, category and favorite before importing")
	return cmd
}

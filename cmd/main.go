package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd purbeurre 命令行入口
func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "purbeurre",
		Short:         "Find healthier substitutes for packaged food",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load (default: ./.env if present)")

	root.AddCommand(
		newServeCmd(&envFile),
		newImportCmd(&envFile),
	)
	return root
}

package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tallyctl",
		Short: "Administer a tally installation",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newMigrateCommand(), newUserCommand(), newInvoiceCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/tally/internal/config"
	"github.com/MrJamesThe3rd/tally/internal/customer"
	customerStore "github.com/MrJamesThe3rd/tally/internal/customer/store"
	"github.com/MrJamesThe3rd/tally/internal/database"
	"github.com/MrJamesThe3rd/tally/internal/export"
	"github.com/MrJamesThe3rd/tally/internal/ids"
	"github.com/MrJamesThe3rd/tally/internal/invoice"
	invoiceStore "github.com/MrJamesThe3rd/tally/internal/invoice/store"
	"github.com/MrJamesThe3rd/tally/internal/settings"
	settingsStore "github.com/MrJamesThe3rd/tally/internal/settings/store"
)

func newInvoiceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoice",
		Short: "Work with invoices",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "pdf <id> <file>",
		Short: "Render an invoice to a PDF file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := ids.Parse(args[0])
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			db, err := database.New(cfg.ConnectionString())
			if err != nil {
				return err
			}
			defer db.Close()

			node, err := ids.NewNode(cfg.IDs.Node)
			if err != nil {
				return err
			}

			svc := export.NewService(nil,
				invoice.NewService(invoiceStore.New(db), node),
				customer.NewService(customerStore.New(db), node),
				settings.NewService(settingsStore.New(db)),
			)

			f, err := os.Create(args[1])
			if err != nil {
				return fmt.Errorf("creating %s: %w", args[1], err)
			}
			defer f.Close()

			if err := svc.RenderInvoicePDF(cmd.Context(), id, f); err != nil {
				return err
			}

			if err := f.Close(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[1])

			return nil
		},
	})

	return cmd
}

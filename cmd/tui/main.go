package main

import (
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/tally/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/tally/internal/category"
	categoryStore "github.com/MrJamesThe3rd/tally/internal/category/store"
	"github.com/MrJamesThe3rd/tally/internal/config"
	"github.com/MrJamesThe3rd/tally/internal/customer"
	customerStore "github.com/MrJamesThe3rd/tally/internal/customer/store"
	"github.com/MrJamesThe3rd/tally/internal/database"
	"github.com/MrJamesThe3rd/tally/internal/export"
	"github.com/MrJamesThe3rd/tally/internal/ids"
	"github.com/MrJamesThe3rd/tally/internal/importer"
	"github.com/MrJamesThe3rd/tally/internal/invoice"
	invoiceStore "github.com/MrJamesThe3rd/tally/internal/invoice/store"
	"github.com/MrJamesThe3rd/tally/internal/matching"
	matchingStore "github.com/MrJamesThe3rd/tally/internal/matching/store"
	"github.com/MrJamesThe3rd/tally/internal/settings"
	settingsStore "github.com/MrJamesThe3rd/tally/internal/settings/store"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
	txStore "github.com/MrJamesThe3rd/tally/internal/transaction/store"
)

type services struct {
	transactions *transaction.Service
	categories   *category.Service
	matching     *matching.Service
	importer     *importer.Service
	invoices     *invoice.Service
	export       *export.Service
}

type model struct {
	svc services

	currentView View

	importView  view.ImportModel
	reviewView  view.ReviewModel
	listView    view.ListModel
	invoiceView view.InvoiceModel
	exportView  view.ExportModel
}

type View int

const (
	ViewMenu    View = 0
	ViewImport  View = 1
	ViewReview  View = 2
	ViewList    View = 3
	ViewInvoice View = 4
	ViewExport  View = 5
)

func newServices() (services, func() error, error) {
	cfg, err := config.Load()
	if err != nil {
		return services{}, nil, fmt.Errorf("loading config: %w", err)
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		return services{}, nil, fmt.Errorf("connecting to database: %w", err)
	}

	node, err := ids.NewNode(cfg.IDs.Node)
	if err != nil {
		db.Close()
		return services{}, nil, err
	}

	categorySvc := category.NewService(categoryStore.New(db), node)
	txSvc := transaction.NewService(txStore.New(db), categorySvc, node,
		transaction.WithStrictCategoryType(cfg.Ledger.StrictCategoryType))
	invoiceSvc := invoice.NewService(invoiceStore.New(db), node)

	return services{
		transactions: txSvc,
		categories:   categorySvc,
		matching:     matching.NewService(matchingStore.New(db), node),
		importer:     importer.NewService(),
		invoices:     invoiceSvc,
		export: export.NewService(txSvc, invoiceSvc,
			customer.NewService(customerStore.New(db), node),
			settings.NewService(settingsStore.New(db)),
		),
	}, db.Close, nil
}

func initialModel(svc services) model {
	return model{
		svc:         svc,
		currentView: ViewMenu,
		importView:  view.NewImportModel(svc.transactions, svc.importer, svc.matching, svc.categories),
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.currentView == ViewMenu {
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case "1":
				m.currentView = ViewImport
				m.importView = view.NewImportModel(m.svc.transactions, m.svc.importer, m.svc.matching, m.svc.categories)

				return m, m.importView.Init()
			case "2":
				m.currentView = ViewReview
				m.reviewView = view.NewReviewModel(m.svc.transactions, m.svc.categories, m.svc.matching)

				return m, m.reviewView.Init()
			case "3":
				m.currentView = ViewList
				m.listView = view.NewListModel(m.svc.transactions, m.svc.categories)

				return m, m.listView.Init()
			case "4":
				m.currentView = ViewInvoice
				m.invoiceView = view.NewInvoiceModel(m.svc.invoices, m.svc.categories, m.svc.export)

				return m, m.invoiceView.Init()
			case "5":
				m.currentView = ViewExport
				m.exportView = view.NewExportModel(m.svc.export)

				return m, m.exportView.Init()
			}
		}
	case view.BackMsg:
		m.currentView = ViewMenu
		return m, nil
	}

	switch m.currentView {
	case ViewImport:
		var newModel tea.Model
		newModel, cmd = m.importView.Update(msg)
		m.importView = newModel.(view.ImportModel)
	case ViewReview:
		var newModel tea.Model
		newModel, cmd = m.reviewView.Update(msg)
		m.reviewView = newModel.(view.ReviewModel)
	case ViewList:
		var newModel tea.Model
		newModel, cmd = m.listView.Update(msg)
		m.listView = newModel.(view.ListModel)
	case ViewInvoice:
		var newModel tea.Model
		newModel, cmd = m.invoiceView.Update(msg)
		m.invoiceView = newModel.(view.InvoiceModel)
	case ViewExport:
		var newModel tea.Model
		newModel, cmd = m.exportView.Update(msg)
		m.exportView = newModel.(view.ExportModel)
	}

	return m, cmd
}

func (m model) View() string {
	switch m.currentView {
	case ViewMenu:
		return lipgloss.NewStyle().Padding(2).Render(
			"Tally\n\n" +
				"1. Import Bank Export\n" +
				"2. Categorize Transactions\n" +
				"3. Ledger\n" +
				"4. Invoices\n" +
				"5. Export Ledger\n\n" +
				"q. Quit",
		)
	case ViewImport:
		return m.importView.View()
	case ViewReview:
		return m.reviewView.View()
	case ViewList:
		return m.listView.View()
	case ViewInvoice:
		return m.invoiceView.View()
	case ViewExport:
		return m.exportView.View()
	}

	return "Unknown View"
}

func main() {
	if err := run(); err != nil {
		slog.Error("tui failed", "error", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// Logs go to a file while the UI owns the terminal.
	logFile, err := tea.LogToFile("tally-tui.log", "")
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logFile.Close()

	svc, closeDB, err := newServices()
	if err != nil {
		return err
	}
	defer closeDB()

	if _, err := tea.NewProgram(initialModel(svc)).Run(); err != nil {
		return fmt.Errorf("running program: %w", err)
	}

	return nil
}

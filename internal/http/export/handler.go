package export

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/apperr"
	"github.com/MrJamesThe3rd/tally/internal/export"
	"github.com/MrJamesThe3rd/tally/internal/http/render"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

type Handler struct {
	svc *export.Service
	now func() time.Time
}

func NewHandler(svc *export.Service) *Handler {
	return &Handler{svc: svc, now: time.Now}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.metadata)
	r.Post("/download", h.download)
}

type exportRequest struct {
	StartDate *render.Date      `json:"startDate"`
	EndDate   *render.Date      `json:"endDate"`
	Type      *transaction.Type `json:"type" validate:"omitempty,oneof=INCOME EXPENSE"`
}

func (req exportRequest) filter() (transaction.ListFilter, error) {
	f := transaction.ListFilter{
		StartDate: req.StartDate.Ptr(),
		EndDate:   req.EndDate.Ptr(),
		Type:      req.Type,
	}

	if f.StartDate != nil && f.EndDate != nil && f.EndDate.Before(*f.StartDate) {
		return f, fmt.Errorf("%w: end date is before start date", apperr.ErrInvalidInput)
	}

	return f, nil
}

type itemResponse struct {
	ID          snowflake.ID     `json:"id"`
	Type        transaction.Type `json:"type"`
	Amount      decimal.Decimal  `json:"amount"`
	Description string           `json:"description"`
	Date        render.Date      `json:"date"`
	InvoiceID   *snowflake.ID    `json:"invoiceId,omitempty"`
	InvoiceFile string           `json:"invoiceFile,omitempty"`
}

type metadataResponse struct {
	Transactions []itemResponse `json:"transactions"`
	Summary      string         `json:"summary"`
}

func toItemResponse(item export.Item) itemResponse {
	tx := item.Transaction

	resp := itemResponse{
		ID:          tx.ID,
		Type:        tx.Type,
		Amount:      tx.Amount,
		Description: tx.Description,
		Date:        render.Date{Time: tx.Date},
		InvoiceID:   tx.InvoiceID,
	}

	if item.FilePath != "" {
		resp.InvoiceFile = filepath.Base(item.FilePath)
	}

	return resp
}

// run exports into a fresh temporary directory; cleanup removes it.
func (h *Handler) run(r *http.Request) (items []export.Item, dir string, cleanup func(), err error) {
	var req exportRequest
	if err := render.Decode(r, &req); err != nil && !errors.Is(err, io.EOF) {
		return nil, "", nil, err
	}

	filter, err := req.filter()
	if err != nil {
		return nil, "", nil, err
	}

	dir, err = os.MkdirTemp("", "tally-export-*")
	if err != nil {
		return nil, "", nil, fmt.Errorf("creating export dir: %w", err)
	}

	cleanup = func() { os.RemoveAll(dir) }

	items, err = h.svc.Export(r.Context(), filter, dir)
	if err != nil {
		cleanup()
		return nil, "", nil, err
	}

	return items, dir, cleanup, nil
}

func (h *Handler) metadata(w http.ResponseWriter, r *http.Request) {
	items, _, cleanup, err := h.run(r)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	defer cleanup()

	resp := metadataResponse{
		Transactions: make([]itemResponse, 0, len(items)),
		Summary:      h.svc.GenerateSummary(items),
	}

	for _, item := range items {
		resp.Transactions = append(resp.Transactions, toItemResponse(item))
	}

	render.JSON(w, http.StatusOK, resp)
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	items, dir, cleanup, err := h.run(r)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	defer cleanup()

	if err := os.WriteFile(filepath.Join(dir, "summary.txt"), []byte(h.svc.GenerateSummary(items)), 0o644); err != nil {
		render.Error(w, r, fmt.Errorf("writing summary: %w", err))
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=\"export_%s.zip\"", h.now().Format("20060102")))

	zipWriter := zip.NewWriter(w)
	defer zipWriter.Close()

	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}

		relPath, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		zf, err := zipWriter.Create(filepath.ToSlash(relPath))
		if err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		_, err = io.Copy(zf, f)

		return err
	})
	if err != nil {
		slog.ErrorContext(r.Context(), "writing export zip", "error", err)
	}
}

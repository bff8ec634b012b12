package transaction

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/apperr"
	"github.com/MrJamesThe3rd/tally/internal/http/render"
	"github.com/MrJamesThe3rd/tally/internal/ids"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

type Handler struct {
	svc *transaction.Service
	now func() time.Time
}

func NewHandler(svc *transaction.Service) *Handler {
	return &Handler{svc: svc, now: time.Now}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Post("/batch", h.createBatch)
	r.Get("/summary", h.summary)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

type createTransactionRequest struct {
	Type        transaction.Type `json:"type" validate:"required,oneof=INCOME EXPENSE"`
	Amount      *decimal.Decimal `json:"amount" validate:"required"`
	Description string           `json:"description" validate:"required,max=500"`
	Date        *render.Date     `json:"date" validate:"required"`
	CategoryID  *snowflake.ID    `json:"categoryId"`
	InvoiceID   *snowflake.ID    `json:"invoiceId"`
	CreatedBy   *uuid.UUID       `json:"createdBy"`
}

func (req createTransactionRequest) params(r *http.Request) transaction.CreateParams {
	return transaction.CreateParams{
		Type:        req.Type,
		Amount:      *req.Amount,
		Description: req.Description,
		Date:        req.Date.Time,
		CategoryID:  req.CategoryID,
		InvoiceID:   req.InvoiceID,
		CreatedBy:   render.CreatedBy(r, req.CreatedBy),
	}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, r, err)
		return
	}

	tx, err := h.svc.Create(r.Context(), req.params(r))
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusCreated, toResponse(tx))
}

type batchRequest struct {
	Transactions []createTransactionRequest `json:"transactions" validate:"required,min=1,max=1000,dive"`
}

func (h *Handler) createBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, r, err)
		return
	}

	params := make([]transaction.CreateParams, len(req.Transactions))
	for i, t := range req.Transactions {
		params[i] = t.params(r)
	}

	txs, err := h.svc.CreateBatch(r.Context(), params)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusCreated, toResponseList(txs))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := transaction.ListFilter{}

	if s := q.Get("type"); s != "" {
		filter.Type = new(transaction.Type(s))
	}

	var err error

	if filter.CategoryID, err = ids.ParseOptional(q.Get("categoryId")); err != nil {
		render.Error(w, r, err)
		return
	}

	if filter.InvoiceID, err = ids.ParseOptional(q.Get("invoiceId")); err != nil {
		render.Error(w, r, err)
		return
	}

	for _, p := range []struct {
		name string
		dst  **time.Time
	}{{"startDate", &filter.StartDate}, {"endDate", &filter.EndDate}} {
		s := q.Get(p.name)
		if s == "" {
			continue
		}

		t, err := render.ParseDate(s)
		if err != nil {
			render.Error(w, r, fmt.Errorf("%w: %s: %w", apperr.ErrInvalidInput, p.name, err))
			return
		}

		*p.dst = &t
	}

	txs, err := h.svc.List(r.Context(), filter)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponseList(txs))
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	year := h.now().Year()

	if s := r.URL.Query().Get("year"); s != "" {
		y, err := strconv.Atoi(s)
		if err != nil {
			render.Error(w, r, fmt.Errorf("%w: invalid year %q", apperr.ErrInvalidInput, s))
			return
		}

		year = y
	}

	summary, err := h.svc.Summary(r.Context(), year)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toSummaryResponse(summary))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := render.ID(r, "id")
	if err != nil {
		render.Error(w, r, err)
		return
	}

	tx, err := h.svc.Get(r.Context(), id)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponse(tx))
}

type updateTransactionRequest struct {
	Type          *transaction.Type `json:"type" validate:"omitempty,oneof=INCOME EXPENSE"`
	Amount        *decimal.Decimal  `json:"amount"`
	Description   *string           `json:"description" validate:"omitempty,max=500"`
	Date          *render.Date      `json:"date"`
	CategoryID    *snowflake.ID     `json:"categoryId"`
	ClearCategory bool              `json:"clearCategory"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := render.ID(r, "id")
	if err != nil {
		render.Error(w, r, err)
		return
	}

	var req updateTransactionRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, r, err)
		return
	}

	tx, err := h.svc.Update(r.Context(), id, transaction.UpdateParams{
		Type:          req.Type,
		Amount:        req.Amount,
		Description:   req.Description,
		Date:          req.Date.Ptr(),
		CategoryID:    req.CategoryID,
		ClearCategory: req.ClearCategory,
	})
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponse(tx))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := render.ID(r, "id")
	if err != nil {
		render.Error(w, r, err)
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		render.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

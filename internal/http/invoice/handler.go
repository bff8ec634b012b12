package invoice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/apperr"
	"github.com/MrJamesThe3rd/tally/internal/http/render"
	"github.com/MrJamesThe3rd/tally/internal/ids"
	"github.com/MrJamesThe3rd/tally/internal/invoice"
)

// PDFRenderer draws a printable invoice.
type PDFRenderer interface {
	RenderInvoicePDF(ctx context.Context, id snowflake.ID, w io.Writer) error
}

type Handler struct {
	svc *invoice.Service
	pdf PDFRenderer
}

func NewHandler(svc *invoice.Service, pdf PDFRenderer) *Handler {
	return &Handler{svc: svc, pdf: pdf}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/issue", h.issue)
	r.Post("/{id}/cancel", h.cancel)
	r.Get("/{id}/pdf", h.renderPDF)
	r.Post("/{id}/payments", h.recordPayment)
	r.Get("/{id}/payments", h.listPayments)
}

// PaymentRoutes serves the flat /payments resource.
func (h *Handler) PaymentRoutes(r chi.Router) {
	r.Post("/", h.recordPaymentFlat)
	r.Get("/", h.listPaymentsByQuery)
}

type itemRequest struct {
	Description string          `json:"description" validate:"required"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	TaxRate     decimal.Decimal `json:"taxRate"`
}

func toItemParams(items []itemRequest) []invoice.ItemParams {
	params := make([]invoice.ItemParams, len(items))
	for i, it := range items {
		params[i] = invoice.ItemParams{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			TaxRate:     it.TaxRate,
		}
	}

	return params
}

type createInvoiceRequest struct {
	Number     string        `json:"number" validate:"required"`
	CustomerID *snowflake.ID `json:"customerId"`
	Items      []itemRequest `json:"items" validate:"required,min=1,dive"`
	Notes      string        `json:"notes"`
	CreatedBy  *uuid.UUID    `json:"createdBy"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createInvoiceRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, r, err)
		return
	}

	inv, err := h.svc.Create(r.Context(), invoice.CreateParams{
		Number:     req.Number,
		CustomerID: req.CustomerID,
		Items:      toItemParams(req.Items),
		Notes:      req.Notes,
		CreatedBy:  render.CreatedBy(r, req.CreatedBy),
	})
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusCreated, toResponse(inv))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := invoice.ListFilter{}

	if s := r.URL.Query().Get("status"); s != "" {
		status := invoice.Status(s)
		if !status.Valid() {
			render.Error(w, r, fmt.Errorf("%w: unknown status %q", apperr.ErrInvalidInput, s))
			return
		}

		filter.Status = &status
	}

	customerID, err := ids.ParseOptional(r.URL.Query().Get("customerId"))
	if err != nil {
		render.Error(w, r, err)
		return
	}

	filter.CustomerID = customerID

	invs, err := h.svc.List(r.Context(), filter)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponseList(invs))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := render.ID(r, "id")
	if err != nil {
		render.Error(w, r, err)
		return
	}

	inv, err := h.svc.Get(r.Context(), id)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponse(inv))
}

type updateInvoiceRequest struct {
	Number        *string       `json:"number"`
	CustomerID    *snowflake.ID `json:"customerId"`
	ClearCustomer bool          `json:"clearCustomer"`
	Items         []itemRequest `json:"items" validate:"omitempty,dive"`
	Notes         *string       `json:"notes"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := render.ID(r, "id")
	if err != nil {
		render.Error(w, r, err)
		return
	}

	var req updateInvoiceRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, r, err)
		return
	}

	params := invoice.UpdateParams{
		Number:        req.Number,
		CustomerID:    req.CustomerID,
		ClearCustomer: req.ClearCustomer,
		Notes:         req.Notes,
	}

	if req.Items != nil {
		params.Items = toItemParams(req.Items)
	}

	inv, err := h.svc.UpdateDraft(r.Context(), id, params)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponse(inv))
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

type issueRequest struct {
	IssueDate *render.Date `json:"issueDate"`
	DueDate   *render.Date `json:"dueDate"`
}

func (h *Handler) issue(w http.ResponseWriter, r *http.Request) {
	id, err := render.ID(r, "id")
	if err != nil {
		render.Error(w, r, err)
		return
	}

	// The body is optional.
	var req issueRequest
	if err := render.Decode(r, &req); err != nil && !errors.Is(err, io.EOF) {
		render.Error(w, r, err)
		return
	}

	inv, err := h.svc.Issue(r.Context(), id, invoice.IssueParams{
		IssueDate: req.IssueDate.Ptr(),
		DueDate:   req.DueDate.Ptr(),
	})
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponse(inv))
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, err := render.ID(r, "id")
	if err != nil {
		render.Error(w, r, err)
		return
	}

	inv, err := h.svc.Cancel(r.Context(), id)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponse(inv))
}

func (h *Handler) renderPDF(w http.ResponseWriter, r *http.Request) {
	id, err := render.ID(r, "id")
	if err != nil {
		render.Error(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := h.pdf.RenderInvoicePDF(r.Context(), id, &buf); err != nil {
		render.Error(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=\"invoice-%s.pdf\"", id))

	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("failed to write pdf", "error", err)
	}
}

type paymentRequest struct {
	InvoiceID         *snowflake.ID    `json:"invoiceId"`
	Amount            *decimal.Decimal `json:"amount" validate:"required"`
	PaymentMethod     invoice.Method   `json:"paymentMethod"`
	ReferenceNo       string           `json:"referenceNo" validate:"max=128"`
	PaidAt            *render.Date     `json:"paidAt"`
	CreatedBy         *uuid.UUID       `json:"createdBy"`
	CreateTransaction bool             `json:"createTransaction"`
	CategoryID        *snowflake.ID    `json:"categoryId"`
}

func (h *Handler) pay(w http.ResponseWriter, r *http.Request, id snowflake.ID, req paymentRequest) {
	res, err := h.svc.RecordPayment(r.Context(), id, invoice.PaymentParams{
		Amount:            *req.Amount,
		Method:            req.PaymentMethod,
		ReferenceNo:       req.ReferenceNo,
		PaidAt:            req.PaidAt.Ptr(),
		CreatedBy:         render.CreatedBy(r, req.CreatedBy),
		CreateTransaction: req.CreateTransaction,
		CategoryID:        req.CategoryID,
	})
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusCreated, paymentResultResponse{
		Payment:   toPaymentResponse(res.Payment),
		Status:    res.Status,
		TotalPaid: res.TotalPaid,
		Remaining: res.Remaining,
	})
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	id, err := render.ID(r, "id")
	if err != nil {
		render.Error(w, r, err)
		return
	}

	var req paymentRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, r, err)
		return
	}

	h.pay(w, r, id, req)
}

func (h *Handler) recordPaymentFlat(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, r, err)
		return
	}

	if req.InvoiceID == nil {
		render.Error(w, r, fmt.Errorf("%w: invoiceId is required", apperr.ErrInvalidInput))
		return
	}

	h.pay(w, r, *req.InvoiceID, req)
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	id, err := render.ID(r, "id")
	if err != nil {
		render.Error(w, r, err)
		return
	}

	h.writePayments(w, r, id)
}

func (h *Handler) listPaymentsByQuery(w http.ResponseWriter, r *http.Request) {
	id, err := ids.Parse(r.URL.Query().Get("invoiceId"))
	if err != nil {
		render.Error(w, r, err)
		return
	}

	h.writePayments(w, r, id)
}

func (h *Handler) writePayments(w http.ResponseWriter, r *http.Request, id snowflake.ID) {
	payments, err := h.svc.ListPayments(r.Context(), id)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toPaymentList(payments))
}

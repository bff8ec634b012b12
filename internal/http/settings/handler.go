package settings

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/tally/internal/http/render"
	"github.com/MrJamesThe3rd/tally/internal/settings"
)

type Handler struct {
	svc *settings.Service
}

func NewHandler(svc *settings.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.get)
	r.Put("/", h.update)
}

type settingsBody struct {
	CompanyName   string    `json:"companyName"`
	Address       string    `json:"address"`
	TaxID         string    `json:"taxId"`
	Email         string    `json:"email"`
	Currency      string    `json:"currency"`
	LogoURL       string    `json:"logoUrl"`
	InvoiceFooter string    `json:"invoiceFooter"`
	UpdatedAt     time.Time `json:"updatedAt,omitzero"`
}

func toBody(s *settings.Settings) settingsBody {
	return settingsBody{
		CompanyName:   s.CompanyName,
		Address:       s.Address,
		TaxID:         s.TaxID,
		Email:         s.Email,
		Currency:      s.Currency,
		LogoURL:       s.LogoURL,
		InvoiceFooter: s.InvoiceFooter,
		UpdatedAt:     s.UpdatedAt,
	}
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Get(r.Context())
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toBody(s))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req settingsBody
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, r, err)
		return
	}

	s, err := h.svc.Update(r.Context(), settings.Settings{
		CompanyName:   req.CompanyName,
		Address:       req.Address,
		TaxID:         req.TaxID,
		Email:         req.Email,
		Currency:      req.Currency,
		LogoURL:       req.LogoURL,
		InvoiceFooter: req.InvoiceFooter,
	})
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toBody(s))
}

package matching

import (
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/tally/internal/http/render"
	"github.com/MrJamesThe3rd/tally/internal/matching"
)

type Handler struct {
	svc *matching.Service
}

func NewHandler(svc *matching.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/suggest", h.suggest)
	r.Post("/", h.learn)
	r.Delete("/{id}", h.delete)
}

type ruleResponse struct {
	ID                   snowflake.ID  `json:"id"`
	RawPattern           string        `json:"rawPattern"`
	PreferredDescription string        `json:"preferredDescription"`
	CategoryID           *snowflake.ID `json:"categoryId,omitempty"`
	CreatedAt            time.Time     `json:"createdAt"`
}

func toResponse(rule *matching.Rule) ruleResponse {
	return ruleResponse{
		ID:                   rule.ID,
		RawPattern:           rule.RawPattern,
		PreferredDescription: rule.PreferredDescription,
		CategoryID:           rule.CategoryID,
		CreatedAt:            rule.CreatedAt,
	}
}

type suggestResponse struct {
	RawDescription       string        `json:"rawDescription"`
	PreferredDescription string        `json:"preferredDescription"`
	CategoryID           *snowflake.ID `json:"categoryId,omitempty"`
	Matched              bool          `json:"matched"`
}

func (h *Handler) suggest(w http.ResponseWriter, r *http.Request) {
	rawDesc := r.URL.Query().Get("rawDescription")
	if rawDesc == "" {
		render.JSON(w, http.StatusBadRequest, map[string]string{"error": "rawDescription query parameter is required"})
		return
	}

	s, err := h.svc.Suggest(r.Context(), rawDesc)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	resp := suggestResponse{RawDescription: rawDesc}
	if s != nil {
		resp.PreferredDescription = s.Description
		resp.CategoryID = s.CategoryID
		resp.Matched = true
	}

	render.JSON(w, http.StatusOK, resp)
}

type learnRequest struct {
	RawPattern           string        `json:"rawPattern" validate:"required"`
	PreferredDescription string        `json:"preferredDescription" validate:"required"`
	CategoryID           *snowflake.ID `json:"categoryId"`
}

func (h *Handler) learn(w http.ResponseWriter, r *http.Request) {
	var req learnRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, r, err)
		return
	}

	rule, err := h.svc.Learn(r.Context(), req.RawPattern, req.PreferredDescription, req.CategoryID)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusCreated, toResponse(rule))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	rules, err := h.svc.List(r.Context())
	if err != nil {
		render.Error(w, r, err)
		return
	}

	resp := make([]ruleResponse, len(rules))
	for i, rule := range rules {
		resp[i] = toResponse(rule)
	}

	render.JSON(w, http.StatusOK, resp)
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

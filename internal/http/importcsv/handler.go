package importcsv

import (
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/apperr"
	"github.com/MrJamesThe3rd/tally/internal/http/render"
	"github.com/MrJamesThe3rd/tally/internal/importer"
	"github.com/MrJamesThe3rd/tally/internal/matching"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

const maxUploadSize = 10 << 20

type Handler struct {
	importSvc  *importer.Service
	txSvc      *transaction.Service
	matchSvc   *matching.Service
	categories transaction.CategoryLookup
}

func NewHandler(importSvc *importer.Service, txSvc *transaction.Service, matchSvc *matching.Service, categories transaction.CategoryLookup) *Handler {
	return &Handler{
		importSvc:  importSvc,
		txSvc:      txSvc,
		matchSvc:   matchSvc,
		categories: categories,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.importCSV)
	r.Post("/confirm", h.confirmImport)
}

type transactionResponse struct {
	ID             snowflake.ID     `json:"id"`
	Type           transaction.Type `json:"type"`
	Amount         decimal.Decimal  `json:"amount"`
	Description    string           `json:"description"`
	RawDescription string           `json:"rawDescription,omitempty"`
	Date           render.Date      `json:"date"`
	CategoryID     *snowflake.ID    `json:"categoryId,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
}

type importSuccessResponse struct {
	Imported     int                   `json:"imported"`
	Transactions []transactionResponse `json:"transactions"`
}

type paramsDTO struct {
	Type           transaction.Type `json:"type" validate:"required,oneof=INCOME EXPENSE"`
	Amount         decimal.Decimal  `json:"amount"`
	Description    string           `json:"description" validate:"max=500"`
	RawDescription string           `json:"rawDescription" validate:"max=500"`
	Date           render.Date      `json:"date"`
	CategoryID     *snowflake.ID    `json:"categoryId,omitempty"`
}

type conflictDTO struct {
	Incoming paramsDTO           `json:"incoming"`
	Existing transactionResponse `json:"existing"`
}

type importConflictResponse struct {
	New       []paramsDTO   `json:"new"`
	Conflicts []conflictDTO `json:"conflicts"`
}

type confirmRequest struct {
	Params []paramsDTO `json:"params" validate:"required,min=1,dive"`
}

func (h *Handler) importCSV(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		render.Error(w, r, fmt.Errorf("%w: parsing form: %w", apperr.ErrInvalidInput, err))
		return
	}

	bank := importer.Bank(r.FormValue("bank"))
	if bank == "" {
		render.Error(w, r, fmt.Errorf("%w: bank field is required", apperr.ErrInvalidInput))
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		render.Error(w, r, fmt.Errorf("%w: file field is required", apperr.ErrInvalidInput))
		return
	}
	defer file.Close()

	params, err := h.importSvc.Import(bank, file)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	createdBy := render.CreatedBy(r, nil)
	for i := range params {
		params[i].CreatedBy = createdBy
	}

	h.matchSvc.Apply(r.Context(), params, h.categories)

	result, err := h.txSvc.ImportBatch(r.Context(), params)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	if len(result.Conflicts) > 0 {
		resp := importConflictResponse{
			New:       make([]paramsDTO, 0, len(result.New)),
			Conflicts: make([]conflictDTO, 0, len(result.Conflicts)),
		}

		for _, p := range result.New {
			resp.New = append(resp.New, toParamsDTO(p))
		}

		for _, c := range result.Conflicts {
			resp.Conflicts = append(resp.Conflicts, conflictDTO{
				Incoming: toParamsDTO(c.Incoming),
				Existing: toTxResponse(c.Existing),
			})
		}

		render.JSON(w, http.StatusConflict, resp)

		return
	}

	render.JSON(w, http.StatusCreated, toSuccessResponse(result.Imported))
}

func (h *Handler) confirmImport(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, r, err)
		return
	}

	params := make([]transaction.CreateParams, 0, len(req.Params))
	for _, p := range req.Params {
		params = append(params, transaction.CreateParams{
			Type:           p.Type,
			Amount:         p.Amount,
			Description:    p.Description,
			RawDescription: p.RawDescription,
			Date:           p.Date.Time,
			CategoryID:     p.CategoryID,
			CreatedBy:      render.CreatedBy(r, nil),
		})
	}

	txs, err := h.txSvc.CreateBatch(r.Context(), params)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusCreated, toSuccessResponse(txs))
}

func toSuccessResponse(txs []*transaction.Transaction) importSuccessResponse {
	responses := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		responses = append(responses, toTxResponse(tx))
	}

	return importSuccessResponse{
		Imported:     len(txs),
		Transactions: responses,
	}
}

func toTxResponse(tx *transaction.Transaction) transactionResponse {
	return transactionResponse{
		ID:             tx.ID,
		Type:           tx.Type,
		Amount:         tx.Amount,
		Description:    tx.Description,
		RawDescription: tx.RawDescription,
		Date:           render.Date{Time: tx.Date},
		CategoryID:     tx.CategoryID,
		CreatedAt:      tx.CreatedAt,
	}
}

func toParamsDTO(p transaction.CreateParams) paramsDTO {
	return paramsDTO{
		Type:           p.Type,
		Amount:         p.Amount,
		Description:    p.Description,
		RawDescription: p.RawDescription,
		Date:           render.Date{Time: p.Date},
		CategoryID:     p.CategoryID,
	}
}

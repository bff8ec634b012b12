package render_test

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/tally/internal/apperr"
	"github.com/MrJamesThe3rd/tally/internal/http/render"
)

func TestError_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"InvalidInput", fmt.Errorf("%w: amount must be positive", apperr.ErrInvalidInput), http.StatusBadRequest, "amount must be positive"},
		{"InvalidState", fmt.Errorf("%w: cannot pay a draft invoice", apperr.ErrInvalidState), http.StatusBadRequest, "draft"},
		{"NotFound", fmt.Errorf("%w: invoice 1", apperr.ErrNotFound), http.StatusNotFound, "invoice 1"},
		{"Conflict", apperr.ErrConflict, http.StatusConflict, "conflict"},
		{"Unauthorized", apperr.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{"Internal", errors.New("connection reset by peer"), http.StatusInternalServerError, `"internal error"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			render.Error(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			assert.NotContains(t, rec.Body.String(), "connection reset")
		})
	}
}

func TestDecode(t *testing.T) {
	type body struct {
		Name  string `json:"name" validate:"required"`
		Count int    `json:"count" validate:"gte=1"`
	}

	t.Run("Valid", func(t *testing.T) {
		var b body
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x","count":2}`))
		require.NoError(t, render.Decode(req, &b))
		assert.Equal(t, "x", b.Name)
	})

	t.Run("Malformed", func(t *testing.T) {
		var b body
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
		assert.ErrorIs(t, render.Decode(req, &b), apperr.ErrInvalidInput)
	})

	t.Run("EmptyBodyKeepsEOF", func(t *testing.T) {
		var b body
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		err := render.Decode(req, &b)
		assert.ErrorIs(t, err, io.EOF)
		assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	})

	t.Run("ValidationFieldsReported", func(t *testing.T) {
		var b body
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"count":0}`))
		err := render.Decode(req, &b)
		require.Error(t, err)

		rec := httptest.NewRecorder()
		render.Error(rec, req, err)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error":"validation failed","fields":{"name":"required","count":"gte=1"}}`, rec.Body.String())
	})
}

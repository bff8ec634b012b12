package middleware_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/tally/internal/auth"
	"github.com/MrJamesThe3rd/tally/internal/http/middleware"
	"github.com/MrJamesThe3rd/tally/internal/idempotency"
)

func okHandler(calls *int32) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"ok":true}`)
	})
}

func TestAuthenticate(t *testing.T) {
	issuer, err := auth.NewIssuer(strings.Repeat("s", 32), time.Hour)
	require.NoError(t, err)

	userID := uuid.New()
	token, _, err := issuer.Issue(userID, "admin")
	require.NoError(t, err)

	var seen uuid.UUID

	h := middleware.Authenticate(issuer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.UserID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"Missing", "", http.StatusUnauthorized},
		{"WrongScheme", "Basic abc", http.StatusUnauthorized},
		{"Garbage", "Bearer not.a.token", http.StatusUnauthorized},
		{"Valid", "Bearer " + token, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}

	assert.Equal(t, userID, seen)
}

func TestRateLimiter(t *testing.T) {
	var calls int32

	rl := middleware.NewRateLimiter(1, 2)
	h := rl.Handler(okHandler(&calls))

	codes := make([]int, 0, 3)

	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:5555"

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusCreated, http.StatusCreated, http.StatusTooManyRequests}, codes)

	other := httptest.NewRequest(http.MethodGet, "/", nil)
	other.RemoteAddr = "10.0.0.2:5555"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, other)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

// memRepo is an in-memory idempotency repository.
type memRepo struct {
	records map[string]*idempotency.Record
}

func (m *memRepo) Reserve(_ context.Context, rec *idempotency.Record) (*idempotency.Record, bool, error) {
	if existing, ok := m.records[rec.Key]; ok {
		return existing, false, nil
	}

	m.records[rec.Key] = rec

	return rec, true, nil
}

func (m *memRepo) Complete(_ context.Context, key string, resp idempotency.Response) error {
	now := time.Now()
	m.records[key].Status = resp.Status
	m.records[key].ContentType = resp.ContentType
	m.records[key].Body = resp.Body
	m.records[key].CompletedAt = &now

	return nil
}

func (m *memRepo) Release(_ context.Context, key string) error {
	delete(m.records, key)
	return nil
}

func TestIdempotent(t *testing.T) {
	var calls int32

	repo := &memRepo{records: map[string]*idempotency.Record{}}
	h := middleware.Idempotent(idempotency.NewService(repo))(okHandler(&calls))

	send := func(key, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices/1/payments", strings.NewReader(body))
		if key != "" {
			req.Header.Set(middleware.IdempotencyHeader, key)
		}

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		return rec
	}

	first := send("abc", `{"amount":"10"}`)
	assert.Equal(t, http.StatusCreated, first.Code)

	replay := send("abc", `{"amount":"10"}`)
	assert.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, `{"ok":true}`, replay.Body.String())
	assert.Equal(t, "true", replay.Header().Get("Idempotent-Replayed"))

	conflict := send("abc", `{"amount":"20"}`)
	assert.Equal(t, http.StatusConflict, conflict.Code)

	send("", `{"amount":"10"}`)

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestIdempotent_ReleasesKeyOnServerError(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := idempotency.NewMockRepository(ctrl)

	repo.EXPECT().Reserve(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, rec *idempotency.Record) (*idempotency.Record, bool, error) {
			return rec, true, nil
		})
	repo.EXPECT().Release(gomock.Any(), "k").Return(nil)

	h := middleware.Idempotent(idempotency.NewService(repo))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	req.Header.Set(middleware.IdempotencyHeader, "k")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestIdempotent_ReplaysContentType(t *testing.T) {
	var calls int32

	repo := &memRepo{records: map[string]*idempotency.Record{}}
	h := middleware.Idempotent(idempotency.NewService(repo))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/zip")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "PK")
	}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/export/download", strings.NewReader(`{"all":true}`))
		req.Header.Set(middleware.IdempotencyHeader, "zip-1")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		return rec
	}

	first := send()
	assert.Equal(t, "application/zip", first.Header().Get("Content-Type"))

	replay := send()
	assert.Equal(t, http.StatusOK, replay.Code)
	assert.Equal(t, "application/zip", replay.Header().Get("Content-Type"))
	assert.Equal(t, "true", replay.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, "PK", replay.Body.String())
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

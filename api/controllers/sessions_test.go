package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/elbarril/appalapapa/internal/audit"
	"github.com/elbarril/appalapapa/internal/sessions"
	"github.com/elbarril/appalapapa/pkg/db/models"
	"github.com/elbarril/appalapapa/pkg/logger"
	"github.com/elbarril/appalapapa/pkg/types"
)

type captureSessionService struct {
	sessions.Service
	created *sessions.CreateInput
}

func (c *captureSessionService) Create(ctx context.Context, input sessions.CreateInput) (*models.TherapySession, error) {
	c.created = &input
	return &models.TherapySession{ID: 1}, nil
}

func (c *captureSessionService) Delete(context.Context, int64, audit.Actor, bool) error {
	return nil
}

func mustDecimal(t *testing.T, raw string) decimal.Decimal {
	t.Helper()
	value, err := decimal.NewFromString(raw)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", raw, err)
	}
	return value
}

func postJSON(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestSessionCreateValidatesPayload(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test"})
	svc := &captureSessionService{}
	handler := SessionCreate(svc, logg)

	rec := postJSON(t, handler, `{"person_id":1,"session_date":"not-a-date","session_price":120}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad date, got %d", rec.Code)
	}

	rec = postJSON(t, handler, `{"person_id":1,"session_date":"2024-01-15","session_price":2000000}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized price, got %d", rec.Code)
	}

	rec = postJSON(t, handler, `{"session_date":"2024-01-15","session_price":120}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing person, got %d", rec.Code)
	}

	longNotes := strings.Repeat("n", 501)
	rec = postJSON(t, handler, `{"person_id":1,"session_date":"2024-01-15","session_price":120,"notes":"`+longNotes+`"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized notes, got %d", rec.Code)
	}
}

func TestSessionCreateEnforcesPriceRange(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test"})
	svc := &captureSessionService{}
	handler := SessionCreate(svc, logg)

	for _, price := range []string{"0.005", "0.001", "0", "-5", "1000000.01"} {
		rec := postJSON(t, handler, `{"person_id":1,"session_date":"2024-01-15","session_price":"`+price+`"}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("price %s: expected 400, got %d", price, rec.Code)
		}

		var envelope types.ErrorEnvelope
		if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if envelope.Error.Message != "El precio debe estar entre $0.01 y $1,000,000." {
			t.Fatalf("price %s: unexpected message %q", price, envelope.Error.Message)
		}
	}

	for _, price := range []string{"0.01", "1000000"} {
		svc.created = nil
		rec := postJSON(t, handler, `{"person_id":1,"session_date":"2024-01-15","session_price":"`+price+`"}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("price %s: expected 201, got %d", price, rec.Code)
		}
		if svc.created == nil || !svc.created.SessionPrice.Equal(mustDecimal(t, price)) {
			t.Fatalf("price %s: service did not receive the parsed price", price)
		}
	}
}

func TestSessionCreateAcceptsDateOnlyAndRFC3339(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test"})

	for _, date := range []string{"2024-01-15", "2024-01-15T00:00:00Z"} {
		svc := &captureSessionService{}
		rec := postJSON(t, SessionCreate(svc, logg), `{"person_id":3,"session_date":"`+date+`","session_price":"150.50"}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("date %s: expected 201, got %d", date, rec.Code)
		}
		if svc.created == nil {
			t.Fatal("expected service to receive input")
		}
		if svc.created.PersonID != 3 {
			t.Fatalf("expected person id 3, got %d", svc.created.PersonID)
		}
		if !svc.created.SessionPrice.Equal(mustDecimal(t, "150.50")) {
			t.Fatalf("unexpected price %s", svc.created.SessionPrice)
		}

		var envelope types.SuccessEnvelope
		if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
}

func TestSessionDeleteParsesIDParam(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test"})
	svc := &captureSessionService{}

	router := chi.NewRouter()
	router.Delete("/sessions/{sessionId}", SessionDelete(svc, logg))

	req := httptest.NewRequest(http.MethodDelete, "/sessions/abc", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-numeric id, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/sessions/12", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

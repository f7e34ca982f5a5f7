package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/elbarril/appalapapa/api/middleware"
	"github.com/elbarril/appalapapa/api/responses"
	"github.com/elbarril/appalapapa/api/validators"
	"github.com/elbarril/appalapapa/internal/sessions"
	pkgerrors "github.com/elbarril/appalapapa/pkg/errors"
	"github.com/elbarril/appalapapa/pkg/logger"
)

var (
	minSessionPrice = decimal.NewFromFloat(0.01)
	maxSessionPrice = decimal.NewFromInt(1_000_000)
)

type sessionCreateRequest struct {
	PersonID     int64           `json:"person_id" validate:"required,gt=0"`
	SessionDate  string          `json:"session_date" validate:"required"`
	SessionPrice decimal.Decimal `json:"session_price"`
	Pending      *bool           `json:"pending,omitempty"`
	Notes        *string         `json:"notes,omitempty" validate:"omitempty,max=500"`
}

type sessionUpdateRequest struct {
	SessionDate  string          `json:"session_date" validate:"required"`
	SessionPrice decimal.Decimal `json:"session_price"`
	Pending      *bool           `json:"pending,omitempty"`
	Notes        *string         `json:"notes,omitempty" validate:"omitempty,max=500"`
}

func parseSessionDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid session date").WithDetails(map[string]any{"field": "session_date"})
}

func validateSessionPrice(price decimal.Decimal) error {
	if price.LessThan(minSessionPrice) || price.GreaterThan(maxSessionPrice) {
		return pkgerrors.New(pkgerrors.CodeValidation, "El precio debe estar entre $0.01 y $1,000,000.")
	}
	return nil
}

func SessionCreate(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session service unavailable"))
			return
		}

		var body sessionCreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		date, err := parseSessionDate(body.SessionDate)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := validateSessionPrice(body.SessionPrice); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.Create(r.Context(), sessions.CreateInput{
			PersonID:     body.PersonID,
			SessionDate:  date,
			SessionPrice: body.SessionPrice,
			Pending:      body.Pending,
			Notes:        body.Notes,
			Actor:        middleware.ActorFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, session)
	}
}

func SessionUpdate(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session service unavailable"))
			return
		}

		id, err := parseIDParam(r, "sessionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body sessionUpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		date, err := parseSessionDate(body.SessionDate)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := validateSessionPrice(body.SessionPrice); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.Update(r.Context(), id, sessions.UpdateInput{
			SessionDate:  date,
			SessionPrice: body.SessionPrice,
			Pending:      body.Pending,
			Notes:        body.Notes,
			Actor:        middleware.ActorFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, session)
	}
}

func SessionDelete(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session service unavailable"))
			return
		}

		id, err := parseIDParam(r, "sessionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), id, middleware.ActorFromContext(r.Context()), true); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// SessionTogglePayment flips the pending flag and reports the new state.
func SessionTogglePayment(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session service unavailable"))
			return
		}

		id, err := parseIDParam(r, "sessionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		pending, err := svc.TogglePaymentStatus(r.Context(), id, middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]bool{"pending": pending})
	}
}

func SessionDetail(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session service unavailable"))
			return
		}

		id, err := parseIDParam(r, "sessionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.GetByID(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, session)
	}
}

// SessionWithPatient returns one session joined with its owning patient.
func SessionWithPatient(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session service unavailable"))
			return
		}

		sessionID, err := parseIDParam(r, "sessionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		personID, err := parseIDParam(r, "patientId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		pair, err := svc.GetSessionWithPerson(r.Context(), sessionID, personID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, pair)
	}
}

// SessionTotals aggregates active session prices, optionally for one patient.
func SessionTotals(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session service unavailable"))
			return
		}

		var personID *int64
		if raw := strings.TrimSpace(r.URL.Query().Get("patient_id")); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || id <= 0 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid patient id"))
				return
			}
			personID = &id
		}

		totals, err := svc.CalculateTotals(r.Context(), personID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, totals)
	}
}

func SessionsRecent(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session service unavailable"))
			return
		}

		recent, err := svc.GetRecentSessions(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, recent)
	}
}

package sessions

import (
	"context"
	"fmt"
	"time"

	"github.com/elbarril/appalapapa/internal/audit"
	"github.com/elbarril/appalapapa/pkg/db"
	"github.com/elbarril/appalapapa/pkg/db/models"
	"github.com/elbarril/appalapapa/pkg/enums"
	pkgerrors "github.com/elbarril/appalapapa/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	auditTable         = "therapy_sessions"
	maxAdvanceDays     = 7
	recentSessionLimit = 10
)

const (
	msgPatientNotFound  = "Paciente no encontrado."
	msgSessionNotFound  = "Sesión no encontrada."
	msgPriceNotPositive = "El precio debe ser mayor a cero."
	msgTooFarInAdvance  = "No se pueden agendar sesiones con más de 7 días de anticipación."
)

// CreateInput carries the fields accepted when registering a session.
// Pending defaults to true (payment owed) when nil.
type CreateInput struct {
	PersonID     int64
	SessionDate  time.Time
	SessionPrice decimal.Decimal
	Pending      *bool
	Notes        *string
	Actor        audit.Actor
}

// UpdateInput carries the fields accepted when editing a session. Pending
// is tri-state: nil leaves the payment flag untouched.
type UpdateInput struct {
	SessionDate  time.Time
	SessionPrice decimal.Decimal
	Pending      *bool
	Notes        *string
	Actor        audit.Actor
}

// Totals aggregates active session prices by payment state.
type Totals struct {
	PendingTotal decimal.Decimal `json:"pending_total"`
	PaidTotal    decimal.Decimal `json:"paid_total"`
	GrandTotal   decimal.Decimal `json:"grand_total"`
}

// Service defines the therapy session lifecycle behavior.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.TherapySession, error)
	Update(ctx context.Context, sessionID int64, input UpdateInput) (*models.TherapySession, error)
	Delete(ctx context.Context, sessionID int64, actor audit.Actor, soft bool) error
	TogglePaymentStatus(ctx context.Context, sessionID int64, actor audit.Actor) (bool, error)
	GetByID(ctx context.Context, sessionID int64) (*models.TherapySession, error)
	GetSessionWithPerson(ctx context.Context, sessionID, personID int64) (*SessionWithPerson, error)
	CalculateTotals(ctx context.Context, personID *int64) (*Totals, error)
	GetRecentSessions(ctx context.Context) ([]models.TherapySession, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type recorder interface {
	Record(ctx context.Context, input audit.RecordInput) (*models.AuditLog, error)
}

type personFinder interface {
	FindActiveByID(ctx context.Context, id int64) (*models.Person, error)
}

type service struct {
	runner  txRunner
	repo    *Repository
	persons personFinder
	audit   recorder
	today   func() time.Time
}

// ServiceParams bundles the dependencies required to build a session service.
type ServiceParams struct {
	Runner   txRunner
	Repo     *Repository
	Persons  personFinder
	Recorder recorder
}

// NewService constructs a session service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Runner == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("sessions repository is required")
	}
	if params.Persons == nil {
		return nil, fmt.Errorf("persons lookup is required")
	}
	if params.Recorder == nil {
		return nil, fmt.Errorf("audit recorder is required")
	}
	return &service{
		runner:  params.Runner,
		repo:    params.Repo,
		persons: params.Persons,
		audit:   params.Recorder,
		today:   time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.TherapySession, error) {
	person, err := s.persons.FindActiveByID(ctx, input.PersonID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, msgPatientNotFound)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup patient")
	}

	if !input.SessionPrice.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgPriceNotPositive)
	}

	// Back-dated sessions are allowed; only far-future scheduling is not.
	maxDate := dateOnly(s.today()).AddDate(0, 0, maxAdvanceDays)
	if dateOnly(input.SessionDate).After(maxDate) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgTooFarInAdvance)
	}

	pending := true
	if input.Pending != nil {
		pending = *input.Pending
	}

	session := &models.TherapySession{
		PersonID:     input.PersonID,
		SessionDate:  dateOnly(input.SessionDate),
		SessionPrice: input.SessionPrice,
		Pending:      pending,
		Notes:        input.Notes,
	}
	session.CreatedByID = input.Actor.UserID

	err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		return NewRepository(tx).Create(ctx, session)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create session")
	}

	if _, err := s.audit.Record(ctx, audit.RecordInput{
		Actor:     input.Actor,
		Action:    enums.AuditActionCreate,
		TableName: auditTable,
		RecordID:  &session.ID,
		NewValues: map[string]any{
			"person_id":     session.PersonID,
			"person_name":   person.Name,
			"session_date":  session.SessionDate.Format("2006-01-02"),
			"session_price": session.SessionPrice.String(),
			"pending":       session.Pending,
		},
	}); err != nil {
		return nil, err
	}

	return session, nil
}

func (s *service) Update(ctx context.Context, sessionID int64, input UpdateInput) (*models.TherapySession, error) {
	session, err := s.repo.FindActiveByID(ctx, sessionID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, msgSessionNotFound)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup session")
	}

	if !input.SessionPrice.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgPriceNotPositive)
	}

	oldValues := session.ToMap()

	session.SessionDate = dateOnly(input.SessionDate)
	session.SessionPrice = input.SessionPrice
	if input.Pending != nil {
		session.Pending = *input.Pending
	}
	session.Notes = input.Notes
	session.UpdatedByID = input.Actor.UserID

	err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		return NewRepository(tx).Save(ctx, session)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update session")
	}

	if _, err := s.audit.Record(ctx, audit.RecordInput{
		Actor:     input.Actor,
		Action:    enums.AuditActionUpdate,
		TableName: auditTable,
		RecordID:  &session.ID,
		OldValues: oldValues,
		NewValues: session.ToMap(),
	}); err != nil {
		return nil, err
	}

	return session, nil
}

func (s *service) Delete(ctx context.Context, sessionID int64, actor audit.Actor, soft bool) error {
	session, err := s.repo.FindActiveByID(ctx, sessionID)
	if err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, msgSessionNotFound)
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup session")
	}

	oldValues := session.ToMap()
	action := enums.AuditActionDelete

	if soft {
		action = enums.AuditActionSoftDelete
		session.MarkDeleted(actor.UserID, s.today().UTC().Truncate(time.Microsecond))
		err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
			return NewRepository(tx).Save(ctx, session)
		})
	} else {
		err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
			return NewRepository(tx).HardDelete(ctx, session)
		})
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete session")
	}

	if _, err := s.audit.Record(ctx, audit.RecordInput{
		Actor:     actor,
		Action:    action,
		TableName: auditTable,
		RecordID:  &sessionID,
		OldValues: oldValues,
	}); err != nil {
		return err
	}

	return nil
}

func (s *service) TogglePaymentStatus(ctx context.Context, sessionID int64, actor audit.Actor) (bool, error) {
	session, err := s.repo.FindActiveByID(ctx, sessionID)
	if err != nil {
		if db.IsNotFound(err) {
			return false, pkgerrors.New(pkgerrors.CodeNotFound, msgSessionNotFound)
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup session")
	}

	oldPending := session.Pending
	newPending := session.TogglePending(actor.UserID)

	err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		return NewRepository(tx).Save(ctx, session)
	})
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "toggle payment status")
	}

	if _, err := s.audit.Record(ctx, audit.RecordInput{
		Actor:     actor,
		Action:    enums.AuditActionUpdate,
		TableName: auditTable,
		RecordID:  &session.ID,
		OldValues: map[string]any{"pending": oldPending},
		NewValues: map[string]any{"pending": newPending},
	}); err != nil {
		return false, err
	}

	return newPending, nil
}

func (s *service) GetByID(ctx context.Context, sessionID int64) (*models.TherapySession, error) {
	session, err := s.repo.FindActiveByID(ctx, sessionID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, msgSessionNotFound)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup session")
	}
	return session, nil
}

func (s *service) GetSessionWithPerson(ctx context.Context, sessionID, personID int64) (*SessionWithPerson, error) {
	row, err := s.repo.FindWithPerson(ctx, sessionID, personID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, msgSessionNotFound)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup session with patient")
	}
	return row, nil
}

func (s *service) CalculateTotals(ctx context.Context, personID *int64) (*Totals, error) {
	sessions, err := s.repo.ListActive(ctx, personID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list sessions")
	}

	totals := &Totals{
		PendingTotal: decimal.Zero,
		PaidTotal:    decimal.Zero,
	}
	for _, sess := range sessions {
		if sess.Pending {
			totals.PendingTotal = totals.PendingTotal.Add(sess.SessionPrice)
		} else {
			totals.PaidTotal = totals.PaidTotal.Add(sess.SessionPrice)
		}
	}
	totals.GrandTotal = totals.PendingTotal.Add(totals.PaidTotal)
	return totals, nil
}

func (s *service) GetRecentSessions(ctx context.Context) ([]models.TherapySession, error) {
	sessions, err := s.repo.ListRecent(ctx, recentSessionLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list recent sessions")
	}
	return sessions, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

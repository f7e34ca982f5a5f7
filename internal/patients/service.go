package patients

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/elbarril/appalapapa/internal/audit"
	"github.com/elbarril/appalapapa/pkg/db"
	"github.com/elbarril/appalapapa/pkg/db/models"
	"github.com/elbarril/appalapapa/pkg/enums"
	pkgerrors "github.com/elbarril/appalapapa/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const auditTable = "persons"

const (
	msgNameRequired     = "El nombre es requerido."
	msgDuplicateName    = "Ya existe un paciente con ese nombre."
	msgDuplicateOther   = "Ya existe otro paciente con ese nombre."
	msgPatientNotFound  = "Paciente no encontrado."
	msgPatientNotErased = "Este paciente no está eliminado."
)

// CreateInput carries the fields accepted when registering a patient.
type CreateInput struct {
	Name  string
	Notes *string
	Actor audit.Actor
}

// UpdateInput carries the fields accepted when editing a patient.
type UpdateInput struct {
	Name  string
	Notes *string
	Actor audit.Actor
}

// SelectionItem is the (id, name) pair used to populate choice lists.
type SelectionItem struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Aggregates summarizes a patient's active sessions.
type Aggregates struct {
	SessionCount       int             `json:"session_count"`
	PendingCount       int             `json:"pending_count"`
	PendingTotal       decimal.Decimal `json:"pending_total"`
	TotalPaid          decimal.Decimal `json:"total_paid"`
	TotalSessionsValue decimal.Decimal `json:"total_sessions_value"`
}

// Service defines the patient lifecycle behavior.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Person, error)
	Update(ctx context.Context, personID int64, input UpdateInput) (*models.Person, error)
	Delete(ctx context.Context, personID int64, actor audit.Actor, soft bool) error
	Restore(ctx context.Context, personID int64, actor audit.Actor) error
	GetByID(ctx context.Context, personID int64) (*models.Person, error)
	GetAllActive(ctx context.Context, orderByName bool) ([]models.Person, error)
	ListForSelection(ctx context.Context) ([]SelectionItem, error)
	AggregatesFor(ctx context.Context, personID int64) (*Aggregates, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type recorder interface {
	Record(ctx context.Context, input audit.RecordInput) (*models.AuditLog, error)
}

type service struct {
	runner txRunner
	repo   *Repository
	audit  recorder
	now    func() time.Time
}

// ServiceParams bundles the dependencies required to build a patient service.
type ServiceParams struct {
	Runner   txRunner
	Repo     *Repository
	Recorder recorder
}

// NewService constructs a patient service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Runner == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("patients repository is required")
	}
	if params.Recorder == nil {
		return nil, fmt.Errorf("audit recorder is required")
	}
	return &service{
		runner: params.Runner,
		repo:   params.Repo,
		audit:  params.Recorder,
		now:    time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Person, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgNameRequired)
	}

	if _, err := s.repo.FindActiveByName(ctx, name); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, msgDuplicateName)
	} else if !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup patient by name")
	}

	person := &models.Person{
		Name:     name,
		Notes:    input.Notes,
		IsActive: true,
	}
	person.CreatedByID = input.Actor.UserID

	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		return NewRepository(tx).Create(ctx, person)
	})
	if err != nil {
		// The partial unique index is the real enforcer under concurrency.
		if db.IsUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, msgDuplicateName)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create patient")
	}

	if _, err := s.audit.Record(ctx, audit.RecordInput{
		Actor:     input.Actor,
		Action:    enums.AuditActionCreate,
		TableName: auditTable,
		RecordID:  &person.ID,
		NewValues: map[string]any{"name": person.Name, "notes": derefNotes(person.Notes)},
	}); err != nil {
		return nil, err
	}

	return person, nil
}

func (s *service) Update(ctx context.Context, personID int64, input UpdateInput) (*models.Person, error) {
	person, err := s.repo.FindActiveByID(ctx, personID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, msgPatientNotFound)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup patient")
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgNameRequired)
	}

	if _, err := s.repo.FindActiveByNameExcluding(ctx, name, personID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, msgDuplicateOther)
	} else if !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup patient by name")
	}

	oldValues := map[string]any{"name": person.Name, "notes": derefNotes(person.Notes)}

	person.Name = name
	person.Notes = input.Notes
	person.UpdatedByID = input.Actor.UserID

	err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		return NewRepository(tx).Save(ctx, person)
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, msgDuplicateOther)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update patient")
	}

	if _, err := s.audit.Record(ctx, audit.RecordInput{
		Actor:     input.Actor,
		Action:    enums.AuditActionUpdate,
		TableName: auditTable,
		RecordID:  &person.ID,
		OldValues: oldValues,
		NewValues: map[string]any{"name": person.Name, "notes": derefNotes(person.Notes)},
	}); err != nil {
		return nil, err
	}

	return person, nil
}

func (s *service) Delete(ctx context.Context, personID int64, actor audit.Actor, soft bool) error {
	person, err := s.repo.FindActiveByID(ctx, personID)
	if err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, msgPatientNotFound)
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup patient")
	}

	oldValues := person.ToMap()
	action := enums.AuditActionDelete

	if soft {
		action = enums.AuditActionSoftDelete
		// Equality on this stamp is what ties cascaded sessions to the
		// patient's deletion, so keep it to a storable precision.
		at := s.now().UTC().Truncate(time.Microsecond)
		person.MarkDeleted(actor.UserID, at)

		err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
			txRepo := NewRepository(tx)
			if err := txRepo.Save(ctx, person); err != nil {
				return err
			}
			_, err := txRepo.SoftDeleteSessions(ctx, personID, at, actor.UserID)
			return err
		})
	} else {
		err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
			return NewRepository(tx).HardDelete(ctx, person)
		})
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete patient")
	}

	if _, err := s.audit.Record(ctx, audit.RecordInput{
		Actor:     actor,
		Action:    action,
		TableName: auditTable,
		RecordID:  &personID,
		OldValues: oldValues,
	}); err != nil {
		return err
	}

	return nil
}

func (s *service) Restore(ctx context.Context, personID int64, actor audit.Actor) error {
	person, err := s.repo.FindByID(ctx, personID)
	if err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, msgPatientNotFound)
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup patient")
	}
	if !person.IsDeleted() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, msgPatientNotErased)
	}

	stamp := *person.DeletedAt
	person.SoftDelete.Restore()
	person.UpdatedByID = actor.UserID

	err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := NewRepository(tx)
		if err := txRepo.Save(ctx, person); err != nil {
			return err
		}
		_, err := txRepo.RestoreSessions(ctx, personID, stamp)
		return err
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "restore patient")
	}

	if _, err := s.audit.Record(ctx, audit.RecordInput{
		Actor:     actor,
		Action:    enums.AuditActionRestore,
		TableName: auditTable,
		RecordID:  &personID,
	}); err != nil {
		return err
	}

	return nil
}

func (s *service) GetByID(ctx context.Context, personID int64) (*models.Person, error) {
	person, err := s.repo.FindActiveByID(ctx, personID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, msgPatientNotFound)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup patient")
	}
	return person, nil
}

func (s *service) GetAllActive(ctx context.Context, orderByName bool) ([]models.Person, error) {
	persons, err := s.repo.ListActive(ctx, orderByName)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list patients")
	}
	return persons, nil
}

func (s *service) ListForSelection(ctx context.Context) ([]SelectionItem, error) {
	persons, err := s.repo.ListActive(ctx, true)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list patients")
	}
	items := make([]SelectionItem, 0, len(persons))
	for _, p := range persons {
		items = append(items, SelectionItem{ID: p.ID, Name: p.Name})
	}
	return items, nil
}

func (s *service) AggregatesFor(ctx context.Context, personID int64) (*Aggregates, error) {
	if _, err := s.GetByID(ctx, personID); err != nil {
		return nil, err
	}
	sessions, err := s.repo.ListActiveSessions(ctx, personID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list patient sessions")
	}

	agg := &Aggregates{
		PendingTotal:       decimal.Zero,
		TotalPaid:          decimal.Zero,
		TotalSessionsValue: decimal.Zero,
	}
	for _, sess := range sessions {
		agg.SessionCount++
		agg.TotalSessionsValue = agg.TotalSessionsValue.Add(sess.SessionPrice)
		if sess.Pending {
			agg.PendingCount++
			agg.PendingTotal = agg.PendingTotal.Add(sess.SessionPrice)
		} else {
			agg.TotalPaid = agg.TotalPaid.Add(sess.SessionPrice)
		}
	}
	return agg, nil
}

func derefNotes(notes *string) any {
	if notes == nil {
		return nil
	}
	return *notes
}

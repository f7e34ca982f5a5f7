package patients

import (
	"context"
	"time"

	"github.com/elbarril/appalapapa/pkg/db/models"
	"gorm.io/gorm"
)

// Repository exposes patient persistence operations. Mutating flows
// construct a repo over the transaction handle so every statement in the
// flow shares one transaction.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a patients repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindActiveByID loads a patient that has not been soft-deleted.
func (r *Repository) FindActiveByID(ctx context.Context, id int64) (*models.Person, error) {
	var person models.Person
	err := r.db.WithContext(ctx).
		Scopes(models.Active).
		First(&person, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &person, nil
}

// FindByID loads a patient regardless of soft-delete state.
func (r *Repository) FindByID(ctx context.Context, id int64) (*models.Person, error) {
	var person models.Person
	if err := r.db.WithContext(ctx).First(&person, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &person, nil
}

// FindActiveByName returns the active patient with the exact trimmed name.
func (r *Repository) FindActiveByName(ctx context.Context, name string) (*models.Person, error) {
	var person models.Person
	err := r.db.WithContext(ctx).
		Scopes(models.Active).
		Where("name = ?", name).
		First(&person).Error
	if err != nil {
		return nil, err
	}
	return &person, nil
}

// FindActiveByNameExcluding returns an active patient holding the name,
// skipping the given id. Used by update to allow self-name-reuse.
func (r *Repository) FindActiveByNameExcluding(ctx context.Context, name string, excludeID int64) (*models.Person, error) {
	var person models.Person
	err := r.db.WithContext(ctx).
		Scopes(models.Active).
		Where("name = ? AND id <> ?", name, excludeID).
		First(&person).Error
	if err != nil {
		return nil, err
	}
	return &person, nil
}

// ListActive returns all patients that are not soft-deleted.
func (r *Repository) ListActive(ctx context.Context, orderByName bool) ([]models.Person, error) {
	query := r.db.WithContext(ctx).Scopes(models.Active)
	if orderByName {
		query = query.Order("name ASC")
	}
	var persons []models.Person
	if err := query.Find(&persons).Error; err != nil {
		return nil, err
	}
	return persons, nil
}

// Create inserts a new patient.
func (r *Repository) Create(ctx context.Context, person *models.Person) error {
	return r.db.WithContext(ctx).Create(person).Error
}

// Save persists every field of the patient row.
func (r *Repository) Save(ctx context.Context, person *models.Person) error {
	return r.db.WithContext(ctx).Save(person).Error
}

// HardDelete removes the row; the storage-level cascade drops its sessions.
func (r *Repository) HardDelete(ctx context.Context, person *models.Person) error {
	return r.db.WithContext(ctx).Delete(person).Error
}

// ListActiveSessions returns the patient's sessions that are not soft-deleted.
func (r *Repository) ListActiveSessions(ctx context.Context, personID int64) ([]models.TherapySession, error) {
	var sessions []models.TherapySession
	err := r.db.WithContext(ctx).
		Scopes(models.Active).
		Where("person_id = ?", personID).
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// SoftDeleteSessions stamps every active session of the patient with the
// given deletion time, so a later restore can identify the cascade batch.
func (r *Repository) SoftDeleteSessions(ctx context.Context, personID int64, at time.Time, by *int64) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.TherapySession{}).
		Where("person_id = ? AND deleted_at IS NULL", personID).
		Updates(map[string]any{"deleted_at": at, "deleted_by_id": by})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// RestoreSessions clears the soft-delete stamp on sessions deleted at the
// exact instant the patient was, leaving independently deleted sessions alone.
func (r *Repository) RestoreSessions(ctx context.Context, personID int64, stamp time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.TherapySession{}).
		Where("person_id = ? AND deleted_at = ?", personID, stamp).
		Updates(map[string]any{"deleted_at": nil, "deleted_by_id": nil})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

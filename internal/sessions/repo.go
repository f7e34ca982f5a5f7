package sessions

import (
	"context"
	"time"

	"github.com/elbarril/appalapapa/pkg/db/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Repository exposes therapy session persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a sessions repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindActiveByID loads a session that has not been soft-deleted.
func (r *Repository) FindActiveByID(ctx context.Context, id int64) (*models.TherapySession, error) {
	var session models.TherapySession
	err := r.db.WithContext(ctx).
		Scopes(models.Active).
		First(&session, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// Create inserts a new session.
func (r *Repository) Create(ctx context.Context, session *models.TherapySession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

// Save persists every field of the session row.
func (r *Repository) Save(ctx context.Context, session *models.TherapySession) error {
	return r.db.WithContext(ctx).Save(session).Error
}

// HardDelete removes the row.
func (r *Repository) HardDelete(ctx context.Context, session *models.TherapySession) error {
	return r.db.WithContext(ctx).Delete(session).Error
}

// ListActive returns sessions that are not soft-deleted, optionally scoped
// to one patient.
func (r *Repository) ListActive(ctx context.Context, personID *int64) ([]models.TherapySession, error) {
	query := r.db.WithContext(ctx).Scopes(models.Active)
	if personID != nil {
		query = query.Where("person_id = ?", *personID)
	}
	var sessions []models.TherapySession
	if err := query.Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

// ListRecent returns the newest active sessions by session date, tie-broken
// by creation time.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]models.TherapySession, error) {
	var sessions []models.TherapySession
	err := r.db.WithContext(ctx).
		Scopes(models.Active).
		Order("session_date DESC, created_at DESC").
		Limit(limit).
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// SessionWithPerson is the joined row consumed by edit flows.
type SessionWithPerson struct {
	Name    string          `gorm:"column:name" json:"name"`
	Date    time.Time       `gorm:"column:session_date" json:"date"`
	Price   decimal.Decimal `gorm:"column:session_price" json:"price"`
	Pending bool            `gorm:"column:pending" json:"pending"`
	Notes   *string         `gorm:"column:notes" json:"notes,omitempty"`
}

// FindWithPerson joins the session to its patient; both sides must be
// active and paired.
func (r *Repository) FindWithPerson(ctx context.Context, sessionID, personID int64) (*SessionWithPerson, error) {
	var row SessionWithPerson
	err := r.db.WithContext(ctx).
		Table("persons").
		Select("persons.name, therapy_sessions.session_date, therapy_sessions.session_price, therapy_sessions.pending, therapy_sessions.notes").
		Joins("JOIN therapy_sessions ON persons.id = therapy_sessions.person_id").
		Where("persons.id = ? AND therapy_sessions.id = ?", personID, sessionID).
		Where("persons.deleted_at IS NULL AND therapy_sessions.deleted_at IS NULL").
		Take(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

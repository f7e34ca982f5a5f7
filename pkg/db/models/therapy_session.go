package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TherapySession represents a single appointment with a patient and its
// payment state. pending=true means payment is still owed.
type TherapySession struct {
	ID           int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	PersonID     int64           `gorm:"column:person_id;not null;index" json:"person_id"`
	SessionDate  time.Time       `gorm:"column:session_date;type:date;not null;index" json:"session_date"`
	SessionPrice decimal.Decimal `gorm:"column:session_price;type:numeric(12,2);not null" json:"session_price"`
	Pending      bool            `gorm:"not null;default:true;index" json:"pending"`
	Notes        *string         `gorm:"type:text" json:"notes,omitempty"`

	ActorStamps
	Stamps
	SoftDelete
}

// IsPaid reports whether the session has been paid for.
func (s *TherapySession) IsPaid() bool {
	return !s.Pending
}

// StatusText returns the human-readable payment state.
func (s *TherapySession) StatusText() string {
	if s.Pending {
		return "Pendiente"
	}
	return "Pagado"
}

// TogglePending flips the payment state and returns the new value.
func (s *TherapySession) TogglePending(userID *int64) bool {
	s.Pending = !s.Pending
	if userID != nil {
		s.UpdatedByID = userID
	}
	return s.Pending
}

// ToMap returns the flat snapshot used for audit entries and API payloads.
func (s *TherapySession) ToMap() map[string]any {
	var notes any
	if s.Notes != nil {
		notes = *s.Notes
	}
	return map[string]any{
		"id":            s.ID,
		"person_id":     s.PersonID,
		"session_date":  s.SessionDate.Format("2006-01-02"),
		"session_price": s.SessionPrice.String(),
		"pending":       s.Pending,
		"status":        s.StatusText(),
		"notes":         notes,
		"created_at":    s.CreatedAt.UTC().Format(time.RFC3339),
	}
}

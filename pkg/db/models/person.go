package models

import "time"

// Person represents a patient who attends therapy sessions.
type Person struct {
	ID       int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name     string  `gorm:"type:varchar(100);not null;index" json:"name"`
	Notes    *string `gorm:"type:text" json:"notes,omitempty"`
	IsActive bool    `gorm:"column:is_active;not null;default:true" json:"is_active"`

	ActorStamps
	Stamps
	SoftDelete
}

// TableName overrides GORM's pluralization ("people").
func (Person) TableName() string {
	return "persons"
}

// ToMap returns the flat snapshot used for audit entries and API payloads.
func (p *Person) ToMap() map[string]any {
	var notes any
	if p.Notes != nil {
		notes = *p.Notes
	}
	return map[string]any{
		"id":         p.ID,
		"name":       p.Name,
		"notes":      notes,
		"is_active":  p.IsActive,
		"created_at": p.CreatedAt.UTC().Format(time.RFC3339),
	}
}

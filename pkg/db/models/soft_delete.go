package models

import (
	"time"

	"gorm.io/gorm"
)

// SoftDelete marks a record as logically removed without dropping the row.
// Embed it alongside Stamps to get the shared lifecycle columns.
type SoftDelete struct {
	DeletedAt   *time.Time `gorm:"column:deleted_at;index" json:"deleted_at,omitempty"`
	DeletedByID *int64     `gorm:"column:deleted_by_id" json:"deleted_by_id,omitempty"`
}

// IsDeleted reports whether the record is soft-deleted.
func (s SoftDelete) IsDeleted() bool {
	return s.DeletedAt != nil
}

// MarkDeleted stamps the record as deleted at the given instant.
func (s *SoftDelete) MarkDeleted(by *int64, at time.Time) {
	s.DeletedAt = &at
	s.DeletedByID = by
}

// Restore clears the soft-delete stamp.
func (s *SoftDelete) Restore() {
	s.DeletedAt = nil
	s.DeletedByID = nil
}

// Stamps carries the shared created/updated timestamps.
type Stamps struct {
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// ActorStamps records which user created and last updated the record.
type ActorStamps struct {
	CreatedByID *int64 `gorm:"column:created_by_id" json:"created_by_id,omitempty"`
	UpdatedByID *int64 `gorm:"column:updated_by_id" json:"updated_by_id,omitempty"`
}

// Active scopes a query to records that are not soft-deleted.
func Active(db *gorm.DB) *gorm.DB {
	return db.Where("deleted_at IS NULL")
}

// Deleted scopes a query to soft-deleted records only.
func Deleted(db *gorm.DB) *gorm.DB {
	return db.Where("deleted_at IS NOT NULL")
}

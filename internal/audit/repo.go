package audit

import (
	"context"
	"time"

	"github.com/elbarril/appalapapa/pkg/db/models"
	"gorm.io/gorm"
)

// Repository exposes audit trail persistence operations. The table is
// append-only: rows are inserted and eventually purged, never updated.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an audit repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create appends a new audit entry.
func (r *Repository) Create(ctx context.Context, entry *models.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListForRecord returns the newest entries touching the given record.
func (r *Repository) ListForRecord(ctx context.Context, tableName string, recordID int64, limit int) ([]models.AuditLog, error) {
	var entries []models.AuditLog
	err := r.db.WithContext(ctx).
		Where("table_name = ? AND record_id = ?", tableName, recordID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ListForUser returns the newest entries performed by the given user.
func (r *Repository) ListForUser(ctx context.Context, userID int64, limit int) ([]models.AuditLog, error) {
	var entries []models.AuditLog
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ListRecent returns the newest entries across the whole trail.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]models.AuditLog, error) {
	var entries []models.AuditLog
	err := r.db.WithContext(ctx).
		Order("timestamp DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// CountByActionSince counts entries per action recorded after the cutoff.
func (r *Repository) CountByActionSince(ctx context.Context, since time.Time, actions []string) (map[string]int64, error) {
	type row struct {
		Action string
		Total  int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.AuditLog{}).
		Select("action, COUNT(*) AS total").
		Where("timestamp >= ? AND action IN ?", since, actions).
		Group("action").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Action] = r.Total
	}
	return counts, nil
}

// DeleteOlderThan removes entries recorded before the cutoff and reports
// how many rows were purged.
func (r *Repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("timestamp < ?", cutoff).
		Delete(&models.AuditLog{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

package models

import (
	"time"

	dbtypes "github.com/elbarril/appalapapa/pkg/db/types"
	"github.com/elbarril/appalapapa/pkg/enums"
)

// AuditLog is an append-only record of who changed what, when, and from
// where. Rows are never updated; the retention sweep is the only deleter.
type AuditLog struct {
	ID        int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    *int64            `gorm:"column:user_id;index" json:"user_id,omitempty"`
	Action    enums.AuditAction `gorm:"type:varchar(50);not null;index" json:"action"`
	TableName string            `gorm:"column:table_name;type:varchar(100);not null;index" json:"table_name"`
	RecordID  *int64            `gorm:"column:record_id" json:"record_id,omitempty"`
	OldValues dbtypes.JSONMap   `gorm:"column:old_values" json:"old_values,omitempty"`
	NewValues dbtypes.JSONMap   `gorm:"column:new_values" json:"new_values,omitempty"`
	IPAddress *string           `gorm:"column:ip_address;type:varchar(45)" json:"ip_address,omitempty"`
	UserAgent *string           `gorm:"column:user_agent;type:varchar(500)" json:"user_agent,omitempty"`
	Timestamp time.Time         `gorm:"not null;index;autoCreateTime" json:"timestamp"`
}

// ToMap returns the flat snapshot exposed through the API.
func (a *AuditLog) ToMap() map[string]any {
	var userID, recordID, ip any
	if a.UserID != nil {
		userID = *a.UserID
	}
	if a.RecordID != nil {
		recordID = *a.RecordID
	}
	if a.IPAddress != nil {
		ip = *a.IPAddress
	}
	return map[string]any{
		"id":         a.ID,
		"user_id":    userID,
		"action":     a.Action.String(),
		"table_name": a.TableName,
		"record_id":  recordID,
		"old_values": map[string]any(a.OldValues),
		"new_values": map[string]any(a.NewValues),
		"ip_address": ip,
		"timestamp":  a.Timestamp.UTC().Format(time.RFC3339),
	}
}

package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/elbarril/appalapapa/pkg/db/models"
	dbtypes "github.com/elbarril/appalapapa/pkg/db/types"
	"github.com/elbarril/appalapapa/pkg/enums"
	pkgerrors "github.com/elbarril/appalapapa/pkg/errors"
)

const (
	recordHistoryLimit  = 50
	userActivityLimit   = 100
	recentActivityLimit = 50
	securityWindowDays  = 7
)

// Actor identifies who performed an operation and from where. A nil
// UserID means the actor could not be tied to an account (failed login
// with an unknown email).
type Actor struct {
	UserID    *int64
	IPAddress *string
	UserAgent *string
}

// RecordInput describes a single audit trail entry to append.
type RecordInput struct {
	Actor     Actor
	Action    enums.AuditAction
	TableName string
	RecordID  *int64
	OldValues map[string]any
	NewValues map[string]any
}

// SecuritySummary aggregates authentication activity over a recent window.
type SecuritySummary struct {
	WindowDays   int   `json:"window_days"`
	Logins       int64 `json:"logins"`
	FailedLogins int64 `json:"failed_logins"`
	Resets       int64 `json:"password_resets"`
}

// Service defines the audit trail behavior needed by the rest of the app.
type Service interface {
	Record(ctx context.Context, input RecordInput) (*models.AuditLog, error)
	ForRecord(ctx context.Context, tableName string, recordID int64) ([]models.AuditLog, error)
	ForUser(ctx context.Context, userID int64) ([]models.AuditLog, error)
	RecentActivity(ctx context.Context) ([]models.AuditLog, error)
	Summary(ctx context.Context, windowDays int) (*SecuritySummary, error)
	PurgeOlderThan(ctx context.Context, days int) (int64, error)
}

type repository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	ListForRecord(ctx context.Context, tableName string, recordID int64, limit int) ([]models.AuditLog, error)
	ListForUser(ctx context.Context, userID int64, limit int) ([]models.AuditLog, error)
	ListRecent(ctx context.Context, limit int) ([]models.AuditLog, error)
	CountByActionSince(ctx context.Context, since time.Time, actions []string) (map[string]int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type service struct {
	repo repository
	now  func() time.Time
}

// NewService constructs the audit trail service.
func NewService(repo repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit repository is required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) Record(ctx context.Context, input RecordInput) (*models.AuditLog, error) {
	if !input.Action.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid audit action %q", input.Action))
	}
	if input.TableName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "audit table name is required")
	}

	entry := &models.AuditLog{
		UserID:    input.Actor.UserID,
		Action:    input.Action,
		TableName: input.TableName,
		RecordID:  input.RecordID,
		OldValues: dbtypes.JSONMap(input.OldValues),
		NewValues: dbtypes.JSONMap(input.NewValues),
		IPAddress: input.Actor.IPAddress,
		UserAgent: input.Actor.UserAgent,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "append audit entry")
	}
	return entry, nil
}

func (s *service) ForRecord(ctx context.Context, tableName string, recordID int64) ([]models.AuditLog, error) {
	if tableName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "audit table name is required")
	}
	entries, err := s.repo.ListForRecord(ctx, tableName, recordID, recordHistoryLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list record history")
	}
	return entries, nil
}

func (s *service) ForUser(ctx context.Context, userID int64) ([]models.AuditLog, error) {
	entries, err := s.repo.ListForUser(ctx, userID, userActivityLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list user activity")
	}
	return entries, nil
}

func (s *service) RecentActivity(ctx context.Context) ([]models.AuditLog, error) {
	entries, err := s.repo.ListRecent(ctx, recentActivityLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list recent activity")
	}
	return entries, nil
}

func (s *service) Summary(ctx context.Context, windowDays int) (*SecuritySummary, error) {
	if windowDays <= 0 {
		windowDays = securityWindowDays
	}
	since := s.now().UTC().AddDate(0, 0, -windowDays)
	actions := []string{
		enums.AuditActionLogin.String(),
		enums.AuditActionLoginFailed.String(),
		enums.AuditActionPasswordReset.String(),
	}
	counts, err := s.repo.CountByActionSince(ctx, since, actions)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count security events")
	}
	return &SecuritySummary{
		WindowDays:   windowDays,
		Logins:       counts[enums.AuditActionLogin.String()],
		FailedLogins: counts[enums.AuditActionLoginFailed.String()],
		Resets:       counts[enums.AuditActionPasswordReset.String()],
	}, nil
}

func (s *service) PurgeOlderThan(ctx context.Context, days int) (int64, error) {
	if days < 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "retention days must be zero or positive")
	}
	cutoff := s.now().UTC().AddDate(0, 0, -days)
	purged, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "purge audit entries")
	}
	return purged, nil
}

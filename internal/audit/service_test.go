package audit

import (
	"context"
	"testing"
	"time"

	"github.com/elbarril/appalapapa/pkg/enums"
	pkgerrors "github.com/elbarril/appalapapa/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupAuditTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	auditLogs := `
CREATE TABLE IF NOT EXISTS audit_logs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id INTEGER,
  action TEXT NOT NULL,
  table_name TEXT NOT NULL,
  record_id INTEGER,
  old_values TEXT,
  new_values TEXT,
  ip_address TEXT,
  user_agent TEXT,
  timestamp DATETIME
);`
	require.NoError(t, db.Exec(auditLogs).Error)
	return db
}

func newAuditService(t *testing.T, db *gorm.DB) *service {
	t.Helper()
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	return svc.(*service)
}

func mustRecord(t *testing.T, svc *service, input RecordInput) {
	t.Helper()
	_, err := svc.Record(context.Background(), input)
	require.NoError(t, err)
}

func TestRecordAndListForRecord(t *testing.T) {
	db := setupAuditTestDB(t)
	svc := newAuditService(t, db)
	ctx := context.Background()

	userID := int64(1)
	recordID := int64(42)
	ip := "10.0.0.9"

	entry, err := svc.Record(ctx, RecordInput{
		Actor:     Actor{UserID: &userID, IPAddress: &ip},
		Action:    enums.AuditActionCreate,
		TableName: "persons",
		RecordID:  &recordID,
		NewValues: map[string]any{"name": "Ana"},
	})
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Positive(t, entry.ID)

	_, err = svc.Record(ctx, RecordInput{
		Actor:     Actor{UserID: &userID},
		Action:    enums.AuditActionUpdate,
		TableName: "persons",
		RecordID:  &recordID,
		OldValues: map[string]any{"name": "Ana"},
		NewValues: map[string]any{"name": "Ana Maria"},
	})
	require.NoError(t, err)

	entries, err := svc.ForRecord(ctx, "persons", recordID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, enums.AuditActionUpdate, entries[0].Action)
	assert.Equal(t, enums.AuditActionCreate, entries[1].Action)
	assert.Equal(t, "Ana Maria", entries[0].NewValues["name"])
}

func TestRecordRejectsInvalidAction(t *testing.T) {
	db := setupAuditTestDB(t)
	svc := newAuditService(t, db)

	_, err := svc.Record(context.Background(), RecordInput{
		Action:    enums.AuditAction("BOGUS"),
		TableName: "persons",
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestRecordAllowsAnonymousActor(t *testing.T) {
	db := setupAuditTestDB(t)
	svc := newAuditService(t, db)
	ctx := context.Background()

	_, err := svc.Record(ctx, RecordInput{
		Actor:     Actor{},
		Action:    enums.AuditActionLoginFailed,
		TableName: "users",
		NewValues: map[string]any{"email": "nadie@example.com"},
	})
	require.NoError(t, err)

	entries, err := svc.RecentActivity(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].UserID)
}

func TestSummaryCountsSecurityEvents(t *testing.T) {
	db := setupAuditTestDB(t)
	svc := newAuditService(t, db)
	ctx := context.Background()

	userID := int64(5)
	for i := 0; i < 3; i++ {
		mustRecord(t, svc, RecordInput{
			Actor:     Actor{UserID: &userID},
			Action:    enums.AuditActionLogin,
			TableName: "users",
			RecordID:  &userID,
		})
	}
	mustRecord(t, svc, RecordInput{
		Actor:     Actor{},
		Action:    enums.AuditActionLoginFailed,
		TableName: "users",
	})

	summary, err := svc.Summary(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 7, summary.WindowDays)
	assert.Equal(t, int64(3), summary.Logins)
	assert.Equal(t, int64(1), summary.FailedLogins)
	assert.Equal(t, int64(0), summary.Resets)

	wide, err := svc.Summary(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, 30, wide.WindowDays)
	assert.Equal(t, int64(3), wide.Logins)
}

func TestPurgeOlderThan(t *testing.T) {
	db := setupAuditTestDB(t)
	svc := newAuditService(t, db)
	ctx := context.Background()

	userID := int64(2)
	mustRecord(t, svc, RecordInput{
		Actor:     Actor{UserID: &userID},
		Action:    enums.AuditActionLogin,
		TableName: "users",
		RecordID:  &userID,
	})

	old := time.Now().UTC().AddDate(0, 0, -400)
	require.NoError(t, db.Exec(
		`INSERT INTO audit_logs (user_id, action, table_name, timestamp) VALUES (?, 'LOGOUT', 'users', ?)`,
		userID, old,
	).Error)

	purged, err := svc.PurgeOlderThan(ctx, 365)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	remaining, err := svc.RecentActivity(ctx)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)

	_, err = svc.PurgeOlderThan(ctx, -1)
	require.Error(t, err)
}

func TestForUserReturnsOnlyThatUser(t *testing.T) {
	db := setupAuditTestDB(t)
	svc := newAuditService(t, db)
	ctx := context.Background()

	alice := int64(1)
	bob := int64(2)
	mustRecord(t, svc, RecordInput{
		Actor: Actor{UserID: &alice}, Action: enums.AuditActionLogin, TableName: "users", RecordID: &alice,
	})
	mustRecord(t, svc, RecordInput{
		Actor: Actor{UserID: &bob}, Action: enums.AuditActionLogin, TableName: "users", RecordID: &bob,
	})

	entries, err := svc.ForUser(ctx, alice)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].UserID)
	assert.Equal(t, alice, *entries[0].UserID)
}

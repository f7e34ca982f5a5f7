package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/elbarril/appalapapa/pkg/db/models"
	"github.com/elbarril/appalapapa/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupDashboardTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	persons := `
CREATE TABLE IF NOT EXISTS persons (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  notes TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_by_id INTEGER,
  updated_by_id INTEGER,
  created_at DATETIME,
  updated_at DATETIME,
  deleted_at DATETIME,
  deleted_by_id INTEGER
);`
	sessions := `
CREATE TABLE IF NOT EXISTS therapy_sessions (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  person_id INTEGER NOT NULL,
  session_date DATE NOT NULL,
  session_price TEXT NOT NULL,
  pending INTEGER NOT NULL DEFAULT 1,
  notes TEXT,
  created_by_id INTEGER,
  updated_by_id INTEGER,
  created_at DATETIME,
  updated_at DATETIME,
  deleted_at DATETIME,
  deleted_by_id INTEGER
);`
	require.NoError(t, conn.Exec(persons).Error)
	require.NoError(t, conn.Exec(sessions).Error)
	return conn
}

func seedPerson(t *testing.T, conn *gorm.DB, name string) *models.Person {
	t.Helper()

	person := &models.Person{Name: name, IsActive: true}
	require.NoError(t, conn.Create(person).Error)
	return person
}

func seedSession(t *testing.T, conn *gorm.DB, personID int64, date time.Time, priceStr string, pending bool) *models.TherapySession {
	t.Helper()

	sess := &models.TherapySession{
		PersonID:     personID,
		SessionDate:  date,
		SessionPrice: decimal.RequireFromString(priceStr),
		Pending:      pending,
	}
	require.NoError(t, conn.Create(sess).Error)
	return sess
}

func groupFor(t *testing.T, data *Data, personID int64) PatientGroup {
	t.Helper()

	for _, g := range data.Groups {
		if g.PersonID == personID {
			return g
		}
	}
	t.Fatalf("no group for person %d", personID)
	return PatientGroup{}
}

func TestDashboardKeepsSessionlessPatientsVisible(t *testing.T) {
	conn := setupDashboardTestDB(t)
	svc, err := NewService(conn)
	require.NoError(t, err)
	ctx := context.Background()

	personA := seedPerson(t, conn, "Andrea")
	personB := seedPerson(t, conn, "Bianca")
	seedSession(t, conn, personB.ID, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), "50", true)

	all, err := svc.GetDashboardData(ctx, enums.DashboardFilterAll)
	require.NoError(t, err)
	require.Len(t, all.Groups, 2)
	assert.Empty(t, groupFor(t, all, personA.ID).Sessions)
	assert.Len(t, groupFor(t, all, personB.ID).Sessions, 1)
	assert.Equal(t, 1, all.Total)

	pending, err := svc.GetDashboardData(ctx, enums.DashboardFilterPending)
	require.NoError(t, err)
	require.Len(t, pending.Groups, 2)
	assert.Empty(t, groupFor(t, pending, personA.ID).Sessions)
	assert.Len(t, groupFor(t, pending, personB.ID).Sessions, 1)
	assert.Equal(t, 1, pending.Total)

	paid, err := svc.GetDashboardData(ctx, enums.DashboardFilterPaid)
	require.NoError(t, err)
	require.Len(t, paid.Groups, 2)
	assert.Empty(t, groupFor(t, paid, personA.ID).Sessions)
	assert.Empty(t, groupFor(t, paid, personB.ID).Sessions)
	assert.Equal(t, 0, paid.Total)
}

func TestDashboardFormatsRowsAndOrdersByNameThenDate(t *testing.T) {
	conn := setupDashboardTestDB(t)
	svc, err := NewService(conn)
	require.NoError(t, err)
	ctx := context.Background()

	zoe := seedPerson(t, conn, "Zoe")
	alba := seedPerson(t, conn, "Alba")
	// Monday 15/01/2024 and Tuesday 16/01/2024.
	seedSession(t, conn, alba.ID, time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC), "1234.56", true)
	seedSession(t, conn, alba.ID, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), "50", false)
	seedSession(t, conn, zoe.ID, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), "75", true)

	data, err := svc.GetDashboardData(ctx, enums.DashboardFilterAll)
	require.NoError(t, err)
	require.Len(t, data.Groups, 2)
	assert.Equal(t, "Alba", data.Groups[0].PersonName)
	assert.Equal(t, "Zoe", data.Groups[1].PersonName)
	assert.Equal(t, 3, data.Total)

	albaRows := data.Groups[0].Sessions
	require.Len(t, albaRows, 2)
	assert.Equal(t, "Lunes 15/01/2024", albaRows[0].Date)
	assert.Equal(t, "$50.00", albaRows[0].Price)
	assert.False(t, albaRows[0].Pending)
	assert.Equal(t, "Martes 16/01/2024", albaRows[1].Date)
	assert.Equal(t, "$1,234.56", albaRows[1].Price)
	assert.True(t, albaRows[1].Pending)
}

func TestDashboardExcludesSoftDeletedRecordsAndDefaultsFilter(t *testing.T) {
	conn := setupDashboardTestDB(t)
	svc, err := NewService(conn)
	require.NoError(t, err)
	ctx := context.Background()

	visible := seedPerson(t, conn, "Clara")
	hidden := seedPerson(t, conn, "Oculto")
	now := time.Now().UTC()
	require.NoError(t, conn.Model(hidden).Update("deleted_at", now).Error)

	seedSession(t, conn, visible.ID, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), "90", true)
	ghost := seedSession(t, conn, visible.ID, time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC), "95", true)
	require.NoError(t, conn.Model(ghost).Update("deleted_at", now).Error)

	// Unknown filter tokens fall back to "all".
	data, err := svc.GetDashboardData(ctx, enums.ParseDashboardFilter("bogus"))
	require.NoError(t, err)
	assert.Equal(t, enums.DashboardFilterAll, data.Filter)
	require.Len(t, data.Groups, 1)
	assert.Equal(t, visible.ID, data.Groups[0].PersonID)
	assert.Equal(t, 1, data.Total)
}

package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/elbarril/appalapapa/internal/audit"
	"github.com/elbarril/appalapapa/internal/patients"
	"github.com/elbarril/appalapapa/pkg/db"
	"github.com/elbarril/appalapapa/pkg/db/models"
	"github.com/elbarril/appalapapa/pkg/enums"
	pkgerrors "github.com/elbarril/appalapapa/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testRunner struct {
	conn *gorm.DB
}

func (r *testRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return db.RunInTx(r.conn.WithContext(ctx), fn)
}

func setupSessionsTestDB(t *testing.T) *gorm.DB {
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
	require.NoError(t, conn.Exec(persons).Error)
	require.NoError(t, conn.Exec(sessions).Error)
	require.NoError(t, conn.Exec(auditLogs).Error)
	return conn
}

func newSessionService(t *testing.T, conn *gorm.DB) *service {
	t.Helper()

	auditSvc, err := audit.NewService(audit.NewRepository(conn))
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Runner:   &testRunner{conn: conn},
		Repo:     NewRepository(conn),
		Persons:  patients.NewRepository(conn),
		Recorder: auditSvc,
	})
	require.NoError(t, err)
	return svc.(*service)
}

func newPatient(t *testing.T, conn *gorm.DB, name string) *models.Person {
	t.Helper()

	person := &models.Person{Name: name, IsActive: true}
	require.NoError(t, conn.Create(person).Error)
	return person
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCreateValidatesPatientPriceAndDate(t *testing.T) {
	conn := setupSessionsTestDB(t)
	svc := newSessionService(t, conn)
	ctx := context.Background()

	today := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	svc.today = func() time.Time { return today }

	person := newPatient(t, conn, "Ana")

	_, err := svc.Create(ctx, CreateInput{
		PersonID:     9999,
		SessionDate:  today,
		SessionPrice: price("100"),
	})
	require.Error(t, err)
	assert.Equal(t, "Paciente no encontrado.", pkgerrors.As(err).Message())

	for _, bad := range []string{"0", "-10"} {
		_, err = svc.Create(ctx, CreateInput{
			PersonID:     person.ID,
			SessionDate:  today,
			SessionPrice: price(bad),
		})
		require.Error(t, err)
		assert.Equal(t, "El precio debe ser mayor a cero.", pkgerrors.As(err).Message())
	}

	// The service-level check is strictly > 0.
	minimum, err := svc.Create(ctx, CreateInput{
		PersonID:     person.ID,
		SessionDate:  today,
		SessionPrice: price("0.01"),
	})
	require.NoError(t, err)
	assert.True(t, minimum.Pending)

	// today+7 is the last admissible date; today+8 is rejected.
	_, err = svc.Create(ctx, CreateInput{
		PersonID:     person.ID,
		SessionDate:  today.AddDate(0, 0, 7),
		SessionPrice: price("100"),
	})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateInput{
		PersonID:     person.ID,
		SessionDate:  today.AddDate(0, 0, 8),
		SessionPrice: price("100"),
	})
	require.Error(t, err)
	assert.Equal(t, "No se pueden agendar sesiones con más de 7 días de anticipación.", pkgerrors.As(err).Message())

	// Back-dated sessions stay allowed.
	_, err = svc.Create(ctx, CreateInput{
		PersonID:     person.ID,
		SessionDate:  today.AddDate(-1, 0, 0),
		SessionPrice: price("100"),
	})
	require.NoError(t, err)
}

func TestTogglePaymentStatusIsAnIdempotentPair(t *testing.T) {
	conn := setupSessionsTestDB(t)
	svc := newSessionService(t, conn)
	ctx := context.Background()

	person := newPatient(t, conn, "Bruno")
	session, err := svc.Create(ctx, CreateInput{
		PersonID:     person.ID,
		SessionDate:  time.Now(),
		SessionPrice: price("150"),
	})
	require.NoError(t, err)
	require.True(t, session.Pending)

	first, err := svc.TogglePaymentStatus(ctx, session.ID, audit.Actor{})
	require.NoError(t, err)
	assert.False(t, first)

	second, err := svc.TogglePaymentStatus(ctx, session.ID, audit.Actor{})
	require.NoError(t, err)
	assert.True(t, second)

	var updates int64
	require.NoError(t, conn.Model(&models.AuditLog{}).
		Where("action = ? AND table_name = ? AND record_id = ?",
			enums.AuditActionUpdate.String(), "therapy_sessions", session.ID).
		Count(&updates).Error)
	assert.Equal(t, int64(2), updates)
}

func TestUpdateKeepsPendingWhenNil(t *testing.T) {
	conn := setupSessionsTestDB(t)
	svc := newSessionService(t, conn)
	ctx := context.Background()

	person := newPatient(t, conn, "Carla")
	paid := false
	session, err := svc.Create(ctx, CreateInput{
		PersonID:     person.ID,
		SessionDate:  time.Now(),
		SessionPrice: price("100"),
		Pending:      &paid,
	})
	require.NoError(t, err)
	require.False(t, session.Pending)

	// nil leaves the flag untouched.
	updated, err := svc.Update(ctx, session.ID, UpdateInput{
		SessionDate:  time.Now(),
		SessionPrice: price("120"),
	})
	require.NoError(t, err)
	assert.False(t, updated.Pending)
	assert.True(t, updated.SessionPrice.Equal(price("120")))

	// An explicit value flips it.
	pending := true
	updated, err = svc.Update(ctx, session.ID, UpdateInput{
		SessionDate:  time.Now(),
		SessionPrice: price("120"),
		Pending:      &pending,
	})
	require.NoError(t, err)
	assert.True(t, updated.Pending)

	_, err = svc.Update(ctx, 9999, UpdateInput{
		SessionDate:  time.Now(),
		SessionPrice: price("120"),
	})
	require.Error(t, err)
	assert.Equal(t, "Sesión no encontrada.", pkgerrors.As(err).Message())
}

func TestCalculateTotals(t *testing.T) {
	conn := setupSessionsTestDB(t)
	svc := newSessionService(t, conn)
	ctx := context.Background()

	person := newPatient(t, conn, "Diana")
	other := newPatient(t, conn, "Eva")

	pendingPrices := []string{"100", "120", "140"}
	paidPrices := []string{"110", "130"}
	paid := false
	for _, p := range pendingPrices {
		_, err := svc.Create(ctx, CreateInput{PersonID: person.ID, SessionDate: time.Now(), SessionPrice: price(p)})
		require.NoError(t, err)
	}
	for _, p := range paidPrices {
		_, err := svc.Create(ctx, CreateInput{PersonID: person.ID, SessionDate: time.Now(), SessionPrice: price(p), Pending: &paid})
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, CreateInput{PersonID: other.ID, SessionDate: time.Now(), SessionPrice: price("999")})
	require.NoError(t, err)

	totals, err := svc.CalculateTotals(ctx, &person.ID)
	require.NoError(t, err)
	assert.True(t, totals.PendingTotal.Equal(price("360")), "pending total %s", totals.PendingTotal)
	assert.True(t, totals.PaidTotal.Equal(price("240")), "paid total %s", totals.PaidTotal)
	assert.True(t, totals.GrandTotal.Equal(price("600")), "grand total %s", totals.GrandTotal)

	all, err := svc.CalculateTotals(ctx, nil)
	require.NoError(t, err)
	assert.True(t, all.GrandTotal.Equal(price("1599")))
}

func TestGetRecentSessionsOrdering(t *testing.T) {
	conn := setupSessionsTestDB(t)
	svc := newSessionService(t, conn)
	ctx := context.Background()

	person := newPatient(t, conn, "Fabian")

	older, err := svc.Create(ctx, CreateInput{PersonID: person.ID, SessionDate: time.Now().AddDate(0, 0, -3), SessionPrice: price("100")})
	require.NoError(t, err)
	newer, err := svc.Create(ctx, CreateInput{PersonID: person.ID, SessionDate: time.Now(), SessionPrice: price("100")})
	require.NoError(t, err)

	recent, err := svc.GetRecentSessions(ctx)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, newer.ID, recent[0].ID)
	assert.Equal(t, older.ID, recent[1].ID)
}

func TestGetSessionWithPersonRequiresActivePairing(t *testing.T) {
	conn := setupSessionsTestDB(t)
	svc := newSessionService(t, conn)
	ctx := context.Background()

	person := newPatient(t, conn, "Gloria")
	stranger := newPatient(t, conn, "Hugo")
	notes := "primera consulta"
	session, err := svc.Create(ctx, CreateInput{
		PersonID:     person.ID,
		SessionDate:  time.Now(),
		SessionPrice: price("180"),
		Notes:        &notes,
	})
	require.NoError(t, err)

	row, err := svc.GetSessionWithPerson(ctx, session.ID, person.ID)
	require.NoError(t, err)
	assert.Equal(t, "Gloria", row.Name)
	assert.True(t, row.Price.Equal(price("180")))
	require.NotNil(t, row.Notes)
	assert.Equal(t, notes, *row.Notes)

	// Mismatched pairing behaves like a missing session.
	_, err = svc.GetSessionWithPerson(ctx, session.ID, stranger.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	// Soft-deleting the session hides the join row.
	require.NoError(t, svc.Delete(ctx, session.ID, audit.Actor{}, true))
	_, err = svc.GetSessionWithPerson(ctx, session.ID, person.ID)
	require.Error(t, err)
}

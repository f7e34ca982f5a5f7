package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %q found", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestPersonsMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_persons.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS persons",
		"idx_persons_active_name",
		"WHERE deleted_at IS NULL",
		"CHECK (LENGTH(TRIM(name)) > 0)",
		"DROP TABLE IF EXISTS persons",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestTherapySessionsMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_therapy_sessions.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS therapy_sessions",
		"FOREIGN KEY (person_id) REFERENCES persons(id) ON DELETE CASCADE",
		"CHECK (session_price > 0)",
		"DROP TABLE IF EXISTS therapy_sessions",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestAuditLogsMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_audit_logs.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS audit_logs",
		"old_values JSONB",
		"new_values JSONB",
		"idx_audit_logs_record",
		"DROP TABLE IF EXISTS audit_logs",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

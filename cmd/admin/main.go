package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/elbarril/appalapapa/internal/audit"
	"github.com/elbarril/appalapapa/internal/patients"
	"github.com/elbarril/appalapapa/internal/users"
	"github.com/elbarril/appalapapa/pkg/config"
	"github.com/elbarril/appalapapa/pkg/db"
	"github.com/elbarril/appalapapa/pkg/db/models"
	"github.com/elbarril/appalapapa/pkg/enums"
	"github.com/elbarril/appalapapa/pkg/logger"
	"github.com/elbarril/appalapapa/pkg/security"
)

// Operational commands that bypass the HTTP surface. Everything here still
// writes to the audit trail so the record stays complete.
func main() {
	logg := logger.New(logger.Options{ServiceName: "admin"})

	_ = godotenv.Load()

	cmd := flag.String("cmd", "", "admin command: create-user|deactivate-user|activate-user|hard-delete-patient|purge-audit")
	email := flag.String("email", "", "account email (create-user, deactivate-user, activate-user)")
	password := flag.String("password", "", "account password (create-user)")
	role := flag.String("role", string(enums.UserRoleTherapist), "account role (create-user)")
	patientID := flag.Int64("patient-id", 0, "patient id (hard-delete-patient)")
	days := flag.Int("days", 0, "retention window in days (purge-audit, 0 uses config)")

	flag.Parse()

	cfg, err := config.Load()
	exitOn(logg, "load config", err)

	logg = logger.New(logger.Options{
		ServiceName: "admin",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx := logg.WithField(context.Background(), "cmd", *cmd)

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	exitOn(logg, "bootstrap database", err)
	defer dbClient.Close()

	conn := dbClient.DB()
	userRepo := users.NewRepository(conn)
	auditService, err := audit.NewService(audit.NewRepository(conn))
	exitOn(logg, "create audit service", err)

	switch *cmd {
	case "create-user":
		if *email == "" || *password == "" {
			fail("create-user requires -email and -password")
		}
		parsedRole, err := enums.ParseUserRole(*role)
		exitOn(logg, "parse role", err)

		hash, err := security.HashPassword(*password, cfg.Password)
		exitOn(logg, "hash password", err)

		user := &models.User{
			Email:        *email,
			PasswordHash: hash,
			Role:         parsedRole,
			IsActive:     true,
		}
		exitOn(logg, "create user", userRepo.Create(ctx, user))
		_, err = auditService.Record(ctx, audit.RecordInput{
			Action:    enums.AuditActionCreate,
			TableName: "users",
			RecordID:  &user.ID,
			NewValues: map[string]any{"email": user.Email, "role": user.Role.String(), "source": "admin-cli"},
		})
		exitOn(logg, "record audit entry", err)
		fmt.Printf("created user %d (%s)\n", user.ID, user.Email)

	case "deactivate-user", "activate-user":
		if *email == "" {
			fail(*cmd + " requires -email")
		}
		user, err := userRepo.FindByEmail(ctx, users.NormalizeEmail(*email))
		exitOn(logg, "find user", err)

		active := *cmd == "activate-user"
		exitOn(logg, "update user", userRepo.SetActive(ctx, user.ID, active))
		_, err = auditService.Record(ctx, audit.RecordInput{
			Action:    enums.AuditActionUpdate,
			TableName: "users",
			RecordID:  &user.ID,
			OldValues: map[string]any{"is_active": user.IsActive},
			NewValues: map[string]any{"is_active": active, "source": "admin-cli"},
		})
		exitOn(logg, "record audit entry", err)
		fmt.Printf("user %d is_active=%v\n", user.ID, active)

	case "hard-delete-patient":
		if *patientID <= 0 {
			fail("hard-delete-patient requires -patient-id")
		}
		patientService, err := patients.NewService(patients.ServiceParams{
			Runner:   dbClient,
			Repo:     patients.NewRepository(conn),
			Recorder: auditService,
		})
		exitOn(logg, "create patient service", err)
		exitOn(logg, "delete patient", patientService.Delete(ctx, *patientID, audit.Actor{}, false))
		fmt.Printf("patient %d permanently deleted\n", *patientID)

	case "purge-audit":
		window := *days
		if window <= 0 {
			window = cfg.Audit.RetentionDays
		}
		purged, err := auditService.PurgeOlderThan(ctx, window)
		exitOn(logg, "purge audit trail", err)
		fmt.Printf("purged %d audit entries older than %d days\n", purged, window)

	default:
		fail("unknown -cmd value: " + *cmd)
	}
}

func exitOn(logg *logger.Logger, step string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), step+" failed", err)
	os.Exit(1)
}

func fail(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}

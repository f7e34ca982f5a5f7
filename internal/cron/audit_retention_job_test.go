package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/elbarril/appalapapa/pkg/logger"
)

type fakePurger struct {
	lastDays int
	called   int
	rows     int64
	err      error
}

func (f *fakePurger) PurgeOlderThan(ctx context.Context, days int) (int64, error) {
	f.called++
	f.lastDays = days
	if f.err != nil {
		return 0, f.err
	}
	return f.rows, nil
}

func TestAuditRetentionJobUsesConfiguredWindow(t *testing.T) {
	purger := &fakePurger{rows: 12}
	job, err := NewAuditRetentionJob(AuditRetentionJobParams{
		Logger:    logger.New(logger.Options{ServiceName: "test"}),
		Purger:    purger,
		Retention: 90,
	})
	if err != nil {
		t.Fatalf("NewAuditRetentionJob: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if purger.lastDays != 90 {
		t.Fatalf("expected 90 day window, got %d", purger.lastDays)
	}
	if purger.called != 1 {
		t.Fatalf("expected purger called once, got %d", purger.called)
	}
}

func TestAuditRetentionJobDefaultsToOneYear(t *testing.T) {
	purger := &fakePurger{}
	job, err := NewAuditRetentionJob(AuditRetentionJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test"}),
		Purger: purger,
	})
	if err != nil {
		t.Fatalf("NewAuditRetentionJob: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if purger.lastDays != auditRetentionDays {
		t.Fatalf("expected %d day window, got %d", auditRetentionDays, purger.lastDays)
	}
}

func TestAuditRetentionJobPropagatesError(t *testing.T) {
	purger := &fakePurger{err: errors.New("boom")}
	job, err := NewAuditRetentionJob(AuditRetentionJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test"}),
		Purger: purger,
	})
	if err != nil {
		t.Fatalf("NewAuditRetentionJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

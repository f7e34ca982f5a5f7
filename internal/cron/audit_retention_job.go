package cron

import (
	"context"
	"fmt"

	"github.com/elbarril/appalapapa/pkg/logger"
	"github.com/elbarril/appalapapa/pkg/metrics"
)

const auditRetentionDays = 365

// AuditRetentionJobParams configure the audit trail retention sweep.
type AuditRetentionJobParams struct {
	Logger    *logger.Logger
	Purger    auditPurger
	Metrics   *metrics.CronJobMetrics
	Retention int
}

type auditPurger interface {
	PurgeOlderThan(ctx context.Context, days int) (int64, error)
}

// NewAuditRetentionJob builds the job that trims old audit entries.
func NewAuditRetentionJob(params AuditRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Purger == nil {
		return nil, fmt.Errorf("audit purger required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = auditRetentionDays
	}
	return &auditRetentionJob{
		logg:      params.Logger,
		purger:    params.Purger,
		metrics:   params.Metrics,
		retention: retention,
	}, nil
}

type auditRetentionJob struct {
	logg      *logger.Logger
	purger    auditPurger
	metrics   *metrics.CronJobMetrics
	retention int
}

func (j *auditRetentionJob) Name() string { return "audit-retention" }

func (j *auditRetentionJob) Run(ctx context.Context) error {
	purged, err := j.purger.PurgeOlderThan(ctx, j.retention)
	if err != nil {
		return fmt.Errorf("audit retention: %w", err)
	}
	j.metrics.AddPurged(j.Name(), purged)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"retention_days": j.retention,
		"rows_purged":    purged,
	})
	j.logg.Info(logCtx, "audit retention sweep complete")
	return nil
}

package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const outboxRetentionDays = 30

type outboxStore interface {
	DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	CountExhausted(ctx context.Context, maxAttempts int) (int64, error)
}

type OutboxRetentionJobParams struct {
	Logger        *logger.Logger
	Repository    outboxStore
	RetentionDays int
	// MaxAttempts matches the relay setting; rows at or past it are reported.
	MaxAttempts int
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	retention := params.RetentionDays
	if retention <= 0 {
		retention = outboxRetentionDays
	}
	return &outboxRetentionJob{
		logg:        params.Logger,
		repo:        params.Repository,
		retention:   retention,
		maxAttempts: params.MaxAttempts,
		now:         time.Now,
	}, nil
}

type outboxRetentionJob struct {
	logg        *logger.Logger
	repo        outboxStore
	retention   int
	maxAttempts int
	now         func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) (Report, error) {
	cutoff := j.now().UTC().AddDate(0, 0, -j.retention)
	deleted, err := j.repo.DeletePublishedBefore(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("outbox retention: %w", err)
	}
	report := Report{"deleted": deleted}
	fields := map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"rows_deleted":   deleted,
	}

	if j.maxAttempts > 0 {
		exhausted, err := j.repo.CountExhausted(ctx, j.maxAttempts)
		if err != nil {
			return report, fmt.Errorf("count exhausted outbox rows: %w", err)
		}
		report["exhausted"] = exhausted
		fields["rows_exhausted"] = exhausted
		if exhausted > 0 {
			j.logg.Warn(j.logg.WithFields(ctx, fields), "outbox.exhausted_rows")
		}
	}
	j.logg.Info(j.logg.WithFields(ctx, fields), "outbox retention cleanup complete")
	return report, nil
}

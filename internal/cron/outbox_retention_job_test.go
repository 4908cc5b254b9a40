package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
)

func TestOutboxRetentionJobPurgesOldPublishedRows(t *testing.T) {
	client := dbtest.Open(t)
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	old := now.AddDate(0, 0, -45)
	recent := now.AddDate(0, 0, -2)

	insert := func(publishedAt *time.Time, attempts int) {
		row := models.OutboxEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       []byte(`{}`),
			PublishedAt:   publishedAt,
			AttemptCount:  attempts,
		}
		require.NoError(t, client.DB().Create(&row).Error)
	}
	insert(&old, 0)
	insert(&recent, 0)
	insert(nil, 0)
	insert(nil, 10)

	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:      logger.Nop(),
		Repository:  outbox.NewRepository(client.DB()),
		MaxAttempts: 10,
	})
	require.NoError(t, err)
	job.(*outboxRetentionJob).now = func() time.Time { return now }

	report, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{"deleted": 1, "exhausted": 1}, report)

	var remaining int64
	require.NoError(t, client.DB().Model(&models.OutboxEvent{}).Count(&remaining).Error)
	assert.Equal(t, int64(3), remaining)
}

type failingStore struct{}

func (failingStore) DeletePublishedBefore(context.Context, time.Time) (int64, error) {
	return 0, errors.New("boom")
}

func (failingStore) CountExhausted(context.Context, int) (int64, error) { return 0, nil }

func TestOutboxRetentionJobPropagatesError(t *testing.T) {
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: logger.Nop(), Repository: failingStore{}})
	require.NoError(t, err)
	_, err = job.Run(context.Background())
	assert.Error(t, err)

	_, err = NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: logger.Nop()})
	assert.Error(t, err)
}

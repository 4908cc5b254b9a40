package events

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
)

const (
	defaultBatchSize      = 50
	defaultPollMs         = 500
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

// Publish outcomes reported to the RelayObserver.
const (
	OutcomePublished = "published"
	OutcomeFailed    = "failed"
	OutcomeTerminal  = "terminal"
)

var (
	jitterMu     sync.Mutex
	jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

// RelayObserver receives one call per publish attempt.
type RelayObserver interface {
	ObservePublish(sink string, eventType enums.OutboxEventType, outcome string)
}

type RelayParams struct {
	Config     config.OutboxConfig
	Logger     *logger.Logger
	DB         dbClient
	Repository *outbox.Repository
	Sink       Sink
	Observer   RelayObserver
}

// Relay drains the outbox table into a Sink with at-least-once delivery.
type Relay struct {
	logg         *logger.Logger
	db           dbClient
	repo         *outbox.Repository
	sink         Sink
	observer     RelayObserver
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
}

func NewRelay(params RelayParams) (*Relay, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Repository == nil {
		return nil, errors.New("outbox repository is required")
	}
	if params.Sink == nil {
		return nil, errors.New("event sink is required")
	}

	batch := params.Config.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	pollMs := params.Config.PollIntervalMS
	if pollMs <= 0 {
		pollMs = defaultPollMs
	}
	maxAttempts := params.Config.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	return &Relay{
		logg:         params.Logger,
		db:           params.DB,
		repo:         params.Repository,
		sink:         params.Sink,
		observer:     params.Observer,
		batchSize:    batch,
		maxAttempts:  maxAttempts,
		pollInterval: time.Duration(pollMs) * time.Millisecond,
	}, nil
}

// Run polls until ctx is cancelled. Batch errors back off exponentially.
func (r *Relay) Run(ctx context.Context) error {
	if err := r.db.Ping(ctx); err != nil {
		r.logg.Error(ctx, "outbox relay database ping failed", err)
		return fmt.Errorf("database ping failed: %w", err)
	}
	r.logg.Info(r.logg.WithField(ctx, "sink", r.sink.Name()), "outbox relay started")

	interval := r.pollInterval
	backoff := interval
	for {
		select {
		case <-ctx.Done():
			r.logg.Info(ctx, "outbox relay context canceled")
			return ctx.Err()
		default:
		}

		processed, err := r.ProcessBatch(ctx)
		if err != nil {
			r.logg.Error(ctx, "outbox relay batch error", err)
			backoff = nextBackoff(backoff, interval, maxBackoff)
			if err := sleep(ctx, withJitter(backoff)); err != nil {
				return err
			}
			continue
		}
		backoff = interval

		if processed > 0 {
			continue
		}
		if err := sleep(ctx, withJitter(interval)); err != nil {
			return err
		}
	}
}

// ProcessBatch publishes one batch and reports how many rows it looked at.
func (r *Relay) ProcessBatch(ctx context.Context) (int, error) {
	processed := 0
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := r.repo.WithTx(tx)
		rows, err := repo.FetchUnpublished(ctx, r.batchSize, r.maxAttempts)
		if err != nil {
			return err
		}
		processed = len(rows)

		for _, row := range rows {
			fields := r.eventFields(row)
			env, err := outbox.DecodeEnvelope(row.Payload)
			if err != nil {
				if markErr := r.terminal(ctx, repo, row, fmt.Errorf("decode envelope: %w", err), fields); markErr != nil {
					return markErr
				}
				continue
			}
			fields["event_id"] = env.EventID

			if err := r.publish(ctx, row, env.EventID); err != nil {
				nextAttempt := row.AttemptCount + 1
				fields["attempt_count"] = nextAttempt
				if nextAttempt >= r.maxAttempts {
					fields["terminal_reason"] = "max_attempts"
					if markErr := r.terminal(ctx, repo, row, fmt.Errorf("max publish attempts reached: %w", err), fields); markErr != nil {
						return markErr
					}
					continue
				}

				logCtx := r.logg.WithFields(ctx, fields)
				logCtx = r.logg.WithField(logCtx, "error", err.Error())
				r.logg.Warn(logCtx, "outbox publish failed")
				r.observe(row.EventType, OutcomeFailed)
				if markErr := repo.MarkFailed(ctx, row.ID, err); markErr != nil {
					return fmt.Errorf("mark failure %s: %w", row.ID, markErr)
				}
				continue
			}

			if markErr := repo.MarkPublished(ctx, row.ID); markErr != nil {
				return fmt.Errorf("mark published %s: %w", row.ID, markErr)
			}
			r.observe(row.EventType, OutcomePublished)
			r.logg.Debug(r.logg.WithFields(ctx, fields), "outbox event published")
		}
		return nil
	})
	return processed, err
}

func (r *Relay) publish(ctx context.Context, row models.OutboxEvent, eventID string) error {
	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	return r.sink.Publish(publishCtx, row, eventID)
}

func (r *Relay) terminal(ctx context.Context, repo *outbox.Repository, row models.OutboxEvent, err error, fields map[string]any) error {
	logCtx := r.logg.WithFields(ctx, fields)
	logCtx = r.logg.WithField(logCtx, "error", err.Error())
	r.logg.Warn(logCtx, "outbox event will not be retried")
	r.observe(row.EventType, OutcomeTerminal)
	if markErr := repo.MarkTerminal(ctx, row.ID, err, r.maxAttempts); markErr != nil {
		return fmt.Errorf("mark terminal %s: %w", row.ID, markErr)
	}
	return nil
}

func (r *Relay) observe(eventType enums.OutboxEventType, outcome string) {
	if r.observer != nil {
		r.observer.ObservePublish(r.sink.Name(), eventType, outcome)
	}
}

func (r *Relay) eventFields(row models.OutboxEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":      row.ID.String(),
		"event_type":     row.EventType,
		"aggregate_type": row.AggregateType,
		"aggregate_id":   row.AggregateID.String(),
		"sink":           r.sink.Name(),
		"attempt_count":  row.AttemptCount,
	}
	if row.LastError != nil {
		fields["last_error"] = *row.LastError
	}
	return fields
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	jitterMu.Lock()
	jitter := time.Duration(jitterSource.Int63n(int64(jitterWindow)))
	jitterMu.Unlock()
	return d + jitter
}

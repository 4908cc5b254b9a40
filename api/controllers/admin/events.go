package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/internal/policy"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
)

const defaultHeartbeat = 15 * time.Second

// EventSource hands out live subscriptions to committed order events.
type EventSource interface {
	Subscribe() (<-chan outbox.PayloadEnvelope, func())
}

type Authorizer interface {
	Authorize(ctx context.Context, actor policy.Actor, op policy.Operation) error
}

// Events streams order change events as server-sent events until the client
// disconnects or the broker shuts down. A comment line is written every
// heartbeat so idle proxies keep the connection open.
func Events(source EventSource, authz Authorizer, heartbeat time.Duration, logg *logger.Logger) http.HandlerFunc {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if source == nil || authz == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "event stream unavailable"))
			return
		}
		if err := authz.Authorize(ctx, middleware.ActorFromContext(ctx), policy.OpStreamEvents); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		rc := http.NewResponseController(w)
		events, cancel := source.Subscribe()
		defer cancel()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)
		if err := rc.Flush(); err != nil {
			logg.Error(ctx, "events.stream.flush_unsupported", err)
			return
		}
		logg.Info(ctx, "events.stream.opened")

		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				logg.Info(ctx, "events.stream.closed")
				return
			case env, ok := <-events:
				if !ok {
					return
				}
				if err := writeEvent(w, env); err != nil {
					logg.Warn(logg.WithField(ctx, "error", err.Error()), "events.stream.write_failed")
					return
				}
			case <-ticker.C:
				if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
					return
				}
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, env outbox.PayloadEnvelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", env.EventID, env.EventType, data)
	return err
}

package services

import (
	"context"

	"github.com/yungbote/casehall-backend/internal/observability"
	"github.com/yungbote/casehall-backend/internal/platform/logger"
	"github.com/yungbote/casehall-backend/internal/realtime"
	"github.com/yungbote/casehall-backend/internal/realtime/bus"
)

// EventEmitter hands events to notification collaborators. Emit never fails
// the caller; delivery problems are logged and counted.
type EventEmitter interface {
	Emit(ctx context.Context, ev realtime.Event)
}

type BusEmitter struct {
	Bus     bus.Bus
	Log     *logger.Logger
	Metrics *observability.Metrics
}

func (e *BusEmitter) Emit(ctx context.Context, ev realtime.Event) {
	if e == nil || e.Bus == nil {
		return
	}
	status := "ok"
	if err := e.Bus.Publish(ctx, ev); err != nil {
		status = "error"
		if e.Log != nil {
			e.Log.Warn("event publish failed", "event", ev.Event, "channel", ev.Channel, "error", err)
		}
	}
	e.Metrics.IncEventPublished(string(ev.Event), status)
}

package market

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"github.com/predictx/marketd/internal/domain"
)

// publish emits a ledger event on the signal bus: once on the per-topic
// pub/sub channel and once appended to the durable event stream. Events are
// observability-only, so publish failures are logged and swallowed rather
// than failing the already-committed operation.
func (e *Engine) publish(ctx context.Context, ev domain.Event) {
	if e.bus == nil {
		return
	}

	ev.ID = uuid.NewString()
	if ev.At == 0 {
		ev.At = e.now()
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		e.logger.ErrorContext(ctx, "marshal event failed",
			slog.String("topic", ev.Topic),
			slog.String("error", err.Error()),
		)
		return
	}

	if err := e.bus.Publish(ctx, ev.Topic, payload); err != nil {
		e.logger.WarnContext(ctx, "publish event failed",
			slog.String("topic", ev.Topic),
			slog.String("error", err.Error()),
		)
	}
	if err := e.bus.StreamAppend(ctx, domain.EventStream, payload); err != nil {
		e.logger.WarnContext(ctx, "append event to stream failed",
			slog.String("topic", ev.Topic),
			slog.String("error", err.Error()),
		)
	}
}

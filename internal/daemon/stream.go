package daemon

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/piekstra/tirds/internal/stream"
)

// streamLoop writes every received event. Lag is logged and tolerated; the
// loop ends when ctx is cancelled or the broadcaster closes.
func (d *Daemon) streamLoop(ctx context.Context, ww *writeWorker, sub *stream.Subscription) error {
	defer sub.Unsubscribe()
	d.logger.Info("stream loop started")

	for {
		e, err := sub.Recv(ctx)
		switch {
		case err == nil:
			d.ingest(ctx, ww, e)

		case errors.Is(err, stream.ErrLagged):
			var lagged *stream.LaggedError
			if errors.As(err, &lagged) {
				d.counters.streamDropped.Add(lagged.Skipped)
				d.in.StreamDropped(ctx, lagged.Skipped)
				d.logger.Warn("stream receiver lagged", "skipped", lagged.Skipped)
			}

		case errors.Is(err, stream.ErrClosed):
			d.logger.Info("stream channel closed")
			return nil

		default:
			d.logger.Info("stream loop shutting down")
			return nil
		}
	}
}

func (d *Daemon) ingest(ctx context.Context, ww *writeWorker, e stream.Event) {
	d.counters.streamEvents.Add(1)

	rows, err := stream.Rows(e, d.cfg.Stream.TTL, time.Now())
	if err != nil {
		d.logger.Warn("dropping unconvertible stream event", "id", e.ID, "kind", e.Kind, "err", err)
		return
	}
	if err := d.write(ctx, ww, rows); err != nil {
		if ctx.Err() == nil {
			d.logger.Error("failed to write stream event", "id", e.ID, "err", err)
		}
		return
	}
	d.logger.Debug("wrote stream event", "id", e.ID, "rows", len(rows))
}

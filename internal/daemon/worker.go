package daemon

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
)

type writeJob struct {
	ctx   context.Context
	fn    func(ctx context.Context, w Writer) error
	reply chan error
}

// writeWorker is the only goroutine that touches the Writer. Loops hand it
// closures and block on the reply, so writes are serialized without a lock.
type writeWorker struct {
	w      Writer
	logger *slog.Logger
	jobs   chan writeJob
	quit   chan struct{}
	done   chan struct{}
}

func newWriteWorker(w Writer, logger *slog.Logger) *writeWorker {
	return &writeWorker{
		w:      w,
		logger: logger,
		jobs:   make(chan writeJob),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (ww *writeWorker) run() *writeWorker {
	go func() {
		defer close(ww.done)
		for {
			select {
			case <-ww.quit:
				return
			case job := <-ww.jobs:
				job.reply <- ww.exec(job)
			}
		}
	}()
	return ww
}

func (ww *writeWorker) exec(job writeJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			ww.logger.Error("write job panicked", "panic", r)
			err = errors.Newf("write job panicked: %v", r)
		}
	}()
	return job.fn(job.ctx, ww.w)
}

// do runs fn on the worker and returns its error.
func (ww *writeWorker) do(ctx context.Context, fn func(ctx context.Context, w Writer) error) error {
	job := writeJob{ctx: ctx, fn: fn, reply: make(chan error, 1)}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ww.quit:
		return ErrWriterClosed
	case ww.jobs <- job:
	}
	return <-job.reply
}

// stop waits for the job in flight, if any, and ends the worker.
func (ww *writeWorker) stop() {
	select {
	case <-ww.quit:
	default:
		close(ww.quit)
	}
	<-ww.done
}

// Package daemon runs the loader: periodic market refreshes, real-time stream
// ingestion and stale row cleanup, all writing through one Writer.
package daemon

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/piekstra/tirds/internal/config"
	"github.com/piekstra/tirds/internal/indicator"
	"github.com/piekstra/tirds/internal/market"
	"github.com/piekstra/tirds/internal/shared/rate"
	"github.com/piekstra/tirds/internal/stream"
	"github.com/piekstra/tirds/internal/telemetry"
	"github.com/piekstra/tirds/model"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNotIdle      = errors.New("daemon already started")
	ErrWriterClosed = errors.New("write worker stopped")
)

// Writer is the part of store.Writer the daemon needs.
type Writer interface {
	UpsertBatch(ctx context.Context, rows []model.Row) error
	ExpireStale(ctx context.Context) (int64, error)
}

// Deps are the collaborators of a Daemon. Candles and Stream may be nil, which
// disables market refreshes and stream ingestion respectively.
type Deps struct {
	Writer  Writer
	Candles market.CandleSource
	Stream  *stream.Broadcaster
	Meter   metric.MeterProvider
}

type Daemon struct {
	cfg      *config.Loader
	logger   *slog.Logger
	writer   Writer
	candles  market.CandleSource
	events   *stream.Broadcaster
	specs    []indicator.Spec
	limiter  *rate.Limiter
	in       *telemetry.DaemonInstruments
	counters *daemonCounters
	state    atomic.Int32
	runID    string
}

func New(cfg *config.Loader, deps Deps, logger *slog.Logger) (*Daemon, error) {
	if deps.Writer == nil {
		return nil, errors.New("daemon needs a writer")
	}
	in, err := telemetry.NewDaemonInstruments(deps.Meter)
	if err != nil {
		return nil, errors.Wrap(err, "register daemon instruments")
	}

	runID := uuid.NewString()
	return &Daemon{
		cfg:      cfg,
		logger:   logger.With("component", "loader", "run_id", runID),
		writer:   deps.Writer,
		candles:  deps.Candles,
		events:   deps.Stream,
		specs:    indicator.ParseSpecs(cfg.Calculations.Indicators),
		limiter:  rate.NewLimiter(cfg.MarketData.FetchRate),
		in:       in,
		counters: newDaemonCounters(),
		runID:    runID,
	}, nil
}

func (d *Daemon) State() State { return State(d.state.Load()) }

func (d *Daemon) RunID() string { return d.runID }

func (d *Daemon) Metrics() Metrics { return d.counters.snapshot() }

// DaemonMetrics feeds the periodic telemetry logger.
func (d *Daemon) DaemonMetrics() (refreshCycles, refreshFailures, streamEvents, streamDropped, cleanupDeleted, rowsWritten, writeFailures int64) {
	m := d.counters.snapshot()
	return m.RefreshCycles, m.RefreshFailures, m.StreamEvents, m.StreamDropped, m.CleanupDeleted, m.RowsWritten, m.WriteFailures
}

// Run blocks until ctx is cancelled and every loop has returned. It may be
// called once; later calls return ErrNotIdle.
func (d *Daemon) Run(ctx context.Context) error {
	if !d.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return ErrNotIdle
	}
	stopWatch := context.AfterFunc(ctx, func() {
		d.state.CompareAndSwap(int32(StateRunning), int32(StateShuttingDown))
	})
	defer stopWatch()

	d.logger.Info("loader daemon starting",
		"symbols", len(d.cfg.MarketData.AllSymbols()),
		"indicators", len(d.specs),
		"stream", d.streamEnabled(),
	)

	ww := newWriteWorker(d.writer, d.logger).run()

	// subscribe before any loop starts so early events are not lost
	var sub *stream.Subscription
	if d.streamEnabled() {
		sub = d.events.Subscribe(d.cfg.Stream.Buffer)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.refreshLoop(gctx, ww) })
	if sub != nil {
		g.Go(func() error { return d.streamLoop(gctx, ww, sub) })
	}
	g.Go(func() error { return d.cleanupLoop(gctx, ww) })
	err := g.Wait()

	d.state.Store(int32(StateShuttingDown))
	ww.stop()
	d.state.Store(int32(StateStopped))

	d.logger.Info("loader daemon stopped")
	return err
}

func (d *Daemon) streamEnabled() bool {
	return d.cfg.Stream.Enabled && d.events != nil
}

// write commits rows as one batch through the worker and updates counters.
func (d *Daemon) write(ctx context.Context, ww *writeWorker, rows []model.Row) error {
	err := ww.do(ctx, func(ctx context.Context, w Writer) error {
		return w.UpsertBatch(ctx, rows)
	})
	if err != nil {
		d.counters.writeFailures.Add(1)
		d.in.WriteFailure(ctx)
		return err
	}
	d.counters.rowsWritten.Add(int64(len(rows)))
	d.in.RowsWritten(ctx, len(rows))
	return nil
}

package daemon

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/piekstra/tirds/internal/indicator"
	"github.com/piekstra/tirds/internal/market"
	"github.com/piekstra/tirds/model"
)

// refreshLoop runs one cycle immediately and then one per refresh interval.
func (d *Daemon) refreshLoop(ctx context.Context, ww *writeWorker) error {
	if d.candles == nil {
		d.logger.Info("no candle source configured, market refresh disabled")
		return nil
	}

	ticker := time.NewTicker(d.cfg.MarketData.RefreshInterval)
	defer ticker.Stop()

	d.refresh(ctx, ww)
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("refresh loop shutting down")
			return nil
		case <-ticker.C:
			d.refresh(ctx, ww)
		}
	}
}

// refresh writes market and indicator rows for every symbol. A failing symbol
// is logged and counted; the cycle moves on to the next one.
func (d *Daemon) refresh(ctx context.Context, ww *writeWorker) {
	began := time.Now()
	d.counters.refreshCycles.Add(1)

	start, end := market.LookbackWindow(began, d.cfg.MarketData.LookbackDays)
	var rows, failed int
	for _, symbol := range d.cfg.MarketData.AllSymbols() {
		if ctx.Err() != nil {
			return
		}
		n, err := d.refreshSymbol(ctx, ww, symbol, start, end)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			failed++
			d.counters.refreshFailures.Add(1)
			d.logger.Warn("symbol refresh failed", "symbol", symbol, "err", err)
			continue
		}
		rows += n
	}

	d.logger.Info("refresh cycle complete", "rows", rows, "failed_symbols", failed, "elapsed", time.Since(began).String())
}

func (d *Daemon) refreshSymbol(ctx context.Context, ww *writeWorker, symbol string, start, end time.Time) (int, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	candles, err := d.candles.Candles(ctx, symbol, start, end)
	if err != nil {
		return 0, errors.Wrap(err, "read candles")
	}
	if len(candles) == 0 {
		d.logger.Debug("no candles in lookback window", "symbol", symbol)
		return 0, nil
	}

	rows, err := d.symbolRows(symbol, candles, time.Now())
	if err != nil {
		return 0, err
	}
	if err := d.write(ctx, ww, rows); err != nil {
		return 0, errors.Wrap(err, "write rows")
	}
	return len(rows), nil
}

// symbolRows builds the bars, quote and indicator rows of one symbol.
func (d *Daemon) symbolRows(symbol string, candles []market.Candle, now time.Time) ([]model.Row, error) {
	category := model.CategoryMarketData
	if d.cfg.MarketData.IsReference(symbol) {
		category = model.CategoryReferenceSymbol
	}

	rows, err := market.CandlesToRows(symbol, candles, category, d.cfg.MarketData.TTL, now)
	if err != nil {
		return nil, err
	}

	indicators, err := indicator.Rows(symbol, market.Closes(candles), d.specs, d.cfg.Calculations.TTL, now)
	if err != nil {
		// partial results are still written
		d.logger.Debug("some indicators were skipped", "symbol", symbol, "err", err)
	}
	return append(rows, indicators...), nil
}

package main

import (
	"context"
	"sync"
	"time"

	"github.com/piekstra/tirds/internal/daemon"
	"github.com/piekstra/tirds/internal/market"
	"github.com/piekstra/tirds/internal/store"
	"github.com/piekstra/tirds/internal/stream"
	"github.com/piekstra/tirds/internal/telemetry"
	"github.com/spf13/cobra"
)

func newRunCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the ingestion daemon",
		Long: `Open the cache for writing and run the refresh, stream and cleanup loops
until the process receives SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, logger, err := flags.load(cmd.OutOrStdout())
			if err != nil {
				return err
			}

			w, err := store.OpenWriter(ctx, cfg.Cache.SQLitePath, logger, store.WithBusyTimeout(cfg.Cache.BusyTimeout))
			if err != nil {
				return err
			}
			defer func() { _ = w.Close() }()

			mp, shutdownMetrics, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer func() {
				// ctx is already cancelled here; the last export still gets a few seconds
				flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
				defer cancel()
				if err := shutdownMetrics(flushCtx); err != nil {
					logger.Warn("metrics shutdown failed", "error", err)
				}
			}()

			events := stream.NewBroadcaster()
			defer events.Close()

			d, err := daemon.New(cfg, daemon.Deps{
				Writer:  w,
				Candles: market.NewFileStore(cfg.MarketData.DataPath),
				Stream:  events,
				Meter:   mp,
			}, logger)
			if err != nil {
				return err
			}

			logs := telemetry.New(ctx, cfg.Telemetry, logger, nil, nil, d)
			defer func() { _ = logs.Close() }()

			var wg sync.WaitGroup
			defer wg.Wait()
			if cfg.Stream.Enabled && cfg.Stream.URL != "" {
				src := stream.NewWSSource(cfg.Stream.URL, events, logger)
				wg.Go(func() { _ = src.Run(ctx) })
			}

			return d.Run(ctx)
		},
	}
}

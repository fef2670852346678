package main

import (
	"fmt"

	"github.com/piekstra/tirds/internal/store"
	"github.com/spf13/cobra"
)

func newExpireCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "expire",
		Short: "Delete expired rows once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := flags.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			w, err := store.OpenWriter(cmd.Context(), cfg.Cache.SQLitePath, logger, store.WithBusyTimeout(cfg.Cache.BusyTimeout))
			if err != nil {
				return err
			}
			defer func() { _ = w.Close() }()

			deleted, err := w.ExpireStale(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "expired %d rows\n", deleted)
			return err
		},
	}
}

func newStatsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print total and live row counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, logger, err := flags.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			r, err := store.OpenReader(ctx, cfg.Cache.SQLitePath, logger, store.WithBusyTimeout(cfg.Cache.BusyTimeout))
			if err != nil {
				return err
			}
			defer func() { _ = r.Close() }()

			total, err := r.Total(ctx)
			if err != nil {
				return err
			}
			live, err := r.Count(ctx)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "path: %s\ntotal: %d\nlive: %d\nexpired: %d\n", r.Path(), total, live, total-live)
			return err
		},
	}
}

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/piekstra/tirds/internal/config"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		os.Exit(1)
	}
}

type rootFlags struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:   "tirds-loader",
		Short: "Fill the shared TIRDS cache from market data, indicators and event streams",
		Long: `tirds-loader keeps the shared SQLite cache warm for every reader process.

Commands:
  run     - start the ingestion daemon until SIGINT/SIGTERM
  expire  - delete expired rows once and exit
  stats   - print total and live row counts

Examples:
  tirds-loader run --config config/tirds-loader.toml
  tirds-loader expire
  tirds-loader stats --config loader.yaml`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", config.DefaultPath, "Path to a .toml or .yaml loader config")

	root.AddCommand(newRunCmd(flags))
	root.AddCommand(newExpireCmd(flags))
	root.AddCommand(newStatsCmd(flags))
	return root
}

// load reads the config and builds the JSON logger it asks for.
func (f *rootFlags) load(w io.Writer) (*config.Loader, *slog.Logger, error) {
	cfg, err := config.LoadConfig(f.configPath)
	if err != nil {
		return nil, nil, err
	}
	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return nil, nil, err
	}
	return cfg, newLogger(w, level, cfg.Log.Env), nil
}

func newLogger(w io.Writer, level slog.Level, env string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})).With(
		slog.String("service", "tirds-loader"),
		slog.String("env", env),
	)
}

package telemetry

import (
	"context"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/piekstra/tirds/config"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// ShutdownFunc flushes and stops a meter provider.
type ShutdownFunc func(ctx context.Context) error

// NewMeterProvider builds the provider the counters are exported through.
// Exporter "none" (or a nil cfg) yields a noop provider. stdout writes JSON to w.
func NewMeterProvider(ctx context.Context, cfg *config.TelemetryCfg, w io.Writer) (metric.MeterProvider, ShutdownFunc, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	exporter, err := newExporter(ctx, cfg.Exporter(), w)
	if err != nil {
		return nil, nil, err
	}
	if exporter == nil {
		return noop.NewMeterProvider(), func(context.Context) error { return nil }, nil
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.ExportInterval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.ExportInterval))
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)))
	return mp, mp.Shutdown, nil
}

func newExporter(ctx context.Context, name string, w io.Writer) (sdkmetric.Exporter, error) {
	switch name {
	case config.ExporterStdout:
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
		if err != nil {
			return nil, errors.Wrap(err, "create stdout metrics exporter")
		}
		return exp, nil

	case config.ExporterOTLP:
		if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") == "" && os.Getenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT") == "" {
			return nil, errors.WithHint(
				errors.New("otlp metrics endpoint not configured"),
				"set OTEL_EXPORTER_OTLP_ENDPOINT or OTEL_EXPORTER_OTLP_METRICS_ENDPOINT",
			)
		}
		exp, err := otlpmetricgrpc.New(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "create otlp metrics exporter")
		}
		return exp, nil

	default:
		return nil, nil
	}
}

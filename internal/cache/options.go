package cache

import "go.opentelemetry.io/otel/metric"

// QueryHook observes every query the service sends to the persistent store.
// op is one of "get", "get_row", "get_by_symbol", "get_by_prefix"; arg is the key, symbol or prefix.
type QueryHook func(op, arg string)

type options struct {
	hook          QueryHook
	meterProvider metric.MeterProvider
}

type Option func(*options)

func WithQueryHook(hook QueryHook) Option {
	return func(o *options) { o.hook = hook }
}

// WithMeterProvider exports the service counters through OpenTelemetry.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

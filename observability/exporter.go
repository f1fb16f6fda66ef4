package observability

// https://opentelemetry.io/docs/languages/go/exporters/

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/benz9527/xtree/lib/infra"
)

type ExporterKind uint8

const (
	NoopExporter ExporterKind = iota
	ConsoleExporter
	PrometheusExporter
)

func (kind ExporterKind) String() string {
	switch kind {
	case ConsoleExporter:
		return "console"
	case PrometheusExporter:
		return "prometheus"
	default:
	}
	return "none"
}

func ParseExporterKind(kind string) (ExporterKind, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "none", "noop":
		return NoopExporter, nil
	case "console", "stdout":
		return ConsoleExporter, nil
	case "prometheus", "prom":
		return PrometheusExporter, nil
	}
	return NoopExporter, infra.NewErrorStack("[observability] unknown metrics exporter " + kind)
}

type exporterOptions struct {
	interval    time.Duration
	timeout     time.Duration
	consoleOpts []stdoutmetric.Option
	promOpts    []prometheus.Option
}

type ExporterOption func(*exporterOptions)

func WithExportInterval(interval, timeout time.Duration) ExporterOption {
	return func(opts *exporterOptions) {
		if interval > 0 {
			opts.interval = interval
		}
		if timeout > 0 {
			opts.timeout = timeout
		}
	}
}

func WithConsoleOptions(opts ...stdoutmetric.Option) ExporterOption {
	return func(o *exporterOptions) {
		o.consoleOpts = append(o.consoleOpts, opts...)
	}
}

func WithPrometheusOptions(opts ...prometheus.Option) ExporterOption {
	return func(o *exporterOptions) {
		o.promOpts = append(o.promOpts, opts...)
	}
}

// NewMeterProvider builds the meter provider of the exporter kind and
// installs it as the otel global. The returned callback flushes and
// shuts the provider down.
func NewMeterProvider(kind ExporterKind, opts ...ExporterOption) (metric.MeterProvider, func(ctx context.Context) error, error) {
	o := &exporterOptions{
		interval: 10 * time.Second,
		timeout:  5 * time.Second,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	var (
		mp  metric.MeterProvider
		cb  func(ctx context.Context) error
		err error
	)
	switch kind {
	case ConsoleExporter:
		mp, cb, err = newConsoleMetricsExporter(o.interval, o.timeout, o.consoleOpts...)
	case PrometheusExporter:
		mp, cb, err = newPrometheusMetricsExporter(o.promOpts...)
	default:
		mp, cb = noop.NewMeterProvider(), func(context.Context) error { return nil }
	}
	if err != nil {
		return nil, nil, infra.WrapErrorStack(err)
	}
	otel.SetMeterProvider(mp)
	return mp, cb, nil
}

// Serves for test/dev environment.
func newConsoleMetricsExporter(interval, timeout time.Duration, opts ...stdoutmetric.Option) (metric.MeterProvider, func(ctx context.Context) error, error) {
	exporter, err := stdoutmetric.New(opts...)
	if err != nil {
		return nil, nil, err
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewPeriodicReader(
		exporter,
		sdkmetric.WithInterval(interval),
		sdkmetric.WithTimeout(timeout),
	)))
	return mp, mp.Shutdown, nil
}

// Serves for the product environment and fetch stats metrics by HTTP.
func newPrometheusMetricsExporter(opts ...prometheus.Option) (metric.MeterProvider, func(ctx context.Context) error, error) {
	exporter, err := prometheus.New(opts...)
	if err != nil {
		return nil, nil, err
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	return mp, mp.Shutdown, nil
}

package observability

import (
	"context"
	"runtime"
	"strings"
	"sync"

	"github.com/samber/lo"
	otelruntime "go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var (
	once sync.Once
)

type appStats struct {
	ctx        context.Context
	reg        metric.Registration
	goroutines metric.Int64ObservableUpDownCounter
	processes  metric.Int64ObservableUpDownCounter
}

func (stats *appStats) waitForShutdown() {
	if stats == nil || stats.reg == nil {
		return
	}
	go func() {
		<-stats.ctx.Done()
		_ = stats.reg.Unregister()
	}()
}

// InitAppStats registers the process gauges and the go runtime metrics on
// the global meter provider once. The gauges are unregistered when ctx is
// done.
func InitAppStats(ctx context.Context, name string) {
	once.Do(func() {
		builder := &strings.Builder{}
		builder.WriteString("xtree/app/")
		if len(strings.TrimSpace(name)) > 0 {
			builder.WriteString(name)
		} else {
			builder.WriteString("default")
		}
		meter := otel.Meter(
			builder.String(),
			metric.WithInstrumentationVersion(otelruntime.Version()),
		)
		stats := &appStats{
			ctx: ctx,
			goroutines: lo.Must(meter.Int64ObservableUpDownCounter(
				"app.core.goroutines",
				metric.WithDescription(`The application goroutines' info.`),
			)),
			processes: lo.Must(meter.Int64ObservableUpDownCounter(
				"app.core.processes",
				metric.WithDescription(`The application processes' info.`),
			)),
		}
		stats.reg = lo.Must(meter.RegisterCallback(func(_ context.Context, ob metric.Observer) error {
			ob.ObserveInt64(stats.goroutines, int64(runtime.NumGoroutine()))
			ob.ObserveInt64(stats.processes, int64(runtime.GOMAXPROCS(0)))
			return nil
		}, stats.goroutines, stats.processes))
		_ = otelruntime.Start(otelruntime.WithMeterProvider(otel.GetMeterProvider()))
		stats.waitForShutdown()
	})
}

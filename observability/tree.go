package observability

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/benz9527/xtree/lib/infra"
	"github.com/benz9527/xtree/lib/tree"
	"github.com/benz9527/xtree/xlog"
)

const instrumentationName = "github.com/benz9527/xtree/observability"

// InstrumentedTree records every operation of the wrapped tree.
// Unregister stops the size and height observations.
type InstrumentedTree[K infra.OrderedKey] interface {
	tree.Tree[K]
	Unregister() error
}

type instrumentOptions struct {
	mp     metric.MeterProvider
	logger xlog.XLogger
	name   string
}

type InstrumentOption func(*instrumentOptions)

func WithMeterProvider(mp metric.MeterProvider) InstrumentOption {
	return func(opts *instrumentOptions) {
		if mp != nil {
			opts.mp = mp
		}
	}
}

// WithLogger logs misses and rejected inserts at debug level.
func WithLogger(logger xlog.XLogger) InstrumentOption {
	return func(opts *instrumentOptions) {
		opts.logger = logger
	}
}

// WithTreeName is attached as the "tree.name" attribute.
func WithTreeName(name string) InstrumentOption {
	return func(opts *instrumentOptions) {
		opts.name = name
	}
}

type instrumentedTree[K infra.OrderedKey] struct {
	tree.Tree[K]
	logger     xlog.XLogger
	reg        metric.Registration
	inserts    metric.Int64Counter
	duplicates metric.Int64Counter
	deletes    metric.Int64Counter
	searches   metric.Int64Counter
	misses     metric.Int64Counter
	fixups     metric.Int64Counter
	pathLen    metric.Int64Histogram
	size       metric.Int64ObservableGauge
	height     metric.Int64ObservableGauge
	attrs      attribute.Set
	searchOpt  metric.MeasurementOption
	deleteOpt  metric.MeasurementOption
	kindOpt    metric.MeasurementOption
}

// Instrument wraps t with otel instruments created from the meter
// provider, the otel global one by default.
func Instrument[K infra.OrderedKey](t tree.Tree[K], opts ...InstrumentOption) (InstrumentedTree[K], error) {
	if t == nil {
		return nil, infra.NewErrorStack("[observability] nil tree to instrument")
	}
	o := &instrumentOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.mp == nil {
		o.mp = otel.GetMeterProvider()
	}
	meter := o.mp.Meter(instrumentationName)

	kv := []attribute.KeyValue{attribute.String("tree.kind", t.Kind().String())}
	if o.name != "" {
		kv = append(kv, attribute.String("tree.name", o.name))
	}
	it := &instrumentedTree[K]{
		Tree:   t,
		logger: o.logger,
		attrs:  attribute.NewSet(kv...),
	}
	it.kindOpt = metric.WithAttributeSet(it.attrs)
	it.searchOpt = metric.WithAttributeSet(attribute.NewSet(append(kv, attribute.String("op", "search"))...))
	it.deleteOpt = metric.WithAttributeSet(attribute.NewSet(append(kv, attribute.String("op", "delete"))...))

	var err, e error
	it.inserts, e = meter.Int64Counter("xtree.inserts", metric.WithDescription("Keys inserted."))
	err = multierr.Append(err, e)
	it.duplicates, e = meter.Int64Counter("xtree.duplicates", metric.WithDescription("Inserts of a key already present."))
	err = multierr.Append(err, e)
	it.deletes, e = meter.Int64Counter("xtree.deletes", metric.WithDescription("Keys deleted."))
	err = multierr.Append(err, e)
	it.searches, e = meter.Int64Counter("xtree.searches", metric.WithDescription("Key lookups."))
	err = multierr.Append(err, e)
	it.misses, e = meter.Int64Counter("xtree.misses", metric.WithDescription("Lookups and deletes of an absent key."))
	err = multierr.Append(err, e)
	it.fixups, e = meter.Int64Counter("xtree.delete.fixups", metric.WithDescription("Delete fix-up loop iterations."))
	err = multierr.Append(err, e)
	it.pathLen, e = meter.Int64Histogram("xtree.path.length",
		metric.WithDescription("Keys visited by a lookup or a delete."),
		metric.WithExplicitBucketBoundaries(1, 2, 4, 8, 16, 32, 64),
	)
	err = multierr.Append(err, e)
	it.size, e = meter.Int64ObservableGauge("xtree.size", metric.WithDescription("Keys held."))
	err = multierr.Append(err, e)
	it.height, e = meter.Int64ObservableGauge("xtree.height", metric.WithDescription("Nodes on the longest root to leaf path."))
	err = multierr.Append(err, e)
	if err != nil {
		return nil, infra.WrapErrorStack(err)
	}

	it.reg, err = meter.RegisterCallback(func(_ context.Context, ob metric.Observer) error {
		ob.ObserveInt64(it.size, it.Tree.Len(), it.kindOpt)
		ob.ObserveInt64(it.height, int64(it.Tree.Properties().Height), it.kindOpt)
		return nil
	}, it.size, it.height)
	if err != nil {
		return nil, infra.WrapErrorStack(err)
	}
	return it, nil
}

func (it *instrumentedTree[K]) Insert(key K) (tree.InsertStatus, error) {
	status, err := it.Tree.Insert(key)
	ctx := context.Background()
	if status == tree.Inserted {
		it.inserts.Add(ctx, 1, it.kindOpt)
		return status, err
	}
	it.duplicates.Add(ctx, 1, it.kindOpt)
	if it.logger != nil {
		it.logger.Debug("duplicate key", zap.Any("key", key), zap.Stringer("status", status))
	}
	return status, err
}

func (it *instrumentedTree[K]) Delete(key K) (tree.Trace[K], error) {
	trace, err := it.Tree.Delete(key)
	ctx := context.Background()
	it.pathLen.Record(ctx, int64(len(trace.Path)), it.deleteOpt)
	if errors.Is(err, tree.ErrKeyNotFound) {
		it.misses.Add(ctx, 1, it.deleteOpt)
		if it.logger != nil {
			it.logger.Debug("delete miss", zap.Any("key", key), zap.Any("path", trace.Path))
		}
		return trace, err
	}
	it.deletes.Add(ctx, 1, it.kindOpt)
	if n := len(trace.Fixup); n > 0 {
		it.fixups.Add(ctx, int64(n), it.kindOpt)
	}
	return trace, err
}

func (it *instrumentedTree[K]) Search(key K) (tree.Node[K], []K, error) {
	node, path, err := it.Tree.Search(key)
	ctx := context.Background()
	it.searches.Add(ctx, 1, it.kindOpt)
	it.pathLen.Record(ctx, int64(len(path)), it.searchOpt)
	if errors.Is(err, tree.ErrKeyNotFound) {
		it.misses.Add(ctx, 1, it.searchOpt)
		if it.logger != nil {
			it.logger.Debug("search miss", zap.Any("key", key), zap.Any("path", path))
		}
	}
	return node, path, err
}

func (it *instrumentedTree[K]) Contains(key K) bool {
	_, _, err := it.Search(key)
	return err == nil
}

func (it *instrumentedTree[K]) Release() {
	if it.logger != nil {
		it.logger.Info("release tree", zap.Stringer("kind", it.Tree.Kind()), zap.Int64("size", it.Tree.Len()))
	}
	it.Tree.Release()
}

func (it *instrumentedTree[K]) Unregister() error {
	if it.reg == nil {
		return nil
	}
	return it.reg.Unregister()
}

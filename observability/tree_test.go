package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/benz9527/xtree/lib/tree"
	"github.com/benz9527/xtree/xlog"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	rm := metricdata.ResourceMetrics{}
	require.NoError(t, reader.Collect(context.Background(), &rm))
	res := make(map[string]metricdata.Metrics, 16)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			res[m.Name] = m
		}
	}
	return res
}

func sumOf(t *testing.T, m metricdata.Metrics, op string) int64 {
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, m.Name)
	total := int64(0)
	for _, dp := range sum.DataPoints {
		if v, found := dp.Attributes.Value("op"); op != "" && (!found || v.AsString() != op) {
			continue
		}
		total += dp.Value
	}
	return total
}

func gaugeOf(t *testing.T, m metricdata.Metrics) int64 {
	gauge, ok := m.Data.(metricdata.Gauge[int64])
	require.True(t, ok, m.Name)
	require.Len(t, gauge.DataPoints, 1)
	kind, found := gauge.DataPoints[0].Attributes.Value(attribute.Key("tree.kind"))
	require.True(t, found)
	require.NotEmpty(t, kind.AsString())
	return gauge.DataPoints[0].Value
}

func TestInstrumentedTree(t *testing.T) {
	testcases := []struct {
		kind         tree.Kind
		duplicateErr error
	}{
		{tree.BST, nil},
		{tree.AVL, nil},
		{tree.RedBlack, tree.ErrDuplicateKey},
	}
	for _, tc := range testcases {
		t.Run(tc.kind.String(), func(tt *testing.T) {
			reader := sdkmetric.NewManualReader()
			mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
			defer func() { _ = mp.Shutdown(context.Background()) }()

			inner, err := tree.NewTree[int](tc.kind)
			require.NoError(tt, err)
			it, err := Instrument(inner,
				WithMeterProvider(mp),
				WithTreeName("test"),
				WithLogger(xlog.NewXLogger(xlog.WithXLoggerStdErrWriter(), xlog.WithXLoggerLevel(xlog.LogLevelError))),
			)
			require.NoError(tt, err)
			require.Equal(tt, tc.kind, it.Kind())

			for i := 1; i <= 7; i++ {
				status, err := it.Insert(i)
				require.NoError(tt, err)
				require.Equal(tt, tree.Inserted, status)
			}
			_, err = it.Insert(4)
			require.ErrorIs(tt, err, tc.duplicateErr)

			_, path, err := it.Search(7)
			require.NoError(tt, err)
			require.NotEmpty(tt, path)
			_, _, err = it.Search(100)
			require.ErrorIs(tt, err, tree.ErrKeyNotFound)
			require.True(tt, it.Contains(1))

			_, err = it.Delete(1)
			require.NoError(tt, err)
			_, err = it.Delete(1)
			require.ErrorIs(tt, err, tree.ErrKeyNotFound)
			require.NoError(tt, tree.Validate[int](it))

			metrics := collect(tt, reader)
			require.Equal(tt, int64(7), sumOf(tt, metrics["xtree.inserts"], ""))
			require.Equal(tt, int64(1), sumOf(tt, metrics["xtree.duplicates"], ""))
			require.Equal(tt, int64(3), sumOf(tt, metrics["xtree.searches"], ""))
			require.Equal(tt, int64(1), sumOf(tt, metrics["xtree.deletes"], ""))
			require.Equal(tt, int64(1), sumOf(tt, metrics["xtree.misses"], "search"))
			require.Equal(tt, int64(1), sumOf(tt, metrics["xtree.misses"], "delete"))
			require.Equal(tt, int64(6), gaugeOf(tt, metrics["xtree.size"]))
			require.Equal(tt, int64(it.Properties().Height), gaugeOf(tt, metrics["xtree.height"]))

			hist, ok := metrics["xtree.path.length"].Data.(metricdata.Histogram[int64])
			require.True(tt, ok)
			count := uint64(0)
			for _, dp := range hist.DataPoints {
				count += dp.Count
			}
			require.Equal(tt, uint64(5), count)

			it.Release()
			require.Equal(tt, int64(0), it.Len())
			require.Equal(tt, int64(0), gaugeOf(tt, collect(tt, reader)["xtree.size"]))

			require.NoError(tt, it.Unregister())
		})
	}
}

func TestInstrumentNilTree(t *testing.T) {
	_, err := Instrument[int](nil)
	require.Error(t, err)
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/benz9527/xtree/lib/infra"
	"github.com/benz9527/xtree/lib/tree"
	"github.com/benz9527/xtree/observability"
	"github.com/benz9527/xtree/xlog"
)

type config struct {
	kind        tree.Kind
	desc        bool
	level       string
	encoder     string
	metrics     observability.ExporterKind
	metricsAddr string
	script      string
}

func parseFlags(args []string, stderr io.Writer) (*config, error) {
	fs := flag.NewFlagSet("xtree", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		kind    = fs.String("kind", "rbtree", "tree kind: bst, avl or rbtree")
		metrics = fs.String("metrics", "none", "metrics exporter: none, console or prometheus")
		cfg     = &config{}
	)
	fs.BoolVar(&cfg.desc, "desc", false, "keep keys in descending order")
	fs.StringVar(&cfg.level, "log-level", "", "DEBUG, INFO, WARN or ERROR, falls back to XLOG_LVL")
	fs.StringVar(&cfg.encoder, "log-encoder", "plaintext", "json or plaintext")
	fs.StringVar(&cfg.metricsAddr, "metrics-addr", ":9464", "prometheus scrape address")
	fs.StringVar(&cfg.script, "script", "-", "operation script path, - reads stdin")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	var err error
	if cfg.kind, err = tree.ParseKind(*kind); err != nil {
		return nil, infra.WrapErrorStack(err)
	}
	if cfg.metrics, err = observability.ParseExporterKind(*metrics); err != nil {
		return nil, err
	}
	if cfg.level != "" {
		if _, err = xlog.ParseLogLevel(cfg.level); err != nil {
			return nil, err
		}
	}
	if _, err = xlog.ParseEncoder(cfg.encoder); err != nil {
		return nil, err
	}
	return cfg, nil
}

type banner struct{}

func (banner) JSON() string {
	return `{"app":"xtree","about":"ordered set under bst, avl and red-black disciplines"}`
}

func (banner) PlainText() string {
	return "xtree: ordered set under bst, avl and red-black disciplines"
}

func newLogger(lc fx.Lifecycle, cfg *config) (xlog.XLogger, error) {
	enc, err := xlog.ParseEncoder(cfg.encoder)
	if err != nil {
		return nil, err
	}
	opts := []xlog.XLoggerOption{
		xlog.WithXLoggerEncoder(enc),
		xlog.WithXLoggerStdErrWriter(),
		xlog.WithXLoggerContextFieldExtract("script"),
	}
	if cfg.level != "" {
		lvl, err := xlog.ParseLogLevel(cfg.level)
		if err != nil {
			return nil, err
		}
		opts = append(opts, xlog.WithXLoggerLevel(lvl))
	}
	logger := xlog.NewXLogger(opts...)
	logger.Banner(banner{})
	lc.Append(fx.StopHook(func() {
		_ = logger.Sync()
	}))
	return logger, nil
}

func newMeterProvider(lc fx.Lifecycle, cfg *config) (metric.MeterProvider, error) {
	mp, shutdown, err := observability.NewMeterProvider(cfg.metrics)
	if err != nil {
		return nil, err
	}
	statsCtx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			if cfg.metrics != observability.NoopExporter {
				observability.InitAppStats(statsCtx, "xtree")
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			return shutdown(ctx)
		},
	})
	return mp, nil
}

func newTree(lc fx.Lifecycle, cfg *config, mp metric.MeterProvider, logger xlog.XLogger) (tree.Tree[int64], error) {
	var opts []tree.Option
	if cfg.desc {
		opts = append(opts, tree.WithDesc())
	}
	t, err := tree.NewTree[int64](cfg.kind, opts...)
	if err != nil {
		return nil, infra.WrapErrorStack(err)
	}
	it, err := observability.Instrument(t,
		observability.WithMeterProvider(mp),
		observability.WithLogger(logger.Named("tree")),
		observability.WithTreeName("cli"),
	)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(it.Unregister))
	return it, nil
}

func setMaxProcs(lc fx.Lifecycle, logger xlog.XLogger) error {
	undo, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		logger.Logf(zapcore.DebugLevel, format, args...)
	}))
	if err != nil {
		return infra.WrapErrorStack(err)
	}
	lc.Append(fx.StopHook(undo))
	return nil
}

func serveMetrics(lc fx.Lifecycle, cfg *config, logger xlog.XLogger) {
	if cfg.metrics != observability.PrometheusExporter {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              cfg.metricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return infra.WrapErrorStack(err)
			}
			logger.Info("metrics endpoint listening", zap.String("addr", ln.Addr().String()))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error(err, "metrics endpoint stopped")
				}
			}()
			return nil
		},
		OnStop: srv.Shutdown,
	})
}

func openScript(path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, infra.WrapErrorStack(err)
	}
	return f, nil
}

// runReplay replays the script once the app started. The app shuts down
// after the replay unless the prometheus endpoint has to stay up.
func runReplay(lc fx.Lifecycle, shutdowner fx.Shutdowner, cfg *config, t tree.Tree[int64], logger xlog.XLogger) {
	ctx, cancel := context.WithCancel(context.WithValue(context.Background(), "script", cfg.script))
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			rc, err := openScript(cfg.script)
			if err != nil {
				return err
			}
			defer func() { _ = rc.Close() }()
			cmds, err := parseScript(rc)
			if err != nil {
				return err
			}
			logger.InfoContext(ctx, "replay started",
				zap.Stringer("kind", t.Kind()),
				zap.Bool("desc", cfg.desc),
				zap.Int("commands", len(cmds)),
			)
			go func() {
				r := &replayer{tree: t, logger: logger, out: os.Stdout}
				code := 0
				if err := r.replay(ctx, cmds); err != nil {
					logger.ErrorStack(err, "replay failed")
					code = 1
				} else {
					logger.InfoContext(ctx, "replay done", zap.Any("props", t.Properties()))
				}
				if cfg.metrics != observability.PrometheusExporter || code != 0 {
					_ = shutdowner.Shutdown(fx.ExitCode(code))
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

func newApp(cfg *config) fx.Option {
	return fx.Options(
		fx.Supply(cfg),
		fx.Provide(newLogger, newMeterProvider, newTree),
		fx.WithLogger(func(logger xlog.XLogger) fxevent.Logger {
			return xlog.NewFxXLogger(logger)
		}),
		fx.Invoke(setMaxProcs, serveMetrics, runReplay),
	)
}

func main() {
	cfg, err := parseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	fx.New(newApp(cfg)).Run()
}

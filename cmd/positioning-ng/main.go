package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"positioning-ng/internal/clock"
	"positioning-ng/internal/config"
	"positioning-ng/internal/driver"
	"positioning-ng/internal/logging"
	"positioning-ng/internal/metrics"
	"positioning-ng/internal/store"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./positioning.yaml", "Path to YAML config")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	zl, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = zl.Sync() }()
	logger := zl.Sugar()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(reg)
	if err != nil {
		logger.Fatalw("metrics init failed", "error", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	d := deps{
		log:     logger,
		metrics: m,
		clk:     clock.New(nil),
		gnss:    store.NewGNSS(store.WithMetrics(m)),
		sensors: store.NewSensors(store.WithMetrics(m)),
	}
	subscribe(logger.Named("readings"), d.gnss, d.sensors)

	runners, err := buildDrivers(cfg, d)
	if err != nil {
		logger.Fatalw("driver setup failed", "error", err)
	}

	var srv *http.Server
	if cfg.Metrics.Listen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv = &http.Server{Addr: cfg.Metrics.Listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Errorw("metrics server stopped", "error", err)
			}
		}()
	}

	logger.Infow("positioning-ng starting", "gnss", cfg.GNSS.Source, "sensors", cfg.Sensors.Source)
	for _, r := range runners {
		if err := r.Init(); err != nil {
			logger.Errorw("driver init failed", "driver", r.Name(), "error", err)
			continue
		}
		if err := r.Start(ctx); err != nil {
			logger.Errorw("driver start failed", "driver", r.Name(), "error", err)
			continue
		}
		go watch(ctx, r, logger)
	}

	<-ctx.Done()
	logger.Infow("positioning-ng stopping")

	var stopErr error
	for _, r := range runners {
		stopErr = multierr.Append(stopErr, r.Stop())
	}
	if srv != nil {
		sctx, scancel := context.WithTimeout(context.Background(), 2*time.Second)
		stopErr = multierr.Append(stopErr, srv.Shutdown(sctx))
		scancel()
	}
	if stopErr != nil {
		logger.Warnw("shutdown finished with errors", "error", stopErr)
	}
}

// watch reports a worker that ended on its own.
func watch(ctx context.Context, r *driver.Runner, logger *zap.SugaredLogger) {
	select {
	case <-ctx.Done():
	case <-r.Done():
		if err := r.Err(); err != nil {
			logger.Errorw("driver failed", "driver", r.Name(), "error", err)
		}
	}
}

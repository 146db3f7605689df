// Command log-replayer plays a recorded log to the positioning UDP ports,
// one datagram per line, routed by message family.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"positioning-ng/internal/replay"
)

func main() {
	var (
		logPath string
		host    string
		loop    bool
		speed   float64
	)
	flag.StringVar(&logPath, "log", "", "Path to the recorded log file")
	flag.StringVar(&host, "host", "127.0.0.1", "Destination host")
	flag.BoolVar(&loop, "loop", false, "Restart from the top at end of file")
	flag.Float64Var(&speed, "speed", 1.0, "Playback speed factor")
	flag.Parse()

	if logPath == "" {
		log.Fatalf("-log is required")
	}
	zl, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = zl.Sync() }()
	logger := zl.Sugar()

	f, err := os.Open(logPath)
	if err != nil {
		logger.Fatalw("open log failed", "path", logPath, "error", err)
	}
	records, err := replay.NewReader(f).ReadAll()
	_ = f.Close()
	if err != nil {
		logger.Fatalw("read log failed", "path", logPath, "error", err)
	}
	logger.Infow("replaying", "path", logPath, "records", len(records), "host", host, "loop", loop, "speed", speed)

	rt, err := newRouter(host)
	if err != nil {
		logger.Fatalw("udp setup failed", "error", err)
	}
	defer rt.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	p := &replay.Player{Speed: speed, Loop: loop, Log: logger}
	err = p.Play(ctx, records, func(r replay.Record) error {
		if err := rt.Send(r.Line); err != nil {
			logger.Warnw("send failed", "line", r.Line, "error", err)
		}
		return nil
	})
	if err != nil && ctx.Err() == nil {
		logger.Fatalw("replay failed", "error", err)
	}
	logger.Infow("replay finished", "sent", rt.sent, "skipped", rt.skipped)
}

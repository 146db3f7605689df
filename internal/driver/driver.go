// Package driver runs a backend on its own goroutine with a small
// lifecycle: Init opens the resource, Start spawns the worker, Stop
// unblocks and joins it and releases the resource.
package driver

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"positioning-ng/internal/metrics"
)

var (
	ErrNotInitialized = errors.New("driver: not initialized")
	ErrRunning        = errors.New("driver: running")
)

type State int32

const (
	Stopped State = iota
	Starting
	Running
	Stopping
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Backend is the device or socket specific part of a driver.
//
// Run is the worker loop. It returns nil once ctx is done, or an error
// when the input failed for good. Interrupt must make a blocked Run
// return promptly, typically by closing the port or socket.
type Backend interface {
	Open() error
	Run(ctx context.Context) error
	Interrupt() error
	Close() error
}

type Option func(*Runner)

func WithLogger(l *zap.SugaredLogger) Option {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

type Runner struct {
	name    string
	backend Backend
	log     *zap.SugaredLogger
	metrics *metrics.Metrics

	stopMu sync.Mutex // serializes Stop

	mu     sync.Mutex
	state  State
	opened bool
	cancel context.CancelFunc
	done   chan struct{}
	runErr error
}

func New(name string, b Backend, opts ...Option) *Runner {
	r := &Runner{name: name, backend: b, log: zap.NewNop().Sugar()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) Name() string { return r.name }

func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Runner) setStateLocked(s State) {
	r.state = s
	r.metrics.DriverState(r.name, int(s))
}

// Init opens the backend without starting the worker. Calling it again
// on an opened driver is a no-op.
func (r *Runner) Init() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != Stopped {
		return ErrRunning
	}
	if r.opened {
		return nil
	}
	if err := r.backend.Open(); err != nil {
		return fmt.Errorf("%s: open: %w", r.name, err)
	}
	r.opened = true
	r.runErr = nil
	r.log.Infow("driver initialized")
	return nil
}

// Start spawns the worker. It is a no-op while the worker is running.
func (r *Runner) Start(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("%s: ctx is nil", r.name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.state {
	case Starting, Running:
		return nil
	case Stopping:
		return ErrRunning
	}
	if !r.opened {
		return ErrNotInitialized
	}
	r.setStateLocked(Starting)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	r.cancel = cancel
	r.done = done
	go r.work(runCtx, done)

	r.setStateLocked(Running)
	r.log.Infow("driver started")
	return nil
}

func (r *Runner) work(ctx context.Context, done chan struct{}) {
	err := r.backend.Run(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	defer close(done)
	if r.state == Stopping {
		// Stop owns the teardown.
		return
	}
	// The worker ended on its own: input failed or the parent ctx ended.
	r.runErr = err
	if err != nil {
		r.log.Errorw("driver stopped on error", "error", err)
	} else {
		r.log.Infow("driver worker finished")
	}
	if cerr := r.backend.Close(); cerr != nil {
		r.log.Warnw("close failed", "error", cerr)
	}
	r.opened = false
	r.cancel()
	r.cancel = nil
	r.setStateLocked(Stopped)
}

// Done is closed when the current worker has exited. It is nil before the
// first Start.
func (r *Runner) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// Err returns the error the worker ended with, if it ended on its own.
func (r *Runner) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runErr
}

// Stop interrupts and joins the worker and closes the backend. It may be
// called without Start and more than once.
func (r *Runner) Stop() error {
	r.stopMu.Lock()
	defer r.stopMu.Unlock()

	r.mu.Lock()
	if r.state == Stopped {
		opened := r.opened
		r.opened = false
		r.mu.Unlock()
		if opened {
			return r.backend.Close()
		}
		return nil
	}
	r.setStateLocked(Stopping)
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	cancel()
	var err error
	err = multierr.Append(err, r.backend.Interrupt())
	<-done
	err = multierr.Append(err, r.backend.Close())

	r.mu.Lock()
	r.opened = false
	r.cancel = nil
	r.setStateLocked(Stopped)
	r.mu.Unlock()

	r.log.Infow("driver stopped")
	if err != nil {
		return fmt.Errorf("%s: stop: %w", r.name, err)
	}
	return nil
}

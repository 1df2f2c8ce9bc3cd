package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"reelcast/internal/config"
	"reelcast/internal/logging"
	"reelcast/internal/preflight"
	"reelcast/internal/scheduler"
	"reelcast/internal/store"
)

const (
	interruptedReason = "Interrupted by daemon restart"
	stopTimeout       = 30 * time.Second
)

// Daemon owns the scheduling authority lock and the HTTP API.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *store.Store
	svc    Services

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc

	checksMu sync.RWMutex
	checks   []preflight.Result
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	DatabasePath string
	LockFilePath string
	Checks       []preflight.Result
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, st *store.Store, svc Services, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || st == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if svc.Importer == nil || svc.Planner == nil || svc.Processor == nil || svc.Uploads == nil || svc.Scheduler == nil {
		return nil, errors.New("daemon requires every domain service")
	}
	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    st,
		svc:      svc,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the lock, recovers interrupted tasks, starts the API and
// arms the scheduler when autostart is configured.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another reelcast daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	if n, err := d.store.FailInterrupted(d.ctx, interruptedReason); err != nil {
		logging.WarnWithContext(d.logger, "interrupted task recovery failed", "task_recovery_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "tasks left in processing stay there until requeued"),
		)
	} else if n > 0 {
		d.logger.Info("failed interrupted tasks",
			logging.String(logging.FieldEventType, "tasks_interrupted"),
			logging.Int64("count", n),
		)
	}

	d.runChecks(d.ctx)

	if err := d.api.start(d.ctx); err != nil {
		d.cancel()
		_ = d.lock.Unlock()
		d.ctx, d.cancel = nil, nil
		return fmt.Errorf("start api: %w", err)
	}

	if d.cfg.Scheduler.Autostart {
		d.svc.Scheduler.Start(d.ctx)
	}

	d.running.Store(true)
	d.logger.Info("reelcast daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.Bool("scheduler_autostart", d.cfg.Scheduler.Autostart),
	)
	return nil
}

// Stop stops the scheduler and API and releases the lock. An upload in
// flight gets stopTimeout to finish.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	stopCtx, cancelStop := context.WithTimeout(context.Background(), stopTimeout)
	defer cancelStop()
	if err := d.svc.Scheduler.Stop(stopCtx); err != nil && !errors.Is(err, scheduler.ErrNotRunning) {
		logging.WarnWithContext(d.logger, "scheduler did not stop cleanly", "scheduler_stop_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "an upload may have been cut off and left in uploading"),
		)
	}
	d.api.stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "lock_release_failed", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("reelcast daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Addr returns the API listen address once started.
func (d *Daemon) Addr() string {
	return d.api.addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	d.checksMu.RLock()
	checks := append([]preflight.Result(nil), d.checks...)
	d.checksMu.RUnlock()
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
		Checks:       checks,
	}
}

// runContext is the context scheduler timers inherit.
func (d *Daemon) runContext() context.Context {
	if d.ctx != nil {
		return d.ctx
	}
	return context.Background()
}

func (d *Daemon) runChecks(ctx context.Context) {
	results := preflight.RunAll(ctx, d.cfg)
	for _, failed := range preflight.Failed(results) {
		logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
			logging.String("check", failed.Name),
			logging.String("detail", failed.Detail),
			logging.String(logging.FieldImpact, "operations that need this dependency will fail"),
		)
	}
	d.checksMu.Lock()
	d.checks = results
	d.checksMu.Unlock()
}

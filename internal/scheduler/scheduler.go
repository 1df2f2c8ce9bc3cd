package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"reelcast/internal/config"
	"reelcast/internal/logging"
	"reelcast/internal/notifications"
	"reelcast/internal/services"
	"reelcast/internal/store"
	"reelcast/internal/uploads"
)

const (
	msgBusy          = "Upload already in progress"
	msgNoUploads     = "No uploads found. Please manually upload the first episode to start the series."
	msgNotDownloaded = "Episode video not downloaded yet"
)

// ErrNotRunning is returned by Stop when the timer is not active.
var ErrNotRunning = errors.New("scheduler is not running")

// Store is the read surface the run algorithm needs.
type Store interface {
	LatestPublished(ctx context.Context) (*store.PublishedEpisode, error)
	EpisodeBySequence(ctx context.Context, seriesID int64, index int) (*store.Episode, error)
	PublishRecordByEpisode(ctx context.Context, episodeID int64) (*store.PublishRecord, error)
}

// Uploader publishes one episode.
type Uploader interface {
	PublishEpisode(ctx context.Context, series *store.Series, episode *store.Episode, title, description string) (uploads.Outcome, error)
}

// RunResult reports one tick.
type RunResult struct {
	RunID         string        `json:"runId,omitempty"`
	Success       bool          `json:"success"`
	Message       string        `json:"message"`
	EpisodeID     int64         `json:"episodeId,omitempty"`
	SeriesTitle   string        `json:"seriesTitle,omitempty"`
	EpisodeNumber int           `json:"episodeNumber,omitempty"`
	VideoID       string        `json:"videoId,omitempty"`
	URL           string        `json:"url,omitempty"`
	Error         string        `json:"error,omitempty"`
	StartedAt     time.Time     `json:"startedAt"`
	Duration      time.Duration `json:"duration"`
}

// Status describes the timer and the last run.
type Status struct {
	Running   bool       `json:"running"`
	Uploading bool       `json:"uploading"`
	Schedule  string     `json:"schedule"`
	Timezone  string     `json:"timezone"`
	NextRun   *time.Time `json:"nextRun,omitempty"`
	LastRun   *RunResult `json:"lastRun,omitempty"`
}

// Scheduler owns the cron timer and the single-flight flag.
type Scheduler struct {
	store    Store
	uploader Uploader
	notifier notifications.Service
	logger   *slog.Logger
	now      func() time.Time

	expr     string
	location *time.Location
	schedule cron.Schedule

	uploading atomic.Bool

	mu      sync.Mutex
	cron    *cron.Cron
	entry   cron.EntryID
	lastRun *RunResult
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

// WithNotifier sets the notification sink for run errors.
func WithNotifier(notifier notifications.Service) Option {
	return func(s *Scheduler) {
		if notifier != nil {
			s.notifier = notifier
		}
	}
}

// WithClock overrides the clock used for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// New validates the schedule and builds an idle scheduler.
func New(cfg config.Scheduler, st Store, uploader Uploader, opts ...Option) (*Scheduler, error) {
	schedule, err := config.ParseSchedule(cfg.Cron)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "scheduler", "parse", "invalid cron expression", err)
	}
	tz := cfg.Timezone
	if tz == "" {
		tz = "UTC"
	}
	location, err := time.LoadLocation(tz)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "scheduler", "parse", "invalid timezone", err)
	}
	s := &Scheduler{
		store:    st,
		uploader: uploader,
		notifier: notifications.NewService(nil),
		now:      time.Now,
		expr:     cfg.Cron,
		location: location,
		schedule: schedule,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "scheduler")
	return s, nil
}

// Start arms the cron timer. Ticks run with a context derived from ctx
// that survives its cancellation, so an in-flight upload is never cut off.
// Starting a running scheduler is a no-op that returns false.
func (s *Scheduler) Start(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return false
	}
	base := context.WithoutCancel(ctx)
	c := cron.New(cron.WithLocation(s.location))
	s.entry = c.Schedule(s.schedule, cron.FuncJob(func() {
		result := s.Trigger(base)
		s.logger.Debug("scheduled tick finished",
			logging.String(logging.FieldRunID, result.RunID),
			logging.Bool("success", result.Success),
		)
	}))
	c.Start()
	s.cron = c
	s.logger.Info("scheduler started",
		logging.String(logging.FieldEventType, "scheduler_started"),
		logging.String("schedule", s.expr),
		logging.String("timezone", s.location.String()),
	)
	return true
}

// Stop disarms the timer and waits, bounded by ctx, for a tick in flight.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return ErrNotRunning
	}
	done := c.Stop()
	s.logger.Info("scheduler stopped", logging.String(logging.FieldEventType, "scheduler_stopped"))
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status snapshots the scheduler state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	status := Status{
		Running:   s.cron != nil,
		Uploading: s.uploading.Load(),
		Schedule:  s.expr,
		Timezone:  s.location.String(),
	}
	if s.cron != nil {
		if next := s.cron.Entry(s.entry).Next; !next.IsZero() {
			status.NextRun = &next
		}
	}
	if s.lastRun != nil {
		last := *s.lastRun
		status.LastRun = &last
	}
	return status
}

// Trigger runs one tick now. It is identical to a timer tick, including the
// single-flight check.
func (s *Scheduler) Trigger(ctx context.Context) RunResult {
	if !s.uploading.CompareAndSwap(false, true) {
		s.logger.Info("tick skipped; upload in progress",
			logging.String(logging.FieldEventType, "scheduler_tick_skipped"),
		)
		return RunResult{Message: msgBusy, StartedAt: s.now()}
	}
	defer s.uploading.Store(false)

	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, s.logger)
	started := s.now()
	logger.Info("scheduled upload started", logging.String(logging.FieldEventType, "scheduler_run_started"))

	result := s.safeRun(ctx, logger)
	result.RunID = runID
	result.StartedAt = started
	result.Duration = s.now().Sub(started)

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "scheduler_run_finished"),
		logging.Bool("success", result.Success),
		logging.String("message", result.Message),
		logging.Duration("elapsed", result.Duration),
	}
	if result.EpisodeID > 0 {
		attrs = append(attrs, logging.Int64(logging.FieldEpisodeID, result.EpisodeID))
	}
	logger.Info("scheduled upload finished", logging.Args(attrs...)...)

	s.mu.Lock()
	last := result
	s.lastRun = &last
	s.mu.Unlock()
	return result
}

func (s *Scheduler) safeRun(ctx context.Context, logger *slog.Logger) (result RunResult) {
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprint(r)
			logging.ErrorWithContext(logger, "scheduled upload panicked", "scheduler_run_panic",
				logging.String("panic", msg),
				logging.String("stack", string(debug.Stack())),
			)
			result = RunResult{Message: "Upload failed: " + msg, Error: msg}
			s.reportError(ctx, msg)
		}
	}()

	result, err := s.run(ctx, logger)
	if err != nil {
		logging.ErrorWithContext(logger, "scheduled upload failed", "scheduler_run_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "inspect the publish record with reelcast publish status"),
		)
		if result.Message == "" {
			result.Message = "Upload failed: " + err.Error()
		}
		if result.Error == "" {
			result.Error = err.Error()
		}
		s.reportError(ctx, err.Error())
	}
	return result
}

func (s *Scheduler) run(ctx context.Context, logger *slog.Logger) (RunResult, error) {
	latest, err := s.store.LatestPublished(ctx)
	if err != nil {
		return RunResult{}, err
	}
	if latest == nil {
		return RunResult{Message: msgNoUploads}, nil
	}
	series := latest.Series
	logger.Info("latest published episode",
		logging.Int64(logging.FieldSeriesID, series.ID),
		logging.String("series", series.Title),
		logging.Int("episode", latest.Episode.IndexSequence),
	)

	next, err := s.store.EpisodeBySequence(ctx, series.ID, latest.Episode.IndexSequence+1)
	if err != nil {
		return RunResult{}, err
	}
	if next == nil {
		return RunResult{
			Message:       noMoreEpisodes(series.Title),
			EpisodeID:     latest.Episode.ID,
			SeriesTitle:   series.Title,
			EpisodeNumber: latest.Episode.IndexSequence,
		}, nil
	}

	// An out-of-band upload may already cover the candidate; step past it once.
	record, err := s.store.PublishRecordByEpisode(ctx, next.ID)
	if err != nil {
		return RunResult{}, err
	}
	if record != nil && record.Status == store.PublishPublished {
		logger.Info("next episode already published; skipping",
			logging.Int("episode", next.IndexSequence),
		)
		skipped := next
		next, err = s.store.EpisodeBySequence(ctx, series.ID, skipped.IndexSequence+1)
		if err != nil {
			return RunResult{}, err
		}
		if next == nil {
			return RunResult{
				Message:       noMoreEpisodes(series.Title),
				EpisodeID:     skipped.ID,
				SeriesTitle:   series.Title,
				EpisodeNumber: skipped.IndexSequence,
			}, nil
		}
	}

	result := RunResult{
		EpisodeID:     next.ID,
		SeriesTitle:   series.Title,
		EpisodeNumber: next.IndexSequence,
	}
	if next.LocalVideoPath == "" {
		result.Message = msgNotDownloaded
		return result, nil
	}

	out, err := s.uploader.PublishEpisode(ctx, &series, next,
		uploads.EpisodeTitle(next.IndexSequence, series.Title),
		uploads.EpisodeDescription(series.Title, next.IndexSequence, next.Title),
	)
	result.VideoID = out.VideoID
	result.URL = out.URL
	if err != nil {
		// The uploads service has already recorded and announced the failure.
		result.Message = "Upload failed: " + err.Error()
		result.Error = err.Error()
		return result, nil
	}
	result.Success = true
	result.Message = "Episode uploaded successfully"
	return result, nil
}

func (s *Scheduler) reportError(ctx context.Context, msg string) {
	if err := s.notifier.Publish(context.WithoutCancel(ctx), notifications.EventError, notifications.Payload{
		"context": "scheduled upload",
		"error":   msg,
	}); err != nil {
		s.logger.Debug("notification failed", logging.Error(err))
	}
}

func noMoreEpisodes(title string) string {
	return fmt.Sprintf("No more episodes available for series \"%s\". Waiting for new series.", title)
}

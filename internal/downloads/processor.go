package downloads

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"reelcast/internal/logging"
	"reelcast/internal/media"
	"reelcast/internal/notifications"
	"reelcast/internal/services"
	"reelcast/internal/store"
)

const finalizeTimeout = 30 * time.Second

// TaskStore is the queue and metadata surface used by the processor.
type TaskStore interface {
	ClaimNextPending(ctx context.Context) (*store.Task, error)
	CompleteTask(ctx context.Context, id int64) error
	FailTask(ctx context.Context, id int64, errMsg string) error
	HasPendingTasks(ctx context.Context) (bool, error)
	UpdateSeriesLocalCover(ctx context.Context, id int64, path string) error
	UpdateEpisodeLocalPaths(ctx context.Context, id int64, paths store.EpisodePaths) error
}

// Fetcher stores remote media and returns its reference.
type Fetcher interface {
	Fetch(ctx context.Context, req media.FetchRequest) (string, error)
}

// Result reports one processing cycle.
type Result struct {
	Processed bool           `json:"processed"`
	TaskID    int64          `json:"taskId,omitempty"`
	TaskType  store.TaskType `json:"taskType,omitempty"`
	Success   bool           `json:"success"`
	Message   string         `json:"message"`
	Path      string         `json:"path,omitempty"`
	Error     string         `json:"error,omitempty"`
	HasMore   bool           `json:"hasMore"`
}

// DrainResult summarizes a Drain call.
type DrainResult struct {
	Processed int           `json:"processed"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	HasMore   bool          `json:"hasMore"`
	Duration  time.Duration `json:"duration"`
	Results   []Result      `json:"results"`
}

// Processor executes download tasks.
type Processor struct {
	store    TaskStore
	fetcher  Fetcher
	notifier notifications.Service
	logger   *slog.Logger
}

// NewProcessor wires a processor. A nil notifier disables notifications.
func NewProcessor(st TaskStore, fetcher Fetcher, notifier notifications.Service, logger *slog.Logger) *Processor {
	if notifier == nil {
		notifier = notifications.NewService(nil)
	}
	return &Processor{
		store:    st,
		fetcher:  fetcher,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "downloads"),
	}
}

// ProcessNext claims the oldest pending task, executes it and records the
// outcome. An error is returned only when the store itself fails; task
// failures are reported through Result.
func (p *Processor) ProcessNext(ctx context.Context) (Result, error) {
	task, err := p.store.ClaimNextPending(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("claim task: %w", err)
	}
	if task == nil {
		return Result{Success: true, Message: "No pending tasks"}, nil
	}

	ctx = services.WithTaskID(ctx, task.ID)
	if task.EpisodeID > 0 {
		ctx = services.WithEpisodeID(ctx, task.EpisodeID)
	}
	logger := logging.WithContext(ctx, p.logger).With(
		logging.Int64(logging.FieldSeriesID, task.SeriesID),
		logging.String("task_type", string(task.Type)),
	)
	logger.Debug("task claimed", logging.String(logging.FieldEventType, "task_claimed"))

	start := time.Now()
	ref, execErr := p.execute(ctx, task)

	result := Result{
		Processed: true,
		TaskID:    task.ID,
		TaskType:  task.Type,
	}
	if err := p.finalize(ctx, task.ID, execErr); err != nil {
		logging.ErrorWithContext(logger, "task outcome not recorded", "task_finalize_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "task left in processing; run 'reelcast queue status' after restart"),
		)
		return result, fmt.Errorf("finalize task %d: %w", task.ID, err)
	}

	if execErr != nil {
		msg := errorText(execErr)
		result.Message = fmt.Sprintf("Task %d failed: %s", task.ID, msg)
		result.Error = msg
		logging.WarnWithContext(logger, "download task failed", "task_failed",
			logging.String("error", msg),
			logging.String("error_kind", services.Classify(execErr)),
			logging.Duration("elapsed", time.Since(start)),
			logging.String(logging.FieldErrorHint, "requeue the task once the cause is fixed"),
			logging.String(logging.FieldImpact, "media for this task is missing"),
		)
	} else {
		result.Success = true
		result.Path = ref
		result.Message = fmt.Sprintf("Task %d completed", task.ID)
		logger.Info("download task completed",
			logging.String(logging.FieldEventType, "task_completed"),
			logging.String("reference", ref),
			logging.Duration("elapsed", time.Since(start)),
		)
	}

	more, err := p.store.HasPendingTasks(detach(ctx))
	if err != nil {
		logger.Debug("pending check failed", logging.Error(err))
		more = true
	}
	result.HasMore = more
	return result, nil
}

// Drain calls ProcessNext until the queue is empty, limit cycles have run
// (limit <= 0 means no limit) or ctx is cancelled.
func (p *Processor) Drain(ctx context.Context, limit int) (DrainResult, error) {
	start := time.Now()
	var out DrainResult
	for limit <= 0 || out.Processed < limit {
		if err := ctx.Err(); err != nil {
			out.HasMore = true
			out.Duration = time.Since(start)
			return out, err
		}
		res, err := p.ProcessNext(ctx)
		if err != nil {
			out.Duration = time.Since(start)
			return out, err
		}
		if !res.Processed {
			break
		}
		out.Processed++
		if res.Success {
			out.Succeeded++
		} else {
			out.Failed++
		}
		out.Results = append(out.Results, res)
		out.HasMore = res.HasMore
		if !res.HasMore {
			break
		}
	}
	out.Duration = time.Since(start)
	if out.Processed > 0 {
		p.notify(detach(ctx), notifications.EventQueueCompleted, notifications.Payload{
			"processed": out.Processed,
			"failed":    out.Failed,
			"duration":  out.Duration,
		})
	}
	return out, nil
}

func (p *Processor) notify(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if err := p.notifier.Publish(ctx, event, payload); err != nil {
		p.logger.Debug("notification failed", logging.String("event", string(event)), logging.Error(err))
	}
}

func (p *Processor) execute(ctx context.Context, task *store.Task) (string, error) {
	switch task.Type {
	case store.TaskSeriesCover:
		if task.URL == "" || task.Filename == "" {
			return "", services.Mark(services.ErrValidation, errors.New("Missing URL or filename for series cover"))
		}
		ref, err := p.fetch(ctx, task, media.KindImage)
		if err != nil {
			return "", err
		}
		if err := p.store.UpdateSeriesLocalCover(ctx, task.SeriesID, ref); err != nil {
			return "", fmt.Errorf("update series cover: %w", err)
		}
		return ref, nil
	case store.TaskEpisodeCover, store.TaskEpisodeVideo:
		if task.URL == "" || task.Filename == "" || task.EpisodeID <= 0 {
			return "", services.Mark(services.ErrValidation, errors.New("Missing URL, filename, or episode ID"))
		}
		kind := media.KindImage
		if task.Type == store.TaskEpisodeVideo {
			kind = media.KindVideo
		}
		ref, err := p.fetch(ctx, task, kind)
		if err != nil {
			return "", err
		}
		paths := store.EpisodePaths{Cover: ref}
		if kind == media.KindVideo {
			paths = store.EpisodePaths{Video: ref}
		}
		if err := p.store.UpdateEpisodeLocalPaths(ctx, task.EpisodeID, paths); err != nil {
			return "", fmt.Errorf("update episode paths: %w", err)
		}
		return ref, nil
	default:
		return "", services.Mark(services.ErrValidation, fmt.Errorf("Unknown task type: %s", task.Type))
	}
}

func (p *Processor) fetch(ctx context.Context, task *store.Task, kind media.Kind) (string, error) {
	return p.fetcher.Fetch(ctx, media.FetchRequest{
		URL:      task.URL,
		SeriesID: task.SeriesID,
		Filename: task.Filename,
		Kind:     kind,
	})
}

// finalize records the outcome even when ctx has been cancelled so a claimed
// task never stays in processing.
func (p *Processor) finalize(ctx context.Context, id int64, execErr error) error {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()
	if execErr == nil {
		return p.store.CompleteTask(fctx, id)
	}
	return p.store.FailTask(fctx, id, errorText(execErr))
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) {
		return "Download cancelled"
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return "Unknown error"
}

func detach(ctx context.Context) context.Context {
	if ctx.Err() != nil {
		return context.WithoutCancel(ctx)
	}
	return ctx
}

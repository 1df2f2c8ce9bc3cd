package downloads

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"reelcast/internal/catalog"
	"reelcast/internal/logging"
	"reelcast/internal/services"
	"reelcast/internal/store"
	"reelcast/internal/textutil"
)

// StreamResolver resolves playable episode URLs.
type StreamResolver interface {
	FetchStreamURL(ctx context.Context, vid string) (*catalog.Stream, error)
}

// PlanStore is the metadata and queue surface used by the planner.
type PlanStore interface {
	SeriesByID(ctx context.Context, id int64) (*store.Series, error)
	EpisodesBySeries(ctx context.Context, seriesID int64) ([]*store.Episode, error)
	CreateTasks(ctx context.Context, tasks []store.NewTask) (int, error)
}

// PlanOptions narrows a plan. The zero value plans every cover and video.
type PlanOptions struct {
	SkipCovers     bool
	SkipVideos     bool
	FromEpisode    int // inclusive; 0 means the first episode
	ToEpisode      int // inclusive; 0 means the last episode
	SkipDownloaded bool
}

// Plan is an ordered task batch plus the episodes that were left out.
type Plan struct {
	SeriesID int64
	Tasks    []store.NewTask
	Skipped  []string
}

// Planner builds download batches for imported series.
type Planner struct {
	store   PlanStore
	streams StreamResolver
	logger  *slog.Logger
}

// NewPlanner wires a planner.
func NewPlanner(st PlanStore, streams StreamResolver, logger *slog.Logger) *Planner {
	return &Planner{
		store:   st,
		streams: streams,
		logger:  logging.NewComponentLogger(logger, "planner"),
	}
}

// Plan builds the batch for a series: series cover, episode covers, then
// episode videos. Episodes whose stream URL cannot be resolved are skipped
// and listed in Plan.Skipped.
func (p *Planner) Plan(ctx context.Context, seriesID int64, opts PlanOptions) (*Plan, error) {
	series, err := p.store.SeriesByID(ctx, seriesID)
	if err != nil {
		return nil, err
	}
	if series == nil {
		return nil, services.Mark(services.ErrNotFound, fmt.Errorf("Series %d not found", seriesID))
	}
	episodes, err := p.store.EpisodesBySeries(ctx, seriesID)
	if err != nil {
		return nil, err
	}

	base := fileBase(series.Title)
	plan := &Plan{SeriesID: seriesID}

	if !opts.SkipCovers && series.CoverURL != "" && !(opts.SkipDownloaded && series.LocalCoverPath != "") {
		plan.Tasks = append(plan.Tasks, store.NewTask{
			SeriesID: seriesID,
			Type:     store.TaskSeriesCover,
			URL:      series.CoverURL,
			Filename: base + "_cover.jpg",
		})
	}

	selected := make([]*store.Episode, 0, len(episodes))
	for _, ep := range episodes {
		if opts.FromEpisode > 0 && ep.IndexSequence < opts.FromEpisode {
			continue
		}
		if opts.ToEpisode > 0 && ep.IndexSequence > opts.ToEpisode {
			continue
		}
		selected = append(selected, ep)
	}

	if !opts.SkipCovers {
		for _, ep := range selected {
			if ep.CoverURL == "" || (opts.SkipDownloaded && ep.LocalCoverPath != "") {
				continue
			}
			plan.Tasks = append(plan.Tasks, store.NewTask{
				SeriesID:  seriesID,
				EpisodeID: ep.ID,
				Type:      store.TaskEpisodeCover,
				URL:       ep.CoverURL,
				Filename:  fmt.Sprintf("%s_ep%d_cover.jpg", base, ep.IndexSequence),
			})
		}
	}

	if !opts.SkipVideos {
		for _, ep := range selected {
			if opts.SkipDownloaded && ep.LocalVideoPath != "" {
				continue
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			stream, err := p.streams.FetchStreamURL(ctx, ep.CatalogVID)
			if err != nil {
				note := fmt.Sprintf("episode %d: %v", ep.IndexSequence, err)
				plan.Skipped = append(plan.Skipped, note)
				logging.WarnWithContext(p.logger, "stream lookup failed; episode video skipped", "plan_episode_skipped",
					logging.Int64(logging.FieldSeriesID, seriesID),
					logging.Int64(logging.FieldEpisodeID, ep.ID),
					logging.Error(err),
					logging.String(logging.FieldImpact, "episode video not queued"),
					logging.String(logging.FieldErrorHint, "re-run the plan later with --skip-downloaded"),
				)
				continue
			}
			plan.Tasks = append(plan.Tasks, store.NewTask{
				SeriesID:  seriesID,
				EpisodeID: ep.ID,
				Type:      store.TaskEpisodeVideo,
				URL:       stream.URL,
				Filename:  fmt.Sprintf("%s_ep%d.mp4", base, ep.IndexSequence),
			})
		}
	}
	return plan, nil
}

// Enqueue plans a series and stores the batch in one transaction.
func (p *Planner) Enqueue(ctx context.Context, seriesID int64, opts PlanOptions) (*Plan, int, error) {
	plan, err := p.Plan(ctx, seriesID, opts)
	if err != nil {
		return nil, 0, err
	}
	n, err := p.store.CreateTasks(ctx, plan.Tasks)
	if err != nil {
		return plan, 0, err
	}
	p.logger.Info("download batch enqueued",
		logging.String(logging.FieldEventType, "batch_enqueued"),
		logging.Int64(logging.FieldSeriesID, seriesID),
		logging.Int("tasks", n),
		logging.Int("skipped", len(plan.Skipped)),
	)
	return plan, n, nil
}

func fileBase(title string) string {
	base := textutil.SanitizeFileName(title)
	if base == "" || !textutil.IsSafeFileName(base) || strings.HasPrefix(base, ".") {
		return "series"
	}
	return base
}

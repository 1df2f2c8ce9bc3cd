package api

import (
	"time"

	"reelcast/internal/store"
)

// FromSeries converts a store series.
func FromSeries(s *store.Series) Series {
	if s == nil {
		return Series{}
	}
	return Series{
		ID:             s.ID,
		CatalogID:      s.CatalogID,
		Title:          s.Title,
		Intro:          s.Intro,
		CoverURL:       s.CoverURL,
		LocalCoverPath: s.LocalCoverPath,
		EpisodeCount:   s.EpisodeCount,
		CreatedAt:      formatTime(s.CreatedAt),
		UpdatedAt:      formatTime(s.UpdatedAt),
	}
}

// FromSeriesList converts a slice of series.
func FromSeriesList(list []*store.Series) []Series {
	out := make([]Series, 0, len(list))
	for _, s := range list {
		out = append(out, FromSeries(s))
	}
	return out
}

// FromEpisode converts a store episode.
func FromEpisode(e *store.Episode) Episode {
	if e == nil {
		return Episode{}
	}
	return Episode{
		ID:             e.ID,
		SeriesID:       e.SeriesID,
		CatalogVID:     e.CatalogVID,
		Title:          e.Title,
		CoverURL:       e.CoverURL,
		LocalCoverPath: e.LocalCoverPath,
		IndexSequence:  e.IndexSequence,
		Duration:       e.Duration,
		VideoWidth:     e.VideoWidth,
		VideoHeight:    e.VideoHeight,
		LocalVideoPath: e.LocalVideoPath,
	}
}

// FromEpisodes converts episodes, annotating each with its publish status
// when statuses holds one.
func FromEpisodes(list []*store.Episode, statuses map[int64]store.PublishStatus) []Episode {
	out := make([]Episode, 0, len(list))
	for _, e := range list {
		dto := FromEpisode(e)
		if status, ok := statuses[e.ID]; ok {
			dto.PublishStatus = string(status)
		}
		out = append(out, dto)
	}
	return out
}

// FromTask converts a store task.
func FromTask(t *store.Task) Task {
	if t == nil {
		return Task{}
	}
	return Task{
		ID:           t.ID,
		SeriesID:     t.SeriesID,
		EpisodeID:    t.EpisodeID,
		Type:         string(t.Type),
		URL:          t.URL,
		Filename:     t.Filename,
		Status:       string(t.Status),
		ErrorMessage: t.ErrorMessage,
		CreatedAt:    formatTime(t.CreatedAt),
		UpdatedAt:    formatTime(t.UpdatedAt),
	}
}

// FromTasks converts a slice of tasks.
func FromTasks(list []*store.Task) []Task {
	out := make([]Task, 0, len(list))
	for _, t := range list {
		out = append(out, FromTask(t))
	}
	return out
}

// FromTaskStats converts task counts.
func FromTaskStats(s store.TaskStats) TaskStats {
	return TaskStats{
		Total:      s.Total,
		Pending:    s.Pending,
		Processing: s.Processing,
		Completed:  s.Completed,
		Failed:     s.Failed,
	}
}

// FromPublishRecord converts a publish record.
func FromPublishRecord(r *store.PublishRecord) PublishRecord {
	if r == nil {
		return PublishRecord{}
	}
	return PublishRecord{
		ID:           r.ID,
		EpisodeID:    r.EpisodeID,
		Status:       string(r.Status),
		VideoID:      r.VideoID,
		URL:          r.URL,
		ErrorMessage: r.ErrorMessage,
		CreatedAt:    formatTime(r.CreatedAt),
		UpdatedAt:    formatTime(r.UpdatedAt),
	}
}

// FromPublishRecords converts a slice of publish records.
func FromPublishRecords(list []*store.PublishRecord) []PublishRecord {
	out := make([]PublishRecord, 0, len(list))
	for _, r := range list {
		out = append(out, FromPublishRecord(r))
	}
	return out
}

// FromOverview converts store counts.
func FromOverview(o store.Overview) Overview {
	publishes := make(map[string]int, len(o.Publishes))
	for status, count := range o.Publishes {
		publishes[string(status)] = count
	}
	return Overview{
		Series:    o.Series,
		Episodes:  o.Episodes,
		Tasks:     FromTaskStats(o.Tasks),
		Publishes: publishes,
	}
}

// ToNewTasks converts explicit task inputs for a series.
func ToNewTasks(seriesID int64, inputs []TaskInput) []store.NewTask {
	out := make([]store.NewTask, 0, len(inputs))
	for _, in := range inputs {
		out = append(out, store.NewTask{
			SeriesID:  seriesID,
			EpisodeID: in.EpisodeID,
			Type:      store.TaskType(in.Type),
			URL:       in.URL,
			Filename:  in.Filename,
		})
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

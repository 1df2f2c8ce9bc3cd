package daemon

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"reelcast/internal/api"
	"reelcast/internal/catalog"
	"reelcast/internal/downloads"
	"reelcast/internal/logging"
	"reelcast/internal/notifications"
	"reelcast/internal/scheduler"
	"reelcast/internal/store"
)

// handleCatalogSearch lists catalog series: ?offset=&limit=&tag=.
func (s *apiServer) handleCatalogSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	offset, ok := s.queryCount(w, r, "offset")
	if !ok {
		return
	}
	limit, ok := s.queryCount(w, r, "limit")
	if !ok {
		return
	}
	items, err := s.daemon.svc.Catalog.Search(r.Context(), catalog.SearchOptions{
		TagID:  strings.TrimSpace(r.URL.Query().Get("tag")),
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.CatalogSearchResponse{Offset: offset, Items: items})
}

func (s *apiServer) handleSeries(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := s.daemon.store.ListSeries(r.Context())
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.SeriesListResponse{Series: api.FromSeriesList(list)})
	case http.MethodPost:
		var req api.ImportSeriesRequest
		if !s.decode(w, r, &req) {
			return
		}
		extendDeadline(w)
		res, err := s.daemon.svc.Importer.Import(r.Context(), req.SeriesID)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		if notifier := s.daemon.svc.Notifier; notifier != nil {
			_ = notifier.Publish(context.WithoutCancel(r.Context()), notifications.EventSeriesImported, notifications.Payload{
				"title":    res.Series.Title,
				"episodes": res.EpisodeCount,
			})
		}
		s.writeJSON(w, http.StatusCreated, api.ImportSeriesResponse{
			Series:        api.FromSeries(res.Series),
			EpisodeCount:  res.EpisodeCount,
			OriginalTitle: res.OriginalTitle,
			OriginalIntro: res.OriginalIntro,
		})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleSeriesItem(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/api/series/")
	if idStr == "" || strings.Contains(idStr, "/") {
		s.writeError(w, http.StatusNotFound, "series not found")
		return
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		s.writeError(w, http.StatusBadRequest, "invalid series id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.describeSeries(w, r, id)
	case http.MethodDelete:
		deleted, err := s.daemon.store.DeleteSeries(r.Context(), id)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		if !deleted {
			s.writeError(w, http.StatusNotFound, "series not found")
			return
		}
		s.writeJSON(w, http.StatusOK, api.DeleteResponse{Deleted: true})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) describeSeries(w http.ResponseWriter, r *http.Request, id int64) {
	ctx := r.Context()
	st := s.daemon.store
	series, err := st.SeriesByID(ctx, id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if series == nil {
		s.writeError(w, http.StatusNotFound, "series not found")
		return
	}
	episodes, err := st.EpisodesBySeries(ctx, id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	stats, err := st.TaskStats(ctx, id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	statuses := make(map[int64]store.PublishStatus, len(episodes))
	for _, ep := range episodes {
		rec, err := st.PublishRecordByEpisode(ctx, ep.ID)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		if rec != nil {
			statuses[ep.ID] = rec.Status
		}
	}
	s.writeJSON(w, http.StatusOK, api.SeriesDetailResponse{
		Series:   api.FromSeries(series),
		Episodes: api.FromEpisodes(episodes, statuses),
		Tasks:    api.FromTaskStats(stats),
	})
}

func (s *apiServer) handleQueue(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		seriesID, ok := queryInt64(r, "series")
		if !ok {
			s.writeError(w, http.StatusBadRequest, "series query parameter required")
			return
		}
		stats, err := s.daemon.store.TaskStats(r.Context(), seriesID)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		tasks, err := s.daemon.store.ListTasksBySeries(r.Context(), seriesID)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.QueueStatus{
			SeriesID: seriesID,
			Stats:    api.FromTaskStats(stats),
			Tasks:    api.FromTasks(tasks),
		})
	case http.MethodPost:
		s.enqueue(w, r)
	case http.MethodDelete:
		seriesID, ok := queryInt64(r, "series")
		if !ok {
			s.writeError(w, http.StatusBadRequest, "series query parameter required")
			return
		}
		removed, err := s.daemon.store.ClearTasksBySeries(r.Context(), seriesID)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.ClearResponse{Removed: removed})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) enqueue(w http.ResponseWriter, r *http.Request) {
	var req api.EnqueueRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.SeriesID <= 0 {
		s.writeError(w, http.StatusBadRequest, "seriesId required")
		return
	}
	if len(req.Tasks) > 0 {
		count, err := s.daemon.store.CreateTasks(r.Context(), api.ToNewTasks(req.SeriesID, req.Tasks))
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, api.EnqueueResponse{Count: count})
		return
	}

	var opts downloads.PlanOptions
	if req.Plan != nil {
		opts = downloads.PlanOptions{
			SkipCovers:     req.Plan.SkipCovers,
			SkipVideos:     req.Plan.SkipVideos,
			FromEpisode:    req.Plan.FromEpisode,
			ToEpisode:      req.Plan.ToEpisode,
			SkipDownloaded: req.Plan.SkipDownloaded,
		}
	}
	extendDeadline(w)
	plan, count, err := s.daemon.svc.Planner.Enqueue(r.Context(), req.SeriesID, opts)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.EnqueueResponse{Count: count, Skipped: plan.Skipped})
}

func (s *apiServer) handleQueueProcess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	drain := queryFlag(r, "drain")
	limit, ok := s.queryCount(w, r, "limit")
	if !ok {
		return
	}
	extendDeadline(w)
	// Transfers run to completion even if the caller disconnects.
	ctx := context.WithoutCancel(r.Context())
	processor := s.daemon.svc.Processor
	if drain {
		res, err := processor.Drain(ctx, limit)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.ProcessResponse{Drain: &res})
		return
	}
	res, err := processor.ProcessNext(ctx)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ProcessResponse{Result: &res})
}

func (s *apiServer) handleQueueRequeue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req api.RequeueRequest
	if !s.decode(w, r, &req) {
		return
	}
	n, err := s.daemon.store.RequeueFailed(r.Context(), req.SeriesID, req.IDs...)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.RequeueResponse{Requeued: n})
}

func (s *apiServer) handleSchedulerStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, s.daemon.svc.Scheduler.Status())
}

func (s *apiServer) handleSchedulerAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	sched := s.daemon.svc.Scheduler
	logger := logging.WithContext(r.Context(), s.logger)
	switch action := strings.TrimPrefix(r.URL.Path, "/api/scheduler/"); action {
	case "start":
		changed := sched.Start(s.daemon.runContext())
		s.writeJSON(w, http.StatusOK, api.SchedulerActionResponse{Changed: changed, Status: sched.Status()})
	case "stop":
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()
		err := sched.Stop(ctx)
		if err != nil && !errors.Is(err, scheduler.ErrNotRunning) {
			logging.WarnWithContext(logger, "scheduler stop timed out", "scheduler_stop_timeout",
				logging.Error(err),
				logging.String(logging.FieldImpact, "the in-flight upload keeps running"),
			)
		}
		s.writeJSON(w, http.StatusOK, api.SchedulerActionResponse{Changed: err == nil, Status: sched.Status()})
	case "run":
		extendDeadline(w)
		res := sched.Trigger(context.WithoutCancel(r.Context()))
		s.writeJSON(w, http.StatusOK, res)
	default:
		s.writeError(w, http.StatusNotFound, "unknown scheduler action")
	}
}

func (s *apiServer) handlePublish(w http.ResponseWriter, r *http.Request) {
	uploadsSvc := s.daemon.svc.Uploads
	switch r.Method {
	case http.MethodGet:
		if episodeID, ok := queryInt64(r, "episode"); ok {
			status, err := uploadsSvc.Status(r.Context(), episodeID)
			if err != nil {
				s.writeServiceError(w, r, err)
				return
			}
			s.writeJSON(w, http.StatusOK, status)
			return
		}
		var statuses []store.PublishStatus
		for _, value := range r.URL.Query()["status"] {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				statuses = append(statuses, store.PublishStatus(trimmed))
			}
		}
		records, err := s.daemon.store.ListPublishRecords(r.Context(), statuses...)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.PublishListResponse{Records: api.FromPublishRecords(records)})
	case http.MethodPost:
		var req api.PublishRequest
		if !s.decode(w, r, &req) {
			return
		}
		if req.EpisodeID <= 0 {
			s.writeError(w, http.StatusBadRequest, "episodeId required")
			return
		}
		extendDeadline(w)
		out, err := uploadsSvc.UploadEpisode(context.WithoutCancel(r.Context()), req.EpisodeID, req.Title, req.Description)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, out)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

package uploads

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"reelcast/internal/logging"
	"reelcast/internal/notifications"
	"reelcast/internal/publisher"
	"reelcast/internal/services"
	"reelcast/internal/store"
)

const recordTimeout = 30 * time.Second

// Store is the metadata and publish-record surface used by the service.
type Store interface {
	SeriesByID(ctx context.Context, id int64) (*store.Series, error)
	EpisodeByID(ctx context.Context, id int64) (*store.Episode, error)
	CreateOrGetPublishRecord(ctx context.Context, episodeID int64) (int64, error)
	SetPublishStatus(ctx context.Context, id int64, status store.PublishStatus, update store.PublishUpdate) error
	PublishRecordByEpisode(ctx context.Context, episodeID int64) (*store.PublishRecord, error)
}

// Publisher runs the remote upload protocol.
type Publisher interface {
	Publish(ctx context.Context, req publisher.Request) (publisher.Result, error)
	FallbackURL(videoID string) string
}

// Resolver maps a stored media reference to a local path.
type Resolver interface {
	Resolve(ref string) (string, error)
}

// Outcome reports one publish attempt.
type Outcome struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	EpisodeID     int64  `json:"episodeId,omitempty"`
	SeriesTitle   string `json:"seriesTitle,omitempty"`
	EpisodeNumber int    `json:"episodeNumber,omitempty"`
	VideoID       string `json:"videoId,omitempty"`
	URL           string `json:"url,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Status is the publish state of one episode.
type Status struct {
	Uploaded bool   `json:"uploaded"`
	Status   string `json:"status"`
	URL      string `json:"url,omitempty"`
	VideoID  string `json:"videoId,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Service publishes episodes and tracks their records.
type Service struct {
	store     Store
	publisher Publisher
	media     Resolver
	notifier  notifications.Service
	logger    *slog.Logger
}

// NewService wires the publish flow.
func NewService(st Store, pub Publisher, media Resolver, notifier notifications.Service, logger *slog.Logger) *Service {
	if notifier == nil {
		notifier = notifications.NewService(nil)
	}
	return &Service{
		store:     st,
		publisher: pub,
		media:     media,
		notifier:  notifier,
		logger:    logging.NewComponentLogger(logger, "uploads"),
	}
}

// EpisodeTitle is the generated platform title for episode n.
func EpisodeTitle(n int, seriesTitle string) string {
	return fmt.Sprintf("EPS %d - %s", n, seriesTitle)
}

// EpisodeDescription is the generated platform description for an episode.
func EpisodeDescription(seriesTitle string, n int, episodeTitle string) string {
	return fmt.Sprintf("%s Episode %d: %s", seriesTitle, n, episodeTitle)
}

// PublishEpisode uploads the episode's local video and records the result.
// The returned error is the publish failure, already written to the record.
func (s *Service) PublishEpisode(ctx context.Context, series *store.Series, episode *store.Episode, title, description string) (Outcome, error) {
	if series == nil || episode == nil {
		return Outcome{Message: "Episode not found"}, services.Mark(services.ErrValidation, errors.New("Episode not found"))
	}
	ctx = services.WithEpisodeID(ctx, episode.ID)
	logger := logging.WithContext(ctx, s.logger).With(
		logging.Int64(logging.FieldSeriesID, series.ID),
		logging.Int("episode", episode.IndexSequence),
	)
	out := Outcome{
		EpisodeID:     episode.ID,
		SeriesTitle:   series.Title,
		EpisodeNumber: episode.IndexSequence,
	}

	localPath, err := s.media.Resolve(episode.LocalVideoPath)
	if err != nil {
		out.Message = "Episode video not downloaded yet"
		out.Error = err.Error()
		return out, services.Mark(services.ErrValidation, err)
	}

	recordID, err := s.store.CreateOrGetPublishRecord(ctx, episode.ID)
	if err != nil {
		out.Message = "Upload failed: " + err.Error()
		out.Error = err.Error()
		return out, err
	}
	if err := s.store.SetPublishStatus(ctx, recordID, store.PublishUploading, store.PublishUpdate{}); err != nil {
		out.Message = "Upload failed: " + err.Error()
		out.Error = err.Error()
		return out, err
	}

	logger.Info("publishing episode",
		logging.String(logging.FieldEventType, "publish_started"),
		logging.String("title", title),
		logging.String("file", localPath),
	)
	started := time.Now()
	res, pubErr := s.publisher.Publish(ctx, publisher.Request{
		FilePath:    localPath,
		FileName:    path.Base(episode.LocalVideoPath),
		Title:       title,
		Description: description,
	})

	// The record must leave "uploading" even when the caller has gone away.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	if pubErr != nil {
		msg := pubErr.Error()
		if err := s.store.SetPublishStatus(recordCtx, recordID, store.PublishFailed, store.PublishUpdate{VideoID: res.VideoID, Error: msg}); err != nil {
			logging.ErrorWithContext(logger, "record publish failure", "publish_record_failed", logging.Error(err))
		}
		logging.WarnWithContext(logger, "publish failed", "publish_failed",
			logging.Error(pubErr),
			logging.String(logging.FieldErrorHint, "check the publisher cookie and retry with reelcast publish upload"),
			logging.String(logging.FieldImpact, "episode stays unpublished; the scheduler will not advance past it"),
		)
		s.notify(recordCtx, notifications.EventPublishFailed, notifications.Payload{
			"episode": episode.IndexSequence,
			"series":  series.Title,
			"error":   msg,
		})
		out.Message = "Upload failed: " + msg
		out.VideoID = res.VideoID
		out.Error = msg
		return out, pubErr
	}

	publicURL := strings.TrimSpace(res.URL)
	if publicURL == "" {
		publicURL = s.publisher.FallbackURL(res.VideoID)
	}
	if err := s.store.SetPublishStatus(recordCtx, recordID, store.PublishPublished, store.PublishUpdate{VideoID: res.VideoID, URL: publicURL}); err != nil {
		out.Message = "Upload failed: " + err.Error()
		out.VideoID = res.VideoID
		out.URL = publicURL
		out.Error = err.Error()
		return out, err
	}
	logger.Info("episode published",
		logging.String(logging.FieldEventType, "publish_completed"),
		logging.String("video_id", res.VideoID),
		logging.String("url", publicURL),
		logging.Duration("elapsed", time.Since(started)),
	)
	s.notify(recordCtx, notifications.EventEpisodePublished, notifications.Payload{
		"episode": episode.IndexSequence,
		"series":  series.Title,
		"url":     publicURL,
	})

	out.Success = true
	out.Message = "Episode uploaded successfully"
	out.VideoID = res.VideoID
	out.URL = publicURL
	return out, nil
}

// UploadEpisode publishes an episode by id. Empty title and description
// default to the generated forms.
func (s *Service) UploadEpisode(ctx context.Context, episodeID int64, title, description string) (Outcome, error) {
	existing, err := s.store.PublishRecordByEpisode(ctx, episodeID)
	if err != nil {
		return Outcome{}, err
	}
	if existing != nil && existing.Status == store.PublishPublished {
		return Outcome{
			Success:   true,
			Message:   "Video already published",
			EpisodeID: episodeID,
			VideoID:   existing.VideoID,
			URL:       existing.URL,
		}, nil
	}

	episode, err := s.store.EpisodeByID(ctx, episodeID)
	if err != nil {
		return Outcome{}, err
	}
	if episode == nil {
		return Outcome{Message: "Episode not found", EpisodeID: episodeID},
			services.Mark(services.ErrNotFound, errors.New("Episode not found"))
	}
	if strings.TrimSpace(episode.LocalVideoPath) == "" {
		return Outcome{Message: "Video not downloaded yet", EpisodeID: episodeID},
			services.Mark(services.ErrValidation, errors.New("Video not downloaded yet"))
	}
	series, err := s.store.SeriesByID(ctx, episode.SeriesID)
	if err != nil {
		return Outcome{}, err
	}
	if series == nil {
		return Outcome{Message: "Episode not found", EpisodeID: episodeID},
			services.Mark(services.ErrNotFound, fmt.Errorf("Series %d not found", episode.SeriesID))
	}

	if strings.TrimSpace(title) == "" {
		title = EpisodeTitle(episode.IndexSequence, series.Title)
	}
	if strings.TrimSpace(description) == "" {
		description = EpisodeDescription(series.Title, episode.IndexSequence, episode.Title)
	}
	return s.PublishEpisode(ctx, series, episode, title, description)
}

// Status reports the publish state of an episode. Episodes without a record
// report status "not_uploaded".
func (s *Service) Status(ctx context.Context, episodeID int64) (Status, error) {
	rec, err := s.store.PublishRecordByEpisode(ctx, episodeID)
	if err != nil {
		return Status{}, err
	}
	if rec == nil {
		return Status{Status: "not_uploaded"}, nil
	}
	return Status{
		Uploaded: rec.Status == store.PublishPublished,
		Status:   string(rec.Status),
		URL:      rec.URL,
		VideoID:  rec.VideoID,
		Error:    rec.ErrorMessage,
	}, nil
}

func (s *Service) notify(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if err := s.notifier.Publish(ctx, event, payload); err != nil {
		s.logger.Debug("notification failed", logging.String("event", string(event)), logging.Error(err))
	}
}

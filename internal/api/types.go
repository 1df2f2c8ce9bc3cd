package api

import (
	"reelcast/internal/catalog"
	"reelcast/internal/downloads"
	"reelcast/internal/preflight"
	"reelcast/internal/scheduler"
	"reelcast/internal/uploads"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Series describes a catalog series.
type Series struct {
	ID             int64  `json:"id"`
	CatalogID      string `json:"catalogId"`
	Title          string `json:"title"`
	Intro          string `json:"intro"`
	CoverURL       string `json:"coverUrl"`
	LocalCoverPath string `json:"localCoverPath,omitempty"`
	EpisodeCount   int    `json:"episodeCount"`
	CreatedAt      string `json:"createdAt,omitempty"`
	UpdatedAt      string `json:"updatedAt,omitempty"`
}

// Episode describes one episode of a series.
type Episode struct {
	ID             int64  `json:"id"`
	SeriesID       int64  `json:"seriesId"`
	CatalogVID     string `json:"catalogVid"`
	Title          string `json:"title"`
	CoverURL       string `json:"coverUrl"`
	LocalCoverPath string `json:"localCoverPath,omitempty"`
	IndexSequence  int    `json:"indexSequence"`
	Duration       int    `json:"duration"`
	VideoWidth     int    `json:"videoWidth"`
	VideoHeight    int    `json:"videoHeight"`
	LocalVideoPath string `json:"localVideoPath,omitempty"`
	PublishStatus  string `json:"publishStatus,omitempty"`
}

// Task describes a download task.
type Task struct {
	ID           int64  `json:"id"`
	SeriesID     int64  `json:"seriesId"`
	EpisodeID    int64  `json:"episodeId,omitempty"`
	Type         string `json:"type"`
	URL          string `json:"url"`
	Filename     string `json:"filename"`
	Status       string `json:"status"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	CreatedAt    string `json:"createdAt,omitempty"`
	UpdatedAt    string `json:"updatedAt,omitempty"`
}

// TaskStats counts tasks by status.
type TaskStats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

// PublishRecord describes the remote upload state of an episode.
type PublishRecord struct {
	ID           int64  `json:"id"`
	EpisodeID    int64  `json:"episodeId"`
	Status       string `json:"status"`
	VideoID      string `json:"videoId,omitempty"`
	URL          string `json:"url,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	CreatedAt    string `json:"createdAt,omitempty"`
	UpdatedAt    string `json:"updatedAt,omitempty"`
}

// Overview aggregates store counts.
type Overview struct {
	Series    int            `json:"series"`
	Episodes  int            `json:"episodes"`
	Tasks     TaskStats      `json:"tasks"`
	Publishes map[string]int `json:"publishes"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	DatabasePath string             `json:"databasePath"`
	LockFilePath string             `json:"lockFilePath"`
	Overview     Overview           `json:"overview"`
	Scheduler    scheduler.Status   `json:"scheduler"`
	Checks       []preflight.Result `json:"checks"`
}

// ImportSeriesRequest asks the daemon to import a catalog series.
type ImportSeriesRequest struct {
	SeriesID string `json:"seriesId"`
}

// ImportSeriesResponse reports an import.
type ImportSeriesResponse struct {
	Series        Series `json:"series"`
	EpisodeCount  int    `json:"episodeCount"`
	OriginalTitle string `json:"originalTitle"`
	OriginalIntro string `json:"originalIntro"`
}

// SeriesListResponse wraps all stored series.
type SeriesListResponse struct {
	Series []Series `json:"series"`
}

// CatalogSearchResponse lists catalog series that can be imported.
type CatalogSearchResponse struct {
	Offset int                     `json:"offset"`
	Items  []catalog.SeriesSummary `json:"items"`
}

// SeriesDetailResponse carries a series with its episodes and task counts.
type SeriesDetailResponse struct {
	Series   Series    `json:"series"`
	Episodes []Episode `json:"episodes"`
	Tasks    TaskStats `json:"tasks"`
}

// DeleteResponse reports whether a row was removed.
type DeleteResponse struct {
	Deleted bool `json:"deleted"`
}

// TaskInput is one explicitly enqueued task.
type TaskInput struct {
	Type      string `json:"type"`
	URL       string `json:"url"`
	Filename  string `json:"filename"`
	EpisodeID int64  `json:"episodeId,omitempty"`
}

// PlanOptions selects the tasks the daemon builds for a series.
type PlanOptions struct {
	SkipCovers     bool `json:"skipCovers,omitempty"`
	SkipVideos     bool `json:"skipVideos,omitempty"`
	FromEpisode    int  `json:"fromEpisode,omitempty"`
	ToEpisode      int  `json:"toEpisode,omitempty"`
	SkipDownloaded bool `json:"skipDownloaded,omitempty"`
}

// EnqueueRequest adds tasks for a series. When Tasks is empty the daemon
// plans the batch from Plan.
type EnqueueRequest struct {
	SeriesID int64        `json:"seriesId"`
	Tasks    []TaskInput  `json:"tasks,omitempty"`
	Plan     *PlanOptions `json:"plan,omitempty"`
}

// EnqueueResponse reports how many tasks were created.
type EnqueueResponse struct {
	Count   int      `json:"count"`
	Skipped []string `json:"skipped,omitempty"`
}

// QueueStatus is the queue view of one series.
type QueueStatus struct {
	SeriesID int64     `json:"seriesId"`
	Stats    TaskStats `json:"stats"`
	Tasks    []Task    `json:"tasks"`
}

// ClearResponse reports removed tasks.
type ClearResponse struct {
	Removed int64 `json:"removed"`
}

// RequeueRequest resets failed tasks of a series, optionally a subset.
type RequeueRequest struct {
	SeriesID int64   `json:"seriesId"`
	IDs      []int64 `json:"ids,omitempty"`
}

// RequeueResponse reports how many tasks returned to pending.
type RequeueResponse struct {
	Requeued int64 `json:"requeued"`
}

// ProcessResponse carries one processing cycle, or a drain summary.
type ProcessResponse struct {
	Result *downloads.Result      `json:"result,omitempty"`
	Drain  *downloads.DrainResult `json:"drain,omitempty"`
}

// PublishRequest asks for a manual publish of an episode.
type PublishRequest struct {
	EpisodeID   int64  `json:"episodeId"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// PublishResponse reports a manual publish.
type PublishResponse = uploads.Outcome

// PublishStatusResponse is the publish state of one episode.
type PublishStatusResponse = uploads.Status

// PublishListResponse wraps publish records.
type PublishListResponse struct {
	Records []PublishRecord `json:"records"`
}

// SchedulerActionResponse reports a start or stop request.
type SchedulerActionResponse struct {
	Changed bool             `json:"changed"`
	Status  scheduler.Status `json:"status"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

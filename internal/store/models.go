package store

import "time"

// TaskType identifies what a download task fetches.
type TaskType string

const (
	TaskSeriesCover  TaskType = "series_cover"
	TaskEpisodeCover TaskType = "episode_cover"
	TaskEpisodeVideo TaskType = "episode_video"
)

// Valid reports whether t is a known task type.
func (t TaskType) Valid() bool {
	switch t {
	case TaskSeriesCover, TaskEpisodeCover, TaskEpisodeVideo:
		return true
	default:
		return false
	}
}

// TaskStatus is the lifecycle state of a download task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskProcessing TaskStatus = "processing"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

// Task is one durable download job.
type Task struct {
	ID           int64
	SeriesID     int64
	EpisodeID    int64 // 0 when the task is not tied to an episode
	Type         TaskType
	URL          string
	Filename     string
	Status       TaskStatus
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewTask describes a task to enqueue. Tasks always start pending.
type NewTask struct {
	SeriesID  int64
	EpisodeID int64
	Type      TaskType
	URL       string
	Filename  string
}

// TaskStats counts tasks by status.
type TaskStats struct {
	Total      int
	Pending    int
	Processing int
	Completed  int
	Failed     int
}

// PublishStatus is the lifecycle state of a publish record.
type PublishStatus string

const (
	PublishPending   PublishStatus = "pending"
	PublishUploading PublishStatus = "uploading"
	PublishPublished PublishStatus = "published"
	PublishFailed    PublishStatus = "failed"
)

// PublishRecord tracks the remote upload of one episode.
type PublishRecord struct {
	ID           int64
	EpisodeID    int64
	Status       PublishStatus
	VideoID      string
	URL          string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublishUpdate carries the optional fields written alongside a status change.
// Empty VideoID and URL keep the stored values; Error always overwrites.
type PublishUpdate struct {
	VideoID string
	URL     string
	Error   string
}

// PublishedEpisode is a published record joined to its episode and series.
type PublishedEpisode struct {
	Record  PublishRecord
	Episode Episode
	Series  Series
}

// Series is a catalog series with its local cover.
type Series struct {
	ID             int64
	CatalogID      string
	Title          string
	Intro          string
	CoverURL       string
	LocalCoverPath string
	EpisodeCount   int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Episode is one episode of a series.
type Episode struct {
	ID             int64
	SeriesID       int64
	CatalogVID     string
	Title          string
	CoverURL       string
	LocalCoverPath string
	IndexSequence  int
	Duration       int
	VideoWidth     int
	VideoHeight    int
	LocalVideoPath string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// EpisodePaths holds local media references; empty fields are left unchanged.
type EpisodePaths struct {
	Cover string
	Video string
}

// Overview aggregates counts for status output.
type Overview struct {
	Series    int
	Episodes  int
	Tasks     TaskStats
	Publishes map[PublishStatus]int
}

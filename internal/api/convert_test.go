package api

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"reelcast/internal/store"
)

func TestFromTaskFormatsTimestamps(t *testing.T) {
	created := time.Date(2026, 3, 4, 5, 6, 7, 890_000_000, time.FixedZone("WIB", 7*3600))
	dto := FromTask(&store.Task{
		ID:        4,
		SeriesID:  2,
		Type:      store.TaskEpisodeVideo,
		Status:    store.TaskFailed,
		CreatedAt: created,
	})
	if dto.CreatedAt != "2026-03-03T22:06:07.890Z" {
		t.Fatalf("unexpected created at %q", dto.CreatedAt)
	}
	if dto.UpdatedAt != "" {
		t.Fatalf("zero time should be omitted, got %q", dto.UpdatedAt)
	}
	if dto.Type != "episode_video" || dto.Status != "failed" {
		t.Fatalf("unexpected enums %+v", dto)
	}
}

func TestFromEpisodesAnnotatesPublishStatus(t *testing.T) {
	episodes := []*store.Episode{{ID: 1, IndexSequence: 1}, {ID: 2, IndexSequence: 2}}
	out := FromEpisodes(episodes, map[int64]store.PublishStatus{1: store.PublishPublished})
	if out[0].PublishStatus != "published" || out[1].PublishStatus != "" {
		t.Fatalf("unexpected statuses %+v", out)
	}
	data, err := json.Marshal(out[1])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "publishStatus") {
		t.Fatalf("empty publish status should be omitted: %s", data)
	}
}

func TestFromOverviewStringifiesStatuses(t *testing.T) {
	out := FromOverview(store.Overview{
		Series:    1,
		Tasks:     store.TaskStats{Total: 3, Pending: 2, Failed: 1},
		Publishes: map[store.PublishStatus]int{store.PublishFailed: 2},
	})
	if out.Publishes["failed"] != 2 || out.Tasks.Pending != 2 {
		t.Fatalf("unexpected overview %+v", out)
	}
}

func TestToNewTasks(t *testing.T) {
	tasks := ToNewTasks(9, []TaskInput{{Type: "series_cover", URL: "https://x/c.jpg", Filename: "c.jpg"}})
	if len(tasks) != 1 || tasks[0].SeriesID != 9 || tasks[0].Type != store.TaskSeriesCover {
		t.Fatalf("unexpected tasks %+v", tasks)
	}
}

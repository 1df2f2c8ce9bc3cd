package testsupport

import (
	"context"
	"fmt"
	"testing"

	"reelcast/internal/config"
	"reelcast/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()
	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

// SeedSeries saves a series with episodeCount sequential episodes.
func SeedSeries(t testing.TB, st *store.Store, catalogID, title string, episodeCount int) (*store.Series, []*store.Episode) {
	t.Helper()
	ctx := context.Background()
	series, err := st.SaveSeries(ctx, store.Series{
		CatalogID:    catalogID,
		Title:        title,
		Intro:        title + " intro",
		CoverURL:     "https://img.example.com/" + catalogID + ".jpg",
		EpisodeCount: episodeCount,
	})
	if err != nil {
		t.Fatalf("SaveSeries: %v", err)
	}
	episodes := make([]*store.Episode, 0, episodeCount)
	for i := 1; i <= episodeCount; i++ {
		ep, err := st.SaveEpisode(ctx, store.Episode{
			SeriesID:      series.ID,
			CatalogVID:    fmt.Sprintf("%s-v%d", catalogID, i),
			Title:         fmt.Sprintf("Chapter %d", i),
			CoverURL:      fmt.Sprintf("https://img.example.com/%s-%d.jpg", catalogID, i),
			IndexSequence: i,
			Duration:      60 * i,
		})
		if err != nil {
			t.Fatalf("SaveEpisode %d: %v", i, err)
		}
		episodes = append(episodes, ep)
	}
	return series, episodes
}

// MarkDownloaded records a local video reference for an episode.
func MarkDownloaded(t testing.TB, st *store.Store, episodeID int64, ref string) {
	t.Helper()
	if err := st.UpdateEpisodeLocalPaths(context.Background(), episodeID, store.EpisodePaths{Video: ref}); err != nil {
		t.Fatalf("UpdateEpisodeLocalPaths: %v", err)
	}
}

package store_test

import (
	"context"
	"testing"
	"time"

	"reelcast/internal/store"
	"reelcast/internal/testsupport"
)

func TestCreateOrGetPublishRecordIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	_, eps := testsupport.SeedSeries(t, st, "s", "S", 1)

	first, err := st.CreateOrGetPublishRecord(ctx, eps[0].ID)
	if err != nil {
		t.Fatalf("CreateOrGetPublishRecord: %v", err)
	}
	second, err := st.CreateOrGetPublishRecord(ctx, eps[0].ID)
	if err != nil {
		t.Fatalf("CreateOrGetPublishRecord: %v", err)
	}
	if first != second {
		t.Fatalf("expected same record id, got %d and %d", first, second)
	}
	records, err := st.ListPublishRecords(ctx)
	if err != nil || len(records) != 1 {
		t.Fatalf("expected one record, got %d err=%v", len(records), err)
	}
	if records[0].Status != store.PublishPending {
		t.Fatalf("expected pending status, got %s", records[0].Status)
	}
}

func TestSetPublishStatusLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	_, eps := testsupport.SeedSeries(t, st, "s", "S", 1)

	id, _ := st.CreateOrGetPublishRecord(ctx, eps[0].ID)
	if err := st.SetPublishStatus(ctx, id, store.PublishFailed, store.PublishUpdate{Error: "No thumbnails available"}); err != nil {
		t.Fatalf("SetPublishStatus failed: %v", err)
	}
	rec, _ := st.PublishRecordByEpisode(ctx, eps[0].ID)
	if rec.Status != store.PublishFailed || rec.ErrorMessage != "No thumbnails available" {
		t.Fatalf("unexpected failed record: %#v", rec)
	}

	if err := st.SetPublishStatus(ctx, id, store.PublishUploading, store.PublishUpdate{}); err != nil {
		t.Fatalf("SetPublishStatus uploading: %v", err)
	}
	rec, _ = st.PublishRecordByEpisode(ctx, eps[0].ID)
	if rec.Status != store.PublishUploading || rec.ErrorMessage != "" {
		t.Fatalf("expected uploading with cleared error, got %#v", rec)
	}

	if err := st.SetPublishStatus(ctx, id, store.PublishPublished, store.PublishUpdate{VideoID: "v123", URL: "https://rumble.com/v123"}); err != nil {
		t.Fatalf("SetPublishStatus published: %v", err)
	}
	rec, _ = st.PublishRecordByEpisode(ctx, eps[0].ID)
	if rec.Status != store.PublishPublished || rec.VideoID != "v123" || rec.URL != "https://rumble.com/v123" {
		t.Fatalf("unexpected published record: %#v", rec)
	}

	if err := st.SetPublishStatus(ctx, id+100, store.PublishFailed, store.PublishUpdate{}); err == nil {
		t.Fatal("expected error for unknown record")
	}
}

func TestLatestPublishedJoinsEpisodeAndSeries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	latest, err := st.LatestPublished(ctx)
	if err != nil || latest != nil {
		t.Fatalf("expected no published episode, got %#v err=%v", latest, err)
	}

	series, eps := testsupport.SeedSeries(t, st, "s", "Dragon Tale", 3)
	for _, ep := range eps[:2] {
		id, err := st.CreateOrGetPublishRecord(ctx, ep.ID)
		if err != nil {
			t.Fatalf("CreateOrGetPublishRecord: %v", err)
		}
		if err := st.SetPublishStatus(ctx, id, store.PublishPublished, store.PublishUpdate{VideoID: "v"}); err != nil {
			t.Fatalf("SetPublishStatus: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}
	failedID, _ := st.CreateOrGetPublishRecord(ctx, eps[2].ID)
	if err := st.SetPublishStatus(ctx, failedID, store.PublishFailed, store.PublishUpdate{Error: "x"}); err != nil {
		t.Fatalf("SetPublishStatus: %v", err)
	}

	latest, err = st.LatestPublished(ctx)
	if err != nil {
		t.Fatalf("LatestPublished: %v", err)
	}
	if latest == nil {
		t.Fatal("expected latest published episode")
	}
	if latest.Episode.ID != eps[1].ID || latest.Episode.IndexSequence != 2 {
		t.Fatalf("expected episode 2, got %#v", latest.Episode)
	}
	if latest.Series.ID != series.ID || latest.Series.Title != "Dragon Tale" {
		t.Fatalf("unexpected series: %#v", latest.Series)
	}
	if latest.Record.Status != store.PublishPublished {
		t.Fatalf("unexpected record: %#v", latest.Record)
	}
}

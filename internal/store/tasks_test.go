package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"reelcast/internal/store"
	"reelcast/internal/testsupport"
)

func TestClaimNextPendingEmptyQueue(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	task, err := st.ClaimNextPending(context.Background())
	if err != nil {
		t.Fatalf("ClaimNextPending: %v", err)
	}
	if task != nil {
		t.Fatalf("expected nil task, got %#v", task)
	}
}

func TestClaimNextPendingOrderAndTransition(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	series, eps := testsupport.SeedSeries(t, st, "s1", "Show", 2)

	n, err := st.CreateTasks(ctx, []store.NewTask{
		{SeriesID: series.ID, Type: store.TaskSeriesCover, URL: "https://x/c.jpg", Filename: "Show_cover.jpg"},
		{SeriesID: series.ID, EpisodeID: eps[0].ID, Type: store.TaskEpisodeCover, URL: "https://x/1.jpg", Filename: "Show_ep1_cover.jpg"},
		{SeriesID: series.ID, EpisodeID: eps[0].ID, Type: store.TaskEpisodeVideo, URL: "https://x/1.mp4", Filename: "Show_ep1.mp4"},
	})
	if err != nil || n != 3 {
		t.Fatalf("CreateTasks: n=%d err=%v", n, err)
	}

	first, err := st.ClaimNextPending(ctx)
	if err != nil {
		t.Fatalf("ClaimNextPending: %v", err)
	}
	if first == nil || first.Type != store.TaskSeriesCover || first.Status != store.TaskProcessing {
		t.Fatalf("unexpected first claim: %#v", first)
	}
	second, err := st.ClaimNextPending(ctx)
	if err != nil || second == nil || second.Type != store.TaskEpisodeCover || second.EpisodeID != eps[0].ID {
		t.Fatalf("unexpected second claim: %#v err=%v", second, err)
	}

	if err := st.CompleteTask(ctx, first.ID); err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}
	if err := st.CompleteTask(ctx, first.ID); !errors.Is(err, store.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition on double completion, got %v", err)
	}
	if err := st.FailTask(ctx, second.ID, "boom"); err != nil {
		t.Fatalf("FailTask: %v", err)
	}
	failed, err := st.TaskByID(ctx, second.ID)
	if err != nil || failed.Status != store.TaskFailed || failed.ErrorMessage != "boom" {
		t.Fatalf("unexpected failed task: %#v err=%v", failed, err)
	}

	stats, err := st.TaskStats(ctx, series.ID)
	if err != nil {
		t.Fatalf("TaskStats: %v", err)
	}
	if stats.Total != 3 || stats.Completed != 1 || stats.Failed != 1 || stats.Pending != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	pending, err := st.HasPendingTasks(ctx)
	if err != nil || !pending {
		t.Fatalf("expected pending tasks, got %v err=%v", pending, err)
	}
}

func TestConcurrentClaimsNeverShareATask(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	series, _ := testsupport.SeedSeries(t, st, "s1", "Show", 0)

	if _, err := st.CreateTask(ctx, store.NewTask{SeriesID: series.ID, Type: store.TaskSeriesCover, URL: "u", Filename: "f"}); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		claimed []int64
		errs    []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			task, err := st.ClaimNextPending(ctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			if task != nil {
				claimed = append(claimed, task.ID)
			}
		}()
	}
	wg.Wait()

	if len(errs) > 0 {
		t.Fatalf("unexpected claim errors: %v", errs)
	}
	if len(claimed) != 1 {
		t.Fatalf("expected exactly one claim, got %v", claimed)
	}
}

func TestConcurrentClaimsDrainEveryTaskOnce(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	series, _ := testsupport.SeedSeries(t, st, "s1", "Show", 0)

	batch := make([]store.NewTask, 20)
	for i := range batch {
		batch[i] = store.NewTask{SeriesID: series.ID, Type: store.TaskSeriesCover, URL: "u", Filename: "f"}
	}
	if _, err := st.CreateTasks(ctx, batch); err != nil {
		t.Fatalf("CreateTasks: %v", err)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = map[int64]int{}
	)
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				task, err := st.ClaimNextPending(ctx)
				if err != nil {
					t.Errorf("ClaimNextPending: %v", err)
					return
				}
				if task == nil {
					return
				}
				mu.Lock()
				seen[task.ID]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != len(batch) {
		t.Fatalf("expected %d distinct claims, got %d", len(batch), len(seen))
	}
	for id, count := range seen {
		if count != 1 {
			t.Fatalf("task %d claimed %d times", id, count)
		}
	}
}

func TestCreateTaskValidation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if _, err := st.CreateTask(ctx, store.NewTask{Type: store.TaskSeriesCover}); !errors.Is(err, store.ErrInvalidTask) {
		t.Fatalf("expected invalid task for missing series, got %v", err)
	}
	if _, err := st.CreateTask(ctx, store.NewTask{SeriesID: 1, Type: "poster"}); !errors.Is(err, store.ErrInvalidTask) {
		t.Fatalf("expected invalid task for unknown type, got %v", err)
	}
}

func TestClearTasksBySeriesRemovesAllStatuses(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	a, _ := testsupport.SeedSeries(t, st, "a", "A", 0)
	b, _ := testsupport.SeedSeries(t, st, "b", "B", 0)

	for i := 0; i < 3; i++ {
		if _, err := st.CreateTask(ctx, store.NewTask{SeriesID: a.ID, Type: store.TaskSeriesCover, URL: "u", Filename: "f"}); err != nil {
			t.Fatalf("CreateTask: %v", err)
		}
	}
	if _, err := st.CreateTask(ctx, store.NewTask{SeriesID: b.ID, Type: store.TaskSeriesCover, URL: "u", Filename: "f"}); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	claimed, _ := st.ClaimNextPending(ctx)
	if err := st.FailTask(ctx, claimed.ID, "x"); err != nil {
		t.Fatalf("FailTask: %v", err)
	}
	if _, err := st.ClaimNextPending(ctx); err != nil {
		t.Fatalf("ClaimNextPending: %v", err)
	}

	removed, err := st.ClearTasksBySeries(ctx, a.ID)
	if err != nil {
		t.Fatalf("ClearTasksBySeries: %v", err)
	}
	if removed != 3 {
		t.Fatalf("expected 3 removed, got %d", removed)
	}
	remaining, err := st.ListTasks(ctx, 0)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(remaining) != 1 || remaining[0].SeriesID != b.ID {
		t.Fatalf("expected only series b task to remain, got %#v", remaining)
	}
}

func TestRequeueFailedIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	series, _ := testsupport.SeedSeries(t, st, "s", "S", 0)

	id, err := st.CreateTask(ctx, store.NewTask{SeriesID: series.ID, Type: store.TaskSeriesCover, URL: "u", Filename: "f"})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	other, err := st.CreateTask(ctx, store.NewTask{SeriesID: series.ID, Type: store.TaskSeriesCover, URL: "u", Filename: "g"})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if _, err := st.ClaimNextPending(ctx); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := st.FailTask(ctx, id, "network"); err != nil {
		t.Fatalf("FailTask: %v", err)
	}

	n, err := st.RequeueFailed(ctx, series.ID)
	if err != nil || n != 1 {
		t.Fatalf("RequeueFailed: n=%d err=%v", n, err)
	}
	n, err = st.RequeueFailed(ctx, series.ID)
	if err != nil || n != 0 {
		t.Fatalf("second RequeueFailed should be a no-op: n=%d err=%v", n, err)
	}
	task, _ := st.TaskByID(ctx, id)
	if task.Status != store.TaskPending || task.ErrorMessage != "" {
		t.Fatalf("expected pending task with cleared error, got %#v", task)
	}
	untouched, _ := st.TaskByID(ctx, other)
	if untouched.Status != store.TaskPending {
		t.Fatalf("expected other task untouched, got %#v", untouched)
	}
}

func TestFailInterruptedMovesProcessingToFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	series, _ := testsupport.SeedSeries(t, st, "s", "S", 0)

	id, _ := st.CreateTask(ctx, store.NewTask{SeriesID: series.ID, Type: store.TaskSeriesCover, URL: "u", Filename: "f"})
	if _, err := st.ClaimNextPending(ctx); err != nil {
		t.Fatalf("claim: %v", err)
	}
	n, err := st.FailInterrupted(ctx, "interrupted by restart")
	if err != nil || n != 1 {
		t.Fatalf("FailInterrupted: n=%d err=%v", n, err)
	}
	task, _ := st.TaskByID(ctx, id)
	if task.Status != store.TaskFailed || task.ErrorMessage != "interrupted by restart" {
		t.Fatalf("unexpected task: %#v", task)
	}
}

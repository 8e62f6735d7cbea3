package sched

import (
	"context"
	"testing"
	"time"

	"meeting-recap/internal/domain/model"
	"meeting-recap/internal/infra/jobstore"
	"meeting-recap/internal/infra/logging"
)

func TestSweepDropsOnlyOldFinishedJobs(t *testing.T) {
	ctx := context.Background()
	store := jobstore.NewMemory()

	add := func(finish func(j *model.Job)) string {
		j := model.NewJob(model.JobKindAnalyze)
		if err := store.Create(ctx, j); err != nil {
			t.Fatal(err)
		}
		if finish != nil {
			if _, err := store.Update(ctx, j.ID, func(j *model.Job) error { finish(j); return nil }); err != nil {
				t.Fatal(err)
			}
		}
		return j.ID
	}
	done := add(func(j *model.Job) { _ = j.Start(model.StageAnalysis); _ = j.Complete(model.JobResult{}) })
	failed := add(func(j *model.Job) { _ = j.Start(model.StageAnalysis); _ = j.Fail("boom", "internal") })
	running := add(func(j *model.Job) { _ = j.Start(model.StageAnalysis) })
	queued := add(nil)

	w := NewRetentionWorker(time.Minute, time.Hour, store, logging.Nop())

	if n := w.sweep(ctx); n != 0 {
		t.Fatalf("fresh jobs pruned: %d", n)
	}

	w.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if n := w.sweep(ctx); n != 2 {
		t.Fatalf("pruned %d, want 2", n)
	}
	for _, id := range []string{done, failed} {
		if _, err := store.Get(ctx, id); err == nil {
			t.Errorf("job %s should be gone", id)
		}
	}
	jobs, _ := store.List(ctx)
	if len(jobs) != 2 || jobs[0].ID != running || jobs[1].ID != queued {
		t.Fatalf("remaining = %v", jobs)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w := NewRetentionWorker(time.Millisecond, time.Hour, jobstore.NewMemory(), logging.Nop())
	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx) }()
	time.Sleep(5 * time.Millisecond)
	cancel()
	select {
	case err := <-errc:
		if err != context.Canceled {
			t.Fatalf("err = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

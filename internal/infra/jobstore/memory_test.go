package jobstore_test

import (
	"context"
	"errors"
	"testing"

	"meeting-recap/internal/domain"
	"meeting-recap/internal/domain/model"
	"meeting-recap/internal/infra/jobstore"
)

func TestMemoryListKeepsSubmissionOrder(t *testing.T) {
	ctx := context.Background()
	store := jobstore.NewMemory()

	var ids []string
	for _, k := range []model.JobKind{model.JobKindRecap, model.JobKindTranscribe, model.JobKindAnalyze} {
		j := model.NewJob(k)
		ids = append(ids, j.ID)
		if err := store.Create(ctx, j); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	jobs, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("len = %d, want 3", len(jobs))
	}
	for i, j := range jobs {
		if j.ID != ids[i] {
			t.Errorf("jobs[%d] = %s, want %s", i, j.ID, ids[i])
		}
	}
}

func TestMemoryGetUnknown(t *testing.T) {
	_, err := jobstore.NewMemory().Get(context.Background(), "nope")
	if !errors.Is(err, domain.ErrJobNotFound) {
		t.Fatalf("err = %v, want ErrJobNotFound", err)
	}
}

func TestMemoryUpdateIsAtomic(t *testing.T) {
	ctx := context.Background()
	store := jobstore.NewMemory()
	j := model.NewJob(model.JobKindAnalyze)
	_ = store.Create(ctx, j)

	boom := errors.New("boom")
	_, err := store.Update(ctx, j.ID, func(job *model.Job) error {
		job.Status = model.JobStatusProcessing
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	got, _ := store.Get(ctx, j.ID)
	if got.Status != model.JobStatusQueued {
		t.Fatalf("status = %s, failed update must not be stored", got.Status)
	}

	updated, err := store.Update(ctx, j.ID, func(job *model.Job) error { return job.Start(model.StageAnalysis) })
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != model.JobStatusProcessing {
		t.Fatalf("status = %s", updated.Status)
	}
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := jobstore.NewMemory()
	j := model.NewJob(model.JobKindTranscribe)
	_ = store.Create(ctx, j)

	got, _ := store.Get(ctx, j.ID)
	got.Status = model.JobStatusFailed

	again, _ := store.Get(ctx, j.ID)
	if again.Status != model.JobStatusQueued {
		t.Fatal("mutating a returned job changed the store")
	}
	if err := store.Create(ctx, j); err == nil {
		t.Fatal("duplicate create should fail")
	}
}

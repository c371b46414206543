package jobstore

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/aahadr1/AdsCreator-sub003/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	return New(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
}

func TestCreateValidatesRequiredFields(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.Create(ctx, &domain.GenerationJob{Kind: "sculpture", Provider: "replicate"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("unknown kind: err = %v, want ErrValidation", err)
	}

	_, err = st.Create(ctx, &domain.GenerationJob{Kind: domain.JobKindVideo})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("missing provider: err = %v, want ErrValidation", err)
	}

	job, err := st.Create(ctx, &domain.GenerationJob{Kind: domain.JobKindVideo, Provider: "replicate"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if job.ID == "" {
		t.Fatalf("expected generated id")
	}
	if job.Status != domain.JobStatusQueued {
		t.Fatalf("status = %s, want queued", job.Status)
	}
	if job.CreatedAt.IsZero() || job.UpdatedAt.IsZero() {
		t.Fatalf("timestamps not set")
	}
}

func TestCreateRejectsDuplicateID(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	seed := &domain.GenerationJob{ID: "job-1", Kind: domain.JobKindImage, Provider: "falq"}
	if _, err := st.Create(ctx, seed); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := st.Create(ctx, seed); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("duplicate create: err = %v, want ErrValidation", err)
	}
}

func TestGetNotFound(t *testing.T) {
	st := newTestStore(t)
	if _, err := st.Get(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateMergesAndRecomputesUpdatedAt(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	job, err := st.Create(ctx, &domain.GenerationJob{Kind: domain.JobKindVideo, Provider: "replicate", Owner: "u1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	running := domain.JobStatusRunning
	time.Sleep(5 * time.Millisecond)
	updated, err := st.Update(ctx, job.ID, domain.JobPatch{Status: &running})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != domain.JobStatusRunning {
		t.Fatalf("status = %s, want running", updated.Status)
	}
	if !updated.UpdatedAt.After(job.UpdatedAt) {
		t.Fatalf("UpdatedAt not recomputed")
	}
	if updated.Owner != "u1" || updated.Kind != domain.JobKindVideo {
		t.Fatalf("unrelated fields changed: %+v", updated)
	}
}

func TestUpdateUnknownIDIsNotFound(t *testing.T) {
	st := newTestStore(t)
	running := domain.JobStatusRunning
	_, err := st.Update(context.Background(), "missing", domain.JobPatch{Status: &running})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestTerminalStatusIsMonotonic(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	job, err := st.Create(ctx, &domain.GenerationJob{Kind: domain.JobKindSpeech, Provider: "falq"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	succeeded := domain.JobStatusSucceeded
	out := "https://cdn.example.com/a.mp4"
	if _, err := st.Update(ctx, job.ID, domain.JobPatch{Status: &succeeded, OutputURL: &out}); err != nil {
		t.Fatalf("transition to succeeded: %v", err)
	}

	queued := domain.JobStatusQueued
	if _, err := st.Update(ctx, job.ID, domain.JobPatch{Status: &queued}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("terminal->queued: err = %v, want ErrValidation", err)
	}
	failed := domain.JobStatusFailed
	if _, err := st.Update(ctx, job.ID, domain.JobPatch{Status: &failed}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("terminal->failed: err = %v, want ErrValidation", err)
	}

	got, err := st.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.JobStatusSucceeded || got.OutputURL != out {
		t.Fatalf("terminal record changed: %+v", got)
	}
}

func TestOutputURLSetAtMostOnce(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	job, err := st.Create(ctx, &domain.GenerationJob{Kind: domain.JobKindImage, Provider: "replicate"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	succeeded := domain.JobStatusSucceeded
	first := "https://cdn.example.com/one.png"
	if _, err := st.Update(ctx, job.ID, domain.JobPatch{Status: &succeeded, OutputURL: &first}); err != nil {
		t.Fatalf("set output: %v", err)
	}
	second := "https://cdn.example.com/two.png"
	got, err := st.Update(ctx, job.ID, domain.JobPatch{OutputURL: &second})
	if err != nil {
		t.Fatalf("second set: %v", err)
	}
	if got.OutputURL != first {
		t.Fatalf("output url overwritten: %s", got.OutputURL)
	}
}

func TestOutputURLRequiresSucceededStatus(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	job, err := st.Create(ctx, &domain.GenerationJob{Kind: domain.JobKindImage, Provider: "replicate"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	out := "https://cdn.example.com/early.png"
	got, err := st.Update(ctx, job.ID, domain.JobPatch{OutputURL: &out})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.OutputURL != "" {
		t.Fatalf("output url accepted on a queued record: %q", got.OutputURL)
	}

	failed := domain.JobStatusFailed
	msg := "upstream failed"
	if _, err := st.Update(ctx, job.ID, domain.JobPatch{Status: &failed, Error: &msg, OutputURL: &out}); err != nil {
		t.Fatalf("fail: %v", err)
	}
	stored, err := st.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.OutputURL != "" {
		t.Fatalf("output url accepted on a failed record: %q", stored.OutputURL)
	}
}

func TestEmptyPatchWritesNothing(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	job, err := st.Create(ctx, &domain.GenerationJob{Kind: domain.JobKindVideo, Provider: "replicate"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := st.Update(ctx, job.ID, domain.JobPatch{})
	if err != nil {
		t.Fatalf("empty update: %v", err)
	}
	if !got.UpdatedAt.Equal(job.UpdatedAt) {
		t.Fatalf("empty patch recomputed UpdatedAt")
	}
}

func TestListOrdersByCreatedAtDescending(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if _, err := st.Create(ctx, &domain.GenerationJob{
			ID: id, Kind: domain.JobKindVideo, Provider: "replicate", Owner: "u1",
		}); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
		time.Sleep(2 * time.Millisecond)
	}
	if _, err := st.Create(ctx, &domain.GenerationJob{
		ID: "other", Kind: domain.JobKindImage, Provider: "falq", Owner: "u2",
	}); err != nil {
		t.Fatalf("create other: %v", err)
	}

	jobs, err := st.List(ctx, domain.JobFilter{Owner: "u1"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("len = %d, want 3", len(jobs))
	}
	for i := 1; i < len(jobs); i++ {
		if jobs[i].CreatedAt.After(jobs[i-1].CreatedAt) {
			t.Fatalf("jobs not ordered by CreatedAt descending")
		}
	}

	kinds, err := st.List(ctx, domain.JobFilter{Kind: domain.JobKindImage})
	if err != nil {
		t.Fatalf("list by kind: %v", err)
	}
	if len(kinds) != 1 || kinds[0].ID != "other" {
		t.Fatalf("kind filter = %+v", kinds)
	}
}

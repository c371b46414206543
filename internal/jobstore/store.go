// Package jobstore persists generation-job records as independent JSON
// documents in Redis, keyed job:<id>. There is no secondary index: listings
// scan the prefix and filter in process. Updates are read-modify-write full
// overwrites, so concurrent updates to one id race with last-writer-wins
// semantics; callers that need stronger guarantees serialize updates per id
// (one poller per job).
package jobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/aahadr1/AdsCreator-sub003/internal/domain"
)

const keyPrefix = "job:"

// Store is the durable registry of generation jobs.
type Store struct {
	client *redis.Client
}

// New creates a job store backed by the given Redis client.
func New(client *redis.Client) *Store {
	return &Store{client: client}
}

func jobKey(id string) string {
	return keyPrefix + id
}

// Create validates and persists a new job record. Records with a missing
// kind or provider fail with ErrValidation. An empty id is replaced by a
// generated UUID; an id collision is treated as a validation failure since
// records are never overwritten on create.
func (s *Store) Create(ctx context.Context, job *domain.GenerationJob) (*domain.GenerationJob, error) {
	if job == nil {
		return nil, fmt.Errorf("%w: job is required", domain.ErrValidation)
	}
	rec := *job
	if !domain.ValidKind(rec.Kind) {
		return nil, fmt.Errorf("%w: unknown job kind %q", domain.ErrValidation, rec.Kind)
	}
	if strings.TrimSpace(rec.Provider) == "" {
		return nil, fmt.Errorf("%w: provider is required", domain.ErrValidation)
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Status == "" {
		rec.Status = domain.JobStatusQueued
	}
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	data, err := json.Marshal(&rec)
	if err != nil {
		return nil, fmt.Errorf("marshal job: %w", err)
	}
	ok, err := s.client.SetNX(ctx, jobKey(rec.ID), data, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("store job: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: job %s already exists", domain.ErrValidation, rec.ID)
	}
	return &rec, nil
}

// Get fetches a job record by id.
func (s *Store) Get(ctx context.Context, id string) (*domain.GenerationJob, error) {
	data, err := s.client.Get(ctx, jobKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}
	var job domain.GenerationJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job %s: %w", id, err)
	}
	return &job, nil
}

// Update applies a partial patch to an existing record and persists the
// merged document as a full overwrite. The id is never patchable, a
// terminal status never transitions again, and the output URL is set at
// most once and only on a succeeded record. An empty patch performs no
// write.
func (s *Store) Update(ctx context.Context, id string, patch domain.JobPatch) (*domain.GenerationJob, error) {
	job, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return job, nil
	}

	if patch.Status != nil && *patch.Status != job.Status {
		if job.Status.Terminal() {
			return nil, fmt.Errorf("%w: job %s is %s and cannot transition to %s",
				domain.ErrValidation, id, job.Status, *patch.Status)
		}
		job.Status = *patch.Status
	}
	// The output URL only means anything on a succeeded record, so it is
	// accepted only once the status (possibly patched just above) is
	// succeeded, and never rewritten.
	if patch.OutputURL != nil && job.OutputURL == "" && job.Status == domain.JobStatusSucceeded {
		job.OutputURL = *patch.OutputURL
	}
	if patch.Error != nil {
		job.Error = *patch.Error
	}
	job.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal job: %w", err)
	}
	if err := s.client.Set(ctx, jobKey(id), data, 0).Err(); err != nil {
		return nil, fmt.Errorf("store job: %w", err)
	}
	return job, nil
}

// List returns job records matching the filter, ordered by creation time
// descending. The scan touches every job key; acceptable for the registry
// sizes this service handles.
func (s *Store) List(ctx context.Context, filter domain.JobFilter) ([]domain.GenerationJob, error) {
	var jobs []domain.GenerationJob
	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := s.client.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load job %s: %w", iter.Val(), err)
		}
		var job domain.GenerationJob
		if err := json.Unmarshal(data, &job); err != nil {
			continue
		}
		if filter.Owner != "" && job.Owner != filter.Owner {
			continue
		}
		if filter.Kind != "" && job.Kind != filter.Kind {
			continue
		}
		jobs = append(jobs, job)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan jobs: %w", err)
	}

	sort.SliceStable(jobs, func(i, j int) bool {
		if !jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
		}
		return jobs[i].ID < jobs[j].ID
	})
	return jobs, nil
}

// ListNonTerminal returns ids of jobs that still need polling.
func (s *Store) ListNonTerminal(ctx context.Context) ([]string, error) {
	jobs, err := s.List(ctx, domain.JobFilter{})
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, job := range jobs {
		if !job.Status.Terminal() {
			ids = append(ids, job.ID)
		}
	}
	return ids, nil
}

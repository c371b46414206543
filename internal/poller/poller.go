// Package poller drives generation jobs from submission to a terminal
// state by repeatedly polling the owning provider adapter and persisting
// progress through the job store. Polling is idempotent: a tick that
// observes no change writes nothing, and a terminal record is never
// touched again.
package poller

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aahadr1/AdsCreator-sub003/internal/domain"
	"github.com/aahadr1/AdsCreator-sub003/internal/provider"
	"github.com/aahadr1/AdsCreator-sub003/internal/telemetry"
)

// Store is the slice of the job store the poller depends on.
type Store interface {
	Get(ctx context.Context, id string) (*domain.GenerationJob, error)
	Update(ctx context.Context, id string, patch domain.JobPatch) (*domain.GenerationJob, error)
	ListNonTerminal(ctx context.Context) ([]string, error)
}

// Options tunes the polling loop.
type Options struct {
	// Interval between polls. Defaults to 2.5s.
	Interval time.Duration
	// Budget is the wall-clock limit for Wait. On expiry the job is left in
	// its last known non-terminal state; it may still finish server-side.
	Budget time.Duration
}

// Poller queries provider adapters and persists job progress.
type Poller struct {
	registry *provider.Registry
	store    Store
	rehoster *provider.Rehoster
	interval time.Duration
	budget   time.Duration
	logger   zerolog.Logger
}

// New builds a poller. rehoster may be nil to skip output re-hosting.
func New(registry *provider.Registry, store Store, rehoster *provider.Rehoster, opts Options, logger zerolog.Logger) *Poller {
	interval := opts.Interval
	if interval <= 0 {
		interval = 2500 * time.Millisecond
	}
	budget := opts.Budget
	if budget <= 0 {
		budget = 10 * time.Minute
	}
	return &Poller{
		registry: registry,
		store:    store,
		rehoster: rehoster,
		interval: interval,
		budget:   budget,
		logger:   logger,
	}
}

// Tick performs one idempotent poll of the job. A terminal record is
// returned as-is without contacting the provider. Transport failures are
// returned to the caller and never recorded as job failure.
func (p *Poller) Tick(ctx context.Context, jobID string) (*domain.GenerationJob, error) {
	job, err := p.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.Terminal() {
		return job, nil
	}

	adapter, err := p.registry.Get(job.Provider)
	if err != nil {
		return nil, err
	}

	telemetry.PollsTotal.Inc()
	res, err := adapter.Poll(ctx, job.ID)
	if err != nil {
		return nil, fmt.Errorf("poll %s job %s: %w", job.Provider, job.ID, err)
	}

	if res.UnknownStatus {
		telemetry.UnknownStatuses.WithLabelValues(job.Provider).Inc()
		p.logger.Warn().
			Str("job_id", job.ID).
			Str("provider", job.Provider).
			Str("native_status", res.NativeStatus).
			Msg("unrecognized provider status bucketed as queued")
	}

	patch := p.buildPatch(ctx, job, res)
	if patch.Empty() {
		return job, nil
	}
	return p.store.Update(ctx, job.ID, patch)
}

// buildPatch compares the poll result against the stored record and returns
// only the changed fields.
func (p *Poller) buildPatch(ctx context.Context, job *domain.GenerationJob, res provider.PollResult) domain.JobPatch {
	status := res.Status
	outputURL := res.OutputURL

	if status == domain.JobStatusSucceeded {
		if outputURL == "" {
			// A success without any retrievable artifact would otherwise
			// persist a succeeded record with a null output, which the store
			// contract forbids.
			failed := domain.JobStatusFailed
			msg := "provider reported success without an output"
			p.logger.Error().Str("job_id", job.ID).Str("provider", job.Provider).Msg(msg)
			return domain.JobPatch{Status: &failed, Error: &msg}
		}
		if p.rehoster != nil {
			outputURL = p.rehoster.Rehost(ctx, outputURL, "outputs/"+job.ID)
		}
	}

	var patch domain.JobPatch
	if status != job.Status {
		patch.Status = &status
	}
	if outputURL != "" && outputURL != job.OutputURL {
		patch.OutputURL = &outputURL
	}
	if res.Error != "" && res.Error != job.Error {
		patch.Error = &res.Error
	}
	return patch
}

// Wait polls the job at a fixed interval until it reaches a terminal state
// or the wall-clock budget elapses. On timeout the record keeps its last
// known non-terminal status; no failed transition is forced, since the job
// may still be progressing server-side.
func (p *Poller) Wait(ctx context.Context, jobID string) (*domain.GenerationJob, error) {
	telemetry.PollsInFlight.Inc()
	defer telemetry.PollsInFlight.Dec()

	deadline := time.Now().Add(p.budget)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		job, err := p.Tick(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if job.Status.Terminal() {
			return job, nil
		}
		if time.Now().After(deadline) {
			p.logger.Info().
				Str("job_id", jobID).
				Str("status", string(job.Status)).
				Msg("poll budget elapsed, leaving job in last known state")
			return job, nil
		}

		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Run is the worker loop: every interval it scans for non-terminal jobs
// and ticks each one. Jobs are processed one at a time, which keeps a
// single writer per job id within one worker.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		ids, err := p.store.ListNonTerminal(ctx)
		if err != nil {
			p.logger.Error().Err(err).Msg("list non-terminal jobs")
			continue
		}
		for _, id := range ids {
			if _, err := p.Tick(ctx, id); err != nil {
				p.logger.Warn().Err(err).Str("job_id", id).Msg("poll tick failed")
			}
		}
	}
}

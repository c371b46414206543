package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/aahadr1/AdsCreator-sub003/internal/domain"
	"github.com/aahadr1/AdsCreator-sub003/internal/telemetry"
)

type submitJobRequest struct {
	Owner    string         `json:"owner"`
	Kind     string         `json:"kind"`
	Provider string         `json:"provider"`
	ModelRef string         `json:"model_ref"`
	Input    map[string]any `json:"input"`
}

// SubmitJob creates a generation job: the provider accepts the work first,
// then the record is written under the provider-assigned id. 202 because
// the output does not exist yet.
func (a *App) SubmitJob(w http.ResponseWriter, r *http.Request) {
	var req submitJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.failValidation(w, "malformed request body")
		return
	}

	kind := domain.JobKind(strings.ToLower(strings.TrimSpace(req.Kind)))
	if !domain.ValidKind(kind) {
		a.failValidation(w, "unknown job kind: "+req.Kind)
		return
	}

	adapter, err := a.Registry.Get(req.Provider)
	if err != nil {
		a.failValidation(w, err.Error())
		return
	}

	if a.Limiter != nil {
		owner := req.Owner
		if owner == "" {
			owner = "anonymous"
		}
		allowed, _, err := a.Limiter.Allow(r.Context(), owner)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		if !allowed {
			a.json(w, http.StatusTooManyRequests, errorEnvelope{Error: errorBody{
				Kind:    "validation",
				Message: "submission rate limit exceeded",
			}})
			return
		}
	}

	nativeID, err := adapter.Submit(r.Context(), kind, req.ModelRef, req.Input)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	job, err := a.Jobs.Create(r.Context(), &domain.GenerationJob{
		ID:        nativeID,
		Owner:     req.Owner,
		Kind:      kind,
		Provider:  adapter.Name(),
		ModelRef:  req.ModelRef,
		InputRefs: req.Input,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}

	telemetry.JobsSubmitted.WithLabelValues(string(kind), adapter.Name()).Inc()
	a.json(w, http.StatusAccepted, job)
}

// ListJobs returns records filtered by owner and kind query params.
func (a *App) ListJobs(w http.ResponseWriter, r *http.Request) {
	filter := domain.JobFilter{
		Owner: r.URL.Query().Get("owner"),
		Kind:  domain.JobKind(r.URL.Query().Get("kind")),
	}
	jobs, err := a.Jobs.List(r.Context(), filter)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if jobs == nil {
		jobs = []domain.GenerationJob{}
	}
	a.json(w, http.StatusOK, map[string]any{"jobs": jobs})
}

// GetJob returns one record.
func (a *App) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := a.Jobs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, job)
}

// PollJob performs one poll tick against the provider and returns the
// refreshed record. Clients drive their own polling cadence with this.
func (a *App) PollJob(w http.ResponseWriter, r *http.Request) {
	job, err := a.Poller.Tick(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, job)
}

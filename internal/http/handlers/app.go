// Package handlers contains the HTTP endpoints. Every error leaving this
// package uses the envelope {"error":{"kind","message"}} so clients can
// branch on kind without parsing prose.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/aahadr1/AdsCreator-sub003/internal/assembler"
	"github.com/aahadr1/AdsCreator-sub003/internal/domain"
	"github.com/aahadr1/AdsCreator-sub003/internal/jobstore"
	"github.com/aahadr1/AdsCreator-sub003/internal/pipeline"
	"github.com/aahadr1/AdsCreator-sub003/internal/poller"
	"github.com/aahadr1/AdsCreator-sub003/internal/provider"
	"github.com/aahadr1/AdsCreator-sub003/internal/ratelimit"
)

// App carries the dependencies the endpoints need.
type App struct {
	Jobs      *jobstore.Store
	Registry  *provider.Registry
	Poller    *poller.Poller
	Pipeline  *pipeline.Pipeline
	Assembler *assembler.Assembler
	Limiter   *ratelimit.SubmitLimiter
	Logger    zerolog.Logger
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// fail maps an error onto the envelope. Provider failures keep their
// upstream detail; anything unrecognized becomes an opaque internal error.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	var perr *domain.ProviderError
	switch {
	case errors.Is(err, domain.ErrValidation):
		a.json(w, http.StatusBadRequest, errorEnvelope{Error: errorBody{Kind: "validation", Message: err.Error()}})
	case errors.Is(err, domain.ErrNotFound):
		a.json(w, http.StatusNotFound, errorEnvelope{Error: errorBody{Kind: "not_found", Message: err.Error()}})
	case errors.As(err, &perr):
		a.json(w, http.StatusBadGateway, errorEnvelope{Error: errorBody{Kind: "provider", Message: perr.Error()}})
	default:
		a.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		a.json(w, http.StatusInternalServerError, errorEnvelope{Error: errorBody{Kind: "internal", Message: "internal error"}})
	}
}

func (a *App) failValidation(w http.ResponseWriter, message string) {
	a.json(w, http.StatusBadRequest, errorEnvelope{Error: errorBody{Kind: "validation", Message: message}})
}

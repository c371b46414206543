package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/aahadr1/AdsCreator-sub003/internal/domain"
)

type sequenceRequest struct {
	Owner    string                 `json:"owner"`
	Segments []domain.ScriptSegment `json:"segments"`
}

// Sequence matches every script segment with a pool asset and returns the
// ordered choices. Segments that could not be matched come back listed
// under degraded rather than failing the request.
func (a *App) Sequence(w http.ResponseWriter, r *http.Request) {
	var req sequenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.failValidation(w, "malformed request body")
		return
	}

	result, err := a.Pipeline.Sequence(r.Context(), req.Owner, req.Segments)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, result)
}

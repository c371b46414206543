package handlers

import (
	"encoding/json"
	"net/http"
)

type assembleRequest struct {
	// Clips are concatenated exactly in this order.
	Clips []string `json:"clips"`
}

// Assemble concatenates the given clips into one video and returns its
// durable URL.
func (a *App) Assemble(w http.ResponseWriter, r *http.Request) {
	var req assembleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.failValidation(w, "malformed request body")
		return
	}
	if len(req.Clips) == 0 {
		a.failValidation(w, "clips is required")
		return
	}

	url, err := a.Assembler.Assemble(r.Context(), req.Clips)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"url": url})
}

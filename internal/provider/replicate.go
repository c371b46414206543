package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aahadr1/AdsCreator-sub003/internal/domain"
)

const replicateName = "replicate"

// ReplicateOptions configures the Replicate adapter.
type ReplicateOptions struct {
	APIToken   string
	BaseURL    string
	HTTPClient *http.Client
}

// Replicate adapts the predictions-style API: POST creates a prediction,
// GET reads its status and output.
type Replicate struct {
	token   string
	baseURL string
	client  *http.Client
}

// NewReplicate builds the adapter.
func NewReplicate(opts ReplicateOptions) *Replicate {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://api.replicate.com/v1"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Replicate{token: opts.APIToken, baseURL: base, client: client}
}

func (r *Replicate) Name() string { return replicateName }

type replicateSubmitRequest struct {
	Version string         `json:"version"`
	Input   map[string]any `json:"input"`
}

type replicatePrediction struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Output any    `json:"output"`
	Error  any    `json:"error"`
}

// Submit creates a prediction and returns its provider-assigned id.
func (r *Replicate) Submit(ctx context.Context, _ domain.JobKind, modelRef string, input map[string]any) (string, error) {
	if strings.TrimSpace(modelRef) == "" {
		return "", fmt.Errorf("%w: model ref is required", domain.ErrValidation)
	}
	if input == nil {
		input = map[string]any{}
	}
	var pred replicatePrediction
	if err := r.do(ctx, http.MethodPost, "/predictions", replicateSubmitRequest{Version: modelRef, Input: input}, &pred); err != nil {
		return "", err
	}
	if pred.ID == "" {
		return "", &domain.ProviderError{Provider: replicateName, StatusCode: http.StatusOK, Body: "prediction created without an id"}
	}
	return pred.ID, nil
}

// Poll reads the prediction and maps it onto the canonical shape.
func (r *Replicate) Poll(ctx context.Context, jobID string) (PollResult, error) {
	var pred replicatePrediction
	if err := r.do(ctx, http.MethodGet, "/predictions/"+jobID, nil, &pred); err != nil {
		return PollResult{}, err
	}

	res := PollResult{NativeStatus: pred.Status}
	switch strings.ToLower(pred.Status) {
	case "starting":
		res.Status = domain.JobStatusQueued
	case "processing":
		res.Status = domain.JobStatusRunning
	case "succeeded":
		res.Status = domain.JobStatusSucceeded
	case "failed":
		res.Status = domain.JobStatusFailed
	case "canceled":
		res.Status = domain.JobStatusCanceled
	default:
		// Unrecognized vocabulary is never mapped to a terminal state.
		res.Status = domain.JobStatusQueued
		res.UnknownStatus = true
	}

	if res.Status == domain.JobStatusSucceeded {
		res.OutputURL = ExtractOutputURL(pred.Output)
	}
	if pred.Error != nil {
		res.Error = fmt.Sprint(pred.Error)
	}
	return res, nil
}

func (r *Replicate) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.token != "" {
		req.Header.Set("Authorization", "Token "+r.token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return &domain.ProviderError{Provider: replicateName, StatusCode: 0, Body: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &domain.ProviderError{Provider: replicateName, StatusCode: resp.StatusCode, Body: err.Error()}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &domain.ProviderError{Provider: replicateName, StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return &domain.ProviderError{Provider: replicateName, StatusCode: resp.StatusCode, Body: "malformed response body: " + err.Error()}
		}
	}
	return nil
}

var _ Adapter = (*Replicate)(nil)

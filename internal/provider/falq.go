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

const falqName = "falq"

// FalQueueOptions configures the queue-style adapter.
type FalQueueOptions struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// FalQueue adapts the queue-style API family: POST {base}/{model} enqueues
// a request, GET {base}/requests/{id} reads status and, once completed, the
// response payload.
type FalQueue struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewFalQueue builds the adapter.
func NewFalQueue(opts FalQueueOptions) *FalQueue {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://queue.fal.run"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &FalQueue{apiKey: opts.APIKey, baseURL: base, client: client}
}

func (f *FalQueue) Name() string { return falqName }

type falQueueEnvelope struct {
	RequestID string         `json:"request_id"`
	Status    string         `json:"status"`
	Response  map[string]any `json:"response"`
	Error     string         `json:"error"`
}

// Submit enqueues a generation request for the given model.
func (f *FalQueue) Submit(ctx context.Context, _ domain.JobKind, modelRef string, input map[string]any) (string, error) {
	modelRef = strings.Trim(strings.TrimSpace(modelRef), "/")
	if modelRef == "" {
		return "", fmt.Errorf("%w: model ref is required", domain.ErrValidation)
	}
	if input == nil {
		input = map[string]any{}
	}
	var env falQueueEnvelope
	if err := f.do(ctx, http.MethodPost, "/"+modelRef, input, &env); err != nil {
		return "", err
	}
	if env.RequestID == "" {
		return "", &domain.ProviderError{Provider: falqName, StatusCode: http.StatusOK, Body: "enqueue response missing request_id"}
	}
	return env.RequestID, nil
}

// Poll reads the queued request and maps its status onto the canonical enum.
func (f *FalQueue) Poll(ctx context.Context, jobID string) (PollResult, error) {
	var env falQueueEnvelope
	if err := f.do(ctx, http.MethodGet, "/requests/"+jobID, nil, &env); err != nil {
		return PollResult{}, err
	}

	res := PollResult{NativeStatus: env.Status, Error: env.Error}
	switch strings.ToUpper(env.Status) {
	case "IN_QUEUE":
		res.Status = domain.JobStatusQueued
	case "IN_PROGRESS":
		res.Status = domain.JobStatusRunning
	case "COMPLETED":
		res.Status = domain.JobStatusSucceeded
	case "FAILED", "ERROR":
		res.Status = domain.JobStatusFailed
	case "CANCELLED", "CANCELED":
		res.Status = domain.JobStatusCanceled
	default:
		res.Status = domain.JobStatusQueued
		res.UnknownStatus = true
	}

	if res.Status == domain.JobStatusSucceeded {
		res.OutputURL = ExtractOutputURL(env.Response)
	}
	return res, nil
}

func (f *FalQueue) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, f.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if f.apiKey != "" {
		req.Header.Set("Authorization", "Key "+f.apiKey)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return &domain.ProviderError{Provider: falqName, StatusCode: 0, Body: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &domain.ProviderError{Provider: falqName, StatusCode: resp.StatusCode, Body: err.Error()}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &domain.ProviderError{Provider: falqName, StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return &domain.ProviderError{Provider: falqName, StatusCode: resp.StatusCode, Body: "malformed response body: " + err.Error()}
		}
	}
	return nil
}

var _ Adapter = (*FalQueue)(nil)

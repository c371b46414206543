package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/aahadr1/AdsCreator-sub003/internal/domain"
	"github.com/aahadr1/AdsCreator-sub003/internal/http/handlers"
	"github.com/aahadr1/AdsCreator-sub003/internal/http/httpapi"
	"github.com/aahadr1/AdsCreator-sub003/internal/jobstore"
	"github.com/aahadr1/AdsCreator-sub003/internal/pipeline"
	"github.com/aahadr1/AdsCreator-sub003/internal/poller"
	"github.com/aahadr1/AdsCreator-sub003/internal/provider"
	"github.com/aahadr1/AdsCreator-sub003/internal/ratelimit"
)

type stubAdapter struct {
	submitID string
	result   provider.PollResult
}

func (s *stubAdapter) Name() string { return "stub" }

func (s *stubAdapter) Submit(ctx context.Context, kind domain.JobKind, modelRef string, input map[string]any) (string, error) {
	return s.submitID, nil
}

func (s *stubAdapter) Poll(ctx context.Context, jobID string) (provider.PollResult, error) {
	return s.result, nil
}

type stubRetriever struct{}

func (stubRetriever) ForSegment(ctx context.Context, owner string, seg domain.ScriptSegment) (domain.SegmentCandidates, bool) {
	return domain.SegmentCandidates{
		Segment:    seg,
		Candidates: []domain.AssetCandidate{{AssetID: "asset-1", Score: 0.9}},
	}, false
}

type stubRanker struct{}

func (stubRanker) Rank(ctx context.Context, segments []domain.SegmentCandidates) ([]domain.SequenceChoice, error) {
	var choices []domain.SequenceChoice
	for _, seg := range segments {
		choices = append(choices, domain.SequenceChoice{
			SegmentID:     seg.Segment.Index,
			ChosenAssetID: seg.Candidates[0].AssetID,
		})
	}
	return choices, nil
}

type testEnv struct {
	server  *httptest.Server
	adapter *stubAdapter
	client  *redis.Client
}

func newEnv(t *testing.T, limiterCapacity int) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	adapter := &stubAdapter{submitID: "native-123", result: provider.PollResult{Status: domain.JobStatusQueued, NativeStatus: "starting"}}
	registry := provider.NewRegistry(adapter)
	jobs := jobstore.New(client)

	app := &handlers.App{
		Jobs:     jobs,
		Registry: registry,
		Poller:   poller.New(registry, jobs, nil, poller.Options{Interval: time.Millisecond, Budget: time.Second}, zerolog.Nop()),
		Pipeline: pipeline.New(stubRetriever{}, stubRanker{}, nil, zerolog.Nop()),
		Logger:   zerolog.Nop(),
	}
	if limiterCapacity > 0 {
		app.Limiter = ratelimit.NewSubmitLimiter(client, limiterCapacity, 0.001, time.Minute)
	}

	srv := httptest.NewServer(httpapi.NewRouter(app))
	t.Cleanup(srv.Close)
	return &testEnv{server: srv, adapter: adapter, client: client}
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestSubmitJobCreatesRecordUnderProviderID(t *testing.T) {
	env := newEnv(t, 0)
	resp := postJSON(t, env.server.URL+"/v1/jobs",
		`{"owner":"o1","kind":"video","provider":"stub","model_ref":"some/model","input":{"prompt":"hi"}}`)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var job domain.GenerationJob
	decodeBody(t, resp, &job)
	if job.ID != "native-123" {
		t.Fatalf("id = %q", job.ID)
	}
	if job.Status != domain.JobStatusQueued {
		t.Fatalf("status = %q", job.Status)
	}
}

func TestSubmitJobRejectsUnknownKind(t *testing.T) {
	env := newEnv(t, 0)
	resp := postJSON(t, env.server.URL+"/v1/jobs", `{"kind":"hologram","provider":"stub"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var envelope struct {
		Error struct {
			Kind    string `json:"kind"`
			Message string `json:"message"`
		} `json:"error"`
	}
	decodeBody(t, resp, &envelope)
	if envelope.Error.Kind != "validation" {
		t.Fatalf("error kind = %q", envelope.Error.Kind)
	}
}

func TestGetJobUnknownIDReturnsNotFoundEnvelope(t *testing.T) {
	env := newEnv(t, 0)
	resp, err := http.Get(env.server.URL + "/v1/jobs/missing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var envelope struct {
		Error struct {
			Kind string `json:"kind"`
		} `json:"error"`
	}
	decodeBody(t, resp, &envelope)
	if envelope.Error.Kind != "not_found" {
		t.Fatalf("error kind = %q", envelope.Error.Kind)
	}
}

func TestPollJobPersistsProgress(t *testing.T) {
	env := newEnv(t, 0)
	postJSON(t, env.server.URL+"/v1/jobs", `{"kind":"video","provider":"stub","model_ref":"m"}`)

	env.adapter.result = provider.PollResult{
		Status:       domain.JobStatusSucceeded,
		NativeStatus: "succeeded",
		OutputURL:    "https://cdn.example/out.mp4",
	}
	resp := postJSON(t, env.server.URL+"/v1/jobs/native-123/poll", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var job domain.GenerationJob
	decodeBody(t, resp, &job)
	if job.Status != domain.JobStatusSucceeded || job.OutputURL == "" {
		t.Fatalf("job = %+v", job)
	}
}

func TestSubmitJobRateLimited(t *testing.T) {
	env := newEnv(t, 1)
	body := `{"owner":"o1","kind":"image","provider":"stub","model_ref":"m"}`

	if resp := postJSON(t, env.server.URL+"/v1/jobs", body); resp.StatusCode != http.StatusAccepted {
		t.Fatalf("first submission status = %d", resp.StatusCode)
	}
	resp := postJSON(t, env.server.URL+"/v1/jobs", body)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second submission status = %d", resp.StatusCode)
	}
}

func TestSequenceEndpointReturnsChoices(t *testing.T) {
	env := newEnv(t, 0)
	resp := postJSON(t, env.server.URL+"/v1/sequence",
		`{"owner":"o1","segments":[{"index":0,"text":"open on the product"}]}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var result pipeline.SequenceResult
	decodeBody(t, resp, &result)
	if len(result.Choices) != 1 || result.Choices[0].ChosenAssetID != "asset-1" {
		t.Fatalf("result = %+v", result)
	}
}

func TestHealthz(t *testing.T) {
	env := newEnv(t, 0)
	resp, err := http.Get(env.server.URL + "/v1/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aahadr1/AdsCreator-sub003/internal/domain"
)

func TestExtractOutputURL(t *testing.T) {
	cases := []struct {
		name   string
		output any
		want   string
	}{
		{"bare string", "https://x/out.mp4", "https://x/out.mp4"},
		{"padded string", "  https://x/out.mp4 ", "https://x/out.mp4"},
		{"array of strings", []any{"https://x/a.png", "https://x/b.png"}, "https://x/a.png"},
		{"empty array", []any{}, ""},
		{"object with url", map[string]any{"url": "https://x/v.mp4"}, "https://x/v.mp4"},
		{"nested video object", map[string]any{"video": map[string]any{"url": "https://x/v.mp4"}}, "https://x/v.mp4"},
		{"object with output array", map[string]any{"output": []any{"https://x/o.png"}}, "https://x/o.png"},
		{"nil", nil, ""},
		{"number", 42.0, ""},
		{"object without url-like field", map[string]any{"meta": "x"}, ""},
	}
	for _, tc := range cases {
		if got := ExtractOutputURL(tc.output); got != tc.want {
			t.Fatalf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestReplicateSubmitAndPoll(t *testing.T) {
	var polls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/predictions":
			var req map[string]any
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatalf("decode submit: %v", err)
			}
			if req["version"] != "owner/model:abc" {
				t.Fatalf("version = %v", req["version"])
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "pred-1", "status": "starting"})
		case r.Method == http.MethodGet && r.URL.Path == "/predictions/pred-1":
			polls++
			status := "processing"
			var output any
			if polls >= 2 {
				status = "succeeded"
				output = []any{"https://replicate.delivery/out.mp4"}
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "pred-1", "status": status, "output": output})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	adapter := NewReplicate(ReplicateOptions{APIToken: "t", BaseURL: srv.URL})
	ctx := context.Background()

	id, err := adapter.Submit(ctx, domain.JobKindVideo, "owner/model:abc", map[string]any{"prompt": "a fox"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if id != "pred-1" {
		t.Fatalf("id = %q", id)
	}

	res, err := adapter.Poll(ctx, id)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if res.Status != domain.JobStatusRunning || res.OutputURL != "" {
		t.Fatalf("first poll = %+v", res)
	}

	res, err = adapter.Poll(ctx, id)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if res.Status != domain.JobStatusSucceeded {
		t.Fatalf("status = %s, want succeeded", res.Status)
	}
	if res.OutputURL != "https://replicate.delivery/out.mp4" {
		t.Fatalf("output url = %q", res.OutputURL)
	}
}

func TestReplicateTransportFailureIsProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"invalid token"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	adapter := NewReplicate(ReplicateOptions{BaseURL: srv.URL})
	_, err := adapter.Poll(context.Background(), "pred-x")
	pe, ok := domain.IsProviderError(err)
	if !ok {
		t.Fatalf("err = %v, want ProviderError", err)
	}
	if pe.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status code = %d", pe.StatusCode)
	}
	if pe.Body == "" {
		t.Fatalf("expected raw body to be carried")
	}
}

func TestUnknownNativeStatusMapsToQueuedAndIsFlagged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"request_id": "rq-1", "status": "WARMING_UP"})
	}))
	defer srv.Close()

	adapter := NewFalQueue(FalQueueOptions{BaseURL: srv.URL})
	res, err := adapter.Poll(context.Background(), "rq-1")
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if res.Status != domain.JobStatusQueued {
		t.Fatalf("status = %s, want queued", res.Status)
	}
	if !res.UnknownStatus {
		t.Fatalf("expected unknown status flag")
	}
	if res.NativeStatus != "WARMING_UP" {
		t.Fatalf("native status = %q", res.NativeStatus)
	}
}

func TestFalQueueCompletedExtractsNestedURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"request_id": "rq-2",
			"status":     "COMPLETED",
			"response": map[string]any{
				"video": map[string]any{"url": "https://fal.media/out.mp4"},
			},
		})
	}))
	defer srv.Close()

	adapter := NewFalQueue(FalQueueOptions{BaseURL: srv.URL})
	res, err := adapter.Poll(context.Background(), "rq-2")
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if res.Status != domain.JobStatusSucceeded || res.OutputURL != "https://fal.media/out.mp4" {
		t.Fatalf("result = %+v", res)
	}
}

func TestRegistryResolvesByName(t *testing.T) {
	reg := NewRegistry(NewReplicate(ReplicateOptions{}), NewFalQueue(FalQueueOptions{}))
	if _, err := reg.Get("replicate"); err != nil {
		t.Fatalf("get replicate: %v", err)
	}
	if _, err := reg.Get(" FALQ "); err != nil {
		t.Fatalf("get falq (padded): %v", err)
	}
	if _, err := reg.Get("midjourney"); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

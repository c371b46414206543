package ranker

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/aahadr1/AdsCreator-sub003/internal/domain"
)

type fixedCompleter struct {
	reply string
	err   error
}

func (f *fixedCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	return f.reply, f.err
}

func segmentsFixture() []domain.SegmentCandidates {
	return []domain.SegmentCandidates{
		{
			Segment: domain.ScriptSegment{Index: 0, Text: "open on the product"},
			Candidates: []domain.AssetCandidate{
				{AssetID: "hero", Score: 0.8},
				{AssetID: "closeup", Score: 0.6},
			},
		},
		{
			Segment: domain.ScriptSegment{Index: 1, Text: "show it in use"},
			Candidates: []domain.AssetCandidate{
				{AssetID: "hands", Score: 0.7},
			},
		},
	}
}

func TestExtractChoicesDirectParse(t *testing.T) {
	raw := `{"items":[{"segment_id":0,"chosen_asset_id":"hero","rationale":"opens strong","confidence":0.9}]}`
	got := ExtractChoices(raw)
	if len(got) != 1 {
		t.Fatalf("choices = %v", got)
	}
	if got[0].ChosenAssetID != "hero" || got[0].Confidence != 0.9 {
		t.Fatalf("choice = %+v", got[0])
	}
}

func TestExtractChoicesLegacyShape(t *testing.T) {
	raw := `{"choices":[{"segment_id":0,"asset_id":"hero","confidence":0.9}]}`
	got := ExtractChoices(raw)
	if len(got) != 1 || got[0].ChosenAssetID != "hero" {
		t.Fatalf("choices = %v", got)
	}
}

func TestExtractChoicesFromProse(t *testing.T) {
	raw := "Sure! Here is my selection:\n" +
		`{"items":[{"segment_id":1,"chosen_asset_id":"hands","confidence":0.7}]}` +
		"\nLet me know if you want alternatives."
	got := ExtractChoices(raw)
	if len(got) != 1 || got[0].ChosenAssetID != "hands" {
		t.Fatalf("choices = %v", got)
	}
}

func TestExtractChoicesFromFencedBlock(t *testing.T) {
	raw := "```json\n{\"items\":[{\"segment_id\":0,\"chosen_asset_id\":\"hero\",\"confidence\":2.5}]}\n```"
	got := ExtractChoices(raw)
	if len(got) != 1 {
		t.Fatalf("choices = %v", got)
	}
	if got[0].Confidence != 1 {
		t.Fatalf("confidence = %v, want clamped to 1", got[0].Confidence)
	}
}

func TestExtractChoicesGarbageYieldsNothing(t *testing.T) {
	for _, raw := range []string{"", "no json here", "{broken", `{"items":[]}`, `{"choices":[]}`} {
		if got := ExtractChoices(raw); got != nil {
			t.Fatalf("ExtractChoices(%q) = %v, want nil", raw, got)
		}
	}
}

func TestRankKeepsValidModelAnswers(t *testing.T) {
	reply := `{"items":[` +
		`{"segment_id":0,"chosen_asset_id":"closeup","rationale":"tighter framing","confidence":0.8},` +
		`{"segment_id":1,"chosen_asset_id":"hands","rationale":"in use","confidence":0.9}]}`
	r := New(&fixedCompleter{reply: reply}, zerolog.Nop())

	got, err := r.Rank(context.Background(), segmentsFixture())
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("choices = %v", got)
	}
	if got[0].ChosenAssetID != "closeup" || got[1].ChosenAssetID != "hands" {
		t.Fatalf("choices = %+v", got)
	}
	if got[0].Fallback || got[1].Fallback {
		t.Fatalf("model answers marked as fallback: %+v", got)
	}
}

func TestRankHonorsInstructedSchema(t *testing.T) {
	reply := `{"items":[{"segment_id":0,"chosen_asset_id":"closeup","rationale":"tight","confidence":0.8}]}`
	r := New(&fixedCompleter{reply: reply}, zerolog.Nop())

	got, err := r.Rank(context.Background(), segmentsFixture())
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if got[0].ChosenAssetID != "closeup" || got[0].Fallback {
		t.Fatalf("segment 0 choice = %+v, want the model's answer", got[0])
	}
}

func TestRankDropsOutOfSetAnswers(t *testing.T) {
	reply := `{"items":[{"segment_id":0,"chosen_asset_id":"fabricated","confidence":0.99}]}`
	r := New(&fixedCompleter{reply: reply}, zerolog.Nop())

	got, err := r.Rank(context.Background(), segmentsFixture())
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if got[0].ChosenAssetID != "hero" {
		t.Fatalf("segment 0 choice = %+v, want top-scored fallback", got[0])
	}
	if got[0].Confidence != 0 || !got[0].Fallback {
		t.Fatalf("fallback choice = %+v", got[0])
	}
}

func TestRankTransportFailureFallsBack(t *testing.T) {
	r := New(&fixedCompleter{err: errors.New("connection refused")}, zerolog.Nop())

	got, err := r.Rank(context.Background(), segmentsFixture())
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("choices = %v", got)
	}
	if got[0].ChosenAssetID != "hero" || got[1].ChosenAssetID != "hands" {
		t.Fatalf("choices = %+v", got)
	}
	for _, c := range got {
		if !c.Fallback {
			t.Fatalf("choice %+v not marked as fallback", c)
		}
	}
}

func TestRankSkipsSegmentsWithoutCandidates(t *testing.T) {
	segments := []domain.SegmentCandidates{
		{Segment: domain.ScriptSegment{Index: 0, Text: "no footage matched"}},
	}
	r := New(&fixedCompleter{reply: `{"items":[]}`}, zerolog.Nop())

	got, err := r.Rank(context.Background(), segments)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if got != nil {
		t.Fatalf("choices = %v, want none", got)
	}
}

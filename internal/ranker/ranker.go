package ranker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aahadr1/AdsCreator-sub003/internal/domain"
)

const systemPrompt = "You are a video editor choosing footage for an ad. " +
	"Respond strictly with valid JSON and never pick an asset that was not offered."

// Completer is the chat surface the ranker needs.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Ranker maps segments to chosen assets.
type Ranker struct {
	client Completer
	logger zerolog.Logger
}

// New builds a ranker.
func New(client Completer, logger zerolog.Logger) *Ranker {
	return &Ranker{client: client, logger: logger}
}

// Rank returns exactly one choice per segment that has candidates, in
// segment order. Model answers that reference unknown assets or unknown
// segments are dropped; any segment left without a valid answer falls back
// to its highest-scored candidate with a zero confidence. Segments with no
// candidates are skipped entirely. A transport failure degrades the whole
// run to the fallback, not an error.
func (r *Ranker) Rank(ctx context.Context, segments []domain.SegmentCandidates) ([]domain.SequenceChoice, error) {
	eligible := make([]domain.SegmentCandidates, 0, len(segments))
	for _, seg := range segments {
		if len(seg.Candidates) > 0 {
			eligible = append(eligible, seg)
		}
	}
	if len(eligible) == 0 {
		return nil, nil
	}

	allowed := make(map[int]map[string]struct{}, len(eligible))
	for _, seg := range eligible {
		set := make(map[string]struct{}, len(seg.Candidates))
		for _, c := range seg.Candidates {
			set[c.AssetID] = struct{}{}
		}
		allowed[seg.Segment.Index] = set
	}

	byID := make(map[int]domain.SequenceChoice)
	raw, err := r.client.Complete(ctx, systemPrompt, buildPrompt(eligible))
	if err != nil {
		r.logger.Warn().Err(err).Msg("ranking model unavailable, falling back to top-scored candidates")
	} else {
		for _, choice := range ExtractChoices(raw) {
			set, ok := allowed[choice.SegmentID]
			if !ok {
				r.logger.Warn().Int("segment", choice.SegmentID).Msg("model answered for an unknown segment")
				continue
			}
			if _, ok := set[choice.ChosenAssetID]; !ok {
				r.logger.Warn().
					Int("segment", choice.SegmentID).
					Str("asset_id", choice.ChosenAssetID).
					Msg("model chose an asset outside the candidate set")
				continue
			}
			byID[choice.SegmentID] = choice
		}
	}

	choices := make([]domain.SequenceChoice, 0, len(eligible))
	for _, seg := range eligible {
		if choice, ok := byID[seg.Segment.Index]; ok {
			choices = append(choices, choice)
			continue
		}
		choices = append(choices, fallbackChoice(seg))
	}
	return choices, nil
}

func fallbackChoice(seg domain.SegmentCandidates) domain.SequenceChoice {
	best := seg.Candidates[0]
	for _, c := range seg.Candidates[1:] {
		if c.Score > best.Score {
			best = c
		}
	}
	return domain.SequenceChoice{
		SegmentID:     seg.Segment.Index,
		ChosenAssetID: best.AssetID,
		Rationale:     "highest similarity candidate (model answer unavailable)",
		Confidence:    0,
		Fallback:      true,
	}
}

// buildPrompt lays out segments and their candidates plus the exact answer
// schema. Candidate descriptions go through json.Marshal so model-hostile
// text cannot break the prompt structure.
func buildPrompt(segments []domain.SegmentCandidates) string {
	sb := &strings.Builder{}
	sb.WriteString("Pick the single best asset for every segment below. Respond strictly as JSON: ")
	sb.WriteString(`{"items":[{"segment_id":number,"chosen_asset_id":string,"rationale":string,"confidence":number}]}`)
	sb.WriteString(". Confidence is 0..1. Use only the asset ids offered for that segment.\n")
	for _, seg := range segments {
		fmt.Fprintf(sb, "\nSegment %d:", seg.Segment.Index)
		if text, err := json.Marshal(seg.Segment.Text); err == nil {
			fmt.Fprintf(sb, " text=%s", text)
		}
		if seg.Segment.Intent != "" {
			if intent, err := json.Marshal(seg.Segment.Intent); err == nil {
				fmt.Fprintf(sb, " intent=%s", intent)
			}
		}
		sb.WriteString("\n  candidates:")
		for _, c := range seg.Candidates {
			fmt.Fprintf(sb, "\n  - id=%s score=%.3f", c.AssetID, c.Score)
		}
	}
	return sb.String()
}

package ranker

import (
	"encoding/json"
	"strings"

	"github.com/aahadr1/AdsCreator-sub003/internal/domain"
)

type itemsPayload struct {
	Items []itemPayload `json:"items"`
}

type itemPayload struct {
	SegmentID     int     `json:"segment_id"`
	ChosenAssetID string  `json:"chosen_asset_id"`
	AssetID       string  `json:"asset_id"`
	Rationale     string  `json:"rationale"`
	Confidence    float64 `json:"confidence"`
}

// legacy shape some models answer with despite the instructed schema
type choicesPayload struct {
	Choices []itemPayload `json:"choices"`
}

// ExtractChoices recovers sequence choices from raw model text. It tries a
// direct parse first, then the fragment between the first '{' and the last
// '}', then the contents of a fenced code block. The instructed shape is
// {"items":[{"segment_id","chosen_asset_id",...}]}; a "choices" wrapper and
// an "asset_id" key are tolerated as well. Nothing recoverable means an
// empty slice, never an error: the caller substitutes defaults.
func ExtractChoices(raw string) []domain.SequenceChoice {
	for _, candidate := range []string{
		raw,
		braceFragment(raw),
		braceFragment(trimCodeFence(raw)),
	} {
		if candidate == "" {
			continue
		}
		if choices := parseItems(candidate); len(choices) > 0 {
			return choices
		}
	}
	return nil
}

func parseItems(text string) []domain.SequenceChoice {
	var items []itemPayload

	var instructed itemsPayload
	if err := json.Unmarshal([]byte(text), &instructed); err == nil && len(instructed.Items) > 0 {
		items = instructed.Items
	} else {
		var legacy choicesPayload
		if err := json.Unmarshal([]byte(text), &legacy); err != nil || len(legacy.Choices) == 0 {
			return nil
		}
		items = legacy.Choices
	}

	choices := make([]domain.SequenceChoice, 0, len(items))
	for _, item := range items {
		assetID := item.ChosenAssetID
		if assetID == "" {
			assetID = item.AssetID
		}
		if assetID == "" {
			continue
		}
		choices = append(choices, domain.SequenceChoice{
			SegmentID:     item.SegmentID,
			ChosenAssetID: assetID,
			Rationale:     item.Rationale,
			Confidence:    clampConfidence(item.Confidence),
		})
	}
	return choices
}

func braceFragment(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	idx := strings.Index(trimmed, "```")
	if idx < 0 {
		return trimmed
	}
	trimmed = trimmed[idx+3:]
	trimmed = strings.TrimPrefix(trimmed, "json")
	trimmed = strings.TrimPrefix(trimmed, "JSON")
	if end := strings.Index(trimmed, "```"); end >= 0 {
		trimmed = trimmed[:end]
	}
	return strings.TrimSpace(trimmed)
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

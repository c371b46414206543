package domain

import "sort"

// ScriptSegment is a contiguous span of a script with the semantic
// annotations produced by segmentation. Index defines playback order and is
// load-bearing for assembly.
type ScriptSegment struct {
	Index       int      `json:"index"`
	Text        string   `json:"text"`
	Intent      string   `json:"intent,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
	VisualStyle string   `json:"visual_style,omitempty"`
}

// NormalizeSegments sorts segments by index and renumbers them into a
// gapless zero-based sequence. Downstream consumers assume total order with
// no gaps, so this runs before any retrieval or assembly.
func NormalizeSegments(segments []ScriptSegment) []ScriptSegment {
	out := make([]ScriptSegment, len(segments))
	copy(out, segments)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	for i := range out {
		out[i].Index = i
	}
	return out
}

// AssetCandidate is a scored association between a segment and a pool
// asset. Within one segment's candidate set, candidates are ordered by
// descending score with ties broken by first-seen input order.
type AssetCandidate struct {
	AssetID string  `json:"asset_id"`
	Score   float64 `json:"score"`
}

// SegmentCandidates pairs a segment with its ranked candidate set.
type SegmentCandidates struct {
	Segment    ScriptSegment    `json:"segment"`
	Candidates []AssetCandidate `json:"candidates"`
}

// SequenceChoice is the ranker's decision for one segment. Confidence is
// advisory only and never blocks persistence. Fallback marks choices the
// ranker substituted itself rather than took from a model answer.
type SequenceChoice struct {
	SegmentID     int     `json:"segment_id"`
	ChosenAssetID string  `json:"chosen_asset_id"`
	Rationale     string  `json:"rationale,omitempty"`
	Confidence    float64 `json:"confidence,omitempty"`
	Fallback      bool    `json:"fallback,omitempty"`
}

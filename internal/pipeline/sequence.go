// Package pipeline runs script segments through retrieval and ranking to
// produce an ordered asset sequence. Individual segments degrade to empty
// candidate sets instead of failing the run; the result marks which ones.
package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aahadr1/AdsCreator-sub003/internal/domain"
)

// SegmentRetriever resolves candidates for one segment. The bool reports
// degradation.
type SegmentRetriever interface {
	ForSegment(ctx context.Context, owner string, seg domain.ScriptSegment) (domain.SegmentCandidates, bool)
}

// Ranker picks one asset per segment.
type Ranker interface {
	Rank(ctx context.Context, segments []domain.SegmentCandidates) ([]domain.SequenceChoice, error)
}

// ChoiceSaver persists the decisions of a run.
type ChoiceSaver interface {
	SaveAll(ctx context.Context, sequenceID, owner string, choices []domain.SequenceChoice) error
}

// SequenceResult is the outcome of one sequencing run.
type SequenceResult struct {
	SequenceID string                  `json:"sequence_id"`
	Choices    []domain.SequenceChoice `json:"choices"`
	// Degraded lists segment indices that produced no candidates and
	// therefore have no choice.
	Degraded []int `json:"degraded,omitempty"`
}

// Pipeline wires the sequencing stages.
type Pipeline struct {
	retriever SegmentRetriever
	ranker    Ranker
	saver     ChoiceSaver
	logger    zerolog.Logger
}

// New builds a pipeline. saver may be nil to skip persistence.
func New(retriever SegmentRetriever, ranker Ranker, saver ChoiceSaver, logger zerolog.Logger) *Pipeline {
	return &Pipeline{retriever: retriever, ranker: ranker, saver: saver, logger: logger}
}

// Sequence normalizes the segments, retrieves candidates for each one
// concurrently, ranks them and persists the decisions. Retrieval failures
// mark the segment degraded; only an empty script or a store-level failure
// aborts the run.
func (p *Pipeline) Sequence(ctx context.Context, owner string, segments []domain.ScriptSegment) (*SequenceResult, error) {
	segments = domain.NormalizeSegments(segments)
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: script has no segments", domain.ErrValidation)
	}

	candidates := make([]domain.SegmentCandidates, len(segments))
	degradedFlags := make([]bool, len(segments))

	var wg sync.WaitGroup
	for i, seg := range segments {
		wg.Add(1)
		go func(i int, seg domain.ScriptSegment) {
			defer wg.Done()
			candidates[i], degradedFlags[i] = p.retriever.ForSegment(ctx, owner, seg)
		}(i, seg)
	}
	wg.Wait()

	choices, err := p.ranker.Rank(ctx, candidates)
	if err != nil {
		return nil, fmt.Errorf("rank segments: %w", err)
	}

	result := &SequenceResult{
		SequenceID: uuid.NewString(),
		Choices:    choices,
	}
	for i, degraded := range degradedFlags {
		if degraded {
			result.Degraded = append(result.Degraded, segments[i].Index)
		}
	}

	if p.saver != nil && len(choices) > 0 {
		if err := p.saver.SaveAll(ctx, result.SequenceID, owner, choices); err != nil {
			// The choices are still usable; losing the audit trail is not
			// worth failing the request over.
			p.logger.Warn().Err(err).Str("sequence_id", result.SequenceID).Msg("persisting sequence choices failed")
		}
	}
	return result, nil
}

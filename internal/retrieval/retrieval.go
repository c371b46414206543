// Package retrieval finds pool assets that match a script segment. The
// primary path ranks inside PostgreSQL; when that fails the segment falls
// back to an in-process cosine scan over a bounded slice of the pool, and
// when even that fails the segment degrades to an empty candidate list
// rather than failing the whole run.
package retrieval

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/text/cases"

	"github.com/aahadr1/AdsCreator-sub003/internal/domain"
	"github.com/aahadr1/AdsCreator-sub003/internal/embeddings"
	"github.com/aahadr1/AdsCreator-sub003/internal/telemetry"
)

// Embedder turns text into a query vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher ranks an owner's assets against a query vector server-side.
type Searcher interface {
	SearchByEmbedding(ctx context.Context, owner string, query []float32, k int) ([]domain.AssetCandidate, error)
}

// Lister reads a bounded slice of the owner's pool for the fallback scan.
type Lister interface {
	ListByOwner(ctx context.Context, owner string, limit int) ([]domain.PoolAsset, error)
}

// Options tunes retrieval.
type Options struct {
	// TopK is the number of candidates returned per segment. Defaults to 10.
	TopK int
	// PoolLimit bounds the fallback scan. Defaults to 200.
	PoolLimit int
}

// Retriever resolves candidates for script segments.
type Retriever struct {
	embedder  Embedder
	searcher  Searcher
	lister    Lister
	topK      int
	poolLimit int
	logger    zerolog.Logger
}

// New builds a retriever. searcher may be nil to force the fallback path.
func New(embedder Embedder, searcher Searcher, lister Lister, opts Options, logger zerolog.Logger) *Retriever {
	topK := opts.TopK
	if topK <= 0 {
		topK = 10
	}
	poolLimit := opts.PoolLimit
	if poolLimit <= 0 {
		poolLimit = 200
	}
	return &Retriever{
		embedder:  embedder,
		searcher:  searcher,
		lister:    lister,
		topK:      topK,
		poolLimit: poolLimit,
		logger:    logger,
	}
}

var foldCaser = cases.Fold()

// BuildQuery flattens a segment into the text that gets embedded. Fields
// are newline-joined, empty fields are skipped, and keywords that fold to
// the same form are emitted once.
func BuildQuery(seg domain.ScriptSegment) string {
	var parts []string
	if s := strings.TrimSpace(seg.Text); s != "" {
		parts = append(parts, s)
	}
	if s := strings.TrimSpace(seg.Intent); s != "" {
		parts = append(parts, s)
	}
	if len(seg.Keywords) > 0 {
		seen := make(map[string]struct{}, len(seg.Keywords))
		var kept []string
		for _, kw := range seg.Keywords {
			kw = strings.TrimSpace(kw)
			if kw == "" {
				continue
			}
			folded := foldCaser.String(kw)
			if _, ok := seen[folded]; ok {
				continue
			}
			seen[folded] = struct{}{}
			kept = append(kept, kw)
		}
		if len(kept) > 0 {
			parts = append(parts, strings.Join(kept, ", "))
		}
	}
	if s := strings.TrimSpace(seg.VisualStyle); s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, "\n")
}

// ForSegment returns ranked candidates for one segment. The second return
// reports degradation: true means the pipeline should carry the segment
// forward with no candidates instead of aborting.
func (r *Retriever) ForSegment(ctx context.Context, owner string, seg domain.ScriptSegment) (domain.SegmentCandidates, bool) {
	out := domain.SegmentCandidates{Segment: seg}

	query := BuildQuery(seg)
	if query == "" {
		return out, true
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.degraded(seg.Index, "embed segment query", err)
		return out, true
	}

	if r.searcher != nil {
		candidates, err := r.searcher.SearchByEmbedding(ctx, owner, vector, r.topK)
		if err == nil {
			out.Candidates = candidates
			return out, false
		}
		r.logger.Warn().Err(err).Int("segment", seg.Index).Msg("vector search failed, scanning pool in process")
	}

	candidates, err := r.scanPool(ctx, owner, vector)
	if err != nil {
		r.degraded(seg.Index, "fallback pool scan", err)
		return out, true
	}
	out.Candidates = candidates
	return out, false
}

// scanPool ranks a bounded slice of the owner's pool in process.
func (r *Retriever) scanPool(ctx context.Context, owner string, vector []float32) ([]domain.AssetCandidate, error) {
	assets, err := r.lister.ListByOwner(ctx, owner, r.poolLimit)
	if err != nil {
		return nil, err
	}

	scored := make([]embeddings.Scored, 0, len(assets))
	for _, asset := range assets {
		if len(asset.Embedding) == 0 {
			continue
		}
		scored = append(scored, embeddings.Scored{
			ID:    asset.ID,
			Score: embeddings.CosineSimilarity(vector, asset.Embedding),
		})
	}

	top := embeddings.TopK(scored, r.topK)
	candidates := make([]domain.AssetCandidate, len(top))
	for i, s := range top {
		candidates[i] = domain.AssetCandidate{AssetID: s.ID, Score: s.Score}
	}
	return candidates, nil
}

func (r *Retriever) degraded(segment int, stage string, err error) {
	telemetry.DegradedSegments.Inc()
	r.logger.Warn().Err(err).Int("segment", segment).Str("stage", stage).Msg("segment degraded to empty candidates")
}

package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aahadr1/AdsCreator-sub003/internal/domain"
)

// ChoiceRepositoryPG persists ranked segment-to-asset decisions.
type ChoiceRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewChoiceRepository constructs the repository.
func NewChoiceRepository(pool *pgxpool.Pool) *ChoiceRepositoryPG {
	return &ChoiceRepositoryPG{pool: pool}
}

// SaveAll stores the choices for a sequencing run. Re-running the same
// sequence id overwrites the previous decision per segment.
func (r *ChoiceRepositoryPG) SaveAll(ctx context.Context, sequenceID, owner string, choices []domain.SequenceChoice) error {
	if len(choices) == 0 {
		return nil
	}
	query := `
INSERT INTO sequence_choices (sequence_id, owner_id, segment_id, asset_id, rationale, confidence, fallback)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (sequence_id, segment_id) DO UPDATE SET
    asset_id = EXCLUDED.asset_id,
    rationale = EXCLUDED.rationale,
    confidence = EXCLUDED.confidence,
    fallback = EXCLUDED.fallback;
`
	for _, choice := range choices {
		c := choice
		if _, err := r.pool.Exec(ctx, query, sequenceID, owner, c.SegmentID, c.ChosenAssetID, c.Rationale, c.Confidence, c.Fallback); err != nil {
			return err
		}
	}
	return nil
}

// ListBySequence returns the stored choices in segment order.
func (r *ChoiceRepositoryPG) ListBySequence(ctx context.Context, sequenceID string) ([]domain.SequenceChoice, error) {
	rows, err := r.pool.Query(ctx, `
SELECT segment_id, asset_id, rationale, confidence, fallback
FROM sequence_choices
WHERE sequence_id = $1
ORDER BY segment_id ASC;
`, sequenceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var choices []domain.SequenceChoice
	for rows.Next() {
		var c domain.SequenceChoice
		if err := rows.Scan(&c.SegmentID, &c.ChosenAssetID, &c.Rationale, &c.Confidence, &c.Fallback); err != nil {
			return nil, err
		}
		choices = append(choices, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return choices, nil
}

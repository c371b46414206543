package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aahadr1/AdsCreator-sub003/internal/domain"
)

// AssetRepositoryPG stores pool assets and their embeddings in PostgreSQL.
type AssetRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewAssetRepository constructs a new asset repository instance.
func NewAssetRepository(pool *pgxpool.Pool) *AssetRepositoryPG {
	return &AssetRepositoryPG{pool: pool}
}

// Save persists an asset, replacing any existing row with the same id.
func (r *AssetRepositoryPG) Save(ctx context.Context, asset *domain.PoolAsset) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO pool_assets (id, owner_id, url, media_type, description, tags, embedding)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
    url = EXCLUDED.url,
    media_type = EXCLUDED.media_type,
    description = EXCLUDED.description,
    tags = EXCLUDED.tags,
    embedding = EXCLUDED.embedding;
`, asset.ID, asset.Owner, asset.URL, asset.MediaType, asset.Description, asset.Tags, asset.Embedding)
	return err
}

// GetByID returns a single asset.
func (r *AssetRepositoryPG) GetByID(ctx context.Context, id string) (*domain.PoolAsset, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, owner_id, url, media_type, description, tags, embedding, created_at
FROM pool_assets
WHERE id = $1;
`, id)

	var asset domain.PoolAsset
	if err := row.Scan(&asset.ID, &asset.Owner, &asset.URL, &asset.MediaType, &asset.Description, &asset.Tags, &asset.Embedding, &asset.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &asset, nil
}

// ListByOwner returns up to limit assets for the owner, newest first. The
// limit bounds how much the in-process similarity fallback has to scan.
func (r *AssetRepositoryPG) ListByOwner(ctx context.Context, owner string, limit int) ([]domain.PoolAsset, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, owner_id, url, media_type, description, tags, embedding, created_at
FROM pool_assets
WHERE owner_id = $1
ORDER BY created_at DESC
LIMIT $2;
`, owner, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []domain.PoolAsset
	for rows.Next() {
		var asset domain.PoolAsset
		if err := rows.Scan(&asset.ID, &asset.Owner, &asset.URL, &asset.MediaType, &asset.Description, &asset.Tags, &asset.Embedding, &asset.CreatedAt); err != nil {
			return nil, err
		}
		assets = append(assets, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return assets, nil
}

// SearchByEmbedding ranks the owner's assets against the query vector with
// the match_assets SQL function and returns at most k candidates.
func (r *AssetRepositoryPG) SearchByEmbedding(ctx context.Context, owner string, query []float32, k int) ([]domain.AssetCandidate, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, similarity
FROM match_assets($1, $2, $3);
`, query, k, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []domain.AssetCandidate
	for rows.Next() {
		var c domain.AssetCandidate
		if err := rows.Scan(&c.AssetID, &c.Score); err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return candidates, nil
}

package domain

import "time"

// PoolAsset is a media asset in the retrieval pool with a precomputed
// embedding. Embedding length can vary across index-schema versions; the
// retriever treats mismatched lengths as zero similarity rather than an
// error.
type PoolAsset struct {
	ID          string    `json:"id"`
	Owner       string    `json:"owner,omitempty"`
	URL         string    `json:"url"`
	MediaType   string    `json:"media_type,omitempty"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Embedding   []float32 `json:"embedding,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

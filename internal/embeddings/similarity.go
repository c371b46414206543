package embeddings

import (
	"math"
	"sort"
)

// CosineSimilarity returns the cosine of the angle between two vectors.
// Mismatched lengths and zero-magnitude vectors score 0 rather than
// producing NaN or a panic.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Scored pairs an identifier with a similarity score.
type Scored struct {
	ID    string
	Score float64
}

// TopK returns the k highest-scored entries in descending score order.
// Ties keep their original relative order so results are deterministic.
func TopK(scored []Scored, k int) []Scored {
	if k <= 0 {
		return nil
	}
	out := make([]Scored, len(scored))
	copy(out, scored)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > k {
		out = out[:k]
	}
	return out
}

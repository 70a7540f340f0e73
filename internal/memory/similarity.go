package memory

import (
	"cmp"
	"math"
	"slices"
)

// Cosine returns the cosine similarity of a and b. Vectors of different
// length or with zero magnitude score 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Rank scores records against vec, keeps those at or above threshold and
// returns at most limit candidates ordered by similarity descending.
// Records without an embedding are skipped. Ties keep input order.
func Rank(records []Record, vec []float32, threshold float64, limit int) []Candidate {
	var out []Candidate
	for i := range records {
		if !records[i].HasEmbedding() {
			continue
		}
		sim := Cosine(vec, records[i].Embedding)
		if sim < threshold {
			continue
		}
		out = append(out, Candidate{Record: records[i], Similarity: sim})
	}
	slices.SortStableFunc(out, func(a, b Candidate) int {
		return cmp.Compare(b.Similarity, a.Similarity)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

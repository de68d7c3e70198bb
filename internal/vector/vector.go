// Package vector implements the small amount of linear algebra and text
// preparation backing semantic retrieval: cosine similarity over float64
// slices, decoding of embeddings persisted as JSON text, and query
// preprocessing ahead of embedding.
package vector

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"
)

var nonWordRE = regexp.MustCompile(`[^\p{L}\p{N}\s/.-]`)

// CosineSimilarity returns the cosine of the angle between a and b.
// Mismatched lengths and zero-norm vectors score 0.0 rather than erroring,
// so a degenerate stored embedding never sinks a whole retrieval pass.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0.0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// ParseEmbedding decodes an embedding stored as a JSON array of numbers.
func ParseEmbedding(raw string) ([]float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty embedding")
	}
	var out []float64
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode embedding: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty embedding")
	}
	return out, nil
}

// PreprocessQuery lowercases the query and strips characters that carry no
// semantic weight, keeping slashes, dots, and dashes so tyre size codes like
// "100/35R24" survive intact.
func PreprocessQuery(q string) string {
	q = nonWordRE.ReplaceAllString(strings.ToLower(q), "")
	return strings.Join(strings.Fields(q), " ")
}

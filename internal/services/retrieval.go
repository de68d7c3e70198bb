// Package services – RetrievalService
//
// Semantic retrieval over the vector_store table. The query is rewritten by
// the chat model into search-friendly phrasing, preprocessed, and embedded;
// a structured metadata filter extracted from the original question narrows
// the candidate rows before cosine-similarity ranking. Role security is
// enforced here too: a dealer never receives a passage tagged with another
// dealer's sales or claims.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/wheely/go-dealer-assist/internal/domain"
	"github.com/wheely/go-dealer-assist/internal/match"
	"github.com/wheely/go-dealer-assist/internal/vector"
)

// Metadata scoring constants.
const (
	metaFuzzyThreshold = 70  // percent similarity for a fuzzy field hit
	metaSubstringScore = 0.7 // score for a plain substring hit
	metaKeepFloor      = 0.3 // minimum normalized score to keep a filtered row
)

const rewritePrompt = `You rewrite questions about a tyre distribution business into phrasing suited to vector similarity search.
Remove conversational filler, expand tyre abbreviations (R means radial), add relevant synonyms, and keep every identifier, size code, and name intact.
Return only the rewritten text, nothing else.`

const filterPrompt = `You extract structured metadata from questions about tyres, dealers, warehouses, sales, claims, orders, and inventory.
Reply with ONLY a JSON object containing whichever of these fields the question mentions:
dealer_id, dealer_name, product_id, product_name, category, warehouse_id, location, zone, sales_id, claim_id, status, quantity, cost, date.
Be flexible with partial names and locations. Omit fields that are not present. No explanation, no extra text.`

// Embedder is the embedding-endpoint contract used by retrieval.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// VectorSource defines the repository contract required by RetrievalService.
type VectorSource interface {
	ListVectorRecords(ctx context.Context, db *gorm.DB) ([]domain.VectorRecord, error)
}

// RetrievalService ranks indexed passages against a query embedding.
type RetrievalService struct {
	DB       *gorm.DB
	Repo     VectorSource
	Oracle   Generator
	Embedder Embedder

	TopK      int     // passages returned at most
	Threshold float64 // minimum cosine similarity
}

// Retrieve returns prompt-ready vector context for the question, or
// MsgNoVectorContext when nothing relevant is indexed. entityQuery is the
// (corrected, un-enhanced) question used for metadata extraction; embedQuery
// is what gets rewritten and embedded and may carry follow-up context.
func (s *RetrievalService) Retrieve(ctx context.Context, sess *domain.UserSession, entityQuery, embedQuery string) (string, error) {
	tr := otel.Tracer("services/RetrievalService")
	ctx, span := tr.Start(ctx, "Retrieve",
		trace.WithAttributes(attribute.String("user.role", sess.Role)),
	)
	defer span.End()

	emb, err := s.Embedder.Embed(ctx, vector.PreprocessQuery(s.rewriteQuery(ctx, embedQuery)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	filter := s.extractFilter(ctx, sess, entityQuery)

	recs, err := s.Repo.ListVectorRecords(ctx, s.DB)
	if err != nil {
		return "", err
	}

	// First pass: drop rows the session may not see, then narrow by the
	// extracted filter when there is one.
	type filtered struct {
		rec   domain.VectorRecord
		score float64
	}
	var pool []domain.VectorRecord
	var matched []filtered
	for _, rec := range recs {
		meta := parseMetadata(rec.Metadata)
		if excludedForDealer(sess, meta) {
			continue
		}
		pool = append(pool, rec)
		if len(filter) == 0 {
			continue
		}
		if ms := filterScore(filter, meta); ms > 0 {
			matched = append(matched, filtered{rec, ms})
		}
	}

	candidates := pool
	if len(filter) > 0 {
		sort.SliceStable(matched, func(i, j int) bool { return matched[i].score > matched[j].score })
		var kept []domain.VectorRecord
		for _, m := range matched {
			if m.score >= metaKeepFloor {
				kept = append(kept, m.rec)
			}
		}
		// A filter that matches nothing falls back to pure similarity.
		if len(kept) > 0 {
			candidates = kept
		}
	}

	// Second pass: cosine similarity against the surviving rows.
	type scored struct {
		content string
		sim     float64
	}
	var ranked []scored
	for _, rec := range candidates {
		recEmb, err := vector.ParseEmbedding(rec.Embedding)
		if err != nil {
			log.Debug().Int("id", rec.ID).Err(err).Msg("skipping unparseable embedding")
			continue
		}
		sim := vector.CosineSimilarity(emb, recEmb)
		if sim < s.Threshold {
			continue
		}
		ranked = append(ranked, scored{rec.Content, sim})
	}
	if len(ranked) == 0 {
		return MsgNoVectorContext, nil
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].sim > ranked[j].sim })
	topK := s.TopK
	if topK <= 0 {
		topK = 10
	}
	if len(ranked) > topK {
		ranked = ranked[:topK]
	}

	var b strings.Builder
	for i, c := range ranked {
		fmt.Fprintf(&b, "Vector Row %d: %s\n", i+1, c.content)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// rewriteQuery asks the chat model for retrieval-optimized phrasing. Any
// failure falls back to the query as given, so retrieval still runs.
func (s *RetrievalService) rewriteQuery(ctx context.Context, query string) string {
	out, err := s.Oracle.Generate(ctx, rewritePrompt, query, 150, 0.1)
	if err != nil {
		log.Warn().Err(err).Msg("query rewrite failed, embedding the corrected query")
		return query
	}
	if out = strings.TrimSpace(out); out == "" {
		return query
	}
	return out
}

// extractFilter asks the chat model for a key→value sketch of the entities
// the question mentions. Dealer sessions get their identity appended so ids
// resolve. A failed call or unparseable reply yields no filter.
func (s *RetrievalService) extractFilter(ctx context.Context, sess *domain.UserSession, query string) map[string]any {
	userPrompt := query
	if did := sess.DealerFilter(); did != nil {
		userPrompt = fmt.Sprintf("%s\n(The caller is dealer %q with dealer_id %d.)", query, sess.DealerName, *did)
	}
	raw, err := s.Oracle.Generate(ctx, filterPrompt, userPrompt, 200, 0.0)
	if err != nil {
		log.Warn().Err(err).Msg("metadata extraction failed, retrieving unfiltered")
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(extractJSON(raw)), &m); err != nil {
		return nil
	}
	return m
}

// parseMetadata decodes the stored metadata blob; a malformed blob is
// treated as empty rather than failing retrieval.
func parseMetadata(raw string) map[string]any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil
	}
	return m
}

// excludedForDealer reports whether a row is another dealer's sales or
// claims record and must be hidden from a dealer-scoped session.
func excludedForDealer(sess *domain.UserSession, meta map[string]any) bool {
	did := sess.DealerFilter()
	if did == nil || len(meta) == 0 {
		return false
	}
	_, hasSale := meta["sales_id"]
	_, hasClaim := meta["claim_id"]
	if !hasSale && !hasClaim {
		return false
	}
	v, ok := meta["dealer_id"]
	return ok && !numericEqual(v, *did)
}

// filterScore rates how strongly a row's metadata agrees with the extracted
// filter, normalized by filter-field count: an exact field match counts 1.0,
// a fuzzy match at or above metaFuzzyThreshold counts its ratio, substring
// containment counts metaSubstringScore.
func filterScore(filter, meta map[string]any) float64 {
	if len(filter) == 0 || len(meta) == 0 {
		return 0
	}
	var score float64
	for key, fv := range filter {
		rv, ok := meta[key]
		if !ok {
			continue
		}
		want := strings.ToLower(strings.TrimSpace(fmt.Sprintf("%v", fv)))
		have := strings.ToLower(strings.TrimSpace(fmt.Sprintf("%v", rv)))
		if want == "" || have == "" {
			continue
		}
		switch {
		case want == have:
			score += 1
		case match.Ratio(want, have) >= metaFuzzyThreshold:
			score += float64(match.Ratio(want, have)) / 100
		case strings.Contains(have, want) || strings.Contains(want, have):
			score += metaSubstringScore
		}
	}
	return score / float64(len(filter))
}

// numericEqual compares a metadata value (JSON number or string) to an int.
func numericEqual(v any, want int) bool {
	switch x := v.(type) {
	case float64:
		return int(x) == want
	case string:
		return strings.TrimSpace(x) == fmt.Sprintf("%d", want)
	case int:
		return x == want
	}
	return false
}

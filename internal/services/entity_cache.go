// Package services – EntityCache
//
// An in-memory snapshot of the reference vocabularies (dealer names, product
// codes and names, warehouse locations) used to correct misspelled entity
// mentions before a query reaches the SQL generator or the embedder.
// Correction is conservative: a replacement happens only above a similarity
// threshold, and a query with nothing to correct passes through byte-for-byte.
package services

import (
	"context"
	"strings"
	"sync"

	"gorm.io/gorm"

	"github.com/wheely/go-dealer-assist/internal/match"
)

// Correction thresholds, in integer percent similarity.
const (
	dealerTokenThreshold = 75 // per-token dealer name correction
	phraseThreshold      = 80 // whole-phrase product/warehouse correction
	minTokenLen          = 4  // short tokens are too ambiguous to correct
)

// EntityLister defines the repository contract required by EntityCache.
type EntityLister interface {
	ListDealerNames(ctx context.Context, db *gorm.DB) ([]string, error)
	ListProductIDs(ctx context.Context, db *gorm.DB) ([]string, error)
	ListProductNames(ctx context.Context, db *gorm.DB) ([]string, error)
	ListWarehouseLocations(ctx context.Context, db *gorm.DB) ([]string, error)
}

// EntityCache holds the vocabularies behind an RWMutex. Refresh replaces the
// snapshot wholesale; readers never block each other.
type EntityCache struct {
	DB   *gorm.DB
	Repo EntityLister

	mu         sync.RWMutex
	dealers    []string
	productIDs []string
	products   []string
	warehouses []string
}

// NewEntityCache constructs an empty cache. Call Refresh before first use;
// an unrefreshed (or failed-refresh) cache corrects nothing and is safe.
func NewEntityCache(db *gorm.DB, r EntityLister) *EntityCache {
	return &EntityCache{DB: db, Repo: r}
}

// Refresh reloads every vocabulary from the database. On partial failure the
// previous snapshot is kept and the error returned, so a transient DB issue
// degrades correction instead of corrupting it.
func (c *EntityCache) Refresh(ctx context.Context) error {
	dealers, err := c.Repo.ListDealerNames(ctx, c.DB)
	if err != nil {
		return err
	}
	productIDs, err := c.Repo.ListProductIDs(ctx, c.DB)
	if err != nil {
		return err
	}
	products, err := c.Repo.ListProductNames(ctx, c.DB)
	if err != nil {
		return err
	}
	warehouses, err := c.Repo.ListWarehouseLocations(ctx, c.DB)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.dealers = dealers
	c.productIDs = productIDs
	c.products = products
	c.warehouses = warehouses
	c.mu.Unlock()
	return nil
}

// Dealers returns the cached dealer names.
func (c *EntityCache) Dealers() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dealers
}

// Correct rewrites entity mentions in a query to their canonical forms.
// Dealer names are corrected token-by-token (tokens of at least four
// characters, similarity >= 75). Product names/codes and warehouse locations
// are corrected as whole phrases (similarity >= 80), longest candidates
// first so "MRF ZLX Premium" wins over "MRF ZLX". The result is stable:
// correcting an already-correct query returns it unchanged.
func (c *EntityCache) Correct(query string) string {
	c.mu.RLock()
	dealers := c.dealers
	phrases := make([]string, 0, len(c.products)+len(c.productIDs)+len(c.warehouses))
	phrases = append(phrases, c.products...)
	phrases = append(phrases, c.productIDs...)
	phrases = append(phrases, c.warehouses...)
	c.mu.RUnlock()

	out := correctPhrases(query, phrases)
	out = correctDealerTokens(out, dealers)
	return out
}

// correctDealerTokens replaces individual misspelled tokens with the dealer
// name token they most resemble. Only tokens that are not already part of a
// dealer name are candidates.
func correctDealerTokens(query string, dealers []string) string {
	if len(dealers) == 0 {
		return query
	}

	// vocabulary of dealer-name tokens
	vocab := make([]string, 0, len(dealers)*2)
	seen := make(map[string]struct{})
	for _, d := range dealers {
		for _, tok := range strings.Fields(match.Normalize(d)) {
			if len(tok) < minTokenLen {
				continue
			}
			if _, dup := seen[tok]; !dup {
				seen[tok] = struct{}{}
				vocab = append(vocab, tok)
			}
		}
	}
	if len(vocab) == 0 {
		return query
	}

	words := strings.Fields(query)
	changed := false
	for i, w := range words {
		norm := match.Normalize(w)
		if len(norm) < minTokenLen {
			continue
		}
		if _, exact := seen[norm]; exact {
			continue
		}
		if best, score := match.BestMatch(norm, vocab, dealerTokenThreshold); best != "" && score < 100 {
			words[i] = best
			changed = true
		}
	}
	if !changed {
		return query
	}
	return strings.Join(words, " ")
}

// correctPhrases scans the query for token windows that closely match a
// known phrase and substitutes the canonical spelling.
func correctPhrases(query string, phrases []string) string {
	if len(phrases) == 0 || query == "" {
		return query
	}

	// longest first so larger phrases claim their window before substrings do
	sorted := make([]string, len(phrases))
	copy(sorted, phrases)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && len(strings.Fields(sorted[j])) > len(strings.Fields(sorted[j-1])); j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}

	words := strings.Fields(query)
	for _, phrase := range sorted {
		pn := match.Normalize(phrase)
		if pn == "" {
			continue
		}
		span := len(strings.Fields(pn))
		if span == 0 || span > len(words) {
			continue
		}
		for i := 0; i+span <= len(words); i++ {
			window := strings.Join(words[i:i+span], " ")
			wn := match.Normalize(window)
			if wn == pn {
				break // already canonical
			}
			if match.Ratio(wn, pn) >= phraseThreshold {
				replaced := append([]string{}, words[:i]...)
				replaced = append(replaced, phrase)
				replaced = append(replaced, words[i+span:]...)
				words = replaced
				break
			}
		}
	}
	return strings.Join(words, " ")
}

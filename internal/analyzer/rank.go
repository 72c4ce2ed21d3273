package analyzer

import (
	"log/slog"
	"sort"

	"github.com/lfarias/zoomrank/internal/models"
)

// Score weights: popularity across filters matters most, then cheapness,
// then rating. They sum to 1 so scores stay in [0, 1].
const (
	weightFrequency = 0.5
	weightPrice     = 0.3
	weightRating    = 0.2

	maxRating = 5.0
)

// Ranker computes a composite relevance score per unique record and produces
// a total order over the accumulated set.
type Ranker struct {
	logger *slog.Logger
}

func NewRanker(logger *slog.Logger) *Ranker {
	return &Ranker{
		logger: logger.With("component", "ranker"),
	}
}

// Rank scores every record against the global frequency maximum and price
// spread, then sorts descending by score. The sort is stable: records with
// equal scores keep their insertion order, so ranking the same input twice
// yields the same output.
//
// The merger normally guarantees uniqueness by normalized name, but Rank
// defends against duplicates anyway, keeping the highest-scoring entry.
func (r *Ranker) Rank(records []*models.Product) []*models.Product {
	if len(records) == 0 {
		return []*models.Product{}
	}

	maxFreq := 1
	minPrice := records[0].Price
	maxPrice := records[0].Price
	for _, p := range records {
		if p.OccurrenceCount > maxFreq {
			maxFreq = p.OccurrenceCount
		}
		if p.Price < minPrice {
			minPrice = p.Price
		}
		if p.Price > maxPrice {
			maxPrice = p.Price
		}
	}

	// All prices equal: the inverse-price term collapses to 1 for every
	// record instead of dividing by zero.
	priceRange := maxPrice - minPrice
	if priceRange <= 0 {
		priceRange = 1
	}

	for _, p := range records {
		freqNorm := float64(p.OccurrenceCount) / float64(maxFreq)
		priceNorm := 1 - (p.Price-minPrice)/priceRange
		ratingNorm := p.Rating / maxRating

		score := weightFrequency*freqNorm + weightPrice*priceNorm + weightRating*ratingNorm
		p.Score = &score
	}

	unique := dedupeByName(records)
	if len(unique) < len(records) {
		r.logger.Warn("duplicate normalized names reached the ranker",
			"records", len(records), "unique", len(unique))
	}

	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].ScoreValue() > unique[j].ScoreValue()
	})

	return unique
}

// Top returns the n best-ranked records; n beyond the set size returns the
// whole ranked sequence.
func (r *Ranker) Top(records []*models.Product, n int) []*models.Product {
	ranked := r.Rank(records)
	if n < 0 {
		n = 0
	}
	if n > len(ranked) {
		n = len(ranked)
	}
	return ranked[:n]
}

// dedupeByName collapses records sharing a normalized name to the entry with
// the highest score, preserving first-seen positions.
func dedupeByName(records []*models.Product) []*models.Product {
	seen := make(map[string]int, len(records))
	unique := make([]*models.Product, 0, len(records))

	for _, p := range records {
		key := p.NormalizedName()
		if idx, ok := seen[key]; ok {
			if p.ScoreValue() > unique[idx].ScoreValue() {
				unique[idx] = p
			}
			continue
		}
		seen[key] = len(unique)
		unique = append(unique, p)
	}

	return unique
}

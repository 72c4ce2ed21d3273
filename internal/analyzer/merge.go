package analyzer

import (
	"log/slog"
	"strings"

	"github.com/lfarias/zoomrank/internal/models"
)

// Merger folds freshly parsed records into the accumulated collection,
// deduplicating by normalized name and tracking how often and under which
// filters each logical product was seen.
//
// Matching is a linear scan: result sets are tens of records per run. Scaling
// up would call for an index keyed by normalized name.
type Merger struct {
	keyword string
	logger  *slog.Logger
}

// NewMerger builds a merger whose domain keyword must appear in the
// lowercased product name. This rejects cross-sell items (mice, sleeves,
// chargers) the site surfaces alongside the real search results.
func NewMerger(keyword string, logger *slog.Logger) *Merger {
	return &Merger{
		keyword: strings.ToLower(strings.TrimSpace(keyword)),
		logger:  logger.With("component", "merger"),
	}
}

// Merge mutates accumulated in place and returns it. Incoming duplicates
// contribute provenance and frequency only: first-seen price, rating and link
// win.
func (m *Merger) Merge(accumulated []*models.Product, incoming []*models.Product) []*models.Product {
	for _, candidate := range incoming {
		if !m.matchesDomain(candidate) {
			m.logger.Debug("discarding off-domain record", "name", candidate.Name)
			continue
		}

		existing := findByNormalizedName(accumulated, candidate.NormalizedName())
		if existing != nil {
			label := firstFilter(candidate)
			if label != "" && !existing.HasFilter(label) {
				existing.ObservedFilters = append(existing.ObservedFilters, label)
			}
			existing.OccurrenceCount++
			continue
		}

		candidate.OccurrenceCount = 1
		accumulated = append(accumulated, candidate)
	}

	return accumulated
}

func (m *Merger) matchesDomain(p *models.Product) bool {
	if m.keyword == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Name), m.keyword)
}

func findByNormalizedName(records []*models.Product, key string) *models.Product {
	for _, r := range records {
		if r.NormalizedName() == key {
			return r
		}
	}
	return nil
}

func firstFilter(p *models.Product) string {
	if len(p.ObservedFilters) == 0 {
		return ""
	}
	return p.ObservedFilters[0]
}

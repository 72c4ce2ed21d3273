package models

import (
	"strings"
)

// Price sanity bounds. Anything outside (MinValidPrice, MaxValidPrice) is
// treated as a currency-parsing error and rejected at parse time.
const (
	MinValidPrice = 0.0
	MaxValidPrice = 100000.0
)

// Product is the unit of data flowing through the whole pipeline: created by
// the page parser, folded into the accumulated set by the merger, scored by
// the ranker and finally enriched with specifications from its detail page.
type Product struct {
	Name            string                       `json:"name"`
	Price           float64                      `json:"price"`
	Rating          float64                      `json:"rating"`
	OccurrenceCount int                          `json:"occurrence_count"`
	DetailURL       string                       `json:"detail_url"`
	Specifications  map[string]map[string]string `json:"specifications"`
	ObservedFilters []string                     `json:"observed_filters"`
	Score           *float64                     `json:"score,omitempty"`
}

// NewProduct builds a freshly parsed record observed under a single filter.
// OccurrenceCount is left at zero; the merger owns it.
func NewProduct(name string, price, rating float64, detailURL, filterLabel string) *Product {
	return &Product{
		Name:            name,
		Price:           price,
		Rating:          rating,
		DetailURL:       detailURL,
		Specifications:  make(map[string]map[string]string),
		ObservedFilters: []string{filterLabel},
	}
}

// NormalizedName is the merge/identity key: two records are the same logical
// product iff their normalized names are equal. Must be computed identically
// everywhere (parser, merger, ranker).
func (p *Product) NormalizedName() string {
	return NormalizeName(p.Name)
}

// NormalizeName lowercases and trims a product name.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ValidPrice reports whether a parsed price passes the sanity guard.
func ValidPrice(price float64) bool {
	return price > MinValidPrice && price < MaxValidPrice
}

// ScoreValue returns the computed score, treating an unset score as 0 so that
// unscored records sort last.
func (p *Product) ScoreValue() float64 {
	if p.Score == nil {
		return 0
	}
	return *p.Score
}

// HasFilter reports whether the record was already observed under the label.
func (p *Product) HasFilter(label string) bool {
	for _, f := range p.ObservedFilters {
		if f == label {
			return true
		}
	}
	return false
}

func (p *Product) Validate() []string {
	var errs []string

	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, "name is required")
	}

	if !ValidPrice(p.Price) {
		errs = append(errs, "price out of valid range")
	}

	if p.Rating < 0 || p.Rating > 5 {
		errs = append(errs, "rating out of range [0, 5]")
	}

	if p.DetailURL == "" {
		errs = append(errs, "detail URL is required")
	}

	return errs
}

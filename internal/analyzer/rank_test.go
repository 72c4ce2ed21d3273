package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lfarias/zoomrank/internal/models"
)

func scored(name string, price, rating float64, occurrences int) *models.Product {
	p := record(name, price, rating, "Sem filtro")
	p.OccurrenceCount = occurrences
	return p
}

func TestRankEmptyInput(t *testing.T) {
	r := NewRanker(testLogger())

	assert.Empty(t, r.Rank(nil))
	assert.Empty(t, r.Rank([]*models.Product{}))
}

func TestRankScoreFormula(t *testing.T) {
	r := NewRanker(testLogger())

	// occurrence counts [1,2,3], prices [1000,2000,3000], ratings [3,4,5].
	records := []*models.Product{
		scored("Notebook A", 1000, 3, 1),
		scored("Notebook B", 2000, 4, 2),
		scored("Notebook C", 3000, 5, 3),
	}

	ranked := r.Rank(records)
	require.Len(t, ranked, 3)

	// Hand-computed: maxFreq=3, minPrice=1000, range=2000.
	// A: 0.5*(1/3) + 0.3*1.0 + 0.2*(3/5)
	// B: 0.5*(2/3) + 0.3*0.5 + 0.2*(4/5)
	// C: 0.5*1.0   + 0.3*0.0 + 0.2*1.0
	expected := map[string]float64{
		"Notebook A": 0.5/3.0 + 0.3 + 0.12,
		"Notebook B": 1.0/3.0 + 0.15 + 0.16,
		"Notebook C": 0.5 + 0.2,
	}

	for _, p := range ranked {
		require.NotNil(t, p.Score)
		assert.InDelta(t, expected[p.Name], *p.Score, 1e-9, p.Name)
	}

	// Frequency dominates: the most-seen record wins despite being the most
	// expensive.
	assert.Equal(t, "Notebook C", ranked[0].Name)
	assert.Equal(t, "Notebook B", ranked[1].Name)
	assert.Equal(t, "Notebook A", ranked[2].Name)
}

func TestRankScoreBounds(t *testing.T) {
	r := NewRanker(testLogger())

	records := []*models.Product{
		scored("Notebook A", 500, 0, 1),
		scored("Notebook B", 99999, 5, 7),
		scored("Notebook C", 1234.56, 2.5, 3),
	}

	for _, p := range r.Rank(records) {
		require.NotNil(t, p.Score)
		assert.GreaterOrEqual(t, *p.Score, 0.0)
		assert.LessOrEqual(t, *p.Score, 1.0)
	}
}

func TestRankDegeneratePriceRange(t *testing.T) {
	r := NewRanker(testLogger())

	records := []*models.Product{
		scored("Notebook A", 2500, 0, 1),
		scored("Notebook B", 2500, 0, 1),
	}

	ranked := r.Rank(records)
	require.Len(t, ranked, 2)

	// Every record gets the full inverse-price term regardless of the
	// shared price's value.
	for _, p := range ranked {
		assert.InDelta(t, 0.5+0.3, *p.Score, 1e-9)
	}
}

func TestRankStableOrderAmongTies(t *testing.T) {
	r := NewRanker(testLogger())

	build := func() []*models.Product {
		return []*models.Product{
			scored("Notebook A", 1000, 4, 2),
			scored("Notebook B", 1000, 4, 2),
			scored("Notebook C", 1000, 4, 2),
		}
	}

	first := r.Rank(build())
	second := r.Rank(build())

	require.Len(t, first, 3)
	for i := range first {
		assert.Equal(t, first[i].Name, second[i].Name)
	}
	// Tied scores preserve insertion order.
	assert.Equal(t, "Notebook A", first[0].Name)
	assert.Equal(t, "Notebook B", first[1].Name)
	assert.Equal(t, "Notebook C", first[2].Name)
}

func TestRankCollapsesDuplicateNames(t *testing.T) {
	r := NewRanker(testLogger())

	records := []*models.Product{
		scored("Notebook X", 3000, 3, 1),
		scored("notebook x", 1000, 5, 2),
	}

	ranked := r.Rank(records)
	require.Len(t, ranked, 1)
	// The higher-scoring duplicate survives.
	assert.Equal(t, 1000.0, ranked[0].Price)
}

func TestRankUnscoredSortsLast(t *testing.T) {
	_ = NewRanker(testLogger())

	assert.Equal(t, 0.0, (&models.Product{}).ScoreValue())
}

func TestTop(t *testing.T) {
	r := NewRanker(testLogger())

	records := []*models.Product{
		scored("Notebook A", 1000, 3, 1),
		scored("Notebook B", 2000, 4, 2),
		scored("Notebook C", 3000, 5, 3),
	}

	top2 := r.Top(records, 2)
	require.Len(t, top2, 2)
	assert.Equal(t, "Notebook C", top2[0].Name)
	assert.Equal(t, "Notebook B", top2[1].Name)

	assert.Len(t, r.Top(records, 10), 3)
	assert.Empty(t, r.Top(records, 0))
}

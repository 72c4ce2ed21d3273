package parser

import (
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBaseURL = "https://www.zoom.com.br"

func testLogger() *slog.Logger {
	return slog.Default()
}

func cardHTML(name, price, rating, href string) string {
	ratingBlock := ""
	if rating != "" {
		ratingBlock = fmt.Sprintf(`<div data-testid="product-card::rating">%s</div>`, rating)
	}
	return fmt.Sprintf(`
		<div data-testid="product-card">
			<a data-testid="product-card::card" href="%s">
				<h2 data-testid="product-card::name">%s</h2>
				<p data-testid="product-card::price">%s</p>
			</a>
			%s
		</div>`, href, name, price, ratingBlock)
}

func TestParseSingleCard(t *testing.T) {
	p := NewPageParser(testBaseURL, testLogger())

	html := cardHTML("Notebook Model X", "R$ 3.500,00", "4,5 (120)", "/notebook-model-x")
	products := p.Parse(html, "Melhor Avaliados")

	require.Len(t, products, 1)
	product := products[0]
	assert.Equal(t, "Notebook Model X", product.Name)
	assert.Equal(t, 3500.0, product.Price)
	assert.Equal(t, 4.5, product.Rating)
	assert.Equal(t, "https://www.zoom.com.br/notebook-model-x", product.DetailURL)
	assert.Equal(t, []string{"Melhor Avaliados"}, product.ObservedFilters)
	assert.Equal(t, 0, product.OccurrenceCount)
}

func TestParseEmptyPage(t *testing.T) {
	p := NewPageParser(testBaseURL, testLogger())

	assert.Empty(t, p.Parse("", "Sem filtro"))
	assert.Empty(t, p.Parse("<html><body><div>no cards here</div></body></html>", "Sem filtro"))
}

func TestParseSkipsIncompleteCards(t *testing.T) {
	p := NewPageParser(testBaseURL, testLogger())

	tests := []struct {
		name string
		html string
	}{
		{
			name: "missing name",
			html: `<div data-testid="product-card">
				<a data-testid="product-card::card" href="/x">
					<p data-testid="product-card::price">R$ 100,00</p>
				</a>
			</div>`,
		},
		{
			name: "missing price",
			html: `<div data-testid="product-card">
				<a data-testid="product-card::card" href="/x">
					<h2 data-testid="product-card::name">Notebook Y</h2>
				</a>
			</div>`,
		},
		{
			name: "unparsable price",
			html: cardHTML("Notebook Y", "consulte", "4,0", "/y"),
		},
		{
			name: "price of zero",
			html: cardHTML("Notebook Y", "R$ 0,00", "4,0", "/y"),
		},
		{
			name: "price above upper bound",
			html: cardHTML("Notebook Y", "R$ 150.000,00", "4,0", "/y"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, p.Parse(tt.html, "Sem filtro"))
		})
	}
}

func TestParseBadCardDoesNotAbortPage(t *testing.T) {
	p := NewPageParser(testBaseURL, testLogger())

	html := cardHTML("Notebook Broken", "preço indisponível", "", "/broken") +
		cardHTML("Notebook Good", "R$ 2.499,90", "4,8 (37)", "/good")

	products := p.Parse(html, "Menor Preço")
	require.Len(t, products, 1)
	assert.Equal(t, "Notebook Good", products[0].Name)
	assert.Equal(t, 2499.90, products[0].Price)
}

func TestParseRatingFailureIsNotFatal(t *testing.T) {
	p := NewPageParser(testBaseURL, testLogger())

	html := cardHTML("Notebook Z", "R$ 1.000,00", "sem avaliações", "/z")
	products := p.Parse(html, "Sem filtro")

	require.Len(t, products, 1)
	assert.Equal(t, 0.0, products[0].Rating)
}

func TestParseSelectorFallback(t *testing.T) {
	p := NewPageParser(testBaseURL, testLogger())

	// Older layout: class-based selectors, no data-testid attributes.
	html := `
		<div class="product-card">
			<a class="product-card__link" href="/old-layout">
				<h2 class="product-card__name">Notebook Old Layout</h2>
				<p class="product-card__price">R$ 4.200,00</p>
			</a>
			<div class="product-card__rating">3,9 (12)</div>
		</div>`

	products := p.Parse(html, "Sem filtro")
	require.Len(t, products, 1)
	assert.Equal(t, "Notebook Old Layout", products[0].Name)
	assert.Equal(t, 4200.0, products[0].Price)
	assert.Equal(t, 3.9, products[0].Rating)
}

func TestParseAbsoluteLinkKeptAsIs(t *testing.T) {
	p := NewPageParser(testBaseURL+"/", testLogger())

	html := cardHTML("Notebook W", "R$ 990,00", "4,1", "https://cdn.zoom.com.br/w")
	products := p.Parse(html, "Sem filtro")

	require.Len(t, products, 1)
	assert.Equal(t, "https://cdn.zoom.com.br/w", products[0].DetailURL)
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		raw      string
		expected float64
		hasError bool
	}{
		{raw: "R$ 3.500,00", expected: 3500.0},
		{raw: "R$ 999,90", expected: 999.90},
		{raw: "R$ 1.234,56", expected: 1234.56},
		{raw: "2.199", expected: 2199},
		{raw: "abc", hasError: true},
		{raw: "", hasError: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			price, err := ParsePrice(tt.raw)
			if tt.hasError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, price)
			}
		})
	}
}

func TestParseRating(t *testing.T) {
	tests := []struct {
		raw      string
		expected float64
		hasError bool
	}{
		{raw: "4,5 (120)", expected: 4.5},
		{raw: "4.5", expected: 4.5},
		{raw: "5 (3)", expected: 5},
		{raw: "(12)", hasError: true},
		{raw: "ótimo", hasError: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			rating, err := ParseRating(tt.raw)
			if tt.hasError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, rating)
			}
		})
	}
}

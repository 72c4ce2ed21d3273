package parser

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/lfarias/zoomrank/internal/models"
)

// PageParser converts one search-results page into product records. Zoom's
// markup changes between deployments, so every field is resolved through a
// prioritized selector list: data-testid attributes first, class names next,
// bare tags last. A card missing name, price or link is skipped; a missing
// rating is not.
type PageParser struct {
	baseURL string
	logger  *slog.Logger

	cardSelectors   []string
	nameSelectors   []string
	priceSelectors  []string
	linkSelectors   []string
	ratingSelectors []string
}

func NewPageParser(baseURL string, logger *slog.Logger) *PageParser {
	return &PageParser{
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.With("component", "page_parser"),
		cardSelectors: []string{
			`div[data-testid="product-card"]`,
			`div.product-card`,
			`article`,
		},
		nameSelectors: []string{
			`h2[data-testid="product-card::name"]`,
			`h2.product-card__name`,
			`h2`,
		},
		priceSelectors: []string{
			`p[data-testid="product-card::price"]`,
			`p.product-card__price`,
			`p`,
		},
		linkSelectors: []string{
			`a[data-testid="product-card::card"]`,
			`a.product-card__link`,
			`a`,
		},
		ratingSelectors: []string{
			`div[data-testid="product-card::rating"]`,
			`div.product-card__rating`,
			`span.rating`,
		},
	}
}

// Parse extracts all product records from one page observed under
// filterLabel. An empty page or a page without cards yields an empty slice,
// never an error: the pipeline continues with the next page.
func (p *PageParser) Parse(html string, filterLabel string) []*models.Product {
	products := make([]*models.Product, 0)

	if strings.TrimSpace(html) == "" {
		p.logger.Warn("empty page source, nothing to parse", "filter", filterLabel)
		return products
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		p.logger.Warn("failed to parse page HTML", "filter", filterLabel, "error", err)
		return products
	}

	cards := p.findCards(doc)
	if cards == nil || cards.Length() == 0 {
		p.logger.Info("no product cards found", "filter", filterLabel)
		return products
	}

	cards.Each(func(i int, card *goquery.Selection) {
		product, ok := p.parseCard(card, filterLabel)
		if !ok {
			return
		}
		products = append(products, product)
	})

	p.logger.Info("page parsed", "filter", filterLabel, "products", len(products))
	return products
}

func (p *PageParser) findCards(doc *goquery.Document) *goquery.Selection {
	for _, selector := range p.cardSelectors {
		cards := doc.Find(selector)
		if cards.Length() > 0 {
			return cards
		}
	}
	return nil
}

func (p *PageParser) parseCard(card *goquery.Selection, filterLabel string) (*models.Product, bool) {
	name := p.firstText(card, p.nameSelectors)
	priceText := p.firstText(card, p.priceSelectors)
	href := p.firstAttr(card, p.linkSelectors, "href")

	if name == "" || priceText == "" || href == "" {
		p.logger.Warn("card missing essential fields, skipping",
			"name_found", name != "", "price_found", priceText != "", "link_found", href != "")
		return nil, false
	}

	price, err := ParsePrice(priceText)
	if err != nil {
		p.logger.Warn("unparsable price, skipping card", "name", name, "raw", priceText, "error", err)
		return nil, false
	}

	if !models.ValidPrice(price) {
		p.logger.Warn("price outside valid range, skipping card", "name", name, "price", price)
		return nil, false
	}

	rating := 0.0
	if ratingText := p.firstText(card, p.ratingSelectors); ratingText != "" {
		parsed, err := ParseRating(ratingText)
		if err != nil {
			p.logger.Warn("unparsable rating, defaulting to 0", "name", name, "raw", ratingText)
		} else {
			rating = parsed
		}
	}

	return models.NewProduct(name, price, rating, p.resolveURL(href), filterLabel), true
}

// firstText returns the trimmed text of the first selector that matches a
// non-empty element inside the card.
func (p *PageParser) firstText(card *goquery.Selection, selectors []string) string {
	for _, selector := range selectors {
		text := strings.TrimSpace(card.Find(selector).First().Text())
		if text != "" {
			return text
		}
	}
	return ""
}

func (p *PageParser) firstAttr(card *goquery.Selection, selectors []string, attr string) string {
	for _, selector := range selectors {
		if value, exists := card.Find(selector).First().Attr(attr); exists && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

// resolveURL turns a site-relative href into an absolute URL against the
// configured base. The base has its trailing slash stripped at construction
// so the join never doubles it.
func (p *PageParser) resolveURL(href string) string {
	if strings.HasPrefix(href, "/") {
		return p.baseURL + href
	}
	return href
}

// ParsePrice normalizes a Brazilian-formatted price string ("R$ 3.500,00"):
// currency symbol and thousands separators are stripped, the decimal comma
// becomes a decimal point.
func ParsePrice(text string) (float64, error) {
	cleaned := strings.ReplaceAll(text, "R$", "")
	cleaned = strings.ReplaceAll(cleaned, " ", " ")
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	cleaned = strings.TrimSpace(cleaned)

	return strconv.ParseFloat(cleaned, 64)
}

// ParseRating extracts the numeric rating from texts like "4,5 (120)": the
// review count in parentheses is cut off before parsing.
func ParseRating(text string) (float64, error) {
	cleaned := text
	if idx := strings.Index(cleaned, "("); idx >= 0 {
		cleaned = cleaned[:idx]
	}
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	cleaned = strings.TrimSpace(cleaned)

	return strconv.ParseFloat(cleaned, 64)
}

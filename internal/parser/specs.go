package parser

import (
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Sentinel group returned when no technical data could be extracted. Callers
// can tell "extraction failed" apart from a legitimately empty block.
const (
	SentinelGroup   = "Detalhes"
	SentinelKey     = "Erro"
	SentinelMessage = "Nenhum dado técnico encontrado."

	// DefaultGroup names spec entries whose container carries no label of
	// its own (unlabeled tables, definition lists, inline key:value items).
	DefaultGroup = "Geral"

	// DefaultInlineMaxLen caps the length of a list item still considered an
	// inline "key: value" pair. Longer items are prose, not specs.
	DefaultInlineMaxLen = 120
)

// DefaultSpecKeywords flag a block as specification content during the
// heuristic container scan. Zoom is Portuguese-first; English variants cover
// imported layouts.
func DefaultSpecKeywords() []string {
	return []string{"ficha técnica", "especificações", "technical", "specifications"}
}

// SpecExtractor converts a product detail page into a grouped key/value
// specification map. Container detection runs through an ordered fallback
// chain: selectors known to have held the block historically, then a keyword
// scan over generic structural elements. Inside the container every supported
// format (tables, definition lists, inline "key: value" list items) is
// harvested; pages mix formats freely.
type SpecExtractor struct {
	logger *slog.Logger

	containerSelectors []string
	keywords           []string
	inlineMaxLen       int
}

func NewSpecExtractor(logger *slog.Logger) *SpecExtractor {
	return &SpecExtractor{
		logger: logger.With("component", "spec_extractor"),
		containerSelectors: []string{
			`section#technicalSpecifications`,
			`div[data-testid="spec-container"]`,
			`section.technical-specs`,
		},
		keywords:     DefaultSpecKeywords(),
		inlineMaxLen: DefaultInlineMaxLen,
	}
}

// SetKeywords overrides the specification-indicating keyword list.
func (e *SpecExtractor) SetKeywords(keywords []string) {
	if len(keywords) > 0 {
		e.keywords = keywords
	}
}

// SetInlineMaxLen overrides the short-text threshold for inline key:value
// detection.
func (e *SpecExtractor) SetInlineMaxLen(n int) {
	if n > 0 {
		e.inlineMaxLen = n
	}
}

// Extract never fails: malformed or empty HTML degrades to the sentinel
// group.
func (e *SpecExtractor) Extract(html string) map[string]map[string]string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		e.logger.Warn("failed to parse detail HTML", "error", err)
		return sentinelSpecs()
	}

	container := e.findContainer(doc)
	if container == nil {
		e.logger.Warn("no specification container found, returning sentinel")
		return sentinelSpecs()
	}

	specs := make(map[string]map[string]string)
	e.extractTables(container, specs)
	e.extractDefinitionLists(container, specs)
	e.extractInlineItems(container, specs)

	if len(specs) == 0 {
		e.logger.Warn("specification container yielded no key/value pairs")
		return sentinelSpecs()
	}

	return specs
}

// findContainer tries the known selectors first, then falls back to scanning
// generic structural blocks for a specification-indicating keyword.
func (e *SpecExtractor) findContainer(doc *goquery.Document) *goquery.Selection {
	for _, selector := range e.containerSelectors {
		sel := doc.Find(selector).First()
		if sel.Length() > 0 && strings.TrimSpace(sel.Text()) != "" {
			return sel
		}
	}

	var found *goquery.Selection
	doc.Find("section, article, div").EachWithBreak(func(i int, s *goquery.Selection) bool {
		text := strings.ToLower(s.Text())
		for _, keyword := range e.keywords {
			if strings.Contains(text, keyword) {
				found = s
				return false
			}
		}
		return true
	})

	return found
}

// extractTables harvests every table in the container. A row needs at least
// two cells; the first is the key, the second the value. The group name comes
// from the table's caption or aria-label, falling back to DefaultGroup.
func (e *SpecExtractor) extractTables(container *goquery.Selection, specs map[string]map[string]string) {
	container.Find("table").Each(func(i int, table *goquery.Selection) {
		group := strings.TrimSpace(table.Find("caption").First().Text())
		if group == "" {
			group = strings.TrimSpace(table.AttrOr("aria-label", ""))
		}
		if group == "" {
			group = DefaultGroup
		}

		table.Find("tr").Each(func(j int, row *goquery.Selection) {
			cells := row.Find("td, th")
			if cells.Length() < 2 {
				return
			}
			key := strings.TrimSpace(cells.Eq(0).Text())
			value := strings.TrimSpace(cells.Eq(1).Text())
			addSpec(specs, group, key, value)
		})
	})
}

// extractDefinitionLists pairs dt and dd nodes positionally; when the counts
// differ only the matched prefix is used.
func (e *SpecExtractor) extractDefinitionLists(container *goquery.Selection, specs map[string]map[string]string) {
	container.Find("dl").Each(func(i int, dl *goquery.Selection) {
		group := strings.TrimSpace(dl.AttrOr("aria-label", ""))
		if group == "" {
			group = DefaultGroup
		}

		terms := dl.Find("dt")
		descriptions := dl.Find("dd")

		n := terms.Length()
		if descriptions.Length() < n {
			n = descriptions.Length()
		}

		for j := 0; j < n; j++ {
			key := strings.TrimSpace(terms.Eq(j).Text())
			value := strings.TrimSpace(descriptions.Eq(j).Text())
			addSpec(specs, group, key, value)
		}
	})
}

// extractInlineItems catches ad-hoc "key: value" list items the structured
// formats miss. Only short items qualify; long ones are descriptions.
func (e *SpecExtractor) extractInlineItems(container *goquery.Selection, specs map[string]map[string]string) {
	container.Find("li").Each(func(i int, li *goquery.Selection) {
		text := strings.TrimSpace(li.Text())
		if text == "" || len(text) > e.inlineMaxLen {
			return
		}

		key, value, found := strings.Cut(text, ":")
		if !found {
			return
		}
		addSpec(specs, DefaultGroup, strings.TrimSpace(key), strings.TrimSpace(value))
	})
}

func addSpec(specs map[string]map[string]string, group, key, value string) {
	if key == "" || value == "" {
		return
	}
	if specs[group] == nil {
		specs[group] = make(map[string]string)
	}
	specs[group][key] = value
}

func sentinelSpecs() map[string]map[string]string {
	return map[string]map[string]string{
		SentinelGroup: {SentinelKey: SentinelMessage},
	}
}

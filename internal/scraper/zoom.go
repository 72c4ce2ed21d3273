package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/lfarias/zoomrank/internal/analyzer"
	"github.com/lfarias/zoomrank/internal/browser"
	"github.com/lfarias/zoomrank/internal/models"
	"github.com/lfarias/zoomrank/internal/parser"
	"github.com/lfarias/zoomrank/internal/ratelimit"
)

var (
	ErrSearchFailed = errors.New("search navigation failed")
	ErrRateLimited  = errors.New("rate limited by site")
)

// BaselineFilter is prepended to every run so the unfiltered result order is
// always collected before any sort is applied.
const BaselineFilter = "Sem filtro"

// Selectors for the pieces of Zoom the orchestrator interacts with directly.
// Card- and spec-level selectors live with their parsers.
const (
	searchInputSelector   = "input#searchInput"
	cardContainerSelector = `div[data-testid="product-card"]`
	paginationLinkFormat  = `a[aria-label="Página %d"]`
)

// sortOptionValues maps human-readable filter labels to the order-by
// <select> option values observed on the site. Labels missing here fall back
// to matching the option's visible text.
var sortOptionValues = map[string]string{
	"Mais Relevantes":  "lowering_percentage_desc",
	"Menor Preço":      "price_asc",
	"Melhor Avaliados": "rating_desc",
	"Maior Preço":      "price_desc",
}

// Service drives the whole collection flow: search, sort filters, pagination,
// merging, and the detail-page pass for the ranked winners.
type Service struct {
	browser    *browser.Browser
	pages      *parser.PageParser
	specs      *parser.SpecExtractor
	merger     *analyzer.Merger
	limiter    *ratelimit.BackoffLimiter
	logger     *slog.Logger
	maxRetries int
}

func NewService(b *browser.Browser, pages *parser.PageParser, specs *parser.SpecExtractor,
	merger *analyzer.Merger, limiter *ratelimit.BackoffLimiter, maxRetries int, logger *slog.Logger) *Service {
	return &Service{
		browser:    b,
		pages:      pages,
		specs:      specs,
		merger:     merger,
		limiter:    limiter,
		logger:     logger.With("component", "scraper"),
		maxRetries: maxRetries,
	}
}

// CollectAll runs the search for query, then walks every filter label
// (baseline first) across up to pagesPerFilter pages each, merging records as
// it goes. Page-level failures skip to the next filter; only a failed initial
// search aborts the run.
func (s *Service) CollectAll(ctx context.Context, baseURL, query string, filters []string, pagesPerFilter int) ([]*models.Product, error) {
	page, err := s.browser.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	defer page.Close()

	searchURL, err := s.runSearch(page, baseURL, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}

	accumulated := make([]*models.Product, 0)
	labels := append([]string{BaselineFilter}, filters...)

	for _, label := range labels {
		if err := ctx.Err(); err != nil {
			return accumulated, err
		}

		s.logger.Info("collecting under filter", "filter", label)

		// Reset to the plain search results before applying each sort.
		if err := s.browser.NavigateWithRetry(page, searchURL, s.maxRetries); err != nil {
			s.logger.Warn("failed to reopen search results, skipping filter", "filter", label, "error", err)
			continue
		}

		if label != BaselineFilter && !s.applySortFilter(page, label) {
			continue
		}

		for pageNum := 1; pageNum <= pagesPerFilter; pageNum++ {
			if err := s.limiter.Wait(ctx); err != nil {
				return accumulated, err
			}

			html := s.browser.HTMLWhenReady(page, cardContainerSelector, s.maxRetries)
			if html == "" {
				s.logger.Warn("page never became ready, skipping rest of filter",
					"filter", label, "page", pageNum)
				break
			}

			products := s.pages.Parse(html, label)
			accumulated = s.merger.Merge(accumulated, products)

			if pageNum < pagesPerFilter && !s.goToPage(page, pageNum+1) {
				s.logger.Info("no further pages", "filter", label, "last_page", pageNum)
				break
			}
		}
	}

	s.logger.Info("collection finished", "unique_products", len(accumulated))
	return accumulated, nil
}

// FetchDetails visits each ranked record's detail page and attaches its
// extracted specifications. Failures degrade to the extractor's sentinel
// group; the loop never aborts on a single product.
func (s *Service) FetchDetails(ctx context.Context, products []*models.Product) error {
	page, err := s.browser.NewPage()
	if err != nil {
		return fmt.Errorf("failed to create page: %w", err)
	}
	defer page.Close()

	for _, product := range products {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}

		s.logger.Info("fetching details", "name", product.Name, "url", product.DetailURL)

		html, err := s.fetchDetailHTML(page, product.DetailURL)
		if err != nil {
			s.logger.Warn("failed to fetch detail page", "name", product.Name, "error", err)
			html = ""
		}

		product.Specifications = s.specs.Extract(html)
	}

	return nil
}

// fetchDetailHTML navigates to a detail page, backing off and retrying when
// the site answers with a rate-limit page instead of content.
func (s *Service) fetchDetailHTML(page playwright.Page, url string) (string, error) {
	if err := s.browser.NavigateWithRetry(page, url, s.maxRetries); err != nil {
		return "", err
	}

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		if !s.browser.RateLimited(page) {
			s.limiter.RecordSuccess()
			content, err := page.Content()
			if err != nil {
				return "", fmt.Errorf("failed to read detail content: %w", err)
			}
			return content, nil
		}

		s.limiter.RecordRateLimited()
		wait := browser.Backoff(attempt + 1)
		s.logger.Warn("rate limited on detail page, backing off", "url", url, "wait", wait)
		time.Sleep(wait)

		if _, err := page.Reload(); err != nil {
			return "", fmt.Errorf("failed to reload after rate limit: %w", err)
		}
	}

	return "", ErrRateLimited
}

// runSearch opens the site, submits the query and returns the resulting
// search URL, which is re-opened before each filter pass.
func (s *Service) runSearch(page playwright.Page, baseURL, query string) (string, error) {
	if err := s.browser.NavigateWithRetry(page, baseURL, s.maxRetries); err != nil {
		return "", err
	}

	searchBox := page.Locator(searchInputSelector)
	if err := searchBox.Fill(query); err != nil {
		return "", fmt.Errorf("failed to fill search input: %w", err)
	}
	if err := searchBox.Press("Enter"); err != nil {
		return "", fmt.Errorf("failed to submit search: %w", err)
	}

	// Content is a better readiness signal than the URL changing.
	if _, err := page.WaitForSelector(cardContainerSelector); err != nil {
		return "", fmt.Errorf("search results never appeared: %w", err)
	}

	s.logger.Info("search submitted", "query", query, "url", page.URL())
	return page.URL(), nil
}

// applySortFilter selects the order-by option for the label and dispatches a
// change event so the site's own scripts reload the listing.
func (s *Service) applySortFilter(page playwright.Page, label string) bool {
	script := fmt.Sprintf(`() => {
		const sel = document.querySelector('select[data-testid="select-order-by"], select#orderBy');
		if (!sel) return false;
		const byValue = %q;
		const byLabel = %q;
		let opt = Array.from(sel.options).find(o => o.value === byValue);
		if (!opt) opt = Array.from(sel.options).find(o => o.textContent.trim() === byLabel);
		if (!opt) return false;
		sel.value = opt.value;
		sel.dispatchEvent(new Event('change', { bubbles: true }));
		return true;
	}`, sortOptionValues[label], label)

	result, err := page.Evaluate(script)
	if err != nil {
		s.logger.Warn("failed to apply sort filter", "filter", label, "error", err)
		return false
	}

	applied, ok := result.(bool)
	if !ok || !applied {
		s.logger.Warn("no matching sort option", "filter", label)
		return false
	}

	s.logger.Info("sort filter applied", "filter", label)
	return true
}

// goToPage clicks the pagination link for page n. A missing link means the
// listing ended early.
func (s *Service) goToPage(page playwright.Page, n int) bool {
	link := page.Locator(fmt.Sprintf(paginationLinkFormat, n)).First()

	count, err := link.Count()
	if err != nil || count == 0 {
		return false
	}

	if err := link.Click(); err != nil {
		s.logger.Warn("failed to click pagination link", "page", n, "error", err)
		return false
	}

	return true
}

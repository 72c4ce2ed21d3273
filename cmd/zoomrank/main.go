package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/lfarias/zoomrank/internal/analyzer"
	"github.com/lfarias/zoomrank/internal/browser"
	"github.com/lfarias/zoomrank/internal/config"
	"github.com/lfarias/zoomrank/internal/events"
	"github.com/lfarias/zoomrank/internal/models"
	"github.com/lfarias/zoomrank/internal/parser"
	"github.com/lfarias/zoomrank/internal/ratelimit"
	"github.com/lfarias/zoomrank/internal/report"
	"github.com/lfarias/zoomrank/internal/scraper"
	"github.com/lfarias/zoomrank/internal/storage"
	"github.com/lfarias/zoomrank/pkg/logger"
)

func main() {
	var (
		query    = flag.String("query", "", "Search query; defaults to the configured domain keyword")
		filters  = flag.String("filters", "", "Comma-separated sort filter labels overriding the configured list")
		pages    = flag.Int("pages", 0, "Pages to scrape per filter (0 = configured default)")
		topN     = flag.Int("top", 0, "How many ranked products to fetch details for (0 = configured default)")
		output   = flag.String("output", "melhores_produtos.csv", "CSV report path")
		archive  = flag.String("archive", "runs.json", "Local run archive path")
		headless = flag.Bool("headless", true, "Run the browser in headless mode")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logr := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	searchQuery := cfg.Scraper.SearchKeyword
	if *query != "" {
		searchQuery = *query
	}
	filterLabels := cfg.Scraper.FilterLabels
	if *filters != "" {
		filterLabels = splitAndTrim(*filters)
	}
	pagesPerFilter := cfg.Scraper.PagesToScrape
	if *pages > 0 {
		pagesPerFilter = *pages
	}
	top := cfg.Scraper.TopN
	if *topN > 0 {
		top = *topN
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logr.Info("shutdown signal received")
		cancel()
	}()

	b, err := browser.New(&browser.Options{
		Headless:       *headless && cfg.Browser.Headless,
		Timeout:        cfg.Browser.Timeout,
		UserAgent:      cfg.Browser.UserAgent,
		ViewportWidth:  cfg.Browser.ViewportWidth,
		ViewportHeight: cfg.Browser.ViewportHeight,
		AcceptLanguage: cfg.Browser.AcceptLanguage,
		TimezoneID:     cfg.Browser.TimezoneID,
		Locale:         cfg.Browser.Locale,
	})
	if err != nil {
		logr.Error("failed to initialize browser", "error", err)
		os.Exit(1)
	}
	defer b.Close()

	pageParser := parser.NewPageParser(cfg.Scraper.BaseURL, logr)

	specExtractor := parser.NewSpecExtractor(logr)
	specExtractor.SetKeywords(cfg.Scraper.SpecKeywords)
	specExtractor.SetInlineMaxLen(cfg.Scraper.SpecInlineMaxLen)

	merger := analyzer.NewMerger(searchQuery, logr)
	ranker := analyzer.NewRanker(logr)
	limiter := ratelimit.NewBackoffLimiter(cfg.Scraper.RateLimitMin, cfg.Scraper.RateLimitMax)

	svc := scraper.NewService(b, pageParser, specExtractor, merger, limiter, cfg.Scraper.MaxRetries, logr)

	logr.Info("starting collection",
		"query", searchQuery, "filters", filterLabels, "pages_per_filter", pagesPerFilter)

	accumulated, err := svc.CollectAll(ctx, cfg.Scraper.BaseURL, searchQuery, filterLabels, pagesPerFilter)
	if err != nil {
		logr.Error("collection failed", "error", err)
		os.Exit(1)
	}

	if len(accumulated) == 0 {
		logr.Error("nothing to rank: no products were collected")
		os.Exit(1)
	}

	ranked := ranker.Top(accumulated, top)

	writer := report.NewWriter(logr)
	writer.PrintSummary(os.Stdout, ranked)

	if err := svc.FetchDetails(ctx, ranked); err != nil {
		logr.Warn("detail fetch interrupted", "error", err)
	}

	if err := writer.SaveCSV(*output, ranked); err != nil {
		logr.Error("failed to save report", "error", err)
		os.Exit(1)
	}

	run := &storage.Run{
		ID:           uuid.New(),
		Query:        searchQuery,
		Filters:      append([]string{scraper.BaselineFilter}, filterLabels...),
		ProductCount: len(ranked),
		CreatedAt:    time.Now(),
	}

	archiveRun(logr, *archive, run, ranked)
	persistRun(ctx, logr, cfg, run, ranked)
	publishRun(ctx, logr, cfg, run, ranked)

	logr.Info("run finished", "run_id", run.ID, "products", len(ranked), "report", *output)
}

func archiveRun(logr *slog.Logger, path string, run *storage.Run, ranked []*models.Product) {
	runArchive, err := storage.NewRunArchive(path)
	if err != nil {
		logr.Error("failed to open run archive", "error", err)
		return
	}
	if err := runArchive.Add(run, ranked); err != nil {
		logr.Error("failed to archive run", "error", err)
	}
}

func persistRun(ctx context.Context, logr *slog.Logger, cfg *config.Config, run *storage.Run, ranked []*models.Product) {
	if !cfg.Database.Enabled {
		return
	}

	store, err := storage.New(ctx, storage.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.DBName,
		MaxConns: cfg.Database.MaxConns,
	})
	if err != nil {
		logr.Error("failed to connect to database, skipping persistence", "error", err)
		return
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		logr.Error("failed to ensure schema", "error", err)
		return
	}

	if err := store.SaveRun(ctx, run, ranked); err != nil {
		logr.Error("failed to persist run", "error", err)
		return
	}

	logr.Info("run persisted", "run_id", run.ID)
}

func publishRun(ctx context.Context, logr *slog.Logger, cfg *config.Config, run *storage.Run, ranked []*models.Product) {
	if !cfg.Redis.Enabled {
		return
	}

	client := events.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	publisher := events.NewPublisher(client, cfg.Redis.Stream, logr)
	defer publisher.Close()

	payload := &events.RunCompletedPayload{}
	if len(ranked) > 0 {
		payload.TopProduct = ranked[0].Name
		payload.TopScore = ranked[0].ScoreValue()
	}

	if err := publisher.PublishRunCompleted(ctx, run, payload); err != nil {
		logr.Error("failed to publish run event", "error", err)
	}
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"vulnhub-crawler/internal/crawler"
	"vulnhub-crawler/internal/ledger"
	"vulnhub-crawler/internal/logger"
	"vulnhub-crawler/internal/render"
	"vulnhub-crawler/pkg/models"
)

// SitemapSource lists every page URL a site advertises.
type SitemapSource interface {
	Resolve(ctx context.Context, sitemapURL string) ([]string, error)
}

// PageExtractor turns a loaded entry page into a record plus the
// screenshot URLs still to be fetched.
type PageExtractor interface {
	Extract(ctx context.Context, doc render.Document) (*models.ItemRecord, []string, error)
}

// AssetSource fetches screenshots through the page's session.
type AssetSource interface {
	FetchAll(ctx context.Context, session render.Session, urls []string, policy crawler.AssetPolicy) ([]string, []models.AssetFailure, error)
}

// Sink defines how to persist the data.
type Sink interface {
	Prepare() error
	WriteItem(record *models.ItemRecord) (string, error)
	WriteRunSummary(records []models.ItemRecord) (string, error)
}

type Throttle interface {
	Wait(ctx context.Context, url string) error
}

// Config holds worker settings.
type Config struct {
	SitemapURL   string
	EntryPrefix  string
	SeriesPrefix string
	Workers      int
	AssetPolicy  crawler.AssetPolicy
	PageTimeout  time.Duration
}

type Dependencies struct {
	Sitemap   SitemapSource
	Browser   render.Browser
	Extractor PageExtractor
	Assets    AssetSource
	Ledger    ledger.Store
	Sink      Sink
	Throttle  Throttle
	Logger    logger.Logger
	// Observer is optional.
	Observer Observer
}

// Report describes a finished run.
type Report struct {
	RunID       string
	Candidates  int
	Skipped     int
	Processed   int
	Failed      []FailedItem
	SummaryPath string
}

// Engine orchestrates the crawling process.
type Engine struct {
	config Config
	deps   Dependencies
	filter crawler.URLFilter
}

func NewEngine(cfg Config, deps Dependencies) *Engine {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNop()
	}
	if deps.Throttle == nil {
		deps.Throttle = crawler.NewThrottle(0)
	}
	return &Engine{
		config: cfg,
		deps:   deps,
		filter: crawler.NewPrefixFilter(cfg.EntryPrefix, cfg.SeriesPrefix),
	}
}

// Run crawls every entry page in the sitemap that the ledger has not seen
// and writes the run summary. Per-URL failures are collected in the report;
// the returned error is reserved for failures that end the run.
func (engine *Engine) Run(ctx context.Context) (*Report, error) {
	report := &Report{RunID: uuid.NewString()}
	log := engine.deps.Logger.With(logger.String("run_id", report.RunID))

	log.Info("Crawl started",
		logger.String("sitemap", engine.config.SitemapURL),
		logger.Int("workers", engine.config.Workers))

	urls, err := engine.deps.Sitemap.Resolve(ctx, engine.config.SitemapURL)
	if err != nil {
		return report, fmt.Errorf("resolve sitemap: %w", err)
	}

	targets := crawler.Classify(urls, engine.filter)
	candidates := dedupe(crawler.Select(targets, models.CategoryEntry))
	report.Candidates = len(candidates)
	log.Info("Parsed sitemap",
		logger.Int("urls", len(urls)),
		logger.Int("entries", len(candidates)),
		logger.Int("series_skipped", len(crawler.Select(targets, models.CategorySeries))))

	if err := engine.deps.Sink.Prepare(); err != nil {
		return report, err
	}

	visited, err := ledger.Open(ctx, engine.deps.Ledger)
	if err != nil {
		return report, fmt.Errorf("load ledger: %w", err)
	}
	log.Info("Loaded ledger", logger.Int("visited", visited.Len()))

	var (
		mu      sync.Mutex
		records = make([]*models.ItemRecord, len(candidates))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(engine.config.Workers)

	for i, url := range candidates {
		if gctx.Err() != nil {
			break
		}

		urlLog := log.With(logger.String("url", url), logger.Int("item", i+1), logger.Int("total", len(candidates)))
		if visited.Contains(url) {
			urlLog.Info("Skipping already visited URL")
			report.Skipped++
			continue
		}

		g.Go(func() error {
			urlLog.Info("Fetching item")

			record, err := engine.processWithSession(gctx, visited, url)
			if err == nil {
				urlLog.Info("Fetched item", logger.String("name", record.Release.Name))
				mu.Lock()
				records[i] = record
				report.Processed++
				mu.Unlock()
				return nil
			}

			var commitErr *commitError
			if errors.As(err, &commitErr) {
				return commitErr.err
			}
			if gctx.Err() != nil {
				// Cancelled: nothing was persisted for this URL.
				return nil
			}

			state := StateFailed
			var stageErr *StageError
			if errors.As(err, &stageErr) {
				state = stageErr.State
			}
			urlLog.Warn("Failed to fetch item", logger.String("state", state.String()), logger.Error(err))
			mu.Lock()
			report.Failed = append(report.Failed, FailedItem{URL: url, State: state, Err: err})
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return report, err
	}
	if err := ctx.Err(); err != nil {
		log.Warn("Crawl cancelled, run summary not written", logger.Int("processed", report.Processed))
		return report, err
	}

	summary := models.NewRunSummary()
	for _, record := range records {
		if record != nil {
			summary.Append(*record)
		}
	}

	path, err := engine.deps.Sink.WriteRunSummary(summary.Records)
	if err != nil {
		return report, fmt.Errorf("write run summary: %w", err)
	}
	report.SummaryPath = path

	log.Info("Stored all details",
		logger.String("path", path),
		logger.Int("processed", report.Processed),
		logger.Int("skipped", report.Skipped),
		logger.Int("failed", len(report.Failed)))
	return report, nil
}

func (engine *Engine) processWithSession(ctx context.Context, visited *ledger.Ledger, url string) (*models.ItemRecord, error) {
	session, err := engine.deps.Browser.NewSession(ctx)
	if err != nil {
		engine.observe(url, StateFailed)
		return nil, &StageError{State: StateRendering, Err: err}
	}
	defer session.Close()

	return engine.ProcessURL(ctx, session, visited, url)
}

// ProcessURL drives one entry page from PENDING to VISITED. The item file
// is written before the ledger is updated, so a URL in the ledger always
// has an item on disk. Failures before PERSISTING leave no trace.
func (engine *Engine) ProcessURL(ctx context.Context, session render.Session, visited *ledger.Ledger, url string) (*models.ItemRecord, error) {
	engine.observe(url, StatePending)

	fail := func(state State, err error) (*models.ItemRecord, error) {
		engine.observe(url, StateFailed)
		return nil, &StageError{State: state, Err: err}
	}

	if err := engine.deps.Throttle.Wait(ctx, url); err != nil {
		return fail(StatePending, err)
	}

	pageCtx := ctx
	if engine.config.PageTimeout > 0 {
		var cancel context.CancelFunc
		pageCtx, cancel = context.WithTimeout(ctx, engine.config.PageTimeout)
		defer cancel()
	}

	engine.observe(url, StateRendering)
	if err := session.Navigate(pageCtx, url); err != nil {
		return fail(StateRendering, err)
	}

	engine.observe(url, StateExtracting)
	record, assetURLs, err := engine.deps.Extractor.Extract(pageCtx, session.Document())
	if err != nil {
		return fail(StateExtracting, err)
	}

	engine.observe(url, StateFetchingAssets)
	images, failures, err := engine.deps.Assets.FetchAll(pageCtx, session, assetURLs, engine.config.AssetPolicy)
	if err != nil {
		return fail(StateFetchingAssets, err)
	}
	record.Screenshots.Images = images
	record.Screenshots.Errors = failures

	if err := ctx.Err(); err != nil {
		return fail(StatePersisting, err)
	}

	engine.observe(url, StatePersisting)
	if _, err := engine.deps.Sink.WriteItem(record); err != nil {
		return fail(StatePersisting, err)
	}

	// The item is on disk; record it even if the run is being cancelled.
	if err := visited.Commit(context.WithoutCancel(ctx), url); err != nil {
		engine.observe(url, StateFailed)
		return nil, &commitError{err: fmt.Errorf("update ledger: %w", err)}
	}

	engine.observe(url, StateVisited)
	return record, nil
}

func (engine *Engine) observe(url string, state State) {
	if engine.deps.Observer != nil {
		engine.deps.Observer(url, state)
	}
}

// commitError marks a ledger write failure, which stops the run.
type commitError struct {
	err error
}

func (e *commitError) Error() string { return e.err.Error() }

func (e *commitError) Unwrap() error { return e.err }

func dedupe(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, url := range urls {
		if _, ok := seen[url]; ok {
			continue
		}
		seen[url] = struct{}{}
		out = append(out, url)
	}
	return out
}

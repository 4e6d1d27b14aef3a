package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"vulnhub-crawler/internal/config"
	"vulnhub-crawler/internal/crawler"
	"vulnhub-crawler/internal/crawler/engine"
	"vulnhub-crawler/internal/ledger"
	"vulnhub-crawler/internal/logger"
	"vulnhub-crawler/internal/render"
	"vulnhub-crawler/internal/storage"
)

const (
	dbConnectAttempts = 10
	dbRetryInterval   = 2 * time.Second
)

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		sitemapURL string
		outputDir  string
		workers    int
		renderer   string
	)

	cmd := &cobra.Command{
		Use:           "crawler",
		Short:         "Crawl VulnHub entry pages into JSON files",
		Long:          `Reads the VulnHub sitemap, renders every entry page not yet in the visited ledger and writes one JSON file per machine plus a run summary.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				fmt.Fprintf(os.Stderr, "load config: %v\n", err)
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("sitemap") {
				cfg.SitemapURL = sitemapURL
			}
			if flags.Changed("output-dir") {
				cfg.OutputDir = outputDir
				if _, set := os.LookupEnv("ITEMS_DIR"); !set {
					cfg.ItemsDir = filepath.Join(outputDir, "items")
				}
			}
			if flags.Changed("workers") {
				cfg.Workers = workers
			}
			if flags.Changed("renderer") {
				cfg.Renderer = renderer
			}

			if err := cfg.Validate(); err != nil {
				fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
				return err
			}

			log, err := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
			if err != nil {
				fmt.Fprintf(os.Stderr, "create logger: %v\n", err)
				return err
			}
			defer func() { _ = log.Sync() }()

			if err := run(cmd.Context(), cfg, log); err != nil {
				log.Error("Crawl failed", logger.Error(err))
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sitemapURL, "sitemap", "", "sitemap URL (overrides SITEMAP_URL)")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "directory for the run summary (overrides OUTPUT_DIR)")
	cmd.Flags().IntVar(&workers, "workers", 1, "concurrent page renders (overrides WORKERS)")
	cmd.Flags().StringVar(&renderer, "renderer", config.RendererChrome, "chrome or static (overrides RENDERER)")

	return cmd
}

func run(parent context.Context, cfg *config.Config, log logger.Logger) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	policy, err := crawler.ParseAssetPolicy(cfg.AssetFailurePolicy)
	if err != nil {
		return err
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	browser, err := newBrowser(ctx, cfg, httpClient)
	if err != nil {
		return err
	}
	defer browser.Close()

	store, closeStore, err := newLedgerStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	crawlEngine := engine.NewEngine(engine.Config{
		SitemapURL:   cfg.SitemapURL,
		EntryPrefix:  cfg.EntryPrefix,
		SeriesPrefix: cfg.SeriesPrefix,
		Workers:      cfg.Workers,
		AssetPolicy:  policy,
		PageTimeout:  cfg.PageTimeout,
	}, engine.Dependencies{
		Sitemap:   crawler.NewSitemapResolver(httpClient, cfg.UserAgent),
		Browser:   browser,
		Extractor: crawler.NewExtractor(),
		Assets:    crawler.NewAssetFetcher(),
		Ledger:    store,
		Sink:      storage.NewFileSink(cfg.OutputDir, cfg.ItemsDir),
		Throttle:  crawler.NewThrottle(cfg.RateLimit),
		Logger:    log,
	})

	report, err := crawlEngine.Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn("Interrupted, shutting down")
		}
		return err
	}

	for _, failed := range report.Failed {
		log.Warn("Not crawled",
			logger.String("url", failed.URL),
			logger.String("state", failed.State.String()),
			logger.Error(failed.Err))
	}
	return nil
}

func newBrowser(ctx context.Context, cfg *config.Config, client *http.Client) (render.Browser, error) {
	if cfg.Renderer == config.RendererStatic {
		return render.NewStaticBrowser(client, cfg.UserAgent), nil
	}
	browser, err := render.NewChromeBrowser(ctx, render.ChromeOptions{
		UserAgent: cfg.UserAgent,
		ExecPath:  cfg.ChromePath,
	})
	if err != nil {
		return nil, err
	}
	return browser, nil
}

func newLedgerStore(ctx context.Context, cfg *config.Config, log logger.Logger) (ledger.Store, func(), error) {
	if cfg.LedgerDSN == "" {
		log.Info("Using file ledger", logger.String("path", cfg.LedgerPath))
		return ledger.NewFileStore(cfg.LedgerPath), func() {}, nil
	}

	db, err := waitForDB(ctx, cfg.LedgerDSN, log)
	if err != nil {
		return nil, nil, err
	}
	store := ledger.NewPostgresStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	log.Info("Using postgres ledger")
	return store, func() { db.Close() }, nil
}

func waitForDB(ctx context.Context, dsn string, log logger.Logger) (*sql.DB, error) {
	var lastErr error
	for i := 0; i < dbConnectAttempts; i++ {
		db, err := sql.Open("pgx", dsn)
		if err == nil {
			if err = db.PingContext(ctx); err == nil {
				log.Info("Connected to ledger database")
				return db, nil
			}
			db.Close()
		}
		lastErr = err
		log.Warn("Waiting for ledger database", logger.Int("attempt", i+1), logger.Error(err))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(dbRetryInterval):
		}
	}
	return nil, fmt.Errorf("connect to ledger database after %d attempts: %w", dbConnectAttempts, lastErr)
}

// Command legalqa builds a normalized question/answer dataset from legal
// advisory pages. It has three modes:
//
//	legalqa -discover <listing-url> -out urls.json
//	legalqa -crawl urls.json -out interchange.json
//	legalqa -out <dir> [-db data.db] [-append] [-max-failures N] in.json [in2.json ...]
//
// The third (default) mode normalizes interchange files into the four flat
// tables. Exit code is nonzero when the number of unparseable or invalid
// documents exceeds -max-failures.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/phuslu/log"

	"github.com/phamdt/legalqa/pkg/clean"
	"github.com/phamdt/legalqa/pkg/config"
	"github.com/phamdt/legalqa/pkg/discover"
	"github.com/phamdt/legalqa/pkg/fetch"
	"github.com/phamdt/legalqa/pkg/interchange"
	"github.com/phamdt/legalqa/pkg/markup"
	"github.com/phamdt/legalqa/pkg/normalize"
	"github.com/phamdt/legalqa/pkg/pipeline"
	"github.com/phamdt/legalqa/pkg/tables"

	_ "github.com/mattn/go-sqlite3"
)

func main() {
	discoverFlag := flag.String("discover", "", "listing URL to discover article links from")
	crawlFlag := flag.String("crawl", "", "URL list file to crawl into interchange JSON")
	outFlag := flag.String("out", "", "output file (discover, crawl) or directory (normalize)")
	configFlag := flag.String("config", "", "path to TOML configuration file")
	dbFlag := flag.String("db", "", "also append rows to this SQLite database")
	appendFlag := flag.Bool("append", false, "append to existing CSV tables instead of overwriting")
	maxFailures := flag.Int("max-failures", 0, "tolerated count of unparseable/invalid documents")
	maxPages := flag.Int("max-pages", 0, "override the configured number of listing pages")
	levelFlag := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	logger := log.Logger{
		Level:  log.ParseLevel(*levelFlag),
		Writer: &log.ConsoleWriter{ColorOutput: true, Writer: os.Stderr},
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		logger.Fatal().Err(err).Msg("configuration error")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch {
	case *discoverFlag != "":
		runDiscover(ctx, logger, cfg, *discoverFlag, *outFlag, *maxPages)
	case *crawlFlag != "":
		runCrawl(ctx, logger, cfg, *crawlFlag, *outFlag, *maxFailures)
	default:
		if flag.NArg() == 0 {
			fmt.Fprintln(os.Stderr, "usage: legalqa -discover <url> | -crawl <urls.json> | -out <dir> <in.json>...")
			flag.PrintDefaults()
			os.Exit(2)
		}
		runNormalize(logger, flag.Args(), *outFlag, *dbFlag, *appendFlag, *maxFailures)
	}
}

func runDiscover(ctx context.Context, logger log.Logger, cfg config.Config, baseURL, out string, maxPages int) {
	if out == "" {
		logger.Fatal().Msg("-discover requires -out <file>")
	}
	renderWait, _ := cfg.Discover.Wait()
	pageDelay, _ := cfg.Discover.Pause()

	d := discover.NewDiscoverer()
	d.ArticleSelector = cfg.Discover.ArticleSelector
	d.MaxPages = cfg.Discover.MaxPages
	d.UserAgent = cfg.Crawler.UserAgent
	d.RenderWait = renderWait
	d.PageDelay = pageDelay
	d.Logger = logger
	if maxPages > 0 {
		d.MaxPages = maxPages
	}

	urls, err := d.Discover(ctx, baseURL)
	if err != nil && len(urls) == 0 {
		logger.Fatal().Err(err).Msg("discovery failed")
	}
	if err := discover.Save(out, urls); err != nil {
		logger.Fatal().Err(err).Msg("failed to save url list")
	}
	logger.Info().Int("urls", len(urls)).Str("out", out).Msg("discovery complete")
}

func runCrawl(ctx context.Context, logger log.Logger, cfg config.Config, urlsPath, out string, maxFailures int) {
	if out == "" {
		logger.Fatal().Msg("-crawl requires -out <file>")
	}
	pages, err := discover.Load(urlsPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load url list")
	}
	urls := make([]string, 0, len(pages))
	for _, p := range pages {
		urls = append(urls, p.URL)
	}

	crawler, err := buildCrawler(logger, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build crawler")
	}

	start := time.Now()
	docs, stats, err := crawler.Run(ctx, urls)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("crawl failed")
	}
	if err := interchange.Save(out, docs); err != nil {
		logger.Fatal().Err(err).Msg("failed to save interchange file")
	}

	logger.Info().
		Int("documents", stats.Documents).
		Int("skipped", stats.Skipped).
		Int("records", stats.Records).
		Int("dropped_records", stats.DroppedRecords).
		Int("anomalies", stats.Anomalies).
		Dur("elapsed", time.Since(start)).
		Str("out", out).
		Msg("crawl complete")

	if stats.Skipped > maxFailures {
		logger.Error().Int("skipped", stats.Skipped).Int("max_failures", maxFailures).
			Msg("failure tolerance exceeded")
		os.Exit(1)
	}
}

func buildCrawler(logger log.Logger, cfg config.Config) (*pipeline.Crawler, error) {
	timeout, err := cfg.Crawler.Timeout()
	if err != nil {
		return nil, err
	}
	retryDelay, err := cfg.Crawler.Delay()
	if err != nil {
		return nil, err
	}

	client := fetch.NewClient()
	client.HTTP = &http.Client{Timeout: timeout}
	client.UserAgent = cfg.Crawler.UserAgent
	client.MaxBodySize = cfg.Crawler.MaxBodySize
	client.Retries = cfg.Crawler.Retries
	client.RetryDelay = retryDelay
	client.Logger = logger

	cleaner, err := clean.New(cfg.Clean.NoisePatterns, cfg.Clean.ExclusionPatterns,
		clean.WithMinLengths(cfg.Clean.MinQuestionLen, cfg.Clean.MinAnswerLen))
	if err != nil {
		return nil, err
	}

	extractor := markup.NewExtractor(cfg.Extract.ContainerSelector)
	extractor.Logger = logger

	return &pipeline.Crawler{
		Fetcher:   client,
		Extractor: extractor,
		Cleaner:   cleaner,
		Workers:   cfg.Crawler.Workers,
		Logger:    logger,
	}, nil
}

func runNormalize(logger log.Logger, inputs []string, outDir, dbPath string, appendMode bool, maxFailures int) {
	if outDir == "" {
		logger.Fatal().Msg("normalize mode requires -out <dir>")
	}

	var (
		docs      []interchange.Document
		malformed int
	)
	for _, path := range inputs {
		loaded, err := interchange.Load(path)
		if err != nil {
			var me *interchange.MalformedError
			if errors.As(err, &me) {
				logger.Warn().Err(err).Str("path", path).Msg("skipping malformed input file")
				malformed++
				continue
			}
			logger.Fatal().Err(err).Str("path", path).Msg("failed to read input")
		}
		docs = append(docs, loaded...)
	}

	normalizer := normalize.New()
	normalizer.Logger = logger
	rows := normalizer.Normalize(docs)

	writer := &tables.CSVWriter{Dir: outDir, Append: appendMode}
	if err := writer.Write(rows); err != nil {
		logger.Fatal().Err(err).Msg("failed to write CSV tables")
	}

	if dbPath != "" {
		if err := writeSQLite(dbPath, rows); err != nil {
			logger.Fatal().Err(err).Str("db", dbPath).Msg("failed to write SQLite tables")
		}
	}

	logger.Info().
		Int("documents", len(docs)).
		Int("questions", len(rows.Questions)).
		Int("answers", len(rows.Answers)).
		Int("contexts", len(rows.Contexts)).
		Int("answer_contexts", len(rows.AnswerContexts)).
		Int("malformed_inputs", malformed).
		Int("invalid_records", normalizer.Dropped()).
		Str("out", outDir).
		Msg("normalization complete")

	if failures := malformed + normalizer.Dropped(); failures > maxFailures {
		logger.Error().Int("failures", failures).Int("max_failures", maxFailures).
			Msg("failure tolerance exceeded")
		os.Exit(1)
	}
}

func writeSQLite(path string, rows normalize.RowSet) error {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return err
	}
	defer conn.Close()

	w, err := tables.NewSQLiteWriter(conn, 500)
	if err != nil {
		return err
	}
	if err := w.Write(rows); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// Package pipeline runs the per-document stages (fetch, extract, group,
// clean) on concurrent workers and merges their results through a single
// consumer, preserving input order. One document's failure is recorded and
// skipped; it never aborts the batch.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/phuslu/log"

	"github.com/phamdt/legalqa/pkg/clean"
	"github.com/phamdt/legalqa/pkg/interchange"
	"github.com/phamdt/legalqa/pkg/markup"
	"github.com/phamdt/legalqa/pkg/qa"
)

// Fetcher retrieves one page's HTML. pkg/fetch provides the production
// implementation; tests inject their own.
type Fetcher interface {
	Get(ctx context.Context, url string) (string, error)
}

// Stats aggregates per-kind counts across a run. All failures are local to
// one document or record.
type Stats struct {
	Documents      int // documents attempted
	Skipped        int // fetch failures and containers not found
	Anomalies      int // orphan blocks dropped during grouping
	Records        int // records surviving cleaning
	DroppedRecords int // records removed by the cleaning filter
}

// Add merges other's counts into s.
func (s *Stats) Add(other Stats) {
	s.Documents += other.Documents
	s.Skipped += other.Skipped
	s.Anomalies += other.Anomalies
	s.Records += other.Records
	s.DroppedRecords += other.DroppedRecords
}

// Crawler drives the document pipeline over a list of page URLs.
type Crawler struct {
	Fetcher   Fetcher
	Extractor *markup.Extractor
	Cleaner   *clean.Cleaner
	Workers   int
	Logger    log.Logger
}

// docResult carries one document's outcome from a worker to the consumer.
type docResult struct {
	index   int
	doc     interchange.Document
	skipped bool
	stats   Stats
}

// Run processes every URL and returns the surviving documents in input
// order, together with run statistics. The returned error is non-nil only
// for whole-run failures (context cancellation); per-document errors are
// counted in Stats.Skipped.
func (c *Crawler) Run(ctx context.Context, urls []string) ([]interchange.Document, Stats, error) {
	workers := c.Workers
	if workers <= 0 {
		workers = 4
	}

	pool := NewWorkerPool(workers, workers*2)
	results := make(chan docResult, workers*2)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	pool.Start(ctx)

	var (
		docs  []interchange.Document
		stats Stats
	)
	done := make(chan struct{})

	// Single consumer: buffers out-of-order results and merges them in
	// document-index order, so output is deterministic for a given input.
	go func() {
		defer close(done)
		pending := make(map[int]docResult)
		next := 0
		for res := range results {
			pending[res.index] = res
			for {
				r, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				stats.Add(r.stats)
				if !r.skipped {
					docs = append(docs, r.doc)
				}
				next++
			}
		}
	}()

	for i, url := range urls {
		idx, pageURL := i, url
		job := func(jobCtx context.Context) error {
			res := c.processURL(jobCtx, idx, pageURL)
			select {
			case results <- res:
			case <-jobCtx.Done():
			}
			return nil
		}
		if err := pool.SubmitCtx(ctx, job); err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrPoolClosed) {
				break
			}
			pool.Close()
			close(results)
			<-done
			return nil, stats, err
		}
	}

	pool.Close()
	close(results)
	<-done

	if err := ctx.Err(); err != nil {
		return docs, stats, err
	}
	return docs, stats, nil
}

// processURL runs the full per-document pipeline. Every failure path
// increments Skipped and leaves the rest of the batch untouched.
func (c *Crawler) processURL(ctx context.Context, index int, url string) docResult {
	res := docResult{index: index, stats: Stats{Documents: 1}}

	html, err := c.Fetcher.Get(ctx, url)
	if err != nil {
		c.Logger.Warn().Err(err).Str("url", url).Msg("fetch failed, skipping document")
		res.skipped = true
		res.stats.Skipped = 1
		return res
	}

	doc, stats, ok := c.ProcessHTML(url, html)
	res.doc = doc
	res.stats = stats
	res.skipped = !ok
	return res
}

// ProcessHTML runs extraction, grouping and cleaning for one fetched page.
// It is exported so the per-document stages stay testable without a fetcher.
func (c *Crawler) ProcessHTML(url, html string) (interchange.Document, Stats, bool) {
	stats := Stats{Documents: 1}

	blocks, err := c.Extractor.Extract(html)
	if err != nil {
		if errors.Is(err, markup.ErrContainerNotFound) {
			c.Logger.Warn().Str("url", url).Msg("no content container, skipping document")
		} else {
			c.Logger.Warn().Err(err).Str("url", url).Msg("extraction failed, skipping document")
		}
		stats.Skipped = 1
		return interchange.Document{}, stats, false
	}

	pairs, anomalies := qa.Group(blocks)
	stats.Anomalies = anomalies

	cleaned, dropped := c.Cleaner.CleanAll(pairs)
	stats.DroppedRecords = dropped
	stats.Records = len(cleaned)

	if len(cleaned) == 0 {
		c.Logger.Debug().Str("url", url).Msg("no usable records after cleaning")
		return interchange.Document{}, stats, false
	}

	c.Logger.Info().
		Str("url", url).
		Int("records", len(cleaned)).
		Int("anomalies", anomalies).
		Msg("document processed")

	return interchange.Document{
		URL:       url,
		CrawledAt: time.Now().UTC(),
		QAPairs:   cleaned,
	}, stats, true
}

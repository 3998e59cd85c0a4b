// Package discover collects article URLs from paginated category listings.
// Listings are JavaScript-rendered, so pages are loaded through a headless
// browser; anchor extraction from the rendered HTML is a pure function.
package discover

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/phuslu/log"
)

// PageURL is one discovered article link. Files of these are the input to
// the crawl step.
type PageURL struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Discoverer walks listing pages base, base/?page=2, ... up to MaxPages.
type Discoverer struct {
	// ArticleSelector matches the anchors of article entries on a listing.
	ArticleSelector string
	MaxPages        int
	UserAgent       string
	// RenderWait is how long to give the page's JavaScript after navigation.
	RenderWait time.Duration
	PageDelay  time.Duration
	Logger     log.Logger
}

// NewDiscoverer returns a Discoverer with the listing defaults.
func NewDiscoverer() *Discoverer {
	return &Discoverer{
		ArticleSelector: "section article a",
		MaxPages:        25,
		UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		RenderWait:      3 * time.Second,
		PageDelay:       3 * time.Second,
	}
}

// Discover renders each listing page and accumulates article URLs,
// de-duplicated, in discovery order. A page that fails to render is logged
// and skipped; the remaining pages are still visited.
func (d *Discoverer) Discover(ctx context.Context, baseURL string) ([]PageURL, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(d.UserAgent),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	var (
		all  []PageURL
		seen = make(map[string]bool)
	)
	for page := 1; page <= d.MaxPages; page++ {
		pageURL := baseURL
		if page > 1 {
			pageURL = fmt.Sprintf("%s/?page=%d", strings.TrimRight(baseURL, "/"), page)
			select {
			case <-ctx.Done():
				return all, ctx.Err()
			case <-time.After(d.PageDelay):
			}
		}

		html, err := d.renderPage(browserCtx, pageURL)
		if err != nil {
			d.Logger.Warn().Err(err).Str("url", pageURL).Msg("listing page failed, skipping")
			continue
		}

		urls, err := ParseListing(html, d.ArticleSelector, baseURL)
		if err != nil {
			d.Logger.Warn().Err(err).Str("url", pageURL).Msg("listing parse failed, skipping")
			continue
		}
		added := 0
		for _, u := range urls {
			if seen[u.URL] {
				continue
			}
			seen[u.URL] = true
			all = append(all, u)
			added++
		}
		d.Logger.Info().Str("url", pageURL).Int("found", len(urls)).Int("new", added).Msg("listing page done")
	}
	return all, nil
}

func (d *Discoverer) renderPage(browserCtx context.Context, pageURL string) (string, error) {
	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(pageURL),
		chromedp.Sleep(d.RenderWait),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", err
	}
	if html == "" {
		return "", fmt.Errorf("discover: empty page for %s", pageURL)
	}
	return html, nil
}

// ParseListing extracts article links matching selector from rendered HTML,
// resolving relative hrefs against baseURL. Anchors without an href or
// without visible text are skipped.
func ParseListing(html, selector, baseURL string) ([]PageURL, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}

	var out []PageURL
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || href == "" {
			return
		}
		title := strings.TrimSpace(s.Text())
		if title == "" {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		out = append(out, PageURL{URL: base.ResolveReference(ref).String(), Title: title})
	})
	return out, nil
}

// Save writes the discovered URLs as indented JSON.
func Save(path string, urls []PageURL) error {
	data, err := json.MarshalIndent(urls, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Load reads a URL list produced by Save.
func Load(path string) ([]PageURL, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var urls []PageURL
	if err := json.Unmarshal(data, &urls); err != nil {
		return nil, fmt.Errorf("discover: bad url list %s: %w", path, err)
	}
	return urls, nil
}

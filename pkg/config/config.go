// Package config loads the tool's TOML configuration and applies defaults
// tuned for thuvienphapluat.vn advisory pages.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config is the top-level configuration.
type Config struct {
	Crawler  CrawlerConfig  `toml:"crawler"`
	Extract  ExtractConfig  `toml:"extract"`
	Clean    CleanConfig    `toml:"clean"`
	Discover DiscoverConfig `toml:"discover"`
}

// CrawlerConfig controls page fetching and per-document concurrency.
type CrawlerConfig struct {
	UserAgent      string `toml:"user_agent" validate:"required"`
	RequestTimeout string `toml:"request_timeout" validate:"required"` // e.g. "30s"
	RetryDelay     string `toml:"retry_delay" validate:"required"`
	Retries        int    `toml:"retries" validate:"min=1"`
	Workers        int    `toml:"workers" validate:"min=1"`
	MaxBodySize    int64  `toml:"max_body_size" validate:"min=1"`
}

// ExtractConfig locates content inside a page.
type ExtractConfig struct {
	// ContainerSelector identifies the content region; a page where it
	// matches nothing is skipped.
	ContainerSelector string `toml:"container_selector" validate:"required"`
}

// CleanConfig holds the noise and exclusion pattern sets and optional
// minimum lengths (rune counts; 0 disables a check).
type CleanConfig struct {
	NoisePatterns     []string `toml:"noise_patterns"`
	ExclusionPatterns []string `toml:"exclusion_patterns"`
	MinQuestionLen    int      `toml:"min_question_len" validate:"min=0"`
	MinAnswerLen      int      `toml:"min_answer_len" validate:"min=0"`
}

// DiscoverConfig controls listing pagination.
type DiscoverConfig struct {
	ArticleSelector string `toml:"article_selector" validate:"required"`
	MaxPages        int    `toml:"max_pages" validate:"min=1"`
	RenderWait      string `toml:"render_wait" validate:"required"`
	PageDelay       string `toml:"page_delay" validate:"required"`
}

// Default returns the configuration used when no file is given. Noise
// patterns match bracketed placeholder markers the source site injects;
// exclusion patterns match questions whose answers live in attachments the
// pipeline cannot see.
func Default() Config {
	return Config{
		Crawler: CrawlerConfig{
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			RequestTimeout: "30s",
			RetryDelay:     "2s",
			Retries:        3,
			Workers:        4,
			MaxBodySize:    10 * 1024 * 1024,
		},
		Extract: ExtractConfig{
			ContainerSelector: "#news-content",
		},
		Clean: CleanConfig{
			NoisePatterns: []string{
				`\(Hình từ [Ii]nternet\)`,
				`\(Ảnh minh họa\)`,
				`\[[^\[\]]*\]`,
			},
			ExclusionPatterns: []string{
				`(?i)tải về`,
				`(?i)file đính kèm`,
			},
		},
		Discover: DiscoverConfig{
			ArticleSelector: "section article a",
			MaxPages:        25,
			RenderWait:      "3s",
			PageDelay:       "3s",
		},
	}
}

// Load reads path when non-empty, overlaying the defaults, then validates.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("config: invalid: %w", err)
	}
	if _, err := cfg.Crawler.Timeout(); err != nil {
		return Config{}, err
	}
	if _, err := cfg.Crawler.Delay(); err != nil {
		return Config{}, err
	}
	if _, err := cfg.Discover.Wait(); err != nil {
		return Config{}, err
	}
	if _, err := cfg.Discover.Pause(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Timeout parses the request timeout.
func (c CrawlerConfig) Timeout() (time.Duration, error) {
	return parseDuration("crawler.request_timeout", c.RequestTimeout)
}

// Delay parses the retry delay.
func (c CrawlerConfig) Delay() (time.Duration, error) {
	return parseDuration("crawler.retry_delay", c.RetryDelay)
}

// Wait parses the render wait.
func (d DiscoverConfig) Wait() (time.Duration, error) {
	return parseDuration("discover.render_wait", d.RenderWait)
}

// Pause parses the delay between listing pages.
func (d DiscoverConfig) Pause() (time.Duration, error) {
	return parseDuration("discover.page_delay", d.PageDelay)
}

func parseDuration(field, value string) (time.Duration, error) {
	dur, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", field, err)
	}
	return dur, nil
}

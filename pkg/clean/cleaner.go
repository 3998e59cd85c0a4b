// Package clean strips noise markers from grouped QA records and drops
// records the dataset cannot use. Cleaning is pure and idempotent: applying
// it twice yields the same bytes as applying it once.
package clean

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/phamdt/legalqa/pkg/interchange"
	"github.com/phamdt/legalqa/pkg/markup"
)

// Cleaner holds compiled pattern sets. Zero-length minimums disable the
// length checks.
type Cleaner struct {
	noise       []*regexp.Regexp
	exclusions  []*regexp.Regexp
	minQuestion int
	minAnswer   int
}

// Option customizes a Cleaner.
type Option func(*Cleaner)

// WithMinLengths enables rune-count minimums for questions and answers.
func WithMinLengths(question, answer int) Option {
	return func(c *Cleaner) {
		c.minQuestion = question
		c.minAnswer = answer
	}
}

// New compiles the noise and exclusion pattern sets. Noise patterns are
// stripped from every text field; a question matching any exclusion pattern
// drops the whole record.
func New(noise, exclusions []string, opts ...Option) (*Cleaner, error) {
	c := &Cleaner{}
	for _, p := range noise {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("clean: bad noise pattern %q: %w", p, err)
		}
		c.noise = append(c.noise, re)
	}
	for _, p := range exclusions {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("clean: bad exclusion pattern %q: %w", p, err)
		}
		c.exclusions = append(c.exclusions, re)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Clean returns the cleaned record and true, or a zero record and false when
// the record must be dropped (excluded question, empty question, or no
// surviving answers).
func (c *Cleaner) Clean(rec interchange.QAPair) (interchange.QAPair, bool) {
	out := interchange.QAPair{
		Question: c.strip(rec.Question),
		Table:    rec.Table,
	}
	if out.Question == "" {
		return interchange.QAPair{}, false
	}
	if c.minQuestion > 0 && utf8.RuneCountInString(out.Question) < c.minQuestion {
		return interchange.QAPair{}, false
	}
	for _, re := range c.exclusions {
		if re.MatchString(out.Question) {
			return interchange.QAPair{}, false
		}
	}

	for _, a := range rec.Answers {
		content := c.strip(a.Content)
		if content == "" {
			continue
		}
		if c.minAnswer > 0 && utf8.RuneCountInString(content) < c.minAnswer {
			continue
		}
		cleaned := interchange.Answer{Content: content, Contexts: []string{}}
		for _, ctx := range a.Contexts {
			if s := c.strip(ctx); s != "" {
				cleaned.Contexts = append(cleaned.Contexts, s)
			}
		}
		out.Answers = append(out.Answers, cleaned)
	}
	if len(out.Answers) == 0 {
		return interchange.QAPair{}, false
	}
	return out, true
}

// CleanAll filters a whole document's pairs, returning survivors and the
// number of dropped records.
func (c *Cleaner) CleanAll(pairs []interchange.QAPair) ([]interchange.QAPair, int) {
	var out []interchange.QAPair
	dropped := 0
	for _, p := range pairs {
		cleaned, ok := c.Clean(p)
		if !ok {
			dropped++
			continue
		}
		out = append(out, cleaned)
	}
	return out, dropped
}

// strip removes noise matches and renormalizes whitespace until a fixpoint
// is reached, so removal that exposes new matches stays idempotent.
func (c *Cleaner) strip(s string) string {
	for {
		out := s
		for _, re := range c.noise {
			out = re.ReplaceAllString(out, "")
		}
		out = markup.NormalizeSpace(out)
		if out == s {
			return out
		}
		s = out
	}
}

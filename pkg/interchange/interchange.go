// Package interchange defines the intermediate representation passed from
// crawling/extraction into relational normalization, and its JSON encoding.
package interchange

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Document holds everything extracted from one source page.
type Document struct {
	URL       string    `json:"url"`
	CrawledAt time.Time `json:"crawled_at,omitzero"`
	QAPairs   []QAPair  `json:"qa_pairs"`
}

// QAPair is one question with its ordered answers. Table carries the
// markdown rendering of a standalone table block, when the page had one.
type QAPair struct {
	Question string   `json:"question"`
	Answers  []Answer `json:"answers"`
	Table    string   `json:"table,omitempty"`
}

// Answer is one answer paragraph with its supporting context passages,
// in document order.
type Answer struct {
	Content  string   `json:"answer"`
	Contexts []string `json:"contexts"`
}

// MalformedError reports an input file that does not match the interchange
// shape. The file is skipped; the error is counted by the caller.
type MalformedError struct {
	Path string
	Err  error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("interchange: malformed input %s: %v", e.Path, e.Err)
}

func (e *MalformedError) Unwrap() error { return e.Err }

// Load reads a JSON array of documents from path. A document missing its URL
// or a JSON shape mismatch yields a *MalformedError.
func Load(path string) ([]Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var docs []Document
	dec := json.NewDecoder(f)
	if err := dec.Decode(&docs); err != nil {
		return nil, &MalformedError{Path: path, Err: err}
	}
	for i, d := range docs {
		if d.URL == "" {
			return nil, &MalformedError{Path: path, Err: fmt.Errorf("document %d has no url", i)}
		}
	}
	return docs, nil
}

// Save writes documents to path as indented JSON, matching the format the
// crawl step produces.
func Save(path string, docs []Document) error {
	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Package normalize assigns identifiers and ordering metadata to cleaned QA
// records, producing the four relational row sets.
package normalize

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phuslu/log"

	"github.com/phamdt/legalqa/pkg/interchange"
)

// ValidationError reports a record that violated the non-empty-content
// invariant after cleaning. The record is dropped; the batch continues.
type ValidationError struct {
	URL      string
	Question string
	Reason   string
}

func (e *ValidationError) Error() string {
	q := e.Question
	if len(q) > 60 {
		q = q[:60] + "..."
	}
	return fmt.Sprintf("normalize: invalid record %q from %s: %s", q, e.URL, e.Reason)
}

// Normalizer turns interchange documents into row sets. Identifiers are
// random UUIDs, so no shared counter exists and concurrent preparation of
// separate documents needs no coordination. All rows in one run share a
// single UTC timestamp captured at construction, which keeps created_at
// trivially non-decreasing within the run.
type Normalizer struct {
	Logger log.Logger

	now     time.Time
	dropped int
}

// New creates a Normalizer for one run.
func New() *Normalizer {
	return &Normalizer{now: time.Now().UTC()}
}

// Dropped reports how many records were removed by defensive validation.
func (n *Normalizer) Dropped() int { return n.dropped }

// Normalize emits rows for every record of every document. Per-record order
// (answers under a question, contexts under an answer) is preserved from the
// input; order across records carries no meaning.
func (n *Normalizer) Normalize(docs []interchange.Document) RowSet {
	var rs RowSet
	for _, doc := range docs {
		for _, pair := range doc.QAPairs {
			if err := validateRecord(doc.URL, pair); err != nil {
				n.dropped++
				n.Logger.Warn().Err(err).Str("url", doc.URL).Msg("dropping invalid record")
				continue
			}
			n.emitRecord(&rs, pair)
		}
	}
	return rs
}

// emitRecord buffers the full child list of each parent before assigning
// order indices, so an index always reflects the final 0-based position.
func (n *Normalizer) emitRecord(rs *RowSet, pair interchange.QAPair) {
	questionID := uuid.NewString()
	rs.Questions = append(rs.Questions, QuestionRow{
		QuestionID: questionID,
		Content:    pair.Question,
		CreatedAt:  n.now,
	})

	for ai, answer := range pair.Answers {
		answerID := uuid.NewString()
		rs.Answers = append(rs.Answers, AnswerRow{
			AnswerID:   answerID,
			QuestionID: questionID,
			Content:    answer.Content,
			OrderIndex: ai,
			CreatedAt:  n.now,
		})
		for ci, ctx := range answer.Contexts {
			contextID := uuid.NewString()
			rs.Contexts = append(rs.Contexts, ContextRow{
				ContextID: contextID,
				Content:   ctx,
				CreatedAt: n.now,
			})
			rs.AnswerContexts = append(rs.AnswerContexts, AnswerContextRow{
				AnswerID:   answerID,
				ContextID:  contextID,
				OrderIndex: ci,
			})
		}
	}
}

// validateRecord re-checks the invariants the cleaning filter guarantees.
// A failure here means a caller skipped cleaning; the record is rejected
// rather than persisted.
func validateRecord(url string, pair interchange.QAPair) error {
	if pair.Question == "" {
		return &ValidationError{URL: url, Reason: "empty question"}
	}
	if len(pair.Answers) == 0 {
		return &ValidationError{URL: url, Question: pair.Question, Reason: "no answers"}
	}
	for i, a := range pair.Answers {
		if a.Content == "" {
			return &ValidationError{URL: url, Question: pair.Question,
				Reason: fmt.Sprintf("answer %d has empty content", i)}
		}
		for j, ctx := range a.Contexts {
			if ctx == "" {
				return &ValidationError{URL: url, Question: pair.Question,
					Reason: fmt.Sprintf("context %d of answer %d is empty", j, i)}
			}
		}
	}
	return nil
}

package normalize

import "time"

// QuestionRow is one row of the questions table.
type QuestionRow struct {
	QuestionID string
	Content    string
	CreatedAt  time.Time
}

// AnswerRow is one row of the answers table. OrderIndex is the answer's
// 0-based position under its question.
type AnswerRow struct {
	AnswerID   string
	QuestionID string
	Content    string
	OrderIndex int
	CreatedAt  time.Time
}

// ContextRow is one row of the contexts table.
type ContextRow struct {
	ContextID string
	Content   string
	CreatedAt time.Time
}

// AnswerContextRow links an answer to one of its contexts. The pair
// (AnswerID, OrderIndex) is the row's identity.
type AnswerContextRow struct {
	AnswerID   string
	ContextID  string
	OrderIndex int
}

// RowSet holds the four append-only row collections emitted for a batch.
// Rows are keyed by generated identifiers and never mutated after emission.
type RowSet struct {
	Questions      []QuestionRow
	Answers        []AnswerRow
	Contexts       []ContextRow
	AnswerContexts []AnswerContextRow
}

// Merge appends other's rows onto r. Identifiers are globally unique, so
// merging is plain concatenation.
func (r *RowSet) Merge(other RowSet) {
	r.Questions = append(r.Questions, other.Questions...)
	r.Answers = append(r.Answers, other.Answers...)
	r.Contexts = append(r.Contexts, other.Contexts...)
	r.AnswerContexts = append(r.AnswerContexts, other.AnswerContexts...)
}

// Empty reports whether the row set holds no rows at all.
func (r *RowSet) Empty() bool {
	return len(r.Questions) == 0 && len(r.Answers) == 0 &&
		len(r.Contexts) == 0 && len(r.AnswerContexts) == 0
}

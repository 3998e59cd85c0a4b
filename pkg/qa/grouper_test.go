package qa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phamdt/legalqa/pkg/markup"
)

func blocks(kinds []markup.BlockKind, texts []string) []markup.Block {
	out := make([]markup.Block, len(kinds))
	for i := range kinds {
		out[i] = markup.Block{Kind: kinds[i], Text: texts[i], SequenceIndex: i}
	}
	return out
}

func TestGroupSingleQuestionWithContexts(t *testing.T) {
	// Heading, answer with two quoted contexts, then a second answer.
	recs, anomalies := Group(blocks(
		[]markup.BlockKind{markup.KindHeading, markup.KindParagraph, markup.KindBlockquote, markup.KindBlockquote, markup.KindParagraph},
		[]string{"Q1", "A1", "C1", "C2", "A2"},
	))
	require.Len(t, recs, 1)
	assert.Zero(t, anomalies)

	rec := recs[0]
	assert.Equal(t, "Q1", rec.Question)
	require.Len(t, rec.Answers, 2)
	assert.Equal(t, "A1", rec.Answers[0].Content)
	assert.Equal(t, []string{"C1", "C2"}, rec.Answers[0].Contexts)
	assert.Equal(t, "A2", rec.Answers[1].Content)
	assert.Empty(t, rec.Answers[1].Contexts)
}

func TestGroupMultipleQuestions(t *testing.T) {
	recs, anomalies := Group(blocks(
		[]markup.BlockKind{markup.KindHeading, markup.KindParagraph, markup.KindHeading, markup.KindParagraph},
		[]string{"Q1", "A1", "Q2", "A2"},
	))
	require.Len(t, recs, 2)
	assert.Zero(t, anomalies)
	assert.Equal(t, "Q1", recs[0].Question)
	assert.Equal(t, "Q2", recs[1].Question)
}

func TestGroupBlockquoteBeforeAnswerIsDropped(t *testing.T) {
	// A blockquote under a freshly opened question has no owning answer.
	recs, anomalies := Group(blocks(
		[]markup.BlockKind{markup.KindHeading, markup.KindBlockquote, markup.KindParagraph},
		[]string{"Q1", "orphan", "A1"},
	))
	require.Len(t, recs, 1)
	assert.Equal(t, 1, anomalies)
	require.Len(t, recs[0].Answers, 1)
	assert.Empty(t, recs[0].Answers[0].Contexts)
}

func TestGroupBlockquoteBeforeAnyQuestionIsDropped(t *testing.T) {
	recs, anomalies := Group(blocks(
		[]markup.BlockKind{markup.KindBlockquote},
		[]string{"orphan"},
	))
	assert.Empty(t, recs)
	assert.Equal(t, 1, anomalies)
}

func TestGroupTableAttachesToCurrentRecord(t *testing.T) {
	recs, anomalies := Group(blocks(
		[]markup.BlockKind{markup.KindHeading, markup.KindParagraph, markup.KindTable},
		[]string{"Q1", "A1", "| a | b |"},
	))
	require.Len(t, recs, 1)
	assert.Zero(t, anomalies)
	assert.Equal(t, "| a | b |", recs[0].Table)
}

func TestGroupLastTableWins(t *testing.T) {
	recs, _ := Group(blocks(
		[]markup.BlockKind{markup.KindHeading, markup.KindTable, markup.KindTable},
		[]string{"Q1", "first", "second"},
	))
	require.Len(t, recs, 1)
	assert.Equal(t, "second", recs[0].Table)
}

func TestGroupTableBeforeAnyHeadingIsDropped(t *testing.T) {
	recs, anomalies := Group(blocks(
		[]markup.BlockKind{markup.KindTable, markup.KindHeading, markup.KindParagraph},
		[]string{"stray", "Q1", "A1"},
	))
	require.Len(t, recs, 1)
	assert.Equal(t, 1, anomalies)
	assert.Empty(t, recs[0].Table)
}

func TestGroupTableDoesNotChangeState(t *testing.T) {
	// A table between an answer and its blockquote must not detach the
	// blockquote from the answer.
	recs, anomalies := Group(blocks(
		[]markup.BlockKind{markup.KindHeading, markup.KindParagraph, markup.KindTable, markup.KindBlockquote},
		[]string{"Q1", "A1", "tbl", "C1"},
	))
	require.Len(t, recs, 1)
	assert.Zero(t, anomalies)
	assert.Equal(t, []string{"C1"}, recs[0].Answers[0].Contexts)
}

func TestGroupParagraphBeforeHeadingOpensAnomalousRecord(t *testing.T) {
	recs, anomalies := Group(blocks(
		[]markup.BlockKind{markup.KindParagraph, markup.KindHeading, markup.KindParagraph},
		[]string{"stray answer", "Q1", "A1"},
	))
	require.Len(t, recs, 2)
	assert.Equal(t, 1, anomalies)
	// The anomalous record is passed through with an empty question; the
	// cleaning filter rejects it downstream.
	assert.Equal(t, "", recs[0].Question)
	require.Len(t, recs[0].Answers, 1)
	assert.Equal(t, "stray answer", recs[0].Answers[0].Content)
}

func TestGroupQuestionWithoutAnswersIsPassedThrough(t *testing.T) {
	recs, anomalies := Group(blocks(
		[]markup.BlockKind{markup.KindHeading, markup.KindHeading, markup.KindParagraph},
		[]string{"Q1", "Q2", "A2"},
	))
	require.Len(t, recs, 2)
	assert.Zero(t, anomalies)
	assert.Empty(t, recs[0].Answers)
	require.Len(t, recs[1].Answers, 1)
}

func TestGroupEmptyInput(t *testing.T) {
	recs, anomalies := Group(nil)
	assert.Empty(t, recs)
	assert.Zero(t, anomalies)
}

func TestGroupRecordCountNeverExceedsHeadings(t *testing.T) {
	kinds := []markup.BlockKind{
		markup.KindHeading, markup.KindParagraph, markup.KindBlockquote,
		markup.KindHeading, markup.KindTable, markup.KindParagraph,
		markup.KindHeading, markup.KindHeading,
	}
	texts := []string{"q", "a", "c", "q", "t", "a", "q", "q"}
	headings := 0
	for _, k := range kinds {
		if k == markup.KindHeading {
			headings++
		}
	}
	recs, _ := Group(blocks(kinds, texts))
	assert.LessOrEqual(t, len(recs), headings)
}

func TestGrouperStateTransitions(t *testing.T) {
	g := NewGrouper()
	assert.Equal(t, SeekingQuestion, g.State())

	g.Feed(markup.Block{Kind: markup.KindHeading, Text: "Q"})
	assert.Equal(t, AwaitingAnswer, g.State())

	g.Feed(markup.Block{Kind: markup.KindParagraph, Text: "A"})
	assert.Equal(t, AccumulatingContext, g.State())

	g.Feed(markup.Block{Kind: markup.KindTable, Text: "t"})
	assert.Equal(t, AccumulatingContext, g.State())

	_, _ = g.Finish()
	assert.Equal(t, SeekingQuestion, g.State())
}

// Package qa groups an ordered block sequence into question/answer/context
// records using an explicit finite-state machine.
package qa

import (
	"github.com/phamdt/legalqa/pkg/interchange"
	"github.com/phamdt/legalqa/pkg/markup"
)

// State is the grouping machine's position between blocks.
type State int

const (
	// SeekingQuestion is the initial state and the state between pages.
	SeekingQuestion State = iota
	// AwaitingAnswer means a question is open but has no answer yet.
	AwaitingAnswer
	// AccumulatingContext means the last block started or extended an answer,
	// so blockquotes now attach to it.
	AccumulatingContext
)

func (s State) String() string {
	switch s {
	case SeekingQuestion:
		return "seeking-question"
	case AwaitingAnswer:
		return "awaiting-answer"
	case AccumulatingContext:
		return "accumulating-context"
	}
	return "unknown"
}

// Grouper consumes blocks one at a time and accumulates QA pairs. It holds
// one current record and one current answer slot, both nullable; answerIdx
// is -1 when no answer is open.
type Grouper struct {
	state     State
	current   *interchange.QAPair
	answerIdx int
	out       []interchange.QAPair
	anomalies int
}

// NewGrouper returns a machine in SeekingQuestion with empty slots.
func NewGrouper() *Grouper {
	return &Grouper{state: SeekingQuestion, answerIdx: -1}
}

// State reports the current machine state, for tests and diagnostics.
func (g *Grouper) State() State { return g.state }

// Anomalies reports how many structurally out-of-place blocks were dropped.
func (g *Grouper) Anomalies() int { return g.anomalies }

// Feed advances the machine by one block.
func (g *Grouper) Feed(b markup.Block) {
	switch b.Kind {
	case markup.KindHeading:
		g.flush()
		g.current = &interchange.QAPair{Question: b.Text}
		g.answerIdx = -1
		g.state = AwaitingAnswer

	case markup.KindParagraph:
		if g.current == nil {
			// A paragraph with no preceding heading opens a record with an
			// empty question; the cleaning filter rejects it later.
			g.current = &interchange.QAPair{}
			g.anomalies++
		}
		g.current.Answers = append(g.current.Answers, interchange.Answer{
			Content:  b.Text,
			Contexts: []string{},
		})
		g.answerIdx = len(g.current.Answers) - 1
		g.state = AccumulatingContext

	case markup.KindBlockquote:
		if g.current == nil || g.answerIdx < 0 {
			// No owning answer yet: dropped, not attached to a guess.
			g.anomalies++
			return
		}
		a := &g.current.Answers[g.answerIdx]
		a.Contexts = append(a.Contexts, b.Text)

	case markup.KindTable:
		if g.current == nil {
			g.anomalies++
			return
		}
		// Last table before the next heading wins. Grouping state is unchanged.
		g.current.Table = b.Text
	}
}

// Finish flushes any open record and returns the grouped pairs together with
// the anomaly count. The machine is reset for the next document.
func (g *Grouper) Finish() ([]interchange.QAPair, int) {
	g.flush()
	out, n := g.out, g.anomalies
	*g = Grouper{state: SeekingQuestion, answerIdx: -1}
	return out, n
}

func (g *Grouper) flush() {
	if g.current == nil {
		return
	}
	g.out = append(g.out, *g.current)
	g.current = nil
	g.answerIdx = -1
}

// Group runs a fresh machine over a whole block sequence.
func Group(blocks []markup.Block) ([]interchange.QAPair, int) {
	g := NewGrouper()
	for _, b := range blocks {
		g.Feed(b)
	}
	return g.Finish()
}

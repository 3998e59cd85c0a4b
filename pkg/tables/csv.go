// Package tables persists normalized row sets to the four flat output
// tables, either as CSV files or as a SQLite database. Appends across runs
// are collision-free because row identifiers are random UUIDs; no prior-state
// lookup is needed.
package tables

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/phamdt/legalqa/pkg/normalize"
)

// Fixed column orders, one header row each.
var (
	questionColumns      = []string{"question_id", "content", "created_at"}
	answerColumns        = []string{"answer_id", "question_id", "content", "order_index", "created_at"}
	contextColumns       = []string{"context_id", "content", "created_at"}
	answerContextColumns = []string{"answer_id", "context_id", "order_index"}
)

// CSVWriter writes the four tables as <dir>/questions.csv, answers.csv,
// contexts.csv and answer_contexts.csv. With Append set, rows are added to
// existing files and the header is only written when a file is new or empty;
// otherwise files are truncated.
type CSVWriter struct {
	Dir    string
	Append bool
}

// Write persists one row set. It is the single-writer step of a run: callers
// must not invoke it concurrently.
func (w *CSVWriter) Write(rs normalize.RowSet) error {
	if err := os.MkdirAll(w.Dir, 0755); err != nil {
		return fmt.Errorf("tables: create output dir: %w", err)
	}

	if err := w.writeFile("questions.csv", questionColumns, len(rs.Questions), func(i int) []string {
		q := rs.Questions[i]
		return []string{q.QuestionID, q.Content, formatTime(q.CreatedAt)}
	}); err != nil {
		return err
	}
	if err := w.writeFile("answers.csv", answerColumns, len(rs.Answers), func(i int) []string {
		a := rs.Answers[i]
		return []string{a.AnswerID, a.QuestionID, a.Content, strconv.Itoa(a.OrderIndex), formatTime(a.CreatedAt)}
	}); err != nil {
		return err
	}
	if err := w.writeFile("contexts.csv", contextColumns, len(rs.Contexts), func(i int) []string {
		c := rs.Contexts[i]
		return []string{c.ContextID, c.Content, formatTime(c.CreatedAt)}
	}); err != nil {
		return err
	}
	return w.writeFile("answer_contexts.csv", answerContextColumns, len(rs.AnswerContexts), func(i int) []string {
		ac := rs.AnswerContexts[i]
		return []string{ac.AnswerID, ac.ContextID, strconv.Itoa(ac.OrderIndex)}
	})
}

func (w *CSVWriter) writeFile(name string, header []string, n int, row func(int) []string) error {
	path := filepath.Join(w.Dir, name)

	flags := os.O_CREATE | os.O_WRONLY
	if w.Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return fmt.Errorf("tables: open %s: %w", name, err)
	}
	defer f.Close()

	needHeader := true
	if w.Append {
		info, err := f.Stat()
		if err != nil {
			return fmt.Errorf("tables: stat %s: %w", name, err)
		}
		needHeader = info.Size() == 0
	}

	cw := csv.NewWriter(f)
	if needHeader {
		if err := cw.Write(header); err != nil {
			return fmt.Errorf("tables: write header of %s: %w", name, err)
		}
	}
	for i := 0; i < n; i++ {
		if err := cw.Write(row(i)); err != nil {
			return fmt.Errorf("tables: write row to %s: %w", name, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("tables: flush %s: %w", name, err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

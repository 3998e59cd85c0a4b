package tables

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/phamdt/legalqa/pkg/normalize"
)

const migrationsSQL = `
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS questions (
    question_id TEXT PRIMARY KEY,
    content     TEXT NOT NULL,
    created_at  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS answers (
    answer_id   TEXT PRIMARY KEY,
    question_id TEXT NOT NULL REFERENCES questions(question_id),
    content     TEXT NOT NULL,
    order_index INTEGER NOT NULL CHECK (order_index >= 0),
    created_at  TIMESTAMP NOT NULL,
    UNIQUE (question_id, order_index)
);

CREATE TABLE IF NOT EXISTS contexts (
    context_id TEXT PRIMARY KEY,
    content    TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS answer_contexts (
    answer_id   TEXT NOT NULL REFERENCES answers(answer_id),
    context_id  TEXT NOT NULL REFERENCES contexts(context_id),
    order_index INTEGER NOT NULL CHECK (order_index >= 0),
    PRIMARY KEY (answer_id, order_index)
);

CREATE INDEX IF NOT EXISTS idx_answers_question ON answers(question_id);
CREATE INDEX IF NOT EXISTS idx_answer_contexts_answer ON answer_contexts(answer_id)
`

// InitDB creates the four tables on the given connection if they do not
// exist. Rows are append-only; there are no further migrations.
func InitDB(db *sql.DB) error {
	for _, stmt := range strings.Split(migrationsSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("tables: migration failed: %w", err)
		}
	}
	return nil
}

// DBExecutor lets insert helpers accept either *sql.DB or *sql.Tx.
type DBExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// InsertQuestion appends one question row.
func InsertQuestion(db DBExecutor, q normalize.QuestionRow) error {
	_, err := db.Exec(
		`INSERT INTO questions (question_id, content, created_at) VALUES (?, ?, ?)`,
		q.QuestionID, q.Content, q.CreatedAt)
	return err
}

// InsertAnswer appends one answer row. Its question must already exist.
func InsertAnswer(db DBExecutor, a normalize.AnswerRow) error {
	_, err := db.Exec(
		`INSERT INTO answers (answer_id, question_id, content, order_index, created_at) VALUES (?, ?, ?, ?, ?)`,
		a.AnswerID, a.QuestionID, a.Content, a.OrderIndex, a.CreatedAt)
	return err
}

// InsertContext appends one context row.
func InsertContext(db DBExecutor, c normalize.ContextRow) error {
	_, err := db.Exec(
		`INSERT INTO contexts (context_id, content, created_at) VALUES (?, ?, ?)`,
		c.ContextID, c.Content, c.CreatedAt)
	return err
}

// InsertAnswerContext appends one answer-context link. Both ends must
// already exist.
func InsertAnswerContext(db DBExecutor, ac normalize.AnswerContextRow) error {
	_, err := db.Exec(
		`INSERT INTO answer_contexts (answer_id, context_id, order_index) VALUES (?, ?, ?)`,
		ac.AnswerID, ac.ContextID, ac.OrderIndex)
	return err
}

// SQLiteWriter appends row sets to the four tables using batched
// transactions. Rows are submitted parents first, so referential integrity
// holds at every commit boundary.
type SQLiteWriter struct {
	db *sql.DB
	bw *BatchWriter
}

// NewSQLiteWriter runs migrations and prepares a batch writer on conn.
func NewSQLiteWriter(conn *sql.DB, batchSize int) (*SQLiteWriter, error) {
	if err := InitDB(conn); err != nil {
		return nil, err
	}
	return &SQLiteWriter{db: conn, bw: NewBatchWriter(conn, batchSize, 0)}, nil
}

// Write appends one row set. UUID identifiers make the append safe against
// rows written in earlier runs.
func (w *SQLiteWriter) Write(rs normalize.RowSet) error {
	for _, q := range rs.Questions {
		q := q
		if err := w.bw.Submit(func(ctx context.Context, tx *sql.Tx) error {
			return InsertQuestion(tx, q)
		}); err != nil {
			return err
		}
	}
	for _, a := range rs.Answers {
		a := a
		if err := w.bw.Submit(func(ctx context.Context, tx *sql.Tx) error {
			return InsertAnswer(tx, a)
		}); err != nil {
			return err
		}
	}
	for _, c := range rs.Contexts {
		c := c
		if err := w.bw.Submit(func(ctx context.Context, tx *sql.Tx) error {
			return InsertContext(tx, c)
		}); err != nil {
			return err
		}
	}
	for _, ac := range rs.AnswerContexts {
		ac := ac
		if err := w.bw.Submit(func(ctx context.Context, tx *sql.Tx) error {
			return InsertAnswerContext(tx, ac)
		}); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes pending batches and reports the first write error, if any.
func (w *SQLiteWriter) Close() error {
	return w.bw.Close()
}

package tables

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phamdt/legalqa/pkg/normalize"
)

// openTestDB opens a file-backed database so all pooled connections see the
// same data, unlike a plain :memory: DSN.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "test.db")+"?_foreign_keys=on")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func countRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestInitDBIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, InitDB(db))
	require.NoError(t, InitDB(db))
}

func TestInsertHelpers(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, InitDB(db))

	ts := time.Now().UTC()
	require.NoError(t, InsertQuestion(db, normalize.QuestionRow{QuestionID: "q1", Content: "Q", CreatedAt: ts}))
	require.NoError(t, InsertAnswer(db, normalize.AnswerRow{AnswerID: "a1", QuestionID: "q1", Content: "A", OrderIndex: 0, CreatedAt: ts}))
	require.NoError(t, InsertContext(db, normalize.ContextRow{ContextID: "c1", Content: "C", CreatedAt: ts}))
	require.NoError(t, InsertAnswerContext(db, normalize.AnswerContextRow{AnswerID: "a1", ContextID: "c1", OrderIndex: 0}))

	var content string
	require.NoError(t, db.QueryRow(
		`SELECT c.content
		   FROM answer_contexts ac
		   JOIN contexts c ON c.context_id = ac.context_id
		  WHERE ac.answer_id = ?
		  ORDER BY ac.order_index`, "a1").Scan(&content))
	assert.Equal(t, "C", content)
}

func TestInsertHelpersWorkInsideTransaction(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, InitDB(db))

	tx, err := db.Begin()
	require.NoError(t, err)
	ts := time.Now().UTC()
	require.NoError(t, InsertQuestion(tx, normalize.QuestionRow{QuestionID: "q1", Content: "Q", CreatedAt: ts}))
	require.NoError(t, tx.Rollback())

	assert.Zero(t, countRows(t, db, "questions"))
}

func TestSQLiteWriterPersistsRowSet(t *testing.T) {
	db := openTestDB(t)
	w, err := NewSQLiteWriter(db, 2)
	require.NoError(t, err)

	ts := time.Now().UTC()
	require.NoError(t, w.Write(sampleRows(ts)))
	require.NoError(t, w.Close())

	assert.Equal(t, 1, countRows(t, db, "questions"))
	assert.Equal(t, 2, countRows(t, db, "answers"))
	assert.Equal(t, 1, countRows(t, db, "contexts"))
	assert.Equal(t, 1, countRows(t, db, "answer_contexts"))

	// Answer ordering under the question is preserved.
	rows, err := db.Query(`SELECT content FROM answers WHERE question_id = ? ORDER BY order_index`, "q1")
	require.NoError(t, err)
	defer rows.Close()
	var contents []string
	for rows.Next() {
		var c string
		require.NoError(t, rows.Scan(&c))
		contents = append(contents, c)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"First", `Second, with "quotes"`}, contents)
}

func TestSQLiteWriterAppendsAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "runs.db")

	write := func(rs normalize.RowSet) {
		db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
		require.NoError(t, err)
		defer db.Close()
		w, err := NewSQLiteWriter(db, 10)
		require.NoError(t, err)
		require.NoError(t, w.Write(rs))
		require.NoError(t, w.Close())
	}

	ts := time.Now().UTC()
	first := sampleRows(ts)
	second := sampleRows(ts)
	second.Questions[0].QuestionID = "q2"
	second.Answers = nil
	second.Contexts = nil
	second.AnswerContexts = nil
	write(first)
	write(second)

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, 2, countRows(t, db, "questions"))
	assert.Equal(t, 2, countRows(t, db, "answers"))
}

func TestSQLiteWriterDuplicateIDSurfacesOnClose(t *testing.T) {
	db := openTestDB(t)
	w, err := NewSQLiteWriter(db, 100)
	require.NoError(t, err)

	ts := time.Now().UTC()
	rs := normalize.RowSet{Questions: []normalize.QuestionRow{
		{QuestionID: "dup", Content: "Q", CreatedAt: ts},
		{QuestionID: "dup", Content: "Q again", CreatedAt: ts},
	}}
	require.NoError(t, w.Write(rs))
	assert.Error(t, w.Close())
}

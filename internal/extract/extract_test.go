package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPlainStatement(t *testing.T) {
	sql, err := Extract("CREATE TABLE employees (id INT, name VARCHAR(100), salary FLOAT, department VARCHAR(100));")
	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE employees (id INT, name VARCHAR(100), salary FLOAT, department VARCHAR(100));", sql)
}

func TestExtractStripsCodeFence(t *testing.T) {
	completion := "```sql\nSELECT name FROM students WHERE gpa > 3.5;\n```"
	sql, err := Extract(completion)
	require.NoError(t, err)
	assert.Equal(t, "SELECT name FROM students WHERE gpa > 3.5;", sql)
}

func TestExtractStripsConversationalWrapper(t *testing.T) {
	completion := "Here is your query:\n\nSELECT * FROM orders;\n\nLet me know if you need anything else!"
	sql, err := Extract(completion)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM orders;", sql)
}

func TestExtractFenceWithPreamble(t *testing.T) {
	completion := "Sure! Here you go:\n```\nSELECT 1;\n```\nHope that helps."
	sql, err := Extract(completion)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1;", sql)
}

func TestExtractAppendsTerminator(t *testing.T) {
	sql, err := Extract("SELECT COUNT(*) FROM users")
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM users;", sql)
}

func TestExtractIdempotent(t *testing.T) {
	inputs := []string{
		"SELECT name FROM students WHERE gpa > 3.5;",
		"```sql\nINSERT INTO t (a) VALUES (1);\nINSERT INTO t (a) VALUES (2);\n```",
		"The statement below creates your table.\nCREATE TABLE t (id INT);",
	}
	for _, input := range inputs {
		first, err := Extract(input)
		require.NoError(t, err)
		second, err := Extract(first)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	}
}

func TestExtractMultipleStatements(t *testing.T) {
	completion := "INSERT INTO students (name, gpa) VALUES ('Alice', 3.8);\nINSERT INTO students (name, gpa) VALUES ('Bob', 3.5);"
	sql, err := Extract(completion)
	require.NoError(t, err)
	assert.Equal(t, completion, sql)
}

func TestExtractNoStatement(t *testing.T) {
	for _, completion := range []string{
		"",
		"I'm sorry, I can't help with that.",
		"The answer is 42.",
	} {
		_, err := Extract(completion)
		assert.ErrorIs(t, err, ErrNoStatement, "completion: %q", completion)
	}
}

func TestStatementsSplit(t *testing.T) {
	stmts := Statements("INSERT INTO t (a) VALUES (1); INSERT INTO t (a) VALUES (2);")
	require.Len(t, stmts, 2)
	assert.Equal(t, "INSERT INTO t (a) VALUES (1);", stmts[0])
	assert.Equal(t, "INSERT INTO t (a) VALUES (2);", stmts[1])
}

func TestStatementsPreservesQuotedSemicolons(t *testing.T) {
	stmts := Statements("INSERT INTO t (note) VALUES ('first; second');")
	require.Len(t, stmts, 1)
	assert.Equal(t, "INSERT INTO t (note) VALUES ('first; second');", stmts[0])
}

func TestStatementsEscapedQuote(t *testing.T) {
	stmts := Statements("INSERT INTO t (name) VALUES ('O''Brien; Esq.'); SELECT 1;")
	require.Len(t, stmts, 2)
	assert.Equal(t, "INSERT INTO t (name) VALUES ('O''Brien; Esq.');", stmts[0])
	assert.Equal(t, "SELECT 1;", stmts[1])
}

func TestStatementsAddsMissingTerminator(t *testing.T) {
	stmts := Statements("SELECT 1")
	require.Len(t, stmts, 1)
	assert.Equal(t, "SELECT 1;", stmts[0])
}

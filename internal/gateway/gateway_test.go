package gateway

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGateway(t *testing.T) (*Gateway, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func TestQueryReturnsRows(t *testing.T) {
	gw, mock := newGateway(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT name, gpa FROM students WHERE gpa > 3.5;")).
		WillReturnRows(sqlmock.NewRows([]string{"name", "gpa"}).
			AddRow("Alice", 3.8))

	result, err := gw.Query(context.Background(), "SELECT name, gpa FROM students WHERE gpa > 3.5;")
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "gpa"}, result.Columns)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "Alice", result.Rows[0][0])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryNormalizesBytesAndTime(t *testing.T) {
	gw, mock := newGateway(t)
	when := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT .+ FROM events").
		WillReturnRows(sqlmock.NewRows([]string{"label", "at"}).
			AddRow([]byte("deploy"), when))

	result, err := gw.Query(context.Background(), "SELECT label, at FROM events;")
	require.NoError(t, err)
	assert.Equal(t, "deploy", result.Rows[0][0])
	assert.Equal(t, when.Format(time.RFC3339Nano), result.Rows[0][1])
}

func TestExecReportsAffectedCount(t *testing.T) {
	gw, mock := newGateway(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO students (name) VALUES ('Alice');")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	result, err := gw.Exec(context.Background(), "INSERT INTO students (name) VALUES ('Alice');")
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Affected)
}

func TestExecDDLReportsZeroAffected(t *testing.T) {
	gw, mock := newGateway(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE employees (id INT, name VARCHAR(100), salary FLOAT, department VARCHAR(100));")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	result, err := gw.Exec(context.Background(), "CREATE TABLE employees (id INT, name VARCHAR(100), salary FLOAT, department VARCHAR(100));")
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.Affected)
}

func TestQueryInvalidStatementReturnsExecError(t *testing.T) {
	gw, mock := newGateway(t)
	engineErr := errors.New(`syntax error at or near "SELEKT"`)

	mock.ExpectQuery("SELEKT").WillReturnError(engineErr)

	_, err := gw.Query(context.Background(), "SELEKT * FROM x;")
	require.Error(t, err)

	var execErr *ExecError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "SELEKT * FROM x;", execErr.Statement)
	assert.ErrorIs(t, err, engineErr)
}

func TestRunDispatchesOnKeyword(t *testing.T) {
	gw, mock := newGateway(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1;")).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(int64(1)))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM t;")).
		WillReturnResult(sqlmock.NewResult(0, 3))

	sel, err := gw.Run(context.Background(), "SELECT 1;")
	require.NoError(t, err)
	assert.Len(t, sel.Rows, 1)

	del, err := gw.Run(context.Background(), "DELETE FROM t;")
	require.NoError(t, err)
	assert.Equal(t, int64(3), del.Affected)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReturnsRows(t *testing.T) {
	assert.True(t, ReturnsRows("select * from t"))
	assert.True(t, ReturnsRows("  WITH a AS (SELECT 1) SELECT * FROM a;"))
	assert.True(t, ReturnsRows("SHOW TABLES;"))
	assert.False(t, ReturnsRows("INSERT INTO t VALUES (1);"))
	assert.False(t, ReturnsRows("CREATE TABLE t (id INT);"))
}

func TestRowMaps(t *testing.T) {
	result := Result{
		Columns: []string{"name", "gpa"},
		Rows:    [][]any{{"Alice", 3.8}, {"Bob", 3.2}},
	}
	maps := result.RowMaps()
	require.Len(t, maps, 2)
	assert.Equal(t, "Alice", maps[0]["name"])
	assert.Equal(t, 3.2, maps[1]["gpa"])
}

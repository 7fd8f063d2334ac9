package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chatdb/chatdb/internal/schema"
)

var studentsTable = schema.Table{
	Name: "students",
	Columns: []schema.Column{
		{Name: "id", Type: "int", IsPK: true},
		{Name: "name", Type: "varchar(100)"},
		{Name: "gpa", Type: "float", Nullable: true},
	},
}

func TestBuildCreatePromptEmbedsUserText(t *testing.T) {
	userText := "Create a table called employees with id, name, salary, and department"
	prompt := BuildCreatePrompt("mysql", userText)

	assert.Contains(t, prompt, userText)
	for _, field := range []string{"id", "name", "salary", "department"} {
		assert.Contains(t, prompt, field)
	}
	assert.Contains(t, prompt, "MySQL")
	assert.Contains(t, prompt, "ONLY the SQL statement")
}

func TestBuildInsertPromptIncludesEveryColumn(t *testing.T) {
	prompt := BuildInsertPrompt("postgres", "Add Alice with GPA 3.8", studentsTable)

	for _, col := range studentsTable.Columns {
		assert.Contains(t, prompt, col.Name)
	}
	assert.Contains(t, prompt, "students")
	assert.Contains(t, prompt, "Add Alice with GPA 3.8")
	assert.Contains(t, prompt, "PostgreSQL")
}

func TestBuildSelectPromptGrounding(t *testing.T) {
	prompt := BuildSelectPrompt("mysql", "Which students have GPA above 3.5?", studentsTable)

	for _, col := range studentsTable.Columns {
		assert.Contains(t, prompt, col.Name)
	}
	assert.Contains(t, prompt, "Which students have GPA above 3.5?")
	assert.Contains(t, prompt, "ONLY the SQL query")
}

func TestBuildExplainPromptTruncatesRows(t *testing.T) {
	rows := make([]map[string]any, 30)
	for i := range rows {
		rows[i] = map[string]any{"n": i}
	}
	prompt := BuildExplainPrompt("how many?", "SELECT COUNT(*) FROM t;", rows)

	assert.Contains(t, prompt, "SELECT COUNT(*) FROM t;")
	assert.Contains(t, prompt, "10 more rows")
	assert.Less(t, strings.Count(prompt, "map["), 25)
}

func TestPromptBuildersArePure(t *testing.T) {
	a := BuildCreatePrompt("mysql", "a table of books")
	b := BuildCreatePrompt("mysql", "a table of books")
	assert.Equal(t, a, b)
}

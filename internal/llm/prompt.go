package llm

import (
	"fmt"
	"strings"

	"github.com/chatdb/chatdb/internal/schema"
)

// Prompt templates. Each builder is a pure function combining a fixed
// instructional preamble, optional schema context, and the verbatim user
// text. The SQL-only instruction is a prompt-engineering contract; the
// extract package still has to cope with decorated output.

func dialectName(dialect string) string {
	if dialect == "mysql" {
		return "MySQL"
	}
	return "PostgreSQL"
}

// BuildCreatePrompt instructs the model to emit exactly one CREATE TABLE
// statement from a natural language description. No schema context is
// needed: the table does not exist yet.
func BuildCreatePrompt(dialect, userText string) string {
	return fmt.Sprintf(`You are a SQL expert. Convert the following natural language description into a single %s CREATE TABLE statement.

User description: "%s"

Requirements:
- Use appropriate data types (INT, VARCHAR, FLOAT, DATE, etc.)
- Include PRIMARY KEY where appropriate
- Use NOT NULL constraints when fields are essential
- Return ONLY the SQL statement, no explanation, no markdown code blocks

Example:
Input: "Create a table called students with id, name, and gpa"
Output: CREATE TABLE students (id INT PRIMARY KEY, name VARCHAR(100) NOT NULL, gpa FLOAT);

Now generate the CREATE TABLE statement:`, dialectName(dialect), userText)
}

// BuildInsertPrompt instructs the model to emit INSERT statements for the
// given table. The full schema is embedded so generated statements
// reference real columns in the right order and types.
func BuildInsertPrompt(dialect, userText string, table schema.Table) string {
	return fmt.Sprintf(`You are a SQL expert. Convert the following natural language description into %s INSERT statements for the table '%s'.

Table Schema:
%s
User description: "%s"

Requirements:
- Generate INSERT INTO statements using only the columns listed above
- Infer appropriate values and data types
- Use single quotes for strings
- Return ONLY the SQL statements, one per line, no explanation

Example:
Input for table 'students': "Add Alice with GPA 3.8 and Bob with GPA 3.5"
Output:
INSERT INTO students (name, gpa) VALUES ('Alice', 3.8);
INSERT INTO students (name, gpa) VALUES ('Bob', 3.5);

Now generate the INSERT statements:`, dialectName(dialect), table.Name, schema.ToText(table), userText)
}

// BuildSelectPrompt instructs the model to emit exactly one SELECT
// statement answering the user's question against the given table.
func BuildSelectPrompt(dialect, userText string, table schema.Table) string {
	return fmt.Sprintf(`You are a SQL expert. Convert the following question into a %s SELECT query.

Table Schema:
%s
Question: "%s"

Requirements:
- Write exactly one valid SELECT query, nothing else
- Use only the columns listed in the schema above; do not invent columns
- Use appropriate WHERE, ORDER BY, GROUP BY, LIMIT clauses as needed
- Return ONLY the SQL query, no explanation, no markdown code blocks

Example:
Schema: TABLE: students (id INT, name VARCHAR, gpa FLOAT)
Question: "Which students have GPA above 3.5?"
Output: SELECT name, gpa FROM students WHERE gpa > 3.5;

Now generate the SQL query:`, dialectName(dialect), schema.ToText(table), userText)
}

// BuildExplainPrompt asks for a short natural language explanation of
// query results. Used at a slightly higher temperature than generation.
func BuildExplainPrompt(question, sqlQuery string, rows []map[string]any) string {
	var sb strings.Builder
	for i, row := range rows {
		if i >= 20 {
			sb.WriteString(fmt.Sprintf("... and %d more rows\n", len(rows)-i))
			break
		}
		sb.WriteString(fmt.Sprintf("%v\n", row))
	}

	return fmt.Sprintf(`You are a helpful assistant. Explain the following database query results in simple, natural language.

Question: "%s"
SQL Query: %s
Results:
%s
Provide a brief, clear explanation (2-3 sentences maximum) of what the results show.

Now provide your explanation:`, question, sqlQuery, sb.String())
}

// Package extract pulls executable SQL out of raw LLM completions.
//
// Extraction is a heuristic, not a parser: it strips the conversational
// wrapper the model may add (code fences, "Here is your query:" preambles,
// trailing commentary) and returns the statement text as-is. Syntax errors
// surface only at execution time.
package extract

import (
	"errors"
	"strings"
)

// ErrNoStatement is returned when no recognizable SQL is found.
var ErrNoStatement = errors.New("no SQL statement found in completion")

// sqlKeywords mark the start of a statement during keyword scanning.
var sqlKeywords = []string{
	"SELECT", "WITH", "CREATE", "INSERT", "UPDATE", "DELETE",
	"DROP", "ALTER", "SHOW", "DESCRIBE",
}

// Extract returns the SQL statement (or semicolon-separated statement
// sequence) contained in completion. Extraction is idempotent: running it
// on its own output returns the output unchanged.
func Extract(completion string) (string, error) {
	text := strings.TrimSpace(completion)
	if text == "" {
		return "", ErrNoStatement
	}

	if fenced, ok := unfence(text); ok {
		text = fenced
	}

	sql, ok := scanFromKeyword(text)
	if !ok {
		return "", ErrNoStatement
	}

	sql = strings.TrimSpace(sql)
	if !strings.HasSuffix(sql, ";") {
		sql += ";"
	}
	return sql, nil
}

// Statements splits a statement sequence on semicolons, preserving
// semicolons inside single-quoted literals. Each returned statement keeps
// its trailing semicolon.
func Statements(sql string) []string {
	var (
		out      []string
		current  strings.Builder
		inString bool
	)

	for i := 0; i < len(sql); i++ {
		ch := sql[i]
		current.WriteByte(ch)

		switch ch {
		case '\'':
			// '' inside a string is an escaped quote, not a terminator
			if inString && i+1 < len(sql) && sql[i+1] == '\'' {
				current.WriteByte(sql[i+1])
				i++
				continue
			}
			inString = !inString
		case ';':
			if !inString {
				if stmt := strings.TrimSpace(current.String()); stmt != ";" && stmt != "" {
					out = append(out, stmt)
				}
				current.Reset()
			}
		}
	}

	if rest := strings.TrimSpace(current.String()); rest != "" {
		out = append(out, rest+";")
	}
	return out
}

// unfence returns the contents of the first markdown code fence, if any.
func unfence(text string) (string, bool) {
	start := strings.Index(text, "```")
	if start < 0 {
		return "", false
	}
	rest := text[start+3:]

	// Skip an optional language tag on the fence line
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		tag := strings.TrimSpace(rest[:nl])
		if tag == "" || strings.EqualFold(tag, "sql") {
			rest = rest[nl+1:]
		}
	}

	if end := strings.Index(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest), true
}

// scanFromKeyword finds the first line beginning with a SQL keyword and
// returns everything from there through the last semicolon (or end of
// text when no semicolon is present).
func scanFromKeyword(text string) (string, bool) {
	offset := 0
	found := -1
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if startsWithKeyword(trimmed) {
			found = offset + strings.Index(line, trimmed)
			break
		}
		offset += len(line) + 1
	}
	if found < 0 {
		return "", false
	}

	sql := text[found:]
	if end := strings.LastIndexByte(sql, ';'); end >= 0 {
		sql = sql[:end+1]
	}
	return sql, true
}

func startsWithKeyword(line string) bool {
	upper := strings.ToUpper(line)
	for _, kw := range sqlKeywords {
		if strings.HasPrefix(upper, kw) {
			// Require a word boundary after the keyword
			rest := upper[len(kw):]
			if rest == "" || rest[0] == ' ' || rest[0] == '\t' || rest[0] == '(' || rest[0] == ';' {
				return true
			}
		}
	}
	return false
}

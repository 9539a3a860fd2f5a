package migration

import (
	"strings"
	"unicode"
)

// SplitStatements splits a migration script into executable statements.
// Comments are dropped. Semicolons inside string literals, quoted identifiers,
// dollar-quoted bodies and CREATE TRIGGER ... BEGIN ... END blocks do not end
// a statement.
func SplitStatements(script string) []string {
	var (
		statements []string
		buf        strings.Builder
	)

	emit := func() {
		stmt := strings.TrimSpace(buf.String())
		if stmt != "" {
			statements = append(statements, stmt)
		}
		buf.Reset()
	}

	for i := 0; i < len(script); i++ {
		c := script[i]
		switch {
		case c == '-' && i+1 < len(script) && script[i+1] == '-':
			for i < len(script) && script[i] != '\n' {
				i++
			}
			buf.WriteByte('\n')
		case c == '/' && i+1 < len(script) && script[i+1] == '*':
			end := strings.Index(script[i+2:], "*/")
			if end < 0 {
				i = len(script)
				continue
			}
			i += end + 3
			buf.WriteByte(' ')
		case c == '\'' || c == '"':
			j := closingQuote(script, i, c)
			buf.WriteString(script[i:j])
			i = j - 1
		case c == '$':
			if tag := dollarTag(script[i:]); tag != "" {
				end := strings.Index(script[i+len(tag):], tag)
				if end < 0 {
					buf.WriteString(script[i:])
					i = len(script)
					continue
				}
				j := i + len(tag) + end + len(tag)
				buf.WriteString(script[i:j])
				i = j - 1
				continue
			}
			buf.WriteByte(c)
		case c == ';':
			if insideTriggerBody(buf.String()) {
				buf.WriteByte(c)
				continue
			}
			emit()
		default:
			buf.WriteByte(c)
		}
	}
	emit()

	return statements
}

// closingQuote returns the index just past the literal starting at start.
// Doubled quote characters are treated as escapes.
func closingQuote(s string, start int, quote byte) int {
	for j := start + 1; j < len(s); j++ {
		if s[j] != quote {
			continue
		}
		if j+1 < len(s) && s[j+1] == quote {
			j++
			continue
		}
		return j + 1
	}
	return len(s)
}

// dollarTag returns a PostgreSQL dollar-quote tag such as "$$" or "$body$".
func dollarTag(s string) string {
	if len(s) < 2 || s[0] != '$' {
		return ""
	}
	for j := 1; j < len(s); j++ {
		switch ch := rune(s[j]); {
		case ch == '$':
			return s[:j+1]
		case ch == '_' || unicode.IsLetter(ch):
			continue
		default:
			return ""
		}
	}
	return ""
}

// insideTriggerBody reports whether stmt is a CREATE TRIGGER whose
// BEGIN ... END block has not been closed yet.
func insideTriggerBody(stmt string) bool {
	words := strings.FieldsFunc(strings.ToUpper(stmt), func(r rune) bool {
		return !(r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r))
	})
	if len(words) < 2 || words[0] != "CREATE" {
		return false
	}
	idx := 1
	if words[idx] == "TEMP" || words[idx] == "TEMPORARY" {
		idx++
	}
	if idx >= len(words) || words[idx] != "TRIGGER" {
		return false
	}

	depth := 0
	opened := false
	for _, w := range words[idx+1:] {
		switch w {
		case "BEGIN":
			depth++
			opened = true
		case "CASE":
			if opened {
				depth++
			}
		case "END":
			if opened {
				depth--
			}
		}
	}
	return opened && depth > 0
}

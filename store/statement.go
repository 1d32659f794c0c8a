package store

import (
	"errors"
	"strings"
	"unicode"
)

// ErrMultipleStatements is returned by Client.Query for batched statements.
var ErrMultipleStatements = errors.New("multiple statements are not allowed")

var readOnlyStatements = map[string]bool{
	"SELECT":   true,
	"SHOW":     true,
	"DESCRIBE": true,
	"DESC":     true,
	"EXPLAIN":  true,
}

// Statement returns the leading keyword of query in upper case, skipping
// whitespace and comments. It returns "" for an empty query.
func Statement(query string) string {
	q := stripLeadingComments(query)
	end := strings.IndexFunc(q, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	if end < 0 {
		end = len(q)
	}
	return strings.ToUpper(q[:end])
}

// IsReadOnly reports whether query is a single statement that cannot
// modify data.
func IsReadOnly(query string) bool {
	return readOnlyStatements[Statement(query)] && !MultipleStatements(query)
}

// MultipleStatements reports whether anything but whitespace and comments
// follows a semicolon outside quotes and comments. A doubled quote stays inside
// its literal; backslashes do not escape.
func MultipleStatements(query string) bool {
	for i := 0; i < len(query); i++ {
		rest := query[i:]
		switch {
		case rest[0] == '\'' || rest[0] == '"' || rest[0] == '`':
			end := closingQuote(rest)
			if end < 0 {
				return false
			}
			i += end
		case strings.HasPrefix(rest, "/*!"):
			// MySQL runs the body of a versioned comment
			i += 2
		case strings.HasPrefix(rest, "/*"):
			end := strings.Index(rest[2:], "*/")
			if end < 0 {
				return false
			}
			i += end + 3
		case isLineComment(rest):
			end := strings.IndexByte(rest, '\n')
			if end < 0 {
				return false
			}
			i += end
		case rest[0] == ';':
			return stripLeadingComments(rest[1:]) != ""
		}
	}
	return false
}

// closingQuote returns the index of the quote closing q[0], treating a doubled
// quote as an escaped one, or -1 when the literal is unterminated.
func closingQuote(q string) int {
	quote := q[0]
	for i := 1; i < len(q); i++ {
		if q[i] != quote {
			continue
		}
		if i+1 < len(q) && q[i+1] == quote {
			i++
			continue
		}
		return i
	}
	return -1
}

// isLineComment matches "-- " in the MySQL form, which SQLite also accepts.
func isLineComment(q string) bool {
	return len(q) >= 3 && q[0] == '-' && q[1] == '-' && (q[2] == ' ' || q[2] == '\t' || q[2] == '\n' || q[2] == '\r')
}

func stripLeadingComments(q string) string {
	for {
		q = strings.TrimLeftFunc(q, unicode.IsSpace)
		switch {
		case strings.HasPrefix(q, "--"), strings.HasPrefix(q, "#"):
			idx := strings.IndexByte(q, '\n')
			if idx < 0 {
				return ""
			}
			q = q[idx+1:]
		case strings.HasPrefix(q, "/*!"):
			// MySQL executes versioned comments
			return q
		case strings.HasPrefix(q, "/*"):
			idx := strings.Index(q, "*/")
			if idx < 0 {
				return ""
			}
			q = q[idx+2:]
		default:
			return q
		}
	}
}

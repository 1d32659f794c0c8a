package store

import (
	"testing"
)

func TestIsReadOnly(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected bool
	}{
		{name: "Simple SELECT", query: "SELECT * FROM tco3_zm", expected: true},
		{name: "SELECT with lowercase", query: "select * from tco3_zm", expected: true},
		{name: "SELECT with leading spaces", query: "   SELECT 1", expected: true},
		{name: "SELECT with comment", query: "-- export\nSELECT * FROM models", expected: true},
		{name: "SELECT after block comment", query: "/* plot */ SELECT 1", expected: true},
		{name: "SHOW", query: "SHOW TABLES", expected: true},
		{name: "DESCRIBE", query: "DESCRIBE models", expected: true},
		{name: "EXPLAIN", query: "explain select 1", expected: true},
		{name: "UPDATE query", query: "UPDATE models SET name = 'x'", expected: false},
		{name: "DELETE query", query: "DELETE FROM models", expected: false},
		{name: "INSERT query", query: "INSERT INTO models (name) VALUES ('x')", expected: false},
		{name: "DROP TABLE", query: "DROP TABLE models", expected: false},
		{name: "CTE", query: "WITH x AS (SELECT 1) DELETE FROM models", expected: false},
		{name: "versioned comment", query: "/*!50000 DROP TABLE models */", expected: false},
		{name: "only comment", query: "-- nothing", expected: false},
		{name: "empty", query: "", expected: false},
		{name: "trailing semicolon", query: "SELECT 1;", expected: true},
		{name: "trailing semicolon and comment", query: "SELECT 1; -- done", expected: true},
		{name: "semicolon in literal", query: "SELECT * FROM models WHERE name = 'a;b'", expected: true},
		{name: "semicolon in identifier", query: "SELECT `a;b` FROM models", expected: true},
		{name: "semicolon in comment", query: "SELECT 1 /* ; */ FROM models", expected: true},
		{name: "batched DELETE", query: "SELECT 1; DELETE FROM tco3_zm", expected: false},
		{name: "batched after newline", query: "SELECT 1;\nDROP TABLE models", expected: false},
		{name: "batched after doubled quote", query: "SELECT 'it''s'; DELETE FROM models", expected: false},
		{name: "backslash is not an escape", query: "SELECT 'a\\'; DELETE FROM models; -- '", expected: false},
		{name: "batched inside versioned comment", query: "SELECT 1 /*!; DELETE FROM models */", expected: false},
		{name: "dash without space is not a comment", query: "SELECT 1 --; DELETE FROM models", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsReadOnly(tt.query)
			if result != tt.expected {
				t.Errorf("IsReadOnly(%q) = %v, want %v", tt.query, result, tt.expected)
			}
		})
	}
}

func TestStatement(t *testing.T) {
	tests := []struct {
		query    string
		expected string
	}{
		{query: "update models set a = 1", expected: "UPDATE"},
		{query: "  # note\nTRUNCATE TABLE models", expected: "TRUNCATE"},
		{query: "SELECT(1)", expected: "SELECT"},
		{query: "", expected: ""},
	}

	for _, tt := range tests {
		if got := Statement(tt.query); got != tt.expected {
			t.Errorf("Statement(%q) = %q, want %q", tt.query, got, tt.expected)
		}
	}
}

func TestMultipleStatements(t *testing.T) {
	tests := []struct {
		query    string
		expected bool
	}{
		{query: "SELECT 1", expected: false},
		{query: "SELECT 1;  ", expected: false},
		{query: "SELECT 1; /* end */", expected: false},
		{query: "SELECT 1; ;", expected: true},
		{query: "SELECT 1; SELECT 2", expected: true},
		{query: "SELECT \"x;y\" FROM models", expected: false},
		{query: "SELECT 'unterminated; DELETE", expected: false},
		{query: "SELECT 1 -- note; DELETE\n", expected: false},
		{query: "SELECT 1 -- note\n; DELETE FROM models", expected: true},
	}

	for _, tt := range tests {
		if got := MultipleStatements(tt.query); got != tt.expected {
			t.Errorf("MultipleStatements(%q) = %v, want %v", tt.query, got, tt.expected)
		}
	}
}

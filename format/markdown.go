package format

import (
	"strings"
)

func FormatMarkdown(columns []string, table Table) string {
	if len(columns) == 0 {
		return "No results"
	}

	var output strings.Builder

	// Write header row
	output.WriteString("| ")
	output.WriteString(strings.Join(escapeCells(columns), " | "))
	output.WriteString(" |\n")

	// Write separator
	output.WriteString("|")
	for range columns {
		output.WriteString(" --- |")
	}
	output.WriteString("\n")

	// Write data rows
	values := make([]string, len(columns))
	for _, row := range table {
		for i, column := range columns {
			values[i] = formatValue(row, column)
		}
		output.WriteString("| ")
		output.WriteString(strings.Join(escapeCells(values), " | "))
		output.WriteString(" |\n")
	}

	return output.String()
}

func escapeCells(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		c = strings.ReplaceAll(c, "|", `\|`)
		out[i] = strings.ReplaceAll(c, "\n", " ")
	}
	return out
}

package format

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

type TableFormatter struct {
	headers []string
	rows    [][]string
	widths  []int
}

func NewTableFormatter(columns []string, table Table) *TableFormatter {
	formatter := &TableFormatter{
		headers: columns,
		widths:  make([]int, len(columns)),
		rows:    make([][]string, 0, len(table)),
	}

	// Initialize widths with header lengths
	for i, header := range columns {
		formatter.widths[i] = utf8.RuneCountInString(header)
	}

	for _, row := range table {
		rowData := make([]string, len(columns))
		for i, header := range columns {
			value := formatValue(row, header)
			rowData[i] = value
			if n := utf8.RuneCountInString(value); n > formatter.widths[i] {
				formatter.widths[i] = n
			}
		}
		formatter.rows = append(formatter.rows, rowData)
	}

	return formatter
}

func (f *TableFormatter) Render() string {
	if len(f.headers) == 0 {
		return "No results"
	}

	var output strings.Builder

	f.border(&output, "┌", "┬", "┐\n")

	output.WriteString("│")
	for i, header := range f.headers {
		output.WriteString(fmt.Sprintf(" %s │", pad(header, f.widths[i])))
	}
	output.WriteString("\n")

	f.border(&output, "├", "┼", "┤\n")

	for _, row := range f.rows {
		output.WriteString("│")
		for i, value := range row {
			output.WriteString(fmt.Sprintf(" %s │", pad(value, f.widths[i])))
		}
		output.WriteString("\n")
	}

	f.border(&output, "└", "┴", "┘")

	return output.String()
}

func (f *TableFormatter) border(output *strings.Builder, left, middle, right string) {
	output.WriteString(left)
	for i, width := range f.widths {
		output.WriteString(strings.Repeat("─", width+2))
		if i < len(f.widths)-1 {
			output.WriteString(middle)
		}
	}
	output.WriteString(right)
}

// pad right-pads by rune count; %-*s pads by bytes.
func pad(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

// formatValue renders a preview cell: SQL NULLs read as NULL, missing keys stay blank.
func formatValue(row *Record, column string) string {
	v, ok := row.Get(column)
	if !ok {
		return ""
	}
	if v == nil {
		return "NULL"
	}
	return Stringify(v)
}

package format

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
)

var (
	// ErrDeserialize is returned when text input is not a JSON array of objects.
	ErrDeserialize = errors.New("cannot deserialize records")
	// ErrNonScalar is returned by CheckScalars for nested values.
	ErrNonScalar = errors.New("non-scalar value")
)

const lineEnd = "\r\n"

// GenerateCSV renders the table as quoted CSV. The header is the table's
// ColumnSet; every field is double-quoted and lines end with CRLF.
func GenerateCSV(table Table) string {
	var output strings.Builder
	// strings.Builder never fails
	_ = WriteCSV(&output, Columns(table), table)
	return output.String()
}

// WriteCSV writes the header and one line per record using columns as the
// field layout. Keys missing from a record become empty fields.
func WriteCSV(w io.Writer, columns []string, table Table) error {
	writer := bufio.NewWriter(w)

	writeLine(writer, columns)

	fields := make([]string, len(columns))
	for _, row := range table {
		for i, column := range columns {
			value, _ := row.Get(column)
			fields[i] = Stringify(value)
		}
		writeLine(writer, fields)
	}

	return writer.Flush()
}

func writeLine(w *bufio.Writer, fields []string) {
	for i, field := range fields {
		if i > 0 {
			w.WriteByte(',')
		}
		w.WriteByte('"')
		w.WriteString(strings.ReplaceAll(field, `"`, `""`))
		w.WriteByte('"')
	}
	w.WriteString(lineEnd)
}

// Generate accepts a Table, a slice of maps, or JSON text and returns the CSV
// rendering. Text that does not deserialize into records fails the call.
func Generate(input interface{}) (string, error) {
	table, err := ToTable(input)
	if err != nil {
		return "", err
	}
	return GenerateCSV(table), nil
}

// GenerateCSVFromJSON parses a JSON array of objects and renders it as CSV.
func GenerateCSVFromJSON(text string) (string, error) {
	table, err := ParseTable(text)
	if err != nil {
		return "", err
	}
	return GenerateCSV(table), nil
}

// ToTable normalises any supported input representation into a Table.
func ToTable(input interface{}) (Table, error) {
	switch in := input.(type) {
	case Table:
		return in, nil
	case []*Record:
		return Table(in), nil
	case []map[string]interface{}:
		return FromMaps(in), nil
	case string:
		return ParseTable(in)
	case []byte:
		return ParseTable(string(in))
	case json.RawMessage:
		return ParseTable(string(in))
	case nil:
		return Table{}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported input type %T", ErrDeserialize, input)
	}
}

// CheckScalars reports the first nested value in the table.
func CheckScalars(table Table) error {
	for i, row := range table {
		for _, key := range row.Keys() {
			value, _ := row.Get(key)
			if isNested(value) {
				return fmt.Errorf("%w: row %d column %q", ErrNonScalar, i, key)
			}
		}
	}
	return nil
}

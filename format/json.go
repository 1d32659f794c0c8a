package format

import (
	"bytes"

	"github.com/goccy/go-json"
)

// FormatJSON renders the table as an indented JSON array, keeping column order
// within each object. Missing keys are omitted.
func FormatJSON(columns []string, table Table) (string, error) {
	var buf bytes.Buffer
	buf.WriteString("[")
	for i, row := range table {
		if i > 0 {
			buf.WriteString(",")
		}
		buf.WriteString("\n  {")
		first := true
		for _, column := range columns {
			value, ok := row.Get(column)
			if !ok {
				continue
			}
			if !first {
				buf.WriteString(",")
			}
			first = false

			key, err := json.Marshal(column)
			if err != nil {
				return "", err
			}
			val, err := marshalValue(value)
			if err != nil {
				return "", err
			}
			buf.WriteString("\n    ")
			buf.Write(key)
			buf.WriteString(": ")
			buf.Write(val)
		}
		if !first {
			buf.WriteString("\n  ")
		}
		buf.WriteString("}")
	}
	if len(table) > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("]")
	return buf.String(), nil
}

func marshalValue(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case RawJSON:
		return []byte(v.Compact()), nil
	case []byte:
		return json.Marshal(string(v))
	}
	return json.Marshal(value)
}

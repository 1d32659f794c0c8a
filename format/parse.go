package format

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// ParseTable deserializes a JSON array of objects. Keys keep their document
// order; a repeated key keeps its first position and its last value.
func ParseTable(text string) (Table, error) {
	if !gjson.Valid(text) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrDeserialize)
	}

	doc := gjson.Parse(text)
	if !doc.IsArray() {
		return nil, fmt.Errorf("%w: expected an array, got %s", ErrDeserialize, doc.Type)
	}

	table := make(Table, 0)
	var err error
	doc.ForEach(func(_, elem gjson.Result) bool {
		if !elem.IsObject() {
			err = fmt.Errorf("%w: element %d is not an object", ErrDeserialize, len(table))
			return false
		}
		table = append(table, recordFromJSON(elem))
		return true
	})
	if err != nil {
		return nil, err
	}

	return table, nil
}

func recordFromJSON(obj gjson.Result) *Record {
	r := NewRecord()
	obj.ForEach(func(key, value gjson.Result) bool {
		r.Set(key.String(), ValueOf(value))
		return true
	})
	return r
}

// ValueOf converts a gjson result into the value stored in a Record.
func ValueOf(value gjson.Result) interface{} {
	switch value.Type {
	case gjson.Null:
		return nil
	case gjson.True:
		return true
	case gjson.False:
		return false
	case gjson.Number:
		return value.Float()
	case gjson.String:
		return value.String()
	default:
		return RawJSON(value.Raw)
	}
}

package format

import (
	"sort"
)

// Record is one exportable row. Keys keep the order in which they were first
// set; a key may be present with a nil value.
type Record struct {
	keys   []string
	values map[string]interface{}
}

// Table is an ordered sequence of records.
type Table []*Record

func NewRecord() *Record {
	return &Record{values: make(map[string]interface{})}
}

// RecordOf builds a record from alternating key/value pairs.
func RecordOf(pairs ...interface{}) *Record {
	r := NewRecord()
	for i := 0; i+1 < len(pairs); i += 2 {
		key, _ := pairs[i].(string)
		r.Set(key, pairs[i+1])
	}
	return r
}

// Set stores value under key. An existing key keeps its position.
func (r *Record) Set(key string, value interface{}) {
	if r.values == nil {
		r.values = make(map[string]interface{})
	}
	if _, exists := r.values[key]; !exists {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

func (r *Record) Get(key string) (interface{}, bool) {
	if r == nil {
		return nil, false
	}
	v, ok := r.values[key]
	return v, ok
}

func (r *Record) Keys() []string {
	if r == nil {
		return nil
	}
	return r.keys
}

func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// Map returns a copy of the record's values.
func (r *Record) Map() map[string]interface{} {
	out := make(map[string]interface{}, r.Len())
	for _, k := range r.Keys() {
		out[k] = r.values[k]
	}
	return out
}

// FromMaps converts plain maps into a Table. Map iteration order is random,
// so keys are sorted within each record to keep the output stable.
func FromMaps(rows []map[string]interface{}) Table {
	table := make(Table, 0, len(rows))
	for _, row := range rows {
		keys := make([]string, 0, len(row))
		for k := range row {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		r := NewRecord()
		for _, k := range keys {
			r.Set(k, row[k])
		}
		table = append(table, r)
	}
	return table
}

// Columns returns the distinct keys of all records in first-seen order.
func Columns(table Table) []string {
	columns := make([]string, 0)
	seen := make(map[string]struct{})
	for _, r := range table {
		for _, k := range r.Keys() {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			columns = append(columns, k)
		}
	}
	return columns
}

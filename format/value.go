package format

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/tidwall/pretty"
)

// RawJSON holds a nested object or array taken verbatim from JSON input.
type RawJSON string

// Compact strips insignificant whitespace from the raw document.
func (r RawJSON) Compact() RawJSON {
	return RawJSON(pretty.Ugly([]byte(r)))
}

// Stringify renders a value as CSV field text. Strings pass through, numbers
// and booleans use their canonical form, nil is empty, and nested values are
// written as compact JSON.
func Stringify(v interface{}) string {
	// value-receiver methods such as time.Time.String panic on a nil pointer
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return ""
	}

	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int8:
		return strconv.FormatInt(int64(val), 10)
	case int16:
		return strconv.FormatInt(int64(val), 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint:
		return strconv.FormatUint(uint64(val), 10)
	case uint8:
		return strconv.FormatUint(uint64(val), 10)
	case uint16:
		return strconv.FormatUint(uint64(val), 10)
	case uint32:
		return strconv.FormatUint(uint64(val), 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float32:
		f, _ := strconv.ParseFloat(strconv.FormatFloat(float64(val), 'g', -1, 32), 64)
		return formatFloat(f)
	case float64:
		return formatFloat(val)
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return formatFloat(f)
		}
		return val.String()
	case RawJSON:
		return string(val.Compact())
	case fmt.Stringer:
		return val.String()
	}

	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer {
		return Stringify(rv.Elem().Interface())
	}
	if isNested(v) {
		if b, err := json.Marshal(v); err == nil {
			return string(b)
		}
	}
	return fmt.Sprintf("%v", v)
}

// formatFloat writes the shortest decimal that round-trips, switching to
// exponent notation below 1e-6 and from 1e21 up.
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}

	abs := math.Abs(f)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}

	s := strconv.FormatFloat(f, 'e', -1, 64)
	mantissa, exp, _ := strings.Cut(s, "e")
	sign, digits := exp[:1], strings.TrimLeft(exp[1:], "0")
	return mantissa + "e" + sign + digits
}

func isNested(v interface{}) bool {
	if _, ok := v.(RawJSON); ok {
		return true
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map, reflect.Struct:
		return true
	case reflect.Slice, reflect.Array:
		return rv.Type().Elem().Kind() != reflect.Uint8
	}
	return false
}

package jsontree

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// Value is one JSON scalar awaiting coercion to a concrete Go type.
// Every consumer states the exact primitive kind it expects; a mismatch is a
// hard error, never a silent default.
type Value struct {
	r gjson.Result
}

// String builds a string Value for imperative callers that bypass a document.
func String(s string) Value {
	return Value{r: gjson.Result{Type: gjson.String, Str: s}}
}

// Number builds a numeric Value for imperative callers.
func Number(f float64) Value {
	return Value{r: gjson.Result{Type: gjson.Number, Num: f}}
}

// Boolean builds a boolean Value for imperative callers.
func Boolean(b bool) Value {
	if b {
		return Value{r: gjson.Result{Type: gjson.True}}
	}
	return Value{r: gjson.Result{Type: gjson.False}}
}

// TypeError reports a scalar of the wrong primitive kind.
type TypeError struct {
	Want string
	Got  string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("expected %s value, got %s", e.Want, e.Got)
}

func (v Value) Str() (string, error) {
	if v.r.Type != gjson.String {
		return "", &TypeError{Want: "string", Got: kindName(v.r)}
	}
	return v.r.Str, nil
}

func (v Value) Bool() (bool, error) {
	switch v.r.Type {
	case gjson.True:
		return true, nil
	case gjson.False:
		return false, nil
	}
	return false, &TypeError{Want: "boolean", Got: kindName(v.r)}
}

func (v Value) Float64() (float64, error) {
	if v.r.Type != gjson.Number {
		return 0, &TypeError{Want: "number", Got: kindName(v.r)}
	}
	return v.r.Num, nil
}

// Int truncates the document number to an integer, matching the runtime's
// historical double-to-int conversion.
func (v Value) Int() (int, error) {
	f, err := v.Float64()
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

func (v Value) Float32() (float32, error) {
	f, err := v.Float64()
	if err != nil {
		return 0, err
	}
	return float32(f), nil
}

func kindName(r gjson.Result) string {
	switch r.Type {
	case gjson.String:
		return "string"
	case gjson.Number:
		return "number"
	case gjson.True, gjson.False:
		return "boolean"
	case gjson.Null:
		return "null"
	}
	return "value"
}

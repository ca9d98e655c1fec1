// Package jsontree drives visitor-based binding over a JSON document.
//
// The walker preserves document order: object fields and array elements are
// delivered in the order they appear in the source text. A visitor consumes
// one container's fields and hands out the child visitors that consume nested
// containers. Anything a visitor does not explicitly accept is an unknown
// field, which fails the whole walk.
package jsontree

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// ErrInvalidDocument reports input that is not a JSON object.
var ErrInvalidDocument = errors.New("document is not a valid JSON object")

// Visitor consumes the fields of one JSON container.
//
// Object fields arrive with their key; array elements arrive with an empty
// name. For nested containers the visitor returns the child visitor that
// should consume them.
type Visitor interface {
	Scalar(name string, value Value) error
	Object(name string) (Visitor, error)
	Array(name string) (Visitor, error)
}

// Completer is implemented by visitors that need to run once their container
// has been fully consumed.
type Completer interface {
	Complete(empty bool) error
}

// Reject is the default visitor behaviour: every field is unknown. Binders
// embed it and override only the events their schema node accepts.
type Reject struct{}

func (Reject) Scalar(name string, _ Value) error   { return &UnknownFieldError{Field: name} }
func (Reject) Object(name string) (Visitor, error) { return nil, &UnknownFieldError{Field: name} }
func (Reject) Array(name string) (Visitor, error)  { return nil, &UnknownFieldError{Field: name} }

// UnknownField returns the error a binder reports for a field outside its
// schema. It exists so the default arms of binder switches read uniformly.
func UnknownField(name string) error { return &UnknownFieldError{Field: name} }

// UnknownFieldError reports a document field no binder accepts.
type UnknownFieldError struct {
	Field string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown field %q", e.Field)
}

// Walk parses doc and delivers its top-level object to root as a single
// anonymous object event. The base document and any overlay both enter
// through here, so the one-level unwrap is identical for both passes.
func Walk(doc string, root Visitor) error {
	if !gjson.Valid(doc) {
		return ErrInvalidDocument
	}
	parsed := gjson.Parse(doc)
	if !parsed.IsObject() {
		return ErrInvalidDocument
	}
	child, err := root.Object("")
	if err != nil {
		return err
	}
	return walkObject(parsed, child)
}

func walkObject(obj gjson.Result, v Visitor) error {
	var err error
	empty := true
	obj.ForEach(func(key, val gjson.Result) bool {
		empty = false
		err = field(v, key.String(), val)
		return err == nil
	})
	if err != nil {
		return err
	}
	return complete(v, empty)
}

func walkArray(arr gjson.Result, v Visitor) error {
	var err error
	empty := true
	arr.ForEach(func(_, val gjson.Result) bool {
		empty = false
		err = field(v, "", val)
		return err == nil
	})
	if err != nil {
		return err
	}
	return complete(v, empty)
}

func field(v Visitor, name string, val gjson.Result) error {
	switch {
	case val.IsObject():
		child, err := v.Object(name)
		if err != nil {
			return err
		}
		return walkObject(val, child)
	case val.IsArray():
		child, err := v.Array(name)
		if err != nil {
			return err
		}
		return walkArray(val, child)
	default:
		return v.Scalar(name, Value{r: val})
	}
}

func complete(v Visitor, empty bool) error {
	if c, ok := v.(Completer); ok {
		return c.Complete(empty)
	}
	return nil
}

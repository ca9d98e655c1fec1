package jsontree

import (
	"errors"
	"testing"
)

// recorder collects the events delivered to one container so the tests can
// assert on ordering and nesting.
type recorder struct {
	events   *[]string
	complete bool
}

func (r *recorder) Scalar(name string, val Value) error {
	*r.events = append(*r.events, "scalar:"+name)
	return nil
}

func (r *recorder) Object(name string) (Visitor, error) {
	*r.events = append(*r.events, "object:"+name)
	return &recorder{events: r.events}, nil
}

func (r *recorder) Array(name string) (Visitor, error) {
	*r.events = append(*r.events, "array:"+name)
	return &recorder{events: r.events}, nil
}

func (r *recorder) Complete(empty bool) error {
	r.complete = true
	if empty {
		*r.events = append(*r.events, "complete:empty")
	} else {
		*r.events = append(*r.events, "complete")
	}
	return nil
}

func TestWalkDeliversEventsInDocumentOrder(t *testing.T) {
	t.Parallel()

	doc := `{"b": 1, "a": {"x": "y"}, "c": [true, false]}`
	var events []string
	root := &recorder{events: &events}
	if err := Walk(doc, root); err != nil {
		t.Fatalf("walk: %v", err)
	}

	want := []string{
		"object:", // anonymous top-level unwrap
		"scalar:b",
		"object:a",
		"scalar:x",
		"complete",
		"array:c",
		"scalar:", // array elements arrive unnamed
		"scalar:",
		"complete",
		"complete",
	}
	if len(events) != len(want) {
		t.Fatalf("got %d events %v, want %d", len(events), events, len(want))
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("event %d: got %q want %q", i, events[i], want[i])
		}
	}
}

func TestWalkCompleteReportsEmptyContainer(t *testing.T) {
	t.Parallel()

	var events []string
	root := &recorder{events: &events}
	if err := Walk(`{"a": {}}`, root); err != nil {
		t.Fatalf("walk: %v", err)
	}
	want := []string{"object:", "object:a", "complete:empty", "complete"}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("event %d: got %q want %q", i, events[i], want[i])
		}
	}
}

func TestWalkRejectsNonObjectDocuments(t *testing.T) {
	t.Parallel()

	for _, doc := range []string{`[1, 2]`, `"text"`, `42`, `not json at all`, ``} {
		var events []string
		err := Walk(doc, &recorder{events: &events})
		if !errors.Is(err, ErrInvalidDocument) {
			t.Fatalf("doc %q: got %v, want ErrInvalidDocument", doc, err)
		}
	}
}

func TestRejectFailsEveryField(t *testing.T) {
	t.Parallel()

	type strict struct{ Reject }

	cases := []string{
		`{"surprise": 1}`,
		`{"surprise": {}}`,
		`{"surprise": []}`,
	}
	for _, doc := range cases {
		err := Walk(doc, wrap{inner: strict{}})
		var unknown *UnknownFieldError
		if !errors.As(err, &unknown) {
			t.Fatalf("doc %s: got %v, want UnknownFieldError", doc, err)
		}
		if unknown.Field != "surprise" {
			t.Fatalf("doc %s: got field %q want %q", doc, unknown.Field, "surprise")
		}
	}
}

// wrap unwraps the anonymous top-level object onto inner.
type wrap struct {
	Reject
	inner Visitor
}

func (w wrap) Object(string) (Visitor, error) { return w.inner, nil }

func TestWalkStopsAtFirstError(t *testing.T) {
	t.Parallel()

	var events []string
	root := failAfter{events: &events}
	err := Walk(`{"ok": 1, "bad": 2, "never": 3}`, wrap{inner: root})
	if err == nil {
		t.Fatalf("expected error from second field")
	}
	if len(events) != 1 || events[0] != "ok" {
		t.Fatalf("got events %v, want exactly [ok]", events)
	}
}

type failAfter struct {
	Reject
	events *[]string
}

func (f failAfter) Scalar(name string, _ Value) error {
	if name == "bad" {
		return errors.New("boom")
	}
	*f.events = append(*f.events, name)
	return nil
}

func TestValueCoercions(t *testing.T) {
	t.Parallel()

	if s, err := String("hi").Str(); err != nil || s != "hi" {
		t.Fatalf("Str: got %q, %v", s, err)
	}
	if n, err := Number(3.9).Int(); err != nil || n != 3 {
		t.Fatalf("Int: got %d, %v, want truncation to 3", n, err)
	}
	if f, err := Number(0.5).Float32(); err != nil || f != 0.5 {
		t.Fatalf("Float32: got %v, %v", f, err)
	}
	if b, err := Boolean(true).Bool(); err != nil || !b {
		t.Fatalf("Bool: got %v, %v", b, err)
	}

	var typeErr *TypeError
	if _, err := Number(1).Str(); !errors.As(err, &typeErr) {
		t.Fatalf("Str on number: got %v, want TypeError", err)
	}
	if typeErr.Want != "string" || typeErr.Got != "number" {
		t.Fatalf("TypeError: got want=%q got=%q", typeErr.Want, typeErr.Got)
	}
	if _, err := String("x").Bool(); !errors.As(err, &typeErr) {
		t.Fatalf("Bool on string: got %v, want TypeError", err)
	}
	if _, err := Boolean(false).Float64(); !errors.As(err, &typeErr) {
		t.Fatalf("Float64 on bool: got %v, want TypeError", err)
	}
}

package content

import (
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// Editor appends and removes records in the item arrays of a document.
type Editor struct {
	now func() time.Time
}

// EditorOption configures an Editor.
type EditorOption func(*Editor)

// WithClock overrides the time source used for project ids.
func WithClock(now func() time.Time) EditorOption {
	return func(e *Editor) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEditor returns an Editor using the wall clock.
func NewEditor(opts ...EditorOption) *Editor {
	e := &Editor{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewItem builds a fresh default record for kind. Project ids are the
// current Unix time in milliseconds.
func (e *Editor) NewItem(kind ItemKind) (map[string]any, error) {
	build, ok := templates[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return build(float64(ulid.Timestamp(e.now()))), nil
}

// AddItem appends a new default record of kind to the array at p and
// returns its index.
//
// Project ids come from the clock, so two additions within the same
// millisecond collide. A collision is reported as ErrDuplicateID and the
// array is left unchanged.
func (e *Editor) AddItem(doc *Document, p Path, kind ItemKind) (int, error) {
	arr, err := arrayAt(doc, p, "add")
	if err != nil {
		return -1, err
	}
	item, err := e.NewItem(kind)
	if err != nil {
		return -1, pathErr("add", p, err)
	}
	if kind == KindProjects {
		id := idString(item["id"])
		for i, existing := range arr {
			rec, ok := existing.(map[string]any)
			if ok && idString(rec["id"]) == id {
				return -1, pathErr("add", p, fmt.Errorf("%w: %s (item %d)", ErrDuplicateID, id, i))
			}
		}
	}

	arr = append(arr, item)
	if err := replaceArray(doc, p, arr); err != nil {
		return -1, err
	}
	return len(arr) - 1, nil
}

// RemoveItem deletes the element at index from the array at p, shifting the
// following elements down by one.
func (e *Editor) RemoveItem(doc *Document, p Path, index int) error {
	arr, err := arrayAt(doc, p, "remove")
	if err != nil {
		return err
	}
	if index < 0 || index >= len(arr) {
		return pathErr("remove", p.Index(index), fmt.Errorf("%w: index %d, length %d", ErrOutOfBounds, index, len(arr)))
	}

	out := make([]any, 0, len(arr)-1)
	out = append(out, arr[:index]...)
	out = append(out, arr[index+1:]...)
	return replaceArray(doc, p, out)
}

func arrayAt(doc *Document, p Path, op string) ([]any, error) {
	v, err := doc.Get(p)
	if err != nil {
		return nil, pathErr(op, p, unwrapPathErr(err))
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, pathErr(op, p, fmt.Errorf("%w: %s is not an array", ErrInvalidPath, kindOf(v)))
	}
	return arr, nil
}

// replaceArray stores arr without cloning so callers keep identity with the
// records they appended.
func replaceArray(doc *Document, p Path, arr []any) error {
	if len(p) == 0 {
		return pathErr("set", p, fmt.Errorf("%w: root is not an array", ErrInvalidPath))
	}
	return Set(doc.root, p, arr)
}

// Package content implements the portfolio content document: a JSON tree
// addressed by paths, the baseline/override merge and item array editing.
package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strconv"
)

// MetaKey is the top-level key holding contact fields shared by all languages.
const MetaKey = "meta"

// Document is a content tree rooted at a JSON object. Top-level keys other
// than "meta" are language codes.
type Document struct {
	root map[string]any
}

// NewDocument wraps root without copying it. A nil root becomes an empty object.
func NewDocument(root map[string]any) *Document {
	if root == nil {
		root = map[string]any{}
	}
	return &Document{root: root}
}

// Parse decodes a JSON object into a Document.
func Parse(data []byte) (*Document, error) {
	var root map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if root == nil {
		return nil, fmt.Errorf("decode document: top level is not an object")
	}
	if dec.More() {
		return nil, fmt.Errorf("decode document: trailing data after object")
	}
	return &Document{root: root}, nil
}

// Root exposes the underlying tree. Mutating it mutates the document.
func (d *Document) Root() map[string]any {
	return d.root
}

// Get returns the value at p.
func (d *Document) Get(p Path) (any, error) {
	return Get(d.root, p)
}

// Set stores a deep copy of v at p.
func (d *Document) Set(p Path, v any) error {
	return Set(d.root, p, Clone(v))
}

// Clone returns an independent copy of the document.
func (d *Document) Clone() *Document {
	return &Document{root: cloneObject(d.root)}
}

// Equal reports whether both documents hold deep-equal trees.
func (d *Document) Equal(o *Document) bool {
	if d == nil || o == nil {
		return d == o
	}
	return reflect.DeepEqual(d.root, o.root)
}

// Meta returns the shared contact fields, or nil when absent.
func (d *Document) Meta() map[string]any {
	m, _ := d.root[MetaKey].(map[string]any)
	return m
}

// Languages lists the language subtrees in sorted order.
func (d *Document) Languages() []string {
	langs := make([]string, 0, len(d.root))
	for k, v := range d.root {
		if k == MetaKey {
			continue
		}
		if _, ok := v.(map[string]any); ok {
			langs = append(langs, k)
		}
	}
	sort.Strings(langs)
	return langs
}

// Sections lists the section keys of one language in sorted order.
func (d *Document) Sections(lang string) []string {
	sub, _ := d.root[lang].(map[string]any)
	keys := make([]string, 0, len(sub))
	for k := range sub {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MarshalJSON encodes the tree compactly.
func (d *Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.root)
}

// Encode writes the document pretty-printed with two-space indentation.
func (d *Document) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(d.root)
}

// FindProject returns the project with the given id in lang along with its
// index in projects.items.
func (d *Document) FindProject(lang string, id any) (map[string]any, int, error) {
	p := Path{}.Key(lang).Key("projects").Key("items")
	v, err := d.Get(p)
	if err != nil {
		return nil, -1, err
	}
	items, ok := v.([]any)
	if !ok {
		return nil, -1, pathErr("find", p, fmt.Errorf("%w: not an array", ErrInvalidPath))
	}
	want := idString(id)
	for i, it := range items {
		rec, ok := it.(map[string]any)
		if !ok {
			continue
		}
		if idString(rec["id"]) == want {
			return rec, i, nil
		}
	}
	return nil, -1, pathErr("find", p.Key("id="+want), ErrInvalidPath)
}

func idString(v any) string {
	switch t := v.(type) {
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case string:
		return t
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

// Issue is an advisory finding from Validate.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Validate reports duplicate project ids, non-numeric skill levels and
// sections missing from some languages. Nothing is enforced at load time.
func (d *Document) Validate() []Issue {
	var issues []Issue
	langs := d.Languages()

	all := map[string]bool{}
	for _, lang := range langs {
		for _, s := range d.Sections(lang) {
			all[s] = true
		}
	}
	for _, lang := range langs {
		sub := d.root[lang].(map[string]any)
		var missing []string
		for s := range all {
			if _, ok := sub[s]; !ok {
				missing = append(missing, s)
			}
		}
		sort.Strings(missing)
		for _, s := range missing {
			issues = append(issues, Issue{Path: lang + "." + s, Message: "section missing in this language"})
		}
	}

	for _, lang := range langs {
		if items, err := d.Get(Path{}.Key(lang).Key("projects").Key("items")); err == nil {
			seen := map[string]int{}
			arr, _ := items.([]any)
			for i, it := range arr {
				rec, ok := it.(map[string]any)
				if !ok {
					continue
				}
				id := idString(rec["id"])
				if first, dup := seen[id]; dup {
					issues = append(issues, Issue{
						Path:    fmt.Sprintf("%s.projects.items.%d.id", lang, i),
						Message: fmt.Sprintf("id %s already used by item %d", id, first),
					})
					continue
				}
				seen[id] = i
			}
		}

		cats, err := d.Get(Path{}.Key(lang).Key("skills").Key("categories"))
		if err != nil {
			continue
		}
		catArr, _ := cats.([]any)
		for ci, c := range catArr {
			cat, _ := c.(map[string]any)
			skills, _ := cat["items"].([]any)
			for si, s := range skills {
				rec, _ := s.(map[string]any)
				if _, ok := rec["level"].(float64); !ok {
					issues = append(issues, Issue{
						Path:    fmt.Sprintf("%s.skills.categories.%d.items.%d.level", lang, ci, si),
						Message: "level is not a number",
					})
				}
			}
		}
	}
	return issues
}

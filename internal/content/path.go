package content

import (
	"fmt"
	"strconv"
	"strings"
)

// Segment is one step of a Path: either an object key or an array index.
type Segment struct {
	key     string
	index   int
	isIndex bool
}

// Key returns a segment addressing an object field.
func Key(k string) Segment {
	return Segment{key: k}
}

// Index returns a segment addressing an array element.
func Index(i int) Segment {
	return Segment{index: i, isIndex: true}
}

// IsIndex reports whether the segment was built as an array index.
func (s Segment) IsIndex() bool { return s.isIndex }

func (s Segment) String() string {
	if s.isIndex {
		return strconv.Itoa(s.index)
	}
	return s.key
}

// asIndex interprets the segment as an array position. Keys that spell a
// non-negative integer are accepted so parsed paths work against arrays.
func (s Segment) asIndex() (int, bool) {
	if s.isIndex {
		return s.index, true
	}
	n, err := strconv.Atoi(s.key)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Path locates a value inside a document tree.
type Path []Segment

// Key returns a copy of p extended with an object key.
func (p Path) Key(k string) Path {
	return p.append(Key(k))
}

// Index returns a copy of p extended with an array index.
func (p Path) Index(i int) Path {
	return p.append(Index(i))
}

func (p Path) append(s Segment) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, s)
}

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = s.String()
	}
	return strings.Join(parts, ".")
}

// ParsePath splits a dotted path such as "en.projects.items.0.title".
// Purely numeric segments become indices; an empty string is the root.
func ParsePath(s string) (Path, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Path{}, nil
	}
	raw := strings.Split(s, ".")
	p := make(Path, 0, len(raw))
	for _, part := range raw {
		if part == "" {
			return nil, fmt.Errorf("%w: empty segment in %q", ErrInvalidPath, s)
		}
		if n, err := strconv.Atoi(part); err == nil && n >= 0 {
			p = append(p, Index(n))
			continue
		}
		p = append(p, Key(part))
	}
	return p, nil
}

// Get returns the value reached by indexing root one segment at a time.
func Get(root any, p Path) (any, error) {
	cur := root
	for i, seg := range p {
		next, err := step(cur, seg)
		if err != nil {
			return nil, pathErr("get", p[:i+1], err)
		}
		cur = next
	}
	return cur, nil
}

// Set assigns v at the last segment of p. Every earlier segment must already
// resolve to an object or array; intermediate containers are never created.
func Set(root any, p Path, v any) error {
	if len(p) == 0 {
		return pathErr("set", p, fmt.Errorf("%w: cannot replace the root", ErrInvalidPath))
	}
	parent, err := Get(root, p[:len(p)-1])
	if err != nil {
		return pathErr("set", p, unwrapPathErr(err))
	}

	last := p[len(p)-1]
	switch c := parent.(type) {
	case map[string]any:
		if c == nil {
			return pathErr("set", p, ErrInvalidPath)
		}
		c[last.String()] = v
		return nil
	case []any:
		idx, ok := last.asIndex()
		if !ok {
			return pathErr("set", p, fmt.Errorf("%w: %q is not an array index", ErrInvalidPath, last.String()))
		}
		if idx < 0 || idx >= len(c) {
			return pathErr("set", p, fmt.Errorf("%w: index %d, length %d", ErrOutOfBounds, idx, len(c)))
		}
		c[idx] = v
		return nil
	default:
		return pathErr("set", p, fmt.Errorf("%w: parent is %s", ErrInvalidPath, kindOf(parent)))
	}
}

func step(cur any, seg Segment) (any, error) {
	switch c := cur.(type) {
	case map[string]any:
		v, ok := c[seg.String()]
		if !ok {
			return nil, fmt.Errorf("%w: no field %q", ErrInvalidPath, seg.String())
		}
		return v, nil
	case []any:
		idx, ok := seg.asIndex()
		if !ok {
			return nil, fmt.Errorf("%w: %q is not an array index", ErrInvalidPath, seg.String())
		}
		if idx < 0 || idx >= len(c) {
			return nil, fmt.Errorf("%w: index %d, length %d", ErrOutOfBounds, idx, len(c))
		}
		return c[idx], nil
	default:
		return nil, fmt.Errorf("%w: cannot index %s", ErrInvalidPath, kindOf(cur))
	}
}

func unwrapPathErr(err error) error {
	if pe, ok := err.(*PathError); ok {
		return pe.Err
	}
	return err
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case float64, int, int64:
		return "number"
	case bool:
		return "bool"
	default:
		return fmt.Sprintf("%T", v)
	}
}

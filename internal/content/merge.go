package content

import (
	"fmt"
	"strings"
)

// MergePolicy selects how a persisted override is laid over the baseline.
type MergePolicy int

const (
	// ShallowOverlay replaces each top-level key present in the override
	// wholesale, then patches meta field by field. Fields added to a language
	// subtree of the baseline are lost once an override holds that language.
	ShallowOverlay MergePolicy = iota
	// DeepMerge merges objects recursively with the override winning per
	// field. Arrays and scalars from the override replace the baseline's.
	DeepMerge
)

func (p MergePolicy) String() string {
	switch p {
	case ShallowOverlay:
		return "shallow"
	case DeepMerge:
		return "deep"
	default:
		return fmt.Sprintf("MergePolicy(%d)", int(p))
	}
}

// ParseMergePolicy accepts "shallow" (or "") and "deep".
func ParseMergePolicy(s string) (MergePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "shallow":
		return ShallowOverlay, nil
	case "deep":
		return DeepMerge, nil
	default:
		return ShallowOverlay, fmt.Errorf("unknown merge policy %q (valid: shallow, deep)", s)
	}
}

// Merge builds the effective document from baseline and an optional
// override. Neither input is modified and the result shares no containers
// with them.
func Merge(baseline, override *Document, policy MergePolicy) *Document {
	if baseline == nil {
		baseline = NewDocument(nil)
	}
	if override == nil {
		return baseline.Clone()
	}

	switch policy {
	case DeepMerge:
		return &Document{root: mergeObjects(baseline.root, override.root)}
	default:
		return &Document{root: overlay(baseline.root, override.root)}
	}
}

func overlay(base, over map[string]any) map[string]any {
	out := cloneObject(base)
	for k, v := range over {
		out[k] = Clone(v)
	}

	baseMeta, ok1 := base[MetaKey].(map[string]any)
	overMeta, ok2 := over[MetaKey].(map[string]any)
	if ok1 && ok2 {
		meta := cloneObject(baseMeta)
		for k, v := range overMeta {
			meta[k] = Clone(v)
		}
		out[MetaKey] = meta
	}
	return out
}

func mergeObjects(base, over map[string]any) map[string]any {
	out := cloneObject(base)
	if out == nil {
		out = map[string]any{}
	}
	for k, v := range over {
		bv, exists := out[k]
		bm, baseIsObj := bv.(map[string]any)
		om, overIsObj := v.(map[string]any)
		if exists && baseIsObj && overIsObj {
			out[k] = mergeObjects(bm, om)
			continue
		}
		out[k] = Clone(v)
	}
	return out
}

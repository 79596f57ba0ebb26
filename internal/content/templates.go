package content

import (
	"fmt"
	"sort"
	"strings"
)

// ItemKind names an array type whose records share a default template.
type ItemKind string

const (
	KindExperience    ItemKind = "experience"
	KindEducation     ItemKind = "education"
	KindProjects      ItemKind = "projects"
	KindServices      ItemKind = "services"
	KindSkillItem     ItemKind = "skills-item"
	KindSkillCategory ItemKind = "skills-category"
)

// builder returns a fresh record every call. id is only used by projects.
type builder func(id float64) map[string]any

var templates = map[ItemKind]builder{
	KindExperience: func(float64) map[string]any {
		return map[string]any{
			"role":        "New Role",
			"company":     "Company Name",
			"period":      "2024 - Present",
			"location":    "Location",
			"description": "Description of the role...",
		}
	},
	KindEducation: func(float64) map[string]any {
		return map[string]any{
			"degree":      "Degree Name",
			"school":      "School Name",
			"period":      "2020 - 2024",
			"description": "GPA / Major",
		}
	},
	KindProjects: func(id float64) map[string]any {
		return map[string]any{
			"id":          id,
			"title":       "New Project",
			"category":    "Web Dev",
			"image":       "https://placehold.co/800x600",
			"description": "Project details...",
		}
	},
	KindServices: func(float64) map[string]any {
		return map[string]any{
			"title":       "Service Name",
			"description": "Service Description...",
		}
	},
	KindSkillItem: newSkill,
	KindSkillCategory: func(float64) map[string]any {
		return map[string]any{
			"name":  "New Category",
			"items": []any{newSkill(0)},
		}
	},
}

func newSkill(float64) map[string]any {
	return map[string]any{
		"name":  "New Skill",
		"level": float64(50),
	}
}

// Kinds lists every registered item kind in sorted order.
func Kinds() []ItemKind {
	out := make([]ItemKind, 0, len(templates))
	for k := range templates {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseKind validates a kind name. "skills" is accepted as skills-item.
func ParseKind(s string) (ItemKind, error) {
	k := ItemKind(strings.ToLower(strings.TrimSpace(s)))
	if k == "skills" {
		k = KindSkillItem
	}
	if _, ok := templates[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// InferKind guesses the item kind from the path of an items array:
// <lang>.<section>.items, <lang>.skills.categories or
// <lang>.skills.categories.N.items.
func InferKind(p Path) (ItemKind, error) {
	switch {
	case len(p) == 3 && p[2].String() == "items":
		if k, ok := sectionKinds[p[1].String()]; ok {
			return k, nil
		}
	case len(p) == 3 && p[1].String() == "skills" && p[2].String() == "categories":
		return KindSkillCategory, nil
	case len(p) == 5 && p[1].String() == "skills" && p[2].String() == "categories" && p[4].String() == "items":
		return KindSkillItem, nil
	}
	return "", fmt.Errorf("%w: cannot infer from %q", ErrUnknownKind, p.String())
}

var sectionKinds = map[string]ItemKind{
	"experience": KindExperience,
	"education":  KindEducation,
	"projects":   KindProjects,
	"services":   KindServices,
}

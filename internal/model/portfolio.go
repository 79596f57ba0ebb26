// Package model defines typed views over portfolio content records.
package model

import (
	"encoding/json"
	"fmt"
)

// Project is one entry of a language's projects.items array. ID is a number
// in documents written by the editor, so it is kept as raw JSON-decoded value.
type Project struct {
	ID          any    `json:"id"`
	Title       string `json:"title"`
	Category    string `json:"category"`
	Image       string `json:"image"`
	Description string `json:"description"`
}

// Experience is one entry of experience.items.
type Experience struct {
	Role        string `json:"role"`
	Company     string `json:"company"`
	Period      string `json:"period"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

// Education is one entry of education.items.
type Education struct {
	Degree      string `json:"degree"`
	School      string `json:"school"`
	Period      string `json:"period"`
	Description string `json:"description"`
}

// Service is one entry of services.items.
type Service struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Skill is one entry of a skill category. Level is a percentage by
// convention; the range is not enforced.
type Skill struct {
	Name  string `json:"name"`
	Level int    `json:"level"`
}

// SkillCategory groups skills under a name.
type SkillCategory struct {
	Name  string  `json:"name"`
	Items []Skill `json:"items"`
}

// Section is a titled list of records.
type Section[T any] struct {
	Title string `json:"title"`
	Items []T    `json:"items"`
}

// Skills is the skills section.
type Skills struct {
	Title      string          `json:"title"`
	Categories []SkillCategory `json:"categories"`
}

// Language is the typed view of one language subtree. Simple sections
// (hero, about, contact, footer) stay as loose maps.
type Language struct {
	Hero       map[string]any      `json:"hero,omitempty"`
	About      map[string]any      `json:"about,omitempty"`
	Contact    map[string]any      `json:"contact,omitempty"`
	Footer     map[string]any      `json:"footer,omitempty"`
	Experience Section[Experience] `json:"experience"`
	Education  Section[Education]  `json:"education"`
	Projects   Section[Project]    `json:"projects"`
	Services   Section[Service]    `json:"services"`
	Skills     Skills              `json:"skills"`
	Dir        string              `json:"dir,omitempty"`
}

// RTLLanguages are rendered right to left.
var RTLLanguages = map[string]bool{
	"ar": true,
	"fa": true,
	"he": true,
	"ur": true,
}

// Direction returns "rtl" or "ltr" for a language code.
func Direction(lang string) string {
	if RTLLanguages[lang] {
		return "rtl"
	}
	return "ltr"
}

// Decode converts a loosely typed content value, as held by a document,
// into one of the typed views.
func Decode[T any](v any) (*T, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	out := new(T)
	if err := json.Unmarshal(b, out); err != nil {
		return nil, fmt.Errorf("decode %T: %w", out, err)
	}
	return out, nil
}

// LanguageSummary counts the records of one language.
type LanguageSummary struct {
	Code            string `json:"code"`
	Dir             string `json:"dir"`
	Experience      int    `json:"experience"`
	Education       int    `json:"education"`
	Projects        int    `json:"projects"`
	Services        int    `json:"services"`
	SkillCategories int    `json:"skill_categories"`
	Skills          int    `json:"skills"`
}

// Summarize counts the records of l, which is the subtree for code.
func Summarize(code string, l *Language) LanguageSummary {
	s := LanguageSummary{
		Code:            code,
		Dir:             Direction(code),
		Experience:      len(l.Experience.Items),
		Education:       len(l.Education.Items),
		Projects:        len(l.Projects.Items),
		Services:        len(l.Services.Items),
		SkillCategories: len(l.Skills.Categories),
	}
	for _, c := range l.Skills.Categories {
		s.Skills += len(c.Items)
	}
	return s
}

// Package blueprint implements the Blueprint Port of spec §4.9: exporting
// a Series' full configuration (plus its transitively referenced Fonts
// and Templates) into a portable document, and importing that document
// back into a store transactionally at Series scope. Grounded on
// original_source/app/internal/blueprint.py for the export/import shape.
package blueprint

import "fmt"

// FontDoc is one exported Font, by value (no ID — the importer assigns a
// fresh one).
type FontDoc struct {
	Name           string            `json:"name"`
	File           *string           `json:"file"` // filename only, or nil if unset
	Color          string            `json:"color"`
	SizeScalar     float64           `json:"size_scalar"`
	Kerning        float64           `json:"kerning"`
	StrokeWidth    float64           `json:"stroke_width"`
	InterlineShift float64           `json:"interline_shift"`
	VerticalShift  float64           `json:"vertical_shift"`
	CaseTransform  string            `json:"case_transform"`
	Replacements   map[string]string `json:"replacements"`
	DeleteMissing  bool              `json:"delete_missing"`
}

// TemplateDoc is one exported Template; FontIndex cross-references
// Document.Fonts by position instead of a database id (spec §4.9/§6).
type TemplateDoc struct {
	Name      string         `json:"name"`
	Filters   []FilterDoc    `json:"filters"`
	Fields    map[string]any `json:"fields"`
	FontIndex *int           `json:"font_index"`
}

// FilterDoc mirrors domain.TemplateFilter for serialization.
type FilterDoc struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}

// SeriesDoc is the exported Series' recipe-level fields plus its font
// and template cross-references (spec §6).
type SeriesDoc struct {
	Fields        map[string]any `json:"fields"`
	FontIndex     *int           `json:"font_index"`
	TemplateIndexes []int        `json:"template_indexes"`
}

// EpisodeDoc is one exported Episode override, keyed in Document.Episodes
// by "s<season>e<episode>" (spec §4.9/§6).
type EpisodeDoc struct {
	Fields          map[string]any `json:"fields"`
	FontIndex       *int           `json:"font_index"`
	TemplateIndexes []int          `json:"template_indexes"`
}

// Document is the full Blueprint export artifact (spec §6).
type Document struct {
	Series    SeriesDoc             `json:"series"`
	Episodes  map[string]EpisodeDoc `json:"episodes"`
	Templates []TemplateDoc         `json:"templates"`
	Fonts     []FontDoc             `json:"fonts"`
}

// EpisodeKey renders the "s<season>e<episode>" key spec §4.9 uses to
// match Episode overrides against existing Episodes on import.
func EpisodeKey(season, episode int) string {
	return fmt.Sprintf("s%de%d", season, episode)
}

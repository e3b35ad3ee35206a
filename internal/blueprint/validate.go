package blueprint

import (
	"fmt"

	"github.com/tcmaker/core/internal/apperr"
)

// Validate dry-runs a Document before Import touches the store: every
// font_index/template_index must resolve within doc.Fonts/doc.Templates
// (spec §4.9: "Import: dry-runs validation first").
func Validate(doc *Document) error {
	if err := checkFontIndex(doc, doc.Series.FontIndex, "series"); err != nil {
		return err
	}
	if err := checkTemplateIndexes(doc, doc.Series.TemplateIndexes, "series"); err != nil {
		return err
	}
	for key, ep := range doc.Episodes {
		if err := checkFontIndex(doc, ep.FontIndex, "episodes["+key+"]"); err != nil {
			return err
		}
		if err := checkTemplateIndexes(doc, ep.TemplateIndexes, "episodes["+key+"]"); err != nil {
			return err
		}
	}
	for i, tmpl := range doc.Templates {
		if err := checkFontIndex(doc, tmpl.FontIndex, fmt.Sprintf("templates[%d]", i)); err != nil {
			return err
		}
	}
	return nil
}

func checkFontIndex(doc *Document, idx *int, where string) error {
	if idx == nil {
		return nil
	}
	if *idx < 0 || *idx >= len(doc.Fonts) {
		return apperr.New("blueprint.Validate", apperr.InvalidRecipe, fmt.Errorf("%s: font_index %d out of range (have %d fonts)", where, *idx, len(doc.Fonts)))
	}
	return nil
}

func checkTemplateIndexes(doc *Document, idxs []int, where string) error {
	for _, idx := range idxs {
		if idx < 0 || idx >= len(doc.Templates) {
			return apperr.New("blueprint.Validate", apperr.InvalidRecipe, fmt.Errorf("%s: template_index %d out of range (have %d templates)", where, idx, len(doc.Templates)))
		}
	}
	return nil
}

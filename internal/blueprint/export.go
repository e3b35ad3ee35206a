package blueprint

import (
	"path/filepath"

	"github.com/tcmaker/core/internal/apperr"
	"github.com/tcmaker/core/internal/domain"
)

// ExportOptions controls Export's scope (spec §4.9).
type ExportOptions struct {
	// IncludeEpisodes walks the Series' Episodes and includes any that
	// carry a manual override (font, templates, or recipe fields).
	IncludeEpisodes bool
	// GlobalDefaults, when IncludeGlobalDefaults is true, is merged
	// underneath the Series' own override fields before export — "global
	// default values are emitted only when the caller opts in" (spec §4.9).
	GlobalDefaults        map[string]any
	IncludeGlobalDefaults bool
}

// exportState accumulates the fonts/templates array and the id->index map
// that gives Document its array-index cross-references (spec §4.9/§6).
type exportState struct {
	store         Store
	fontIndex     map[uint64]int
	templateIndex map[uint64]int
	fonts         []FontDoc
	templates     []TemplateDoc
	bundle        map[string][]byte
}

// Export walks seriesID (and, per opts, its Episodes), gathering every
// transitively referenced Font and Template into doc.Fonts/doc.Templates,
// and returns the portable Document plus a bundle of each referenced
// font's raw file bytes, keyed by the filename recorded in doc.Fonts
// (spec §4.9).
func Export(store Store, seriesID uint64, opts ExportOptions) (*Document, map[string][]byte, error) {
	series, err := store.Series(seriesID)
	if err != nil {
		return nil, nil, apperr.New("blueprint.Export", apperr.NotFound, err)
	}

	st := &exportState{
		store:         store,
		fontIndex:     map[uint64]int{},
		templateIndex: map[uint64]int{},
		bundle:        map[string][]byte{},
	}

	seriesFontIdx, err := st.resolveFont(series.FontID)
	if err != nil {
		return nil, nil, err
	}
	seriesTemplateIdxs, err := st.resolveTemplates(series.TemplateIDs)
	if err != nil {
		return nil, nil, err
	}

	fields := series.Overrides
	if opts.IncludeGlobalDefaults {
		fields = mergeUnder(opts.GlobalDefaults, series.Overrides)
	}

	doc := &Document{
		Series: SeriesDoc{
			Fields:          fields,
			FontIndex:       seriesFontIdx,
			TemplateIndexes: seriesTemplateIdxs,
		},
		Episodes: map[string]EpisodeDoc{},
	}

	if opts.IncludeEpisodes {
		episodes, err := store.Episodes(seriesID)
		if err != nil {
			return nil, nil, apperr.New("blueprint.Export", apperr.NotFound, err)
		}
		for _, ep := range episodes {
			if !hasOverride(ep) {
				continue
			}
			fontIdx, err := st.resolveFont(ep.FontID)
			if err != nil {
				return nil, nil, err
			}
			templateIdxs, err := st.resolveTemplates(ep.TemplateIDs)
			if err != nil {
				return nil, nil, err
			}
			key := EpisodeKey(ep.Info.SeasonNumber, ep.Info.EpisodeNumber)
			doc.Episodes[key] = EpisodeDoc{
				Fields:          ep.Overrides,
				FontIndex:       fontIdx,
				TemplateIndexes: templateIdxs,
			}
		}
	}

	doc.Fonts = st.fonts
	doc.Templates = st.templates
	return doc, st.bundle, nil
}

func hasOverride(ep *domain.Episode) bool {
	return ep.FontID != nil || len(ep.TemplateIDs) > 0 || len(ep.Overrides) > 0
}

// resolveFont returns the Document-local index of fontID, loading and
// appending it to fonts the first time it is seen.
func (st *exportState) resolveFont(fontID *uint64) (*int, error) {
	if fontID == nil {
		return nil, nil
	}
	if idx, ok := st.fontIndex[*fontID]; ok {
		return &idx, nil
	}

	font, err := st.store.Font(*fontID)
	if err != nil {
		return nil, apperr.New("blueprint.resolveFont", apperr.NotFound, err)
	}

	var file *string
	if font.File != "" {
		base := filepath.Base(font.File)
		file = &base
		data, err := st.store.FontFile(font)
		if err != nil {
			return nil, apperr.New("blueprint.resolveFont", apperr.NotFound, err)
		}
		if data != nil {
			st.bundle[base] = data
		}
	}

	st.fonts = append(st.fonts, FontDoc{
		Name:           font.Name,
		File:           file,
		Color:          font.Color,
		SizeScalar:     font.SizeScalar,
		Kerning:        font.Kerning,
		StrokeWidth:    font.StrokeWidth,
		InterlineShift: font.InterlineShift,
		VerticalShift:  font.VerticalShift,
		CaseTransform:  font.CaseTransform,
		Replacements:   font.Replacements,
		DeleteMissing:  font.DeleteMissing,
	})
	idx := len(st.fonts) - 1
	st.fontIndex[*fontID] = idx
	return &idx, nil
}

// resolveTemplates returns the Document-local indexes of templateIDs, in
// order, loading and appending each the first time it is seen.
func (st *exportState) resolveTemplates(templateIDs []uint64) ([]int, error) {
	idxs := make([]int, 0, len(templateIDs))
	for _, id := range templateIDs {
		if idx, ok := st.templateIndex[id]; ok {
			idxs = append(idxs, idx)
			continue
		}

		tmpl, err := st.store.Template(id)
		if err != nil {
			return nil, apperr.New("blueprint.resolveTemplates", apperr.NotFound, err)
		}
		fontIdx, err := st.resolveFont(tmpl.FontID)
		if err != nil {
			return nil, err
		}

		filters := make([]FilterDoc, 0, len(tmpl.Filters))
		for _, f := range tmpl.Filters {
			filters = append(filters, FilterDoc{Field: f.Field, Operator: f.Operator, Value: f.Value})
		}

		st.templates = append(st.templates, TemplateDoc{
			Name:      tmpl.Name,
			Filters:   filters,
			Fields:    tmpl.Fields,
			FontIndex: fontIdx,
		})
		idx := len(st.templates) - 1
		st.templateIndex[id] = idx
		idxs = append(idxs, idx)
	}
	return idxs, nil
}

// mergeUnder returns a copy of override with base's keys filled in
// underneath it — base loses on every key override sets (spec §4.3's
// merge law applied to the export-time "include global defaults" opt-in).
func mergeUnder(base, override map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

package blueprint

import (
	"fmt"

	"github.com/tcmaker/core/internal/apperr"
	"github.com/tcmaker/core/internal/domain"
)

// Result reports what Import actually did, for change-logging (spec §4.9:
// "the Series record is updated field-by-field with change logging").
type Result struct {
	FontsCreated     int
	TemplatesCreated int
	EpisodesUpdated  int
	EpisodesSkipped  []string // doc keys with no matching existing Episode
}

// Import applies doc to seriesID: dry-run validates, creates every Font
// and Template the document references, rehydrates their array indices to
// the newly assigned ids, updates the Series record, and rehydrates
// Episode overrides by matching "s<season>e<episode>" keys against
// seriesID's existing Episodes (skipping unmatched keys). Import is
// transactional at Series scope: any failure after entity creation rolls
// back every Font/Template this call created (spec §4.9).
//
// fontFiles supplies the raw bytes for each FontDoc.File referenced by
// name, since the Document itself carries filenames, not file contents.
func Import(store Store, writer FontWriter, seriesID uint64, doc *Document, fontFiles map[string][]byte) (Result, error) {
	if err := Validate(doc); err != nil {
		return Result{}, err
	}

	series, err := store.Series(seriesID)
	if err != nil {
		return Result{}, apperr.New("blueprint.Import", apperr.NotFound, err)
	}

	var createdFonts, createdTemplates []uint64
	rollback := func() {
		for _, id := range createdTemplates {
			_ = store.DeleteTemplate(id)
		}
		for _, id := range createdFonts {
			_ = store.DeleteFont(id)
		}
	}

	fontIDs := make([]uint64, len(doc.Fonts))
	for i, fd := range doc.Fonts {
		id, err := createFont(store, fd)
		if err != nil {
			rollback()
			return Result{}, err
		}
		fontIDs[i] = id
		createdFonts = append(createdFonts, id)
		if fd.File != nil {
			if data, ok := fontFiles[*fd.File]; ok {
				path, err := writer.WriteBundled(fmt.Sprintf("fonts/%d/%s", id, *fd.File), data)
				if err != nil {
					rollback()
					return Result{}, apperr.New("blueprint.Import", apperr.Transient, err)
				}
				if err := store.SetFontFile(id, path); err != nil {
					rollback()
					return Result{}, apperr.New("blueprint.Import", apperr.Conflict, err)
				}
			}
		}
	}

	templateIDs := make([]uint64, len(doc.Templates))
	for i, td := range doc.Templates {
		id, err := createTemplate(store, td, fontIDs)
		if err != nil {
			rollback()
			return Result{}, err
		}
		templateIDs[i] = id
		createdTemplates = append(createdTemplates, id)
	}

	series.Overrides = doc.Series.Fields
	series.FontID = rehydrateFontID(doc.Series.FontIndex, fontIDs)
	series.TemplateIDs = rehydrateTemplateIDs(doc.Series.TemplateIndexes, templateIDs)
	if err := store.UpdateSeries(series); err != nil {
		rollback()
		return Result{}, apperr.New("blueprint.Import", apperr.Conflict, err)
	}

	result := Result{FontsCreated: len(createdFonts), TemplatesCreated: len(createdTemplates)}

	episodes, err := store.Episodes(seriesID)
	if err != nil {
		rollback()
		return Result{}, apperr.New("blueprint.Import", apperr.NotFound, err)
	}
	byKey := map[string]*domain.Episode{}
	for _, ep := range episodes {
		byKey[EpisodeKey(ep.Info.SeasonNumber, ep.Info.EpisodeNumber)] = ep
	}

	for key, epDoc := range doc.Episodes {
		ep, ok := byKey[key]
		if !ok {
			result.EpisodesSkipped = append(result.EpisodesSkipped, key)
			continue
		}
		ep.Overrides = epDoc.Fields
		ep.FontID = rehydrateFontID(epDoc.FontIndex, fontIDs)
		ep.TemplateIDs = rehydrateTemplateIDs(epDoc.TemplateIndexes, templateIDs)
		if err := store.UpdateEpisode(ep); err != nil {
			rollback()
			return Result{}, apperr.New("blueprint.Import", apperr.Conflict, err)
		}
		result.EpisodesUpdated++
	}

	return result, nil
}

func createFont(store Store, fd FontDoc) (uint64, error) {
	f := &domain.Font{
		Name:           fd.Name,
		Color:          fd.Color,
		SizeScalar:     fd.SizeScalar,
		Kerning:        fd.Kerning,
		StrokeWidth:    fd.StrokeWidth,
		InterlineShift: fd.InterlineShift,
		VerticalShift:  fd.VerticalShift,
		CaseTransform:  fd.CaseTransform,
		Replacements:   fd.Replacements,
		DeleteMissing:  fd.DeleteMissing,
	}
	id, err := store.CreateFont(f)
	if err != nil {
		return 0, apperr.New("blueprint.createFont", apperr.Conflict, err)
	}
	return id, nil
}

func createTemplate(store Store, td TemplateDoc, fontIDs []uint64) (uint64, error) {
	filters := make([]domain.TemplateFilter, 0, len(td.Filters))
	for _, f := range td.Filters {
		filters = append(filters, domain.TemplateFilter{Field: f.Field, Operator: f.Operator, Value: f.Value})
	}
	t := &domain.Template{
		Name:    td.Name,
		Filters: filters,
		Fields:  td.Fields,
		FontID:  rehydrateFontID(td.FontIndex, fontIDs),
	}
	id, err := store.CreateTemplate(t)
	if err != nil {
		return 0, apperr.New("blueprint.createTemplate", apperr.Conflict, err)
	}
	return id, nil
}

func rehydrateFontID(idx *int, fontIDs []uint64) *uint64 {
	if idx == nil || *idx < 0 || *idx >= len(fontIDs) {
		return nil
	}
	id := fontIDs[*idx]
	return &id
}

func rehydrateTemplateIDs(idxs []int, templateIDs []uint64) []uint64 {
	if len(idxs) == 0 {
		return nil
	}
	out := make([]uint64, 0, len(idxs))
	for _, idx := range idxs {
		if idx < 0 || idx >= len(templateIDs) {
			continue
		}
		out = append(out, templateIDs[idx])
	}
	return out
}

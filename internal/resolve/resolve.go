package resolve

import "github.com/tcmaker/core/internal/domain"

// Input bundles everything Resolve needs: the global defaults, the
// series' attached Templates in declared order, the series itself, the
// episode, and current watched state (spec §4.3 resolution order: global
// -> filter-gated templates -> series -> episode).
type Input struct {
	Global    Recipe
	Templates []*domain.Template
	Series    *domain.Series
	Episode   *domain.Episode
	Info      *domain.EpisodeInfo
	Watched   bool

	SeriesOverrides  Recipe
	EpisodeOverrides Recipe
}

// Result is a fully materialized Recipe plus the resolved style names,
// since StyleSet resolution runs through the same precedence chain but
// is consumed separately from the rest of the Recipe (spec §4.3
// supplement).
type Result struct {
	Recipe Recipe
	Style  StyleSet
}

// Resolve implements spec §4.3's full resolution order: global defaults,
// then each attached Template whose filters match (in declared order),
// then Series overrides, then Episode overrides — highest precedence
// last, "extras" merging key-wise throughout (Merge's law).
func Resolve(in Input) Result {
	ctx := Context{
		Series:  in.Series,
		Episode: in.Episode,
		Info:    in.Info,
		Watched: in.Watched,
	}

	layers := []Layer{{Name: "global", Fields: in.Global}}

	for _, t := range in.Templates {
		if !MatchesFilters(t.Filters, ctx) {
			continue
		}
		layers = append(layers, Layer{Name: "template:" + t.Name, Fields: Recipe(t.Fields)})
	}

	if in.SeriesOverrides != nil {
		layers = append(layers, Layer{Name: "series", Fields: in.SeriesOverrides})
	}
	if in.EpisodeOverrides != nil {
		layers = append(layers, Layer{Name: "episode", Fields: in.EpisodeOverrides})
	}

	global := StyleSet{}
	if w, ok := in.Global["watched_style"].(string); ok {
		global.Watched = w
	}
	if u, ok := in.Global["unwatched_style"].(string); ok {
		global.Unwatched = u
	}

	return Result{
		Recipe: Merge(layers...),
		Style:  resolveStyleSet(global, in.Templates, ctx, in.Series),
	}
}

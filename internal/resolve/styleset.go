package resolve

import "github.com/tcmaker/core/internal/domain"

// StyleSet resolves the {watched, unwatched} style names through the same
// Template precedence chain as the rest of the Recipe, rather than
// treating style as a flat Recipe field (restored from original_source
// modules/StyleSet.py — spec §4.3 supplement).
type StyleSet struct {
	Watched   string
	Unwatched string
}

// Resolve picks the style name for the episode's current watched state.
// An empty resolved value falls back to "unique", StyleSet's default.
func (s StyleSet) Resolve(watched bool) string {
	style := s.Unwatched
	if watched {
		style = s.Watched
	}
	if style == "" {
		style = "unique"
	}
	return style
}

// resolveStyleSet walks global -> templates (in order, filter-gated) ->
// series, taking the last non-empty value at each precedence level,
// mirroring Merge's "highest-precedence non-nil wins" law applied to the
// two style fields specifically.
func resolveStyleSet(global StyleSet, templates []*domain.Template, ctx Context, series *domain.Series) StyleSet {
	out := global
	for _, t := range templates {
		if !MatchesFilters(t.Filters, ctx) {
			continue
		}
		if w, ok := t.Fields["watched_style"].(string); ok && w != "" {
			out.Watched = w
		}
		if u, ok := t.Fields["unwatched_style"].(string); ok && u != "" {
			out.Unwatched = u
		}
	}
	if series.WatchedStyle != "" {
		out.Watched = series.WatchedStyle
	}
	if series.UnwatchedStyle != "" {
		out.Unwatched = series.UnwatchedStyle
	}
	return out
}

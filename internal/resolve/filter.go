package resolve

import (
	"time"

	"github.com/tcmaker/core/internal/domain"
)

// Context is the (series, episode) context a Template's filters are
// evaluated against (spec §4.3).
type Context struct {
	Series  *domain.Series
	Episode *domain.Episode
	Info    *domain.EpisodeInfo
	Watched bool
}

// MatchesFilters reports whether every filter in a Template's filter
// conjunction holds for ctx. A Template whose filter set fails silently
// contributes nothing — the caller simply skips merging its Fields
// (spec §4.3).
func MatchesFilters(filters []domain.TemplateFilter, ctx Context) bool {
	for _, f := range filters {
		if !matchesOne(f, ctx) {
			return false
		}
	}
	return true
}

func matchesOne(f domain.TemplateFilter, ctx Context) bool {
	switch f.Field {
	case "season":
		return compareInt(ctx.Info.SeasonNumber, f.Operator, f.Value)
	case "episode_number":
		return compareInt(ctx.Info.EpisodeNumber, f.Operator, f.Value)
	case "airdate":
		return compareAirdate(ctx.Info.Airdate, f.Operator, f.Value)
	case "watched":
		want, ok := f.Value.(bool)
		return ok && ctx.Watched == want
	default:
		return false
	}
}

func compareInt(actual int, op string, value any) bool {
	switch op {
	case "==":
		want, ok := value.(int)
		return ok && actual == want
	case "!=":
		want, ok := value.(int)
		return ok && actual != want
	case "in":
		list, ok := value.([]int)
		if !ok {
			return false
		}
		for _, v := range list {
			if v == actual {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func compareAirdate(actual *time.Time, op string, value any) bool {
	if actual == nil {
		return false
	}
	want, ok := value.(time.Time)
	if !ok {
		return false
	}
	switch op {
	case "before":
		return actual.Before(want)
	case "after":
		return actual.After(want)
	case "==":
		return actual.Equal(want)
	default:
		return false
	}
}

package resolve

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcmaker/core/internal/domain"
)

func TestMergePrecedenceLaw(t *testing.T) {
	out := Merge(
		Layer{Name: "global", Fields: Recipe{"font_color": "white", "hide_season_text": false}},
		Layer{Name: "template", Fields: Recipe{"font_color": "red"}},
		Layer{Name: "series", Fields: Recipe{"hide_season_text": true}},
	)
	assert.Equal(t, "red", out["font_color"])
	assert.Equal(t, true, out["hide_season_text"])
}

func TestMergeExtrasMergeKeyWise(t *testing.T) {
	out := Merge(
		Layer{Name: "global", Fields: Recipe{"extras": map[string]any{"a": "1", "b": "2"}}},
		Layer{Name: "series", Fields: Recipe{"extras": map[string]any{"b": "override", "c": "3"}}},
	)
	extras := out["extras"].(map[string]any)
	assert.Equal(t, "1", extras["a"])
	assert.Equal(t, "override", extras["b"])
	assert.Equal(t, "3", extras["c"])
}

func TestMergeNilValuesDoNotOverwrite(t *testing.T) {
	out := Merge(
		Layer{Name: "global", Fields: Recipe{"font_color": "white"}},
		Layer{Name: "series", Fields: Recipe{"font_color": nil}},
	)
	assert.Equal(t, "white", out["font_color"])
}

func TestRecipeCloneIsIndependent(t *testing.T) {
	orig := Recipe{"extras": map[string]any{"a": "1"}}
	clone := orig.Clone()
	clone["extras"].(map[string]any)["a"] = "2"
	assert.Equal(t, "1", orig["extras"].(map[string]any)["a"])
}

func TestMatchesFiltersConjunction(t *testing.T) {
	ctx := Context{Info: &domain.EpisodeInfo{SeasonNumber: 1, EpisodeNumber: 3}, Watched: true}
	filters := []domain.TemplateFilter{
		{Field: "season", Operator: "==", Value: 1},
		{Field: "watched", Operator: "==", Value: true},
	}
	assert.True(t, MatchesFilters(filters, ctx))

	filters = append(filters, domain.TemplateFilter{Field: "episode_number", Operator: "in", Value: []int{5, 6}})
	assert.False(t, MatchesFilters(filters, ctx))
}

func TestMatchesFiltersAirdate(t *testing.T) {
	airdate := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	ctx := Context{Info: &domain.EpisodeInfo{Airdate: &airdate}}
	assert.True(t, MatchesFilters([]domain.TemplateFilter{
		{Field: "airdate", Operator: "before", Value: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)},
	}, ctx))
	assert.False(t, MatchesFilters([]domain.TemplateFilter{
		{Field: "airdate", Operator: "after", Value: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)},
	}, ctx))
}

func TestResolveAppliesFilterGatedTemplatesInOrder(t *testing.T) {
	series := &domain.Series{WatchedStyle: "", UnwatchedStyle: ""}
	info := &domain.EpisodeInfo{SeasonNumber: 0, EpisodeNumber: 1}

	templates := []*domain.Template{
		{
			Name:    "specials",
			Filters: []domain.TemplateFilter{{Field: "season", Operator: "==", Value: 0}},
			Fields:  map[string]any{"font_color": "gold"},
		},
		{
			Name:    "regular",
			Filters: []domain.TemplateFilter{{Field: "season", Operator: "!=", Value: 0}},
			Fields:  map[string]any{"font_color": "blue"},
		},
	}

	result := Resolve(Input{
		Global:    Recipe{"font_color": "white"},
		Templates: templates,
		Series:    series,
		Info:      info,
	})

	assert.Equal(t, "gold", result.Recipe["font_color"])
}

func TestResolveSeriesAndEpisodeOverridesWinOverTemplates(t *testing.T) {
	series := &domain.Series{}
	info := &domain.EpisodeInfo{SeasonNumber: 1, EpisodeNumber: 1}

	templates := []*domain.Template{
		{Name: "t1", Fields: map[string]any{"font_color": "red"}},
	}

	result := Resolve(Input{
		Global:           Recipe{"font_color": "white"},
		Templates:        templates,
		Series:           series,
		Info:             info,
		SeriesOverrides:  Recipe{"font_color": "green"},
		EpisodeOverrides: Recipe{"font_color": "purple"},
	})

	assert.Equal(t, "purple", result.Recipe["font_color"])
}

func TestResolveStyleSetFallsBackToUnique(t *testing.T) {
	series := &domain.Series{}
	result := Resolve(Input{
		Global:  Recipe{},
		Series:  series,
		Info:    &domain.EpisodeInfo{},
		Watched: true,
	})
	assert.Equal(t, "unique", result.Style.Resolve(true))
}

func TestResolveSeriesStyleOverridesGlobal(t *testing.T) {
	series := &domain.Series{WatchedStyle: "unique art", UnwatchedStyle: "blur unique"}
	result := Resolve(Input{
		Global: Recipe{"watched_style": "unique", "unwatched_style": "blur"},
		Series: series,
		Info:   &domain.EpisodeInfo{},
	})
	assert.Equal(t, "unique art", result.Style.Watched)
	assert.Equal(t, "blur unique", result.Style.Unwatched)
}

func TestTranslationCacheBacksOffPlaceholders(t *testing.T) {
	cache := NewTranslationCache(nil)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.True(t, cache.ShouldAttempt(1, "es", now))
	cache.Observe(1, "es", "TBA", now)
	assert.False(t, cache.ShouldAttempt(1, "es", now.Add(time.Hour)))
	assert.False(t, cache.ShouldAttempt(1, "es", now.Add(47*time.Hour)))
	assert.True(t, cache.ShouldAttempt(1, "es", now.Add(49*time.Hour)))
}

func TestTranslationCacheClearsOnRealTitle(t *testing.T) {
	cache := NewTranslationCache(nil)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.Observe(2, "fr", "TBA", now)
	cache.Observe(2, "fr", "Le Pilote", now.Add(time.Minute))
	assert.True(t, cache.ShouldAttempt(2, "fr", now.Add(time.Minute)))
}

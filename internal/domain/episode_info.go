package domain

import "time"

// EpisodeInfo is the canonical identity of one episode within a series:
// title, season/episode numbering, optional absolute number and airdate,
// per-source IDs, and its parent SeriesInfo (spec §3).
type EpisodeInfo struct {
	Series *SeriesInfo

	Title          string
	SeasonNumber   int
	EpisodeNumber  int
	AbsoluteNumber *int
	Airdate        *time.Time

	IDs IDSet
}

// EpisodeEqualityOptions controls whether title must also match when
// falling back to (season, episode) comparison (spec §3: "optionally
// requiring title match when configured").
type EpisodeEqualityOptions struct {
	RequireTitleMatch bool
}

// SameEpisode implements spec §3's EpisodeInfo equality: ID match first,
// else (season, episode) within the same series, optionally gated on
// title equality.
func (a *EpisodeInfo) SameEpisode(b *EpisodeInfo, opts EpisodeEqualityOptions) bool {
	if sharesAnyID(a.IDs, b.IDs) {
		return true
	}

	if a.Series == nil || b.Series == nil || !a.Series.SameSeries(b.Series) {
		return false
	}
	if a.SeasonNumber != b.SeasonNumber || a.EpisodeNumber != b.EpisodeNumber {
		return false
	}
	if opts.RequireTitleMatch && MatchName(a.Title) != MatchName(b.Title) {
		return false
	}
	return true
}

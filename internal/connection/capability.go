// Package connection implements the Connection Registry of spec §4.2: a
// polymorphic capability set over heterogeneous media servers and
// metadata providers, grouped by capability rather than duck-typed (spec
// §9's "explicit capability set" redesign guidance).
package connection

import (
	"context"

	"github.com/tcmaker/core/internal/domain"
)

// Kind is the discriminant for a Connection's vendor (spec §3).
type Kind string

const (
	KindEmby     Kind = "emby"
	KindJellyfin Kind = "jellyfin"
	KindPlex     Kind = "plex"
	KindSonarr   Kind = "sonarr"
	KindTMDb     Kind = "tmdb"
	KindTVDb     Kind = "tvdb"
	KindTautulli Kind = "tautulli"
)

// SearchResult is one hit from a connector's text-based series search.
type SearchResult struct {
	Info  *domain.SeriesInfo
	Score float64
}

// Connector is the minimum every connection variant implements: identity,
// and the activation probe of spec §4.2.
type Connector interface {
	InterfaceID() int
	Kind() Kind
	// Active reports whether the last Activate call (or the
	// constructor's initial probe) succeeded.
	Active() bool
}

// EpisodeSource is the capability for pulling/pushing per-episode
// identity and watched data (spec §4.2).
type EpisodeSource interface {
	Connector
	SetSeriesIDs(ctx context.Context, library domain.Library, series *domain.SeriesInfo) error
	SetEpisodeIDs(ctx context.Context, library domain.Library, series *domain.SeriesInfo, episodes []*domain.EpisodeInfo) error
	GetAllEpisodes(ctx context.Context, library domain.Library, series *domain.SeriesInfo) ([]EpisodeWithWatched, error)
	QuerySeries(ctx context.Context, text string) ([]SearchResult, error)
}

// EpisodeWithWatched pairs episode identity with its watched status as
// reported by one connector (spec §4.2 episode-source contract).
type EpisodeWithWatched struct {
	Info    *domain.EpisodeInfo
	Watched domain.WatchedStatus
}

// MediaServer is the capability for a connected media-server instance:
// everything EpisodeSource offers, plus library enumeration, source-image
// retrieval, card/poster/background upload, and watched-state sync
// (spec §4.2).
type MediaServer interface {
	EpisodeSource
	GetLibraries(ctx context.Context) ([]domain.Library, error)
	GetSourceImage(ctx context.Context, library domain.Library, series *domain.SeriesInfo, episode *domain.EpisodeInfo) ([]byte, error)
	LoadTitleCards(ctx context.Context, library domain.Library, cards []EpisodeCard) (loaded int, err error)
	LoadSeriesPoster(ctx context.Context, library domain.Library, series *domain.SeriesInfo, image []byte) error
	LoadSeriesBackground(ctx context.Context, library domain.Library, series *domain.SeriesInfo, image []byte) error
	UpdateWatchedStatuses(ctx context.Context, library domain.Library, series *domain.SeriesInfo, episodes []*domain.EpisodeInfo) (changed bool, err error)
	GetSeriesPoster(ctx context.Context, library domain.Library, series *domain.SeriesInfo) ([]byte, error)
	GetSeriesLogo(ctx context.Context, library domain.Library, series *domain.SeriesInfo) ([]byte, error)
	// LoadSeasonPoster may return an apperr.InvalidRecipe "not implemented" error for connectors
	// that never support it — spec §9 open question, resolved in favor
	// of an explicit signal rather than a silent no-op.
	LoadSeasonPoster(ctx context.Context, library domain.Library, series *domain.SeriesInfo, season int, image []byte) error
}

// EpisodeCard pairs an episode with the Card artifact to upload for it.
type EpisodeCard struct {
	Episode *domain.EpisodeInfo
	Card    *domain.Card
}

// ImageSource is the capability for a pure metadata provider that serves
// artwork and translated titles without owning library membership
// (spec §4.2).
type ImageSource interface {
	Connector
	GetAllSourceImages(ctx context.Context, series *domain.SeriesInfo, episode *domain.EpisodeInfo) ([]RankedImage, error)
	GetAllBackdrops(ctx context.Context, series *domain.SeriesInfo) ([]RankedImage, error)
	GetAllLogos(ctx context.Context, series *domain.SeriesInfo) ([]RankedImage, error)
	GetSourceImage(ctx context.Context, series *domain.SeriesInfo, episode *domain.EpisodeInfo) ([]byte, error)
	GetSeriesBackdrop(ctx context.Context, series *domain.SeriesInfo) ([]byte, error)
	GetSeriesLogo(ctx context.Context, series *domain.SeriesInfo) ([]byte, error)
	GetEpisodeTitle(ctx context.Context, series *domain.SeriesInfo, episode *domain.EpisodeInfo, languageCode string) (string, error)
}

// RankedImage is one image candidate plus the attributes the Source &
// Asset Store ranks candidates by: language priority, pixel area, and
// vote average (spec §4.4).
type RankedImage struct {
	URL          string
	LanguageCode string
	Width        int
	Height       int
	VoteAverage  float64
}

// SyncSource is the capability for connectors that can enumerate an
// entire library's series list for the `sync` job (spec §4.8).
type SyncSource interface {
	Connector
	QueryAllSeries(ctx context.Context, library domain.Library) ([]*domain.SeriesInfo, error)
}

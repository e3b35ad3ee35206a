// Package upload implements the Uploader of spec §4.7: diffing Cards
// against the last recorded server-side upload, then pushing the
// changed set back through a MediaServer connector in ascending
// (season, episode) order, plus the reverse watched-state sync path.
package upload

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tcmaker/core/internal/apperr"
	"github.com/tcmaker/core/internal/connection"
	"github.com/tcmaker/core/internal/domain"
	"github.com/tcmaker/core/internal/rendercache"
)

// UploadState is the last-recorded server-side upload for one
// (episode, library) Card slot, used to decide whether a re-push is
// needed (spec §4.7: "Cards whose on-disk size or fingerprint differs
// from the last recorded server-side upload").
type UploadState map[uint64]rendercache.Record // episodeID -> last uploaded Record

// StateStore abstracts persistence of UploadState so Uploader doesn't
// own storage (out of scope per spec §1).
type StateStore interface {
	Get(library domain.Library) UploadState
	Set(library domain.Library, state UploadState)
}

// InMemoryStateStore is a StateStore with no persistence, usable
// directly or as the model for a persistence-backed implementation
// (mirrors internal/rendercache's memoryRecordStore and
// internal/scheduler's InMemoryRegistry).
type InMemoryStateStore struct {
	mu     sync.Mutex
	states map[string]UploadState
}

// NewInMemoryStateStore constructs an empty InMemoryStateStore.
func NewInMemoryStateStore() *InMemoryStateStore {
	return &InMemoryStateStore{states: make(map[string]UploadState)}
}

func (s *InMemoryStateStore) Get(library domain.Library) UploadState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[library.String()]
}

func (s *InMemoryStateStore) Set(library domain.Library, state UploadState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[library.String()] = state
}

// Candidate is one Episode/Card pair considered for upload.
type Candidate struct {
	Episode *domain.EpisodeInfo
	Card    *domain.Card
}

// Uploader pushes changed Cards through a MediaServer connector.
type Uploader struct {
	logger zerolog.Logger
	states StateStore
}

// New constructs an Uploader.
func New(logger zerolog.Logger, states StateStore) *Uploader {
	return &Uploader{logger: logger, states: states}
}

// diffChanged filters candidates down to those whose recorded Card
// fingerprint/size differs from the library's last recorded upload, per
// spec §4.7.
func (u *Uploader) diffChanged(library domain.Library, candidates []Candidate) []Candidate {
	state := u.states.Get(library)
	var changed []Candidate
	for _, c := range candidates {
		last, ok := state[c.Card.EpisodeID]
		current := rendercache.Record{Fingerprint: c.Card.Fingerprint, FilePath: c.Card.FilePath, FileSize: c.Card.FileSize}
		if !ok || rendercache.ReloadNeeded(last, current) {
			changed = append(changed, c)
		}
	}
	return changed
}

// sortByEpisodeOrder orders candidates ascending by (season, episode) so
// a later failure within a Series never hides an earlier success
// (spec §5).
func sortByEpisodeOrder(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i].Episode, candidates[j].Episode
		if a.SeasonNumber != b.SeasonNumber {
			return a.SeasonNumber < b.SeasonNumber
		}
		return a.EpisodeNumber < b.EpisodeNumber
	})
}

// Result reports one Series' upload outcome: how many Cards were loaded,
// and the first terminal error encountered, if any (spec §5's
// per-series-continue propagation policy — a terminal error here stops
// this Series but callers still proceed to the next one).
type Result struct {
	Loaded int
	Err    error
}

// SyncSeries implements spec §4.7 for one (server, library, series)
// triple: compute the changed-card set, upload it in ascending episode
// order via the MediaServer's base64/multipart upload path (selected
// internally by the connector per spec §4.7 — Emby/Jellyfin body-encode,
// Plex multipart + EXIF/owner-label marker), and record the new upload
// state for every Card that loaded successfully.
func (u *Uploader) SyncSeries(ctx context.Context, server connection.MediaServer, library domain.Library, candidates []Candidate) Result {
	changed := u.diffChanged(library, candidates)
	if len(changed) == 0 {
		return Result{}
	}
	sortByEpisodeOrder(changed)

	cards := make([]connection.EpisodeCard, len(changed))
	for i, c := range changed {
		cards[i] = connection.EpisodeCard{Episode: c.Episode, Card: c.Card}
	}

	loaded, err := server.LoadTitleCards(ctx, library, cards)
	if err != nil && !apperr.Is(err, apperr.NotFound) {
		u.logger.Error().Err(err).Str("library", library.String()).Msg("upload failed")
		return Result{Loaded: loaded, Err: err}
	}

	state := u.states.Get(library)
	if state == nil {
		state = UploadState{}
	}
	// Every candidate up to the server-reported loaded count is assumed
	// successful, matching the connector's own within-series ordering
	// guarantee (spec §5).
	for i := 0; i < loaded && i < len(changed); i++ {
		c := changed[i]
		state[c.Card.EpisodeID] = rendercache.Record{
			Fingerprint: c.Card.Fingerprint,
			FilePath:    c.Card.FilePath,
			FileSize:    c.Card.FileSize,
		}
	}
	u.states.Set(library, state)

	return Result{Loaded: loaded, Err: err}
}

// WatchedSync implements the reverse watched-state sync direction of
// spec §4.7: it passes each episode's EpisodeInfo to the media-server
// capability's UpdateWatchedStatuses and returns the changed flag that
// call reports (a caller should then trigger re-resolution, per spec
// §4.3/§8 E2E scenario 2). It does not write to any Episode's Watched map.
func WatchedSync(ctx context.Context, server connection.MediaServer, library domain.Library, series *domain.SeriesInfo, episodes []*domain.Episode) (changed bool, err error) {
	infos := make([]*domain.EpisodeInfo, len(episodes))
	for i, e := range episodes {
		infos[i] = e.Info
	}

	reportedChanged, err := server.UpdateWatchedStatuses(ctx, library, series, infos)
	if err != nil {
		return false, err
	}
	return reportedChanged, nil
}

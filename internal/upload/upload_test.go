package upload

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcmaker/core/internal/connection"
	"github.com/tcmaker/core/internal/domain"
)

type fakeServer struct {
	connection.MediaServer
	loadedOrder   []int
	loadErr       error
	watchedChange bool
}

func (f *fakeServer) LoadTitleCards(ctx context.Context, library domain.Library, cards []connection.EpisodeCard) (int, error) {
	for _, c := range cards {
		f.loadedOrder = append(f.loadedOrder, c.Episode.EpisodeNumber)
	}
	if f.loadErr != nil {
		return 0, f.loadErr
	}
	return len(cards), nil
}

func (f *fakeServer) UpdateWatchedStatuses(ctx context.Context, library domain.Library, series *domain.SeriesInfo, episodes []*domain.EpisodeInfo) (bool, error) {
	return f.watchedChange, nil
}

type memStateStore struct {
	data map[string]UploadState
}

func newMemStateStore() *memStateStore { return &memStateStore{data: map[string]UploadState{}} }

func (s *memStateStore) Get(library domain.Library) UploadState {
	st, ok := s.data[library.String()]
	if !ok {
		return UploadState{}
	}
	return st
}

func (s *memStateStore) Set(library domain.Library, state UploadState) {
	s.data[library.String()] = state
}

func candidate(episodeID uint64, season, episode int, fingerprint string) Candidate {
	return Candidate{
		Episode: &domain.EpisodeInfo{SeasonNumber: season, EpisodeNumber: episode},
		Card:    &domain.Card{EpisodeID: episodeID, Fingerprint: fingerprint, FileSize: 100},
	}
}

func TestSyncSeriesUploadsOnlyChangedCardsInOrder(t *testing.T) {
	store := newMemStateStore()
	u := New(zerolog.Nop(), store)
	server := &fakeServer{}
	library := domain.Library{Name: "TV"}

	candidates := []Candidate{
		candidate(2, 1, 2, "v1:b"),
		candidate(1, 1, 1, "v1:a"),
	}

	result := u.SyncSeries(context.Background(), server, library, candidates)
	require.NoError(t, result.Err)
	assert.Equal(t, 2, result.Loaded)
	assert.Equal(t, []int{1, 2}, server.loadedOrder)

	// Second sync with unchanged fingerprints uploads nothing.
	server.loadedOrder = nil
	result = u.SyncSeries(context.Background(), server, library, candidates)
	assert.Equal(t, 0, result.Loaded)
	assert.Nil(t, server.loadedOrder)
}

func TestSyncSeriesReuploadsOnFingerprintChange(t *testing.T) {
	store := newMemStateStore()
	u := New(zerolog.Nop(), store)
	server := &fakeServer{}
	library := domain.Library{Name: "TV"}

	first := []Candidate{candidate(1, 1, 1, "v1:a")}
	u.SyncSeries(context.Background(), server, library, first)

	server.loadedOrder = nil
	changed := []Candidate{candidate(1, 1, 1, "v1:b")}
	result := u.SyncSeries(context.Background(), server, library, changed)
	assert.Equal(t, 1, result.Loaded)
	assert.Equal(t, []int{1}, server.loadedOrder)
}

func TestWatchedSyncReportsChange(t *testing.T) {
	server := &fakeServer{watchedChange: true}
	changed, err := WatchedSync(context.Background(), server, domain.Library{Name: "TV"}, &domain.SeriesInfo{}, nil)
	require.NoError(t, err)
	assert.True(t, changed)
}

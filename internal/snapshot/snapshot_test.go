package snapshot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	series, episodes, cards, fonts, templates, loaded, users, syncs, blueprints int
	totalBytes                                                                  int64
}

func (f fakeSource) CountSeries() int        { return f.series }
func (f fakeSource) CountEpisodes() int      { return f.episodes }
func (f fakeSource) CountCards() int         { return f.cards }
func (f fakeSource) CountFonts() int         { return f.fonts }
func (f fakeSource) CountTemplates() int     { return f.templates }
func (f fakeSource) CountLoadedUploads() int { return f.loaded }
func (f fakeSource) CountUsers() int         { return f.users }
func (f fakeSource) CountSyncs() int         { return f.syncs }
func (f fakeSource) CountBlueprints() int    { return f.blueprints }
func (f fakeSource) SumCardBytes() int64     { return f.totalBytes }

type fakeStore struct {
	rows []Counts
}

func (s *fakeStore) Append(c Counts) error {
	s.rows = append(s.rows, c)
	return nil
}

func TestTakeValidRow(t *testing.T) {
	src := fakeSource{cards: 10, loaded: 8}
	store := &fakeStore{}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	counts, err := Take(src, store, now)
	require.NoError(t, err)
	assert.Equal(t, 10, counts.Cards)
	assert.Equal(t, 8, counts.LoadedUploads)
	assert.Len(t, store.rows, 1)
}

func TestTakeRejectsLoadedExceedingCards(t *testing.T) {
	src := fakeSource{cards: 5, loaded: 6}
	store := &fakeStore{}
	_, err := Take(src, store, time.Now())
	require.Error(t, err)
	assert.Empty(t, store.rows)
}

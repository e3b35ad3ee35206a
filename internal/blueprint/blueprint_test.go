package blueprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcmaker/core/internal/domain"
)

type memStore struct {
	series    map[uint64]*domain.Series
	episodes  map[uint64][]*domain.Episode
	templates map[uint64]*domain.Template
	fonts     map[uint64]*domain.Font
	fontFiles map[uint64][]byte
	nextID    uint64
}

func newMemStore() *memStore {
	return &memStore{
		series:    map[uint64]*domain.Series{},
		episodes:  map[uint64][]*domain.Episode{},
		templates: map[uint64]*domain.Template{},
		fonts:     map[uint64]*domain.Font{},
		fontFiles: map[uint64][]byte{},
	}
}

func (m *memStore) Series(id uint64) (*domain.Series, error) { return m.series[id], nil }
func (m *memStore) Episodes(seriesID uint64) ([]*domain.Episode, error) {
	return m.episodes[seriesID], nil
}
func (m *memStore) Template(id uint64) (*domain.Template, error) { return m.templates[id], nil }
func (m *memStore) Font(id uint64) (*domain.Font, error)         { return m.fonts[id], nil }
func (m *memStore) FontFile(f *domain.Font) ([]byte, error)      { return m.fontFiles[f.ID], nil }

func (m *memStore) CreateFont(f *domain.Font) (uint64, error) {
	m.nextID++
	f.ID = m.nextID
	m.fonts[m.nextID] = f
	return m.nextID, nil
}
func (m *memStore) SetFontFile(fontID uint64, path string) error {
	m.fonts[fontID].File = path
	return nil
}
func (m *memStore) CreateTemplate(t *domain.Template) (uint64, error) {
	m.nextID++
	t.ID = m.nextID
	m.templates[m.nextID] = t
	return m.nextID, nil
}
func (m *memStore) UpdateSeries(s *domain.Series) error {
	m.series[s.ID] = s
	return nil
}
func (m *memStore) UpdateEpisode(e *domain.Episode) error {
	list := m.episodes[e.SeriesID]
	for i, existing := range list {
		if existing.ID == e.ID {
			list[i] = e
			return nil
		}
	}
	return nil
}
func (m *memStore) DeleteFont(id uint64) error     { delete(m.fonts, id); return nil }
func (m *memStore) DeleteTemplate(id uint64) error { delete(m.templates, id); return nil }

type memWriter struct {
	written map[string][]byte
}

func (w *memWriter) WriteBundled(path string, data []byte) (string, error) {
	if w.written == nil {
		w.written = map[string][]byte{}
	}
	w.written[path] = data
	return path, nil
}

func sourceSeries() (*memStore, uint64) {
	store := newMemStore()

	fontID, _ := store.CreateFont(&domain.Font{Name: "Main Font", File: "/fonts/main/Oswald.ttf", Color: "#ffffff", SizeScalar: 1.0})
	store.fontFiles[fontID] = []byte("fake-ttf-bytes")

	tmplA, _ := store.CreateTemplate(&domain.Template{Name: "Season Zero", Filters: []domain.TemplateFilter{{Field: "season", Operator: "==", Value: 0}}, Fields: map[string]any{"hide_season_text": true}})
	tmplB, _ := store.CreateTemplate(&domain.Template{Name: "Finale", FontID: &fontID, Fields: map[string]any{"blur": true}})

	series := &domain.Series{
		ID:          1,
		Info:        domain.NewSeriesInfo("Severance", 2022),
		FontID:      &fontID,
		TemplateIDs: []uint64{tmplA, tmplB},
		Overrides:   map[string]any{"font_color": "#eeeeee"},
	}
	store.series[series.ID] = series

	episodes := make([]*domain.Episode, 0, 10)
	for i := 1; i <= 10; i++ {
		ep := &domain.Episode{
			ID:       uint64(100 + i),
			SeriesID: series.ID,
			Info: &domain.EpisodeInfo{
				Series:        series.Info,
				Title:         "Episode",
				SeasonNumber:  1,
				EpisodeNumber: i,
			},
			FontID:    &fontID,
			Overrides: map[string]any{"title_text": "Custom Title"},
		}
		episodes = append(episodes, ep)
	}
	store.episodes[series.ID] = episodes

	return store, series.ID
}

func TestExportGathersFontsAndTemplates(t *testing.T) {
	store, seriesID := sourceSeries()

	doc, bundle, err := Export(store, seriesID, ExportOptions{IncludeEpisodes: true})
	require.NoError(t, err)

	assert.Len(t, doc.Fonts, 1)
	assert.Len(t, doc.Templates, 2)
	assert.Len(t, doc.Episodes, 10)
	assert.Equal(t, []byte("fake-ttf-bytes"), bundle["Oswald.ttf"])
	assert.Equal(t, "#eeeeee", doc.Series.Fields["font_color"])
	require.NotNil(t, doc.Series.FontIndex)
	assert.Equal(t, 0, *doc.Series.FontIndex)

	ep := doc.Episodes[EpisodeKey(1, 3)]
	assert.Equal(t, "Custom Title", ep.Fields["title_text"])
	require.NotNil(t, ep.FontIndex)
	assert.Equal(t, 0, *ep.FontIndex)
}

func TestValidateRejectsOutOfRangeFontIndex(t *testing.T) {
	bad := 5
	doc := &Document{Series: SeriesDoc{FontIndex: &bad}, Episodes: map[string]EpisodeDoc{}}
	err := Validate(doc)
	require.Error(t, err)
}

func TestImportRoundTripMatchesSourceCounts(t *testing.T) {
	src, seriesID := sourceSeries()
	doc, bundle, err := Export(src, seriesID, ExportOptions{IncludeEpisodes: true})
	require.NoError(t, err)

	dst := newMemStore()
	dst.series[2] = &domain.Series{
		ID:   2,
		Info: domain.NewSeriesInfo("Severance", 2022),
	}
	episodes := make([]*domain.Episode, 0, 10)
	for i := 1; i <= 10; i++ {
		episodes = append(episodes, &domain.Episode{
			ID:       uint64(200 + i),
			SeriesID: 2,
			Info:     &domain.EpisodeInfo{SeasonNumber: 1, EpisodeNumber: i},
		})
	}
	dst.episodes[2] = episodes

	writer := &memWriter{}
	result, err := Import(dst, writer, 2, doc, bundle)
	require.NoError(t, err)

	assert.Equal(t, 1, result.FontsCreated)
	assert.Equal(t, 2, result.TemplatesCreated)
	assert.Equal(t, 10, result.EpisodesUpdated)
	assert.Empty(t, result.EpisodesSkipped)

	assert.Len(t, dst.fonts, 1)
	assert.Len(t, dst.templates, 2)

	updatedSeries := dst.series[2]
	assert.Equal(t, "#eeeeee", updatedSeries.Overrides["font_color"])
	require.NotNil(t, updatedSeries.FontID)
	assert.Len(t, updatedSeries.TemplateIDs, 2)

	for _, ep := range dst.episodes[2] {
		assert.Equal(t, "Custom Title", ep.Overrides["title_text"])
		require.NotNil(t, ep.FontID)
	}

	for _, font := range dst.fonts {
		assert.Contains(t, font.File, "fonts/")
		assert.Equal(t, []byte("fake-ttf-bytes"), writer.written[font.File])
	}
}

func TestImportSkipsUnmatchedEpisodeKeys(t *testing.T) {
	src, seriesID := sourceSeries()
	doc, bundle, err := Export(src, seriesID, ExportOptions{IncludeEpisodes: true})
	require.NoError(t, err)

	dst := newMemStore()
	dst.series[3] = &domain.Series{ID: 3, Info: domain.NewSeriesInfo("Severance", 2022)}
	// Only 2 of the 10 exported episode keys exist in the destination.
	dst.episodes[3] = []*domain.Episode{
		{ID: 301, SeriesID: 3, Info: &domain.EpisodeInfo{SeasonNumber: 1, EpisodeNumber: 1}},
		{ID: 302, SeriesID: 3, Info: &domain.EpisodeInfo{SeasonNumber: 1, EpisodeNumber: 2}},
	}

	writer := &memWriter{}
	result, err := Import(dst, writer, 3, doc, bundle)
	require.NoError(t, err)

	assert.Equal(t, 2, result.EpisodesUpdated)
	assert.Len(t, result.EpisodesSkipped, 8)
}

func TestImportRollsBackCreatedEntitiesOnFailure(t *testing.T) {
	store, seriesID := sourceSeries()
	doc, bundle, err := Export(store, seriesID, ExportOptions{})
	require.NoError(t, err)

	dst := newMemStore()
	dst.series[4] = &domain.Series{ID: 4, Info: domain.NewSeriesInfo("Severance", 2022)}
	failing := &updateFailStore{memStore: dst}

	writer := &memWriter{}
	_, err = Import(failing, writer, 4, doc, bundle)
	require.Error(t, err)
	assert.Empty(t, dst.fonts, "created font must be rolled back on UpdateSeries failure")
	assert.Empty(t, dst.templates, "created templates must be rolled back on UpdateSeries failure")
}

type updateFailStore struct {
	*memStore
}

func (u *updateFailStore) UpdateSeries(s *domain.Series) error {
	return assertErr{}
}

type assertErr struct{}

func (assertErr) Error() string { return "update series failed" }

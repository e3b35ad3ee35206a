package coreapi

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcmaker/core/internal/domain"
	"github.com/tcmaker/core/internal/scheduler"
)

type fakeEntities struct {
	series map[uint64]*domain.Series
}

func (f *fakeEntities) Series(id uint64) (*domain.Series, error) { return f.series[id], nil }
func (f *fakeEntities) ListSeries() ([]*domain.Series, error) {
	out := make([]*domain.Series, 0, len(f.series))
	for _, s := range f.series {
		out = append(out, s)
	}
	return out, nil
}
func (f *fakeEntities) CreateSeries(s *domain.Series) (uint64, error) {
	s.ID = uint64(len(f.series) + 1)
	f.series[s.ID] = s
	return s.ID, nil
}
func (f *fakeEntities) UpdateSeries(s *domain.Series) error { f.series[s.ID] = s; return nil }
func (f *fakeEntities) DeleteSeries(id uint64) error        { delete(f.series, id); return nil }

func (f *fakeEntities) Episode(id uint64) (*domain.Episode, error)            { return nil, nil }
func (f *fakeEntities) ListEpisodes(seriesID uint64) ([]*domain.Episode, error) { return nil, nil }
func (f *fakeEntities) UpdateEpisode(e *domain.Episode) error                 { return nil }

func (f *fakeEntities) Font(id uint64) (*domain.Font, error)   { return nil, nil }
func (f *fakeEntities) ListFonts() ([]*domain.Font, error)     { return nil, nil }
func (f *fakeEntities) CreateFont(ft *domain.Font) (uint64, error) { return 1, nil }
func (f *fakeEntities) UpdateFont(ft *domain.Font) error       { return nil }
func (f *fakeEntities) DeleteFont(id uint64) error             { return nil }

func (f *fakeEntities) Template(id uint64) (*domain.Template, error) { return nil, nil }
func (f *fakeEntities) ListTemplates() ([]*domain.Template, error)   { return nil, nil }
func (f *fakeEntities) CreateTemplate(t *domain.Template) (uint64, error) { return 1, nil }
func (f *fakeEntities) UpdateTemplate(t *domain.Template) error      { return nil }
func (f *fakeEntities) DeleteTemplate(id uint64) error               { return nil }

func TestCreateAndGetSeriesRoundTrips(t *testing.T) {
	entities := &fakeEntities{series: map[uint64]*domain.Series{}}
	api := New(entities, nil, nil, nil)

	id, err := api.CreateSeries(&domain.Series{Info: domain.NewSeriesInfo("Severance", 2022)})
	require.NoError(t, err)

	got, err := api.GetSeries(id)
	require.NoError(t, err)
	assert.Equal(t, "Severance", got.Info.Name)
}

func TestTriggerJobWithoutSchedulerReturnsNotFound(t *testing.T) {
	api := New(&fakeEntities{series: map[uint64]*domain.Series{}}, nil, nil, nil)
	err := api.TriggerJob("sync")
	require.Error(t, err)
}

func TestTriggerJobDelegatesToScheduler(t *testing.T) {
	reg := scheduler.NewInMemoryRegistry()
	sched := scheduler.New(zerolog.Nop(), reg)
	var ran int32
	require.NoError(t, sched.AddJob(scheduler.Job{
		Name:    "snapshot",
		Cron:    "@every 1h",
		Enabled: true,
		Handler: func(ctx context.Context) error { atomic.AddInt32(&ran, 1); return nil },
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched.Start(ctx)
	defer sched.Stop()

	api := New(&fakeEntities{series: map[uint64]*domain.Series{}}, sched, nil, nil)
	require.NoError(t, api.TriggerJob("snapshot"))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&ran))

	rec, ok := api.JobRecord("snapshot")
	assert.True(t, ok)
	assert.Equal(t, scheduler.OutcomeOK, rec.Outcome)
}

package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtMostOnceRecordsOverlap(t *testing.T) {
	registry := NewInMemoryRegistry()
	s := New(zerolog.Nop(), registry)

	release := make(chan struct{})
	var starts int32

	job := Job{
		Name: "build_cards",
		Cron: "@every 1h",
		Handler: func(ctx context.Context) error {
			atomic.AddInt32(&starts, 1)
			<-release
			return nil
		},
		Enabled: true,
	}
	require.NoError(t, s.AddJob(job))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop()

	require.NoError(t, s.TriggerNow("build_cards"))
	time.Sleep(20 * time.Millisecond) // let the handler start and grab the in-flight slot

	require.NoError(t, s.TriggerNow("build_cards"))
	time.Sleep(20 * time.Millisecond)

	rec, ok := registry.Get("build_cards")
	require.True(t, ok)
	assert.Equal(t, OutcomeOverlap, rec.Outcome)
	assert.Equal(t, int32(1), atomic.LoadInt32(&starts))

	close(release)
	time.Sleep(20 * time.Millisecond)

	rec, ok = registry.Get("build_cards")
	require.True(t, ok)
	assert.Equal(t, OutcomeOK, rec.Outcome)
}

func TestDisabledJobNeverFires(t *testing.T) {
	registry := NewInMemoryRegistry()
	s := New(zerolog.Nop(), registry)

	var fired int32
	job := Job{
		Name:    "backup",
		Cron:    "@every 1h",
		Handler: func(ctx context.Context) error { atomic.AddInt32(&fired, 1); return nil },
		Enabled: false,
	}
	require.NoError(t, s.AddJob(job))

	rec, ok := registry.Get("backup")
	require.True(t, ok)
	assert.Equal(t, OutcomeDisabled, rec.Outcome)
	assert.Equal(t, int32(0), atomic.LoadInt32(&fired))
}

func TestTriggerNowUnknownJob(t *testing.T) {
	s := New(zerolog.Nop(), NewInMemoryRegistry())
	err := s.TriggerNow("nonexistent")
	require.Error(t, err)
}

func TestRunOnceRecordsErrorOutcome(t *testing.T) {
	registry := NewInMemoryRegistry()
	s := New(zerolog.Nop(), registry)

	job := Job{
		Name:    "sync",
		Cron:    "@every 1h",
		Handler: func(ctx context.Context) error { return assertError{} },
		Enabled: true,
	}
	require.NoError(t, s.AddJob(job))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		time.Sleep(30 * time.Millisecond)
	}()
	require.NoError(t, s.TriggerNow("sync"))
	wg.Wait()

	rec, ok := registry.Get("sync")
	require.True(t, ok)
	assert.Equal(t, OutcomeError, rec.Outcome)
}

type assertError struct{}

func (assertError) Error() string { return "boom" }

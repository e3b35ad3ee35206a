package rendercache

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcmaker/core/internal/domain"
	"github.com/tcmaker/core/internal/resolve"
)

func TestFingerprintDeterminism(t *testing.T) {
	in1 := Inputs{CardType: "standard", Recipe: resolve.Recipe{"font_color": "white", "extras": map[string]any{"b": "2", "a": "1"}}, SourceFileHash: "abc"}
	in2 := Inputs{CardType: "standard", Recipe: resolve.Recipe{"extras": map[string]any{"a": "1", "b": "2"}, "font_color": "white"}, SourceFileHash: "abc"}

	fp1, err := Fingerprint(in1)
	require.NoError(t, err)
	fp2, err := Fingerprint(in2)
	require.NoError(t, err)
	assert.Equal(t, fp1, fp2)
	assert.Contains(t, fp1, fingerprintVersion)
}

func TestFingerprintChangesWithRecipe(t *testing.T) {
	in1 := Inputs{CardType: "standard", Recipe: resolve.Recipe{"font_color": "white"}, SourceFileHash: "abc"}
	in2 := Inputs{CardType: "standard", Recipe: resolve.Recipe{"font_color": "red"}, SourceFileHash: "abc"}

	fp1, err := Fingerprint(in1)
	require.NoError(t, err)
	fp2, err := Fingerprint(in2)
	require.NoError(t, err)
	assert.NotEqual(t, fp1, fp2)
}

func TestFingerprintChangesWithSourceHash(t *testing.T) {
	in1 := Inputs{CardType: "standard", SourceFileHash: "abc"}
	in2 := Inputs{CardType: "standard", SourceFileHash: "def"}
	fp1, _ := Fingerprint(in1)
	fp2, _ := Fingerprint(in2)
	assert.NotEqual(t, fp1, fp2)
}

func TestEnsureBuiltUnchangedSkipsRebuild(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/card.jpg"
	require.NoError(t, os.WriteFile(path, []byte("card-bytes"), 0o644))

	var builds int32
	co := NewCoordinator(func(ctx context.Context, fp string, in Inputs) (string, int64, error) {
		atomic.AddInt32(&builds, 1)
		return path, int64(len("card-bytes")), nil
	})

	in := Inputs{CardType: "standard", SourceFileHash: "abc"}
	key := CardKey(1, domain.Library{Name: "TV"})

	outcome, rec, err := co.EnsureBuilt(context.Background(), key, in)
	require.NoError(t, err)
	assert.Equal(t, Built, outcome)
	assert.Equal(t, path, rec.FilePath)

	outcome2, _, err := co.EnsureBuilt(context.Background(), key, in)
	require.NoError(t, err)
	assert.Equal(t, Unchanged, outcome2)
	assert.Equal(t, int32(1), atomic.LoadInt32(&builds))
}

func TestEnsureBuiltConcurrentCallersBuildExactlyOnce(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/card.jpg"

	var builds int32
	release := make(chan struct{})
	co := NewCoordinator(func(ctx context.Context, fp string, in Inputs) (string, int64, error) {
		atomic.AddInt32(&builds, 1)
		<-release
		require.NoError(t, os.WriteFile(path, []byte("card-bytes"), 0o644))
		return path, int64(len("card-bytes")), nil
	})

	in := Inputs{CardType: "standard", SourceFileHash: "abc"}
	key := CardKey(1, domain.Library{Name: "TV"})

	const callers = 8
	var wg sync.WaitGroup
	outcomes := make([]Outcome, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcome, _, err := co.EnsureBuilt(context.Background(), key, in)
			assert.NoError(t, err)
			outcomes[i] = outcome
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&builds))
	var builtCount, coalescedCount int
	for _, o := range outcomes {
		switch o {
		case Built:
			builtCount++
		case Coalesced:
			coalescedCount++
		}
	}
	assert.Equal(t, 1, builtCount)
	assert.Equal(t, callers-1, coalescedCount)
}

func TestReloadNeeded(t *testing.T) {
	last := Record{Fingerprint: "v1:a", FileSize: 100}
	same := Record{Fingerprint: "v1:a", FileSize: 100}
	changed := Record{Fingerprint: "v1:b", FileSize: 100}
	assert.False(t, ReloadNeeded(last, same))
	assert.True(t, ReloadNeeded(last, changed))
}

package rendercache

import (
	"context"
	"os"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tcmaker/core/internal/apperr"
	"github.com/tcmaker/core/internal/domain"
)

// BuildFunc renders and persists a Card artifact for the given fingerprint,
// returning its final file path and size. It is invoked at most once
// concurrently per fingerprint (spec §8 Build-lock exclusivity).
type BuildFunc func(ctx context.Context, fp string, in Inputs) (path string, size int64, err error)

// Outcome is ensure_built's result, matching spec §4.5 step 3's three
// cases.
type Outcome int

const (
	// Unchanged means the recorded fingerprint and on-disk file already
	// satisfy the request; nothing was built.
	Unchanged Outcome = iota
	// Built means a new render ran and replaced the artifact.
	Built
	// Coalesced means this caller's request was satisfied by a build
	// already in flight for the same fingerprint, started by another
	// caller.
	Coalesced
)

// Record is the per-(episode, library) build bookkeeping kept by spec
// §4.5: the last built fingerprint, the artifact path and size.
type Record struct {
	Fingerprint string
	FilePath    string
	FileSize    int64
}

// Coordinator is the Render Cache & Coordinator of spec §4.5: it tracks
// the last-built Record per Card key and guarantees at most one builder
// runs per fingerprint process-wide via singleflight.
type Coordinator struct {
	group   singleflight.Group
	records recordStore
	build   BuildFunc
}

// recordStore abstracts the Card-record lookup/update so Coordinator
// doesn't own persistence (out of scope per spec §1); a caller supplies
// one backed by however it stores Cards.
type recordStore interface {
	Get(key string) (Record, bool)
	Set(key string, rec Record)
}

// memoryRecordStore is a simple in-process recordStore, usable directly
// or as the model for a persistence-backed implementation.
type memoryRecordStore struct {
	mu   chan struct{}
	data map[string]Record
}

func newMemoryRecordStore() *memoryRecordStore {
	s := &memoryRecordStore{mu: make(chan struct{}, 1), data: make(map[string]Record)}
	s.mu <- struct{}{}
	return s
}

func (s *memoryRecordStore) Get(key string) (Record, bool) {
	<-s.mu
	defer func() { s.mu <- struct{}{} }()
	rec, ok := s.data[key]
	return rec, ok
}

func (s *memoryRecordStore) Set(key string, rec Record) {
	<-s.mu
	defer func() { s.mu <- struct{}{} }()
	s.data[key] = rec
}

// NewCoordinator builds a Coordinator using an in-memory record store and
// build as the render function.
func NewCoordinator(build BuildFunc) *Coordinator {
	return &Coordinator{records: newMemoryRecordStore(), build: build}
}

// CardKey identifies one (episode, library) Card slot within the
// coordinator's record store.
func CardKey(episodeID uint64, library domain.Library) string {
	return library.String() + "#" + Fingerprint64(episodeID)
}

// Fingerprint64 renders episodeID for use inside a CardKey; kept as its
// own function so the encoding is easy to change without touching
// CardKey's callers.
func Fingerprint64(episodeID uint64) string {
	buf := make([]byte, 0, 20)
	if episodeID == 0 {
		return "0"
	}
	n := episodeID
	var digits []byte
	for n > 0 {
		digits = append(digits, byte('0'+n%10))
		n /= 10
	}
	for i := len(digits) - 1; i >= 0; i-- {
		buf = append(buf, digits[i])
	}
	return string(buf)
}

// EnsureBuilt implements spec §4.5 step 3: compute the fingerprint,
// short-circuit to Unchanged if it matches the recorded fingerprint and
// the file still exists at the recorded size, otherwise build — coalesced
// across concurrent callers sharing the same fingerprint via
// singleflight.
func (co *Coordinator) EnsureBuilt(ctx context.Context, key string, in Inputs) (Outcome, Record, error) {
	fp, err := Fingerprint(in)
	if err != nil {
		return Unchanged, Record{}, apperr.New("rendercache.EnsureBuilt", apperr.Transient, err)
	}

	if rec, ok := co.records.Get(key); ok && rec.Fingerprint == fp {
		if info, statErr := os.Stat(rec.FilePath); statErr == nil && info.Size() == rec.FileSize {
			return Unchanged, rec, nil
		}
	}

	type result struct {
		rec Record
		err error
	}

	ranBuild := false
	v, err, _ := co.group.Do(fp, func() (any, error) {
		ranBuild = true
		buildCtx, cancel := context.WithTimeout(ctx, buildTimeout)
		defer cancel()

		path, size, buildErr := co.build(buildCtx, fp, in)
		if buildErr != nil {
			return result{}, buildErr
		}
		rec := Record{Fingerprint: fp, FilePath: path, FileSize: size}
		co.records.Set(key, rec)
		return result{rec: rec}, nil
	})
	if err != nil {
		return Unchanged, Record{}, err
	}

	r := v.(result)
	// singleflight also reports shared=true to the caller whose function
	// ran whenever others joined it, so the outcome is decided by whether
	// this caller's own function ran.
	outcome := Coalesced
	if ranBuild {
		outcome = Built
	}
	return outcome, r.rec, nil
}

// Invalidate clears key's recorded fingerprint so the next EnsureBuilt
// call always rebuilds, regardless of whether the underlying Recipe
// changed — used when a Card's on-disk file is deleted out from under
// the coordinator (e.g. the watched-state-switch flow of spec §8 E2E
// scenario 2).
func (co *Coordinator) Invalidate(key string) {
	co.records.Set(key, Record{})
}

// ReloadNeeded reports whether the media-server-side copy of a Card is
// stale relative to rec, per spec §4.7's upload-diffing policy: the
// uploader re-pushes whenever the on-disk fingerprint or file size has
// moved since the last recorded upload.
func ReloadNeeded(lastUploaded Record, current Record) bool {
	return lastUploaded.Fingerprint != current.Fingerprint || lastUploaded.FileSize != current.FileSize
}

// buildTimeout bounds a single render so a stuck CardType implementation
// cannot hold the per-fingerprint build lock forever.
const buildTimeout = 2 * time.Minute

// Package snapshot implements the Snapshot job of spec §4.10: a
// periodic point-in-time count of the entity population, mirrored into
// Prometheus gauges for external scraping.
package snapshot

import (
	"fmt"
	"time"

	"github.com/tcmaker/core/internal/apperr"
)

// Counts is one point-in-time row (spec §4.10): counts of every entity
// kind plus a UTC timestamp. Invariant: Loaded <= Cards.
type Counts struct {
	Timestamp      time.Time
	Series         int
	Episodes       int
	Cards          int
	Fonts          int
	Templates      int
	LoadedUploads  int
	Users          int
	Syncs          int
	Blueprints     int
	TotalCardBytes int64
}

// Validate enforces spec §4.10's invariant before a row is persisted.
func (c Counts) Validate() error {
	if c.LoadedUploads > c.Cards {
		return apperr.New("snapshot.Validate", apperr.Conflict,
			fmt.Errorf("loaded uploads (%d) exceeds cards (%d)", c.LoadedUploads, c.Cards))
	}
	return nil
}

// Source supplies the raw counts a Snapshot job reads at its scheduled
// firing. A caller implements this against whatever owns the actual
// entity population (out of scope per spec §1).
type Source interface {
	CountSeries() int
	CountEpisodes() int
	CountCards() int
	CountFonts() int
	CountTemplates() int
	CountLoadedUploads() int
	CountUsers() int
	CountSyncs() int
	CountBlueprints() int
	SumCardBytes() int64
}

// Store persists Counts rows, e.g. for historical snapshot charts.
type Store interface {
	Append(c Counts) error
}

// Take reads every count from src, validates the result, and appends it
// to store. now is passed in rather than read from time.Now() so job
// runs stay deterministic in tests.
func Take(src Source, store Store, now time.Time) (Counts, error) {
	counts := Counts{
		Timestamp:      now.UTC(),
		Series:         src.CountSeries(),
		Episodes:       src.CountEpisodes(),
		Cards:          src.CountCards(),
		Fonts:          src.CountFonts(),
		Templates:      src.CountTemplates(),
		LoadedUploads:  src.CountLoadedUploads(),
		Users:          src.CountUsers(),
		Syncs:          src.CountSyncs(),
		Blueprints:     src.CountBlueprints(),
		TotalCardBytes: src.SumCardBytes(),
	}
	if err := counts.Validate(); err != nil {
		return Counts{}, err
	}
	if err := store.Append(counts); err != nil {
		return Counts{}, apperr.New("snapshot.Take", apperr.Transient, err)
	}
	return counts, nil
}

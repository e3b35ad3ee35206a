// Package identity implements the ID-reconciliation operations of spec
// §4.1: merging foreign-ID sets without ever overwriting a known value,
// and building the predicate the persistence layer uses to find an
// existing entity for newly observed data.
package identity

import (
	"fmt"

	"github.com/tcmaker/core/internal/apperr"
	"github.com/tcmaker/core/internal/domain"
)

// ConflictingIDs is returned by MergeIDs when a and b both carry
// different non-empty values for the same key.
type ConflictingIDs struct {
	Key      domain.IDKey
	Existing string
	Incoming string
}

func (c *ConflictingIDs) Error() string {
	return fmt.Sprintf("conflicting id for %s: have %q, got %q", c.Key, c.Existing, c.Incoming)
}

// MergeIDs copies any IDs from b into a that a lacks. It never overwrites
// a non-empty ID in a (spec §8 "ID monotonicity"). When both sides hold
// different non-empty values for the same key it stops and returns a
// *ConflictingIDs wrapped as an apperr.Conflict — callers that want
// reconciliation rather than a hard error should call ReconcileIDs
// instead.
func MergeIDs(a, b domain.IDSet) error {
	for k, v := range b {
		if v == "" {
			continue
		}
		existing, ok := a[k]
		if !ok || existing == "" {
			a[k] = v
			continue
		}
		if existing != v {
			return apperr.New("identity.MergeIDs", apperr.Conflict, &ConflictingIDs{
				Key: k, Existing: existing, Incoming: v,
			})
		}
	}
	return nil
}

// ReconcileIDs merges b into a like MergeIDs, but on a conflict for the
// same key keeps a's existing value and returns the incoming one as the
// discarded alternative for the caller to log and record for later
// reconciliation (spec §4.1, §7 Conflict kind). Values held under keys of
// different specificity — (kind, instance, library), (kind, instance),
// (kind) — are separate entries and are not compared with one another.
func ReconcileIDs(a, b domain.IDSet) (discarded []ConflictingIDs) {
	for k, v := range b {
		if v == "" {
			continue
		}
		existing, ok := a[k]
		if !ok || existing == "" {
			a[k] = v
			continue
		}
		if existing == v {
			continue
		}
		// Same key means same specificity; the existing value (already
		// reconciled once) wins ties so repeated merges are stable.
		discarded = append(discarded, ConflictingIDs{Key: k, Existing: existing, Incoming: v})
	}
	return discarded
}

// SeriesCondition is the predicate the persistence layer uses to find an
// existing Series matching freshly observed info: any known ID, else
// (name, year) (spec §4.1).
type SeriesCondition struct {
	IDs       domain.IDSet
	MatchName string
	Year      int
}

// QuerySeriesCondition builds the lookup predicate for a SeriesInfo.
func QuerySeriesCondition(info *domain.SeriesInfo) SeriesCondition {
	return SeriesCondition{IDs: info.IDs, MatchName: info.MatchName(), Year: info.Year}
}

// EpisodeCondition is the predicate for finding an existing Episode:
// any known ID, else (season, episode, title) (spec §4.1).
type EpisodeCondition struct {
	IDs           domain.IDSet
	SeasonNumber  int
	EpisodeNumber int
	Title         string
}

// QueryEpisodeCondition builds the lookup predicate for an EpisodeInfo.
func QueryEpisodeCondition(info *domain.EpisodeInfo) EpisodeCondition {
	return EpisodeCondition{
		IDs:           info.IDs,
		SeasonNumber:  info.SeasonNumber,
		EpisodeNumber: info.EpisodeNumber,
		Title:         info.Title,
	}
}

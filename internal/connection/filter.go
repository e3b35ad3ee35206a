package connection

import "strings"

// SyncFilter is the media-server sync filtering of spec §4.2:
// required/excluded libraries and required/excluded tags. Tag filters
// are evaluated after labels are resolved to ids; a label with no match
// is treated as if it matched nothing (so it excludes nothing, and can
// never be "required").
type SyncFilter struct {
	RequiredLibraries []string
	ExcludedLibraries []string
	RequiredTags      []string
	ExcludedTags      []string
}

// MatchesLibrary reports whether a library name passes the
// required/excluded library lists. Empty RequiredLibraries means "no
// restriction" (every library not explicitly excluded passes).
func (f SyncFilter) MatchesLibrary(name string) bool {
	for _, excluded := range f.ExcludedLibraries {
		if strings.EqualFold(excluded, name) {
			return false
		}
	}
	if len(f.RequiredLibraries) == 0 {
		return true
	}
	for _, required := range f.RequiredLibraries {
		if strings.EqualFold(required, name) {
			return true
		}
	}
	return false
}

// MatchesTags reports whether a series' resolved tag set passes the
// required/excluded tag lists. unmatchedLabels names requested tag
// labels the connector could not resolve to a server-side tag id — per
// spec §4.2 these are logged by the caller and treated here as
// "unmatched": they contribute no exclusion and cannot satisfy a
// requirement.
func (f SyncFilter) MatchesTags(seriesTags []string, unmatchedLabels []string) bool {
	unmatched := make(map[string]struct{}, len(unmatchedLabels))
	for _, l := range unmatchedLabels {
		unmatched[strings.ToLower(l)] = struct{}{}
	}
	has := make(map[string]struct{}, len(seriesTags))
	for _, t := range seriesTags {
		has[strings.ToLower(t)] = struct{}{}
	}

	for _, excluded := range f.ExcludedTags {
		if _, isUnmatched := unmatched[strings.ToLower(excluded)]; isUnmatched {
			continue // an unmatched exclusion label excludes nothing
		}
		if _, present := has[strings.ToLower(excluded)]; present {
			return false
		}
	}

	for _, required := range f.RequiredTags {
		if _, isUnmatched := unmatched[strings.ToLower(required)]; isUnmatched {
			return false // an unmatched required label can never be satisfied
		}
		if _, present := has[strings.ToLower(required)]; !present {
			return false
		}
	}

	return true
}

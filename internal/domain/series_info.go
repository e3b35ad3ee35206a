package domain

import (
	"regexp"
	"strings"
)

var matchNameStripper = regexp.MustCompile(`[^a-z0-9]+`)

// MatchName reduces a title to alphanumerics-only, lowercased, for
// case/punctuation-insensitive comparisons (spec §3, §4.1). Grounded on
// original_source/modules/SeriesInfo.py's `match_name` property.
func MatchName(name string) string {
	return matchNameStripper.ReplaceAllString(strings.ToLower(name), "")
}

// SeriesInfo is the canonical identity of a tracked show: a name, an
// optional year, alias titles, and a set of foreign IDs. Two SeriesInfo
// values are considered the same series if they share any ID, or else by
// (match name, year within +/-1) — spec §3.
type SeriesInfo struct {
	Name           string
	Year           int // 0 means unknown
	AlternateNames []string
	Languages      map[string]string // data_key -> language_code, for translation requests
	IDs            IDSet
}

// NewSeriesInfo constructs a SeriesInfo with an initialized ID set.
func NewSeriesInfo(name string, year int) *SeriesInfo {
	return &SeriesInfo{Name: name, Year: year, IDs: IDSet{}}
}

// MatchName is the canonical comparison key for this series' primary name.
func (s *SeriesInfo) MatchName() string { return MatchName(s.Name) }

// AddAlternateName records an alias title, deduplicated, used to widen
// match-name equality across multiple known titles (spec §4.1: "when
// multiple alias titles are known, equality is decided by the match
// name"). Grounded on original_source SeriesInfo.py add_alternate_name.
func (s *SeriesInfo) AddAlternateName(name string) {
	mn := MatchName(name)
	if mn == "" || mn == s.MatchName() {
		return
	}
	for _, existing := range s.AlternateNames {
		if MatchName(existing) == mn {
			return
		}
	}
	s.AlternateNames = append(s.AlternateNames, name)
}

// MatchNames returns every match-name this series is known to answer to:
// its primary name plus every alternate.
func (s *SeriesInfo) MatchNames() []string {
	out := make([]string, 0, len(s.AlternateNames)+1)
	out = append(out, s.MatchName())
	for _, alt := range s.AlternateNames {
		out = append(out, MatchName(alt))
	}
	return out
}

// SameSeries implements spec §3's SeriesInfo equality: ID match first,
// falling back to name/year (+/-1 year tolerance for alias resolution).
func (a *SeriesInfo) SameSeries(b *SeriesInfo) bool {
	if sharesAnyID(a.IDs, b.IDs) {
		return true
	}

	yearsClose := a.Year == 0 || b.Year == 0 || abs(a.Year-b.Year) <= 1
	if !yearsClose {
		return false
	}

	bNames := map[string]struct{}{}
	for _, n := range b.MatchNames() {
		bNames[n] = struct{}{}
	}
	for _, n := range a.MatchNames() {
		if _, ok := bNames[n]; ok {
			return true
		}
	}
	return false
}

func sharesAnyID(a, b IDSet) bool {
	for ka, va := range a {
		if va == "" {
			continue
		}
		for kb, vb := range b {
			if ka.Kind == kb.Kind && ka.Instance == kb.Instance && va == vb && vb != "" {
				return true
			}
		}
	}
	return false
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

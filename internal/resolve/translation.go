package resolve

import (
	"sync"
	"time"
)

// placeholderWindow is the unified back-off period for "temporarily
// ignore placeholder titles" (spec §9 open question, resolved in
// SPEC_FULL §4.3: a single 48h window replacing the original's two
// divergent windows).
const placeholderWindow = 48 * time.Hour

// translationKey identifies one (episode, language) translation attempt.
type translationKey struct {
	episodeID uint64
	language  string
}

// TranslationCache tracks rejected translation attempts so a placeholder
// or generic title returned by a metadata provider isn't retried on every
// resolve within the back-off window.
type TranslationCache struct {
	mu        sync.Mutex
	rejected  map[translationKey]time.Time
	isPlaceholder func(title string) bool
}

// NewTranslationCache builds a cache using isPlaceholder to recognize
// generic/placeholder titles (e.g. "TBA", "Episode 12", the series name
// itself). A nil isPlaceholder falls back to DefaultIsPlaceholder.
func NewTranslationCache(isPlaceholder func(string) bool) *TranslationCache {
	if isPlaceholder == nil {
		isPlaceholder = DefaultIsPlaceholder
	}
	return &TranslationCache{
		rejected:      make(map[translationKey]time.Time),
		isPlaceholder: isPlaceholder,
	}
}

// DefaultIsPlaceholder recognizes the handful of generic titles metadata
// providers commonly return in place of a real translation.
func DefaultIsPlaceholder(title string) bool {
	switch title {
	case "", "TBA", "TBD", "Episode", "Untitled":
		return true
	default:
		return false
	}
}

// ShouldAttempt reports whether a translation attempt for (episodeID,
// language) should proceed, given now. It returns false if a prior
// attempt was rejected as a placeholder within the last 48h.
func (c *TranslationCache) ShouldAttempt(episodeID uint64, language string, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	rejectedAt, ok := c.rejected[translationKey{episodeID, language}]
	if !ok {
		return true
	}
	return now.Sub(rejectedAt) >= placeholderWindow
}

// Observe records the outcome of a translation attempt: if title looks
// like a placeholder, the (episode, language) pair is backed off for
// placeholderWindow; otherwise any prior back-off entry is cleared.
func (c *TranslationCache) Observe(episodeID uint64, language, title string, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := translationKey{episodeID, language}
	if c.isPlaceholder(title) {
		c.rejected[key] = now
		return
	}
	delete(c.rejected, key)
}

// Package rendercache implements the Render Cache & Coordinator of spec
// §4.5: deterministic Recipe fingerprinting and per-fingerprint build
// deduplication so at most one builder runs for a given fingerprint
// across the whole process.
package rendercache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/tcmaker/core/internal/resolve"
)

// fingerprintVersion is the version-byte prefix gating any future
// semantic change to fingerprint computation (spec §6: "Any semantic
// change to fingerprinting MUST be gated by a version byte prefix").
const fingerprintVersion = "v1:"

// Inputs bundles everything a fingerprint is computed over: the
// CardType name, every recognized Recipe option, and the content hashes
// of the source and (optional) logo files the build reads (spec §4.5).
type Inputs struct {
	CardType         string
	Recipe           resolve.Recipe
	SourceFileHash   string
	LogoFileHash     string // empty if the recipe doesn't reference a logo
}

// canonical produces a map whose JSON encoding is stable across calls
// with equal content: Go's encoding/json already sorts map[string]any
// keys, so the only extra step is normalizing the Recipe itself (nil
// becomes an explicit absent key, never a literal "null").
func (in Inputs) canonical() map[string]any {
	fields := make(map[string]any, len(in.Recipe))
	for k, v := range in.Recipe {
		if v == nil {
			continue
		}
		fields[k] = v
	}

	out := map[string]any{
		"card_type":        in.CardType,
		"source_file_hash": in.SourceFileHash,
		"fields":           fields,
	}
	if in.LogoFileHash != "" {
		out["logo_file_hash"] = in.LogoFileHash
	}
	return out
}

// CanonicalJSON returns the canonical JSON encoding Inputs' fingerprint
// is derived from. Exposed so callers (and tests) can verify determinism
// independent of the hash step.
func (in Inputs) CanonicalJSON() ([]byte, error) {
	canon := in.canonical()
	// encoding/json sorts map[string]any keys at every nesting level, but
	// nested map[string]any values produced by Recipe's "extras" field
	// need the same treatment one level down; re-marshal through a
	// sorted-keys walk to guarantee determinism regardless of the
	// standard library's internal map iteration order.
	normalized := normalize(canon)
	return json.Marshal(normalized)
}

// normalize recursively converts maps into an order-stable representation
// accepted by encoding/json (which already sorts map[string]any by key at
// marshal time); the recursive walk exists so nested extras maps get the
// same guarantee explicitly, rather than relying on an implementation
// detail two levels deep.
func normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(map[string]any, len(val))
		for _, k := range keys {
			out[k] = normalize(val[k])
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = normalize(e)
		}
		return out
	default:
		return v
	}
}

// Fingerprint computes the stable v1 fingerprint of in: a SHA-256 digest
// of its canonical JSON, prefixed with the version byte (spec §4.5,
// §6). Two Inputs with equal canonical JSON always yield equal
// fingerprints (spec §8 Fingerprint determinism invariant).
func Fingerprint(in Inputs) (string, error) {
	canon, err := in.CanonicalJSON()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canon)
	return fingerprintVersion + hex.EncodeToString(sum[:]), nil
}

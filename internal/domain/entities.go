package domain

import "time"

// Library names a subdivision of a media server's content: the
// (interface_id, name) pair from the GLOSSARY, plus the server kind so a
// caller can route without a second lookup.
type Library struct {
	ServerKind  SourceKind
	InterfaceID int
	Name        string
}

// WatchedStatus is the per-library watched flag for an Episode (spec §3).
type WatchedStatus struct {
	Library Library
	Watched bool
	AsOf    time.Time
}

// Series owns a mutable SeriesInfo, its Library bindings, its Template
// chain, style policy, font override, per-season title overrides, and
// per-source sync policy (spec §3).
type Series struct {
	ID   uint64    `json:"id" gorm:"primaryKey"`
	Info *SeriesInfo `json:"info" gorm:"embedded"`

	Libraries   []Library `json:"libraries" gorm:"serializer:json"`
	TemplateIDs []uint64  `json:"templateIds" gorm:"serializer:json"` // ordered; precedence in resolve.Resolve follows this order
	FontID      *uint64   `json:"fontId,omitempty"`

	// Overrides holds the series-level Recipe fields resolve.Input.SeriesOverrides
	// feeds into resolve.Resolve (spec §4.3 layer 3).
	Overrides map[string]any `json:"overrides,omitempty" gorm:"serializer:json"`

	WatchedStyle   string `json:"watchedStyle"`   // StyleSet resolution target, e.g. "unique"
	UnwatchedStyle string `json:"unwatchedStyle"` // e.g. "art blur unique"

	SeasonTitles map[int]string `json:"seasonTitles,omitempty" gorm:"serializer:json"` // season number -> season title override

	DontAutoSync    bool     `json:"dontAutoSync" gorm:"default:false"` // skip this series entirely during `sync`
	SkipMediaServer []string `json:"skipMediaServer,omitempty" gorm:"serializer:json"` // server kinds to never sync this series against

	CreatedAt time.Time  `json:"createdAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty" gorm:"index"`
}

// Episode owns an EpisodeInfo, per-library watched flags, Card
// references, and the chosen source image path (spec §3).
type Episode struct {
	ID       uint64      `json:"id" gorm:"primaryKey"`
	SeriesID uint64      `json:"seriesId" gorm:"index"`
	Info     *EpisodeInfo `json:"info" gorm:"embedded"`

	Watched map[string]WatchedStatus `json:"watched,omitempty" gorm:"serializer:json"` // keyed by Library.String()

	SourceImagePath string `json:"sourceImagePath,omitempty"` // local path, or empty if unresolved
	SourceImageURL  string `json:"sourceImageUrl,omitempty"`  // remote URL the local copy was fetched from, if any

	// FontID, TemplateIDs and Overrides are the episode-level manual
	// overrides resolve.Input.EpisodeOverrides feeds into resolve.Resolve
	// (spec §4.3 layer 4; exported/imported verbatim by a Blueprint, spec §4.9).
	FontID      *uint64        `json:"fontId,omitempty"`
	TemplateIDs []uint64       `json:"templateIds,omitempty" gorm:"serializer:json"`
	Overrides   map[string]any `json:"overrides,omitempty" gorm:"serializer:json"`

	CardIDs []uint64 `json:"cardIds,omitempty" gorm:"serializer:json"`

	MissingSyncStreak int        `json:"missingSyncStreak"` // consecutive syncs absent from every source; soft-delete threshold
	CreatedAt         time.Time  `json:"createdAt"`
	DeletedAt         *time.Time `json:"deletedAt,omitempty" gorm:"index"`
}

func (l Library) String() string {
	return string(l.ServerKind) + ":" + itoa(l.InterfaceID) + ":" + l.Name
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// TemplateFilter is a single typed condition within a Template's filter
// conjunction (spec §4.3): "season == 0", "episode_number in [a,b]",
// "airdate before X", "watched == true", etc.
type TemplateFilter struct {
	Field    string // "season", "episode_number", "airdate", "watched", ...
	Operator string // "==", "!=", "in", "before", "after"
	Value    any
}

// Template is a reusable, filter-gated Recipe fragment (spec §3, §4.3).
type Template struct {
	ID      uint64           `json:"id" gorm:"primaryKey"`
	Name    string           `json:"name" gorm:"uniqueIndex"`
	Filters []TemplateFilter `json:"filters,omitempty" gorm:"serializer:json"`
	FontID  *uint64          `json:"fontId,omitempty"`
	Fields  map[string]any   `json:"fields,omitempty" gorm:"serializer:json"` // recognized Recipe keys this Template sets
}

// Font is a named font definition (spec §3).
type Font struct {
	ID             uint64            `json:"id" gorm:"primaryKey"`
	Name           string            `json:"name" gorm:"uniqueIndex"`
	File           string            `json:"file,omitempty"` // path on disk, empty if unset
	Color          string            `json:"color"`
	SizeScalar     float64           `json:"sizeScalar" gorm:"default:1"`
	Kerning        float64           `json:"kerning"`
	StrokeWidth    float64           `json:"strokeWidth"`
	InterlineShift float64           `json:"interlineShift"`
	VerticalShift  float64           `json:"verticalShift"`
	CaseTransform  string            `json:"caseTransform"` // "upper", "lower", "title", "source"
	Replacements   map[string]string `json:"replacements,omitempty" gorm:"serializer:json"`
	DeleteMissing  bool              `json:"deleteMissing"`
}

// Card is a built artifact (spec §3). At most one Card is active per
// (episode, library); historical rows may remain for statistics.
type Card struct {
	ID          uint64    `json:"id" gorm:"primaryKey"`
	EpisodeID   uint64    `json:"episodeId" gorm:"index"`
	Library     Library   `json:"library" gorm:"embedded;embeddedPrefix:library_"`
	FilePath    string    `json:"filePath"`
	FileSize    int64     `json:"fileSize"`
	Fingerprint string    `json:"fingerprint" gorm:"index"`
	RecipeJSON  string    `json:"recipeJson,omitempty"`
	Active      bool      `json:"active" gorm:"default:false"`
	BuiltAt     time.Time `json:"builtAt"`
}

// Connection is a configured remote endpoint (spec §3).
type Connection struct {
	InterfaceID int               `json:"interfaceId" gorm:"primaryKey"`
	Kind        SourceKind        `json:"kind" gorm:"type:varchar(32)"`
	URL         string            `json:"url"`
	Credentials map[string]string `json:"-" gorm:"serializer:json"`
	Options     map[string]any    `json:"options,omitempty" gorm:"serializer:json"`
	Active      bool              `json:"active" gorm:"default:true"`
}

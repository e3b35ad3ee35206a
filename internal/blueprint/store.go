package blueprint

import "github.com/tcmaker/core/internal/domain"

// Store is the persistence seam Export reads from and Import writes
// through. The relational store itself is out of scope (spec §1); a
// concrete implementation backs this onto whatever transactional store
// holds the entity graph of spec §3.
type Store interface {
	Series(seriesID uint64) (*domain.Series, error)
	Episodes(seriesID uint64) ([]*domain.Episode, error)
	Template(templateID uint64) (*domain.Template, error)
	Font(fontID uint64) (*domain.Font, error)
	// FontFile returns the raw bytes of font.File, or (nil, nil) if the
	// font has no bundled file.
	FontFile(font *domain.Font) ([]byte, error)

	CreateFont(f *domain.Font) (uint64, error)
	// SetFontFile records the on-disk path of a bundled font file after
	// Import has written it (the path embeds the font's own freshly
	// assigned id, so it cannot be known before CreateFont returns).
	SetFontFile(fontID uint64, path string) error
	CreateTemplate(t *domain.Template) (uint64, error)
	UpdateSeries(s *domain.Series) error
	UpdateEpisode(e *domain.Episode) error

	// DeleteFont/DeleteTemplate undo a CreateFont/CreateTemplate made
	// earlier in the same Import, used for transactional rollback.
	DeleteFont(id uint64) error
	DeleteTemplate(id uint64) error
}

// FontWriter persists a bundled font file to the asset tree, keyed by the
// newly assigned font id (spec §4.9: "<assets>/fonts/<new font id>/<filename>").
type FontWriter interface {
	WriteBundled(destRelPath string, data []byte) (string, error)
}

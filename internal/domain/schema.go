package domain

import "gorm.io/gorm"

// AutoMigrate creates or updates the relational schema backing Series,
// Episode, Template, Font, Card and Connection for a persistence-backed
// build. Persistence itself is out of scope (spec §1) — core only owns
// the gorm-tagged entity shape (SPEC_FULL §"Domain entities"); this is
// the one seam a store-backed build calls, grounded on
// database/db.go's db.AutoMigrate(&models.User{}, ...) call.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Series{},
		&Episode{},
		&Template{},
		&Font{},
		&Card{},
		&Connection{},
	)
}

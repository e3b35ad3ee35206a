// Package cardtype implements the Card-Type Plugin Loader of spec §4.6:
// a capability-set CardType interface with Local and Remote variants, and
// a Loader that resolves an identifier to one.
package cardtype

import (
	"context"

	"github.com/tcmaker/core/internal/resolve"
)

// Option describes one recipe field a CardType accepts, used by
// ValidateOptions for its required-field and type checks (spec §4.6).
type Option struct {
	Name     string
	Required bool
	Kind     string // "string", "bool", "float", "int", "color", "font_ref"
}

// CardType is the capability set spec §4.6 names:
// {name, supported_options, validate(recipe), render(recipe) -> bytes}.
type CardType interface {
	Name() string
	SupportedOptions() []Option
	Validate(recipe resolve.Recipe) error
	Render(ctx context.Context, recipe resolve.Recipe) ([]byte, error)
}

// Identifier is a parsed card-type reference: either a bare built-in name
// ("standard") or a "<username>/<class_name>" remote reference
// (spec §4.6).
type Identifier struct {
	Username  string // empty for a built-in/local type
	ClassName string
}

// IsRemote reports whether this identifier names a remote card type.
func (id Identifier) IsRemote() bool { return id.Username != "" }

// String renders the identifier back to its canonical form.
func (id Identifier) String() string {
	if id.Username == "" {
		return id.ClassName
	}
	return id.Username + "/" + id.ClassName
}

// ParseIdentifier splits a "<username>/<class_name>" or bare local name
// into an Identifier.
func ParseIdentifier(s string) Identifier {
	for i := 0; i < len(s); i++ {
		if s[i] == '/' {
			return Identifier{Username: s[:i], ClassName: s[i+1:]}
		}
	}
	return Identifier{ClassName: s}
}

package cardtype

import (
	"context"

	"github.com/tcmaker/core/internal/resolve"
)

// RenderFunc is a built-in card type's actual image-composition kernel.
// The kernel itself is out of scope (spec §1); renderers here are thin
// stand-ins a real implementation would replace, but the coordination
// contract around them — name/options/validate/render — is fully built.
type RenderFunc func(ctx context.Context, recipe resolve.Recipe) ([]byte, error)

// Local is a built-in CardType, statically registered at process start.
type Local struct {
	name    string
	options []Option
	render  RenderFunc
}

// NewLocal constructs a built-in CardType.
func NewLocal(name string, options []Option, render RenderFunc) *Local {
	return &Local{name: name, options: options, render: render}
}

func (l *Local) Name() string              { return l.name }
func (l *Local) SupportedOptions() []Option { return l.options }

func (l *Local) Validate(recipe resolve.Recipe) error {
	return ValidateOptions(l.options, recipe)
}

func (l *Local) Render(ctx context.Context, recipe resolve.Recipe) ([]byte, error) {
	if err := l.Validate(recipe); err != nil {
		return nil, err
	}
	return l.render(ctx, recipe)
}

// StandardOptions returns the option set shared by TCM's stock card
// types (title texts, hide-flags, font overrides, kerning, stroke width,
// vertical shift, season-text mapping — spec §4.3's Recipe field list).
func StandardOptions() []Option {
	return []Option{
		{Name: "title_text", Kind: "string"},
		{Name: "season_text", Kind: "string"},
		{Name: "hide_season_text", Kind: "bool"},
		{Name: "hide_episode_text", Kind: "bool"},
		{Name: "font_color", Kind: "color"},
		{Name: "font_size_scalar", Kind: "float"},
		{Name: "font_kerning", Kind: "float"},
		{Name: "font_stroke_width", Kind: "float"},
		{Name: "font_vertical_shift", Kind: "float"},
		{Name: "blur", Kind: "bool"},
		{Name: "grayscale", Kind: "bool"},
		{Name: "source_file", Required: true, Kind: "string"},
		{Name: "logo_file", Kind: "string"},
	}
}

// Package template defines the visual schema a card is rendered against:
// positioned element boxes, font roles, the frame image and color grading.
package template

import (
	"errors"
	"fmt"
	"time"
)

// Element names with a fixed slot in every template.
const (
	Title           = "title"
	ManaCost        = "manaCost"
	Art             = "art"
	TypeLine        = "typeLine"
	SetSymbol       = "setSymbol"
	TextBox         = "textBox"
	PTBox           = "ptBox"
	CollectorNumber = "collectorNumber"
	Artist          = "artist"
)

// BuiltinElements lists the fixed elements in render order.
var BuiltinElements = []string{
	Art, Title, ManaCost, TypeLine, SetSymbol, TextBox, PTBox, CollectorNumber, Artist,
}

// Font roles used by the built-in elements.
const (
	RoleTitle           = "title"
	RoleManaCost        = "manaCost"
	RoleTypeLine        = "typeLine"
	RoleRulesText       = "rulesText"
	RoleFlavorText      = "flavorText"
	RolePT              = "pt"
	RoleArtist          = "artist"
	RoleCollectorNumber = "collectorNumber"
)

// Manipulation bounds, in percent of the card.
const (
	MinPosition = -50.0
	MaxPosition = 150.0
	MinWidth    = 5.0
	MinHeight   = 2.0
)

// Color grade defaults.
const (
	DefaultSaturation      = 1.0
	DefaultHueRotate       = 0.0
	DefaultGradientAngle   = 180.0
	DefaultGradientOpacity = 0.5
)

var (
	ErrValidation = errors.New("template validation error")
	ErrNotFound   = errors.New("template not found")
)

// Template is the reusable visual schema applied to card data.
type Template struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"ownerId"`
	AuthorName string    `json:"authorName,omitempty"`
	Name       string    `json:"name"`
	FrameImage string    `json:"frameImage,omitempty"`
	Elements   Elements  `json:"elements"`
	Fonts      FontMap   `json:"fonts"`
	ColorGrade           // flattened color grading parameters
	CreatedAt  time.Time `json:"createdAt,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt,omitempty"`
}

// ColorGrade holds the optional frame color adjustments. Nil pointers mean
// "not set" so a stored template round-trips without gaining defaults.
type ColorGrade struct {
	Saturation           *float64 `json:"saturation,omitempty"`
	HueRotateDegrees     *float64 `json:"hueRotateDegrees,omitempty"`
	GradientStart        string   `json:"gradientStartColor,omitempty"`
	GradientEnd          string   `json:"gradientEndColor,omitempty"`
	GradientAngleDegrees *float64 `json:"gradientAngleDegrees,omitempty"`
	GradientOpacity      *float64 `json:"gradientOpacity,omitempty"`
}

// Elements maps every built-in element name to its box, plus the
// template-declared custom elements.
type Elements struct {
	Title           ElementBox      `json:"title"`
	ManaCost        ElementBox      `json:"manaCost"`
	Art             ElementBox      `json:"art"`
	TypeLine        ElementBox      `json:"typeLine"`
	SetSymbol       ElementBox      `json:"setSymbol"`
	TextBox         ElementBox      `json:"textBox"`
	PTBox           ElementBox      `json:"ptBox"`
	CollectorNumber ElementBox      `json:"collectorNumber"`
	Artist          ElementBox      `json:"artist"`
	Custom          []CustomElement `json:"customElements,omitempty"`
}

// ElementBox is a region expressed in percent of the card dimensions.
type ElementBox struct {
	X               float64 `json:"x"`
	Y               float64 `json:"y"`
	Width           float64 `json:"width"`
	Height          float64 `json:"height"`
	RotationDegrees float64 `json:"rotation,omitempty"`
	Visible         *bool   `json:"visible,omitempty"`
}

// IsVisible reports false only for an explicit visible=false.
func (b ElementBox) IsVisible() bool {
	return b.Visible == nil || *b.Visible
}

// CustomElement binds a template region to a card custom field.
type CustomElement struct {
	Key       string     `json:"key"`
	Label     string     `json:"label,omitempty"`
	DataField string     `json:"dataField"`
	FontRole  string     `json:"fontRole"`
	Box       ElementBox `json:"box"`
}

// Field returns the custom field name consumed by the element. DataField
// falls back to the element key.
func (c CustomElement) Field() string {
	if c.DataField != "" {
		return c.DataField
	}
	return c.Key
}

// Box returns a pointer to the named element's box; custom elements are
// addressed by their key.
func (e *Elements) Box(name string) (*ElementBox, bool) {
	switch name {
	case Title:
		return &e.Title, true
	case ManaCost:
		return &e.ManaCost, true
	case Art:
		return &e.Art, true
	case TypeLine:
		return &e.TypeLine, true
	case SetSymbol:
		return &e.SetSymbol, true
	case TextBox:
		return &e.TextBox, true
	case PTBox:
		return &e.PTBox, true
	case CollectorNumber:
		return &e.CollectorNumber, true
	case Artist:
		return &e.Artist, true
	}
	for i := range e.Custom {
		if e.Custom[i].Key == name {
			return &e.Custom[i].Box, true
		}
	}
	return nil, false
}

// SaturationOrDefault returns the saturation clamped to [0,2].
func (g ColorGrade) SaturationOrDefault() float64 {
	if g.Saturation == nil {
		return DefaultSaturation
	}
	return clamp(*g.Saturation, 0, 2)
}

// HueRotateOrDefault returns the hue rotation clamped to [0,360].
func (g ColorGrade) HueRotateOrDefault() float64 {
	if g.HueRotateDegrees == nil {
		return DefaultHueRotate
	}
	return clamp(*g.HueRotateDegrees, 0, 360)
}

// GradientAngleOrDefault returns the gradient angle in degrees.
func (g ColorGrade) GradientAngleOrDefault() float64 {
	if g.GradientAngleDegrees == nil {
		return DefaultGradientAngle
	}
	return *g.GradientAngleDegrees
}

// GradientOpacityOrDefault returns the gradient opacity clamped to [0,1].
func (g ColorGrade) GradientOpacityOrDefault() float64 {
	if g.GradientOpacity == nil {
		return DefaultGradientOpacity
	}
	return clamp(*g.GradientOpacity, 0, 1)
}

// HasGradient reports whether both gradient colors are set.
func (g ColorGrade) HasGradient() bool {
	return g.GradientStart != "" && g.GradientEnd != ""
}

// Font returns the font for a role, falling back to the rules text font and
// then to a plain default so callers always get something drawable.
func (t *Template) Font(role string) FontSpec {
	if f, ok := t.Fonts[role]; ok {
		return f.withDefaults()
	}
	if f, ok := t.Fonts[RoleRulesText]; ok {
		return f.withDefaults()
	}
	return FontSpec{}.withDefaults()
}

// Validate checks the structural invariants of a template.
func (t *Template) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	for _, name := range BuiltinElements {
		b, _ := t.Elements.Box(name)
		if !b.IsVisible() {
			continue
		}
		if b.Width <= 0 || b.Height <= 0 {
			return fmt.Errorf("%w: element %q has no size", ErrValidation, name)
		}
	}
	seen := map[string]bool{}
	for _, c := range t.Elements.Custom {
		if c.Key == "" {
			return fmt.Errorf("%w: custom element without key", ErrValidation)
		}
		if seen[c.Key] {
			return fmt.Errorf("%w: duplicate custom element %q", ErrValidation, c.Key)
		}
		seen[c.Key] = true
	}
	for role, f := range t.Fonts {
		switch f.TextAlign {
		case "", AlignLeft, AlignCenter, AlignRight:
		default:
			return fmt.Errorf("%w: font %q has unknown alignment %q", ErrValidation, role, f.TextAlign)
		}
	}
	return nil
}

// Clone returns a deep copy, used when snapshotting a template into a
// saved card.
func (t *Template) Clone() *Template {
	if t == nil {
		return nil
	}
	c := *t
	c.Elements.Custom = append([]CustomElement(nil), t.Elements.Custom...)
	c.Fonts = make(FontMap, len(t.Fonts))
	for k, v := range t.Fonts {
		c.Fonts[k] = v
	}
	c.ColorGrade = ColorGrade{
		Saturation:           clonePtr(t.Saturation),
		HueRotateDegrees:     clonePtr(t.HueRotateDegrees),
		GradientStart:        t.GradientStart,
		GradientEnd:          t.GradientEnd,
		GradientAngleDegrees: clonePtr(t.GradientAngleDegrees),
		GradientOpacity:      clonePtr(t.GradientOpacity),
	}
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Float is a helper for building optional numeric fields.
func Float(v float64) *float64 { return &v }

// Bool is a helper for building optional flags.
func Bool(v bool) *bool { return &v }

package layout

import (
	"errors"
	"fmt"
	"strings"

	"github.com/youruser/cardsmith/internal/cards"
	"github.com/youruser/cardsmith/internal/symbols"
	"github.com/youruser/cardsmith/internal/template"
)

var (
	ErrNoTemplate   = errors.New("no template resolved")
	ErrInvalidScale = errors.New("scale must be positive")
)

// Element names for the nodes that have no template box.
const (
	FrameElement    = "frame"
	GradientElement = "gradient"
)

var rarityGlow = map[cards.Rarity]string{
	cards.Common:   "#000000",
	cards.Uncommon: "#C0C0C0",
	cards.Rare:     "#FFD700",
	cards.Mythic:   "#FF8C00",
}

// GlowColor returns the set symbol glow color for a rarity.
func GlowColor(r cards.Rarity) string {
	if c, ok := rarityGlow[r]; ok {
		return c
	}
	return rarityGlow[cards.Common]
}

// Renderer resolves symbol tokens against a registry.
type Renderer struct {
	Symbols *symbols.Registry
}

// Render lays out card against tpl with the built-in symbol registry.
func Render(tpl *template.Template, card *cards.CardData, scale float64) (*Tree, error) {
	return Renderer{Symbols: symbols.Builtin()}.Render(tpl, card, scale)
}

// ResolveTemplate finds the template for card.TemplateID. A miss is
// ErrNoTemplate; there is no fallback.
func ResolveTemplate(card *cards.CardData, lookup func(id string) (*template.Template, bool)) (*template.Template, error) {
	if card == nil || card.TemplateID == "" {
		return nil, fmt.Errorf("%w: card has no template id", ErrNoTemplate)
	}
	tpl, ok := lookup(card.TemplateID)
	if !ok || tpl == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoTemplate, card.TemplateID)
	}
	return tpl, nil
}

// Render lays out card against tpl. Neither input is modified.
func (r Renderer) Render(tpl *template.Template, card *cards.CardData, scale float64) (*Tree, error) {
	if tpl == nil {
		return nil, ErrNoTemplate
	}
	if scale <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScale, scale)
	}
	if card == nil {
		c := cards.New()
		card = &c
	}
	reg := r.Symbols
	if reg == nil {
		reg = symbols.Builtin()
	}
	b := builder{tpl: tpl, card: card, scale: scale, reg: reg}
	return b.build(), nil
}

type builder struct {
	tpl   *template.Template
	card  *cards.CardData
	scale float64
	reg   *symbols.Registry
	nodes []Node
}

func (b *builder) build() *Tree {
	full := Box{W: CardWidth * b.scale, H: CardHeight * b.scale}
	els := &b.tpl.Elements

	if els.Art.IsVisible() {
		if ref := b.card.Art.Drawn(); ref != "" {
			b.add(Node{Kind: KindArt, Element: template.Art, Z: ZArt, Box: b.box(els.Art), ImageRef: ref})
		}
	}

	if b.tpl.FrameImage != "" {
		b.add(Node{
			Kind: KindFrame, Element: FrameElement, Z: ZFrame, Box: full,
			ImageRef: b.tpl.FrameImage,
			Grade: &Grade{
				Saturation: b.tpl.SaturationOrDefault(),
				HueRotate:  b.tpl.HueRotateOrDefault(),
			},
		})
		if b.tpl.HasGradient() {
			b.add(Node{
				Kind: KindGradient, Element: GradientElement, Z: ZGradient, Box: full,
				Gradient: &Gradient{
					Start:        b.tpl.GradientStart,
					End:          b.tpl.GradientEnd,
					AngleDegrees: b.tpl.GradientAngleOrDefault(),
					Opacity:      b.tpl.GradientOpacityOrDefault(),
					MaskRef:      b.tpl.FrameImage,
				},
			})
		}
	}

	b.text(template.Title, els.Title, template.RoleTitle, b.card.Name)
	b.manaCost(els.ManaCost)
	b.text(template.TypeLine, els.TypeLine, template.RoleTypeLine, TypeLineText(b.card))
	b.setSymbol(els.SetSymbol)
	b.textBox(els.TextBox)
	if b.card.CardType == cards.Creature {
		b.text(template.PTBox, els.PTBox, template.RolePT, b.card.Power+" / "+b.card.Toughness)
	}
	b.text(template.CollectorNumber, els.CollectorNumber, template.RoleCollectorNumber, b.card.CollectorNumber)
	artist := ""
	if b.card.Artist != "" {
		artist = "Illus. " + b.card.Artist
	}
	b.text(template.Artist, els.Artist, template.RoleArtist, artist)

	for _, c := range els.Custom {
		v := b.card.Custom(c.Field())
		if v == "" {
			continue
		}
		b.text(c.Key, c.Box, c.FontRole, v)
	}

	return &Tree{
		Width:  full.W,
		Height: full.H,
		Scale:  b.scale,
		Nodes:  b.nodes,
	}
}

func (b *builder) add(n Node) { b.nodes = append(b.nodes, n) }

func (b *builder) box(e template.ElementBox) Box {
	return Box{
		X:        e.X / 100 * CardWidth * b.scale,
		Y:        e.Y / 100 * CardHeight * b.scale,
		W:        e.Width / 100 * CardWidth * b.scale,
		H:        e.Height / 100 * CardHeight * b.scale,
		Rotation: e.RotationDegrees,
	}
}

func (b *builder) font(role string) Font {
	f := b.tpl.Font(role)
	return Font{
		Family: f.Family,
		Size:   f.SizePx * b.scale,
		Color:  f.Color,
		Align:  f.TextAlign,
		Italic: f.Italic,
		Bold:   f.Bold,
	}
}

// lines splits s on newlines and tokenizes each line on its own.
func (b *builder) lines(s string) []Line {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, "\n")
	out := make([]Line, 0, len(parts))
	for _, p := range parts {
		out = append(out, Line(b.reg.Tokenize(p)))
	}
	return out
}

func (b *builder) text(element string, e template.ElementBox, role, s string) {
	if !e.IsVisible() {
		return
	}
	b.add(Node{
		Kind: KindText, Element: element, Z: ZContent, Box: b.box(e),
		Blocks: []Block{{Role: role, Font: b.font(role), Lines: b.lines(s)}},
	})
}

func (b *builder) textBox(e template.ElementBox) {
	if !e.IsVisible() {
		return
	}
	rules := Block{Role: template.RoleRulesText, Font: b.font(template.RoleRulesText), Lines: b.lines(b.card.RulesText)}
	blocks := []Block{rules}
	if b.card.FlavorText != "" {
		flavor := Block{Role: template.RoleFlavorText, Font: b.font(template.RoleFlavorText), Lines: b.lines(b.card.FlavorText)}
		if len(rules.Lines) > 0 {
			flavor.Gap = TextGap * b.scale
		}
		blocks = append(blocks, flavor)
	}
	b.add(Node{Kind: KindText, Element: template.TextBox, Z: ZContent, Box: b.box(e), Blocks: blocks})
}

func (b *builder) manaCost(e template.ElementBox) {
	if !e.IsVisible() {
		return
	}
	f := b.font(template.RoleManaCost)
	b.add(Node{
		Kind: KindSymbols, Element: template.ManaCost, Z: ZContent, Box: b.box(e),
		Symbols: b.reg.ManaCost(b.card.ManaCost), SymbolFont: &f,
	})
}

func (b *builder) setSymbol(e template.ElementBox) {
	if !e.IsVisible() {
		return
	}
	b.add(Node{
		Kind: KindSetSymbol, Element: template.SetSymbol, Z: ZContent, Box: b.box(e),
		ImageRef: b.card.SetSymbol,
		Glow:     &Glow{Color: GlowColor(b.card.Rarity), Radius: GlowRadius * b.scale},
	})
}

// TypeLineText formats "Creature — Elf" or just the card type.
func TypeLineText(c *cards.CardData) string {
	if c.Subtype == "" {
		return string(c.CardType)
	}
	return string(c.CardType) + " — " + c.Subtype
}

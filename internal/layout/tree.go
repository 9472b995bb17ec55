// Package layout turns a template and card data into the element tree a
// paint surface draws. Render is pure: the same inputs always produce the
// same tree.
package layout

import "github.com/youruser/cardsmith/internal/symbols"

// Canonical card size in layout units at scale 1.
const (
	CardWidth  = 375.0
	CardHeight = 525.0
)

// TextGap separates rules text from flavor text, in units at scale 1.
const TextGap = 8.0

// LineHeight is the line advance as a multiple of the font size.
const LineHeight = 1.2

// GlowRadius is the set symbol glow blur radius at scale 1.
const GlowRadius = 3.0

type Kind string

const (
	KindArt       Kind = "art"
	KindFrame     Kind = "frame"
	KindGradient  Kind = "gradient"
	KindText      Kind = "text"
	KindSymbols   Kind = "symbols"
	KindSetSymbol Kind = "setSymbol"
)

// Stacking layers, back to front.
const (
	ZArt      = 0
	ZFrame    = 1
	ZGradient = 2
	ZContent  = 3
)

// Tree is a fully resolved card in absolute pixels.
type Tree struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Scale  float64 `json:"scale"`
	Nodes  []Node  `json:"nodes"`
}

// Box is an absolute region; Rotation is in degrees around the box center.
type Box struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	W        float64 `json:"w"`
	H        float64 `json:"h"`
	Rotation float64 `json:"rotation,omitempty"`
}

// Font is a FontSpec with its size already scaled.
type Font struct {
	Family string  `json:"family"`
	Size   float64 `json:"size"`
	Color  string  `json:"color"`
	Align  string  `json:"align"`
	Italic bool    `json:"italic,omitempty"`
	Bold   bool    `json:"bold,omitempty"`
}

// Line is one tokenized line of text.
type Line []symbols.Segment

// Block is a run of lines sharing a font. Gap is the vertical space before
// the block.
type Block struct {
	Role  string  `json:"role"`
	Font  Font    `json:"font"`
	Lines []Line  `json:"lines"`
	Gap   float64 `json:"gap,omitempty"`
}

type Gradient struct {
	Start        string  `json:"start"`
	End          string  `json:"end"`
	AngleDegrees float64 `json:"angle"`
	Opacity      float64 `json:"opacity"`
	// MaskRef is the image whose alpha channel clips the gradient.
	MaskRef string `json:"maskRef"`
}

type Glow struct {
	Color  string  `json:"color"`
	Radius float64 `json:"radius"`
}

// Grade is the color adjustment applied to the frame image.
type Grade struct {
	Saturation float64 `json:"saturation"`
	HueRotate  float64 `json:"hueRotate"`
}

// Node is one drawable element.
type Node struct {
	Kind    Kind   `json:"kind"`
	Element string `json:"element"`
	Z       int    `json:"z"`
	Box     Box    `json:"box"`

	ImageRef string `json:"imageRef,omitempty"`
	Grade    *Grade `json:"grade,omitempty"`

	Gradient *Gradient `json:"gradient,omitempty"`

	Blocks []Block `json:"blocks,omitempty"`

	// Symbols and SymbolFont are set on mana cost nodes.
	Symbols    []symbols.Segment `json:"symbols,omitempty"`
	SymbolFont *Font             `json:"symbolFont,omitempty"`

	Glow *Glow `json:"glow,omitempty"`
}

// Find returns the first node for an element name.
func (t *Tree) Find(element string) (*Node, bool) {
	for i := range t.Nodes {
		if t.Nodes[i].Element == element {
			return &t.Nodes[i], true
		}
	}
	return nil, false
}

// Lines returns every line of the node's blocks in order.
func (n *Node) Lines() []Line {
	var out []Line
	for _, b := range n.Blocks {
		out = append(out, b.Lines...)
	}
	return out
}

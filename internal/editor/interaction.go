// Package editor holds the template editor's pointer interaction model and
// the explicit editing state that drives live previews.
package editor

import (
	"errors"
	"fmt"

	"github.com/youruser/cardsmith/internal/template"
)

var (
	ErrReadOnly      = errors.New("template is read-only for this user")
	ErrBusy          = errors.New("another element is being dragged")
	ErrNotDragging   = errors.New("no drag in progress")
	ErrUnknownTarget = errors.New("unknown element")
)

type Mode string

const (
	Idle     Mode = "idle"
	Selected Mode = "selected"
	Moving   Mode = "dragging(move)"
	Resizing Mode = "dragging(resize)"
)

// Handle identifies what was grabbed. HandleBody moves the element; the
// compass handles resize from that edge or corner.
type Handle string

const (
	HandleBody Handle = ""
	HandleN    Handle = "n"
	HandleS    Handle = "s"
	HandleE    Handle = "e"
	HandleW    Handle = "w"
	HandleNE   Handle = "ne"
	HandleNW   Handle = "nw"
	HandleSE   Handle = "se"
	HandleSW   Handle = "sw"
)

func (h Handle) valid() bool {
	switch h {
	case HandleBody, HandleN, HandleS, HandleE, HandleW, HandleNE, HandleNW, HandleSE, HandleSW:
		return true
	}
	return false
}

// Interaction tracks one editing session over a working copy of a template.
// Only one element can be dragged at a time.
type Interaction struct {
	tpl      *template.Template
	readOnly bool

	mode   Mode
	active string
	handle Handle

	start template.ElementBox
	dxPct float64
	dyPct float64
}

// NewInteraction starts a session for userID. Templates owned by someone
// else are read-only.
func NewInteraction(tpl *template.Template, userID string) *Interaction {
	return &Interaction{
		tpl:      tpl.Clone(),
		readOnly: tpl.OwnerID != "" && tpl.OwnerID != userID,
		mode:     Idle,
	}
}

func (in *Interaction) Mode() Mode     { return in.mode }
func (in *Interaction) Active() string { return in.active }
func (in *Interaction) ReadOnly() bool { return in.readOnly }

// Template returns a copy of the working template.
func (in *Interaction) Template() *template.Template { return in.tpl.Clone() }

// Select marks an element without starting a drag.
func (in *Interaction) Select(target string) error {
	if in.readOnly {
		return ErrReadOnly
	}
	if in.dragging() {
		return ErrBusy
	}
	if _, ok := in.tpl.Elements.Box(target); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTarget, target)
	}
	in.mode, in.active = Selected, target
	return nil
}

// Deselect returns to idle unless a drag is in progress.
func (in *Interaction) Deselect() {
	if !in.dragging() {
		in.mode, in.active = Idle, ""
	}
}

// PointerDown grabs target by its body or a resize handle.
func (in *Interaction) PointerDown(target string, h Handle) error {
	if in.readOnly {
		return ErrReadOnly
	}
	if in.dragging() {
		return ErrBusy
	}
	if !h.valid() {
		return fmt.Errorf("%w: handle %q", ErrUnknownTarget, h)
	}
	box, ok := in.tpl.Elements.Box(target)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTarget, target)
	}
	in.active, in.handle, in.start = target, h, *box
	in.dxPct, in.dyPct = 0, 0
	if h == HandleBody {
		in.mode = Moving
	} else {
		in.mode = Resizing
	}
	return nil
}

// PointerMove applies a pointer delta in pixels of a parent of the given
// size and returns the updated box. Deltas accumulate from the grab point,
// so clamping never loses ground when the pointer comes back.
func (in *Interaction) PointerMove(dxPx, dyPx, parentW, parentH float64) (template.ElementBox, error) {
	if in.readOnly {
		return template.ElementBox{}, ErrReadOnly
	}
	if !in.dragging() {
		return template.ElementBox{}, ErrNotDragging
	}
	if parentW > 0 {
		in.dxPct += dxPx / parentW * 100
	}
	if parentH > 0 {
		in.dyPct += dyPx / parentH * 100
	}
	box, _ := in.tpl.Elements.Box(in.active)
	if in.mode == Moving {
		*box = Move(in.start, in.dxPct, in.dyPct)
	} else {
		*box = Resize(in.start, in.handle, in.dxPct, in.dyPct)
	}
	return *box, nil
}

// PointerUp ends any drag and leaves the element selected.
func (in *Interaction) PointerUp() (template.ElementBox, error) {
	if in.readOnly {
		return template.ElementBox{}, ErrReadOnly
	}
	if !in.dragging() {
		return template.ElementBox{}, ErrNotDragging
	}
	in.mode, in.handle = Selected, HandleBody
	box, _ := in.tpl.Elements.Box(in.active)
	return *box, nil
}

func (in *Interaction) dragging() bool {
	return in.mode == Moving || in.mode == Resizing
}

// Move offsets a box by percentage deltas, clamping the position.
func Move(b template.ElementBox, dx, dy float64) template.ElementBox {
	b.X = clampPos(b.X + dx)
	b.Y = clampPos(b.Y + dy)
	return b
}

// Resize drags one edge or corner of a box by percentage deltas. Edges
// that would shrink the box under the minimum size stop there; the
// opposite edge never moves.
func Resize(b template.ElementBox, h Handle, dx, dy float64) template.ElementBox {
	right := b.X + b.Width
	bottom := b.Y + b.Height
	switch h {
	case HandleE, HandleNE, HandleSE:
		b.Width = max(b.Width+dx, template.MinWidth)
	case HandleW, HandleNW, HandleSW:
		b.X = clampPos(min(b.X+dx, right-template.MinWidth))
		b.Width = max(right-b.X, template.MinWidth)
	}
	switch h {
	case HandleS, HandleSE, HandleSW:
		b.Height = max(b.Height+dy, template.MinHeight)
	case HandleN, HandleNE, HandleNW:
		b.Y = clampPos(min(b.Y+dy, bottom-template.MinHeight))
		b.Height = max(bottom-b.Y, template.MinHeight)
	}
	return b
}

func clampPos(v float64) float64 {
	return min(max(v, template.MinPosition), template.MaxPosition)
}

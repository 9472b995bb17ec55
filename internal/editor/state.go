package editor

import (
	"fmt"

	"github.com/youruser/cardsmith/internal/cards"
	"github.com/youruser/cardsmith/internal/layout"
	"github.com/youruser/cardsmith/internal/template"
)

// State is an immutable snapshot of one editing session. Every action
// returns a new State; the receiver is never modified, so a snapshot can be
// handed to the renderer while editing continues.
type State struct {
	UserID   string             `json:"userId"`
	Template *template.Template `json:"template,omitempty"`
	Card     cards.CardData     `json:"card"`
	Selected string             `json:"selected,omitempty"`
	// Warnings collects non-blocking notices, such as art that was applied
	// locally but could not be saved to the asset library.
	Warnings []string `json:"warnings,omitempty"`
}

// NewState starts a session with a fresh card.
func NewState(userID string, tpl *template.Template) State {
	s := State{UserID: userID, Card: cards.New()}
	if tpl != nil {
		s.Template = tpl.Clone()
		s.Card.TemplateID = tpl.ID
	}
	return s
}

// Load starts a session from a saved card and its template snapshot.
func Load(userID string, tpl *template.Template, card cards.CardData) State {
	s := State{UserID: userID, Template: tpl.Clone(), Card: card.Clone()}
	s.Card.Normalize()
	return s
}

func (s State) clone() State {
	out := s
	out.Card = s.Card.Clone()
	out.Warnings = append([]string(nil), s.Warnings...)
	return out
}

// ReadOnly reports whether the current template belongs to someone else.
func (s State) ReadOnly() bool {
	return s.Template != nil && s.Template.OwnerID != "" && s.Template.OwnerID != s.UserID
}

// SetField sets one scalar card field by its JSON name.
func (s State) SetField(field, value string) (State, error) {
	out := s.clone()
	c := &out.Card
	switch field {
	case "name":
		c.Name = value
	case "manaCost":
		c.ManaCost = value
	case "cardType":
		c.CardType = cards.CardType(value)
	case "subtype":
		c.Subtype = value
	case "rulesText":
		c.RulesText = value
	case "flavorText":
		c.FlavorText = value
	case "power":
		c.Power = value
	case "toughness":
		c.Toughness = value
	case "rarity":
		c.Rarity = cards.Rarity(value)
	case "artist":
		c.Artist = value
	case "collectorNumber":
		c.CollectorNumber = value
	case "setSymbol":
		c.SetSymbol = value
	default:
		return s, fmt.Errorf("%w: unknown field %q", cards.ErrInvalidCard, field)
	}
	if err := c.Validate(); err != nil {
		return s, err
	}
	return out, nil
}

// SetCustomField sets a custom field; an empty value removes it.
func (s State) SetCustomField(key, value string) State {
	out := s.clone()
	if value == "" {
		delete(out.Card.CustomFields, key)
	} else {
		out.Card.CustomFields[key] = value
	}
	return out
}

// SetArt replaces both art references.
func (s State) SetArt(art cards.Art) State {
	out := s.clone()
	out.Card.Art = art
	return out
}

// Warn appends a non-blocking notice.
func (s State) Warn(msg string) State {
	out := s.clone()
	out.Warnings = append(out.Warnings, msg)
	return out
}

// SelectTemplate switches the card to another template.
func (s State) SelectTemplate(tpl *template.Template) State {
	out := s.clone()
	out.Template = tpl.Clone()
	out.Selected = ""
	if tpl != nil {
		out.Card.TemplateID = tpl.ID
	} else {
		out.Card.TemplateID = ""
	}
	return out
}

// Select marks an element as the editor's current selection.
func (s State) Select(element string) (State, error) {
	if s.Template == nil {
		return s, layout.ErrNoTemplate
	}
	if _, ok := s.Template.Elements.Box(element); !ok {
		return s, fmt.Errorf("%w: %s", ErrUnknownTarget, element)
	}
	out := s.clone()
	out.Selected = element
	return out, nil
}

// ApplyDrag stores the box produced by a finished drag.
func (s State) ApplyDrag(element string, box template.ElementBox) (State, error) {
	if s.Template == nil {
		return s, layout.ErrNoTemplate
	}
	if s.ReadOnly() {
		return s, ErrReadOnly
	}
	out := s.clone()
	out.Template = s.Template.Clone()
	b, ok := out.Template.Elements.Box(element)
	if !ok {
		return s, fmt.Errorf("%w: %s", ErrUnknownTarget, element)
	}
	box.X = clampPos(box.X)
	box.Y = clampPos(box.Y)
	box.Width = max(box.Width, template.MinWidth)
	box.Height = max(box.Height, template.MinHeight)
	*b = box
	out.Selected = element
	return out, nil
}

// Preview recomputes the layout tree from the current snapshot.
func (s State) Preview(scale float64) (*layout.Tree, error) {
	return s.PreviewWith(layout.Renderer{}, scale)
}

// PreviewWith is Preview with symbols resolved by r.
func (s State) PreviewWith(r layout.Renderer, scale float64) (*layout.Tree, error) {
	return r.Render(s.Template, &s.Card, scale)
}

package editor

import (
	"fmt"

	"github.com/youruser/cardsmith/internal/cards"
	"github.com/youruser/cardsmith/internal/template"
)

type ActionType string

const (
	ActSetField       ActionType = "setField"
	ActSetCustomField ActionType = "setCustomField"
	ActSetArt         ActionType = "setArt"
	ActSelect         ActionType = "select"
	ActApplyDrag      ActionType = "applyDrag"
	// ActWarn records a notice, e.g. art kept locally after its upload
	// to the library failed.
	ActWarn ActionType = "warn"
)

// Action is the wire form of a State action, so clients can replay a
// batch of edits against a snapshot.
type Action struct {
	Type    ActionType           `json:"type"`
	Field   string               `json:"field,omitempty"`
	Value   string               `json:"value,omitempty"`
	Art     *cards.Art           `json:"art,omitempty"`
	Element string               `json:"element,omitempty"`
	Box     *template.ElementBox `json:"box,omitempty"`
}

// ErrBadAction wraps malformed actions.
var ErrBadAction = fmt.Errorf("%w: bad action", cards.ErrInvalidCard)

// Apply dispatches one action.
func (s State) Apply(a Action) (State, error) {
	switch a.Type {
	case ActSetField:
		return s.SetField(a.Field, a.Value)
	case ActSetCustomField:
		if a.Field == "" {
			return s, fmt.Errorf("%w: custom field key is required", ErrBadAction)
		}
		return s.SetCustomField(a.Field, a.Value), nil
	case ActSetArt:
		if a.Art == nil {
			return s, fmt.Errorf("%w: art is required", ErrBadAction)
		}
		return s.SetArt(*a.Art), nil
	case ActSelect:
		return s.Select(a.Element)
	case ActApplyDrag:
		if a.Box == nil {
			return s, fmt.Errorf("%w: box is required", ErrBadAction)
		}
		return s.ApplyDrag(a.Element, *a.Box)
	case ActWarn:
		if a.Value == "" {
			return s, fmt.Errorf("%w: warning text is required", ErrBadAction)
		}
		return s.Warn(a.Value), nil
	}
	return s, fmt.Errorf("%w: unknown type %q", ErrBadAction, a.Type)
}

// ApplyAll applies actions in order and stops at the first failure.
func (s State) ApplyAll(actions []Action) (State, error) {
	var err error
	for i, a := range actions {
		if s, err = s.Apply(a); err != nil {
			return s, fmt.Errorf("action %d: %w", i, err)
		}
	}
	return s, nil
}

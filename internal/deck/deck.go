package deck

import (
	"time"

	"github.com/youruser/cardsmith/internal/cards"
	"github.com/youruser/cardsmith/internal/template"
)

// SavedCard is a card stored in a deck together with the template it was
// designed against. The template is a snapshot so later template edits do
// not change saved cards.
type SavedCard struct {
	ID        string            `json:"id"`
	DeckID    string            `json:"deckId"`
	Position  int               `json:"position"`
	Card      cards.CardData    `json:"card"`
	Template  template.Template `json:"template"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

type Deck struct {
	ID          string      `json:"id"`
	OwnerID     string      `json:"ownerId"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Cards       []SavedCard `json:"cards"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// CardData returns the card contents in deck order.
func (d *Deck) CardData() []cards.CardData {
	out := make([]cards.CardData, len(d.Cards))
	for i, sc := range d.Cards {
		out[i] = sc.Card
	}
	return out
}

// Find returns the saved card with the given id.
func (d *Deck) Find(cardID string) (SavedCard, bool) {
	for _, sc := range d.Cards {
		if sc.ID == cardID {
			return sc, true
		}
	}
	return SavedCard{}, false
}

// Search filters the deck's cards, keeping deck order.
func (d *Deck) Search(opt cards.FilterOptions) []SavedCard {
	var out []SavedCard
	for _, sc := range d.Cards {
		if len(cards.Filter([]cards.CardData{sc.Card}, opt)) == 1 {
			out = append(out, sc)
		}
	}
	return out
}

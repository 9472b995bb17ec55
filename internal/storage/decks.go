package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/youruser/cardsmith/internal/cards"
	"github.com/youruser/cardsmith/internal/deck"
	"github.com/youruser/cardsmith/internal/template"
)

// GetDecks lists the owner's decks without their cards.
func (s *Store) GetDecks(ctx context.Context, ownerID string) ([]deck.Deck, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, name, description, created_at, updated_at
		 FROM decks WHERE owner_id = ? ORDER BY created_at, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query decks: %w", err)
	}
	defer rows.Close()

	var out []deck.Deck
	for rows.Next() {
		d, err := scanDeck(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetDeck returns a deck with its cards in position order. Decks are
// private to their owner.
func (s *Store) GetDeck(ctx context.Context, id, userID string) (deck.Deck, error) {
	d, err := scanDeck(s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, name, description, created_at, updated_at FROM decks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return deck.Deck{}, fmt.Errorf("deck %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return deck.Deck{}, err
	}
	if d.OwnerID != userID {
		return deck.Deck{}, fmt.Errorf("deck %s: %w", id, ErrForbidden)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, deck_id, position, card, template, created_at, updated_at
		 FROM saved_cards WHERE deck_id = ? ORDER BY position`, id)
	if err != nil {
		return deck.Deck{}, fmt.Errorf("query cards: %w", err)
	}
	defer rows.Close()
	d.Cards = []deck.SavedCard{}
	for rows.Next() {
		sc, err := scanSavedCard(rows)
		if err != nil {
			return deck.Deck{}, err
		}
		d.Cards = append(d.Cards, sc)
	}
	return d, rows.Err()
}

func (s *Store) CreateDeck(ctx context.Context, ownerID, name, description string) (deck.Deck, error) {
	if name == "" {
		return deck.Deck{}, fmt.Errorf("%w: deck name is required", ErrValidation)
	}
	now := s.stamp()
	d := deck.Deck{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Name:        name,
		Description: description,
		Cards:       []deck.SavedCard{},
		CreatedAt:   parseTime(now),
		UpdatedAt:   parseTime(now),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO decks (id, owner_id, name, description, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		d.ID, d.OwnerID, d.Name, d.Description, now, now)
	if err != nil {
		return deck.Deck{}, fmt.Errorf("insert deck: %w", err)
	}
	return d, nil
}

// RenameDeck updates the deck name and description.
func (s *Store) RenameDeck(ctx context.Context, id, userID, name, description string) error {
	if name == "" {
		return fmt.Errorf("%w: deck name is required", ErrValidation)
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := checkOwner(ctx, tx, "decks", id, userID); err != nil {
			return fmt.Errorf("deck %s: %w", id, err)
		}
		_, err := tx.ExecContext(ctx, `UPDATE decks SET name = ?, description = ?, updated_at = ? WHERE id = ?`,
			name, description, s.stamp(), id)
		return err
	})
}

// DeleteDeck removes the deck and, by cascade, its saved cards.
func (s *Store) DeleteDeck(ctx context.Context, id, userID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := checkOwner(ctx, tx, "decks", id, userID); err != nil {
			return fmt.Errorf("deck %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM saved_cards WHERE deck_id = ?`, id); err != nil {
			return fmt.Errorf("delete deck cards: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM decks WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete deck: %w", err)
		}
		return nil
	})
}

// AddCardToDeck appends a card with a snapshot of its template.
func (s *Store) AddCardToDeck(ctx context.Context, deckID, userID string, card cards.CardData, tpl *template.Template) (deck.SavedCard, error) {
	if tpl == nil {
		return deck.SavedCard{}, fmt.Errorf("%w: card needs a template snapshot", ErrValidation)
	}
	if err := card.Validate(); err != nil {
		return deck.SavedCard{}, err
	}
	card.Normalize()
	card.TemplateID = tpl.ID
	cardJSON, tplJSON, err := encodeSaved(card, tpl)
	if err != nil {
		return deck.SavedCard{}, err
	}

	now := s.stamp()
	sc := deck.SavedCard{
		ID:        uuid.NewString(),
		DeckID:    deckID,
		Card:      card,
		Template:  *tpl.Clone(),
		CreatedAt: parseTime(now),
		UpdatedAt: parseTime(now),
	}
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if err := checkOwner(ctx, tx, "decks", deckID, userID); err != nil {
			return fmt.Errorf("deck %s: %w", deckID, err)
		}
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(position) + 1, 0) FROM saved_cards WHERE deck_id = ?`, deckID).Scan(&sc.Position); err != nil {
			return fmt.Errorf("next position: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO saved_cards (id, deck_id, position, card, template, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			sc.ID, deckID, sc.Position, cardJSON, tplJSON, now, now); err != nil {
			return fmt.Errorf("insert card: %w", err)
		}
		return touchDeck(ctx, tx, deckID, now)
	})
	if err != nil {
		return deck.SavedCard{}, err
	}
	return sc, nil
}

// UpdateCardInDeck replaces the card data and template snapshot of a saved
// card, keeping its position.
func (s *Store) UpdateCardInDeck(ctx context.Context, deckID, cardID, userID string, card cards.CardData, tpl *template.Template) (deck.SavedCard, error) {
	if tpl == nil {
		return deck.SavedCard{}, fmt.Errorf("%w: card needs a template snapshot", ErrValidation)
	}
	if err := card.Validate(); err != nil {
		return deck.SavedCard{}, err
	}
	card.Normalize()
	card.TemplateID = tpl.ID
	cardJSON, tplJSON, err := encodeSaved(card, tpl)
	if err != nil {
		return deck.SavedCard{}, err
	}

	var sc deck.SavedCard
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if err := checkOwner(ctx, tx, "decks", deckID, userID); err != nil {
			return fmt.Errorf("deck %s: %w", deckID, err)
		}
		now := s.stamp()
		res, err := tx.ExecContext(ctx,
			`UPDATE saved_cards SET card = ?, template = ?, updated_at = ? WHERE id = ? AND deck_id = ?`,
			cardJSON, tplJSON, now, cardID, deckID)
		if err != nil {
			return fmt.Errorf("update card: %w", err)
		}
		if err := rowsAffected(res); err != nil {
			return fmt.Errorf("card %s: %w", cardID, err)
		}
		sc, err = scanSavedCard(tx.QueryRowContext(ctx,
			`SELECT id, deck_id, position, card, template, created_at, updated_at FROM saved_cards WHERE id = ?`, cardID))
		if err != nil {
			return err
		}
		return touchDeck(ctx, tx, deckID, now)
	})
	return sc, err
}

// RemoveCardFromDeck deletes a saved card and closes the gap in positions.
func (s *Store) RemoveCardFromDeck(ctx context.Context, deckID, cardID, userID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := checkOwner(ctx, tx, "decks", deckID, userID); err != nil {
			return fmt.Errorf("deck %s: %w", deckID, err)
		}
		var pos int
		err := tx.QueryRowContext(ctx,
			`SELECT position FROM saved_cards WHERE id = ? AND deck_id = ?`, cardID, deckID).Scan(&pos)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("card %s: %w", cardID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("read card: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM saved_cards WHERE id = ?`, cardID); err != nil {
			return fmt.Errorf("delete card: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE saved_cards SET position = position - 1 WHERE deck_id = ? AND position > ?`, deckID, pos); err != nil {
			return fmt.Errorf("reorder cards: %w", err)
		}
		return touchDeck(ctx, tx, deckID, s.stamp())
	})
}

func touchDeck(ctx context.Context, tx *sql.Tx, deckID, now string) error {
	if _, err := tx.ExecContext(ctx, `UPDATE decks SET updated_at = ? WHERE id = ?`, now, deckID); err != nil {
		return fmt.Errorf("touch deck: %w", err)
	}
	return nil
}

func encodeSaved(card cards.CardData, tpl *template.Template) (string, string, error) {
	c, err := json.Marshal(card)
	if err != nil {
		return "", "", fmt.Errorf("encode card: %w", err)
	}
	t, err := json.Marshal(tpl)
	if err != nil {
		return "", "", fmt.Errorf("encode template snapshot: %w", err)
	}
	return string(c), string(t), nil
}

func scanDeck(sc scanner) (deck.Deck, error) {
	var d deck.Deck
	var created, updated string
	if err := sc.Scan(&d.ID, &d.OwnerID, &d.Name, &d.Description, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return d, err
		}
		return d, fmt.Errorf("scan deck: %w", err)
	}
	d.CreatedAt, d.UpdatedAt = parseTime(created), parseTime(updated)
	return d, nil
}

func scanSavedCard(sc scanner) (deck.SavedCard, error) {
	var out deck.SavedCard
	var cardJSON, tplJSON, created, updated string
	if err := sc.Scan(&out.ID, &out.DeckID, &out.Position, &cardJSON, &tplJSON, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return out, ErrNotFound
		}
		return out, fmt.Errorf("scan card: %w", err)
	}
	// the legacy artUrl shape is folded in by CardData.UnmarshalJSON
	if err := json.Unmarshal([]byte(cardJSON), &out.Card); err != nil {
		return out, fmt.Errorf("decode card %s: %w", out.ID, err)
	}
	if err := json.Unmarshal([]byte(tplJSON), &out.Template); err != nil {
		return out, fmt.Errorf("decode template snapshot %s: %w", out.ID, err)
	}
	out.CreatedAt, out.UpdatedAt = parseTime(created), parseTime(updated)
	return out, nil
}

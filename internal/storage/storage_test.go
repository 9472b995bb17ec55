package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/youruser/cardsmith/internal/cards"
	"github.com/youruser/cardsmith/internal/template"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(DefaultConfig(filepath.Join(t.TempDir(), "nested", "test.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newUser(t *testing.T, s *Store, name string) User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), name, "hash-"+name)
	require.NoError(t, err)
	return u
}

func newTemplate(t *testing.T, s *Store, owner string) *template.Template {
	t.Helper()
	tpl := template.Default()
	tpl.OwnerID = owner
	tpl.Name = "Classic"
	tpl.FrameImage = "/assets/frame.png"
	out, err := s.CreateTemplate(context.Background(), tpl)
	require.NoError(t, err)
	return out
}

func TestMigratorVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	mg, err := NewMigrator(path)
	require.NoError(t, err)
	defer mg.Close()

	require.NoError(t, mg.Up())
	require.NoError(t, mg.Up())
	v, dirty, err := mg.Version()
	require.NoError(t, err)
	assert.EqualValues(t, 1, v)
	assert.False(t, dirty)

	require.NoError(t, mg.Down())
	v, _, err = mg.Version()
	require.NoError(t, err)
	assert.EqualValues(t, 0, v)
}

func TestUsers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := newUser(t, s, "alice")
	assert.NotEmpty(t, u.ID)
	assert.False(t, u.CreatedAt.IsZero())

	_, err := s.CreateUser(ctx, "alice", "x")
	assert.ErrorIs(t, err, ErrConflict)

	got, err := s.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "hash-alice", got.PasswordHash)

	_, err = s.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTemplateCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := newUser(t, s, "alice")
	bob := newUser(t, s, "bob")

	tpl := newTemplate(t, s, alice.ID)
	tpl.Saturation = template.Float(1.4)

	got, err := s.GetTemplate(ctx, tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, "Classic", got.Name)
	assert.Equal(t, alice.ID, got.OwnerID)
	assert.Equal(t, tpl.Elements, got.Elements)
	assert.Nil(t, got.Saturation)

	list, err := s.GetTemplates(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	list, err = s.GetTemplates(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
	list, err = s.GetTemplates(ctx, "")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	tpl.Name = "Renamed"
	_, err = s.UpdateTemplate(ctx, tpl, bob.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := s.UpdateTemplate(ctx, tpl, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	got, err = s.GetTemplate(ctx, tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	require.NotNil(t, got.Saturation)
	assert.Equal(t, 1.4, *got.Saturation)
	assert.Equal(t, tpl.CreatedAt, got.CreatedAt)

	assert.ErrorIs(t, s.DeleteTemplate(ctx, tpl.ID, bob.ID), ErrForbidden)
	require.NoError(t, s.DeleteTemplate(ctx, tpl.ID, alice.ID))
	_, err = s.GetTemplate(ctx, tpl.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteTemplate(ctx, tpl.ID, alice.ID), ErrNotFound)
}

func TestCreateTemplateValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := newUser(t, s, "alice")

	_, err := s.CreateTemplate(ctx, template.Default())
	assert.ErrorIs(t, err, ErrValidation)

	bad := template.Default()
	bad.OwnerID = alice.ID
	bad.Elements.Title.Width = 0
	_, err = s.CreateTemplate(ctx, bad)
	assert.ErrorIs(t, err, template.ErrValidation)
}

func TestDeckLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := newUser(t, s, "alice")
	bob := newUser(t, s, "bob")
	tpl := newTemplate(t, s, alice.ID)

	d, err := s.CreateDeck(ctx, alice.ID, "Angels", "white weenie")
	require.NoError(t, err)
	_, err = s.CreateDeck(ctx, alice.ID, "", "")
	assert.ErrorIs(t, err, ErrValidation)

	var ids []string
	for _, name := range []string{"Serra Angel", "Wrath of God", "Plains"} {
		c := cards.New()
		c.Name = name
		sc, err := s.AddCardToDeck(ctx, d.ID, alice.ID, c, tpl)
		require.NoError(t, err)
		assert.Equal(t, len(ids), sc.Position)
		assert.Equal(t, tpl.ID, sc.Card.TemplateID)
		ids = append(ids, sc.ID)
	}

	_, err = s.AddCardToDeck(ctx, d.ID, bob.ID, cards.New(), tpl)
	assert.ErrorIs(t, err, ErrForbidden)
	bad := cards.New()
	bad.Rarity = "Legendary"
	_, err = s.AddCardToDeck(ctx, d.ID, alice.ID, bad, tpl)
	assert.ErrorIs(t, err, cards.ErrInvalidCard)

	got, err := s.GetDeck(ctx, d.ID, alice.ID)
	require.NoError(t, err)
	require.Len(t, got.Cards, 3)
	assert.Equal(t, "Wrath of God", got.Cards[1].Card.Name)
	assert.Equal(t, "Classic", got.Cards[1].Template.Name)
	_, err = s.GetDeck(ctx, d.ID, bob.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	edit := got.Cards[1].Card
	edit.Name = "Day of Judgment"
	sc, err := s.UpdateCardInDeck(ctx, d.ID, ids[1], alice.ID, edit, tpl)
	require.NoError(t, err)
	assert.Equal(t, 1, sc.Position)
	assert.Equal(t, "Day of Judgment", sc.Card.Name)
	_, err = s.UpdateCardInDeck(ctx, d.ID, "missing", alice.ID, edit, tpl)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.RemoveCardFromDeck(ctx, d.ID, ids[0], alice.ID))
	got, err = s.GetDeck(ctx, d.ID, alice.ID)
	require.NoError(t, err)
	require.Len(t, got.Cards, 2)
	assert.Equal(t, 0, got.Cards[0].Position)
	assert.Equal(t, "Day of Judgment", got.Cards[0].Card.Name)
	assert.Equal(t, 1, got.Cards[1].Position)
	assert.ErrorIs(t, s.RemoveCardFromDeck(ctx, d.ID, ids[0], alice.ID), ErrNotFound)

	require.NoError(t, s.RenameDeck(ctx, d.ID, alice.ID, "Angels v2", ""))
	decks, err := s.GetDecks(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, decks, 1)
	assert.Equal(t, "Angels v2", decks[0].Name)

	assert.ErrorIs(t, s.DeleteDeck(ctx, d.ID, bob.ID), ErrForbidden)
	require.NoError(t, s.DeleteDeck(ctx, d.ID, alice.ID))
	_, err = s.GetDeck(ctx, d.ID, alice.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSavedCardKeepsTemplateSnapshot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := newUser(t, s, "alice")
	tpl := newTemplate(t, s, alice.ID)
	d, err := s.CreateDeck(ctx, alice.ID, "Deck", "")
	require.NoError(t, err)
	_, err = s.AddCardToDeck(ctx, d.ID, alice.ID, cards.New(), tpl)
	require.NoError(t, err)

	tpl.Name = "Changed later"
	_, err = s.UpdateTemplate(ctx, tpl, alice.ID)
	require.NoError(t, err)

	got, err := s.GetDeck(ctx, d.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Classic", got.Cards[0].Template.Name)
}

func TestLegacyArtURLInStoredCard(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := newUser(t, s, "alice")
	d, err := s.CreateDeck(ctx, alice.ID, "Deck", "")
	require.NoError(t, err)

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO saved_cards (id, deck_id, position, card, template, created_at, updated_at)
		 VALUES ('old', ?, 0, '{"name":"Old","artUrl":"https://img.example/a.png"}', '{}', ?, ?)`,
		d.ID, formatTime(time.Now()), formatTime(time.Now()))
	require.NoError(t, err)

	got, err := s.GetDeck(ctx, d.ID, alice.ID)
	require.NoError(t, err)
	require.Len(t, got.Cards, 1)
	assert.Equal(t, "https://img.example/a.png", got.Cards[0].Card.Art.Original)
	assert.Equal(t, "https://img.example/a.png", got.Cards[0].Card.Art.Cropped)
}

func TestAssets(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := newUser(t, s, "alice")
	bob := newUser(t, s, "bob")

	a, err := s.CreateAsset(ctx, AssetRef{
		OwnerID: alice.ID, URL: "/assets/alice/a.png", StorageKey: "alice/a.png",
		ContentType: "image/png", Size: 10, Width: 4, Height: 3,
	})
	require.NoError(t, err)
	b, err := s.CreateAsset(ctx, AssetRef{
		OwnerID: alice.ID, URL: "/assets/alice/b.png", StorageKey: "alice/b.png", ContentType: "image/png",
	})
	require.NoError(t, err)

	list, err := s.ListAssets(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	list, err = s.ListAssets(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = s.GetAsset(ctx, a.ID, bob.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	// a is used as card art, b is unused
	d, err := s.CreateDeck(ctx, alice.ID, "Deck", "")
	require.NoError(t, err)
	c := cards.New()
	c.Art = cards.Art{Original: a.URL, Cropped: a.URL}
	tpl := newTemplate(t, s, alice.ID)
	_, err = s.AddCardToDeck(ctx, d.ID, alice.ID, c, tpl)
	require.NoError(t, err)

	used, err := s.AssetInUse(ctx, a.URL)
	require.NoError(t, err)
	assert.True(t, used)

	// references from another user's template or saved card count too
	c2, err := s.CreateAsset(ctx, AssetRef{
		OwnerID: alice.ID, URL: "/assets/alice/c.png", StorageKey: "alice/c.png", ContentType: "image/png",
	})
	require.NoError(t, err)
	bobTpl := template.Default()
	bobTpl.OwnerID = bob.ID
	bobTpl.FrameImage = c2.URL
	_, err = s.CreateTemplate(ctx, bobTpl)
	require.NoError(t, err)
	_, err = s.DeleteAsset(ctx, c2.ID, alice.ID)
	assert.ErrorIs(t, err, ErrInUse)

	d2, err := s.CreateDeck(ctx, bob.ID, "Borrowed", "")
	require.NoError(t, err)
	borrowed := cards.New()
	borrowed.Art = cards.Art{Original: "/assets/alice/d.png"}
	_, err = s.AddCardToDeck(ctx, d2.ID, bob.ID, borrowed, newTemplate(t, s, bob.ID))
	require.NoError(t, err)
	used, err = s.AssetInUse(ctx, "/assets/alice/d.png")
	require.NoError(t, err)
	assert.True(t, used)

	_, err = s.DeleteAsset(ctx, a.ID, alice.ID)
	assert.ErrorIs(t, err, ErrInUse)
	deleted, err := s.DeleteAsset(ctx, b.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice/b.png", deleted.StorageKey)
	_, err = s.DeleteAsset(ctx, b.ID, alice.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

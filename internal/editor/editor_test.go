package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/youruser/cardsmith/internal/cards"
	"github.com/youruser/cardsmith/internal/layout"
	"github.com/youruser/cardsmith/internal/template"
)

func ownedTemplate(owner string) *template.Template {
	tpl := template.Default()
	tpl.ID = "t1"
	tpl.OwnerID = owner
	tpl.Elements.Title = template.ElementBox{X: 10, Y: 10, Width: 20, Height: 20}
	return tpl
}

func TestDragClampsToLowerBound(t *testing.T) {
	in := NewInteraction(ownedTemplate("u1"), "u1")
	require.NoError(t, in.PointerDown(template.Title, HandleBody))
	assert.Equal(t, Moving, in.Mode())

	// -80% of a 500px wide parent
	box, err := in.PointerMove(-400, 0, 500, 700)
	require.NoError(t, err)
	assert.Equal(t, -50.0, box.X)
	assert.Equal(t, 10.0, box.Y)

	box, err = in.PointerUp()
	require.NoError(t, err)
	assert.Equal(t, -50.0, box.X)
	assert.Equal(t, Selected, in.Mode())
	assert.Equal(t, -50.0, in.Template().Elements.Title.X)
}

func TestDragUpperBoundAndRecovery(t *testing.T) {
	in := NewInteraction(ownedTemplate("u1"), "u1")
	require.NoError(t, in.PointerDown(template.Title, HandleBody))
	box, err := in.PointerMove(1000, 2000, 500, 500)
	require.NoError(t, err)
	assert.Equal(t, 150.0, box.X)
	assert.Equal(t, 150.0, box.Y)

	box, err = in.PointerMove(-1000, -2000, 500, 500)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, box.X, 1e-9)
	assert.InDelta(t, 10.0, box.Y, 1e-9)
}

func TestResizeMinimums(t *testing.T) {
	in := NewInteraction(ownedTemplate("u1"), "u1")
	require.NoError(t, in.PointerDown(template.Title, HandleSE))
	assert.Equal(t, Resizing, in.Mode())
	box, err := in.PointerMove(-1000, -1000, 100, 100)
	require.NoError(t, err)
	assert.Equal(t, template.MinWidth, box.Width)
	assert.Equal(t, template.MinHeight, box.Height)
	assert.Equal(t, 10.0, box.X)

	_, err = in.PointerUp()
	require.NoError(t, err)

	require.NoError(t, in.PointerDown(template.Title, HandleNW))
	box, err = in.PointerMove(10, 10, 100, 100)
	require.NoError(t, err)
	// bottom-right corner stays put
	assert.InDelta(t, 15.0, box.X+box.Width, 1e-9)
	assert.InDelta(t, 12.0, box.Y+box.Height, 1e-9)
	assert.Equal(t, template.MinWidth, box.Width)
	assert.Equal(t, template.MinHeight, box.Height)
}

func TestResizeGrowsFromEdge(t *testing.T) {
	b := Resize(template.ElementBox{X: 10, Y: 10, Width: 20, Height: 20}, HandleW, -5, 3)
	assert.Equal(t, template.ElementBox{X: 5, Y: 10, Width: 25, Height: 20}, b)
	b = Resize(template.ElementBox{X: 10, Y: 10, Width: 20, Height: 20}, HandleS, 7, 3)
	assert.Equal(t, template.ElementBox{X: 10, Y: 10, Width: 20, Height: 23}, b)
}

func TestSingleActiveDrag(t *testing.T) {
	in := NewInteraction(ownedTemplate("u1"), "u1")
	require.NoError(t, in.PointerDown(template.Title, HandleBody))
	assert.ErrorIs(t, in.PointerDown(template.Art, HandleBody), ErrBusy)
	assert.ErrorIs(t, in.Select(template.Art), ErrBusy)
	assert.Equal(t, template.Title, in.Active())
	in.Deselect()
	assert.Equal(t, Moving, in.Mode())

	_, err := in.PointerUp()
	require.NoError(t, err)
	require.NoError(t, in.PointerDown(template.Art, HandleBody))
	assert.Equal(t, template.Art, in.Active())
}

func TestPointerMoveWithoutDrag(t *testing.T) {
	in := NewInteraction(ownedTemplate("u1"), "u1")
	_, err := in.PointerMove(1, 1, 10, 10)
	assert.ErrorIs(t, err, ErrNotDragging)
	_, err = in.PointerUp()
	assert.ErrorIs(t, err, ErrNotDragging)
	assert.ErrorIs(t, in.PointerDown("nope", HandleBody), ErrUnknownTarget)
	assert.ErrorIs(t, in.PointerDown(template.Title, Handle("x")), ErrUnknownTarget)
	assert.Equal(t, Idle, in.Mode())
}

func TestReadOnlyInteraction(t *testing.T) {
	tpl := ownedTemplate("owner")
	in := NewInteraction(tpl, "someone-else")
	assert.True(t, in.ReadOnly())
	assert.ErrorIs(t, in.PointerDown(template.Title, HandleBody), ErrReadOnly)
	_, err := in.PointerMove(10, 10, 100, 100)
	assert.ErrorIs(t, err, ErrReadOnly)
	_, err = in.PointerUp()
	assert.ErrorIs(t, err, ErrReadOnly)
	assert.ErrorIs(t, in.Select(template.Title), ErrReadOnly)
	assert.Equal(t, Idle, in.Mode())
	assert.Equal(t, tpl.Elements.Title, in.Template().Elements.Title)
}

func TestStateActionsAreImmutable(t *testing.T) {
	s0 := NewState("u1", ownedTemplate("u1"))
	assert.Equal(t, "t1", s0.Card.TemplateID)

	s1, err := s0.SetField("name", "Ornithopter")
	require.NoError(t, err)
	s2 := s1.SetCustomField("loyalty", "4")
	s3 := s2.SetArt(cards.Art{Original: "o", Cropped: "c"}).Warn("art not saved")

	assert.Equal(t, "", s0.Card.Name)
	assert.Equal(t, "Ornithopter", s1.Card.Name)
	assert.Empty(t, s1.Card.CustomFields)
	assert.Equal(t, "4", s2.Card.CustomFields["loyalty"])
	assert.Empty(t, s2.Card.Art.Cropped)
	assert.Equal(t, "c", s3.Card.Art.Cropped)
	assert.Empty(t, s2.Warnings)
	assert.Equal(t, []string{"art not saved"}, s3.Warnings)

	s4 := s3.SetCustomField("loyalty", "")
	assert.NotContains(t, s4.Card.CustomFields, "loyalty")
	assert.Equal(t, "4", s3.Card.CustomFields["loyalty"])
}

func TestStateSetFieldValidation(t *testing.T) {
	s := NewState("u1", ownedTemplate("u1"))
	_, err := s.SetField("rarity", "Legendary")
	assert.ErrorIs(t, err, cards.ErrInvalidCard)
	_, err = s.SetField("bogus", "x")
	assert.ErrorIs(t, err, cards.ErrInvalidCard)
	s, err = s.SetField("cardType", "Instant")
	require.NoError(t, err)
	assert.Equal(t, cards.Instant, s.Card.CardType)
}

func TestStateApplyDrag(t *testing.T) {
	s0 := NewState("u1", ownedTemplate("u1"))
	s1, err := s0.ApplyDrag(template.Title, template.ElementBox{X: -90, Y: 5, Width: 1, Height: 1})
	require.NoError(t, err)
	assert.Equal(t, template.ElementBox{X: -50, Y: 5, Width: template.MinWidth, Height: template.MinHeight}, s1.Template.Elements.Title)
	assert.Equal(t, 10.0, s0.Template.Elements.Title.X)
	assert.Equal(t, template.Title, s1.Selected)

	other := NewState("u2", ownedTemplate("u1"))
	_, err = other.ApplyDrag(template.Title, template.ElementBox{X: 1, Y: 1, Width: 10, Height: 10})
	assert.ErrorIs(t, err, ErrReadOnly)
}

func TestStatePreview(t *testing.T) {
	s := NewState("u1", ownedTemplate("u1"))
	s, err := s.ApplyAll([]Action{
		{Type: ActSetField, Field: "name", Value: "Shock"},
		{Type: ActSetField, Field: "cardType", Value: "Instant"},
		{Type: ActSetField, Field: "rulesText", Value: "Shock deals 2 damage to any target."},
	})
	require.NoError(t, err)
	tree, err := s.Preview(1)
	require.NoError(t, err)
	n, ok := tree.Find(template.Title)
	require.True(t, ok)
	assert.Equal(t, "Shock", n.Lines()[0][0].Value)
	_, ok = tree.Find(template.PTBox)
	assert.False(t, ok)

	none := NewState("u1", nil)
	_, err = none.Preview(1)
	assert.ErrorIs(t, err, layout.ErrNoTemplate)
}

func TestApplyAllStopsAtFailure(t *testing.T) {
	s := NewState("u1", ownedTemplate("u1"))
	out, err := s.ApplyAll([]Action{
		{Type: ActSetField, Field: "name", Value: "A"},
		{Type: "explode"},
		{Type: ActSetField, Field: "name", Value: "B"},
	})
	assert.ErrorIs(t, err, ErrBadAction)
	assert.Contains(t, err.Error(), "action 1")
	assert.Equal(t, "A", out.Card.Name)
}

func TestApplySetArtWithWarning(t *testing.T) {
	s := NewState("u1", ownedTemplate("u1"))
	s, err := s.ApplyAll([]Action{
		{Type: ActSetArt, Art: &cards.Art{Original: "blob:local", Cropped: "blob:local"}},
		{Type: ActWarn, Value: "art was not saved to your library"},
	})
	require.NoError(t, err)
	assert.Equal(t, "blob:local", s.Card.Art.Original)
	assert.Equal(t, []string{"art was not saved to your library"}, s.Warnings)

	_, err = s.Apply(Action{Type: ActWarn})
	assert.ErrorIs(t, err, ErrBadAction)
}

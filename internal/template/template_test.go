package template

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElementBoxVisibility(t *testing.T) {
	assert.True(t, ElementBox{}.IsVisible())
	assert.True(t, ElementBox{Visible: Bool(true)}.IsVisible())
	assert.False(t, ElementBox{Visible: Bool(false)}.IsVisible())
}

func TestDefaultTemplateIsValid(t *testing.T) {
	tpl := Default()
	require.NoError(t, tpl.Validate())
	for _, name := range BuiltinElements {
		b, ok := tpl.Elements.Box(name)
		require.True(t, ok, name)
		assert.Greater(t, b.Width, 0.0, name)
	}
}

func TestValidateRejectsMissingBox(t *testing.T) {
	tpl := Default()
	tpl.Elements.PTBox = ElementBox{}
	err := tpl.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))

	// a hidden element does not need a size
	tpl.Elements.PTBox = ElementBox{Visible: Bool(false)}
	assert.NoError(t, tpl.Validate())
}

func TestValidateCustomElements(t *testing.T) {
	tpl := Default()
	tpl.Elements.Custom = []CustomElement{{Key: "loyalty"}, {Key: "loyalty"}}
	assert.ErrorIs(t, tpl.Validate(), ErrValidation)

	tpl.Elements.Custom = []CustomElement{{Key: ""}}
	assert.ErrorIs(t, tpl.Validate(), ErrValidation)
}

func TestElementsBoxByCustomKey(t *testing.T) {
	tpl := Default()
	tpl.Elements.Custom = []CustomElement{{Key: "loyalty", Box: ElementBox{X: 1, Y: 2, Width: 10, Height: 5}}}
	b, ok := tpl.Elements.Box("loyalty")
	require.True(t, ok)
	b.X = 42
	assert.Equal(t, 42.0, tpl.Elements.Custom[0].Box.X)

	_, ok = tpl.Elements.Box("nope")
	assert.False(t, ok)
}

func TestColorGradeDefaultsAndClamping(t *testing.T) {
	var g ColorGrade
	assert.Equal(t, 1.0, g.SaturationOrDefault())
	assert.Equal(t, 0.0, g.HueRotateOrDefault())
	assert.Equal(t, 180.0, g.GradientAngleOrDefault())
	assert.Equal(t, 0.5, g.GradientOpacityOrDefault())
	assert.False(t, g.HasGradient())

	g = ColorGrade{Saturation: Float(3), HueRotateDegrees: Float(-10), GradientOpacity: Float(2)}
	assert.Equal(t, 2.0, g.SaturationOrDefault())
	assert.Equal(t, 0.0, g.HueRotateOrDefault())
	assert.Equal(t, 1.0, g.GradientOpacityOrDefault())

	g.GradientStart = "#ff0000"
	assert.False(t, g.HasGradient())
	g.GradientEnd = "#0000ff"
	assert.True(t, g.HasGradient())
}

func TestJSONKeepsAbsentOptionals(t *testing.T) {
	tpl := Default()
	tpl.ID = "t1"
	tpl.GradientStart = "#112233"
	tpl.Elements.Title.Visible = Bool(false)

	raw, err := json.Marshal(tpl)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "saturation")
	assert.Contains(t, string(raw), `"gradientStartColor":"#112233"`)

	var back Template
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Nil(t, back.Saturation)
	assert.Nil(t, back.GradientAngleDegrees)
	assert.False(t, back.Elements.Title.IsVisible())
	assert.Equal(t, tpl.Elements, back.Elements)
	assert.Equal(t, tpl.Fonts, back.Fonts)
}

func TestFontFallback(t *testing.T) {
	tpl := &Template{Fonts: FontMap{RoleRulesText: {Family: "Serif", SizePx: 12}}}
	f := tpl.Font("unknownRole")
	assert.Equal(t, "Serif", f.Family)
	assert.Equal(t, AlignLeft, f.TextAlign)
	assert.Equal(t, "#000000", f.Color)

	empty := &Template{}
	assert.Equal(t, 14.0, empty.Font(RoleTitle).SizePx)
}

func TestNormalizeAndClone(t *testing.T) {
	tpl := &Template{Name: "x", ColorGrade: ColorGrade{Saturation: Float(5)}}
	tpl.Normalize()
	assert.Equal(t, 2.0, *tpl.Saturation)
	assert.Contains(t, tpl.Fonts, RoleFlavorText)
	assert.Nil(t, tpl.GradientOpacity)

	c := tpl.Clone()
	*c.Saturation = 0.3
	c.Fonts[RoleTitle] = FontSpec{Family: "changed"}
	assert.Equal(t, 2.0, *tpl.Saturation)
	assert.NotEqual(t, "changed", tpl.Fonts[RoleTitle].Family)
}

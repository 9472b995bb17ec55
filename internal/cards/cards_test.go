package cards

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	c := New()
	assert.Equal(t, Creature, c.CardType)
	assert.Equal(t, Common, c.Rarity)
	assert.NotNil(t, c.CustomFields)
	assert.Equal(t, "", c.Custom("missing"))
}

func TestValidate(t *testing.T) {
	c := New()
	assert.NoError(t, c.Validate())
	c.CardType = "Battle"
	assert.ErrorIs(t, c.Validate(), ErrInvalidCard)
	c.CardType = Instant
	c.Rarity = "Legendary"
	assert.ErrorIs(t, c.Validate(), ErrInvalidCard)
}

func TestUnmarshalLegacyArtURL(t *testing.T) {
	var c CardData
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Old","artUrl":"https://x/a.png"}`), &c))
	assert.Equal(t, "Old", c.Name)
	assert.Equal(t, Art{Original: "https://x/a.png", Cropped: "https://x/a.png"}, c.Art)

	// canonical shape wins over the legacy field
	require.NoError(t, json.Unmarshal([]byte(`{"artUrl":"a","art":{"original":"o","cropped":"c"}}`), &c))
	assert.Equal(t, Art{Original: "o", Cropped: "c"}, c.Art)

	raw, err := json.Marshal(c)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "artUrl")
}

func TestArtDrawn(t *testing.T) {
	assert.Equal(t, "c", Art{Original: "o", Cropped: "c"}.Drawn())
	assert.Equal(t, "o", Art{Original: "o"}.Drawn())
}

func TestCloneIsDeep(t *testing.T) {
	c := New()
	c.CustomFields["loyalty"] = "3"
	d := c.Clone()
	d.CustomFields["loyalty"] = "4"
	assert.Equal(t, "3", c.CustomFields["loyalty"])
}

func TestLoadCardsCSV(t *testing.T) {
	in := "name,mana_cost,type,rules_text,pt,rarity,loyalty\n" +
		"Grizzly Bears,{1}{G},Creature — Bear,,2/2,Common,\n" +
		"Shock,{R},Instant,Shock deals 2 damage.\\nDraw a card.,,Uncommon,\n" +
		",,,,,,\n" +
		"Jace,{1}{U}{U},Legendary Planeswalker - Jace,,,Mythic,3\n"
	got, err := LoadCardsCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "Grizzly Bears", got[0].Name)
	assert.Equal(t, Creature, got[0].CardType)
	assert.Equal(t, "Bear", got[0].Subtype)
	assert.Equal(t, "2", got[0].Power)
	assert.Equal(t, "2", got[0].Toughness)

	assert.Equal(t, "Shock deals 2 damage.\nDraw a card.", got[1].RulesText)
	assert.Equal(t, Uncommon, got[1].Rarity)

	assert.Equal(t, Planeswalker, got[2].CardType)
	assert.Equal(t, "Jace", got[2].Subtype)
	assert.Equal(t, "3", got[2].CustomFields["loyalty"])
}

func TestLoadCardsCSVErrors(t *testing.T) {
	_, err := LoadCardsCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrInvalidCard)

	_, err = LoadCardsCSV(strings.NewReader("title\nx\n"))
	assert.ErrorIs(t, err, ErrInvalidCard)

	_, err = LoadCardsCSV(strings.NewReader("name,rarity\nx,Legendary\n"))
	assert.ErrorIs(t, err, ErrInvalidCard)
	assert.Contains(t, err.Error(), "row 2")
}

func TestFilter(t *testing.T) {
	all := []CardData{
		{Name: "Serra Angel", CardType: Creature, Rarity: Uncommon, ManaCost: "{3}{W}{W}", RulesText: "Flying, vigilance", TemplateID: "a"},
		{Name: "Counterspell", CardType: Instant, Rarity: Common, ManaCost: "{U}{U}", TemplateID: "b"},
		{Name: "Azorius Guildmage", CardType: Creature, Rarity: Uncommon, ManaCost: "{W/U}{W/U}", Subtype: "Vedalken Wizard", TemplateID: "a"},
	}

	assert.Len(t, Filter(all, FilterOptions{}), 3)
	assert.Len(t, Filter(all, FilterOptions{Types: []CardType{Creature}}), 2)
	assert.Len(t, Filter(all, FilterOptions{Rarities: []Rarity{Common}}), 1)

	blue := Filter(all, FilterOptions{Colors: []string{"U"}})
	require.Len(t, blue, 2)
	assert.Equal(t, "Counterspell", blue[0].Name)
	assert.Equal(t, "Azorius Guildmage", blue[1].Name)

	assert.Len(t, Filter(all, FilterOptions{Templates: []string{"b"}}), 1)
	assert.Len(t, Filter(all, FilterOptions{FreeWords: "FLYING"}), 1)
	assert.Len(t, Filter(all, FilterOptions{FreeWords: "wizard vedalken"}), 1)
	assert.Empty(t, Filter(all, FilterOptions{FreeWords: "flying wizard"}))
}

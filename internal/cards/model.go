package cards

import (
	"encoding/json"
	"errors"
	"fmt"
)

type CardType string

const (
	Creature     CardType = "Creature"
	Instant      CardType = "Instant"
	Sorcery      CardType = "Sorcery"
	Artifact     CardType = "Artifact"
	Enchantment  CardType = "Enchantment"
	Land         CardType = "Land"
	Planeswalker CardType = "Planeswalker"
)

var CardTypes = []CardType{Creature, Instant, Sorcery, Artifact, Enchantment, Land, Planeswalker}

type Rarity string

const (
	Common   Rarity = "Common"
	Uncommon Rarity = "Uncommon"
	Rare     Rarity = "Rare"
	Mythic   Rarity = "Mythic"
)

var Rarities = []Rarity{Common, Uncommon, Rare, Mythic}

var ErrInvalidCard = errors.New("invalid card data")

// Art keeps the untouched source next to the cropped image that is drawn,
// so a re-crop always starts from the original.
type Art struct {
	Original string `json:"original,omitempty"`
	Cropped  string `json:"cropped,omitempty"`
}

// Drawn returns the image reference the art element should display.
func (a Art) Drawn() string {
	if a.Cropped != "" {
		return a.Cropped
	}
	return a.Original
}

// CardData is the user-entered content for one card.
type CardData struct {
	Name            string            `json:"name"`
	ManaCost        string            `json:"manaCost"`
	CardType        CardType          `json:"cardType"`
	Subtype         string            `json:"subtype"`
	RulesText       string            `json:"rulesText"`
	FlavorText      string            `json:"flavorText"`
	Power           string            `json:"power"`
	Toughness       string            `json:"toughness"`
	Rarity          Rarity            `json:"rarity"`
	Artist          string            `json:"artist"`
	CollectorNumber string            `json:"collectorNumber"`
	SetSymbol       string            `json:"setSymbol"`
	TemplateID      string            `json:"templateId"`
	Art             Art               `json:"art"`
	CustomFields    map[string]string `json:"customFields,omitempty"`
}

// New returns a card with session-start defaults.
func New() CardData {
	return CardData{
		CardType:     Creature,
		Rarity:       Common,
		CustomFields: map[string]string{},
	}
}

// Custom returns the custom field value or "".
func (c CardData) Custom(key string) string {
	if c.CustomFields == nil {
		return ""
	}
	return c.CustomFields[key]
}

// Validate checks the enum fields. Empty enums are accepted and defaulted
// by Normalize.
func (c CardData) Validate() error {
	if c.CardType != "" && !validType(c.CardType) {
		return fmt.Errorf("%w: unknown card type %q", ErrInvalidCard, c.CardType)
	}
	if c.Rarity != "" && !validRarity(c.Rarity) {
		return fmt.Errorf("%w: unknown rarity %q", ErrInvalidCard, c.Rarity)
	}
	return nil
}

// Normalize fills empty enums with defaults.
func (c *CardData) Normalize() {
	if c.CardType == "" {
		c.CardType = Creature
	}
	if c.Rarity == "" {
		c.Rarity = Common
	}
	if c.CustomFields == nil {
		c.CustomFields = map[string]string{}
	}
}

// Clone returns a deep copy.
func (c CardData) Clone() CardData {
	out := c
	out.CustomFields = make(map[string]string, len(c.CustomFields))
	for k, v := range c.CustomFields {
		out.CustomFields[k] = v
	}
	return out
}

// UnmarshalJSON accepts the older flat "artUrl" shape and folds it into Art.
func (c *CardData) UnmarshalJSON(b []byte) error {
	type plain CardData
	var aux struct {
		plain
		ArtURL string `json:"artUrl"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*c = CardData(aux.plain)
	if aux.ArtURL != "" && c.Art.Original == "" && c.Art.Cropped == "" {
		c.Art = Art{Original: aux.ArtURL, Cropped: aux.ArtURL}
	}
	return nil
}

func validType(t CardType) bool {
	for _, v := range CardTypes {
		if v == t {
			return true
		}
	}
	return false
}

func validRarity(r Rarity) bool {
	for _, v := range Rarities {
		if v == r {
			return true
		}
	}
	return false
}

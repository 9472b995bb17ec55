package cards

import "strings"

// FilterOptions narrows a list of cards, e.g. the cards of a deck.
type FilterOptions struct {
	Types     []CardType `json:"types,omitempty"`
	Rarities  []Rarity   `json:"rarities,omitempty"`
	Colors    []string   `json:"colors,omitempty"` // mana symbols that must appear in the cost, e.g. "W"
	Templates []string   `json:"templates,omitempty"`
	FreeWords string     `json:"freeWords,omitempty"`
}

func containsAny(hay string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(hay, n) {
			return true
		}
	}
	return false
}

// Filter returns the cards matching every non-empty option; it keeps the
// input order.
func Filter(cards []CardData, opt FilterOptions) []CardData {
	var out []CardData
	for _, c := range cards {
		if len(opt.Types) > 0 {
			matched := false
			for _, t := range opt.Types {
				if c.CardType == t {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
		}
		if len(opt.Rarities) > 0 {
			matched := false
			for _, r := range opt.Rarities {
				if c.Rarity == r {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
		}
		if len(opt.Colors) > 0 {
			wrapped := make([]string, len(opt.Colors))
			for i, col := range opt.Colors {
				wrapped[i] = "{" + col
			}
			// matches "{W}" as well as hybrid "{W/U}"
			if !containsAny(c.ManaCost, wrapped) && !containsAny(c.ManaCost, slashed(opt.Colors)) {
				continue
			}
		}
		if len(opt.Templates) > 0 {
			matched := false
			for _, t := range opt.Templates {
				if c.TemplateID == t {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
		}
		if opt.FreeWords != "" {
			kw := strings.Fields(opt.FreeWords)
			ok := true
			for _, k := range kw {
				k = strings.ToLower(k)
				if !strings.Contains(strings.ToLower(c.Name), k) &&
					!strings.Contains(strings.ToLower(c.RulesText), k) &&
					!strings.Contains(strings.ToLower(c.FlavorText), k) &&
					!strings.Contains(strings.ToLower(c.Subtype), k) {
					ok = false
					break
				}
			}
			if !ok {
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

func slashed(colors []string) []string {
	out := make([]string, len(colors))
	for i, c := range colors {
		out[i] = "/" + c
	}
	return out
}

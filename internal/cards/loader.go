package cards

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// columns recognised by the CSV importer; anything else becomes a custom field
var knownColumns = map[string]bool{
	"name": true, "mana_cost": true, "type": true, "subtype": true,
	"rules_text": true, "flavor_text": true, "power": true, "toughness": true,
	"pt": true, "rarity": true, "artist": true, "collector_number": true,
	"set_symbol": true, "art_url": true,
}

// splitTypeLine turns "Creature — Elf Warrior" (or "Creature - Elf") into
// the card type and subtype.
func splitTypeLine(s string) (CardType, string) {
	s = strings.ReplaceAll(s, "—", "-")
	parts := strings.SplitN(s, "-", 2)
	t := CardType(strings.TrimSpace(parts[0]))
	// "Legendary Creature" keeps only the card type
	for _, w := range strings.Fields(parts[0]) {
		if validType(CardType(w)) {
			t = CardType(w)
		}
	}
	sub := ""
	if len(parts) == 2 {
		sub = strings.TrimSpace(parts[1])
	}
	return t, sub
}

// LoadCardsFromFile loads card data rows from a CSV file.
func LoadCardsFromFile(path string) ([]CardData, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fp.Close()

	out, err := LoadCardsCSV(fp)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return out, nil
}

// LoadCardsCSV reads card data from CSV. The first row is the header; the
// "type" column may hold a full type line which is split into type and
// subtype, and "pt" may hold "power/toughness". Unknown columns land in
// CustomFields.
func LoadCardsCSV(r io.Reader) ([]CardData, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) < 1 {
		return nil, fmt.Errorf("%w: csv has no header", ErrInvalidCard)
	}
	header := rows[0]
	cols := map[string]int{}
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := cols["name"]; !ok {
		return nil, fmt.Errorf("%w: csv has no name column", ErrInvalidCard)
	}

	get := func(row []string, name string) string {
		if idx, ok := cols[name]; ok && idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}

	out := []CardData{}
	for n, row := range rows[1:] {
		c := New()
		c.Name = get(row, "name")
		if c.Name == "" {
			continue
		}
		c.ManaCost = get(row, "mana_cost")
		c.CardType, c.Subtype = splitTypeLine(get(row, "type"))
		if sub := get(row, "subtype"); sub != "" {
			c.Subtype = sub
		}
		c.RulesText = strings.ReplaceAll(get(row, "rules_text"), `\n`, "\n")
		c.FlavorText = strings.ReplaceAll(get(row, "flavor_text"), `\n`, "\n")
		c.Power = get(row, "power")
		c.Toughness = get(row, "toughness")
		if pt := get(row, "pt"); pt != "" && c.Power == "" && c.Toughness == "" {
			p, t, _ := strings.Cut(pt, "/")
			c.Power, c.Toughness = strings.TrimSpace(p), strings.TrimSpace(t)
		}
		c.Rarity = Rarity(get(row, "rarity"))
		c.Artist = get(row, "artist")
		c.CollectorNumber = get(row, "collector_number")
		c.SetSymbol = get(row, "set_symbol")
		if u := get(row, "art_url"); u != "" {
			c.Art = Art{Original: u, Cropped: u}
		}
		for i, h := range header {
			key := strings.TrimSpace(h)
			if knownColumns[strings.ToLower(key)] || i >= len(row) || row[i] == "" {
				continue
			}
			c.CustomFields[key] = row[i]
		}
		c.Normalize()
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("row %d: %w", n+2, err)
		}
		out = append(out, c)
	}
	return out, nil
}

package deck

import "strings"

// ExportDeckText renders a plain deck list: a "# name" header followed by
// one "1x Card Name" line per saved card, in deck order. Unnamed cards are
// listed as "Untitled".
func ExportDeckText(d Deck) string {
	lines := []string{}
	if d.Name != "" {
		lines = append(lines, "# "+d.Name)
	}
	for _, sc := range d.Cards {
		name := strings.TrimSpace(sc.Card.Name)
		if name == "" {
			name = "Untitled"
		}
		lines = append(lines, "1x "+name)
	}
	return strings.Join(lines, "\n")
}

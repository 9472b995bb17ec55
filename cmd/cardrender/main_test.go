package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/youruser/cardsmith/internal/cards"
	"github.com/youruser/cardsmith/internal/deck"
	"github.com/youruser/cardsmith/internal/layout"
	"github.com/youruser/cardsmith/internal/template"
)

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o644))
}

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "card", args: []string{"-card", "c.json"}},
		{name: "csv with template", args: []string{"-csv", "c.csv", "-template", "t.json"}},
		{name: "no input", args: nil, wantErr: "exactly one"},
		{name: "two inputs", args: []string{"-card", "c.json", "-deck", "d.json"}, wantErr: "exactly one"},
		{name: "bad flag", args: []string{"-nope"}, wantErr: "not defined"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseArgs(tt.args, &bytes.Buffer{})
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRenderCardPNG(t *testing.T) {
	dir := t.TempDir()
	card := cards.New()
	card.Name = "Llanowar Elves"
	card.ManaCost = "{G}"
	card.RulesText = "{T}: Add {G}."
	writeJSON(t, filepath.Join(dir, "card.json"), card)
	writeJSON(t, filepath.Join(dir, "tpl.json"), template.Default())
	out := filepath.Join(dir, "out.png")

	var stderr bytes.Buffer
	err := run(context.Background(), []string{
		"-card", filepath.Join(dir, "card.json"),
		"-template", filepath.Join(dir, "tpl.json"),
		"-out", out, "-supersample", "2",
	}, &stderr)
	require.NoError(t, err)
	assert.Equal(t, out, strings.TrimSpace(stderr.String()))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, int(layout.CardWidth)*2, img.Bounds().Dx())
}

func TestRenderCardRejectsBadEnum(t *testing.T) {
	dir := t.TempDir()
	card := cards.New()
	card.Rarity = "legendary"
	writeJSON(t, filepath.Join(dir, "card.json"), card)

	err := run(context.Background(), []string{"-card", filepath.Join(dir, "card.json"), "-out", filepath.Join(dir, "x.png")}, &bytes.Buffer{})
	assert.ErrorIs(t, err, cards.ErrInvalidCard)
}

func TestRenderDeckPDF(t *testing.T) {
	dir := t.TempDir()
	c := cards.New()
	c.Name = "Serra Angel"
	d := deck.Deck{Name: "Angels", Cards: []deck.SavedCard{{Card: c, Template: *template.Default()}}}
	writeJSON(t, filepath.Join(dir, "deck.json"), d)
	out := filepath.Join(dir, "angels.pdf")

	err := run(context.Background(), []string{"-deck", filepath.Join(dir, "deck.json"), "-out", out, "-share", "https://cards.example/decks/1"}, &bytes.Buffer{})
	require.NoError(t, err)
	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("%PDF")))
}

func TestRenderCSVPDF(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "elves.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("name,mana_cost,type,rarity\nLlanowar Elves,{G},Creature - Elf,Common\n"), 0o644))
	out := filepath.Join(dir, "elves.pdf")

	require.NoError(t, run(context.Background(), []string{"-csv", csvPath, "-out", out}, &bytes.Buffer{}))
	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())
}

func TestRenderDeckEmpty(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, filepath.Join(dir, "deck.json"), deck.Deck{Name: "Empty"})
	err := run(context.Background(), []string{"-deck", filepath.Join(dir, "deck.json")}, &bytes.Buffer{})
	assert.Error(t, err)
}

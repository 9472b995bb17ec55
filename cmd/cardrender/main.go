// Command cardrender renders cards without the server: a template and a
// card to PNG, or a deck (saved deck JSON, or a CSV plus one template) to a
// print-ready PDF.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/youruser/cardsmith/internal/cards"
	"github.com/youruser/cardsmith/internal/deck"
	"github.com/youruser/cardsmith/internal/export"
	imagepkg "github.com/youruser/cardsmith/internal/image"
	"github.com/youruser/cardsmith/internal/logger"
	"github.com/youruser/cardsmith/internal/template"
	"github.com/youruser/cardsmith/internal/util"
)

type options struct {
	template    string
	card        string
	deck        string
	csv         string
	out         string
	scale       float64
	supersample int
	share       string
	root        string
	logLevel    string
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "cardrender:", err)
		os.Exit(1)
	}
}

func parseArgs(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("cardrender", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.template, "template", "", "template JSON file (default: built-in standard frame)")
	fs.StringVar(&o.card, "card", "", "card JSON file to render as PNG")
	fs.StringVar(&o.deck, "deck", "", "saved deck JSON file to render as PDF")
	fs.StringVar(&o.csv, "csv", "", "card CSV file to render as PDF against -template")
	fs.StringVar(&o.out, "out", "", "output file (default: derived from the card or deck name)")
	fs.Float64Var(&o.scale, "scale", 1, "PNG scale")
	fs.IntVar(&o.supersample, "supersample", export.DefaultSupersample, "PNG supersampling factor (2-4)")
	fs.StringVar(&o.share, "share", "", "share URL printed as a QR code on PDF pages")
	fs.StringVar(&o.root, "root", "", "directory relative image paths resolve against (default: the input's directory)")
	fs.StringVar(&o.logLevel, "log-level", "warn", "log level")
	if err := fs.Parse(args); err != nil {
		return o, err
	}

	inputs := 0
	for _, v := range []string{o.card, o.deck, o.csv} {
		if v != "" {
			inputs++
		}
	}
	if inputs != 1 {
		return o, errors.New("exactly one of -card, -deck or -csv is required")
	}
	return o, nil
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	o, err := parseArgs(args, stderr)
	if err != nil {
		return err
	}
	log, closer := logger.New(logger.Config{Level: o.logLevel})
	defer closer.Close()

	root := o.root
	if root == "" {
		root = filepath.Dir(o.card + o.deck + o.csv)
	}
	fonts, err := imagepkg.NewFonts()
	if err != nil {
		return err
	}
	raster := imagepkg.NewRasterizer(imagepkg.NewLoader(root), fonts, log)

	var (
		data []byte
		name string
	)
	switch {
	case o.card != "":
		data, name, err = renderCard(ctx, o, raster)
	default:
		data, name, err = renderDeck(ctx, o, raster)
	}
	if err != nil {
		return err
	}

	out := o.out
	if out == "" {
		out = name
	}
	if err := util.WriteFileAtomic(out, data, 0o644); err != nil {
		return err
	}
	log.Info("written", "file", out, "bytes", len(data))
	fmt.Fprintln(stderr, out)
	return nil
}

func renderCard(ctx context.Context, o options, r export.Rasterizer) ([]byte, string, error) {
	tpl, err := loadTemplate(o.template)
	if err != nil {
		return nil, "", err
	}
	var card cards.CardData
	if err := readJSON(o.card, &card); err != nil {
		return nil, "", err
	}
	if err := card.Validate(); err != nil {
		return nil, "", err
	}
	card.Normalize()
	return export.CardPNG(ctx, tpl, &card, r, export.PNGOptions{Scale: o.scale, Supersample: o.supersample})
}

func renderDeck(ctx context.Context, o options, r export.Rasterizer) ([]byte, string, error) {
	var (
		title     string
		deckCards []export.Card
	)
	if o.deck != "" {
		var d deck.Deck
		if err := readJSON(o.deck, &d); err != nil {
			return nil, "", err
		}
		title = d.Name
		for _, sc := range d.Cards {
			deckCards = append(deckCards, export.Card{Data: sc.Card, Template: &sc.Template})
		}
	} else {
		tpl, err := loadTemplate(o.template)
		if err != nil {
			return nil, "", err
		}
		rows, err := cards.LoadCardsFromFile(o.csv)
		if err != nil {
			return nil, "", err
		}
		base := filepath.Base(o.csv)
		title = base[:len(base)-len(filepath.Ext(base))]
		for _, c := range rows {
			deckCards = append(deckCards, export.Card{Data: c, Template: tpl})
		}
	}

	out, err := export.DeckSheet(ctx, deckCards, r, export.SheetOptions{Title: title, ShareURL: o.share})
	if err != nil {
		return nil, "", err
	}
	return out, export.Filename(title, "pdf"), nil
}

// loadTemplate reads a template file, or returns the standard frame when
// path is empty.
func loadTemplate(path string) (*template.Template, error) {
	if path == "" {
		return template.Default(), nil
	}
	var tpl template.Template
	if err := readJSON(path, &tpl); err != nil {
		return nil, err
	}
	tpl.Normalize()
	if err := tpl.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &tpl, nil
}

func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

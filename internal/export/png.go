package export

import (
	"bytes"
	"context"
	"fmt"

	"github.com/disintegration/imaging"

	"github.com/youruser/cardsmith/internal/cards"
	"github.com/youruser/cardsmith/internal/layout"
	"github.com/youruser/cardsmith/internal/template"
)

// PNGOptions controls single-card export. The output is Scale×Supersample
// times the canonical card size.
type PNGOptions struct {
	Scale       float64
	Supersample int
	// Layout resolves symbols; the zero value uses the built-in registry.
	Layout layout.Renderer
}

func (o PNGOptions) normalized() PNGOptions {
	if o.Scale <= 0 {
		o.Scale = 1
	}
	if o.Supersample == 0 {
		o.Supersample = DefaultSupersample
	}
	o.Supersample = min(max(o.Supersample, MinSupersample), MaxSupersample)
	return o
}

// CardPNG renders one card through the same layout the preview uses and
// encodes it as PNG. It returns the bytes and a filename derived from the
// card name.
func CardPNG(ctx context.Context, tpl *template.Template, card *cards.CardData, r Rasterizer, opts PNGOptions) ([]byte, string, error) {
	opts = opts.normalized()
	tree, err := opts.Layout.Render(tpl, card, opts.Scale*float64(opts.Supersample))
	if err != nil {
		return nil, "", err
	}
	img, err := r.Rasterize(ctx, tree)
	if err != nil {
		return nil, "", fmt.Errorf("rasterize card: %w", err)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, "", fmt.Errorf("encode png: %w", err)
	}
	name := ""
	if card != nil {
		name = card.Name
	}
	return buf.Bytes(), Filename(name, "png"), nil
}

package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/go-pdf/fpdf"

	"github.com/youruser/cardsmith/internal/cards"
	imagepkg "github.com/youruser/cardsmith/internal/image"
	"github.com/youruser/cardsmith/internal/layout"
	"github.com/youruser/cardsmith/internal/template"
)

var ErrEmptyDeck = errors.New("deck has no cards")

// Rasterizer draws a layout tree. *imagepkg.Rasterizer satisfies it.
type Rasterizer interface {
	Rasterize(ctx context.Context, tree *layout.Tree) (image.Image, error)
}

// Card pairs card data with the template snapshot it is drawn against.
type Card struct {
	Data     cards.CardData
	Template *template.Template
}

// ProgressFunc receives the number of cards placed so far.
type ProgressFunc func(done, total int)

type SheetOptions struct {
	Title    string
	ShareURL string
	Progress ProgressFunc
	Layout   layout.Renderer
}

// DeckSheet renders every card at print resolution and places it on A4
// sheets with crop marks. The first failing card aborts the whole export;
// no partial PDF is returned.
func DeckSheet(ctx context.Context, deck []Card, r Rasterizer, opts SheetOptions) ([]byte, error) {
	if len(deck) == 0 {
		return nil, ErrEmptyDeck
	}
	total := len(deck)
	pages := PageCount(total)

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetTitle(opts.Title, true)
	pdf.SetCreator("cardsmith", true)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)

	qrName := ""
	if opts.ShareURL != "" {
		qr, err := imagepkg.GenerateQRImage(opts.ShareURL, 256)
		if err != nil {
			return nil, fmt.Errorf("share qr: %w", err)
		}
		qrName = "share-qr"
		if err := registerPNG(pdf, qrName, qr); err != nil {
			return nil, err
		}
	}

	scale := PrintScale()
	for _, p := range Paginate(total) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if p.Index%PerPage == 0 {
			pdf.AddPage()
			decoratePage(pdf, p.Page, pages, opts.Title, qrName)
		}

		c := deck[p.Index]
		tree, err := opts.Layout.Render(c.Template, &c.Data, scale)
		if err != nil {
			return nil, fmt.Errorf("card %d (%s): %w", p.Index+1, c.Data.Name, err)
		}
		img, err := r.Rasterize(ctx, tree)
		if err != nil {
			return nil, fmt.Errorf("card %d (%s): %w", p.Index+1, c.Data.Name, err)
		}
		name := fmt.Sprintf("card-%d", p.Index)
		if err := registerPNG(pdf, name, img); err != nil {
			return nil, err
		}
		pdf.ImageOptions(name, p.XMM, p.YMM, CardWidthMM, CardHeightMM, false,
			fpdf.ImageOptions{ImageType: "PNG"}, 0, "")

		pdf.SetDrawColor(0, 0, 0)
		pdf.SetLineWidth(0.2)
		for _, s := range CropMarks(p) {
			pdf.Line(s.X1, s.Y1, s.X2, s.Y2)
		}

		if opts.Progress != nil {
			opts.Progress(p.Index+1, total)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func registerPNG(pdf *fpdf.Fpdf, name string, img image.Image) error {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	pdf.RegisterImageOptionsReader(name, fpdf.ImageOptions{ImageType: "PNG"}, &buf)
	if pdf.Err() {
		return fmt.Errorf("register %s: %w", name, pdf.Error())
	}
	return nil
}

func decoratePage(pdf *fpdf.Fpdf, page, pages int, title, qrName string) {
	footer := fmt.Sprintf("page %d/%d", page+1, pages)
	if title != "" {
		footer = title + " - " + footer
	}
	pdf.SetFont("Helvetica", "", 7)
	pdf.SetTextColor(90, 90, 90)
	pdf.Text(originXMM, PageHeightMM-3, pdf.UnicodeTranslatorFromDescriptor("")(footer))
	if qrName != "" {
		pdf.ImageOptions(qrName, PageWidthMM-QRSizeMM-2, PageHeightMM-QRSizeMM-1, QRSizeMM, QRSizeMM,
			false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	}
}

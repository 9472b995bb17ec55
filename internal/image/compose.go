package imagepkg

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/gogpu/gg"
)

// Deck overview geometry in pixels.
const (
	overviewMargin = 48
	overviewThumbW = 215
	overviewThumbH = 300
	overviewGap    = 8
	overviewCols   = 10
	overviewHeader = 160
	overviewQR     = 140
)

// ComposeDeckImage lays rendered cards out as a thumbnail grid under a
// header with the deck name and, if given, a share QR code on the right.
func ComposeDeckImage(cards []image.Image, qr image.Image, deckName string, fonts *Fonts) image.Image {
	cols := min(max(len(cards), 1), overviewCols)
	rows := max((len(cards)+overviewCols-1)/overviewCols, 1)
	w := overviewMargin*2 + cols*overviewThumbW + (cols-1)*overviewGap
	w = max(w, overviewMargin*3+overviewQR+400)
	h := overviewMargin*2 + overviewHeader + rows*overviewThumbH + (rows-1)*overviewGap
	canvas := imaging.New(w, h, color.NRGBA{R: 0xee, G: 0xee, B: 0xee, A: 0xff})

	if qr != nil {
		q := imaging.Resize(qr, overviewQR, overviewQR, imaging.NearestNeighbor)
		canvas = imaging.Paste(canvas, q, image.Pt(w-overviewMargin-overviewQR, overviewMargin/2))
	}

	x, y := overviewMargin, overviewMargin+overviewHeader
	for i, c := range cards {
		if i > 0 && i%overviewCols == 0 {
			x = overviewMargin
			y += overviewThumbH + overviewGap
		}
		thumb := imaging.Fit(c, overviewThumbW, overviewThumbH, imaging.Lanczos)
		canvas = imaging.Paste(canvas, thumb, image.Pt(x, y))
		x += overviewThumbW + overviewGap
	}

	if deckName == "" || fonts == nil {
		return canvas
	}
	dc := gg.NewContextForImage(canvas)
	defer dc.Close()
	dc.SetFont(fonts.Face("go", 56, true, false))
	dc.SetColor(color.Black)
	dc.DrawString(deckName, overviewMargin, overviewMargin+70)
	return imaging.Clone(dc.Image())
}

// Package export turns rendered cards into downloadable files: single-card
// PNGs and paginated print-sheet PDFs with crop marks.
package export

import (
	"github.com/youruser/cardsmith/internal/layout"
	"github.com/youruser/cardsmith/internal/util"
)

// Print sheet geometry in millimetres. A4 landscape fits a 4×2 grid of
// standard 63×88 cards with 5 mm gutters.
const (
	PageWidthMM  = 297.0
	PageHeightMM = 210.0
	CardWidthMM  = 63.0
	CardHeightMM = 88.0
	GutterMM     = 5.0
	Columns      = 4
	Rows         = 2
	PerPage      = Columns * Rows

	CropMarkMM       = 4.0
	CropMarkOffsetMM = 1.0

	QRSizeMM = 12.0
)

// PrintDPI is the raster resolution of cards placed on a sheet.
const PrintDPI = 300

// Supersampling bounds for single-card PNG export.
const (
	DefaultSupersample = 2
	MinSupersample     = 2
	MaxSupersample     = 4
)

var (
	gridWidthMM  = Columns*CardWidthMM + (Columns-1)*GutterMM
	gridHeightMM = Rows*CardHeightMM + (Rows-1)*GutterMM
	originXMM    = (PageWidthMM - gridWidthMM) / 2
	originYMM    = (PageHeightMM - gridHeightMM) / 2
)

// Placement is where one card lands on the sheet.
type Placement struct {
	Index int     `json:"index"`
	Page  int     `json:"page"`
	Col   int     `json:"col"`
	Row   int     `json:"row"`
	XMM   float64 `json:"xMm"`
	YMM   float64 `json:"yMm"`
}

// Segment is a straight line in millimetres.
type Segment struct {
	X1, Y1, X2, Y2 float64
}

// PageCount returns how many sheets n cards need.
func PageCount(n int) int {
	if n <= 0 {
		return 0
	}
	return (n + PerPage - 1) / PerPage
}

// Paginate places n cards row by row, starting a new page every PerPage
// cards. Pages are zero-based.
func Paginate(n int) []Placement {
	out := make([]Placement, 0, max(n, 0))
	for i := 0; i < n; i++ {
		slot := i % PerPage
		col, row := slot%Columns, slot/Columns
		out = append(out, Placement{
			Index: i,
			Page:  i / PerPage,
			Col:   col,
			Row:   row,
			XMM:   originXMM + float64(col)*(CardWidthMM+GutterMM),
			YMM:   originYMM + float64(row)*(CardHeightMM+GutterMM),
		})
	}
	return out
}

// CropMarks returns the two short trim guides at each corner of a placed
// card, pushed outward from the card edge.
func CropMarks(p Placement) []Segment {
	corners := []struct{ x, y, sx, sy float64 }{
		{p.XMM, p.YMM, -1, -1},
		{p.XMM + CardWidthMM, p.YMM, 1, -1},
		{p.XMM, p.YMM + CardHeightMM, -1, 1},
		{p.XMM + CardWidthMM, p.YMM + CardHeightMM, 1, 1},
	}
	out := make([]Segment, 0, 8)
	near, far := CropMarkOffsetMM, CropMarkOffsetMM+CropMarkMM
	for _, c := range corners {
		out = append(out,
			Segment{c.x + c.sx*near, c.y, c.x + c.sx*far, c.y},
			Segment{c.x, c.y + c.sy*near, c.x, c.y + c.sy*far},
		)
	}
	return out
}

// PrintScale is the layout scale that renders a card at PrintDPI on the
// sheet.
func PrintScale() float64 {
	return CardWidthMM / 25.4 * PrintDPI / layout.CardWidth
}

// Filename derives a filesystem-safe name for a card export.
func Filename(name, ext string) string {
	return util.SafeName(name, "card") + "." + ext
}

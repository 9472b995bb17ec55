package imagepkg

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"io"
	"log/slog"
	"math"
	"strings"
	"unicode"

	"github.com/disintegration/imaging"
	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"

	"github.com/youruser/cardsmith/internal/layout"
	"github.com/youruser/cardsmith/internal/symbols"
)

// symbolScale sizes inline icons relative to the font size.
const symbolScale = 0.9

// manaColors fills fallback disks for symbols whose icon cannot be loaded.
var manaColors = map[string]string{
	"W": "#F8F6D8",
	"U": "#C1D7E9",
	"B": "#BAB1AB",
	"R": "#E49977",
	"G": "#A3C095",
}

// Rasterizer draws layout trees into bitmaps.
type Rasterizer struct {
	Loader     *Loader
	Fonts      *Fonts
	Logger     *slog.Logger
	Background string
}

func NewRasterizer(loader *Loader, fonts *Fonts, logger *slog.Logger) *Rasterizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Rasterizer{Loader: loader, Fonts: fonts, Logger: logger, Background: "#FFFFFF"}
}

// Rasterize draws every node of tree back to front. Art and frame images
// that fail to load abort the render; a missing set symbol or symbol icon
// only degrades that element.
func (r *Rasterizer) Rasterize(ctx context.Context, tree *layout.Tree) (image.Image, error) {
	w, h := int(math.Round(tree.Width)), int(math.Round(tree.Height))
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("rasterize: empty tree %dx%d", w, h)
	}
	dc := gg.NewContext(w, h)
	defer dc.Close()
	if r.Background != "" {
		dc.ClearWithColor(gg.Hex(r.Background))
	}

	for _, n := range tree.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := r.drawRotated(ctx, dc, n, tree.Scale); err != nil {
			return nil, fmt.Errorf("draw %s: %w", n.Element, err)
		}
	}
	return imaging.Clone(dc.Image()), nil
}

// EncodePNG rasterizes tree and writes it as PNG.
func (r *Rasterizer) EncodePNG(ctx context.Context, tree *layout.Tree, w io.Writer) error {
	img, err := r.Rasterize(ctx, tree)
	if err != nil {
		return err
	}
	return imaging.Encode(w, img, imaging.PNG)
}

// drawRotated draws n directly, or into its own layer when rotated so the
// whole element turns around its center.
func (r *Rasterizer) drawRotated(ctx context.Context, dc *gg.Context, n layout.Node, scale float64) error {
	if n.Box.Rotation == 0 || n.Box.W <= 0 || n.Box.H <= 0 {
		return r.drawNode(ctx, dc, n, n.Box, scale)
	}
	lw, lh := int(math.Ceil(n.Box.W)), int(math.Ceil(n.Box.H))
	layer := gg.NewContext(lw, lh)
	defer layer.Close()
	local := layout.Box{W: n.Box.W, H: n.Box.H}
	if err := r.drawNode(ctx, layer, n, local, scale); err != nil {
		return err
	}
	// imaging rotates counter-clockwise, boxes rotate clockwise
	rot := imaging.Rotate(layer.Image(), -n.Box.Rotation, color.Transparent)
	rb := rot.Bounds()
	cx, cy := n.Box.X+n.Box.W/2, n.Box.Y+n.Box.H/2
	dc.DrawImageEx(gg.ImageBufFromImage(rot), gg.DrawImageOptions{
		X: cx - float64(rb.Dx())/2,
		Y: cy - float64(rb.Dy())/2,
	})
	return nil
}

func (r *Rasterizer) drawNode(ctx context.Context, dc *gg.Context, n layout.Node, box layout.Box, scale float64) error {
	switch n.Kind {
	case layout.KindArt:
		img, err := r.Loader.Load(ctx, n.ImageRef)
		if err != nil {
			return err
		}
		fill := imaging.Fill(img, px(box.W), px(box.H), imaging.Center, imaging.Lanczos)
		r.drawImage(dc, fill, box)
	case layout.KindFrame:
		img, err := r.Loader.Load(ctx, n.ImageRef)
		if err != nil {
			return err
		}
		if n.Grade != nil {
			img = ApplyGrade(img, *n.Grade)
		}
		r.drawImage(dc, img, box)
	case layout.KindGradient:
		mask, err := r.Loader.Load(ctx, n.Gradient.MaskRef)
		if err != nil {
			return err
		}
		r.drawImage(dc, MaskedGradient(mask, px(box.W), px(box.H), *n.Gradient), box)
	case layout.KindSetSymbol:
		r.drawSetSymbol(ctx, dc, n, box)
	case layout.KindSymbols:
		r.drawManaCost(ctx, dc, n, box, scale)
	case layout.KindText:
		r.drawText(ctx, dc, n, box, scale)
	default:
		return fmt.Errorf("unknown node kind %q", n.Kind)
	}
	return nil
}

func (r *Rasterizer) drawImage(dc *gg.Context, img image.Image, box layout.Box) {
	dc.DrawImageEx(gg.ImageBufFromImage(img), gg.DrawImageOptions{
		X: box.X, Y: box.Y, DstWidth: box.W, DstHeight: box.H,
		Interpolation: gg.InterpBicubic,
	})
}

func (r *Rasterizer) drawSetSymbol(ctx context.Context, dc *gg.Context, n layout.Node, box layout.Box) {
	if n.ImageRef == "" {
		return
	}
	img, err := r.Loader.Load(ctx, n.ImageRef)
	if err != nil {
		r.Logger.Warn("set symbol unavailable", "ref", shortRef(n.ImageRef), "error", err)
		return
	}
	side := math.Min(box.W, box.H)
	icon := imaging.Fit(img, px(side), px(side), imaging.Lanczos)
	ib := icon.Bounds()
	x := box.X + box.W - float64(ib.Dx())
	y := box.Y + (box.H-float64(ib.Dy()))/2
	if n.Glow != nil {
		glow := Glow(icon, gg.Hex(n.Glow.Color).Color(), n.Glow.Radius)
		pad := float64(glow.Bounds().Dx()-ib.Dx()) / 2
		dc.DrawImage(gg.ImageBufFromImage(glow), x-pad, y-pad)
	}
	dc.DrawImage(gg.ImageBufFromImage(icon), x, y)
}

func (r *Rasterizer) drawManaCost(ctx context.Context, dc *gg.Context, n layout.Node, box layout.Box, scale float64) {
	if len(n.Symbols) == 0 {
		return
	}
	size := box.H * 0.8
	align := "right"
	if n.SymbolFont != nil {
		size = math.Min(size, n.SymbolFont.Size)
		align = n.SymbolFont.Align
	}
	gap := 2 * scale
	total := float64(len(n.Symbols))*size + float64(len(n.Symbols)-1)*gap
	x := alignX(box, total, align)
	y := box.Y + (box.H-size)/2
	for _, s := range n.Symbols {
		r.drawSymbol(ctx, dc, s, x, y+s.Offset*scale, size)
		x += size + gap
	}
}

func (r *Rasterizer) drawSymbol(ctx context.Context, dc *gg.Context, s symbols.Segment, x, y, size float64) {
	if img, err := r.Loader.Load(ctx, s.Icon); err == nil {
		icon := imaging.Resize(img, px(size), px(size), imaging.Lanczos)
		dc.DrawImage(gg.ImageBufFromImage(icon), x, y)
		return
	}
	fill, ok := manaColors[s.Key]
	if !ok {
		fill = "#CAC5C0"
	}
	dc.SetFillBrush(gg.SolidHex(fill))
	dc.DrawCircle(x+size/2, y+size/2, size/2)
	_ = dc.Fill()
	dc.SetFont(r.Fonts.Face("go", size*0.6, true, false))
	dc.SetColor(color.Black)
	dc.DrawStringAnchored(s.Key, x+size/2, y+size/2, 0.5, 0.35)
}

// item is one unbreakable piece of a line: a word, a run of spaces or an
// inline symbol.
type item struct {
	seg   symbols.Segment
	text  string
	width float64
	space bool
}

func (r *Rasterizer) drawText(ctx context.Context, dc *gg.Context, n layout.Node, box layout.Box, scale float64) {
	type visual struct {
		items []item
		width float64
		face  text.Face
		font  layout.Font
		top   float64
	}
	var rows []visual
	y := 0.0
	for _, blk := range n.Blocks {
		if len(blk.Lines) == 0 {
			continue
		}
		y += blk.Gap
		face := r.Fonts.Face(blk.Font.Family, blk.Font.Size, blk.Font.Bold, blk.Font.Italic)
		adv := blk.Font.Size * layout.LineHeight
		for _, line := range blk.Lines {
			for _, row := range wrap(line, face, blk.Font.Size, box.W) {
				rows = append(rows, visual{items: row.items, width: row.width, face: face, font: blk.Font, top: y})
				y += adv
			}
		}
	}
	if len(rows) == 0 {
		return
	}
	offsetY := box.Y + math.Max(0, (box.H-y)/2)

	for _, row := range rows {
		m := row.face.Metrics()
		adv := row.font.Size * layout.LineHeight
		baseline := offsetY + row.top + (adv-(m.Ascent+m.Descent))/2 + m.Ascent
		x := alignX(box, row.width, row.font.Align)
		dc.SetFont(row.face)
		for _, it := range row.items {
			if it.seg.Type == symbols.SegmentSymbol {
				size := row.font.Size * symbolScale
				r.drawSymbol(ctx, dc, it.seg, x, baseline-size*0.85+it.seg.Offset*scale, size)
			} else if !it.space {
				dc.SetColor(gg.Hex(row.font.Color).Color())
				dc.DrawString(it.text, x, baseline)
			}
			x += it.width
		}
	}
}

type wrapped struct {
	items []item
	width float64
}

// wrap breaks one tokenized line into rows no wider than maxW. Words are
// never split; a single word wider than maxW gets its own row.
func wrap(line layout.Line, face text.Face, size, maxW float64) []wrapped {
	var items []item
	for _, seg := range line {
		if seg.Type == symbols.SegmentSymbol {
			items = append(items, item{seg: seg, width: size*symbolScale + size*0.1})
			continue
		}
		for _, word := range splitWords(seg.Value) {
			items = append(items, item{
				seg:   symbols.Segment{Type: symbols.SegmentText},
				text:  word,
				width: face.Advance(word),
				space: strings.TrimSpace(word) == "",
			})
		}
	}

	var rows []wrapped
	var cur wrapped
	for _, it := range items {
		if cur.width+it.width > maxW && len(cur.items) > 0 && !it.space {
			rows = append(rows, trimRow(cur))
			cur = wrapped{}
		}
		if it.space && len(cur.items) == 0 && len(rows) > 0 {
			continue
		}
		cur.items = append(cur.items, it)
		cur.width += it.width
	}
	if len(cur.items) > 0 || len(rows) == 0 {
		rows = append(rows, trimRow(cur))
	}
	return rows
}

func trimRow(w wrapped) wrapped {
	for len(w.items) > 0 && w.items[len(w.items)-1].space {
		w.width -= w.items[len(w.items)-1].width
		w.items = w.items[:len(w.items)-1]
	}
	return w
}

// splitWords cuts s into alternating runs of spaces and non-spaces.
func splitWords(s string) []string {
	var out []string
	start, inSpace := 0, false
	for i, c := range s {
		sp := unicode.IsSpace(c)
		if i > start && sp != inSpace {
			out = append(out, s[start:i])
			start = i
		}
		inSpace = sp
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}

func alignX(box layout.Box, width float64, align string) float64 {
	switch align {
	case "center":
		return box.X + (box.W-width)/2
	case "right":
		return box.X + box.W - width
	}
	return box.X
}

func px(v float64) int {
	n := int(math.Round(v))
	if n < 1 {
		return 1
	}
	return n
}

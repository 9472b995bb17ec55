package imagepkg

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/gogpu/gg"

	"github.com/youruser/cardsmith/internal/layout"
)

// luminance weights shared by the saturate and hue-rotate color matrices
const (
	lumR = 0.213
	lumG = 0.715
	lumB = 0.072
)

type colorMatrix [3][3]float64

func (m colorMatrix) mul(o colorMatrix) colorMatrix {
	var out colorMatrix
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				out[i][j] += m[i][k] * o[k][j]
			}
		}
	}
	return out
}

func saturateMatrix(s float64) colorMatrix {
	return colorMatrix{
		{lumR + (1-lumR)*s, lumG - lumG*s, lumB - lumB*s},
		{lumR - lumR*s, lumG + (1-lumG)*s, lumB - lumB*s},
		{lumR - lumR*s, lumG - lumG*s, lumB + (1-lumB)*s},
	}
}

func hueRotateMatrix(deg float64) colorMatrix {
	a := math.Cos(deg * math.Pi / 180)
	b := math.Sin(deg * math.Pi / 180)
	return colorMatrix{
		{lumR + a*(1-lumR) - b*lumR, lumG - a*lumG - b*lumG, lumB - a*lumB + b*(1-lumB)},
		{lumR - a*lumR + b*0.143, lumG + a*(1-lumG) + b*0.140, lumB - a*lumB - b*0.283},
		{lumR - a*lumR - b*(1-lumR), lumG - a*lumG + b*lumG, lumB + a*(1-lumB) + b*lumB},
	}
}

// ApplyGrade applies saturation then hue rotation. Identity settings return
// img unchanged.
func ApplyGrade(img image.Image, g layout.Grade) image.Image {
	if g.Saturation == 1 && math.Mod(g.HueRotate, 360) == 0 {
		return img
	}
	m := hueRotateMatrix(g.HueRotate).mul(saturateMatrix(g.Saturation))
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		r, gr, b := float64(c.R), float64(c.G), float64(c.B)
		return color.NRGBA{
			R: clamp8(m[0][0]*r + m[0][1]*gr + m[0][2]*b),
			G: clamp8(m[1][0]*r + m[1][1]*gr + m[1][2]*b),
			B: clamp8(m[2][0]*r + m[2][1]*gr + m[2][2]*b),
			A: c.A,
		}
	})
}

// gradientLine returns the start and end points of a CSS-style linear
// gradient at angle degrees over a w×h box. 180 runs top to bottom.
func gradientLine(w, h, angle float64) (x0, y0, x1, y1 float64) {
	rad := angle * math.Pi / 180
	dx, dy := math.Sin(rad), -math.Cos(rad)
	half := (math.Abs(w*dx) + math.Abs(h*dy)) / 2
	cx, cy := w/2, h/2
	return cx - dx*half, cy - dy*half, cx + dx*half, cy + dy*half
}

// MaskedGradient paints the gradient over a w×h canvas and keeps it only
// where mask is opaque, scaled by the gradient opacity.
func MaskedGradient(mask image.Image, w, h int, g layout.Gradient) *image.NRGBA {
	dc := gg.NewContext(w, h)
	defer dc.Close()
	x0, y0, x1, y1 := gradientLine(float64(w), float64(h), g.AngleDegrees)
	dc.SetFillBrush(gg.NewLinearGradientBrush(x0, y0, x1, y1).
		AddColorStop(0, gg.Hex(g.Start)).
		AddColorStop(1, gg.Hex(g.End)))
	dc.DrawRectangle(0, 0, float64(w), float64(h))
	_ = dc.Fill()

	b := mask.Bounds()
	if b.Dx() != w || b.Dy() != h {
		mask = imaging.Resize(mask, w, h, imaging.Linear)
	}
	alpha := gg.NewMaskFromAlpha(mask)
	src := imaging.Clone(dc.Image())
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := src.NRGBAAt(x, y)
			a := float64(c.A) * float64(alpha.At(x, y)) / 255 * g.Opacity
			c.A = clamp8(a)
			out.SetNRGBA(x, y, c)
		}
	}
	return out
}

// Glow returns a blurred silhouette of img in col, padded by radius on
// every side.
func Glow(img image.Image, col color.Color, radius float64) *image.NRGBA {
	pad := int(math.Ceil(radius * 2))
	b := img.Bounds()
	nc := color.NRGBAModel.Convert(col).(color.NRGBA)
	sil := imaging.New(b.Dx()+pad*2, b.Dy()+pad*2, color.Transparent)
	src := imaging.Clone(img)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			a := src.NRGBAAt(x, y).A
			if a == 0 {
				continue
			}
			sil.SetNRGBA(x+pad, y+pad, color.NRGBA{R: nc.R, G: nc.G, B: nc.B, A: a})
		}
	}
	if radius <= 0 {
		return sil
	}
	return imaging.Blur(sil, radius)
}

func clamp8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

package template

// Text alignments accepted by FontSpec.
const (
	AlignLeft   = "left"
	AlignCenter = "center"
	AlignRight  = "right"
)

// FontSpec describes how a text role is drawn.
type FontSpec struct {
	Family    string  `json:"family"`
	SizePx    float64 `json:"sizePx"`
	Color     string  `json:"color"`
	TextAlign string  `json:"textAlign,omitempty"`
	Italic    bool    `json:"italic,omitempty"`
	Bold      bool    `json:"bold,omitempty"`
}

// FontMap maps a font role name to its spec.
type FontMap map[string]FontSpec

func (f FontSpec) withDefaults() FontSpec {
	if f.Family == "" {
		f.Family = "Go"
	}
	if f.SizePx <= 0 {
		f.SizePx = 14
	}
	if f.Color == "" {
		f.Color = "#000000"
	}
	if f.TextAlign == "" {
		f.TextAlign = AlignLeft
	}
	return f
}

// DefaultFonts returns the font roles of the standard frame.
func DefaultFonts() FontMap {
	return FontMap{
		RoleTitle:           {Family: "Go", SizePx: 20, Color: "#000000", TextAlign: AlignLeft, Bold: true},
		RoleManaCost:        {Family: "Go", SizePx: 18, Color: "#000000", TextAlign: AlignRight},
		RoleTypeLine:        {Family: "Go", SizePx: 16, Color: "#000000", TextAlign: AlignLeft, Bold: true},
		RoleRulesText:       {Family: "Go", SizePx: 14, Color: "#000000", TextAlign: AlignLeft},
		RoleFlavorText:      {Family: "Go", SizePx: 13, Color: "#000000", TextAlign: AlignLeft, Italic: true},
		RolePT:              {Family: "Go", SizePx: 20, Color: "#000000", TextAlign: AlignCenter, Bold: true},
		RoleArtist:          {Family: "Go", SizePx: 9, Color: "#FFFFFF", TextAlign: AlignLeft},
		RoleCollectorNumber: {Family: "Go", SizePx: 9, Color: "#FFFFFF", TextAlign: AlignRight},
	}
}

package template

// Default returns the standard frame layout with every built-in element
// placed and all font roles declared. Callers still own ID, OwnerID and
// FrameImage.
func Default() *Template {
	return &Template{
		Name: "Standard",
		Elements: Elements{
			Title:           ElementBox{X: 7, Y: 4.5, Width: 62, Height: 5.5},
			ManaCost:        ElementBox{X: 69, Y: 4.5, Width: 24, Height: 5.5},
			Art:             ElementBox{X: 7.5, Y: 11, Width: 85, Height: 45},
			TypeLine:        ElementBox{X: 7, Y: 57, Width: 74, Height: 5.5},
			SetSymbol:       ElementBox{X: 84, Y: 57, Width: 8, Height: 5.5},
			TextBox:         ElementBox{X: 8, Y: 64, Width: 84, Height: 26},
			PTBox:           ElementBox{X: 76, Y: 88.5, Width: 17, Height: 5.5},
			CollectorNumber: ElementBox{X: 55, Y: 94.5, Width: 20, Height: 2.5},
			Artist:          ElementBox{X: 7, Y: 94.5, Width: 45, Height: 2.5},
		},
		Fonts: DefaultFonts(),
	}
}

// Normalize fills missing font roles from the defaults and clamps the color
// grade into range. Absent optional color grade values stay absent.
func (t *Template) Normalize() {
	if t.Fonts == nil {
		t.Fonts = FontMap{}
	}
	for role, spec := range DefaultFonts() {
		if _, ok := t.Fonts[role]; !ok {
			t.Fonts[role] = spec
		}
	}
	if t.Saturation != nil {
		t.Saturation = Float(clamp(*t.Saturation, 0, 2))
	}
	if t.HueRotateDegrees != nil {
		t.HueRotateDegrees = Float(clamp(*t.HueRotateDegrees, 0, 360))
	}
	if t.GradientOpacity != nil {
		t.GradientOpacity = Float(clamp(*t.GradientOpacity, 0, 1))
	}
}

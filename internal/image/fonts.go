package imagepkg

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/goregular"
)

type fontKey struct {
	family       string
	bold, italic bool
}

// Fonts resolves template font families to faces. Only the Go font family
// is embedded; unknown families fall back to it.
type Fonts struct {
	mu      sync.Mutex
	sources map[fontKey]*text.FontSource
}

func NewFonts() (*Fonts, error) {
	f := &Fonts{sources: map[fontKey]*text.FontSource{}}
	embedded := map[fontKey][]byte{
		{"go", false, false}:      goregular.TTF,
		{"go", true, false}:       gobold.TTF,
		{"go", false, true}:       goitalic.TTF,
		{"go", true, true}:        gobolditalic.TTF,
		{"go mono", false, false}: gomono.TTF,
		{"go mono", true, false}:  gomonobold.TTF,
	}
	for k, data := range embedded {
		src, err := text.NewFontSource(data)
		if err != nil {
			return nil, fmt.Errorf("load font %s: %w", k.family, err)
		}
		f.sources[k] = src
	}
	return f, nil
}

// Register adds a TrueType font under family.
func (f *Fonts) Register(family string, bold, italic bool, ttf []byte) error {
	src, err := text.NewFontSource(ttf)
	if err != nil {
		return fmt.Errorf("register font %s: %w", family, err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sources[fontKey{strings.ToLower(family), bold, italic}] = src
	return nil
}

// Face returns a face for the family and style at size px.
func (f *Fonts) Face(family string, size float64, bold, italic bool) text.Face {
	f.mu.Lock()
	defer f.mu.Unlock()
	fam := strings.ToLower(strings.TrimSpace(family))
	for _, k := range []fontKey{
		{fam, bold, italic},
		{fam, bold, false},
		{fam, false, false},
		{"go", bold, italic},
	} {
		if src, ok := f.sources[k]; ok {
			return src.Face(size)
		}
	}
	return f.sources[fontKey{"go", false, false}].Face(size)
}

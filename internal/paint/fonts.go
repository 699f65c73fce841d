package paint

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// Fonts are the parsed faces used by the raster surface.
type Fonts struct {
	Regular *opentype.Font
	Bold    *opentype.Font
}

// FontLoader parses the embedded Go fonts once. A failure is remembered and
// returned on every later call.
type FontLoader struct {
	once  sync.Once
	parse func() (*Fonts, error)
	fonts *Fonts
	err   error
}

// NewFontLoader returns a loader for the embedded Go fonts.
func NewFontLoader() *FontLoader {
	return &FontLoader{parse: parseGoFonts}
}

// Load parses the fonts on first use.
func (l *FontLoader) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.once.Do(func() {
		l.fonts, l.err = l.parse()
	})
	return l.err
}

// Fonts returns the loaded fonts or nil before a successful Load.
func (l *FontLoader) Fonts() *Fonts {
	if l == nil || l.err != nil {
		return nil
	}
	return l.fonts
}

func parseGoFonts() (*Fonts, error) {
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse regular font: %w", err)
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse bold font: %w", err)
	}
	return &Fonts{Regular: regular, Bold: bold}, nil
}

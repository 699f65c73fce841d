package paint

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"sync"

	colorful "github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/verte-zerg/pronocloud/internal/layout"
)

const maxCachedFaces = 256

type faceKey struct {
	size float64
	bold bool
}

// RasterSurface draws onto an RGBA image using the Go fonts.
type RasterSurface struct {
	mu     sync.Mutex
	loader *FontLoader
	img    *image.RGBA
	faces  map[faceKey]font.Face
}

// NewRasterSurface returns a width by height surface. Fonts come from
// loader and must be loaded before anything is measured or drawn.
func NewRasterSurface(loader *FontLoader, width, height int) *RasterSurface {
	s := &RasterSurface{loader: loader, faces: map[faceKey]font.Face{}}
	s.Resize(float64(width), float64(height))
	return s
}

// Size returns the image size in pixels.
func (s *RasterSurface) Size() (float64, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.img.Bounds()
	return float64(b.Dx()), float64(b.Dy())
}

// Resize replaces the image.
func (s *RasterSurface) Resize(width, height float64) {
	w := max(int(width), 1)
	h := max(int(height), 1)
	s.mu.Lock()
	s.img = image.NewRGBA(image.Rect(0, 0, w, h))
	s.mu.Unlock()
}

// Measure returns the tight ink bounds of text at size.
func (s *RasterSurface) Measure(text string, size float64) layout.Extents {
	s.mu.Lock()
	defer s.mu.Unlock()
	face := s.face(size, false)
	if face == nil {
		return layout.Extents{}
	}
	return inkExtents(face, text)
}

func inkExtents(face font.Face, text string) layout.Extents {
	bounds, _ := font.BoundString(face, text)
	return layout.Extents{
		Left:    fixedToFloat(bounds.Min.X),
		Right:   fixedToFloat(bounds.Max.X),
		Ascent:  -fixedToFloat(bounds.Min.Y),
		Descent: fixedToFloat(bounds.Max.Y),
	}
}

// Clear fills the image with bg.
func (s *RasterSurface) Clear(bg colorful.Color) {
	s.mu.Lock()
	defer s.mu.Unlock()
	draw.Draw(s.img, s.img.Bounds(), image.NewUniform(toNRGBA(bg, 1)), image.Point{}, draw.Src)
}

// DrawText draws text with its ink center on (x, y).
func (s *RasterSurface) DrawText(text string, size, x, y float64, style TextStyle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	face := s.face(size, style.Bold)
	if face == nil {
		return
	}
	b := s.img.Bounds()
	ext := inkExtents(face, text)
	px, py := layout.PenOrigin(ext, float64(b.Dx())/2+x, float64(b.Dy())/2+y)

	if style.GlowRadius > 0 {
		r := style.GlowRadius
		for i := 0; i < 8; i++ {
			a := float64(i) * math.Pi / 4
			s.drawString(face, text, px+r*math.Cos(a), py+r*math.Sin(a), toNRGBA(style.Glow, 0.35))
		}
	}
	if style.Stroke {
		stroke := toNRGBA(style.Glow, 1)
		for _, d := range [][2]float64{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
			s.drawString(face, text, px+d[0], py+d[1], stroke)
		}
	}
	s.drawString(face, text, px, py, toNRGBA(style.Color, 1))
}

func (s *RasterSurface) drawString(face font.Face, text string, x, y float64, c color.NRGBA) {
	d := &font.Drawer{
		Dst:  s.img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.Point26_6{X: floatToFixed(x), Y: floatToFixed(y)},
	}
	d.DrawString(text)
}

// DrawRing strokes a two pixel circle.
func (s *RasterSurface) DrawRing(x, y, radius float64, c colorful.Color, alpha float64) {
	if radius <= 0 || alpha <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.img.Bounds()
	cx := float64(b.Dx())/2 + x
	cy := float64(b.Dy())/2 + y
	src := image.NewUniform(toNRGBA(c, alpha))
	steps := max(32, int(2*math.Pi*radius))
	for i := 0; i < steps; i++ {
		a := 2 * math.Pi * float64(i) / float64(steps)
		px := int(math.Round(cx + radius*math.Cos(a)))
		py := int(math.Round(cy + radius*math.Sin(a)))
		draw.Draw(s.img, image.Rect(px, py, px+2, py+2), src, image.Point{}, draw.Over)
	}
}

// Present is a no-op; the image is always current.
func (s *RasterSurface) Present() {}

// Image returns a copy of the current image.
func (s *RasterSurface) Image() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := image.NewRGBA(s.img.Bounds())
	copy(out.Pix, s.img.Pix)
	return out
}

// WritePNG encodes the current image.
func (s *RasterSurface) WritePNG(w io.Writer) error {
	if err := png.Encode(w, s.Image()); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// face returns a cached face. Callers hold s.mu.
func (s *RasterSurface) face(size float64, bold bool) font.Face {
	fonts := s.loader.Fonts()
	if fonts == nil || size <= 0 {
		return nil
	}
	key := faceKey{size: math.Round(size*4) / 4, bold: bold}
	if f, ok := s.faces[key]; ok {
		return f
	}
	if len(s.faces) >= maxCachedFaces {
		for k, f := range s.faces {
			_ = f.Close()
			delete(s.faces, k)
		}
	}
	src := fonts.Regular
	if bold {
		src = fonts.Bold
	}
	f, err := opentype.NewFace(src, &opentype.FaceOptions{Size: key.size, DPI: 72, Hinting: font.HintingNone})
	if err != nil {
		return nil
	}
	s.faces[key] = f
	return f
}

func toNRGBA(c colorful.Color, alpha float64) color.NRGBA {
	r, g, b := c.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: uint8(math.Round(clamp01(alpha) * 255))}
}

func fixedToFloat(v fixed.Int26_6) float64 { return float64(v) / 64 }

func floatToFixed(v float64) fixed.Int26_6 { return fixed.Int26_6(math.Round(v * 64)) }

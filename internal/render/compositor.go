package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"io"
	"log"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Placement is one value to draw onto a page. X and Y are normalized to
// the page dimensions; Mark draws a check mark instead of text.
type Placement struct {
	FieldID string
	Page    int
	X       float64
	Y       float64
	Text    string
	Mark    bool
}

// Compositor draws answers onto page images. Base images are never
// mutated; every render starts from a fresh copy.
type Compositor struct {
	ink      color.Color
	face     font.Face
	markSize int
	logger   *log.Logger
}

// NewCompositor returns a compositor drawing in dark blue ink.
func NewCompositor() *Compositor {
	return &Compositor{
		ink:      color.RGBA{R: 16, G: 32, B: 160, A: 255},
		face:     basicfont.Face7x13,
		markSize: 6,
		logger:   log.Default(),
	}
}

// Render draws placements onto copies of the page images and returns the
// copies in page order. Placements referring to a page that does not exist
// are logged and dropped; Render reports how many were drawn.
func (c *Compositor) Render(pages []image.Image, placements []Placement) ([]*image.RGBA, int, error) {
	if len(pages) == 0 {
		return nil, 0, fmt.Errorf("no page images to render onto")
	}

	out := make([]*image.RGBA, len(pages))
	for i, page := range pages {
		out[i] = clonePage(page)
	}

	drawn := 0
	for _, p := range placements {
		if p.Page < 0 || p.Page >= len(out) {
			c.logger.Printf("render: dropping %s, page %d out of range", p.FieldID, p.Page)
			continue
		}
		dst := out[p.Page]
		bounds := dst.Bounds()
		px := Denormalize(p.X, bounds.Dx())
		py := Denormalize(p.Y, bounds.Dy())
		if p.Mark {
			c.drawMark(dst, px, py)
		} else {
			c.drawText(dst, px, py, p.Text)
		}
		drawn++
	}
	return out, drawn, nil
}

// EncodeJPEG writes a rendered page as a JPEG at archival quality.
func (c *Compositor) EncodeJPEG(w io.Writer, page *image.RGBA) error {
	return jpeg.Encode(w, page, &jpeg.Options{Quality: 95})
}

// drawText draws a string left-anchored at the point, vertically centered
// on the baseline of the face.
func (c *Compositor) drawText(dst *image.RGBA, x, y int, text string) {
	metrics := c.face.Metrics()
	baseline := y + metrics.Ascent.Round()/2
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c.ink),
		Face: c.face,
		Dot:  fixed.P(x, baseline),
	}
	d.DrawString(text)
}

// drawMark draws an X centered on the point, the way a pen fills a
// checkbox.
func (c *Compositor) drawMark(dst *image.RGBA, x, y int) {
	r := c.markSize
	c.drawLine(dst, x-r, y-r, x+r, y+r)
	c.drawLine(dst, x-r, y+r, x+r, y-r)
}

func (c *Compositor) drawLine(dst *image.RGBA, x0, y0, x1, y1 int) {
	steps := int(math.Max(math.Abs(float64(x1-x0)), math.Abs(float64(y1-y0))))
	if steps == 0 {
		dst.Set(x0, y0, c.ink)
		return
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		x := x0 + int(math.Round(t*float64(x1-x0)))
		y := y0 + int(math.Round(t*float64(y1-y0)))
		dst.Set(x, y, c.ink)
	}
}

func clonePage(src image.Image) *image.RGBA {
	bounds := src.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, src, bounds.Min, draw.Src)
	return dst
}

// Denormalize converts a [0,1] coordinate into a pixel offset.
func Denormalize(v float64, extent int) int {
	return int(math.Round(v * float64(extent)))
}

// Normalize converts a pixel offset into a [0,1] coordinate.
func Normalize(px int, extent int) float64 {
	if extent == 0 {
		return 0
	}
	return float64(px) / float64(extent)
}

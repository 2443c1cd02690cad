// Package display provides the 128x64 monochrome drawing surface the
// console panel renders into
package display

import (
	"image/color"

	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

const (
	// Width and Height are the panel size in pixels
	Width  = 128
	Height = 64

	// CharWidth and LineHeight are the text cell size in pixels
	CharWidth  = 6
	LineHeight = 8

	// fontBaseline is the baseline offset from the top of a text cell
	fontBaseline = 6
)

// Color is a monochrome pixel value
type Color uint8

const (
	Off Color = iota
	On
)

var (
	black = color.RGBA{0, 0, 0, 255}
	white = color.RGBA{255, 255, 255, 255}
)

func (c Color) rgba() color.RGBA {
	if c == On {
		return white
	}
	return black
}

// Surface is what the console views draw on. Coordinates are pixels with
// the origin at the top-left corner; text positions name the top-left of
// the first character cell.
type Surface interface {
	Clear(c Color)
	DrawChar(x, y int, c Color, ch byte)
	DrawString(x, y int, c Color, text string)
	DrawRect(x0, y0, x1, y1 int, c Color)
	DrawLine(x0, y0, x1, y1 int, c Color)
	Present() error
}

// Presenter puts a finished frame in front of the operator
type Presenter interface {
	Show(fb *Framebuffer) error
}

// Framebuffer is an in-memory panel image. It satisfies drivers.Displayer
// so tinyfont can render glyphs into it.
type Framebuffer struct {
	pixels    [Height][Width]bool
	presenter Presenter
	font      tinyfont.Fonter
}

var _ drivers.Displayer = (*Framebuffer)(nil)
var _ Surface = (*Framebuffer)(nil)

// NewFramebuffer creates a blank framebuffer that presents through p.
// p may be nil, in which case Present does nothing.
func NewFramebuffer(p Presenter) *Framebuffer {
	return &Framebuffer{
		presenter: p,
		font:      &proggy.TinySZ8pt7b,
	}
}

// Size implements drivers.Displayer
func (fb *Framebuffer) Size() (x, y int16) {
	return Width, Height
}

// SetPixel implements drivers.Displayer; any non-black color lights the pixel
func (fb *Framebuffer) SetPixel(x, y int16, c color.RGBA) {
	fb.set(int(x), int(y), c.R|c.G|c.B != 0)
}

// Display implements drivers.Displayer
func (fb *Framebuffer) Display() error {
	return fb.Present()
}

// Pixel reports whether the pixel at x, y is lit
func (fb *Framebuffer) Pixel(x, y int) bool {
	if x < 0 || x >= Width || y < 0 || y >= Height {
		return false
	}
	return fb.pixels[y][x]
}

func (fb *Framebuffer) set(x, y int, on bool) {
	if x < 0 || x >= Width || y < 0 || y >= Height {
		return
	}
	fb.pixels[y][x] = on
}

// Clear fills the whole panel with c
func (fb *Framebuffer) Clear(c Color) {
	on := c == On
	for y := range fb.pixels {
		for x := range fb.pixels[y] {
			fb.pixels[y][x] = on
		}
	}
}

// DrawChar draws one glyph in the cell whose top-left corner is x, y.
// Only the glyph's lit pixels are written, so drawing in Off over a filled
// rectangle gives inverted text.
func (fb *Framebuffer) DrawChar(x, y int, c Color, ch byte) {
	if ch == ' ' || ch == 0 {
		return
	}
	tinyfont.DrawChar(fb, fb.font, int16(x), int16(y+fontBaseline), rune(ch), c.rgba())
}

// DrawString draws text on a fixed character grid starting at x, y. A
// newline continues one line lower at the starting column.
func (fb *Framebuffer) DrawString(x, y int, c Color, text string) {
	cx, cy := x, y
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if ch == '\n' {
			cx = x
			cy += LineHeight
			continue
		}
		fb.DrawChar(cx, cy, c, ch)
		cx += CharWidth
	}
}

// DrawRect fills the rectangle spanning both corners, inclusive
func (fb *Framebuffer) DrawRect(x0, y0, x1, y1 int, c Color) {
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}

	on := c == On
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			fb.set(x, y, on)
		}
	}
}

// DrawLine draws a line between both end points, inclusive
func (fb *Framebuffer) DrawLine(x0, y0, x1, y1 int, c Color) {
	on := c == On

	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}

	err := dx + dy
	for {
		fb.set(x0, y0, on)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// Present hands the frame to the presenter
func (fb *Framebuffer) Present() error {
	if fb.presenter == nil {
		return nil
	}
	return fb.presenter.Show(fb)
}

// LitPixels counts the lit pixels inside the rectangle, inclusive
func (fb *Framebuffer) LitPixels(x0, y0, x1, y1 int) int {
	n := 0
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			if fb.Pixel(x, y) {
				n++
			}
		}
	}
	return n
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

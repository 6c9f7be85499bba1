package render

import (
	"image/color"

	uv "github.com/charmbracelet/ultraviolet"
)

// Display is a cell screen that can push its contents to the terminal.
// *uv.Terminal satisfies it.
type Display interface {
	uv.Screen
	Display() error
}

// TerminalRenderer presents a framebuffer with half-block cells: each
// terminal row shows two framebuffer rows (▀ with fg=top, bg=bottom).
type TerminalRenderer struct {
	display Display
	cols    int
	rows    int
}

// NewTerminalRenderer creates a renderer for a cols x rows terminal.
func NewTerminalRenderer(d Display, cols, rows int) *TerminalRenderer {
	return &TerminalRenderer{display: d, cols: cols, rows: rows}
}

// FramebufferSize returns the framebuffer dimensions matching the terminal.
func (t *TerminalRenderer) FramebufferSize() (width, height int) {
	return t.cols, t.rows * 2
}

// Render draws fb onto the screen cells.
func (t *TerminalRenderer) Render(fb *Framebuffer) {
	fb.Draw(t.display, uv.Rect(0, 0, t.cols, t.rows))
}

// Flush sends the drawn cells to the terminal.
func (t *TerminalRenderer) Flush() error {
	return t.display.Display()
}

// Draw converts the framebuffer to terminal cells within area.
func (fb *Framebuffer) Draw(scr uv.Screen, area uv.Rectangle) {
	for row := area.Min.Y; row < area.Max.Y; row++ {
		topY := row * 2
		botY := topY + 1

		for col := area.Min.X; col < area.Max.X && col < fb.Width; col++ {
			scr.SetCell(col, row, &uv.Cell{
				Content: "▀",
				Width:   1,
				Style: uv.Style{
					Fg: cellColor(fb.GetPixel(col, topY)),
					Bg: cellColor(fb.GetPixel(col, botY)),
				},
			})
		}
	}
}

func cellColor(c color.RGBA) color.Color {
	if c.A == 0 {
		return nil
	}
	return c
}

// Color is an alias for color.RGBA.
type Color = color.RGBA

// RGB creates an opaque color.
func RGB(r, g, b uint8) color.RGBA {
	return color.RGBA{r, g, b, 255}
}

var (
	ColorBlack  = RGB(0, 0, 0)
	ColorWhite  = RGB(255, 255, 255)
	ColorYellow = RGB(255, 255, 0)
	ColorGray   = RGB(128, 128, 128)
)

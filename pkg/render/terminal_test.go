package render

import (
	"image/color"
	"testing"

	uv "github.com/charmbracelet/ultraviolet"
)

type fakeDisplay struct {
	uv.ScreenBuffer
	flushes int
}

func (d *fakeDisplay) Display() error {
	d.flushes++
	return nil
}

func TestFramebufferDrawHalfBlocks(t *testing.T) {
	fb := NewFramebuffer(2, 4)
	fb.SetPixel(0, 0, ColorWhite)
	fb.SetPixel(0, 1, ColorYellow)
	fb.SetPixel(1, 2, ColorGray)

	scr := uv.NewScreenBuffer(2, 2)
	fb.Draw(scr, uv.Rect(0, 0, 2, 2))

	tests := []struct {
		x, y   int
		fg, bg color.Color
	}{
		{0, 0, ColorWhite, ColorYellow},
		{1, 0, nil, nil}, // transparent black after NewFramebuffer
		{1, 1, ColorGray, nil},
	}
	for _, tt := range tests {
		c := scr.CellAt(tt.x, tt.y)
		if c == nil {
			t.Fatalf("no cell at %d,%d", tt.x, tt.y)
		}
		if c.Content != "▀" {
			t.Errorf("cell %d,%d content = %q", tt.x, tt.y, c.Content)
		}
		if c.Style.Fg != tt.fg || c.Style.Bg != tt.bg {
			t.Errorf("cell %d,%d = fg %v bg %v, want %v %v", tt.x, tt.y, c.Style.Fg, c.Style.Bg, tt.fg, tt.bg)
		}
	}
}

func TestTerminalRenderer(t *testing.T) {
	d := &fakeDisplay{ScreenBuffer: uv.NewScreenBuffer(3, 2)}
	tr := NewTerminalRenderer(d, 3, 2)

	w, h := tr.FramebufferSize()
	if w != 3 || h != 4 {
		t.Fatalf("FramebufferSize = %dx%d, want 3x4", w, h)
	}

	fb := NewFramebuffer(w, h)
	fb.Clear(ColorWhite)
	tr.Render(fb)
	if err := tr.Flush(); err != nil {
		t.Fatal(err)
	}
	if d.flushes != 1 {
		t.Errorf("flushes = %d", d.flushes)
	}
	if c := d.CellAt(2, 1); c == nil || c.Style.Bg != ColorWhite {
		t.Errorf("bottom-right cell = %+v", c)
	}
}

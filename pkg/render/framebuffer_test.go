package render

import (
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/taigrr/phong/pkg/math3d"
)

func TestToRGBA(t *testing.T) {
	tests := []struct {
		name string
		in   math3d.Vec4
		want color.RGBA
	}{
		{"in range", math3d.V4(0, 0.5, 1, 1), color.RGBA{0, 128, 255, 255}},
		{"over one clamps", math3d.V4(3, 1.2, 10, 1), color.RGBA{255, 255, 255, 255}},
		{"negative clamps", math3d.V4(-1, -0.1, 0, 1), color.RGBA{0, 0, 0, 255}},
		{"NaN is black", math3d.V4(math.NaN(), 0, 0, 1), color.RGBA{0, 0, 0, 255}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ToRGBA(tc.in); got != tc.want {
				t.Errorf("ToRGBA(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestFramebufferBounds(t *testing.T) {
	fb := NewFramebuffer(4, 3)
	fb.SetPixel(-1, 0, ColorWhite)
	fb.SetPixel(4, 0, ColorWhite)
	fb.SetPixel(0, 3, ColorWhite)
	for i, p := range fb.Pixels {
		if p != (color.RGBA{}) {
			t.Fatalf("pixel %d written by out-of-bounds SetPixel", i)
		}
	}
	if got := fb.GetPixel(10, 10); got != (color.RGBA{}) {
		t.Errorf("out-of-bounds GetPixel = %v", got)
	}

	fb.Clear(ColorGray)
	if got := fb.GetPixel(3, 2); got != ColorGray {
		t.Errorf("after Clear = %v, want gray", got)
	}
}

func TestDrawLine(t *testing.T) {
	fb := NewFramebuffer(5, 5)
	fb.DrawLine(0, 0, 4, 4, ColorWhite)
	for i := range 5 {
		if fb.GetPixel(i, i) != ColorWhite {
			t.Errorf("diagonal pixel (%d,%d) not set", i, i)
		}
	}
	if fb.GetPixel(4, 0) != (color.RGBA{}) {
		t.Error("off-line pixel set")
	}
}

func TestSavePNG(t *testing.T) {
	fb := NewFramebuffer(3, 2)
	fb.SetPixel(2, 1, RGB(10, 20, 30))
	path := filepath.Join(t.TempDir(), "out.png")

	if err := fb.SavePNG(path); err != nil {
		t.Fatalf("SavePNG: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 3 || b.Dy() != 2 {
		t.Fatalf("bounds = %v", b)
	}
	r, g, b, _ := img.At(2, 1).RGBA()
	if r>>8 != 10 || g>>8 != 20 || b>>8 != 30 {
		t.Errorf("pixel = %d,%d,%d, want 10,20,30", r>>8, g>>8, b>>8)
	}

	if err := fb.SavePNG(filepath.Join(t.TempDir(), "missing", "out.png")); err == nil {
		t.Error("unwritable path should fail")
	}
}

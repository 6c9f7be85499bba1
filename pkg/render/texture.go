package render

import (
	"fmt"
	"image"
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"math"
	"os"

	_ "golang.org/x/image/bmp"  // Register BMP decoder
	_ "golang.org/x/image/tiff" // Register TIFF decoder
	_ "golang.org/x/image/webp" // Register WebP decoder

	"github.com/taigrr/phong/pkg/logging"
	"github.com/taigrr/phong/pkg/math3d"
)

// WrapMode determines how texture coordinates outside [0,1] are handled.
type WrapMode int

const (
	WrapRepeat WrapMode = iota // Tile the texture
	WrapClamp                  // Clamp to edge
)

// FilterMode determines how texture sampling is performed.
type FilterMode int

const (
	FilterNearest  FilterMode = iota // Nearest-neighbor (pixelated)
	FilterBilinear                   // Bilinear interpolation (smooth)
)

// Texture is a 2D image bound to a material slot. It implements
// shading.Sampler.
type Texture struct {
	Width      int
	Height     int
	Pixels     []math3d.Vec4 // row-major, normalized RGBA
	WrapU      WrapMode
	WrapV      WrapMode
	FilterMode FilterMode
}

// NewTexture creates an empty texture with the given dimensions.
func NewTexture(width, height int) *Texture {
	return &Texture{
		Width:      width,
		Height:     height,
		Pixels:     make([]math3d.Vec4, width*height),
		WrapU:      WrapRepeat,
		WrapV:      WrapRepeat,
		FilterMode: FilterBilinear,
	}
}

// LoadTexture loads a texture from a PNG, JPEG, BMP, TIFF or WebP file.
func LoadTexture(path string) (*Texture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open texture: %w", err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	logging.Logger().Debug("loaded texture", "path", path, "format", format,
		"width", img.Bounds().Dx(), "height", img.Bounds().Dy())
	return TextureFromImage(img), nil
}

// TextureFromImage creates a texture from an image.Image.
func TextureFromImage(img image.Image) *Texture {
	bounds := img.Bounds()
	tex := NewTexture(bounds.Dx(), bounds.Dy())

	for y := range tex.Height {
		for x := range tex.Width {
			r, g, b, a := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			tex.Pixels[y*tex.Width+x] = math3d.V4(
				float64(r)/0xffff,
				float64(g)/0xffff,
				float64(b)/0xffff,
				float64(a)/0xffff,
			)
		}
	}
	return tex
}

// NewCheckerTexture creates a procedural checkerboard texture.
func NewCheckerTexture(width, height, checkSize int, c1, c2 Color) *Texture {
	tex := NewTexture(width, height)
	tex.FilterMode = FilterNearest
	a, b := fromRGBA(c1), fromRGBA(c2)
	for y := range height {
		for x := range width {
			if (x/checkSize+y/checkSize)%2 == 0 {
				tex.SetPixel(x, y, a)
			} else {
				tex.SetPixel(x, y, b)
			}
		}
	}
	return tex
}

// NewBrickNormalTexture creates a tangent-space normal map of raised
// bricks: flat faces with bevelled mortar edges.
func NewBrickNormalTexture(width, height, rows int) *Texture {
	tex := NewTexture(width, height)
	rowH := float64(height) / float64(rows)
	brickW := rowH * 2
	const bevel = 0.15

	for y := range height {
		row := int(float64(y) / rowH)
		fy := math.Mod(float64(y), rowH) / rowH
		offset := 0.0
		if row%2 == 1 {
			offset = brickW / 2
		}
		for x := range width {
			fx := math.Mod(float64(x)+offset, brickW) / brickW

			n := math3d.V3(0, 0, 1)
			switch {
			case fx < bevel:
				n = math3d.V3(-1, 0, 1)
			case fx > 1-bevel:
				n = math3d.V3(1, 0, 1)
			case fy < bevel:
				n = math3d.V3(0, 1, 1)
			case fy > 1-bevel:
				n = math3d.V3(0, -1, 1)
			}
			n = n.Normalize()
			tex.SetPixel(x, y, math3d.V4((n.X+1)/2, (n.Y+1)/2, (n.Z+1)/2, 1))
		}
	}
	return tex
}

func fromRGBA(c Color) math3d.Vec4 {
	return math3d.V4(float64(c.R)/255, float64(c.G)/255, float64(c.B)/255, float64(c.A)/255)
}

// SetPixel sets a pixel in the texture.
func (t *Texture) SetPixel(x, y int, c math3d.Vec4) {
	if x < 0 || x >= t.Width || y < 0 || y >= t.Height {
		return
	}
	t.Pixels[y*t.Width+x] = c
}

// GetPixel returns the pixel at (x, y) with bounds checking.
func (t *Texture) GetPixel(x, y int) math3d.Vec4 {
	if x < 0 || x >= t.Width || y < 0 || y >= t.Height {
		return math3d.Vec4{}
	}
	return t.Pixels[y*t.Width+x]
}

// SampleRGBA samples the texture at uv. V=0 is the bottom of the image.
func (t *Texture) SampleRGBA(uv math3d.Vec2) math3d.Vec4 {
	if t.Width == 0 || t.Height == 0 {
		return math3d.Vec4{}
	}
	u := wrapCoord(uv.X, t.WrapU)
	v := 1 - wrapCoord(uv.Y, t.WrapV)

	if t.FilterMode == FilterBilinear {
		return t.sampleBilinear(u, v)
	}
	return t.sampleNearest(u, v)
}

// Sample returns the 8-bit colour at uv.
func (t *Texture) Sample(u, v float64) Color {
	return ToRGBA(t.SampleRGBA(math3d.V2(u, v)))
}

func wrapCoord(coord float64, mode WrapMode) float64 {
	switch mode {
	case WrapRepeat:
		return coord - math.Floor(coord)
	default:
		return math.Max(0, math.Min(1, coord))
	}
}

func (t *Texture) sampleNearest(u, v float64) math3d.Vec4 {
	x := min(int(u*float64(t.Width)), t.Width-1)
	y := min(int(v*float64(t.Height)), t.Height-1)
	return t.GetPixel(x, y)
}

func (t *Texture) sampleBilinear(u, v float64) math3d.Vec4 {
	fx := u*float64(t.Width) - 0.5
	fy := v*float64(t.Height) - 0.5

	x0 := int(math.Floor(fx))
	y0 := int(math.Floor(fy))
	tx := fx - float64(x0)
	ty := fy - float64(y0)

	x1 := wrapPixel(x0+1, t.Width, t.WrapU)
	y1 := wrapPixel(y0+1, t.Height, t.WrapV)
	x0 = wrapPixel(x0, t.Width, t.WrapU)
	y0 = wrapPixel(y0, t.Height, t.WrapV)

	top := lerp4(t.GetPixel(x0, y0), t.GetPixel(x1, y0), tx)
	bot := lerp4(t.GetPixel(x0, y1), t.GetPixel(x1, y1), tx)
	return lerp4(top, bot, ty)
}

func wrapPixel(x, size int, mode WrapMode) int {
	if mode == WrapRepeat {
		x %= size
		if x < 0 {
			x += size
		}
		return x
	}
	return max(0, min(x, size-1))
}

func lerp4(a, b math3d.Vec4, t float64) math3d.Vec4 {
	return math3d.V4(
		a.X+(b.X-a.X)*t,
		a.Y+(b.Y-a.Y)*t,
		a.Z+(b.Z-a.Z)*t,
		a.W+(b.W-a.W)*t,
	)
}

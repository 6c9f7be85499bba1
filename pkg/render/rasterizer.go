package render

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/taigrr/phong/pkg/logging"
	"github.com/taigrr/phong/pkg/math3d"
	"github.com/taigrr/phong/pkg/shading"
)

// ErrIndexCount is returned when a draw call's index count is not a
// multiple of three.
var ErrIndexCount = errors.New("index count is not a multiple of 3")

// DrawCall is one indexed draw: a vertex stream, triangle indices and the
// per-draw uniforms.
type DrawCall struct {
	Vertices   []shading.VertexInput
	Indices    []int // three per triangle
	Transforms shading.Transforms

	// Uniforms selects the lit pipeline. When nil every covered fragment
	// is written with Color instead.
	Uniforms *shading.Uniforms
	Options  shading.Options
	Color    math3d.Vec4
}

// DrawStats reports what a draw call did.
type DrawStats struct {
	Triangles int // submitted
	Skipped   int // degenerate or crossing the camera plane
	Fragments int // passed the depth test and were shaded
	Bands     int // row bands dispatched
}

// Rasterizer turns draw calls into fragments, runs the fragment stage on
// each and resolves visibility with a depth buffer.
type Rasterizer struct {
	fb      *Framebuffer
	zbuffer []float64

	// Workers is the number of row bands shaded concurrently.
	// 0 means runtime.GOMAXPROCS(0).
	Workers int
}

// NewRasterizer creates a rasterizer that draws into fb.
func NewRasterizer(fb *Framebuffer) *Rasterizer {
	r := &Rasterizer{fb: fb}
	r.Resize()
	return r
}

// Resize resizes the depth buffer to match the framebuffer.
func (r *Rasterizer) Resize() {
	if r.fb == nil {
		r.zbuffer = nil
		return
	}
	r.zbuffer = make([]float64, r.fb.Width*r.fb.Height)
	r.ClearDepth()
}

// Framebuffer returns the colour target.
func (r *Rasterizer) Framebuffer() *Framebuffer {
	return r.fb
}

// Width returns the framebuffer width.
func (r *Rasterizer) Width() int {
	if r.fb == nil {
		return 0
	}
	return r.fb.Width
}

// Height returns the framebuffer height.
func (r *Rasterizer) Height() int {
	if r.fb == nil {
		return 0
	}
	return r.fb.Height
}

// ClearDepth clears the depth buffer (call before each frame).
func (r *Rasterizer) ClearDepth() {
	n := len(r.zbuffer)
	if n == 0 {
		return
	}
	r.zbuffer[0] = math.MaxFloat64
	for i := 1; i < n; i *= 2 {
		copy(r.zbuffer[i:], r.zbuffer[:i])
	}
}

// triangle is a primitive after the vertex stage and viewport mapping.
type triangle struct {
	v          [3]shading.VertexOutput
	x, y, z    [3]float64
	invW       [3]float64
	minX, maxX int
	minY, maxY int
}

// DrawIndexed runs the vertex stage over dc.Vertices, then rasterizes and
// shades every triangle. Row bands are shaded concurrently; each band owns
// its framebuffer and depth rows, so fragment invocations never share
// mutable state. It returns once every band has finished.
func (r *Rasterizer) DrawIndexed(ctx context.Context, dc DrawCall) (DrawStats, error) {
	if len(dc.Indices)%3 != 0 {
		return DrawStats{}, fmt.Errorf("draw %d indices: %w", len(dc.Indices), ErrIndexCount)
	}
	for _, idx := range dc.Indices {
		if idx < 0 || idx >= len(dc.Vertices) {
			return DrawStats{}, fmt.Errorf("index %d out of range [0,%d)", idx, len(dc.Vertices))
		}
	}

	out := make([]shading.VertexOutput, len(dc.Vertices))
	for i, v := range dc.Vertices {
		out[i] = shading.ShadeVertex(v, dc.Transforms)
	}

	stats := DrawStats{Triangles: len(dc.Indices) / 3}
	tris := make([]triangle, 0, stats.Triangles)
	for i := 0; i+2 < len(dc.Indices); i += 3 {
		tri, ok := r.setup(out[dc.Indices[i]], out[dc.Indices[i+1]], out[dc.Indices[i+2]])
		if !ok {
			stats.Skipped++
			continue
		}
		tris = append(tris, tri)
	}

	bands := r.bands()
	stats.Bands = len(bands)
	counts := make([]int, len(bands))

	g, ctx := errgroup.WithContext(ctx)
	for i, band := range bands {
		g.Go(func() error {
			n, err := r.shadeBand(ctx, tris, band[0], band[1], &dc)
			counts[i] = n
			return err
		})
	}
	err := g.Wait()
	for _, n := range counts {
		stats.Fragments += n
	}

	logging.Logger().Debug("draw indexed",
		"triangles", stats.Triangles, "skipped", stats.Skipped,
		"fragments", stats.Fragments, "bands", stats.Bands)
	return stats, err
}

// bands splits the framebuffer rows into [start, end) ranges.
func (r *Rasterizer) bands() [][2]int {
	h := r.Height()
	if h == 0 {
		return nil
	}
	workers := r.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, h)
	size := (h + workers - 1) / workers

	out := make([][2]int, 0, workers)
	for y := 0; y < h; y += size {
		out = append(out, [2]int{y, min(y+size, h)})
	}
	return out
}

// setup maps a triangle to screen space. Triangles with a vertex on or
// behind the camera plane, or with zero screen area, can't be rasterized.
func (r *Rasterizer) setup(a, b, c shading.VertexOutput) (triangle, bool) {
	tri := triangle{v: [3]shading.VertexOutput{a, b, c}}
	w, h := float64(r.Width()), float64(r.Height())

	for i, v := range tri.v {
		if v.Clip.W <= 0 {
			return triangle{}, false
		}
		ndc := v.Clip.PerspectiveDivide()
		tri.x[i] = (ndc.X + 1) * 0.5 * w
		tri.y[i] = (1 - ndc.Y) * 0.5 * h
		tri.z[i] = ndc.Z
		tri.invW[i] = 1 / v.Clip.W
	}

	area := (tri.x[1]-tri.x[0])*(tri.y[2]-tri.y[0]) - (tri.x[2]-tri.x[0])*(tri.y[1]-tri.y[0])
	if area == 0 || math.IsNaN(area) {
		return triangle{}, false
	}

	tri.minX = int(math.Max(0, math.Floor(min3(tri.x[0], tri.x[1], tri.x[2]))))
	tri.maxX = int(math.Min(w-1, math.Ceil(max3(tri.x[0], tri.x[1], tri.x[2]))))
	tri.minY = int(math.Max(0, math.Floor(min3(tri.y[0], tri.y[1], tri.y[2]))))
	tri.maxY = int(math.Min(h-1, math.Ceil(max3(tri.y[0], tri.y[1], tri.y[2]))))
	return tri, true
}

// shadeBand rasterizes all triangles clipped to rows [y0, y1).
func (r *Rasterizer) shadeBand(ctx context.Context, tris []triangle, y0, y1 int, dc *DrawCall) (int, error) {
	fragments := 0
	width := r.Width()

	for ti := range tris {
		if err := ctx.Err(); err != nil {
			return fragments, err
		}
		t := &tris[ti]

		for y := max(t.minY, y0); y <= min(t.maxY, y1-1); y++ {
			for x := t.minX; x <= t.maxX; x++ {
				bc := barycentric(
					t.x[0], t.y[0],
					t.x[1], t.y[1],
					t.x[2], t.y[2],
					float64(x)+0.5, float64(y)+0.5,
				)
				if bc.X < 0 || bc.Y < 0 || bc.Z < 0 {
					continue
				}

				z := bc.X*t.z[0] + bc.Y*t.z[1] + bc.Z*t.z[2]
				if z < -1 || z > 1 || z >= r.zbuffer[y*width+x] {
					continue
				}

				color := dc.Color
				if dc.Uniforms != nil {
					color = shading.Shade(t.interpolate(bc), dc.Uniforms, dc.Options)
				}
				r.zbuffer[y*width+x] = z
				r.fb.SetFragment(x, y, color)
				fragments++
			}
		}
	}
	return fragments, nil
}

// interpolate returns perspective-correct fragment inputs for screen-space
// barycentric coordinates bc.
func (t *triangle) interpolate(bc math3d.Vec3) shading.FragmentInput {
	w0, w1, w2 := bc.X*t.invW[0], bc.Y*t.invW[1], bc.Z*t.invW[2]
	s := 1 / (w0 + w1 + w2)
	w0, w1, w2 = w0*s, w1*s, w2*s

	a, b, c := &t.v[0], &t.v[1], &t.v[2]
	in := shading.FragmentInput{
		WorldPos: a.WorldPos.Scale(w0).Add(b.WorldPos.Scale(w1)).Add(c.WorldPos.Scale(w2)),
		UV:       a.UV.Scale(w0).Add(b.UV.Scale(w1)).Add(c.UV.Scale(w2)),
	}
	for i := range in.TBN {
		in.TBN[i] = a.TBN[i]*w0 + b.TBN[i]*w1 + c.TBN[i]*w2
	}
	return in
}

// barycentric calculates barycentric coordinates for point (px, py) in triangle.
// The result does not depend on winding order.
func barycentric(x0, y0, x1, y1, x2, y2, px, py float64) math3d.Vec3 {
	v0x, v0y := x2-x0, y2-y0
	v1x, v1y := x1-x0, y1-y0
	v2x, v2y := px-x0, py-y0

	dot00 := v0x*v0x + v0y*v0y
	dot01 := v0x*v1x + v0y*v1y
	dot02 := v0x*v2x + v0y*v2y
	dot11 := v1x*v1x + v1y*v1y
	dot12 := v1x*v2x + v1y*v2y

	invDenom := 1.0 / (dot00*dot11 - dot01*dot01)
	u := (dot11*dot02 - dot01*dot12) * invDenom
	v := (dot00*dot12 - dot01*dot02) * invDenom

	return math3d.V3(1-u-v, v, u)
}

func min3(a, b, c float64) float64 {
	return math.Min(a, math.Min(b, c))
}

func max3(a, b, c float64) float64 {
	return math.Max(a, math.Max(b, c))
}

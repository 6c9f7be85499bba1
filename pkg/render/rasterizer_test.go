package render

import (
	"context"
	"errors"
	"image/color"
	"math"
	"testing"

	"github.com/taigrr/phong/pkg/math3d"
	"github.com/taigrr/phong/pkg/shading"
)

// createTestRasterizer creates a rasterizer and a camera at (0, 0, 10)
// looking at the origin.
func createTestRasterizer(width, height int) (*Rasterizer, *Camera) {
	fb := NewFramebuffer(width, height)
	camera := NewCamera()
	camera.SetPosition(math3d.V3(0, 0, 10))
	camera.LookAt(math3d.Zero3())
	camera.SetAspectRatio(float64(width) / float64(height))
	return NewRasterizer(fb), camera
}

// quad returns a square of half-size s facing +Z at depth z.
func quad(s, z float64) ([]shading.VertexInput, []int) {
	n := math3d.V3(0, 0, 1)
	t := math3d.V3(1, 0, 0)
	verts := []shading.VertexInput{
		{Position: math3d.V3(-s, -s, z), Normal: n, Tangent: t, UV: math3d.V2(0, 0)},
		{Position: math3d.V3(s, -s, z), Normal: n, Tangent: t, UV: math3d.V2(1, 0)},
		{Position: math3d.V3(s, s, z), Normal: n, Tangent: t, UV: math3d.V2(1, 1)},
		{Position: math3d.V3(-s, s, z), Normal: n, Tangent: t, UV: math3d.V2(0, 1)},
	}
	return verts, []int{0, 1, 2, 0, 2, 3}
}

func TestBarycentric(t *testing.T) {
	tests := []struct {
		name     string
		px, py   float64
		expected math3d.Vec3
	}{
		{"vertex 0", 0, 0, math3d.V3(1, 0, 0)},
		{"vertex 1", 1, 0, math3d.V3(0, 1, 0)},
		{"vertex 2", 0, 1, math3d.V3(0, 0, 1)},
		{"centroid", 1.0 / 3, 1.0 / 3, math3d.V3(1.0/3, 1.0/3, 1.0/3)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// Triangle: (0,0), (1,0), (0,1)
			bc := barycentric(0, 0, 1, 0, 0, 1, tc.px, tc.py)

			if math.Abs(bc.X-tc.expected.X) > 0.001 ||
				math.Abs(bc.Y-tc.expected.Y) > 0.001 ||
				math.Abs(bc.Z-tc.expected.Z) > 0.001 {
				t.Errorf("barycentric(%v, %v) = %v, want %v", tc.px, tc.py, bc, tc.expected)
			}
		})
	}

	t.Run("outside triangle", func(t *testing.T) {
		bc := barycentric(0, 0, 1, 0, 0, 1, -1, -1)
		if bc.X >= 0 && bc.Y >= 0 && bc.Z >= 0 {
			t.Error("point outside triangle should have negative barycentric coordinate")
		}
	})

	t.Run("winding independent", func(t *testing.T) {
		bc := barycentric(0, 0, 0, 1, 1, 0, 0.25, 0.25)
		if bc.X < 0 || bc.Y < 0 || bc.Z < 0 {
			t.Errorf("inside point rejected for clockwise triangle: %v", bc)
		}
	})
}

func TestMin3Max3(t *testing.T) {
	if got := min3(3, 1, 2); got != 1 {
		t.Errorf("min3(3, 1, 2) = %v, want 1", got)
	}
	if got := max3(3, 1, 2); got != 3 {
		t.Errorf("max3(3, 1, 2) = %v, want 3", got)
	}
}

func TestRasterizerClearDepth(t *testing.T) {
	r := NewRasterizer(NewFramebuffer(7, 5))
	for i := range r.zbuffer {
		r.zbuffer[i] = 0.5
	}
	r.ClearDepth()
	for i, z := range r.zbuffer {
		if z != math.MaxFloat64 {
			t.Fatalf("zbuffer[%d] = %v after clear", i, z)
		}
	}
}

func TestRasterizerBands(t *testing.T) {
	tests := []struct {
		name    string
		height  int
		workers int
		want    [][2]int
	}{
		{"even", 8, 4, [][2]int{{0, 2}, {2, 4}, {4, 6}, {6, 8}}},
		{"uneven", 10, 3, [][2]int{{0, 4}, {4, 8}, {8, 10}}},
		{"more workers than rows", 2, 16, [][2]int{{0, 1}, {1, 2}}},
		{"single", 5, 1, [][2]int{{0, 5}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := NewRasterizer(NewFramebuffer(4, tc.height))
			r.Workers = tc.workers
			got := r.bands()
			if len(got) != len(tc.want) {
				t.Fatalf("bands() = %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("band %d = %v, want %v", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestDrawIndexedFlat(t *testing.T) {
	r, camera := createTestRasterizer(40, 40)
	verts, idx := quad(1, 0)

	stats, err := r.DrawIndexed(context.Background(), DrawCall{
		Vertices:   verts,
		Indices:    idx,
		Transforms: camera.Transforms(math3d.Identity()),
		Color:      math3d.V4(1, 0, 0, 1),
	})
	if err != nil {
		t.Fatalf("DrawIndexed: %v", err)
	}
	if stats.Triangles != 2 || stats.Skipped != 0 {
		t.Errorf("stats = %+v, want 2 triangles none skipped", stats)
	}
	if stats.Fragments == 0 {
		t.Fatal("no fragments drawn")
	}

	fb := r.Framebuffer()
	if got := fb.GetPixel(20, 20); got != (color.RGBA{R: 255, A: 255}) {
		t.Errorf("center pixel = %v, want red", got)
	}
	if got := fb.GetPixel(0, 0); got != (color.RGBA{}) {
		t.Errorf("corner pixel = %v, want untouched", got)
	}
}

func TestDrawIndexedNoCulling(t *testing.T) {
	r, camera := createTestRasterizer(40, 40)
	verts, _ := quad(1, 0)

	// Clockwise as seen from the camera.
	stats, err := r.DrawIndexed(context.Background(), DrawCall{
		Vertices:   verts,
		Indices:    []int{0, 2, 1, 0, 3, 2},
		Transforms: camera.Transforms(math3d.Identity()),
		Color:      math3d.V4(0, 1, 0, 1),
	})
	if err != nil {
		t.Fatalf("DrawIndexed: %v", err)
	}
	if stats.Fragments == 0 {
		t.Error("back-facing triangles should still be drawn")
	}
}

func TestDrawIndexedErrors(t *testing.T) {
	r, camera := createTestRasterizer(8, 8)
	verts, _ := quad(1, 0)

	_, err := r.DrawIndexed(context.Background(), DrawCall{
		Vertices:   verts,
		Indices:    []int{0, 1},
		Transforms: camera.Transforms(math3d.Identity()),
	})
	if !errors.Is(err, ErrIndexCount) {
		t.Errorf("err = %v, want ErrIndexCount", err)
	}

	_, err = r.DrawIndexed(context.Background(), DrawCall{
		Vertices:   verts,
		Indices:    []int{0, 1, 4},
		Transforms: camera.Transforms(math3d.Identity()),
	})
	if err == nil {
		t.Error("out of range index should fail")
	}
}

func TestDrawIndexedBehindCamera(t *testing.T) {
	r, camera := createTestRasterizer(20, 20)
	verts, idx := quad(1, 20)

	stats, err := r.DrawIndexed(context.Background(), DrawCall{
		Vertices:   verts,
		Indices:    idx,
		Transforms: camera.Transforms(math3d.Identity()),
		Color:      math3d.V4(1, 1, 1, 1),
	})
	if err != nil {
		t.Fatalf("DrawIndexed: %v", err)
	}
	if stats.Skipped != 2 || stats.Fragments != 0 {
		t.Errorf("stats = %+v, want both triangles skipped", stats)
	}
}

func TestDrawIndexedDepthTest(t *testing.T) {
	near := math3d.V4(1, 0, 0, 1)
	far := math3d.V4(0, 0, 1, 1)

	for _, nearFirst := range []bool{true, false} {
		r, camera := createTestRasterizer(30, 30)
		xf := camera.Transforms(math3d.Identity())
		nv, idx := quad(1, 1)
		fv, _ := quad(2, -1)

		draws := []DrawCall{
			{Vertices: nv, Indices: idx, Transforms: xf, Color: near},
			{Vertices: fv, Indices: idx, Transforms: xf, Color: far},
		}
		if !nearFirst {
			draws[0], draws[1] = draws[1], draws[0]
		}
		for _, dc := range draws {
			if _, err := r.DrawIndexed(context.Background(), dc); err != nil {
				t.Fatalf("DrawIndexed: %v", err)
			}
		}
		if got := r.Framebuffer().GetPixel(15, 15); got != ToRGBA(near) {
			t.Errorf("nearFirst=%v: center = %v, want near colour", nearFirst, got)
		}
	}
}

func TestDrawIndexedAmbientShading(t *testing.T) {
	r, camera := createTestRasterizer(20, 20)
	verts, idx := quad(1, 0)

	mat := shading.DefaultMaterial()
	mat.KA = math3d.V3(0.2, 0.4, 0.6)
	_, err := r.DrawIndexed(context.Background(), DrawCall{
		Vertices:   verts,
		Indices:    idx,
		Transforms: camera.Transforms(math3d.Identity()),
		Uniforms: &shading.Uniforms{
			Eye:      camera.Position,
			Material: mat,
			Lights:   []shading.Light{shading.AmbientLight{Color: math3d.One3(), Intensity: 1}},
		},
	})
	if err != nil {
		t.Fatalf("DrawIndexed: %v", err)
	}
	want := color.RGBA{R: 51, G: 102, B: 153, A: 255}
	if got := r.Framebuffer().GetPixel(10, 10); got != want {
		t.Errorf("center = %v, want %v", got, want)
	}
}

func TestDrawIndexedShowNormals(t *testing.T) {
	r, camera := createTestRasterizer(20, 20)
	verts, idx := quad(1, 0)
	mat := shading.DefaultMaterial()

	_, err := r.DrawIndexed(context.Background(), DrawCall{
		Vertices:   verts,
		Indices:    idx,
		Transforms: camera.Transforms(math3d.Identity()),
		Uniforms:   &shading.Uniforms{Eye: camera.Position, Material: mat},
		Options:    shading.Options{ShowNormals: true},
	})
	if err != nil {
		t.Fatalf("DrawIndexed: %v", err)
	}
	// The flat normal map decodes to +Z.
	want := color.RGBA{B: 255, A: 255}
	if got := r.Framebuffer().GetPixel(10, 10); got != want {
		t.Errorf("center = %v, want %v", got, want)
	}
}

func TestDrawIndexedWorkersAgree(t *testing.T) {
	mat := shading.DefaultMaterial()
	mat.DiffuseMap = NewCheckerTexture(8, 8, 2, ColorWhite, ColorGray)

	render := func(workers int) *Framebuffer {
		r, camera := createTestRasterizer(48, 32)
		r.Workers = workers
		verts, idx := quad(2, 0)
		_, err := r.DrawIndexed(context.Background(), DrawCall{
			Vertices:   verts,
			Indices:    idx,
			Transforms: camera.Transforms(math3d.RotateY(0.4)),
			Uniforms: &shading.Uniforms{
				Eye:      camera.Position,
				Material: mat,
				Lights: []shading.Light{
					shading.AmbientLight{Color: math3d.One3(), Intensity: 0.1},
					shading.PointLight{Position: math3d.V3(1, 1, 3), Color: math3d.One3(), Intensity: 8},
				},
			},
		})
		if err != nil {
			t.Fatalf("DrawIndexed: %v", err)
		}
		return r.Framebuffer()
	}

	a, b := render(1), render(7)
	for i := range a.Pixels {
		if a.Pixels[i] != b.Pixels[i] {
			t.Fatalf("pixel %d differs: %v vs %v", i, a.Pixels[i], b.Pixels[i])
		}
	}
}

func TestDrawIndexedCanceled(t *testing.T) {
	r, camera := createTestRasterizer(20, 20)
	verts, idx := quad(1, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.DrawIndexed(ctx, DrawCall{
		Vertices:   verts,
		Indices:    idx,
		Transforms: camera.Transforms(math3d.Identity()),
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func BenchmarkDrawIndexed(b *testing.B) {
	r, camera := createTestRasterizer(160, 90)
	verts, idx := quad(2, 0)
	mat := shading.DefaultMaterial()
	dc := DrawCall{
		Vertices:   verts,
		Indices:    idx,
		Transforms: camera.Transforms(math3d.Identity()),
		Uniforms: &shading.Uniforms{
			Eye:      camera.Position,
			Material: mat,
			Lights: []shading.Light{
				shading.AmbientLight{Color: math3d.One3(), Intensity: 0.1},
				shading.DirectionalLight{Direction: math3d.V3(-1, -1, -1), Color: math3d.One3(), Intensity: 1},
			},
		},
	}

	for b.Loop() {
		r.ClearDepth()
		if _, err := r.DrawIndexed(context.Background(), dc); err != nil {
			b.Fatal(err)
		}
	}
}

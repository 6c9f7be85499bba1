package scene

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/taigrr/phong/pkg/math3d"
	"github.com/taigrr/phong/pkg/models"
	"github.com/taigrr/phong/pkg/object"
	"github.com/taigrr/phong/pkg/shading"
	"github.com/taigrr/phong/pkg/uniform"
)

func writePNG(t *testing.T, path string, c color.RGBA) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := range 4 {
		for x := range 4 {
			img.SetRGBA(x, y, c)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestParseDefaults(t *testing.T) {
	c, err := Parse([]byte(`
lights:
  - type: ambient
objects:
  - model: cube
`), "/scenes")
	if err != nil {
		t.Fatal(err)
	}

	if *c.Camera.Position != (Vec3{0, 0, 5}) {
		t.Errorf("camera position = %v", *c.Camera.Position)
	}
	if c.Camera.FOV != DefaultFOV || c.Camera.Near != DefaultNear || c.Camera.Far != DefaultFar {
		t.Errorf("camera = %+v", c.Camera)
	}
	if c.Options.Width != DefaultWidth || c.Options.Height != DefaultHeight {
		t.Errorf("size = %dx%d", c.Options.Width, c.Options.Height)
	}
	if *c.Options.Background != [3]uint8{} {
		t.Errorf("background = %v", *c.Options.Background)
	}
	if *c.Lights[0].Color != (Vec3{1, 1, 1}) || *c.Lights[0].Intensity != 1 {
		t.Errorf("light = %+v", c.Lights[0])
	}
	o := c.Objects[0]
	if o.Name != "object0" || *o.Scale != (Scale{1, 1, 1}) {
		t.Errorf("object = %+v", o)
	}
	if got := c.resolve("a/b.png"); got != filepath.Join("/scenes", "a/b.png") {
		t.Errorf("resolve = %q", got)
	}
	if got := c.resolve("/abs.png"); got != "/abs.png" {
		t.Errorf("resolve absolute = %q", got)
	}
}

func TestParseScale(t *testing.T) {
	tests := []struct {
		yaml string
		want Scale
	}{
		{"scale: 2", Scale{2, 2, 2}},
		{"scale: [1, 2, 3]", Scale{1, 2, 3}},
		{"position: [1, 0, 0]", Scale{1, 1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.yaml, func(t *testing.T) {
			c, err := Parse([]byte("objects:\n  - {model: cube, "+tt.yaml+"}\n"), "")
			if err != nil {
				t.Fatal(err)
			}
			if got := *c.Objects[0].Scale; got != tt.want {
				t.Errorf("scale = %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := Parse([]byte("objects:\n  - {model: cube, scale: big}\n"), ""); err == nil {
		t.Error("expected error for non-numeric scale")
	}
}

func TestBuild(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "brick.png"), color.RGBA{200, 100, 50, 255})
	writePNG(t, filepath.Join(dir, "brick_n.png"), color.RGBA{128, 128, 255, 255})
	scenePath := filepath.Join(dir, "scene.yaml")
	err := os.WriteFile(scenePath, []byte(`
camera: {position: [0, 0, 8], target: [0, 0, 0], fov: 45, near: 0.5, far: 50}
options: {show_normals: true, width: 64, height: 32, workers: 3, background: [30, 30, 40]}
materials:
  brick: {ka: [0.1, 0.1, 0.1], shininess: 16, map_kd: brick.png, map_norm: brick_n.png}
  mortar: {kd: [0.5, 0.5, 0.5], map_kd: brick.png}
lights:
  - {type: ambient, intensity: 0.2}
  - {type: Directional, direction: [0, -1, -1]}
  - {type: point, position: [0, 2, 2], color: [1, 0.8, 0.6], intensity: 4}
objects:
  - {name: wall, model: cube, material: brick, position: [1, 0, 0], rotation: [0, 90, 0], scale: 0.5}
  - {name: ball, model: sphere, color: [1, 0, 0]}
`), 0o644)
	if err != nil {
		t.Fatal(err)
	}

	c, err := Load(scenePath)
	if err != nil {
		t.Fatal(err)
	}
	s, err := c.Build()
	if err != nil {
		t.Fatal(err)
	}

	if s.Width != 64 || s.Height != 32 || s.Workers != 3 || !s.Options.ShowNormals {
		t.Errorf("options = %dx%d workers %d %+v", s.Width, s.Height, s.Workers, s.Options)
	}
	if s.Background != (color.RGBA{30, 30, 40, 255}) {
		t.Errorf("background = %v", s.Background)
	}
	if math.Abs(s.Camera.FOV-math.Pi/4) > 1e-12 || s.Camera.AspectRatio != 2 {
		t.Errorf("camera fov %v aspect %v", s.Camera.FOV, s.Camera.AspectRatio)
	}

	kinds := make([]shading.LightKind, len(s.Lights))
	for i, l := range s.Lights {
		kinds[i] = l.Kind()
	}
	want := []shading.LightKind{shading.LightAmbient, shading.LightDirectional, shading.LightPoint}
	if fmt.Sprint(kinds) != fmt.Sprint(want) {
		t.Errorf("light kinds = %v, want %v", kinds, want)
	}

	if len(s.Objects) != 2 {
		t.Fatalf("got %d objects, want 2", len(s.Objects))
	}
	wall, ball := s.Objects[0], s.Objects[1]
	if wall.Material == nil || wall.Material.Name != "brick" || wall.Material.Shininess != 16 {
		t.Fatalf("wall material = %+v", wall.Material)
	}
	caps := wall.Material.Capabilities()
	if !caps.DiffuseMap || caps.SpecularMap || !caps.NormalMap {
		t.Errorf("wall capabilities = %+v", caps)
	}
	if wall.Material.KD != math3d.V3(1, 1, 1) {
		t.Errorf("wall kd = %v, want default", wall.Material.KD)
	}
	if math.Abs(wall.Transform.Rotation.Y-math.Pi/2) > 1e-12 || wall.Transform.Scale != math3d.V3(0.5, 0.5, 0.5) {
		t.Errorf("wall transform = %+v", wall.Transform)
	}
	if ball.Material != nil || ball.Color != math3d.V4(1, 0, 0, 1) {
		t.Errorf("ball = %+v", ball)
	}
}

func TestBuildSharesTextures(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "t.png"), color.RGBA{255, 255, 255, 255})
	c, err := Parse([]byte(`
materials:
  a: {map_kd: t.png}
  b: {map_kd: ./t.png}
objects:
  - {model: cube, material: a}
  - {model: cube, material: b}
`), dir)
	if err != nil {
		t.Fatal(err)
	}
	s, err := c.Build()
	if err != nil {
		t.Fatal(err)
	}
	if s.Objects[0].Material.DiffuseMap != s.Objects[1].Material.DiffuseMap {
		t.Error("materials should share one texture for the same file")
	}
}

func TestBuildErrors(t *testing.T) {
	tooMany := "lights:\n" + strings.Repeat("  - {type: point}\n", shading.MaxLights+1)

	tests := []struct {
		name string
		yaml string
		want error
	}{
		{"unknown light", "lights: [{type: spot}]", ErrUnknownLightType},
		{"unknown material", "objects: [{model: cube, material: gold}]", ErrUnknownMaterial},
		{"too many lights", tooMany, uniform.ErrTooManyLights},
		{"unsupported model", "objects: [{model: teapot.stl}]", models.ErrUnsupportedFormat},
		{"missing texture", "materials: {m: {map_kd: nope.png}}", os.ErrNotExist},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Parse([]byte(tt.yaml), t.TempDir())
			if err != nil {
				t.Fatal(err)
			}
			if _, err := c.Build(); !errors.Is(err, tt.want) {
				t.Errorf("Build() error = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := Parse([]byte("objects: {"), ""); err == nil {
		t.Error("expected parse error")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load missing = %v", err)
	}
}

func TestRender(t *testing.T) {
	c, err := Parse([]byte(`
options: {width: 32, height: 32, background: [10, 20, 30]}
materials:
  blue: {ka: [0.2, 0.4, 0.6]}
lights:
  - {type: ambient}
objects:
  - {name: box, model: cube, material: blue}
`), "")
	if err != nil {
		t.Fatal(err)
	}
	s, err := c.Build()
	if err != nil {
		t.Fatal(err)
	}

	r := s.NewRasterizer()
	var drawn []string
	stats, err := s.Render(context.Background(), r, func(o *object.Object3D) {
		drawn = append(drawn, o.Name)
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(drawn) != 1 || drawn[0] != "box" {
		t.Errorf("drawn = %v", drawn)
	}
	if stats.Triangles != 12 || stats.Fragments == 0 {
		t.Errorf("stats = %+v", stats)
	}

	fb := r.Framebuffer()
	if got := fb.GetPixel(16, 16); got != (color.RGBA{51, 102, 153, 255}) {
		t.Errorf("center = %v, want ambient kA", got)
	}
	if got := fb.GetPixel(0, 0); got != (color.RGBA{10, 20, 30, 255}) {
		t.Errorf("corner = %v, want background", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Render(ctx, r, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("canceled render error = %v", err)
	}
}

func TestForModel(t *testing.T) {
	c := ForModel("sphere")
	s, err := c.Build()
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Lights) != 3 || len(s.Objects) != 1 {
		t.Fatalf("lights %d objects %d", len(s.Lights), len(s.Objects))
	}
	if size := s.Objects[0].Mesh.Size(); math.Abs(size.X-FitSize) > 1e-9 {
		t.Errorf("fitted size = %v, want %v", size, FitSize)
	}
}

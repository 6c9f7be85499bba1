package scene

import (
	"context"
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/taigrr/phong/pkg/logging"
	"github.com/taigrr/phong/pkg/math3d"
	"github.com/taigrr/phong/pkg/models"
	"github.com/taigrr/phong/pkg/object"
	"github.com/taigrr/phong/pkg/render"
	"github.com/taigrr/phong/pkg/shading"
	"github.com/taigrr/phong/pkg/uniform"
)

// FitSize is the largest dimension of objects with Fit set.
const FitSize = 2.0

// Scene is a built scene ready to draw.
type Scene struct {
	Camera     *render.Camera
	Target     math3d.Vec3 // point the camera looks at
	Objects    []*object.Object3D
	Lights     []shading.Light
	Options    shading.Options
	Width      int
	Height     int
	Workers    int
	Background render.Color
}

// Build loads every model and texture the config references and returns
// the resulting scene. Each file is loaded once, however many objects or
// materials refer to it.
func (c *Config) Build() (*Scene, error) {
	c.normalize()
	lights, err := c.buildLights()
	if err != nil {
		return nil, err
	}

	b := &builder{
		cfg:      c,
		textures: make(map[string]*render.Texture),
		meshes:   make(map[string]*models.Mesh),
	}
	materials, err := b.materials()
	if err != nil {
		return nil, err
	}

	s := &Scene{
		Camera:     c.camera(),
		Target:     c.Camera.Target.vec(),
		Lights:     lights,
		Options:    shading.Options{ShowNormals: c.Options.ShowNormals},
		Width:      c.Options.Width,
		Height:     c.Options.Height,
		Workers:    c.Options.Workers,
		Background: render.RGB(c.Options.Background[0], c.Options.Background[1], c.Options.Background[2]),
	}

	for _, oc := range c.Objects {
		objs, err := b.object(oc, materials)
		if err != nil {
			return nil, fmt.Errorf("object %s: %w", oc.Name, err)
		}
		s.Objects = append(s.Objects, objs...)
	}

	logging.Logger().Debug("built scene", "objects", len(s.Objects), "lights", len(s.Lights),
		"materials", len(materials), "textures", len(b.textures))
	return s, nil
}

func (c *Config) camera() *render.Camera {
	cam := render.NewCamera()
	pos := c.Camera.Position.vec()
	cam.SetPosition(pos)
	cam.SetFOV(c.Camera.FOV * math.Pi / 180)
	cam.SetClipPlanes(c.Camera.Near, c.Camera.Far)
	cam.SetAspectRatio(float64(c.Options.Width) / float64(c.Options.Height))
	if target := c.Camera.Target.vec(); target != pos {
		cam.LookAt(target)
	}
	return cam
}

func (c *Config) buildLights() ([]shading.Light, error) {
	lights := make([]shading.Light, 0, len(c.Lights))
	for i, lc := range c.Lights {
		color, intensity := lc.Color.vec(), *lc.Intensity
		switch strings.ToLower(lc.Type) {
		case "ambient":
			lights = append(lights, shading.AmbientLight{Color: color, Intensity: intensity})
		case "directional":
			lights = append(lights, shading.DirectionalLight{Direction: lc.Direction.vec(), Color: color, Intensity: intensity})
		case "point":
			lights = append(lights, shading.PointLight{Position: lc.Position.vec(), Color: color, Intensity: intensity})
		default:
			return nil, fmt.Errorf("light %d: %w %q", i, ErrUnknownLightType, lc.Type)
		}
	}
	if _, err := uniform.PackLights(lights); err != nil {
		return nil, fmt.Errorf("scene lights: %w", err)
	}
	return lights, nil
}

type builder struct {
	cfg      *Config
	textures map[string]*render.Texture
	meshes   map[string]*models.Mesh
}

func (b *builder) materials() (map[string]*shading.Material, error) {
	out := make(map[string]*shading.Material, len(b.cfg.Materials))
	for _, name := range slices.Sorted(maps.Keys(b.cfg.Materials)) {
		mc := b.cfg.Materials[name]
		m := shading.DefaultMaterial()
		m.Name = name
		if mc.KA != nil {
			m.KA = mc.KA.vec()
		}
		if mc.KD != nil {
			m.KD = mc.KD.vec()
		}
		if mc.KS != nil {
			m.KS = mc.KS.vec()
		}
		if mc.Shininess != nil {
			m.Shininess = *mc.Shininess
		}

		var err error
		if m.DiffuseMap, err = b.texture(mc.MapKD); err != nil {
			return nil, fmt.Errorf("material %s: %w", name, err)
		}
		if m.SpecularMap, err = b.texture(mc.MapNS); err != nil {
			return nil, fmt.Errorf("material %s: %w", name, err)
		}
		if m.NormalMap, err = b.texture(mc.MapNorm); err != nil {
			return nil, fmt.Errorf("material %s: %w", name, err)
		}
		out[name] = m
	}
	return out, nil
}

// texture returns a nil Sampler for an empty path.
func (b *builder) texture(path string) (shading.Sampler, error) {
	if path == "" {
		return nil, nil
	}
	path = b.cfg.resolve(path)
	if tex, ok := b.textures[path]; ok {
		return tex, nil
	}
	tex, err := render.LoadTexture(path)
	if err != nil {
		return nil, err
	}
	b.textures[path] = tex
	return tex, nil
}

func (b *builder) mesh(model string) (*models.Mesh, error) {
	if m, ok := models.Primitive(model); ok {
		return m, nil
	}
	path := b.cfg.resolve(model)
	if m, ok := b.meshes[path]; ok {
		return m.Clone(), nil
	}
	m, err := models.Load(path)
	if err != nil {
		return nil, err
	}
	b.meshes[path] = m
	return m.Clone(), nil
}

func (b *builder) object(oc ObjectConfig, materials map[string]*shading.Material) ([]*object.Object3D, error) {
	var mat *shading.Material
	if oc.Material != "" {
		var ok bool
		if mat, ok = materials[oc.Material]; !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownMaterial, oc.Material)
		}
	}

	mesh, err := b.mesh(oc.Model)
	if err != nil {
		return nil, err
	}
	if oc.Fit {
		mesh.Fit(FitSize)
	}

	var objs []*object.Object3D
	if mat != nil {
		o := object.New(oc.Name, mesh)
		o.Material = mat
		objs = []*object.Object3D{o}
	} else {
		objs = object.FromMesh(oc.Name, mesh)
	}

	xf := object.Transform{
		Position: oc.Position.vec(),
		Rotation: oc.Rotation.vec().Scale(math.Pi / 180),
		Scale:    Vec3(*oc.Scale).vec(),
	}
	for _, o := range objs {
		o.Transform = xf
		if oc.Color != nil {
			o.Color = math3d.V4FromV3(oc.Color.vec(), 1)
		}
	}
	return objs, nil
}

// Frame returns the per-frame draw state.
func (s *Scene) Frame() *object.Frame {
	return &object.Frame{Camera: s.Camera, Lights: s.Lights, Options: s.Options}
}

// NewRasterizer allocates a framebuffer of the scene's size and a
// rasterizer with its worker count.
func (s *Scene) NewRasterizer() *render.Rasterizer {
	r := render.NewRasterizer(render.NewFramebuffer(s.Width, s.Height))
	r.Workers = s.Workers
	return r
}

// Render clears r and draws every object, calling done after each one.
func (s *Scene) Render(ctx context.Context, r *render.Rasterizer, done func(*object.Object3D)) (render.DrawStats, error) {
	r.Framebuffer().Clear(s.Background)
	r.ClearDepth()

	f := s.Frame()
	var total render.DrawStats
	for _, o := range s.Objects {
		st, err := o.Draw(ctx, r, f)
		if err != nil {
			return total, err
		}
		total.Triangles += st.Triangles
		total.Skipped += st.Skipped
		total.Fragments += st.Fragments
		total.Bands = max(total.Bands, st.Bands)
		if done != nil {
			done(o)
		}
	}
	return total, nil
}

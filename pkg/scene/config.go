// Package scene reads YAML scene files and builds the objects, lights and
// camera they describe.
package scene

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/taigrr/phong/pkg/math3d"
)

var (
	// ErrUnknownLightType is returned for a light whose type is not
	// ambient, directional or point.
	ErrUnknownLightType = errors.New("unknown light type")
	// ErrUnknownMaterial is returned when an object names a material the
	// scene does not define.
	ErrUnknownMaterial = errors.New("unknown material")
)

// Defaults applied by normalize.
const (
	DefaultWidth  = 160
	DefaultHeight = 90
	DefaultFOV    = 60 // degrees
	DefaultNear   = 0.1
	DefaultFar    = 100
)

// Vec3 is a YAML [x, y, z] sequence.
type Vec3 [3]float64

func (v Vec3) vec() math3d.Vec3 {
	return math3d.V3(v[0], v[1], v[2])
}

// Scale accepts either a scalar or an [x, y, z] sequence.
type Scale Vec3

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Scale) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		var f float64
		if err := n.Decode(&f); err != nil {
			return err
		}
		*s = Scale{f, f, f}
		return nil
	}
	var v Vec3
	if err := n.Decode(&v); err != nil {
		return err
	}
	*s = Scale(v)
	return nil
}

// Config is the on-disk scene description.
type Config struct {
	Camera    CameraConfig              `yaml:"camera"`
	Options   OptionsConfig             `yaml:"options"`
	Materials map[string]MaterialConfig `yaml:"materials,omitempty"`
	Lights    []LightConfig             `yaml:"lights,omitempty"`
	Objects   []ObjectConfig            `yaml:"objects"`

	// dir resolves relative model and texture paths.
	dir string
}

type CameraConfig struct {
	Position *Vec3   `yaml:"position,omitempty"`
	Target   Vec3    `yaml:"target"`
	FOV      float64 `yaml:"fov,omitempty"` // degrees
	Near     float64 `yaml:"near,omitempty"`
	Far      float64 `yaml:"far,omitempty"`
}

type OptionsConfig struct {
	ShowNormals bool      `yaml:"show_normals"`
	Width       int       `yaml:"width,omitempty"`
	Height      int       `yaml:"height,omitempty"`
	Workers     int       `yaml:"workers,omitempty"`
	Background  *[3]uint8 `yaml:"background,omitempty"`
}

type MaterialConfig struct {
	KA        *Vec3    `yaml:"ka,omitempty"`
	KD        *Vec3    `yaml:"kd,omitempty"`
	KS        *Vec3    `yaml:"ks,omitempty"`
	Shininess *float64 `yaml:"shininess,omitempty"`
	MapKD     string   `yaml:"map_kd,omitempty"`
	MapNS     string   `yaml:"map_ns,omitempty"`
	MapNorm   string   `yaml:"map_norm,omitempty"`
}

type LightConfig struct {
	Type      string   `yaml:"type"`
	Color     *Vec3    `yaml:"color,omitempty"`
	Intensity *float64 `yaml:"intensity,omitempty"`
	Direction Vec3     `yaml:"direction,omitempty"`
	Position  Vec3     `yaml:"position,omitempty"`
}

// ObjectConfig places a model. Model is a file path or one of the
// built-in primitives (cube, sphere, plane). Rotation is in degrees.
// Fit centers the mesh and scales it to FitSize before the transform.
// Material overrides the model's own materials; Color is used for parts
// left without one.
type ObjectConfig struct {
	Name     string `yaml:"name,omitempty"`
	Model    string `yaml:"model"`
	Material string `yaml:"material,omitempty"`
	Color    *Vec3  `yaml:"color,omitempty"`
	Fit      bool   `yaml:"fit,omitempty"`
	Position Vec3   `yaml:"position,omitempty"`
	Rotation Vec3   `yaml:"rotation,omitempty"`
	Scale    *Scale `yaml:"scale,omitempty"`
}

func (c *Config) normalize() {
	if c.Camera.Position == nil {
		c.Camera.Position = &Vec3{0, 0, 5}
	}
	if c.Camera.FOV <= 0 {
		c.Camera.FOV = DefaultFOV
	}
	if c.Camera.Near <= 0 {
		c.Camera.Near = DefaultNear
	}
	if c.Camera.Far <= c.Camera.Near {
		c.Camera.Far = max(DefaultFar, c.Camera.Near*10)
	}

	if c.Options.Width <= 0 {
		c.Options.Width = DefaultWidth
	}
	if c.Options.Height <= 0 {
		c.Options.Height = DefaultHeight
	}
	if c.Options.Workers < 0 {
		c.Options.Workers = 0
	}
	if c.Options.Background == nil {
		c.Options.Background = &[3]uint8{}
	}

	for i := range c.Lights {
		l := &c.Lights[i]
		if l.Color == nil {
			l.Color = &Vec3{1, 1, 1}
		}
		if l.Intensity == nil {
			one := 1.0
			l.Intensity = &one
		}
	}

	for i := range c.Objects {
		o := &c.Objects[i]
		if o.Name == "" {
			o.Name = fmt.Sprintf("object%d", i)
		}
		if o.Scale == nil {
			o.Scale = &Scale{1, 1, 1}
		}
	}
}

// Load reads a scene file. Relative paths inside it are resolved against
// the file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene: %w", err)
	}
	return Parse(data, filepath.Dir(path))
}

// Parse decodes a scene from YAML and fills in defaults.
func Parse(data []byte, dir string) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse scene: %w", err)
	}
	c.dir = dir
	c.normalize()
	return &c, nil
}

func (c *Config) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.dir, path)
}

// ForModel returns a scene showing one model, fitted to the view, under
// an ambient, a directional and a point light.
func ForModel(model string) *Config {
	c := &Config{
		Lights: []LightConfig{
			{Type: "ambient", Intensity: ptr(0.15)},
			{Type: "directional", Direction: Vec3{-1, -1, -1}, Intensity: ptr(0.7)},
			{Type: "point", Position: Vec3{2, 2, 3}, Color: &Vec3{1, 0.9, 0.8}, Intensity: ptr(4.0)},
		},
		Objects: []ObjectConfig{{Name: filepath.Base(model), Model: model, Fit: true}},
	}
	c.normalize()
	return c
}

func ptr[T any](v T) *T {
	return &v
}

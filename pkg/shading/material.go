// Package shading implements the two programmable stages of the pipeline:
// the vertex stage (clip-space transform and tangent frame) and the fragment
// stage (normal-mapped Phong lighting with ambient, directional and point
// lights).
//
// Both stages are pure functions. They keep no state between invocations and
// never return errors: degenerate input such as a zero-length normal turns
// into NaN components in the output, the same way it would on a GPU.
package shading

import "github.com/taigrr/phong/pkg/math3d"

// Sampler is a 2D texture lookup returning normalized RGBA in [0,1].
type Sampler interface {
	SampleRGBA(uv math3d.Vec2) math3d.Vec4
}

// ConstSampler returns the same colour for every coordinate.
type ConstSampler math3d.Vec4

// SampleRGBA implements Sampler.
func (c ConstSampler) SampleRGBA(math3d.Vec2) math3d.Vec4 {
	return math3d.Vec4(c)
}

// Samples used when a material has no map of the given kind.
var (
	// White, so kA and kD are used as-is.
	DefaultDiffuseSample = math3d.V4(1, 1, 1, 1)
	// Red channel 1, so the exponent equals Material.Shininess.
	DefaultSpecularSample = math3d.V4(1, 1, 1, 1)
	// Decodes to tangent-space (0,0,1): the interpolated surface normal.
	DefaultNormalSample = math3d.V4(0.5, 0.5, 1, 1)
)

// Material holds Phong reflectance coefficients and optional texture maps.
type Material struct {
	Name      string
	KA        math3d.Vec3 // ambient reflectance
	KD        math3d.Vec3 // diffuse reflectance
	KS        math3d.Vec3 // specular reflectance
	Shininess float64     // specular exponent, scaled by the specular map's red channel

	DiffuseMap  Sampler // map_kD
	SpecularMap Sampler // map_nS
	NormalMap   Sampler // map_norm, tangent space packed into [0,1]
}

// Capabilities reports which optional maps a material carries.
type Capabilities struct {
	DiffuseMap  bool
	SpecularMap bool
	NormalMap   bool
}

// Any reports whether at least one map is present.
func (c Capabilities) Any() bool {
	return c.DiffuseMap || c.SpecularMap || c.NormalMap
}

// DefaultMaterial returns a plain white material with a soft highlight.
func DefaultMaterial() *Material {
	return &Material{
		Name:      "default",
		KA:        math3d.V3(1, 1, 1),
		KD:        math3d.V3(1, 1, 1),
		KS:        math3d.V3(0.5, 0.5, 0.5),
		Shininess: 32,
	}
}

// Capabilities returns the map presence flags.
func (m *Material) Capabilities() Capabilities {
	return Capabilities{
		DiffuseMap:  m.DiffuseMap != nil,
		SpecularMap: m.SpecularMap != nil,
		NormalMap:   m.NormalMap != nil,
	}
}

func (m *Material) diffuseSample(uv math3d.Vec2) math3d.Vec4 {
	if m.DiffuseMap == nil {
		return DefaultDiffuseSample
	}
	return m.DiffuseMap.SampleRGBA(uv)
}

func (m *Material) specularSample(uv math3d.Vec2) math3d.Vec4 {
	if m.SpecularMap == nil {
		return DefaultSpecularSample
	}
	return m.SpecularMap.SampleRGBA(uv)
}

func (m *Material) normalSample(uv math3d.Vec2) math3d.Vec4 {
	if m.NormalMap == nil {
		return DefaultNormalSample
	}
	return m.NormalMap.SampleRGBA(uv)
}

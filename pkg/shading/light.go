package shading

import (
	"math"

	"github.com/taigrr/phong/pkg/math3d"
)

// MaxLights is the number of slots per light kind in the uniform arrays.
// The evaluator itself accepts any number of lights.
const MaxLights = 16

// LightKind tags the light variants.
type LightKind int

const (
	LightAmbient LightKind = iota
	LightDirectional
	LightPoint
)

func (k LightKind) String() string {
	switch k {
	case LightAmbient:
		return "ambient"
	case LightDirectional:
		return "directional"
	case LightPoint:
		return "point"
	default:
		return "unknown"
	}
}

// Surface is everything a light needs to know about the fragment being lit.
type Surface struct {
	Position math3d.Vec3 // world space
	Normal   math3d.Vec3 // world space, unit length
	View     math3d.Vec3 // normalize(Position - eye)
	Diffuse  math3d.Vec3 // diffuse map sample
	Exponent float64     // shininess * specular map red channel
	Material *Material
}

// Light is one entry of the ordered light sequence.
// A light with intensity exactly 0 contributes the zero vector.
type Light interface {
	Kind() LightKind
	Contribution(s *Surface) math3d.Vec3
}

// AmbientLight lights every fragment evenly.
type AmbientLight struct {
	Color     math3d.Vec3
	Intensity float64
}

// DirectionalLight is infinitely distant. Direction points from the light
// toward the surface.
type DirectionalLight struct {
	Direction math3d.Vec3
	Color     math3d.Vec3
	Intensity float64
}

// PointLight emits from a world-space position with 1/(d²+1) falloff.
type PointLight struct {
	Position  math3d.Vec3
	Color     math3d.Vec3
	Intensity float64
}

func (AmbientLight) Kind() LightKind     { return LightAmbient }
func (DirectionalLight) Kind() LightKind { return LightDirectional }
func (PointLight) Kind() LightKind       { return LightPoint }

// Contribution returns color·intensity·kA·diffuse.
func (l AmbientLight) Contribution(s *Surface) math3d.Vec3 {
	if l.Intensity == 0 {
		return math3d.Vec3{}
	}
	return l.Color.Scale(l.Intensity).Mul(s.Material.KA).Mul(s.Diffuse)
}

// Contribution returns the unattenuated diffuse and specular terms.
func (l DirectionalLight) Contribution(s *Surface) math3d.Vec3 {
	if l.Intensity == 0 {
		return math3d.Vec3{}
	}
	return phong(l.Direction.Negate().Unit(), l.Color.Scale(l.Intensity), s)
}

// Contribution returns the diffuse and specular terms scaled by 1/(d²+1).
func (l PointLight) Contribution(s *Surface) math3d.Vec3 {
	if l.Intensity == 0 {
		return math3d.Vec3{}
	}
	toLight := l.Position.Sub(s.Position)
	return phong(toLight.Unit(), l.Color.Scale(l.Intensity), s).Scale(Attenuation(toLight.Len()))
}

// Attenuation is the point light falloff 1/(d²+1). The +1 keeps it finite
// at d = 0.
func Attenuation(distance float64) float64 {
	return 1 / (distance*distance + 1)
}

// phong evaluates diffuse + specular for incidence vector L (surface to
// light) and radiance = color·intensity.
func phong(L, radiance math3d.Vec3, s *Surface) math3d.Vec3 {
	diffuse := radiance.Mul(s.Material.KD).Mul(s.Diffuse).Scale(math.Max(L.Dot(s.Normal), 0))

	R := L.Reflect(s.Normal)
	highlight := math.Pow(math.Max(R.Dot(s.View), 0), s.Exponent)
	specular := radiance.Mul(s.Material.KS).Scale(highlight)

	return diffuse.Add(specular)
}

// Package uniform packs the per-draw shading inputs into the fixed-size
// uniform block of the shader interface: float32 matrices, material
// coefficients, sampler units and three light arrays of shading.MaxLights
// slots each.
package uniform

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/taigrr/phong/pkg/math3d"
	"github.com/taigrr/phong/pkg/shading"
)

var (
	// ErrTooManyLights is returned when one kind has more than
	// shading.MaxLights entries.
	ErrTooManyLights = errors.New("too many lights")
	// ErrUnsupportedLight is returned for Light implementations other than
	// the three built-in kinds.
	ErrUnsupportedLight = errors.New("unsupported light type")
)

// LightSlot is one array element. Vector is the direction of a
// directional light or the position of a point light; ambient slots leave
// it zero. An unused slot has intensity 0.
type LightSlot struct {
	Color     mgl32.Vec3 // offset  0
	Intensity float32    // offset 12
	Vector    mgl32.Vec3 // offset 16, padded to 32
}

// LightSlotSize is the marshaled size of a LightSlot in bytes.
const LightSlotSize = 32

// LightArrays holds u_lights_ambient, u_lights_directional and
// u_lights_point together with the number of slots in use.
type LightArrays struct {
	Ambient     [shading.MaxLights]LightSlot
	Directional [shading.MaxLights]LightSlot
	Point       [shading.MaxLights]LightSlot

	NumAmbient     int
	NumDirectional int
	NumPoint       int
}

// PackLights distributes lights into the per-kind arrays, keeping the
// relative order within each kind.
func PackLights(lights []shading.Light) (LightArrays, error) {
	var a LightArrays
	for i, l := range lights {
		switch l := l.(type) {
		case shading.AmbientLight:
			if a.NumAmbient == shading.MaxLights {
				return LightArrays{}, tooMany(l.Kind())
			}
			a.Ambient[a.NumAmbient] = LightSlot{Color: vec3(l.Color), Intensity: float32(l.Intensity)}
			a.NumAmbient++
		case shading.DirectionalLight:
			if a.NumDirectional == shading.MaxLights {
				return LightArrays{}, tooMany(l.Kind())
			}
			a.Directional[a.NumDirectional] = LightSlot{
				Color:     vec3(l.Color),
				Intensity: float32(l.Intensity),
				Vector:    vec3(l.Direction),
			}
			a.NumDirectional++
		case shading.PointLight:
			if a.NumPoint == shading.MaxLights {
				return LightArrays{}, tooMany(l.Kind())
			}
			a.Point[a.NumPoint] = LightSlot{
				Color:     vec3(l.Color),
				Intensity: float32(l.Intensity),
				Vector:    vec3(l.Position),
			}
			a.NumPoint++
		default:
			return LightArrays{}, fmt.Errorf("light %d (%T): %w", i, l, ErrUnsupportedLight)
		}
	}
	return a, nil
}

func tooMany(kind shading.LightKind) error {
	return fmt.Errorf("more than %d %s lights: %w", shading.MaxLights, kind, ErrTooManyLights)
}

// Lights returns the used slots as a light sequence: ambient, then
// directional, then point. Slots with intensity 0 are dropped since they
// contribute nothing.
func (a *LightArrays) Lights() []shading.Light {
	out := make([]shading.Light, 0, a.NumAmbient+a.NumDirectional+a.NumPoint)
	for _, s := range a.Ambient[:a.NumAmbient] {
		if s.Intensity != 0 {
			out = append(out, shading.AmbientLight{Color: fromVec3(s.Color), Intensity: float64(s.Intensity)})
		}
	}
	for _, s := range a.Directional[:a.NumDirectional] {
		if s.Intensity != 0 {
			out = append(out, shading.DirectionalLight{
				Direction: fromVec3(s.Vector),
				Color:     fromVec3(s.Color),
				Intensity: float64(s.Intensity),
			})
		}
	}
	for _, s := range a.Point[:a.NumPoint] {
		if s.Intensity != 0 {
			out = append(out, shading.PointLight{
				Position:  fromVec3(s.Vector),
				Color:     fromVec3(s.Color),
				Intensity: float64(s.Intensity),
			})
		}
	}
	return out
}

func vec3(v math3d.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{float32(v.X), float32(v.Y), float32(v.Z)}
}

func fromVec3(v mgl32.Vec3) math3d.Vec3 {
	return math3d.V3(float64(v[0]), float64(v[1]), float64(v[2]))
}

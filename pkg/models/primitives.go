package models

import (
	"math"

	"github.com/taigrr/phong/pkg/math3d"
)

// Primitive returns a built-in mesh by name: "cube", "sphere" or "plane".
func Primitive(name string) (*Mesh, bool) {
	switch name {
	case "cube":
		return NewCube(2), true
	case "sphere":
		return NewSphere(1, 24, 48), true
	case "plane":
		return NewPlane(2), true
	}
	return nil, false
}

// cubeFaces lists each face as (normal, right, up) with right × up = normal,
// so corners taken BL, BR, TR, TL wind counter-clockwise from outside.
var cubeFaces = [6][3]math3d.Vec3{
	{{X: 0, Y: 0, Z: 1}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}},   // Front (+Z)
	{{X: 0, Y: 0, Z: -1}, {X: -1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}}, // Back  (-Z)
	{{X: 1, Y: 0, Z: 0}, {X: 0, Y: 0, Z: -1}, {X: 0, Y: 1, Z: 0}},  // Right (+X)
	{{X: -1, Y: 0, Z: 0}, {X: 0, Y: 0, Z: 1}, {X: 0, Y: 1, Z: 0}},  // Left  (-X)
	{{X: 0, Y: 1, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 0, Z: -1}},  // Top   (+Y)
	{{X: 0, Y: -1, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 0, Z: 1}},  // Bottom(-Y)
}

// NewCube creates an axis-aligned cube centred on the origin. Every face
// maps the full texture and carries its own normal and tangent.
func NewCube(size float64) *Mesh {
	m := NewMesh("cube")
	h := size / 2
	uvs := [4]math3d.Vec2{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}

	for _, f := range cubeFaces {
		n, r, u := f[0], f[1], f[2]
		center := n.Scale(h)
		corners := [4]math3d.Vec3{
			center.Sub(r.Scale(h)).Sub(u.Scale(h)),
			center.Add(r.Scale(h)).Sub(u.Scale(h)),
			center.Add(r.Scale(h)).Add(u.Scale(h)),
			center.Sub(r.Scale(h)).Add(u.Scale(h)),
		}
		m.addQuad(corners, uvs, n, r)
	}

	m.HasTangents = true
	m.CalculateBounds()
	return m
}

// NewPlane creates a square in the XZ plane facing +Y.
func NewPlane(size float64) *Mesh {
	m := NewMesh("plane")
	h := size / 2
	n, r, u := math3d.V3(0, 1, 0), math3d.V3(1, 0, 0), math3d.V3(0, 0, -1)
	corners := [4]math3d.Vec3{
		r.Scale(-h).Sub(u.Scale(h)),
		r.Scale(h).Sub(u.Scale(h)),
		r.Scale(h).Add(u.Scale(h)),
		r.Scale(-h).Add(u.Scale(h)),
	}
	m.addQuad(corners, [4]math3d.Vec2{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}, n, r)

	m.HasTangents = true
	m.CalculateBounds()
	return m
}

func (m *Mesh) addQuad(corners [4]math3d.Vec3, uvs [4]math3d.Vec2, normal, tangent math3d.Vec3) {
	base := len(m.Vertices)
	for i := range corners {
		m.Vertices = append(m.Vertices, MeshVertex{
			Position: corners[i],
			Normal:   normal,
			Tangent:  tangent,
			UV:       uvs[i],
		})
	}
	m.Faces = append(m.Faces,
		Face{V: [3]int{base, base + 1, base + 2}, Material: -1},
		Face{V: [3]int{base, base + 2, base + 3}, Material: -1},
	)
}

// NewSphere creates a UV sphere. U wraps around the Y axis, increasing to
// the right seen from outside; V runs from the south pole (0) to the north
// pole (1).
func NewSphere(radius float64, rings, segments int) *Mesh {
	m := NewMesh("sphere")
	rings = max(rings, 2)
	segments = max(segments, 3)

	for r := 0; r <= rings; r++ {
		phi := math.Pi * float64(r) / float64(rings) // 0 (top) → π (bottom)
		for s := 0; s <= segments; s++ {
			theta := 2 * math.Pi * float64(s) / float64(segments)
			n := math3d.V3(math.Sin(phi)*math.Cos(theta), math.Cos(phi), math.Sin(phi)*math.Sin(theta))

			m.Vertices = append(m.Vertices, MeshVertex{
				Position: n.Scale(radius),
				Normal:   n,
				// Along +U; N×T then points along +V.
				Tangent: math3d.V3(math.Sin(theta), 0, -math.Cos(theta)),
				UV:      math3d.V2(1-float64(s)/float64(segments), 1-float64(r)/float64(rings)),
			})
		}
	}

	stride := segments + 1
	for r := range rings {
		for s := range segments {
			a := r*stride + s
			b := a + 1
			c := a + stride
			d := c + 1
			m.Faces = append(m.Faces,
				Face{V: [3]int{a, b, c}, Material: -1},
				Face{V: [3]int{b, d, c}, Material: -1},
			)
		}
	}

	m.HasTangents = true
	m.CalculateBounds()
	return m
}

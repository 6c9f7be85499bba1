package models

import (
	"testing"

	"github.com/taigrr/phong/pkg/math3d"
)

func TestPrimitives(t *testing.T) {
	tests := []struct {
		name      string
		triangles int
		min, max  math3d.Vec3
	}{
		{"cube", 12, math3d.V3(-1, -1, -1), math3d.V3(1, 1, 1)},
		{"plane", 2, math3d.V3(-1, 0, -1), math3d.V3(1, 0, 1)},
		{"sphere", 24 * 48 * 2, math3d.V3(-1, -1, -1), math3d.V3(1, 1, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := Primitive(tt.name)
			if !ok {
				t.Fatalf("Primitive(%q) not found", tt.name)
			}
			if m.TriangleCount() != tt.triangles {
				t.Errorf("triangles = %d, want %d", m.TriangleCount(), tt.triangles)
			}
			if !m.HasTangents {
				t.Error("HasTangents not set")
			}
			lo, hi := m.GetBounds()
			if lo.Sub(tt.min).Len() > 1e-6 || hi.Sub(tt.max).Len() > 1e-6 {
				t.Errorf("bounds = %v..%v, want %v..%v", lo, hi, tt.min, tt.max)
			}

			// Faces wind counter-clockwise seen from the side the normal points to.
			for i, f := range m.Faces {
				a := m.Vertices[f.V[0]]
				b := m.Vertices[f.V[1]]
				c := m.Vertices[f.V[2]]
				geo := b.Position.Sub(a.Position).Cross(c.Position.Sub(a.Position))
				if geo.LenSq() < 1e-12 {
					continue // collapsed at a pole
				}
				if geo.Dot(a.Normal) <= 0 {
					t.Fatalf("face %d winds inward", i)
				}
			}
		})
	}

	if _, ok := Primitive("teapot"); ok {
		t.Error("Primitive(teapot) should not exist")
	}
}

func TestPrimitiveTangentsMatchUVs(t *testing.T) {
	for _, m := range []*Mesh{NewCube(2), NewPlane(3)} {
		want := make([]math3d.Vec3, len(m.Vertices))
		for i, v := range m.Vertices {
			want[i] = v.Tangent
		}
		m.ComputeTangents()
		for i, v := range m.Vertices {
			if !vecNear(v.Tangent, want[i]) {
				t.Errorf("%s vertex %d tangent = %v, computed %v", m.Name, i, want[i], v.Tangent)
			}
		}
	}
}

func TestSphereUVRange(t *testing.T) {
	m := NewSphere(2, 4, 8)
	for i, v := range m.Vertices {
		if v.UV.X < 0 || v.UV.X > 1 || v.UV.Y < 0 || v.UV.Y > 1 {
			t.Fatalf("vertex %d UV %v out of range", i, v.UV)
		}
		if d := v.Position.Len(); d < 2-1e-9 || d > 2+1e-9 {
			t.Fatalf("vertex %d radius %v, want 2", i, d)
		}
	}
	// North pole has V=1.
	if m.Vertices[0].UV.Y != 1 || m.Vertices[0].Position.Y <= 0 {
		t.Errorf("first vertex = %+v, want north pole", m.Vertices[0])
	}
}

// The vertex stage builds B = N×T, so the bitangent must follow +V or
// normal maps flip their green channel.
func TestPrimitiveBitangentFollowsV(t *testing.T) {
	for _, name := range []string{"cube", "plane", "sphere"} {
		t.Run(name, func(t *testing.T) {
			m, _ := Primitive(name)
			for i, f := range m.Faces {
				a, b, c := m.Vertices[f.V[0]], m.Vertices[f.V[1]], m.Vertices[f.V[2]]
				e1 := b.Position.Sub(a.Position)
				e2 := c.Position.Sub(a.Position)
				if e1.Cross(e2).LenSq() < 1e-12 {
					continue // collapsed at a pole
				}
				duv1 := b.UV.Sub(a.UV)
				duv2 := c.UV.Sub(a.UV)
				det := duv1.X*duv2.Y - duv2.X*duv1.Y
				if det == 0 {
					t.Fatalf("face %d has zero UV area", i)
				}
				dPdV := e2.Scale(duv1.X / det).Sub(e1.Scale(duv2.X / det))
				dPdU := e1.Scale(duv2.Y / det).Sub(e2.Scale(duv1.Y / det))

				bitangent := a.Normal.Cross(a.Tangent)
				if bitangent.Dot(dPdV) <= 0 {
					t.Fatalf("face %d: N×T = %v opposes dP/dV = %v", i, bitangent, dPdV)
				}
				if a.Tangent.Dot(dPdU) <= 0 {
					t.Fatalf("face %d: T = %v opposes dP/dU = %v", i, a.Tangent, dPdU)
				}
			}
		})
	}
}

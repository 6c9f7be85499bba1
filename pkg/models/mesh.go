// Package models loads triangle meshes and their Phong materials from glTF
// and Wavefront OBJ files.
package models

import (
	"errors"
	"image"
	"math"

	"github.com/taigrr/phong/pkg/math3d"
)

// ErrUnsupportedFormat is returned by Load for unknown file extensions.
var ErrUnsupportedFormat = errors.New("unsupported model format")

// Mesh represents a 3D mesh with vertices, faces, and materials.
type Mesh struct {
	Name      string
	Vertices  []MeshVertex
	Faces     []Face
	Materials []Material

	// HasTangents is set when tangents came from the file or ComputeTangents.
	HasTangents bool

	// Bounding box (calculated on load)
	BoundsMin math3d.Vec3
	BoundsMax math3d.Vec3
}

// MeshVertex holds all vertex attributes.
type MeshVertex struct {
	Position math3d.Vec3
	Normal   math3d.Vec3
	Tangent  math3d.Vec3
	UV       math3d.Vec2
}

// Face represents a triangle face with vertex indices and material reference.
type Face struct {
	V        [3]int // Indices into Mesh.Vertices
	Material int    // Index into Mesh.Materials (-1 for no material)
}

// Material is a Phong material as read from a model file. Maps are nil
// when the file doesn't provide them.
type Material struct {
	Name      string
	KA        math3d.Vec3
	KD        math3d.Vec3
	KS        math3d.Vec3
	Shininess float64

	DiffuseMap  image.Image
	SpecularMap image.Image
	NormalMap   image.Image
}

// DefaultMaterial returns a white material with a moderate highlight.
func DefaultMaterial(name string) Material {
	return Material{
		Name:      name,
		KA:        math3d.One3(),
		KD:        math3d.One3(),
		KS:        math3d.V3(0.5, 0.5, 0.5),
		Shininess: 32,
	}
}

// HasMaps reports whether any texture map is bound.
func (m *Material) HasMaps() bool {
	return m.DiffuseMap != nil || m.SpecularMap != nil || m.NormalMap != nil
}

// NewMesh creates an empty mesh.
func NewMesh(name string) *Mesh {
	return &Mesh{
		Name:      name,
		Vertices:  make([]MeshVertex, 0),
		Faces:     make([]Face, 0),
		BoundsMin: math3d.V3(0, 0, 0),
		BoundsMax: math3d.V3(0, 0, 0),
	}
}

// CalculateBounds computes the axis-aligned bounding box.
func (m *Mesh) CalculateBounds() {
	if len(m.Vertices) == 0 {
		return
	}

	m.BoundsMin = m.Vertices[0].Position
	m.BoundsMax = m.Vertices[0].Position

	for _, v := range m.Vertices[1:] {
		m.BoundsMin = m.BoundsMin.Min(v.Position)
		m.BoundsMax = m.BoundsMax.Max(v.Position)
	}
}

// Center returns the center of the bounding box.
func (m *Mesh) Center() math3d.Vec3 {
	return m.BoundsMin.Add(m.BoundsMax).Scale(0.5)
}

// Size returns the dimensions of the bounding box.
func (m *Mesh) Size() math3d.Vec3 {
	return m.BoundsMax.Sub(m.BoundsMin)
}

// Fit centers the mesh on the origin and scales it uniformly so its
// largest dimension equals size.
func (m *Mesh) Fit(size float64) {
	m.CalculateBounds()
	dims := m.Size()
	maxDim := math.Max(dims.X, math.Max(dims.Y, dims.Z))
	if maxDim <= 0 {
		return
	}
	s := size / maxDim
	m.Transform(math3d.ScaleUniform(s).Mul(math3d.Translate(m.Center().Negate())))
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Faces)
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

// Indices flattens the faces into a triangle index list.
func (m *Mesh) Indices() []int {
	out := make([]int, 0, len(m.Faces)*3)
	for _, f := range m.Faces {
		out = append(out, f.V[0], f.V[1], f.V[2])
	}
	return out
}

// HasNormals reports whether any vertex carries a non-zero normal.
func (m *Mesh) HasNormals() bool {
	for _, v := range m.Vertices {
		if v.Normal.LenSq() > 1e-6 {
			return true
		}
	}
	return false
}

// CalculateNormals computes face normals and assigns them to vertices.
// This is a simple flat-shading approach; for smooth shading, normals
// should be averaged per-vertex.
func (m *Mesh) CalculateNormals() {
	for i := range m.Faces {
		f := &m.Faces[i]
		v0 := m.Vertices[f.V[0]].Position
		v1 := m.Vertices[f.V[1]].Position
		v2 := m.Vertices[f.V[2]].Position

		normal := v1.Sub(v0).Cross(v2.Sub(v0)).Normalize()

		m.Vertices[f.V[0]].Normal = normal
		m.Vertices[f.V[1]].Normal = normal
		m.Vertices[f.V[2]].Normal = normal
	}
}

// CalculateSmoothNormals computes area-weighted averaged normals.
func (m *Mesh) CalculateSmoothNormals() {
	for i := range m.Vertices {
		m.Vertices[i].Normal = math3d.Zero3()
	}

	for _, f := range m.Faces {
		v0 := m.Vertices[f.V[0]].Position
		v1 := m.Vertices[f.V[1]].Position
		v2 := m.Vertices[f.V[2]].Position

		normal := v1.Sub(v0).Cross(v2.Sub(v0)) // Don't normalize yet

		for _, idx := range f.V {
			m.Vertices[idx].Normal = m.Vertices[idx].Normal.Add(normal)
		}
	}

	for i := range m.Vertices {
		m.Vertices[i].Normal = m.Vertices[i].Normal.Normalize()
	}
}

// ComputeTangents generates per-vertex tangents from positions and UVs for
// tangent-space normal mapping. Triangles with a zero UV area are skipped.
// Each accumulated tangent is made perpendicular to the vertex normal;
// vertices that end up without one get an arbitrary perpendicular.
func (m *Mesh) ComputeTangents() {
	for i := range m.Vertices {
		m.Vertices[i].Tangent = math3d.Zero3()
	}

	for _, f := range m.Faces {
		v0 := m.Vertices[f.V[0]]
		v1 := m.Vertices[f.V[1]]
		v2 := m.Vertices[f.V[2]]

		e1 := v1.Position.Sub(v0.Position)
		e2 := v2.Position.Sub(v0.Position)
		duv1 := v1.UV.Sub(v0.UV)
		duv2 := v2.UV.Sub(v0.UV)

		denom := duv1.X*duv2.Y - duv2.X*duv1.Y
		if denom == 0 {
			continue
		}
		r := 1 / denom
		t := e1.Scale(duv2.Y * r).Sub(e2.Scale(duv1.Y * r))

		for _, idx := range f.V {
			m.Vertices[idx].Tangent = m.Vertices[idx].Tangent.Add(t)
		}
	}

	for i := range m.Vertices {
		n := m.Vertices[i].Normal
		t := m.Vertices[i].Tangent
		t = t.Sub(n.Scale(n.Dot(t)))
		if t.LenSq() < 1e-8 {
			t = Perpendicular(n)
		}
		m.Vertices[i].Tangent = t.Normalize()
	}
	m.HasTangents = true
}

// Perpendicular returns some vector perpendicular to n, not normalized.
func Perpendicular(n math3d.Vec3) math3d.Vec3 {
	if math.Abs(n.X) < 0.9 {
		return math3d.V3(1, 0, 0).Sub(n.Scale(n.X))
	}
	return math3d.V3(0, 1, 0).Sub(n.Scale(n.Y))
}

// Transform applies a transformation matrix to all vertices.
func (m *Mesh) Transform(mat math3d.Mat4) {
	for i := range m.Vertices {
		v := &m.Vertices[i]
		v.Position = mat.MulPoint(v.Position)
		// Rotation part only; non-uniform scale skews normals.
		v.Normal = mat.MulVec3Dir(v.Normal).Normalize()
		v.Tangent = mat.MulVec3Dir(v.Tangent).Normalize()
	}
	m.CalculateBounds()
}

// Clone creates a deep copy of the mesh.
func (m *Mesh) Clone() *Mesh {
	clone := &Mesh{
		Name:        m.Name,
		Vertices:    make([]MeshVertex, len(m.Vertices)),
		Faces:       make([]Face, len(m.Faces)),
		Materials:   make([]Material, len(m.Materials)),
		HasTangents: m.HasTangents,
		BoundsMin:   m.BoundsMin,
		BoundsMax:   m.BoundsMax,
	}
	copy(clone.Vertices, m.Vertices)
	copy(clone.Faces, m.Faces)
	copy(clone.Materials, m.Materials)
	return clone
}

// SplitByMaterial returns one mesh per material used by the faces, in
// material order, followed by a mesh for faces without a material. Each
// result holds only the vertices it references and at most one material.
// A mesh with a single group is returned as is.
func (m *Mesh) SplitByMaterial() []*Mesh {
	groups := make(map[int][]Face)
	order := make([]int, 0)
	for _, f := range m.Faces {
		key := f.Material
		if key < 0 || key >= len(m.Materials) {
			key = -1
		}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], f)
	}
	if len(order) <= 1 {
		return []*Mesh{m}
	}

	out := make([]*Mesh, 0, len(order))
	for mat := range len(m.Materials) {
		if faces, ok := groups[mat]; ok {
			out = append(out, m.subMesh(m.Materials[mat].Name, faces, &m.Materials[mat]))
		}
	}
	if faces, ok := groups[-1]; ok {
		out = append(out, m.subMesh(m.Name, faces, nil))
	}
	return out
}

func (m *Mesh) subMesh(name string, faces []Face, mat *Material) *Mesh {
	sub := NewMesh(name)
	sub.HasTangents = m.HasTangents
	remap := make(map[int]int)
	matIdx := -1
	if mat != nil {
		sub.Materials = []Material{*mat}
		matIdx = 0
	}

	for _, f := range faces {
		var nf Face
		nf.Material = matIdx
		for i, idx := range f.V {
			j, ok := remap[idx]
			if !ok {
				j = len(sub.Vertices)
				remap[idx] = j
				sub.Vertices = append(sub.Vertices, m.Vertices[idx])
			}
			nf.V[i] = j
		}
		sub.Faces = append(sub.Faces, nf)
	}
	sub.CalculateBounds()
	return sub
}

// GetFace returns the vertex indices for face i.
func (m *Mesh) GetFace(i int) [3]int {
	return m.Faces[i].V
}

// GetFaceMaterial returns the material index for face i.
// Returns -1 if no material assigned.
func (m *Mesh) GetFaceMaterial(i int) int {
	return m.Faces[i].Material
}

// GetMaterial returns the material at index i.
// Returns nil if index is out of bounds or -1.
func (m *Mesh) GetMaterial(i int) *Material {
	if i < 0 || i >= len(m.Materials) {
		return nil
	}
	return &m.Materials[i]
}

// MaterialCount returns the number of materials.
func (m *Mesh) MaterialCount() int {
	return len(m.Materials)
}

// GetBounds returns the axis-aligned bounding box.
func (m *Mesh) GetBounds() (min, max math3d.Vec3) {
	return m.BoundsMin, m.BoundsMax
}

package shading

import "github.com/taigrr/phong/pkg/math3d"

// VertexInput mirrors the a_position, a_normal, a_tangent and
// a_texture_coord attributes.
type VertexInput struct {
	Position math3d.Vec3
	Normal   math3d.Vec3
	Tangent  math3d.Vec3
	UV       math3d.Vec2
}

// Transforms mirrors the u_m, u_v and u_p uniforms.
type Transforms struct {
	Model      math3d.Mat4
	View       math3d.Mat4
	Projection math3d.Mat4
}

// VertexOutput is what the rasterizer interpolates across a triangle.
type VertexOutput struct {
	Clip     math3d.Vec4 // projection · view · model · position
	WorldPos math3d.Vec3 // (model · position).xyz
	UV       math3d.Vec2
	TBN      math3d.Mat3 // columns T, B, N in world space
}

// ShadeVertex runs the vertex stage for one vertex.
func ShadeVertex(in VertexInput, xf Transforms) VertexOutput {
	world := xf.Model.MulVec4(math3d.V4FromV3(in.Position, 1))
	return VertexOutput{
		Clip:     xf.Projection.MulVec4(xf.View.MulVec4(world)),
		WorldPos: world.Vec3(),
		UV:       in.UV,
		TBN:      BuildTBN(xf.Model, in.Normal, in.Tangent),
	}
}

// BuildTBN returns the world-space tangent frame for a vertex.
//
// The tangent is re-orthogonalized against the normal (Gram-Schmidt), the
// bitangent is N × T', and the matrix with rows (T', B, N) is returned
// transposed. Since the frame is orthonormal the transpose is its inverse,
// so TBN · n maps a tangent-space normal straight to world space.
//
// When tangent and normal are parallel T - (T·N)N is zero and the result
// is NaN.
func BuildTBN(model math3d.Mat4, normal, tangent math3d.Vec3) math3d.Mat3 {
	t := model.MulVec3Dir(tangent).Unit()
	n := model.MulVec3Dir(normal).Unit()
	t = t.Sub(n.Scale(t.Dot(n))).Unit()
	b := n.Cross(t)
	return math3d.Mat3FromRows(t, b, n).Transpose()
}

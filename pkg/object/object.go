// Package object ties a mesh to a model transform and an optional material
// and draws it through the shading pipeline.
package object

import (
	"context"
	"fmt"

	"github.com/taigrr/phong/pkg/logging"
	"github.com/taigrr/phong/pkg/math3d"
	"github.com/taigrr/phong/pkg/models"
	"github.com/taigrr/phong/pkg/render"
	"github.com/taigrr/phong/pkg/shading"
	"github.com/taigrr/phong/pkg/uniform"
)

// DefaultColor is the flat colour of objects without a material.
var DefaultColor = math3d.V4(0.8, 0.8, 0.8, 1)

// Transform places an object in the world.
type Transform struct {
	Position math3d.Vec3
	Rotation math3d.Vec3 // Euler angles in radians
	Scale    math3d.Vec3
}

// Identity returns a transform that leaves the mesh where it is.
func Identity() Transform {
	return Transform{Scale: math3d.One3()}
}

// Matrix returns translate · rotate · scale.
func (t Transform) Matrix() math3d.Mat4 {
	return math3d.Translate(t.Position).
		Mul(math3d.RotateEuler(t.Rotation)).
		Mul(math3d.Scale(t.Scale))
}

// Object3D is a drawable mesh. With a nil Material it is drawn in Color
// without lighting.
type Object3D struct {
	Name      string
	Mesh      *models.Mesh
	Transform Transform
	Material  *shading.Material
	Color     math3d.Vec4
}

// New creates an object at the origin without a material.
func New(name string, mesh *models.Mesh) *Object3D {
	return &Object3D{
		Name:      name,
		Mesh:      mesh,
		Transform: Identity(),
		Color:     DefaultColor,
	}
}

// Frame is the per-frame state shared by every draw.
type Frame struct {
	Camera  *render.Camera
	Lights  []shading.Light
	Options shading.Options
}

// Draw renders the object into r. The vertex stage reads the mesh through
// the interleaved buffer of Layout and lit draws read their uniforms back
// from the marshaled block, so everything the shaders see has passed
// through float32 the way it would on a GPU. A frame with more than
// shading.MaxLights lights of one kind fails with uniform.ErrTooManyLights.
// Normal-mapped meshes without tangents get them generated before the
// first draw.
func (o *Object3D) Draw(ctx context.Context, r *render.Rasterizer, f *Frame) (render.DrawStats, error) {
	if o.Mesh == nil {
		return render.DrawStats{}, fmt.Errorf("draw %s: no mesh", o.Name)
	}
	layout := o.Layout()
	if layout.Enabled(AttrTangent) && !o.Mesh.HasTangents {
		o.Mesh.ComputeTangents()
	}

	xf := f.Camera.Transforms(o.Transform.Matrix())
	dc := render.DrawCall{
		Vertices:   layout.Decode(o.VertexBuffer()),
		Indices:    o.Mesh.Indices(),
		Transforms: xf,
		Color:      o.Color,
	}

	if o.Material != nil {
		u := &shading.Uniforms{Eye: f.Camera.Position, Material: o.Material, Lights: f.Lights}
		block, err := uniform.NewBlock(xf, u, f.Options)
		if err != nil {
			return render.DrawStats{}, fmt.Errorf("draw %s: %w", o.Name, err)
		}
		logging.Logger().Debug("uniforms", "object", o.Name, "active", block.Names())

		bound, err := uniform.Unmarshal(block.Marshal())
		if err != nil {
			return render.DrawStats{}, fmt.Errorf("draw %s: %w", o.Name, err)
		}
		dc.Transforms = bound.Transforms()
		dc.Uniforms = bound.Uniforms(o.Material)
		dc.Options = bound.Options()
	}

	stats, err := r.DrawIndexed(ctx, dc)
	if err != nil {
		return stats, fmt.Errorf("draw %s: %w", o.Name, err)
	}
	return stats, nil
}

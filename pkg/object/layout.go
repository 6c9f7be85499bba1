package object

import (
	"github.com/taigrr/phong/pkg/math3d"
	"github.com/taigrr/phong/pkg/models"
	"github.com/taigrr/phong/pkg/shading"
)

// Vertex attribute names.
const (
	AttrPosition = "a_position"
	AttrNormal   = "a_normal"
	AttrTangent  = "a_tangent"
	AttrTexCoord = "a_texture_coord"
)

const floatSize = 4

// Attribute describes one vertex attribute in the interleaved buffer.
// Offset is in bytes and only meaningful when Enabled.
type Attribute struct {
	Name       string
	Components int
	Offset     int
	Enabled    bool
}

// Layout is the interleaved vertex format of an object.
type Layout struct {
	Attributes []Attribute
	Stride     int // bytes per vertex
}

// Enabled reports whether the named attribute is enabled.
func (l Layout) Enabled(name string) bool {
	for _, a := range l.Attributes {
		if a.Name == name {
			return a.Enabled
		}
	}
	return false
}

// Layout returns the attributes this object feeds the vertex stage.
// Positions are always present. Normals need a material, texture
// coordinates need at least one map, tangents need a normal map.
func (o *Object3D) Layout() Layout {
	var caps struct{ material, anyMap, normalMap bool }
	if o.Material != nil {
		c := o.Material.Capabilities()
		caps.material = true
		caps.anyMap = c.Any()
		caps.normalMap = c.NormalMap
	}

	attrs := []Attribute{
		{Name: AttrPosition, Components: 3, Enabled: true},
		{Name: AttrNormal, Components: 3, Enabled: caps.material},
		{Name: AttrTangent, Components: 3, Enabled: caps.normalMap},
		{Name: AttrTexCoord, Components: 2, Enabled: caps.anyMap},
	}

	offset := 0
	for i := range attrs {
		if attrs[i].Enabled {
			attrs[i].Offset = offset
			offset += attrs[i].Components * floatSize
		}
	}
	return Layout{Attributes: attrs, Stride: offset}
}

// VertexBuffer packs the enabled attributes of every vertex, interleaved in
// Layout order.
func (o *Object3D) VertexBuffer() []float32 {
	layout := o.Layout()
	if o.Mesh == nil {
		return nil
	}
	out := make([]float32, 0, len(o.Mesh.Vertices)*layout.Stride/floatSize)
	normal := layout.Enabled(AttrNormal)
	tangent := layout.Enabled(AttrTangent)
	uv := layout.Enabled(AttrTexCoord)

	for _, v := range o.Mesh.Vertices {
		out = append(out, float32(v.Position.X), float32(v.Position.Y), float32(v.Position.Z))
		if normal {
			out = append(out, float32(v.Normal.X), float32(v.Normal.Y), float32(v.Normal.Z))
		}
		if tangent {
			out = append(out, float32(v.Tangent.X), float32(v.Tangent.Y), float32(v.Tangent.Z))
		}
		if uv {
			out = append(out, float32(v.UV.X), float32(v.UV.Y))
		}
	}
	return out
}

// Decode reads an interleaved buffer back into vertex stage inputs.
// Disabled attributes take defaults: normal +Z, a tangent perpendicular to
// the normal and texture coordinate (0, 0).
func (l Layout) Decode(buf []float32) []shading.VertexInput {
	if l.Stride == 0 {
		return nil
	}
	floats := l.Stride / floatSize
	out := make([]shading.VertexInput, len(buf)/floats)
	for i := range out {
		v := buf[i*floats : (i+1)*floats]
		in := shading.VertexInput{Normal: math3d.V3(0, 0, 1)}
		for _, a := range l.Attributes {
			if !a.Enabled {
				continue
			}
			f := v[a.Offset/floatSize:]
			switch a.Name {
			case AttrPosition:
				in.Position = vec3(f)
			case AttrNormal:
				in.Normal = vec3(f)
			case AttrTangent:
				in.Tangent = vec3(f)
			case AttrTexCoord:
				in.UV = math3d.V2(float64(f[0]), float64(f[1]))
			}
		}
		if !l.Enabled(AttrTangent) {
			in.Tangent = models.Perpendicular(in.Normal).Normalize()
		}
		out[i] = in
	}
	return out
}

func vec3(f []float32) math3d.Vec3 {
	return math3d.V3(float64(f[0]), float64(f[1]), float64(f[2]))
}

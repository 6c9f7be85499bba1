package shading

import "github.com/taigrr/phong/pkg/math3d"

// FragmentInput holds the interpolated vertex outputs for one fragment.
type FragmentInput struct {
	WorldPos math3d.Vec3
	UV       math3d.Vec2
	TBN      math3d.Mat3
}

// Uniforms are read-only for the duration of a draw.
type Uniforms struct {
	Eye      math3d.Vec3 // u_eye
	Material *Material
	Lights   []Light
}

// Options configures a single Shade call.
type Options struct {
	// ShowNormals outputs the world normal as the colour (components may be
	// negative) and skips lighting entirely.
	ShowNormals bool
}

// WorldNormal decodes the normal map sample at uv and takes it to world
// space through tbn.
func WorldNormal(m *Material, uv math3d.Vec2, tbn math3d.Mat3) math3d.Vec3 {
	s := m.normalSample(uv).Vec3()
	n := s.Scale(2).Sub(math3d.One3()).Unit()
	return tbn.MulVec3(n).Unit()
}

// Shade runs the fragment stage and returns RGBA with alpha 1. The colour
// is not clamped.
func Shade(in FragmentInput, u *Uniforms, opts Options) math3d.Vec4 {
	m := u.Material
	normal := WorldNormal(m, in.UV, in.TBN)
	if opts.ShowNormals {
		return math3d.V4FromV3(normal, 1)
	}

	s := Surface{
		Position: in.WorldPos,
		Normal:   normal,
		View:     in.WorldPos.Sub(u.Eye).Unit(),
		Diffuse:  m.diffuseSample(in.UV).Vec3(),
		Exponent: m.Shininess * m.specularSample(in.UV).X,
		Material: m,
	}

	var color math3d.Vec3
	for _, l := range u.Lights {
		color = color.Add(l.Contribution(&s))
	}
	return math3d.V4FromV3(color, 1)
}

package uniform

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/taigrr/phong/pkg/math3d"
	"github.com/taigrr/phong/pkg/shading"
)

// ErrMalformedBlock is returned by Unmarshal for buffers Marshal could not
// have produced.
var ErrMalformedBlock = errors.New("malformed uniform block")

// Uniform names of the shader interface.
const (
	NameModel       = "u_m"
	NameView        = "u_v"
	NameProjection  = "u_p"
	NameEye         = "u_eye"
	NameShowNormals = "u_show_normals"

	NameKA        = "u_material.kA"
	NameKD        = "u_material.kD"
	NameKS        = "u_material.kS"
	NameShininess = "u_material.shininess"
	NameMapKD     = "u_material.map_kD"
	NameMapNS     = "u_material.map_nS"
	NameMapNorm   = "u_material.map_norm"

	NameLightsAmbient     = "u_lights_ambient"
	NameLightsDirectional = "u_lights_directional"
	NameLightsPoint       = "u_lights_point"
)

// Texture units the material maps bind to. NoUnit marks an absent map.
const (
	UnitDiffuse  int32 = 0
	UnitSpecular int32 = 1
	UnitNormal   int32 = 2
	NoUnit       int32 = -1
)

// Size is the marshaled size of a Block in bytes.
const Size = 3*64 + 16 + 4*16 + 16 + 3*shading.MaxLights*LightSlotSize

// MaterialBlock is u_material.
type MaterialBlock struct {
	KA        mgl32.Vec3
	KD        mgl32.Vec3
	KS        mgl32.Vec3
	Shininess float32
	MapKD     int32
	MapNS     int32
	MapNorm   int32
}

// Block is the complete uniform state of one draw.
type Block struct {
	Model       mgl32.Mat4
	View        mgl32.Mat4
	Projection  mgl32.Mat4
	Eye         mgl32.Vec3
	ShowNormals bool
	Material    MaterialBlock
	Lights      LightArrays
}

// NewBlock builds the uniform block for a draw. u.Material must be set.
func NewBlock(xf shading.Transforms, u *shading.Uniforms, opts shading.Options) (*Block, error) {
	lights, err := PackLights(u.Lights)
	if err != nil {
		return nil, err
	}

	m := u.Material
	caps := m.Capabilities()
	return &Block{
		Model:       mgl32.Mat4(xf.Model.Float32()),
		View:        mgl32.Mat4(xf.View.Float32()),
		Projection:  mgl32.Mat4(xf.Projection.Float32()),
		Eye:         vec3(u.Eye),
		ShowNormals: opts.ShowNormals,
		Material: MaterialBlock{
			KA:        vec3(m.KA),
			KD:        vec3(m.KD),
			KS:        vec3(m.KS),
			Shininess: float32(m.Shininess),
			MapKD:     unit(caps.DiffuseMap, UnitDiffuse),
			MapNS:     unit(caps.SpecularMap, UnitSpecular),
			MapNorm:   unit(caps.NormalMap, UnitNormal),
		},
		Lights: lights,
	}, nil
}

func unit(present bool, u int32) int32 {
	if present {
		return u
	}
	return NoUnit
}

// Names lists the active uniforms in binding order. Samplers without a
// bound map and empty light arrays are inactive.
func (b *Block) Names() []string {
	names := []string{
		NameModel, NameView, NameProjection, NameEye, NameShowNormals,
		NameKA, NameKD, NameKS, NameShininess,
	}
	if b.Material.MapKD != NoUnit {
		names = append(names, NameMapKD)
	}
	if b.Material.MapNS != NoUnit {
		names = append(names, NameMapNS)
	}
	if b.Material.MapNorm != NoUnit {
		names = append(names, NameMapNorm)
	}
	if b.Lights.NumAmbient > 0 {
		names = append(names, NameLightsAmbient)
	}
	if b.Lights.NumDirectional > 0 {
		names = append(names, NameLightsDirectional)
	}
	if b.Lights.NumPoint > 0 {
		names = append(names, NameLightsPoint)
	}
	return names
}

// Marshal serializes the block little-endian with std140 alignment:
//
//	  0  u_m, u_v, u_p          3 x mat4, column-major
//	192  u_eye, u_show_normals  vec3 + bool as uint32
//	208  kA, kD                 vec3 + pad each
//	240  kS, shininess          vec3 + float
//	256  map_kD, map_nS, map_norm  int32 x 3 + pad
//	272  light counts           int32 x 3 + pad
//	288  ambient, directional, point  16 slots of 32 bytes each
func (b *Block) Marshal() []byte {
	buf := make([]byte, 0, Size)
	buf = appendMat4(buf, b.Model)
	buf = appendMat4(buf, b.View)
	buf = appendMat4(buf, b.Projection)

	buf = appendVec3(buf, b.Eye)
	var show uint32
	if b.ShowNormals {
		show = 1
	}
	buf = binary.LittleEndian.AppendUint32(buf, show)

	mat := &b.Material
	buf = appendVec3(buf, mat.KA)
	buf = appendFloat(buf, 0)
	buf = appendVec3(buf, mat.KD)
	buf = appendFloat(buf, 0)
	buf = appendVec3(buf, mat.KS)
	buf = appendFloat(buf, mat.Shininess)
	buf = appendInts(buf, mat.MapKD, mat.MapNS, mat.MapNorm, 0)

	l := &b.Lights
	buf = appendInts(buf, int32(l.NumAmbient), int32(l.NumDirectional), int32(l.NumPoint), 0)
	for _, arr := range []*[shading.MaxLights]LightSlot{&l.Ambient, &l.Directional, &l.Point} {
		for i := range arr {
			buf = appendSlot(buf, &arr[i])
		}
	}
	return buf
}

func appendSlot(buf []byte, s *LightSlot) []byte {
	buf = appendVec3(buf, s.Color)
	buf = appendFloat(buf, s.Intensity)
	buf = appendVec3(buf, s.Vector)
	return appendFloat(buf, 0)
}

func appendMat4(buf []byte, m mgl32.Mat4) []byte {
	for _, v := range m {
		buf = appendFloat(buf, v)
	}
	return buf
}

func appendVec3(buf []byte, v mgl32.Vec3) []byte {
	return appendFloat(appendFloat(appendFloat(buf, v[0]), v[1]), v[2])
}

func appendFloat(buf []byte, f float32) []byte {
	return binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
}

func appendInts(buf []byte, vs ...int32) []byte {
	for _, v := range vs {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(v))
	}
	return buf
}

// Unmarshal reads a block written by Marshal.
func Unmarshal(data []byte) (*Block, error) {
	if len(data) != Size {
		return nil, fmt.Errorf("%d bytes, want %d: %w", len(data), Size, ErrMalformedBlock)
	}
	r := reader{buf: data}
	b := &Block{
		Model:      r.mat4(),
		View:       r.mat4(),
		Projection: r.mat4(),
		Eye:        r.vec3(),
	}
	b.ShowNormals = r.int() != 0

	mat := &b.Material
	mat.KA = r.vec3()
	r.skip()
	mat.KD = r.vec3()
	r.skip()
	mat.KS = r.vec3()
	mat.Shininess = r.float()
	mat.MapKD, mat.MapNS, mat.MapNorm = r.int(), r.int(), r.int()
	r.skip()

	l := &b.Lights
	counts := [3]int32{r.int(), r.int(), r.int()}
	r.skip()
	for _, n := range counts {
		if n < 0 || n > shading.MaxLights {
			return nil, fmt.Errorf("light count %d: %w", n, ErrMalformedBlock)
		}
	}
	l.NumAmbient, l.NumDirectional, l.NumPoint = int(counts[0]), int(counts[1]), int(counts[2])
	for _, arr := range []*[shading.MaxLights]LightSlot{&l.Ambient, &l.Directional, &l.Point} {
		for i := range arr {
			arr[i].Color = r.vec3()
			arr[i].Intensity = r.float()
			arr[i].Vector = r.vec3()
			r.skip()
		}
	}
	return b, nil
}

// Transforms returns u_m, u_v and u_p widened to float64.
func (b *Block) Transforms() shading.Transforms {
	return shading.Transforms{
		Model:      fromMat4(b.Model),
		View:       fromMat4(b.View),
		Projection: fromMat4(b.Projection),
	}
}

// Uniforms returns the fragment-stage inputs held by the block. Samplers
// are taken from maps for every unit the block binds.
func (b *Block) Uniforms(maps *shading.Material) *shading.Uniforms {
	m := &b.Material
	mat := &shading.Material{
		KA:        fromVec3(m.KA),
		KD:        fromVec3(m.KD),
		KS:        fromVec3(m.KS),
		Shininess: float64(m.Shininess),
	}
	if maps != nil {
		mat.Name = maps.Name
		mat.DiffuseMap = bound(m.MapKD, maps.DiffuseMap)
		mat.SpecularMap = bound(m.MapNS, maps.SpecularMap)
		mat.NormalMap = bound(m.MapNorm, maps.NormalMap)
	}
	return &shading.Uniforms{
		Eye:      fromVec3(b.Eye),
		Material: mat,
		Lights:   b.Lights.Lights(),
	}
}

// Options returns the draw options held by the block.
func (b *Block) Options() shading.Options {
	return shading.Options{ShowNormals: b.ShowNormals}
}

func bound(unit int32, s shading.Sampler) shading.Sampler {
	if unit == NoUnit {
		return nil
	}
	return s
}

func fromMat4(m mgl32.Mat4) math3d.Mat4 {
	var out math3d.Mat4
	for i, v := range m {
		out[i] = float64(v)
	}
	return out
}

type reader struct {
	buf []byte
	off int
}

func (r *reader) int() int32 {
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return int32(v)
}

func (r *reader) float() float32 {
	return math.Float32frombits(uint32(r.int()))
}

func (r *reader) skip() { r.off += 4 }

func (r *reader) vec3() mgl32.Vec3 {
	return mgl32.Vec3{r.float(), r.float(), r.float()}
}

func (r *reader) mat4() mgl32.Mat4 {
	var m mgl32.Mat4
	for i := range m {
		m[i] = r.float()
	}
	return m
}

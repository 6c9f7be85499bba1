package object

import (
	"image"

	"github.com/taigrr/phong/pkg/models"
	"github.com/taigrr/phong/pkg/render"
	"github.com/taigrr/phong/pkg/shading"
)

// Material converts a loaded model material into a shading material,
// turning its images into bilinear repeating textures.
func Material(m *models.Material) *shading.Material {
	return &shading.Material{
		Name:        m.Name,
		KA:          m.KA,
		KD:          m.KD,
		KS:          m.KS,
		Shininess:   m.Shininess,
		DiffuseMap:  sampler(m.DiffuseMap),
		SpecularMap: sampler(m.SpecularMap),
		NormalMap:   sampler(m.NormalMap),
	}
}

func sampler(img image.Image) shading.Sampler {
	if img == nil {
		return nil
	}
	return render.TextureFromImage(img)
}

// FromMesh splits a mesh by material and returns one object per part.
// Parts whose faces carry no material are left unlit.
func FromMesh(name string, mesh *models.Mesh) []*Object3D {
	parts := mesh.SplitByMaterial()
	objs := make([]*Object3D, 0, len(parts))
	for _, part := range parts {
		partName := name
		if len(parts) > 1 {
			partName = name + "/" + part.Name
		}
		o := New(partName, part)
		if len(part.Faces) > 0 {
			if mat := part.GetMaterial(part.Faces[0].Material); mat != nil {
				o.Material = Material(mat)
			}
		}
		objs = append(objs, o)
	}
	return objs
}

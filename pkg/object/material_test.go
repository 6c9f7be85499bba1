package object

import (
	"image"
	"testing"

	"github.com/taigrr/phong/pkg/math3d"
	"github.com/taigrr/phong/pkg/models"
)

func TestMaterialConversion(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	m := models.DefaultMaterial("painted")
	m.KD = math3d.V3(0.2, 0.4, 0.6)
	m.Shininess = 8
	m.NormalMap = img

	sm := Material(&m)
	if sm.Name != "painted" || sm.KD != m.KD || sm.Shininess != 8 {
		t.Errorf("converted = %+v", sm)
	}
	caps := sm.Capabilities()
	if caps.DiffuseMap || caps.SpecularMap || !caps.NormalMap {
		t.Errorf("capabilities = %+v, want only the normal map", caps)
	}
	if got := sm.NormalMap.SampleRGBA(math3d.V2(0.5, 0.5)); got != math3d.V4(1, 1, 1, 1) {
		t.Errorf("normal map sample = %v", got)
	}
}

func TestFromMesh(t *testing.T) {
	m := quadMesh()
	objs := FromMesh("quad", m)
	if len(objs) != 1 || objs[0].Material != nil || objs[0].Name != "quad" {
		t.Fatalf("unmaterialed mesh: %d objects, first %+v", len(objs), objs[0])
	}

	red := models.DefaultMaterial("red")
	red.KD = math3d.V3(1, 0, 0)
	m.Materials = []models.Material{red}
	m.Faces[1].Material = 0

	objs = FromMesh("quad", m)
	if len(objs) != 2 {
		t.Fatalf("got %d objects, want 2", len(objs))
	}
	if objs[0].Name != "quad/red" || objs[0].Material == nil || objs[0].Material.KD != red.KD {
		t.Errorf("first part = %s %+v", objs[0].Name, objs[0].Material)
	}
	if objs[1].Material != nil || objs[1].Color != DefaultColor {
		t.Errorf("second part should be unlit, got %+v", objs[1].Material)
	}
}

package render

import (
	"github.com/taigrr/phong/pkg/math3d"
	"github.com/taigrr/phong/pkg/shading"
)

// Gizmos draws light markers over a rendered frame.
type Gizmos struct {
	camera *Camera
	fb     *Framebuffer
}

// NewGizmos creates a gizmo drawer for camera and fb.
func NewGizmos(camera *Camera, fb *Framebuffer) *Gizmos {
	return &Gizmos{camera: camera, fb: fb}
}

// DrawLine3D draws a world-space line. Lines with both ends behind the
// camera are skipped.
func (g *Gizmos) DrawLine3D(p1, p2 math3d.Vec3, color Color) {
	x1, y1, vis1 := g.camera.WorldToScreen(p1, g.fb.Width, g.fb.Height)
	x2, y2, vis2 := g.camera.WorldToScreen(p2, g.fb.Width, g.fb.Height)
	if !vis1 || !vis2 {
		return
	}
	g.fb.DrawLine(int(x1), int(y1), int(x2), int(y2), color)
}

// DrawPoint draws a small axis-aligned cross at pos.
func (g *Gizmos) DrawPoint(pos math3d.Vec3, size float64, color Color) {
	h := size / 2
	g.DrawLine3D(pos.Sub(math3d.V3(h, 0, 0)), pos.Add(math3d.V3(h, 0, 0)), color)
	g.DrawLine3D(pos.Sub(math3d.V3(0, h, 0)), pos.Add(math3d.V3(0, h, 0)), color)
	g.DrawLine3D(pos.Sub(math3d.V3(0, 0, h)), pos.Add(math3d.V3(0, 0, h)), color)
}

// DrawLights marks every enabled point light with a cross and every
// enabled directional light with a ray ending at origin.
func (g *Gizmos) DrawLights(lights []shading.Light, origin math3d.Vec3) {
	for _, l := range lights {
		switch l := l.(type) {
		case shading.PointLight:
			if l.Intensity != 0 {
				g.DrawPoint(l.Position, 0.2, ToRGBA(math3d.V4FromV3(l.Color, 1)))
			}
		case shading.DirectionalLight:
			if l.Intensity != 0 {
				from := origin.Sub(l.Direction.Normalize().Scale(2))
				g.DrawLine3D(from, origin, ColorYellow)
			}
		}
	}
}

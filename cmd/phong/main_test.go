package main

import (
	"bytes"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/schollz/progressbar/v3"

	"github.com/taigrr/phong/pkg/logging"
	"github.com/taigrr/phong/pkg/math3d"
	"github.com/taigrr/phong/pkg/object"
	"github.com/taigrr/phong/pkg/render"
	"github.com/taigrr/phong/pkg/shading"
)

func near(a, b math3d.Vec3) bool {
	return a.Sub(b).Len() < 1e-9
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    render.Color
		wantErr bool
	}{
		{"30,30,40", render.RGB(30, 30, 40), false},
		{"255,0,128", render.RGB(255, 0, 128), false},
		{"red", render.Color{}, true},
	}
	for _, tt := range tests {
		got, err := parseColor(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseColor(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestOrbitStartsAtCamera(t *testing.T) {
	camera := render.NewCamera()
	camera.SetPosition(math3d.V3(3, 2, 4))
	target := math3d.V3(0, 1, 0)

	o := NewOrbit(camera, target, 60)
	if got := o.Position(); !near(got, camera.Position) {
		t.Errorf("Position() = %v, want %v", got, camera.Position)
	}

	o.ApplyImpulse(0, 0.5)
	for range 30 {
		o.Update()
	}
	moved := o.Position()
	if near(moved, camera.Position) {
		t.Error("orbit did not move after impulse")
	}
	if d := moved.Distance(target); math.Abs(d-o.Distance) > 1e-9 {
		t.Errorf("distance to target = %v, want %v", d, o.Distance)
	}

	o.Reset()
	if got := o.Position(); !near(got, camera.Position) {
		t.Errorf("after Reset Position() = %v, want %v", got, camera.Position)
	}
}

func TestOrbitLimits(t *testing.T) {
	camera := render.NewCamera() // (0,0,5)
	o := NewOrbit(camera, math3d.Zero3(), 60)

	for range 100 {
		o.Zoom(0.5)
	}
	if o.Distance != 1 {
		t.Errorf("min distance = %v, want 1", o.Distance)
	}
	for range 100 {
		o.Zoom(2)
	}
	if o.Distance != 20 {
		t.Errorf("max distance = %v, want 20", o.Distance)
	}

	o.ApplyImpulse(100, 0)
	o.Update()
	if p := o.pitch0 + o.Pitch.Position; p > maxPitch+1e-12 {
		t.Errorf("pitch = %v, want <= %v", p, maxPitch)
	}
}

func TestViewStateLights(t *testing.T) {
	base := []shading.Light{
		shading.AmbientLight{Color: math3d.One3(), Intensity: 0.2},
		shading.PointLight{Position: math3d.V3(1, 2, 0), Color: math3d.One3(), Intensity: 1},
	}
	v := &ViewState{}
	if got := v.Lights(base, math3d.Zero3()); &got[0] != &base[0] {
		t.Error("zero angle should return the base lights")
	}

	v.LightAngle = math.Pi / 2
	got := v.Lights(base, math3d.V3(1, 0, 0))
	if got[0] != base[0] {
		t.Errorf("ambient light changed: %v", got[0])
	}
	p := got[1].(shading.PointLight)
	// (1,2,0) sits on the axis through (1,0,0), so it stays put.
	if !near(p.Position, math3d.V3(1, 2, 0)) {
		t.Errorf("point light = %v", p.Position)
	}

	got = v.Lights(base, math3d.Zero3())
	p = got[1].(shading.PointLight)
	if !near(p.Position, math3d.V3(0, 2, -1)) {
		t.Errorf("rotated point light = %v, want (0,2,-1)", p.Position)
	}
	if base[1].(shading.PointLight).Position != math3d.V3(1, 2, 0) {
		t.Error("base lights were modified")
	}
}

func TestProgress(t *testing.T) {
	var logs bytes.Buffer
	logging.SetLogger(slog.New(slog.NewTextHandler(&logs, nil)))
	t.Cleanup(func() { logging.SetLogger(nil) })

	bar := progressbar.NewOptions(2, progressbar.OptionSetWriter(io.Discard))
	step := progress(bar)
	step(object.New("a", nil))
	step(object.New("b", nil))
	if st := bar.State(); st.CurrentNum != 2 || st.Description != "b" {
		t.Errorf("state = %d %q, want 2 \"b\"", st.CurrentNum, st.Description)
	}
	if logs.Len() != 0 {
		t.Errorf("unexpected log output: %s", logs.String())
	}

	// A bar without a total rejects Add; the failure is only logged.
	progress(progressbar.NewOptions(0, progressbar.OptionSetWriter(io.Discard)))(object.New("c", nil))
	if out := logs.String(); !strings.Contains(out, "level=WARN") || !strings.Contains(out, "object=c") {
		t.Errorf("log = %q, want a warning naming the object", out)
	}
}

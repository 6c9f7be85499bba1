package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/charmbracelet/harmonica"
	uv "github.com/charmbracelet/ultraviolet"

	"github.com/taigrr/phong/pkg/math3d"
	"github.com/taigrr/phong/pkg/render"
	"github.com/taigrr/phong/pkg/scene"
	"github.com/taigrr/phong/pkg/shading"
)

const (
	maxPitch       = 1.45 // radians, keeps LookAt away from the poles
	lightOrbitRate = 0.8  // radians per second
)

// RotationAxis tracks position and velocity for one rotation axis with spring decay
type RotationAxis struct {
	Position  float64
	Velocity  float64
	velSpring harmonica.Spring
	velAccel  float64 // internal spring velocity (for animating Velocity toward 0)
}

// NewRotationAxis creates an axis with harmonica spring for smooth velocity decay
func NewRotationAxis(fps int) RotationAxis {
	return RotationAxis{
		// Frequency 4.0 = moderate speed, damping 1.0 = critically damped (no overshoot)
		velSpring: harmonica.NewSpring(harmonica.FPS(fps), 4.0, 1.0),
	}
}

// Update applies velocity to position and decays velocity toward 0
func (a *RotationAxis) Update() {
	a.Position += a.Velocity
	a.Velocity, a.velAccel = a.velSpring.Update(a.Velocity, a.velAccel, 0)
}

// Orbit moves the camera around a target on a sphere. Pitch and yaw
// spin down through harmonica springs.
type Orbit struct {
	Pitch, Yaw RotationAxis
	Distance   float64

	target           math3d.Vec3
	pitch0, yaw0     float64
	distance0        float64
	minDist, maxDist float64
	fps              int
}

// NewOrbit starts an orbit at the camera's current position.
func NewOrbit(camera *render.Camera, target math3d.Vec3, fps int) *Orbit {
	offset := camera.Position.Sub(target)
	dist := offset.Len()
	if dist == 0 {
		dist = 5
		offset = math3d.V3(0, 0, dist)
	}
	o := &Orbit{
		target:    target,
		pitch0:    math.Asin(offset.Y / dist),
		yaw0:      math.Atan2(offset.X, offset.Z),
		distance0: dist,
		minDist:   dist * 0.2,
		maxDist:   dist * 4,
		fps:       fps,
	}
	o.Reset()
	return o
}

// Reset returns to the starting view.
func (o *Orbit) Reset() {
	o.Pitch = NewRotationAxis(o.fps)
	o.Yaw = NewRotationAxis(o.fps)
	o.Distance = o.distance0
}

// ApplyImpulse adds angular velocity.
func (o *Orbit) ApplyImpulse(pitch, yaw float64) {
	o.Pitch.Velocity += pitch
	o.Yaw.Velocity += yaw
}

// Zoom scales the distance to the target, within limits.
func (o *Orbit) Zoom(factor float64) {
	o.Distance = math.Max(o.minDist, math.Min(o.maxDist, o.Distance*factor))
}

// Update steps the springs.
func (o *Orbit) Update() {
	o.Pitch.Update()
	o.Yaw.Update()
	o.Pitch.Position = math.Max(-maxPitch-o.pitch0, math.Min(maxPitch-o.pitch0, o.Pitch.Position))
}

// Position returns the camera position for the current angles.
func (o *Orbit) Position() math3d.Vec3 {
	p := o.pitch0 + o.Pitch.Position
	y := o.yaw0 + o.Yaw.Position
	dir := math3d.V3(math.Cos(p)*math.Sin(y), math.Sin(p), math.Cos(p)*math.Cos(y))
	return o.target.Add(dir.Scale(o.Distance))
}

// Apply moves camera to the orbit position, looking at the target.
func (o *Orbit) Apply(camera *render.Camera) {
	camera.SetPosition(o.Position())
	camera.LookAt(o.target)
}

// ViewState holds all view-related settings (UI state, not library code)
type ViewState struct {
	ShowNormals bool
	OrbitLights bool
	ShowGizmos  bool
	ShowHUD     bool
	LightAngle  float64 // radians the point lights have turned about +Y
}

// Lights returns base with point lights turned by LightAngle about the
// vertical axis through target.
func (v *ViewState) Lights(base []shading.Light, target math3d.Vec3) []shading.Light {
	if v.LightAngle == 0 {
		return base
	}
	rot := math3d.Translate(target).
		Mul(math3d.RotateY(v.LightAngle)).
		Mul(math3d.Translate(target.Negate()))
	out := make([]shading.Light, len(base))
	for i, l := range base {
		if p, ok := l.(shading.PointLight); ok {
			p.Position = rot.MulPoint(p.Position)
			l = p
		}
		out[i] = l
	}
	return out
}

// HUD renders an overlay with scene info and toggles
type HUD struct {
	filename  string
	polyCount int
	fps       float64
	fpsFrames int
	fpsTime   time.Time
}

// NewHUD creates a new HUD
func NewHUD(filename string, polyCount int) *HUD {
	return &HUD{
		filename:  filename,
		polyCount: polyCount,
		fpsTime:   time.Now(),
	}
}

// UpdateFPS updates the FPS counter (call once per frame)
func (h *HUD) UpdateFPS() {
	h.fpsFrames++
	elapsed := time.Since(h.fpsTime)
	if elapsed >= time.Second {
		h.fps = float64(h.fpsFrames) / elapsed.Seconds()
		h.fpsFrames = 0
		h.fpsTime = time.Now()
	}
}

// Render draws the HUD overlay directly to the terminal
func (h *HUD) Render(width, height int, viewState *ViewState) {
	const (
		reset     = "\x1b[0m"
		bold      = "\x1b[1m"
		dim       = "\x1b[2m"
		bgBlack   = "\x1b[40m"
		fgWhite   = "\x1b[97m"
		fgGreen   = "\x1b[92m"
		fgYellow  = "\x1b[93m"
		fgCyan    = "\x1b[96m"
		clearLine = "\x1b[2K"
	)

	moveTo := func(row, col int) string {
		return fmt.Sprintf("\x1b[%d;%dH", row, col)
	}

	// Always clear the HUD rows (so toggling off works)
	fmt.Print(moveTo(1, 1) + clearLine)
	fmt.Print(moveTo(height, 1) + clearLine)

	if !viewState.ShowHUD {
		return
	}

	fmt.Printf("%s%s%s %.0f FPS %s", moveTo(1, 1), bgBlack, fgGreen, h.fps, reset)

	titleCol := max((width-len(h.filename)-2)/2, 1)
	fmt.Print(moveTo(1, titleCol) + fmt.Sprintf("%s%s%s %s %s", bold, bgBlack, fgWhite, h.filename, reset))

	polyCol := max(width-14, 1)
	fmt.Print(moveTo(1, polyCol) + fmt.Sprintf("%s%s%s %d tris %s", bgBlack, fgCyan, bold, h.polyCount, reset))

	modeStr := fmt.Sprintf("%s%s %s Normals  %s Orbit lights  %s Gizmos %s",
		bgBlack, fgWhite, check(viewState.ShowNormals), check(viewState.OrbitLights), check(viewState.ShowGizmos), reset)
	fmt.Print(moveTo(height, 1) + modeStr)

	hint := fmt.Sprintf("%s%s%s N/L/G toggle %s", bgBlack, dim, fgYellow, reset)
	fmt.Print(moveTo(height, max(width-14, 1)) + hint)
}

func check(on bool) string {
	if on {
		return "[✓]"
	}
	return "[ ]"
}

func view(ctx context.Context, s *scene.Scene, name string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	term := uv.DefaultTerminal()

	width, height, err := term.GetSize()
	if err != nil {
		return fmt.Errorf("get terminal size: %w", err)
	}

	if err := term.Start(); err != nil {
		return fmt.Errorf("start terminal: %w", err)
	}

	term.EnterAltScreen()
	term.HideCursor()
	term.Resize(width, height)

	// Enable mouse mode
	fmt.Fprint(os.Stdout, "\x1b[?1003h") // Enable any-event mouse tracking
	fmt.Fprint(os.Stdout, "\x1b[?1006h") // Enable SGR extended mouse mode

	cleanup := func() {
		fmt.Fprint(os.Stdout, "\x1b[?1003l")
		fmt.Fprint(os.Stdout, "\x1b[?1006l")
		term.ExitAltScreen()
		term.ShowCursor()
		term.Shutdown(context.Background())
	}
	defer cleanup()

	termRenderer := render.NewTerminalRenderer(term, width, height)
	resize := func() *render.Rasterizer {
		s.Width, s.Height = termRenderer.FramebufferSize()
		s.Camera.SetAspectRatio(float64(s.Width) / float64(s.Height))
		return s.NewRasterizer()
	}
	rasterizer := resize()

	tris := 0
	for _, o := range s.Objects {
		tris += o.Mesh.TriangleCount()
	}
	hud := NewHUD(name, tris)
	orbit := NewOrbit(s.Camera, s.Target, *targetFPS)
	viewState := &ViewState{ShowNormals: s.Options.ShowNormals}
	baseLights := s.Lights

	// Events are forwarded to the render loop, which owns all state.
	events := make(chan uv.Event, 64)
	go func() {
		for {
			select {
			case ev, ok := <-term.Events():
				if !ok {
					return
				}
				select {
				case events <- ev:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	var mouseDown bool
	var lastMouseX, lastMouseY int

	handle := func(ev uv.Event) {
		switch ev := ev.(type) {
		case uv.WindowSizeEvent:
			width, height = ev.Width, ev.Height
			term.Erase()
			term.Resize(width, height)
			termRenderer = render.NewTerminalRenderer(term, width, height)
			rasterizer = resize()

		case uv.KeyPressEvent:
			switch {
			case ev.MatchString("escape"), ev.MatchString("ctrl+c"):
				cancel()
			case ev.MatchString("r"):
				orbit.Reset()
				viewState.LightAngle = 0
			case ev.MatchString("w", "up"):
				orbit.ApplyImpulse(0.05, 0)
			case ev.MatchString("s", "down"):
				orbit.ApplyImpulse(-0.05, 0)
			case ev.MatchString("a", "left"):
				orbit.ApplyImpulse(0, -0.05)
			case ev.MatchString("d", "right"):
				orbit.ApplyImpulse(0, 0.05)
			case ev.MatchString("space"):
				orbit.ApplyImpulse((rand.Float64()-0.5)*0.5, (rand.Float64()-0.5)*1.5)
			case ev.MatchString("+", "="):
				orbit.Zoom(0.9)
			case ev.MatchString("-", "_"):
				orbit.Zoom(1 / 0.9)
			case ev.MatchString("n"):
				viewState.ShowNormals = !viewState.ShowNormals
			case ev.MatchString("l"):
				viewState.OrbitLights = !viewState.OrbitLights
			case ev.MatchString("g"):
				viewState.ShowGizmos = !viewState.ShowGizmos
			case ev.MatchString("?"), ev.MatchString("shift+/"):
				viewState.ShowHUD = !viewState.ShowHUD
			}

		case uv.MouseClickEvent:
			mouseDown = true
			lastMouseX, lastMouseY = ev.X, ev.Y

		case uv.MouseReleaseEvent:
			mouseDown = false

		case uv.MouseMotionEvent:
			if mouseDown {
				dx := ev.X - lastMouseX
				dy := ev.Y - lastMouseY
				orbit.ApplyImpulse(float64(dy)*0.03, -float64(dx)*0.03)
				lastMouseX, lastMouseY = ev.X, ev.Y
			}

		case uv.MouseWheelEvent:
			switch ev.Button {
			case uv.MouseWheelUp:
				orbit.Zoom(0.9)
			case uv.MouseWheelDown:
				orbit.Zoom(1 / 0.9)
			}
		}
	}

	targetDuration := time.Second / time.Duration(max(*targetFPS, 1))
	lastFrame := time.Now()

	for {
	drain:
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev := <-events:
				handle(ev)
			default:
				break drain
			}
		}

		now := time.Now()
		dt := math.Min(now.Sub(lastFrame).Seconds(), 0.1)
		lastFrame = now

		orbit.Update()
		orbit.Apply(s.Camera)
		if viewState.OrbitLights {
			viewState.LightAngle = math.Mod(viewState.LightAngle+dt*lightOrbitRate, 2*math.Pi)
		}
		s.Lights = viewState.Lights(baseLights, s.Target)
		s.Options.ShowNormals = viewState.ShowNormals

		if _, err := s.Render(ctx, rasterizer, nil); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("render: %w", err)
		}
		if viewState.ShowGizmos {
			render.NewGizmos(s.Camera, rasterizer.Framebuffer()).DrawLights(s.Lights, s.Target)
		}

		termRenderer.Render(rasterizer.Framebuffer())
		if err := termRenderer.Flush(); err != nil {
			return fmt.Errorf("flush: %w", err)
		}

		hud.UpdateFPS()
		hud.Render(width, height, viewState)

		if elapsed := time.Since(now); elapsed < targetDuration {
			time.Sleep(targetDuration - elapsed)
		}
	}
}

// phong - Normal-mapped Phong renderer for the terminal.
// Renders a YAML scene or a single OBJ/glTF model, either to a PNG file or
// interactively in the terminal.
//
// Controls:
//
//	Mouse drag  - Orbit the camera
//	Scroll      - Zoom in/out
//	W/S/A/D     - Orbit pitch/yaw (arrow keys work too)
//	Space       - Apply random impulse
//	N           - Toggle normal visualization
//	L           - Start/stop point lights orbiting
//	G           - Toggle light gizmos
//	R           - Reset view
//	?           - Toggle HUD overlay
//	+/-         - Adjust zoom
//	Esc         - Quit
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/schollz/progressbar/v3"

	"github.com/taigrr/phong/pkg/logging"
	"github.com/taigrr/phong/pkg/object"
	"github.com/taigrr/phong/pkg/render"
	"github.com/taigrr/phong/pkg/scene"
	"github.com/taigrr/phong/pkg/shading"
)

var (
	outPath       = flag.String("o", "", "Render one frame to this PNG file instead of the terminal")
	verbose       = flag.Bool("v", false, "Debug logging to stderr")
	targetFPS     = flag.Int("fps", 60, "Target FPS")
	bgColor       = flag.String("bg", "", "Background color (R,G,B), overrides the scene")
	texturePath   = flag.String("texture", "", "Diffuse map (PNG/JPG) applied to every object")
	normalMapPath = flag.String("normalmap", "", "Tangent-space normal map applied to every object")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "phong - Normal-mapped Phong renderer\n\n")
		fmt.Fprintf(os.Stderr, "Usage: phong [options] <scene.yaml|model.obj|model.glb|cube|sphere|plane>\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nControls:\n")
		fmt.Fprintf(os.Stderr, "  Mouse drag  - Orbit camera\n")
		fmt.Fprintf(os.Stderr, "  Scroll      - Zoom in/out\n")
		fmt.Fprintf(os.Stderr, "  W/S/A/D     - Pitch and yaw\n")
		fmt.Fprintf(os.Stderr, "  Space       - Random spin\n")
		fmt.Fprintf(os.Stderr, "  N           - Toggle normal visualization\n")
		fmt.Fprintf(os.Stderr, "  L           - Orbit point lights\n")
		fmt.Fprintf(os.Stderr, "  G           - Toggle light gizmos\n")
		fmt.Fprintf(os.Stderr, "  R           - Reset view\n")
		fmt.Fprintf(os.Stderr, "  ?           - Toggle HUD overlay\n")
		fmt.Fprintf(os.Stderr, "  Esc         - Quit\n")
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	if *verbose {
		logging.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, path string) error {
	s, err := loadScene(path)
	if err != nil {
		return err
	}
	if err := applyOverrides(s); err != nil {
		return err
	}

	if *outPath != "" {
		return renderPNG(ctx, s, *outPath)
	}
	return view(ctx, s, filepath.Base(path))
}

// loadScene builds a scene from a YAML file, or wraps a single model in
// the default scene.
func loadScene(path string) (*scene.Scene, error) {
	var cfg *scene.Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var err error
		if cfg, err = scene.Load(path); err != nil {
			return nil, err
		}
	default:
		cfg = scene.ForModel(path)
	}

	s, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build scene: %w", err)
	}

	tris := 0
	for _, o := range s.Objects {
		tris += o.Mesh.TriangleCount()
	}
	logging.Logger().Info("loaded scene", "path", path, "objects", len(s.Objects),
		"triangles", tris, "lights", len(s.Lights))
	return s, nil
}

// applyOverrides applies -bg, -texture and -normalmap. Map flags give
// unlit objects the default material so the maps show.
func applyOverrides(s *scene.Scene) error {
	if *bgColor != "" {
		bg, err := parseColor(*bgColor)
		if err != nil {
			return err
		}
		s.Background = bg
	}

	if *texturePath == "" && *normalMapPath == "" {
		return nil
	}
	var diffuse, normal shading.Sampler
	if *texturePath != "" {
		tex, err := render.LoadTexture(*texturePath)
		if err != nil {
			return fmt.Errorf("load texture: %w", err)
		}
		diffuse = tex
	}
	if *normalMapPath != "" {
		tex, err := render.LoadTexture(*normalMapPath)
		if err != nil {
			return fmt.Errorf("load normal map: %w", err)
		}
		normal = tex
	}

	for _, o := range s.Objects {
		m := shading.DefaultMaterial()
		if o.Material != nil {
			cp := *o.Material
			m = &cp
		}
		if diffuse != nil {
			m.DiffuseMap = diffuse
		}
		if normal != nil {
			m.NormalMap = normal
		}
		o.Material = m
	}
	return nil
}

// progress advances bar once per drawn object. The bar is cosmetic, so a
// failed update is logged and the render goes on.
func progress(bar *progressbar.ProgressBar) func(*object.Object3D) {
	return func(o *object.Object3D) {
		bar.Describe(o.Name)
		if err := bar.Add(1); err != nil {
			logging.Logger().Warn("progress bar", "object", o.Name, "err", err)
		}
	}
}

func parseColor(s string) (render.Color, error) {
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "%d,%d,%d", &r, &g, &b); err != nil {
		return render.Color{}, fmt.Errorf("parse color %q: %w", s, err)
	}
	return render.RGB(r, g, b), nil
}

func renderPNG(ctx context.Context, s *scene.Scene, path string) error {
	r := s.NewRasterizer()

	pb := progressbar.Default(int64(len(s.Objects)), "rendering")
	defer pb.Close()

	stats, err := s.Render(ctx, r, progress(pb))
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	if err := r.Framebuffer().SavePNG(path); err != nil {
		return err
	}
	logging.Logger().Info("wrote image", "path", path, "width", s.Width, "height", s.Height,
		"triangles", stats.Triangles, "fragments", stats.Fragments)
	return nil
}

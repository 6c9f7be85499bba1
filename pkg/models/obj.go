package models

import (
	"bufio"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/taigrr/phong/pkg/logging"
	"github.com/taigrr/phong/pkg/math3d"
)

// Load loads a model by extension: .glb and .gltf through the glTF loader,
// .obj through the OBJ loader.
func Load(path string) (*Mesh, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".glb", ".gltf":
		return LoadGLB(path)
	case ".obj":
		return LoadOBJ(path)
	default:
		return nil, fmt.Errorf("load %s: %w", path, ErrUnsupportedFormat)
	}
}

// objIndex is one v/vt/vn reference of a face corner. Missing parts are -1.
type objIndex struct {
	v, vt, vn int
}

// objParser accumulates OBJ statements into a mesh.
type objParser struct {
	dir  string
	mesh *Mesh

	positions []math3d.Vec3
	normals   []math3d.Vec3
	uvs       []math3d.Vec2

	corners   map[objIndex]int
	materials map[string]int
	current   int
}

// LoadOBJ loads a Wavefront OBJ file and the MTL libraries it references.
// Polygons are triangulated as fans. Normals are generated when the file
// has none, and tangents are always generated.
func LoadOBJ(path string) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open obj: %w", err)
	}
	defer f.Close()

	mesh, err := ParseOBJ(f, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	mesh.Name = filepath.Base(path)

	logging.Logger().Debug("loaded obj", "path", path,
		"vertices", mesh.VertexCount(), "triangles", mesh.TriangleCount(),
		"materials", mesh.MaterialCount())
	return mesh, nil
}

// ParseOBJ reads OBJ statements from r. mtllib paths are resolved against dir.
func ParseOBJ(r io.Reader, dir string) (*Mesh, error) {
	p := &objParser{
		dir:       dir,
		mesh:      NewMesh("obj"),
		corners:   make(map[objIndex]int),
		materials: make(map[string]int),
		current:   -1,
	}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if err := p.line(scanner.Text()); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read obj: %w", err)
	}

	mesh := p.mesh
	if len(p.normals) == 0 || !mesh.HasNormals() {
		mesh.CalculateSmoothNormals()
	}
	mesh.ComputeTangents()
	mesh.CalculateBounds()
	return mesh, nil
}

func (p *objParser) line(text string) error {
	fields := strings.Fields(stripComment(text))
	if len(fields) == 0 {
		return nil
	}
	ident, args := fields[0], fields[1:]

	switch ident {
	case "v", "vn":
		v, err := parseVec3(args)
		if err != nil {
			return fmt.Errorf("%s: %w", ident, err)
		}
		if ident == "v" {
			p.positions = append(p.positions, v)
		} else {
			p.normals = append(p.normals, v)
		}
	case "vt":
		if len(args) < 2 {
			return fmt.Errorf("vt: need 2 components, got %d", len(args))
		}
		u, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("vt: %w", err)
		}
		v, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("vt: %w", err)
		}
		p.uvs = append(p.uvs, math3d.V2(u, v))
	case "f":
		return p.face(args)
	case "mtllib":
		for _, name := range args {
			if err := p.loadMTL(filepath.Join(p.dir, name)); err != nil {
				return err
			}
		}
	case "usemtl":
		if len(args) == 0 {
			p.current = -1
			return nil
		}
		idx, ok := p.materials[args[0]]
		if !ok {
			logging.Logger().Warn("obj: unknown material", "name", args[0])
			idx = -1
		}
		p.current = idx
	default:
		// o, g, s and friends carry nothing the mesh needs.
	}
	return nil
}

func (p *objParser) face(args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("f: need at least 3 vertices, got %d", len(args))
	}
	verts := make([]int, len(args))
	for i, s := range args {
		idx, err := p.parseCorner(s)
		if err != nil {
			return fmt.Errorf("f: %w", err)
		}
		verts[i] = p.vertex(idx)
	}
	for i := 1; i+1 < len(verts); i++ {
		p.mesh.Faces = append(p.mesh.Faces, Face{
			V:        [3]int{verts[0], verts[i], verts[i+1]},
			Material: p.current,
		})
	}
	return nil
}

// parseCorner parses "v", "v/vt", "v//vn" or "v/vt/vn". Negative indices
// count back from the most recent element.
func (p *objParser) parseCorner(s string) (objIndex, error) {
	parts := strings.Split(s, "/")
	idx := objIndex{v: -1, vt: -1, vn: -1}

	resolve := func(field string, n int) (int, error) {
		if field == "" {
			return -1, nil
		}
		i, err := strconv.Atoi(field)
		if err != nil {
			return 0, err
		}
		switch {
		case i > 0:
			i--
		case i < 0:
			i += n
		default:
			return 0, fmt.Errorf("index 0 in %q", s)
		}
		if i < 0 || i >= n {
			return 0, fmt.Errorf("index out of range in %q", s)
		}
		return i, nil
	}

	var err error
	if idx.v, err = resolve(parts[0], len(p.positions)); err != nil {
		return idx, err
	}
	if idx.v < 0 {
		return idx, fmt.Errorf("missing position in %q", s)
	}
	if len(parts) > 1 {
		if idx.vt, err = resolve(parts[1], len(p.uvs)); err != nil {
			return idx, err
		}
	}
	if len(parts) > 2 {
		if idx.vn, err = resolve(parts[2], len(p.normals)); err != nil {
			return idx, err
		}
	}
	return idx, nil
}

// vertex returns the mesh vertex for a corner, adding it on first use.
func (p *objParser) vertex(idx objIndex) int {
	if i, ok := p.corners[idx]; ok {
		return i
	}
	v := MeshVertex{Position: p.positions[idx.v]}
	if idx.vt >= 0 {
		v.UV = p.uvs[idx.vt]
	}
	if idx.vn >= 0 {
		v.Normal = p.normals[idx.vn]
	}
	i := len(p.mesh.Vertices)
	p.mesh.Vertices = append(p.mesh.Vertices, v)
	p.corners[idx] = i
	return i
}

// loadMTL appends the materials of an MTL library. A missing library is
// logged and skipped.
func (p *objParser) loadMTL(path string) error {
	f, err := os.Open(path)
	if err != nil {
		logging.Logger().Warn("obj: material library unavailable", "path", path, "error", err)
		return nil
	}
	defer f.Close()

	mats, err := ParseMTL(f, filepath.Dir(path))
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	for _, m := range mats {
		p.materials[m.Name] = len(p.mesh.Materials)
		p.mesh.Materials = append(p.mesh.Materials, m)
	}
	return nil
}

// ParseMTL reads MTL statements from r. Texture paths are resolved against
// dir; maps that fail to load are logged and left unbound.
func ParseMTL(r io.Reader, dir string) ([]Material, error) {
	var mats []Material
	var cur *Material

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(stripComment(scanner.Text()))
		if len(fields) == 0 {
			continue
		}
		ident, args := fields[0], fields[1:]

		if ident == "newmtl" {
			if len(args) == 0 {
				return nil, fmt.Errorf("line %d: newmtl without name", lineNo)
			}
			mats = append(mats, DefaultMaterial(args[0]))
			cur = &mats[len(mats)-1]
			continue
		}
		if cur == nil {
			continue
		}

		var err error
		switch ident {
		case "Ka":
			cur.KA, err = parseVec3(args)
		case "Kd":
			cur.KD, err = parseVec3(args)
		case "Ks":
			cur.KS, err = parseVec3(args)
		case "Ns":
			if len(args) == 0 {
				err = fmt.Errorf("missing value")
				break
			}
			cur.Shininess, err = strconv.ParseFloat(args[0], 64)
		case "map_Kd":
			cur.DiffuseMap = loadMap(dir, args)
		case "map_Ns":
			cur.SpecularMap = loadMap(dir, args)
		case "map_Bump", "map_bump", "bump", "norm":
			cur.NormalMap = loadMap(dir, args)
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", lineNo, ident, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read mtl: %w", err)
	}
	return mats, nil
}

// loadMap decodes the image named by the last argument of a map statement.
// Leading options such as "-bm 1.0" are ignored.
func loadMap(dir string, args []string) image.Image {
	if len(args) == 0 {
		return nil
	}
	path := args[len(args)-1]
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}

	img, err := LoadImage(path)
	if err != nil {
		logging.Logger().Warn("mtl: texture unavailable", "path", path, "error", err)
		return nil
	}
	return img
}

// LoadImage decodes an image file in any registered format.
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

func parseVec3(args []string) (math3d.Vec3, error) {
	if len(args) < 3 {
		return math3d.Vec3{}, fmt.Errorf("need 3 components, got %d", len(args))
	}
	var v [3]float64
	for i := range v {
		f, err := strconv.ParseFloat(args[i], 64)
		if err != nil {
			return math3d.Vec3{}, err
		}
		v[i] = f
	}
	return math3d.V3(v[0], v[1], v[2]), nil
}

func stripComment(s string) string {
	if i := strings.IndexByte(s, '#'); i >= 0 {
		return s[:i]
	}
	return s
}

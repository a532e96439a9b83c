package scene

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// LoadGLTF reads a glTF/GLB file into an entity tree rooted at a new entity
// named after the file. Mesh POSITION attributes become preview points on
// the owning entity; maxPointsPerMesh > 0 thins each mesh with a fixed stride.
func LoadGLTF(path string, maxPointsPerMesh int) (*Entity, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("scene: open %s: %w", path, err)
	}

	root := NewEntity(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))

	var roots []int
	switch {
	case doc.Scene != nil && int(*doc.Scene) < len(doc.Scenes):
		roots = doc.Scenes[*doc.Scene].Nodes
	case len(doc.Scenes) > 0:
		roots = doc.Scenes[0].Nodes
	default:
		roots = orphanNodes(doc)
	}

	visited := make(map[int]bool)
	for _, idx := range roots {
		child, err := buildNode(doc, idx, maxPointsPerMesh, visited)
		if err != nil {
			return nil, fmt.Errorf("scene: %s: %w", path, err)
		}
		root.AddChild(child)
	}
	return root, nil
}

func buildNode(doc *gltf.Document, idx int, maxPoints int, visited map[int]bool) (*Entity, error) {
	if idx < 0 || idx >= len(doc.Nodes) {
		return nil, fmt.Errorf("node index %d out of range", idx)
	}
	if visited[idx] {
		return nil, fmt.Errorf("node %d referenced twice", idx)
	}
	visited[idx] = true

	n := doc.Nodes[idx]
	name := n.Name
	if name == "" {
		name = fmt.Sprintf("node_%d", idx)
	}
	e := NewEntity(name)
	applyNodeTransform(e, n)

	if n.Mesh != nil && int(*n.Mesh) < len(doc.Meshes) {
		pts, err := meshPoints(doc, doc.Meshes[*n.Mesh], maxPoints)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", name, err)
		}
		e.Points = pts
		e.Material = NewMaterial()
	}

	for _, ci := range n.Children {
		c, err := buildNode(doc, ci, maxPoints, visited)
		if err != nil {
			return nil, err
		}
		e.AddChild(c)
	}
	return e, nil
}

func applyNodeTransform(e *Entity, n *gltf.Node) {
	if n.Matrix != gltf.DefaultMatrix && n.Matrix != ([16]float64{}) {
		m := mgl64.Mat4(n.Matrix)
		t := m.Col(3).Vec3()
		c0, c1, c2 := m.Col(0).Vec3(), m.Col(1).Vec3(), m.Col(2).Vec3()
		s := mgl64.Vec3{c0.Len(), c1.Len(), c2.Len()}
		var r mgl64.Mat4
		if s.X() > 0 && s.Y() > 0 && s.Z() > 0 {
			r = mgl64.Mat4FromCols(c0.Mul(1/s.X()).Vec4(0), c1.Mul(1/s.Y()).Vec4(0), c2.Mul(1/s.Z()).Vec4(0), mgl64.Vec4{0, 0, 0, 1})
		} else {
			r = mgl64.Ident4()
		}
		e.SetLocalPosition(t)
		e.SetLocalRotation(mgl64.Mat4ToQuat(r))
		e.SetLocalScale(s)
		return
	}

	e.SetLocalPosition(mgl64.Vec3(n.Translation))
	rot := n.Rotation
	if rot == ([4]float64{}) {
		rot = gltf.DefaultRotation
	}
	e.SetLocalRotation(mgl64.Quat{W: rot[3], V: mgl64.Vec3{rot[0], rot[1], rot[2]}})
	scale := n.Scale
	if scale == ([3]float64{}) {
		scale = gltf.DefaultScale
	}
	e.SetLocalScale(mgl64.Vec3(scale))
}

func meshPoints(doc *gltf.Document, mesh *gltf.Mesh, maxPoints int) ([]mgl64.Vec3, error) {
	var pts []mgl64.Vec3
	for _, prim := range mesh.Primitives {
		acrIdx, ok := prim.Attributes[gltf.POSITION]
		if !ok || int(acrIdx) >= len(doc.Accessors) {
			continue
		}
		raw, err := modeler.ReadPosition(doc, doc.Accessors[acrIdx], nil)
		if err != nil {
			return nil, fmt.Errorf("read positions: %w", err)
		}
		for _, p := range raw {
			pts = append(pts, mgl64.Vec3{float64(p[0]), float64(p[1]), float64(p[2])})
		}
	}
	if maxPoints > 0 && len(pts) > maxPoints {
		stride := (len(pts) + maxPoints - 1) / maxPoints
		thinned := make([]mgl64.Vec3, 0, maxPoints)
		for i := 0; i < len(pts); i += stride {
			thinned = append(thinned, pts[i])
		}
		pts = thinned
	}
	return pts, nil
}

// orphanNodes returns nodes that are nobody's child, for files without scenes.
func orphanNodes(doc *gltf.Document) []int {
	isChild := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			if int(c) < len(isChild) {
				isChild[c] = true
			}
		}
	}
	var out []int
	for i, c := range isChild {
		if !c {
			out = append(out, i)
		}
	}
	return out
}

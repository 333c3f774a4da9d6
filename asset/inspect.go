// Package asset reads the bounds of glTF/GLB assets and keeps the asset
// currently shown by a viewer.
package asset

import (
	"errors"
	"fmt"
	"io"

	"github.com/qmuntal/gltf"
	"github.com/roboticeyes/arpreview/math"
)

// ErrNoGeometry is returned if the document has no primitive with declared
// POSITION bounds in its scene.
var ErrNoGeometry = errors.New("asset does not contain positioned geometry")

// Info describes an inspected asset
type Info struct {
	Bounds     math.Box   `json:"bounds"`
	Dimensions math.Vec3f `json:"dimensions"` // width/height/depth in meters
	Meshes     int        `json:"meshes"`
	Nodes      int        `json:"nodes"`
	Generator  string     `json:"generator,omitempty"`
}

// Inspect decodes a GLB or glTF document and returns the world space bounds
// of its default scene. Only the POSITION accessor min/max values are read,
// vertex data is never touched.
func Inspect(r io.Reader) (Info, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(r).Decode(doc); err != nil {
		return Info{}, fmt.Errorf("cannot decode asset: %w", err)
	}
	return InspectDocument(doc)
}

// InspectDocument returns the bounds of an already decoded document
func InspectDocument(doc *gltf.Document) (Info, error) {
	info := Info{
		Meshes:    len(doc.Meshes),
		Nodes:     len(doc.Nodes),
		Generator: doc.Asset.Generator,
	}

	bounds := math.EmptyBox()
	visited := make(map[int]bool)

	var walk func(idx int, parent math.Mat4)
	walk = func(idx int, parent math.Mat4) {
		if idx < 0 || idx >= len(doc.Nodes) || visited[idx] {
			return
		}
		visited[idx] = true
		node := doc.Nodes[idx]
		world := parent.Mul(nodeMatrix(node))
		if node.Mesh != nil {
			bounds = bounds.Union(meshBounds(doc, int(*node.Mesh)).Transform(world))
		}
		for _, child := range node.Children {
			walk(int(child), world)
		}
	}

	for _, root := range sceneRoots(doc) {
		walk(root, math.Identity())
	}

	if bounds.IsEmpty() {
		return info, ErrNoGeometry
	}
	info.Bounds = bounds
	info.Dimensions = bounds.Size()
	return info, nil
}

// sceneRoots returns the root nodes of the default scene. Documents without
// a scene are treated as if every node without a parent was a root.
func sceneRoots(doc *gltf.Document) []int {
	var roots []int
	if len(doc.Scenes) > 0 {
		scene := 0
		if doc.Scene != nil && int(*doc.Scene) < len(doc.Scenes) {
			scene = int(*doc.Scene)
		}
		for _, n := range doc.Scenes[scene].Nodes {
			roots = append(roots, int(n))
		}
		return roots
	}

	isChild := make(map[int]bool)
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			isChild[int(c)] = true
		}
	}
	for i := range doc.Nodes {
		if !isChild[i] {
			roots = append(roots, i)
		}
	}
	return roots
}

var identityMatrix = [16]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

func nodeMatrix(node *gltf.Node) math.Mat4 {
	m := node.MatrixOrDefault()
	if m != identityMatrix {
		return math.FromColumnMajor(m)
	}
	t := node.TranslationOrDefault()
	r := node.RotationOrDefault()
	s := node.ScaleOrDefault()
	return math.FromTRS(
		math.Vec3f{X: t[0], Y: t[1], Z: t[2]},
		math.Vec4f{X: r[0], Y: r[1], Z: r[2], W: r[3]},
		math.Vec3f{X: s[0], Y: s[1], Z: s[2]},
	)
}

func meshBounds(doc *gltf.Document, idx int) math.Box {
	box := math.EmptyBox()
	if idx < 0 || idx >= len(doc.Meshes) {
		return box
	}
	for _, prim := range doc.Meshes[idx].Primitives {
		pos, ok := prim.Attributes[gltf.POSITION]
		if !ok || int(pos) >= len(doc.Accessors) {
			continue
		}
		acc := doc.Accessors[pos]
		if len(acc.Min) < 3 || len(acc.Max) < 3 {
			continue
		}
		box = box.Extend(math.Vec3f{X: float32(acc.Min[0]), Y: float32(acc.Min[1]), Z: float32(acc.Min[2])})
		box = box.Extend(math.Vec3f{X: float32(acc.Max[0]), Y: float32(acc.Max[1]), Z: float32(acc.Max[2])})
	}
	return box
}

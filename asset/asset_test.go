package asset

import (
	"bytes"
	"encoding/binary"
	"errors"
	gomath "math"
	"strings"
	"testing"

	"github.com/roboticeyes/arpreview/math"
)

// glb wraps a glTF JSON document into a binary container without BIN chunk
func glb(doc string) []byte {
	js := []byte(doc)
	for len(js)%4 != 0 {
		js = append(js, ' ')
	}
	var buf bytes.Buffer
	buf.WriteString("glTF")
	binary.Write(&buf, binary.LittleEndian, uint32(2))
	binary.Write(&buf, binary.LittleEndian, uint32(12+8+len(js)))
	binary.Write(&buf, binary.LittleEndian, uint32(len(js)))
	buf.WriteString("JSON")
	buf.Write(js)
	return buf.Bytes()
}

const boxDocument = `{
	"asset": {"version": "2.0", "generator": "test"},
	"scene": 0,
	"scenes": [{"nodes": [0]}],
	"nodes": [{"mesh": 0}],
	"meshes": [{"primitives": [{"attributes": {"POSITION": 0}}]}],
	"accessors": [{
		"componentType": 5126, "count": 8, "type": "VEC3",
		"min": [-1, -0.5, -0.25], "max": [1, 0.5, 0.25]
	}]
}`

func nearVec(a, b math.Vec3f) bool {
	d := a.Sub(b)
	return gomath.Abs(float64(d.X)) < 1e-5 && gomath.Abs(float64(d.Y)) < 1e-5 && gomath.Abs(float64(d.Z)) < 1e-5
}

func TestInspectGLB(t *testing.T) {
	info, err := Inspect(bytes.NewReader(glb(boxDocument)))
	if err != nil {
		t.Fatal(err)
	}
	if !nearVec(info.Dimensions, math.Vec3f{X: 2, Y: 1, Z: 0.5}) {
		t.Fatal("Wrong dimensions", info.Dimensions)
	}
	if info.Meshes != 1 || info.Nodes != 1 || info.Generator != "test" {
		t.Fatal("Wrong info", info)
	}
}

func TestInspectGLTFJSON(t *testing.T) {
	info, err := Inspect(strings.NewReader(boxDocument))
	if err != nil {
		t.Fatal(err)
	}
	if !nearVec(info.Dimensions, math.Vec3f{X: 2, Y: 1, Z: 0.5}) {
		t.Fatal("Wrong dimensions", info.Dimensions)
	}
}

func TestInspectNodeHierarchy(t *testing.T) {
	doc := `{
		"asset": {"version": "2.0"},
		"scenes": [{"nodes": [0]}],
		"nodes": [
			{"scale": [2, 2, 2], "children": [1, 2]},
			{"mesh": 0, "translation": [-1, 0, 0]},
			{"mesh": 0, "translation": [1, 0, 0]}
		],
		"meshes": [{"primitives": [{"attributes": {"POSITION": 0}}]}],
		"accessors": [{
			"componentType": 5126, "count": 3, "type": "VEC3",
			"min": [-0.5, 0, -0.5], "max": [0.5, 1, 0.5]
		}]
	}`
	info, err := Inspect(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	// children span x in [-1.5, 1.5] before the parent scale of 2
	if !nearVec(info.Dimensions, math.Vec3f{X: 6, Y: 2, Z: 2}) {
		t.Fatal("Wrong dimensions", info.Dimensions)
	}
}

func TestInspectMatrixNode(t *testing.T) {
	doc := `{
		"asset": {"version": "2.0"},
		"scenes": [{"nodes": [0]}],
		"nodes": [{"mesh": 0, "matrix": [0.5,0,0,0, 0,0.5,0,0, 0,0,0.5,0, 3,0,0,1]}],
		"meshes": [{"primitives": [{"attributes": {"POSITION": 0}}]}],
		"accessors": [{
			"componentType": 5126, "count": 3, "type": "VEC3",
			"min": [0, 0, 0], "max": [2, 1, 0.5]
		}]
	}`
	info, err := Inspect(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	if !nearVec(info.Dimensions, math.Vec3f{X: 1, Y: 0.5, Z: 0.25}) {
		t.Fatal("Wrong dimensions", info.Dimensions)
	}
	if !nearVec(info.Bounds.Min, math.Vec3f{X: 3}) {
		t.Fatal("Wrong bounds", info.Bounds)
	}
}

func TestInspectWithoutGeometry(t *testing.T) {
	doc := `{"asset": {"version": "2.0"}, "scenes": [{"nodes": [0]}], "nodes": [{}]}`
	_, err := Inspect(strings.NewReader(doc))
	if !errors.Is(err, ErrNoGeometry) {
		t.Fatal("expected ErrNoGeometry, got", err)
	}
}

func TestInspectGarbage(t *testing.T) {
	if _, err := Inspect(strings.NewReader("not a model")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestStoreReplacesAsset(t *testing.T) {
	s := NewStore("/assets/")
	first := s.Create("chair.glb", "", []byte("one"))
	if first.URL != "/assets/"+first.ID+"/chair.glb" {
		t.Fatal("Wrong url", first.URL)
	}
	if first.ContentType != ContentTypeGLB {
		t.Fatal("Wrong content type", first.ContentType)
	}
	// created assets are not served until they replace the current one
	if _, ok := s.Get(first.ID); ok || s.Current() != nil {
		t.Fatal("created asset must not be served yet")
	}
	s.Replace(first)
	if got, ok := s.Get(first.ID); !ok || string(got.Data()) != "one" {
		t.Fatal("asset not found")
	}

	second := s.Create("table.gltf", "", []byte("two"))
	s.Replace(second)
	if _, ok := s.Get(first.ID); ok {
		t.Fatal("replaced asset must be discarded")
	}
	if s.Current() != second || second.ContentType != ContentTypeGLTF {
		t.Fatal("Wrong current asset")
	}
}

func TestSanitizeName(t *testing.T) {
	cases := map[string]string{
		"chair.glb":         "chair.glb",
		"../../etc/passwd":  "passwd",
		`C:\Users\me\a.png`: "a.png",
		"we?ird:na*me.jpg":  "we_ird_na_me.jpg",
		"":                  "output",
		"   ":               "output",
		"bad\x00name.png":   "badname.png",
	}
	for in, want := range cases {
		if got := SanitizeName(in); got != want {
			t.Fatalf("SanitizeName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGLBName(t *testing.T) {
	if GLBName("photo.jpeg") != "photo.glb" {
		t.Fatal("Wrong response")
	}
	if GLBName("") != "output.glb" {
		t.Fatal("Wrong response")
	}
	if GLBName("dir/my photo.png") != "my photo.glb" {
		t.Fatal("Wrong response")
	}
}

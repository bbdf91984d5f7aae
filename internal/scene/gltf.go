package scene

import (
	"io"
	"strings"

	"cogentcore.org/core/math32"
	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
)

// Extras keys that carry the explicit layer hint of a node.
var layerTagKeys = []string{"layer_id", "layerId", "layer"}

const lightsExtension = "KHR_lights_punctual"

// LoadGLTF decodes a glTF or GLB asset into a Scene. Only the parts the viewer
// needs are read: hierarchy, names, layer hints, materials and world bounds
// from the POSITION accessor min/max.
func LoadGLTF(r io.Reader) (*Scene, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(r).Decode(doc); err != nil {
		return nil, errors.Wrap(err, "decode gltf")
	}
	return FromDocument(doc)
}

// FromDocument builds a Scene from an already decoded glTF document.
func FromDocument(doc *gltf.Document) (*Scene, error) {
	b := &builder{
		doc:       doc,
		materials: make(map[int]*Material),
		visiting:  make(map[int]bool),
	}
	root := NewGroup("scene")

	roots, err := b.rootNodes()
	if err != nil {
		return nil, err
	}
	for _, idx := range roots {
		if err := b.addNode(root, idx, identity()); err != nil {
			return nil, err
		}
	}
	return New(root), nil
}

type builder struct {
	doc       *gltf.Document
	materials map[int]*Material
	visiting  map[int]bool
}

func (b *builder) rootNodes() ([]int, error) {
	if len(b.doc.Scenes) == 0 {
		// No scene list: every node that is nobody's child is a root.
		child := make(map[int]bool)
		for _, n := range b.doc.Nodes {
			for _, c := range n.Children {
				child[int(c)] = true
			}
		}
		var roots []int
		for i := range b.doc.Nodes {
			if !child[i] {
				roots = append(roots, i)
			}
		}
		return roots, nil
	}
	sceneIdx := 0
	if b.doc.Scene != nil {
		sceneIdx = int(*b.doc.Scene)
	}
	if sceneIdx < 0 || sceneIdx >= len(b.doc.Scenes) {
		return nil, errors.Errorf("gltf: default scene %d out of range", sceneIdx)
	}
	var roots []int
	for _, n := range b.doc.Scenes[sceneIdx].Nodes {
		roots = append(roots, int(n))
	}
	return roots, nil
}

func (b *builder) addNode(parent Node, idx int, parentWorld mat4) error {
	if idx < 0 || idx >= len(b.doc.Nodes) {
		return errors.Errorf("gltf: node %d out of range", idx)
	}
	if b.visiting[idx] {
		return errors.Errorf("gltf: node %d is its own ancestor", idx)
	}
	b.visiting[idx] = true
	defer delete(b.visiting, idx)

	src := b.doc.Nodes[idx]
	world := parentWorld.mul(localMatrix(src))
	base := NodeBase{
		Name:     strings.TrimSpace(src.Name),
		LayerTag: layerTag(src.Extras),
		Visible:  true,
	}

	var node Node
	switch {
	case src.Mesh != nil:
		m, err := b.mesh(int(*src.Mesh), world)
		if err != nil {
			return err
		}
		m.NodeBase = base
		node = m
	case hasExtension(src.Extensions, lightsExtension):
		node = &Light{NodeBase: base}
	case src.Camera != nil:
		node = &Other{NodeBase: base}
	default:
		node = &Group{NodeBase: base}
	}
	Add(parent, node)

	for _, c := range src.Children {
		if err := b.addNode(node, int(c), world); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) mesh(idx int, world mat4) (*Mesh, error) {
	if idx < 0 || idx >= len(b.doc.Meshes) {
		return nil, errors.Errorf("gltf: mesh %d out of range", idx)
	}
	src := b.doc.Meshes[idx]
	m := &Mesh{Bounds: math32.B3Empty()}
	wm := world.toMatrix4()
	for _, p := range src.Primitives {
		m.Primitives++
		if pos, ok := p.Attributes["POSITION"]; ok {
			if box, ok := b.accessorBounds(int(pos)); ok {
				m.Bounds.ExpandByBox(box.MulMatrix4(&wm))
			}
		}
		m.Materials = append(m.Materials, b.material(p.Material))
	}
	return m, nil
}

func (b *builder) accessorBounds(idx int) (math32.Box3, bool) {
	if idx < 0 || idx >= len(b.doc.Accessors) {
		return math32.Box3{}, false
	}
	acc := b.doc.Accessors[idx]
	if len(acc.Min) < 3 || len(acc.Max) < 3 {
		return math32.Box3{}, false
	}
	return math32.B3(
		float32(acc.Min[0]), float32(acc.Min[1]), float32(acc.Min[2]),
		float32(acc.Max[0]), float32(acc.Max[1]), float32(acc.Max[2]),
	), true
}

// material returns the shared Material for a glTF material index, or a fresh
// material with undefined opacity when the primitive has none.
func (b *builder) material(ref *int) *Material {
	if ref == nil {
		return &Material{Name: "default"}
	}
	idx := int(*ref)
	if m, ok := b.materials[idx]; ok {
		return m
	}
	m := &Material{}
	if idx >= 0 && idx < len(b.doc.Materials) {
		src := b.doc.Materials[idx]
		m.Name = src.Name
		alpha := 1.0
		if pbr := src.PBRMetallicRoughness; pbr != nil && pbr.BaseColorFactor != nil {
			alpha = pbr.BaseColorFactor[3]
		}
		m.SetOpacity(alpha)
		m.Transparent = src.AlphaMode == gltf.AlphaBlend
	}
	b.materials[idx] = m
	return m
}

func layerTag(extras any) string {
	var fields map[string]any
	var raw []byte
	switch v := extras.(type) {
	case map[string]any:
		fields = v
	case json.RawMessage:
		raw = v
	case []byte:
		raw = v
	}
	if raw != nil {
		if err := json.Unmarshal(raw, &fields); err != nil {
			log.Debugf("Ignoring malformed node extras: %v", err)
			return ""
		}
	}
	for _, k := range layerTagKeys {
		if s, ok := fields[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func hasExtension(ext gltf.Extensions, name string) bool {
	if ext == nil {
		return false
	}
	_, ok := ext[name]
	return ok
}

// Package scene holds the headless scene graph of a loaded massing model.
//
// Nodes form a closed set of variants: Group, Mesh, Light and Other. Code that
// needs to treat meshes specially asks HasRenderableGeometry or uses WalkMeshes
// instead of inspecting types ad hoc.
package scene

import (
	"cogentcore.org/core/math32"
)

// Node is implemented by *Group, *Mesh, *Light and *Other only.
type Node interface {
	AsNodeBase() *NodeBase
	// HasRenderableGeometry reports whether the node draws triangles.
	HasRenderableGeometry() bool
	isNode()
}

// NodeBase is the state shared by all node variants.
type NodeBase struct {
	// Name is the display name from the asset.
	Name string
	// LayerTag is the explicit per-object layer hint embedded in the asset.
	LayerTag string
	// Visible mirrors the renderer visibility flag.
	Visible bool

	parent   Node
	children []Node
}

func (nb *NodeBase) AsNodeBase() *NodeBase { return nb }

// Parent returns the parent node, nil for the root.
func (nb *NodeBase) Parent() Node { return nb.parent }

// Children returns the direct children in asset order.
func (nb *NodeBase) Children() []Node { return nb.children }

// Group is a transform-only node.
type Group struct {
	NodeBase
}

// NewGroup returns a visible group.
func NewGroup(name string) *Group {
	return &Group{NodeBase: NodeBase{Name: name, Visible: true}}
}

func (g *Group) HasRenderableGeometry() bool { return false }
func (g *Group) isNode()                     {}

// Mesh is a node with triangle geometry.
type Mesh struct {
	NodeBase

	// Materials are shared between meshes that reference the same asset material.
	Materials []*Material
	// Bounds is the world-space bounding box of the mesh's own geometry.
	Bounds math32.Box3
	// Primitives is the number of draw primitives.
	Primitives int

	CastShadow    bool
	ReceiveShadow bool
}

// NewMesh returns a visible mesh with one primitive and the given world bounds.
func NewMesh(name string, bounds math32.Box3, materials ...*Material) *Mesh {
	return &Mesh{
		NodeBase:   NodeBase{Name: name, Visible: true},
		Materials:  materials,
		Bounds:     bounds,
		Primitives: 1,
	}
}

func (m *Mesh) HasRenderableGeometry() bool { return m.Primitives > 0 }
func (m *Mesh) isNode()                     {}

// Light is a punctual light node.
type Light struct {
	NodeBase
}

func (l *Light) HasRenderableGeometry() bool { return false }
func (l *Light) isNode()                     {}

// Other covers cameras and anything else without geometry.
type Other struct {
	NodeBase
}

func (o *Other) HasRenderableGeometry() bool { return false }
func (o *Other) isNode()                     {}

// Add appends child to parent and returns child.
func Add[T Node](parent Node, child T) T {
	pb := parent.AsNodeBase()
	child.AsNodeBase().parent = parent
	pb.children = append(pb.children, child)
	return child
}

// Walk visits root and its descendants in pre-order. Returning false from fn
// skips the node's children.
func Walk(root Node, fn func(Node) bool) {
	if root == nil {
		return
	}
	if !fn(root) {
		return
	}
	for _, c := range root.AsNodeBase().children {
		Walk(c, fn)
	}
}

// WalkMeshes calls fn for every renderable mesh in the subtree, in pre-order.
func WalkMeshes(root Node, fn func(*Mesh)) {
	Walk(root, func(n Node) bool {
		if m, ok := n.(*Mesh); ok && m.HasRenderableGeometry() {
			fn(m)
		}
		return true
	})
}

// SubtreeBounds is the union of the bounds of every mesh under root.
func SubtreeBounds(root Node) math32.Box3 {
	box := math32.B3Empty()
	WalkMeshes(root, func(m *Mesh) {
		if !m.Bounds.IsEmpty() {
			box.ExpandByBox(m.Bounds)
		}
	})
	return box
}

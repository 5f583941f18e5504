package asset

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// NodeKind tells which payload a Node carries.
type NodeKind int

const (
	KindRoot NodeKind = iota
	KindGroup
	KindMesh
	KindSkeleton
	KindCollision
)

func (k NodeKind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindGroup:
		return "group"
	case KindMesh:
		return "mesh"
	case KindSkeleton:
		return "skeleton"
	case KindCollision:
		return "collision"
	}
	return fmt.Sprintf("NodeKind(%d)", int(k))
}

// MarshalText encodes the kind by name.
func (k NodeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Node is one element of the output scene tree.
type Node struct {
	Name      string           `json:"name"`
	Kind      NodeKind         `json:"kind"`
	Transform mgl64.Mat4       `json:"transform"`
	Scale     mgl64.Vec3       `json:"scale"`
	Mesh      *GeometryBatch   `json:"mesh,omitempty"`
	Hull      *ConvexHullInput `json:"hull,omitempty"`
	Skeleton  *Skeleton        `json:"skeleton,omitempty"`
	Skin      *SkinBinding     `json:"skin,omitempty"`
	Children  []*Node          `json:"children,omitempty"`
}

// NewNode returns a node with identity transform and unit scale.
func NewNode(name string, kind NodeKind) *Node {
	return &Node{
		Name:      name,
		Kind:      kind,
		Transform: mgl64.Ident4(),
		Scale:     mgl64.Vec3{1, 1, 1},
	}
}

// Add appends children and returns n.
func (n *Node) Add(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

// Walk visits n and its descendants depth-first. Returning false from fn skips the subtree.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Find returns the first node in the subtree with the given name and kind.
func (n *Node) Find(name string, kind NodeKind) *Node {
	var found *Node
	n.Walk(func(c *Node) bool {
		if found != nil {
			return false
		}
		if c.Name == name && c.Kind == kind {
			found = c
			return false
		}
		return true
	})
	return found
}

// Asset is the result of one transcoding pass.
type Asset struct {
	Name        string           `json:"name"`
	Root        *Node            `json:"root,omitempty"`
	Clips       []*AnimationClip `json:"clips,omitempty"`
	Diagnostics []Diagnostic     `json:"diagnostics,omitempty"`
}

// Meshes returns every mesh node in tree order.
func (a *Asset) Meshes() []*Node {
	var out []*Node
	a.Root.Walk(func(n *Node) bool {
		if n.Kind == KindMesh {
			out = append(out, n)
		}
		return true
	})
	return out
}

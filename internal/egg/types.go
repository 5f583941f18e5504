package egg

import (
	"strings"
	"sync"
)

// Node is one of the document node kinds: *EntityGroup, *VertexPool, *TextureReference,
// *AnimationTable, *Joint or *Polygon. The set is closed; dispatch with a type switch.
type Node interface {
	eggNode()
}

func (*EntityGroup) eggNode()      {}
func (*VertexPool) eggNode()       {}
func (*TextureReference) eggNode() {}
func (*AnimationTable) eggNode()   {}
func (*Joint) eggNode()            {}
func (*Polygon) eggNode()          {}

// Matrix is an egg <Matrix4>: row-major, row vectors, translation in the last row.
type Matrix [16]float64

// IdentityMatrix returns the 4×4 identity.
func IdentityMatrix() Matrix {
	return Matrix{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Mul returns a × b. With row vectors, a is applied first.
func (a Matrix) Mul(b Matrix) Matrix {
	var m Matrix
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			m[r*4+c] = a[r*4+0]*b[0*4+c] + a[r*4+1]*b[1*4+c] +
				a[r*4+2]*b[2*4+c] + a[r*4+3]*b[3*4+c]
		}
	}
	return m
}

// EntityGroup is a <Group> (or <Instance>) node.
type EntityGroup struct {
	Name      string
	Members   []Node
	Transform *Matrix
	Collide   *CollideFlags // nil unless the group is a collision group
	Dart      bool
}

// CollideFlags holds a <Collide> entry: the solid type (Polyset, Sphere, ...) and its flags.
type CollideFlags struct {
	Type  string
	Flags []string
}

// Has reports whether flag (e.g. "keep", "descend") is set. Matching ignores case.
func (c *CollideFlags) Has(flag string) bool {
	if c == nil {
		return false
	}
	for _, f := range c.Flags {
		if strings.EqualFold(f, flag) {
			return true
		}
	}
	return false
}

// Polygons returns the polygon members in order.
func (g *EntityGroup) Polygons() []*Polygon {
	var out []*Polygon
	for _, m := range g.Members {
		if p, ok := m.(*Polygon); ok {
			out = append(out, p)
		}
	}
	return out
}

// Joints returns the joints that are direct members of the group.
func (g *EntityGroup) Joints() []*Joint {
	var out []*Joint
	for _, m := range g.Members {
		if j, ok := m.(*Joint); ok {
			out = append(out, j)
		}
	}
	return out
}

// Groups returns the direct sub-groups.
func (g *EntityGroup) Groups() []*EntityGroup {
	var out []*EntityGroup
	for _, m := range g.Members {
		if sub, ok := m.(*EntityGroup); ok {
			out = append(out, sub)
		}
	}
	return out
}

// VertexPool is a named <VertexPool>.
type VertexPool struct {
	Name     string
	Vertices map[int]*Vertex
}

// Vertex is a pool entry. Optional attributes are nil when absent.
type Vertex struct {
	Index  int
	Pos    [3]float64
	UV     *[2]float64
	Color  *[4]float64
	Normal *[3]float64
}

// TextureReference is a named <Texture> with its filename.
type TextureReference struct {
	Name string
	Path string
}

// Polygon references vertices of a pool; indices form a triangle list in the given order.
type Polygon struct {
	Pool    string
	Indices []int
	TRef    string // empty when untextured
}

// Joint is a <Joint> with its vertex memberships and child joints.
type Joint struct {
	Name        string
	Transform   *Matrix
	DefaultPose *Matrix
	Members     []Membership
	Children    []*Joint
}

// Membership is one (pool entry, weight) pair owned by a joint.
type Membership struct {
	Pool   string
	Index  int
	Weight float64
}

// AnimationTable is a <Table> or <Bundle>. Leaves carry the scalar channels of their
// <Xfm$Anim_S> entries.
type AnimationTable struct {
	Name     string
	Bundle   bool
	Tables   []*AnimationTable
	Channels []*ScalarChannel
}

// ScalarChannel is one <S$Anim> axis curve sampled at the clip rate.
type ScalarChannel struct {
	Axis   byte
	Values []float64
}

// Coordinate systems recognized in <CoordinateSystem>.
const (
	ZUp     = "Z-Up"
	YUp     = "Y-Up"
	ZUpLeft = "Z-Up-Left"
	YUpLeft = "Y-Up-Left"
)

// Document is a parsed egg file.
type Document struct {
	CoordinateSystem string
	Nodes            []Node

	once     sync.Once
	pools    map[string]*VertexPool
	textures map[string]*TextureReference
}

// IsZUp reports whether the document uses the default Z-up convention.
func (d *Document) IsZUp() bool {
	return d.CoordinateSystem == "" || d.CoordinateSystem == ZUp || d.CoordinateSystem == ZUpLeft
}

func (d *Document) index() {
	d.once.Do(func() {
		d.pools = make(map[string]*VertexPool)
		d.textures = make(map[string]*TextureReference)
		var walk func(nodes []Node)
		walk = func(nodes []Node) {
			for _, n := range nodes {
				switch v := n.(type) {
				case *VertexPool:
					if _, ok := d.pools[v.Name]; !ok {
						d.pools[v.Name] = v
					}
				case *TextureReference:
					if _, ok := d.textures[v.Name]; !ok {
						d.textures[v.Name] = v
					}
				case *EntityGroup:
					walk(v.Members)
				}
			}
		}
		walk(d.Nodes)
	})
}

// Pool returns the vertex pool with the given name, searching nested groups too.
func (d *Document) Pool(name string) (*VertexPool, bool) {
	d.index()
	p, ok := d.pools[name]
	return p, ok
}

// Texture returns the texture reference with the given name.
func (d *Document) Texture(name string) (*TextureReference, bool) {
	d.index()
	t, ok := d.textures[name]
	return t, ok
}

// Vertex resolves a pool entry. Fails with *LookupError if the pool or index is absent.
func (d *Document) Vertex(pool string, index int) (*Vertex, error) {
	p, ok := d.Pool(pool)
	if !ok {
		return nil, &LookupError{Kind: "vertex pool", Name: pool, Index: -1}
	}
	v, ok := p.Vertices[index]
	if !ok {
		return nil, &LookupError{Kind: "vertex", Name: pool, Index: index}
	}
	return v, nil
}

// AnimationTables returns the <Table> nodes at the document root.
func (d *Document) AnimationTables() []*AnimationTable {
	var out []*AnimationTable
	for _, n := range d.Nodes {
		if t, ok := n.(*AnimationTable); ok {
			out = append(out, t)
		}
	}
	return out
}

// HasAnimationTable reports whether an animation table sits at the document root.
func (d *Document) HasAnimationTable() bool {
	return len(d.AnimationTables()) > 0
}

// Groups returns the root-level entity groups.
func (d *Document) Groups() []*EntityGroup {
	var out []*EntityGroup
	for _, n := range d.Nodes {
		if g, ok := n.(*EntityGroup); ok {
			out = append(out, g)
		}
	}
	return out
}

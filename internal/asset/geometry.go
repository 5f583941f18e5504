package asset

import (
	"image"

	"github.com/chewxy/math32"
)

// MaxInfluences is the number of (bone, weight) slots carried per vertex.
const MaxInfluences = 8

// DefaultSurface is the material key of polygons without a texture reference.
const DefaultSurface = "default"

// GeometryBatch is the triangle-list mesh produced from one group.
type GeometryBatch struct {
	Name      string      `json:"name"`
	Surfaces  []*Surface  `json:"surfaces"`
	Materials []*Material `json:"materials"`
}

// VertexCount returns the total number of vertices over all surfaces.
func (b *GeometryBatch) VertexCount() int {
	n := 0
	for _, s := range b.Surfaces {
		n += s.VertexCount()
	}
	return n
}

// Vertex is one fully resolved destination-space vertex.
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	UV       [2]float32
	Color    [4]float32
	Bones    [MaxInfluences]int32
	Weights  [MaxInfluences]float32
	Skinned  bool
}

// Surface is a flat triangle list sharing one material.
type Surface struct {
	MaterialKey   string       `json:"material_key"`
	MaterialIndex int          `json:"material_index"`
	Positions     [][3]float32 `json:"positions"`
	Normals       [][3]float32 `json:"normals"`
	UVs           [][2]float32 `json:"uvs"`
	Colors        [][4]float32 `json:"colors"`

	// Bones and Weights are nil unless a skinned vertex was appended.
	Bones   [][MaxInfluences]int32   `json:"bones,omitempty"`
	Weights [][MaxInfluences]float32 `json:"weights,omitempty"`

	BoundsMin [3]float32 `json:"bounds_min"`
	BoundsMax [3]float32 `json:"bounds_max"`
}

// NewSurface returns an empty surface with inverted bounds.
func NewSurface(key string, index int) *Surface {
	inf := math32.Inf(1)
	return &Surface{
		MaterialKey:   key,
		MaterialIndex: index,
		BoundsMin:     [3]float32{inf, inf, inf},
		BoundsMax:     [3]float32{-inf, -inf, -inf},
	}
}

// VertexCount returns the number of vertices in the surface.
func (s *Surface) VertexCount() int {
	return len(s.Positions)
}

// Skinned reports whether the surface carries bone slots.
func (s *Surface) Skinned() bool {
	return s.Bones != nil
}

// AppendVertex adds v to every attribute buffer and grows the bounds.
func (s *Surface) AppendVertex(v Vertex) {
	s.appendVertex(v)
	for i := 0; i < 3; i++ {
		s.BoundsMin[i] = math32.Min(s.BoundsMin[i], v.Position[i])
		s.BoundsMax[i] = math32.Max(s.BoundsMax[i], v.Position[i])
	}
}

func (s *Surface) appendVertex(v Vertex) {
	if v.Skinned && s.Bones == nil {
		// backfill earlier unskinned vertices with empty slots
		s.Bones = make([][MaxInfluences]int32, len(s.Positions))
		s.Weights = make([][MaxInfluences]float32, len(s.Positions))
	}
	s.Positions = append(s.Positions, v.Position)
	s.Normals = append(s.Normals, v.Normal)
	s.UVs = append(s.UVs, v.UV)
	s.Colors = append(s.Colors, v.Color)
	if s.Bones != nil {
		s.Bones = append(s.Bones, v.Bones)
		s.Weights = append(s.Weights, v.Weights)
	}
}

// Finalize pads the surface with zero vertices until the count is a multiple of 3
// and returns the number of vertices added. Padding does not affect bounds.
func (s *Surface) Finalize() int {
	pad := 0
	for s.VertexCount()%3 != 0 {
		s.appendVertex(Vertex{})
		pad++
	}
	if s.VertexCount() == 0 {
		s.BoundsMin = [3]float32{}
		s.BoundsMax = [3]float32{}
	}
	return pad
}

// Material is the per-surface material.
type Material struct {
	Name        string       `json:"name"`
	TexturePath string       `json:"texture_path,omitempty"`
	Texture     *TextureInfo `json:"texture,omitempty"`
	Unshaded    bool         `json:"unshaded,omitempty"`
}

// TextureInfo describes a texture resolved by the loader.
type TextureInfo struct {
	Path   string      `json:"path"`
	Width  int         `json:"width"`
	Height int         `json:"height"`
	Format string      `json:"format"`
	Image  image.Image `json:"-"`
}

// ConvexHullInput is the position cloud of a collision group.
type ConvexHullInput struct {
	Name   string       `json:"name"`
	Points [][3]float32 `json:"points"`
}

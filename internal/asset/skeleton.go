package asset

import (
	"fmt"
	"strconv"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/tiendc/go-deepcopy"

	"egg-transcoder/internal/egg"
)

// NoParent marks a root bone.
const NoParent = -1

// Bone is one skeleton joint. Bind and Rest are local to the parent bone.
type Bone struct {
	Name   string     `json:"name"`
	Parent int        `json:"parent"`
	Bind   mgl64.Mat4 `json:"bind"`
	Rest   mgl64.Mat4 `json:"rest"`
}

// Skeleton is an ordered bone list where parents precede their children.
type Skeleton struct {
	Name  string `json:"name"`
	Bones []Bone `json:"bones"`
}

// BoneIndex returns the index of the named bone.
func (s *Skeleton) BoneIndex(name string) (int, bool) {
	for i := range s.Bones {
		if s.Bones[i].Name == name {
			return i, true
		}
	}
	return -1, false
}

// Validate checks parent ordering and name uniqueness.
func (s *Skeleton) Validate() error {
	seen := make(map[string]int, len(s.Bones))
	for i, b := range s.Bones {
		if b.Parent != NoParent && (b.Parent < 0 || b.Parent >= i) {
			return &egg.StructuralError{Name: b.Name, Reason: fmt.Sprintf("parent %d does not precede bone %d", b.Parent, i)}
		}
		if j, dup := seen[b.Name]; dup {
			return &egg.StructuralError{Name: b.Name, Reason: fmt.Sprintf("bone name used by %d and %d", j, i)}
		}
		seen[b.Name] = i
	}
	return nil
}

// VertexKey identifies a vertex pool entry.
type VertexKey struct {
	Pool  string
	Index int
}

// MarshalText lets VertexKey be used as a JSON object key.
func (k VertexKey) MarshalText() ([]byte, error) {
	return []byte(k.Pool + "#" + strconv.Itoa(k.Index)), nil
}

// Influence is one (bone, weight) pair.
type Influence struct {
	Bone   int     `json:"bone"`
	Weight float64 `json:"weight"`
}

// SkinBinding maps bones to bind transforms and vertices to their influences.
type SkinBinding struct {
	Binds      map[int]mgl64.Mat4        `json:"binds"`
	Influences map[VertexKey][]Influence `json:"influences"`
}

// NewSkinBinding returns an empty binding.
func NewSkinBinding() *SkinBinding {
	return &SkinBinding{
		Binds:      make(map[int]mgl64.Mat4),
		Influences: make(map[VertexKey][]Influence),
	}
}

// Clone returns an independent copy, so each mesh node owns its binding.
func (b *SkinBinding) Clone() (*SkinBinding, error) {
	out := &SkinBinding{}
	if err := deepcopy.Copy(out, b); err != nil {
		return nil, fmt.Errorf("asset: copy skin binding: %w", err)
	}
	return out, nil
}

// Add records an influence in discovery order. Once a vertex holds MaxInfluences
// entries further ones are dropped and Add reports false. Weights are never renormalized.
func (b *SkinBinding) Add(key VertexKey, inf Influence) bool {
	list := b.Influences[key]
	if len(list) >= MaxInfluences {
		return false
	}
	b.Influences[key] = append(list, inf)
	return true
}

// Slots returns the fixed-size bone and weight arrays for a vertex. Unused slots have weight 0.
func (b *SkinBinding) Slots(key VertexKey) ([MaxInfluences]int32, [MaxInfluences]float32, bool) {
	var bones [MaxInfluences]int32
	var weights [MaxInfluences]float32
	if b == nil {
		return bones, weights, false
	}
	list, ok := b.Influences[key]
	if !ok {
		return bones, weights, false
	}
	for i, inf := range list {
		bones[i] = int32(inf.Bone)
		weights[i] = float32(inf.Weight)
	}
	return bones, weights, true
}

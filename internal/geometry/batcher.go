package geometry

import (
	"fmt"

	"cogentcore.org/core/base/ordmap"
	"github.com/go-gl/mathgl/mgl64"

	"egg-transcoder/internal/asset"
	"egg-transcoder/internal/egg"
	"egg-transcoder/internal/mathutil"
	"egg-transcoder/internal/texture"
)

// TextureLoader resolves texture files for surface materials.
type TextureLoader interface {
	Exists(path string) bool
	LoadTexture(path string) (*asset.TextureInfo, error)
}

// Options controls one batch.
type Options struct {
	ConvertCoordinates    bool
	MapsDirectoryOverride string
	UnshadedMaterials     bool

	// Loader is optional; without it materials carry the texture path only.
	Loader TextureLoader
	// Skin supplies per-vertex bone slots when the group is skinned.
	Skin        *asset.SkinBinding
	Diagnostics *asset.Diagnostics
}

// PlaceholderNormal is written for vertices without a normal.
var PlaceholderNormal = [3]float32{0, 1, 0}

var (
	defaultUV    = [2]float32{0, 0}
	defaultColor = [4]float32{1, 1, 1, 1}
)

type surfaceState struct {
	surface  *asset.Surface
	material *asset.Material
}

// Batcher accumulates polygons into surfaces keyed by texture reference.
// Surfaces keep creation order; "default" is always created first.
type Batcher struct {
	doc      *egg.Document
	name     string
	opts     Options
	surfaces *ordmap.Map[string, *surfaceState]

	missingUV     int
	missingNormal int
}

// NewBatcher returns a batcher holding only the empty default surface.
func NewBatcher(doc *egg.Document, name string, opts Options) *Batcher {
	b := &Batcher{
		doc:      doc,
		name:     name,
		opts:     opts,
		surfaces: ordmap.New[string, *surfaceState](),
	}
	b.addSurface(asset.DefaultSurface)
	return b
}

func (b *Batcher) addSurface(key string) *surfaceState {
	st := &surfaceState{
		surface:  asset.NewSurface(key, b.surfaces.Len()),
		material: &asset.Material{Name: key, Unshaded: b.opts.UnshadedMaterials},
	}
	b.surfaces.Add(key, st)
	return st
}

// surfaceFor returns the surface for tref, creating it and attaching its texture on first use.
func (b *Batcher) surfaceFor(tref string) (*surfaceState, error) {
	key := tref
	if key == "" {
		key = asset.DefaultSurface
	}
	if st, ok := b.surfaces.ValueByKeyTry(key); ok {
		return st, nil
	}
	tex, ok := b.doc.Texture(tref)
	if !ok {
		return nil, &egg.LookupError{Kind: "texture", Name: tref, Index: -1}
	}
	st := b.addSurface(key)
	b.attachTexture(st.material, tex)
	return st, nil
}

func (b *Batcher) attachTexture(m *asset.Material, tex *egg.TextureReference) {
	path := texture.RewritePath(tex.Path, b.opts.MapsDirectoryOverride)
	m.TexturePath = path
	if b.opts.Loader == nil {
		return
	}
	if !b.opts.Loader.Exists(path) {
		b.opts.Diagnostics.Addf(asset.CodeMissingTexture, "texture %q: %s not found", tex.Name, path)
		return
	}
	info, err := b.opts.Loader.LoadTexture(path)
	if err != nil {
		b.opts.Diagnostics.Addf(asset.CodeMissingTexture, "texture %q: %v", tex.Name, err)
		return
	}
	m.Texture = info
}

// AddPolygon appends every vertex of p to the surface of its texture reference.
func (b *Batcher) AddPolygon(p *egg.Polygon) error {
	st, err := b.surfaceFor(p.TRef)
	if err != nil {
		return err
	}
	for _, idx := range p.Indices {
		v, err := b.vertex(p.Pool, idx)
		if err != nil {
			return err
		}
		st.surface.AppendVertex(v)
	}
	return nil
}

func (b *Batcher) vertex(pool string, idx int) (asset.Vertex, error) {
	src, err := b.doc.Vertex(pool, idx)
	if err != nil {
		return asset.Vertex{}, err
	}
	convert := b.opts.ConvertCoordinates

	pos := mgl64.Vec3(src.Pos)
	if convert {
		pos = mathutil.ConvertPosition(pos)
	}
	v := asset.Vertex{
		Position: vec3f(pos),
		Normal:   PlaceholderNormal,
		UV:       defaultUV,
		Color:    defaultColor,
	}

	if src.UV != nil {
		uv := mgl64.Vec2(*src.UV)
		if convert {
			uv = mathutil.ConvertUV(uv)
		}
		v.UV = [2]float32{float32(uv[0]), float32(uv[1])}
	} else {
		b.missingUV++
	}
	if src.Normal != nil {
		n := mgl64.Vec3(*src.Normal)
		if convert {
			n = mathutil.ConvertNormal(n)
		}
		v.Normal = vec3f(n)
	} else {
		b.missingNormal++
	}
	if src.Color != nil {
		c := *src.Color
		v.Color = [4]float32{float32(c[0]), float32(c[1]), float32(c[2]), float32(c[3])}
	}

	if bones, weights, ok := b.opts.Skin.Slots(asset.VertexKey{Pool: pool, Index: idx}); ok {
		v.Bones, v.Weights, v.Skinned = bones, weights, true
	}
	return v, nil
}

// Batch finalizes every surface and returns the batch.
func (b *Batcher) Batch() *asset.GeometryBatch {
	out := &asset.GeometryBatch{Name: b.name}
	for _, st := range b.surfaces.Values() {
		if pad := st.surface.Finalize(); pad > 0 {
			b.opts.Diagnostics.Addf(asset.CodeSurfacePadded, "%s/%s: padded %d vertices", b.name, st.surface.MaterialKey, pad)
		}
		out.Surfaces = append(out.Surfaces, st.surface)
		out.Materials = append(out.Materials, st.material)
	}
	if b.missingNormal > 0 {
		b.opts.Diagnostics.Addf(asset.CodeMissingAttribute, "%s: %d vertices without normal", b.name, b.missingNormal)
	}
	if b.missingUV > 0 {
		b.opts.Diagnostics.Addf(asset.CodeMissingAttribute, "%s: %d vertices without UV", b.name, b.missingUV)
	}
	return out
}

// BuildBatch batches the direct polygons of g.
func BuildBatch(doc *egg.Document, g *egg.EntityGroup, opts Options) (*asset.GeometryBatch, error) {
	b := NewBatcher(doc, g.Name, opts)
	for _, p := range g.Polygons() {
		if err := b.AddPolygon(p); err != nil {
			return nil, fmt.Errorf("geometry: group %q: %w", g.Name, err)
		}
	}
	return b.Batch(), nil
}

func vec3f(v mgl64.Vec3) [3]float32 {
	return [3]float32{float32(v[0]), float32(v[1]), float32(v[2])}
}

package skeleton

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"egg-transcoder/internal/asset"
	"egg-transcoder/internal/egg"
	"egg-transcoder/internal/mathutil"
)

// Options controls skeleton building.
type Options struct {
	ConvertCoordinates bool
	Diagnostics        *asset.Diagnostics
}

type builder struct {
	doc       *egg.Document
	opts      Options
	skel      *asset.Skeleton
	skin      *asset.SkinBinding
	names     map[string]int
	truncated int
}

// Build walks the joint trees in pre-order, numbering bones as they are visited,
// and collects their vertex memberships into a skin binding.
func Build(doc *egg.Document, name string, roots []*egg.Joint, opts Options) (*asset.Skeleton, *asset.SkinBinding, error) {
	b := &builder{
		doc:   doc,
		opts:  opts,
		skel:  &asset.Skeleton{Name: name},
		skin:  asset.NewSkinBinding(),
		names: make(map[string]int),
	}
	for _, j := range roots {
		if err := b.visit(j, asset.NoParent); err != nil {
			return nil, nil, fmt.Errorf("skeleton %q: %w", name, err)
		}
	}

	for i, bone := range b.skel.Bones {
		b.skin.Binds[i] = bone.Bind
	}
	if b.truncated > 0 {
		opts.Diagnostics.Addf(asset.CodeWeightsTruncated,
			"skeleton %q: %d influences dropped past %d per vertex", name, b.truncated, asset.MaxInfluences)
	}
	return b.skel, b.skin, nil
}

func (b *builder) visit(j *egg.Joint, parent int) error {
	if prev, dup := b.names[j.Name]; dup {
		return &egg.StructuralError{Name: j.Name, Reason: fmt.Sprintf("joint name already used by bone %d", prev)}
	}
	idx := len(b.skel.Bones)
	b.names[j.Name] = idx

	// RootBasisCorrection lands on bone 0 only, never on its children.
	root := idx == 0 && b.opts.ConvertCoordinates
	bind := b.transform(j.Transform, root)
	rest := bind
	if j.DefaultPose != nil {
		rest = b.transform(j.DefaultPose, root)
	}
	b.skel.Bones = append(b.skel.Bones, asset.Bone{Name: j.Name, Parent: parent, Bind: bind, Rest: rest})

	for _, m := range j.Members {
		if _, err := b.doc.Vertex(m.Pool, m.Index); err != nil {
			return fmt.Errorf("joint %q: %w", j.Name, err)
		}
		key := asset.VertexKey{Pool: m.Pool, Index: m.Index}
		if !b.skin.Add(key, asset.Influence{Bone: idx, Weight: m.Weight}) {
			b.truncated++
		}
	}

	for _, c := range j.Children {
		if err := b.visit(c, idx); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) transform(m *egg.Matrix, root bool) mgl64.Mat4 {
	out := mgl64.Ident4()
	if m != nil {
		out = mathutil.FromEggMatrix(*m)
		if b.opts.ConvertCoordinates {
			out = mathutil.ConvertMatrix(out)
		}
	}
	if root {
		out = mathutil.ApplyRootBasis(out)
	}
	return out
}

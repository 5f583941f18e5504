package transcode

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"egg-transcoder/internal/anim"
	"egg-transcoder/internal/asset"
	"egg-transcoder/internal/egg"
	"egg-transcoder/internal/geometry"
	"egg-transcoder/internal/mathutil"
	"egg-transcoder/internal/skeleton"
)

// walker holds the state of one pass. It is not shared between passes.
type walker struct {
	doc     *egg.Document
	opts    Options
	convert bool
	diags   *asset.Diagnostics
}

func newWalker(doc *egg.Document, opts Options) *walker {
	w := &walker{
		doc:     doc,
		opts:    opts,
		convert: opts.ConvertCoordinates && doc.IsZUp(),
		diags:   asset.NewDiagnostics(opts.logger()),
	}
	if opts.ConvertCoordinates && !doc.IsZUp() {
		w.diags.Addf(asset.CodeYUpSource, "document declares %s, coordinate conversion skipped", doc.CoordinateSystem)
	}
	return w
}

// TranscodeModel builds the scene tree of a model document. A document with an
// animation table at its root is rejected unless ForceModelOnAnimation is set.
func TranscodeModel(doc *egg.Document, opts Options) (*asset.Asset, error) {
	if doc.HasAnimationTable() && !opts.ForceModelOnAnimation {
		return nil, &FormatMismatchError{Want: "model", Got: "animation"}
	}
	w := newWalker(doc, opts)
	if doc.HasAnimationTable() {
		w.diags.Addf(asset.CodeForcedMode, "animation document transcoded as model, result is best effort")
	}

	root := asset.NewNode(opts.name(), asset.KindRoot)
	for _, n := range doc.Nodes {
		// pools and textures are reached through lookups
		g, ok := n.(*egg.EntityGroup)
		if !ok {
			continue
		}
		child, err := w.group(g, nil)
		if err != nil {
			return nil, fmt.Errorf("transcode: %w", err)
		}
		if child != nil {
			root.Add(child)
		}
	}

	a := &asset.Asset{Name: opts.name(), Root: root, Diagnostics: w.diags.Items()}
	opts.logger().Debug("transcoded model", "name", a.Name, "meshes", len(a.Meshes()), "advisories", len(a.Diagnostics))
	return a, nil
}

// TranscodeAnimation builds one clip per root bundle. A document without an animation
// table is rejected unless ForceAnimationOnModel is set, which yields an asset without clips.
func TranscodeAnimation(doc *egg.Document, opts Options) (*asset.Asset, error) {
	w := newWalker(doc, opts)
	aopts := opts.anim(w.convert)
	aopts.Diagnostics = w.diags

	clips, err := anim.ReconstructDocument(doc, aopts)
	var fm *FormatMismatchError
	switch {
	case errors.As(err, &fm) && opts.ForceAnimationOnModel:
		w.diags.Addf(asset.CodeForcedMode, "model document transcoded as animation")
	case err != nil:
		return nil, err
	}
	if len(clips) == 0 {
		w.diags.Addf(asset.CodeNoClips, "no animation bundle found")
	}

	a := &asset.Asset{Name: opts.name(), Clips: clips, Diagnostics: w.diags.Items()}
	opts.logger().Debug("transcoded animation", "name", a.Name, "clips", len(clips))
	return a, nil
}

// Transcode picks the mode from the document: animation when a root table exists, model otherwise.
func Transcode(doc *egg.Document, opts Options) (*asset.Asset, error) {
	if doc.HasAnimationTable() {
		return TranscodeAnimation(doc, opts)
	}
	return TranscodeModel(doc, opts)
}

// ModelFile parses path and transcodes it as a model.
func ModelFile(path string, opts Options) (*asset.Asset, error) {
	return transcodeFile(path, opts, TranscodeModel)
}

// AnimationFile parses path and transcodes it as an animation.
func AnimationFile(path string, opts Options) (*asset.Asset, error) {
	return transcodeFile(path, opts, TranscodeAnimation)
}

// File parses path and transcodes it in the mode Transcode picks.
func File(path string, opts Options) (*asset.Asset, error) {
	return transcodeFile(path, opts, Transcode)
}

func transcodeFile(path string, opts Options, pass func(*egg.Document, Options) (*asset.Asset, error)) (*asset.Asset, error) {
	doc, err := egg.ParseFile(path)
	if err != nil {
		return nil, err
	}
	if opts.Name == "" {
		opts.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	a, err := pass(doc, opts)
	if err != nil {
		var fm *FormatMismatchError
		if errors.As(err, &fm) {
			fm.Path = path
		}
		return nil, err
	}
	return a, nil
}

// group converts one entity group. The skin of the nearest skeleton above is passed down
// so meshes in subgroups get bone slots too.
func (w *walker) group(g *egg.EntityGroup, skin *asset.SkinBinding) (*asset.Node, error) {
	var hull *asset.Node
	if g.Collide != nil {
		h, err := w.collision(g)
		if err != nil {
			return nil, err
		}
		// without keep the collision geometry is not visible
		if !g.Collide.Has("keep") && (g.Collide.Has("descend") || len(g.Groups()) == 0) {
			return h, nil
		}
		if h != nil {
			h.Transform = mgl64.Ident4()
		}
		hull = h
	}
	visible := g.Collide == nil || g.Collide.Has("keep")

	node := asset.NewNode(g.Name, asset.KindGroup)
	node.Transform = w.transform(g.Transform)

	var skelNode *asset.Node
	if joints := g.Joints(); len(joints) > 0 {
		skel, s, err := skeleton.Build(w.doc, g.Name, joints, skeleton.Options{
			ConvertCoordinates: w.convert,
			Diagnostics:        w.diags,
		})
		if err != nil {
			return nil, err
		}
		skelNode = asset.NewNode(anim.SkeletonNode, asset.KindSkeleton)
		skelNode.Skeleton = skel
		skin = s
	}

	var own *asset.Node
	var meshes []*asset.Node
	if visible && len(g.Polygons()) > 0 {
		m, err := w.mesh(g, skin)
		if err != nil {
			return nil, err
		}
		own = m
		meshes = append(meshes, m)
	}

	var others []*asset.Node
	for _, sub := range g.Groups() {
		c, err := w.group(sub, skin)
		if err != nil {
			return nil, err
		}
		switch {
		case c == nil:
		case c.Kind == asset.KindMesh:
			meshes = append(meshes, c)
		case skelNode != nil && c.Kind == asset.KindGroup && hasMesh(c):
			// groups holding meshes skinned to this skeleton move under it with their subtree
			meshes = append(meshes, c)
		default:
			others = append(others, c)
		}
	}
	if hull != nil {
		others = append(others, hull)
	}

	// a lone mesh built from the group's own polygons stands in for its group
	if skelNode == nil && len(others) == 0 && len(meshes) == 1 && meshes[0] == own {
		own.Transform = node.Transform
		return own, nil
	}

	if skelNode != nil {
		skelNode.Add(meshes...)
		node.Add(skelNode)
	} else {
		node.Add(meshes...)
	}
	node.Add(others...)
	return node, nil
}

// hasMesh reports whether n's subtree contains a mesh outside nested skeletons.
func hasMesh(n *asset.Node) bool {
	found := false
	n.Walk(func(c *asset.Node) bool {
		switch c.Kind {
		case asset.KindMesh:
			found = true
		case asset.KindSkeleton:
			return false
		}
		return !found
	})
	return found
}

func (w *walker) mesh(g *egg.EntityGroup, skin *asset.SkinBinding) (*asset.Node, error) {
	batch, err := geometry.BuildBatch(w.doc, g, geometry.Options{
		ConvertCoordinates:    w.convert,
		MapsDirectoryOverride: w.opts.MapsDirectoryOverride,
		UnshadedMaterials:     w.opts.UnshadedMaterials,
		Loader:                w.opts.Loader,
		Skin:                  skin,
		Diagnostics:           w.diags,
	})
	if err != nil {
		return nil, err
	}
	n := asset.NewNode(g.Name, asset.KindMesh)
	n.Mesh = batch
	if w.convert {
		n.Scale = mathutil.ChiralityScale
	}
	if skin != nil {
		if n.Skin, err = skin.Clone(); err != nil {
			return nil, err
		}
	}
	return n, nil
}

func (w *walker) collision(g *egg.EntityGroup) (*asset.Node, error) {
	if !w.opts.AutoConvertCollisions {
		w.diags.Addf(asset.CodeCollisionSkipped, "collision group %q skipped", g.Name)
		return nil, nil
	}
	hull, err := geometry.BuildHull(w.doc, g, geometry.Options{ConvertCoordinates: w.convert})
	if err != nil {
		return nil, err
	}
	n := asset.NewNode(g.Name, asset.KindCollision)
	n.Transform = w.transform(g.Transform)
	n.Hull = hull
	return n, nil
}

func (w *walker) transform(m *egg.Matrix) mgl64.Mat4 {
	if m == nil {
		return mgl64.Ident4()
	}
	out := mathutil.FromEggMatrix(*m)
	if w.convert {
		out = mathutil.ConvertMatrix(out)
	}
	return out
}

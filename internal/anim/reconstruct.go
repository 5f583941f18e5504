package anim

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"egg-transcoder/internal/asset"
	"egg-transcoder/internal/egg"
	"egg-transcoder/internal/mathutil"
)

// SkeletonNode is the destination node that animated bones hang from.
const SkeletonNode = "Skeleton3D"

const (
	positionAxes = "xyz"
	rotationAxes = "hpr"
	// scale and shear channels are recognized but not turned into tracks
	ignoredAxes = "ijkabc"
)

// markers are tables that group joints without being joints themselves.
var markers = map[string]bool{
	"<skeleton>": true,
	"morph":      true,
}

// Options controls clip reconstruction.
type Options struct {
	UseBlenderLayout       bool
	ApplyLegacyNamingFixes bool
	ForceLooping           bool
	ConvertCoordinates     bool

	// TrackSuffix is appended to every node path.
	TrackSuffix string
	// ClipName overrides the bundle name as clip name.
	ClipName    string
	Diagnostics *asset.Diagnostics
}

// LegacyRootName repairs root bundle names written by a known broken exporter:
// "Fk.rig" stands for its first grandchild table and a ".001" suffix is dropped.
func LegacyRootName(bundle *egg.AnimationTable) string {
	name := bundle.Name
	if name == "Fk.rig" && len(bundle.Tables) > 0 && len(bundle.Tables[0].Tables) > 0 {
		name = bundle.Tables[0].Tables[0].Name
	}
	if strings.HasSuffix(bundle.Name, ".001") {
		name, _, _ = strings.Cut(bundle.Name, ".001")
	}
	return name
}

// NodePathPrefix returns the node path that track paths are built on.
func NodePathPrefix(bundle *egg.AnimationTable, opts Options) string {
	if !opts.UseBlenderLayout {
		return SkeletonNode
	}
	root := bundle.Name
	if opts.ApplyLegacyNamingFixes {
		root = LegacyRootName(bundle)
	}
	return root + "/" + SkeletonNode
}

// pathContext is threaded unchanged through the table recursion.
type pathContext struct {
	prefix string
	suffix string
}

func (c pathContext) path(name string) string {
	return c.prefix + ":" + name + c.suffix
}

// clipBuilder owns the clip being assembled and whether its first rotation track exists yet.
type clipBuilder struct {
	clip         *asset.AnimationClip
	opts         Options
	haveRotation bool
}

// Reconstruct builds one clip from a root bundle. A bundle without usable channels
// yields an empty clip.
func Reconstruct(bundle *egg.AnimationTable, opts Options) *asset.AnimationClip {
	name := bundle.Name
	if opts.ClipName != "" {
		name = opts.ClipName
	}
	b := &clipBuilder{clip: asset.NewAnimationClip(name), opts: opts}
	b.clip.Loop = opts.ForceLooping

	ctx := pathContext{prefix: NodePathPrefix(bundle, opts), suffix: opts.TrackSuffix}
	for _, t := range bundle.Tables {
		b.table(t, ctx)
	}
	return b.clip
}

// ReconstructDocument returns one clip per root bundle. It fails with
// *egg.FormatMismatchError when the document has no animation table.
func ReconstructDocument(doc *egg.Document, opts Options) ([]*asset.AnimationClip, error) {
	if !doc.HasAnimationTable() {
		return nil, &egg.FormatMismatchError{Want: "animation", Got: "model"}
	}
	var clips []*asset.AnimationClip
	for i, bundle := range RootBundles(doc) {
		o := opts
		if o.ClipName != "" && i > 0 {
			o.ClipName = fmt.Sprintf("%s_%d", opts.ClipName, i)
		}
		clips = append(clips, Reconstruct(bundle, o))
	}
	return clips, nil
}

// RootBundles returns the bundles directly under the document's root tables.
// A root-level <Bundle> is its own root bundle.
func RootBundles(doc *egg.Document) []*egg.AnimationTable {
	var out []*egg.AnimationTable
	for _, t := range doc.AnimationTables() {
		if t.Bundle {
			out = append(out, t)
			continue
		}
		for _, sub := range t.Tables {
			if sub.Bundle {
				out = append(out, sub)
			}
		}
	}
	return out
}

func (b *clipBuilder) table(t *egg.AnimationTable, ctx pathContext) {
	if !markers[t.Name] {
		b.channels(ctx.path(t.Name), t.Channels)
	}
	for _, sub := range t.Tables {
		b.table(sub, ctx)
	}
}

// axisGroup holds the first channel of each of three axes.
type axisGroup [3][]float64

// collect picks the first channel per axis letter. It reports whether any axis was present.
func collect(chs []*egg.ScalarChannel, axes string) (axisGroup, bool) {
	var g axisGroup
	var seen [3]bool
	present := false
	for _, ch := range chs {
		i := strings.IndexByte(axes, ch.Axis)
		if i < 0 || seen[i] {
			continue
		}
		g[i], seen[i], present = ch.Values, true, true
	}
	return g, present
}

// samples is the longest channel length in the group.
func (g axisGroup) samples() int {
	n := 0
	for _, v := range g {
		n = max(n, len(v))
	}
	return n
}

// each calls fn for every frame with carried-forward values: an axis that ran out of
// samples repeats its last value, and one that never had any stays at zero.
func (g axisGroup) each(fn func(frame int, v [3]float64)) {
	var last [3]float64
	for i, n := 0, g.samples(); i < n; i++ {
		for a := range g {
			if i < len(g[a]) {
				last[a] = g[a][i]
			}
		}
		fn(i, last)
	}
}

func (b *clipBuilder) channels(path string, chs []*egg.ScalarChannel) {
	for _, ch := range chs {
		if !strings.ContainsRune(positionAxes+rotationAxes+ignoredAxes, rune(ch.Axis)) {
			b.opts.Diagnostics.Addf(asset.CodeUnknownChannel, "%s: channel %q ignored", path, ch.Axis)
		}
	}
	if g, ok := collect(chs, positionAxes); ok && g.samples() > 0 {
		b.position(path, g)
	}
	if g, ok := collect(chs, rotationAxes); ok && g.samples() > 0 {
		b.rotation(path, g)
	}
}

func (b *clipBuilder) position(path string, g axisGroup) {
	tr := &asset.Track{Path: path, Kind: asset.Position}
	g.each(func(frame int, v [3]float64) {
		p := mgl64.Vec3(v)
		if b.opts.ConvertCoordinates {
			p = mathutil.ConvertPosition(p)
		}
		tr.Add(float64(frame)*b.clip.Step, [4]float64{p[0], p[1], p[2], 0})
	})
	b.clip.Tracks = append(b.clip.Tracks, tr)
	b.clip.ExtendTo(g.samples())
}

func (b *clipBuilder) rotation(path string, g axisGroup) {
	first := !b.haveRotation
	b.haveRotation = true

	tr := &asset.Track{Path: path, Kind: asset.Rotation}
	g.each(func(frame int, v [3]float64) {
		tr.Add(float64(frame)*b.clip.Step, mathutil.QuatArray(composeRotation(v[0], v[1], v[2], first)))
	})
	b.clip.Tracks = append(b.clip.Tracks, tr)
	b.clip.ExtendTo(g.samples())
}

// composeRotation turns heading/pitch/roll degrees into a quaternion. The first
// rotation track of a clip gets the root-frame fix: a roll offset before composing
// and FirstTrackCorrection after.
func composeRotation(h, p, r float64, first bool) mgl64.Quat {
	if first {
		r -= mathutil.FirstTrackRollOffset
	}
	q := mathutil.ComposeEuler(mathutil.Deg2Rad(h), mathutil.Deg2Rad(p), mathutil.Deg2Rad(r))
	if first {
		q = mathutil.FirstTrackCorrection(q)
	}
	return q
}

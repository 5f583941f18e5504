package transcode

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"egg-transcoder/internal/asset"
	"egg-transcoder/internal/egg"
	"egg-transcoder/internal/mathutil"
)

func parse(t *testing.T, src string) *egg.Document {
	t.Helper()
	doc, err := egg.Parse(strings.NewReader(src))
	require.NoError(t, err)
	return doc
}

const riggedModel = `
<CoordinateSystem> { Z-Up }
<Texture> skin { "maps/skin.png" }
<VertexPool> body.verts {
  <Vertex> 0 { 0 0 0 <UV> { 0 1 } }
  <Vertex> 1 { 1 0 0 <UV> { 1 1 } }
  <Vertex> 2 { 0 0 1 <UV> { 0 0 } }
  <Vertex> 3 { 0 1 1 }
}
<Group> actor {
  <Dart> { 1 }
  <Group> body {
    <Polygon> { <TRef> { skin } <VertexRef> { 0 1 2 <Ref> { body.verts } } }
    <Polygon> { <VertexRef> { 1 2 3 <Ref> { body.verts } } }
  }
  <Joint> root {
    <VertexRef> { 0 1 <Ref> { body.verts } }
    <Joint> head {
      <Transform> { <Translate> { 0 0 1 } }
      <VertexRef> { 2 3 <Scalar> membership { 0.5 } <Ref> { body.verts } }
    }
  }
  <Group> floor {
    <Collide> { Polyset descend }
    <Polygon> { <VertexRef> { 0 1 2 <Ref> { body.verts } } }
  }
}
`

func TestTranscodeRiggedModel(t *testing.T) {
	a, err := TranscodeModel(parse(t, riggedModel), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "Scene", a.Name)

	actor := a.Root.Find("actor", asset.KindGroup)
	require.NotNil(t, actor)
	skelNode := actor.Find("Skeleton3D", asset.KindSkeleton)
	require.NotNil(t, skelNode)
	require.Len(t, skelNode.Skeleton.Bones, 2)
	assert.Equal(t, mathutil.RootBasisCorrection, skelNode.Skeleton.Bones[0].Bind)

	// the mesh is reparented under the skeleton
	require.Len(t, skelNode.Children, 1)
	body := skelNode.Children[0]
	assert.Equal(t, asset.KindMesh, body.Kind)
	assert.Equal(t, mathutil.ChiralityScale, body.Scale)
	require.NotNil(t, body.Skin)
	assert.Len(t, body.Skin.Influences, 4)
	assert.Len(t, body.Skin.Binds, 2)

	batch := body.Mesh
	require.Len(t, batch.Surfaces, 2)
	assert.Equal(t, "default", batch.Surfaces[0].MaterialKey)
	assert.Equal(t, "skin", batch.Surfaces[1].MaterialKey)
	for _, s := range batch.Surfaces {
		assert.Zero(t, s.VertexCount()%3)
		assert.True(t, s.Skinned())
	}
	skinSurf := batch.Surfaces[1]
	assert.Equal(t, [3]float32{0, 1, 0}, skinSurf.Positions[2])
	assert.Equal(t, [2]float32{0, 1}, skinSurf.UVs[2])
	assert.Equal(t, int32(1), skinSurf.Bones[2][0])
	assert.Equal(t, float32(0.5), skinSurf.Weights[2][0])

	floor := actor.Find("floor", asset.KindCollision)
	require.NotNil(t, floor)
	assert.Len(t, floor.Hull.Points, 3)
}

func TestSingleTriangleScenario(t *testing.T) {
	doc := parse(t, `
<VertexPool> p { <Vertex> 0 { 0 0 0 } <Vertex> 1 { 1 0 0 } <Vertex> 2 { 0 1 0 } }
<Group> tri {
  <Transform> { <Translate> { 0 5 0 } }
  <Polygon> { <VertexRef> { 0 1 2 <Ref> { p } } }
}`)
	a, err := TranscodeModel(doc, DefaultOptions())
	require.NoError(t, err)

	meshes := a.Meshes()
	require.Len(t, meshes, 1)
	m := meshes[0]
	// a group holding only a mesh collapses to the mesh, keeping the group transform
	assert.Same(t, m, a.Root.Children[0])
	assert.Equal(t, mgl64.Vec3{0, 0, 5}, m.Transform.Col(3).Vec3())

	require.Len(t, m.Mesh.Surfaces, 1)
	assert.Equal(t, "default", m.Mesh.Surfaces[0].MaterialKey)
	assert.Equal(t, 3, m.Mesh.Surfaces[0].VertexCount())
	assert.Len(t, m.Mesh.Materials, 1)
	assert.Nil(t, m.Skin)
}

func TestModelModeRejectsAnimation(t *testing.T) {
	doc := parse(t, `<Table> { <Bundle> walk { } }`)
	_, err := TranscodeModel(doc, DefaultOptions())
	var fm *FormatMismatchError
	require.True(t, errors.As(err, &fm))
	assert.Equal(t, "model", fm.Want)

	opts := DefaultOptions()
	opts.ForceModelOnAnimation = true
	a, err := TranscodeModel(doc, opts)
	require.NoError(t, err)
	assert.Equal(t, asset.CodeForcedMode, a.Diagnostics[0].Code)
}

func TestAnimationModeOnModel(t *testing.T) {
	doc := parse(t, `<Group> g { }`)
	_, err := TranscodeAnimation(doc, DefaultOptions())
	var fm *FormatMismatchError
	require.True(t, errors.As(err, &fm))

	opts := DefaultOptions()
	opts.ForceAnimationOnModel = true
	a, err := TranscodeAnimation(doc, opts)
	require.NoError(t, err)
	assert.Empty(t, a.Clips)
	var codes []string
	for _, d := range a.Diagnostics {
		codes = append(codes, d.Code)
	}
	assert.Equal(t, []string{asset.CodeForcedMode, asset.CodeNoClips}, codes)
}

func TestTranscodeAnimation(t *testing.T) {
	doc := parse(t, `
<Table> {
  <Bundle> toon {
    <Table> "<skeleton>" {
      <Table> root {
        <Xfm$Anim_S> xform {
          <S$Anim> x { <V> { 0 1 2 } }
          <S$Anim> h { <V> { 0 90 } }
        }
      }
    }
  }
}`)
	opts := DefaultOptions()
	opts.ForceLooping = true
	a, err := Transcode(doc, opts)
	require.NoError(t, err)
	require.Len(t, a.Clips, 1)
	clip := a.Clips[0]
	assert.Equal(t, "toon", clip.Name)
	assert.True(t, clip.Loop)
	assert.InDelta(t, 3.0/24.0, clip.Length, 1e-12)
	require.Len(t, clip.Tracks, 2)
	assert.Equal(t, "toon/Skeleton3D:root", clip.Tracks[0].Path)
	assert.Equal(t, asset.Rotation, clip.Tracks[1].Kind)
}

func TestCollisionSkipped(t *testing.T) {
	doc := parse(t, `
<VertexPool> p { <Vertex> 0 { 0 0 0 } }
<Group> wall { <Collide> { Polyset } <Polygon> { <VertexRef> { 0 <Ref> { p } } } }`)
	opts := DefaultOptions()
	opts.AutoConvertCollisions = false
	a, err := TranscodeModel(doc, opts)
	require.NoError(t, err)
	assert.Empty(t, a.Root.Children)
	assert.Equal(t, asset.CodeCollisionSkipped, a.Diagnostics[0].Code)
}

func TestYUpDocumentIsNotConverted(t *testing.T) {
	doc := parse(t, `
<CoordinateSystem> { Y-Up }
<VertexPool> p { <Vertex> 0 { 1 2 3 } }
<Group> g { <Polygon> { <VertexRef> { 0 <Ref> { p } } } }`)
	a, err := TranscodeModel(doc, DefaultOptions())
	require.NoError(t, err)
	m := a.Meshes()[0]
	assert.Equal(t, [3]float32{1, 2, 3}, m.Mesh.Surfaces[0].Positions[0])
	assert.Equal(t, mgl64.Vec3{1, 1, 1}, m.Scale)
	assert.Equal(t, asset.CodeYUpSource, a.Diagnostics[0].Code)
}

func TestLookupErrorAbortsPass(t *testing.T) {
	doc := parse(t, `<Group> g { <Polygon> { <VertexRef> { 0 <Ref> { missing } } } }`)
	a, err := TranscodeModel(doc, DefaultOptions())
	assert.Nil(t, a)
	var le *LookupError
	assert.True(t, errors.As(err, &le))
}

func TestDuplicateBoneAbortsPass(t *testing.T) {
	doc := parse(t, `<Group> g { <Joint> a { } <Joint> a { } }`)
	_, err := TranscodeModel(doc, DefaultOptions())
	var se *StructuralError
	assert.True(t, errors.As(err, &se))
}

func TestModelFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "crate.egg")
	require.NoError(t, os.WriteFile(path, []byte(riggedModel), 0644))

	a, err := ModelFile(path, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "crate", a.Name)
	assert.Equal(t, "crate", a.Root.Name)

	_, err = AnimationFile(path, DefaultOptions())
	var fm *FormatMismatchError
	require.True(t, errors.As(err, &fm))
	assert.Equal(t, path, fm.Path)

	_, err = ModelFile(filepath.Join(dir, "missing.egg"), DefaultOptions())
	assert.Error(t, err)
}

func TestNestedMeshesMoveUnderSkeleton(t *testing.T) {
	doc := parse(t, `
<VertexPool> p { <Vertex> 0 { 0 0 0 } <Vertex> 1 { 1 0 0 } <Vertex> 2 { 0 1 0 } }
<Group> actor {
  <Joint> root { <VertexRef> { 0 1 2 <Ref> { p } } }
  <Group> parts {
    <Group> a { <Polygon> { <VertexRef> { 0 1 2 <Ref> { p } } } }
    <Group> b { <Polygon> { <VertexRef> { 2 1 0 <Ref> { p } } } }
  }
  <Group> floor { <Collide> { Polyset descend } <Polygon> { <VertexRef> { 0 1 2 <Ref> { p } } } }
}`)
	a, err := TranscodeModel(doc, DefaultOptions())
	require.NoError(t, err)

	actor := a.Root.Find("actor", asset.KindGroup)
	require.NotNil(t, actor)
	skelNode := actor.Find("Skeleton3D", asset.KindSkeleton)
	require.NotNil(t, skelNode)

	for _, name := range []string{"a", "b"} {
		m := skelNode.Find(name, asset.KindMesh)
		require.NotNil(t, m, name)
		assert.NotNil(t, m.Skin, name)
	}
	parts := skelNode.Find("parts", asset.KindGroup)
	require.NotNil(t, parts)
	assert.Len(t, parts.Children, 2)

	// collision stays beside the skeleton
	require.Len(t, actor.Children, 2)
	assert.Same(t, skelNode, actor.Children[0])
	assert.Equal(t, asset.KindCollision, actor.Children[1].Kind)
}

func TestCollideDescendAndKeep(t *testing.T) {
	const src = `
<VertexPool> p { <Vertex> 0 { 0 0 0 } <Vertex> 1 { 1 0 0 } <Vertex> 2 { 0 1 0 } }
<Group> walls {
  <Transform> { <Translate> { 0 0 2 } }
  <Collide> { Polyset %s }
  <Group> wallA { <Polygon> { <VertexRef> { 0 1 2 <Ref> { p } } } }
}`

	t.Run("keep descend", func(t *testing.T) {
		a, err := TranscodeModel(parse(t, strings.Replace(src, "%s", "keep descend", 1)), DefaultOptions())
		require.NoError(t, err)

		walls := a.Root.Find("walls", asset.KindGroup)
		require.NotNil(t, walls)
		assert.Equal(t, mgl64.Vec3{0, 2, 0}, walls.Transform.Col(3).Vec3())

		wallA := walls.Find("wallA", asset.KindMesh)
		require.NotNil(t, wallA)
		assert.Equal(t, 3, wallA.Mesh.VertexCount())

		hull := walls.Find("walls", asset.KindCollision)
		require.NotNil(t, hull)
		assert.Len(t, hull.Hull.Points, 3)
		// the group node already carries the transform
		assert.Equal(t, mgl64.Ident4(), hull.Transform)
	})

	t.Run("descend", func(t *testing.T) {
		a, err := TranscodeModel(parse(t, strings.Replace(src, "%s", "descend", 1)), DefaultOptions())
		require.NoError(t, err)
		assert.Empty(t, a.Meshes())

		require.Len(t, a.Root.Children, 1)
		hull := a.Root.Children[0]
		assert.Equal(t, asset.KindCollision, hull.Kind)
		assert.Len(t, hull.Hull.Points, 3)
		assert.Equal(t, mgl64.Vec3{0, 2, 0}, hull.Transform.Col(3).Vec3())
	})

	t.Run("keep without collisions", func(t *testing.T) {
		opts := DefaultOptions()
		opts.AutoConvertCollisions = false
		a, err := TranscodeModel(parse(t, strings.Replace(src, "%s", "keep descend", 1)), opts)
		require.NoError(t, err)
		assert.Len(t, a.Meshes(), 1)
		assert.Nil(t, a.Root.Find("walls", asset.KindCollision))
		assert.Equal(t, asset.CodeCollisionSkipped, a.Diagnostics[0].Code)
	})
}

func TestSameNameSubgroupKeepsItsTransform(t *testing.T) {
	doc := parse(t, `
<VertexPool> p { <Vertex> 0 { 0 0 0 } <Vertex> 1 { 1 0 0 } <Vertex> 2 { 0 1 0 } }
<Group> body {
  <Group> body {
    <Transform> { <Translate> { 0 0 5 } }
    <Polygon> { <VertexRef> { 0 1 2 <Ref> { p } } }
  }
}`)
	a, err := TranscodeModel(doc, DefaultOptions())
	require.NoError(t, err)

	meshes := a.Meshes()
	require.Len(t, meshes, 1)
	assert.Equal(t, mgl64.Vec3{0, 5, 0}, meshes[0].Transform.Col(3).Vec3())

	outer := a.Root.Children[0]
	assert.Equal(t, asset.KindGroup, outer.Kind)
	assert.Equal(t, mgl64.Ident4(), outer.Transform)
	assert.Same(t, meshes[0], outer.Children[0])
}

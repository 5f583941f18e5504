package geometry

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"egg-transcoder/internal/asset"
	"egg-transcoder/internal/egg"
)

type fakeLoader struct {
	files map[string]bool
	loads []string
}

func (f *fakeLoader) Exists(path string) bool { return f.files[path] }

func (f *fakeLoader) LoadTexture(path string) (*asset.TextureInfo, error) {
	f.loads = append(f.loads, path)
	return &asset.TextureInfo{Path: path, Width: 4, Height: 4, Format: "png"}, nil
}

func parse(t *testing.T, src string) *egg.Document {
	t.Helper()
	doc, err := egg.Parse(strings.NewReader(src))
	require.NoError(t, err)
	return doc
}

const triangle = `
<VertexPool> tri {
  <Vertex> 0 { 0 0 0 }
  <Vertex> 1 { 1 0 0 }
  <Vertex> 2 { 0 1 0 }
}
<Group> tri { <Polygon> { <VertexRef> { 0 1 2 <Ref> { tri } } } }
`

func TestSingleUntexturedTriangle(t *testing.T) {
	doc := parse(t, triangle)
	batch, err := BuildBatch(doc, doc.Groups()[0], Options{ConvertCoordinates: true})
	require.NoError(t, err)

	require.Len(t, batch.Surfaces, 1)
	require.Len(t, batch.Materials, 1)
	s := batch.Surfaces[0]
	assert.Equal(t, asset.DefaultSurface, s.MaterialKey)
	assert.Equal(t, 3, s.VertexCount())
	assert.Equal(t, PlaceholderNormal, s.Normals[0])
	assert.Equal(t, [4]float32{1, 1, 1, 1}, s.Colors[0])
	assert.Equal(t, [2]float32{0, 0}, s.UVs[0])
	// (0,1,0) in source space lands on the destination depth axis
	assert.Equal(t, [3]float32{0, 0, 1}, s.Positions[2])
	assert.False(t, s.Skinned())
}

func TestSurfaceOrderAndMaterials(t *testing.T) {
	doc := parse(t, `
<Texture> wood { "maps/wood.png" }
<Texture> rock { "maps/rock.png" }
<VertexPool> p {
  <Vertex> 0 { 0 0 0 <UV> { 0.25 0.75 } <Normal> { 0 0 1 } <RGBA> { 1 0 0 1 } }
  <Vertex> 1 { 1 0 0 }
  <Vertex> 2 { 0 1 0 }
}
<Group> g {
  <Polygon> { <TRef> { rock } <VertexRef> { 0 1 2 <Ref> { p } } }
  <Polygon> { <VertexRef> { 0 1 2 <Ref> { p } } }
  <Polygon> { <TRef> { wood } <VertexRef> { 0 1 2 <Ref> { p } } }
  <Polygon> { <TRef> { rock } <VertexRef> { 2 1 0 <Ref> { p } } }
}
`)
	loader := &fakeLoader{files: map[string]bool{"maps/rock.png": true}}
	diags := asset.NewDiagnostics(nil)
	batch, err := BuildBatch(doc, doc.Groups()[0], Options{
		ConvertCoordinates: true,
		UnshadedMaterials:  true,
		Loader:             loader,
		Diagnostics:        diags,
	})
	require.NoError(t, err)

	var keys []string
	for i, s := range batch.Surfaces {
		keys = append(keys, s.MaterialKey)
		assert.Equal(t, i, s.MaterialIndex)
		assert.Equal(t, s.MaterialKey, batch.Materials[i].Name)
		assert.True(t, batch.Materials[i].Unshaded)
	}
	assert.Equal(t, []string{"default", "rock", "wood"}, keys)
	assert.Equal(t, 6, batch.Surfaces[1].VertexCount())

	// texture loaded once, on first encounter
	assert.Equal(t, []string{"maps/rock.png"}, loader.loads)
	require.NotNil(t, batch.Materials[1].Texture)
	assert.Nil(t, batch.Materials[2].Texture)
	assert.Equal(t, "maps/wood.png", batch.Materials[2].TexturePath)
	assert.True(t, diags.Has(asset.CodeMissingTexture))

	rock := batch.Surfaces[1]
	assert.InDelta(t, 0.25, rock.UVs[0][0], 1e-6)
	assert.InDelta(t, 0.25, rock.UVs[0][1], 1e-6)
	assert.Equal(t, [3]float32{0, 1, 0}, rock.Normals[0])
	assert.Equal(t, [4]float32{1, 0, 0, 1}, rock.Colors[0])
}

func TestMapsDirectoryOverride(t *testing.T) {
	doc := parse(t, `
<Texture> wood { "old/maps/wood.png" }
<VertexPool> p { <Vertex> 0 { 0 0 0 } }
<Group> g { <Polygon> { <TRef> { wood } <VertexRef> { 0 <Ref> { p } } } }
`)
	batch, err := BuildBatch(doc, doc.Groups()[0], Options{MapsDirectoryOverride: "/srv/tex"})
	require.NoError(t, err)
	assert.Equal(t, "/srv/tex/wood.png", batch.Materials[1].TexturePath)
	assert.Equal(t, 3, batch.Surfaces[1].VertexCount())
}

func TestPaddingAdvisory(t *testing.T) {
	doc := parse(t, `
<VertexPool> p { <Vertex> 0 { 1 2 3 } <Vertex> 1 { 4 5 6 } }
<Group> g { <Polygon> { <VertexRef> { 0 1 <Ref> { p } } } }
`)
	diags := asset.NewDiagnostics(nil)
	batch, err := BuildBatch(doc, doc.Groups()[0], Options{Diagnostics: diags})
	require.NoError(t, err)
	s := batch.Surfaces[0]
	assert.Equal(t, 3, s.VertexCount())
	assert.Equal(t, [3]float32{}, s.Positions[2])
	// no conversion requested
	assert.Equal(t, [3]float32{1, 2, 3}, s.Positions[0])
	assert.True(t, diags.Has(asset.CodeSurfacePadded))
	assert.True(t, diags.Has(asset.CodeMissingAttribute))
}

func TestLookupErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind string
	}{
		{"missing pool", `<Group> g { <Polygon> { <VertexRef> { 0 <Ref> { nope } } } }`, "vertex pool"},
		{"missing vertex", `<VertexPool> p { <Vertex> 0 { 0 0 0 } } <Group> g { <Polygon> { <VertexRef> { 7 <Ref> { p } } } }`, "vertex"},
		{"undeclared texture", `<VertexPool> p { <Vertex> 0 { 0 0 0 } } <Group> g { <Polygon> { <TRef> { ghost } <VertexRef> { 0 <Ref> { p } } } }`, "texture"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parse(t, tt.src)
			_, err := BuildBatch(doc, doc.Groups()[0], Options{})
			var le *egg.LookupError
			require.True(t, errors.As(err, &le), "got %v", err)
			assert.Equal(t, tt.kind, le.Kind)
		})
	}
}

func TestSkinnedVertices(t *testing.T) {
	doc := parse(t, triangle)
	skin := asset.NewSkinBinding()
	skin.Add(asset.VertexKey{Pool: "tri", Index: 1}, asset.Influence{Bone: 3, Weight: 0.75})

	batch, err := BuildBatch(doc, doc.Groups()[0], Options{Skin: skin})
	require.NoError(t, err)
	s := batch.Surfaces[0]
	require.True(t, s.Skinned())
	assert.Equal(t, float32(0), s.Weights[0][0])
	assert.Equal(t, int32(3), s.Bones[1][0])
	assert.Equal(t, float32(0.75), s.Weights[1][0])
}

func TestBuildHull(t *testing.T) {
	doc := parse(t, `
<VertexPool> p { <Vertex> 0 { 1 2 3 <UV> { 0 0 } } <Vertex> 1 { 4 5 6 } }
<Group> wall { <Collide> { Polyset descend } <Polygon> { <VertexRef> { 0 1 <Ref> { p } } } }
`)
	hull, err := BuildHull(doc, doc.Groups()[0], Options{ConvertCoordinates: true})
	require.NoError(t, err)
	assert.Equal(t, "wall", hull.Name)
	assert.Equal(t, [][3]float32{{1, 3, 2}, {4, 6, 5}}, hull.Points)
}

func TestBuildHullDescend(t *testing.T) {
	const src = `
<VertexPool> p { <Vertex> 0 { 1 2 3 } <Vertex> 1 { 4 5 6 } <Vertex> 2 { 7 8 9 } }
<Group> walls {
  <Collide> { Polyset %s }
  <Polygon> { <VertexRef> { 0 <Ref> { p } } }
  <Group> wallA { <Polygon> { <VertexRef> { 1 <Ref> { p } } } <Group> trim { <Polygon> { <VertexRef> { 2 <Ref> { p } } } } }
}
`
	tests := []struct {
		flags string
		want  [][3]float32
	}{
		{"keep descend", [][3]float32{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}},
		{"descend", [][3]float32{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}},
		{"keep", [][3]float32{{1, 2, 3}}},
	}
	for _, tt := range tests {
		t.Run(tt.flags, func(t *testing.T) {
			doc := parse(t, strings.Replace(src, "%s", tt.flags, 1))
			hull, err := BuildHull(doc, doc.Groups()[0], Options{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, hull.Points)
		})
	}
}

func TestBuildHullDescendLookupError(t *testing.T) {
	doc := parse(t, `
<VertexPool> p { <Vertex> 0 { 0 0 0 } }
<Group> walls { <Collide> { Polyset descend } <Group> wallA { <Polygon> { <VertexRef> { 7 <Ref> { p } } } } }
`)
	_, err := BuildHull(doc, doc.Groups()[0], Options{})
	var le *egg.LookupError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, 7, le.Index)
	assert.Contains(t, err.Error(), `"walls"`)
}

package anim

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"egg-transcoder/internal/asset"
	"egg-transcoder/internal/egg"
	"egg-transcoder/internal/mathutil"
)

func ch(axis byte, values ...float64) *egg.ScalarChannel {
	return &egg.ScalarChannel{Axis: axis, Values: values}
}

func table(name string, chs []*egg.ScalarChannel, subs ...*egg.AnimationTable) *egg.AnimationTable {
	return &egg.AnimationTable{Name: name, Channels: chs, Tables: subs}
}

func bundle(name string, subs ...*egg.AnimationTable) *egg.AnimationTable {
	return &egg.AnimationTable{Name: name, Bundle: true, Tables: subs}
}

func TestCarryForward(t *testing.T) {
	b := bundle("actor", table("hips", []*egg.ScalarChannel{
		ch('x', 1, 2, 3, 4, 5),
		ch('y', 7, 8),
	}))
	clip := Reconstruct(b, Options{})
	require.Len(t, clip.Tracks, 1)
	tr := clip.Tracks[0]
	assert.Equal(t, asset.Position, tr.Kind)
	require.Len(t, tr.Keys, 5)
	for i, k := range tr.Keys {
		assert.Equal(t, float64(i+1), k.Value[0])
		assert.InDelta(t, float64(i)/24.0, k.Time, 1e-12)
		assert.Equal(t, 0.0, k.Value[2], "z stays at zero")
	}
	assert.Equal(t, 7.0, tr.Keys[0].Value[1])
	for _, k := range tr.Keys[1:] {
		assert.Equal(t, 8.0, k.Value[1])
	}
	assert.InDelta(t, 5.0/24.0, clip.Length, 1e-12)
	assert.InDelta(t, asset.SampleStep, clip.Step, 1e-12)
}

func TestPositionConverted(t *testing.T) {
	b := bundle("actor", table("hips", []*egg.ScalarChannel{ch('x', 1), ch('y', 2), ch('z', 3)}))
	clip := Reconstruct(b, Options{ConvertCoordinates: true})
	assert.Equal(t, [4]float64{1, 3, 2, 0}, clip.Tracks[0].Keys[0].Value)
}

func TestDeduplicatesConsecutiveKeys(t *testing.T) {
	b := bundle("actor", table("hips", []*egg.ScalarChannel{
		ch('x', 1, 1, 1, 2, 2, 1),
		ch('h', 10, 10, 10, 20),
	}))
	clip := Reconstruct(b, Options{})
	pos := clip.Track("Skeleton3D:hips", asset.Position)
	rot := clip.Track("Skeleton3D:hips", asset.Rotation)
	require.NotNil(t, pos)
	require.NotNil(t, rot)

	assert.Len(t, pos.Keys, 3)
	assert.InDelta(t, 3.0/24.0, pos.Keys[1].Time, 1e-12)
	assert.Len(t, rot.Keys, 2)
	for _, tr := range clip.Tracks {
		for i := 1; i < len(tr.Keys); i++ {
			assert.NotEqual(t, tr.Keys[i-1].Value, tr.Keys[i].Value)
		}
	}
	assert.InDelta(t, 6.0/24.0, clip.Length, 1e-12)
}

func TestFirstRotationTrackOnly(t *testing.T) {
	b := bundle("actor",
		table("root", []*egg.ScalarChannel{ch('x', 1)}),
		table("hips", []*egg.ScalarChannel{ch('h', 30), ch('p', 10), ch('r', 5)}),
		table("spine", []*egg.ScalarChannel{ch('h', 30), ch('p', 10), ch('r', 5)}),
	)
	clip := Reconstruct(b, Options{})
	require.Len(t, clip.Tracks, 3)

	hips := clip.Track("Skeleton3D:hips", asset.Rotation)
	spine := clip.Track("Skeleton3D:spine", asset.Rotation)

	plain := mathutil.ComposeEuler(mathutil.Deg2Rad(30), mathutil.Deg2Rad(10), mathutil.Deg2Rad(5))
	fixed := mathutil.FirstTrackCorrection(
		mathutil.ComposeEuler(mathutil.Deg2Rad(30), mathutil.Deg2Rad(10), mathutil.Deg2Rad(5-mathutil.FirstTrackRollOffset)))

	assert.Equal(t, mathutil.QuatArray(fixed), hips.Keys[0].Value)
	assert.Equal(t, mathutil.QuatArray(plain), spine.Keys[0].Value)
}

func TestMarkersSkippedButDescended(t *testing.T) {
	b := bundle("actor",
		table("<skeleton>", []*egg.ScalarChannel{ch('x', 9)},
			table("root", []*egg.ScalarChannel{ch('z', 1, 2)}),
		),
		table("morph", []*egg.ScalarChannel{ch('x', 4)}),
	)
	clip := Reconstruct(b, Options{})
	require.Len(t, clip.Tracks, 1)
	assert.Equal(t, "Skeleton3D:root", clip.Tracks[0].Path)
}

func TestEmptyBundle(t *testing.T) {
	clip := Reconstruct(bundle("actor", table("hips", nil), table("legs", []*egg.ScalarChannel{ch('x')})), Options{})
	assert.Empty(t, clip.Tracks)
	assert.Zero(t, clip.Length)
}

func TestUnknownChannelAdvisory(t *testing.T) {
	diags := asset.NewDiagnostics(nil)
	clip := Reconstruct(bundle("actor", table("hips", []*egg.ScalarChannel{ch('q', 1), ch('i', 1)})), Options{Diagnostics: diags})
	assert.Empty(t, clip.Tracks)
	require.Len(t, diags.Items(), 1)
	assert.Equal(t, asset.CodeUnknownChannel, diags.Items()[0].Code)
}

func TestNodePathPrefix(t *testing.T) {
	tests := []struct {
		name   string
		bundle *egg.AnimationTable
		opts   Options
		want   string
	}{
		{"plain", bundle("actor"), Options{}, "Skeleton3D"},
		{"blender", bundle("actor"), Options{UseBlenderLayout: true}, "actor/Skeleton3D"},
		{"blender legacy suffix", bundle("actor.001"), Options{UseBlenderLayout: true, ApplyLegacyNamingFixes: true}, "actor/Skeleton3D"},
		{"legacy off", bundle("actor.001"), Options{UseBlenderLayout: true}, "actor.001/Skeleton3D"},
		{
			"legacy rig",
			bundle("Fk.rig", table("<skeleton>", nil, table("toon", nil))),
			Options{UseBlenderLayout: true, ApplyLegacyNamingFixes: true},
			"toon/Skeleton3D",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NodePathPrefix(tt.bundle, tt.opts))
		})
	}
}

func TestTrackSuffixAndClipOptions(t *testing.T) {
	b := bundle("actor", table("hips", []*egg.ScalarChannel{ch('x', 1)}))
	clip := Reconstruct(b, Options{TrackSuffix: "_2", ClipName: "run", ForceLooping: true})
	assert.Equal(t, "run", clip.Name)
	assert.True(t, clip.Loop)
	assert.Equal(t, "Skeleton3D:hips_2", clip.Tracks[0].Path)
}

func TestReconstructDocument(t *testing.T) {
	doc, err := egg.Parse(strings.NewReader(`
<Table> {
  <Bundle> walk { <Table> hips { <Xfm$Anim_S> xform { <S$Anim> x { <V> { 1 2 } } } } }
  <Bundle> run { }
}`))
	require.NoError(t, err)
	clips, err := ReconstructDocument(doc, Options{ClipName: "take"})
	require.NoError(t, err)
	require.Len(t, clips, 2)
	assert.Equal(t, "take", clips[0].Name)
	assert.Equal(t, "take_1", clips[1].Name)
	assert.Len(t, clips[0].Tracks, 1)

	model, err := egg.Parse(strings.NewReader(`<Group> g { }`))
	require.NoError(t, err)
	_, err = ReconstructDocument(model, Options{})
	var fm *egg.FormatMismatchError
	assert.True(t, errors.As(err, &fm))
}

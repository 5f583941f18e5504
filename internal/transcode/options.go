package transcode

import (
	"log/slog"

	"egg-transcoder/internal/anim"
	"egg-transcoder/internal/geometry"
)

// TextureLoader resolves surface textures. texture.Loader is the filesystem implementation.
type TextureLoader = geometry.TextureLoader

// Options is the full option set of a pass.
type Options struct {
	// Name of the asset and its root node. Defaults to "Scene".
	Name string

	UseBlenderLayout       bool
	ApplyLegacyNamingFixes bool
	ForceLooping           bool
	ConvertCoordinates     bool
	MapsDirectoryOverride  string
	AutoConvertCollisions  bool
	UnshadedMaterials      bool
	ForceAnimationOnModel  bool
	ForceModelOnAnimation  bool

	TrackSuffix string
	ClipName    string

	Loader TextureLoader
	Logger *slog.Logger
}

// DefaultOptions returns the defaults of a fresh import.
func DefaultOptions() Options {
	return Options{
		UseBlenderLayout:       true,
		ApplyLegacyNamingFixes: true,
		ConvertCoordinates:     true,
		AutoConvertCollisions:  true,
	}
}

func (o Options) name() string {
	if o.Name == "" {
		return "Scene"
	}
	return o.Name
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

func (o Options) anim(convert bool) anim.Options {
	return anim.Options{
		UseBlenderLayout:       o.UseBlenderLayout,
		ApplyLegacyNamingFixes: o.ApplyLegacyNamingFixes,
		ForceLooping:           o.ForceLooping,
		ConvertCoordinates:     convert,
		TrackSuffix:            o.TrackSuffix,
		ClipName:               o.ClipName,
	}
}

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/jinzhu/copier"
	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"egg-transcoder/internal/transcode"
)

// Mode selects how documents are transcoded.
const (
	ModeAuto      = "auto"
	ModeModel     = "model"
	ModeAnimation = "anim"
)

// Config holds import options and batch/output settings.
type Config struct {
	// Import options
	UseBlenderLayout       bool   `json:"use_blender_layout" toml:"use_blender_layout" yaml:"use_blender_layout"`
	ApplyLegacyNamingFixes bool   `json:"apply_legacy_naming_fixes" toml:"apply_legacy_naming_fixes" yaml:"apply_legacy_naming_fixes"`
	ForceLooping           bool   `json:"force_looping" toml:"force_looping" yaml:"force_looping"`
	ConvertCoordinates     bool   `json:"convert_coordinates" toml:"convert_coordinates" yaml:"convert_coordinates"`
	MapsDirectoryOverride  string `json:"maps_directory_override" toml:"maps_directory_override" yaml:"maps_directory_override"`
	AutoConvertCollisions  bool   `json:"auto_convert_collisions" toml:"auto_convert_collisions" yaml:"auto_convert_collisions"`
	UnshadedMaterials      bool   `json:"unshaded_materials" toml:"unshaded_materials" yaml:"unshaded_materials"`
	ForceAnimationOnModel  bool   `json:"force_animation_on_model" toml:"force_animation_on_model" yaml:"force_animation_on_model"`
	ForceModelOnAnimation  bool   `json:"force_model_on_animation" toml:"force_model_on_animation" yaml:"force_model_on_animation"`
	TrackSuffix            string `json:"track_suffix" toml:"track_suffix" yaml:"track_suffix"`
	ClipName               string `json:"clip_name" toml:"clip_name" yaml:"clip_name"`

	// Batch and output settings
	Mode           string   `json:"mode" toml:"mode" yaml:"mode"`
	OutputDir      string   `json:"output_dir" toml:"output_dir" yaml:"output_dir"`
	Include        []string `json:"include" toml:"include" yaml:"include"`
	TextureDirs    []string `json:"texture_dirs" toml:"texture_dirs" yaml:"texture_dirs"`
	ExportTextures bool     `json:"export_textures" toml:"export_textures" yaml:"export_textures"`
	TextureSize    int      `json:"texture_size" toml:"texture_size" yaml:"texture_size"`
	Workers        int      `json:"workers" toml:"workers" yaml:"workers"`
}

// Default returns the configuration of a fresh import.
func Default() Config {
	o := transcode.DefaultOptions()
	return Config{
		UseBlenderLayout:       o.UseBlenderLayout,
		ApplyLegacyNamingFixes: o.ApplyLegacyNamingFixes,
		ConvertCoordinates:     o.ConvertCoordinates,
		AutoConvertCollisions:  o.AutoConvertCollisions,
		Mode:                   ModeAuto,
	}
}

// Load reads a JSON, TOML or YAML config file, chosen by extension.
// Fields not set in the file keep their Default values.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, &cfg)
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		return Config{}, fmt.Errorf("config: %s: unknown format %q", path, ext)
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Flags holds CLI flag values that override config file settings.
// Empty strings, zero numbers and nil slices are ignored; booleans apply only
// when listed in Set, so a flag can turn a default off.
type Flags struct {
	MapsDirectoryOverride string
	TrackSuffix           string
	ClipName              string
	Mode                  string
	OutputDir             string
	Include               []string
	TextureDirs           []string
	TextureSize           int
	Workers               int

	Set map[string]bool `copier:"-"`
}

// Resolve applies flags over c and fills in remaining defaults.
func (c *Config) Resolve(flags Flags) error {
	// CLI flags override config file
	if err := copier.CopyWithOption(c, &flags, copier.Option{IgnoreEmpty: true}); err != nil {
		return fmt.Errorf("config: apply flags: %w", err)
	}
	for name, v := range flags.Set {
		if err := c.setBool(name, v); err != nil {
			return err
		}
	}

	switch c.Mode {
	case "":
		c.Mode = ModeAuto
	case ModeAuto, ModeModel, ModeAnimation:
	default:
		return fmt.Errorf("config: unknown mode %q", c.Mode)
	}
	if len(c.Include) == 0 {
		c.Include = []string{"**.egg"}
	}
	if c.OutputDir != "" {
		if dir, err := homedir.Expand(c.OutputDir); err == nil {
			c.OutputDir = dir
		}
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	return nil
}

// BoolFlags lists the boolean settings that Flags.Set may carry, by flag name.
var BoolFlags = []string{
	"blender-layout", "legacy-fixes", "loop", "convert",
	"collisions", "unshaded", "force-anim", "force-model", "export-textures",
}

func (c *Config) setBool(name string, v bool) error {
	switch name {
	case "blender-layout":
		c.UseBlenderLayout = v
	case "legacy-fixes":
		c.ApplyLegacyNamingFixes = v
	case "loop":
		c.ForceLooping = v
	case "convert":
		c.ConvertCoordinates = v
	case "collisions":
		c.AutoConvertCollisions = v
	case "unshaded":
		c.UnshadedMaterials = v
	case "force-anim":
		c.ForceAnimationOnModel = v
	case "force-model":
		c.ForceModelOnAnimation = v
	case "export-textures":
		c.ExportTextures = v
	default:
		return fmt.Errorf("config: unknown flag %q", name)
	}
	return nil
}

// Options returns the transcoding options of c.
func (c *Config) Options() transcode.Options {
	return transcode.Options{
		UseBlenderLayout:       c.UseBlenderLayout,
		ApplyLegacyNamingFixes: c.ApplyLegacyNamingFixes,
		ForceLooping:           c.ForceLooping,
		ConvertCoordinates:     c.ConvertCoordinates,
		MapsDirectoryOverride:  c.MapsDirectoryOverride,
		AutoConvertCollisions:  c.AutoConvertCollisions,
		UnshadedMaterials:      c.UnshadedMaterials,
		ForceAnimationOnModel:  c.ForceAnimationOnModel,
		ForceModelOnAnimation:  c.ForceModelOnAnimation,
		TrackSuffix:            c.TrackSuffix,
		ClipName:               c.ClipName,
	}
}

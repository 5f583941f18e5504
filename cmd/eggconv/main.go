package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"cogentcore.org/core/base/errors"
	"github.com/spf13/cobra"

	"egg-transcoder/internal/asset"
	"egg-transcoder/internal/batch"
	"egg-transcoder/internal/config"
	"egg-transcoder/internal/texture"
	"egg-transcoder/internal/transcode"
)

// boolUsage describes the toggles in config.BoolFlags.
var boolUsage = map[string]string{
	"blender-layout":  "Prefix track paths with the root bone name",
	"legacy-fixes":    "Rename Fk.rig roots and strip .001 suffixes",
	"loop":            "Mark clips as looping",
	"convert":         "Convert Z-up sources to Y-up",
	"collisions":      "Build convex hulls for collision groups",
	"unshaded":        "Emit unshaded materials",
	"force-anim":      "Treat model files as animations",
	"force-model":     "Treat animation files as models",
	"export-textures": "Write material textures as WebP",
}

type cli struct {
	configFile string
	verbose    bool
	flags      config.Flags
	bools      map[string]*bool

	cfg    config.Config
	logger *slog.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{bools: make(map[string]*bool)}

	root := &cobra.Command{
		Use:           "eggconv",
		Short:         "Transcode Panda3D egg scenes to Y-up scene assets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&c.configFile, "config", "c", "", "Path to config file (json, toml or yaml)")
	pf.BoolVarP(&c.verbose, "verbose", "v", false, "Log debug output")
	pf.StringVarP(&c.flags.OutputDir, "output", "o", "", "Output directory")
	pf.StringVar(&c.flags.MapsDirectoryOverride, "maps-dir", "", "Replace the directory of every texture path")
	pf.StringVar(&c.flags.TrackSuffix, "track-suffix", "", "Suffix appended to every track path")
	pf.StringVar(&c.flags.ClipName, "clip", "", "Clip name (default: file name)")
	pf.StringSliceVar(&c.flags.TextureDirs, "textures", nil, "Extra directories searched for textures by stem")
	pf.IntVar(&c.flags.TextureSize, "texture-size", 0, "Downscale exported textures to this size")
	for _, name := range config.BoolFlags {
		c.bools[name] = pf.Bool(name, false, boolUsage[name])
	}

	root.AddCommand(c.fileCmd("model", config.ModeModel), c.fileCmd("anim", config.ModeAnimation),
		c.fileCmd("convert", config.ModeAuto), c.batchCmd(), c.watchCmd())
	return root
}

// setup loads the config file and applies the flags that were set on the command line.
func (c *cli) setup(cmd *cobra.Command) error {
	level := slog.LevelInfo
	if c.verbose {
		level = slog.LevelDebug
	}
	c.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(c.logger)

	c.cfg = config.Default()
	if c.configFile != "" {
		cfg, err := config.Load(c.configFile)
		if err != nil {
			return err
		}
		c.cfg = cfg
	}

	c.flags.Set = make(map[string]bool)
	for name, v := range c.bools {
		if cmd.Flags().Changed(name) {
			c.flags.Set[name] = *v
		}
	}
	return c.cfg.Resolve(c.flags)
}

func (c *cli) options() transcode.Options {
	opts := c.cfg.Options()
	opts.Logger = c.logger
	return opts
}

func (c *cli) textures() (*texture.Cache, *texture.Index) {
	var idx *texture.Index
	if len(c.cfg.TextureDirs) > 0 {
		idx = texture.BuildIndex(c.cfg.TextureDirs...)
		c.logger.Debug("texture index", "entries", idx.Len())
	}
	return texture.NewCache(), idx
}

// fileCmd transcodes one file in the given mode.
func (c *cli) fileCmd(use, mode string) *cobra.Command {
	short := map[string]string{
		config.ModeModel:     "Transcode a model file",
		config.ModeAnimation: "Transcode an animation file",
		config.ModeAuto:      "Transcode a file, picking the mode from its content",
	}[mode]
	return &cobra.Command{
		Use:   use + " <file.egg>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runFile(args[0], mode)
		},
	}
}

func (c *cli) runFile(path, mode string) error {
	cache, idx := c.textures()
	opts := c.options()
	opts.Loader = texture.NewLoader(filepath.Dir(path), cache, idx)

	pass := transcode.File
	switch mode {
	case config.ModeModel:
		pass = transcode.ModelFile
	case config.ModeAnimation:
		pass = transcode.AnimationFile
	}
	a, err := pass(path, opts)
	if err != nil {
		return err
	}

	outDir := c.cfg.OutputDir
	if outDir == "" {
		outDir = filepath.Dir(path)
	}
	outPath := filepath.Join(outDir, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))+".json")
	if err := asset.WriteJSONFile(outPath, a); err != nil {
		return err
	}

	fmt.Printf("%s → %s\n", path, outPath)
	fmt.Printf("Meshes: %d, Clips: %d, Advisories: %d\n", len(a.Meshes()), len(a.Clips), len(a.Diagnostics))
	for _, d := range a.Diagnostics {
		fmt.Printf("  %s\n", d)
	}

	if c.cfg.ExportTextures {
		for _, n := range a.Meshes() {
			for _, m := range n.Mesh.Materials {
				if m.Texture == nil || m.Texture.Image == nil {
					continue
				}
				webpPath := filepath.Join(outDir, "textures", texture.ExportName(m.Texture.Path))
				if err := texture.ExportWebP(webpPath, m.Texture.Image, c.cfg.TextureSize); err != nil {
					errors.Log(err)
					continue
				}
				fmt.Printf("Texture: %s\n", webpPath)
			}
		}
	}
	return nil
}

func (c *cli) batchConfig(inputDir string) batch.Config {
	cache, idx := c.textures()
	outDir := c.cfg.OutputDir
	if outDir == "" {
		outDir = filepath.Join(inputDir, "out")
	}
	return batch.Config{
		InputDir:       inputDir,
		OutputDir:      outDir,
		Mode:           c.cfg.Mode,
		Options:        c.options(),
		Cache:          cache,
		Index:          idx,
		ExportTextures: c.cfg.ExportTextures,
		TextureSize:    c.cfg.TextureSize,
		Workers:        c.cfg.Workers,
		Logger:         c.logger,
	}
}

func (c *cli) batchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <dir>",
		Short: "Transcode every matching file under a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBatch(cmd, args[0])
		},
	}
	cmd.Flags().StringVar(&c.flags.Mode, "mode", "", "auto, model or anim")
	cmd.Flags().IntVar(&c.flags.Workers, "workers", 0, "Number of worker goroutines (default: NumCPU)")
	cmd.Flags().StringSliceVar(&c.flags.Include, "include", nil, "Glob patterns relative to the input directory")
	return cmd
}

func (c *cli) runBatch(cmd *cobra.Command, inputDir string) error {
	files, err := batch.Discover(inputDir, c.cfg.Include)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Println("No files to transcode.")
		return nil
	}

	bc := c.batchConfig(inputDir)
	fmt.Printf("Egg → scene assets (%s)\n", bc.Mode)
	fmt.Printf("Files: %d, Workers: %d\n", len(files), bc.Workers)
	fmt.Printf("Output: %s\n", bc.OutputDir)
	fmt.Println("------------------------------------------------------------")

	start := time.Now()
	results, err := batch.Run(cmd.Context(), bc, files)
	elapsed := time.Since(start)
	fmt.Println("------------------------------------------------------------")
	fmt.Printf("Done in %.1fs\n", elapsed.Seconds())

	ok, failed := batch.Summary(results)
	fmt.Printf("Transcoded: %d/%d\n", ok, len(results))
	if failed > 0 {
		fmt.Printf("\nFailed (%d):\n", failed)
		shown := 0
		for _, r := range results {
			if r.Success {
				continue
			}
			if shown == 20 {
				break
			}
			fmt.Printf("  %s: %s\n", r.Input, r.Error)
			shown++
		}
	}

	if err := os.MkdirAll(bc.OutputDir, 0755); err != nil {
		return err
	}
	manifestPath := filepath.Join(bc.OutputDir, "manifest.json")
	if werr := batch.WriteManifest(manifestPath, bc, results); werr != nil {
		errors.Log(fmt.Errorf("manifest write failed: %w", werr))
	} else {
		fmt.Printf("Manifest: %s\n", manifestPath)
	}

	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(results))
	}
	return nil
}

package batch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gobwas/glob"
	"golang.org/x/sync/errgroup"

	"egg-transcoder/internal/asset"
	"egg-transcoder/internal/config"
	"egg-transcoder/internal/egg"
	"egg-transcoder/internal/texture"
	"egg-transcoder/internal/transcode"
)

// Config holds all shared resources for a batch run.
type Config struct {
	InputDir       string
	OutputDir      string
	Mode           string // config.ModeAuto, ModeModel or ModeAnimation
	Options        transcode.Options
	Cache          *texture.Cache // shared decode cache; nil disables texture loading
	Index          *texture.Index // optional stem fallback for texture lookups
	ExportTextures bool
	TextureSize    int
	Workers        int
	Logger         *slog.Logger
}

// Result holds the outcome of processing one file.
type Result struct {
	Input      string   `json:"input"`
	Output     string   `json:"output,omitempty"`
	Mode       string   `json:"mode,omitempty"`
	Meshes     int      `json:"meshes"`
	Clips      int      `json:"clips"`
	Advisories int      `json:"advisories"`
	Textures   []string `json:"textures,omitempty"`
	Success    bool     `json:"success"`
	Error      string   `json:"error,omitempty"`
}

// Discover returns the files under root whose slash-separated relative path matches
// any of the glob patterns, sorted.
func Discover(root string, patterns []string) ([]string, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("batch: pattern %q: %w", p, err)
		}
		globs = append(globs, g)
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		for _, g := range globs {
			if g.Match(rel) {
				files = append(files, rel)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("batch: scan %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

// Run transcodes all files using a worker pool. Each file is an independent pass;
// a failing file is reported in its Result and does not stop the others.
// Cancelling ctx stops scheduling new files.
func Run(ctx context.Context, cfg Config, files []string) ([]Result, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	total := len(files)
	results := make([]Result, total)
	var processed atomic.Int64
	exported := &sync.Map{}

	start := time.Now()

	// Progress reporter
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				p := processed.Load()
				if p > 0 {
					elapsed := time.Since(start).Seconds()
					logger.Info("progress", "done", p, "total", total, "files_per_sec", float64(p)/elapsed)
				}
			}
		}
	}()

	// Worker pool
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, cfg.Workers))
	for i, rel := range files {
		if gctx.Err() != nil {
			results[i] = Result{Input: rel, Error: gctx.Err().Error()}
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = Result{Input: rel, Error: err.Error()}
				return nil
			}
			results[i] = processFile(cfg, rel, exported)
			processed.Add(1)
			return nil
		})
	}

	err := g.Wait()
	close(done)
	if err == nil {
		err = ctx.Err()
	}
	return results, err
}

// ProcessFile transcodes a single file relative to cfg.InputDir.
func ProcessFile(cfg Config, rel string) Result {
	return processFile(cfg, rel, &sync.Map{})
}

func processFile(cfg Config, rel string, exported *sync.Map) Result {
	res := Result{Input: rel}
	path := filepath.Join(cfg.InputDir, filepath.FromSlash(rel))

	doc, err := egg.ParseFile(path)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	opts := cfg.Options
	opts.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	opts.Logger = cfg.Logger
	if cfg.Cache != nil {
		opts.Loader = texture.NewLoader(filepath.Dir(path), cfg.Cache, cfg.Index)
	}

	var a *asset.Asset
	switch cfg.Mode {
	case config.ModeModel:
		res.Mode = config.ModeModel
		a, err = transcode.TranscodeModel(doc, opts)
	case config.ModeAnimation:
		res.Mode = config.ModeAnimation
		a, err = transcode.TranscodeAnimation(doc, opts)
	default:
		res.Mode = config.ModeModel
		if doc.HasAnimationTable() {
			res.Mode = config.ModeAnimation
		}
		a, err = transcode.Transcode(doc, opts)
	}
	if err != nil {
		res.Error = err.Error()
		return res
	}

	outPath := filepath.Join(cfg.OutputDir, filepath.FromSlash(strings.TrimSuffix(rel, filepath.Ext(rel))+".json"))
	if err := asset.WriteJSONFile(outPath, a); err != nil {
		res.Error = err.Error()
		return res
	}
	res.Output = outPath
	res.Meshes = len(a.Meshes())
	res.Clips = len(a.Clips)
	res.Advisories = len(a.Diagnostics)

	if cfg.ExportTextures {
		textures, err := exportTextures(cfg, a, exported)
		res.Textures = textures
		if err != nil {
			res.Error = err.Error()
			return res
		}
	}

	res.Success = true
	return res
}

// exportTextures writes every decoded material texture of a as WebP under OutputDir/textures.
// A texture shared by several files is written once per run.
func exportTextures(cfg Config, a *asset.Asset, exported *sync.Map) ([]string, error) {
	var out []string
	for _, n := range a.Meshes() {
		for _, m := range n.Mesh.Materials {
			if m.Texture == nil || m.Texture.Image == nil {
				continue
			}
			webpPath := filepath.Join(cfg.OutputDir, "textures", texture.ExportName(m.Texture.Path))
			out = append(out, webpPath)
			if _, loaded := exported.LoadOrStore(webpPath, true); loaded {
				continue
			}
			if err := texture.ExportWebP(webpPath, m.Texture.Image, cfg.TextureSize); err != nil {
				return out, err
			}
		}
	}
	return out, nil
}

// Summary counts successes and failures.
func Summary(results []Result) (ok, failed int) {
	for _, r := range results {
		if r.Success {
			ok++
		} else {
			failed++
		}
	}
	return ok, failed
}

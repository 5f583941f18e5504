package texture

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"

	"egg-transcoder/internal/asset"
	"egg-transcoder/internal/egg"
)

// RewritePath replaces the directory part of a texture path with override.
// An empty override leaves the path unchanged; "~" in override is expanded.
func RewritePath(p, override string) string {
	if override == "" {
		return p
	}
	if dir, err := homedir.Expand(override); err == nil {
		override = dir
	}
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	return filepath.Join(override, base)
}

// Loader resolves texture paths against a base directory, falling back to a stem index,
// and decodes them through a shared cache.
type Loader struct {
	BaseDir string
	Cache   *Cache
	Index   *Index // optional
}

// NewLoader returns a loader for documents in baseDir. A nil cache gets a private one.
func NewLoader(baseDir string, cache *Cache, index *Index) *Loader {
	if cache == nil {
		cache = NewCache()
	}
	return &Loader{BaseDir: baseDir, Cache: cache, Index: index}
}

// resolve returns the on-disk path for a texture reference.
func (l *Loader) resolve(p string) (string, bool) {
	full := filepath.FromSlash(strings.ReplaceAll(p, "\\", "/"))
	if !filepath.IsAbs(full) && l.BaseDir != "" {
		full = filepath.Join(l.BaseDir, full)
	}
	if info, err := os.Stat(full); err == nil && !info.IsDir() {
		return full, true
	}
	return l.Index.ResolvePath(p)
}

// Exists reports whether the texture can be found.
func (l *Loader) Exists(p string) bool {
	_, ok := l.resolve(p)
	return ok
}

// LoadTexture decodes the texture. A path that cannot be found fails with *egg.LookupError.
func (l *Loader) LoadTexture(p string) (*asset.TextureInfo, error) {
	full, ok := l.resolve(p)
	if !ok {
		return nil, &egg.LookupError{Kind: "texture file", Name: p, Index: -1}
	}
	img, format, err := l.Cache.Load(full)
	if err != nil {
		return nil, fmt.Errorf("texture: %w", err)
	}
	b := img.Bounds()
	return &asset.TextureInfo{
		Path:   full,
		Width:  b.Dx(),
		Height: b.Dy(),
		Format: format,
		Image:  img,
	}, nil
}

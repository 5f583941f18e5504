package texture

import (
	"os"
	"path/filepath"
	"strings"
)

// imageExts are the extensions Decode understands, in preference order for a shared stem.
var imageExts = []string{".png", ".tga", ".tif", ".tiff", ".bmp", ".webp", ".jpg", ".jpeg"}

// Index maps lowercase texture stems to filesystem paths.
// When several files share a stem the format earlier in imageExts wins.
type Index struct {
	entries map[string]string // stem.lower() → full path
}

// BuildIndex scans the given directories recursively for image files.
func BuildIndex(dirs ...string) *Index {
	idx := &Index{entries: make(map[string]string)}

	for _, dir := range dirs {
		filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			ext := strings.ToLower(filepath.Ext(path))
			rank := extRank(ext)
			if rank < 0 {
				return nil
			}
			stem := strings.ToLower(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))

			existing, exists := idx.entries[stem]
			if !exists || rank < extRank(strings.ToLower(filepath.Ext(existing))) {
				idx.entries[stem] = path
			}
			return nil
		})
	}

	return idx
}

func extRank(ext string) int {
	for i, e := range imageExts {
		if e == ext {
			return i
		}
	}
	return -1
}

// ResolvePath returns the filesystem path for a texture name, or ("", false).
func (idx *Index) ResolvePath(texName string) (string, bool) {
	if idx == nil {
		return "", false
	}
	// Strip path prefix (e.g., "phase_3\\maps\\foo.jpg" → "foo")
	texName = strings.ReplaceAll(texName, "\\", "/")
	base := filepath.Base(texName)
	stem := strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))

	path, ok := idx.entries[stem]
	return path, ok
}

// Len returns the number of indexed textures.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.entries)
}

package texture

import (
	"fmt"
	"hash/fnv"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"golang.org/x/image/draw"
)

// Downscale shrinks img so its longer side is at most maxSize, keeping the aspect ratio.
// maxSize <= 0 or a smaller image returns img unchanged.
func Downscale(img image.Image, maxSize int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxSize <= 0 || (w <= maxSize && h <= maxSize) {
		return img
	}
	if w >= h {
		h = max(1, h*maxSize/w)
		w = maxSize
	} else {
		w = max(1, w*maxSize/h)
		h = maxSize
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// ExportName returns the WebP file name for the texture at path: its stem plus a short
// hash of the cleaned path, so textures sharing a stem in different directories stay apart.
func ExportName(path string) string {
	clean := filepath.ToSlash(filepath.Clean(path))
	stem := strings.TrimSuffix(filepath.Base(clean), filepath.Ext(clean))
	h := fnv.New32a()
	h.Write([]byte(clean))
	return fmt.Sprintf("%s_%08x.webp", stem, h.Sum32())
}

// ExportWebP writes img as a lossless WebP file at outPath.
func ExportWebP(outPath string, img image.Image, maxSize int) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return fmt.Errorf("texture: create dir for %s: %w", outPath, err)
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("texture: create %s: %w", outPath, err)
	}
	defer f.Close()

	if err := nativewebp.Encode(f, Downscale(img, maxSize), nil); err != nil {
		return fmt.Errorf("texture: WebP encode %s: %w", outPath, err)
	}
	return f.Close()
}

package texture

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/ftrvxmtrx/tga"
	"github.com/h2non/filetype"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

// Decode reads an image file and returns it as NRGBA together with its format name.
// The format is sniffed from the content; TGA has no magic and is chosen by extension.
func Decode(path string) (*image.NRGBA, string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("texture: read %s: %w", path, err)
	}

	kind, _ := filetype.Match(raw)
	format := kind.Extension
	if kind == filetype.Unknown {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}

	r := bytes.NewReader(raw)
	var img image.Image
	switch format {
	case "png":
		img, err = png.Decode(r)
	case "jpg", "jpeg":
		format = "jpg"
		img, err = jpeg.Decode(r)
	case "bmp":
		img, err = bmp.Decode(r)
	case "tif", "tiff":
		format = "tif"
		img, err = tiff.Decode(r)
	case "webp":
		img, err = webp.Decode(r)
	case "tga":
		img, err = tga.Decode(r)
	default:
		return nil, "", fmt.Errorf("texture: unsupported format %q: %s", format, path)
	}
	if err != nil {
		return nil, "", fmt.Errorf("texture: decode %s: %w", path, err)
	}

	return toNRGBA(img), format, nil
}

// toNRGBA converts any image to NRGBA format.
func toNRGBA(src image.Image) *image.NRGBA {
	if n, ok := src.(*image.NRGBA); ok {
		return n
	}
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

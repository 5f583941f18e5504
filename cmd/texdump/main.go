package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"egg-transcoder/internal/egg"
	"egg-transcoder/internal/texture"
)

// texRefs returns the texture references of doc, including those nested in groups.
func texRefs(nodes []egg.Node) []*egg.TextureReference {
	var out []*egg.TextureReference
	for _, n := range nodes {
		switch v := n.(type) {
		case *egg.TextureReference:
			out = append(out, v)
		case *egg.EntityGroup:
			out = append(out, texRefs(v.Members)...)
		}
	}
	return out
}

func dumpTextures(path, outDir string, loader *texture.Loader, size int) (ok, failed int) {
	doc, err := egg.ParseFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERR %s: %v\n", path, err)
		return 0, 1
	}
	for _, ref := range texRefs(doc.Nodes) {
		info, err := loader.LoadTexture(ref.Path)
		if err != nil {
			fmt.Printf("ERR %s: %s: %v\n", path, ref.Name, err)
			failed++
			continue
		}
		dst := filepath.Join(outDir, texture.ExportName(info.Path))
		if err := texture.ExportWebP(dst, info.Image, size); err != nil {
			fmt.Printf("ERR %s: %v\n", dst, err)
			failed++
			continue
		}
		fmt.Printf("OK  %s -> %s  (%s %dx%d)\n", ref.Path, dst, info.Format, info.Width, info.Height)
		ok++
	}
	return ok, failed
}

func main() {
	outDir := flag.String("output", "textures", "Output directory")
	size := flag.Int("size", 0, "Downscale to this size (0 keeps the original)")
	search := flag.String("search", "", "Directory searched for textures by stem")
	flag.Parse()

	var idx *texture.Index
	if *search != "" {
		idx = texture.BuildIndex(*search)
	}
	cache := texture.NewCache()

	var ok, failed int
	for _, arg := range flag.Args() {
		loader := texture.NewLoader(filepath.Dir(arg), cache, idx)
		o, f := dumpTextures(arg, *outDir, loader, *size)
		ok += o
		failed += f
	}

	fmt.Printf("\n%d written, %d errors\n", ok, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"egg-transcoder/internal/asset"
	"egg-transcoder/internal/egg"
	"egg-transcoder/internal/mathutil"
	"egg-transcoder/internal/skeleton"
	"egg-transcoder/internal/texture"
	"egg-transcoder/internal/transcode"
)

func main() {
	cache := texture.NewCache()

	for _, arg := range os.Args[1:] {
		doc, err := egg.ParseFile(arg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Parse error %s: %v\n", arg, err)
			continue
		}
		cs := doc.CoordinateSystem
		if cs == "" {
			cs = egg.ZUp
		}
		fmt.Printf("\n=== %s (%s, nodes=%d) ===\n", arg, cs, len(doc.Nodes))

		fmt.Println("--- RAW ---")
		printNodes(doc.Nodes, 1)

		opts := transcode.DefaultOptions()
		opts.Loader = texture.NewLoader(filepath.Dir(arg), cache, nil)
		a, err := transcode.File(arg, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Transcode error %s: %v\n", arg, err)
			continue
		}

		fmt.Println("--- SCENE ---")
		printTree(a.Root, 1)

		for _, c := range a.Clips {
			fmt.Printf("--- CLIP %s (length=%.3fs loop=%v tracks=%d) ---\n", c.Name, c.Length, c.Loop, len(c.Tracks))
			for _, t := range c.Tracks {
				fmt.Printf("  %-40s %-8s keys=%d\n", t.Path, t.Kind, len(t.Keys))
			}
		}

		if len(a.Diagnostics) > 0 {
			fmt.Println("--- ADVISORIES ---")
			for _, d := range a.Diagnostics {
				fmt.Printf("  %s\n", d)
			}
		}
	}
}

func printNodes(nodes []egg.Node, depth int) {
	pad := strings.Repeat("  ", depth)
	for _, n := range nodes {
		switch v := n.(type) {
		case *egg.EntityGroup:
			extra := ""
			if v.Dart {
				extra += " dart"
			}
			if v.Collide != nil {
				extra += " collide=" + v.Collide.Type
			}
			if v.Transform != nil {
				extra += " xform"
			}
			fmt.Printf("%sGroup %q polys=%d joints=%d%s\n", pad, v.Name, len(v.Polygons()), len(v.Joints()), extra)
			printNodes(v.Members, depth+1)
		case *egg.VertexPool:
			fmt.Printf("%sVertexPool %q verts=%d\n", pad, v.Name, len(v.Vertices))
		case *egg.TextureReference:
			fmt.Printf("%sTexture %q %s\n", pad, v.Name, v.Path)
		case *egg.AnimationTable:
			printTable(v, depth)
		case *egg.Joint:
			printJoint(v, depth)
		case *egg.Polygon:
			// counted on the group line
		}
	}
}

func printJoint(j *egg.Joint, depth int) {
	fmt.Printf("%sJoint %q members=%d\n", strings.Repeat("  ", depth), j.Name, len(j.Members))
	for _, c := range j.Children {
		printJoint(c, depth+1)
	}
}

func printTable(t *egg.AnimationTable, depth int) {
	kind := "Table"
	if t.Bundle {
		kind = "Bundle"
	}
	var axes []string
	for _, c := range t.Channels {
		axes = append(axes, fmt.Sprintf("%c:%d", c.Axis, len(c.Values)))
	}
	fmt.Printf("%s%s %q %s\n", strings.Repeat("  ", depth), kind, t.Name, strings.Join(axes, " "))
	for _, c := range t.Tables {
		printTable(c, depth+1)
	}
}

func printTree(n *asset.Node, depth int) {
	pad := strings.Repeat("  ", depth)
	xform := ""
	if !mathutil.IsIdentity(n.Transform) {
		t := n.Transform.Col(3)
		xform = fmt.Sprintf(" translate=(%.3f, %.3f, %.3f)", t[0], t[1], t[2])
	}
	fmt.Printf("%s%s %q%s\n", pad, n.Kind, n.Name, xform)
	switch {
	case n.Mesh != nil:
		for _, s := range n.Mesh.Surfaces {
			fmt.Printf("%s  surface[%d] %s verts=%d skinned=%v bounds=[%.2f %.2f %.2f]..[%.2f %.2f %.2f]\n",
				pad, s.MaterialIndex, s.MaterialKey, s.VertexCount(), s.Skinned(),
				s.BoundsMin[0], s.BoundsMin[1], s.BoundsMin[2], s.BoundsMax[0], s.BoundsMax[1], s.BoundsMax[2])
		}
		for _, m := range n.Mesh.Materials {
			texInfo := "untextured"
			if m.Texture != nil {
				texInfo = fmt.Sprintf("%s %dx%d", m.Texture.Format, m.Texture.Width, m.Texture.Height)
			} else if m.TexturePath != "" {
				texInfo = "MISSING " + m.TexturePath
			}
			fmt.Printf("%s  material %s: %s\n", pad, m.Name, texInfo)
		}
	case n.Skeleton != nil:
		positions := skeleton.BonePositions(n.Skeleton)
		for i, b := range n.Skeleton.Bones {
			p := positions[i]
			fmt.Printf("%s  bone[%d] %-24s parent=%d bind=(%.3f, %.3f, %.3f)\n", pad, i, b.Name, b.Parent, p[0], p[1], p[2])
		}
	case n.Hull != nil:
		fmt.Printf("%s  hull points=%d\n", pad, len(n.Hull.Points))
	}
	for _, c := range n.Children {
		printTree(c, depth+1)
	}
}

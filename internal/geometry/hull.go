package geometry

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"egg-transcoder/internal/asset"
	"egg-transcoder/internal/egg"
	"egg-transcoder/internal/mathutil"
)

// BuildHull collects the positions of a collision group's polygons, skipping
// materials, textures and every other vertex attribute. With the "descend" flag
// the polygons of all descendant groups are collected too.
func BuildHull(doc *egg.Document, g *egg.EntityGroup, opts Options) (*asset.ConvexHullInput, error) {
	hull := &asset.ConvexHullInput{Name: g.Name}
	if err := addHullPoints(doc, g, g.Collide.Has("descend"), opts, hull); err != nil {
		return nil, fmt.Errorf("geometry: collision group %q: %w", g.Name, err)
	}
	return hull, nil
}

func addHullPoints(doc *egg.Document, g *egg.EntityGroup, descend bool, opts Options, hull *asset.ConvexHullInput) error {
	for _, p := range g.Polygons() {
		for _, idx := range p.Indices {
			v, err := doc.Vertex(p.Pool, idx)
			if err != nil {
				return err
			}
			pos := mgl64.Vec3(v.Pos)
			if opts.ConvertCoordinates {
				pos = mathutil.ConvertPosition(pos)
			}
			hull.Points = append(hull.Points, vec3f(pos))
		}
	}
	if !descend {
		return nil
	}
	for _, sub := range g.Groups() {
		if err := addHullPoints(doc, sub, true, opts, hull); err != nil {
			return err
		}
	}
	return nil
}
